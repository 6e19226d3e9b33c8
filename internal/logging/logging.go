package logging

import (
	"path/filepath"
	"strings"
	"time"
)

// LogFilePath names the log file for one director run. The wave mode, when
// known, is part of the name so campaign and endless runs sort apart:
// <logsDir>/<app>.<mode>.<yyyymmdd_hhmmss>.log
func LogFilePath(logsDir, appName, mode string, sessionStart time.Time) string {
	parts := []string{appName}
	if mode = strings.ToLower(strings.TrimSpace(mode)); mode != "" {
		parts = append(parts, mode)
	}
	parts = append(parts, sessionStart.Format("20060102_150405"), "log")
	return filepath.Join(logsDir, strings.Join(parts, "."))
}

