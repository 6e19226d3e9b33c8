package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLast(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*DispatcherLogger)
		level string
		msg   string
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("queued", "type", "wave.started") }, "DEBUG", "queued"},
		{"info", func(l *DispatcherLogger) { l.Info("delivered", "type", "wave.started") }, "INFO", "delivered"},
		{"error", func(l *DispatcherLogger) { l.Error("failed", "type", "wave.started") }, "ERROR", "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

			tt.log(dl)

			entry := decodeLast(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.msg, entry["msg"])
			assert.Equal(t, "wave.started", entry["type"])
		})
	}
}

func TestDispatcherLogger_NoKeyValues(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	dl.Debug("simple message")

	assert.Equal(t, "simple message", decodeLast(t, &buf)["msg"])
}

func TestNewZerolog_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "debug", "database")

	logger.Debug().Str("path", "waves.db").Msg("Using local SQLite DB")

	entry := decodeLast(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "database", entry["component"])
	assert.Equal(t, "waves.db", entry["path"])
}

func TestNewZerolog_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "shouting", "telemetry")

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
