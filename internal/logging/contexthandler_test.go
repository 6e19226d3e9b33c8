package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sessionLogger(buf *bytes.Buffer, attrs func() []slog.Attr) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewTextHandler(buf, nil), attrs))
}

func TestContextHandler_StampsLiveSession(t *testing.T) {
	var buf bytes.Buffer
	state := "wave_active"
	logger := sessionLogger(&buf, func() []slog.Attr {
		return []slog.Attr{slog.String("mode", "endless"), slog.String("state", state), slog.Int("wave", 4)}
	})

	logger.Info("unit killed")
	state = "wave_cooldown"
	logger.Info("cooldown started")

	out := buf.String()
	assert.Contains(t, out, `msg="unit killed" mode=endless state=wave_active wave=4`)
	assert.Contains(t, out, `msg="cooldown started" mode=endless state=wave_cooldown wave=4`)
}

func TestContextHandler_RecordAttrsWin(t *testing.T) {
	var buf bytes.Buffer
	logger := sessionLogger(&buf, func() []slog.Attr {
		return []slog.Attr{slog.Int("wave", 4), slog.String("mode", "campaign")}
	})

	logger.Info("stale kill ignored", "wave", 3)
	assert.Contains(t, buf.String(), "wave=3 mode=campaign")
	assert.NotContains(t, buf.String(), "wave=4")

	buf.Reset()
	logger.With("mode", "endless").Info("generated")
	assert.Contains(t, buf.String(), "mode=endless wave=4")
	assert.NotContains(t, buf.String(), "mode=campaign")
}

func TestContextHandler_SkipsEmptyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := sessionLogger(&buf, func() []slog.Attr {
		return []slog.Attr{slog.String("session", "s1"), slog.String("state", "")}
	})

	logger.Info("director ready")
	assert.Contains(t, buf.String(), "session=s1")
	assert.NotContains(t, buf.String(), "state=")
}

func TestContextHandler_GroupedLoggersAreLeftAlone(t *testing.T) {
	var buf bytes.Buffer
	logger := sessionLogger(&buf, func() []slog.Attr {
		return []slog.Attr{slog.Int("wave", 1)}
	})

	logger.WithGroup("cache").Info("saved", "id", "main")
	assert.Contains(t, buf.String(), "cache.id=main")
	assert.NotContains(t, buf.String(), "wave=")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	sessionLogger(&buf, nil).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
