package telemetry

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/internal/session"
	"github.com/cluckworks/wavedirector/pkg/core"
)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Host:     "127.0.0.1",
		Port:     "1",
		Protocol: "http",
		Org:      "test",
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{}, filepath.Join(t.TempDir(), "backup.gz"))
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid)
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{}, "")
	_, point, ok := PointFor(dispatcher.Event{Payload: core.CoinsChanged{Total: 3}}, nil)
	require.True(t, ok)
	assert.Error(t, m.WritePoint(BucketEconomy, point))
}

func TestConnect_FallsBackToBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.lp.gz")
	m := NewManager(zerolog.Nop(), unreachable(), path)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	sess := session.NewContext("p1", core.ModeEndless)
	bucket, point, ok := PointFor(dispatcher.Event{
		Payload:   core.UnitKilled{WaveIndex: 2, UnitType: "grunt", Alive: 4, Reward: 1},
		Timestamp: time.Unix(1700000000, 0),
	}, sess)
	require.True(t, ok)
	assert.Equal(t, BucketWaves, bucket)
	require.NoError(t, m.WritePoint(bucket, point))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	line := string(data)
	assert.True(t, strings.HasPrefix(line, "unit_killed,"), line)
	assert.Contains(t, line, "unitType=grunt")
	assert.Contains(t, line, "session="+sess.ID())
	assert.Contains(t, line, "alive=4i")
}

func TestPointFor(t *testing.T) {
	cases := []struct {
		payload     any
		bucket      string
		measurement string
	}{
		{core.WaveStarted{Index: 0, Name: "Opening", Units: 5}, BucketWaves, "wave_started"},
		{core.WaveCompleted{Index: 0, Name: "Opening", Reward: 25}, BucketWaves, "wave_completed"},
		{core.CoinsChanged{Total: 30}, BucketEconomy, "session_coins"},
	}
	for _, tc := range cases {
		bucket, point, ok := PointFor(dispatcher.Event{Payload: tc.payload, Timestamp: time.Now()}, nil)
		require.True(t, ok)
		assert.Equal(t, tc.bucket, bucket)
		assert.Equal(t, tc.measurement, point.Name())
	}

	_, _, ok := PointFor(dispatcher.Event{Payload: core.StateChanged{}}, nil)
	assert.False(t, ok)
}
