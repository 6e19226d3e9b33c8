package session

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/pkg/core"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext("p1", core.ModeEndless)

	_, err := uuid.Parse(ctx.ID())
	require.NoError(t, err)
	assert.NotEqual(t, ctx.ID(), NewContext("p1", core.ModeEndless).ID())
	assert.Equal(t, "p1", ctx.ProfileID())
	assert.Equal(t, core.ModeEndless, ctx.Mode())
	assert.Equal(t, "idle", ctx.State())

	idx, name := ctx.Wave()
	assert.Equal(t, -1, idx)
	assert.Empty(t, name)
}

func TestAttrs(t *testing.T) {
	ctx := NewContext("p1", core.ModeCampaign)
	assert.Len(t, ctx.Attrs(), 3)

	ctx.SetWave(2, "Third")
	attrs := ctx.Attrs()
	require.Len(t, attrs, 4)
	assert.Equal(t, slog.Int("wave", 2), attrs[3])
}

func TestFollow(t *testing.T) {
	d, err := dispatcher.New(nil)
	require.NoError(t, err)
	defer d.Close()

	ctx := NewContext("p1", core.ModeCampaign)
	ctx.Follow(d)

	require.NoError(t, d.Emit(core.EventWaveStarted, core.WaveStarted{Index: 1, Name: "Second"}))
	require.NoError(t, d.Emit(core.EventStateChanged, core.StateChanged{From: "idle", To: "wave_active"}))

	idx, name := ctx.Wave()
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Second", name)
	assert.Equal(t, "wave_active", ctx.State())
}
