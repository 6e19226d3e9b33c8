package memory

import (
	"testing"

	"github.com/cluckworks/wavedirector/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadDelete(t *testing.T) {
	b := New()
	require.NoError(t, b.Init())
	defer b.Close()

	in := &core.CampaignWaveCacheFile{CacheID: "x", CacheVersion: "1", WaveCount: 0}
	require.NoError(t, b.Save("x", in))
	assert.Equal(t, 1, b.Len())

	out, err := b.Load("x")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// mutation of the loaded value must not leak back
	out.WaveCount = 99
	again, err := b.Load("x")
	require.NoError(t, err)
	assert.Equal(t, 0, again.WaveCount)

	require.NoError(t, b.Delete("x"))
	assert.ErrorIs(t, b.Delete("x"), core.ErrCacheNotFound)
	_, err = b.Load("x")
	assert.ErrorIs(t, err, core.ErrCacheNotFound)
}

func TestLoad_Malformed(t *testing.T) {
	b := New()
	b.PutRaw("bad", []byte("[1,2"))

	_, err := b.Load("bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrCacheNotFound)
}

func TestSave_Nil(t *testing.T) {
	assert.Error(t, New().Save("x", nil))
}
