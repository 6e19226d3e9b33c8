package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cluckworks/wavedirector/pkg/core"
)

type stubUnit struct{ id string }

func (u *stubUnit) UnitID() string          { return u.id }
func (u *stubUnit) UnitType() core.UnitType { return "stub" }
func (u *stubUnit) OnDeath(func())          {}

func TestUnitCache_NewUnitCache(t *testing.T) {
	cache := NewUnitCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Units)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.ProcessedCount())
}

func TestUnitCache_AddAndGet(t *testing.T) {
	cache := NewUnitCache()
	u := &stubUnit{id: "u1"}

	assert.True(t, cache.Add(u))
	assert.False(t, cache.Add(u), "second add of the same id is rejected")

	got, ok := cache.Get("u1")
	require.True(t, ok, "expected to find unit u1")
	assert.Same(t, u, got)

	_, ok = cache.Get("nope")
	assert.False(t, ok)
}

func TestUnitCache_MarkProcessed(t *testing.T) {
	cache := NewUnitCache()

	assert.True(t, cache.MarkProcessed("u1"))
	assert.False(t, cache.MarkProcessed("u1"))
	assert.True(t, cache.IsProcessed("u1"))
	assert.False(t, cache.IsProcessed("u2"))
	assert.Equal(t, 1, cache.ProcessedCount())
}

func TestUnitCache_Reset(t *testing.T) {
	cache := NewUnitCache()
	cache.Add(&stubUnit{id: "u1"})
	cache.MarkProcessed("u1")

	cache.Reset()

	assert.Equal(t, 0, cache.Len())
	assert.False(t, cache.IsProcessed("u1"))
}

func TestUnitCache_ConcurrentMarkProcessed(t *testing.T) {
	cache := NewUnitCache()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cache.MarkProcessed("same") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter
	c.Set(2)
	c.Inc()
	assert.Equal(t, 3, c.Value())

	assert.Equal(t, 2, c.Dec())
	c.Set(0)
	assert.Equal(t, 0, c.Dec(), "never below zero")
}
