package cache

import (
	"sync"

	"github.com/cluckworks/wavedirector/pkg/core"
)

// UnitCache holds the units spawned for the current wave and the ids whose
// death has already been counted. Unit ids must be unique per wave.
type UnitCache struct {
	m         sync.Mutex
	Units     map[string]core.Unit
	processed map[string]struct{}
}

func NewUnitCache() *UnitCache {
	return &UnitCache{
		m:         sync.Mutex{},
		Units:     make(map[string]core.Unit),
		processed: make(map[string]struct{}),
	}
}

func (c *UnitCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Units = make(map[string]core.Unit)
	c.processed = make(map[string]struct{})
}

// Add stores u and reports whether it was new.
func (c *UnitCache) Add(u core.Unit) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.Units[u.UnitID()]; ok {
		return false
	}
	c.Units[u.UnitID()] = u
	return true
}

func (c *UnitCache) Get(id string) (core.Unit, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	u, ok := c.Units[id]
	return u, ok
}

// MarkProcessed records id's death. It returns false if the death was
// already recorded.
func (c *UnitCache) MarkProcessed(id string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.processed[id]; ok {
		return false
	}
	c.processed[id] = struct{}{}
	return true
}

func (c *UnitCache) IsProcessed(id string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.processed[id]
	return ok
}

func (c *UnitCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Units)
}

func (c *UnitCache) ProcessedCount() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.processed)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

// Dec decrements without going below zero and returns the new value.
func (c *SafeCounter) Dec() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.v > 0 {
		c.v--
	}
	return c.v
}
