// Package tracker counts the living units of the current wave and reports
// each death once and the wave's completion once.
package tracker

import (
	"log/slog"
	"sync"

	"github.com/cluckworks/wavedirector/internal/cache"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// Callbacks receive tracker notifications tagged with the wave epoch they
// belong to. Either may be nil. They are invoked without the tracker lock
// held.
type Callbacks struct {
	OnKill      func(u core.Unit, epoch uint64)
	OnCompleted func(epoch uint64)
}

// Tracker follows one wave at a time. Deaths of units from a previous wave
// are ignored.
type Tracker struct {
	mu        sync.Mutex
	units     *cache.UnitCache
	alive     cache.SafeCounter
	epoch     uint64
	completed bool
	cb        Callbacks
	logger    *slog.Logger
}

func New(cb Callbacks, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		units:  cache.NewUnitCache(),
		cb:     cb,
		logger: logger,
	}
}

// Begin starts a new wave expecting the given number of units and returns
// its epoch.
func (t *Tracker) Begin(expected int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.epoch++
	t.units.Reset()
	t.alive.Set(max(0, expected))
	t.completed = false
	return t.epoch
}

// Track subscribes to the death of a unit already counted by Begin.
func (t *Tracker) Track(u core.Unit) {
	if u == nil {
		return
	}

	t.mu.Lock()
	epoch := t.epoch
	fresh := t.units.Add(u)
	t.mu.Unlock()

	if !fresh {
		return
	}
	u.OnDeath(func() { t.handleDeath(u, epoch) })
}

// Register adds a unit that was spawned outside the wave sequence.
func (t *Tracker) Register(u core.Unit) {
	if u == nil {
		return
	}

	t.mu.Lock()
	if _, known := t.units.Get(u.UnitID()); known || t.units.IsProcessed(u.UnitID()) {
		t.mu.Unlock()
		t.logger.Debug("Unit already tracked", "unit", u.UnitID())
		return
	}
	t.alive.Inc()
	t.mu.Unlock()

	t.Track(u)
}

// Forfeit removes one expected unit that never spawned.
func (t *Tracker) Forfeit() {
	t.mu.Lock()
	t.alive.Dec()
	done := t.completeLocked()
	epoch := t.epoch
	t.mu.Unlock()

	if done && t.cb.OnCompleted != nil {
		t.cb.OnCompleted(epoch)
	}
}

func (t *Tracker) handleDeath(u core.Unit, epoch uint64) {
	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		t.logger.Debug("Ignoring death from a previous wave", "unit", u.UnitID())
		return
	}
	if !t.units.MarkProcessed(u.UnitID()) {
		t.mu.Unlock()
		return
	}
	t.alive.Dec()
	done := t.completeLocked()
	t.mu.Unlock()

	if t.cb.OnKill != nil {
		t.cb.OnKill(u, epoch)
	}
	if done && t.cb.OnCompleted != nil {
		t.cb.OnCompleted(epoch)
	}
}

func (t *Tracker) completeLocked() bool {
	if t.completed || t.alive.Value() > 0 {
		return false
	}
	t.completed = true
	return true
}

// Alive returns the number of units still expected to die.
func (t *Tracker) Alive() int {
	return t.alive.Value()
}

// Processed returns the number of deaths counted this wave.
func (t *Tracker) Processed() int {
	return t.units.ProcessedCount()
}

// Epoch returns the current wave epoch.
func (t *Tracker) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Completed reports whether the current wave has been completed.
func (t *Tracker) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}
