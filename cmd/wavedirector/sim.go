package main

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cluckworks/wavedirector/internal/random"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// The run command has no game attached, so units, the player and the
// victory menu are simulated. Units die after a random lifetime.

type simUnit struct {
	id   string
	unit core.UnitType
	pos  core.Position

	mu     sync.Mutex
	dead   bool
	onDead []func()
}

func (u *simUnit) UnitID() string          { return u.id }
func (u *simUnit) UnitType() core.UnitType { return u.unit }

func (u *simUnit) OnDeath(fn func()) {
	u.mu.Lock()
	if u.dead {
		u.mu.Unlock()
		fn()
		return
	}
	u.onDead = append(u.onDead, fn)
	u.mu.Unlock()
}

func (u *simUnit) kill() {
	u.mu.Lock()
	if u.dead {
		u.mu.Unlock()
		return
	}
	u.dead = true
	fns := u.onDead
	u.onDead = nil
	u.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

type simSpawner struct {
	rng         *random.Source
	health      *simHealth
	minLifetime time.Duration
	maxLifetime time.Duration
	damage      float64
	logger      *slog.Logger

	next atomic.Uint64

	mu     sync.Mutex
	timers []*time.Timer
}

func newSimSpawner(rng *random.Source, health *simHealth, logger *slog.Logger) *simSpawner {
	return &simSpawner{
		rng:         rng,
		health:      health,
		minLifetime: 500 * time.Millisecond,
		maxLifetime: 3 * time.Second,
		damage:      2,
		logger:      logger,
	}
}

func (s *simSpawner) Spawn(unit core.UnitType, point *core.SpawnPoint) (core.Unit, error) {
	if point == nil {
		return nil, fmt.Errorf("no spawn point for %s", unit)
	}
	dx, dy := s.rng.InsideCircle(point.Radius)
	u := &simUnit{
		id:   fmt.Sprintf("%s-%d", unit, s.next.Add(1)),
		unit: unit,
		pos:  point.Offset(dx, dy),
	}

	spread := int(s.maxLifetime - s.minLifetime)
	lifetime := s.minLifetime + time.Duration(s.rng.Intn(spread+1))

	s.mu.Lock()
	s.timers = append(s.timers, time.AfterFunc(lifetime, u.kill))
	s.mu.Unlock()

	if s.health != nil {
		s.health.damage(s.damage)
	}
	s.logger.Debug("Spawned unit", "unit", u.id, "point", point.Key, "x", u.pos.X, "y", u.pos.Y, "lifetime", lifetime)
	return u, nil
}

// Stop cancels pending deaths.
func (s *simSpawner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

type simHealth struct {
	mu      sync.Mutex
	current float64
	max     float64
}

func newSimHealth(limit float64) *simHealth {
	return &simHealth{current: limit, max: limit}
}

func (h *simHealth) damage(amount float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = max(0, h.current-amount)
}

func (h *simHealth) Heal(amount float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current > 0 {
		h.current = min(h.max, h.current+amount)
	}
}

func (h *simHealth) IsAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current > 0
}

func (h *simHealth) CurrentHealth() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *simHealth) MaxHealth() float64 {
	return h.max
}

func (h *simHealth) Refill() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = h.max
}

// simVictory stands in for the victory menu and presses continue after
// a short pause.
type simVictory struct {
	delay  time.Duration
	post   func(fn func())
	resume func()
	logger *slog.Logger
}

func (v *simVictory) ShowVictoryMenu() {
	v.logger.Info("Campaign wave cleared, victory menu shown")
	if v.post == nil || v.resume == nil {
		return
	}
	time.AfterFunc(v.delay, func() {
		v.post(v.resume)
	})
}
