package tracker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cluckworks/wavedirector/pkg/core"
)

type fakeUnit struct {
	id       string
	mu       sync.Mutex
	handlers []func()
}

func (u *fakeUnit) UnitID() string          { return u.id }
func (u *fakeUnit) UnitType() core.UnitType { return "grunt" }

func (u *fakeUnit) OnDeath(fn func()) {
	u.mu.Lock()
	u.handlers = append(u.handlers, fn)
	u.mu.Unlock()
}

func (u *fakeUnit) kill() {
	u.mu.Lock()
	hs := append([]func(){}, u.handlers...)
	u.mu.Unlock()
	for _, h := range hs {
		h()
	}
}

type recorder struct {
	mu        sync.Mutex
	kills     []string
	completed int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnKill: func(u core.Unit, _ uint64) {
			r.mu.Lock()
			r.kills = append(r.kills, u.UnitID())
			r.mu.Unlock()
		},
		OnCompleted: func(uint64) {
			r.mu.Lock()
			r.completed++
			r.mu.Unlock()
		},
	}
}

func TestTracker_CompletesOnce(t *testing.T) {
	rec := &recorder{}
	tr := New(rec.callbacks(), nil)

	a, b := &fakeUnit{id: "a"}, &fakeUnit{id: "b"}
	tr.Begin(2)
	tr.Track(a)
	tr.Track(b)
	assert.Equal(t, 2, tr.Alive())

	a.kill()
	assert.Equal(t, 1, tr.Alive())
	assert.Equal(t, 0, rec.completed)

	b.kill()
	assert.Equal(t, 0, tr.Alive())
	assert.Equal(t, 1, rec.completed)
	assert.Equal(t, []string{"a", "b"}, rec.kills)
	assert.Equal(t, 2, tr.Processed())
	assert.True(t, tr.Completed())
}

func TestTracker_DuplicateDeathCountsOnce(t *testing.T) {
	rec := &recorder{}
	tr := New(rec.callbacks(), nil)

	a := &fakeUnit{id: "a"}
	tr.Begin(3)
	tr.Track(a)

	a.kill()
	a.kill()
	assert.Equal(t, 2, tr.Alive(), "a double death only decrements once")
	assert.Equal(t, []string{"a"}, rec.kills)
}

func TestTracker_TrackSameUnitTwice(t *testing.T) {
	tr := New(Callbacks{}, nil)
	a := &fakeUnit{id: "a"}
	tr.Begin(1)
	tr.Track(a)
	tr.Track(a)
	assert.Len(t, a.handlers, 1)
}

func TestTracker_StaleDeathIgnored(t *testing.T) {
	rec := &recorder{}
	tr := New(rec.callbacks(), nil)

	old := &fakeUnit{id: "old"}
	tr.Begin(1)
	tr.Track(old)

	tr.Begin(1)
	fresh := &fakeUnit{id: "fresh"}
	tr.Track(fresh)

	old.kill()
	assert.Equal(t, 1, tr.Alive())
	assert.Empty(t, rec.kills)

	fresh.kill()
	assert.Equal(t, 1, rec.completed)
}

func TestTracker_Register(t *testing.T) {
	rec := &recorder{}
	tr := New(rec.callbacks(), nil)

	tr.Begin(1)
	spawned := &fakeUnit{id: "s"}
	tr.Track(spawned)

	extra := &fakeUnit{id: "x"}
	tr.Register(extra)
	tr.Register(extra)
	assert.Equal(t, 2, tr.Alive())

	spawned.kill()
	assert.Equal(t, 0, rec.completed)
	extra.kill()
	assert.Equal(t, 1, rec.completed)

	// a unit whose death was already counted is not re-registered
	tr.Register(extra)
	assert.Equal(t, 0, tr.Alive())
}

func TestTracker_Forfeit(t *testing.T) {
	rec := &recorder{}
	tr := New(rec.callbacks(), nil)

	tr.Begin(2)
	a := &fakeUnit{id: "a"}
	tr.Track(a)
	tr.Forfeit()
	assert.Equal(t, 1, tr.Alive())
	assert.Equal(t, 0, rec.completed)

	a.kill()
	assert.Equal(t, 1, rec.completed)

	tr.Forfeit()
	assert.Equal(t, 0, tr.Alive(), "alive never goes negative")
	assert.Equal(t, 1, rec.completed)
}

func TestTracker_BeginNegative(t *testing.T) {
	tr := New(Callbacks{}, nil)
	tr.Begin(-3)
	assert.Equal(t, 0, tr.Alive())
}

func TestTracker_EpochPassedToCallbacks(t *testing.T) {
	var killEpoch, doneEpoch uint64
	tr := New(Callbacks{
		OnKill:      func(_ core.Unit, e uint64) { killEpoch = e },
		OnCompleted: func(e uint64) { doneEpoch = e },
	}, nil)

	tr.Begin(0)
	epoch := tr.Begin(1)
	assert.Equal(t, uint64(2), epoch)
	assert.Equal(t, epoch, tr.Epoch())

	u := &fakeUnit{id: "u"}
	tr.Track(u)
	u.kill()
	assert.Equal(t, epoch, killEpoch)
	assert.Equal(t, epoch, doneEpoch)
}

func TestTracker_ConcurrentDeaths(t *testing.T) {
	rec := &recorder{}
	tr := New(rec.callbacks(), nil)

	const n = 64
	units := make([]*fakeUnit, n)
	tr.Begin(n)
	for i := range units {
		units[i] = &fakeUnit{id: string(rune('A' + i))}
		tr.Track(units[i])
	}

	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(2)
		go func() { defer wg.Done(); u.kill() }()
		go func() { defer wg.Done(); u.kill() }()
	}
	wg.Wait()

	require.Equal(t, 0, tr.Alive())
	assert.Len(t, rec.kills, n)
	assert.Equal(t, 1, rec.completed)
}
