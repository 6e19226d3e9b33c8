package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/internal/economy"
	"github.com/cluckworks/wavedirector/internal/generator"
	"github.com/cluckworks/wavedirector/internal/random"
	"github.com/cluckworks/wavedirector/internal/spawn"
	"github.com/cluckworks/wavedirector/pkg/core"
)

var _ Economy = (*economy.Ledger)(nil)

type fakeUnit struct {
	id       string
	unit     core.UnitType
	mu       sync.Mutex
	handlers []func()
}

func (u *fakeUnit) UnitID() string          { return u.id }
func (u *fakeUnit) UnitType() core.UnitType { return u.unit }

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

type fakeSpawner struct {
	units  []*fakeUnit
	points []*core.SpawnPoint
	fail   bool
}

func (s *fakeSpawner) Spawn(unit core.UnitType, point *core.SpawnPoint) (core.Unit, error) {
	if s.fail {
		return nil, errors.New("no room")
	}
	u := &fakeUnit{id: fmt.Sprintf("u%d", len(s.units)), unit: unit}
	s.units = append(s.units, u)
	s.points = append(s.points, point)
	return u, nil
}

func (s *fakeSpawner) killAll() {
	for _, u := range s.units {
		u.kill()
	}
}

type fakeHealth struct {
	current, max float64
	dead         bool
	refills      int
}

func (h *fakeHealth) Heal(amount float64) {
	if h.dead || amount <= 0 {
		return
	}
	h.current += amount
}
func (h *fakeHealth) IsAlive() bool          { return !h.dead }
func (h *fakeHealth) CurrentHealth() float64 { return h.current }
func (h *fakeHealth) MaxHealth() float64     { return h.max }
func (h *fakeHealth) Refill() {
	h.dead = false
	h.current = h.max
	h.refills++
}

type fakeProgress struct {
	start int
	saved []int
}

func (p *fakeProgress) CampaignStartWave() int { return p.start }
func (p *fakeProgress) SaveCampaignProgress(i int) {
	p.saved = append(p.saved, i)
}

type fakeUI struct{ shown int }

func (u *fakeUI) ShowVictoryMenu() { u.shown++ }

type fixture struct {
	orch     *Orchestrator
	spawner  *fakeSpawner
	health   *fakeHealth
	progress *fakeProgress
	ui       *fakeUI
	ledger   *economy.Ledger
	events   *dispatcher.Dispatcher
	gate     *core.SpawnPoint
}

func gatePoint() *core.SpawnPoint {
	return &core.SpawnPoint{Key: "gate", BetweenDelay: 200 * time.Millisecond}
}

func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()

	gate := gatePoint()
	rng := random.New(7)
	registry := spawn.NewRegistry([]spawn.Binding{{Key: "gate", Point: gate}}, rng, nil)
	ledger := economy.NewLedger(economy.DefaultRewardTable(), rng, nil, nil)
	gen := generator.New(generator.Dependencies{Registry: registry, Rewards: ledger, RNG: rng})

	events, err := dispatcher.New(nil)
	require.NoError(t, err)
	t.Cleanup(events.Close)

	f := &fixture{
		spawner:  &fakeSpawner{},
		health:   &fakeHealth{current: 100, max: 100},
		progress: &fakeProgress{},
		ui:       &fakeUI{},
		ledger:   ledger,
		events:   events,
		gate:     gate,
	}

	f.orch, err = New(Dependencies{
		Generator: gen,
		Economy:   ledger,
		Spawner:   f.spawner,
		Health:    f.health,
		Progress:  f.progress,
		Victory:   f.ui,
		Events:    events,
	}, settings)
	require.NoError(t, err)
	t.Cleanup(f.orch.Close)
	return f
}

// threeEntryCampaign has a first wave of 3 entries and 5 units.
func threeEntryCampaign() *generator.CampaignSettings {
	return &generator.CampaignSettings{
		Waves: []generator.WaveData{
			{Name: "Opening", Entries: []generator.EntryData{
				{Unit: "grunt", Count: 1, SpawnPointKey: "gate", SpawnInterval: core.InheritInterval},
				{Unit: "runner", Count: 2, SpawnPointKey: "gate", SpawnInterval: core.InheritInterval},
				{Unit: "brute", Count: 2, SpawnPointKey: "gate", SpawnInterval: 100 * time.Millisecond},
			}},
			{Name: "Second", Entries: []generator.EntryData{
				{Unit: "grunt", Count: 1, SpawnPointKey: "gate", SpawnInterval: core.InheritInterval},
			}},
		},
	}
}

func campaignSettings() Settings {
	s := DefaultSettings()
	s.Campaign = threeEntryCampaign()
	return s
}

func endlessSettings(maxWaves int) Settings {
	s := DefaultSettings()
	s.Mode = core.ModeEndless
	s.Endless = &generator.EndlessSettings{
		Pool: []core.PoolEntry{
			{Unit: "grunt", SpawnPointKey: "gate", MinCount: 1, MaxCount: 1, SpawnInterval: core.InheritInterval},
		},
		DefaultSpawnInterval: core.InheritInterval,
		GroupsPerWave:        core.IntRange{Min: 1, Max: 1},
		MaxGeneratedWaves:    maxWaves,
	}
	return s
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Dependencies{Spawner: &fakeSpawner{}}, DefaultSettings())
	assert.Error(t, err)

	_, err = New(Dependencies{Generator: generator.New(generator.Dependencies{})}, DefaultSettings())
	assert.Error(t, err)
}

func TestStart_NoWaves(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	assert.ErrorIs(t, f.orch.Start(), ErrNoWaves)
	assert.Equal(t, Idle, f.orch.State())

	f = newFixture(t, Settings{Mode: core.ModeEndless})
	assert.ErrorIs(t, f.orch.Start(), ErrNoWaves)
}

func TestStart_ResumesCampaignClamped(t *testing.T) {
	f := newFixture(t, campaignSettings())
	f.progress.start = 9

	require.NoError(t, f.orch.Start())
	assert.Equal(t, 1, f.orch.CurrentWaveIndex())
	assert.Equal(t, "Second", f.orch.CurrentWave().Name)
	assert.Equal(t, 2, f.orch.TotalWaveCount())
}

func TestCampaign_DefaultRewardGrantedOnce(t *testing.T) {
	f := newFixture(t, campaignSettings())
	require.NoError(t, f.orch.Start())
	assert.Equal(t, WaveActive, f.orch.State())
	assert.Equal(t, 5, f.orch.Alive())

	f.orch.Tick(time.Second)
	require.Len(t, f.spawner.units, 5)
	assert.Equal(t, core.UnitType("grunt"), f.spawner.units[0].unit)
	assert.Equal(t, core.UnitType("brute"), f.spawner.units[4].unit)

	for _, u := range f.spawner.units[:4] {
		u.kill()
	}
	f.orch.Tick(0)
	assert.Equal(t, WaveActive, f.orch.State())
	assert.Equal(t, 0, f.ledger.SessionCoins())

	f.spawner.units[4].kill()
	f.spawner.units[4].kill()
	f.orch.Tick(0)

	assert.Equal(t, CampaignVictoryPending, f.orch.State())
	assert.Equal(t, 25, f.ledger.SessionCoins())
	assert.Equal(t, 25, f.ledger.LastCampaignReward())
	assert.Equal(t, []int{0}, f.progress.saved)
	assert.Equal(t, 1, f.orch.PendingWaveIndex())

	f.orch.Tick(0)
	assert.Equal(t, 25, f.ledger.SessionCoins(), "reward is granted exactly once")
}

func TestCampaign_VictoryRampThenMenu(t *testing.T) {
	f := newFixture(t, campaignSettings())
	require.NoError(t, f.orch.Start())
	f.orch.Tick(time.Second)
	f.spawner.killAll()
	f.orch.Tick(time.Second)
	assert.Equal(t, 1.0, f.orch.TimeScale(), "ramp starts on the frame after the last death")

	f.orch.Tick(250 * time.Millisecond)
	assert.InDelta(t, 0.5, f.orch.TimeScale(), 1e-9)
	assert.Equal(t, 0, f.ui.shown)

	f.orch.Tick(250 * time.Millisecond)
	assert.Equal(t, 0.0, f.orch.TimeScale())
	assert.Equal(t, CampaignVictoryShown, f.orch.State())
	assert.Equal(t, 1, f.ui.shown)

	f.orch.Tick(time.Second)
	assert.Equal(t, 1, f.ui.shown, "menu is shown once")
}

func TestCampaign_ContinueAfterVictory(t *testing.T) {
	f := newFixture(t, campaignSettings())
	require.NoError(t, f.orch.Start())
	f.orch.Tick(time.Second)
	f.spawner.killAll()
	f.orch.Tick(time.Second)
	f.orch.Tick(time.Second)
	require.Equal(t, CampaignVictoryShown, f.orch.State())

	f.orch.ContinueAfterVictory()
	assert.Equal(t, -1, f.orch.PendingWaveIndex())
	f.orch.Tick(250 * time.Millisecond)
	assert.InDelta(t, 0.5, f.orch.TimeScale(), 1e-9)
	assert.Equal(t, CampaignVictoryShown, f.orch.State())

	f.orch.Tick(250 * time.Millisecond)
	assert.Equal(t, 1.0, f.orch.TimeScale())
	assert.Equal(t, WaveActive, f.orch.State())
	assert.Equal(t, 1, f.orch.CurrentWaveIndex())
}

func TestCampaign_ContinueAfterLastWaveGoesIdle(t *testing.T) {
	f := newFixture(t, campaignSettings())
	f.orch.StartWave(1)
	f.orch.Tick(time.Second)
	f.spawner.killAll()
	f.orch.Tick(time.Second)
	f.orch.Tick(time.Second)
	assert.Equal(t, -1, f.orch.PendingWaveIndex())

	f.orch.ContinueAfterVictory()
	f.orch.Tick(time.Second)
	assert.Equal(t, Idle, f.orch.State())
	assert.Equal(t, 1.0, f.orch.TimeScale())
}

func TestCampaign_RestoresHealthAtWaveStart(t *testing.T) {
	f := newFixture(t, campaignSettings())
	f.health.current = 40

	f.orch.StartWave(0)
	assert.Equal(t, 100.0, f.health.current)

	f.health.dead = true
	f.health.current = 0
	f.orch.StartWave(1)
	assert.Equal(t, 1, f.health.refills)
	assert.Equal(t, 100.0, f.health.current)
}

func TestStartWave_ReentryDoesNotDoubleCount(t *testing.T) {
	f := newFixture(t, campaignSettings())

	f.orch.StartWave(0)
	f.orch.Tick(250 * time.Millisecond)
	f.orch.StartWave(0)
	assert.Equal(t, 5, f.orch.Alive())

	// units of the abandoned run no longer count
	spawnedBefore := len(f.spawner.units)
	for _, u := range f.spawner.units[:spawnedBefore] {
		u.kill()
	}
	f.orch.Tick(0)
	assert.Equal(t, 5, f.orch.Alive())
	assert.Equal(t, WaveActive, f.orch.State())
}

func TestStartWave_InvalidIndexIsNoop(t *testing.T) {
	f := newFixture(t, campaignSettings())

	f.orch.StartWave(-1)
	f.orch.StartWave(2)
	assert.Equal(t, Idle, f.orch.State())
	assert.Equal(t, -1, f.orch.CurrentWaveIndex())
	assert.Nil(t, f.orch.CurrentWave())
}

func TestSpawnSequence_OrderAndTiming(t *testing.T) {
	f := newFixture(t, campaignSettings())
	f.gate.InitialDelay = 500 * time.Millisecond

	f.orch.StartWave(0)
	f.orch.Tick(400 * time.Millisecond)
	assert.Empty(t, f.spawner.units)

	// grunt at 0.5s
	f.orch.Tick(100 * time.Millisecond)
	require.Len(t, f.spawner.units, 1)

	// runner #1 after another initial delay, runner #2 200ms later
	f.orch.Tick(500 * time.Millisecond)
	require.Len(t, f.spawner.units, 2)
	f.orch.Tick(200 * time.Millisecond)
	require.Len(t, f.spawner.units, 3)
	assert.Equal(t, core.UnitType("runner"), f.spawner.units[2].unit)
}

func TestSpawnFailure_ForfeitsUnits(t *testing.T) {
	f := newFixture(t, campaignSettings())
	f.spawner.fail = true

	f.orch.StartWave(1)
	f.orch.Tick(time.Second)
	f.orch.Tick(0)
	assert.Equal(t, CampaignVictoryPending, f.orch.State())
}

func TestEndless_SingleUnitWaves(t *testing.T) {
	f := newFixture(t, endlessSettings(0))
	assert.Equal(t, -1, f.orch.TotalWaveCount())

	for i := 0; i < 3; i++ {
		require.Equal(t, i, len(f.spawner.units))
		if i == 0 {
			require.NoError(t, f.orch.Start())
		}
		wave := f.orch.CurrentWave()
		require.NotNil(t, wave)
		require.Len(t, wave.Entries, 1)
		assert.Equal(t, 1, wave.Entries[0].Count)
		assert.Equal(t, fmt.Sprintf("Endless Wave #%d", i+1), wave.Name)

		f.orch.Tick(0)
		f.orch.Tick(0)
		require.Len(t, f.spawner.units, i+1)
		f.spawner.units[i].kill()
		f.orch.Tick(0)
		assert.Equal(t, WaveCooldown, f.orch.State())
		f.orch.Tick(5 * time.Second)
		assert.Equal(t, i+1, f.orch.CurrentWaveIndex())
	}

	assert.Equal(t, 3, f.ledger.SessionCoins(), "one coin per endless kill")
}

func TestEndless_CooldownHealIsLinear(t *testing.T) {
	f := newFixture(t, endlessSettings(0))
	f.health.current = 50

	require.NoError(t, f.orch.Start())
	f.orch.Tick(0)
	require.Len(t, f.spawner.units, 1)
	f.spawner.units[0].kill()
	f.orch.Tick(time.Second)
	assert.Equal(t, 50.0, f.health.current, "cooldown is not charged the delivering frame")

	f.orch.Tick(2500 * time.Millisecond)
	assert.InDelta(t, 62.5, f.health.current, 0.01)
	assert.Equal(t, WaveCooldown, f.orch.State())

	f.orch.Tick(2500 * time.Millisecond)
	assert.InDelta(t, 75, f.health.current, 0.001)
	assert.Equal(t, WaveActive, f.orch.State())
	assert.Equal(t, 1, f.orch.CurrentWaveIndex())
}

func TestEndless_CooldownHealCappedAtMax(t *testing.T) {
	f := newFixture(t, endlessSettings(0))
	f.health.current = 90

	require.NoError(t, f.orch.Start())
	f.orch.Tick(0)
	f.spawner.units[0].kill()
	f.orch.Tick(0)
	f.orch.Tick(2500 * time.Millisecond)
	f.orch.Tick(2500 * time.Millisecond)
	assert.Equal(t, 100.0, f.health.current)
}

func TestEndless_StopsAtMaxGeneratedWaves(t *testing.T) {
	f := newFixture(t, endlessSettings(1))
	assert.Equal(t, 1, f.orch.TotalWaveCount())
	assert.False(t, f.orch.CanStartWave(1))

	require.NoError(t, f.orch.Start())
	f.orch.Tick(0)
	f.spawner.units[0].kill()
	f.orch.Tick(0)
	assert.Equal(t, Idle, f.orch.State())
}

func TestEndless_ContinueAfterVictoryIgnored(t *testing.T) {
	f := newFixture(t, endlessSettings(0))
	require.NoError(t, f.orch.Start())
	f.orch.ContinueAfterVictory()
	f.orch.Tick(time.Second)
	assert.Equal(t, 1.0, f.orch.TimeScale())
}

func TestRegisterUnit(t *testing.T) {
	f := newFixture(t, campaignSettings())
	f.orch.StartWave(1)
	f.orch.Tick(time.Second)

	extra := &fakeUnit{id: "extra", unit: "grunt"}
	f.orch.RegisterUnit(extra)
	assert.Equal(t, 2, f.orch.Alive())

	f.spawner.killAll()
	f.orch.Tick(0)
	assert.Equal(t, WaveActive, f.orch.State())

	extra.kill()
	f.orch.Tick(0)
	assert.Equal(t, CampaignVictoryPending, f.orch.State())
}

func TestEvents(t *testing.T) {
	f := newFixture(t, endlessSettings(0))

	var mu sync.Mutex
	var seen []string
	record := func(e dispatcher.Event) error {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
		return nil
	}
	for _, typ := range []string{core.EventWaveStarted, core.EventWaveCompleted, core.EventWaveCooldownStarted, core.EventUnitKilled} {
		f.events.Subscribe(typ, record)
	}

	var cooldown core.WaveCooldownStarted
	f.events.Subscribe(core.EventWaveCooldownStarted, func(e dispatcher.Event) error {
		cooldown = e.Payload.(core.WaveCooldownStarted)
		return nil
	})

	require.NoError(t, f.orch.Start())
	f.orch.Tick(0)
	f.spawner.units[0].kill()
	f.orch.Tick(0)

	assert.Equal(t, []string{
		core.EventWaveStarted,
		core.EventUnitKilled,
		core.EventWaveCompleted,
		core.EventWaveCooldownStarted,
	}, seen)
	assert.Equal(t, core.WaveCooldownStarted{Current: 0, Next: 1, Duration: 5 * time.Second}, cooldown)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, campaignSettings())
	require.NoError(t, f.orch.Start())

	s := f.orch.Status()
	assert.Equal(t, WaveActive, s.State)
	assert.Equal(t, core.ModeCampaign, s.Mode)
	assert.Equal(t, "Opening", s.WaveName)
	assert.Equal(t, 5, s.Alive)
	assert.Equal(t, 2, s.TotalWaves)
	assert.Equal(t, 1.0, s.TimeScale)
}

func TestClose(t *testing.T) {
	f := newFixture(t, campaignSettings())
	require.NoError(t, f.orch.Start())
	f.orch.Close()
	f.orch.Tick(time.Second)
	assert.Empty(t, f.spawner.units)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "wave_active", WaveActive.String())
	assert.Equal(t, "unknown", State(99).String())
}
