// Package orchestrator runs the wave state machine: it starts waves, feeds
// their units to the spawner, and moves to cooldown or campaign victory when
// the last unit dies.
//
// An Orchestrator belongs to the goroutine that calls Tick. Other goroutines
// hand work to it with Post; unit deaths reported from any goroutine are
// queued the same way and handled on the next Tick.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/internal/generator"
	"github.com/cluckworks/wavedirector/internal/scheduler"
	"github.com/cluckworks/wavedirector/internal/tracker"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// ErrNoWaves is returned by Start when the configured mode has no wave that
// can be started.
var ErrNoWaves = errors.New("no startable wave")

// Dependencies are the collaborators of an Orchestrator. Health, Progress,
// Victory and Events are optional.
type Dependencies struct {
	Generator *generator.Generator
	Economy   Economy
	Spawner   Spawner
	Health    PlayerHealth
	Progress  ProgressService
	Victory   VictoryUI
	Events    *dispatcher.Dispatcher
	// Scheduler is created when nil.
	Scheduler *scheduler.Scheduler
	Logger    *slog.Logger
}

// Settings configure one orchestrator run.
type Settings struct {
	Mode     core.WaveMode
	Campaign *generator.CampaignSettings
	Endless  *generator.EndlessSettings

	// StartIndex is the first endless wave, and the first campaign wave
	// when no progress service is attached.
	StartIndex int

	InterWaveCooldown     time.Duration
	CooldownHealAmount    float64
	VictorySlowDuration   time.Duration
	VictoryResumeDuration time.Duration
}

// DefaultSettings returns campaign settings with the stock timings.
func DefaultSettings() Settings {
	return Settings{
		Mode:                  core.ModeCampaign,
		InterWaveCooldown:     5 * time.Second,
		CooldownHealAmount:    25,
		VictorySlowDuration:   500 * time.Millisecond,
		VictoryResumeDuration: 500 * time.Millisecond,
	}
}

type Orchestrator struct {
	deps     Dependencies
	settings Settings
	logger   *slog.Logger

	sched   *scheduler.Scheduler
	tracker *tracker.Tracker

	waves   []*core.WaveDefinition
	endless *generator.EndlessSettings

	state       State
	current     int
	currentWave *core.WaveDefinition
	pending     int
	epoch       uint64
	closed      bool

	status atomic.Pointer[Status]
}

// New builds the campaign wave list (through the generator and its cache)
// and returns an idle orchestrator.
func New(deps Dependencies, settings Settings) (*Orchestrator, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("orchestrator: generator is required")
	}
	if deps.Spawner == nil {
		return nil, fmt.Errorf("orchestrator: spawner is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.New(deps.Logger)
	}
	settings.Mode = core.ParseWaveMode(string(settings.Mode))

	o := &Orchestrator{
		deps:     deps,
		settings: settings,
		logger:   deps.Logger.With("component", "orchestrator"),
		sched:    deps.Scheduler,
		current:  -1,
		pending:  -1,
	}
	o.tracker = tracker.New(tracker.Callbacks{
		OnKill: func(u core.Unit, epoch uint64) {
			o.sched.Post(func() { o.handleKill(u, epoch) })
		},
		OnCompleted: func(epoch uint64) {
			o.sched.Post(func() { o.handleCompleted(epoch) })
		},
	}, o.logger)

	switch settings.Mode {
	case core.ModeEndless:
		if settings.Endless != nil {
			endless := *settings.Endless
			o.endless = &endless
		} else {
			o.logger.Warn("Endless mode selected without endless settings")
		}
	default:
		if settings.Campaign != nil {
			o.waves = deps.Generator.Campaign(*settings.Campaign)
		}
		if len(o.waves) == 0 {
			o.logger.Warn("Campaign has no waves")
		}
	}

	o.refreshStatus()
	return o, nil
}

// Start begins the configured start wave. Campaigns resume from the
// progress service, clamped to the wave list.
func (o *Orchestrator) Start() error {
	defer o.refreshStatus()

	index := o.settings.StartIndex
	if o.settings.Mode == core.ModeCampaign {
		if len(o.waves) == 0 {
			return fmt.Errorf("campaign: %w", ErrNoWaves)
		}
		if o.deps.Progress != nil {
			index = o.deps.Progress.CampaignStartWave()
		}
		index = min(max(index, 0), len(o.waves)-1)
	}

	if !o.startWave(index) {
		return fmt.Errorf("%s wave %d: %w", o.settings.Mode, index, ErrNoWaves)
	}
	return nil
}

// CanStartWave reports whether index names a wave in the current mode.
func (o *Orchestrator) CanStartWave(index int) bool {
	if index < 0 {
		return false
	}
	if o.settings.Mode == core.ModeCampaign {
		return index < len(o.waves)
	}
	if o.endless == nil {
		return false
	}
	if o.endless.MaxGeneratedWaves > 0 && index >= o.endless.MaxGeneratedWaves {
		return false
	}
	return len(o.endless.Pool) > 0
}

// StartWave starts wave index, abandoning any wave in progress. Invalid
// indices are logged and ignored.
func (o *Orchestrator) StartWave(index int) {
	o.startWave(index)
	o.refreshStatus()
}

// ContinueAfterVictory resumes a campaign after the victory menu.
func (o *Orchestrator) ContinueAfterVictory() {
	o.continueAfterVictory()
	o.refreshStatus()
}

// RegisterUnit counts a unit spawned outside the wave sequence towards the
// current wave. Safe for concurrent use.
func (o *Orchestrator) RegisterUnit(u core.Unit) {
	o.tracker.Register(u)
}

// Tick advances routines by real time dt.
func (o *Orchestrator) Tick(dt time.Duration) {
	if o.closed {
		return
	}
	o.sched.Advance(dt)
	o.refreshStatus()
}

// Post queues fn to run on the orchestrator goroutine at the next Tick.
// Safe for concurrent use.
func (o *Orchestrator) Post(fn func()) {
	o.sched.Post(fn)
}

// Close stops every routine. Later Ticks do nothing.
func (o *Orchestrator) Close() {
	if o.closed {
		return
	}
	o.closed = true
	o.sched.CancelAll()
	o.logger.Debug("Orchestrator closed")
}

func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) CurrentWaveIndex() int {
	return o.current
}

func (o *Orchestrator) CurrentWave() *core.WaveDefinition {
	return o.currentWave
}

// PendingWaveIndex returns the campaign wave queued behind the victory
// menu, or -1.
func (o *Orchestrator) PendingWaveIndex() int {
	return o.pending
}

// TotalWaveCount returns the campaign length, the endless cap, or -1 for an
// uncapped endless run.
func (o *Orchestrator) TotalWaveCount() int {
	if o.settings.Mode == core.ModeEndless {
		if o.endless != nil && o.endless.MaxGeneratedWaves > 0 {
			return o.endless.MaxGeneratedWaves
		}
		return -1
	}
	return len(o.waves)
}

// Waves returns the campaign wave list.
func (o *Orchestrator) Waves() []*core.WaveDefinition {
	return o.waves
}

func (o *Orchestrator) Mode() core.WaveMode {
	return o.settings.Mode
}

func (o *Orchestrator) TimeScale() float64 {
	return o.sched.TimeScale()
}

// Alive returns the number of units the current wave still waits for.
func (o *Orchestrator) Alive() int {
	return o.tracker.Alive()
}

// Status returns the snapshot taken after the last call into the
// orchestrator. Safe for concurrent use.
func (o *Orchestrator) Status() Status {
	if s := o.status.Load(); s != nil {
		return *s
	}
	return Status{}
}

func (o *Orchestrator) refreshStatus() {
	s := &Status{
		State:        o.state,
		Mode:         o.settings.Mode,
		WaveIndex:    o.current,
		TotalWaves:   o.TotalWaveCount(),
		PendingIndex: o.pending,
		Alive:        o.tracker.Alive(),
		Processed:    o.tracker.Processed(),
		TimeScale:    o.sched.TimeScale(),
		UpdatedAt:    time.Now(),
	}
	if o.currentWave != nil {
		s.WaveName = o.currentWave.Name
	}
	o.status.Store(s)
}

func (o *Orchestrator) setState(next State) {
	if next == o.state {
		return
	}
	prev := o.state
	o.state = next
	o.logger.Debug("State changed", "from", prev.String(), "to", next.String())
	o.publish(core.EventStateChanged, core.StateChanged{From: prev.String(), To: next.String()})
}

func (o *Orchestrator) publish(eventType string, payload any) {
	if o.deps.Events == nil {
		return
	}
	if err := o.deps.Events.Emit(eventType, payload); err != nil {
		o.logger.Warn("Event delivery failed", "type", eventType, "error", err)
	}
}
