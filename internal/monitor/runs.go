package monitor

import (
	"sync"
	"time"

	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/internal/model"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// runRecorder pairs wave start and completion events into WaveRun rows.
type runRecorder struct {
	mu      sync.Mutex
	open    *model.WaveRun
	written int
}

// Follow records a wave_runs row for every completed wave. It is a no-op
// without a valid database.
func (s *Service) Follow(d *dispatcher.Dispatcher) {
	s.runs = &runRecorder{}

	d.Subscribe(core.EventWaveStarted, func(e dispatcher.Event) error {
		p, ok := e.Payload.(core.WaveStarted)
		if !ok {
			return nil
		}
		run := &model.WaveRun{
			WaveIndex: p.Index,
			WaveName:  p.Name,
			Units:     p.Units,
			StartedAt: e.Timestamp,
		}
		if s.deps.Session != nil {
			run.SessionID = s.deps.Session.ID()
			run.Mode = string(s.deps.Session.Mode())
		}
		s.runs.mu.Lock()
		s.runs.open = run
		s.runs.mu.Unlock()
		return nil
	}, dispatcher.Named("monitor.wave_started"))

	d.Subscribe(core.EventWaveCompleted, func(e dispatcher.Event) error {
		p, ok := e.Payload.(core.WaveCompleted)
		if !ok {
			return nil
		}
		s.runs.mu.Lock()
		run := s.runs.open
		s.runs.open = nil
		s.runs.mu.Unlock()

		if run == nil || run.WaveIndex != p.Index {
			return nil
		}
		run.RewardCoins = p.Reward
		run.CompletedAt = e.Timestamp
		if run.CompletedAt.IsZero() {
			run.CompletedAt = time.Now()
		}
		return s.saveRun(run)
	}, dispatcher.Named("monitor.wave_completed"))
}

func (s *Service) saveRun(run *model.WaveRun) error {
	if s.deps.DB == nil || !s.deps.IsDatabaseValid() {
		return nil
	}
	if err := s.deps.DB.Create(run).Error; err != nil {
		s.deps.Logger.Error("Error writing wave run", "wave", run.WaveIndex, "error", err)
		return err
	}
	s.runs.mu.Lock()
	s.runs.written++
	s.runs.mu.Unlock()
	return nil
}

// RunsWritten returns how many wave runs were stored.
func (s *Service) RunsWritten() int {
	if s.runs == nil {
		return 0
	}
	s.runs.mu.Lock()
	defer s.runs.mu.Unlock()
	return s.runs.written
}
