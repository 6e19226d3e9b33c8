package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cluckworks/wavedirector/internal/orchestrator"
	"github.com/cluckworks/wavedirector/internal/session"
	"github.com/cluckworks/wavedirector/pkg/streaming"
	"gorm.io/gorm"
)

// StatusSource reports the orchestrator status.
type StatusSource interface {
	Status() orchestrator.Status
}

// CoinSource reports the coins earned this session.
type CoinSource interface {
	SessionCoins() int
}

// Sender forwards a snapshot to a remote listener.
type Sender interface {
	Send(msgType string, payload any) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Orchestrator    StatusSource
	Coins           CoinSource
	Session         *session.Context
	DB              *gorm.DB
	IsDatabaseValid func() bool
	Stream          Sender
	StatusPath      string
	Interval        time.Duration
	Logger          *slog.Logger
}

// Snapshot is one periodic status report.
type Snapshot struct {
	Time         time.Time `json:"time"`
	SessionID    string    `json:"sessionId,omitempty"`
	State        string    `json:"state"`
	Mode         string    `json:"mode"`
	WaveIndex    int       `json:"waveIndex"`
	WaveName     string    `json:"waveName,omitempty"`
	TotalWaves   int       `json:"totalWaves"`
	PendingIndex int       `json:"pendingIndex"`
	Alive        int       `json:"alive"`
	Processed    int       `json:"processed"`
	TimeScale    float64   `json:"timeScale"`
	SessionCoins int       `json:"sessionCoins"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	runs *runRecorder
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.IsDatabaseValid == nil {
		deps.IsDatabaseValid = func() bool { return deps.DB != nil }
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus builds the current snapshot.
func (s *Service) GetStatus() Snapshot {
	snap := Snapshot{Time: time.Now(), WaveIndex: -1, PendingIndex: -1}
	if s.deps.Orchestrator != nil {
		st := s.deps.Orchestrator.Status()
		snap.State = st.State.String()
		snap.Mode = string(st.Mode)
		snap.WaveIndex = st.WaveIndex
		snap.WaveName = st.WaveName
		snap.TotalWaves = st.TotalWaves
		snap.PendingIndex = st.PendingIndex
		snap.Alive = st.Alive
		snap.Processed = st.Processed
		snap.TimeScale = st.TimeScale
	}
	if s.deps.Coins != nil {
		snap.SessionCoins = s.deps.Coins.SessionCoins()
	}
	if s.deps.Session != nil {
		snap.SessionID = s.deps.Session.ID()
	}
	return snap
}

// WriteStatus replaces the status file with snap.
func (s *Service) WriteStatus(snap Snapshot) error {
	if s.deps.StatusPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

func (s *Service) report() {
	snap := s.GetStatus()
	logger := s.deps.Logger

	if err := s.WriteStatus(snap); err != nil {
		logger.Error("Error writing status file", "error", err)
	}
	if s.deps.Stream != nil {
		if err := s.deps.Stream.Send(streaming.TypeStatusSnapshot, snap); err != nil {
			logger.Warn("Error streaming status", "error", err)
		}
	}
	logger.Debug("Status",
		"state", snap.State,
		"wave", snap.WaveIndex,
		"alive", snap.Alive,
		"coins", snap.SessionCoins)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				// final report so the file reflects shutdown state
				s.report()
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the last report.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
