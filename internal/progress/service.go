// Package progress holds the player's persistent state: coin balance,
// selected game mode and the campaign wave to resume from.
package progress

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/cluckworks/wavedirector/internal/model"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// Service is the process-wide progress holder. Every mutation is written
// through to the Store; write failures are logged and the in-memory state
// stays authoritative.
type Service struct {
	mu     sync.Mutex
	store  Store
	state  model.PlayerProgress
	logger *slog.Logger

	subs   map[int]func(int)
	nextID int
}

// NewService loads profileID from store. Unknown profiles start with
// startingBalance in campaign mode at wave 0.
func NewService(store Store, profileID string, startingBalance int, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("progress store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	state, err := store.Load(profileID)
	switch {
	case errors.Is(err, ErrNotFound):
		state = model.PlayerProgress{
			ProfileID: profileID,
			Balance:   max(0, startingBalance),
			Mode:      string(core.ModeCampaign),
		}
		if err := store.Save(state); err != nil {
			logger.Warn("Failed to create progress row", "profileId", profileID, "error", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load progress for %s: %w", profileID, err)
	}

	state.Balance = max(0, state.Balance)
	state.CampaignStartWave = max(0, state.CampaignStartWave)

	return &Service{
		store:  store,
		state:  state,
		logger: logger,
		subs:   make(map[int]func(int)),
	}, nil
}

// ProfileID returns the loaded profile.
func (s *Service) ProfileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ProfileID
}

// Balance returns the current coin balance.
func (s *Service) Balance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Balance
}

// AddCoins adds amount, saturating at math.MaxInt32. Non-positive amounts
// are ignored.
func (s *Service) AddCoins(amount int) {
	if amount <= 0 {
		return
	}

	s.mu.Lock()
	target := int64(s.state.Balance) + int64(amount)
	if target >= math.MaxInt32 {
		target = math.MaxInt32
	}
	s.state.Balance = int(target)
	balance := s.persistLocked()
	s.mu.Unlock()

	s.publish(balance)
}

// TrySpendCoins removes amount if the balance covers it.
func (s *Service) TrySpendCoins(amount int) bool {
	if amount <= 0 {
		return false
	}

	s.mu.Lock()
	if s.state.Balance < amount {
		s.mu.Unlock()
		return false
	}
	s.state.Balance -= amount
	balance := s.persistLocked()
	s.mu.Unlock()

	s.publish(balance)
	return true
}

// SubscribeBalance registers fn for balance changes.
func (s *Service) SubscribeBalance(fn func(balance int)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Mode returns the persisted game mode.
func (s *Service) Mode() core.WaveMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.ParseWaveMode(s.state.Mode)
}

// SetMode changes the game mode and persists it.
func (s *Service) SetMode(mode core.WaveMode) {
	s.mu.Lock()
	s.state.Mode = string(mode)
	s.persistLocked()
	s.mu.Unlock()
}

// CampaignStartWave returns the campaign wave to resume from.
func (s *Service) CampaignStartWave() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(0, s.state.CampaignStartWave)
}

// SaveCampaignProgress records completedIndex as finished; the next run
// resumes one wave later.
func (s *Service) SaveCampaignProgress(completedIndex int) {
	s.mu.Lock()
	s.state.CampaignStartWave = max(0, completedIndex+1)
	s.persistLocked()
	s.mu.Unlock()
}

// ResetCampaignProgress restarts the campaign from the first wave.
func (s *Service) ResetCampaignProgress() {
	s.mu.Lock()
	s.state.CampaignStartWave = 0
	s.persistLocked()
	s.mu.Unlock()
}

// Snapshot returns a copy of the stored state.
func (s *Service) Snapshot() model.PlayerProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) persistLocked() int {
	if err := s.store.Save(s.state); err != nil {
		s.logger.Warn("Failed to persist progress", "profileId", s.state.ProfileID, "error", err)
	}
	return s.state.Balance
}

func (s *Service) publish(balance int) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(int), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(balance)
	}
}
