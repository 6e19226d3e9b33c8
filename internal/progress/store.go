package progress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cluckworks/wavedirector/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a profile has never been saved.
var ErrNotFound = errors.New("progress not found")

// Store persists PlayerProgress rows keyed by profile id.
type Store interface {
	Load(profileID string) (model.PlayerProgress, error)
	Save(p model.PlayerProgress) error
}

// GormStore keeps progress in the player_progress table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the player_progress table and returns a store on db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("no database connection")
	}
	if err := db.AutoMigrate(&model.PlayerProgress{}); err != nil {
		return nil, fmt.Errorf("failed to migrate player_progress: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Load(profileID string) (model.PlayerProgress, error) {
	var p model.PlayerProgress
	err := s.db.Where("profile_id = ?", profileID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PlayerProgress{}, ErrNotFound
	}
	if err != nil {
		return model.PlayerProgress{}, fmt.Errorf("failed to query progress: %w", err)
	}
	return p, nil
}

func (s *GormStore) Save(p model.PlayerProgress) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		UpdateAll: true,
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// MemoryStore keeps progress for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]model.PlayerProgress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]model.PlayerProgress)}
}

func (s *MemoryStore) Load(profileID string) (model.PlayerProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[profileID]
	if !ok {
		return model.PlayerProgress{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Save(p model.PlayerProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.ProfileID] = p
	return nil
}
