// internal/storage/storage.go
package storage

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/cluckworks/wavedirector/pkg/core"
)

// DefaultCacheID is used when a campaign does not name its cache.
const DefaultCacheID = "default"

// ErrNotFound is returned by backends when no cache exists for an id.
var ErrNotFound = core.ErrCacheNotFound

// Backend is the interface all wave cache implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	Load(id string) (*core.CampaignWaveCacheFile, error)
	Save(id string, file *core.CampaignWaveCacheFile) error
	Delete(id string) error
}

// NormalizeID maps an empty or blank cache id to DefaultCacheID.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultCacheID
	}
	return id
}

// Validate reports whether file can stand in for a freshly generated
// campaign of targetCount waves built by generator version.
func Validate(file *core.CampaignWaveCacheFile, targetCount int, version string) bool {
	if file == nil {
		return false
	}
	return file.WaveCount == targetCount && file.CacheVersion == version
}

// Store applies the non-fatal cache policy on top of a Backend: nothing
// it does ever fails the caller, problems are logged and treated as a miss.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore wraps backend. A nil backend yields a store that never hits.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Load returns the cached file for id, or nil when it is missing, unreadable
// or malformed.
func (s *Store) Load(id string) *core.CampaignWaveCacheFile {
	if s == nil || s.backend == nil {
		return nil
	}
	id = NormalizeID(id)

	file, err := s.backend.Load(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("No wave cache found", "cacheId", id)
		} else {
			s.logger.Warn("Failed to load wave cache", "cacheId", id, "error", err)
		}
		return nil
	}
	if file == nil {
		return nil
	}
	if file.WaveCount != len(file.Waves) {
		s.logger.Warn("Wave cache header disagrees with its records",
			"cacheId", id, "waveCount", file.WaveCount, "records", len(file.Waves))
	}
	return file
}

// Save persists file under id. Failures are logged only.
func (s *Store) Save(id string, file *core.CampaignWaveCacheFile) {
	if s == nil || s.backend == nil || file == nil {
		return
	}
	id = NormalizeID(id)

	if err := s.backend.Save(id, file); err != nil {
		s.logger.Warn("Failed to save wave cache", "cacheId", id, "error", err)
		return
	}
	s.logger.Debug("Saved wave cache", "cacheId", id, "waveCount", file.WaveCount)
}

// Delete removes the cache for id. A missing cache is not an error.
func (s *Store) Delete(id string) {
	if s == nil || s.backend == nil {
		return
	}
	id = NormalizeID(id)

	if err := s.backend.Delete(id); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("Failed to delete wave cache", "cacheId", id, "error", err)
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
