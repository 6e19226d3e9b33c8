// internal/storage/memory/memory.go
package memory

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cluckworks/wavedirector/pkg/core"
)

// Backend keeps caches in memory. Files are stored encoded so callers can
// never alias a stored cache.
type Backend struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{files: make(map[string][]byte)}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) Load(id string) (*core.CampaignWaveCacheFile, error) {
	b.mu.RLock()
	raw, ok := b.files[id]
	b.mu.RUnlock()
	if !ok {
		return nil, core.ErrCacheNotFound
	}

	var out core.CampaignWaveCacheFile
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cache %q: %w", id, err)
	}
	return &out, nil
}

func (b *Backend) Save(id string, data *core.CampaignWaveCacheFile) error {
	if data == nil {
		return fmt.Errorf("nil cache file")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.files[id] = raw
	b.mu.Unlock()
	return nil
}

func (b *Backend) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.files[id]; !ok {
		return core.ErrCacheNotFound
	}
	delete(b.files, id)
	return nil
}

// PutRaw stores raw bytes under id, bypassing encoding.
func (b *Backend) PutRaw(id string, raw []byte) {
	b.mu.Lock()
	b.files[id] = append([]byte(nil), raw...)
	b.mu.Unlock()
}

// Len returns the number of stored caches.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.files)
}
