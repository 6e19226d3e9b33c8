// internal/storage/file/file.go
package file

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/pkg/core"
)

const filePrefix = "campaign_waves_"

// Backend stores each campaign cache as a JSON document on disk.
type Backend struct {
	cfg config.FileConfig
	mu  sync.Mutex
}

// New creates a new file backend
func New(cfg config.FileConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init ensures the cache directory exists.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.dir(), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

// Path returns the file used for id under the current compression setting.
func (b *Backend) Path(id string) string {
	return b.path(id, b.cfg.Compress)
}

func (b *Backend) path(id string, compress bool) string {
	name := filePrefix + sanitize(id) + ".json"
	if compress {
		name += ".gz"
	}
	return filepath.Join(b.dir(), name)
}

func (b *Backend) dir() string {
	if b.cfg.Dir == "" {
		return "."
	}
	return b.cfg.Dir
}

// Load reads the cache for id. The configured format is tried first and the
// other one second so toggling compression keeps existing caches.
func (b *Backend) Load(id string) (*core.CampaignWaveCacheFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, compress := range []bool{b.cfg.Compress, !b.cfg.Compress} {
		out, err := readFile(b.path(id, compress), compress)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return out, err
	}
	return nil, core.ErrCacheNotFound
}

// Save writes the cache for id, replacing any previous file.
func (b *Backend) Save(id string, data *core.CampaignWaveCacheFile) error {
	if data == nil {
		return fmt.Errorf("nil cache file")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(b.dir(), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	target := b.path(id, b.cfg.Compress)
	tmp := target + ".tmp"
	if err := writeFile(tmp, data, b.cfg.Compress); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}

	// drop the copy in the other format so Load cannot pick up a stale one
	_ = os.Remove(b.path(id, !b.cfg.Compress))
	return nil
}

// Delete removes both formats of the cache for id.
func (b *Backend) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for _, compress := range []bool{false, true} {
		err := os.Remove(b.path(id, compress))
		switch {
		case err == nil:
			found = true
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
	}
	if !found {
		return core.ErrCacheNotFound
	}
	return nil
}

func readFile(path string, compressed bool) (*core.CampaignWaveCacheFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var out core.CampaignWaveCacheFile
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &out, nil
}

func writeFile(path string, data *core.CampaignWaveCacheFile, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if !compress {
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

func sanitize(id string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "..", "_")
	return r.Replace(id)
}
