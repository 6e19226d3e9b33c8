// internal/storage/gorm/gorm.go
package gormstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cluckworks/wavedirector/internal/model"
	"github.com/cluckworks/wavedirector/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM cache backend
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend stores wave caches as rows of the wave_caches table. It works on
// any dialect gorm supports; the manager decides between Postgres and SQLite.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM cache backend
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init migrates the wave_caches table.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection")
	}
	if err := b.deps.DB.AutoMigrate(&model.WaveCache{}); err != nil {
		return fmt.Errorf("failed to migrate wave_caches: %w", err)
	}
	return nil
}

// Close is a no-op; the database manager owns the connection.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) Load(id string) (*core.CampaignWaveCacheFile, error) {
	var row model.WaveCache
	err := b.deps.DB.Where("cache_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrCacheNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wave cache: %w", err)
	}

	var out core.CampaignWaveCacheFile
	if err := json.Unmarshal(row.Payload, &out); err != nil {
		return nil, fmt.Errorf("failed to decode wave cache payload: %w", err)
	}
	if row.CacheVersion != out.CacheVersion || row.WaveCount != out.WaveCount {
		b.deps.Logger.Warn("Wave cache columns disagree with payload",
			"cacheId", id,
			"columnVersion", row.CacheVersion,
			"payloadVersion", out.CacheVersion)
	}
	return &out, nil
}

func (b *Backend) Save(id string, data *core.CampaignWaveCacheFile) error {
	if data == nil {
		return fmt.Errorf("nil cache file")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode wave cache: %w", err)
	}

	row := model.WaveCache{
		CacheID:      id,
		CacheVersion: data.CacheVersion,
		WaveCount:    data.WaveCount,
		Payload:      datatypes.JSON(payload),
	}
	err = b.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert wave cache: %w", err)
	}
	return nil
}

func (b *Backend) Delete(id string) error {
	res := b.deps.DB.Where("cache_id = ?", id).Delete(&model.WaveCache{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete wave cache: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrCacheNotFound
	}
	return nil
}
