// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/storage/file"
	gormstorage "github.com/cluckworks/wavedirector/internal/storage/gorm"
	"github.com/cluckworks/wavedirector/internal/storage/memory"
	"gorm.io/gorm"
)

// Dependencies holds what the database-backed caches need.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// NewBackend creates a cache backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "", "file":
		return file.New(cfg.File), nil
	case "sqlite", "postgres":
		if deps.DB == nil {
			return nil, fmt.Errorf("%s backend requires a database connection", cfg.Type)
		}
		return gormstorage.New(gormstorage.Dependencies{DB: deps.DB, Logger: deps.Logger}), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
