package main

import (
	"fmt"

	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/database"
	"github.com/cluckworks/wavedirector/internal/logging"
	"github.com/cluckworks/wavedirector/internal/progress"
	"github.com/cluckworks/wavedirector/internal/storage"
	"github.com/spf13/viper"
)

// openDatabase connects to the configured database and migrates the schema.
// A nil manager with a nil error means the run continues without one.
func openDatabase() (*database.Manager, error) {
	storageCfg := config.GetStorageConfig()
	economyCfg := config.GetEconomyConfig()

	needed := storageCfg.Type == "sqlite" || storageCfg.Type == "postgres" ||
		economyCfg.BalanceSource == "database"
	if !needed {
		return nil, nil
	}

	// storage.type postgres implies db.type postgres
	if storageCfg.Type == "postgres" {
		viper.Set("db.type", "postgres")
	}

	dbLog := logging.NewZerolog(LogFile, viper.GetString("logLevel"), "database")
	mgr := database.NewManager(dbLog, storageCfg.SQLite.Path)
	if err := mgr.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := mgr.Setup(); err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("setting up database: %w", err)
	}
	return mgr, nil
}

// openCacheStore builds the campaign wave cache store. A backend that
// fails to initialise degrades to a store that never hits.
func openCacheStore(db *database.Manager) *storage.Store {
	storageCfg := config.GetStorageConfig()
	logger := SlogManager.Component("storage")

	deps := storage.Dependencies{Logger: logger}
	if db != nil && db.IsValid {
		deps.DB = db.DB
	}

	backend, err := storage.NewBackend(storageCfg, deps)
	if err != nil {
		logger.Error("Failed to create cache backend", "type", storageCfg.Type, "error", err)
		return storage.NewStore(nil, logger)
	}
	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize cache backend", "type", storageCfg.Type, "error", err)
		return storage.NewStore(nil, logger)
	}
	logger.Info("Wave cache backend initialized", "type", storageCfg.Type)
	return storage.NewStore(backend, logger)
}

// openProgress returns the progress service for the configured profile,
// persisted in the database when one is available.
func openProgress(db *database.Manager) (*progress.Service, error) {
	var store progress.Store = progress.NewMemoryStore()
	if db != nil && db.IsValid {
		gormStore, err := progress.NewGormStore(db.DB)
		if err != nil {
			return nil, fmt.Errorf("opening progress store: %w", err)
		}
		store = gormStore
	}

	economyCfg := config.GetEconomyConfig()
	return progress.NewService(store, viper.GetString("profileId"), economyCfg.StartingBalance, SlogManager.Component("progress"))
}
