package database

import (
	"path/filepath"
	"testing"

	"github.com/cluckworks/wavedirector/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLiteFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.type", "sqlite")

	path := filepath.Join(t.TempDir(), "waves.db")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.FileExists(t, path)
}

func TestConnect_PostgresFallsBackToSQLite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.type", "postgres")
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "fallback.db"))
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestSetup_MigratesModels(t *testing.T) {
	t.Cleanup(viper.Reset)

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "setup.db"))
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Setup())
	for _, tbl := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(tbl), "%T not migrated", tbl)
	}

	var info model.DirectorInfo
	require.NoError(t, m.DB.First(&info).Error)
	assert.Equal(t, SchemaVersion, info.SchemaVersion)

	// second setup must not duplicate the info row
	require.NoError(t, m.Setup())
	var count int64
	m.DB.Model(&model.DirectorInfo{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}
