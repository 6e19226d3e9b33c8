package progress

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/cluckworks/wavedirector/internal/economy"
	"github.com/cluckworks/wavedirector/internal/model"
	"github.com/cluckworks/wavedirector/pkg/core"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	_ economy.BalanceService = (*Service)(nil)
	_ Store                  = (*GormStore)(nil)
	_ Store                  = (*MemoryStore)(nil)
)

type brokenStore struct{ MemoryStore }

func (*brokenStore) Load(string) (model.PlayerProgress, error) {
	return model.PlayerProgress{}, errors.New("io error")
}

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "progress.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := NewGormStore(db)
	require.NoError(t, err)
	return store
}

func TestNewService_NewProfile(t *testing.T) {
	store := NewMemoryStore()
	svc, err := NewService(store, "p1", 40, nil)
	require.NoError(t, err)

	assert.Equal(t, "p1", svc.ProfileID())
	assert.Equal(t, 40, svc.Balance())
	assert.Equal(t, core.ModeCampaign, svc.Mode())
	assert.Equal(t, 0, svc.CampaignStartWave())

	saved, err := store.Load("p1")
	require.NoError(t, err)
	assert.Equal(t, 40, saved.Balance)
}

func TestNewService_LoadError(t *testing.T) {
	_, err := NewService(&brokenStore{}, "p1", 0, nil)
	assert.Error(t, err)

	_, err = NewService(nil, "p1", 0, nil)
	assert.Error(t, err)
}

func TestAddCoins(t *testing.T) {
	svc, err := NewService(NewMemoryStore(), "p", 0, nil)
	require.NoError(t, err)

	var seen []int
	unsub := svc.SubscribeBalance(func(b int) { seen = append(seen, b) })

	svc.AddCoins(10)
	svc.AddCoins(0)
	svc.AddCoins(-4)
	assert.Equal(t, 10, svc.Balance())
	assert.Equal(t, []int{10}, seen)

	unsub()
	unsub()
	svc.AddCoins(1)
	assert.Equal(t, []int{10}, seen)
}

func TestAddCoins_Saturates(t *testing.T) {
	svc, err := NewService(NewMemoryStore(), "p", math.MaxInt32-5, nil)
	require.NoError(t, err)

	svc.AddCoins(100)
	assert.Equal(t, math.MaxInt32, svc.Balance())
}

func TestTrySpendCoins(t *testing.T) {
	svc, err := NewService(NewMemoryStore(), "p", 30, nil)
	require.NoError(t, err)

	assert.False(t, svc.TrySpendCoins(0))
	assert.False(t, svc.TrySpendCoins(31))
	assert.True(t, svc.TrySpendCoins(30))
	assert.Equal(t, 0, svc.Balance())
}

func TestCampaignProgress(t *testing.T) {
	store := newGormStore(t)
	svc, err := NewService(store, "p", 0, nil)
	require.NoError(t, err)

	svc.SaveCampaignProgress(4)
	assert.Equal(t, 5, svc.CampaignStartWave())

	svc.SaveCampaignProgress(-7)
	assert.Equal(t, 0, svc.CampaignStartWave())

	svc.SaveCampaignProgress(2)
	svc.SetMode(core.ModeEndless)

	// a fresh service sees the persisted row
	again, err := NewService(store, "p", 999, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, again.CampaignStartWave())
	assert.Equal(t, core.ModeEndless, again.Mode())
	assert.Equal(t, 0, again.Balance())

	again.ResetCampaignProgress()
	assert.Equal(t, 0, again.Snapshot().CampaignStartWave)
}

func TestLedgerBoundToService(t *testing.T) {
	svc, err := NewService(NewMemoryStore(), "p", 100, nil)
	require.NoError(t, err)

	var totals []int
	ledger := economy.NewLedger(economy.DefaultRewardTable(), nil, func(t int) { totals = append(totals, t) }, nil)
	ledger.Bind(svc)
	defer ledger.Close()

	ledger.Award(25)
	assert.Equal(t, 125, svc.Balance())
	assert.Equal(t, 25, ledger.SessionCoins())

	require.True(t, svc.TrySpendCoins(110))
	assert.Equal(t, 0, ledger.SessionCoins())
	assert.Equal(t, 0, totals[len(totals)-1])
}
