package database

import (
	"path/filepath"
	"testing"
	"time"

	"trade-copier-go/internal/config"
	"trade-copier-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildDSN(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		dsn := BuildDSN(config.Database{DSN: "copier.db", BusyTimeoutMs: 5000})
		assert.Contains(t, dsn, "copier.db?")
		assert.Contains(t, dsn, "_foreign_keys=on")
		assert.Contains(t, dsn, "_txlock=immediate")
		assert.Contains(t, dsn, "_busy_timeout=5000")
		assert.Contains(t, dsn, "_journal_mode=WAL")
	})

	t.Run("MemoryKeepsExistingOptions", func(t *testing.T) {
		dsn := BuildDSN(config.Database{DSN: "file::memory:?_txlock=deferred"})
		assert.Contains(t, dsn, "_txlock=deferred")
		assert.NotContains(t, dsn, "_txlock=immediate")
		assert.NotContains(t, dsn, "_journal_mode")
		assert.Contains(t, dsn, "&_foreign_keys=on")
	})
}

func TestNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copier.db")
	cfg := config.Database{DSN: path, MaxOpenConns: 2, MaxIdleConns: 2, BusyTimeoutMs: 1000}

	db, err := NewDatabase(cfg, zap.NewNop())
	require.NoError(t, err)

	for _, table := range []string{"master_trades", "slave_trades", "trade_closures"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	enabled, err := ForeignKeysEnabled(db)
	require.NoError(t, err)
	assert.True(t, enabled)

	// A journal row must reference an existing trade.
	err = db.Omit("MasterTrade").Create(&models.SlaveTrade{MasterTradeID: 999, SlaveAccountID: 1, Status: models.StatusOpen}).Error
	assert.Error(t, err)

	// Reopening keeps data.
	now := models.NewTimestamp(time.Now())
	require.NoError(t, db.Create(&models.Trade{
		MasterAccountID: 1, Symbol: "EURUSD", TradeType: "buy", Volume: 1,
		Status: models.StatusOpen, Revision: 1, CreatedAt: now, UpdatedAt: now,
	}).Error)
	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())

	db, err = NewDatabase(cfg, zap.NewNop())
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.Trade{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
