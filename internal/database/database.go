package database

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"trade-copier-go/internal/config"
	"trade-copier-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabase opens the SQLite store, applies pool limits and migrates the schema.
// Writes run in BEGIN IMMEDIATE transactions so concurrent requests serialize.
func NewDatabase(cfg config.Database, log *zap.Logger) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	enabled, err := ForeignKeysEnabled(db)
	if err != nil {
		return nil, err
	}
	log.Info("Database ready",
		zap.String("dsn", cfg.DSN),
		zap.Bool("foreign_keys", enabled),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return db, nil
}

// AutoMigrate creates or updates the relay tables. Existing rows are kept.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Trade{}, &models.SlaveTrade{}, &models.TradeClosure{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// ForeignKeysEnabled reports the connection's foreign_keys pragma.
func ForeignKeysEnabled(db *gorm.DB) (bool, error) {
	var enabled bool
	if err := db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
		return false, fmt.Errorf("failed to check foreign keys: %w", err)
	}
	return enabled, nil
}

// BuildDSN appends the go-sqlite3 connection options the relay relies on,
// leaving any option already present in the configured DSN untouched.
func BuildDSN(cfg config.Database) string {
	dsn := cfg.DSN
	params := url.Values{}
	add := func(key, value string) {
		if !strings.Contains(dsn, key+"=") {
			params.Set(key, value)
		}
	}

	add("_foreign_keys", "on")
	add("_txlock", "immediate")
	if cfg.BusyTimeoutMs > 0 {
		add("_busy_timeout", strconv.Itoa(cfg.BusyTimeoutMs))
	}
	if !isMemory(dsn) {
		add("_journal_mode", "WAL")
	}

	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
