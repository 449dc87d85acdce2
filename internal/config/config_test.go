package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "trade_copier.db", cfg.Database.DSN)
	assert.Equal(t, 5*time.Minute, cfg.Sync.RecencyWindow)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "trade-copier", cfg.Logger.Service)
	assert.Equal(t, 2*time.Second, cfg.Client.PollInterval)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  addr: "0.0.0.0:9000"
database:
  dsn: "from_file.db"
sync:
  recency_window: "0s"
logger:
  level: "debug"
  format: "json"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))

	t.Run("File", func(t *testing.T) {
		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
		assert.Equal(t, "from_file.db", cfg.Database.DSN)
		assert.Equal(t, time.Duration(0), cfg.Sync.RecencyWindow)
		assert.Equal(t, "json", cfg.Logger.Format)
	})

	t.Run("LegacyEnvNames", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "legacy.db")
		t.Setenv("SERVER_ADDR", "127.0.0.1:7070")
		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "legacy.db", cfg.Database.DSN)
		assert.Equal(t, "127.0.0.1:7070", cfg.Server.Addr)
	})

	t.Run("NestedEnv", func(t *testing.T) {
		t.Setenv("SYNC_RECENCY_WINDOW", "90s")
		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Sync.RecencyWindow)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   Server{Addr: ":8080"},
			Database: Database{DSN: "x.db", MaxOpenConns: 1, MaxIdleConns: 1},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Database.DSN = " "
	assert.ErrorContains(t, cfg.Validate(), "database.dsn")

	cfg = valid()
	cfg.Server.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "server.addr")

	cfg = valid()
	cfg.Database.MaxOpenConns = 0
	assert.ErrorContains(t, cfg.Validate(), "max_open_conns")

	cfg = valid()
	cfg.Sync.RecencyWindow = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "recency_window")
}
