package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Sync     Sync     `mapstructure:"sync"`
	Logger   Logger   `mapstructure:"logger"`
	Client   Client   `mapstructure:"client"`
}

// Server holds the configuration for the relay HTTP server.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN           string `mapstructure:"dsn"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
	MaxIdleConns  int    `mapstructure:"max_idle_conns"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// Sync holds the configuration for slave synchronization.
type Sync struct {
	// RecencyWindow bounds the trades considered by a sync call. Zero disables it.
	RecencyWindow time.Duration `mapstructure:"recency_window"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Service string `mapstructure:"service"`
}

// Client holds the configuration for copierctl.
type Client struct {
	BaseURL        string        `mapstructure:"base_url"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Variable names used by existing deployments
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("server.addr", "SERVER_ADDR")

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.dsn", "trade_copier.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.busy_timeout_ms", 5000)

	v.SetDefault("sync.recency_window", 5*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service", "trade-copier")

	v.SetDefault("client.base_url", "http://127.0.0.1:8080")
	v.SetDefault("client.rate_limit", 10)      // requests per second
	v.SetDefault("client.rate_limit_burst", 5) // burst size
	v.SetDefault("client.poll_interval", 2*time.Second)
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("invalid database.max_open_conns: %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("invalid database.max_idle_conns: %d", c.Database.MaxIdleConns)
	}
	if c.Sync.RecencyWindow < 0 {
		return fmt.Errorf("invalid sync.recency_window: %s", c.Sync.RecencyWindow)
	}
	return nil
}
