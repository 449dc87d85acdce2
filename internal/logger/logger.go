package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap.Logger for the given level and format ("json" or
// "console"). A non-empty service is attached to every entry.
func NewLogger(level, format, service string) (*zap.Logger, error) {
	cfg, err := buildConfig(level, format, service)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

func buildConfig(level, format, service string) (zap.Config, error) {
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, err
	}

	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if service != "" {
		cfg.InitialFields = map[string]any{"service": service}
	}
	return cfg, nil
}
