// Package logging builds the process zap logger from configuration and
// MDFLUIDS_LOG_* environment overrides.
package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gpbraun/mdfluids/internal/config"
)

const (
	EnvLogLevel       = "MDFLUIDS_LOG_LEVEL"
	EnvLogDevelopment = "MDFLUIDS_LOG_DEVELOPMENT"
	EnvLogEncoding    = "MDFLUIDS_LOG_ENCODING"
)

// levelDisabled sits above every zap level.
const levelDisabled = zapcore.FatalLevel + 1

var (
	configureOnce sync.Once
	configured    *zap.Logger
	configureErr  error
)

// Configure builds the logger once and installs it as the zap global.
// Later calls return the first result.
func Configure(cfg config.LogConfig) (*zap.Logger, error) {
	configureOnce.Do(func() {
		configured, configureErr = New(cfg)
		if configureErr == nil {
			zap.ReplaceGlobals(configured)
		}
	})
	return configured, configureErr
}

// New builds a logger without touching globals.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	applyEnvOverrides(&cfg)

	level, ok := parseLevel(cfg.Level)
	if !ok && strings.TrimSpace(cfg.Level) != "" {
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	if level == levelDisabled {
		return zap.NewNop(), nil
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch enc := strings.ToLower(strings.TrimSpace(cfg.Encoding)); enc {
	case "":
	case "json", "console":
		zc.Encoding = enc
	default:
		return nil, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}

	return zc.Build()
}

func applyEnvOverrides(cfg *config.LogConfig) {
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		if _, ok := parseLevel(raw); ok {
			cfg.Level = raw
		}
	}
	if v, ok := parseBool(os.Getenv(EnvLogDevelopment)); ok {
		cfg.Development = v
	}
	if raw := strings.TrimSpace(os.Getenv(EnvLogEncoding)); raw != "" {
		cfg.Encoding = raw
	}
}

func parseLevel(raw string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zapcore.InfoLevel, false
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return levelDisabled, true
	default:
		return zapcore.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
