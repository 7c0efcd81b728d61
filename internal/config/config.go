package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// EnvPrefix prefixes environment overrides, e.g. MDFLUIDS_FLUID_ROUND_DECIMALS.
const EnvPrefix = "MDFLUIDS"

// Config represents the mdfluids configuration
type Config struct {
	Backend    BackendConfig    `mapstructure:"backend"`
	Fluid      FluidConfig      `mapstructure:"fluid"`
	RootSearch RootSearchConfig `mapstructure:"root_search"`
	Archive    StoreConfig      `mapstructure:"archive"`
	Cache      StoreConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
}

// BackendConfig names the primary/reference backend and its install path.
type BackendConfig struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// FluidConfig holds per-fluid defaults.
type FluidConfig struct {
	// RoundDecimals is the output precision; negative disables rounding.
	RoundDecimals int `mapstructure:"round_decimals"`
}

// RootSearchConfig bounds the two-phase quality search.
type RootSearchConfig struct {
	Tolerance     float64 `mapstructure:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// StoreConfig addresses a storage backend.
type StoreConfig struct {
	Driver string        `mapstructure:"driver"`
	DSN    string        `mapstructure:"dsn"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Encoding    string `mapstructure:"encoding"`
}

// CacheDisabled is the cache driver that turns reference caching off.
const CacheDisabled = "none"

var (
	archiveDrivers = []string{
		persistence.DriverMemory, persistence.DriverSQLite, persistence.DriverPostgres,
		persistence.DriverRedis, persistence.DriverMongo,
	}
	cacheDrivers = []string{
		CacheDisabled, persistence.DriverMemory, persistence.DriverSQLite,
		persistence.DriverPostgres, persistence.DriverRedis,
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.name", "REFPROP")
	v.SetDefault("backend.path", "")
	v.SetDefault("fluid.round_decimals", 6)
	v.SetDefault("root_search.tolerance", api.DefaultRootSearchPolicy().Tolerance)
	v.SetDefault("root_search.max_iterations", api.DefaultRootSearchPolicy().MaxIterations)
	v.SetDefault("archive.driver", persistence.DriverMemory)
	v.SetDefault("archive.dsn", "")
	v.SetDefault("archive.prefix", "")
	v.SetDefault("archive.ttl", 0)
	v.SetDefault("cache.driver", CacheDisabled)
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.prefix", "")
	v.SetDefault("cache.ttl", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.encoding", "")
}

// Load reads mdfluids.yaml from path, or from the working directory when
// path is empty. A missing file in the working directory means defaults;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mdfluids")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// validateConfig normalizes driver names and checks ranges.
func validateConfig(cfg *Config) error {
	cfg.Archive.Driver = strings.ToLower(strings.TrimSpace(cfg.Archive.Driver))
	cfg.Cache.Driver = strings.ToLower(strings.TrimSpace(cfg.Cache.Driver))

	if !oneOf(cfg.Archive.Driver, archiveDrivers) {
		return fmt.Errorf("archive.driver must be one of %s, got: %q", strings.Join(archiveDrivers, ", "), cfg.Archive.Driver)
	}
	if !oneOf(cfg.Cache.Driver, cacheDrivers) {
		return fmt.Errorf("cache.driver must be one of %s, got: %q", strings.Join(cacheDrivers, ", "), cfg.Cache.Driver)
	}
	if cfg.RootSearch.Tolerance <= 0 || cfg.RootSearch.Tolerance >= 1 {
		return fmt.Errorf("root_search.tolerance must be in (0, 1), got: %g", cfg.RootSearch.Tolerance)
	}
	if cfg.RootSearch.MaxIterations <= 0 {
		return fmt.Errorf("root_search.max_iterations must be positive, got: %d", cfg.RootSearch.MaxIterations)
	}
	if cfg.Fluid.RoundDecimals > 15 {
		return fmt.Errorf("fluid.round_decimals must be at most 15, got: %d", cfg.Fluid.RoundDecimals)
	}
	return nil
}

// RootSearchPolicy converts the root_search section.
func (c *Config) RootSearchPolicy() api.RootSearchPolicy {
	return api.RootSearchPolicy{
		Tolerance:     c.RootSearch.Tolerance,
		MaxIterations: c.RootSearch.MaxIterations,
	}
}

// ArchiveStore returns the archive store settings.
func (c *Config) ArchiveStore() persistence.StoreConfig {
	return c.Archive.store()
}

// CacheStore returns the reference cache settings, false when caching is
// disabled.
func (c *Config) CacheStore() (persistence.StoreConfig, bool) {
	if c.Cache.Driver == CacheDisabled {
		return persistence.StoreConfig{}, false
	}
	return c.Cache.store(), true
}

func (s StoreConfig) store() persistence.StoreConfig {
	return persistence.StoreConfig{
		Driver: s.Driver,
		DSN:    s.DSN,
		Prefix: s.Prefix,
		TTL:    s.TTL,
	}
}
