package internal

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type RowStoreConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Mode          string `mapstructure:"mode"`
		Path          string `mapstructure:"path"`
		BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
	} `mapstructure:"storage"`

	Engine struct {
		ConflictRetries int `mapstructure:"conflict_retries"`
		TableCacheSize  int `mapstructure:"table_cache_size"`
	} `mapstructure:"engine"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "rowstore")
	v.SetDefault("storage.mode", StorageMemory)
	v.SetDefault("storage.path", "rowstore.sqlite")
	v.SetDefault("storage.busy_timeout_ms", 5000)
	v.SetDefault("engine.conflict_retries", 3)
	v.SetDefault("engine.table_cache_size", 16)
	v.SetDefault("log.level", "info")
}

// DefaultConfig returns the configuration used when no file is given:
// defaults plus ROWSTORE_* environment overrides.
func DefaultConfig() (*RowStoreConfig, error) {
	return LoadConfig("")
}

// LoadConfig reads the YAML file at path, if any, over the defaults.
// ROWSTORE_* environment variables override both, e.g.
// ROWSTORE_STORAGE_MODE=sqlite.
func LoadConfig(path string) (*RowStoreConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("rowstore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg RowStoreConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RowStoreConfig) Validate() error {
	switch c.Storage.Mode {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required in %s mode", StorageSQLite)
		}
	default:
		return fmt.Errorf("config: unknown storage.mode %q", c.Storage.Mode)
	}
	if c.Engine.ConflictRetries < 0 {
		return fmt.Errorf("config: engine.conflict_retries must be >= 0, got %d", c.Engine.ConflictRetries)
	}
	if c.Engine.TableCacheSize < 0 {
		return fmt.Errorf("config: engine.table_cache_size must be >= 0, got %d", c.Engine.TableCacheSize)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses log.level (debug, info, warn, error).
func (c *RowStoreConfig) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}
