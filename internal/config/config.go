// Package config loads the pool's construction parameters from a YAML
// file, adapting the teacher's LoadConfig/viper pairing to the buffer
// pool's own settings.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for a standalone pagecache
// process: how big the pool is, how it evicts, and where pages live on
// disk.
type Config struct {
	Buffer struct {
		PoolSize   int `mapstructure:"pool_size"`
		ReplacerK  int `mapstructure:"replacer_k"`
		BucketSize int `mapstructure:"bucket_size"`
	} `mapstructure:"buffer"`

	Storage struct {
		PageSize int    `mapstructure:"page_size"`
		DataDir  string `mapstructure:"data_dir"`
	} `mapstructure:"storage"`
}

// DefaultConfig returns the zero-config fallback used by tests and by
// callers that embed the pool without a config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Buffer.PoolSize = 128
	cfg.Buffer.ReplacerK = 2
	cfg.Buffer.BucketSize = 4
	cfg.Storage.PageSize = 8 * 1024
	cfg.Storage.DataDir = "."
	return cfg
}

// LoadConfig reads a YAML config file at path and unmarshals it into a
// Config, starting from DefaultConfig's values for anything unset.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	cfg := DefaultConfig()
	v.SetDefault("buffer.pool_size", cfg.Buffer.PoolSize)
	v.SetDefault("buffer.replacer_k", cfg.Buffer.ReplacerK)
	v.SetDefault("buffer.bucket_size", cfg.Buffer.BucketSize)
	v.SetDefault("storage.page_size", cfg.Storage.PageSize)
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
