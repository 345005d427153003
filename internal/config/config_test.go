package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 128, cfg.Buffer.PoolSize)
	require.Equal(t, 2, cfg.Buffer.ReplacerK)
	require.Equal(t, 4, cfg.Buffer.BucketSize)
	require.Equal(t, 8*1024, cfg.Storage.PageSize)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pagecache.yaml")
	yaml := []byte(`
buffer:
  pool_size: 64
  replacer_k: 3
storage:
  data_dir: /var/lib/pagecache
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Buffer.PoolSize)
	require.Equal(t, 3, cfg.Buffer.ReplacerK)
	require.Equal(t, 4, cfg.Buffer.BucketSize, "unset keys keep their default")
	require.Equal(t, "/var/lib/pagecache", cfg.Storage.DataDir)
}

func TestLoadConfig_MissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
