package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Address)
	require.Equal(t, 4096, cfg.Engine.ChunkSize)
	require.Equal(t, uint64(20230117), cfg.Engine.Seed)
	require.Equal(t, "info", cfg.Log.Level)
	require.Empty(t, cfg.Auth.APIKeyHash)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  address: 127.0.0.1:9090
engine:
  workers: 2
  chunk_size: 1000
  max_iterations: 100000
log:
  level: debug
  development: true
`), 0o600))

	t.Setenv("QUANT_ENGINE_SEED", "7")
	t.Setenv("QUANT_ENGINE_WORKERS", "3")

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
	require.Equal(t, 3, cfg.Engine.Workers)
	require.Equal(t, 1000, cfg.Engine.ChunkSize)
	require.Equal(t, 100000, cfg.Engine.MaxIterations)
	require.Equal(t, uint64(7), cfg.Engine.Seed)
	require.True(t, cfg.Log.Development)

	cfg, err = Load(dir)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("engine:\n  chunk_size: 0\n"), 0o600))
	_, err := Load(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("engine: [\n"), 0o600))
	_, err = Load(dir)
	require.Error(t, err)
}
