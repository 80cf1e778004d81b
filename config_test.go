package kestrel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("svc")

	assert.Equal(t, "svc", cfg.AppName)
	assert.Equal(t, "127.0.0.1:8080", cfg.Address)
	assert.Equal(t, 256, cfg.Backlog)
	assert.True(t, cfg.ReuseAddress)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
address = "0.0.0.0:9090"
backlog = 512
logLevel = "debug"
`), 0o644))

	cfg, err := Load(path, "svc")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Address)
	assert.Equal(t, 512, cfg.Backlog)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: 0.0.0.0:9091\nbacklog: 128\n"), 0o644))

	cfg, err := Load(path, "svc")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9091", cfg.Address)
	assert.Equal(t, 128, cfg.Backlog)
}

func TestLoadUnrecognizedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xyz")
	require.NoError(t, os.WriteFile(path, []byte("whatever"), 0o644))

	_, err := Load(path, "svc")
	assert.Error(t, err)
}

func TestConfigApplyLogLevelEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	cfg := DefaultConfig("svc")
	cfg.applyLogLevelEnv()

	assert.Equal(t, "error", cfg.LogLevel)
}
