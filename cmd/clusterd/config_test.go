package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clusterd.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
addr = ":9090"
store = "s3://bucket/prefix"
log_format = "json"

[server]
default_k = 4
fit_timeout = "30s"

[resources]
max_concurrent_fits = 2
requests_per_second = 50.0

[engine]
seed = 7

[s3]
ddb_table = "pointers"
`)

	cfg, err := loadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "s3://bucket/prefix", cfg.Store)
	assert.Equal(t, 4, cfg.Server.DefaultK)
	assert.Equal(t, 30*time.Second, cfg.Server.FitTimeout)
	assert.Equal(t, 100, cfg.Server.DefaultMaxIters, "unset keys keep defaults")
	assert.Equal(t, int64(2), cfg.Resources.MaxConcurrentFits)
	require.NotNil(t, cfg.Engine.Seed)
	assert.Equal(t, int64(7), *cfg.Engine.Seed)
	assert.Equal(t, "pointers", cfg.S3.DDBTable)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(writeConfig(t, `unknown_key = 1`))
	assert.ErrorContains(t, err, "unknown_key")

	_, err = loadConfig(writeConfig(t, `addr = `))
	assert.Error(t, err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Logger(t *testing.T) {
	cfg := defaultConfig()
	l, err := cfg.logger()
	require.NoError(t, err)
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))

	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	l, err = cfg.logger()
	require.NoError(t, err)
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))

	cfg.LogLevel = "loud"
	_, err = cfg.logger()
	assert.Error(t, err)

	cfg.LogLevel = "info"
	cfg.LogFormat = "xml"
	_, err = cfg.logger()
	assert.Error(t, err)
}

func TestGlobalFlags_Overrides(t *testing.T) {
	g := &globalFlags{store: "/tmp/data", logLevel: "warn"}
	cfg, err := g.load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data", cfg.Store)
	assert.Equal(t, "warn", cfg.LogLevel)
}
