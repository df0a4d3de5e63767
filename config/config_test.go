package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Store.DSN)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, "data/ml_features.csv", cfg.Paths.Snapshot)
	assert.Equal(t, "models/yield_model.gob", cfg.Paths.Model)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yieldpipe.yaml")
	content := `
store:
  dsn: "host=db user=yield dbname=features"
paths:
  data_dir: /srv/raw
  model: /srv/models/yield.gob
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host=db user=yield dbname=features", cfg.Store.DSN)
	assert.Equal(t, "/srv/raw", cfg.Paths.DataDir)
	assert.Equal(t, "/srv/models/yield.gob", cfg.Paths.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "data/ml_features.csv", cfg.Paths.Snapshot)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("YIELDPIPE_STORE_DSN", "host=env")
	t.Setenv("YIELDPIPE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "host=env", cfg.Store.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
