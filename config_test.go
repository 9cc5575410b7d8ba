package blockcraft

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.GreaterOrEqual(t, cfg.Stream.UnloadDistance, cfg.Stream.LoadDistance)
	assert.LessOrEqual(t, cfg.Stream.Workers, MaxWorkers)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	data := []byte(`
stream:
  load_distance: 3
  unload_distance: 5
  workers: 2
render:
  gpu_cull: false
world:
  seed: 42
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Stream.LoadDistance)
	assert.Equal(t, 5, cfg.Stream.UnloadDistance)
	assert.Equal(t, 2, cfg.Stream.Workers)
	assert.False(t, cfg.Render.GPUCull)
	assert.Equal(t, int64(42), cfg.World.Seed)
	// Untouched fields keep their defaults.
	assert.Equal(t, 4, cfg.Stream.JobsPerTick)
	assert.Equal(t, float32(75), cfg.Render.FovDegrees)
}

func TestLoadConfig_EmptyPathWithoutEnv(t *testing.T) {
	t.Setenv("BLOCKCRAFT_CONFIG", "")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unload below load", func(c *Config) { c.Stream.UnloadDistance = c.Stream.LoadDistance - 1 }},
		{"too many workers", func(c *Config) { c.Stream.Workers = MaxWorkers + 1 }},
		{"zero workers", func(c *Config) { c.Stream.Workers = 0 }},
		{"zero jobs per tick", func(c *Config) { c.Stream.JobsPerTick = 0 }},
		{"near after far", func(c *Config) { c.Render.Near = 1000 }},
		{"bad fov", func(c *Config) { c.Render.FovDegrees = 180 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream:\n  load_distance: 9\n  unload_distance: 2\n"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
