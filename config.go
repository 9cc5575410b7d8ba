package blockcraft

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxWorkers caps the chunk worker pool regardless of configuration.
const MaxWorkers = 8

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Window      WindowConfig `yaml:"window"`
	Render      RenderConfig `yaml:"render"`
	Stream      StreamConfig `yaml:"stream"`
	World       WorldConfig  `yaml:"world"`
	Debug       bool         `yaml:"debug"`
	MetricsAddr string       `yaml:"metrics_addr"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type RenderConfig struct {
	FovDegrees    float32    `yaml:"fov_degrees"`
	Near          float32    `yaml:"near"`
	Far           float32    `yaml:"far"`
	GPUCull       bool       `yaml:"gpu_cull"`
	GreedyMeshing bool       `yaml:"greedy_meshing"`
	VSync         bool       `yaml:"vsync"`
	SkyColor      [4]float32 `yaml:"sky_color"`
	AtlasPath     string     `yaml:"atlas_path"`
}

// StreamConfig controls chunk streaming. Distances are Chebyshev distances
// measured in chunks from the viewer's chunk.
type StreamConfig struct {
	LoadDistance    int `yaml:"load_distance"`
	UnloadDistance  int `yaml:"unload_distance"`
	Workers         int `yaml:"workers"`
	JobsPerTick     int `yaml:"jobs_per_tick"`
	ResultsPerFrame int `yaml:"results_per_frame"`
	UploadsPerFrame int `yaml:"uploads_per_frame"`
	MaxRetries      int `yaml:"max_retries"`
	QueueSize       int `yaml:"queue_size"`
}

type WorldConfig struct {
	Seed int64 `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "Blockcraft"},
		Render: RenderConfig{
			FovDegrees:    75,
			Near:          0.1,
			Far:           512,
			GPUCull:       true,
			GreedyMeshing: true,
			VSync:         true,
			SkyColor:      [4]float32{0.5, 0.8, 0.9, 1.0},
		},
		Stream: StreamConfig{
			LoadDistance:    8,
			UnloadDistance:  10,
			Workers:         4,
			JobsPerTick:     4,
			ResultsPerFrame: 8,
			UploadsPerFrame: 4,
			MaxRetries:      3,
			QueueSize:       64,
		},
		World: WorldConfig{Seed: 1337},
	}
}

// LoadConfig reads a YAML config on top of DefaultConfig. An empty path
// falls back to $BLOCKCRAFT_CONFIG; if that is unset the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("BLOCKCRAFT_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	s := c.Stream
	switch {
	case s.LoadDistance < 0:
		return fmt.Errorf("%w: load_distance %d < 0", ErrInvalidConfig, s.LoadDistance)
	case s.UnloadDistance < s.LoadDistance:
		return fmt.Errorf("%w: unload_distance %d < load_distance %d", ErrInvalidConfig, s.UnloadDistance, s.LoadDistance)
	case s.Workers < 1 || s.Workers > MaxWorkers:
		return fmt.Errorf("%w: workers must be in [1,%d], got %d", ErrInvalidConfig, MaxWorkers, s.Workers)
	case s.JobsPerTick < 1 || s.ResultsPerFrame < 1 || s.UploadsPerFrame < 1:
		return fmt.Errorf("%w: per-frame budgets must be positive", ErrInvalidConfig)
	case s.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries %d < 0", ErrInvalidConfig, s.MaxRetries)
	case s.QueueSize < 1:
		return fmt.Errorf("%w: queue_size %d < 1", ErrInvalidConfig, s.QueueSize)
	}
	r := c.Render
	if r.Near <= 0 || r.Far <= r.Near {
		return fmt.Errorf("%w: need 0 < near < far, got near=%v far=%v", ErrInvalidConfig, r.Near, r.Far)
	}
	if r.FovDegrees <= 0 || r.FovDegrees >= 180 {
		return fmt.Errorf("%w: fov_degrees %v out of range", ErrInvalidConfig, r.FovDegrees)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	return nil
}
