package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"denoisefx/internal/settings"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "DENOISEFX"

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Pool struct {
	Workers int `toml:"workers"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type Render struct {
	FPS    int `toml:"fps"`
	Frames int `toml:"frames"`
}

// Source selects the upstream frames. An empty path means a test pattern.
type Source struct {
	Path   string  `toml:"path"`
	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	Noise  float64 `toml:"noise"`
}

// Output controls where drawn frames are written. An empty dir disables it.
type Output struct {
	Dir   string `toml:"dir"`
	Every int    `toml:"every"`
}

// Config is the full application configuration.
//
// Filter is a free-form table of filter settings, e.g.
//
//	[filter]
//	Provider = 2
//	"NLMeans.Strength" = 12.5
type Config struct {
	Log     Log                    `toml:"log"`
	Pool    Pool                   `toml:"pool"`
	Metrics Metrics                `toml:"metrics"`
	Render  Render                 `toml:"render"`
	Source  Source                 `toml:"source"`
	Output  Output                 `toml:"output"`
	Filter  map[string]interface{} `toml:"filter"`
}

// envOverrides maps DENOISEFX_* variables. Empty values leave the file
// configuration untouched.
type envOverrides struct {
	LogLevel    string `envconfig:"LOG_LEVEL"`
	LogFormat   string `envconfig:"LOG_FORMAT"`
	PoolWorkers int    `envconfig:"POOL_WORKERS"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	Provider    string `envconfig:"PROVIDER"`
	Source      string `envconfig:"SOURCE"`
}

func Default() *Config {
	return &Config{
		Log:     Log{Level: "info", Format: "console"},
		Pool:    Pool{Workers: 2},
		Metrics: Metrics{Addr: ":9464"},
		Render:  Render{FPS: 30},
		Source:  Source{Width: 640, Height: 360},
		Output:  Output{Every: 30},
		Filter:  map[string]interface{}{},
	}
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}

	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	if env.PoolWorkers != 0 {
		c.Pool.Workers = env.PoolWorkers
	}
	if env.MetricsAddr != "" {
		c.Metrics.Addr = env.MetricsAddr
		c.Metrics.Enabled = true
	}
	if env.Source != "" {
		c.Source.Path = env.Source
	}
	if env.Provider != "" {
		id, err := strconv.ParseInt(env.Provider, 10, 64)
		if err != nil {
			return fmt.Errorf("%s_PROVIDER must be an integer: %w", EnvPrefix, err)
		}
		if c.Filter == nil {
			c.Filter = map[string]interface{}{}
		}
		c.Filter["Provider"] = id
	}
	return nil
}

// FilterSettings returns the [filter] table as settings. Nested tables are
// flattened into dotted keys, so NLMeans.Strength and "NLMeans.Strength"
// are equivalent.
func (c *Config) FilterSettings() *settings.Data {
	flat := make(map[string]interface{}, len(c.Filter))
	flatten("", c.Filter, flat)
	return settings.FromMap(flat)
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}
