package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Pool.Workers < 0 {
		return errors.New("pool.workers must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		return fmt.Errorf("render.fps must be between 1 and 240, got %d", c.Render.FPS)
	}
	if c.Render.Frames < 0 {
		return errors.New("render.frames must not be negative")
	}
	if c.Source.Width < 0 || c.Source.Height < 0 {
		return errors.New("source.width and source.height must not be negative")
	}
	if c.Source.Noise < 0 {
		return errors.New("source.noise must not be negative")
	}
	if c.Output.Every < 1 {
		return errors.New("output.every must be at least 1")
	}
	return nil
}
