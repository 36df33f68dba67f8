package filter

import (
	"errors"
	"fmt"

	"denoisefx/internal/logger"
	"denoisefx/internal/metrics"
	"denoisefx/internal/provider"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

// ErrNoProviders is returned by Factory.Create when no backend passed its
// probe and pass-through instances were not allowed.
var ErrNoProviders = errors.New("all supported providers failed to initialize")

// FactoryOptions holds the collaborators shared by every instance a
// Factory creates.
type FactoryOptions struct {
	Pool     Pool
	Registry Registry
	Alloc    surface.Allocator
	Log      logger.Logger
	Metrics  *metrics.Metrics
	// AllowPassthrough permits instances that can only pass frames through.
	AllowPassthrough bool
}

// Factory creates instances that share a pool, registry and allocator.
type Factory struct {
	opts FactoryOptions
	log  logger.Logger
}

func NewFactory(opts FactoryOptions) *Factory {
	return &Factory{opts: opts, log: logger.OrNop(opts.Log)}
}

// Enabled reports whether the factory can hand out processing instances.
func (f *Factory) Enabled() bool {
	return f.opts.Registry != nil && f.opts.Registry.Enabled()
}

// Defaults fills d with the filter and provider defaults.
func (f *Factory) Defaults(d *settings.Data) {
	d.SetDefaultInt(KeyProvider, int64(provider.Automatic))
	if f.opts.Registry != nil {
		f.opts.Registry.Defaults(d)
	}
}

// Create builds an instance named name reading frames from src. User
// values in s are layered over the factory defaults.
func (f *Factory) Create(name string, src Source, s *settings.Data) (*Instance, error) {
	if !f.Enabled() && !f.opts.AllowPassthrough {
		return nil, ErrNoProviders
	}

	if s == nil {
		s = settings.New()
	}
	f.Defaults(s)

	inst, err := New(Options{
		Name:     name,
		Source:   src,
		Pool:     f.opts.Pool,
		Registry: f.opts.Registry,
		Alloc:    f.opts.Alloc,
		Log:      f.opts.Log,
		Metrics:  f.opts.Metrics,
	}, s)
	if err != nil {
		return nil, fmt.Errorf("create filter: %w", err)
	}

	f.log.Info(component, "filter created", map[string]interface{}{
		"instance":  name,
		"requested": provider.ID(s.GetInt(KeyProvider)).String(),
	})
	return inst, nil
}
