// Package cudadenoise is a GPU denoise provider running on OpenCV's CUDA
// modules. It is only functional when built with -tags cuda.
package cudadenoise

import (
	"errors"
	"fmt"
	"sync"

	"denoisefx/internal/logger"
	"denoisefx/internal/opencv/safe"
	"denoisefx/internal/provider"
	"denoisefx/internal/registry"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

const component = "provider.cuda"

// KeyStrength selects StrengthWeak or StrengthStrong.
const KeyStrength = "CUDA.Strength"

const (
	StrengthWeak   int64 = 0
	StrengthStrong int64 = 1
)

// Alignment is the granularity the GPU path works in.
const Alignment = 16

var ErrNotAvailable = errors.New("CUDA denoising not available: build with -tags cuda and a CUDA-enabled OpenCV")

// engine is the device side of the provider.
type engine interface {
	process(src, dst *safe.Mat) error
	close()
}

func Backend() registry.Backend {
	return registry.Backend{
		ID:    provider.CUDA,
		Probe: Probe,
		New: func(env registry.Env) provider.Provider {
			return New(env.Alloc, env.Log)
		},
	}
}

type Denoiser struct {
	alloc surface.Allocator
	log   logger.Logger

	mu       sync.Mutex
	engine   engine
	strength int64
	// applied is the strength the current engine was built with.
	applied int64
	output  surface.Surface
}

var (
	_ provider.Provider  = (*Denoiser)(nil)
	_ provider.Defaulter = (*Denoiser)(nil)
)

func New(alloc surface.Allocator, log logger.Logger) *Denoiser {
	return &Denoiser{
		alloc:    alloc,
		log:      logger.OrNop(log),
		strength: StrengthStrong,
	}
}

func (d *Denoiser) ID() provider.ID { return provider.CUDA }

func (d *Denoiser) Load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.alloc == nil {
		return fmt.Errorf("cuda: no surface allocator")
	}
	if d.engine != nil {
		return nil
	}

	e, err := newEngine(d.strength == StrengthStrong)
	if err != nil {
		return err
	}
	d.engine = e
	d.applied = d.strength
	d.log.Debug(component, "loaded", map[string]interface{}{"strength": d.strength})
	return nil
}

func (d *Denoiser) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine == nil {
		return provider.ErrNotLoaded
	}
	d.engine.close()
	d.engine = nil
	if d.output != nil {
		d.alloc.Release(d.output)
		d.output = nil
	}
	return nil
}

// Resize rounds both dimensions up to Alignment.
func (d *Denoiser) Resize(size surface.Size) surface.Size {
	return surface.Size{
		Width:  align(size.Width),
		Height: align(size.Height),
	}
}

func align(v int) int {
	if v <= 0 {
		return v
	}
	return (v + Alignment - 1) / Alignment * Alignment
}

func (d *Denoiser) Process(input surface.Surface) surface.Surface {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine == nil {
		return nil
	}

	if d.applied != d.strength {
		e, err := newEngine(d.strength == StrengthStrong)
		if err != nil {
			d.log.Error(component, err, map[string]interface{}{"message": "failed to rebuild filter"})
			return nil
		}
		d.engine.close()
		d.engine = e
		d.applied = d.strength
	}

	src, err := safe.From(input)
	if err == nil {
		err = safe.ValidateFrame(src, "cuda")
	}
	if err != nil {
		d.log.Debug(component, "rejected input", map[string]interface{}{"error": err.Error()})
		return nil
	}

	if d.output == nil || d.output.Width() != src.Width() || d.output.Height() != src.Height() {
		if d.output != nil {
			d.alloc.Release(d.output)
			d.output = nil
		}
		out, err := d.alloc.Allocate(src.Width(), src.Height())
		if err != nil {
			d.log.Error(component, err, map[string]interface{}{"message": "failed to allocate output"})
			return nil
		}
		d.output = out
	}

	dst, err := safe.From(d.output)
	if err != nil {
		return nil
	}
	if err := d.engine.process(src, dst); err != nil {
		d.log.Debug(component, "process failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return d.output
}

func (d *Denoiser) Configure(s settings.Reader) {
	if !s.Has(KeyStrength) {
		return
	}
	v := s.GetInt(KeyStrength)
	if v != StrengthWeak {
		v = StrengthStrong
	}

	d.mu.Lock()
	d.strength = v
	d.mu.Unlock()
}

func (d *Denoiser) Defaults(s *settings.Data) {
	s.SetDefaultInt(KeyStrength, StrengthStrong)
}

func (d *Denoiser) DescribeUI(sink schema.Sink) {
	g := sink.Group("CUDA", provider.CUDA.String())
	g.IntList(KeyStrength, "Strength", []schema.Option{
		{Label: "Weak", Value: StrengthWeak},
		{Label: "Strong", Value: StrengthStrong},
	})
}
