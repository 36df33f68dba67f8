// Package nlmeans is a CPU denoise provider built on OpenCV's fast
// non-local means for colour images.
package nlmeans

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"denoisefx/internal/logger"
	"denoisefx/internal/opencv/safe"
	"denoisefx/internal/provider"
	"denoisefx/internal/registry"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

const component = "provider.nlmeans"

const (
	KeyStrength       = "NLMeans.Strength"
	KeyTemplateWindow = "NLMeans.TemplateWindow"
	KeySearchWindow   = "NLMeans.SearchWindow"
)

const (
	defaultStrength       = 10.0
	defaultTemplateWindow = 7
	defaultSearchWindow   = 21
)

// Backend registers the provider with a registry.
func Backend() registry.Backend {
	return registry.Backend{
		ID:    provider.NLMeans,
		Probe: Probe,
		New: func(env registry.Env) provider.Provider {
			return New(env.Alloc, env.Log)
		},
	}
}

// Probe runs one tiny denoise to make sure the photo module is usable.
func Probe() error {
	src := gocv.NewMatWithSize(8, 8, safe.FrameType)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	gocv.FastNlMeansDenoisingColoredWithParams(src, &dst, 3, 3, 3, 7)
	if dst.Empty() {
		return fmt.Errorf("fast non-local means produced no output with OpenCV %s", gocv.OpenCVVersion())
	}
	return nil
}

type Denoiser struct {
	alloc surface.Allocator
	log   logger.Logger

	mu             sync.Mutex
	loaded         bool
	strength       float32
	templateWindow int
	searchWindow   int
	output         surface.Surface
}

var (
	_ provider.Provider  = (*Denoiser)(nil)
	_ provider.Defaulter = (*Denoiser)(nil)
)

func New(alloc surface.Allocator, log logger.Logger) *Denoiser {
	return &Denoiser{
		alloc:          alloc,
		log:            logger.OrNop(log),
		strength:       defaultStrength,
		templateWindow: defaultTemplateWindow,
		searchWindow:   defaultSearchWindow,
	}
}

func (d *Denoiser) ID() provider.ID { return provider.NLMeans }

func (d *Denoiser) Load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.alloc == nil {
		return fmt.Errorf("nlmeans: no surface allocator")
	}
	d.loaded = true
	d.log.Debug(component, "loaded", map[string]interface{}{
		"strength":        d.strength,
		"template_window": d.templateWindow,
		"search_window":   d.searchWindow,
	})
	return nil
}

func (d *Denoiser) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return provider.ErrNotLoaded
	}
	d.releaseOutput()
	d.loaded = false
	return nil
}

func (d *Denoiser) releaseOutput() {
	if d.output != nil {
		d.alloc.Release(d.output)
		d.output = nil
	}
}

// Resize accepts any size.
func (d *Denoiser) Resize(size surface.Size) surface.Size { return size }

func (d *Denoiser) Process(input surface.Surface) surface.Surface {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return nil
	}

	src, err := safe.From(input)
	if err == nil {
		err = safe.ValidateFrame(src, "nlmeans")
	}
	if err != nil {
		d.log.Debug(component, "rejected input", map[string]interface{}{"error": err.Error()})
		return nil
	}

	if d.output == nil || d.output.Width() != src.Width() || d.output.Height() != src.Height() {
		d.releaseOutput()
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

	gocv.FastNlMeansDenoisingColoredWithParams(src.GetMat(), dst.Ptr(),
		d.strength, d.strength, d.templateWindow, d.searchWindow)

	if dst.Empty() {
		return nil
	}
	return d.output
}

func (d *Denoiser) Configure(s settings.Reader) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Has(KeyStrength) {
		d.strength = float32(clamp(s.GetDouble(KeyStrength), 0, 100))
	}
	if s.Has(KeyTemplateWindow) {
		d.templateWindow = oddWindow(s.GetInt(KeyTemplateWindow), defaultTemplateWindow)
	}
	if s.Has(KeySearchWindow) {
		d.searchWindow = oddWindow(s.GetInt(KeySearchWindow), defaultSearchWindow)
	}
}

func (d *Denoiser) Defaults(s *settings.Data) {
	s.SetDefaultDouble(KeyStrength, defaultStrength)
	s.SetDefaultInt(KeyTemplateWindow, defaultTemplateWindow)
	s.SetDefaultInt(KeySearchWindow, defaultSearchWindow)
}

func (d *Denoiser) DescribeUI(sink schema.Sink) {
	g := sink.Group("NLMeans", provider.NLMeans.String())
	g.FloatRange(KeyStrength, "Strength", 0, 100, 0.5)
	g.IntList(KeyTemplateWindow, "Template Window", windows(3, 11))
	g.IntList(KeySearchWindow, "Search Window", windows(11, 35))
}

func windows(from, to int64) []schema.Option {
	var out []schema.Option
	for w := from; w <= to; w += 2 {
		out = append(out, schema.Option{Label: fmt.Sprintf("%dx%d", w, w), Value: w})
	}
	return out
}

// oddWindow returns v if it is a positive odd window size, else fallback.
func oddWindow(v int64, fallback int) int {
	if v <= 0 || v%2 == 0 {
		return fallback
	}
	return int(v)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
