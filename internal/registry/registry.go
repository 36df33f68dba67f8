// Package registry knows which provider backends this process can use.
//
// Backends are probed once, in Initialize. The resulting registry is shared
// process-wide through Get until Finalize tears it down.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"denoisefx/internal/logger"
	"denoisefx/internal/metrics"
	"denoisefx/internal/provider"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

const component = "registry"

var (
	ErrNotInitialized = errors.New("provider registry not initialized")
	ErrUnavailable    = errors.New("provider unavailable")
)

// Priority is the resolution order for Automatic.
var Priority = []provider.ID{
	provider.CUDA,
	provider.NLMeans,
}

// Env is handed to backend constructors.
type Env struct {
	Alloc surface.Allocator
	Log   logger.Logger
}

// Backend describes one concrete provider variant.
type Backend struct {
	ID provider.ID
	// Probe checks for device or library support. It runs once.
	Probe func() error
	// New must not allocate backend resources; Load does that.
	New func(env Env) provider.Provider
}

type Options struct {
	Alloc   surface.Allocator
	Log     logger.Logger
	Metrics *metrics.Metrics
}

// Status is the probe outcome of one backend.
type Status struct {
	ID        provider.ID
	Priority  int
	Available bool
	Err       error
}

type Registry struct {
	backends []Backend
	status   map[provider.ID]*Status
	env      Env
	log      logger.Logger
}

// New probes every backend and returns the resulting registry. A failing
// or panicking probe marks only that backend unavailable.
func New(opts Options, backends ...Backend) *Registry {
	log := logger.OrNop(opts.Log)
	r := &Registry{
		backends: sortByPriority(backends),
		status:   make(map[provider.ID]*Status, len(backends)),
		env:      Env{Alloc: opts.Alloc, Log: log},
		log:      log,
	}

	for i, b := range r.backends {
		st := &Status{ID: b.ID, Priority: i}
		st.Err = probe(b)
		st.Available = st.Err == nil
		r.status[b.ID] = st

		if st.Available {
			r.log.Info(component, "provider available", map[string]interface{}{
				"provider": b.ID.String(),
				"priority": i,
			})
		} else {
			r.log.Warning(component, "provider unavailable", map[string]interface{}{
				"provider": b.ID.String(),
				"error":    st.Err.Error(),
			})
		}
		opts.Metrics.SetAvailable(b.ID.String(), st.Available)
	}

	if !r.Enabled() {
		r.log.Error(component, ErrUnavailable, map[string]interface{}{
			"message": "all supported providers failed to initialize",
		})
	}
	return r
}

func probe(b Backend) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("probe panicked: %v", rec)
		}
	}()
	if b.Probe == nil {
		return nil
	}
	return b.Probe()
}

func sortByPriority(backends []Backend) []Backend {
	rank := func(id provider.ID) int {
		for i, p := range Priority {
			if p == id {
				return i
			}
		}
		return len(Priority)
	}
	sorted := make([]Backend, len(backends))
	copy(sorted, backends)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank(sorted[i].ID) < rank(sorted[j].ID)
	})
	return sorted
}

func (r *Registry) IsAvailable(id provider.ID) bool {
	st, ok := r.status[id]
	return ok && st.Available
}

// FindIdealProvider returns the first available backend in priority order,
// or Automatic when none is usable.
func (r *Registry) FindIdealProvider() provider.ID {
	for _, b := range r.backends {
		if r.IsAvailable(b.ID) {
			return b.ID
		}
	}
	return provider.Automatic
}

// Enabled reports whether at least one backend is usable.
func (r *Registry) Enabled() bool {
	return r.FindIdealProvider() != provider.Automatic
}

// New constructs an unloaded provider for id.
func (r *Registry) New(id provider.ID) (provider.Provider, error) {
	b, ok := r.backend(id)
	if !ok || !r.IsAvailable(id) {
		return nil, fmt.Errorf("%s: %w", id, ErrUnavailable)
	}
	return b.New(r.env), nil
}

func (r *Registry) backend(id provider.ID) (Backend, bool) {
	for _, b := range r.backends {
		if b.ID == id {
			return b, true
		}
	}
	return Backend{}, false
}

// Statuses lists every known backend in priority order.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, *r.status[b.ID])
	}
	return out
}

// IDs lists every known backend in priority order, available or not.
func (r *Registry) IDs() []provider.ID {
	out := make([]provider.ID, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b.ID)
	}
	return out
}

// Describe writes the UI of provider id into sink using a throwaway,
// unloaded instance. Unknown ids describe nothing.
func (r *Registry) Describe(id provider.ID, sink schema.Sink) {
	b, ok := r.backend(id)
	if !ok {
		return
	}
	b.New(r.env).DescribeUI(sink)
}

// Defaults collects setting defaults from every backend.
func (r *Registry) Defaults(d *settings.Data) {
	for _, b := range r.backends {
		if df, ok := b.New(r.env).(provider.Defaulter); ok {
			df.Defaults(d)
		}
	}
}

var (
	instanceMu sync.Mutex
	instance   *Registry
)

// Initialize probes backends and installs the process-wide registry.
// Calling it again without Finalize returns the existing registry.
func Initialize(opts Options, backends ...Backend) *Registry {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		instance.log.Warning(component, "registry already initialized", nil)
		return instance
	}
	instance = New(opts, backends...)
	return instance
}

// Finalize drops the process-wide registry.
func Finalize() {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		instance.log.Debug(component, "registry finalized", nil)
	}
	instance = nil
}

// Get returns the process-wide registry.
func Get() (*Registry, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		return nil, ErrNotInitialized
	}
	return instance, nil
}

// Shutdown lets the shutdown manager call Finalize.
type Shutdown struct{}

func (Shutdown) Shutdown() { Finalize() }
