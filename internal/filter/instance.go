// Package filter implements a denoise filter instance: a per-frame stage
// that hands captured frames to a provider backend and can change that
// backend at runtime without stalling the render loop.
package filter

import (
	"fmt"
	"sync"
	"sync/atomic"

	"denoisefx/internal/framebuffer"
	"denoisefx/internal/logger"
	"denoisefx/internal/metrics"
	"denoisefx/internal/provider"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
	"denoisefx/internal/workerpool"
)

const component = "filter"

// KeyProvider holds the requested provider.ID as an integer.
const KeyProvider = "Provider"

// Source is the upstream frame producer.
type Source interface {
	// Size reports the current frame size; zero when no frame is available.
	Size() surface.Size
	// Capture writes the current frame into dst, scaled to dst's size.
	// It returns false when the source cannot deliver a frame right now.
	Capture(dst surface.Surface) bool
}

// Output receives exactly one call per Render.
type Output interface {
	// Skip passes the upstream frame through unprocessed.
	Skip()
	// Draw presents s at size. s is only valid for the duration of the call.
	Draw(s surface.Surface, size surface.Size)
}

// Pool runs switch tasks off the render thread.
type Pool interface {
	Submit(fn workerpool.Func, data interface{}) (*workerpool.Task, error)
	CancelIfQueued(t *workerpool.Task) bool
}

// Registry resolves and constructs providers.
type Registry interface {
	FindIdealProvider() provider.ID
	Enabled() bool
	IDs() []provider.ID
	New(id provider.ID) (provider.Provider, error)
	Describe(id provider.ID, sink schema.Sink)
	Defaults(d *settings.Data)
}

// Options wires an Instance to its collaborators. Pool, Registry and Alloc
// are required.
type Options struct {
	Name     string
	Source   Source
	Pool     Pool
	Registry Registry
	Alloc    surface.Allocator
	Log      logger.Logger
	Metrics  *metrics.Metrics
}

// Instance is one filter in a render chain.
//
// mu is the provider lock. It guards active, uiSelected, impl, task,
// settings and closed, every call into impl, and every read of the
// provider's output surface. ready is read without
// the lock so Render can bail out while a switch holds it.
type Instance struct {
	name    string
	source  Source
	pool    Pool
	reg     Registry
	log     logger.Logger
	metrics *metrics.Metrics
	buffer  *framebuffer.Buffer

	mu         sync.Mutex
	active     provider.ID
	uiSelected provider.ID
	impl       provider.Provider
	task       *workerpool.Task
	settings   settings.Reader
	closed     bool

	// gen numbers switches. It is written under mu and read by tasks
	// before they take it.
	gen atomic.Uint64

	ready atomic.Bool

	// frameMu guards size and dirty. It is never held across provider calls.
	frameMu  sync.Mutex
	size     surface.Size
	dirty    bool
	unusable bool
}

// New creates an instance and, when s is non-nil, applies it via Update.
func New(opts Options, s settings.Reader) (*Instance, error) {
	if opts.Pool == nil || opts.Registry == nil || opts.Alloc == nil {
		return nil, fmt.Errorf("filter %q: pool, registry and allocator are required", opts.Name)
	}

	buf, err := framebuffer.New(opts.Alloc)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", opts.Name, err)
	}

	i := &Instance{
		name:       opts.Name,
		source:     opts.Source,
		pool:       opts.Pool,
		reg:        opts.Registry,
		log:        logger.OrNop(opts.Log),
		metrics:    opts.Metrics,
		buffer:     buf,
		active:     provider.Invalid,
		uiSelected: provider.Invalid,
		size:       surface.Size{Width: 1, Height: 1},
	}

	if s != nil {
		i.Update(s)
	}
	return i, nil
}

// Name identifies the instance in log lines.
func (i *Instance) Name() string { return i.name }

// Update applies settings. A changed provider selection starts an
// asynchronous switch; parameters reach the provider only while it is ready.
func (i *Instance) Update(s settings.Reader) {
	requested := provider.ID(s.GetInt(KeyProvider))
	resolved := requested
	if requested == provider.Automatic {
		resolved = i.reg.FindIdealProvider()
		if resolved == provider.Automatic {
			resolved = provider.Invalid
			i.logUnusableOnce()
		}
	}

	i.mu.Lock()
	i.settings = s
	i.uiSelected = requested
	i.mu.Unlock()

	i.switchProvider(resolved)

	if i.ready.Load() {
		i.mu.Lock()
		if i.ready.Load() {
			i.configureLocked()
		}
		i.mu.Unlock()
	}
}

func (i *Instance) logUnusableOnce() {
	i.frameMu.Lock()
	first := !i.unusable
	i.unusable = true
	i.frameMu.Unlock()

	if first {
		i.log.Warning(component, "no usable provider, filter will pass frames through", map[string]interface{}{
			"instance": i.name,
		})
	}
}

// Properties describes the settings of the selected provider plus an
// Advanced group holding the provider choice.
func (i *Instance) Properties(sink schema.Sink) {
	i.mu.Lock()
	selected := i.uiSelected
	i.mu.Unlock()

	if selected == provider.Automatic {
		selected = i.reg.FindIdealProvider()
	}
	if selected.IsConcrete() {
		i.reg.Describe(selected, sink)
	}

	options := []schema.Option{{Label: provider.Automatic.String(), Value: int64(provider.Automatic)}}
	for _, id := range i.reg.IDs() {
		options = append(options, schema.Option{Label: id.String(), Value: int64(id)})
	}
	sink.Group("Advanced", "Advanced").IntList(KeyProvider, "Provider", options)
}

// Width and Height report the resolved frame size, never less than 1.
func (i *Instance) Width() int {
	i.frameMu.Lock()
	defer i.frameMu.Unlock()
	return max(i.size.Width, 1)
}

func (i *Instance) Height() int {
	i.frameMu.Lock()
	defer i.frameMu.Unlock()
	return max(i.size.Height, 1)
}

func (i *Instance) Ready() bool { return i.ready.Load() }

func (i *Instance) Active() provider.ID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

func (i *Instance) UISelected() provider.ID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.uiSelected
}

func (i *Instance) Dirty() bool {
	i.frameMu.Lock()
	defer i.frameMu.Unlock()
	return i.dirty
}

// Close waits for an in-flight switch, then unloads the provider and frees
// the frame buffer. A queued switch is withdrawn instead of awaited.
func (i *Instance) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	task := i.task
	i.task = nil
	i.mu.Unlock()

	if task != nil && !i.pool.CancelIfQueued(task) {
		task.Wait()
	}

	i.mu.Lock()
	i.ready.Store(false)
	i.unloadLocked()
	i.mu.Unlock()

	i.buffer.Close()
	i.log.Debug(component, "instance closed", map[string]interface{}{"instance": i.name})
}

// Shutdown lets the instance be registered with the shutdown manager.
func (i *Instance) Shutdown() { i.Close() }

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	return fn()
}

func (i *Instance) logError(err error, msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{}, 2)
	}
	fields["message"] = msg
	fields["instance"] = i.name
	i.log.Error(component, err, fields)
}
