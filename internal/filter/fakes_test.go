package filter

import (
	"sync"
	"sync/atomic"

	"denoisefx/internal/provider"
	"denoisefx/internal/registry"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
	"denoisefx/internal/workerpool"
)

type fakeSurface struct {
	w, h   int
	closed atomic.Bool
}

func newFakeSurface(w, h int) *fakeSurface { return &fakeSurface{w: w, h: h} }

func (f *fakeSurface) Width() int { return f.w }
func (f *fakeSurface) Height() int { return f.h }
func (f *fakeSurface) IsValid() bool { return !f.closed.Load() }
func (f *fakeSurface) Close() { f.closed.Store(true) }

type fakeAllocator struct {
	allocs   atomic.Int32
	releases atomic.Int32
}

func (a *fakeAllocator) Allocate(w, h int) (surface.Surface, error) {
	a.allocs.Add(1)
	return newFakeSurface(w, h), nil
}

func (a *fakeAllocator) Release(s surface.Surface) {
	a.releases.Add(1)
	s.Close()
}

type fakeSource struct {
	mu       sync.Mutex
	size     surface.Size
	fail     bool
	captures []surface.Size
}

func (s *fakeSource) Size() surface.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *fakeSource) SetSize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = surface.Size{Width: w, Height: h}
}

func (s *fakeSource) Capture(dst surface.Surface) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return false
	}
	s.captures = append(s.captures, surface.Size{Width: dst.Width(), Height: dst.Height()})
	return true
}

func (s *fakeSource) Captures() []surface.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]surface.Size(nil), s.captures...)
}

type fakeOutput struct {
	skips    int
	draws    int
	lastSize surface.Size
	last     surface.Surface
}

func (o *fakeOutput) Skip() { o.skips++ }

func (o *fakeOutput) Draw(s surface.Surface, size surface.Size) {
	o.draws++
	o.last = s
	o.lastSize = size
}

// blockingOutput parks inside Draw until released, then records whether the
// surface it was handed survived the wait.
type blockingOutput struct {
	entered   chan struct{}
	release   chan struct{}
	skips     atomic.Int32
	validLate atomic.Bool
}

func newBlockingOutput() *blockingOutput {
	return &blockingOutput{entered: make(chan struct{}), release: make(chan struct{})}
}

func (o *blockingOutput) Skip() { o.skips.Add(1) }

func (o *blockingOutput) Draw(s surface.Surface, _ surface.Size) {
	close(o.entered)
	<-o.release
	o.validLate.Store(s.IsValid())
}

// fakeBackend configures and counts every provider it constructs.
type fakeBackend struct {
	id provider.ID

	mu           sync.Mutex
	loadErr      error
	processNil   bool
	processPanic bool
	loadPanic    bool
	align        int
	loadGate     chan struct{}
	loadStarted  chan struct{}

	loads     atomic.Int32
	unloads   atomic.Int32
	processes atomic.Int32
	resizes   atomic.Int32
	configs   atomic.Int32
	inFlight  atomic.Int32
	violation atomic.Bool
	lastCfg   atomic.Value
}

func newFakeBackend(id provider.ID) *fakeBackend { return &fakeBackend{id: id} }

func (b *fakeBackend) Backend(probeErr error) registry.Backend {
	return registry.Backend{
		ID:    b.id,
		Probe: func() error { return probeErr },
		New:   func(registry.Env) provider.Provider { return &fakeProvider{b: b} },
	}
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

type fakeProvider struct {
	b      *fakeBackend
	loaded bool
	out    *fakeSurface
}

func (p *fakeProvider) enter() func() {
	if p.b.inFlight.Add(1) > 1 {
		p.b.violation.Store(true)
	}
	return func() { p.b.inFlight.Add(-1) }
}

func (p *fakeProvider) ID() provider.ID { return p.b.id }

func (p *fakeProvider) Load() error {
	defer p.enter()()
	p.b.mu.Lock()
	err, gate, started, panics := p.b.loadErr, p.b.loadGate, p.b.loadStarted, p.b.loadPanic
	p.b.mu.Unlock()

	if panics {
		panic("driver fault")
	}

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	p.b.loads.Add(1)
	if err != nil {
		return err
	}
	p.loaded = true
	return nil
}

func (p *fakeProvider) Unload() error {
	defer p.enter()()
	p.b.unloads.Add(1)
	if !p.loaded {
		return provider.ErrNotLoaded
	}
	p.loaded = false
	if p.out != nil {
		p.out.Close()
		p.out = nil
	}
	return nil
}

func (p *fakeProvider) Resize(size surface.Size) surface.Size {
	defer p.enter()()
	p.b.resizes.Add(1)
	p.b.mu.Lock()
	align := p.b.align
	p.b.mu.Unlock()
	if align > 1 {
		size.Width = (size.Width + align - 1) / align * align
		size.Height = (size.Height + align - 1) / align * align
	}
	return size
}

func (p *fakeProvider) Process(in surface.Surface) surface.Surface {
	defer p.enter()()
	p.b.processes.Add(1)
	if !p.loaded {
		p.b.violation.Store(true)
		return nil
	}
	p.b.mu.Lock()
	isNil, panics := p.b.processNil, p.b.processPanic
	p.b.mu.Unlock()
	if panics {
		panic("backend exploded")
	}
	if isNil {
		return nil
	}
	if p.out == nil || p.out.w != in.Width() || p.out.h != in.Height() {
		p.out = newFakeSurface(in.Width(), in.Height())
	}
	return p.out
}

func (p *fakeProvider) Configure(s settings.Reader) {
	p.b.configs.Add(1)
	p.b.lastCfg.Store(s.GetDouble("Fake.Strength"))
}

func (p *fakeProvider) DescribeUI(sink schema.Sink) {
	g := sink.Group(p.b.id.String(), p.b.id.String())
	g.FloatRange("Fake.Strength", "Strength", 0, 100, 1)
}

func (p *fakeProvider) Defaults(d *settings.Data) {
	d.SetDefaultDouble("Fake.Strength", 10)
}

// manualPool runs tasks only when told to.
type manualPool struct {
	mu    sync.Mutex
	queue []*workerpool.Task
}

func (p *manualPool) Submit(fn workerpool.Func, data interface{}) (*workerpool.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := workerpool.NewTask(fn, data)
	p.queue = append(p.queue, t)
	return t, nil
}

func (p *manualPool) CancelIfQueued(t *workerpool.Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, q := range p.queue {
		if q == t {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return t.Cancel()
		}
	}
	return false
}

// Take dequeues the next task as if a worker picked it up.
func (p *manualPool) Take() *workerpool.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	t := p.queue[0]
	p.queue = p.queue[1:]
	return t
}

func (p *manualPool) RunAll() {
	for t := p.Take(); t != nil; t = p.Take() {
		t.Run()
	}
}

func (p *manualPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func selectProvider(id provider.ID) *settings.Data {
	d := settings.New()
	d.SetInt(KeyProvider, int64(id))
	return d
}
