// Package workerpool runs submitted closures on a fixed set of goroutines.
// Queued work can be withdrawn; running work always completes.
package workerpool

import (
	"errors"
	"runtime"
	"sync"

	"denoisefx/internal/logger"
)

const component = "workerpool"

var ErrClosed = errors.New("worker pool closed")

type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Task
	closed  bool
	workers int
	wg      sync.WaitGroup
	log     logger.Logger
}

// New starts a pool with the given number of workers. Zero or less uses
// the number of CPUs.
func New(workers int, log logger.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool{
		workers: workers,
		log:     logger.OrNop(log),
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.log.Debug(component, "worker pool started", map[string]interface{}{"workers": workers})
	return p
}

// Submit queues fn(data) and returns its handle.
func (p *Pool) Submit(fn Func, data interface{}) (*Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	t := NewTask(fn, data)
	p.queue = append(p.queue, t)
	p.cond.Signal()
	return t, nil
}

// CancelIfQueued removes t from the queue if no worker has picked it up yet.
func (p *Pool) CancelIfQueued(t *Task) bool {
	if t == nil {
		return false
	}

	p.mu.Lock()
	for i, q := range p.queue {
		if q == t {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	return t.Cancel()
}

// Pending returns the number of queued tasks.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker(n int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if t.Run() && t.Err() != nil {
			p.log.Error(component, t.Err(), map[string]interface{}{
				"message": "task panicked",
				"task":    t.ID().String(),
				"worker":  n,
			})
		}
	}
}

// Close cancels queued tasks, waits for running ones and stops the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	queued := p.queue
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, t := range queued {
		t.Cancel()
	}
	p.wg.Wait()

	p.log.Debug(component, "worker pool stopped", map[string]interface{}{"cancelled": len(queued)})
}

// Shutdown lets the pool be registered with the shutdown manager.
func (p *Pool) Shutdown() { p.Close() }
