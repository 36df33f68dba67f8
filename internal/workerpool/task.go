package workerpool

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Func is the body of a task. data is whatever was passed to Submit.
type Func func(data interface{})

type State int32

const (
	StateQueued State = iota
	StateRunning
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Task is a handle to one submitted unit of work.
type Task struct {
	id    uuid.UUID
	fn    Func
	data  interface{}
	state atomic.Int32
	done  chan struct{}
	err   error
}

// NewTask builds a queued task. Pools call it from Submit; it is exported
// so alternative schedulers can share the same handle type.
func NewTask(fn Func, data interface{}) *Task {
	return &Task{
		id:   uuid.New(),
		fn:   fn,
		data: data,
		done: make(chan struct{}),
	}
}

func (t *Task) ID() uuid.UUID { return t.id }

func (t *Task) State() State { return State(t.state.Load()) }

// Done is closed once the task has finished or been cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task has finished or been cancelled.
func (t *Task) Wait() { <-t.done }

// Err reports a panic recovered from the task body. Valid after Done.
func (t *Task) Err() error { return t.err }

// Run executes the task if it is still queued. It reports whether the body ran.
func (t *Task) Run() bool {
	if !t.state.CompareAndSwap(int32(StateQueued), int32(StateRunning)) {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("task %s panicked: %v", t.id, r)
		}
		t.state.Store(int32(StateDone))
		close(t.done)
	}()
	t.fn(t.data)
	return true
}

// Cancel marks a queued task as cancelled. Running or finished tasks are
// left alone and Cancel returns false.
func (t *Task) Cancel() bool {
	if !t.state.CompareAndSwap(int32(StateQueued), int32(StateCancelled)) {
		return false
	}
	close(t.done)
	return true
}
