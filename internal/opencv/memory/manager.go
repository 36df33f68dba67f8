// Package memory recycles the native frame surfaces used by the frame
// buffer, sources and providers.
package memory

import (
	"fmt"
	"sync"

	"denoisefx/internal/logger"
	"denoisefx/internal/opencv/safe"
	"denoisefx/internal/surface"
)

const component = "memory"

const (
	// DefaultLimit caps the bytes of frames handed out and not yet released.
	DefaultLimit = 2 << 30
	// DefaultIdlePerSize bounds how many released frames of one size are kept.
	DefaultIdlePerSize = 4
)

// Stats is a point-in-time view of the manager.
type Stats struct {
	Live      int
	LiveBytes int64
	Idle      int
	Reused    int64
	Allocated int64
	Sizes     int
}

// Manager hands out BGR frames and recycles released ones by size. It
// implements surface.Allocator.
//
// Only the most recently released size keeps idle frames once the upstream
// size changes, so a resizing source does not pin old frames forever.
type Manager struct {
	mu      sync.Mutex
	free    map[surface.Size]*freeList
	live    map[uint64]int64
	stats   Stats
	limit   int64
	perSize int
	log     logger.Logger
}

var _ surface.Allocator = (*Manager)(nil)

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		free:    make(map[surface.Size]*freeList),
		live:    make(map[uint64]int64),
		limit:   DefaultLimit,
		perSize: DefaultIdlePerSize,
		log:     logger.OrNop(log),
	}
}

// SetLimit changes the live byte limit. Zero or less disables it.
func (m *Manager) SetLimit(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = bytes
}

// Allocate returns a frame of the given size, reusing a released one when
// possible.
func (m *Manager) Allocate(width, height int) (surface.Surface, error) {
	if err := safe.ValidateDimensions(width, height, "allocate frame"); err != nil {
		return nil, err
	}
	size := surface.Size{Width: width, Height: height}

	m.mu.Lock()
	defer m.mu.Unlock()

	if fl, ok := m.free[size]; ok {
		if mat := fl.take(); mat != nil {
			m.stats.Reused++
			m.track(mat)
			return mat, nil
		}
	}

	need := int64(width) * int64(height) * int64(safe.MatTypeSize(safe.FrameType))
	if m.limit > 0 && m.stats.LiveBytes+need > m.limit {
		return nil, fmt.Errorf("frame memory limit reached: %d live bytes, %d requested", m.stats.LiveBytes, need)
	}

	mat, err := safe.NewTaggedMat(height, width, safe.FrameType, "frame")
	if err != nil {
		return nil, err
	}
	m.stats.Allocated++
	m.track(mat)

	m.log.Debug(component, "allocated frame", map[string]interface{}{
		"width":  width,
		"height": height,
		"live":   m.stats.Live,
	})
	return mat, nil
}

func (m *Manager) track(mat *safe.Mat) {
	n := mat.ByteSize()
	m.live[mat.ID()] = n
	m.stats.Live++
	m.stats.LiveBytes += n
}

// Release takes s back. Surfaces this manager did not hand out are closed.
func (m *Manager) Release(s surface.Surface) {
	if s == nil {
		return
	}
	mat, err := safe.From(s)
	if err != nil {
		s.Close()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.live[mat.ID()]
	if !ok {
		m.log.Warning(component, "releasing untracked frame", map[string]interface{}{"tag": mat.Tag()})
		mat.Close()
		return
	}
	delete(m.live, mat.ID())
	m.stats.Live--
	m.stats.LiveBytes -= n

	size := surface.Size{Width: mat.Cols(), Height: mat.Rows()}
	m.evictExcept(size)

	fl, ok := m.free[size]
	if !ok {
		fl = newFreeList(m.perSize)
		m.free[size] = fl
	}
	if !fl.put(mat) {
		mat.Close()
	}
}

func (m *Manager) evictExcept(keep surface.Size) {
	for size, fl := range m.free {
		if size == keep {
			continue
		}
		if n := fl.drain(); n > 0 {
			m.log.Debug(component, "dropped idle frames", map[string]interface{}{
				"width":  size.Width,
				"height": size.Height,
				"count":  n,
			})
		}
		delete(m.free, size)
	}
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stats
	st.Sizes = len(m.free)
	for _, fl := range m.free {
		st.Idle += fl.len()
	}
	return st
}

// Shutdown closes every idle frame. Live frames stay with their owners.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	idle := 0
	for size, fl := range m.free {
		idle += fl.drain()
		delete(m.free, size)
	}

	m.log.Info(component, "frame memory released", map[string]interface{}{
		"idle": idle,
		"live": m.stats.Live,
	})
}
