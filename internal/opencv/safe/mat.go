// Package safe wraps gocv.Mat as a surface.Surface that tolerates use
// after Close.
package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"denoisefx/internal/surface"
)

// FrameType is the pixel layout every staging and output surface uses.
const FrameType = gocv.MatTypeCV8UC3

// Mat is a native frame with an identity and a validity flag. Once closed
// it reports zero size and an empty Mat instead of touching freed memory.
type Mat struct {
	mu    sync.RWMutex
	mat   gocv.Mat
	valid atomic.Bool
	id    uint64
	tag   string
}

var _ surface.Surface = (*Mat)(nil)

var nextID atomic.Uint64

// NewTaggedMat allocates a rows x cols Mat. tag shows up in diagnostics.
func NewTaggedMat(rows, cols int, matType gocv.MatType, tag string) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, "allocate"); err != nil {
		return nil, err
	}

	mat := gocv.NewMatWithSize(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("allocate %dx%d %s frame failed", cols, rows, tag)
	}
	return wrap(mat, tag), nil
}

// Adopt takes ownership of mat without copying it.
func Adopt(mat gocv.Mat, tag string) (*Mat, error) {
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("adopt %s: Mat is empty", tag)
	}
	return wrap(mat, tag), nil
}

func wrap(mat gocv.Mat, tag string) *Mat {
	m := &Mat{mat: mat, id: nextID.Add(1), tag: tag}
	m.valid.Store(true)
	runtime.SetFinalizer(m, (*Mat).Close)
	return m
}

// From unwraps a surface produced by this package.
func From(s surface.Surface) (*Mat, error) {
	if s == nil {
		return nil, fmt.Errorf("surface is nil")
	}
	m, ok := s.(*Mat)
	if !ok {
		return nil, fmt.Errorf("surface %T is not backed by an OpenCV Mat", s)
	}
	return m, nil
}

func (m *Mat) IsValid() bool { return m.valid.Load() }

func (m *Mat) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.IsValid() || m.mat.Empty()
}

func (m *Mat) Rows() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.IsValid() {
		return 0
	}
	return m.mat.Rows()
}

func (m *Mat) Cols() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.IsValid() {
		return 0
	}
	return m.mat.Cols()
}

func (m *Mat) Width() int { return m.Cols() }
func (m *Mat) Height() int { return m.Rows() }

// Type reports FrameType once the Mat is closed.
func (m *Mat) Type() gocv.MatType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.IsValid() {
		return FrameType
	}
	return m.mat.Type()
}

func (m *Mat) Tag() string { return m.tag }

func (m *Mat) ID() uint64 { return m.id }

// GetMat exposes the native Mat as a gocv source argument. Callers must
// not close it.
func (m *Mat) GetMat() gocv.Mat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mat
}

// Ptr exposes the native Mat as a gocv destination argument.
func (m *Mat) Ptr() *gocv.Mat {
	return &m.mat
}

func (m *Mat) ByteSize() int64 {
	return int64(m.Rows()) * int64(m.Cols()) * int64(MatTypeSize(m.Type()))
}

// Close frees the native Mat. It is safe to call more than once.
func (m *Mat) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid.CompareAndSwap(true, false) {
		m.mat.Close()
		runtime.SetFinalizer(m, nil)
	}
}

// MatTypeSize returns bytes per pixel for the 8-bit layouts frames use.
func MatTypeSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	default:
		return 1
	}
}
