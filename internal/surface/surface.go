// Package surface defines the opaque 2D image handle passed between frame
// sources, the frame buffer and processing providers.
//
// Filter code only ever sees these interfaces. The gocv-backed implementation
// lives in internal/opencv.
package surface

// Surface is a 2D image owned by whoever allocated it.
type Surface interface {
	Width() int
	Height() int
	IsValid() bool
	Close()
}

// Allocator hands out surfaces of a given size and takes them back for reuse.
type Allocator interface {
	Allocate(width, height int) (Surface, error)
	Release(s Surface)
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Clamped returns s with each dimension raised to at least 1.
func (s Size) Clamped() Size {
	return Size{Width: max(s.Width, 1), Height: max(s.Height, 1)}
}
