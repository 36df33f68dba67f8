// Package framebuffer holds the input staging surface of a filter instance
// and a reference to its most recent output.
package framebuffer

import (
	"fmt"
	"sync"

	"denoisefx/internal/surface"
)

// Buffer owns its input surface. The output is a back-reference only: it
// belongs to whoever produced it (the buffer itself for pass-through, a
// provider otherwise) and is never released here.
type Buffer struct {
	mu     sync.Mutex
	alloc  surface.Allocator
	input  surface.Surface
	output surface.Surface
	size   surface.Size
}

// New preallocates a 1x1 input so the first real Render only resizes.
func New(alloc surface.Allocator) (*Buffer, error) {
	b := &Buffer{alloc: alloc}
	if err := b.Render(1, 1); err != nil {
		return nil, err
	}
	b.output = b.input
	return b, nil
}

// Render makes the input surface width x height, reallocating only when
// the size changes, and returns it via Input.
func (b *Buffer) Render(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid framebuffer size %dx%d", width, height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.input != nil && b.size.Width == width && b.size.Height == height {
		return nil
	}

	s, err := b.alloc.Allocate(width, height)
	if err != nil {
		return fmt.Errorf("failed to allocate %dx%d input: %w", width, height, err)
	}

	if b.input != nil {
		if b.output == b.input {
			b.output = s
		}
		b.alloc.Release(b.input)
	}
	b.input = s
	b.size = surface.Size{Width: width, Height: height}
	return nil
}

func (b *Buffer) Input() surface.Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.input
}

func (b *Buffer) SetOutput(s surface.Surface) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.output = s
}

func (b *Buffer) Output() surface.Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.output
}

func (b *Buffer) Size() surface.Size {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Close releases the input surface and drops the output reference.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.input != nil {
		b.alloc.Release(b.input)
		b.input = nil
	}
	b.output = nil
	b.size = surface.Size{}
}
