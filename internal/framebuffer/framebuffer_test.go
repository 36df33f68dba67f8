package framebuffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denoisefx/internal/surface"
)

type fakeSurface struct {
	w, h   int
	closed bool
}

func (f *fakeSurface) Width() int { return f.w }
func (f *fakeSurface) Height() int { return f.h }
func (f *fakeSurface) IsValid() bool { return !f.closed }
func (f *fakeSurface) Close() { f.closed = true }

type fakeAllocator struct {
	allocated []*fakeSurface
	released  []surface.Surface
	fail      bool
}

func (a *fakeAllocator) Allocate(w, h int) (surface.Surface, error) {
	if a.fail {
		return nil, errors.New("out of memory")
	}
	s := &fakeSurface{w: w, h: h}
	a.allocated = append(a.allocated, s)
	return s, nil
}

func (a *fakeAllocator) Release(s surface.Surface) {
	a.released = append(a.released, s)
	s.Close()
}

func TestNewPreallocates(t *testing.T) {
	alloc := &fakeAllocator{}
	b, err := New(alloc)
	require.NoError(t, err)

	assert.Len(t, alloc.allocated, 1)
	assert.Equal(t, surface.Size{Width: 1, Height: 1}, b.Size())
	assert.Same(t, b.Input(), b.Output())
}

func TestNewFailsWhenAllocationFails(t *testing.T) {
	_, err := New(&fakeAllocator{fail: true})
	assert.Error(t, err)
}

func TestRenderReusesSameSize(t *testing.T) {
	alloc := &fakeAllocator{}
	b, err := New(alloc)
	require.NoError(t, err)

	require.NoError(t, b.Render(64, 32))
	first := b.Input()
	require.NoError(t, b.Render(64, 32))

	assert.Same(t, first, b.Input())
	assert.Len(t, alloc.allocated, 2)
	assert.Len(t, alloc.released, 1)
}

func TestRenderMovesPassThroughOutput(t *testing.T) {
	alloc := &fakeAllocator{}
	b, err := New(alloc)
	require.NoError(t, err)

	require.NoError(t, b.Render(8, 8))
	assert.Same(t, b.Input(), b.Output())
}

func TestRenderKeepsForeignOutput(t *testing.T) {
	alloc := &fakeAllocator{}
	b, err := New(alloc)
	require.NoError(t, err)

	produced := &fakeSurface{w: 4, h: 4}
	b.SetOutput(produced)
	require.NoError(t, b.Render(8, 8))

	assert.Same(t, produced, b.Output())
	assert.False(t, produced.closed)
}

func TestRenderRejectsEmptySize(t *testing.T) {
	b, err := New(&fakeAllocator{})
	require.NoError(t, err)
	assert.Error(t, b.Render(0, 10))
}

func TestCloseReleasesInputOnly(t *testing.T) {
	alloc := &fakeAllocator{}
	b, err := New(alloc)
	require.NoError(t, err)

	produced := &fakeSurface{w: 4, h: 4}
	b.SetOutput(produced)
	b.Close()

	assert.Nil(t, b.Input())
	assert.Nil(t, b.Output())
	assert.False(t, produced.closed)
	assert.True(t, alloc.allocated[0].closed)
}
