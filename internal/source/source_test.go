package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denoisefx/internal/opencv/memory"
	"denoisefx/internal/surface"
)

func TestPatternSizeAndCapture(t *testing.T) {
	src, err := Open(Options{Width: 96, Height: 54, Noise: 12}, nil)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, surface.Size{Width: 96, Height: 54}, src.Size())

	mgr := memory.NewManager(nil)
	defer mgr.Shutdown()

	dst, err := mgr.Allocate(48, 27)
	require.NoError(t, err)
	assert.True(t, src.Capture(dst))
	assert.Equal(t, 48, dst.Width())
}

func TestPatternDefaultsSize(t *testing.T) {
	src, err := NewPattern(Options{})
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, surface.Size{Width: 640, Height: 360}, src.Size())
}

func TestCaptureRejectsForeignSurface(t *testing.T) {
	src, err := NewPattern(Options{Width: 16, Height: 16})
	require.NoError(t, err)
	defer src.Close()

	assert.False(t, src.Capture(nil))
}

func TestOpenMissingImage(t *testing.T) {
	_, err := Open(Options{Path: "does-not-exist.png"}, nil)
	assert.Error(t, err)
}

func TestIsDevice(t *testing.T) {
	assert.True(t, isDevice("0"))
	assert.False(t, isDevice("clip.mp4"))
}
