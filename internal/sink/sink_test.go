package sink

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denoisefx/internal/surface"
)

type plainSurface struct{ w, h int }

func (p plainSurface) Width() int { return p.w }
func (p plainSurface) Height() int { return p.h }
func (p plainSurface) IsValid() bool { return true }
func (p plainSurface) Close() {}

func TestEncodeFallsBackToPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, "tiff"))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "jpeg", FormatFromPath("out/frame.JPG"))
	assert.Equal(t, "jpeg", FormatFromPath("frame.jpeg"))
	assert.Equal(t, "png", FormatFromPath("frame.png"))
	assert.Equal(t, "png", FormatFromPath("frame"))
}

func TestTeeFansOut(t *testing.T) {
	a, b := &Counter{}, &Counter{}
	tee := Tee{a, b}

	tee.Skip()
	tee.Draw(plainSurface{2, 2}, surface.Size{Width: 2, Height: 2})
	tee.Draw(plainSurface{2, 2}, surface.Size{Width: 2, Height: 2})

	for _, c := range []*Counter{a, b} {
		draws, skips := c.Counts()
		assert.Equal(t, 2, draws)
		assert.Equal(t, 1, skips)
	}
}

func TestWriterRejectsForeignSurface(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 1, "", nil)
	require.NoError(t, err)

	w.Draw(plainSurface{4, 4}, surface.Size{Width: 4, Height: 4})
	assert.Zero(t, w.Saved())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
