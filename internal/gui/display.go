package gui

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"denoisefx/internal/filter"
	"denoisefx/internal/logger"
	"denoisefx/internal/opencv/conversion"
	"denoisefx/internal/opencv/safe"
	"denoisefx/internal/surface"
)

const (
	ImageAreaWidth  = 640
	ImageAreaHeight = 360
)

// FrameDisplay is a filter output that shows frames on a canvas. Skipped
// frames are captured straight from the source so the preview keeps moving
// while the filter passes through.
type FrameDisplay struct {
	image  *canvas.Image
	source filter.Source
	alloc  surface.Allocator
	log    logger.Logger

	mu      sync.Mutex
	scratch surface.Surface
	last    string
}

func NewFrameDisplay(src filter.Source, alloc surface.Allocator, log logger.Logger) *FrameDisplay {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleSmooth
	img.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))

	return &FrameDisplay{image: img, source: src, alloc: alloc, log: logger.OrNop(log)}
}

func (d *FrameDisplay) CanvasObject() fyne.CanvasObject { return d.image }

func (d *FrameDisplay) Skip() {
	if d.source == nil || d.alloc == nil {
		return
	}
	size := d.source.Size()
	if size.Empty() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scratch == nil || d.scratch.Width() != size.Width || d.scratch.Height() != size.Height {
		if d.scratch != nil {
			d.alloc.Release(d.scratch)
			d.scratch = nil
		}
		s, err := d.alloc.Allocate(size.Width, size.Height)
		if err != nil {
			d.log.Error("gui", err, map[string]interface{}{"message": "allocate preview surface failed"})
			return
		}
		d.scratch = s
	}
	if !d.source.Capture(d.scratch) {
		return
	}
	d.show(d.scratch, "passthrough")
}

func (d *FrameDisplay) Draw(s surface.Surface, _ surface.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.show(s, "processed")
}

func (d *FrameDisplay) show(s surface.Surface, mode string) {
	mat, err := safe.From(s)
	if err != nil {
		return
	}
	img, err := conversion.MatToImage(mat)
	if err != nil {
		if d.last != err.Error() {
			d.last = err.Error()
			d.log.Warning("gui", "frame conversion failed", map[string]interface{}{"error": err.Error(), "mode": mode})
		}
		return
	}
	d.set(img)
}

func (d *FrameDisplay) set(img image.Image) {
	fyne.Do(func() {
		d.image.Image = img
		d.image.Refresh()
	})
}

// Close releases the passthrough scratch surface.
func (d *FrameDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scratch != nil && d.alloc != nil {
		d.alloc.Release(d.scratch)
	}
	d.scratch = nil
}
