// Package sink provides filter outputs that consume rendered frames.
package sink

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"denoisefx/internal/logger"
	"denoisefx/internal/opencv/conversion"
	"denoisefx/internal/opencv/safe"
	"denoisefx/internal/surface"
)

const component = "sink"

// Encode writes img to w as png or jpeg. Unknown formats fall back to png.
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	default:
		return png.Encode(w, img)
	}
}

// FormatFromPath picks an encoding from a file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	default:
		return "png"
	}
}

// Counter tallies draws and skips. It is safe for concurrent use.
type Counter struct {
	mu    sync.Mutex
	draws int
	skips int
}

func (c *Counter) Skip() {
	c.mu.Lock()
	c.skips++
	c.mu.Unlock()
}

func (c *Counter) Draw(surface.Surface, surface.Size) {
	c.mu.Lock()
	c.draws++
	c.mu.Unlock()
}

// Counts returns the number of draws and skips seen so far.
func (c *Counter) Counts() (draws, skips int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draws, c.skips
}

// Writer saves every Nth drawn frame into a directory.
type Writer struct {
	dir    string
	every  int
	format string
	log    logger.Logger

	mu     sync.Mutex
	drawn  int
	saved  int
	failed int
}

func NewWriter(dir string, every int, format string, log logger.Logger) (*Writer, error) {
	if every < 1 {
		every = 1
	}
	if format == "" {
		format = "png"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Writer{dir: dir, every: every, format: format, log: logger.OrNop(log)}, nil
}

func (w *Writer) Skip() {}

func (w *Writer) Draw(s surface.Surface, size surface.Size) {
	w.mu.Lock()
	w.drawn++
	n := w.drawn
	w.mu.Unlock()

	if (n-1)%w.every != 0 {
		return
	}

	path := filepath.Join(w.dir, fmt.Sprintf("frame-%06d.%s", n, extension(w.format)))
	if err := w.save(path, s); err != nil {
		w.mu.Lock()
		w.failed++
		w.mu.Unlock()
		w.log.Error(component, err, map[string]interface{}{
			"message": "save frame failed",
			"path":    path,
		})
		return
	}

	w.mu.Lock()
	w.saved++
	w.mu.Unlock()
	w.log.Debug(component, "frame saved", map[string]interface{}{
		"path":   path,
		"width":  size.Width,
		"height": size.Height,
	})
}

func (w *Writer) save(path string, s surface.Surface) error {
	mat, err := safe.From(s)
	if err != nil {
		return err
	}
	img, err := conversion.MatToImage(mat)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, w.format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Saved reports how many frames were written.
func (w *Writer) Saved() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saved
}

func extension(format string) string {
	if format == "jpeg" || format == "jpg" {
		return "jpg"
	}
	return "png"
}

// Output is the subset of filter.Output a Tee fans out to.
type Output interface {
	Skip()
	Draw(s surface.Surface, size surface.Size)
}

// Tee forwards every call to each output in order.
type Tee []Output

func (t Tee) Skip() {
	for _, o := range t {
		o.Skip()
	}
}

func (t Tee) Draw(s surface.Surface, size surface.Size) {
	for _, o := range t {
		o.Draw(s, size)
	}
}
