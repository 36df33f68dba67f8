// Package source provides upstream frame producers for a filter instance:
// still images, synthetic test patterns and video files or devices.
package source

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"denoisefx/internal/filter"
	"denoisefx/internal/logger"
	"denoisefx/internal/surface"
)

const component = "source"

// Options selects and shapes a source.
type Options struct {
	// Path is an image file, a video file or a numeric camera index.
	// Empty means a synthetic test pattern.
	Path string
	// Width and Height size the test pattern and, when both are set,
	// override the size reported by image and video sources.
	Width  int
	Height int
	// Noise is the standard deviation of Gaussian noise added per frame.
	Noise float64
}

// Closer is a filter.Source holding native resources.
type Closer interface {
	filter.Source
	Close() error
}

var videoExt = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".webm": true, ".m4v": true,
}

// Open picks the source kind from opts.Path.
func Open(opts Options, log logger.Logger) (Closer, error) {
	log = logger.OrNop(log)

	switch {
	case opts.Path == "":
		return NewPattern(opts)
	case isDevice(opts.Path) || videoExt[strings.ToLower(filepath.Ext(opts.Path))]:
		return OpenVideo(opts, log)
	default:
		return OpenImage(opts)
	}
}

func isDevice(path string) bool {
	_, err := strconv.Atoi(path)
	return err == nil
}

func override(opts Options, native surface.Size) surface.Size {
	if opts.Width > 0 && opts.Height > 0 {
		return surface.Size{Width: opts.Width, Height: opts.Height}
	}
	return native
}

func describe(opts Options) string {
	if opts.Path == "" {
		return fmt.Sprintf("pattern %dx%d", opts.Width, opts.Height)
	}
	return opts.Path
}
