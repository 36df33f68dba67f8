package source

import (
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"denoisefx/internal/logger"
	"denoisefx/internal/opencv/conversion"
	"denoisefx/internal/opencv/safe"
	"denoisefx/internal/surface"
)

// Video reads frames from a file or capture device. Files loop at the end.
type Video struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	size    surface.Size
	device  bool
	name    string
	log     logger.Logger
}

func OpenVideo(opts Options, log logger.Logger) (*Video, error) {
	var target interface{} = opts.Path
	device := false
	if n, err := strconv.Atoi(opts.Path); err == nil {
		target = n
		device = true
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", opts.Path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video %s could not be opened", opts.Path)
	}

	native := surface.Size{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}

	v := &Video{
		capture: vc,
		frame:   gocv.NewMat(),
		size:    override(opts, native),
		device:  device,
		name:    describe(opts),
		log:     logger.OrNop(log),
	}
	v.log.Info(component, "video opened", map[string]interface{}{
		"source": v.name,
		"width":  native.Width,
		"height": native.Height,
		"fps":    vc.Get(gocv.VideoCaptureFPS),
	})
	return v, nil
}

func (v *Video) Size() surface.Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

// Capture reads the next frame. At end of file it rewinds and tries once more.
func (v *Video) Capture(dst surface.Surface) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	out, err := safe.From(dst)
	if err != nil {
		return false
	}

	if !v.capture.Read(&v.frame) || v.frame.Empty() {
		if v.device {
			return false
		}
		v.capture.Set(gocv.VideoCapturePosFrames, 0)
		if !v.capture.Read(&v.frame) || v.frame.Empty() {
			return false
		}
	}

	return conversion.ResizeInto(v.frame, out) == nil
}

func (v *Video) String() string { return v.name }

func (v *Video) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame.Close()
	return v.capture.Close()
}
