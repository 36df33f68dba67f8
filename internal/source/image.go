package source

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"denoisefx/internal/opencv/conversion"
	"denoisefx/internal/opencv/safe"
	"denoisefx/internal/surface"
)

// Still serves the same picture every frame, optionally with fresh noise.
type Still struct {
	mu    sync.Mutex
	base  *safe.Mat
	noise gocv.Mat
	frame gocv.Mat
	sigma float64
	size  surface.Size
	name  string
}

// OpenImage loads an image file as a still source.
func OpenImage(opts Options) (*Still, error) {
	mat := gocv.IMRead(opts.Path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to read image %s", opts.Path)
	}
	base, err := safe.Adopt(mat, "source")
	if err != nil {
		return nil, err
	}
	return newStill(base, opts), nil
}

// NewPattern builds a synthetic colour chart of opts.Width x opts.Height.
func NewPattern(opts Options) (*Still, error) {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = 640, 360
	}

	base, err := safe.NewTaggedMat(h, w, safe.FrameType, "pattern")
	if err != nil {
		return nil, err
	}
	drawPattern(base.Ptr(), w, h)

	opts.Width, opts.Height = w, h
	return newStill(base, opts), nil
}

func newStill(base *safe.Mat, opts Options) *Still {
	return &Still{
		base:  base,
		noise: gocv.NewMat(),
		frame: gocv.NewMat(),
		sigma: opts.Noise,
		size:  override(opts, surface.Size{Width: base.Width(), Height: base.Height()}),
		name:  describe(opts),
	}
}

var patternColors = []color.RGBA{
	{R: 235, G: 235, B: 235, A: 255},
	{R: 235, G: 235, B: 16, A: 255},
	{R: 16, G: 235, B: 235, A: 255},
	{R: 16, G: 235, B: 16, A: 255},
	{R: 235, G: 16, B: 235, A: 255},
	{R: 235, G: 16, B: 16, A: 255},
	{R: 16, G: 16, B: 235, A: 255},
}

func drawPattern(m *gocv.Mat, w, h int) {
	bar := w / len(patternColors)
	for i, c := range patternColors {
		r := image.Rect(i*bar, 0, (i+1)*bar, h*2/3)
		gocv.Rectangle(m, r, c, -1)
	}
	gocv.Rectangle(m, image.Rect(0, h*2/3, w, h), color.RGBA{R: 32, G: 32, B: 32, A: 255}, -1)
	gocv.Circle(m, image.Pt(w/2, h*5/6), h/8, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 2)
}

func (s *Still) Size() surface.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *Still) Capture(dst surface.Surface) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.base.IsValid() {
		return false
	}
	out, err := safe.From(dst)
	if err != nil {
		return false
	}

	src := s.base.GetMat()
	if s.sigma > 0 {
		if s.noise.Rows() != src.Rows() || s.noise.Cols() != src.Cols() {
			s.noise.Close()
			s.noise = gocv.NewMatWithSize(src.Rows(), src.Cols(), safe.FrameType)
		}
		gocv.RandN(&s.noise, gocv.NewScalar(128, 128, 128, 0), gocv.NewScalar(s.sigma, s.sigma, s.sigma, 0))
		gocv.AddWeighted(src, 1, s.noise, 1, -128, &s.frame)
		src = s.frame
	}

	return conversion.ResizeInto(src, out) == nil
}

func (s *Still) String() string { return s.name }

func (s *Still) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base.Close()
	s.noise.Close()
	s.frame.Close()
	return nil
}
