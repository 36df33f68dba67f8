//go:build cuda

package cudadenoise

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/cuda"

	"denoisefx/internal/opencv/safe"
)

// Probe requires at least one CUDA device visible to OpenCV.
func Probe() error {
	if n := cuda.GetCudaEnabledDeviceCount(); n < 1 {
		return fmt.Errorf("%w: no CUDA device found", ErrNotAvailable)
	}
	return nil
}

// gpuEngine smooths frames with a Gaussian filter on the device. The CUDA
// filter works on four-channel images, so frames go through BGRA.
type gpuEngine struct {
	filter cuda.GaussianFilter
	in     cuda.GpuMat
	bgra   cuda.GpuMat
	smooth cuda.GpuMat
	out    cuda.GpuMat
}

func newEngine(strong bool) (engine, error) {
	if cuda.GetCudaEnabledDeviceCount() < 1 {
		return nil, ErrNotAvailable
	}

	ksize, sigma := image.Pt(3, 3), 0.8
	if strong {
		ksize, sigma = image.Pt(5, 5), 1.5
	}

	return &gpuEngine{
		filter: cuda.NewGaussianFilter(gocv.MatTypeCV8UC4, gocv.MatTypeCV8UC4, ksize, sigma),
		in:     cuda.NewGpuMat(),
		bgra:   cuda.NewGpuMat(),
		smooth: cuda.NewGpuMat(),
		out:    cuda.NewGpuMat(),
	}, nil
}

func (e *gpuEngine) process(src, dst *safe.Mat) error {
	e.in.Upload(src.GetMat())
	cuda.CvtColor(e.in, &e.bgra, gocv.ColorBGRToBGRA)
	e.filter.Apply(e.bgra, &e.smooth)
	cuda.CvtColor(e.smooth, &e.out, gocv.ColorBGRAToBGR)
	e.out.Download(dst.Ptr())

	if dst.Empty() {
		return fmt.Errorf("download produced an empty frame")
	}
	return nil
}

func (e *gpuEngine) close() {
	e.filter.Close()
	e.in.Close()
	e.bgra.Close()
	e.smooth.Close()
	e.out.Close()
}
