package conversion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"denoisefx/internal/opencv/safe"
)

// MatToImage converts a BGR frame into a standard Go image for display or encoding.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	img, err := src.GetMat().ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat to image conversion failed: %w", err)
	}
	return img, nil
}

// ImageToMat converts a standard Go image into an owned BGR frame.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	if err := safe.ValidateDimensions(bounds.Dx(), bounds.Dy(), "image to Mat conversion"); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("image to Mat conversion failed: %w", err)
	}
	return safe.Adopt(mat, "image")
}

// ResizeInto scales src to fill dst, converting grey or BGRA input to BGR first.
func ResizeInto(src gocv.Mat, dst *safe.Mat) error {
	if src.Empty() {
		return fmt.Errorf("source frame is empty")
	}
	if err := safe.ValidateMatForOperation(dst, "resize"); err != nil {
		return err
	}

	bgr := src
	switch src.Channels() {
	case 3:
	case 1:
		converted := gocv.NewMat()
		defer converted.Close()
		gocv.CvtColor(src, &converted, gocv.ColorGrayToBGR)
		bgr = converted
	case 4:
		converted := gocv.NewMat()
		defer converted.Close()
		gocv.CvtColor(src, &converted, gocv.ColorBGRAToBGR)
		bgr = converted
	default:
		return fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	if bgr.Cols() == dst.Cols() && bgr.Rows() == dst.Rows() {
		bgr.CopyTo(dst.Ptr())
		return nil
	}

	gocv.Resize(bgr, dst.Ptr(), image.Pt(dst.Cols(), dst.Rows()), 0, 0, gocv.InterpolationLinear)
	return nil
}
