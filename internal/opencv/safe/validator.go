package safe

import (
	"fmt"
)

// MaxDimension bounds either side of a frame.
const MaxDimension = 16384

func ValidateMatForOperation(mat *Mat, operation string) error {
	switch {
	case mat == nil:
		return fmt.Errorf("%s: frame is nil", operation)
	case !mat.IsValid():
		return fmt.Errorf("%s: frame is closed", operation)
	case mat.Empty():
		return fmt.Errorf("%s: frame is empty", operation)
	}
	return nil
}

// ValidateDimensions rejects empty sizes and anything beyond MaxDimension.
func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%s: invalid size %dx%d", operation, width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%s: size %dx%d exceeds %d", operation, width, height, MaxDimension)
	}
	return nil
}

// ValidateFrame checks that mat can be handed to a provider as a colour frame.
func ValidateFrame(mat *Mat, operation string) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}
	if mat.Type() != FrameType {
		return fmt.Errorf("%s: Mat type %d is not a BGR frame", operation, mat.Type())
	}
	return nil
}
