//go:build !cuda

package cudadenoise

// Probe always fails without the cuda build tag.
func Probe() error {
	return ErrNotAvailable
}

func newEngine(bool) (engine, error) {
	return nil, ErrNotAvailable
}
