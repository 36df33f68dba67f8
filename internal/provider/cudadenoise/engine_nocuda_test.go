//go:build !cuda

package cudadenoise

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"denoisefx/internal/opencv/memory"
)

func TestUnavailableWithoutBuildTag(t *testing.T) {
	assert.ErrorIs(t, Probe(), ErrNotAvailable)

	d := New(memory.NewManager(nil), nil)
	assert.ErrorIs(t, d.Load(), ErrNotAvailable)
	assert.Nil(t, d.Process(nil))
}
