package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDString(t *testing.T) {
	assert.Equal(t, "N/A", Invalid.String())
	assert.Equal(t, "Automatic", Automatic.String())
	assert.Equal(t, "CUDA Denoising", CUDA.String())
	assert.Equal(t, "Non-Local Means", NLMeans.String())
	assert.Equal(t, "Unknown", ID(42).String())
}

func TestIsConcrete(t *testing.T) {
	assert.False(t, Invalid.IsConcrete())
	assert.False(t, Automatic.IsConcrete())
	assert.True(t, CUDA.IsConcrete())
	assert.True(t, NLMeans.IsConcrete())
}

func TestPersistedValuesAreStable(t *testing.T) {
	assert.Equal(t, ID(0), Automatic)
	assert.Equal(t, ID(1), CUDA)
	assert.Equal(t, ID(2), NLMeans)
}
