package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsAndOverrides(t *testing.T) {
	d := New()
	d.SetDefaultInt("Provider", 0)
	d.SetDefaultDouble("NLMeans.Strength", 10)

	assert.True(t, d.Has("Provider"))
	assert.Equal(t, int64(0), d.GetInt("Provider"))
	assert.Equal(t, 10.0, d.GetDouble("NLMeans.Strength"))

	d.SetInt("Provider", 2)
	assert.Equal(t, int64(2), d.GetInt("Provider"))
}

func TestMissingKeysReadAsZero(t *testing.T) {
	d := New()
	assert.False(t, d.Has("nope"))
	assert.Zero(t, d.GetInt("nope"))
	assert.Zero(t, d.GetDouble("nope"))
	assert.False(t, d.GetBool("nope"))
}

func TestFromMapCoercesNumbers(t *testing.T) {
	d := FromMap(map[string]interface{}{
		"Provider":         int64(1),
		"NLMeans.Strength": 7.6,
		"Enabled":          true,
	})

	assert.Equal(t, int64(1), d.GetInt("Provider"))
	assert.Equal(t, 1.0, d.GetDouble("Provider"))
	assert.Equal(t, int64(8), d.GetInt("NLMeans.Strength"))
	assert.True(t, d.GetBool("Enabled"))
}

func TestSnapshotIsDetached(t *testing.T) {
	d := New()
	d.SetInt("Provider", 1)
	snap := d.Snapshot()
	d.SetInt("Provider", 2)

	assert.Equal(t, int64(1), snap.GetInt("Provider"))
	assert.Equal(t, int64(2), d.GetInt("Provider"))
}
