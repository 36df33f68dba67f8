package cudadenoise

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"denoisefx/internal/provider"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

func TestResizeAlignsToSixteen(t *testing.T) {
	d := New(nil, nil)

	assert.Equal(t, surface.Size{Width: 1920, Height: 1088}, d.Resize(surface.Size{Width: 1920, Height: 1080}))
	assert.Equal(t, surface.Size{Width: 16, Height: 16}, d.Resize(surface.Size{Width: 1, Height: 1}))
	assert.Equal(t, surface.Size{}, d.Resize(surface.Size{}))
}

func TestProcessWithoutLoadReturnsNil(t *testing.T) {
	d := New(nil, nil)
	assert.Nil(t, d.Process(nil))
	assert.ErrorIs(t, d.Unload(), provider.ErrNotLoaded)
}

func TestConfigureNormalizesStrength(t *testing.T) {
	d := New(nil, nil)

	s := settings.New()
	s.SetInt(KeyStrength, StrengthWeak)
	d.Configure(s)
	assert.Equal(t, StrengthWeak, d.strength)

	s.SetInt(KeyStrength, 7)
	d.Configure(s)
	assert.Equal(t, StrengthStrong, d.strength)
}

func TestDefaultsAndUI(t *testing.T) {
	d := New(nil, nil)

	s := settings.New()
	d.Defaults(s)
	assert.Equal(t, StrengthStrong, s.GetInt(KeyStrength))

	var c schema.Collector
	d.DescribeUI(&c)
	p := c.Find(KeyStrength)
	if assert.NotNil(t, p) {
		assert.Len(t, p.Options, 2)
	}
}
