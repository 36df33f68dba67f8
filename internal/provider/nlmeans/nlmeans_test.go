package nlmeans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denoisefx/internal/opencv/memory"
	"denoisefx/internal/provider"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

func TestProcessBeforeLoadReturnsNil(t *testing.T) {
	mgr := memory.NewManager(nil)
	defer mgr.Shutdown()

	d := New(mgr, nil)
	in, err := mgr.Allocate(16, 16)
	require.NoError(t, err)

	assert.Nil(t, d.Process(in))
	assert.ErrorIs(t, d.Unload(), provider.ErrNotLoaded)
}

func TestProcessProducesOwnedOutput(t *testing.T) {
	mgr := memory.NewManager(nil)
	defer mgr.Shutdown()

	d := New(mgr, nil)
	require.NoError(t, d.Load())

	in, err := mgr.Allocate(32, 24)
	require.NoError(t, err)
	defer mgr.Release(in)

	out := d.Process(in)
	require.NotNil(t, out)
	assert.Equal(t, 32, out.Width())
	assert.Equal(t, 24, out.Height())
	assert.NotSame(t, in, out)

	// Same size reuses the output surface.
	assert.Same(t, out, d.Process(in))

	require.NoError(t, d.Unload())
	assert.Nil(t, d.Process(in))
}

func TestResizeIsIdentity(t *testing.T) {
	d := New(nil, nil)
	size := surface.Size{Width: 1921, Height: 1081}
	assert.Equal(t, size, d.Resize(size))
}

func TestLoadRequiresAllocator(t *testing.T) {
	assert.Error(t, New(nil, nil).Load())
}

func TestConfigure(t *testing.T) {
	d := New(nil, nil)

	s := settings.New()
	s.SetDouble(KeyStrength, 250)
	s.SetInt(KeyTemplateWindow, 4)
	s.SetInt(KeySearchWindow, 15)
	d.Configure(s)

	assert.Equal(t, float32(100), d.strength)
	assert.Equal(t, defaultTemplateWindow, d.templateWindow)
	assert.Equal(t, 15, d.searchWindow)
}

func TestDefaultsAndUI(t *testing.T) {
	d := New(nil, nil)

	s := settings.New()
	d.Defaults(s)
	assert.Equal(t, defaultStrength, s.GetDouble(KeyStrength))
	assert.Equal(t, int64(7), s.GetInt(KeyTemplateWindow))
	assert.Equal(t, int64(21), s.GetInt(KeySearchWindow))

	var c schema.Collector
	d.DescribeUI(&c)
	require.NotNil(t, c.Find(KeyStrength))
	tw := c.Find(KeyTemplateWindow)
	require.NotNil(t, tw)
	assert.Equal(t, int64(3), tw.Options[0].Value)
	assert.Equal(t, int64(11), tw.Options[len(tw.Options)-1].Value)
}

func TestProbe(t *testing.T) {
	assert.NoError(t, Probe())
}
