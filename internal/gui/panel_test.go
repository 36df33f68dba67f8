package gui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
)

func collectWidgets[T fyne.CanvasObject](obj fyne.CanvasObject, out *[]T) {
	if w, ok := obj.(T); ok {
		*out = append(*out, w)
	}
	switch o := obj.(type) {
	case *fyne.Container:
		for _, child := range o.Objects {
			collectWidgets(child, out)
		}
	case *widget.Card:
		if o.Content != nil {
			collectWidgets(o.Content, out)
		}
	}
}

func TestParameterPanelReportsChanges(t *testing.T) {
	test.NewTempApp(t)

	props := &schema.Collector{}
	props.Group("NLMeans", "Non-Local Means").FloatRange("NLMeans.Strength", "Strength", 0, 100, 0.5)
	props.Group("Advanced", "Advanced").IntList("Provider", "Provider", []schema.Option{
		{Label: "Automatic", Value: 0},
		{Label: "Non-Local Means", Value: 2},
	})

	current := settings.FromMap(map[string]interface{}{"Provider": int64(0), "NLMeans.Strength": 10.0})

	changes := map[string]interface{}{}
	panel := NewParameterPanel(func(key string, value interface{}) { changes[key] = value })
	panel.Rebuild(props, current)

	var selects []*widget.Select
	var sliders []*widget.Slider
	collectWidgets(panel.GetContainer(), &selects)
	collectWidgets(panel.GetContainer(), &sliders)
	require.Len(t, selects, 1)
	require.Len(t, sliders, 1)

	assert.Equal(t, "Automatic", selects[0].Selected)
	assert.Equal(t, 10.0, sliders[0].Value)

	selects[0].SetSelected("Non-Local Means")
	assert.Equal(t, int64(2), changes["Provider"])

	sliders[0].OnChangeEnded(25)
	assert.Equal(t, 25.0, changes["NLMeans.Strength"])
}

func TestParameterPanelRebuildReplacesContent(t *testing.T) {
	test.NewTempApp(t)

	panel := NewParameterPanel(nil)
	first := &schema.Collector{}
	first.IntList("A", "A", nil)
	first.IntList("B", "B", nil)
	panel.Rebuild(first, settings.New())
	assert.Len(t, panel.GetContainer().Objects, 2)

	panel.Rebuild(&schema.Collector{}, settings.New())
	assert.Empty(t, panel.GetContainer().Objects)
}
