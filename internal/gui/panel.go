package gui

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
)

// ChangeHandler is called with the key and new value of an edited property.
// Integer lists report int64, ranges report float64.
type ChangeHandler func(key string, value interface{})

// ParameterPanel renders a schema.Collector as fyne widgets.
type ParameterPanel struct {
	container *fyne.Container
	onChange  ChangeHandler
}

func NewParameterPanel(onChange ChangeHandler) *ParameterPanel {
	return &ParameterPanel{
		container: container.NewVBox(),
		onChange:  onChange,
	}
}

func (pp *ParameterPanel) GetContainer() *fyne.Container {
	return pp.container
}

// Rebuild replaces the panel contents. Widgets start at the values in current.
func (pp *ParameterPanel) Rebuild(props *schema.Collector, current settings.Reader) {
	pp.container.RemoveAll()
	for _, p := range props.Properties {
		pp.container.Add(pp.build(p, current))
	}
	pp.container.Refresh()
}

func (pp *ParameterPanel) build(p *schema.Property, current settings.Reader) fyne.CanvasObject {
	switch p.Kind {
	case schema.KindGroup:
		box := container.NewVBox()
		for _, child := range p.Children {
			box.Add(pp.build(child, current))
		}
		return widget.NewCard(p.Label, "", box)
	case schema.KindIntList:
		return pp.intList(p, current)
	default:
		return pp.floatRange(p, current)
	}
}

func (pp *ParameterPanel) intList(p *schema.Property, current settings.Reader) fyne.CanvasObject {
	labels := make([]string, len(p.Options))
	values := make(map[string]int64, len(p.Options))
	selected := ""
	value := current.GetInt(p.Key)
	for i, o := range p.Options {
		labels[i] = o.Label
		values[o.Label] = o.Value
		if o.Value == value {
			selected = o.Label
		}
	}

	sel := widget.NewSelect(labels, nil)
	if selected != "" {
		sel.SetSelected(selected)
	}
	sel.OnChanged = func(label string) {
		if pp.onChange != nil {
			pp.onChange(p.Key, values[label])
		}
	}
	return container.NewVBox(widget.NewLabel(p.Label), sel)
}

func (pp *ParameterPanel) floatRange(p *schema.Property, current settings.Reader) fyne.CanvasObject {
	value := current.GetDouble(p.Key)

	slider := widget.NewSlider(p.Min, p.Max)
	if p.Step > 0 {
		slider.Step = p.Step
	}
	slider.SetValue(value)

	label := widget.NewLabel(p.Label + ": " + strconv.FormatFloat(value, 'f', 1, 64))
	slider.OnChanged = func(v float64) {
		label.SetText(p.Label + ": " + strconv.FormatFloat(v, 'f', 1, 64))
	}
	slider.OnChangeEnded = func(v float64) {
		if pp.onChange != nil {
			pp.onChange(p.Key, v)
		}
	}
	return container.NewVBox(label, slider)
}
