// Package gui hosts a filter instance in a fyne window with live property
// controls built from the instance's schema.
package gui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"denoisefx/internal/filter"
	"denoisefx/internal/logger"
	"denoisefx/internal/provider"
	"denoisefx/internal/runner"
	"denoisefx/internal/schema"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

const (
	AppID   = "io.denoisefx.preview"
	AppName = "denoisefx preview"
)

// Instance is the part of filter.Instance the preview drives.
type Instance interface {
	runner.Target
	Properties(sink schema.Sink)
	Active() provider.ID
	Ready() bool
	Width() int
	Height() int
}

type Options struct {
	Instance Instance
	Settings *settings.Data
	Source   filter.Source
	Alloc    surface.Allocator
	FPS      int
	Log      logger.Logger
}

type Preview struct {
	window  fyne.Window
	inst    Instance
	data    *settings.Data
	display *FrameDisplay
	panel   *ParameterPanel
	status  *widget.Label
	fps     int
	log     logger.Logger
}

func NewPreview(app fyne.App, opts Options) *Preview {
	p := &Preview{
		window: app.NewWindow(AppName),
		inst:   opts.Instance,
		data:   opts.Settings,
		fps:    opts.FPS,
		log:    logger.OrNop(opts.Log),
		status: widget.NewLabel(""),
	}
	if p.data == nil {
		p.data = settings.New()
	}

	p.display = NewFrameDisplay(opts.Source, opts.Alloc, p.log)
	p.panel = NewParameterPanel(p.onChange)
	p.rebuildPanel()

	sidebar := container.NewVScroll(p.panel.GetContainer())
	sidebar.SetMinSize(fyne.NewSize(260, ImageAreaHeight))

	content := container.NewBorder(nil, p.status, nil, sidebar, p.display.CanvasObject())
	p.window.SetContent(content)
	p.window.Resize(fyne.NewSize(ImageAreaWidth+300, ImageAreaHeight+80))
	p.window.CenterOnScreen()
	return p
}

func (p *Preview) Window() fyne.Window { return p.window }

func (p *Preview) onChange(key string, value interface{}) {
	switch v := value.(type) {
	case int64:
		p.data.SetInt(key, v)
	case float64:
		p.data.SetDouble(key, v)
	}
	p.log.Debug("gui", "property changed", map[string]interface{}{"key": key, "value": value})

	p.inst.Update(p.data)
	if key == filter.KeyProvider {
		p.rebuildPanel()
	}
}

func (p *Preview) rebuildPanel() {
	props := &schema.Collector{}
	p.inst.Properties(props)
	p.panel.Rebuild(props, p.data)
}

// Run renders into the window until ctx ends or the window closes. It
// blocks in the fyne event loop, so it must be called from main.
func (p *Preview) Run(ctx context.Context, app fyne.App) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.window.SetOnClosed(cancel)

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		runner.New(p.inst, p.display, runner.Options{FPS: p.fps, Log: p.log}).Run(ctx)
	}()
	go p.refreshStatus(ctx)
	go func() {
		<-ctx.Done()
		fyne.Do(app.Quit)
	}()

	p.window.ShowAndRun()
	cancel()
	<-rendered
	p.display.Close()
}

func (p *Preview) refreshStatus(ctx context.Context) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state := "loading"
		if p.inst.Ready() {
			state = "ready"
		} else if !p.inst.Active().IsConcrete() {
			state = "pass-through"
		}
		text := fmt.Sprintf("%s (%s)  %dx%d", p.inst.Active(), state, p.inst.Width(), p.inst.Height())
		fyne.Do(func() { p.status.SetText(text) })
	}
}
