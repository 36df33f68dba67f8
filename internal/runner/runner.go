// Package runner drives a filter instance at a fixed frame rate, the way a
// compositor's render thread would.
package runner

import (
	"context"
	"time"

	"denoisefx/internal/filter"
	"denoisefx/internal/logger"
	"denoisefx/internal/settings"
)

const component = "runner"

// Target is the per-frame surface of a filter instance.
type Target interface {
	ResolveSize()
	Render(out filter.Output)
	Update(s settings.Reader)
}

// Switch schedules a settings update after a number of rendered frames.
type Switch struct {
	AfterFrames int
	Settings    settings.Reader
}

type Options struct {
	FPS int
	// Frames stops the loop after this many frames. Zero runs until ctx ends.
	Frames   int
	Switches []Switch
	Log      logger.Logger
}

type Runner struct {
	target Target
	out    filter.Output
	opts   Options
	log    logger.Logger
}

func New(target Target, out filter.Output, opts Options) *Runner {
	if opts.FPS < 1 {
		opts.FPS = 30
	}
	return &Runner{target: target, out: out, opts: opts, log: logger.OrNop(opts.Log)}
}

// Run renders until ctx is cancelled or the frame limit is reached. It
// returns the number of frames rendered.
func (r *Runner) Run(ctx context.Context) int {
	ticker := time.NewTicker(time.Second / time.Duration(r.opts.FPS))
	defer ticker.Stop()

	pending := append([]Switch(nil), r.opts.Switches...)
	frames := 0

	r.log.Info(component, "render loop started", map[string]interface{}{
		"fps":    r.opts.FPS,
		"frames": r.opts.Frames,
	})

	for {
		if r.opts.Frames > 0 && frames >= r.opts.Frames {
			break
		}

		select {
		case <-ctx.Done():
			r.log.Info(component, "render loop stopped", map[string]interface{}{"frames": frames})
			return frames
		case <-ticker.C:
		}

		pending = r.applyDue(frames, pending)

		r.target.ResolveSize()
		r.target.Render(r.out)
		frames++
	}

	r.log.Info(component, "render loop finished", map[string]interface{}{"frames": frames})
	return frames
}

func (r *Runner) applyDue(frame int, pending []Switch) []Switch {
	rest := pending[:0]
	for _, sw := range pending {
		if sw.AfterFrames > frame {
			rest = append(rest, sw)
			continue
		}
		r.log.Debug(component, "applying scheduled settings", map[string]interface{}{"frame": frame})
		r.target.Update(sw.Settings)
	}
	return rest
}
