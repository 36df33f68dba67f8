package filter

import (
	"errors"
	"time"

	"denoisefx/internal/metrics"
	"denoisefx/internal/provider"
	"denoisefx/internal/surface"
)

var errNoResult = errors.New("provider did not return a result")

// ResolveSize samples the upstream size once per tick, lets a ready
// provider constrain it, and marks the frame dirty.
func (i *Instance) ResolveSize() {
	var size surface.Size
	if i.source != nil {
		size = i.source.Size()
	}

	if !size.Empty() && i.ready.Load() {
		i.mu.Lock()
		if i.ready.Load() && i.impl != nil {
			size = i.constrainLocked(size)
		}
		i.mu.Unlock()
	}

	i.frameMu.Lock()
	i.size = size
	i.dirty = true
	i.frameMu.Unlock()
}

// Render produces exactly one Skip or Draw on out.
func (i *Instance) Render(out Output) {
	if i.source == nil || !i.ready.Load() {
		i.skip(out)
		return
	}
	upstream := i.source.Size()
	if upstream.Empty() {
		i.skip(out)
		return
	}

	if i.Dirty() {
		if !i.prepare(upstream) || !i.produce() {
			i.skip(out)
			return
		}
	} else {
		i.metrics.RecordFrame(metrics.FrameCached)
	}

	i.draw(out)
}

// draw hands the buffered output to out. The output surface belongs to the
// provider, so mu stays held until Draw returns and a switch cannot unload
// it mid-read.
func (i *Instance) draw(out Output) {
	i.mu.Lock()
	if !i.ready.Load() || i.impl == nil {
		i.mu.Unlock()
		i.skip(out)
		return
	}
	defer i.mu.Unlock()

	// An unload since produce put the raw input back in the output slot.
	i.frameMu.Lock()
	size, dirty := i.size, i.dirty
	i.frameMu.Unlock()
	if dirty {
		i.skip(out)
		return
	}

	out.Draw(i.buffer.Output(), size)
}

func (i *Instance) skip(out Output) {
	i.metrics.RecordFrame(metrics.FrameSkipped)
	out.Skip()
}

// prepare settles the frame size with the provider. When the size changed
// the provider gets one warm-up frame at the upstream size so it can
// reallocate before the real capture.
func (i *Instance) prepare(upstream surface.Size) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.ready.Load() || i.impl == nil {
		return false
	}

	size := i.constrainLocked(upstream)

	i.frameMu.Lock()
	changed := size != i.buffer.Size()
	i.size = size
	i.frameMu.Unlock()

	if !changed {
		return true
	}

	if err := i.buffer.Render(upstream.Width, upstream.Height); err != nil {
		i.logError(err, "failed to resize input buffer", nil)
		return false
	}
	if !i.source.Capture(i.buffer.Input()) {
		return false
	}
	if i.processLocked() == nil {
		return false
	}
	return true
}

// produce captures the frame at the resolved size and processes it.
func (i *Instance) produce() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.ready.Load() || i.impl == nil {
		return false
	}

	i.frameMu.Lock()
	size := i.size
	i.frameMu.Unlock()

	if err := i.buffer.Render(size.Width, size.Height); err != nil {
		i.logError(err, "failed to resize input buffer", nil)
		return false
	}
	if !i.source.Capture(i.buffer.Input()) {
		return false
	}

	out := i.processLocked()
	if out == nil {
		return false
	}

	i.buffer.SetOutput(out)
	i.frameMu.Lock()
	i.dirty = false
	i.frameMu.Unlock()
	i.metrics.RecordFrame(metrics.FrameProcessed)
	return true
}

// processLocked runs the provider on the input buffer. A nil result is
// logged and counted; the caller skips the frame and stays dirty.
func (i *Instance) processLocked() surface.Surface {
	var out surface.Surface
	start := time.Now()
	err := guard(func() error {
		out = i.impl.Process(i.buffer.Input())
		return nil
	})
	i.metrics.ObserveProcess(time.Since(start))

	if err == nil && (out == nil || !out.IsValid()) {
		out = nil
		err = errNoResult
	}
	if err != nil {
		i.metrics.RecordFrame(metrics.FrameFailed)
		i.logError(err, "provider failed to process frame", map[string]interface{}{
			"provider": i.impl.ID().String(),
		})
		return nil
	}
	return out
}

func (i *Instance) constrainLocked(size surface.Size) surface.Size {
	constrained := size
	err := guard(func() error {
		constrained = i.impl.Resize(size)
		return nil
	})
	if err != nil || constrained.Empty() {
		return size
	}
	return constrained
}

// Loaded is the identity of the provider currently holding backend
// resources, or Invalid. It can lag Active while a switch is pending.
func (i *Instance) Loaded() provider.ID {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.impl == nil {
		return provider.Invalid
	}
	return i.impl.ID()
}
