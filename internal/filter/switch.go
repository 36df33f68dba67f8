package filter

import (
	"fmt"

	"denoisefx/internal/metrics"
	"denoisefx/internal/provider"
	"denoisefx/internal/workerpool"
)

// switchData is captured when a switch task is submitted and never changes.
type switchData struct {
	gen  uint64
	from provider.ID
	to   provider.ID
}

// switchProvider retargets the instance to id. active changes immediately
// so that back-to-back calls converge on the last one; the unload and load
// happen later on the pool. Selecting the active provider again retries it
// when its last load failed.
func (i *Instance) switchProvider(id provider.ID) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}
	retry := id == i.active && i.failedLocked()
	if id == i.active && !retry {
		return
	}

	i.log.Info(component, "switching provider", map[string]interface{}{
		"instance": i.name,
		"from":     i.active.String(),
		"to":       id.String(),
		"retry":    retry,
	})

	if i.task != nil && i.pool.CancelIfQueued(i.task) {
		i.metrics.RecordSwitch(metrics.SwitchCancelled)
		i.log.Debug(component, "cancelled queued switch", map[string]interface{}{
			"instance": i.name,
			"task":     i.task.ID().String(),
		})
	}

	data := switchData{gen: i.gen.Add(1), from: i.active, to: id}
	i.active = id

	task, err := i.pool.Submit(i.runSwitch, data)
	if err != nil {
		i.task = nil
		i.ready.Store(false)
		i.metrics.RecordSwitch(metrics.SwitchFailed)
		i.logError(err, "failed to schedule provider switch", map[string]interface{}{"to": id.String()})
		return
	}
	i.task = task
}

// failedLocked reports whether the last switch to a concrete active
// provider finished without loading it. Callers hold mu.
func (i *Instance) failedLocked() bool {
	if !i.active.IsConcrete() || i.impl != nil {
		return false
	}
	if i.task == nil {
		return true
	}
	st := i.task.State()
	return st == workerpool.StateDone || st == workerpool.StateCancelled
}

// runSwitch is the switch task body. It runs on a pool worker.
func (i *Instance) runSwitch(data interface{}) {
	d := data.(switchData)

	// Only the latest switch may pull the render thread off the provider.
	if d.gen == i.gen.Load() {
		i.ready.Store(false)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}

	// A newer switch was issued after this task was picked up. Its own
	// task owns the transition, and may already have finished it. Whatever
	// is loaded keeps serving until then.
	if d.gen != i.gen.Load() {
		i.ready.Store(i.impl != nil)
		i.metrics.RecordSwitch(metrics.SwitchStale)
		i.log.Debug(component, "discarding stale provider switch", map[string]interface{}{
			"instance": i.name,
			"to":       d.to.String(),
			"active":   i.active.String(),
		})
		return
	}

	// Switching away and back before anything ran leaves the target loaded.
	if i.impl != nil && i.impl.ID() == d.to {
		i.configureLocked()
		i.ready.Store(true)
		i.metrics.RecordSwitch(metrics.SwitchLoaded)
		i.log.Debug(component, "provider already loaded", map[string]interface{}{
			"instance": i.name,
			"provider": d.to.String(),
		})
		return
	}

	i.unloadLocked()

	if !d.to.IsConcrete() {
		i.metrics.RecordSwitch(metrics.SwitchFailed)
		if d.to != provider.Invalid {
			i.log.Warning(component, "unknown provider requested", map[string]interface{}{
				"instance": i.name,
				"provider": int(d.to),
			})
		}
		return
	}

	p, err := i.reg.New(d.to)
	if err == nil {
		err = guard(p.Load)
	}
	if err != nil {
		i.metrics.RecordSwitch(metrics.SwitchFailed)
		i.logError(fmt.Errorf("load %s: %w", d.to, err), "failed switching provider", map[string]interface{}{
			"from": d.from.String(),
			"to":   d.to.String(),
		})
		return
	}
	i.impl = p
	i.configureLocked()

	i.ready.Store(true)
	i.metrics.RecordSwitch(metrics.SwitchLoaded)
	i.log.Info(component, "switched provider", map[string]interface{}{
		"instance": i.name,
		"from":     d.from.String(),
		"to":       d.to.String(),
	})
}

// configureLocked hands the last settings seen by Update to the provider.
func (i *Instance) configureLocked() {
	if i.settings == nil || i.impl == nil {
		return
	}
	p, s := i.impl, i.settings
	if err := guard(func() error { p.Configure(s); return nil }); err != nil {
		i.logError(err, "provider rejected settings", nil)
	}
}

// unloadLocked releases the current provider. Callers hold mu.
func (i *Instance) unloadLocked() {
	if i.impl == nil {
		return
	}
	p := i.impl
	i.impl = nil
	i.buffer.SetOutput(i.buffer.Input())

	i.frameMu.Lock()
	i.dirty = true
	i.frameMu.Unlock()

	if err := guard(p.Unload); err != nil {
		i.logError(fmt.Errorf("unload %s: %w", p.ID(), err), "failed unloading provider", nil)
	}
}
