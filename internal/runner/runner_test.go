package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"denoisefx/internal/filter"
	"denoisefx/internal/settings"
	"denoisefx/internal/surface"
)

type recordingTarget struct {
	mu       sync.Mutex
	resolves int
	renders  int
	updates  []int
}

func (t *recordingTarget) ResolveSize() {
	t.mu.Lock()
	t.resolves++
	t.mu.Unlock()
}

func (t *recordingTarget) Render(out filter.Output) {
	t.mu.Lock()
	t.renders++
	t.mu.Unlock()
	out.Skip()
}

func (t *recordingTarget) Update(settings.Reader) {
	t.mu.Lock()
	t.updates = append(t.updates, t.renders)
	t.mu.Unlock()
}

type countingOutput struct{ skips int }

func (o *countingOutput) Skip() { o.skips++ }
func (o *countingOutput) Draw(surface.Surface, surface.Size) {}

func TestRunStopsAfterFrameLimit(t *testing.T) {
	target := &recordingTarget{}
	out := &countingOutput{}

	n := New(target, out, Options{FPS: 240, Frames: 5}).Run(context.Background())

	assert.Equal(t, 5, n)
	assert.Equal(t, 5, target.resolves)
	assert.Equal(t, 5, target.renders)
	assert.Equal(t, 5, out.skips)
}

func TestRunAppliesScheduledSwitches(t *testing.T) {
	target := &recordingTarget{}
	r := New(target, &countingOutput{}, Options{
		FPS:    240,
		Frames: 6,
		Switches: []Switch{
			{AfterFrames: 4, Settings: settings.New()},
			{AfterFrames: 0, Settings: settings.New()},
		},
	})

	r.Run(context.Background())
	assert.Equal(t, []int{0, 4}, target.updates)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	target := &recordingTarget{}
	n := New(target, &countingOutput{}, Options{FPS: 100}).Run(ctx)

	assert.Positive(t, n)
	assert.Equal(t, n, target.renders)
}
