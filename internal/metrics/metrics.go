// Package metrics exposes Prometheus collectors for the denoise filter.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Switch results.
const (
	SwitchLoaded    = "loaded"
	SwitchFailed    = "failed"
	SwitchStale     = "stale"
	SwitchCancelled = "cancelled"
)

// Frame outcomes.
const (
	FrameProcessed = "processed"
	FrameCached    = "cached"
	FrameSkipped   = "skipped"
	FrameFailed    = "failed"
)

type Metrics struct {
	ProviderSwitches  *prometheus.CounterVec
	Frames            *prometheus.CounterVec
	ProcessDuration   prometheus.Histogram
	ProviderAvailable *prometheus.GaugeVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to serve them from promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderSwitches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "denoisefx_provider_switches_total",
				Help: "Provider switch tasks by result",
			},
			[]string{"result"},
		),
		Frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "denoisefx_frames_total",
				Help: "Rendered frames by outcome",
			},
			[]string{"outcome"},
		),
		ProcessDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "denoisefx_process_duration_seconds",
				Help:    "Provider process call duration in seconds",
				Buckets: []float64{.001, .0025, .005, .01, .016, .033, .05, .1, .25, .5, 1},
			},
		),
		ProviderAvailable: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "denoisefx_provider_available",
				Help: "Whether a provider passed its capability probe (1) or not (0)",
			},
			[]string{"provider"},
		),
	}
}

func (m *Metrics) RecordSwitch(result string) {
	if m == nil {
		return
	}
	m.ProviderSwitches.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordFrame(outcome string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProcess(d time.Duration) {
	if m == nil {
		return
	}
	m.ProcessDuration.Observe(d.Seconds())
}

func (m *Metrics) SetAvailable(provider string, available bool) {
	if m == nil {
		return
	}
	v := 0.0
	if available {
		v = 1
	}
	m.ProviderAvailable.WithLabelValues(provider).Set(v)
}
