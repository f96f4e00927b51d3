// Package metrics counts structurizer activity in a Prometheus registry and
// exports it as a node_exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"edeco/internal/closure"
)

const (
	namespace = "edeco"
	subsystem = "structure"
)

// OutcomeOK labels a function that was fully structured.
const OutcomeOK = "ok"

// Recorder holds the structurizer metrics. It implements closure.Observer,
// so it can be handed to structure.Options directly. Each Recorder owns its
// registry.
type Recorder struct {
	reg *prometheus.Registry

	// Events counts observer snapshots by stage.
	// Labels: stage (flat, ghosts, mesh, resolved, bulge, done)
	Events *prometheus.CounterVec

	// Functions counts finished functions by outcome.
	// Labels: outcome (ok, bounds, flow, structuring, invalid_code, budget, ...)
	Functions *prometheus.CounterVec

	// Ghosts counts ghost nodes inserted.
	Ghosts prometheus.Counter

	// Steps measures ordered-path steps spent per function.
	Steps prometheus.Histogram
}

// NewRecorder creates a Recorder on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_total",
			Help:      "Structurizer snapshots by stage",
		}, []string{"stage"}),
		Functions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "functions_total",
			Help:      "Functions processed by outcome",
		}, []string{"outcome"}),
		Ghosts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ghosts_total",
			Help:      "Ghost nodes inserted",
		}),
		Steps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "steps",
			Help:      "Ordered-path steps spent per function",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
	}
}

// Observe implements closure.Observer.
func (r *Recorder) Observe(ev closure.Event) {
	r.Events.WithLabelValues(string(ev.Stage)).Inc()
}

// Done records a structured function.
func (r *Recorder) Done(ghosts, steps int) {
	r.Functions.WithLabelValues(OutcomeOK).Inc()
	r.Ghosts.Add(float64(ghosts))
	r.Steps.Observe(float64(steps))
}

// Failed records a function that failed with the given error kind.
func (r *Recorder) Failed(kind string) {
	r.Functions.WithLabelValues(kind).Inc()
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// WriteTextfile writes the registry in text exposition format, replacing
// path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
