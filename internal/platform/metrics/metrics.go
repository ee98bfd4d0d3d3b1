// Package metrics counts executor decisions in a prometheus registry.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"swh-client/internal/platform/httpclient"
)

const (
	namespace = "swh"
	subsystem = "client"
)

// Recorder is an httpclient.Recorder that updates counters for every decision.
type Recorder struct {
	reg *prometheus.Registry

	decisions *prometheus.CounterVec
	calls     *prometheus.CounterVec
	attempts  prometheus.Histogram
}

var _ httpclient.Recorder = (*Recorder)(nil)

// New registers the client metrics on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "decisions_total",
				Help:      "Executor decisions by endpoint, action and failure class",
			},
			[]string{"endpoint", "action", "class"},
		),
		calls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "calls_total",
				Help:      "Finished calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		attempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "attempts",
				Help:      "Attempts made per finished call",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
		),
	}
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Record(_ context.Context, rec httpclient.Record) {
	r.decisions.WithLabelValues(rec.Endpoint, rec.Action.String(), rec.Class.String()).Inc()
	if !rec.Action.Terminal() {
		return
	}
	r.calls.WithLabelValues(rec.Endpoint, outcome(rec)).Inc()
	r.attempts.Observe(float64(rec.Attempt))
}

func outcome(rec httpclient.Record) string {
	switch {
	case rec.Action == httpclient.ActionSucceed:
		return "success"
	case rec.Class == httpclient.ClassCanceled:
		return "canceled"
	case rec.Action == httpclient.ActionGiveUp:
		return "retries_exhausted"
	default:
		return "failed"
	}
}

// WriteTextfile dumps g in the node exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
