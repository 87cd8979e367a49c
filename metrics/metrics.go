// Package metrics records patch outcomes as Prometheus metrics on a private
// registry, for scraping or for writing to a node-exporter textfile.
package metrics

import (
	"github.com/chestworks/seqpatch/job"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seqpatch"

// Recorder owns the seqpatch collectors.
type Recorder struct {
	registry *prometheus.Registry

	RulesRegistered *prometheus.CounterVec
	RulesApplied    *prometheus.CounterVec
	RuleFirings     *prometheus.CounterVec
	IncompleteJobs  prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		RulesRegistered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rules",
				Name:      "registered_total",
				Help:      "Total number of patch rules registered",
			},
			[]string{"method"},
		),
		RulesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rules",
				Name:      "applied_total",
				Help:      "Total number of patch rules that fired at least once",
			},
			[]string{"method"},
		),
		RuleFirings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rule",
				Name:      "firings_total",
				Help:      "Total number of times each patch rule fired",
			},
			[]string{"method", "rule"},
		),
		IncompleteJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "incomplete_jobs",
				Help:      "Number of methods where some rule never fired",
			},
		),
	}
	r.registry.MustRegister(r.RulesRegistered, r.RulesApplied, r.RuleFirings, r.IncompleteJobs)
	return r
}

// Registry returns the underlying Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one job result. Skipped methods are not recorded.
func (r *Recorder) Observe(res *job.Result) {
	if res.Skipped {
		return
	}
	r.RulesRegistered.WithLabelValues(res.Method).Add(float64(res.Counter.Total))
	r.RulesApplied.WithLabelValues(res.Method).Add(float64(res.Counter.Applied))
	for rule, n := range res.Fired {
		r.RuleFirings.WithLabelValues(res.Method, rule).Add(float64(n))
	}
	if !res.Complete() {
		r.IncompleteJobs.Inc()
	}
}

// WriteTextfile writes the gathered metrics to path in the text exposition
// format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
