// Package metrics exports harness statistics to Prometheus and serves them,
// together with recorded runs, over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "navexpect"

// Collector holds the harness metrics. It implements harness.Metrics.
type Collector struct {
	eventsObserved   *prometheus.CounterVec
	failures         *prometheus.CounterVec
	scenarios        *prometheus.CounterVec
	scenarioDuration prometheus.Histogram
}

// New registers the harness metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		eventsObserved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_observed_total",
			Help:      "Total number of lifecycle events delivered to the engine, labelled by event name.",
		}, []string{"event"}),

		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expectation_failures_total",
			Help:      "Total number of failed cases, labelled by error code.",
		}, []string{"code"}),

		scenarios: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_total",
			Help:      "Total number of scenarios run, labelled by outcome.",
		}, []string{"outcome"}),

		scenarioDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scenario_duration_seconds",
			Help:      "Wall time of one scenario run, from expectation to outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (c *Collector) ObserveEvent(name string) {
	c.eventsObserved.WithLabelValues(name).Inc()
}

func (c *Collector) ObserveFailure(code string) {
	c.failures.WithLabelValues(code).Inc()
}

func (c *Collector) ObserveScenario(pass bool, elapsed time.Duration) {
	outcome := "fail"
	if pass {
		outcome = "pass"
	}
	c.scenarios.WithLabelValues(outcome).Inc()
	c.scenarioDuration.Observe(elapsed.Seconds())
}
