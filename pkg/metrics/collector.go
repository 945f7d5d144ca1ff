// Package metrics exports engine outcomes as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/dshills/keychord/pkg/engine"
	kcerrors "github.com/dshills/keychord/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements engine.Observer.
type Collector struct {
	resolutions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	actions     prometheus.Histogram
}

// NewCollector creates a collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keychord_resolutions_total",
				Help: "Key sequences resolved to actions.",
			},
			[]string{"mode", "command"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keychord_failures_total",
				Help: "Key sequences that failed to resolve, by error kind.",
			},
			[]string{"mode", "kind"},
		),
		actions: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keychord_actions_per_resolution",
				Help:    "Number of actions produced by a successful resolution.",
				Buckets: []float64{1, 2, 3, 5, 8, 13},
			},
		),
	}

	for _, m := range []prometheus.Collector{c.resolutions, c.failures, c.actions} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return c, nil
}

// Observe records one outcome.
func (c *Collector) Observe(o engine.Outcome) {
	if o.Err != nil {
		kind := string(kcerrors.KindOf(o.Err))
		if kind == "" {
			kind = "unknown"
		}
		c.failures.WithLabelValues(o.Mode, kind).Inc()
		return
	}
	c.resolutions.WithLabelValues(o.Mode, o.Command).Inc()
	c.actions.Observe(float64(o.Actions))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ engine.Observer = (*Collector)(nil)
