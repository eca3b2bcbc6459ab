// Package metrics exports search activity as Prometheus metrics.
package metrics

import (
	"github.com/pdrpinto/dynastar"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Collector implements dynastar.Observer. It is safe to share between
// concurrently running searches.
type Collector struct {
	searches    *prometheus.CounterVec
	expansions  prometheus.Counter
	queries     prometheus.Counter
	blocked     prometheus.Counter
	probability prometheus.Histogram
	pathLength  prometheus.Histogram
}

// New registers the search metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dronepath",
			Name:      "searches_total",
			Help:      "Completed searches by outcome.",
		}, []string{"outcome"}),
		expansions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dronepath",
			Name:      "expansions_total",
			Help:      "Frontier cells expanded.",
		}),
		queries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dronepath",
			Name:      "sensing_queries_total",
			Help:      "Occupancy queries issued to the sensor.",
		}),
		blocked: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dronepath",
			Name:      "sensing_blocked_total",
			Help:      "Occupancy queries that reported the candidate blocked.",
		}),
		probability: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dronepath",
			Name:      "occupancy_probability",
			Help:      "Estimated occupancy probability per query.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		pathLength: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dronepath",
			Name:      "path_length_cells",
			Help:      "Cells in each path found.",
			Buckets:   prometheus.ExponentialBuckets(2, 2, 8),
		}),
	}
}

func (c *Collector) OnExpand(dynastar.Cell, int) {
	c.expansions.Inc()
}

func (c *Collector) OnSense(r dynastar.Reading) {
	c.queries.Inc()
	c.probability.Observe(r.Probability)
	if r.Blocked {
		c.blocked.Inc()
	}
}

func (c *Collector) OnFinish(r dynastar.Result, err error) {
	switch {
	case err != nil:
		c.searches.WithLabelValues(OutcomeError).Inc()
	case r.Found:
		c.searches.WithLabelValues(OutcomeFound).Inc()
		c.pathLength.Observe(float64(len(r.Path)))
	default:
		c.searches.WithLabelValues(OutcomeNotFound).Inc()
	}
}
