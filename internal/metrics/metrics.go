// Package metrics instruments the analysis engine with Prometheus
// collectors. Nothing is served over HTTP; embedders register the
// collectors on their own registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "next_client"
)

// Collector holds every engine metric.
type Collector struct {
	parsesTotal        *prometheus.CounterVec
	resolverLookups    *prometheus.CounterVec
	propagationQueries *prometheus.CounterVec
	memoDropsTotal     prometheus.Counter
	stepLimitTotal     prometheus.Counter
	rebuildsTotal      prometheus.Counter
	modules            prometheus.Gauge
	scanDuration       prometheus.Histogram
}

// New creates a Collector and registers it on reg. A nil reg leaves the
// collectors unregistered, which is what the command line uses.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		parsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "parser",
				Name:      "parses_total",
				Help:      "Module extractions by outcome",
			},
			[]string{"outcome"},
		),
		resolverLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "resolver",
				Name:      "lookups_total",
				Help:      "Resolver memo lookups by result",
			},
			[]string{"result"},
		),
		propagationQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "boundary",
				Name:      "queries_total",
				Help:      "Boundary queries by memo result",
			},
			[]string{"memo"},
		),
		memoDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "boundary",
			Name:      "memo_drops_total",
			Help:      "Times the boundary memo was dropped after a graph change",
		}),
		stepLimitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "boundary",
			Name:      "step_limit_total",
			Help:      "Boundary walks aborted at the iteration ceiling",
		}),
		rebuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "workspace",
			Name:      "rebuilds_total",
			Help:      "Full graph rebuilds",
		}),
		modules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "workspace",
			Name:      "modules",
			Help:      "Modules currently in the graph",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "workspace",
			Name:      "scan_duration_seconds",
			Help:      "Duration of full workspace scans",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	if reg != nil {
		for _, collector := range c.collectors() {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.parsesTotal,
		c.resolverLookups,
		c.propagationQueries,
		c.memoDropsTotal,
		c.stepLimitTotal,
		c.rebuildsTotal,
		c.modules,
		c.scanDuration,
	}
}

// ParseCompleted records one extraction.
func (c *Collector) ParseCompleted(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	c.parsesTotal.WithLabelValues(outcome).Inc()
}

// ResolverLookup records one resolver memo lookup.
func (c *Collector) ResolverLookup(hit bool) {
	c.resolverLookups.WithLabelValues(hitLabel(hit)).Inc()
}

// PropagationQuery records one boundary query.
func (c *Collector) PropagationQuery(memoHit bool) {
	c.propagationQueries.WithLabelValues(hitLabel(memoHit)).Inc()
}

// MemoDropped records a memo invalidation.
func (c *Collector) MemoDropped() {
	c.memoDropsTotal.Inc()
}

// StepLimitHit records an aborted boundary walk.
func (c *Collector) StepLimitHit() {
	c.stepLimitTotal.Inc()
}

// Rebuilt records a full rebuild of n modules that took d.
func (c *Collector) Rebuilt(n int, d time.Duration) {
	c.rebuildsTotal.Inc()
	c.modules.Set(float64(n))
	c.scanDuration.Observe(d.Seconds())
}

// SetModules records the current graph size.
func (c *Collector) SetModules(n int) {
	c.modules.Set(float64(n))
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
