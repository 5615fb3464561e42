// Package metrics exposes prometheus collectors for the expiration engine.
// Every method is safe to call on a nil *Collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "claimexpiry"

// Collector is a prometheus.Collector that collects metrics about
// the expiration scan.
type Collector struct {
	generations       prometheus.Counter
	population        prometheus.Gauge
	remaining         prometheus.Gauge
	evaluations       *prometheus.CounterVec
	expirations       *prometheus.CounterVec
	vetoes            prometheus.Counter
	failures          *prometheus.CounterVec
	cycleDelaySeconds prometheus.Gauge
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		generations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "generations_total",
				Help:      "The number of candidate set refreshes.",
			},
		),
		population: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "generation_population",
				Help:      "The number of owners captured when the current generation started.",
			},
		),
		remaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "candidates_remaining",
				Help:      "The number of owners not yet checked in the current generation.",
			},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "evaluations_total",
				Help:      "The number of owners evaluated, by outcome.",
			}, []string{"status"},
		),
		expirations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "claims_expired_total",
				Help:      "The number of claims deleted for inactivity.",
			}, []string{"world"},
		),
		vetoes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "expirations_vetoed_total",
				Help:      "The number of expirations cancelled by a hook.",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "failures_total",
				Help:      "The number of failed operations, by stage.",
			}, []string{"stage"},
		),
		cycleDelaySeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "cycle_delay_seconds",
				Help:      "The delay before the next evaluation cycle.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.generations.Describe(ch)
	c.population.Describe(ch)
	c.remaining.Describe(ch)
	c.evaluations.Describe(ch)
	c.expirations.Describe(ch)
	c.vetoes.Describe(ch)
	c.failures.Describe(ch)
	c.cycleDelaySeconds.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.generations.Collect(ch)
	c.population.Collect(ch)
	c.remaining.Collect(ch)
	c.evaluations.Collect(ch)
	c.expirations.Collect(ch)
	c.vetoes.Collect(ch)
	c.failures.Collect(ch)
	c.cycleDelaySeconds.Collect(ch)
}

// GenerationStarted records a refresh of population owners
func (c *Collector) GenerationStarted(population int) {
	if c == nil {
		return
	}
	c.generations.Inc()
	c.population.Set(float64(population))
	c.remaining.Set(float64(population))
}

// CandidateTaken records the remaining owners after a selection
func (c *Collector) CandidateTaken(remaining int) {
	if c == nil {
		return
	}
	c.remaining.Set(float64(remaining))
}

// OwnerEvaluated counts an evaluation by outcome
func (c *Collector) OwnerEvaluated(status string) {
	if c == nil {
		return
	}
	c.evaluations.WithLabelValues(status).Inc()
}

// ClaimExpired counts a deleted claim
func (c *Collector) ClaimExpired(world string) {
	if c == nil {
		return
	}
	c.expirations.WithLabelValues(world).Inc()
}

// ExpirationVetoed counts a cancelled expiration
func (c *Collector) ExpirationVetoed() {
	if c == nil {
		return
	}
	c.vetoes.Inc()
}

// Failed counts a failure at stage
func (c *Collector) Failed(stage string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(stage).Inc()
}

// CycleScheduled records the delay before the next cycle
func (c *Collector) CycleScheduled(seconds float64) {
	if c == nil {
		return
	}
	c.cycleDelaySeconds.Set(seconds)
}
