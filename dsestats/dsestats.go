// Package dsestats exposes cosimulation counters over the shared
// prometheus/client_golang dependency (C12), grounded on the teacher's
// stats package conventions (one Collector owning named metrics, rather
// than a global registry scattered across call sites). The core packages
// never start an HTTP listener themselves (§1): an embedding process wires
// Collector's registry into its own mux when it wants /metrics.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package dsestats

import "github.com/prometheus/client_golang/prometheus"

// Collector is one simulation's metric set: a step-cycle counter, a
// per-channel registered-model gauge, a delta payload-size histogram, and
// a transport-reconnect counter.
type Collector struct {
	Cycles    prometheus.Counter
	Quorum    *prometheus.GaugeVec
	DeltaSize prometheus.Histogram
	Retries   prometheus.Counter
}

// New builds a Collector and registers its metrics on reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// simulations in one process) or prometheus.DefaultRegisterer for the
// global one.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dsebus",
			Name:      "cycles_total",
			Help:      "Number of RunCycle/Step invocations completed.",
		}),
		Quorum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dsebus",
			Name:      "channel_registered_models",
			Help:      "Models currently registered on a channel.",
		}, []string{"channel"}),
		DeltaSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dsebus",
			Name:      "delta_payload_bytes",
			Help:      "Size in bytes of encoded signal delta payloads.",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dsebus",
			Name:      "transport_retries_total",
			Help:      "Transport reconnect attempts beyond the first.",
		}),
	}
	reg.MustRegister(c.Cycles, c.Quorum, c.DeltaSize, c.Retries)
	return c
}

func (c *Collector) ObserveCycle() { c.Cycles.Inc() }

func (c *Collector) ObserveQuorum(channel string, registered int) {
	c.Quorum.WithLabelValues(channel).Set(float64(registered))
}

func (c *Collector) ObserveDeltaBytes(n int) { c.DeltaSize.Observe(float64(n)) }

func (c *Collector) ObserveRetry() { c.Retries.Inc() }
