// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package subupdater

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "topicsync_subupdater"

const (
	flushSucceeded = "success"
	flushFailed    = "failure"
)

// Collector is a prometheus.Collector that collects metrics about the
// sub updater worker.
type Collector struct {
	topics           prometheus.Gauge
	bloomFilterBytes prometheus.Gauge
	awaitUpdate      prometheus.Gauge
	awaitAcknowledge prometheus.Gauge
	flushes          *prometheus.CounterVec
	forceUpdates     prometheus.Counter
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		topics: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "topics",
				Help:      "The number of distinct topics subscribed to locally.",
			},
		),
		bloomFilterBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "bloom_filter_bytes",
				Help:      "The size of the last encoded topic filter.",
			},
		),
		awaitUpdate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "await_update",
				Help:      "The number of acknowledgements waiting for the next flush.",
			},
		),
		awaitAcknowledge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "await_acknowledge",
				Help:      "The number of acknowledgements waiting for a flush to be replicated.",
			},
		),
		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "flushes_total",
				Help:      "The number of completed flushes to the topic store.",
			}, []string{"result"},
		),
		forceUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "force_updates_total",
				Help:      "The number of flushes started without a local change.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.topics.Describe(ch)
	c.bloomFilterBytes.Describe(ch)
	c.awaitUpdate.Describe(ch)
	c.awaitAcknowledge.Describe(ch)
	c.flushes.Describe(ch)
	c.forceUpdates.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.topics.Collect(ch)
	c.bloomFilterBytes.Collect(ch)
	c.awaitUpdate.Collect(ch)
	c.awaitAcknowledge.Collect(ch)
	c.flushes.Collect(ch)
	c.forceUpdates.Collect(ch)
}
