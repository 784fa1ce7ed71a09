// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package eventqueue

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	depthDesc = prometheus.NewDesc(
		"cask_eventqueue_depth",
		"Number of events waiting for delivery.",
		nil, nil,
	)
	processedDesc = prometheus.NewDesc(
		"cask_eventqueue_processed_total",
		"Number of events delivered since startup.",
		nil, nil,
	)
	failuresDesc = prometheus.NewDesc(
		"cask_eventqueue_handler_failures_total",
		"Number of handler invocations that panicked.",
		nil, nil,
	)
)

// Describe is part of the prometheus.Collector interface.
func (q *Queue) Describe(ch chan<- *prometheus.Desc) {
	ch <- depthDesc
	ch <- processedDesc
	ch <- failuresDesc
}

// Collect is part of the prometheus.Collector interface.
func (q *Queue) Collect(ch chan<- prometheus.Metric) {
	q.mu.Lock()
	depth := q.pending.Len()
	processed := q.processed
	failures := q.failures
	q.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(depthDesc, prometheus.GaugeValue, float64(depth))
	ch <- prometheus.MustNewConstMetric(processedDesc, prometheus.CounterValue, float64(processed))
	ch <- prometheus.MustNewConstMetric(failuresDesc, prometheus.CounterValue, float64(failures))
}
