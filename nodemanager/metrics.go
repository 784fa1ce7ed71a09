// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nodemanager

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	nodesDesc = prometheus.NewDesc(
		"cask_nodes",
		"Number of registered storage nodes.",
		nil, nil,
	)
	pendingDesc = prometheus.NewDesc(
		"cask_node_pending_commands",
		"Number of commands queued for delivery to a node.",
		[]string{"node"}, nil,
	)
)

// Describe is part of the prometheus.Collector interface.
func (m *Manager) Describe(ch chan<- *prometheus.Desc) {
	ch <- nodesDesc
	ch <- pendingDesc
}

// Collect is part of the prometheus.Collector interface.
func (m *Manager) Collect(ch chan<- prometheus.Metric) {
	m.mu.RLock()
	states := make(map[string]*nodeState, len(m.nodes))
	for id, state := range m.nodes {
		states[id.String()] = state
	}
	m.mu.RUnlock()

	ch <- prometheus.MustNewConstMetric(nodesDesc, prometheus.GaugeValue, float64(len(states)))
	for id, state := range states {
		state.mu.Lock()
		pending := len(state.pending)
		state.mu.Unlock()
		ch <- prometheus.MustNewConstMetric(pendingDesc, prometheus.GaugeValue, float64(pending), id)
	}
}
