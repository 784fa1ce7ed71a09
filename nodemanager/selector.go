// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nodemanager

import (
	"sort"

	"github.com/juju/errors"

	"github.com/juju/cask/core/node"
	"github.com/juju/cask/core/pipeline"
)

// SelectPipeline picks factor nodes from the fleet and builds a pipeline,
// rotating the starting node between calls so allocations spread across
// the fleet. The first node picked is the leader. This is a deliberately
// simple placement policy; a capacity-aware selector can replace it behind
// the same interface.
func (m *Manager) SelectPipeline(mode pipeline.Mode, factor int) (*pipeline.Pipeline, error) {
	if err := mode.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if factor < 1 {
		return nil, errors.NotValidf("replication factor %d", factor)
	}
	if mode == pipeline.Standalone && factor != 1 {
		return nil, errors.NotValidf("standalone replication with factor %d", factor)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.nodes) < factor {
		return nil, errors.Errorf("cannot place %d replicas on %d registered nodes",
			factor, len(m.nodes))
	}
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	members := make([]node.ID, factor)
	for i := 0; i < factor; i++ {
		members[i] = node.ID(ids[(m.nextPick+i)%len(ids)])
	}
	m.nextPick = (m.nextPick + factor) % len(ids)

	p, err := pipeline.New(mode, members[0], members)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return p, nil
}
