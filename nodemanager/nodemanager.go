// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package nodemanager tracks the storage nodes known to the control plane
// and the commands pending delivery to each of them. Delivery itself (the
// heartbeat transport) lives outside this core; the manager's job is to
// never lose a command addressed to a node it knows, and to reject
// commands for nodes it does not.
package nodemanager

import (
	"fmt"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/cask/core/commands"
	"github.com/juju/cask/core/node"
)

var logger = loggo.GetLogger("cask.nodemanager")

const (
	// NodeNotFound describes a command addressed to a node that was
	// never registered. It signals an inconsistency between pipeline
	// membership and fleet state and is surfaced rather than swallowed.
	NodeNotFound = errors.ConstError("node not found")
)

// nodeState is one node's registration plus its pending command queue.
// Each node has its own lock so fan-out writes to different nodes never
// contend.
type nodeState struct {
	mu      sync.Mutex
	details node.Details
	pending []commands.Command
}

// Manager is the node registry. The map of nodes is guarded by mu; the
// queues hanging off it are guarded per node.
type Manager struct {
	mu    sync.RWMutex
	nodes map[node.ID]*nodeState

	// nextPick rotates pipeline selection across the fleet.
	nextPick int
}

// NewManager returns an empty node registry.
func NewManager() *Manager {
	return &Manager{
		nodes: make(map[node.ID]*nodeState),
	}
}

// RegisterNode adds a node to the fleet. Registering an already known node
// fails; nodes do not change identity.
func (m *Manager) RegisterNode(details node.Details) error {
	if err := details.Validate(); err != nil {
		return errors.Trace(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[details.ID]; ok {
		return errors.AlreadyExistsf("node %q", details.ID)
	}
	m.nodes[details.ID] = &nodeState{details: details}
	logger.Infof("registered node %s at %q", details.ID, details.Address)
	return nil
}

// Node returns the registration details for id.
func (m *Manager) Node(id node.ID) (node.Details, error) {
	state, err := m.lookup(id)
	if err != nil {
		return node.Details{}, errors.Trace(err)
	}
	return state.details, nil
}

// NodeCount is the number of registered nodes.
func (m *Manager) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// RecordCommand appends cmd to the node's pending queue. Commands for
// unknown nodes are rejected with NodeNotFound; commands for known nodes
// are never dropped.
func (m *Manager) RecordCommand(id node.ID, cmd commands.Command) error {
	if err := cmd.Validate(); err != nil {
		return errors.Trace(err)
	}
	state, err := m.lookup(id)
	if err != nil {
		return errors.Trace(err)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.pending = append(state.pending, cmd)
	logger.Debugf("queued %s for node %s, %d pending", cmd, id, len(state.pending))
	return nil
}

// CommandCount is the length of the node's pending queue.
func (m *Manager) CommandCount(id node.ID) (int, error) {
	state, err := m.lookup(id)
	if err != nil {
		return 0, errors.Trace(err)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return len(state.pending), nil
}

// PendingCommands returns a copy of the node's pending queue in the order
// the commands were recorded.
func (m *Manager) PendingCommands(id node.ID) ([]commands.Command, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	pending := make([]commands.Command, len(state.pending))
	copy(pending, state.pending)
	return pending, nil
}

func (m *Manager) lookup(id node.ID) (*nodeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q not found%w", id, errors.Hide(NodeNotFound))
	}
	return state, nil
}
