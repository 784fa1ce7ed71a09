// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pipeline defines the placement record binding a container to the
// nodes that hold its replicas. A pipeline is immutable once built;
// re-pipelining a container is not supported.
package pipeline

import (
	"fmt"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/cask/core/node"
)

// Mode says how a container's replicas are kept consistent.
type Mode string

const (
	// Standalone is a single authoritative replica; commands only ever
	// target the leader, which is the one member of the pipeline.
	Standalone Mode = "standalone"

	// Consensus is multiple replicas kept in sync by a consensus
	// protocol; every replica must independently record container-wide
	// operations, so commands target all members.
	Consensus Mode = "consensus"
)

// Validate returns an error if the mode is not a known replication mode.
func (m Mode) Validate() error {
	switch m {
	case Standalone, Consensus:
		return nil
	}
	return errors.NotValidf("replication mode %q", string(m))
}

// Pipeline is the fixed replica placement for one container: the member
// nodes, the designated leader and the replication mode. All fields are
// unexported so a pipeline cannot change once constructed.
type Pipeline struct {
	mode    Mode
	leader  node.ID
	members set.Strings
}

// New builds a pipeline. The leader must be a member, members must be
// non-empty, and a Standalone pipeline has exactly one member.
func New(mode Mode, leader node.ID, members []node.ID) (*Pipeline, error) {
	if err := mode.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	memberSet := set.NewStrings()
	for _, m := range members {
		if err := m.Validate(); err != nil {
			return nil, errors.Trace(err)
		}
		if memberSet.Contains(m.String()) {
			return nil, errors.NotValidf("duplicate pipeline member %q", m)
		}
		memberSet.Add(m.String())
	}
	if memberSet.IsEmpty() {
		return nil, errors.NotValidf("pipeline with no members")
	}
	if !memberSet.Contains(leader.String()) {
		return nil, errors.NotValidf("leader %q not a pipeline member", leader)
	}
	if mode == Standalone && memberSet.Size() != 1 {
		return nil, errors.NotValidf("standalone pipeline with %d members", memberSet.Size())
	}
	return &Pipeline{
		mode:    mode,
		leader:  leader,
		members: memberSet,
	}, nil
}

// Mode is the pipeline's replication mode.
func (p *Pipeline) Mode() Mode {
	return p.mode
}

// Leader is the designated leader node.
func (p *Pipeline) Leader() node.ID {
	return p.leader
}

// Len is the number of replicas.
func (p *Pipeline) Len() int {
	return p.members.Size()
}

// Contains reports whether id holds a replica of this pipeline.
func (p *Pipeline) Contains(id node.ID) bool {
	return p.members.Contains(id.String())
}

// Nodes returns the member node IDs in sorted order. The slice is a copy.
func (p *Pipeline) Nodes() []node.ID {
	values := p.members.SortedValues()
	ids := make([]node.ID, len(values))
	for i, v := range values {
		ids[i] = node.ID(v)
	}
	return ids
}

// Targets returns the nodes that must receive a container-wide command.
// For Standalone pipelines only the leader is commanded; for Consensus
// every replica must independently apply the command, leader included but
// not special-cased.
func (p *Pipeline) Targets() []node.ID {
	if p.mode == Standalone {
		return []node.ID{p.leader}
	}
	return p.Nodes()
}

// String is a log-friendly rendering of the pipeline.
func (p *Pipeline) String() string {
	return fmt.Sprintf("%s pipeline of %d led by %s", p.mode, p.members.Size(), p.leader)
}
