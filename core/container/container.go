// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package container defines the container identity, lifecycle model and
// metadata record shared by the state store, the dispatcher and the node
// manager. All state changes are driven through the transition table in
// machine.go; nothing in this package mutates a record.
package container

import (
	"fmt"
	"time"

	"github.com/juju/errors"

	"github.com/juju/cask/core/pipeline"
)

// ID uniquely identifies a container for its whole life. IDs are assigned
// by the allocation path and are never reused.
type ID uint64

// String is the ID in log-friendly form.
func (id ID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// State describes where a container is in its life. A container starts in
// Allocated and only ever moves forward; Closed is terminal.
type State string

const (
	// Allocated means the record and pipeline exist but no replica has
	// been created on any node yet.
	Allocated State = "allocated"

	// Creating means replica creation has been requested on the
	// pipeline's nodes and is in flight.
	Creating State = "creating"

	// Open means the container accepts writes.
	Open State = "open"

	// Closing means closure has been dispatched to the replicas but not
	// every replica has confirmed it yet.
	Closing State = "closing"

	// Closed means the container is immutable on every replica.
	Closed State = "closed"
)

// Validate returns an error if the state is not a known lifecycle state.
func (s State) Validate() error {
	switch s {
	case Allocated, Creating, Open, Closing, Closed:
		return nil
	}
	return errors.NotValidf("container state %q", string(s))
}

// Event is a lifecycle trigger applied to a container's current state
// through the transition table.
type Event string

const (
	// Create asks the pipeline's nodes to provision replicas.
	Create Event = "create"

	// Created records that the replicas exist and the container is
	// write-ready.
	Created Event = "created"

	// Close begins closure; it is only applicable to an open container.
	Close Event = "close"

	// CloseCompleted records that every replica has durably closed.
	// It is published by the replica acknowledgment tracker, not by
	// the close dispatcher.
	CloseCompleted Event = "close-completed"
)

// Validate returns an error if the event is not a known lifecycle event.
func (e Event) Validate() error {
	switch e {
	case Create, Created, Close, CloseCompleted:
		return nil
	}
	return errors.NotValidf("container event %q", string(e))
}

// Info is the metadata record for one container. The state store owns the
// authoritative copy; values handed out are snapshots and changing them has
// no effect on the store.
type Info struct {
	// ID is the container's identity.
	ID ID

	// State is the lifecycle state the container was in when this
	// snapshot was taken.
	State State

	// Owner tags the service the container was allocated for.
	Owner string

	// Capacity is the maximum size of the container in bytes.
	Capacity uint64

	// Used is the number of bytes written so far, as last reported.
	Used uint64

	// Mode is the replication mode the container was allocated with.
	Mode pipeline.Mode

	// Pipeline is the fixed set of nodes holding the replicas.
	Pipeline *pipeline.Pipeline

	// StateChangedAt is when the container last changed state.
	StateChangedAt time.Time
}

// Validate returns an error if the record is structurally incomplete.
func (i Info) Validate() error {
	if err := i.State.Validate(); err != nil {
		return errors.Trace(err)
	}
	if i.Pipeline == nil {
		return errors.NotValidf("container %v without pipeline", i.ID)
	}
	if i.Mode != i.Pipeline.Mode() {
		return errors.NotValidf("container %v mode %q differs from pipeline mode %q",
			i.ID, i.Mode, i.Pipeline.Mode())
	}
	return nil
}
