// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package node holds the identity types for the storage nodes that hold
// container replicas. The node manager owns the runtime view of the fleet;
// this package only defines what a node is called.
package node

import (
	"github.com/juju/errors"
	"github.com/juju/utils/v4"
)

// ID uniquely identifies a storage node within the cluster.
type ID string

// String is the node ID in log-friendly form.
func (id ID) String() string {
	return string(id)
}

// Validate returns an error if the ID is empty.
func (id ID) Validate() error {
	if id == "" {
		return errors.NotValidf("empty node ID")
	}
	return nil
}

// NewID mints a fresh node identity.
func NewID() ID {
	return ID(utils.MustNewUUID().String())
}

// Details describes a storage node as known to the control plane.
type Details struct {
	// ID is the node's unique identity.
	ID ID

	// Address is the host the node is reachable on. It is informational
	// here; command transport is handled outside this core.
	Address string
}

// Validate returns an error if the details are incomplete.
func (d Details) Validate() error {
	if err := d.ID.Validate(); err != nil {
		return errors.Trace(err)
	}
	return nil
}
