// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package commands defines the instructions the control plane queues for
// individual storage nodes. Commands are transient: they are produced by
// event handlers, held on a node's pending queue, and handed to the
// transport layer for delivery; nothing here persists them.
package commands

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/juju/cask/core/container"
	"github.com/juju/cask/core/node"
)

// Kind says what a command asks a node to do.
type Kind string

const (
	// CloseContainer asks a node to make its replica of a container
	// immutable.
	CloseContainer Kind = "close-container"
)

// Validate returns an error if the kind is unknown.
func (k Kind) Validate() error {
	switch k {
	case CloseContainer:
		return nil
	}
	return errors.NotValidf("command kind %q", string(k))
}

// Command is one instruction for a storage node.
type Command struct {
	// Kind is what to do.
	Kind Kind

	// Container is the container the command applies to.
	Container container.ID
}

// Validate returns an error if the command is malformed.
func (c Command) Validate() error {
	return errors.Trace(c.Kind.Validate())
}

// String is the command in log-friendly form.
func (c Command) String() string {
	return fmt.Sprintf("%s(%v)", c.Kind, c.Container)
}

// ForNode addresses a command to a specific node. This is the payload
// carried on the node-command event type.
type ForNode struct {
	// Node is the target node.
	Node node.ID

	// Command is the instruction to queue for it.
	Command Command
}

// Validate returns an error if the addressed command is malformed.
func (f ForNode) Validate() error {
	if err := f.Node.Validate(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(f.Command.Validate())
}
