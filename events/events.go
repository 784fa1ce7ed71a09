// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package events declares the event types flowing through the cluster
// manager's queue, and documents the payload carried by each. Keeping the
// declarations in one place gives both publishers and subscribers a single
// constant to import instead of scattering literal topic names.
package events

import (
	"github.com/juju/cask/eventqueue"
)

const (
	// CloseContainer requests closure of one container. The payload is
	// a container.ID. Published by operator actions, capacity policies
	// or timeouts; handled by the close dispatcher.
	CloseContainer eventqueue.Type = "close-container"

	// NodeCommand carries one commands.ForNode to the node manager,
	// which queues it for delivery to the physical node.
	NodeCommand eventqueue.Type = "node-command"
)
