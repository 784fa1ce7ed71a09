// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nodemanager

import (
	"github.com/juju/errors"

	"github.com/juju/cask/core/commands"
	"github.com/juju/cask/eventqueue"
)

// HandleNodeCommand is the event handler subscribed to the node-command
// event type. It expects a commands.ForNode payload and records the
// command for the addressed node. A failed fan-out for one replica is an
// inconsistency worth an operator's attention, so failures are logged at
// error level rather than swallowed.
func (m *Manager) HandleNodeCommand(_ eventqueue.Publisher, payload interface{}) {
	addressed, ok := payload.(commands.ForNode)
	if !ok {
		logger.Errorf("unexpected node command payload %T", payload)
		return
	}
	if err := m.RecordCommand(addressed.Node, addressed.Command); err != nil {
		if errors.Is(err, NodeNotFound) {
			logger.Errorf("cannot deliver %s: %v", addressed.Command, err)
			return
		}
		logger.Errorf("recording %s for node %s: %v", addressed.Command, addressed.Node, err)
	}
}
