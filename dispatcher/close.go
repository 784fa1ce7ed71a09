// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package dispatcher holds the event handlers that turn lifecycle triggers
// into per-replica node commands. The close handler is the only writer of
// the Closing transition; everything it does on a bad input is a logged
// no-op, never a failure that escapes the event queue.
package dispatcher

import (
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/cask/core/commands"
	"github.com/juju/cask/core/container"
	"github.com/juju/cask/events"
	"github.com/juju/cask/eventqueue"
)

var logger = loggo.GetLogger("cask.dispatcher")

// ContainerStore is the slice of the state store the dispatcher needs.
type ContainerStore interface {
	Container(container.ID) (container.Info, error)
	UpdateContainerState(container.ID, container.Event) (container.State, error)
}

// CloseContainer handles close-container events: it validates that the
// container is open, moves it to Closing, and fans out one close command
// per replica node.
type CloseContainer struct {
	store ContainerStore
}

// NewCloseContainer returns a handler backed by store.
func NewCloseContainer(store ContainerStore) (*CloseContainer, error) {
	if store == nil {
		return nil, errors.NotValidf("nil ContainerStore")
	}
	return &CloseContainer{store: store}, nil
}

// Register subscribes the handler on the queue.
func (h *CloseContainer) Register(queue *eventqueue.Queue) error {
	return errors.Trace(queue.Subscribe(events.CloseContainer, h.Handle))
}

// Handle processes one close-container event. The payload is the ID of the
// container to close.
//
// Only an open container is acted on. A container that is still being
// created, already closing or closed need not be closed again: the event
// is dropped after a diagnostic naming the observed state, with no
// transition attempted and no command published. Losing the transition
// race to a concurrent close is treated the same way. This keeps repeated
// and racing close requests idempotent: for any container, at most one
// batch of close commands is ever produced, one command per replica in its
// pipeline.
func (h *CloseContainer) Handle(pub eventqueue.Publisher, payload interface{}) {
	id, ok := payload.(container.ID)
	if !ok {
		logger.Errorf("unexpected close event payload %T", payload)
		return
	}
	logger.Infof("close container event triggered for container %v", id)

	info, err := h.store.Container(id)
	if err != nil {
		logger.Errorf("failed to update the container state: %v", err)
		return
	}
	if info.State != container.Open {
		logger.Infof("container with id %v is in %s state and need not be closed", id, info.State)
		return
	}
	if _, err := h.store.UpdateContainerState(id, container.Close); err != nil {
		if errors.Is(err, container.InvalidTransition) {
			logger.Infof("container %v already moved on: %v", id, err)
			return
		}
		logger.Errorf("failed to update the container state: %v", err)
		return
	}

	targets := info.Pipeline.Targets()
	for _, target := range targets {
		pub.Publish(events.NodeCommand, commands.ForNode{
			Node: target,
			Command: commands.Command{
				Kind:      commands.CloseContainer,
				Container: id,
			},
		})
	}
	logger.Infof("dispatched close of container %v to %d nodes", id, len(targets))
}
