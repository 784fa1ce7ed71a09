// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package eventqueue provides the typed publish/subscribe queue that
// decouples the state-owning components from the node fleet. Publishing
// never invokes a handler; events sit on the queue until a caller (usually
// the eventloop worker) drains it. Delivery is serialized: one event at a
// time, handlers in registration order, so every handler sees a consistent
// view while it runs.
package eventqueue

import (
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/deque"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("cask.eventqueue")

// ErrDrainTimeout is returned by Drain when the deadline passed with
// events still queued. Callers that need a full drain loop until nil.
const ErrDrainTimeout = errors.ConstError("event queue drain timed out")

// Type names one kind of event. The set of types is closed: components
// declare their types as constants (see the events package) and both ends
// of a conversation import the same constant.
type Type string

// Publisher enqueues events. Handlers receive one so that reacting to an
// event can produce further events without reaching back to the queue.
type Publisher interface {
	Publish(t Type, payload interface{})
}

// Handler reacts to one event. Payloads are delivered as published;
// handlers type-assert and must tolerate unexpected payloads.
type Handler func(pub Publisher, payload interface{})

type message struct {
	kind    Type
	payload interface{}
}

// Queue is a typed event queue. The zero value is not usable; call New.
type Queue struct {
	clock clock.Clock

	mu       sync.Mutex
	handlers map[Type][]Handler
	pending  *deque.Deque

	processed uint64
	failures  uint64

	// drainMu ensures a single drainer, so handler invocations never
	// interleave even if two callers drain at once.
	drainMu sync.Mutex
}

// New returns an empty queue. A nil clock means the wall clock.
func New(clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Queue{
		clock:    clk,
		handlers: make(map[Type][]Handler),
		pending:  deque.New(),
	}
}

// Subscribe registers handler for events of type t. A type may have any
// number of handlers; they are invoked in registration order.
func (q *Queue) Subscribe(t Type, handler Handler) error {
	if t == "" {
		return errors.NotValidf("empty event type")
	}
	if handler == nil {
		return errors.NotValidf("nil handler")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[t] = append(q.handlers[t], handler)
	return nil
}

// Publish enqueues an event. It never invokes a handler; delivery happens
// on the next Drain. Safe for concurrent use.
func (q *Queue) Publish(t Type, payload interface{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.PushBack(message{kind: t, payload: payload})
	logger.Tracef("queued %q event, %d pending", t, q.pending.Len())
}

// Len is the number of events waiting for delivery.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Drain delivers queued events, including events published by handlers
// while draining, until the queue is empty or timeout has elapsed. It
// returns ErrDrainTimeout if events remain when the deadline passes; a
// drain of an empty queue returns immediately.
func (q *Queue) Drain(timeout time.Duration) error {
	deadline := q.clock.Now().Add(timeout)
	q.drainMu.Lock()
	defer q.drainMu.Unlock()
	for {
		msg, handlers, ok := q.next()
		if !ok {
			return nil
		}
		for _, handler := range handlers {
			q.deliver(msg, handler)
		}
		q.mu.Lock()
		q.processed++
		q.mu.Unlock()
		if pending := q.Len(); pending > 0 && q.clock.Now().After(deadline) {
			return fmt.Errorf("%d events still queued%w",
				pending, errors.Hide(ErrDrainTimeout))
		}
	}
}

// next pops the head event and snapshots its handler list. The snapshot is
// taken per event so a handler subscribing mid-drain affects later events
// only.
func (q *Queue) next() (message, []Handler, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	head, ok := q.pending.PopFront()
	if !ok {
		return message{}, nil, false
	}
	msg := head.(message)
	registered := q.handlers[msg.kind]
	if len(registered) == 0 {
		logger.Warningf("no handler registered for %q event", msg.kind)
	}
	handlers := make([]Handler, len(registered))
	copy(handlers, registered)
	return msg, handlers, true
}

// deliver invokes one handler, isolating panics so a faulty subscriber
// cannot stop delivery to other handlers or later events.
func (q *Queue) deliver(msg message, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			q.mu.Lock()
			q.failures++
			q.mu.Unlock()
			logger.Errorf("handler for %q event panicked: %v", msg.kind, r)
		}
	}()
	handler(q, msg.payload)
}
