// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package eventloop runs the queue's drain loop as a worker. Components
// publish from any goroutine; this worker is the single place handler
// invocation happens in a running daemon.
package eventloop

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"
	"github.com/prometheus/client_golang/prometheus"
)

var logger = loggo.GetLogger("cask.worker.eventloop")

// Drainer is the slice of the event queue the worker drives.
type Drainer interface {
	Drain(timeout time.Duration) error
}

// Config holds the worker's dependencies and tuning.
type Config struct {
	// Queue is the event queue to drain.
	Queue Drainer

	// Clock times the drain passes.
	Clock clock.Clock

	// Interval is how long the loop idles between drain passes.
	Interval time.Duration

	// DrainTimeout bounds a single drain pass. A pass that times out is
	// not an error; whatever remains is picked up by the next pass.
	DrainTimeout time.Duration

	// PrometheusRegisterer, if set, gets the queue's collector (and any
	// other collector the queue exposes) registered for the worker's
	// lifetime.
	PrometheusRegisterer prometheus.Registerer
}

// Validate returns an error if the worker cannot run with this config.
func (config Config) Validate() error {
	if config.Queue == nil {
		return errors.NotValidf("nil Queue")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Interval <= 0 {
		return errors.NotValidf("non-positive Interval")
	}
	if config.DrainTimeout <= 0 {
		return errors.NotValidf("non-positive DrainTimeout")
	}
	return nil
}

// NewWorker starts the drain loop. The caller owns killing and waiting on
// the returned worker.
func NewWorker(config Config) (worker.Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &eventLoop{config: config}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

type eventLoop struct {
	catacomb catacomb.Catacomb
	config   Config
}

// Kill is part of the worker.Worker interface.
func (w *eventLoop) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *eventLoop) Wait() error {
	return w.catacomb.Wait()
}

func (w *eventLoop) loop() error {
	if collector, ok := w.config.Queue.(prometheus.Collector); ok && w.config.PrometheusRegisterer != nil {
		_ = w.config.PrometheusRegisterer.Register(collector)
		defer w.config.PrometheusRegisterer.Unregister(collector)
	}

	timer := w.config.Clock.NewTimer(w.config.Interval)
	defer timer.Stop()
	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case <-timer.Chan():
			if err := w.config.Queue.Drain(w.config.DrainTimeout); err != nil {
				logger.Debugf("drain pass incomplete: %v", err)
			}
			timer.Reset(w.config.Interval)
		}
	}
}
