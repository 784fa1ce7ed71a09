// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// caskd is the storage container manager daemon. It wires the container
// state store, the node manager and the close dispatcher together over one
// event queue and runs the drain loop until signalled to stop.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juju/cask/config"
	"github.com/juju/cask/core/node"
	"github.com/juju/cask/dispatcher"
	"github.com/juju/cask/events"
	"github.com/juju/cask/eventqueue"
	"github.com/juju/cask/nodemanager"
	"github.com/juju/cask/state"
	"github.com/juju/cask/worker/eventloop"
)

var logger = loggo.GetLogger("cask.cmd.caskd")

func main() {
	flags := gnuflag.NewFlagSet("caskd", gnuflag.ExitOnError)
	configPath := flags.String("config", "/etc/cask/caskd.yaml", "path to the daemon configuration file")
	logConfig := flags.String("log-config", "<root>=INFO", "loggo configuration string")
	flags.Parse(true, os.Args[1:])

	if err := run(*configPath, *logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "caskd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logConfig string) error {
	if err := loggo.ConfigureLoggers(logConfig); err != nil {
		return errors.Annotate(err, "configuring logging")
	}
	cfg, err := config.Read(configPath)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Infof("starting with %d configured nodes, replication factor %d",
		len(cfg.Nodes), cfg.ReplicationFactor)

	manager := nodemanager.NewManager()
	for _, addr := range cfg.Nodes {
		if err := manager.RegisterNode(node.Details{ID: node.NewID(), Address: addr}); err != nil {
			return errors.Annotatef(err, "registering node %q", addr)
		}
	}

	st, err := state.NewState(state.Config{
		Clock:             clock.WallClock,
		Backend:           state.NewMemoryBackend(),
		Selector:          manager,
		ContainerCapacity: cfg.ContainerSize,
	})
	if err != nil {
		return errors.Trace(err)
	}

	queue := eventqueue.New(clock.WallClock)
	closer, err := dispatcher.NewCloseContainer(st)
	if err != nil {
		return errors.Trace(err)
	}
	if err := closer.Register(queue); err != nil {
		return errors.Trace(err)
	}
	if err := queue.Subscribe(events.NodeCommand, manager.HandleNodeCommand); err != nil {
		return errors.Trace(err)
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(manager); err != nil {
		return errors.Annotate(err, "registering node metrics")
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			logger.Infof("serving metrics on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	loop, err := eventloop.NewWorker(eventloop.Config{
		Queue:                queue,
		Clock:                clock.WallClock,
		Interval:             cfg.DrainInterval,
		DrainTimeout:         cfg.DrainTimeout,
		PrometheusRegisterer: registry,
	})
	if err != nil {
		return errors.Trace(err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Infof("stopping on %v", sig)
		loop.Kill()
	}()
	return errors.Trace(loop.Wait())
}
