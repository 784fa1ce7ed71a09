// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config reads the daemon configuration. Values arrive as YAML,
// are coerced through a schema so type errors are caught at startup, and
// come out as a validated Config.
package config

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/schema"
	yaml "gopkg.in/yaml.v2"
)

var fields = schema.Fields{
	"container-size-gb":  schema.Int(),
	"replication-factor": schema.Int(),
	"drain-interval":     schema.String(),
	"drain-timeout":      schema.String(),
	"metrics-addr":       schema.String(),
	"nodes":              schema.List(schema.String()),
}

var defaults = schema.Defaults{
	"container-size-gb":  int64(5),
	"replication-factor": int64(3),
	"drain-interval":     "100ms",
	"drain-timeout":      "5s",
	"metrics-addr":       "",
	"nodes":              schema.Omit,
}

var checker = schema.FieldMap(fields, defaults)

// Config is the daemon configuration.
type Config struct {
	// ContainerSize is the capacity in bytes new containers are
	// allocated with.
	ContainerSize uint64

	// ReplicationFactor is the default pipeline size for consensus
	// replicated containers.
	ReplicationFactor int

	// DrainInterval is how often the event loop drains the queue.
	DrainInterval time.Duration

	// DrainTimeout bounds one drain pass.
	DrainTimeout time.Duration

	// MetricsAddr is the listen address for the metrics endpoint;
	// empty disables it.
	MetricsAddr string

	// Nodes are the addresses of the storage nodes to register at
	// startup.
	Nodes []string
}

// Read loads the configuration from a YAML file at path.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading config file")
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Annotate(err, "parsing config")
	}
	coerced, err := checker.Coerce(raw, nil)
	if err != nil {
		return nil, errors.Annotate(err, "invalid config")
	}
	m := coerced.(map[string]interface{})

	sizeGB := m["container-size-gb"].(int64)
	if sizeGB <= 0 {
		return nil, errors.NotValidf("container-size-gb %d", sizeGB)
	}
	cfg := &Config{
		ContainerSize:     uint64(sizeGB) * 1024 * 1024 * 1024,
		ReplicationFactor: int(m["replication-factor"].(int64)),
		MetricsAddr:       m["metrics-addr"].(string),
	}
	if cfg.DrainInterval, err = time.ParseDuration(m["drain-interval"].(string)); err != nil {
		return nil, errors.Annotate(err, "invalid drain-interval")
	}
	if cfg.DrainTimeout, err = time.ParseDuration(m["drain-timeout"].(string)); err != nil {
		return nil, errors.Annotate(err, "invalid drain-timeout")
	}
	if nodes, ok := m["nodes"].([]interface{}); ok {
		for _, n := range nodes {
			cfg.Nodes = append(cfg.Nodes, n.(string))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if c.ContainerSize == 0 {
		return errors.NotValidf("container-size-gb 0")
	}
	if c.ReplicationFactor < 1 {
		return errors.NotValidf("replication-factor %d", c.ReplicationFactor)
	}
	if c.DrainInterval <= 0 {
		return errors.NotValidf("non-positive drain-interval")
	}
	if c.DrainTimeout <= 0 {
		return errors.NotValidf("non-positive drain-timeout")
	}
	return nil
}
