// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package state implements the authoritative container state store. All
// lifecycle changes go through UpdateContainerState, which applies the
// transition table atomically per container; no other component mutates a
// record. Different containers never contend on a shared lock, so closes
// of unrelated containers proceed concurrently.
package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/cask/core/container"
	"github.com/juju/cask/core/pipeline"
)

var logger = loggo.GetLogger("cask.state")

// Backend is the persistence boundary for container records. The store
// writes through on every allocation and transition; implementations
// decide durability. Records are keyed by container ID.
type Backend interface {
	// Put stores or replaces one record.
	Put(container.Info) error

	// Load returns every stored record, in no particular order.
	Load() ([]container.Info, error)
}

// PipelineSelector is the placement boundary: given a replication mode and
// factor it picks the nodes that will hold a new container's replicas.
// The node manager provides the default implementation.
type PipelineSelector interface {
	SelectPipeline(mode pipeline.Mode, factor int) (*pipeline.Pipeline, error)
}

// Config holds a State's dependencies.
type Config struct {
	// Clock timestamps state changes. A nil clock means the wall clock.
	Clock clock.Clock

	// Backend receives every record write.
	Backend Backend

	// Selector places new containers on the fleet.
	Selector PipelineSelector

	// ContainerCapacity is the size in bytes new containers are
	// allocated with.
	ContainerCapacity uint64
}

// Validate returns an error if the configuration is unusable.
func (c Config) Validate() error {
	if c.Backend == nil {
		return errors.NotValidf("nil Backend")
	}
	if c.Selector == nil {
		return errors.NotValidf("nil Selector")
	}
	if c.ContainerCapacity == 0 {
		return errors.NotValidf("zero ContainerCapacity")
	}
	return nil
}

// record pairs one container's snapshot with its own lock. Transitions
// hold the record lock only, never the store lock, keeping the critical
// section per identity.
type record struct {
	mu   sync.Mutex
	info container.Info
}

// State is the container state store.
type State struct {
	config Config

	mu         sync.RWMutex
	containers map[container.ID]*record
	nextID     uint64
}

// NewState builds a store from config, warming it from the backend.
func NewState(config Config) (*State, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.Clock == nil {
		config.Clock = clock.WallClock
	}
	st := &State{
		config:     config,
		containers: make(map[container.ID]*record),
		nextID:     1,
	}
	existing, err := config.Backend.Load()
	if err != nil {
		return nil, errors.Annotate(err, "loading container records")
	}
	for _, info := range existing {
		if err := info.Validate(); err != nil {
			return nil, errors.Annotatef(err, "stored container %v", info.ID)
		}
		st.containers[info.ID] = &record{info: info}
		if uint64(info.ID) >= st.nextID {
			st.nextID = uint64(info.ID) + 1
		}
	}
	return st, nil
}

// AllocateContainer creates a new container record in the Allocated state
// together with its immutable pipeline, and returns a snapshot of it. This
// is the only way records enter the store.
func (st *State) AllocateContainer(mode pipeline.Mode, factor int, owner string) (container.Info, error) {
	if owner == "" {
		return container.Info{}, errors.NotValidf("empty owner")
	}
	p, err := st.config.Selector.SelectPipeline(mode, factor)
	if err != nil {
		return container.Info{}, errors.Annotate(err, "selecting pipeline")
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	info := container.Info{
		ID:             container.ID(st.nextID),
		State:          container.Allocated,
		Owner:          owner,
		Capacity:       st.config.ContainerCapacity,
		Mode:           mode,
		Pipeline:       p,
		StateChangedAt: st.config.Clock.Now(),
	}
	if err := st.config.Backend.Put(info); err != nil {
		return container.Info{}, errors.Annotatef(err, "storing container %v", info.ID)
	}
	st.containers[info.ID] = &record{info: info}
	st.nextID++
	logger.Infof("allocated container %v for %q on %s", info.ID, owner, p)
	return info, nil
}

// Container returns a snapshot of the record for id, or a NotFound error
// if the store has never seen it.
func (st *State) Container(id container.ID) (container.Info, error) {
	rec, err := st.lookup(id)
	if err != nil {
		return container.Info{}, errors.Trace(err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.info, nil
}

// Containers returns a snapshot of every record, ordered by ID.
func (st *State) Containers() []container.Info {
	st.mu.RLock()
	records := make([]*record, 0, len(st.containers))
	for _, rec := range st.containers {
		records = append(records, rec)
	}
	st.mu.RUnlock()

	infos := make([]container.Info, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		infos = append(infos, rec.info)
		rec.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// UpdateContainerState applies a lifecycle event to the container and
// returns the new state. The transition is atomic per container: of two
// concurrent attempts to apply the same event, exactly one succeeds and
// the other gets InvalidTransition reporting the advanced state. On any
// failure the record is unchanged.
func (st *State) UpdateContainerState(id container.ID, event container.Event) (container.State, error) {
	rec, err := st.lookup(id)
	if err != nil {
		return "", errors.Trace(err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	next, err := container.NextState(rec.info.State, event)
	if err != nil {
		return "", errors.Annotatef(err, "container %v", id)
	}
	previous := rec.info
	rec.info.State = next
	rec.info.StateChangedAt = st.config.Clock.Now()
	if err := st.config.Backend.Put(rec.info); err != nil {
		rec.info = previous
		return "", errors.Annotatef(err, "storing container %v", id)
	}
	logger.Debugf("container %v: %s -> %s on %q", id, previous.State, next, event)
	return next, nil
}

func (st *State) lookup(id container.ID) (*record, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	rec, ok := st.containers[id]
	if !ok {
		return nil, fmt.Errorf("container %v not found%w", id, errors.Hide(container.NotFound))
	}
	return rec, nil
}
