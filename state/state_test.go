// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/cask/core/container"
	"github.com/juju/cask/core/node"
	"github.com/juju/cask/core/pipeline"
	"github.com/juju/cask/nodemanager"
	"github.com/juju/cask/state"
)

const capacity = 5 * 1024 * 1024 * 1024

type StateSuite struct {
	testing.IsolationSuite

	clock   *testclock.Clock
	backend *state.MemoryBackend
	manager *nodemanager.Manager
	state   *state.State
}

var _ = gc.Suite(&StateSuite{})

func (s *StateSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.clock = testclock.NewClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.backend = state.NewMemoryBackend()
	s.manager = nodemanager.NewManager()
	for i := 0; i < 10; i++ {
		err := s.manager.RegisterNode(node.Details{
			ID:      node.ID(fmt.Sprintf("node-%d", i)),
			Address: fmt.Sprintf("10.0.0.%d", i),
		})
		c.Assert(err, jc.ErrorIsNil)
	}
	var err error
	s.state, err = state.NewState(state.Config{
		Clock:             s.clock,
		Backend:           s.backend,
		Selector:          s.manager,
		ContainerCapacity: capacity,
	})
	c.Assert(err, jc.ErrorIsNil)
}

func (s *StateSuite) open(c *gc.C, mode pipeline.Mode, factor int) container.Info {
	info, err := s.state.AllocateContainer(mode, factor, "blockstore")
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.state.UpdateContainerState(info.ID, container.Create)
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.state.UpdateContainerState(info.ID, container.Created)
	c.Assert(err, jc.ErrorIsNil)
	return info
}

func (s *StateSuite) TestConfigValidate(c *gc.C) {
	_, err := state.NewState(state.Config{})
	c.Check(err, jc.ErrorIs, errors.NotValid)
	c.Check(err, gc.ErrorMatches, "nil Backend not valid")

	_, err = state.NewState(state.Config{Backend: s.backend})
	c.Check(err, gc.ErrorMatches, "nil Selector not valid")

	_, err = state.NewState(state.Config{Backend: s.backend, Selector: s.manager})
	c.Check(err, gc.ErrorMatches, "zero ContainerCapacity not valid")
}

func (s *StateSuite) TestAllocateStandalone(c *gc.C) {
	info, err := s.state.AllocateContainer(pipeline.Standalone, 1, "blockstore")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(info.ID, gc.Equals, container.ID(1))
	c.Check(info.State, gc.Equals, container.Allocated)
	c.Check(info.Owner, gc.Equals, "blockstore")
	c.Check(info.Capacity, gc.Equals, uint64(capacity))
	c.Check(info.Mode, gc.Equals, pipeline.Standalone)
	c.Check(info.Pipeline.Len(), gc.Equals, 1)
	c.Check(info.StateChangedAt, gc.Equals, s.clock.Now())
}

func (s *StateSuite) TestAllocateConsensus(c *gc.C) {
	info, err := s.state.AllocateContainer(pipeline.Consensus, 3, "blockstore")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(info.Pipeline.Len(), gc.Equals, 3)
	c.Check(info.Pipeline.Contains(info.Pipeline.Leader()), jc.IsTrue)
}

func (s *StateSuite) TestAllocateAssignsFreshIDs(c *gc.C) {
	first, err := s.state.AllocateContainer(pipeline.Standalone, 1, "blockstore")
	c.Assert(err, jc.ErrorIsNil)
	second, err := s.state.AllocateContainer(pipeline.Standalone, 1, "blockstore")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(second.ID, gc.Equals, first.ID+1)
}

func (s *StateSuite) TestAllocateValidation(c *gc.C) {
	_, err := s.state.AllocateContainer(pipeline.Standalone, 1, "")
	c.Check(err, gc.ErrorMatches, "empty owner not valid")

	_, err = s.state.AllocateContainer(pipeline.Consensus, 11, "blockstore")
	c.Check(err, gc.ErrorMatches, "selecting pipeline: cannot place 11 replicas on 10 registered nodes")
}

func (s *StateSuite) TestContainerNotFound(c *gc.C) {
	_, err := s.state.Container(container.ID(12345))
	c.Check(err, jc.ErrorIs, container.NotFound)
	c.Check(err, gc.ErrorMatches, "container 12345 not found")
}

func (s *StateSuite) TestUpdateUnknownContainer(c *gc.C) {
	_, err := s.state.UpdateContainerState(container.ID(12345), container.Close)
	c.Check(err, jc.ErrorIs, container.NotFound)
}

func (s *StateSuite) TestLifecycle(c *gc.C) {
	info, err := s.state.AllocateContainer(pipeline.Consensus, 3, "blockstore")
	c.Assert(err, jc.ErrorIsNil)

	for _, step := range []struct {
		event container.Event
		want  container.State
	}{
		{container.Create, container.Creating},
		{container.Created, container.Open},
		{container.Close, container.Closing},
		{container.CloseCompleted, container.Closed},
	} {
		next, err := s.state.UpdateContainerState(info.ID, step.event)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(next, gc.Equals, step.want)

		stored, err := s.state.Container(info.ID)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(stored.State, gc.Equals, step.want)
	}
}

func (s *StateSuite) TestInvalidTransitionLeavesRecord(c *gc.C) {
	info, err := s.state.AllocateContainer(pipeline.Standalone, 1, "blockstore")
	c.Assert(err, jc.ErrorIsNil)

	_, err = s.state.UpdateContainerState(info.ID, container.Close)
	c.Check(err, jc.ErrorIs, container.InvalidTransition)
	c.Check(err, gc.ErrorMatches, `container 1: event "close" not applicable in "allocated" state`)

	stored, err := s.state.Container(info.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored.State, gc.Equals, container.Allocated)
	c.Check(stored.StateChangedAt, gc.Equals, info.StateChangedAt)
}

func (s *StateSuite) TestTransitionTimestamps(c *gc.C) {
	info, err := s.state.AllocateContainer(pipeline.Standalone, 1, "blockstore")
	c.Assert(err, jc.ErrorIsNil)

	s.clock.Advance(time.Minute)
	_, err = s.state.UpdateContainerState(info.ID, container.Create)
	c.Assert(err, jc.ErrorIsNil)

	stored, err := s.state.Container(info.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored.StateChangedAt, gc.Equals, info.StateChangedAt.Add(time.Minute))
}

func (s *StateSuite) TestConcurrentCloseRace(c *gc.C) {
	info := s.open(c, pipeline.Consensus, 3)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.state.UpdateContainerState(info.ID, container.Close)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
			continue
		}
		c.Check(err, jc.ErrorIs, container.InvalidTransition)
	}
	c.Check(won, gc.Equals, 1)

	stored, err := s.state.Container(info.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored.State, gc.Equals, container.Closing)
}

func (s *StateSuite) TestWritesThroughBackend(c *gc.C) {
	info := s.open(c, pipeline.Standalone, 1)

	stored, err := s.backend.Load()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(stored, gc.HasLen, 1)
	c.Check(stored[0].ID, gc.Equals, info.ID)
	c.Check(stored[0].State, gc.Equals, container.Open)
}

func (s *StateSuite) TestBackendFailureLeavesRecord(c *gc.C) {
	info := s.open(c, pipeline.Standalone, 1)

	failing, err := state.NewState(state.Config{
		Clock:             s.clock,
		Backend:           &failingBackend{MemoryBackend: s.backend},
		Selector:          s.manager,
		ContainerCapacity: capacity,
	})
	c.Assert(err, jc.ErrorIsNil)

	_, err = failing.UpdateContainerState(info.ID, container.Close)
	c.Check(err, gc.ErrorMatches, "storing container 1: disk full")

	stored, err := failing.Container(info.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored.State, gc.Equals, container.Open)
}

func (s *StateSuite) TestNewStateWarmsFromBackend(c *gc.C) {
	info := s.open(c, pipeline.Consensus, 3)

	reloaded, err := state.NewState(state.Config{
		Clock:             s.clock,
		Backend:           s.backend,
		Selector:          s.manager,
		ContainerCapacity: capacity,
	})
	c.Assert(err, jc.ErrorIsNil)

	stored, err := reloaded.Container(info.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored.State, gc.Equals, container.Open)

	// New allocations must not reuse the reloaded ID.
	next, err := reloaded.AllocateContainer(pipeline.Standalone, 1, "blockstore")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(next.ID, gc.Equals, info.ID+1)
}

func (s *StateSuite) TestContainersSnapshot(c *gc.C) {
	for i := 0; i < 3; i++ {
		_, err := s.state.AllocateContainer(pipeline.Standalone, 1, "blockstore")
		c.Assert(err, jc.ErrorIsNil)
	}
	infos := s.state.Containers()
	c.Assert(infos, gc.HasLen, 3)
	for i, info := range infos {
		c.Check(info.ID, gc.Equals, container.ID(i+1))
	}
}

type failingBackend struct {
	*state.MemoryBackend
}

func (*failingBackend) Put(container.Info) error {
	return errors.New("disk full")
}
