// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package container_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/cask/core/container"
)

type MachineSuite struct{}

var _ = gc.Suite(&MachineSuite{})

var allStates = []container.State{
	container.Allocated, container.Creating, container.Open,
	container.Closing, container.Closed,
}

var allEvents = []container.Event{
	container.Create, container.Created, container.Close,
	container.CloseCompleted,
}

// legal is the lifecycle contract: everything else must be rejected.
var legal = map[container.State]map[container.Event]container.State{
	container.Allocated: {container.Create: container.Creating},
	container.Creating:  {container.Created: container.Open},
	container.Open:      {container.Close: container.Closing},
	container.Closing:   {container.CloseCompleted: container.Closed},
}

func (*MachineSuite) TestLegalTransitions(c *gc.C) {
	for from, events := range legal {
		for event, want := range events {
			c.Logf("%s + %s", from, event)
			next, err := container.NextState(from, event)
			c.Check(err, jc.ErrorIsNil)
			c.Check(next, gc.Equals, want)
		}
	}
}

func (*MachineSuite) TestIllegalTransitions(c *gc.C) {
	for _, from := range allStates {
		for _, event := range allEvents {
			if _, ok := legal[from][event]; ok {
				continue
			}
			c.Logf("%s + %s", from, event)
			next, err := container.NextState(from, event)
			c.Check(err, jc.ErrorIs, container.InvalidTransition)
			c.Check(err, gc.ErrorMatches, `.*not applicable in "`+string(from)+`" state`)
			c.Check(next, gc.Equals, container.State(""))
		}
	}
}

func (*MachineSuite) TestUnknownState(c *gc.C) {
	_, err := container.NextState("limbo", container.Close)
	c.Check(err, gc.ErrorMatches, `container state "limbo" not valid`)
}

func (*MachineSuite) TestUnknownEvent(c *gc.C) {
	_, err := container.NextState(container.Open, "shrink")
	c.Check(err, gc.ErrorMatches, `container event "shrink" not valid`)
}

func (*MachineSuite) TestFullLifecycle(c *gc.C) {
	state := container.Allocated
	for _, event := range allEvents {
		next, err := container.NextState(state, event)
		c.Assert(err, jc.ErrorIsNil)
		state = next
	}
	c.Check(state, gc.Equals, container.Closed)
}
