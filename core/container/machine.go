// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package container

import (
	"fmt"

	"github.com/juju/errors"
)

// transitions is the complete lifecycle table. Any (state, event) pair not
// present is an invalid transition. The table is data so it can be checked
// exhaustively in tests and extended without touching control flow.
var transitions = map[State]map[Event]State{
	Allocated: {Create: Creating},
	Creating:  {Created: Open},
	Open:      {Close: Closing},
	Closing:   {CloseCompleted: Closed},
}

// NextState applies event to current and returns the resulting state.
// If the pair is not in the lifecycle table it returns InvalidTransition;
// the error message names the current state so callers can report why the
// event did not apply.
func NextState(current State, event Event) (State, error) {
	if err := current.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	if err := event.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	next, ok := transitions[current][event]
	if !ok {
		return "", fmt.Errorf("event %q not applicable in %q state%w",
			event, current, errors.Hide(InvalidTransition))
	}
	return next, nil
}
