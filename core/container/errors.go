// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package container

import (
	"github.com/juju/errors"
)

const (
	// NotFound describes a lookup against a container identity the
	// state store has never seen.
	NotFound = errors.ConstError("container not found")

	// InvalidTransition describes a lifecycle event that is not
	// applicable to the container's current state, including the case
	// where a concurrent caller already moved the state on.
	InvalidTransition = errors.ConstError("invalid container state transition")
)
