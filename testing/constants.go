// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testing holds constants shared by the test suites.
package testing

import (
	"time"
)

const (
	// LongWait is how long tests wait for something that should
	// definitely happen.
	LongWait = 10 * time.Second

	// ShortWait is a polling interval for things expected soon.
	ShortWait = 50 * time.Millisecond
)
