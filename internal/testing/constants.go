// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"time"
)

// ShortWait is how long a test blocks waiting for something that should
// not happen, such as a flush while one is already in flight.
const ShortWait = 50 * time.Millisecond

// LongWait is used when something should already have happened, or
// happens quickly, but we want to be sure we have not missed it.
const LongWait = 10 * time.Second
