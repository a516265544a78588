// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the subset of the time package that Ripley components wait
// on.
type Clock interface {
	Now() time.Time

	// After returns a channel that receives once d has elapsed. For
	// d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that fires every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. C has capacity 1; ticks that
// arrive while it is full are dropped.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop ends the ticks. C is not closed.
func (t *Ticker) Stop() { t.stop() }
