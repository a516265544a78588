// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	changed *sync.Cond
}

// fakeTimer is one registered After or ticker.
type fakeTimer struct {
	deadline time.Time
	channel  chan time.Time
	// interval is zero for After and the period for tickers.
	interval time.Duration
	stopped  bool
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{now: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.addLocked(&fakeTimer{deadline: c.now.Add(d), channel: channel})
	return channel
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{deadline: c.now.Add(d), channel: make(chan time.Time, 1), interval: d}
	c.addLocked(timer)
	return &Ticker{
		C: timer.channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			timer.stopped = true
		},
	}
}

func (c *FakeClock) addLocked(timer *fakeTimer) {
	c.pending = append(c.pending, timer)
	c.changed.Broadcast()
}

// Advance moves the clock forward by d and fires, in deadline order,
// every timer that falls due. A ticker spanned by several intervals
// fires once per interval, subject to its channel's capacity.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)

	for {
		var due []*fakeTimer
		remaining := c.pending[:0]
		for _, timer := range c.pending {
			switch {
			case timer.stopped:
			case !timer.deadline.After(c.now):
				due = append(due, timer)
			default:
				remaining = append(remaining, timer)
			}
		}
		c.pending = remaining
		if len(due) == 0 {
			return
		}

		slices.SortStableFunc(due, func(a, b *fakeTimer) int {
			return a.deadline.Compare(b.deadline)
		})
		for _, timer := range due {
			select {
			case timer.channel <- c.now:
			default:
			}
			if timer.interval > 0 {
				timer.deadline = timer.deadline.Add(timer.interval)
				c.pending = append(c.pending, timer)
			}
		}
	}
}

// WaitForTimers blocks until at least n timers are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// Pending returns the number of timers that have not fired or been
// stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, timer := range c.pending {
		if !timer.stopped {
			count++
		}
	}
	return count
}
