// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets code that waits on time be driven by tests.
//
// Components that time out or tick take a Clock instead of calling the
// time package. Production passes Real(); tests pass a FakeClock and
// move it forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go handshake.Run(ctx, stream) // registers a timeout with fake
//	fake.WaitForTimers(1)
//	fake.Advance(10 * time.Second)
//
// WaitForTimers closes the race between a goroutine registering its
// timer and the test advancing past it.
package clock
