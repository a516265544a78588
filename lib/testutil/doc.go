// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by Ripley's tests.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern, so a test waiting on a goroutine fails with a message
// instead of hanging. They are the only place tests use the wall clock;
// everything else that waits takes a lib/clock Clock.
package testutil
