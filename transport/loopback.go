// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/ripley-foundation/ripley/lib/serial"
)

var _ Transport = (*Loopback)(nil)

// Loopback connects routes that live in the same process. Committing a
// buffer delivers the packet to the addressed route's receiver on the
// committing goroutine, so an unknown token surfaces as the Commit
// error.
type Loopback struct {
	endpoints endpoints
}

// NewLoopback returns an empty Loopback.
func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) RegisterRoute(route *Route) serial.RouteToken {
	return l.endpoints.register(route)
}

func (l *Loopback) UnregisterRoute(token serial.RouteToken) {
	l.endpoints.unregister(token)
}

func (l *Loopback) OpenBuffer(shibboleth serial.RouteToken) (*Buffer, error) {
	return newBuffer(shibboleth, l.endpoints.dispatch), nil
}

// Routes returns the number of registered routes.
func (l *Loopback) Routes() int {
	return l.endpoints.registered()
}
