// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"io"
	"sync/atomic"

	"github.com/ripley-foundation/ripley/lib/serial"
)

// Referenceable is implemented by every object that can be passed by
// reference. Reference reports the object's Reference if it already has
// one: always for a proxy, and for a local object once it has been
// exported through a Connection.
//
// The registry recognizes an object it has already exported by using it
// as a map key, which needs a comparable dynamic type. Pointer types
// always are; see Connection.ToReference for the others.
type Referenceable interface {
	Reference() (serial.Reference, bool)
}

// Local is embedded by objects that live in this process. It records
// the Reference the registry assigns on first export. The zero value is
// ready to use; a Local must not be copied after first use.
type Local struct {
	reference atomic.Pointer[serial.Reference]
}

// Reference returns the assigned Reference, or false if the object has
// not been exported yet.
func (l *Local) Reference() (serial.Reference, bool) {
	if assigned := l.reference.Load(); assigned != nil {
		return *assigned, true
	}
	return serial.Reference{}, false
}

// bindReference records the Reference assigned at export. The first
// binding wins.
func (l *Local) bindReference(reference serial.Reference) {
	l.reference.CompareAndSwap(nil, &reference)
}

// binder is satisfied by any type embedding Local.
type binder interface {
	bindReference(serial.Reference)
}

// Buffer is an outbound message under construction on a Route. Nothing
// is sent until Commit.
type Buffer interface {
	io.Writer
	Commit() error
}

// Route is a path to one foreign connection.
type Route interface {
	// OutputBuffer opens a new outbound message toward the connection
	// at the other end of the route.
	OutputBuffer() (Buffer, error)
}

// RouteTable looks up the Route to a foreign connection. It is filled
// in by the route setup process; the registry only reads it.
type RouteTable interface {
	Lookup(serial.ConnectionID) (Route, bool)
}

// Capability declares a capability interface T: the name used in
// diagnostics, and the constructor that wraps a Proxy so it implements
// T. A capability with a nil NewProxy can only be imported from local
// References.
type Capability[T Referenceable] struct {
	Name     string
	NewProxy func(*Proxy) T
}

// Proxy stands in for an object that lives on another connection. It is
// bound to one Route and one Reference for its whole life.
// Capability-specific proxies embed *Proxy and implement their methods
// by writing to the Buffer returned by Forward.
type Proxy struct {
	route     Route
	reference serial.Reference
}

// NewProxy binds a Proxy to route and reference.
func NewProxy(route Route, reference serial.Reference) *Proxy {
	return &Proxy{route: route, reference: reference}
}

// Reference always reports the bound Reference.
func (p *Proxy) Reference() (serial.Reference, bool) {
	return p.reference, true
}

// Route returns the Route the proxy forwards to.
func (p *Proxy) Route() Route {
	return p.route
}

// Forward opens an outbound buffer on the proxy's Route and writes the
// proxy's Reference into it, so the receiving connection can resolve
// the target object locally. The caller appends the operation's
// arguments and commits.
func (p *Proxy) Forward() (Buffer, error) {
	buffer, err := p.route.OutputBuffer()
	if err != nil {
		return nil, err
	}
	if _, err := p.reference.WriteTo(buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}
