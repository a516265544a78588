// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"slices"
	"sync"

	"github.com/ripley-foundation/ripley/connection"
	"github.com/ripley-foundation/ripley/lib/serial"
)

// Compile-time interface checks.
var (
	_ connection.Route      = (*Route)(nil)
	_ connection.RouteTable = (*RouteTable)(nil)
	_ connection.Buffer     = (*Buffer)(nil)
)

// Receiver consumes packets that arrive on a Route. The payload has had
// its route token removed and is only valid for the duration of the
// call.
type Receiver interface {
	Receive(route *Route, payload []byte)
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(route *Route, payload []byte)

func (f ReceiverFunc) Receive(route *Route, payload []byte) { f(route, payload) }

// Route is one direction of a path between a connection on this bus and
// a connection on another. It is registered with its Transport under a
// local token at creation; the peer learns that token during route
// setup and prefixes it to every packet it sends back. SetDestination
// supplies the mirror information: the remote token (the shibboleth)
// that outbound packets must carry, and the ConnectionID at the far
// end.
type Route struct {
	receiver Receiver
	token    serial.RouteToken

	mu          sync.Mutex
	transport   Transport
	shibboleth  serial.RouteToken
	destination serial.ConnectionID
	connected   bool
	table       *RouteTable
}

// NewRoute registers a new Route with transport. Inbound packets for
// the route are passed to receiver, which may be nil to discard them.
func NewRoute(transport Transport, receiver Receiver) *Route {
	route := &Route{receiver: receiver, transport: transport}
	route.token = transport.RegisterRoute(route)
	return route
}

// Token returns the local token peers use to address this route.
func (r *Route) Token() serial.RouteToken {
	return r.token
}

// SetDestination completes the route: outbound packets will carry
// shibboleth, and the route is installed in table as the path to
// endID. table may be nil when no registry needs to find the route.
func (r *Route) SetDestination(shibboleth serial.RouteToken, endID serial.ConnectionID, table *RouteTable) error {
	r.mu.Lock()
	if r.transport == nil {
		r.mu.Unlock()
		return ErrRouteDisconnected
	}
	r.shibboleth = shibboleth
	r.destination = endID
	r.connected = true
	r.table = table
	r.mu.Unlock()

	if table != nil {
		table.Set(endID, r)
	}
	return nil
}

// Destination returns the ConnectionID at the far end, or false if
// SetDestination has not been called.
func (r *Route) Destination() (serial.ConnectionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destination, r.connected
}

// OutputBuffer opens an outbound packet toward the destination
// connection. The returned buffer already holds the shibboleth.
func (r *Route) OutputBuffer() (connection.Buffer, error) {
	r.mu.Lock()
	transport, shibboleth, connected := r.transport, r.shibboleth, r.connected
	r.mu.Unlock()

	if transport == nil {
		return nil, ErrRouteDisconnected
	}
	if !connected {
		return nil, ErrNoDestination
	}
	buffer, err := transport.OpenBuffer(shibboleth)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// Close unregisters the route from its transport and removes it from
// the route table. Closing twice is a no-op.
func (r *Route) Close() error {
	r.mu.Lock()
	transport, table, destination, connected := r.transport, r.table, r.destination, r.connected
	r.transport = nil
	r.mu.Unlock()

	if transport == nil {
		return nil
	}
	transport.UnregisterRoute(r.token)
	if table != nil && connected {
		table.removeRoute(destination, r)
	}
	return nil
}

func (r *Route) deliver(payload []byte) {
	if r.receiver != nil {
		r.receiver.Receive(r, payload)
	}
}

// RouteTable maps foreign ConnectionIDs to the Routes that reach them.
// It is safe for concurrent use and satisfies connection.RouteTable.
type RouteTable struct {
	mu     sync.RWMutex
	routes map[serial.ConnectionID]*Route
}

// NewRouteTable returns an empty table.
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[serial.ConnectionID]*Route)}
}

// Lookup implements connection.RouteTable.
func (t *RouteTable) Lookup(id serial.ConnectionID) (connection.Route, bool) {
	route, ok := t.Route(id)
	if !ok {
		return nil, false
	}
	return route, true
}

// Route returns the concrete Route to id.
func (t *RouteTable) Route(id serial.ConnectionID) (*Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	route, ok := t.routes[id]
	return route, ok
}

// Set installs route as the path to id, replacing any previous entry.
func (t *RouteTable) Set(id serial.ConnectionID, route *Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[id] = route
}

// Remove deletes the entry for id.
func (t *RouteTable) Remove(id serial.ConnectionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, id)
}

// removeRoute deletes the entry for id only if it still points at
// route, so closing a replaced route does not evict its successor.
func (t *RouteTable) removeRoute(id serial.ConnectionID, route *Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.routes[id] == route {
		delete(t.routes, id)
	}
}

// Len returns the number of reachable connections.
func (t *RouteTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

// ConnectionIDs returns the reachable connections in ascending order.
func (t *RouteTable) ConnectionIDs() []serial.ConnectionID {
	t.mu.RLock()
	ids := make([]serial.ConnectionID, 0, len(t.routes))
	for id := range t.routes {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Buffer accumulates one outbound packet. Writes append to the packet;
// Commit hands it to the transport. A Buffer is not safe for concurrent
// use and cannot be reused after Commit.
type Buffer struct {
	data      []byte
	commit    func(packet []byte) error
	committed bool
}

// newBuffer starts a packet addressed to shibboleth. commit receives
// the complete packet, route token included.
func newBuffer(shibboleth serial.RouteToken, commit func([]byte) error) *Buffer {
	return &Buffer{
		data:   serial.AppendUint(make([]byte, 0, 64), uint64(shibboleth)),
		commit: commit,
	}
}

func (b *Buffer) Write(p []byte) (int, error) {
	if b.committed {
		return 0, ErrBufferCommitted
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

// Bytes returns the packet so far, route token included.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Commit sends the packet.
func (b *Buffer) Commit() error {
	if b.committed {
		return ErrBufferCommitted
	}
	b.committed = true
	return b.commit(b.data)
}
