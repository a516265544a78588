// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ripley-foundation/ripley/lib/serial"
)

// Transport moves committed packets from a Route on one bus to the Route
// on another bus that the packet's leading route token names. A single
// Transport can serve any number of Routes between the same pair of
// buses.
type Transport interface {
	// RegisterRoute records route as the local endpoint for packets
	// that arrive carrying the returned token. Tokens are never reused.
	RegisterRoute(route *Route) serial.RouteToken

	// UnregisterRoute forgets the endpoint registered under token.
	// Packets arriving for it afterwards are dropped.
	UnregisterRoute(token serial.RouteToken)

	// OpenBuffer returns an outbound packet addressed to the remote
	// Route registered under shibboleth on the far side.
	OpenBuffer(shibboleth serial.RouteToken) (*Buffer, error)
}

// Listener accepts inbound byte streams from peer buses. Each accepted
// net.Conn is handed to the bootstrap handshake and then to a
// StreamTransport.
type Listener interface {
	// Accept blocks until a peer connects, ctx is cancelled, or the
	// listener is closed.
	Accept(ctx context.Context) (net.Conn, error)

	// Address returns the address peers dial to reach this listener.
	// The format is transport-specific ("192.168.1.10:7891" for TCP).
	Address() string

	Close() error
}

// Dialer opens byte streams to peer buses.
type Dialer interface {
	// DialContext connects to address, which has the format a peer's
	// Listener.Address returns.
	DialContext(ctx context.Context, address string) (net.Conn, error)
}

var (
	// ErrRouteDisconnected is returned when a closed Route is asked
	// for an output buffer.
	ErrRouteDisconnected = errors.New("route was disconnected")

	// ErrNoDestination is returned when a Route is asked for an output
	// buffer before SetDestination.
	ErrNoDestination = errors.New("route has no destination")

	// ErrBufferCommitted is returned when a Buffer is written to or
	// committed after it has already been committed.
	ErrBufferCommitted = errors.New("buffer already committed")

	// ErrTransportClosed is returned by operations on a transport that
	// has been shut down.
	ErrTransportClosed = errors.New("transport closed")

	// ErrUnknownRoute matches UnknownRouteError.
	ErrUnknownRoute = errors.New("unknown route token")
)

// UnknownRouteError is returned when an inbound packet names a route
// token that has no registered endpoint.
type UnknownRouteError struct {
	Token serial.RouteToken
}

func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("no route registered for token %s", e.Token)
}

func (e *UnknownRouteError) Is(target error) bool { return target == ErrUnknownRoute }

// endpoints is the route-token bookkeeping shared by every Transport
// implementation: a counter that issues tokens starting at zero and the
// map from token to the Route that receives packets carrying it.
type endpoints struct {
	mu     sync.Mutex
	next   serial.RouteToken
	routes map[serial.RouteToken]*Route
}

func (e *endpoints) register(route *Route) serial.RouteToken {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.routes == nil {
		e.routes = make(map[serial.RouteToken]*Route)
	}
	token := e.next
	e.next++
	e.routes[token] = route
	return token
}

func (e *endpoints) unregister(token serial.RouteToken) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.routes, token)
}

func (e *endpoints) lookup(token serial.RouteToken) (*Route, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	route, ok := e.routes[token]
	return route, ok
}

func (e *endpoints) registered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.routes)
}

// dispatch strips the leading route token from packet and hands the
// rest to the Route registered under it. The receiver runs on the
// caller's goroutine.
func (e *endpoints) dispatch(packet []byte) error {
	value, length, err := serial.DecodeUint(packet)
	if err != nil {
		return fmt.Errorf("reading route token: %w", err)
	}
	token := serial.RouteToken(value)
	route, ok := e.lookup(token)
	if !ok {
		return &UnknownRouteError{Token: token}
	}
	route.deliver(packet[length:])
	return nil
}
