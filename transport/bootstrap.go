// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
)

// Link is a bootstrapped stream: a StreamTransport plus the route on it
// that reaches the peer's connection.
type Link struct {
	Peer      Peer
	Route     *Route
	Transport *StreamTransport
}

// Bootstrap turns a freshly opened stream into a Link. It registers a
// route for the peer, runs handshake with that route's token, and on
// success installs the route in table under the peer's ConnectionID.
// handshake.Route is overwritten. On failure conn is closed.
//
// The caller must call Link.Run to start receiving.
func Bootstrap(ctx context.Context, conn io.ReadWriteCloser, handshake Handshake, table *RouteTable, receiver Receiver, options StreamOptions) (*Link, error) {
	stream := NewStreamTransport(conn, options)
	route := NewRoute(stream, receiver)
	handshake.Route = route.Token()

	peer, err := handshake.Run(ctx, conn)
	if err != nil {
		route.Close()
		stream.Close()
		return nil, err
	}
	if err := route.SetDestination(peer.Route, peer.Connection, table); err != nil {
		stream.Close()
		return nil, fmt.Errorf("completing route to %s: %w", peer.Connection, err)
	}
	return &Link{Peer: peer, Route: route, Transport: stream}, nil
}

// Run receives packets until the stream ends or ctx is cancelled. The
// route is removed from its table when Run returns.
func (l *Link) Run(ctx context.Context) error {
	defer l.Route.Close()
	return l.Transport.Run(ctx)
}

// Close tears the link down.
func (l *Link) Close() error {
	l.Route.Close()
	return l.Transport.Close()
}
