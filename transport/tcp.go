// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"
)

// Compile-time interface checks.
var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// TCPListener accepts peer buses over TCP. It requires direct
// reachability between the two hosts.
type TCPListener struct {
	listener net.Listener
}

// NewTCPListener listens on address (":7891", "192.168.1.10:7891").
// Use ":0" for a random available port.
func NewTCPListener(address string) (*TCPListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener: listener}, nil
}

// Accept waits for the next peer. Cancelling ctx closes the listener,
// since net.Listener has no per-call cancellation.
func (l *TCPListener) Accept(ctx context.Context) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { l.listener.Close() })
	defer stop()

	conn, err := l.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

// Address returns the TCP address in "host:port" format.
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

func (l *TCPListener) Close() error {
	return l.listener.Close()
}

// TCPDialer opens TCP connections to peer buses.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a TCP connection to be
	// established. Zero means no standalone timeout: only the context
	// deadline applies.
	Timeout time.Duration
}

// DialContext opens a TCP connection to address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
}
