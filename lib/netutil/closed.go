// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds stream helpers shared by the transports.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal stream
// termination: EOF, a closed connection or pipe, broken pipe, or
// connection reset. A read loop that sees one of these after its peer
// hangs up should exit quietly rather than log an error.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
