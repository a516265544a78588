// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ripley-foundation/ripley/lib/serial"
	"github.com/ripley-foundation/ripley/lib/testutil"
)

// channelReceiver forwards every delivered payload to a channel.
type channelReceiver chan []byte

func (c channelReceiver) Receive(_ *Route, payload []byte) {
	c <- bytes.Clone(payload)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// streamPair connects two StreamTransports over a synchronous pipe and
// starts both read loops. Each side has one route pointing at the
// other.
type streamPair struct {
	left, right           *StreamTransport
	leftRoute, rightRoute *Route
	leftIn, rightIn       chan []byte
	leftDone, rightDone   chan error
}

func newStreamPair(t *testing.T, leftOptions, rightOptions StreamOptions) *streamPair {
	t.Helper()
	leftConn, rightConn := net.Pipe()
	pair := &streamPair{
		left:      NewStreamTransport(leftConn, leftOptions),
		right:     NewStreamTransport(rightConn, rightOptions),
		leftIn:    make(chan []byte, 16),
		rightIn:   make(chan []byte, 16),
		leftDone:  make(chan error, 1),
		rightDone: make(chan error, 1),
	}
	pair.leftRoute = NewRoute(pair.left, channelReceiver(pair.leftIn))
	pair.rightRoute = NewRoute(pair.right, channelReceiver(pair.rightIn))
	pair.leftRoute.SetDestination(pair.rightRoute.Token(), 2, nil)
	pair.rightRoute.SetDestination(pair.leftRoute.Token(), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		pair.left.Close()
		pair.right.Close()
	})
	go func() { pair.leftDone <- pair.left.Run(ctx) }()
	go func() { pair.rightDone <- pair.right.Run(ctx) }()
	return pair
}

func send(t *testing.T, route *Route, payload []byte) {
	t.Helper()
	buffer, err := route.OutputBuffer()
	if err != nil {
		t.Fatalf("OutputBuffer: %v", err)
	}
	buffer.Write(payload)
	if err := buffer.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestStreamTransport_Exchange(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			pair := newStreamPair(t,
				StreamOptions{Compression: compression, Logger: testLogger()},
				StreamOptions{Compression: CompressionNone, Logger: testLogger()},
			)

			large := []byte(strings.Repeat("ripley ", 1000))
			send(t, pair.leftRoute, []byte("hello"))
			send(t, pair.leftRoute, large)
			send(t, pair.rightRoute, []byte("reply"))

			if got := testutil.RequireReceive(t, pair.rightIn, 5*time.Second, "first packet"); string(got) != "hello" {
				t.Errorf("right received %q, want hello", got)
			}
			if got := testutil.RequireReceive(t, pair.rightIn, 5*time.Second, "large packet"); !bytes.Equal(got, large) {
				t.Errorf("right received %d bytes, want the %d byte packet", len(got), len(large))
			}
			if got := testutil.RequireReceive(t, pair.leftIn, 5*time.Second, "reply"); string(got) != "reply" {
				t.Errorf("left received %q, want reply", got)
			}
		})
	}
}

func TestStreamTransport_UnknownTokenDropped(t *testing.T) {
	pair := newStreamPair(t, StreamOptions{Logger: testLogger()}, StreamOptions{Logger: testLogger()})

	stray, err := pair.left.OpenBuffer(999)
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	stray.Write([]byte("nobody home"))
	if err := stray.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	send(t, pair.leftRoute, []byte("after"))

	// The stray packet is dropped and the stream keeps running.
	if got := testutil.RequireReceive(t, pair.rightIn, 5*time.Second, "packet after stray"); string(got) != "after" {
		t.Errorf("right received %q, want after", got)
	}
}

func TestStreamTransport_OutboundSizeLimit(t *testing.T) {
	pair := newStreamPair(t,
		StreamOptions{MaxPacketSize: 64, Logger: testLogger()},
		StreamOptions{Logger: testLogger()},
	)
	buffer, _ := pair.leftRoute.OutputBuffer()
	buffer.Write(make([]byte, 100))
	if err := buffer.Commit(); !errors.Is(err, ErrPacketTooLarge) {
		t.Errorf("Commit error = %v, want ErrPacketTooLarge", err)
	}
}

func TestStreamTransport_InboundSizeLimit(t *testing.T) {
	pair := newStreamPair(t,
		StreamOptions{Logger: testLogger()},
		StreamOptions{MaxPacketSize: 64, Logger: testLogger()},
	)
	buffer, _ := pair.leftRoute.OutputBuffer()
	buffer.Write(make([]byte, 200))
	// The write completes once the reader has consumed the length
	// prefix, or fails when the reader closes the pipe first.
	buffer.Commit()

	err := testutil.RequireReceive(t, pair.rightDone, 5*time.Second, "right Run to return")
	if !errors.Is(err, ErrPacketTooLarge) {
		t.Errorf("Run error = %v, want ErrPacketTooLarge", err)
	}
}

func TestStreamTransport_PeerClose(t *testing.T) {
	pair := newStreamPair(t, StreamOptions{Logger: testLogger()}, StreamOptions{Logger: testLogger()})

	pair.left.Close()
	if err := testutil.RequireReceive(t, pair.leftDone, 5*time.Second, "left Run to return"); err != nil {
		t.Errorf("left Run error = %v, want nil", err)
	}
	if err := testutil.RequireReceive(t, pair.rightDone, 5*time.Second, "right Run to return"); err != nil {
		t.Errorf("right Run error = %v, want nil", err)
	}
	testutil.RequireClosed(t, pair.right.Done(), 5*time.Second, "right stream to close")

	if _, err := pair.leftRoute.OutputBuffer(); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("OutputBuffer after Close error = %v, want ErrTransportClosed", err)
	}
}

func TestStreamTransport_ContextCancel(t *testing.T) {
	leftConn, rightConn := net.Pipe()
	defer rightConn.Close()
	stream := NewStreamTransport(leftConn, StreamOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()
	cancel()

	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run to return"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestStreamTransport_FrameLayout(t *testing.T) {
	leftConn, rightConn := net.Pipe()
	stream := NewStreamTransport(leftConn, StreamOptions{})
	defer stream.Close()
	defer rightConn.Close()

	buffer, _ := stream.OpenBuffer(5)
	buffer.Write([]byte("ab"))
	committed := make(chan error, 1)
	go func() { committed <- buffer.Commit() }()

	// frameLength=4: tag none, token 5, payload "ab".
	want := []byte{0x04, byte(CompressionNone), 0x05, 'a', 'b'}
	got := make([]byte, len(want))
	if _, err := io.ReadFull(rightConn, got); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("frame = % x, want % x", got, want)
	}
	if err := testutil.RequireReceive(t, committed, 5*time.Second, "Commit to return"); err != nil {
		t.Errorf("Commit: %v", err)
	}
}

func TestStreamTransport_TruncatedFrame(t *testing.T) {
	leftConn, rightConn := net.Pipe()
	stream := NewStreamTransport(leftConn, StreamOptions{})
	done := make(chan error, 1)
	go func() { done <- stream.Run(context.Background()) }()

	frame := serial.AppendUint(nil, 10)
	frame = append(frame, byte(CompressionNone), 0x00)
	rightConn.Write(frame)
	rightConn.Close()

	err := testutil.RequireReceive(t, done, 5*time.Second, "Run to return")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Run error = %v, want io.ErrUnexpectedEOF", err)
	}
}
