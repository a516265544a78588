// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ripley-foundation/ripley/lib/netutil"
	"github.com/ripley-foundation/ripley/lib/serial"
)

var _ Transport = (*StreamTransport)(nil)

// DefaultMaxPacketSize bounds a packet when StreamOptions leaves
// MaxPacketSize zero.
const DefaultMaxPacketSize = 16 << 20

// ErrPacketTooLarge is returned when an outbound packet or an inbound
// frame exceeds the transport's size limit.
var ErrPacketTooLarge = errors.New("packet too large")

// StreamOptions configures a StreamTransport.
type StreamOptions struct {
	// Compression is applied to outbound frames. Inbound frames carry
	// their own tag, so the two ends need not agree.
	Compression Compression

	// MaxPacketSize is the largest packet accepted in either
	// direction, measured before compression. Zero means
	// DefaultMaxPacketSize.
	MaxPacketSize int

	// Logger receives dropped-packet warnings. Nil discards them.
	Logger *slog.Logger
}

// StreamTransport carries packets over a reliable byte stream such as a
// TCP connection. Each packet travels in one frame:
//
//	VarUInt(frameLength) tag [VarUInt(uncompressedLength)] data
//
// where the uncompressed packet is VarUInt(routeToken) payload. Writes
// from concurrent Commits are serialized; reads happen in Run.
type StreamTransport struct {
	endpoints     endpoints
	conn          io.ReadWriteCloser
	compression   Compression
	maxPacketSize int
	logger        *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// NewStreamTransport wraps conn. The caller must call Run to receive
// packets and Close to release conn.
func NewStreamTransport(conn io.ReadWriteCloser, options StreamOptions) *StreamTransport {
	maxPacketSize := options.MaxPacketSize
	if maxPacketSize <= 0 {
		maxPacketSize = DefaultMaxPacketSize
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StreamTransport{
		conn:          conn,
		compression:   options.Compression,
		maxPacketSize: maxPacketSize,
		logger:        logger,
		closed:        make(chan struct{}),
	}
}

func (t *StreamTransport) RegisterRoute(route *Route) serial.RouteToken {
	return t.endpoints.register(route)
}

func (t *StreamTransport) UnregisterRoute(token serial.RouteToken) {
	t.endpoints.unregister(token)
}

func (t *StreamTransport) OpenBuffer(shibboleth serial.RouteToken) (*Buffer, error) {
	select {
	case <-t.closed:
		return nil, ErrTransportClosed
	default:
	}
	return newBuffer(shibboleth, t.send), nil
}

func (t *StreamTransport) send(packet []byte) error {
	if len(packet) > t.maxPacketSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPacketTooLarge, len(packet), t.maxPacketSize)
	}
	body, err := encodeBody(make([]byte, 0, len(packet)+1), packet, t.compression)
	if err != nil {
		return err
	}
	frame := serial.AppendUint(make([]byte, 0, len(body)+serial.MaxLength), uint64(len(body)))
	frame = append(frame, body...)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}
	if _, err := t.conn.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Run reads frames and delivers each packet to the route its token
// names, on the calling goroutine. Packets for unregistered tokens and
// frames that fail to decompress are logged and dropped. Run returns
// nil when the peer closes the stream or Close is called, ctx.Err()
// when ctx is cancelled, and an error for a broken stream or an
// oversized frame. In every case the stream is closed on return.
func (t *StreamTransport) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { t.Close() })
	defer stop()
	defer t.Close()

	reader := bufio.NewReader(t.conn)
	for {
		body, err := t.readFrame(reader)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if t.isClosed() || netutil.IsExpectedCloseError(err) {
				return nil
			}
			return err
		}

		packet, err := decodeBody(body, t.maxPacketSize)
		if err != nil {
			t.logger.Warn("dropped undecodable frame", "error", err, "frame_size", len(body))
			continue
		}
		if err := t.endpoints.dispatch(packet); err != nil {
			t.logger.Warn("dropped inbound packet", "error", err, "packet_size", len(packet))
		}
	}
}

// readFrame returns the tagged body of the next frame. A stream that
// ends cleanly between frames yields io.EOF.
func (t *StreamTransport) readFrame(reader *bufio.Reader) ([]byte, error) {
	length, err := serial.ReadUint(reader)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame length: %w", err)
	}
	// A compressed body carries a tag and a length ahead of data that
	// may be slightly larger than the packet it encodes.
	limit := uint64(t.maxPacketSize) + 1 + serial.MaxLength
	if length > limit {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds %d", ErrPacketTooLarge, length, limit)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}
	return body, nil
}

func (t *StreamTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Done is closed once the stream has been closed, by either side.
func (t *StreamTransport) Done() <-chan struct{} {
	return t.closed
}

// Routes returns the number of registered routes.
func (t *StreamTransport) Routes() int {
	return t.endpoints.registered()
}

// Close shuts the stream down. Pending and future Commits fail with
// ErrTransportClosed and Run returns. Closing twice is a no-op.
func (t *StreamTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}
