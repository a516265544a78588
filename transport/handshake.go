// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/ripley-foundation/ripley/lib/clock"
	"github.com/ripley-foundation/ripley/lib/codec"
	"github.com/ripley-foundation/ripley/lib/serial"
)

// ProtocolVersion is exchanged in the hello message. Peers with
// different versions refuse to talk.
const ProtocolVersion = 1

// DefaultHandshakeTimeout applies when Handshake.Timeout is zero.
const DefaultHandshakeTimeout = 10 * time.Second

// BusKeySize is the length of a bus key in bytes.
const BusKeySize = 32

const (
	handshakeNonceSize = 32

	// maxHandshakeMessage bounds a single encoded hello or proof.
	maxHandshakeMessage = 1024

	// proofLabel domain-separates handshake MACs from any other use of
	// the bus key.
	proofLabel = "ripley.handshake.v1"
)

// Handshake failures. The stream is closed when any of these is
// returned.
var (
	ErrVersionMismatch     = errors.New("protocol version mismatch")
	ErrDuplicateConnection = errors.New("peer claims our connection ID")
	ErrBadProof            = errors.New("peer failed bus key proof")
	ErrHandshakeTimeout    = errors.New("handshake timed out")
)

// hello opens the handshake. Route is the token of the route the
// sender registered for this stream; the receiver uses it as the
// shibboleth for everything it sends back.
type hello struct {
	Version    int    `cbor:"version"`
	Connection uint64 `cbor:"connection"`
	Route      uint64 `cbor:"route"`
	Session    string `cbor:"session"`
	Nonce      []byte `cbor:"nonce"`
}

// proof answers the peer's nonce. MAC is empty when no bus key is
// configured.
type proof struct {
	MAC []byte `cbor:"mac,omitempty"`
}

// Handshake describes the local side of a bootstrap exchange.
type Handshake struct {
	// Connection is the local ConnectionID announced to the peer.
	Connection serial.ConnectionID

	// Route is the token of the local route registered for the stream.
	Route serial.RouteToken

	// BusKey, when set, must be BusKeySize bytes and shared by every
	// member of the bus. Each side proves possession by MACing the
	// other's nonce. Nil disables the proof.
	BusKey []byte

	// Timeout bounds the whole exchange. Zero means
	// DefaultHandshakeTimeout.
	Timeout time.Duration

	// Clock drives the timeout. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives the negotiated session. Nil discards it.
	Logger *slog.Logger
}

// Peer is what the remote side announced in a completed handshake.
type Peer struct {
	Connection serial.ConnectionID
	Route      serial.RouteToken
	Session    uuid.UUID
}

// Run performs the handshake over stream. Both sides run it at the same
// time; neither waits for the other to speak first. The stream is
// closed if the handshake fails or times out, and left open for the
// StreamTransport on success. Run must complete before the stream's
// transport starts reading.
func (h Handshake) Run(ctx context.Context, stream io.ReadWriteCloser) (Peer, error) {
	if h.BusKey != nil && len(h.BusKey) != BusKeySize {
		return Peer{}, fmt.Errorf("bus key is %d bytes, want %d", len(h.BusKey), BusKeySize)
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	clk := h.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	type outcome struct {
		peer Peer
		err  error
	}
	result := make(chan outcome, 1)
	go func() {
		peer, err := h.exchange(stream)
		result <- outcome{peer, err}
	}()

	select {
	case done := <-result:
		if done.err != nil {
			stream.Close()
			return Peer{}, done.err
		}
		logger.Info("handshake complete",
			"connection", h.Connection.String(),
			"peer", done.peer.Connection.String(),
			"peer_route", done.peer.Route.String(),
			"session", done.peer.Session.String(),
		)
		return done.peer, nil
	case <-ctx.Done():
		stream.Close()
		return Peer{}, ctx.Err()
	case <-clk.After(timeout):
		stream.Close()
		return Peer{}, fmt.Errorf("%w after %v", ErrHandshakeTimeout, timeout)
	}
}

// exchange runs the message sequence:
//
//  1. send hello with a fresh nonce
//  2. read the peer's hello and check version and ConnectionID
//  3. send proof = MAC(busKey, label || peerNonce || VarUInt(ownID))
//  4. read the peer's proof and check it against our nonce and the
//     peer's announced ID
//
// Binding the MAC to the prover's ConnectionID stops a proof captured
// from one peer being replayed under another ID. Writes go through a
// background goroutine so two peers on a synchronous pipe can both
// send before either reads.
func (h Handshake) exchange(stream io.ReadWriter) (Peer, error) {
	nonce := make([]byte, handshakeNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Peer{}, fmt.Errorf("generating handshake nonce: %w", err)
	}
	session := uuid.New()

	greeting, err := codec.Marshal(hello{
		Version:    ProtocolVersion,
		Connection: uint64(h.Connection),
		Route:      uint64(h.Route),
		Session:    session.String(),
		Nonce:      nonce,
	})
	if err != nil {
		return Peer{}, fmt.Errorf("encoding hello: %w", err)
	}

	writeErrors := make(chan error, 1)
	proofToSend := make(chan []byte, 1)
	go func() {
		if err := writeHandshakeMessage(stream, greeting); err != nil {
			writeErrors <- fmt.Errorf("sending hello: %w", err)
			return
		}
		encoded, ok := <-proofToSend
		if !ok {
			writeErrors <- nil
			return
		}
		if err := writeHandshakeMessage(stream, encoded); err != nil {
			writeErrors <- fmt.Errorf("sending proof: %w", err)
			return
		}
		writeErrors <- nil
	}()

	var peerHello hello
	if err := readHandshakeMessage(stream, &peerHello); err != nil {
		close(proofToSend)
		return Peer{}, fmt.Errorf("reading hello: %w", err)
	}
	if peerHello.Version != ProtocolVersion {
		close(proofToSend)
		return Peer{}, fmt.Errorf("%w: peer speaks %d, we speak %d", ErrVersionMismatch, peerHello.Version, ProtocolVersion)
	}
	peerID := serial.ConnectionID(peerHello.Connection)
	if peerID == h.Connection {
		close(proofToSend)
		return Peer{}, fmt.Errorf("%w: %s", ErrDuplicateConnection, peerID)
	}
	peerSession, err := uuid.Parse(peerHello.Session)
	if err != nil {
		close(proofToSend)
		return Peer{}, fmt.Errorf("reading hello: invalid session %q: %w", peerHello.Session, err)
	}

	var answer proof
	if h.BusKey != nil {
		answer.MAC = proofMAC(h.BusKey, peerHello.Nonce, h.Connection)
	}
	encodedProof, err := codec.Marshal(answer)
	if err != nil {
		close(proofToSend)
		return Peer{}, fmt.Errorf("encoding proof: %w", err)
	}
	proofToSend <- encodedProof

	var peerProof proof
	if err := readHandshakeMessage(stream, &peerProof); err != nil {
		return Peer{}, fmt.Errorf("reading proof: %w", err)
	}
	if err := <-writeErrors; err != nil {
		return Peer{}, err
	}

	if h.BusKey != nil {
		expected := proofMAC(h.BusKey, nonce, peerID)
		if subtle.ConstantTimeCompare(expected, peerProof.MAC) != 1 {
			return Peer{}, fmt.Errorf("%w: %s", ErrBadProof, peerID)
		}
	}

	return Peer{
		Connection: peerID,
		Route:      serial.RouteToken(peerHello.Route),
		Session:    peerSession,
	}, nil
}

// proofMAC is BLAKE3 keyed with busKey over label || nonce ||
// VarUInt(prover).
func proofMAC(busKey, nonce []byte, prover serial.ConnectionID) []byte {
	hasher, err := blake3.NewKeyed(busKey)
	if err != nil {
		panic("transport: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(proofLabel))
	hasher.Write(nonce)
	hasher.Write(prover.Bytes())
	return hasher.Sum(nil)
}

// writeHandshakeMessage writes VarUInt(len(message)) message in one
// Write.
func writeHandshakeMessage(w io.Writer, message []byte) error {
	frame := serial.AppendUint(make([]byte, 0, len(message)+serial.MaxLength), uint64(len(message)))
	frame = append(frame, message...)
	_, err := w.Write(frame)
	return err
}

// readHandshakeMessage reads one length-prefixed CBOR message into v.
// The length is read a byte at a time so nothing past the message is
// consumed from r; the stream transport takes over right after.
func readHandshakeMessage(r io.Reader, v any) error {
	length, err := serial.ReadUint(unbufferedByteReader{r})
	if err != nil {
		return err
	}
	if length > maxHandshakeMessage {
		return fmt.Errorf("message of %d bytes exceeds %d", length, maxHandshakeMessage)
	}
	message := make([]byte, length)
	if _, err := io.ReadFull(r, message); err != nil {
		return err
	}
	return codec.Unmarshal(message, v)
}

type unbufferedByteReader struct {
	r io.Reader
}

func (u unbufferedByteReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(u.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// LoadBusKey reads a bus key from path. The file holds the key as 64
// hex digits; surrounding whitespace is ignored.
func LoadBusKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bus key: %w", err)
	}
	return ParseBusKey(string(bytes.TrimSpace(data)))
}

// ParseBusKey decodes a hex-encoded bus key.
func ParseBusKey(encoded string) ([]byte, error) {
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding bus key: %w", err)
	}
	if len(key) != BusKeySize {
		return nil, fmt.Errorf("bus key is %d bytes, want %d", len(key), BusKeySize)
	}
	return key, nil
}
