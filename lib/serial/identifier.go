// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"io"
	"strconv"
)

// ConnectionID names one participant on the bus. It is assigned once by
// the bus authority and does not change for the life of the connection.
type ConnectionID uint64

// ObjectID names one exported object within a single connection's
// registry. Registries allocate them from a counter and never reuse one.
type ObjectID uint64

// RouteToken names a route endpoint within one transport. A packet on
// the wire starts with the destination endpoint's token.
type RouteToken uint64

// Bytes returns the canonical wire encoding of id.
func (id ConnectionID) Bytes() []byte { return AppendUint(nil, uint64(id)) }

// MarshalBinary implements encoding.BinaryMarshaler.
func (id ConnectionID) MarshalBinary() ([]byte, error) { return id.Bytes(), nil }

// WriteTo writes the wire encoding of id to w.
func (id ConnectionID) WriteTo(w io.Writer) (int64, error) {
	n, err := WriteUint(w, uint64(id))
	return int64(n), err
}

func (id ConnectionID) String() string { return "c" + strconv.FormatUint(uint64(id), 10) }

// ReadConnectionID reads one encoded ConnectionID from r.
func ReadConnectionID(r io.ByteReader) (ConnectionID, error) {
	v, err := ReadUint(r)
	return ConnectionID(v), err
}

// Bytes returns the canonical wire encoding of id.
func (id ObjectID) Bytes() []byte { return AppendUint(nil, uint64(id)) }

// MarshalBinary implements encoding.BinaryMarshaler.
func (id ObjectID) MarshalBinary() ([]byte, error) { return id.Bytes(), nil }

// WriteTo writes the wire encoding of id to w.
func (id ObjectID) WriteTo(w io.Writer) (int64, error) {
	n, err := WriteUint(w, uint64(id))
	return int64(n), err
}

func (id ObjectID) String() string { return "o" + strconv.FormatUint(uint64(id), 10) }

// ReadObjectID reads one encoded ObjectID from r.
func ReadObjectID(r io.ByteReader) (ObjectID, error) {
	v, err := ReadUint(r)
	return ObjectID(v), err
}

// Bytes returns the canonical wire encoding of token.
func (token RouteToken) Bytes() []byte { return AppendUint(nil, uint64(token)) }

// WriteTo writes the wire encoding of token to w.
func (token RouteToken) WriteTo(w io.Writer) (int64, error) {
	n, err := WriteUint(w, uint64(token))
	return int64(n), err
}

func (token RouteToken) String() string { return "r" + strconv.FormatUint(uint64(token), 10) }

// ReadRouteToken reads one encoded RouteToken from r.
func ReadRouteToken(r io.ByteReader) (RouteToken, error) {
	v, err := ReadUint(r)
	return RouteToken(v), err
}
