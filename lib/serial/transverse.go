// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxTransverseLength bounds how many bytes ReadTransverseID will
// accumulate before giving up on finding the terminator.
const MaxTransverseLength = 4096

// ErrInvalidTransverse is returned when writing a TransverseID that is
// empty or contains the zero terminator byte.
var ErrInvalidTransverse = errors.New("serial: invalid transverse ID")

// TransverseID names a well-known object by a byte string rather than by
// an ObjectID. Services publish transverse maps so that a peer can ask
// for "the bus master" without already holding a reference to it.
type TransverseID string

// Validate reports whether id can be written to the wire.
func (id TransverseID) Validate() error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTransverse)
	}
	if len(id) > MaxTransverseLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidTransverse, len(id), MaxTransverseLength)
	}
	if bytes.IndexByte([]byte(id), 0) >= 0 {
		return fmt.Errorf("%w: %q contains a zero byte", ErrInvalidTransverse, string(id))
	}
	return nil
}

// WriteTo writes id followed by a zero terminator.
func (id TransverseID) WriteTo(w io.Writer) (int64, error) {
	if err := id.Validate(); err != nil {
		return 0, err
	}
	encoded := make([]byte, 0, len(id)+1)
	encoded = append(encoded, id...)
	encoded = append(encoded, 0)
	n, err := w.Write(encoded)
	return int64(n), err
}

// ReadTransverseID reads bytes up to and including the zero terminator.
func ReadTransverseID(r io.ByteReader) (TransverseID, error) {
	var buffer []byte
	for len(buffer) <= MaxTransverseLength {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("reading transverse ID: %w after %d bytes: %w", ErrTruncated, len(buffer), io.ErrUnexpectedEOF)
			}
			return "", fmt.Errorf("reading transverse ID: %w", err)
		}
		if b == 0 {
			id := TransverseID(buffer)
			if id == "" {
				return "", fmt.Errorf("reading transverse ID: %w: empty", ErrInvalidTransverse)
			}
			return id, nil
		}
		buffer = append(buffer, b)
	}
	return "", fmt.Errorf("reading transverse ID: %w", ErrTooLong)
}
