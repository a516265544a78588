// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"errors"
	"fmt"
	"io"
)

// MaxLength is the longest encoding of a 64-bit identifier:
// ceil(64/7) bytes.
const MaxLength = (64 + 6) / 7

var (
	// ErrTooLong is returned when no terminating byte appears within
	// MaxLength bytes, or when the final byte carries bits beyond the
	// 64-bit range.
	ErrTooLong = errors.New("serial: identifier exceeds maximum encoded length")

	// ErrTruncated is returned when the stream ends between the first
	// byte of an identifier and its terminating byte. It always wraps
	// io.ErrUnexpectedEOF as well.
	ErrTruncated = errors.New("serial: truncated identifier")

	// ErrNonCanonical is returned for a multi-byte encoding whose last
	// byte is zero. Such a sequence decodes to a value whose shortest
	// encoding is different, so accepting it would break round-trips.
	ErrNonCanonical = errors.New("serial: non-canonical identifier encoding")
)

// Length returns the number of bytes AppendUint would produce for v.
func Length(v uint64) int {
	n := 1
	for v > 0x7f {
		v >>= 7
		n++
	}
	return n
}

// AppendUint appends the varint encoding of v to buf.
func AppendUint(buf []byte, v uint64) []byte {
	for v > 0x7f {
		buf = append(buf, byte(v)&0x7f|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// WriteUint writes the varint encoding of v to w and returns the
// number of bytes written.
func WriteUint(w io.Writer, v uint64) (int, error) {
	var scratch [MaxLength]byte
	encoded := AppendUint(scratch[:0], v)
	n, err := w.Write(encoded)
	if err == nil && n != len(encoded) {
		err = io.ErrShortWrite
	}
	return n, err
}

// ReadUint reads one varint from r. It consumes exactly the bytes of the
// encoding. A clean end of stream before the first byte returns io.EOF
// unwrapped, so callers can use it to detect the end of a sequence.
func ReadUint(r io.ByteReader) (uint64, error) {
	var value uint64
	for i := 0; i < MaxLength; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i == 0 && err == io.EOF {
				return 0, io.EOF
			}
			if err == io.EOF {
				return 0, fmt.Errorf("%w after %d bytes: %w", ErrTruncated, i, io.ErrUnexpectedEOF)
			}
			return 0, err
		}

		// The tenth byte holds bit 63 only.
		if i == MaxLength-1 && b > 1 {
			return 0, ErrTooLong
		}

		value |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if b == 0 && i > 0 {
				return 0, ErrNonCanonical
			}
			return value, nil
		}
	}
	return 0, ErrTooLong
}

// DecodeUint decodes one varint from the front of data and returns the
// value along with the number of bytes consumed.
func DecodeUint(data []byte) (uint64, int, error) {
	reader := byteSliceReader{data: data}
	value, err := ReadUint(&reader)
	if err == io.EOF {
		err = fmt.Errorf("%w after 0 bytes: %w", ErrTruncated, io.ErrUnexpectedEOF)
	}
	return value, reader.offset, err
}

// byteSliceReader is a minimal io.ByteReader that tracks how far it has
// read, so DecodeUint can report consumption without a bytes.Reader
// allocation.
type byteSliceReader struct {
	data   []byte
	offset int
}

func (r *byteSliceReader) ReadByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}
