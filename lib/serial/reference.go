// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reference identifies one referenceable object anywhere on the bus:
// the connection that owns it and the object ID within that
// connection's registry. References compare with ==.
type Reference struct {
	Connection ConnectionID
	Object     ObjectID
}

// AppendBinary appends the wire form of r (connection ID then object
// ID, no separator) to buf.
func (r Reference) AppendBinary(buf []byte) ([]byte, error) {
	buf = AppendUint(buf, uint64(r.Connection))
	return AppendUint(buf, uint64(r.Object)), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r Reference) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, Length(uint64(r.Connection))+Length(uint64(r.Object))))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The data must
// hold exactly one encoded Reference.
func (r *Reference) UnmarshalBinary(data []byte) error {
	reader := byteSliceReader{data: data}
	decoded, err := ReadReference(&reader)
	if err == io.EOF {
		return fmt.Errorf("reading reference: %w after 0 bytes: %w", ErrTruncated, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return err
	}
	if reader.offset != len(data) {
		return fmt.Errorf("reading reference: %d trailing bytes", len(data)-reader.offset)
	}
	*r = decoded
	return nil
}

// WriteTo writes the wire form of r to w.
func (r Reference) WriteTo(w io.Writer) (int64, error) {
	var scratch [2 * MaxLength]byte
	encoded, _ := r.AppendBinary(scratch[:0])
	n, err := w.Write(encoded)
	if err == nil && n != len(encoded) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// ReadReference reads one Reference from r, consuming exactly the bytes
// of its two identifiers. A clean end of stream before the first byte
// returns io.EOF. Ending anywhere after that is ErrTruncated.
func ReadReference(r io.ByteReader) (Reference, error) {
	connection, err := ReadConnectionID(r)
	if err != nil {
		if err == io.EOF {
			return Reference{}, io.EOF
		}
		return Reference{}, fmt.Errorf("reading reference connection: %w", err)
	}
	object, err := ReadObjectID(r)
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("%w after connection ID: %w", ErrTruncated, io.ErrUnexpectedEOF)
		}
		return Reference{}, fmt.Errorf("reading reference object: %w", err)
	}
	return Reference{Connection: connection, Object: object}, nil
}

// String returns the text form "c<connection>/o<object>", e.g. "c3/o7".
func (r Reference) String() string {
	return r.Connection.String() + "/" + r.Object.String()
}

// MarshalText implements encoding.TextMarshaler using the String form,
// so References read naturally in JSON and CBOR.
func (r Reference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reference) UnmarshalText(text []byte) error {
	parsed, err := ParseReference(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseReference parses the text form produced by Reference.String.
func ParseReference(text string) (Reference, error) {
	connectionPart, objectPart, found := strings.Cut(text, "/")
	if !found {
		return Reference{}, fmt.Errorf("invalid reference %q: want c<connection>/o<object>", text)
	}
	connection, err := parsePrefixed(connectionPart, "c")
	if err != nil {
		return Reference{}, fmt.Errorf("invalid reference %q: connection: %w", text, err)
	}
	object, err := parsePrefixed(objectPart, "o")
	if err != nil {
		return Reference{}, fmt.Errorf("invalid reference %q: object: %w", text, err)
	}
	return Reference{Connection: ConnectionID(connection), Object: ObjectID(object)}, nil
}

func parsePrefixed(text, prefix string) (uint64, error) {
	digits, found := strings.CutPrefix(text, prefix)
	if !found {
		return 0, fmt.Errorf("missing %q prefix in %q", prefix, text)
	}
	return strconv.ParseUint(digits, 10, 64)
}
