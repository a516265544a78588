// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package serial implements Ripley's wire encoding for identifiers and
// object references.
//
// Every identifier on the bus (connection IDs, object IDs, route
// tokens) is an unsigned integer written as a base-128 varint: the low
// seven bits of the value go first, and the high bit of each byte is
// set when more bytes follow. The encoding is the unique shortest form,
// so 0 is the single byte 0x00 and 65535 is FF FF 03:
//
//	data, _ := serial.ObjectID(65535).MarshalBinary() // ff ff 03
//
// Decoders read from an [io.ByteReader] one byte at a time so that a
// read consumes exactly the bytes the encoder produced and nothing
// more. This lets several identifiers sit back to back in a stream with
// no framing between them. A [Reference] is exactly that: the encoded
// [ConnectionID] followed by the encoded [ObjectID].
//
// Decoding is strict. A sequence with no terminating byte within
// [MaxLength] bytes fails with [ErrTooLong], a stream that ends in the
// middle of an identifier fails with [ErrTruncated], and a padded
// (non-minimal) encoding fails with [ErrNonCanonical]. Rejecting padded
// forms means every accepted byte sequence re-encodes to itself.
//
// [TransverseID] names a well-known object by a byte string instead of
// a number. Its wire form is the raw bytes followed by a single zero
// byte.
//
// This package has no Ripley-internal dependencies.
package serial
