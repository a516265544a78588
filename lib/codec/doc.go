// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds Ripley's CBOR configuration for control messages,
// currently the transport handshake.
//
// Object references never go through CBOR; they use the varint wire
// form in lib/serial. CBOR carries the small structured messages around
// that data path, where field names and forward compatibility matter
// more than a few bytes. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2), so the same message always produces the same bytes.
package codec
