// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ripley-foundation/ripley/lib/serial"
)

// announcement is shaped like a handshake message.
type announcement struct {
	Version    int    `cbor:"version"`
	Connection uint64 `cbor:"connection"`
	Nonce      []byte `cbor:"nonce,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := announcement{Version: 1, Connection: 65535, Nonce: []byte{1, 2, 3}}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded announcement
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Version != original.Version || decoded.Connection != original.Connection || !bytes.Equal(decoded.Nonce, original.Nonce) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	message := map[string]any{"version": 1, "connection": 7, "route": 0}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(message)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	type newer struct {
		Version    int    `cbor:"version"`
		Connection uint64 `cbor:"connection"`
		Extension  string `cbor:"extension"`
	}
	data, err := Marshal(newer{Version: 2, Connection: 9, Extension: "later"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var older announcement
	if err := Unmarshal(data, &older); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if older.Version != 2 || older.Connection != 9 {
		t.Errorf("decoded %+v, want version 2 connection 9", older)
	}
}

func TestReferenceRoundtrip(t *testing.T) {
	type holder struct {
		Target serial.Reference `cbor:"target"`
	}
	original := holder{Target: serial.Reference{Connection: 3, Object: 7}}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"target"`) {
		t.Errorf("notation %q does not contain the field name", notation)
	}

	var decoded holder
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("decoded %+v, want %+v", decoded, original)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var message announcement
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &message); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func BenchmarkMarshal(b *testing.B) {
	message := announcement{Version: 1, Connection: 1 << 40, Nonce: make([]byte, 32)}
	b.ReportAllocs()
	for b.Loop() {
		Marshal(message)
	}
}
