// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ripley-foundation/ripley/lib/serial"
)

// Compression identifies how a stream frame body is encoded. The value
// is the frame's one-byte tag, so these are protocol constants.
type Compression uint8

const (
	// CompressionNone sends the body as is.
	CompressionNone Compression = 0

	// CompressionLZ4 is LZ4 block compression. Cheap enough for
	// every packet.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level. Better ratios on
	// large, repetitive payloads at higher CPU cost.
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses the name String returns.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// errIncompressible is returned by the compressors when the output
// would not be smaller than the input. encodeBody falls back to
// CompressionNone.
var errIncompressible = errors.New("data is incompressible")

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll. The decoder never writes past cap(dst), so
// the declared uncompressed length bounds every DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("transport: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
	if err != nil {
		panic("transport: zstd decoder initialization failed: " + err.Error())
	}
}

// encodeBody appends the tagged frame body for packet to dst:
//
//	tag [VarUInt(len(packet))] data
//
// The length is present only for compressed bodies. If compression
// does not shrink the packet it is sent with CompressionNone.
func encodeBody(dst, packet []byte, compression Compression) ([]byte, error) {
	var compressed []byte
	var err error
	switch compression {
	case CompressionNone:
		err = errIncompressible
	case CompressionLZ4:
		compressed, err = compressLZ4(packet)
	case CompressionZstd:
		compressed, err = compressZstd(packet)
	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}

	if errors.Is(err, errIncompressible) {
		dst = append(dst, byte(CompressionNone))
		return append(dst, packet...), nil
	}
	if err != nil {
		return nil, err
	}
	dst = append(dst, byte(compression))
	dst = serial.AppendUint(dst, uint64(len(packet)))
	return append(dst, compressed...), nil
}

// decodeBody reverses encodeBody. Compressed bodies declaring more
// than maxSize uncompressed bytes are rejected before decompression.
func decodeBody(body []byte, maxSize int) ([]byte, error) {
	if len(body) == 0 {
		return nil, errors.New("empty frame")
	}
	compression := Compression(body[0])
	body = body[1:]
	if compression == CompressionNone {
		return body, nil
	}

	declared, length, err := serial.DecodeUint(body)
	if err != nil {
		return nil, fmt.Errorf("reading uncompressed length: %w", err)
	}
	if declared > uint64(maxSize) {
		return nil, fmt.Errorf("uncompressed length %d exceeds limit %d", declared, maxSize)
	}
	size := int(declared)
	body = body[length:]

	switch compression {
	case CompressionLZ4:
		return decompressLZ4(body, size)
	case CompressionZstd:
		return decompressZstd(body, size)
	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for data it cannot compress.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}
