package persistence

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the compression algorithm of persisted payloads.
type Compression uint8

const (
	// CompressionNone stores payloads as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD compression (better ratio).
	CompressionZSTD Compression = 2
)

// String returns the name of the algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("persistence: unknown compression %q", s)
	}
}

// ZSTD encoder/decoder pools
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Compressed wraps a Persistence and compresses payloads.
//
// Payload format: [algorithm byte][uvarint uncompressed size][data].
// Payloads whose first byte is not a known algorithm are returned
// unchanged, so compression can be enabled on existing JSON data. Binary
// codecs such as BSON need a fresh store.
type Compressed struct {
	inner Persistence
	algo  Compression
}

// NewCompressed creates a compressing wrapper around inner.
func NewCompressed(inner Persistence, algo Compression) *Compressed {
	return &Compressed{inner: inner, algo: algo}
}

// Load implements Persistence.
func (c *Compressed) Load(ctx context.Context) (map[string][]byte, error) {
	payloads, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	for key, data := range payloads {
		out, err := Decompress(data)
		if err != nil {
			return nil, fmt.Errorf("persistence: decompress %q: %w", key, err)
		}
		payloads[key] = out
	}
	return payloads, nil
}

// Write implements Persistence.
func (c *Compressed) Write(ctx context.Context, key string, data []byte) error {
	out, err := Compress(data, c.algo)
	if err != nil {
		return fmt.Errorf("persistence: compress %q: %w", key, err)
	}
	return c.inner.Write(ctx, key, out)
}

// Compress encodes data with algo. Incompressible data is stored with
// CompressionNone.
func Compress(data []byte, algo Compression) ([]byte, error) {
	var body []byte
	switch algo {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		if n > 0 && n < len(data) {
			body = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer putZstdEncoder(enc)
		if b := enc.EncodeAll(data, nil); len(b) < len(data) {
			body = b
		}
	default:
		return nil, fmt.Errorf("unknown compression %s", algo)
	}
	if body == nil {
		algo, body = CompressionNone, data
	}

	out := make([]byte, 1, 1+binary.MaxVarintLen64+len(body))
	out[0] = byte(algo)
	out = binary.AppendUvarint(out, uint64(len(data)))
	return append(out, body...), nil
}

// Decompress decodes a payload produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] > byte(CompressionZSTD) {
		return data, nil
	}
	size, n := binary.Uvarint(data[1:])
	if n <= 0 {
		return nil, errors.New("invalid size header")
	}
	body := data[1+n:]

	switch Compression(data[0]) {
	case CompressionNone:
		if uint64(len(body)) != size {
			return nil, errors.New("size mismatch")
		}
		return body, nil
	case CompressionLZ4:
		out := make([]byte, size)
		m, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint64(m) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	default:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if uint64(len(out)) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	}
}
