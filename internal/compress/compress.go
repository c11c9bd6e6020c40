// Package compress frames byte payloads as self-describing compressed blocks.
//
// Block layout (little endian):
//
//	[uncompressed uint32][compressed uint32][type uint8][data...]
//
// A compressed size of 0 marks a block stored raw, which happens whenever
// compression does not shrink the payload by at least 10%.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/clusterkit/internal/conv"
)

// Type identifies the compression algorithm of a block.
type Type uint8

const (
	// None stores the payload raw.
	None Type = 0
	// LZ4 uses LZ4 block compression.
	LZ4 Type = 1
	// Zstd uses Zstandard.
	Zstd Type = 2
)

// HeaderSize is the size of the block header in bytes.
const HeaderSize = 9

var (
	// ErrCorrupt is returned when a block header does not match its payload.
	ErrCorrupt = errors.New("compress: corrupt block")
	// ErrUnknownType is returned for an unrecognized compression type.
	ErrUnknownType = errors.New("compress: unknown type")
	// ErrTooLarge is returned for payloads that do not fit the header.
	ErrTooLarge = errors.New("compress: payload too large")
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Extension returns the file suffix used for blocks of this type.
func (t Type) Extension() string {
	switch t {
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// ParseType maps "none", "lz4" and "zstd" (or "zst") to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

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

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Compress frames data as a single block of the given type.
func Compress(data []byte, t Type) ([]byte, error) {
	size, err := conv.IntToUint32(len(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTooLarge, err)
	}

	var payload []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		payload = buf[:n]
	case Zstd:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}

	if len(payload) == 0 || float64(len(payload)) > float64(len(data))*0.9 {
		return frame(data, 0, t), nil
	}
	return frame(payload, size, t), nil
}

func frame(payload []byte, uncompressed uint32, t Type) []byte {
	out := make([]byte, HeaderSize+len(payload))
	if uncompressed == 0 {
		binary.LittleEndian.PutUint32(out[0:], uint32(len(payload)))
		binary.LittleEndian.PutUint32(out[4:], 0)
	} else {
		binary.LittleEndian.PutUint32(out[0:], uncompressed)
		binary.LittleEndian.PutUint32(out[4:], uint32(len(payload)))
	}
	out[8] = byte(t)
	copy(out[HeaderSize:], payload)
	return out
}

// Decompress returns the payload of a block produced by Compress.
func Decompress(block []byte) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, ErrCorrupt
	}

	uncompressed := binary.LittleEndian.Uint32(block[0:])
	compressed := binary.LittleEndian.Uint32(block[4:])
	t := Type(block[8])
	body := block[HeaderSize:]

	if compressed == 0 {
		if uint64(len(body)) < uint64(uncompressed) {
			return nil, ErrCorrupt
		}
		return body[:uncompressed], nil
	}
	if uint64(len(body)) < uint64(compressed) {
		return nil, ErrCorrupt
	}
	body = body[:compressed]

	switch t {
	case LZ4:
		out := make([]byte, uncompressed)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint32(n) != uncompressed {
			return nil, ErrCorrupt
		}
		return out, nil
	case Zstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, uncompressed))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint32(len(out)) != uncompressed {
			return nil, ErrCorrupt
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}
