// Package codec holds the block compression codecs used for stored assets.
//
// Stored assets are self-describing: the codec is chosen by name from the
// asset catalog, or by file extension when the catalog is silent. Changing a
// codec name is a breaking change for blobs written under the old name.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrCorrupt is returned when a block cannot be decoded.
var ErrCorrupt = errors.New("codec: corrupt block")

// Codec compresses and decompresses whole asset blobs.
// Implementations must be safe for concurrent use.
type Codec interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Name() string
}

// Default is the codec used when nothing else is specified.
var Default Codec = Raw{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "", "raw":
		return Raw{}, true
	case "lz4":
		return LZ4{}, true
	case "zstd":
		return Zstd{}, true
	default:
		return nil, false
	}
}

// ByExtension picks a codec from the blob name, e.g. "tank.png.zst".
// Names without a known extension use Raw.
func ByExtension(name string) Codec {
	switch strings.ToLower(path.Ext(name)) {
	case ".lz4":
		return LZ4{}
	case ".zst", ".zstd":
		return Zstd{}
	default:
		return Raw{}
	}
}

// MustEncode is a helper for tests and fixtures.
func MustEncode(c Codec, data []byte) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Encode(data)
	if err != nil {
		panic(fmt.Errorf("codec %s encode failed: %w", c.Name(), err))
	}
	return b
}

// Raw stores blobs as is.
type Raw struct{}

// Encode returns data unchanged.
func (Raw) Encode(data []byte) ([]byte, error) { return data, nil }

// Decode returns data unchanged.
func (Raw) Decode(data []byte) ([]byte, error) { return data, nil }

// Name returns "raw".
func (Raw) Name() string { return "raw" }

// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize 0 means the payload is stored uncompressed.
const blockHeaderSize = 8

// maxBlockSize bounds the allocation made for a decoded block.
const maxBlockSize = 1 << 30

// frame wraps a compressed payload, falling back to the plain payload
// when compression saves less than 10%.
func frame(data, compressed []byte) []byte {
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out
}

// unframe splits a block into its declared size and payload.
func unframe(data []byte) (size int, payload []byte, compressed bool, err error) {
	if len(data) < blockHeaderSize {
		return 0, nil, false, fmt.Errorf("%w: block too small for header", ErrCorrupt)
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])
	if uncompressedSize > maxBlockSize {
		return 0, nil, false, fmt.Errorf("%w: declared size %d too large", ErrCorrupt, uncompressedSize)
	}

	if compressedSize == 0 {
		if uint64(len(data)) < blockHeaderSize+uint64(uncompressedSize) {
			return 0, nil, false, fmt.Errorf("%w: block data too small", ErrCorrupt)
		}
		return int(uncompressedSize), data[blockHeaderSize : blockHeaderSize+uncompressedSize], false, nil
	}

	if uint64(len(data)) < blockHeaderSize+uint64(compressedSize) {
		return 0, nil, false, fmt.Errorf("%w: compressed block data too small", ErrCorrupt)
	}
	return int(uncompressedSize), data[blockHeaderSize : blockHeaderSize+compressedSize], true, nil
}
