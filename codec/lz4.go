package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 is a fast block codec, good for assets that are loaded often.
type LZ4 struct{}

// Encode compresses data into a framed LZ4 block.
func (LZ4) Encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return frame(data, nil), nil
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	// n == 0 means incompressible.
	return frame(data, compressed[:n]), nil
}

// Decode decompresses a framed LZ4 block.
func (LZ4) Decode(data []byte) ([]byte, error) {
	size, payload, compressed, err := unframe(data)
	if err != nil {
		return nil, err
	}
	if !compressed {
		return payload, nil
	}

	result := make([]byte, size)
	n, err := lz4.UncompressBlock(payload, result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
	}
	return result, nil
}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }
