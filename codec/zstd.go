package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Encoders and decoders are expensive to build, so they are pooled.
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
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlockSize))
	return dec
}

// Zstd trades speed for ratio, good for large and rarely loaded assets.
type Zstd struct{}

// Encode compresses data into a framed zstd block.
func (Zstd) Encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return frame(data, nil), nil
	}

	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)

	return frame(data, enc.EncodeAll(data, nil)), nil
}

// Decode decompresses a framed zstd block.
func (Zstd) Decode(data []byte) ([]byte, error) {
	size, payload, compressed, err := unframe(data)
	if err != nil {
		return nil, err
	}
	if !compressed {
		return payload, nil
	}

	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)

	decoded, err := dec.DecodeAll(payload, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(decoded) != size {
		return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
	}
	return decoded, nil
}

// Name returns "zstd".
func (Zstd) Name() string { return "zstd" }
