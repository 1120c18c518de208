// zstd.go — zstd-compressed byte payloads.
package payload

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/xob0t/edgestego/pkg/bitseq"
)

// Compressed holds a zstd frame. Its shape records the compressed length, and
// decoding a KindZstd shape yields the decompressed Bytes.
type Compressed struct {
	frame []byte
}

// Compress zstd-compresses data into a payload.
func Compress(data []byte) Compressed {
	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	return Compressed{frame: enc.EncodeAll(data, nil)}
}

func (c Compressed) Bits() (bitseq.Seq, error) {
	return bitseq.FromBytes(c.frame), nil
}

func (c Compressed) Shape() Shape {
	return Shape{Kind: KindZstd, Length: len(c.frame)}
}

// Decompress returns the original data.
func (c Compressed) Decompress() ([]byte, error) {
	return decompress(c.frame)
}

func decompress(frame []byte) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)
	out, err := dec.DecodeAll(frame, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(
			nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(
			nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			panic(err)
		}
		return dec
	},
}
