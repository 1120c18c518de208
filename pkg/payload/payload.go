// Package payload converts typed payloads to and from the flat bit sequences
// the embedding engine consumes.
//
// No header travels with the bits: decoding needs a Shape supplied out of band.
package payload

import (
	"errors"
	"fmt"

	"github.com/xob0t/edgestego/pkg/bitseq"
)

var (
	// ErrInvalidShape: the bit count does not decompose into the shape's layout.
	ErrInvalidShape = errors.New("invalid payload shape")

	// ErrUnencodable: text holding characters outside the 8-bit range.
	ErrUnencodable = errors.New("text not representable in 8 bits per character")
)

// Kind tags the payload variant a Shape describes.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindBytes Kind = "bytes"
	KindZstd  Kind = "zstd"
)

// Shape is the out-of-band hint needed to decode a bit sequence: a character
// count for text, a byte count for raw and compressed data, width and height
// for images.
type Shape struct {
	Kind   Kind `yaml:"kind" json:"kind"`
	Length int  `yaml:"length,omitempty" json:"length,omitempty"`
	Width  int  `yaml:"width,omitempty" json:"width,omitempty"`
	Height int  `yaml:"height,omitempty" json:"height,omitempty"`
}

// ByteCount returns the number of payload bytes the shape describes.
func (s Shape) ByteCount() (int, error) {
	switch s.Kind {
	case KindText, KindBytes, KindZstd:
		if s.Length < 0 {
			return 0, fmt.Errorf("%w: negative %s length %d", ErrInvalidShape, s.Kind, s.Length)
		}
		return s.Length, nil
	case KindImage:
		if s.Width < 0 || s.Height < 0 {
			return 0, fmt.Errorf("%w: image %dx%d", ErrInvalidShape, s.Width, s.Height)
		}
		return s.Width * s.Height * 3, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidShape, s.Kind)
	}
}

// BitCount returns ByteCount * 8.
func (s Shape) BitCount() (int, error) {
	n, err := s.ByteCount()
	return n * 8, err
}

func (s Shape) String() string {
	if s.Kind == KindImage {
		return fmt.Sprintf("%s %dx%d", s.Kind, s.Width, s.Height)
	}
	return fmt.Sprintf("%s[%d]", s.Kind, s.Length)
}

// Payload is anything the engine can hide.
type Payload interface {
	Bits() (bitseq.Seq, error)
	Shape() Shape
}

// Decode rebuilds a payload from bits. The bit count must equal the shape's
// BitCount exactly. A zstd shape decodes to the decompressed Bytes.
func Decode(bits bitseq.Seq, shape Shape) (Payload, error) {
	want, err := shape.BitCount()
	if err != nil {
		return nil, err
	}
	if bits.Len() != want {
		return nil, fmt.Errorf("%w: %s needs %d bits, got %d", ErrInvalidShape, shape, want, bits.Len())
	}
	raw, err := bits.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	switch shape.Kind {
	case KindText:
		t, err := decodeText(raw)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindImage:
		img, err := decodeImage(raw, shape.Width, shape.Height)
		if err != nil {
			return nil, err
		}
		return img, nil
	case KindZstd:
		data, err := decompress(raw)
		if err != nil {
			return nil, err
		}
		return Bytes(data), nil
	default:
		return Bytes(raw), nil
	}
}

// Bytes is an arbitrary byte string, for example a file's contents.
type Bytes []byte

func (b Bytes) Bits() (bitseq.Seq, error) {
	return bitseq.FromBytes(b), nil
}

func (b Bytes) Shape() Shape {
	return Shape{Kind: KindBytes, Length: len(b)}
}
