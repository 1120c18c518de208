// Package bitseq provides packed bit sequences read and written a few bits at a
// time. Bits are stored eight to a byte, most significant bit first, so the bit
// order of a sequence built from bytes matches the bytes' binary spelling.
package bitseq

import (
	"fmt"
	"strings"
)

// Seq is an ordered, finite sequence of bits. The zero value is an empty
// sequence ready for appending.
type Seq struct {
	buf []byte
	n   int
}

// FromBytes returns a sequence of len(b)*8 bits holding b. The bytes are copied.
func FromBytes(b []byte) Seq {
	buf := make([]byte, len(b))
	copy(buf, b)
	return Seq{buf: buf, n: len(b) * 8}
}

// WithCapacity returns an empty sequence able to hold n bits without growing.
func WithCapacity(n int) Seq {
	return Seq{buf: make([]byte, 0, (max(n, 0)+7)/8)}
}

// Parse builds a sequence from a string of '0' and '1' characters.
func Parse(s string) (Seq, error) {
	out := WithCapacity(len(s))
	for i, ch := range s {
		switch ch {
		case '0':
			out.appendBit(0)
		case '1':
			out.appendBit(1)
		default:
			return Seq{}, fmt.Errorf("invalid bit %q at offset %d", ch, i)
		}
	}
	return out, nil
}

// Len returns the number of bits in the sequence.
func (s Seq) Len() int { return s.n }

// Bit returns bit i as 0 or 1.
func (s Seq) Bit(i int) uint8 {
	return (s.buf[i>>3] >> (7 - uint(i&7))) & 1
}

// Uint reads k bits (0..8) starting at off; the first bit read becomes the most
// significant bit of the result.
func (s Seq) Uint(off, k int) uint8 {
	var v uint8
	for i := off; i < off+k; i++ {
		v = v<<1 | s.Bit(i)
	}
	return v
}

// AppendUint appends the low k bits of v, most significant first.
func (s *Seq) AppendUint(v uint8, k int) {
	for i := k - 1; i >= 0; i-- {
		s.appendBit((v >> uint(i)) & 1)
	}
}

func (s *Seq) appendBit(b uint8) {
	if s.n&7 == 0 {
		s.buf = append(s.buf, 0)
	}
	if b != 0 {
		s.buf[s.n>>3] |= 1 << (7 - uint(s.n&7))
	}
	s.n++
}

// Prefix returns a copy of the first n bits. n larger than Len is clamped.
func (s Seq) Prefix(n int) Seq {
	n = min(max(n, 0), s.n)
	out := WithCapacity(n)
	for i := 0; i < n; i++ {
		out.appendBit(s.Bit(i))
	}
	return out
}

// Bytes returns the packed bits. It fails unless Len is a multiple of 8.
func (s Seq) Bytes() ([]byte, error) {
	if s.n%8 != 0 {
		return nil, fmt.Errorf("bit sequence of %d bits is not byte aligned", s.n)
	}
	out := make([]byte, s.n/8)
	copy(out, s.buf)
	return out, nil
}

// String spells the sequence as '0' and '1' characters.
func (s Seq) String() string {
	var sb strings.Builder
	sb.Grow(s.n)
	for i := 0; i < s.n; i++ {
		sb.WriteByte('0' + s.Bit(i))
	}
	return sb.String()
}
