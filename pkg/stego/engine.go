// engine.go — Embedding and extraction walks.
package stego

import (
	"fmt"

	"github.com/xob0t/edgestego/pkg/bitseq"
	"github.com/xob0t/edgestego/pkg/payload"
)

// Report summarizes how a configuration carves up a carrier.
type Report struct {
	Blocks     int `json:"blocks" yaml:"blocks"`
	EdgeBlocks int `json:"edgeBlocks" yaml:"edge_blocks"`
	Capacity   int `json:"capacityBits" yaml:"capacity_bits"`
}

// Analyze classifies every block of g and totals its capacity in bits.
func Analyze(g *Grid, cfg Config) (Report, error) {
	if err := check(g, cfg); err != nil {
		return Report{}, err
	}
	var r Report
	for blk := range Blocks(g.Width, g.Height, cfg) {
		r.Blocks++
		depth := cfg.NonEdgeBits
		if isEdge(g, blk.X, blk.Y, cfg) {
			r.EdgeBlocks++
			depth = cfg.EdgeBits
		}
		r.Capacity += depth * blk.Len()
	}
	return r, nil
}

// Capacity returns the number of payload bits g can carry under cfg.
func Capacity(g *Grid, cfg Config) (int, error) {
	r, err := Analyze(g, cfg)
	return r.Capacity, err
}

// EmbedBits writes bits into the low bits of g in walker order and returns g.
//
// Each block is classified when the walk reaches it; every slot of the block
// then takes the next depth bits. When fewer than depth bits remain they fill
// the top of the slot's depth-bit field, so any shorter read is a prefix. The walk stops as soon as every bit is written. A sequence longer
// than the capacity fails with ErrCapacityExceeded before g is touched.
func EmbedBits(g *Grid, bits bitseq.Seq, cfg Config) (*Grid, error) {
	capBits, err := Capacity(g, cfg)
	if err != nil {
		return nil, err
	}
	n := bits.Len()
	if n > capBits {
		return nil, fmt.Errorf("%w: payload needs %d bits, carrier holds %d", ErrCapacityExceeded, n, capBits)
	}

	cur := 0
	for blk := range Blocks(g.Width, g.Height, cfg) {
		if cur >= n {
			break
		}
		depth := Classify(g, blk.X, blk.Y, cfg)
		for s := range blk.Slots() {
			if cur >= n {
				break
			}
			k := min(depth, n-cur)
			v, err := setField(g.At(s.X, s.Y, s.Channel), bits.Uint(cur, k), depth, k)
			if err != nil {
				return nil, fmt.Errorf("pixel (%d,%d): %w", s.X, s.Y, err)
			}
			g.Set(s.X, s.Y, s.Channel, v)
			cur += k
		}
	}
	return g, nil
}

// ExtractBits reads up to n bits from g, mirroring EmbedBits. Fewer than n
// bits come back only when the grid runs out first. Asking for fewer bits
// than were embedded returns their prefix.
func ExtractBits(g *Grid, n int, cfg Config) (bitseq.Seq, error) {
	if err := check(g, cfg); err != nil {
		return bitseq.Seq{}, err
	}
	if n < 0 {
		return bitseq.Seq{}, fmt.Errorf("negative bit count %d", n)
	}

	out := bitseq.WithCapacity(n)
	for blk := range Blocks(g.Width, g.Height, cfg) {
		if out.Len() >= n {
			break
		}
		depth := Classify(g, blk.X, blk.Y, cfg)
		for s := range blk.Slots() {
			if out.Len() >= n {
				break
			}
			k := min(depth, n-out.Len())
			field := g.At(s.X, s.Y, s.Channel) & lowMask(depth)
			out.AppendUint(field>>(depth-k), k)
		}
	}
	return out, nil
}

// Embed encodes p and writes it into g.
func Embed(g *Grid, p payload.Payload, cfg Config) (*Grid, error) {
	bits, err := p.Bits()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return EmbedBits(g, bits, cfg)
}

// EmbedVerified embeds p like Embed, then reclassifies the blocks the walk
// used against the modified pixels. If any verdict moved it returns
// ErrUnstableClassification; g has been modified by then.
func EmbedVerified(g *Grid, p payload.Payload, cfg Config) (*Grid, error) {
	bits, err := p.Bits()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if err := check(g, cfg); err != nil {
		return nil, err
	}
	original := g.Clone()
	if _, err := EmbedBits(g, bits, cfg); err != nil {
		return nil, err
	}
	moved, err := Unstable(original, g, bits.Len(), cfg)
	if err != nil {
		return nil, err
	}
	if len(moved) > 0 {
		return nil, fmt.Errorf("%w: %d block(s), first at (%d,%d); raise the threshold or lower edge bits",
			ErrUnstableClassification, len(moved), moved[0].X, moved[0].Y)
	}
	return g, nil
}

// Extract reads the bits described by shape and decodes them.
func Extract(g *Grid, shape payload.Shape, cfg Config) (payload.Payload, error) {
	n, err := shape.BitCount()
	if err != nil {
		return nil, err
	}
	bits, err := ExtractBits(g, n, cfg)
	if err != nil {
		return nil, err
	}
	return payload.Decode(bits, shape)
}

// Unstable walks the blocks an n-bit embedding visits and returns those whose
// classification differs between original and embedded.
func Unstable(original, embedded *Grid, n int, cfg Config) ([]Block, error) {
	if err := check(original, cfg); err != nil {
		return nil, err
	}
	if err := embedded.Validate(); err != nil {
		return nil, err
	}
	if original.Width != embedded.Width || original.Height != embedded.Height {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch,
			original.Width, original.Height, embedded.Width, embedded.Height)
	}

	var moved []Block
	cur := 0
	for blk := range Blocks(original.Width, original.Height, cfg) {
		if cur >= n {
			break
		}
		before := isEdge(original, blk.X, blk.Y, cfg)
		if isEdge(embedded, blk.X, blk.Y, cfg) != before {
			moved = append(moved, blk)
		}
		depth := cfg.NonEdgeBits
		if before {
			depth = cfg.EdgeBits
		}
		cur += depth * blk.Len()
	}
	return moved, nil
}

func check(g *Grid, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return g.Validate()
}

// lowMask keeps the low k bits of a channel value.
func lowMask(k int) uint8 {
	return 0xff >> (8 - k)
}

// setField writes the k bits in bits into the top of the low depth bits of v.
// Bits of the field below those k are left as they were.
func setField(v, bits uint8, depth, k int) (uint8, error) {
	if depth < 1 || depth > 8 || k < 1 || k > depth {
		return v, fmt.Errorf("%w: %d of %d bits", ErrChannelOverflow, k, depth)
	}
	if bits&^lowMask(k) != 0 {
		return v, fmt.Errorf("%w: value %#x wider than %d bits", ErrChannelOverflow, bits, k)
	}
	shift := depth - k
	mask := lowMask(depth) &^ lowMask(shift)
	return v&^mask | bits<<shift, nil
}
