// walker.go — The traversal order embedder and extractor must agree on.
package stego

import "iter"

// Block is a tile of the grid anchored at a multiple of the block size.
// W and H are clipped to the grid boundary.
type Block struct {
	X, Y int
	W, H int
}

// Slot is one channel of one pixel: the unit that receives a slice of bits.
type Slot struct {
	X, Y    int
	Channel Channel
}

// Blocks enumerates the blocks of a width x height grid row-major: block rows
// top to bottom, blocks left to right within a row. The sequence is empty for
// non-positive block dimensions.
func Blocks(width, height int, cfg Config) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		if cfg.BlockWidth <= 0 || cfg.BlockHeight <= 0 {
			return
		}
		for y := 0; y < height; y += cfg.BlockHeight {
			for x := 0; x < width; x += cfg.BlockWidth {
				b := Block{
					X: x,
					Y: y,
					W: min(cfg.BlockWidth, width-x),
					H: min(cfg.BlockHeight, height-y),
				}
				if !yield(b) {
					return
				}
			}
		}
	}
}

// Slots enumerates the block's pixels row-major and, per pixel, R, G then B.
func (b Block) Slots() iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for dy := 0; dy < b.H; dy++ {
			for dx := 0; dx < b.W; dx++ {
				for c := R; c <= B; c++ {
					if !yield(Slot{X: b.X + dx, Y: b.Y + dy, Channel: c}) {
						return
					}
				}
			}
		}
	}
}

// Len is the number of slots in the block.
func (b Block) Len() int {
	return b.W * b.H * Channels
}
