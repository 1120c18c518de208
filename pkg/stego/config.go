// Package stego hides bit sequences in the low bits of an RGB pixel grid,
// spending more bits per channel in blocks whose red plane has strong gradients.
//
// Embedder and extractor share nothing but a Config and the payload length:
// both walk the grid block by block in the same order, classify each block
// from the pixels they see, and read or write that many low bits per channel.
package stego

import (
	"fmt"
	"math"
)

// Defaults used when no configuration is supplied.
const (
	DefaultThreshold   = 128
	DefaultEdgeBits    = 4
	DefaultNonEdgeBits = 1
	DefaultBlockWidth  = 3
	DefaultBlockHeight = 3
)

// Config is the parameter set agreed between embedder and extractor.
// It is never recovered from the carrier.
type Config struct {
	Threshold   float64 `yaml:"threshold" json:"threshold"`
	EdgeBits    int     `yaml:"edge_bits" json:"edgeBits"`
	NonEdgeBits int     `yaml:"non_edge_bits" json:"nonEdgeBits"`
	BlockWidth  int     `yaml:"block_width" json:"blockWidth"`
	BlockHeight int     `yaml:"block_height" json:"blockHeight"`
}

// DefaultConfig returns threshold 128, 4 bits in edge blocks, 1 bit elsewhere
// and 3x3 blocks.
func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		EdgeBits:    DefaultEdgeBits,
		NonEdgeBits: DefaultNonEdgeBits,
		BlockWidth:  DefaultBlockWidth,
		BlockHeight: DefaultBlockHeight,
	}
}

// Validate reports non-positive block dimensions, bit depths outside 1..8 and
// a threshold that is negative or not finite.
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, c.Threshold)
	}
	if c.BlockWidth <= 0 || c.BlockHeight <= 0 {
		return fmt.Errorf("%w: block size %dx%d", ErrDimensionMismatch, c.BlockWidth, c.BlockHeight)
	}
	if c.EdgeBits < 1 || c.EdgeBits > 8 {
		return fmt.Errorf("%w: edge bits %d", ErrInvalidBitDepth, c.EdgeBits)
	}
	if c.NonEdgeBits < 1 || c.NonEdgeBits > 8 {
		return fmt.Errorf("%w: non-edge bits %d", ErrInvalidBitDepth, c.NonEdgeBits)
	}
	return nil
}

// Slack is the largest amount by which embedding can move a single gradient
// magnitude. Blocks whose magnitudes all stay further than Slack from the
// threshold keep their classification after embedding.
func (c Config) Slack() float64 {
	depth := max(c.EdgeBits, c.NonEdgeBits)
	d := float64(int(1)<<depth - 1)
	return 2 * math.Sqrt2 * d
}
