// classify.go — Block edge classification on the red plane.
package stego

import "math"

// Classify returns the bit depth for the block anchored at (x, y):
// cfg.EdgeBits when any red-plane gradient magnitude in the block exceeds
// cfg.Threshold, cfg.NonEdgeBits otherwise.
//
// Gradients look one pixel right and one pixel down, so a block whose
// footprint plus that lookahead leaves the grid is always non-edge.
func Classify(g *Grid, x, y int, cfg Config) int {
	if isEdge(g, x, y, cfg) {
		return cfg.EdgeBits
	}
	return cfg.NonEdgeBits
}

func isEdge(g *Grid, x, y int, cfg Config) bool {
	if x+cfg.BlockWidth+1 > g.Width || y+cfg.BlockHeight+1 > g.Height {
		return false
	}
	for r := 0; r < cfg.BlockHeight; r++ {
		for c := 0; c < cfg.BlockWidth; c++ {
			v := int(g.At(x+c, y+r, R))
			gx := int(g.At(x+c+1, y+r, R)) - v
			gy := int(g.At(x+c, y+r+1, R)) - v
			if math.Sqrt(float64(gx*gx+gy*gy)) > cfg.Threshold {
				return true
			}
		}
	}
	return false
}
