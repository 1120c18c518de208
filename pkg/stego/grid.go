// grid.go — RGB pixel buffer shared by the classifier and both engines.
package stego

import "fmt"

// Channel indexes a color plane within a pixel.
type Channel int

const (
	R Channel = iota
	G
	B
)

// Channels is the number of color planes per pixel.
const Channels = 3

// Grid is an RGB image, 8 bits per channel, stored row-major with the three
// channels of a pixel interleaved. The embedder mutates Pix in place.
type Grid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGrid allocates a zeroed grid.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: carrier size %dx%d", ErrDimensionMismatch, width, height)
	}
	return &Grid{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}, nil
}

// Validate checks that the grid is non-empty and Pix matches its dimensions.
func (g *Grid) Validate() error {
	if g == nil || g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: empty carrier", ErrDimensionMismatch)
	}
	if want := g.Width * g.Height * Channels; len(g.Pix) != want {
		return fmt.Errorf("%w: %dx%d carrier needs %d channel values, got %d",
			ErrDimensionMismatch, g.Width, g.Height, want, len(g.Pix))
	}
	return nil
}

// At returns channel c of the pixel at (x, y).
func (g *Grid) At(x, y int, c Channel) uint8 {
	return g.Pix[(y*g.Width+x)*Channels+int(c)]
}

// Set stores v in channel c of the pixel at (x, y).
func (g *Grid) Set(x, y int, c Channel, v uint8) {
	g.Pix[(y*g.Width+x)*Channels+int(c)] = v
}

// SetRGB stores all three channels of the pixel at (x, y).
func (g *Grid) SetRGB(x, y int, r, gr, b uint8) {
	i := (y*g.Width + x) * Channels
	g.Pix[i], g.Pix[i+1], g.Pix[i+2] = r, gr, b
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	pix := make([]uint8, len(g.Pix))
	copy(pix, g.Pix)
	return &Grid{Width: g.Width, Height: g.Height, Pix: pix}
}

// Fill sets every pixel to the same color.
func (g *Grid) Fill(r, gr, b uint8) {
	for i := 0; i < len(g.Pix); i += Channels {
		g.Pix[i], g.Pix[i+1], g.Pix[i+2] = r, gr, b
	}
}
