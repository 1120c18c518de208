// color.go — Color parsing and solid carriers.
package carrier

import (
	"crypto/rand"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/xob0t/edgestego/pkg/stego"
)

// ParseColor parses "#rrggbb" or "random". Empty string is treated as "random".
func ParseColor(s string) (color.RGBA, error) {
	if s == "" || s == "random" {
		buf := make([]byte, 3)
		if _, err := rand.Read(buf); err != nil {
			return color.RGBA{}, fmt.Errorf("random color: %w", err)
		}
		return color.RGBA{R: buf[0], G: buf[1], B: buf[2], A: 255}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected 6-char hex", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// NewSolid creates a uniform carrier. Every block of a solid carrier is
// non-edge, so it offers the minimum capacity for its size.
func NewSolid(w, h int, c color.RGBA) (*stego.Grid, error) {
	g, err := stego.NewGrid(w, h)
	if err != nil {
		return nil, err
	}
	g.Fill(c.R, c.G, c.B)
	return g, nil
}
