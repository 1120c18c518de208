// Package cover renders text cards to use as carriers.
//
// Glyph outlines put sharp red-plane steps all over an otherwise flat card,
// which gives the embedder many high-capacity blocks to work with.
package cover

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Options describes a text card.
type Options struct {
	Width      int
	Height     int
	Background color.RGBA
	Foreground color.RGBA
	FontSize   float64
	LineHeight float64 // multiplier, 1.5 if zero
	Padding    int
	Text       string // paragraphs separated by newlines, wrapped to fit
}

// DefaultOptions returns a 640x360 black-on-white card with 32pt text.
func DefaultOptions() Options {
	return Options{
		Width:      640,
		Height:     360,
		Background: color.RGBA{255, 255, 255, 255},
		Foreground: color.RGBA{0, 0, 0, 255},
		FontSize:   32,
		LineHeight: 1.5,
		Padding:    24,
	}
}

// Sizes maps size preset names to [width, height].
var Sizes = map[string][2]int{
	"720p":             {1280, 720},
	"1080p":            {1920, 1080},
	"4k":               {3840, 2160},
	"instagram_square": {1080, 1080},
	"instagram_story":  {1080, 1920},
	"youtube_thumb":    {1280, 720},
}

// Renderer draws cards with one font.
type Renderer struct {
	fonts *fontSet
}

// NewRenderer creates a renderer using the TTF at fontPath, or the embedded
// Go font when fontPath is empty or cannot be read.
func NewRenderer(fontPath string) (*Renderer, error) {
	fs, err := loadFont(fontPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{fonts: fs}, nil
}

// Render fills the background and draws the wrapped text top-down. Lines
// that fall below the bottom padding are dropped.
func (r *Renderer) Render(opts Options) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid card size %dx%d", opts.Width, opts.Height)
	}
	if opts.FontSize <= 0 {
		return nil, fmt.Errorf("invalid font size %g", opts.FontSize)
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{opts.Background}, image.Point{}, draw.Src)

	face, err := r.fonts.face(opts.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lh := opts.LineHeight
	if lh <= 0 {
		lh = 1.5
	}
	lineHeight := int(opts.FontSize * lh)
	maxWidth := opts.Width - 2*opts.Padding
	bottom := opts.Height - opts.Padding

	y := opts.Padding
	for _, para := range strings.Split(opts.Text, "\n") {
		for _, line := range wrapText(para, maxWidth, face) {
			y += lineHeight
			if y > bottom {
				return img, nil
			}
			drawString(img, line, opts.Padding, y, opts.Foreground, face)
		}
	}
	return img, nil
}

// wrapText breaks text into lines no wider than maxWidth pixels. A single
// word wider than maxWidth gets a line of its own.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}

func drawString(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
