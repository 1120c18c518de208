// Package carrier moves carrier images between lossless files and stego grids.
//
// Every format handled here round-trips 8-bit RGB exactly. Lossy and paletted
// formats are refused: one re-quantization between embed and extract wipes
// the low bits that hold the payload.
package carrier

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/xob0t/edgestego/pkg/stego"
)

// Format names a lossless image container.
type Format string

const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	QOI  Format = "qoi"
)

var (
	ErrLossyFormat       = errors.New("lossy image format cannot carry a payload")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return PNG, nil
	case ".bmp":
		return BMP, nil
	case ".tif", ".tiff":
		return TIFF, nil
	case ".qoi":
		return QOI, nil
	case ".jpg", ".jpeg", ".gif", ".webp":
		return "", fmt.Errorf("%w %q: use .png, .bmp, .tiff or .qoi", ErrLossyFormat, ext)
	default:
		return "", fmt.Errorf("%w %q: use .png, .bmp, .tiff or .qoi", ErrUnsupportedFormat, ext)
	}
}

// Load reads a carrier file into a grid.
func Load(path string) (*stego.Grid, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// Decode reads an image of the given format into a grid.
func Decode(r io.Reader, format Format) (*stego.Grid, error) {
	img, err := decodeImage(r, format)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

func decodeImage(r io.Reader, format Format) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch format {
	case PNG:
		img, err = png.Decode(r)
	case BMP:
		img, err = bmp.Decode(r)
	case TIFF:
		img, err = tiff.Decode(r)
	case QOI:
		img, err = qoi.Decode(r)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return img, nil
}

// Save writes g to path in the format implied by its extension.
func Save(path string, g *stego.Grid) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := Encode(f, format, g); err != nil {
		return err
	}
	return f.Sync()
}

// Encode writes g as an image of the given format.
func Encode(w io.Writer, format Format, g *stego.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	img := ToImage(g)

	var err error
	switch format {
	case PNG:
		err = png.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case QOI:
		err = qoi.Encode(w, img)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

// FromImage copies the RGB channels of img into a new grid. Alpha is
// discarded; colors are taken non-premultiplied.
func FromImage(img image.Image) (*stego.Grid, error) {
	b := img.Bounds()
	g, err := stego.NewGrid(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	switch m := img.(type) {
	case *image.NRGBA:
		for y := 0; y < g.Height; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < g.Width; x++ {
				g.SetRGB(x, y, row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	default:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				g.SetRGB(x, y, c.R, c.G, c.B)
			}
		}
	}
	return g, nil
}

// ToImage returns g as an opaque RGBA image.
func ToImage(g *stego.Grid) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for i, j := 0, 0; i < len(g.Pix); i, j = i+stego.Channels, j+4 {
		m.Pix[j] = g.Pix[i]
		m.Pix[j+1] = g.Pix[i+1]
		m.Pix[j+2] = g.Pix[i+2]
		m.Pix[j+3] = 0xff
	}
	return m
}
