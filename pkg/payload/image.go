// image.go — Secondary image payloads carried as raw RGB bytes.
package payload

import (
	"fmt"
	"image"
	"image/color"

	"github.com/xob0t/edgestego/pkg/bitseq"
)

// Image hides the R, G and B bytes of every pixel, row-major with channels
// interleaved. Alpha is dropped.
type Image struct {
	Img image.Image
}

func (p Image) Bits() (bitseq.Seq, error) {
	if p.Img == nil {
		return bitseq.Seq{}, fmt.Errorf("%w: nil image", ErrInvalidShape)
	}
	b := p.Img.Bounds()
	raw := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(p.Img.At(x, y)).(color.NRGBA)
			raw = append(raw, c.R, c.G, c.B)
		}
	}
	return bitseq.FromBytes(raw), nil
}

func (p Image) Shape() Shape {
	if p.Img == nil {
		return Shape{Kind: KindImage}
	}
	b := p.Img.Bounds()
	return Shape{Kind: KindImage, Width: b.Dx(), Height: b.Dy()}
}

// RGBA returns the image as *image.RGBA, converting when needed.
func (p Image) RGBA() *image.RGBA {
	if m, ok := p.Img.(*image.RGBA); ok {
		return m
	}
	b := p.Img.Bounds()
	m := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(p.Img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			m.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return m
}

func decodeImage(raw []byte, width, height int) (Image, error) {
	if len(raw) != width*height*3 {
		return Image{}, fmt.Errorf("%w: %dx%d image needs %d bytes, got %d",
			ErrInvalidShape, width, height, width*height*3, len(raw))
	}
	m := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(raw); i, j = i+3, j+4 {
		m.Pix[j] = raw[i]
		m.Pix[j+1] = raw[i+1]
		m.Pix[j+2] = raw[i+2]
		m.Pix[j+3] = 0xff
	}
	return Image{Img: m}, nil
}
