// flags.go — Shared flag sets for the stego parameters and payload shapes.
package main

import (
	"flag"
	"fmt"

	"github.com/xob0t/edgestego/pkg/payload"
	"github.com/xob0t/edgestego/pkg/sidecar"
	"github.com/xob0t/edgestego/pkg/stego"
)

// configFlags binds the stego.Config fields and --config to a flag set.
type configFlags struct {
	cfg  stego.Config
	path string
}

func addConfigFlags(fs *flag.FlagSet) *configFlags {
	f := &configFlags{}
	def := stego.DefaultConfig()
	fs.StringVar(&f.path, "config", "", "YAML file with stego parameters (a sidecar works too)")
	fs.Float64Var(&f.cfg.Threshold, "threshold", def.Threshold, "Gradient magnitude above which a block is an edge block")
	fs.Float64Var(&f.cfg.Threshold, "t", def.Threshold, "Gradient threshold")
	fs.IntVar(&f.cfg.EdgeBits, "edge-bits", def.EdgeBits, "Low bits per channel in edge blocks (1-8)")
	fs.IntVar(&f.cfg.NonEdgeBits, "non-edge-bits", def.NonEdgeBits, "Low bits per channel in other blocks (1-8)")
	fs.IntVar(&f.cfg.BlockWidth, "block-w", def.BlockWidth, "Block width in pixels")
	fs.IntVar(&f.cfg.BlockHeight, "block-h", def.BlockHeight, "Block height in pixels")
	return f
}

// resolve layers the parameters: base, then --config, then any flag given
// explicitly on the command line. fs must already be parsed.
func (f *configFlags) resolve(fs *flag.FlagSet, base stego.Config) (stego.Config, error) {
	cfg := base
	if f.path != "" {
		loaded, err := sidecar.LoadConfig(f.path)
		if err != nil {
			return stego.Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "threshold", "t":
			cfg.Threshold = f.cfg.Threshold
		case "edge-bits":
			cfg.EdgeBits = f.cfg.EdgeBits
		case "non-edge-bits":
			cfg.NonEdgeBits = f.cfg.NonEdgeBits
		case "block-w":
			cfg.BlockWidth = f.cfg.BlockWidth
		case "block-h":
			cfg.BlockHeight = f.cfg.BlockHeight
		}
	})

	if err := cfg.Validate(); err != nil {
		return stego.Config{}, err
	}
	return cfg, nil
}

// shapeFlags lets the extractor state the payload shape without a sidecar.
// Lengths default to -1 so that an explicit 0 counts as given.
type shapeFlags struct {
	textLen   int
	imageSize string
	bytesLen  int
	zstdLen   int
}

func addShapeFlags(fs *flag.FlagSet) *shapeFlags {
	f := &shapeFlags{}
	fs.IntVar(&f.textLen, "text-len", -1, "Extract a text payload of N characters")
	fs.StringVar(&f.imageSize, "image-size", "", "Extract an image payload of WxH pixels")
	fs.IntVar(&f.bytesLen, "bytes", -1, "Extract N raw bytes")
	fs.IntVar(&f.zstdLen, "zstd", -1, "Extract and decompress an N-byte zstd frame")
	return f
}

// shape returns the shape given on the command line, or ok=false when
// none was. Giving more than one is an error.
func (f *shapeFlags) shape() (s payload.Shape, ok bool, err error) {
	if f.textLen < -1 || f.bytesLen < -1 || f.zstdLen < -1 {
		return payload.Shape{}, false, fmt.Errorf("payload lengths must not be negative")
	}

	var shapes []payload.Shape
	if f.textLen >= 0 {
		shapes = append(shapes, payload.Shape{Kind: payload.KindText, Length: f.textLen})
	}
	if f.imageSize != "" {
		w, h, err := parseSize(f.imageSize)
		if err != nil {
			return payload.Shape{}, false, err
		}
		shapes = append(shapes, payload.Shape{Kind: payload.KindImage, Width: w, Height: h})
	}
	if f.bytesLen >= 0 {
		shapes = append(shapes, payload.Shape{Kind: payload.KindBytes, Length: f.bytesLen})
	}
	if f.zstdLen >= 0 {
		shapes = append(shapes, payload.Shape{Kind: payload.KindZstd, Length: f.zstdLen})
	}

	switch len(shapes) {
	case 0:
		return payload.Shape{}, false, nil
	case 1:
		return shapes[0], true, nil
	default:
		return payload.Shape{}, false, fmt.Errorf("give only one of --text-len, --image-size, --bytes, --zstd")
	}
}

// parseSize parses "WxH".
func parseSize(s string) (w, h int, err error) {
	var rest string
	n, _ := fmt.Sscanf(s, "%dx%d%s", &w, &h, &rest)
	if n != 2 || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: expected WxH", s)
	}
	return w, h, nil
}
