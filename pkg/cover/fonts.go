// fonts.go — Font loading with custom TTF support and the embedded Go font as fallback.
package cover

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// fontSet holds one parsed font and hands out faces at any size.
type fontSet struct {
	parsed *opentype.Font
}

// loadFont parses the TTF at path. An empty or unreadable path falls back
// to Go Regular.
func loadFont(path string) (*fontSet, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load font '%s', using default\n", path)
			data = nil
		}
	}
	if data == nil {
		data = goregular.TTF
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &fontSet{parsed: parsed}, nil
}

func (fs *fontSet) face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(fs.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
