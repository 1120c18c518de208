// text.go — Text payloads, one byte per character.
package payload

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/xob0t/edgestego/pkg/bitseq"
)

// Text is a message whose characters are all in U+0000..U+00FF. Each
// character is carried as its 8-bit code point.
type Text string

func (t Text) Bits() (bitseq.Seq, error) {
	for i, r := range string(t) {
		// Invalid UTF-8 decodes as U+FFFD and is rejected here too.
		if r > 0xff {
			return bitseq.Seq{}, fmt.Errorf("%w: %q at byte %d", ErrUnencodable, r, i)
		}
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(string(t))
	if err != nil {
		return bitseq.Seq{}, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return bitseq.FromBytes([]byte(raw)), nil
}

// Shape counts characters, which equals the encoded byte count.
func (t Text) Shape() Shape {
	return Shape{Kind: KindText, Length: utf8.RuneCountInString(string(t))}
}

func decodeText(raw []byte) (Text, error) {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return Text(s), nil
}
