package stego

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/edgestego/pkg/bitseq"
	"github.com/xob0t/edgestego/pkg/payload"
)

// grayGrid returns a w x h grid with every channel set to v.
func grayGrid(t *testing.T, w, h int, v uint8) *Grid {
	t.Helper()
	g, err := NewGrid(w, h)
	require.NoError(t, err)
	g.Fill(v, v, v)
	return g
}

// stableGrid alternates dark and bright tiles with a little noise. Red-plane
// gradients are either below 12 or above 190, far enough from the default
// threshold that up to 4 embedded bits per channel cannot move a block.
func stableGrid(t *testing.T, w, h int) *Grid {
	t.Helper()
	g, err := NewGrid(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := uint8(24)
			if (x/5+y/4)%2 == 1 {
				base = 224
			}
			noise := uint8((x*7 + y*13) % 9)
			g.SetRGB(x, y, base+noise, base/2+noise, 255-base-noise)
		}
	}
	return g
}

func gridImage(g *Grid) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			m.SetRGBA(x, y, color.RGBA{R: g.At(x, y, R), G: g.At(x, y, G), B: g.At(x, y, B), A: 255})
		}
	}
	return m
}

func randomBytes(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Uint32())
	}
	return b
}

func scenarioConfig() Config {
	return Config{Threshold: 128, EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3}
}

// ── Walker ──

func TestBlocks_RowMajorClipped(t *testing.T) {
	cfg := Config{BlockWidth: 3, BlockHeight: 3}
	got := slices.Collect(Blocks(5, 4, cfg))
	want := []Block{
		{X: 0, Y: 0, W: 3, H: 3},
		{X: 3, Y: 0, W: 2, H: 3},
		{X: 0, Y: 3, W: 3, H: 1},
		{X: 3, Y: 3, W: 2, H: 1},
	}
	assert.Equal(t, want, got)
}

func TestBlocks_InvalidSizeIsEmpty(t *testing.T) {
	assert.Empty(t, slices.Collect(Blocks(5, 5, Config{BlockWidth: 0, BlockHeight: 3})))
}

func TestSlots_Order(t *testing.T) {
	got := slices.Collect(Block{X: 3, Y: 3, W: 2, H: 2}.Slots())
	want := []Slot{
		{3, 3, R}, {3, 3, G}, {3, 3, B},
		{4, 3, R}, {4, 3, G}, {4, 3, B},
		{3, 4, R}, {3, 4, G}, {3, 4, B},
		{4, 4, R}, {4, 4, G}, {4, 4, B},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, len(want), Block{W: 2, H: 2}.Len())
}

func TestSlots_EarlyStop(t *testing.T) {
	n := 0
	for range (Block{W: 3, H: 3}).Slots() {
		n++
		if n == 4 {
			break
		}
	}
	assert.Equal(t, 4, n)
}

// ── Classifier ──

func TestClassify_Flat(t *testing.T) {
	g := grayGrid(t, 9, 9, 128)
	cfg := scenarioConfig()
	for blk := range Blocks(g.Width, g.Height, cfg) {
		assert.Equal(t, cfg.NonEdgeBits, Classify(g, blk.X, blk.Y, cfg), "block %+v", blk)
	}
}

func TestClassify_WhitePixel(t *testing.T) {
	g := grayGrid(t, 9, 9, 64)
	g.SetRGB(4, 1, 255, 255, 255)
	cfg := scenarioConfig()

	assert.Equal(t, 1, Classify(g, 0, 0, cfg))
	assert.Equal(t, 4, Classify(g, 3, 0, cfg))
	assert.Equal(t, 1, Classify(g, 3, 3, cfg))
}

func TestClassify_OnlyRedPlane(t *testing.T) {
	g := grayGrid(t, 9, 9, 64)
	g.Set(4, 1, G, 255)
	g.Set(4, 1, B, 255)
	assert.Equal(t, 1, Classify(g, 3, 0, scenarioConfig()))
}

func TestClassify_StrictlyAboveThreshold(t *testing.T) {
	// (3,0) only enters the block through one horizontal gradient.
	g := grayGrid(t, 9, 9, 0)
	g.Set(3, 0, R, 128)
	cfg := scenarioConfig()
	assert.Equal(t, 1, Classify(g, 0, 0, cfg))

	g.Set(3, 0, R, 129)
	assert.Equal(t, 4, Classify(g, 0, 0, cfg))
}

func TestClassify_NegativeGradient(t *testing.T) {
	g := grayGrid(t, 9, 9, 200)
	g.Set(2, 2, R, 10)
	assert.Equal(t, 4, Classify(g, 0, 0, scenarioConfig()))
}

func TestClassify_BoundaryIsNonEdge(t *testing.T) {
	cfg := scenarioConfig()

	// The last block column and row lack the one-pixel lookahead.
	g := grayGrid(t, 9, 9, 0)
	g.SetRGB(7, 7, 255, 255, 255)
	g.SetRGB(7, 1, 255, 255, 255)
	g.SetRGB(1, 7, 255, 255, 255)
	assert.Equal(t, 1, Classify(g, 6, 6, cfg))
	assert.Equal(t, 1, Classify(g, 6, 0, cfg))
	assert.Equal(t, 1, Classify(g, 0, 6, cfg))

	// A block exactly as large as the grid never reads outside it.
	small := grayGrid(t, 3, 3, 0)
	small.SetRGB(1, 1, 255, 255, 255)
	assert.NotPanics(t, func() {
		assert.Equal(t, 1, Classify(small, 0, 0, cfg))
	})

	// 4x4 leaves exactly one pixel of lookahead for the first block.
	exact := grayGrid(t, 4, 4, 0)
	exact.SetRGB(3, 0, 255, 255, 255)
	assert.Equal(t, 4, Classify(exact, 0, 0, cfg))
}

// ── Scenarios ──

func TestEmbed_FlatCarrierSingleChar(t *testing.T) {
	g := grayGrid(t, 9, 9, 128)
	orig := g.Clone()
	cfg := scenarioConfig()

	out, err := Embed(g, payload.Text("A"), cfg)
	require.NoError(t, err)
	assert.Same(t, g, out)

	// 'A' = 01000001, one bit per channel: (0,0) RGB, (1,0) RGB, (2,0) RG.
	want := orig.Clone()
	want.SetRGB(0, 0, 128, 129, 128)
	want.SetRGB(1, 0, 128, 128, 128)
	want.SetRGB(2, 0, 128, 129, 128)
	assert.Equal(t, want.Pix, g.Pix)

	bits, err := ExtractBits(g, 8, cfg)
	require.NoError(t, err)
	assert.Equal(t, "01000001", bits.String())

	got, err := Extract(g, payload.Shape{Kind: payload.KindText, Length: 1}, cfg)
	require.NoError(t, err)
	assert.Equal(t, payload.Text("A"), got)
}

func TestEmbed_EdgeBlockTakesMoreBits(t *testing.T) {
	g := grayGrid(t, 9, 9, 64)
	g.SetRGB(4, 1, 255, 255, 255)
	cfg := scenarioConfig()

	msg := payload.Bytes("EdgeStep")
	bits, err := msg.Bits()
	require.NoError(t, err)
	require.Equal(t, 64, bits.Len())

	_, err = EmbedBits(g, bits, cfg)
	require.NoError(t, err)

	// Block (0,0) is flat: 27 slots, one bit each.
	cur := 0
	for s := range (Block{X: 0, Y: 0, W: 3, H: 3}).Slots() {
		assert.Equal(t, bits.Uint(cur, 1), g.At(s.X, s.Y, s.Channel)&0x1, "slot %+v", s)
		cur++
	}
	// Block (3,0) holds the white pixel: four bits per slot.
	for s := range (Block{X: 3, Y: 0, W: 3, H: 3}).Slots() {
		if cur+4 > bits.Len() {
			break
		}
		assert.Equal(t, bits.Uint(cur, 4), g.At(s.X, s.Y, s.Channel)&0xf, "slot %+v", s)
		cur += 4
	}
	assert.Equal(t, 27+9*4, cur)

	// Nothing past the payload is touched.
	for s := range (Block{X: 6, Y: 0, W: 3, H: 3}).Slots() {
		assert.Equal(t, uint8(64), g.At(s.X, s.Y, s.Channel))
	}

	got, err := Extract(g, msg.Shape(), cfg)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestExtract_ShortCountReturnsPrefix(t *testing.T) {
	g := stableGrid(t, 32, 24)
	cfg := DefaultConfig()

	_, err := Embed(g, payload.Text("Hello, carrier"), cfg)
	require.NoError(t, err)

	got, err := Extract(g, payload.Shape{Kind: payload.KindText, Length: 5}, cfg)
	require.NoError(t, err)
	assert.Equal(t, payload.Text("Hello"), got)

	full, err := payload.Text("Hello, carrier").Bits()
	require.NoError(t, err)
	bits, err := ExtractBits(g, 13, cfg)
	require.NoError(t, err)
	assert.Equal(t, full.Prefix(13).String(), bits.String())
}

// edgeFirstGrid is black apart from one white pixel that makes block (0,0)
// an edge block; every other block is flat.
func edgeFirstGrid(t *testing.T) *Grid {
	t.Helper()
	g := grayGrid(t, 9, 9, 0)
	g.Set(1, 1, R, 255)
	return g
}

func edgeFirstConfig() Config {
	return Config{Threshold: 128, EdgeBits: 3, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3}
}

func TestExtract_PrefixInsideEdgeChunk(t *testing.T) {
	g := edgeFirstGrid(t)
	cfg := edgeFirstConfig()
	require.Equal(t, 3, Classify(g, 0, 0, cfg))

	_, err := Embed(g, payload.Text("AB"), cfg)
	require.NoError(t, err)

	// Eight bits end two bits into the third 3-bit slot.
	got, err := Extract(g, payload.Shape{Kind: payload.KindText, Length: 1}, cfg)
	require.NoError(t, err)
	assert.Equal(t, payload.Text("A"), got)

	got, err = Extract(g, payload.Shape{Kind: payload.KindText, Length: 2}, cfg)
	require.NoError(t, err)
	assert.Equal(t, payload.Text("AB"), got)
}

func TestExtractBits_EveryPrefix(t *testing.T) {
	tests := []struct {
		name string
		grid func(t *testing.T) *Grid
		cfg  Config
		size int
	}{
		// 96 bits run past the 81-bit edge block into flat blocks.
		{"edge block first", edgeFirstGrid, edgeFirstConfig(), 12},
		{"default config", func(t *testing.T) *Grid { return stableGrid(t, 20, 20) }, DefaultConfig(), 40},
		{"wide fields", func(t *testing.T) *Grid { return stableGrid(t, 20, 20) },
			Config{Threshold: 128, EdgeBits: 4, NonEdgeBits: 3, BlockWidth: 4, BlockHeight: 2}, 60},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := tc.grid(t)
			src := bitseq.FromBytes(randomBytes(tc.size, 11))
			_, err := EmbedBits(g, src, tc.cfg)
			require.NoError(t, err)

			for n := 1; n <= src.Len(); n++ {
				got, err := ExtractBits(g, n, tc.cfg)
				require.NoError(t, err)
				require.Equal(t, src.Prefix(n).String(), got.String(), "n=%d", n)
			}
		})
	}
}

// ── Properties ──

func TestRoundTrip_Configs(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{Threshold: 128, EdgeBits: 2, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3},
		{Threshold: 128, EdgeBits: 3, NonEdgeBits: 2, BlockWidth: 4, BlockHeight: 2},
		{Threshold: 128, EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 5, BlockHeight: 5},
		{Threshold: 128, EdgeBits: 1, NonEdgeBits: 3, BlockWidth: 1, BlockHeight: 7},
	}
	for _, cfg := range configs {
		g := stableGrid(t, 41, 29)
		capBits, err := Capacity(g, cfg)
		require.NoError(t, err)

		for _, n := range []int{0, 1, 13, capBits/8 - 1, capBits / 8} {
			data := randomBytes(n, uint64(n)+1)
			carrier := g.Clone()

			_, err := Embed(carrier, payload.Bytes(data), cfg)
			require.NoError(t, err, "cfg %+v n=%d", cfg, n)

			got, err := Extract(carrier, payload.Bytes(data).Shape(), cfg)
			require.NoError(t, err, "cfg %+v n=%d", cfg, n)
			assert.Equal(t, payload.Bytes(data), got, "cfg %+v n=%d", cfg, n)
		}
	}
}

func TestRoundTrip_UnalignedBitCounts(t *testing.T) {
	g := stableGrid(t, 20, 20)
	cfg := DefaultConfig()
	for _, n := range []int{1, 3, 5, 7, 29, 131} {
		src := bitseq.FromBytes(randomBytes(20, uint64(n))).Prefix(n)
		carrier := g.Clone()
		_, err := EmbedBits(carrier, src, cfg)
		require.NoError(t, err)

		got, err := ExtractBits(carrier, n, cfg)
		require.NoError(t, err)
		assert.Equal(t, src.String(), got.String(), "n=%d", n)
	}
}

func TestRoundTrip_ImagePayload(t *testing.T) {
	secret := stableGrid(t, 6, 4)
	img := payload.Image{Img: gridImage(secret)}

	g := stableGrid(t, 48, 40)
	cfg := DefaultConfig()
	_, err := Embed(g, img, cfg)
	require.NoError(t, err)

	got, err := Extract(g, img.Shape(), cfg)
	require.NoError(t, err)
	assert.Equal(t, img.RGBA().Pix, got.(payload.Image).RGBA().Pix)
}

func TestEmbed_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	data := payload.Bytes(randomBytes(60, 7))

	a := stableGrid(t, 30, 30)
	b := stableGrid(t, 30, 30)
	_, err := Embed(a, data, cfg)
	require.NoError(t, err)
	_, err = Embed(b, data, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)

	x, err := ExtractBits(a, 480, cfg)
	require.NoError(t, err)
	y, err := ExtractBits(a, 480, cfg)
	require.NoError(t, err)
	assert.Equal(t, x.String(), y.String())
}

func TestClassification_StableUnderFullEmbedding(t *testing.T) {
	cfg := DefaultConfig()
	g := stableGrid(t, 40, 40)
	orig := g.Clone()

	capBits, err := Capacity(g, cfg)
	require.NoError(t, err)
	bits := bitseq.FromBytes(randomBytes(capBits/8, 3))
	_, err = EmbedBits(g, bits, cfg)
	require.NoError(t, err)

	for blk := range Blocks(g.Width, g.Height, cfg) {
		assert.Equal(t, Classify(orig, blk.X, blk.Y, cfg), Classify(g, blk.X, blk.Y, cfg), "block %+v", blk)
	}
	moved, err := Unstable(orig, g, bits.Len(), cfg)
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestCapacity_Bounds(t *testing.T) {
	for _, cfg := range []Config{
		DefaultConfig(),
		{Threshold: 64, EdgeBits: 6, NonEdgeBits: 2, BlockWidth: 2, BlockHeight: 5},
	} {
		g := stableGrid(t, 37, 23)
		r, err := Analyze(g, cfg)
		require.NoError(t, err)

		pixels := g.Width * g.Height
		assert.GreaterOrEqual(t, r.Capacity, 3*cfg.NonEdgeBits*pixels)
		assert.LessOrEqual(t, r.Capacity, 3*cfg.EdgeBits*pixels)
		assert.Positive(t, r.EdgeBlocks)
		cols := (g.Width + cfg.BlockWidth - 1) / cfg.BlockWidth
		rows := (g.Height + cfg.BlockHeight - 1) / cfg.BlockHeight
		assert.Equal(t, cols*rows, r.Blocks)
	}

	flat := grayGrid(t, 9, 9, 128)
	c, err := Capacity(flat, scenarioConfig())
	require.NoError(t, err)
	assert.Equal(t, 3*1*81, c)
}

// ── Errors ──

func TestEmbed_CapacityExceeded(t *testing.T) {
	g := grayGrid(t, 9, 9, 128)
	orig := g.Clone()
	cfg := scenarioConfig()

	// 243 bits fit, 31 bytes do not.
	_, err := Embed(g, payload.Bytes(make([]byte, 31)), cfg)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, orig.Pix, g.Pix, "carrier must be untouched")

	_, err = EmbedBits(g, bitseq.FromBytes(make([]byte, 31)).Prefix(243), cfg)
	assert.NoError(t, err)
}

func TestExtract_GridExhausted(t *testing.T) {
	g := grayGrid(t, 3, 3, 0)
	cfg := scenarioConfig()

	bits, err := ExtractBits(g, 100, cfg)
	require.NoError(t, err)
	assert.Equal(t, 27, bits.Len())

	_, err = Extract(g, payload.Shape{Kind: payload.KindText, Length: 10}, cfg)
	assert.ErrorIs(t, err, payload.ErrInvalidShape)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"default", DefaultConfig(), nil},
		{"zero block width", Config{EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 0, BlockHeight: 3}, ErrDimensionMismatch},
		{"negative block height", Config{EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: -1}, ErrDimensionMismatch},
		{"edge bits zero", Config{EdgeBits: 0, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3}, ErrInvalidBitDepth},
		{"non-edge bits nine", Config{EdgeBits: 4, NonEdgeBits: 9, BlockWidth: 3, BlockHeight: 3}, ErrInvalidBitDepth},
		{"zero threshold", Config{Threshold: 0, EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3}, nil},
		{"negative threshold", Config{Threshold: -1, EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3}, ErrInvalidThreshold},
		{"NaN threshold", Config{Threshold: math.NaN(), EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3}, ErrInvalidThreshold},
		{"infinite threshold", Config{Threshold: math.Inf(1), EdgeBits: 4, NonEdgeBits: 1, BlockWidth: 3, BlockHeight: 3}, ErrInvalidThreshold},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDimensionErrors(t *testing.T) {
	_, err := NewGrid(0, 4)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	bad := &Grid{Width: 4, Height: 4, Pix: make([]uint8, 10)}
	_, err = Embed(bad, payload.Text("x"), DefaultConfig())
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = ExtractBits(&Grid{}, 8, DefaultConfig())
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	g := grayGrid(t, 4, 4, 0)
	_, err = Embed(g, payload.Text("x"), Config{EdgeBits: 4, NonEdgeBits: 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSetField(t *testing.T) {
	v, err := setField(0b1010_1010, 0b0101, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b1010_0101), v)

	v, err = setField(0xff, 0x00, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), v)

	// A short tail sits at the top of the field; the rest of the field is kept.
	v, err = setField(0b1111_0000, 0b01, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b1111_0010), v)

	v, err = setField(0b0000_0111, 0b0, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b0000_0011), v)

	_, err = setField(0, 0b100, 2, 2)
	assert.ErrorIs(t, err, ErrChannelOverflow)
	_, err = setField(0, 0b11, 3, 1)
	assert.ErrorIs(t, err, ErrChannelOverflow)
	_, err = setField(0, 0, 9, 9)
	assert.ErrorIs(t, err, ErrChannelOverflow)
	_, err = setField(0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrChannelOverflow)
	_, err = setField(0, 0, 2, 3)
	assert.ErrorIs(t, err, ErrChannelOverflow)
}

// ── Stability checks ──

// marginalGrid has two edge blocks whose shared gradient sits one step above
// the threshold; writing zero nibbles pulls block (0,0) back to non-edge.
func marginalGrid(t *testing.T) *Grid {
	t.Helper()
	g := grayGrid(t, 9, 9, 100)
	g.Set(3, 0, R, 229)
	return g
}

func TestUnstable_DetectsMovedBlock(t *testing.T) {
	cfg := scenarioConfig()
	g := marginalGrid(t)
	require.Equal(t, 4, Classify(g, 0, 0, cfg))
	require.Equal(t, 4, Classify(g, 3, 0, cfg))

	orig := g.Clone()
	bits := bitseq.FromBytes(make([]byte, 16))
	_, err := EmbedBits(g, bits, cfg)
	require.NoError(t, err)

	moved, err := Unstable(orig, g, bits.Len(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []Block{{X: 0, Y: 0, W: 3, H: 3}}, moved)
}

func TestEmbedVerified(t *testing.T) {
	cfg := scenarioConfig()

	_, err := EmbedVerified(marginalGrid(t), payload.Bytes(make([]byte, 16)), cfg)
	assert.ErrorIs(t, err, ErrUnstableClassification)

	g := stableGrid(t, 30, 30)
	_, err = EmbedVerified(g, payload.Text("stable"), DefaultConfig())
	assert.NoError(t, err)
}

func TestSlack(t *testing.T) {
	assert.InDelta(t, 2*1.41421356*15, DefaultConfig().Slack(), 1e-4)
	assert.Less(t, Config{EdgeBits: 1, NonEdgeBits: 1}.Slack(), 3.0)
}
