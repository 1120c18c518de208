// edgestego — Edge-adaptive LSB steganography.
//
// Usage:
//
//	edgestego embed -i <cover> -o <stego> (--text <s> | --image <file> | --file <file>) [options]
//	edgestego extract -i <stego> [--meta <yaml> | --text-len N | ...] [options]
//	edgestego capacity -i <image> [options]
//	edgestego cover -o <file> [--text <s>] [options]
//	edgestego serve [--port 8080]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"os"
	"path/filepath"

	"github.com/xob0t/edgestego/clients/server"
	"github.com/xob0t/edgestego/pkg/carrier"
	"github.com/xob0t/edgestego/pkg/cover"
	"github.com/xob0t/edgestego/pkg/payload"
	"github.com/xob0t/edgestego/pkg/sidecar"
	"github.com/xob0t/edgestego/pkg/stego"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "embed":
		err = runEmbed(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "capacity", "cap":
		err = runCapacity(os.Args[2:])
	case "cover":
		err = runCover(os.Args[2:])
	case "serve":
		err = server.RunServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	cf := addConfigFlags(fs)

	var (
		input     string
		output    string
		text      string
		textFile  string
		imagePath string
		filePath  string
		compress  bool
		unsafe    bool
		noMeta    bool
	)
	fs.StringVar(&input, "i", "", "Cover image (.png, .bmp, .tiff, .qoi)")
	fs.StringVar(&input, "input", "", "Cover image (.png, .bmp, .tiff, .qoi)")
	fs.StringVar(&output, "o", "", "Output stego image (lossless format)")
	fs.StringVar(&output, "output", "", "Output stego image (lossless format)")
	fs.StringVar(&text, "text", "", "Text payload (Latin-1 characters only)")
	fs.StringVar(&textFile, "text-file", "", "Read the text payload from a file")
	fs.StringVar(&imagePath, "image", "", "Image payload")
	fs.StringVar(&filePath, "file", "", "Raw file payload")
	fs.BoolVar(&compress, "zstd", false, "Compress a --file or --text payload with zstd")
	fs.BoolVar(&unsafe, "unsafe", false, "Skip the block classification check after embedding")
	fs.BoolVar(&noMeta, "no-meta", false, "Do not write the <output>.yaml sidecar")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" || output == "" {
		return fmt.Errorf("both -i and -o are required")
	}
	if _, err := carrier.FormatFromPath(output); err != nil {
		return err
	}

	cfg, err := cf.resolve(fs, stego.DefaultConfig())
	if err != nil {
		return err
	}
	p, err := readPayload(text, textFile, imagePath, filePath, compress)
	if err != nil {
		return err
	}

	g, err := carrier.Load(input)
	if err != nil {
		return err
	}
	report, err := stego.Analyze(g, cfg)
	if err != nil {
		return err
	}
	bits, err := p.Shape().BitCount()
	if err != nil {
		return err
	}
	fmt.Printf("Payload: %s, %d bits (carrier holds %d, %d/%d edge blocks)\n",
		p.Shape(), bits, report.Capacity, report.EdgeBlocks, report.Blocks)

	if unsafe {
		_, err = stego.Embed(g, p, cfg)
	} else {
		_, err = stego.EmbedVerified(g, p, cfg)
	}
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	if err := carrier.Save(output, g); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", output)

	if noMeta {
		fmt.Printf("Extract with: %s\n", shapeHint(p.Shape()))
		return nil
	}
	metaPath := sidecar.PathFor(output)
	meta := sidecar.Meta{Carrier: filepath.Base(output), Config: cfg, Payload: p.Shape()}
	if err := sidecar.Save(metaPath, meta); err != nil {
		return err
	}
	fmt.Printf("Meta: %s\n", metaPath)
	return nil
}

// readPayload builds the payload from whichever source flag was given.
func readPayload(text, textFile, imagePath, filePath string, compress bool) (payload.Payload, error) {
	n := 0
	for _, s := range []string{text, textFile, imagePath, filePath} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return nil, fmt.Errorf("give exactly one of --text, --text-file, --image, --file")
	}

	var raw []byte
	switch {
	case imagePath != "":
		if compress {
			return nil, fmt.Errorf("--zstd applies to --file and --text payloads")
		}
		img, err := openImage(imagePath)
		if err != nil {
			return nil, err
		}
		return payload.Image{Img: img}, nil
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		if !compress {
			return payload.Bytes(data), nil
		}
		raw = data
	default:
		if textFile != "" {
			data, err := os.ReadFile(textFile)
			if err != nil {
				return nil, fmt.Errorf("read payload: %w", err)
			}
			text = string(data)
		}
		if !compress {
			return payload.Text(text), nil
		}
		raw = []byte(text)
	}

	return payload.Compress(raw), nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	cf := addConfigFlags(fs)
	sf := addShapeFlags(fs)

	var input, output, metaPath string
	fs.StringVar(&input, "i", "", "Stego image")
	fs.StringVar(&input, "input", "", "Stego image")
	fs.StringVar(&output, "o", "", "Write the payload here (text goes to stdout otherwise)")
	fs.StringVar(&output, "output", "", "Write the payload here (text goes to stdout otherwise)")
	fs.StringVar(&metaPath, "meta", "", "Sidecar YAML (default: <input>.yaml if present)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		return fmt.Errorf("-i is required")
	}

	shape, haveShape, err := sf.shape()
	if err != nil {
		return err
	}

	base := stego.DefaultConfig()
	if metaPath == "" && !haveShape {
		if _, err := os.Stat(sidecar.PathFor(input)); err == nil {
			metaPath = sidecar.PathFor(input)
		}
	}
	if metaPath != "" {
		meta, err := sidecar.Load(metaPath)
		if err != nil {
			return err
		}
		base = meta.Config
		if !haveShape {
			shape, haveShape = meta.Payload, true
		}
	}
	if !haveShape {
		return fmt.Errorf("payload shape unknown: pass --meta or one of --text-len, --image-size, --bytes, --zstd")
	}

	cfg, err := cf.resolve(fs, base)
	if err != nil {
		return err
	}

	g, err := carrier.Load(input)
	if err != nil {
		return err
	}
	p, err := stego.Extract(g, shape, cfg)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	return writePayload(p, output)
}

func writePayload(p payload.Payload, output string) error {
	switch v := p.(type) {
	case payload.Text:
		if output == "" {
			fmt.Println(string(v))
			return nil
		}
		return writeFile(output, []byte(v))
	case payload.Image:
		if output == "" {
			return fmt.Errorf("image payload needs -o")
		}
		g, err := carrier.FromImage(v.Img)
		if err != nil {
			return err
		}
		if err := carrier.Save(output, g); err != nil {
			return err
		}
		fmt.Printf("Done: %s\n", output)
		return nil
	case payload.Bytes:
		if output == "" {
			return fmt.Errorf("byte payload needs -o")
		}
		return writeFile(output, v)
	default:
		return fmt.Errorf("unexpected payload %T", p)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Done: %s (%d bytes)\n", path, len(data))
	return nil
}

func runCapacity(args []string) error {
	fs := flag.NewFlagSet("capacity", flag.ExitOnError)
	cf := addConfigFlags(fs)

	var input string
	var asJSON bool
	fs.StringVar(&input, "i", "", "Carrier image")
	fs.StringVar(&input, "input", "", "Carrier image")
	fs.BoolVar(&asJSON, "json", false, "Print the report as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		return fmt.Errorf("-i is required")
	}
	cfg, err := cf.resolve(fs, stego.DefaultConfig())
	if err != nil {
		return err
	}

	g, err := carrier.Load(input)
	if err != nil {
		return err
	}
	r, err := stego.Analyze(g, cfg)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Printf("Carrier:     %s (%dx%d)\n", input, g.Width, g.Height)
	fmt.Printf("Blocks:      %d (%d edge)\n", r.Blocks, r.EdgeBlocks)
	fmt.Printf("Capacity:    %d bits (%d bytes)\n", r.Capacity, r.Capacity/8)
	fmt.Printf("Safe margin: threshold %g, slack %.1f\n", cfg.Threshold, cfg.Slack())
	return nil
}

func runCover(args []string) error {
	fs := flag.NewFlagSet("cover", flag.ExitOnError)

	def := cover.DefaultOptions()
	var (
		output   string
		text     string
		bg       string
		fg       string
		fontPath string
		width    int
		height   int
		size     float64
		preset   string
	)
	fs.StringVar(&output, "o", "", "Output file (.png, .bmp, .tiff, .qoi)")
	fs.StringVar(&output, "output", "", "Output file (.png, .bmp, .tiff, .qoi)")
	fs.StringVar(&text, "text", "", "Text to draw; a solid cover is produced when empty")
	fs.StringVar(&bg, "color", "random", "Background color: hex or 'random'")
	fs.StringVar(&fg, "fg", "#000000", "Text color")
	fs.StringVar(&fontPath, "font", "", "Custom TTF font (default: Go Regular)")
	fs.IntVar(&width, "w", def.Width, "Width in pixels")
	fs.IntVar(&width, "width", def.Width, "Width in pixels")
	fs.IntVar(&height, "h", def.Height, "Height in pixels")
	fs.IntVar(&height, "height", def.Height, "Height in pixels")
	fs.Float64Var(&size, "size", def.FontSize, "Font size in points")
	fs.StringVar(&preset, "preset", "", "Size preset: 720p, 1080p, 4k, instagram_square, instagram_story, youtube_thumb")

	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}
	if preset != "" {
		dims, ok := cover.Sizes[preset]
		if !ok {
			return fmt.Errorf("unknown size preset %q", preset)
		}
		width, height = dims[0], dims[1]
	}

	bgColor, err := carrier.ParseColor(bg)
	if err != nil {
		return err
	}

	var g *stego.Grid
	if text == "" {
		g, err = carrier.NewSolid(width, height, bgColor)
		if err != nil {
			return err
		}
	} else {
		fgColor, err := carrier.ParseColor(fg)
		if err != nil {
			return err
		}
		r, err := cover.NewRenderer(fontPath)
		if err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
		opts := def
		opts.Width, opts.Height = width, height
		opts.Background, opts.Foreground = bgColor, fgColor
		opts.FontSize = size
		opts.Text = text
		img, err := r.Render(opts)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if g, err = carrier.FromImage(img); err != nil {
			return err
		}
	}

	fmt.Printf("Generating: %s\n", output)
	if err := carrier.Save(output, g); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", output)
	return nil
}

// openImage decodes an image payload in any registered format.
func openImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func shapeHint(s payload.Shape) string {
	switch s.Kind {
	case payload.KindText:
		return fmt.Sprintf("--text-len %d", s.Length)
	case payload.KindImage:
		return fmt.Sprintf("--image-size %dx%d", s.Width, s.Height)
	case payload.KindZstd:
		return fmt.Sprintf("--zstd %d", s.Length)
	default:
		return fmt.Sprintf("--bytes %d", s.Length)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`edgestego — Edge-adaptive LSB steganography

USAGE:
    edgestego embed -i <cover> -o <stego> <payload> [options]
    edgestego extract -i <stego> [--meta <yaml> | <shape>] [-o <file>]
    edgestego capacity -i <image> [--json] [options]
    edgestego cover -o <file> [--text <s>] [options]
    edgestego serve [--port 8080]

PAYLOAD (embed, exactly one):
    --text <s>             Latin-1 text
    --text-file <path>     Latin-1 text read from a file
    --image <path>         Image (any decodable format, stored as raw RGB)
    --file <path>          Raw bytes
    --zstd                 Compress a --text or --file payload
    --unsafe               Skip the post-embed classification check
    --no-meta              Do not write <stego>.yaml

SHAPE (extract, instead of --meta):
    --text-len <n>         Text of n characters
    --image-size <WxH>     Image of W by H pixels
    --bytes <n>            n raw bytes
    --zstd <n>             n-byte zstd frame, decompressed on output

STEGO PARAMETERS (embed, extract, capacity):
    --config <path>        YAML config or sidecar
    -t, --threshold <f>    Edge threshold (default: 128)
    --edge-bits <n>        Bits per channel in edge blocks (default: 4)
    --non-edge-bits <n>    Bits per channel elsewhere (default: 1)
    --block-w <px>         Block width (default: 3)
    --block-h <px>         Block height (default: 3)

COVER:
    -o, --output <path>    Output file (.png, .bmp, .tiff or .qoi)
    --text <s>             Text to render; solid color when empty
    --color <hex>          Background color or 'random' (default: random)
    --fg <hex>             Text color (default: #000000)
    --font <path>          Custom TTF (default: Go Regular)
    --size <pt>            Font size (default: 32)
    --preset <name>        Size preset (720p, 1080p, 4k, instagram_square, ...)
    -w, --width <px>       Width in pixels (default: 640)
    -h, --height <px>      Height in pixels (default: 360)

EXAMPLES:
    edgestego cover -o cover.png --color "#ffffff" --text "Quarterly report"
    edgestego capacity -i cover.png
    edgestego embed -i cover.png -o stego.png --text "meet at dawn"
    edgestego extract -i stego.png
    edgestego embed -i cover.png -o stego.png --file notes.pdf --zstd --no-meta
    edgestego extract -i stego.png --zstd 1834 -o notes.pdf
`)
}
