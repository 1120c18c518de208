//go:build js && wasm

// edgestego WASM — Client-side embedder and extractor.
// Compiled with: GOOS=js GOARCH=wasm go build -o edgestego.wasm ./clients/wasm/
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/xob0t/edgestego/pkg/carrier"
	"github.com/xob0t/edgestego/pkg/cover"
	"github.com/xob0t/edgestego/pkg/payload"
	"github.com/xob0t/edgestego/pkg/sidecar"
	"github.com/xob0t/edgestego/pkg/stego"
)

// In-memory carrier store (replaces the server-side store).
var (
	carriersMu sync.RWMutex
	carriers   = make(map[string]*stego.Grid)
)

func main() {
	fmt.Println("edgestego WASM loaded")

	js.Global().Set("goRegisterCarrier", js.FuncOf(registerCarrier))
	js.Global().Set("goRemoveCarrier", js.FuncOf(removeCarrier))
	js.Global().Set("goCapacity", js.FuncOf(capacity))
	js.Global().Set("goEmbedText", js.FuncOf(embedText))
	js.Global().Set("goExtract", js.FuncOf(extract))
	js.Global().Set("goRenderCover", js.FuncOf(renderCover))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func errorValue(format string, a ...any) js.Value {
	return js.ValueOf("error: " + fmt.Sprintf(format, a...))
}

func lookup(id string) (*stego.Grid, bool) {
	carriersMu.RLock()
	defer carriersMu.RUnlock()
	g, ok := carriers[id]
	return g, ok
}

// parseConfig reads a JSON stego.Config; an empty string means defaults.
func parseConfig(s string) (stego.Config, error) {
	cfg := stego.DefaultConfig()
	if s == "" || s == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(s), &cfg); err != nil {
		return stego.Config{}, err
	}
	return cfg, cfg.Validate()
}

// goRegisterCarrier(id, base64Data, filename) — decode a lossless image into Go memory.
func registerCarrier(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorValue("need id, base64Data, filename")
	}
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return errorValue("invalid base64: %v", err)
	}
	format, err := carrier.FormatFromPath(args[2].String())
	if err != nil {
		return errorValue("%v", err)
	}
	g, err := carrier.Decode(bytes.NewReader(data), format)
	if err != nil {
		return errorValue("%v", err)
	}

	carriersMu.Lock()
	carriers[args[0].String()] = g
	carriersMu.Unlock()
	return js.ValueOf("ok")
}

// goRemoveCarrier(id) — drop a carrier from Go memory.
func removeCarrier(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue("need id")
	}
	carriersMu.Lock()
	delete(carriers, args[0].String())
	carriersMu.Unlock()
	return js.ValueOf("ok")
}

// goCapacity(id, configJSON) — return the capacity report as JSON.
func capacity(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorValue("need id, configJSON")
	}
	g, ok := lookup(args[0].String())
	if !ok {
		return errorValue("unknown carrier")
	}
	cfg, err := parseConfig(args[1].String())
	if err != nil {
		return errorValue("config: %v", err)
	}
	r, err := stego.Analyze(g, cfg)
	if err != nil {
		return errorValue("%v", err)
	}
	out, _ := json.Marshal(r)
	return js.ValueOf(string(out))
}

// goEmbedText(id, text, configJSON) — return {"png": base64, "meta": {...}}.
func embedText(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorValue("need id, text, configJSON")
	}
	src, ok := lookup(args[0].String())
	if !ok {
		return errorValue("unknown carrier")
	}
	cfg, err := parseConfig(args[2].String())
	if err != nil {
		return errorValue("config: %v", err)
	}

	p := payload.Text(args[1].String())
	g, err := stego.EmbedVerified(src.Clone(), p, cfg)
	if err != nil {
		return errorValue("embed: %v", err)
	}

	var buf bytes.Buffer
	if err := carrier.Encode(&buf, carrier.PNG, g); err != nil {
		return errorValue("encode: %v", err)
	}
	out, _ := json.Marshal(struct {
		PNG  string       `json:"png"`
		Meta sidecar.Meta `json:"meta"`
	}{
		PNG:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Meta: sidecar.Meta{Config: cfg, Payload: p.Shape()},
	})
	return js.ValueOf(string(out))
}

// goExtract(id, metaJSON) — return the text, or base64 for bytes and images.
func extract(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorValue("need id, metaJSON")
	}
	g, ok := lookup(args[0].String())
	if !ok {
		return errorValue("unknown carrier")
	}
	meta := sidecar.Meta{Config: stego.DefaultConfig()}
	if err := json.Unmarshal([]byte(args[1].String()), &meta); err != nil {
		return errorValue("parse meta: %v", err)
	}
	if err := meta.Validate(); err != nil {
		return errorValue("%v", err)
	}

	p, err := stego.Extract(g, meta.Payload, meta.Config)
	if err != nil {
		return errorValue("extract: %v", err)
	}
	switch v := p.(type) {
	case payload.Text:
		return js.ValueOf(string(v))
	case payload.Bytes:
		return js.ValueOf(base64.StdEncoding.EncodeToString(v))
	case payload.Image:
		img, err := carrier.FromImage(v.Img)
		if err != nil {
			return errorValue("%v", err)
		}
		var buf bytes.Buffer
		if err := carrier.Encode(&buf, carrier.PNG, img); err != nil {
			return errorValue("encode: %v", err)
		}
		return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
	default:
		return errorValue("unexpected payload %T", p)
	}
}

type coverRequest struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Background string  `json:"background"`
	Foreground string  `json:"foreground"`
	FontSize   float64 `json:"fontSize"`
	Text       string  `json:"text"`
}

// goRenderCover(requestJSON) — render a text card and return base64 PNG.
func renderCover(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue("need requestJSON")
	}
	opts := cover.DefaultOptions()
	req := coverRequest{Width: opts.Width, Height: opts.Height, Background: "#ffffff", Foreground: "#000000", FontSize: opts.FontSize}
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return errorValue("parse request: %v", err)
	}

	bg, err := carrier.ParseColor(req.Background)
	if err != nil {
		return errorValue("%v", err)
	}
	fg, err := carrier.ParseColor(req.Foreground)
	if err != nil {
		return errorValue("%v", err)
	}
	opts.Width, opts.Height = req.Width, req.Height
	opts.Background, opts.Foreground = bg, fg
	opts.FontSize = req.FontSize
	opts.Text = req.Text

	r, err := cover.NewRenderer("") // embedded fallback
	if err != nil {
		return errorValue("renderer: %v", err)
	}
	img, err := r.Render(opts)
	if err != nil {
		return errorValue("render: %v", err)
	}
	g, err := carrier.FromImage(img)
	if err != nil {
		return errorValue("%v", err)
	}
	var buf bytes.Buffer
	if err := carrier.Encode(&buf, carrier.PNG, g); err != nil {
		return errorValue("encode: %v", err)
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}
