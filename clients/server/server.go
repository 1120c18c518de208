// Package server exposes the embedder and extractor over HTTP.
//
// Carriers are uploaded once and referenced by id afterwards. The store is
// in memory and lives as long as the process.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/xob0t/edgestego/pkg/carrier"
	"github.com/xob0t/edgestego/pkg/payload"
	"github.com/xob0t/edgestego/pkg/sidecar"
	"github.com/xob0t/edgestego/pkg/stego"
)

// MetaHeader carries the sidecar of an embed response as JSON.
const MetaHeader = "X-Edgestego-Meta"

// IDHeader names the stored copy of an embed response.
const IDHeader = "X-Edgestego-Id"

const maxUpload = 50 << 20

type srv struct {
	carriers *carrierStore
}

// NewHandler returns the API routes backed by a fresh carrier store.
func NewHandler() http.Handler {
	s := &srv{carriers: newCarrierStore()}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/carriers", s.handleUpload)
	mux.HandleFunc("GET /api/carriers", s.handleList)
	mux.HandleFunc("GET /api/carriers/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/carriers/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/capacity", s.handleCapacity)
	mux.HandleFunc("POST /api/embed", s.handleEmbed)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	return mux
}

// RunServe starts the API server on the given port.
func RunServe(args []string) error {
	port := "8080"
	for i, a := range args {
		if (a == "--port" || a == "-p") && i+1 < len(args) {
			port = args[i+1]
		}
	}

	addr := ":" + port
	log.Printf("edgestego API → http://localhost%s/api/carriers", addr)
	return http.ListenAndServe(addr, NewHandler())
}

// ── Carriers ──

func (s *srv) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	format, err := carrier.FormatFromPath(header.Filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	g, err := carrier.Decode(file, format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	info := s.carriers.add(header.Filename, g)
	log.Printf("upload %s: %s %dx%d", info.ID, info.Name, info.Width, info.Height)
	writeJSON(w, http.StatusCreated, info)
}

func (s *srv) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.carriers.listAll())
}

func (s *srv) handleGet(w http.ResponseWriter, r *http.Request) {
	e, ok := s.carriers.get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writePNG(w, e.grid)
}

func (s *srv) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.carriers.remove(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ── Stego ──

type capacityRequest struct {
	Carrier string        `json:"carrier"`
	Config  *stego.Config `json:"config,omitempty"`
}

func (s *srv) handleCapacity(w http.ResponseWriter, r *http.Request) {
	var req capacityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, ok := s.carriers.get(req.Carrier)
	if !ok {
		http.Error(w, "unknown carrier "+req.Carrier, http.StatusNotFound)
		return
	}
	report, err := stego.Analyze(e.grid, configOrDefault(req.Config))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type embedRequest struct {
	Carrier string        `json:"carrier"`
	Config  *stego.Config `json:"config,omitempty"`

	// Exactly one payload source.
	Text  *string `json:"text,omitempty"`
	Bytes []byte  `json:"bytes,omitempty"`
	Image string  `json:"image,omitempty"` // id of a stored carrier embedded as an image payload

	Compress bool `json:"compress,omitempty"`
	Unsafe   bool `json:"unsafe,omitempty"`
	Store    bool `json:"store,omitempty"`
}

func (s *srv) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, ok := s.carriers.get(req.Carrier)
	if !ok {
		http.Error(w, "unknown carrier "+req.Carrier, http.StatusNotFound)
		return
	}
	p, err := s.requestPayload(req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	cfg := configOrDefault(req.Config)
	g := e.grid.Clone()
	if req.Unsafe {
		_, err = stego.Embed(g, p, cfg)
	} else {
		_, err = stego.EmbedVerified(g, p, cfg)
	}
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	meta := sidecar.Meta{Carrier: e.name, Config: cfg, Payload: p.Shape()}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(MetaHeader, string(metaJSON))
	if req.Store {
		info := s.carriers.add("stego-"+e.name, g)
		w.Header().Set(IDHeader, info.ID)
	}
	log.Printf("embed %s into %s", p.Shape(), req.Carrier)
	writePNG(w, g)
}

func (s *srv) requestPayload(req embedRequest) (payload.Payload, error) {
	n := 0
	if req.Text != nil {
		n++
	}
	if req.Bytes != nil {
		n++
	}
	if req.Image != "" {
		n++
	}
	if n != 1 {
		return nil, errBadRequest("give exactly one of text, bytes, image")
	}

	switch {
	case req.Image != "":
		if req.Compress {
			return nil, errBadRequest("compress applies to text and bytes")
		}
		e, ok := s.carriers.get(req.Image)
		if !ok {
			return nil, errNotFound("unknown image " + req.Image)
		}
		return payload.Image{Img: carrier.ToImage(e.grid)}, nil
	case req.Text != nil && !req.Compress:
		return payload.Text(*req.Text), nil
	case req.Bytes != nil && !req.Compress:
		return payload.Bytes(req.Bytes), nil
	}

	raw := req.Bytes
	if req.Text != nil {
		raw = []byte(*req.Text)
	}
	return payload.Compress(raw), nil
}

type extractRequest struct {
	Carrier string        `json:"carrier"`
	Config  *stego.Config `json:"config,omitempty"`
	Payload payload.Shape `json:"payload"`
}

type extractResponse struct {
	Kind  payload.Kind `json:"kind"`
	Text  *string      `json:"text,omitempty"`
	Bytes []byte       `json:"bytes,omitempty"`
	Image *carrierInfo `json:"image,omitempty"` // extracted image, stored as a new carrier
}

func (s *srv) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, ok := s.carriers.get(req.Carrier)
	if !ok {
		http.Error(w, "unknown carrier "+req.Carrier, http.StatusNotFound)
		return
	}

	p, err := stego.Extract(e.grid, req.Payload, configOrDefault(req.Config))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	resp := extractResponse{Kind: req.Payload.Kind}
	switch v := p.(type) {
	case payload.Text:
		t := string(v)
		resp.Text = &t
	case payload.Bytes:
		resp.Bytes = v
	case payload.Image:
		g, err := carrier.FromImage(v.Img)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		info := s.carriers.add("extracted-"+e.name, g)
		resp.Image = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ──

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func errBadRequest(msg string) error { return &requestError{http.StatusBadRequest, msg} }
func errNotFound(msg string) error   { return &requestError{http.StatusNotFound, msg} }

// statusFor maps library errors onto HTTP status codes.
func statusFor(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return re.status
	case errors.Is(err, stego.ErrCapacityExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, stego.ErrUnstableClassification):
		return http.StatusConflict
	case errors.Is(err, stego.ErrInvalidBitDepth),
		errors.Is(err, stego.ErrInvalidThreshold),
		errors.Is(err, stego.ErrDimensionMismatch),
		errors.Is(err, payload.ErrInvalidShape),
		errors.Is(err, payload.ErrUnencodable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func configOrDefault(c *stego.Config) stego.Config {
	if c == nil {
		return stego.DefaultConfig()
	}
	return *c
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUpload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, g *stego.Grid) {
	var buf bytes.Buffer
	if err := carrier.Encode(&buf, carrier.PNG, g); err != nil {
		http.Error(w, "encode PNG: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
