package panel

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

//go:embed web/*
var content embed.FS

const indexFile = "index.html"

// Cache policies. The page carries per-process configuration and is never
// stored; scripts and styles are revalidated against their ETag.
const (
	cacheIndex  = "no-store"
	cacheAssets = "no-cache"
)

// contentTypes lists the file types the page is made of. Anything else is
// not served.
var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// Config is handed to the page as JSON in index.html, so the script does
// not hard-code where the API lives.
type Config struct {
	APIBase        string `json:"api_base"`
	WSPath         string `json:"ws_path"`
	FrameChannel   string `json:"frame_channel"`
	DevicesChannel string `json:"devices_channel"`
	Version        string `json:"version,omitempty"`
}

// Handler serves the viewer page.
type Handler struct {
	files  fs.FS
	live   bool
	config Config

	// Prepared assets for the embedded copy, keyed by file name.
	assets map[string]*asset
}

type asset struct {
	body         []byte
	contentType  string
	etag         string
	cacheControl string
}

// New creates a Handler.
//
// When dir is non-empty and is a directory, files are read from it on every
// request so the page can be edited without a rebuild. Otherwise the
// embedded copy is prepared once.
//
// Returns an error if the embedded index.html does not parse as a template.
func New(dir string, cfg Config) (*Handler, error) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return &Handler{files: os.DirFS(dir), live: true, config: cfg}, nil
		}
	}

	webFS, err := fs.Sub(content, "web")
	if err != nil {
		return nil, fmt.Errorf("loading embedded web assets: %w", err)
	}
	h := &Handler{files: webFS, config: cfg, assets: make(map[string]*asset)}

	err = fs.WalkDir(webFS, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if _, ok := contentTypes[path.Ext(name)]; !ok {
			return nil
		}
		a, err := h.load(name)
		if err != nil {
			return err
		}
		h.assets[name] = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preparing embedded web assets: %w", err)
	}
	if _, ok := h.assets[indexFile]; !ok {
		return nil, fmt.Errorf("embedded web assets have no %s", indexFile)
	}
	return h, nil
}

// ServeHTTP implements http.Handler. Paths are relative to the mount point;
// "/" serves index.html. Unknown paths get 404.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = indexFile
	}

	a, err := h.lookup(name)
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to load page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("Cache-Control", a.cacheControl)
	w.Header().Set("ETag", a.etag)
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(a.body))
}

func (h *Handler) lookup(name string) (*asset, error) {
	if _, ok := contentTypes[path.Ext(name)]; !ok {
		return nil, fs.ErrNotExist
	}
	if !h.live {
		a, ok := h.assets[name]
		if !ok {
			return nil, fs.ErrNotExist
		}
		return a, nil
	}
	return h.load(name)
}

// load reads name and renders index.html with the page config.
func (h *Handler) load(name string) (*asset, error) {
	body, err := fs.ReadFile(h.files, name)
	if err != nil {
		return nil, err
	}

	cacheControl := cacheAssets
	if name == indexFile {
		body, err = renderIndex(body, h.config)
		if err != nil {
			return nil, err
		}
		cacheControl = cacheIndex
	}

	sum := sha256.Sum256(body)
	return &asset{
		body:         body,
		contentType:  contentTypes[path.Ext(name)],
		etag:         `"` + hex.EncodeToString(sum[:8]) + `"`,
		cacheControl: cacheControl,
	}, nil
}

func renderIndex(page []byte, cfg Config) ([]byte, error) {
	tmpl, err := template.New(indexFile).Parse(string(page))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", indexFile, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", indexFile, err)
	}
	return buf.Bytes(), nil
}
