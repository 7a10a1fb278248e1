package panel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testConfig = Config{
	APIBase:        "/api/v1",
	WSPath:         "/api/v1/ws",
	FrameChannel:   "viewer.frame",
	DevicesChannel: "devices.changed",
	Version:        "test",
}

func newHandler(t *testing.T, dir string) *Handler {
	t.Helper()
	h, err := New(dir, testConfig)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func get(h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// pageConfig extracts the JSON config block rendered into index.html.
func pageConfig(t *testing.T, page string) Config {
	t.Helper()
	const open = `<script id="viewer-config" type="application/json">`
	start := strings.Index(page, open)
	if start < 0 {
		t.Fatal("page has no viewer-config block")
	}
	rest := page[start+len(open):]
	end := strings.Index(rest, "</script>")
	if end < 0 {
		t.Fatal("viewer-config block is not closed")
	}
	var cfg Config
	if err := json.Unmarshal([]byte(rest[:end]), &cfg); err != nil {
		t.Fatalf("viewer-config is not JSON: %v\n%s", err, rest[:end])
	}
	return cfg
}

func TestIndexCarriesConfig(t *testing.T) {
	h := newHandler(t, "")

	for _, target := range []string{"/", "/index.html"} {
		w := get(h, target, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d, want 200", target, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Errorf("GET %s: Content-Type = %q", target, ct)
		}
		if cc := w.Header().Get("Cache-Control"); cc != cacheIndex {
			t.Errorf("GET %s: Cache-Control = %q, want %q", target, cc, cacheIndex)
		}
		if got := pageConfig(t, w.Body.String()); got != testConfig {
			t.Errorf("GET %s: config = %+v, want %+v", target, got, testConfig)
		}
	}
}

func TestIndexEscapesConfig(t *testing.T) {
	cfg := testConfig
	cfg.Version = `</script><script>alert(1)</script>`
	h, err := New("", cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body := get(h, "/", nil).Body.String()
	if strings.Contains(body, "alert(1)</script>") {
		t.Fatal("config value broke out of the script block")
	}
	if got := pageConfig(t, body); got.Version != cfg.Version {
		t.Errorf("Version = %q, want %q", got.Version, cfg.Version)
	}
}

func TestAssetsRevalidate(t *testing.T) {
	h := newHandler(t, "")

	tests := []struct {
		target      string
		contentType string
	}{
		{"/viewer.js", "text/javascript; charset=utf-8"},
		{"/viewer.css", "text/css; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := get(h, tt.target, nil)
			if w.Code != http.StatusOK || w.Body.Len() == 0 {
				t.Fatalf("status %d, %d bytes", w.Code, w.Body.Len())
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if cc := w.Header().Get("Cache-Control"); cc != cacheAssets {
				t.Errorf("Cache-Control = %q, want %q", cc, cacheAssets)
			}
			etag := w.Header().Get("ETag")
			if etag == "" {
				t.Fatal("no ETag")
			}

			again := get(h, tt.target, http.Header{"If-None-Match": {etag}})
			if again.Code != http.StatusNotModified {
				t.Errorf("conditional GET: status %d, want 304", again.Code)
			}
		})
	}
}

func TestUnknownPathsNotFound(t *testing.T) {
	h := newHandler(t, "")

	for _, target := range []string{"/some/deep/route", "/missing.js", "/config.yaml", "/../go.mod"} {
		if w := get(h, target, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET %s: status %d, want 404", target, w.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /: status %d, want 405", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "GET, HEAD" {
		t.Errorf("Allow = %q", allow)
	}
}

func TestDirectoryModeReadsLive(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(index, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(`<!DOCTYPE html><p>{{.APIBase}} v1</p>`)

	h := newHandler(t, dir)

	first := get(h, "/", nil)
	if !strings.Contains(first.Body.String(), "/api/v1 v1") {
		t.Fatalf("GET /: body = %q", first.Body.String())
	}

	write(`<!DOCTYPE html><p>{{.APIBase}} v2</p>`)
	second := get(h, "/", nil)
	if !strings.Contains(second.Body.String(), "/api/v1 v2") {
		t.Errorf("edit not picked up: body = %q", second.Body.String())
	}
	if first.Header().Get("ETag") == second.Header().Get("ETag") {
		t.Error("ETag unchanged after edit")
	}

	if w := get(h, "/viewer.js", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET /viewer.js from empty dir: status %d, want 404", w.Code)
	}
}

func TestDirectoryModeBadTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(`{{.Nope`), 0644); err != nil {
		t.Fatal(err)
	}

	if w := get(newHandler(t, dir), "/", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("GET /: status %d, want 500", w.Code)
	}
}

func TestInvalidDirFallsBackToEmbed(t *testing.T) {
	h := newHandler(t, "/nonexistent/dir/that/does/not/exist")
	if h.live {
		t.Fatal("handler reads from a missing directory")
	}

	w := get(h, "/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Errorf("GET /: status %d, embedded page not served", w.Code)
	}
}
