package asset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "models"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "models", "a.glb"), []byte("glTF"), 0o600); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(dir)
	ctx := context.Background()

	data, err := src.Fetch(ctx, "/models/a.glb")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "glTF" {
		t.Errorf("Fetch() = %q", data)
	}

	if _, err := src.Fetch(ctx, "/models/missing.glb"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := src.Fetch(ctx, "../../etc/passwd"); err == nil {
		t.Error("Fetch() escaped the root")
	}
	if _, err := src.Fetch(ctx, "/"); !errors.Is(err, ErrEmptyRef) {
		t.Errorf("Fetch(/) error = %v, want ErrEmptyRef", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := src.Fetch(cancelled, "/models/a.glb"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestFileSource_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.glb"), make([]byte, 32), 0o600); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(dir)
	src.maxBytes = 16

	if _, err := src.Fetch(context.Background(), "big.glb"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assets/models/a.glb":
			_, _ = w.Write([]byte("remote"))
		case "/assets/broken.glb":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/assets", time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"relative to base", "/models/a.glb", "remote", nil},
		{"absolute", srv.URL + "/assets/models/a.glb", "remote", nil},
		{"not found", "/models/none.glb", "", ErrNotFound},
		{"server error", "/broken.glb", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := src.Fetch(ctx, tt.ref)
			if tt.want != "" {
				if err != nil {
					t.Fatalf("Fetch() error = %v", err)
				}
				if string(data) != tt.want {
					t.Errorf("Fetch() = %q, want %q", data, tt.want)
				}
				return
			}
			if err == nil {
				t.Fatal("Fetch() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Fetch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPSource_RelativeWithoutBase(t *testing.T) {
	src, err := NewHTTPSource("", time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}
	if _, err := src.Fetch(context.Background(), "/models/a.glb"); err == nil {
		t.Error("Fetch() expected error for relative ref without base URL")
	}
}

type stubSource struct {
	name string
	refs []string
}

func (s *stubSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	s.refs = append(s.refs, ref)
	return []byte(s.name), nil
}

func TestRoutingSource(t *testing.T) {
	local := &stubSource{name: "local"}
	remote := &stubSource{name: "remote"}
	src := NewRoutingSource(local, remote)
	ctx := context.Background()

	if data, _ := src.Fetch(ctx, "/models/a.glb"); string(data) != "local" {
		t.Errorf("relative ref routed to %q, want local", data)
	}
	if data, _ := src.Fetch(ctx, "https://cdn/m.glb"); string(data) != "remote" {
		t.Errorf("absolute ref routed to %q, want remote", data)
	}
	if _, err := src.Fetch(ctx, ""); !errors.Is(err, ErrEmptyRef) {
		t.Errorf("Fetch(\"\") error = %v, want ErrEmptyRef", err)
	}

	remoteOnly := NewRoutingSource(nil, remote)
	if data, _ := remoteOnly.Fetch(ctx, "/models/a.glb"); string(data) != "remote" {
		t.Errorf("relative ref without local routed to %q, want remote", data)
	}

	localOnly := NewRoutingSource(local, nil)
	if _, err := localOnly.Fetch(ctx, "https://cdn/m.glb"); err == nil {
		t.Error("absolute ref without remote expected error")
	}
}
