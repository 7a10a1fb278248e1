package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultMaxAssetBytes caps a single model download.
const DefaultMaxAssetBytes = 64 << 20

// Source fetches the raw bytes of a model reference.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FileSource reads models from a directory. References are resolved
// relative to the root and may not escape it.
type FileSource struct {
	root     string
	maxBytes int64
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{root: dir, maxBytes: DefaultMaxAssetBytes}
}

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := strings.TrimPrefix(ref, "/")
	if rel == "" {
		return nil, ErrEmptyRef
	}

	f, err := os.OpenInRoot(s.root, rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("opening %s: %w", ref, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return readLimited(f, s.maxBytes, ref)
}

// HTTPSource downloads models over HTTP. Relative references are joined
// to the base URL.
type HTTPSource struct {
	client   *http.Client
	base     *url.URL
	maxBytes int64
}

// NewHTTPSource creates an HTTP source. baseURL may be empty when every
// reference is absolute.
func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	s := &HTTPSource{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxAssetBytes,
	}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		s.base = u
	}
	return s, nil
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully read or abandoned

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: unexpected status %d", target, resp.StatusCode)
	}

	return readLimited(resp.Body, s.maxBytes, target)
}

func (s *HTTPSource) resolve(ref string) (string, error) {
	if ref == "" {
		return "", ErrEmptyRef
	}
	if isRemote(ref) {
		return ref, nil
	}
	if s.base == nil {
		return "", fmt.Errorf("relative reference %q with no base URL", ref)
	}
	rel, err := url.Parse(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", ref, err)
	}
	return s.base.ResolveReference(rel).String(), nil
}

// RoutingSource sends absolute URLs to the HTTP source and everything else
// to the local source. With no local source, relative references go to
// the HTTP source's base URL.
type RoutingSource struct {
	local  Source
	remote Source
}

// NewRoutingSource combines a local and a remote source. Either may be nil.
func NewRoutingSource(local, remote Source) *RoutingSource {
	return &RoutingSource{local: local, remote: remote}
}

// Fetch implements Source.
func (s *RoutingSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == "":
		return nil, ErrEmptyRef
	case isRemote(ref) || s.local == nil:
		if s.remote == nil {
			return nil, fmt.Errorf("no source for %q", ref)
		}
		return s.remote.Fetch(ctx, ref)
	default:
		return s.local.Fetch(ctx, ref)
	}
}

func readLimited(r io.Reader, limit int64, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, name)
	}
	return data, nil
}
