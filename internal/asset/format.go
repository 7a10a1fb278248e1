package asset

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Format is a supported model encoding.
type Format string

// Supported formats.
const (
	FormatGLTF Format = "gltf"
	FormatGLB  Format = "glb"
)

// DetectFormat returns the model format from the reference's extension.
// Query strings and fragments on URLs are ignored.
func DetectFormat(ref string) (Format, error) {
	p := ref
	if isRemote(ref) {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parsing %q: %w", ref, err)
		}
		p = u.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".gltf":
		return FormatGLTF, nil
	case ".glb":
		return FormatGLB, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ref)
	}
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
