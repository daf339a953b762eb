// Package contentid derives stable identifiers for fetched page content.
// The identifier doubles as the artifact filename stem and as the key for
// classification decisions, so the same URL always maps to the same files.
package contentid

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strings"
)

// ID identifies the stored content for a single URL.
type ID string

// ForURL derives the identifier for a URL: the URL host (with ":" replaced
// by "_") joined with the first 10 hex characters of the SHA-1 digest of the
// full URL string. Identical URL text yields an identical identifier.
func ForURL(rawURL string) ID {
	host := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		host = strings.ReplaceAll(parsed.Host, ":", "_")
	}
	if host == "" {
		host = "unknown"
	}
	sum := sha1.Sum([]byte(rawURL))
	return ID(host + "__" + hex.EncodeToString(sum[:])[:10])
}

// FromArtifactPath recovers the identifier from a stored text artifact path
// by stripping the directory and extension.
func FromArtifactPath(path string) ID {
	base := filepath.Base(path)
	return ID(strings.TrimSuffix(base, filepath.Ext(base)))
}

func (id ID) String() string {
	return string(id)
}

// Filename returns the text artifact filename for the identifier.
func (id ID) Filename() string {
	return string(id) + ".txt"
}
