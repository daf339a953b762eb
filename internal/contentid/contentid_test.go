package contentid

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForURLDeterministic(t *testing.T) {
	first := ForURL("https://example.org/about")
	second := ForURL("https://example.org/about")

	assert.Equal(t, first, second)
}

func TestForURLDistinguishesURLs(t *testing.T) {
	assert.NotEqual(t, ForURL("https://example.org/a"), ForURL("https://example.org/b"))
}

func TestForURLHostPrefix(t *testing.T) {
	id := ForURL("https://www.foodshare.example/projects?id=3")

	assert.True(t, strings.HasPrefix(id.String(), "www.foodshare.example__"))
	assert.Len(t, id.String(), len("www.foodshare.example__")+10)
}

func TestForURLReplacesPortSeparator(t *testing.T) {
	id := ForURL("http://localhost:8080/page")

	assert.True(t, strings.HasPrefix(id.String(), "localhost_8080__"))
	assert.NotContains(t, id.String(), ":")
}

func TestForURLUnparseableHost(t *testing.T) {
	id := ForURL("not a url")

	assert.True(t, strings.HasPrefix(id.String(), "unknown__"))
}

func TestFromArtifactPathRoundTrip(t *testing.T) {
	id := ForURL("https://example.org/fridge")
	path := filepath.Join("scraped", "batch_a", id.Filename())

	assert.Equal(t, id, FromArtifactPath(path))
}

func TestFilename(t *testing.T) {
	id := ID("example.org__0123456789")

	assert.Equal(t, "example.org__0123456789.txt", id.Filename())
}
