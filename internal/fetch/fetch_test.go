package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestFetch_Success(t *testing.T) {
	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><head><title> Community Fridge </title></head><body><h1>Welcome</h1><p>We share food.</p></body></html>"))
	}))
	defer server.Close()

	client := NewClient(nil)
	out := client.Fetch(context.Background(), server.URL)

	assert.True(t, out.OK())
	assert.Empty(t, out.Err)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, server.URL, out.URL)
	assert.Equal(t, "Community Fridge", out.Title)
	assert.Contains(t, out.Text, "Welcome")
	assert.Contains(t, out.Text, "We share food.")
}

func TestFetch_FollowsRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("<html><body>landed</body></html>"))
	}))
	defer server.Close()

	client := NewClient(nil)
	out := client.Fetch(context.Background(), server.URL+"/")

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, server.URL+"/final", out.FinalURL)
	assert.Contains(t, out.Text, "landed")
}

func TestFetch_NotFoundStillExtracts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><body>gone away</body></html>"))
	}))
	defer server.Close()

	client := NewClient(nil)
	out := client.Fetch(context.Background(), server.URL)

	// The status is recorded verbatim and the body still yields text.
	assert.Equal(t, http.StatusNotFound, out.Status)
	assert.Empty(t, out.Err)
	assert.Contains(t, out.Text, "gone away")
}

func TestFetch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(nil)
	out := client.Fetch(context.Background(), server.URL)

	assert.False(t, out.OK())
	assert.Equal(t, 0, out.Status)
	assert.NotEmpty(t, out.Err)
	assert.Empty(t, out.Text)
}

func TestFetch_InvalidURL(t *testing.T) {
	client := NewClient(nil)
	out := client.Fetch(context.Background(), "not-a-valid-url")

	assert.Equal(t, 0, out.Status)
	assert.Contains(t, out.Err, "invalid URL")
}

func TestFetch_HonorsLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(&Options{
		Limiter: rate.NewLimiter(rate.Every(80*time.Millisecond), 1),
	})

	start := time.Now()
	first := client.Fetch(context.Background(), server.URL)
	second := client.Fetch(context.Background(), server.URL)
	elapsed := time.Since(start)

	assert.Empty(t, first.Err)
	assert.Empty(t, second.Err)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
}

func TestExtractVisibleText_RemovesNoise(t *testing.T) {
	html := `
	<html>
		<head><script>var x = 1;</script><style>body{}</style></head>
		<body>
			<nav>Navigation</nav>
			<h1>Food Solidarity Kitchen</h1>
			<p>Open every Saturday.</p>
			<aside>Related links</aside>
			<footer>Footer</footer>
		</body>
	</html>`

	text := ExtractVisibleText(html)

	assert.Contains(t, text, "Food Solidarity Kitchen")
	assert.Contains(t, text, "Open every Saturday.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Related links")
	assert.NotContains(t, text, "Footer")
}

func TestExtractVisibleText_SeparatesInlineElements(t *testing.T) {
	text := ExtractVisibleText("<html><body><h1>Title</h1><p>Body</p></body></html>")

	assert.Equal(t, "Title\nBody", text)
}

func TestExtractVisibleText_CollapsesBlankLines(t *testing.T) {
	text := ExtractVisibleText("<html><body><pre>one\n\n\n\n\ntwo</pre></body></html>")

	assert.Equal(t, "one\n\ntwo", text)
	assert.NotContains(t, text, "\n\n\n")
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Seed Library", ExtractTitle("<html><head><title>  Seed Library\n</title></head><body></body></html>"))
	assert.Equal(t, "", ExtractTitle("<html><body>no title</body></html>"))
}

func TestUserAgent(t *testing.T) {
	assert.Contains(t, UserAgent("team@example.org"), "contact: team@example.org")
	assert.Contains(t, UserAgent(""), "FSIScreener/1.0")
}

func TestPauseRange_Bounds(t *testing.T) {
	p := PauseRange{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}

	for i := 0; i < 100; i++ {
		d := p.Duration()
		assert.GreaterOrEqual(t, d, p.Min)
		assert.Less(t, d, p.Max)
	}
}

func TestPauseRange_DegenerateRange(t *testing.T) {
	p := PauseRange{Min: 5 * time.Millisecond, Max: 5 * time.Millisecond}

	assert.Equal(t, 5*time.Millisecond, p.Duration())
}
