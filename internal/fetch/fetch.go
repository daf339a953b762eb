// Package fetch retrieves candidate pages over HTTP and reduces their
// markup to the visible text the classifier consumes.
package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 20 * time.Second

// maxRedirects bounds redirect chains before the attempt is recorded as
// failed.
const maxRedirects = 10

// UserAgent builds the identifying User-Agent string. The contact address
// lets site owners reach the research team about the crawler.
func UserAgent(contact string) string {
	if contact == "" {
		return "Mozilla/5.0 (compatible; FSIScreener/1.0; CULTIVATE research)"
	}
	return fmt.Sprintf("Mozilla/5.0 (compatible; FSIScreener/1.0; CULTIVATE research; contact: %s)", contact)
}

// Outcome records the result of one fetch attempt. Failures are data here,
// not errors: a transport failure leaves Status zero and fills Err, and the
// caller decides what to do with it.
type Outcome struct {
	URL      string
	FinalURL string
	Status   int
	Title    string
	Text     string
	Err      string
}

// OK reports whether the attempt reached the server and returned a body.
func (o Outcome) OK() bool {
	return o.Err == "" && o.Status != 0
}

// Options configures the fetch client.
type Options struct {
	Timeout time.Duration
	Contact string
	// Limiter caps the aggregate outbound request rate across all
	// goroutines sharing the client. Nil disables limiting.
	Limiter *rate.Limiter
}

// Client is a rate-limited HTTP client for page retrieval. Safe for
// concurrent use.
type Client struct {
	http *resty.Client
}

// NewClient builds a fetch client from options, applying defaults for
// unset fields.
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("User-Agent", UserAgent(opts.Contact))
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	if opts.Limiter != nil {
		limiter := opts.Limiter
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Client{http: httpClient}
}

// Fetch retrieves one URL. Ordinary network and HTTP failures are captured
// in the outcome. Any returned body is processed, whatever its status, so a
// 404 page's text is still available downstream with the status recorded
// verbatim.
func (c *Client) Fetch(ctx context.Context, target string) Outcome {
	out := Outcome{URL: target, FinalURL: target}

	parsed, err := url.Parse(target)
	if err != nil {
		out.Err = fmt.Sprintf("invalid URL: %v", err)
		return out
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		out.Err = "invalid URL: missing scheme or host"
		return out
	}

	resp, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		out.Err = err.Error()
		return out
	}

	out.Status = resp.StatusCode()
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		out.FinalURL = raw.Request.URL.String()
	}

	if body := string(resp.Body()); body != "" {
		out.Title = ExtractTitle(body)
		out.Text = ExtractVisibleText(body)
	}
	return out
}

// PauseRange is the polite delay drawn uniformly between consecutive
// fetches of a batch.
type PauseRange struct {
	Min time.Duration
	Max time.Duration
}

// Duration returns one randomly drawn pause.
func (p PauseRange) Duration() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rand.Int63n(int64(p.Max-p.Min)))
}

// noiseSelector matches elements that never contribute visible text.
const noiseSelector = "script, style, noscript, template, svg, canvas"

// chromeSelector matches page chrome that would drown the body text in
// boilerplate.
const chromeSelector = "nav, footer, aside"

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ExtractVisibleText strips scripts, styles and page chrome from the markup
// and returns the remaining text, one trimmed fragment per line, with runs
// of blank lines collapsed to a single blank line.
func ExtractVisibleText(htmlText string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}
	doc.Find(noiseSelector).Remove()
	doc.Find(chromeSelector).Remove()

	var parts []string
	for _, root := range doc.Nodes {
		collectText(root, &parts)
	}
	text := strings.Join(parts, "\n")
	return blankRuns.ReplaceAllString(text, "\n\n")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
			*parts = append(*parts, trimmed)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// ExtractTitle returns the trimmed document title, or "" when the markup
// has none.
func ExtractTitle(htmlText string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
