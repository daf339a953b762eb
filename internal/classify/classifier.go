// Package classify submits stored page text to the judgment service and turns
// its responses into screening decisions.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/cultivate-research/fsi-screener/internal/backoff"
	"github.com/cultivate-research/fsi-screener/internal/contentid"
	"github.com/cultivate-research/fsi-screener/internal/decisions"
	"github.com/cultivate-research/fsi-screener/internal/llm"
	"github.com/cultivate-research/fsi-screener/internal/prompts"
	"github.com/cultivate-research/fsi-screener/internal/schemas"
)

// DefaultMaxChars is the leading-rune budget of page text submitted per call.
// Ownership and purpose signals concentrate near the top of a page, so
// truncation keeps the head.
const DefaultMaxChars = 12000

const promptKey = "classify-page"

// Options configures a Classifier. Zero values fall back to defaults.
type Options struct {
	Tier     llm.ModelTier
	MaxChars int
	Policy   backoff.Policy
}

// Classifier calls the judgment service under the strict decision contract.
// Calls for the same content identifier are deduplicated: at most one request
// is in flight per identifier and concurrent callers share its result.
type Classifier struct {
	client   llm.Client
	tier     llm.ModelTier
	maxChars int
	policy   backoff.Policy
	group    singleflight.Group
}

// New builds a Classifier around an LLM client.
func New(client llm.Client, opts Options) *Classifier {
	if opts.Tier == "" {
		opts.Tier = llm.TierLite
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = backoff.Default()
	}
	return &Classifier{
		client:   client,
		tier:     opts.Tier,
		maxChars: opts.MaxChars,
		policy:   opts.Policy,
	}
}

// Classify produces a decision for one stored page. Empty text short-circuits
// to a fixed exclude decision without calling the service. Transient service
// errors and responses violating the decision contract are retried; after the
// retry budget a *FatalError carrying the last error is returned.
func (c *Classifier) Classify(ctx context.Context, id contentid.ID, batch, file, text string) (*decisions.Decision, error) {
	sample := strings.TrimSpace(headSample(text, c.maxChars))
	if sample == "" {
		return decisions.EmptyPage(id, batch, file), nil
	}

	v, err, _ := c.group.Do(string(id), func() (interface{}, error) {
		return c.classifyText(ctx, id, sample)
	})
	if err != nil {
		return nil, err
	}

	// Shared singleflight result: copy before attaching caller context.
	d := *v.(*decisions.Decision)
	d.Batch = batch
	d.File = file
	return &d, nil
}

func (c *Classifier) classifyText(ctx context.Context, id contentid.ID, sample string) (*decisions.Decision, error) {
	template, err := prompts.Screening(promptKey)
	if err != nil {
		return nil, err
	}
	prompt := prompts.Format(template, map[string]string{"PageText": sample})

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.policy.Sleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		raw, err := c.client.GenerateJSON(ctx, prompt, c.tier)
		if err != nil {
			if !llm.IsRetryable(err) {
				return nil, &FatalError{ContentID: id, Attempts: attempt, Cause: err}
			}
			lastErr = err
			continue
		}

		d, err := decodeDecision(raw)
		if err != nil {
			lastErr = err
			continue
		}
		d.ContentID = id
		d.Normalize()
		if err := d.Validate(); err != nil {
			lastErr = err
			continue
		}
		return d, nil
	}

	return nil, &FatalError{ContentID: id, Attempts: c.policy.MaxAttempts, Cause: lastErr}
}

// decodeDecision parses a raw service response under the strict contract.
func decodeDecision(raw string) (*decisions.Decision, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateDecision(cleaned); err != nil {
		return nil, err
	}

	var d decisions.Decision
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("failed to parse judgment response: %w (content: %s)", err, cleaned)
	}
	return &d, nil
}

// headSample returns at most max leading runes of text.
func headSample(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
