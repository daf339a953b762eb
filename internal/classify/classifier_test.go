package classify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/cultivate-research/fsi-screener/internal/backoff"
	"github.com/cultivate-research/fsi-screener/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return validResponse, nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

const validResponse = `{
	"decision": "include",
	"confidence": 4,
	"reasons": ["Community fridge open to all residents"],
	"evidence_quotes": ["Take what you need, leave what you can"],
	"organisation_name": "Hackney Community Fridge",
	"organisation_type": "community_fridge",
	"is_ongoing": true,
	"site_owner_is_initiative": true,
	"notes": ""
}`

func fastPolicy() backoff.Policy {
	return backoff.Policy{MaxAttempts: 3, Base: 0, Jitter: 0}
}

func TestClassifier_Classify_Success(t *testing.T) {
	calls := 0
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	d, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "example.org__0a1b2c3d4e.txt", "Welcome to our community fridge")

	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "include", d.Decision)
	assert.Equal(t, 4, d.Confidence)
	assert.Equal(t, "Hackney Community Fridge", d.OrganisationName)
	assert.Equal(t, "community_fridge", d.OrganisationType)
	require.NotNil(t, d.IsOngoing)
	assert.True(t, *d.IsOngoing)
	assert.Equal(t, "example.org__0a1b2c3d4e", string(d.ContentID))
	assert.Equal(t, "London", d.Batch)
	assert.Equal(t, "example.org__0a1b2c3d4e.txt", d.File)
	assert.NoError(t, d.Validate())
}

func TestClassifier_Classify_EmptyTextShortCircuits(t *testing.T) {
	calls := 0
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	for _, text := range []string{"", "   \n\t  "} {
		d, err := c.Classify(context.Background(), "empty.example__1234567890", "Paris", "empty.example__1234567890.txt", text)

		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "exclude", d.Decision)
		assert.Equal(t, 3, d.Confidence)
		assert.Equal(t, []string{"Empty page or no extractable text"}, d.Reasons)
		assert.Equal(t, "No content available.", d.Notes)
		assert.Equal(t, "Paris", d.Batch)
	}
	assert.Equal(t, 0, calls)
}

func TestClassifier_Classify_TruncatesLongInput(t *testing.T) {
	var prompt string
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, p string, _ llm.ModelTier) (string, error) {
			prompt = p
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{MaxChars: 10, Policy: fastPolicy()})

	text := "0123456789SHOULD-NOT-APPEAR"
	_, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", text)

	require.NoError(t, err)
	assert.Contains(t, prompt, "0123456789")
	assert.NotContains(t, prompt, "SHOULD-NOT-APPEAR")
}

func TestClassifier_Classify_CleansMarkdownFence(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "```json\n" + validResponse + "\n```", nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	d, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")

	require.NoError(t, err)
	assert.Equal(t, "include", d.Decision)
}

func TestClassifier_Classify_RetriesContractViolation(t *testing.T) {
	calls := 0
	badResponse := strings.Replace(validResponse, `"confidence": 4`, `"confidence": 7`, 1)
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			if calls == 1 {
				return badResponse, nil
			}
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	d, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 4, d.Confidence)
}

func TestClassifier_Classify_RetriesServiceError(t *testing.T) {
	calls := 0
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			if calls == 1 {
				return "", &googleapi.Error{Code: 429, Message: "resource exhausted"}
			}
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	d, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "include", d.Decision)
}

func TestClassifier_Classify_FatalAfterMaxAttempts(t *testing.T) {
	calls := 0
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			return "not valid json at all", nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	d, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")

	require.Error(t, err)
	assert.Nil(t, d)
	assert.Equal(t, 3, calls)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, 3, fatal.Attempts)
	assert.Equal(t, "example.org__0a1b2c3d4e", string(fatal.ContentID))
	assert.Error(t, fatal.Unwrap())
}

func TestClassifier_Classify_NonRetryableErrorFailsFast(t *testing.T) {
	calls := 0
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			return "", errors.New("API key not valid")
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	_, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, 1, fatal.Attempts)
}

func TestClassifier_Classify_RetryableErrorMessage(t *testing.T) {
	calls := 0
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("model temporarily unavailable")
			}
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	_, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClassifier_Classify_TruncatesOverlongQuotes(t *testing.T) {
	longQuote := strings.Repeat("q", 300)
	response := strings.Replace(validResponse, "Take what you need, leave what you can", longQuote, 1)
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return response, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	d, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")

	require.NoError(t, err)
	require.Len(t, d.EvidenceQuotes, 1)
	assert.Len(t, d.EvidenceQuotes[0], 200)
}

func TestClassifier_Classify_DeduplicatesConcurrentCalls(t *testing.T) {
	var calls int32
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			atomic.AddInt32(&calls, 1)
			time.Sleep(50 * time.Millisecond)
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Classify(context.Background(), "example.org__0a1b2c3d4e", "London", "a.txt", "page text")
			assert.NoError(t, err)
			assert.Equal(t, "include", d.Decision)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClassifier_Classify_DistinctIdentifiersNotDeduplicated(t *testing.T) {
	var calls int32
	mockClient := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			atomic.AddInt32(&calls, 1)
			return validResponse, nil
		},
	}
	c := New(mockClient, Options{Policy: fastPolicy()})

	_, err := c.Classify(context.Background(), "a.example__1111111111", "London", "a.txt", "page text")
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "b.example__2222222222", "London", "b.txt", "page text")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
