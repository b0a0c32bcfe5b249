package analysis

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/provider"
)

const testGeneratedText = "Acme is widely recommended for small teams, while Initech remains the incumbent choice for enterprises looking for deep integrations."

const testAnalysisJSON = `{
	"summary": "Acme leads for small teams; Initech dominates enterprise.",
	"brandMentions": [
		{"brand": "Acme", "mentioned": true, "frequency": 2, "context": "positive", "evidence": ["widely recommended"]},
		{"brand": "Initech", "mentioned": false, "frequency": 1, "context": "neutral", "evidence": []}
	],
	"sentiment": "positive",
	"confidenceScore": 0.88
}`

// scriptedClient returns queued responses (or errors) in order, then
// repeats the last entry.
type scriptedClient struct {
	mu    sync.Mutex
	calls []provider.Request
	queue []func() (*provider.Response, error)
}

func (c *scriptedClient) Call(_ context.Context, req provider.Request) (*provider.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, req)
	next := c.queue[0]
	if len(c.queue) > 1 {
		c.queue = c.queue[1:]
	}
	return next()
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func respond(text string) func() (*provider.Response, error) {
	return func() (*provider.Response, error) {
		return &provider.Response{
			Text:  text,
			Usage: model.TokenUsage{InputTokens: 10, OutputTokens: 20, CostUSD: 0.001},
		}, nil
	}
}

func fail(err error) func() (*provider.Response, error) {
	return func() (*provider.Response, error) { return nil, err }
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) GetCachedResponse(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) SetCachedResponse(_ context.Context, key, text string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = text
	return nil
}

func newTestAnalyzer(gen, extract *scriptedClient, cache Cache) *Analyzer {
	a := NewAnalyzer(gen, extract, cache)
	a.retryBase.BaseDelay = time.Millisecond
	a.retryBase.MaxDelay = 5 * time.Millisecond
	a.retryBase.MaxJitter = time.Millisecond
	return a
}

func testQuestion() model.Question {
	return model.Question{ID: "q-1", Text: "What are the best CRM platforms?", Category: "recommendations"}
}

func TestAnalyzer_HappyPath(t *testing.T) {
	cfg := testRunConfig(t)
	gen := &scriptedClient{queue: []func() (*provider.Response, error){respond(testGeneratedText)}}
	extract := &scriptedClient{queue: []func() (*provider.Response, error){respond(testAnalysisJSON)}}

	a := newTestAnalyzer(gen, extract, nil)
	qa, usage, err := a.Analyze(context.Background(), testQuestion(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "q-1", qa.QuestionID)
	assert.Equal(t, "Acme leads for small teams; Initech dominates enterprise.", qa.Summary)
	assert.Equal(t, model.SentimentPositive, qa.Sentiment)
	assert.Equal(t, 0.88, qa.ConfidenceScore)
	assert.Equal(t, 0.88, qa.RawConfidence)

	// Two calls, usage summed across both.
	assert.Equal(t, 20, usage.InputTokens)
	assert.Equal(t, 40, usage.OutputTokens)

	// The generated text is wrapped into one synthetic priority source.
	require.Len(t, qa.Sources, 1)
	assert.Equal(t, model.SyntheticSourceURL, qa.Sources[0].URL)
	assert.True(t, qa.Sources[0].IsPriority)
	assert.Equal(t, testGeneratedText, qa.Sources[0].FullContent)

	require.Len(t, qa.BrandMentions, 2)
	acme := qa.BrandMentions[0]
	assert.Equal(t, "Acme", acme.Brand)
	assert.True(t, acme.Mentioned)
	assert.Equal(t, 2, acme.Frequency)

	// Frequency 1 overrides the model's mentioned=false.
	initech := qa.BrandMentions[1]
	assert.True(t, initech.Mentioned)
}

func TestAnalyzer_ConfidenceClampedIntoWindow(t *testing.T) {
	cfg := testRunConfig(t)

	tests := []struct {
		raw     string
		clamped float64
		rawVal  float64
	}{
		{`0.2`, 0.70, 0.2},
		{`0.99`, 0.95, 0.99},
		{`0.80`, 0.80, 0.80},
	}

	for _, tt := range tests {
		body := strings.Replace(testAnalysisJSON, "0.88", tt.raw, 1)
		gen := &scriptedClient{queue: []func() (*provider.Response, error){respond(testGeneratedText)}}
		extract := &scriptedClient{queue: []func() (*provider.Response, error){respond(body)}}

		qa, _, err := newTestAnalyzer(gen, extract, nil).Analyze(context.Background(), testQuestion(), cfg)
		require.NoError(t, err)
		assert.Equal(t, tt.clamped, qa.ConfidenceScore)
		assert.Equal(t, tt.rawVal, qa.RawConfidence)
	}
}

func TestAnalyzer_MissingFieldsTakeDefaults(t *testing.T) {
	cfg := testRunConfig(t)
	sparse := `{"summary": "` + strings.Repeat("detail ", 10) + `"}`

	gen := &scriptedClient{queue: []func() (*provider.Response, error){respond(testGeneratedText)}}
	extract := &scriptedClient{queue: []func() (*provider.Response, error){respond(sparse)}}

	qa, _, err := newTestAnalyzer(gen, extract, nil).Analyze(context.Background(), testQuestion(), cfg)
	require.NoError(t, err)

	assert.Equal(t, model.SentimentNeutral, qa.Sentiment)
	assert.Equal(t, confidenceDefault, qa.ConfidenceScore)
	assert.Empty(t, qa.BrandMentions)
}

func TestAnalyzer_CacheHitSkipsGeneration(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.CacheEnabled = true

	cache := newFakeCache()
	gen := &scriptedClient{queue: []func() (*provider.Response, error){respond(testGeneratedText)}}
	extract := &scriptedClient{queue: []func() (*provider.Response, error){respond(testAnalysisJSON), respond(testAnalysisJSON)}}

	a := newTestAnalyzer(gen, extract, cache)

	_, _, err := a.Analyze(context.Background(), testQuestion(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, 1, cache.sets)

	// Same question again: generation served from cache.
	_, _, err = a.Analyze(context.Background(), testQuestion(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, 2, extract.callCount())
}

func TestAnalyzer_CacheErrorsDegradeToMiss(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.CacheEnabled = true

	cache := newFakeCache()
	cache.getErr = eris.New("cache: connection refused")
	cache.setErr = eris.New("cache: connection refused")

	gen := &scriptedClient{queue: []func() (*provider.Response, error){respond(testGeneratedText)}}
	extract := &scriptedClient{queue: []func() (*provider.Response, error){respond(testAnalysisJSON)}}

	qa, _, err := newTestAnalyzer(gen, extract, cache).Analyze(context.Background(), testQuestion(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, qa)
	assert.Equal(t, 1, gen.callCount())
}

func TestAnalyzer_RetriesPipelineAsUnit(t *testing.T) {
	cfg := testRunConfig(t)

	// First analysis response is a refusal; the retry regenerates too.
	gen := &scriptedClient{queue: []func() (*provider.Response, error){respond(testGeneratedText)}}
	extract := &scriptedClient{queue: []func() (*provider.Response, error){
		respond("I'm sorry, I cannot analyze this content for you today. {" + strings.Repeat("pad ", 10) + "}"),
		respond(testAnalysisJSON),
	}}

	qa, _, err := newTestAnalyzer(gen, extract, nil).Analyze(context.Background(), testQuestion(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, qa)
	assert.Equal(t, 2, gen.callCount())
	assert.Equal(t, 2, extract.callCount())
}

func TestAnalyzer_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.MaxRetries = 3

	gen := &scriptedClient{queue: []func() (*provider.Response, error){fail(provider.ErrTimeout)}}
	extract := &scriptedClient{queue: []func() (*provider.Response, error){respond(testAnalysisJSON)}}

	_, _, err := newTestAnalyzer(gen, extract, nil).Analyze(context.Background(), testQuestion(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrTimeout)
	assert.Equal(t, 3, gen.callCount())
	assert.Equal(t, 0, extract.callCount())
}

func TestAnalyzer_ShortGenerationRetried(t *testing.T) {
	cfg := testRunConfig(t)

	gen := &scriptedClient{queue: []func() (*provider.Response, error){
		respond("too short"),
		respond(testGeneratedText),
	}}
	extract := &scriptedClient{queue: []func() (*provider.Response, error){respond(testAnalysisJSON)}}

	qa, _, err := newTestAnalyzer(gen, extract, nil).Analyze(context.Background(), testQuestion(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, qa)
	assert.Equal(t, 2, gen.callCount())
}

func TestShouldRetryAnalysis(t *testing.T) {
	assert.True(t, shouldRetryAnalysis(provider.ErrTimeout))
	assert.True(t, shouldRetryAnalysis(provider.ErrRateLimited))
	assert.True(t, shouldRetryAnalysis(&provider.CallError{Provider: "anthropic", Err: eris.New("boom")}))
	assert.True(t, shouldRetryAnalysis(ErrInsufficientGeneration))
	assert.True(t, shouldRetryAnalysis(ErrNoJSONFound))
	assert.True(t, shouldRetryAnalysis(&JSONParseError{Err: eris.New("bad token")}))

	assert.False(t, shouldRetryAnalysis(context.Canceled))
	assert.False(t, shouldRetryAnalysis(eris.New("programmer error")))
}

func TestNewErrorAnalysis(t *testing.T) {
	q := testQuestion()
	qa := NewErrorAnalysis(q, eris.New("provider: call timed out"))

	assert.Equal(t, q.ID, qa.QuestionID)
	assert.Equal(t, q.Text, qa.Question)
	assert.NotNil(t, qa.Sources)
	assert.Empty(t, qa.Sources)
	assert.NotNil(t, qa.BrandMentions)
	assert.Empty(t, qa.BrandMentions)
	assert.Equal(t, model.SentimentNeutral, qa.Sentiment)
	assert.Zero(t, qa.ConfidenceScore)
	assert.Contains(t, qa.Summary, "call timed out")
}

func TestTruncate_RuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "é" is two bytes; a byte-length cut of 5 would land mid-rune.
	got := truncate(strings.Repeat("é", 4), 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "éé...", got)
}
