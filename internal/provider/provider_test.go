package provider

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/brandlens/brandlens-cli/internal/resilience"
	"github.com/brandlens/brandlens-cli/pkg/anthropic"
	"github.com/brandlens/brandlens-cli/pkg/chatapi"
)

func TestGuard_TimeoutAbandonsSlowCall(t *testing.T) {
	g := newGuard(nil)

	started := make(chan struct{})
	start := time.Now()
	_, err := g.run(context.Background(), 20*time.Millisecond, func(ctx context.Context) (*Response, error) {
		close(started)
		time.Sleep(500 * time.Millisecond)
		return &Response{Text: "late"}, nil
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	<-started
}

func TestGuard_FastCallBeatsTimer(t *testing.T) {
	g := newGuard(nil)

	resp, err := g.run(context.Background(), time.Second, func(ctx context.Context) (*Response, error) {
		return &Response{Text: "fast"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fast", resp.Text)
}

func TestGuard_ZeroTimeoutDisablesTimer(t *testing.T) {
	g := newGuard(nil)

	resp, err := g.run(context.Background(), 0, func(ctx context.Context) (*Response, error) {
		time.Sleep(10 * time.Millisecond)
		return &Response{Text: "untimed"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "untimed", resp.Text)
}

func TestGuard_ContextCancellation(t *testing.T) {
	g := newGuard(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.run(ctx, time.Second, func(ctx context.Context) (*Response, error) {
		time.Sleep(500 * time.Millisecond)
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuard_RateLimiterRespectsContext(t *testing.T) {
	// A zero-burst limiter never admits; the context deadline must unblock.
	g := newGuard([]Option{WithRateLimiter(rate.NewLimiter(rate.Limit(0.001), 1))})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Drain the single burst token.
	_, err := g.run(ctx, 0, func(ctx context.Context) (*Response, error) {
		return &Response{}, nil
	})
	require.NoError(t, err)

	_, err = g.run(ctx, 0, func(ctx context.Context) (*Response, error) {
		t.Fatal("must not be called while rate limited")
		return nil, nil
	})
	assert.Error(t, err)
}

// rateLimitedChat always answers 429, counting transport invocations.
type rateLimitedChat struct {
	calls int
}

func (c *rateLimitedChat) ChatCompletion(context.Context, chatapi.ChatCompletionRequest) (*chatapi.ChatCompletionResponse, error) {
	c.calls++
	return nil, &chatapi.StatusError{StatusCode: 429, Body: "rate limit exceeded"}
}

func TestChatAdapter_BreakerOpensUnderRateLimitStorm(t *testing.T) {
	transport := &rateLimitedChat{}
	client := NewChatCompletion("test",
		transport,
		WithCircuitBreaker(resilience.NewCircuitBreaker(3, time.Minute)))

	var lastErr error
	for i := 0; i < 10; i++ {
		_, lastErr = client.Call(context.Background(), Request{Model: "m", Prompt: "q"})
		require.Error(t, lastErr)
	}

	assert.Equal(t, 3, transport.calls)
	assert.ErrorIs(t, lastErr, resilience.ErrCircuitOpen)
}

func TestGuard_CircuitBreakerFailsFast(t *testing.T) {
	cb := resilience.NewCircuitBreaker(1, time.Minute)
	g := newGuard([]Option{WithCircuitBreaker(cb)})

	transient := resilience.NewTransientError(eris.New("503"), 503)
	_, err := g.run(context.Background(), 0, func(ctx context.Context) (*Response, error) {
		return nil, transient
	})
	require.Error(t, err)

	var calls int
	_, err = g.run(context.Background(), 0, func(ctx context.Context) (*Response, error) {
		calls++
		return &Response{}, nil
	})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Zero(t, calls)
}

// fakeMessages returns a canned message response and captures the request.
type fakeMessages struct {
	lastReq anthropic.MessageRequest
}

func (f *fakeMessages) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	return &anthropic.MessageResponse{
		ID:    "msg_1",
		Model: req.Model,
		Text:  "answer",
		Usage: anthropic.TokenUsage{InputTokens: 500, OutputTokens: 2000},
	}, nil
}

func TestAnthropicAdapter_MapsResponseAndUsage(t *testing.T) {
	transport := &fakeMessages{}
	client := NewAnthropic(transport)

	resp, err := client.Call(context.Background(), Request{
		Model:     "claude-haiku-4-5-20251001",
		Prompt:    "who mentions Acme?",
		System:    "be brief",
		MaxTokens: 1024,
	})
	require.NoError(t, err)

	assert.Equal(t, "answer", resp.Text)
	assert.Equal(t, 500, resp.Usage.InputTokens)
	assert.Equal(t, 2000, resp.Usage.OutputTokens)
	assert.InDelta(t, 0.0004+0.008, resp.Usage.CostUSD, 1e-9)

	assert.Equal(t, "be brief", transport.lastReq.System)
	require.Len(t, transport.lastReq.Messages, 1)
	assert.Equal(t, "who mentions Acme?", transport.lastReq.Messages[0].Content)
}
