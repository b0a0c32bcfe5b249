// Package provider adapts concrete LLM backends to the single call shape
// the analysis engine consumes. No retry logic lives here; that is layered
// on top by the resilience package.
package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/resilience"
)

// Request describes one generative text-completion call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Response is the raw text outcome of a completion call.
type Response struct {
	Text  string
	Usage model.TokenUsage
}

// Client is a single generative endpoint. Implementations fail with the
// typed errors in errors.go.
type Client interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Option configures a provider adapter.
type Option func(*guard)

// WithRateLimiter installs a token-bucket limiter in front of every call,
// for providers that enforce per-second request rates rather than
// concurrency ceilings.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(g *guard) {
		g.limiter = l
	}
}

// WithCircuitBreaker guards calls with a circuit breaker. An open breaker
// rejects calls immediately with ErrCircuitOpen.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(g *guard) {
		g.breaker = cb
	}
}

// guard applies the shared per-call policy: rate limiting, circuit breaking,
// and racing the transport against the request timeout.
type guard struct {
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

func newGuard(opts []Option) guard {
	var g guard
	for _, o := range opts {
		o(&g)
	}
	return g
}

// run executes fn under the guard policy. The timeout races a timer against
// the transport; when the timer fires first the in-flight call is abandoned
// (best-effort), not cancelled, and ErrTimeout is returned.
func (g guard) run(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (*Response, error)) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	call := fn
	if g.breaker != nil {
		call = func(ctx context.Context) (*Response, error) {
			return resilience.ExecuteVal(ctx, g.breaker, fn)
		}
	}

	if timeout <= 0 {
		return call(ctx)
	}

	type outcome struct {
		resp *Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := call(ctx)
		done <- outcome{resp, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}
