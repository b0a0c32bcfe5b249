package provider

import (
	"context"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/pkg/anthropic"
)

// anthropicAdapter exposes pkg/anthropic as a provider.Client.
type anthropicAdapter struct {
	client anthropic.Client
	guard  guard
}

// NewAnthropic wraps an Anthropic client.
func NewAnthropic(client anthropic.Client, opts ...Option) Client {
	return &anthropicAdapter{
		client: client,
		guard:  newGuard(opts),
	}
}

func (a *anthropicAdapter) Call(ctx context.Context, req Request) (*Response, error) {
	return a.guard.run(ctx, req.Timeout, func(ctx context.Context) (*Response, error) {
		temp := req.Temperature
		resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       req.Model,
			MaxTokens:   int64(req.MaxTokens),
			System:      req.System,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: req.Prompt},
			},
		})
		if err != nil {
			return nil, classify("anthropic", err)
		}
		resp.Usage.LogCost(req.Model, "create_message")

		return &Response{
			Text: resp.Text,
			Usage: model.TokenUsage{
				InputTokens:  int(resp.Usage.InputTokens),
				OutputTokens: int(resp.Usage.OutputTokens),
				CostUSD:      resp.Usage.EstimateCost(req.Model),
			},
		}, nil
	})
}
