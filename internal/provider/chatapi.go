package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/pkg/chatapi"
)

// chatAdapter exposes any OpenAI-compatible endpoint as a provider.Client.
type chatAdapter struct {
	name   string
	client chatapi.Client
	guard  guard
}

// NewChatCompletion wraps a generic chat-completions client. name labels the
// backend in errors and logs.
func NewChatCompletion(name string, client chatapi.Client, opts ...Option) Client {
	return &chatAdapter{
		name:   name,
		client: client,
		guard:  newGuard(opts),
	}
}

func (a *chatAdapter) Call(ctx context.Context, req Request) (*Response, error) {
	return a.guard.run(ctx, req.Timeout, func(ctx context.Context) (*Response, error) {
		temp := req.Temperature
		maxTokens := req.MaxTokens

		var messages []chatapi.Message
		if req.System != "" {
			messages = append(messages, chatapi.Message{Role: "system", Content: req.System})
		}
		messages = append(messages, chatapi.Message{Role: "user", Content: req.Prompt})

		resp, err := a.client.ChatCompletion(ctx, chatapi.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    messages,
			Temperature: &temp,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			return nil, classify(a.name, err)
		}
		if len(resp.Choices) == 0 {
			return nil, &CallError{Provider: a.name, Err: eris.New("empty choices in response")}
		}

		return &Response{
			Text: resp.Choices[0].Message.Content,
			Usage: model.TokenUsage{
				InputTokens:  resp.Usage.PromptTokens,
				OutputTokens: resp.Usage.CompletionTokens,
			},
		}, nil
	})
}
