package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID: "cmpl-1",
			Choices: []Choice{
				{Index: 0, Message: Message{Role: "assistant", Content: "answer text"}},
			},
			Usage: Usage{PromptTokens: 12, CompletionTokens: 34},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	temp := 0.7
	resp, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Model: "test-model",
		Messages: []Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "question"},
		},
		Temperature: &temp,
	})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "answer text", resp.Choices[0].Message.Content)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 34, resp.Usage.CompletionTokens)
}

func TestChatCompletion_NonOKReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limit exceeded"}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Body, "rate limit")
}

func TestChatCompletion_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("test-key", srv.URL)
	_, err := c.ChatCompletion(ctx, ChatCompletionRequest{Model: "m"})
	assert.Error(t, err)
}
