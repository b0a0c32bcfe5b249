package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEstimateCost_KnownModels(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	assert.InDelta(t, 4.80, usage.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	assert.InDelta(t, 18.00, usage.EstimateCost("claude-sonnet-4-5-20250929"), 1e-9)
	assert.InDelta(t, 90.00, usage.EstimateCost("claude-opus-4-6"), 1e-9)
}

func TestEstimateCost_ScalesLinearly(t *testing.T) {
	usage := TokenUsage{InputTokens: 500, OutputTokens: 2000}

	// 500/1e6 * 0.80 + 2000/1e6 * 4.00
	assert.InDelta(t, 0.0004+0.008, usage.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
}

func TestEstimateCost_UnknownModelIsZero(t *testing.T) {
	usage := TokenUsage{InputTokens: 1000, OutputTokens: 1000}
	assert.Zero(t, usage.EstimateCost("some-future-model"))
}

func TestLogCost_EmitsAttributionFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	usage.LogCost("claude-sonnet-4-5-20250929", "create_message")

	entries := logs.FilterMessage("cost attribution").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "claude-sonnet-4-5-20250929", fields["model"])
	assert.Equal(t, "create_message", fields["operation"])
	assert.Equal(t, int64(1_000_000), fields["input_tokens"])
	assert.Equal(t, int64(1_000_000), fields["output_tokens"])
	assert.InDelta(t, 18.00, fields["estimated_cost_usd"], 1e-9)
}

func TestToSDKMessages_RoleMapping(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
		{Role: "", Content: "defaults to user"},
	})

	assert.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
}
