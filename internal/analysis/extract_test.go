package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	obj, err := ExtractJSON(`{"summary": "fine", "confidenceScore": 0.8}`)
	require.NoError(t, err)
	assert.Equal(t, "fine", obj["summary"])
	assert.Equal(t, 0.8, obj["confidenceScore"])
}

func TestExtractJSON_CodeFence(t *testing.T) {
	raw := "Here is the analysis you asked for:\n```json\n{\"summary\": \"ok\"}\n```\nLet me know if you need more."
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", obj["summary"])
}

func TestExtractJSON_UnclosedFence(t *testing.T) {
	raw := "```json\n{\"summary\": \"ok\"}"
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", obj["summary"])
}

func TestExtractJSON_NarrativePadding(t *testing.T) {
	raw := `Sure! Based on the text, my analysis is {"summary": "padded", "sentiment": "neutral"} — hope that helps.`
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "padded", obj["summary"])
}

func TestExtractJSON_TrailingCommas(t *testing.T) {
	raw := `{"brandMentions": [{"brand": "Acme", "frequency": 2,},], "summary": "x",}`
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)

	mentions, ok := obj["brandMentions"].([]any)
	require.True(t, ok)
	require.Len(t, mentions, 1)
	assert.Equal(t, "x", obj["summary"])
}

func TestExtractJSON_ControlCharactersAndNewlines(t *testing.T) {
	raw := "{\"summary\":\t\"line one\",\n\n  \"sentiment\": \"positive\"}"
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "positive", obj["sentiment"])
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON("I could not find anything relevant to report.")
	assert.ErrorIs(t, err, ErrNoJSONFound)
}

func TestExtractJSON_EmptyInput(t *testing.T) {
	_, err := ExtractJSON("")
	assert.ErrorIs(t, err, ErrNoJSONFound)
}

func TestExtractJSON_MalformedObject(t *testing.T) {
	_, err := ExtractJSON(`{"summary": broken}`)
	require.Error(t, err)

	var pe *JSONParseError
	require.True(t, errors.As(err, &pe))
	assert.NotNil(t, pe.Unwrap())
	assert.NotErrorIs(t, err, ErrNoJSONFound)
}

func TestExtractJSON_Idempotent(t *testing.T) {
	raw := "```json\n{\"summary\": \"stable\", \"brandMentions\": [{\"brand\": \"Acme\", \"frequency\": 1,}],}\n```"
	first, err := ExtractJSON(raw)
	require.NoError(t, err)

	reserialized, err := json.Marshal(first)
	require.NoError(t, err)
	second, err := ExtractJSON(string(reserialized))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractJSON_NestedBracesUseOutermost(t *testing.T) {
	raw := `prefix {"outer": {"inner": 1}, "summary": "nested"} suffix`
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "nested", obj["summary"])

	inner, ok := obj["outer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), inner["inner"])
}
