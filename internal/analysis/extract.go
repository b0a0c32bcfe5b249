package analysis

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoJSONFound means the response text contains no {...} pair to parse.
var ErrNoJSONFound = eris.New("analysis: no JSON object found in response")

// JSONParseError means a candidate object was located but still failed to
// parse after cleanup. It preserves the original parser message.
type JSONParseError struct {
	Err error
}

func (e *JSONParseError) Error() string {
	return "analysis: parse extracted JSON: " + e.Err.Error()
}

func (e *JSONParseError) Unwrap() error {
	return e.Err
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// ExtractJSON recovers a JSON object from an arbitrary LLM text response
// despite code fences, trailing commas, control characters, or narrative
// padding. Deliberately permissive rather than schema-validating; field
// correctness is the caller's responsibility.
//
// Steps, in order: take the interior of a ```json fence if one exists;
// locate the first { and last } as the candidate; strip control characters
// and collapse whitespace runs to single spaces; drop trailing commas; parse.
func ExtractJSON(raw string) (map[string]any, error) {
	text := raw

	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSONFound
	}
	candidate := cleanCandidate(text[start : end+1])

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, &JSONParseError{Err: err}
	}
	return obj, nil
}

// cleanCandidate strips C0/C1 control characters, collapses whitespace runs
// (including newlines and tabs) to single spaces, and removes trailing
// commas immediately before } or ].
func cleanCandidate(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		isControl := r < 0x20 || (r >= 0x7f && r <= 0x9f)
		if isControl || r == ' ' {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}

	return trailingCommaRe.ReplaceAllString(strings.TrimSpace(b.String()), "$1")
}
