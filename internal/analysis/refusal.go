package analysis

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Content-quality failures. Not inherently transient, but the analyzer
// retries the whole generate+analyze pipeline as a unit on them.
var (
	// ErrInsufficientGeneration means the generation call returned empty or
	// near-empty text.
	ErrInsufficientGeneration = eris.New("analysis: generated text missing or too short")

	// ErrInvalidAnalysisResponse means the analysis call returned text that
	// cannot plausibly contain the requested JSON (too short, no braces, or
	// a refusal).
	ErrInvalidAnalysisResponse = eris.New("analysis: analysis response invalid")
)

// minResponseLength is the minimum usable length for both the generated
// text and the analysis response.
const minResponseLength = 50

// refusalPatterns is the central denylist of phrases that mark a response
// as a refusal or canned error rather than an answer. Matching is
// case-insensitive substring. Extend here, not inline at call sites.
var refusalPatterns = []string{
	"i cannot",
	"i can't",
	"i'm sorry",
	"i am sorry",
	"i'm unable to",
	"i am unable to",
	"as an ai language model",
	"error occurred",
}

// IsRefusal reports whether the response text matches the refusal denylist.
func IsRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range refusalPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// validateGeneration rejects empty or under-length generated text.
func validateGeneration(text string) error {
	if len(strings.TrimSpace(text)) < minResponseLength {
		return ErrInsufficientGeneration
	}
	return nil
}

// validateAnalysisResponse rejects analysis output that is trivially
// unusable before any JSON extraction is attempted.
func validateAnalysisResponse(text string) error {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minResponseLength {
		return eris.Wrap(ErrInvalidAnalysisResponse, "too short")
	}
	if !strings.Contains(trimmed, "{") || !strings.Contains(trimmed, "}") {
		return eris.Wrap(ErrInvalidAnalysisResponse, "no JSON braces")
	}
	if IsRefusal(trimmed) {
		return eris.Wrap(ErrInvalidAnalysisResponse, "matches refusal pattern")
	}
	return nil
}
