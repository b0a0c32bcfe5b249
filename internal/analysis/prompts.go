package analysis

import (
	"fmt"
	"strings"

	"github.com/brandlens/brandlens-cli/internal/model"
)

const generationSystemPrompt = `You are a well-informed consumer research assistant answering questions for the %s market.
Answer naturally and concretely, naming real products, companies and brands where they are relevant.
Do not mention that you are an AI. Write at least one full paragraph.`

const analysisPrompt = `You are a brand-mention analyst. Analyze ONLY the text below; do not use outside knowledge.

Target brands: %s
Competitor brands: %s

Text to analyze:
---
%s
---

For every listed brand that appears in the text, count its occurrences and collect short verbatim evidence quotes.
Return ONLY a valid JSON object, no prose, exactly this shape:
{
  "summary": "<2-3 sentence summary of the text>",
  "brandMentions": [
    {"brand": "<name from the lists above>", "mentioned": true, "frequency": <int>, "context": "positive|negative|neutral", "evidence": ["<quote>"]}
  ],
  "sentiment": "positive|negative|neutral",
  "confidenceScore": <0.0-1.0>
}`

// buildGenerationSystem renders the system prompt for the generation pass
// from the run's locale context.
func buildGenerationSystem(cfg *model.RunConfiguration) string {
	return fmt.Sprintf(generationSystemPrompt, cfg.Locale)
}

// buildAnalysisPrompt renders the extraction prompt for the analysis pass
// over previously generated text.
func buildAnalysisPrompt(cfg *model.RunConfiguration, generated string) string {
	return fmt.Sprintf(analysisPrompt,
		strings.Join(cfg.TargetBrands, ", "),
		strings.Join(cfg.CompetitorBrands, ", "),
		generated,
	)
}
