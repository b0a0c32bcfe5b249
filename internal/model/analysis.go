package model

import "time"

// Sentiment classifies the tone of generated text toward a brand.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps free-form model output onto a Sentiment, defaulting
// to neutral for anything unrecognized.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

// SyntheticSourceURL marks an AnalysisSource that wraps a raw model response
// rather than a real web document.
const SyntheticSourceURL = "ai-generated://response"

// AnalysisSource is one piece of generated text treated as evidence. Sources
// are synthetic: URL is SyntheticSourceURL when the source is a raw model
// response.
type AnalysisSource struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Domain      string `json:"domain"`
	IsPriority  bool   `json:"is_priority"`
	FullContent string `json:"full_content,omitempty"`
}

// BrandMention records how a single brand surfaced in generated text.
// Mentioned is derived from Frequency > 0; the model's own boolean is not
// trusted when the two disagree.
type BrandMention struct {
	Brand     string    `json:"brand"`
	Mentioned bool      `json:"mentioned"`
	Frequency int       `json:"frequency"`
	Context   Sentiment `json:"context"`
	Evidence  []string  `json:"evidence"`
}

// QuestionAnalysis is one question's completed result. It is immutable once
// produced; consolidation only reads and copies.
type QuestionAnalysis struct {
	QuestionID      string           `json:"question_id"`
	Question        string           `json:"question"`
	Category        string           `json:"category"`
	Summary         string           `json:"summary"`
	Sources         []AnalysisSource `json:"sources"`
	BrandMentions   []BrandMention   `json:"brand_mentions"`
	Sentiment       Sentiment        `json:"sentiment"`
	ConfidenceScore float64          `json:"confidence_score"`

	// RawConfidence preserves the model-reported score before clamping,
	// for auditing. Zero for error analyses.
	RawConfidence float64 `json:"raw_confidence,omitempty"`
}

// BrandSummary partitions consolidated mentions into configured targets and
// competitors. Brands matching neither list are dropped.
type BrandSummary struct {
	TargetBrands []BrandMention `json:"target_brands"`
	Competitors  []BrandMention `json:"competitors"`
}

// BrandSummaryByType carries independent consolidations over all questions,
// generic questions (text names no configured brand), and specific questions.
type BrandSummaryByType struct {
	All      BrandSummary `json:"all"`
	Generic  BrandSummary `json:"generic"`
	Specific BrandSummary `json:"specific"`
}

// AnalysisResult is the run's final artifact, created exactly once by the
// orchestrator and treated as opaque and immutable downstream.
type AnalysisResult struct {
	AnalysisID         string              `json:"analysis_id"`
	Timestamp          time.Time           `json:"timestamp"`
	Categories         []string            `json:"categories"`
	Questions          []QuestionAnalysis  `json:"questions"`
	OverallConfidence  float64             `json:"overall_confidence"`
	TotalSources       int                 `json:"total_sources"`
	PrioritySources    int                 `json:"priority_sources"`
	BrandSummary       BrandSummary        `json:"brand_summary"`
	BrandSummaryByType *BrandSummaryByType `json:"brand_summary_by_type,omitempty"`

	// Run-level observability counters.
	FailedQuestions int        `json:"failed_questions"`
	DurationMs      int64      `json:"duration_ms"`
	TokenUsage      TokenUsage `json:"token_usage"`
}

// TokenUsage tracks token consumption and estimated cost across a run.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CostUSD += other.CostUSD
}
