package analysis

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/provider"
	"github.com/brandlens/brandlens-cli/internal/resilience"
	"github.com/brandlens/brandlens-cli/internal/store"
)

// Confidence scores from the model are clamped into this window before
// acceptance, so end users never see spuriously low or high trust signals.
// The unclamped value is kept separately for auditing.
const (
	confidenceFloor   = 0.70
	confidenceCeiling = 0.95
	confidenceDefault = 0.75
)

const (
	generationTemperature = 0.7
	generationMaxTokens   = 2048
	analysisTemperature   = 0.2
	analysisMaxTokens     = 1500
	snippetLength         = 200
)

// Cache is the response-cache gateway the analyzer consults before calling
// the generation model, and writes through after a successful call. Errors
// from either side never abort the run.
type Cache interface {
	GetCachedResponse(ctx context.Context, key string) (string, bool, error)
	SetCachedResponse(ctx context.Context, key, text string, ttl time.Duration) error
}

// Analyzer produces one QuestionAnalysis per question: a generation pass on
// the generation model, then a mention-extraction pass on the cheaper
// analysis model.
type Analyzer struct {
	generation provider.Client
	extraction provider.Client
	cache      Cache

	retryBase resilience.RetryConfig // delays shortened in tests
}

// NewAnalyzer builds an analyzer. cache may be nil to disable caching
// regardless of configuration.
func NewAnalyzer(generation, extraction provider.Client, cache Cache) *Analyzer {
	return &Analyzer{
		generation: generation,
		extraction: extraction,
		cache:      cache,
		retryBase:  resilience.DefaultRetryConfig(),
	}
}

// Analyze runs the full generate+analyze pipeline for one question,
// retrying the pipeline as a unit on both transport and content-quality
// failures. The returned token usage covers every attempt.
func (a *Analyzer) Analyze(ctx context.Context, q model.Question, cfg *model.RunConfiguration) (*model.QuestionAnalysis, model.TokenUsage, error) {
	var usage model.TokenUsage

	retryCfg := a.retryBase
	retryCfg.MaxAttempts = cfg.MaxRetries
	retryCfg.ShouldRetry = shouldRetryAnalysis
	retryCfg.OnRetry = resilience.RetryLogger("llm", "analyze_question")

	qa, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*model.QuestionAnalysis, error) {
		return a.analyzeOnce(ctx, q, cfg, &usage)
	})
	return qa, usage, err
}

// shouldRetryAnalysis retries provider transport failures, content-quality
// failures, and extraction failures; anything else (programmer errors,
// cancellation) surfaces immediately.
func shouldRetryAnalysis(err error) bool {
	if provider.IsProviderError(err) {
		return true
	}
	if errors.Is(err, ErrInsufficientGeneration) || errors.Is(err, ErrInvalidAnalysisResponse) || errors.Is(err, ErrNoJSONFound) {
		return true
	}
	var pe *JSONParseError
	if errors.As(err, &pe) {
		return true
	}
	return resilience.IsTransient(err)
}

func (a *Analyzer) analyzeOnce(ctx context.Context, q model.Question, cfg *model.RunConfiguration, usage *model.TokenUsage) (*model.QuestionAnalysis, error) {
	log := zap.L().With(zap.String("question", q.ID))

	generated, err := a.generate(ctx, q, cfg, usage, log)
	if err != nil {
		return nil, err
	}

	resp, err := a.extraction.Call(ctx, provider.Request{
		Model:       cfg.AnalysisModel,
		Prompt:      buildAnalysisPrompt(cfg, generated),
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
		Timeout:     cfg.CallTimeout,
	})
	if err != nil {
		return nil, err
	}
	usage.Add(resp.Usage)

	if err := validateAnalysisResponse(resp.Text); err != nil {
		return nil, err
	}

	obj, err := ExtractJSON(resp.Text)
	if err != nil {
		return nil, err
	}

	qa := mapAnalysis(q, obj, generated, cfg)
	return &qa, nil
}

// generate returns the free-form text for the question, consulting the
// cache first and writing through on a fresh generation.
func (a *Analyzer) generate(ctx context.Context, q model.Question, cfg *model.RunConfiguration, usage *model.TokenUsage, log *zap.Logger) (string, error) {
	cacheKey := store.ResponseCacheKey(q.Text, cfg.Locale, cfg.GenerationModel)
	useCache := cfg.CacheEnabled && a.cache != nil

	if useCache {
		cached, ok, err := a.cache.GetCachedResponse(ctx, cacheKey)
		if err != nil {
			// Cache failures degrade to a miss, never abort the run.
			log.Warn("cache lookup failed, treating as miss", zap.Error(err))
		} else if ok {
			log.Debug("generation served from cache")
			return cached, nil
		}
	}

	resp, err := a.generation.Call(ctx, provider.Request{
		Model:       cfg.GenerationModel,
		System:      buildGenerationSystem(cfg),
		Prompt:      q.Text,
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
		Timeout:     cfg.CallTimeout,
	})
	if err != nil {
		return "", err
	}
	usage.Add(resp.Usage)

	if err := validateGeneration(resp.Text); err != nil {
		return "", err
	}

	if useCache {
		if err := a.cache.SetCachedResponse(ctx, cacheKey, resp.Text, cfg.CacheTTL); err != nil {
			log.Warn("cache write failed", zap.Error(err))
		}
	}
	return resp.Text, nil
}

// mapAnalysis converts the parsed analysis object into a QuestionAnalysis,
// applying defaults for missing fields and wrapping the generated text into
// one synthetic priority source.
func mapAnalysis(q model.Question, obj map[string]any, generated string, cfg *model.RunConfiguration) model.QuestionAnalysis {
	summary, _ := obj["summary"].(string)
	sentiment, _ := obj["sentiment"].(string)

	rawConfidence := confidenceDefault
	if v, ok := toFloat64(obj["confidenceScore"]); ok {
		rawConfidence = v
	}

	return model.QuestionAnalysis{
		QuestionID:      q.ID,
		Question:        q.Text,
		Category:        q.Category,
		Summary:         summary,
		Sources:         []model.AnalysisSource{syntheticSource(q, generated)},
		BrandMentions:   parseBrandMentions(obj["brandMentions"], cfg),
		Sentiment:       model.ParseSentiment(sentiment),
		ConfidenceScore: clampConfidence(rawConfidence),
		RawConfidence:   rawConfidence,
	}
}

func syntheticSource(q model.Question, generated string) model.AnalysisSource {
	return model.AnalysisSource{
		URL:         model.SyntheticSourceURL,
		Title:       "AI response: " + truncate(q.Text, 80),
		Snippet:     truncate(generated, snippetLength),
		Domain:      "ai-generated",
		IsPriority:  true,
		FullContent: generated,
	}
}

// parseBrandMentions tolerantly decodes the brandMentions array. Unknown
// brands are kept here; consolidation drops them against the configured
// lists. Mentioned is derived from frequency rather than the model's own
// boolean, which sometimes contradicts it.
func parseBrandMentions(v any, cfg *model.RunConfiguration) []model.BrandMention {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	var out []model.BrandMention
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		brand, _ := m["brand"].(string)
		if brand == "" {
			continue
		}

		frequency := 0
		if f, ok := toFloat64(m["frequency"]); ok && f > 0 {
			frequency = int(f)
		}

		context, _ := m["context"].(string)

		var evidence []string
		if ev, ok := m["evidence"].([]any); ok {
			for _, e := range ev {
				if s, ok := e.(string); ok && s != "" {
					evidence = append(evidence, s)
				}
			}
		}

		out = append(out, model.BrandMention{
			Brand:     brand,
			Mentioned: frequency > 0,
			Frequency: frequency,
			Context:   model.ParseSentiment(context),
			Evidence:  evidence,
		})
	}
	return out
}

// NewErrorAnalysis builds the degraded analysis substituted for a question
// whose pipeline failed after exhausting retries: empty sources and
// mentions, neutral sentiment, zero confidence.
func NewErrorAnalysis(q model.Question, cause error) model.QuestionAnalysis {
	return model.QuestionAnalysis{
		QuestionID:      q.ID,
		Question:        q.Text,
		Category:        q.Category,
		Summary:         "Analysis unavailable: the language model could not produce a usable answer for this question (" + cause.Error() + ").",
		Sources:         []model.AnalysisSource{},
		BrandMentions:   []model.BrandMention{},
		Sentiment:       model.SentimentNeutral,
		ConfidenceScore: 0.0,
	}
}

func clampConfidence(v float64) float64 {
	if v < confidenceFloor {
		return confidenceFloor
	}
	if v > confidenceCeiling {
		return confidenceCeiling
	}
	return v
}

// truncate shortens s to at most n bytes, backing up to a rune boundary so
// a multi-byte character is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
