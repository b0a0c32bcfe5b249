package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// Engine drives a full brand-monitoring run: it fans questions out to the
// analyzer under the configured concurrency bound, substitutes error
// analyses for questions that exhaust their retries, and consolidates the
// survivors into a single result.
type Engine struct {
	analyzer *Analyzer

	// OnProgress, when set, is invoked after each question completes with
	// the monotonic completed count and the total.
	OnProgress func(completed, total int)

	// OnFailure, when set, is invoked once per question whose pipeline
	// failed terminally, before the error analysis is substituted.
	OnFailure func(q model.Question, err error)
}

// NewEngine returns an Engine over the given analyzer.
func NewEngine(analyzer *Analyzer) *Engine {
	return &Engine{analyzer: analyzer}
}

// Run analyzes every question and returns the consolidated result. A run
// always produces a result with one entry per input question, in input
// order; individual failures degrade to error analyses rather than aborting
// the run. Run returns an error only for invalid input or context
// cancellation.
func (e *Engine) Run(ctx context.Context, questions []model.Question, cfg *model.RunConfiguration) (*model.AnalysisResult, error) {
	if len(questions) == 0 {
		return nil, eris.New("analysis: no questions to analyze")
	}
	if cfg == nil {
		return nil, eris.New("analysis: run configuration is required")
	}

	start := time.Now()
	analysisID := uuid.NewString()

	zap.L().Info("starting analysis run",
		zap.String("analysis_id", analysisID),
		zap.Int("questions", len(questions)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Strings("target_brands", cfg.TargetBrands))

	var (
		mu     sync.Mutex
		usage  model.TokenUsage
		failed int
	)

	analyses, err := RunAll(ctx, questions, cfg.Concurrency,
		func(ctx context.Context, q model.Question, _ int) (model.QuestionAnalysis, error) {
			qa, qUsage, aerr := e.analyzer.Analyze(ctx, q, cfg)

			mu.Lock()
			usage.Add(qUsage)
			mu.Unlock()

			if aerr != nil {
				if cerr := ctx.Err(); cerr != nil {
					return model.QuestionAnalysis{}, cerr
				}
				zap.L().Warn("question failed, substituting error analysis",
					zap.String("analysis_id", analysisID),
					zap.String("question_id", q.ID),
					zap.Error(aerr))
				mu.Lock()
				failed++
				mu.Unlock()
				if e.OnFailure != nil {
					e.OnFailure(q, aerr)
				}
				return NewErrorAnalysis(q, aerr), nil
			}
			return *qa, nil
		}, e.OnProgress)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: run aborted")
	}

	byType := ConsolidateByType(analyses, cfg)

	result := &model.AnalysisResult{
		AnalysisID:         analysisID,
		Timestamp:          start.UTC(),
		Categories:         model.Categories(questions),
		Questions:          analyses,
		OverallConfidence:  meanConfidence(analyses),
		BrandSummary:       byType.All,
		BrandSummaryByType: &byType,
		FailedQuestions:    failed,
		DurationMs:         time.Since(start).Milliseconds(),
		TokenUsage:         usage,
	}
	result.TotalSources, result.PrioritySources = countSources(analyses, cfg)

	zap.L().Info("analysis run finished",
		zap.String("analysis_id", analysisID),
		zap.Int("failed_questions", failed),
		zap.Float64("overall_confidence", result.OverallConfidence),
		zap.Int64("duration_ms", result.DurationMs),
		zap.Float64("cost_usd", usage.CostUSD))

	return result, nil
}

// RunStatusFor maps a finished result onto a terminal run status: completed
// when every question succeeded, partially failed otherwise.
func RunStatusFor(result *model.AnalysisResult) model.RunStatus {
	if result.FailedQuestions > 0 {
		return model.RunStatusPartiallyFailed
	}
	return model.RunStatusCompleted
}

// meanConfidence averages confidence over all analyses, error analyses
// included. Their zero scores drag the mean down, which makes the overall
// score reflect run health.
func meanConfidence(analyses []model.QuestionAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var sum float64
	for _, qa := range analyses {
		sum += qa.ConfidenceScore
	}
	return sum / float64(len(analyses))
}

func countSources(analyses []model.QuestionAnalysis, cfg *model.RunConfiguration) (total, priority int) {
	for ai := range analyses {
		for si := range analyses[ai].Sources {
			src := &analyses[ai].Sources[si]
			total++
			if src.IsPriority || isPriorityDomain(src.Domain, cfg.PriorityDomains) {
				priority++
			}
		}
	}
	return total, priority
}

func isPriorityDomain(domain string, priorityDomains []string) bool {
	for _, d := range priorityDomains {
		if d == domain {
			return true
		}
	}
	return false
}
