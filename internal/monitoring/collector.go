// Package monitoring aggregates run history into health metrics.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of analysis health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal           int `json:"runs_total"`
	RunsCompleted       int `json:"runs_completed"`
	RunsPartiallyFailed int `json:"runs_partially_failed"`
	RunsPending         int `json:"runs_pending"`
	RunsRunning         int `json:"runs_running"`

	// Question-level metrics across finished runs in the window.
	QuestionsAnalyzed int     `json:"questions_analyzed"`
	QuestionsFailed   int     `json:"questions_failed"`
	QuestionFailRate  float64 `json:"question_fail_rate"`
	AvgConfidence     float64 `json:"avg_confidence"`

	// Cost metrics.
	TotalCostUSD float64 `json:"total_cost_usd"`
	TotalTokens  int     `json:"total_tokens"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from run history.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var (
		confidenceSum float64
		finishedRuns  int
	)

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusCompleted:
			snap.RunsCompleted++
		case model.RunStatusPartiallyFailed:
			snap.RunsPartiallyFailed++
		case model.RunStatusPending:
			snap.RunsPending++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Result == nil {
			continue
		}
		finishedRuns++
		snap.QuestionsAnalyzed += len(r.Result.Questions)
		snap.QuestionsFailed += r.Result.FailedQuestions
		snap.TotalCostUSD += r.Result.TokenUsage.CostUSD
		snap.TotalTokens += r.Result.TokenUsage.InputTokens + r.Result.TokenUsage.OutputTokens
		confidenceSum += r.Result.OverallConfidence
	}

	if snap.QuestionsAnalyzed > 0 {
		snap.QuestionFailRate = float64(snap.QuestionsFailed) / float64(snap.QuestionsAnalyzed)
	}
	if finishedRuns > 0 {
		snap.AvgConfidence = confidenceSum / float64(finishedRuns)
	}

	return snap, nil
}
