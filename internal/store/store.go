// Package store persists analysis runs and the shared response cache.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis engine. The
// AnalysisResult blob is stored verbatim and returned unchanged on read.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, cfg *model.RunConfiguration) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	SaveRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.AnalysisResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Failed questions (kept for inspection and re-runs)
	RecordFailedQuestion(ctx context.Context, fq model.FailedQuestion) error
	ListFailedQuestions(ctx context.Context, runID string) ([]model.FailedQuestion, error)

	// Response cache
	GetCachedResponse(ctx context.Context, key string) (string, bool, error)
	SetCachedResponse(ctx context.Context, key, text string, ttl time.Duration) error
	DeleteExpiredResponses(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ResponseCacheKey derives the deterministic cache key for a generated
// response: identical questions under identical locale and generation model
// reuse prior generations.
func ResponseCacheKey(questionText, locale, generationModel string) string {
	h := sha256.New()
	h.Write([]byte(questionText))
	h.Write([]byte{0})
	h.Write([]byte(locale))
	h.Write([]byte{0})
	h.Write([]byte(generationModel))
	return hex.EncodeToString(h.Sum(nil))
}
