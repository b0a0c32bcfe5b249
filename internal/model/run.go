package model

import "time"

// RunStatus tracks an analysis run through its lifecycle.
type RunStatus string

const (
	RunStatusPending         RunStatus = "pending"
	RunStatusRunning         RunStatus = "running"
	RunStatusCompleted       RunStatus = "completed"
	RunStatusPartiallyFailed RunStatus = "partially_failed"
)

// Run is a stored analysis run. Result is populated once the run finishes
// and is persisted verbatim as an opaque blob.
type Run struct {
	ID        string            `json:"id"`
	Status    RunStatus         `json:"status"`
	Config    *RunConfiguration `json:"config,omitempty"`
	Result    *AnalysisResult   `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FailedQuestion records a question that exhausted retries and was replaced
// by an error analysis, kept for later inspection or re-run.
type FailedQuestion struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	QuestionID string    `json:"question_id"`
	Question   string    `json:"question"`
	Error      string    `json:"error"`
	ErrorType  string    `json:"error_type"` // "transient" or "permanent"
	FailedAt   time.Time `json:"failed_at"`
}
