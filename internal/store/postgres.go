package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, abstracted so tests
// can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id         TEXT PRIMARY KEY,
	config     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS failed_questions (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES analysis_runs(id),
	question_id TEXT NOT NULL,
	question    TEXT NOT NULL,
	error       TEXT NOT NULL,
	error_type  TEXT NOT NULL,
	failed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS response_cache (
	key        TEXT PRIMARY KEY,
	response   TEXT NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_status ON analysis_runs(status);
CREATE INDEX IF NOT EXISTS idx_failed_questions_run_id ON failed_questions(run_id);
CREATE INDEX IF NOT EXISTS idx_response_cache_expires_at ON response_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, cfg *model.RunConfiguration) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal config")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_runs (id, config, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(cfgJSON), string(model.RunStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Config:    cfg,
		Status:    model.RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analysis_runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) SaveRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.AnalysisResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analysis_runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, config, status, result, created_at, updated_at FROM analysis_runs WHERE id = $1`,
		runID,
	)
	return scanRunPg(row.Scan)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, config, status, result, created_at, updated_at FROM analysis_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		query += ` AND created_at > $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRunPg(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) RecordFailedQuestion(ctx context.Context, fq model.FailedQuestion) error {
	if fq.ID == "" {
		fq.ID = uuid.New().String()
	}
	if fq.FailedAt.IsZero() {
		fq.FailedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO failed_questions (id, run_id, question_id, question, error, error_type, failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		fq.ID, fq.RunID, fq.QuestionID, fq.Question, fq.Error, fq.ErrorType, fq.FailedAt,
	)
	return eris.Wrap(err, "postgres: insert failed question")
}

func (s *PostgresStore) ListFailedQuestions(ctx context.Context, runID string) ([]model.FailedQuestion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, question_id, question, error, error_type, failed_at
		 FROM failed_questions WHERE run_id = $1 ORDER BY failed_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list failed questions")
	}
	defer rows.Close()

	var out []model.FailedQuestion
	for rows.Next() {
		var fq model.FailedQuestion
		if err := rows.Scan(&fq.ID, &fq.RunID, &fq.QuestionID, &fq.Question, &fq.Error, &fq.ErrorType, &fq.FailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failed question")
		}
		out = append(out, fq)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list failed questions iterate")
}

func (s *PostgresStore) GetCachedResponse(ctx context.Context, key string) (string, bool, error) {
	var response string
	err := s.pool.QueryRow(ctx,
		`SELECT response FROM response_cache WHERE key = $1 AND expires_at > now()`,
		key,
	).Scan(&response)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: get cached response")
	}
	return response, true, nil
}

func (s *PostgresStore) SetCachedResponse(ctx context.Context, key, text string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO response_cache (key, response, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT(key) DO UPDATE SET response = EXCLUDED.response,
		   cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, text, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached response")
}

func (s *PostgresStore) DeleteExpiredResponses(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM response_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired responses")
	}
	return int(tag.RowsAffected()), nil
}

func scanRunPg(scan func(dest ...any) error) (*model.Run, error) {
	var r model.Run
	var cfgJSON []byte
	var resultJSON []byte

	if err := scan(&r.ID, &cfgJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(err, "postgres: run not found")
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if err := json.Unmarshal(cfgJSON, &r.Config); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run config")
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run result")
		}
	}
	return &r, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
