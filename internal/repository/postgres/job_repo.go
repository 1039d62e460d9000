// Package postgres provides the Postgres-backed job repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Expected table schema:
//
//	CREATE TABLE jobs (
//	    id          TEXT PRIMARY KEY,
//	    user_id     TEXT NOT NULL,
//	    filename    TEXT NOT NULL,
//	    upload_path TEXT NOT NULL,
//	    status      TEXT NOT NULL,
//	    progress    INT NOT NULL DEFAULT 0,
//	    output_url  TEXT NOT NULL DEFAULT '',
//	    error_text  TEXT NOT NULL DEFAULT '',
//	    payload     JSONB,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_jobs_created_at ON jobs (created_at DESC);
//	CREATE INDEX idx_jobs_status ON jobs (status);

// Config controls the Postgres connection pool used for job rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobRepository persists job rows in Postgres.
type JobRepository struct {
	pool  pool
	table string
	clock outreach.Clock
}

// New creates a Postgres-backed JobRepository using the provided config.
func New(ctx context.Context, cfg Config, clock outreach.Clock) (*JobRepository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobRepository{pool: p, table: table, clock: clock}, nil
}

// NewWithPool constructs a repository from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(p pool, table string, clock outreach.Clock) (*JobRepository, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &JobRepository{pool: p, table: table, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (r *JobRepository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const jobColumns = "id, user_id, filename, upload_path, status, progress, output_url, error_text, payload, created_at, updated_at"

// Insert stores a new job row.
func (r *JobRepository) Insert(ctx context.Context, job outreach.Job) (outreach.Job, error) {
	now := r.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return outreach.Job{}, fmt.Errorf("marshal payload: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, r.table, jobColumns)
	if _, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.Filename,
		job.UploadPath,
		string(job.Status),
		job.Progress,
		job.OutputURL,
		job.ErrorText,
		payloadJSON,
		job.CreatedAt,
		job.UpdatedAt,
	); err != nil {
		return outreach.Job{}, classify("insert job", err)
	}
	return job, nil
}

// Update applies a partial patch as a single UPDATE statement, so racing
// writers on the same id can never interleave fields.
func (r *JobRepository) Update(ctx context.Context, jobID string, patch outreach.JobPatch) (outreach.Job, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if patch.Status != nil {
		sets = append(sets, "status = "+arg(string(*patch.Status)))
	}
	if patch.Progress != nil {
		sets = append(sets, "progress = "+arg(*patch.Progress))
	}
	if patch.OutputURL != nil {
		sets = append(sets, "output_url = "+arg(*patch.OutputURL))
	}
	if patch.ErrorText != nil {
		sets = append(sets, "error_text = "+arg(*patch.ErrorText))
	}
	sets = append(sets, "updated_at = "+arg(r.now()))

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = %s RETURNING %s`,
		r.table, strings.Join(sets, ", "), arg(jobID), jobColumns)

	job, err := scanJob(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outreach.Job{}, outreach.ErrNotFound
		}
		return outreach.Job{}, classify("update job", err)
	}
	return job, nil
}

// Get fetches a job row by id.
func (r *JobRepository) Get(ctx context.Context, jobID string) (outreach.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, jobColumns, r.table)
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outreach.Job{}, outreach.ErrNotFound
		}
		return outreach.Job{}, classify("get job", err)
	}
	return job, nil
}

// List returns up to limit jobs, newest first by created_at.
func (r *JobRepository) List(ctx context.Context, limit int) ([]outreach.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id DESC LIMIT $1`, jobColumns, r.table)
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, classify("list jobs", err)
	}
	defer rows.Close()

	var jobs []outreach.Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("list jobs: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list jobs", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (outreach.Job, error) {
	var (
		job         outreach.Job
		status      string
		payloadJSON []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Filename,
		&job.UploadPath,
		&status,
		&job.Progress,
		&job.OutputURL,
		&job.ErrorText,
		&payloadJSON,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return outreach.Job{}, err
	}
	job.Status = outreach.JobStatus(status)
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return outreach.Job{}, fmt.Errorf("decode payload: %w", err)
		}
	}
	return job, nil
}

// classify maps connection-level failures onto ErrBackendUnavailable so
// callers can route the operation to the fallback store.
func classify(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, outreach.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

func (r *JobRepository) now() time.Time {
	if r.clock != nil {
		return r.clock.Now()
	}
	return time.Now().UTC()
}
