package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/snapapi-go/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	jobColumns     = `id, kind, remote_id, status, target, total, completed, failed, error, created_at, updated_at`
	captureColumns = `id, job_id, url, status, location, content_type, bytes, error, created_at`
)

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_job":    `INSERT INTO jobs (` + jobColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	"update_job":    `UPDATE jobs SET remote_id = $1, status = $2, total = $3, completed = $4, failed = $5, error = $6, updated_at = $7 WHERE id = $8`,
	"get_job":       `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 OR (remote_id <> '' AND remote_id = $1) ORDER BY created_at DESC LIMIT 1`,
	"list_captures": `SELECT ` + captureColumns + ` FROM captures WHERE job_id = $1 ORDER BY created_at, id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT NOT NULL,
	remote_id  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	target     TEXT NOT NULL DEFAULT '',
	total      INTEGER NOT NULL DEFAULT 0,
	completed  INTEGER NOT NULL DEFAULT 0,
	failed     INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS captures (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	url          TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'completed',
	location     TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	bytes        BIGINT NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (job_id, url)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_kind ON jobs(kind);
CREATE INDEX IF NOT EXISTS idx_jobs_remote_id ON jobs(remote_id);
CREATE INDEX IF NOT EXISTS idx_captures_job_id ON captures(job_id);
`

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordJob(ctx context.Context, job Job) (*Job, error) {
	j := prepareJob(job, uuid.NewString, time.Now().UTC())

	_, err := s.pool.Exec(ctx, preparedStatements["insert_job"],
		j.ID, string(j.Kind), j.RemoteID, j.Status, j.Target, j.Total, j.Completed, j.Failed, j.Error, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}
	return &j, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, preparedStatements["update_job"],
		job.RemoteID, job.Status, job.Total, job.Completed, job.Failed, job.Error, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", job.ID)
	}
	return nil
}

// GetJob looks a job up by its ledger ID or by the server's job ID.
func (s *PostgresStore) GetJob(ctx context.Context, id string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, preparedStatements["get_job"], id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) RecordCapture(ctx context.Context, c Capture) (*Capture, error) {
	cp := prepareCapture(c, uuid.NewString, time.Now().UTC())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO captures (`+captureColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (job_id, url) DO UPDATE SET
			status = EXCLUDED.status,
			location = EXCLUDED.location,
			content_type = EXCLUDED.content_type,
			bytes = EXCLUDED.bytes,
			error = EXCLUDED.error`,
		captureArgs(cp)...,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: record capture for job %s", cp.JobID)
	}
	return &cp, nil
}

var captureMerge = db.Merge{
	Table:   "captures",
	Columns: []string{"id", "job_id", "url", "status", "location", "content_type", "bytes", "error", "created_at"},
	Key:     []string{"job_id", "url"},
	Update:  []string{"status", "location", "content_type", "bytes", "error"},
}

// UpsertCaptures bulk-merges captures for jobID via COPY.
func (s *PostgresStore) UpsertCaptures(ctx context.Context, jobID string, captures []Capture) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(captures))
	for _, c := range captures {
		c.JobID = jobID
		rows = append(rows, captureArgs(prepareCapture(c, uuid.NewString, now)))
	}
	n, err := captureMerge.Apply(ctx, s.pool, rows)
	return n, eris.Wrapf(err, "postgres: upsert captures for job %s", jobID)
}

func (s *PostgresStore) ListCaptures(ctx context.Context, jobID string) ([]Capture, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_captures"], jobID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list captures for job %s", jobID)
	}
	defer rows.Close()

	var out []Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan capture")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list captures iterate")
}
