package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	remote_id  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	target     TEXT NOT NULL DEFAULT '',
	total      INTEGER NOT NULL DEFAULT 0,
	completed  INTEGER NOT NULL DEFAULT 0,
	failed     INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS captures (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	url          TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'completed',
	location     TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	bytes        INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (job_id, url)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_kind ON jobs(kind);
CREATE INDEX IF NOT EXISTS idx_jobs_remote_id ON jobs(remote_id);
CREATE INDEX IF NOT EXISTS idx_captures_job_id ON captures(job_id);
`

// Migrate creates the ledger tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordJob(ctx context.Context, job Job) (*Job, error) {
	j := prepareJob(job, uuid.NewString, time.Now().UTC())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, remote_id, status, target, total, completed, failed, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Kind), j.RemoteID, j.Status, j.Target, j.Total, j.Completed, j.Failed, j.Error, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}
	return &j, nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET remote_id = ?, status = ?, total = ?, completed = ?, failed = ?, error = ?, updated_at = ? WHERE id = ?`,
		job.RemoteID, job.Status, job.Total, job.Completed, job.Failed, job.Error, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, job.ID)
}

// GetJob looks a job up by its ledger ID or by the server's job ID.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, remote_id, status, target, total, completed, failed, error, created_at, updated_at
		 FROM jobs WHERE id = ? OR (remote_id <> '' AND remote_id = ?)
		 ORDER BY created_at DESC LIMIT 1`,
		id, id,
	)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: job %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}
	return j, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	query := `SELECT id, kind, remote_id, status, target, total, completed, failed, error, created_at, updated_at FROM jobs WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

const sqliteUpsertCapture = `
INSERT INTO captures (id, job_id, url, status, location, content_type, bytes, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (job_id, url) DO UPDATE SET
	status = excluded.status,
	location = excluded.location,
	content_type = excluded.content_type,
	bytes = excluded.bytes,
	error = excluded.error`

func (s *SQLiteStore) RecordCapture(ctx context.Context, c Capture) (*Capture, error) {
	cp := prepareCapture(c, uuid.NewString, time.Now().UTC())
	if _, err := s.db.ExecContext(ctx, sqliteUpsertCapture, captureArgs(cp)...); err != nil {
		return nil, eris.Wrapf(err, "sqlite: record capture for job %s", cp.JobID)
	}
	return &cp, nil
}

// UpsertCaptures writes captures for jobID in one transaction, updating rows
// that already exist for the same URL.
func (s *SQLiteStore) UpsertCaptures(ctx context.Context, jobID string, captures []Capture) (int64, error) {
	if len(captures) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertCapture)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert capture")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, c := range captures {
		c.JobID = jobID
		cp := prepareCapture(c, uuid.NewString, now)
		if _, err := stmt.ExecContext(ctx, captureArgs(cp)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert capture %s", cp.URL)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit captures")
	}
	return n, nil
}

func (s *SQLiteStore) ListCaptures(ctx context.Context, jobID string) ([]Capture, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, url, status, location, content_type, bytes, error, created_at
		 FROM captures WHERE job_id = ? ORDER BY created_at, rowid`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list captures for job %s", jobID)
	}
	defer rows.Close() //nolint:errcheck

	var out []Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan capture")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list captures iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", id)
	}
	return nil
}

func captureArgs(c Capture) []any {
	return []any{c.ID, c.JobID, c.URL, c.Status, c.Location, c.ContentType, c.Bytes, c.Error, c.CreatedAt}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*Job, error) {
	var j Job
	var kind string
	if err := row.Scan(&j.ID, &kind, &j.RemoteID, &j.Status, &j.Target, &j.Total, &j.Completed, &j.Failed, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Kind = JobKind(kind)
	return &j, nil
}

func scanCapture(row scannable) (*Capture, error) {
	var c Capture
	if err := row.Scan(&c.ID, &c.JobID, &c.URL, &c.Status, &c.Location, &c.ContentType, &c.Bytes, &c.Error, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
