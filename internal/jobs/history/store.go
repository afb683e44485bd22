package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"autodub/internal/config"
	"autodub/internal/jobs"
)

const schema = `
CREATE TABLE IF NOT EXISTS dub_jobs (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    stage       TEXT NOT NULL,
    progress    INTEGER NOT NULL,
    message     TEXT,
    error       TEXT,
    output_file TEXT,
    url         TEXT NOT NULL,
    lang        TEXT NOT NULL,
    gender      TEXT NOT NULL,
    subtitle    INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dub_jobs_created ON dub_jobs(created_at);
`

// Store archives terminal job snapshots in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the history database file.
func (s *Store) Path() string { return s.path }

// Record upserts a terminal job snapshot. Non-terminal snapshots are
// rejected; the archive never holds in-flight state.
func (s *Store) Record(ctx context.Context, job jobs.Job) error {
	if !job.Status.IsTerminal() {
		return fmt.Errorf("record history: job %s status %s is not terminal", job.ID, job.Status)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO dub_jobs (
            id, status, stage, progress, message, error, output_file,
            url, lang, gender, subtitle, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status, stage = excluded.stage,
            progress = excluded.progress, message = excluded.message,
            error = excluded.error, output_file = excluded.output_file,
            updated_at = excluded.updated_at`,
		job.ID,
		string(job.Status),
		string(job.Stage),
		job.Progress,
		nullableString(job.Message),
		nullableString(job.Error),
		nullableString(job.OutputFile),
		job.URL,
		job.Lang,
		job.Gender,
		boolToInt(job.Subtitle),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// Get fetches an archived job snapshot by id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM dub_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return job, nil
}

// List returns the most recent archived jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]jobs.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM dub_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// Stats returns archived job counts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[jobs.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM dub_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[jobs.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[jobs.Status(status)] = count
	}
	return stats, rows.Err()
}

const columns = "id, status, stage, progress, message, error, output_file, url, lang, gender, subtitle, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*jobs.Job, error) {
	var (
		id, status, stage, url, lang, gender string
		progress, subtitle                   int
		message, errMsg, outputFile          sql.NullString
		createdRaw, updatedRaw               string
	)
	if err := scanner.Scan(
		&id, &status, &stage, &progress,
		&message, &errMsg, &outputFile,
		&url, &lang, &gender, &subtitle,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &jobs.Job{
		ID:         id,
		Status:     jobs.Status(status),
		Stage:      jobs.Stage(stage),
		Progress:   progress,
		Message:    message.String,
		Error:      errMsg.String,
		OutputFile: outputFile.String,
		URL:        url,
		Lang:       lang,
		Gender:     gender,
		Subtitle:   subtitle != 0,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
