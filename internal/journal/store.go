package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing journal databases must then be deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrLocked indicates another process holds the journal lock.
var ErrLocked = errors.New("journal is locked by another process")

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run summarizes one invocation of the pipeline.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string
	Tracks       int
	ErrorMessage string
}

// TrackRecord captures one track's outcome within a run.
type TrackRecord struct {
	RunID        string
	Track        string
	Normalized   bool
	Retagged     bool
	Promoted     bool
	ErrorMessage string
	RecordedAt   time.Time
}

// Store persists run history backed by SQLite. A file lock beside the
// database enforces single-writer access across processes.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire journal lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, lock: lock, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the file lock and the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// BeginRun records a new in-flight run and returns its identifier.
func (s *Store) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)`,
		id, timestamp, StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordTrack appends one track outcome to a run.
func (s *Store) RecordTrack(ctx context.Context, record TrackRecord) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_tracks (
            run_id, track_path, normalized, retagged, promoted, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Track,
		boolToInt(record.Normalized),
		boolToInt(record.Retagged),
		boolToInt(record.Promoted),
		nullableString(record.ErrorMessage),
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert track record: %w", err)
	}
	return nil
}

// FinishRun stamps a run's terminal status.
func (s *Store) FinishRun(ctx context.Context, runID, status, errorMessage string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error_message = ? WHERE id = ?`,
		timestamp, status, nullableString(errorMessage), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first, with per-run track counts.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.started_at, r.finished_at, r.status, r.error_message, COUNT(t.id)
         FROM runs r
         LEFT JOIN run_tracks t ON t.run_id = r.id
         GROUP BY r.id
         ORDER BY r.started_at DESC
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			startedRaw  string
			finishedRaw sql.NullString
			errRaw      sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedRaw, &finishedRaw, &run.Status, &errRaw, &run.Tracks); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(startedRaw)
		if finishedRaw.Valid {
			run.FinishedAt = parseTimestamp(finishedRaw.String)
		}
		run.ErrorMessage = errRaw.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunTracks returns the recorded tracks for a run in insertion order.
func (s *Store) RunTracks(ctx context.Context, runID string) ([]TrackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, track_path, normalized, retagged, promoted, error_message, recorded_at
         FROM run_tracks WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []TrackRecord
	for rows.Next() {
		var (
			record      TrackRecord
			normalized  int
			retagged    int
			promoted    int
			errRaw      sql.NullString
			recordedRaw string
		)
		if err := rows.Scan(&record.RunID, &record.Track, &normalized, &retagged, &promoted, &errRaw, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan track record: %w", err)
		}
		record.Normalized = normalized != 0
		record.Retagged = retagged != 0
		record.Promoted = promoted != 0
		record.ErrorMessage = errRaw.String
		record.RecordedAt = parseTimestamp(recordedRaw)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track records: %w", err)
	}
	return records, nil
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

func parseTimestamp(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
