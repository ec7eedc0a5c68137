// Package store persists a ledger of pipeline runs and their per-track
// outcomes in SQLite, so past runs can be listed and inspected after the
// process exits.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases must be deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// version of this schema.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates the requested run does not exist.
var ErrNotFound = errors.New("run not found")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Run is one pipeline invocation.
type Run struct {
	ID            string
	Mood          string
	Genre         string
	TrackCount    int
	Status        string
	ErrorMessage  string
	AudioPath     string
	VideoPath     string
	ThumbnailPath string
	TitlesTier    string
	ThumbnailTier string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Track is one track slot's terminal outcome within a run.
type Track struct {
	RunID        string
	Index        int
	Title        string
	JobID        string
	Status       string
	Duration     time.Duration
	ErrorMessage string
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
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
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
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

// CreateRun inserts a new run record.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	now := time.Now().UTC()
	return s.execWithRetry(ctx, `
		INSERT INTO runs (id, mood, genre, track_count, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mood, run.Genre, run.TrackCount, run.Status,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
}

// UpdateRunStatus moves a run to a new status, recording the error message
// for failed runs.
func (s *Store) UpdateRunStatus(ctx context.Context, id, status, errorMessage string) error {
	return s.execWithRetry(ctx, `
		UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, errorMessage, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
}

// FinishRun records the final artifact paths and fallback tiers.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	return s.execWithRetry(ctx, `
		UPDATE runs SET status = ?, audio_path = ?, video_path = ?, thumbnail_path = ?,
			titles_tier = ?, thumbnail_tier = ?, updated_at = ?
		WHERE id = ?`,
		run.Status, run.AudioPath, run.VideoPath, run.ThumbnailPath,
		run.TitlesTier, run.ThumbnailTier,
		time.Now().UTC().Format(time.RFC3339Nano), run.ID,
	)
}

// RecordTrack upserts one track slot's outcome for a run.
func (s *Store) RecordTrack(ctx context.Context, track Track) error {
	return s.execWithRetry(ctx, `
		INSERT INTO run_tracks (run_id, track_index, title, job_id, status, duration_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, track_index) DO UPDATE SET
			title = excluded.title,
			job_id = excluded.job_id,
			status = excluded.status,
			duration_ms = excluded.duration_ms,
			error_message = excluded.error_message`,
		track.RunID, track.Index, track.Title, track.JobID, track.Status,
		track.Duration.Milliseconds(), track.ErrorMessage,
	)
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mood, genre, track_count, status, error_message,
			audio_path, video_path, thumbnail_path, titles_tier, thumbnail_tier,
			created_at, updated_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mood, genre, track_count, status, error_message,
			audio_path, video_path, thumbnail_path, titles_tier, thumbnail_tier,
			created_at, updated_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListTracks returns a run's track outcomes in slot order.
func (s *Store) ListTracks(ctx context.Context, runID string) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, track_index, title, job_id, status, duration_ms, error_message
		FROM run_tracks WHERE run_id = ? ORDER BY track_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var track Track
		var durationMs int64
		if err := rows.Scan(&track.RunID, &track.Index, &track.Title, &track.JobID,
			&track.Status, &durationMs, &track.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		track.Duration = time.Duration(durationMs) * time.Millisecond
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var createdAt, updatedAt string
	err := row.Scan(&run.ID, &run.Mood, &run.Genre, &run.TrackCount, &run.Status,
		&run.ErrorMessage, &run.AudioPath, &run.VideoPath, &run.ThumbnailPath,
		&run.TitlesTier, &run.ThumbnailTier, &createdAt, &updatedAt)
	if err != nil {
		return Run{}, err
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Run{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return run, nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
