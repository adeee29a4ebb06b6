package history

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

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

var (
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	ErrRunNotFound    = errors.New("run not found")
	ErrAmbiguousID    = errors.New("ambiguous run id")
)

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
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

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
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
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Start inserts run in the running state.
func (s *Store) Start(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, task_name, video_path, original_srt, target_srt, output_path,
            strategy, mode, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		nullableString(run.TaskName),
		run.VideoPath,
		run.OriginalSRT,
		run.TargetSRT,
		nullableString(run.OutputPath),
		run.Strategy,
		run.Mode,
		StatusRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish records the outcome of a started run and replaces its cue report.
func (s *Store) Finish(ctx context.Context, run Run) error {
	if !run.Status.Terminal() {
		return fmt.Errorf("finish run %s: status %q is not terminal", run.ID, run.Status)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET
            output_path = ?, status = ?, error_message = ?, error_kind = ?,
            cue_count = ?, matched = ?, unmatched = ?, op_count = ?,
            planned_ms = ?, realized_ms = ?, finished_at = ?
        WHERE id = ?`,
		nullableString(run.OutputPath),
		run.Status,
		nullableString(run.Error),
		nullableString(run.ErrorKind),
		run.CueCount,
		run.Matched,
		run.Unmatched,
		run.OpCount,
		run.Planned.Milliseconds(),
		run.Realized.Milliseconds(),
		formatTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cue_reports WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("clear cue report: %w", err)
	}
	if len(run.Cues) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cue_reports (run_id, target_index, source_index, status, score, time_delta_ms, note)
            VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare cue insert: %w", err)
		}
		defer stmt.Close()
		for _, cue := range run.Cues {
			if _, err := stmt.ExecContext(ctx,
				run.ID, cue.TargetIndex, cue.SourceIndex, cue.Status, cue.Score,
				cue.TimeDelta.Milliseconds(), nullableString(cue.Note),
			); err != nil {
				return fmt.Errorf("insert cue %d: %w", cue.TargetIndex, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish: %w", err)
	}
	return nil
}

const runColumns = "id, task_name, video_path, original_srt, target_srt, output_path, strategy, mode, status, error_message, error_kind, cue_count, matched, unmatched, op_count, planned_ms, realized_ms, started_at, finished_at"

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var args []any
	if opts.Status != "" {
		query += " WHERE status = ?"
		args = append(args, opts.Status)
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Get fetches a run and its cue report. id may be a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2",
		id, stripWildcards(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		found = append(found, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var run *Run
	for _, candidate := range found {
		if candidate.ID == id {
			run = candidate
		}
	}
	if run == nil {
		switch len(found) {
		case 0:
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		case 1:
			run = found[0]
		default:
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
	}

	cues, err := s.cues(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Cues = cues
	return run, nil
}

func (s *Store) cues(ctx context.Context, runID string) ([]CueRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_index, source_index, status, score, time_delta_ms, note
        FROM cue_reports WHERE run_id = ? ORDER BY target_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("load cue report: %w", err)
	}
	defer rows.Close()

	var cues []CueRecord
	for rows.Next() {
		var (
			rec     CueRecord
			deltaMs int64
			note    sql.NullString
		)
		if err := rows.Scan(&rec.TargetIndex, &rec.SourceIndex, &rec.Status, &rec.Score, &deltaMs, &note); err != nil {
			return nil, fmt.Errorf("scan cue report: %w", err)
		}
		rec.TimeDelta = time.Duration(deltaMs) * time.Millisecond
		rec.Note = note.String
		cues = append(cues, rec)
	}
	return cues, rows.Err()
}

// Prune deletes finished runs that started before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE started_at < ? AND status != ?",
		formatTime(cutoff), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// MarkAbandoned fails runs left in the running state by a crashed process.
func (s *Store) MarkAbandoned(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE status = ? AND started_at < ?",
		StatusFailed, "run abandoned", formatTime(time.Now()), StatusRunning, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("mark abandoned runs: %w", err)
	}
	return res.RowsAffected()
}
