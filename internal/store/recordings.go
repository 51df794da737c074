package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Recording is the persisted operator state of one recording.
type Recording struct {
	Path      string
	Task      string
	Run       string
	Junk      bool
	EmptyRoom bool
	// Markers are marker file paths in binding order.
	Markers   []string
	UpdatedAt time.Time
}

// SaveRecording upserts a recording and replaces its marker bindings.
func (s *Store) SaveRecording(ctx context.Context, rec Recording) error {
	if rec.Path == "" {
		return errors.New("recording path is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recordings (path, task, run, junk, empty_room, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             task = excluded.task, run = excluded.run, junk = excluded.junk,
             empty_room = excluded.empty_room, updated_at = excluded.updated_at`,
		rec.Path,
		nullableString(rec.Task),
		nullableString(rec.Run),
		boolToInt(rec.Junk),
		boolToInt(rec.EmptyRoom),
		now,
	); err != nil {
		return fmt.Errorf("upsert recording: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recording_markers WHERE recording_path = ?`, rec.Path); err != nil {
		return fmt.Errorf("clear markers: %w", err)
	}
	for i, marker := range rec.Markers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recording_markers (recording_path, position, marker_path) VALUES (?, ?, ?)`,
			rec.Path, i, marker,
		); err != nil {
			return fmt.Errorf("insert marker: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recording: %w", err)
	}
	return nil
}

// GetRecording returns the persisted state for path, or nil when none exists.
func (s *Store) GetRecording(ctx context.Context, path string) (*Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, task, run, junk, empty_room, updated_at FROM recordings WHERE path = ?`, path)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	markers, err := s.markers(ctx, path)
	if err != nil {
		return nil, err
	}
	rec.Markers = markers[path]
	return rec, nil
}

// Recordings returns every persisted recording keyed by path.
func (s *Store) Recordings(ctx context.Context) (map[string]Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, task, run, junk, empty_room, updated_at FROM recordings ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Recording)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out[rec.Path] = *rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	markers, err := s.markers(ctx, "")
	if err != nil {
		return nil, err
	}
	for path, list := range markers {
		if rec, ok := out[path]; ok {
			rec.Markers = list
			out[path] = rec
		}
	}
	return out, nil
}

// DeleteRecording forgets a recording and its bindings.
func (s *Store) DeleteRecording(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return nil
}

// markers returns bindings for one recording path, or all when path is "".
func (s *Store) markers(ctx context.Context, path string) (map[string][]string, error) {
	query := `SELECT recording_path, marker_path FROM recording_markers`
	var args []any
	if path != "" {
		query += ` WHERE recording_path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY recording_path, position`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var rec, marker string
		if err := rows.Scan(&rec, &marker); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		out[rec] = append(out[rec], marker)
	}
	return out, rows.Err()
}

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		path      string
		task      sql.NullString
		run       sql.NullString
		junk      int
		emptyRoom int
		updated   sql.NullString
	)
	if err := scanner.Scan(&path, &task, &run, &junk, &emptyRoom, &updated); err != nil {
		return nil, err
	}
	return &Recording{
		Path:      path,
		Task:      task.String,
		Run:       run.String,
		Junk:      junk != 0,
		EmptyRoom: emptyRoom != 0,
		UpdatedAt: timeOrZero(updated),
	}, nil
}
