package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Scan is one recorded scan of a data root.
type Scan struct {
	ID           int64
	Root         string
	SessionID    string
	StartedAt    time.Time
	FinishedAt   *time.Time
	GroupsLoaded int
	GroupsReady  int
	ErrorMessage string
}

// StartScan records the start of a scan and returns its ID.
func (s *Store) StartScan(ctx context.Context, root, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (root, session_id, started_at) VALUES (?, ?, ?)`,
		root, sessionID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// FinishScan records the outcome of a scan.
func (s *Store) FinishScan(ctx context.Context, id int64, loaded, ready int, scanErr error) error {
	now := time.Now().UTC()
	var message string
	if scanErr != nil {
		message = scanErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans SET finished_at = ?, groups_loaded = ?, groups_ready = ?, error_message = ? WHERE id = ?`,
		nullableTime(&now), loaded, ready, nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("finish scan: %w", err)
	}
	return nil
}

// LastScan returns the most recent scan, or nil when none was recorded.
func (s *Store) LastScan(ctx context.Context) (*Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, root, session_id, started_at, finished_at, groups_loaded, groups_ready, error_message
         FROM scans ORDER BY id DESC LIMIT 1`)
	var (
		scan     Scan
		started  sql.NullString
		finished sql.NullString
		message  sql.NullString
	)
	err := row.Scan(&scan.ID, &scan.Root, &scan.SessionID, &started, &finished,
		&scan.GroupsLoaded, &scan.GroupsReady, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last scan: %w", err)
	}
	scan.StartedAt = timeOrZero(started)
	if finished.Valid {
		t := timeOrZero(finished)
		scan.FinishedAt = &t
	}
	scan.ErrorMessage = message.String
	return &scan, nil
}
