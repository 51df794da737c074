package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Group is the persisted subject metadata of one folder.
type Group struct {
	Path          string
	SubjectID     string
	Project       string
	DewarPosition string
	Birthdate     string
	Sex           string
	UpdatedAt     time.Time
}

// SaveGroup upserts group metadata.
func (s *Store) SaveGroup(ctx context.Context, g Group) error {
	if g.Path == "" {
		return errors.New("group path is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recording_groups (path, subject_id, project, dewar_position, birthdate, sex, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             subject_id = excluded.subject_id, project = excluded.project,
             dewar_position = excluded.dewar_position, birthdate = excluded.birthdate,
             sex = excluded.sex, updated_at = excluded.updated_at`,
		g.Path,
		nullableString(g.SubjectID),
		nullableString(g.Project),
		nullableString(g.DewarPosition),
		nullableString(g.Birthdate),
		nullableString(g.Sex),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert group: %w", err)
	}
	return nil
}

// GetGroup returns the persisted metadata for path, or nil when none exists.
func (s *Store) GetGroup(ctx context.Context, path string) (*Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, subject_id, project, dewar_position, birthdate, sex, updated_at
         FROM recording_groups WHERE path = ?`, path)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// Groups returns every persisted group keyed by path.
func (s *Store) Groups(ctx context.Context) (map[string]Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, subject_id, project, dewar_position, birthdate, sex, updated_at
         FROM recording_groups ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Group)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out[g.Path] = *g
	}
	return out, rows.Err()
}

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*Group, error) {
	var (
		path      string
		subject   sql.NullString
		project   sql.NullString
		dewar     sql.NullString
		birthdate sql.NullString
		sex       sql.NullString
		updated   sql.NullString
	)
	if err := scanner.Scan(&path, &subject, &project, &dewar, &birthdate, &sex, &updated); err != nil {
		return nil, err
	}
	return &Group{
		Path:          path,
		SubjectID:     subject.String,
		Project:       project.String,
		DewarPosition: dewar.String,
		Birthdate:     birthdate.String,
		Sex:           sex.String,
		UpdatedAt:     timeOrZero(updated),
	}, nil
}
