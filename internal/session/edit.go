package session

import (
	"context"
	"fmt"
	"path/filepath"

	"bidsprep/internal/assemble"
	"bidsprep/internal/association"
	"bidsprep/internal/group"
	"bidsprep/internal/logging"
	"bidsprep/internal/record"
	"bidsprep/internal/store"
)

// Select sets the engine's selection to the records at paths. Paths the cache
// has never indexed are selected under their cleaned path, which resolves to
// nothing, so the next gesture reports not_ready. Only loading assigns node IDs.
func (s *Session) Select(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]record.ID, len(paths))
	for i, p := range paths {
		id, ok := s.cache.Lookup(p)
		if !ok {
			id = record.ID(filepath.Clean(p))
		}
		ids[i] = id
	}
	s.engine.Select(ids...)
}

// Mode returns the engine's current mode.
func (s *Session) Mode() association.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Mode()
}

// Associate advances the two-phase association gesture.
func (s *Session) Associate(ctx context.Context) association.Outcome {
	return s.gesture(ctx, s.engine.Associate)
}

// AssociateWithAll binds the selected markers to every recording in their
// folder.
func (s *Session) AssociateWithAll(ctx context.Context) association.Outcome {
	return s.gesture(ctx, s.engine.AssociateWithAll)
}

// SetJunk ignores or includes the selected recordings.
func (s *Session) SetJunk(ctx context.Context, junk bool) association.Outcome {
	return s.gesture(ctx, func() association.Outcome { return s.engine.SetJunk(junk) })
}

// Cancel abandons a pending gesture.
func (s *Session) Cancel() association.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Cancel()
}

func (s *Session) gesture(ctx context.Context, fn func() association.Outcome) association.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := fn()
	if out.Committed {
		for _, id := range out.Changed {
			if rec, ok := s.cache.Recording(id); ok {
				if err := s.saveRecording(ctx, rec); err != nil && out.Err == nil {
					out.Err = err
				}
			}
		}
	}
	return out
}

// RecordingEdit holds optional field updates for one recording.
type RecordingEdit struct {
	Task      *string
	Run       *string
	EmptyRoom *bool
}

// EditRecording applies edit to the loaded recording at path, re-validates it
// and persists the result.
func (s *Session) EditRecording(ctx context.Context, path string, edit RecordingEdit) (record.Validity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recordingAt(path)
	if err != nil {
		return record.Validity{}, err
	}
	if edit.Task != nil {
		rec.SetTask(*edit.Task)
	}
	if edit.Run != nil {
		rec.SetRun(*edit.Run)
	}
	if edit.EmptyRoom != nil {
		rec.SetEmptyRoom(*edit.EmptyRoom)
	}
	v := rec.Validate()
	return v, s.saveRecording(ctx, rec)
}

func (s *Session) recordingAt(path string) (*record.Recording, error) {
	id, ok := s.cache.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecording, path)
	}
	rec, ok := s.cache.Recording(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecording, path)
	}
	return rec, nil
}

func (s *Session) saveRecording(ctx context.Context, rec *record.Recording) error {
	saved := store.Recording{
		Path:      rec.Path(),
		Task:      rec.Task(),
		Run:       rec.Run(),
		Junk:      rec.Junk(),
		EmptyRoom: rec.EmptyRoom(),
	}
	for _, id := range rec.Markers() {
		if marker, ok := s.cache.Get(id); ok {
			saved.Markers = append(saved.Markers, marker.Path())
		}
	}
	if err := s.store.SaveRecording(ctx, saved); err != nil {
		return fmt.Errorf("persist %s: %w", rec.Path(), err)
	}
	s.savedRecs[saved.Path] = saved
	return nil
}

// SubjectEdit holds optional metadata updates for one group.
type SubjectEdit struct {
	SubjectID     *string
	Project       *string
	Birthdate     *string
	Sex           *string
	DewarPosition *string
}

// EditSubject updates the subject metadata of a loaded folder and persists
// it. Nothing is changed when any value is invalid.
func (s *Session) EditSubject(ctx context.Context, folder string, edit SubjectEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[filepath.Clean(folder)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, folder)
	}
	meta := g.Meta
	if edit.SubjectID != nil {
		meta.SubjectID = *edit.SubjectID
	}
	if edit.Project != nil {
		meta.Project = *edit.Project
	}
	if edit.Birthdate != nil {
		date, err := group.ParseDate(*edit.Birthdate)
		if err != nil {
			return err
		}
		meta.Birthdate = date
	}
	if edit.Sex != nil {
		sex, err := group.ParseSex(*edit.Sex)
		if err != nil {
			return err
		}
		meta.Sex = sex
	}
	if edit.DewarPosition != nil {
		if err := meta.SetDewarPosition(*edit.DewarPosition); err != nil {
			return err
		}
	}
	g.Meta = meta

	saved := store.Group{
		Path:          g.Path,
		SubjectID:     meta.SubjectID,
		Project:       meta.Project,
		DewarPosition: meta.DewarPosition,
		Birthdate:     meta.Birthdate.String(),
		Sex:           meta.Sex.String(),
	}
	if err := s.store.SaveGroup(ctx, saved); err != nil {
		return fmt.Errorf("persist %s: %w", g.Path, err)
	}
	s.savedGroup[g.Path] = saved
	return nil
}

// Assemble hands a Ready folder to the assembler.
func (s *Session) Assemble(ctx context.Context, folder string) (assemble.Result, error) {
	s.mu.Lock()
	g, ok := s.groups[filepath.Clean(folder)]
	if !ok {
		s.mu.Unlock()
		return assemble.Result{}, fmt.Errorf("%w: %s", ErrUnknownGroup, folder)
	}
	bundle, err := g.AssembleInputs(group.Defaults{
		Institution:   s.cfg.Project.Institution,
		ProjectName:   s.cfg.Project.Name,
		DewarPosition: s.cfg.Project.DewarPosition,
	})
	s.mu.Unlock()
	if err != nil {
		return assemble.Result{}, err
	}

	res, err := s.assembler.Assemble(ctx, bundle)
	if err != nil {
		return res, fmt.Errorf("assemble %s: %w", folder, err)
	}
	s.logger.Info("group assembled",
		logging.String(logging.FieldGroup, g.Path),
		logging.String("manifest", res.ManifestPath),
		logging.Int("jobs", res.Jobs),
	)
	return res, nil
}
