package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bidsprep/internal/filekind"
	"bidsprep/internal/group"
	"bidsprep/internal/listing"
	"bidsprep/internal/logging"
	"bidsprep/internal/record"
)

// LoadResult is the outcome of one folder load.
type LoadResult struct {
	Folder string
	Group  record.ID
	Ready  bool
	Err    error
}

type loadJob struct {
	ctx    context.Context
	folder string
	done   chan<- LoadResult
}

func (s *Session) startWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.jobs = make(chan loadJob)
	s.quit = make(chan struct{})
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case job := <-s.jobs:
					job.done <- s.load(job.ctx, job.folder)
				case <-s.quit:
					return
				}
			}
		}()
	}
}

// LoadAsync queues folder for loading and returns a channel that receives
// exactly one result once the load has been applied or has failed.
func (s *Session) LoadAsync(ctx context.Context, folder string) <-chan LoadResult {
	folder = filepath.Clean(folder)
	done := make(chan LoadResult, 1)

	go func() {
		select {
		case s.jobs <- loadJob{ctx: ctx, folder: folder, done: done}:
		case <-s.quit:
			done <- LoadResult{Folder: folder, Err: ErrClosed}
		case <-ctx.Done():
			done <- LoadResult{Folder: folder, Err: ctx.Err()}
		}
	}()
	return done
}

// Load loads folder and waits for the result.
func (s *Session) Load(ctx context.Context, folder string) LoadResult {
	select {
	case res := <-s.LoadAsync(ctx, folder):
		return res
	case <-ctx.Done():
		return LoadResult{Folder: filepath.Clean(folder), Err: ctx.Err()}
	}
}

// load runs on a worker. Discovery happens without the session lock; the
// result is applied under it.
func (s *Session) load(ctx context.Context, folder string) LoadResult {
	ctx = logging.WithGroup(s.Context(ctx), folder)
	logger := logging.WithContext(ctx, s.logger)
	res := LoadResult{Folder: folder}

	release, err := s.cache.Begin(ctx, folder)
	if err != nil {
		res.Err = err
		return res
	}
	defer release()

	s.mu.Lock()
	g, known := s.groups[folder]
	s.mu.Unlock()
	if !known {
		g = group.New(folder, s.groupDeps())
	}

	start := time.Now()
	disc, err := g.Discover(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "folder discovery failed", "discovery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check folder permissions and header sidecars"),
		)
		res.Err = err
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		res.Err = ErrClosed
		return res
	}
	if !known {
		// Register before Apply so record hooks can reach the group.
		s.groups[folder] = g
		s.byID[g.ID] = g
		s.restoreGroup(g)
	}
	if err := g.Apply(ctx, disc); err != nil {
		if !known {
			delete(s.groups, folder)
			delete(s.byID, g.ID)
		}
		res.Err = err
		return res
	}
	res.Group = g.ID
	res.Ready = g.Ready
	logger.Info("folder loaded",
		logging.Int("files", len(disc.Files)),
		logging.Bool("ready", g.Ready),
		logging.Duration("elapsed", time.Since(start)),
	)
	return res
}

// ScanReport summarizes a scan.
type ScanReport struct {
	Root    string
	ScanID  int64
	Results []LoadResult
}

// Loaded counts folders that loaded successfully.
func (r ScanReport) Loaded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Ready counts folders that loaded and are Ready.
func (r ScanReport) Ready() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && res.Ready {
			n++
		}
	}
	return n
}

// Failed returns the failed loads.
func (r ScanReport) Failed() []LoadResult {
	var out []LoadResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Scan walks root, loads every folder holding at least one recording and
// returns once all loads are applied. Folder failures are reported per
// folder; the returned error covers the walk itself.
func (s *Session) Scan(ctx context.Context, root string) (ScanReport, error) {
	root = filepath.Clean(root)
	ctx = s.Context(ctx)
	report := ScanReport{Root: root}

	scanID, err := s.store.StartScan(ctx, root, s.id)
	if err != nil {
		return report, err
	}
	report.ScanID = scanID

	folders, walkErr := s.folders(ctx, root)
	pending := make([]<-chan LoadResult, 0, len(folders))
	for _, folder := range folders {
		pending = append(pending, s.LoadAsync(ctx, folder))
	}
	for _, ch := range pending {
		report.Results = append(report.Results, <-ch)
	}

	var failure error
	if failed := report.Failed(); len(failed) > 0 {
		failure = fmt.Errorf("%d folder(s) failed to load", len(failed))
	}
	if walkErr != nil {
		failure = walkErr
	}
	if err := s.store.FinishScan(context.WithoutCancel(ctx), scanID, report.Loaded(), report.Ready(), failure); err != nil {
		logging.WarnWithContext(s.logger, "failed to record scan", "scan_history_failed", logging.Error(err))
	}
	s.logger.Info("scan complete",
		logging.String("root", root),
		logging.Int("folders", len(folders)),
		logging.Int("ready", report.Ready()),
	)
	return report, walkErr
}

func (s *Session) folders(ctx context.Context, root string) ([]string, error) {
	lister := s.lister
	if lister == nil {
		lister = listing.OS{}
	}
	classify := s.classify
	if classify == nil {
		classify = filekind.KIT
	}
	var out []string
	err := listing.Walk(ctx, lister, root, func(dir string, children []listing.Entry) error {
		for _, child := range children {
			if !child.IsDir && classify(child.Path) == filekind.Recording {
				out = append(out, dir)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

// restoreRecording applies persisted edits to a newly created recording. It
// runs under the session lock during Apply.
func (s *Session) restoreRecording(rec *record.Recording) {
	saved, ok := s.savedRecs[rec.Path()]
	if !ok {
		return
	}
	rec.SetTask(saved.Task)
	rec.SetRun(saved.Run)
	rec.SetJunk(saved.Junk)
	rec.SetEmptyRoom(saved.EmptyRoom)
	markers := make([]record.ID, 0, len(saved.Markers))
	for _, path := range saved.Markers {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logging.WarnWithContext(s.logger, "cannot restore marker binding", "marker_restore_failed",
					logging.String(logging.FieldPath, path), logging.Error(err))
			}
			continue
		}
		markers = append(markers, s.cache.NodeID(path))
	}
	rec.SetMarkers(markers)
}

func (s *Session) restoreGroup(g *group.Group) {
	saved, ok := s.savedGroup[g.Path]
	if !ok {
		return
	}
	if saved.SubjectID != "" {
		g.Meta.SubjectID = saved.SubjectID
	}
	if saved.Project != "" {
		g.Meta.Project = saved.Project
	}
	if saved.DewarPosition != "" {
		_ = g.Meta.SetDewarPosition(saved.DewarPosition)
	}
	if date, err := group.ParseDate(saved.Birthdate); err == nil {
		g.Meta.Birthdate = date
	}
	if sex, err := group.ParseSex(saved.Sex); err == nil {
		g.Meta.Sex = sex
	}
}
