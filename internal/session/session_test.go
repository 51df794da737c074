package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"bidsprep/internal/association"
	"bidsprep/internal/config"
	"bidsprep/internal/events"
	"bidsprep/internal/group"
	"bidsprep/internal/session"
	"bidsprep/internal/testsupport"
)

func openSession(t *testing.T, cfg *config.Config, sink events.Sink) *session.Session {
	t.Helper()
	s, err := session.Open(context.Background(), session.Options{Config: cfg, Sink: sink})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeData(t *testing.T, cfg *config.Config) (string, string) {
	t.Helper()
	first := testsupport.WriteFolder(t, filepath.Join(cfg.Paths.DataDir, "2630_RS_PROJ01"), testsupport.StandardFolder())
	second := testsupport.StandardFolder()
	second.Recordings = []string{"2631_RS_B1.con", "2631_RS_B2.con"}
	other := testsupport.WriteFolder(t, filepath.Join(cfg.Paths.DataDir, "nested", "2631_RS_PROJ01"), second)
	testsupport.WriteText(t, filepath.Join(cfg.Paths.DataDir, "docs", "readme.txt"), "not a recording")
	return first, other
}

func str(v string) *string { return &v }

func TestOpenTakesStateLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := session.Open(context.Background(), session.Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := session.Open(context.Background(), session.Options{Config: cfg}); !errors.Is(err, session.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}
	second := openSession(t, cfg, nil)
	if second.ID() == first.ID() {
		t.Fatal("expected distinct session ids")
	}
}

func TestScanLoadsRecordingFolders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, other := writeData(t, cfg)
	sink := &events.Recorder{}
	s := openSession(t, cfg, sink)

	report, err := s.Scan(context.Background(), cfg.Paths.DataDir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(report.Results) != 2 || report.Loaded() != 2 || report.Ready() != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	groups := s.Groups()
	if len(groups) != 2 || groups[0].Path != first || groups[1].Path != other {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if len(groups[1].Recordings) != 2 || groups[0].Meta.SubjectID != "2630" {
		t.Fatalf("unexpected group contents %+v", groups)
	}
	if n := len(sink.Filter(events.KindReadiness)); n != 2 {
		t.Fatalf("expected one readiness event per group, got %d", n)
	}
}

func TestAssociationPersistsAcrossSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	folder, _ := writeData(t, cfg)
	recording := filepath.Join(folder, "2630_RS_B2.con")
	marker := filepath.Join(folder, "2630_RS_B2_ini.mrk")
	ctx := context.Background()

	s, err := session.Open(ctx, session.Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if res := s.Load(ctx, folder); res.Err != nil {
		t.Fatalf("Load: %v", res.Err)
	}
	if _, err := s.EditRecording(ctx, recording, session.RecordingEdit{Task: str("rest"), Run: str("1")}); err != nil {
		t.Fatal(err)
	}
	s.Select(recording)
	if out := s.Associate(ctx); out.Mode != association.AwaitingMarkerPick {
		t.Fatalf("unexpected outcome %+v", out)
	}
	s.Select(marker)
	if out := s.Associate(ctx); !out.Committed || out.Err != nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
	view, _ := s.Group(folder)
	if !view.Ready {
		t.Fatal("expected ready group after association")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openSession(t, cfg, nil)
	if res := reopened.Load(ctx, folder); res.Err != nil || !res.Ready {
		t.Fatalf("restored group must be ready, got %+v", res)
	}
	view, _ = reopened.Group(folder)
	got := view.Recordings[0]
	if got.Task != "rest" || len(got.Markers) != 1 || got.Markers[0] != marker {
		t.Fatalf("edits not restored: %+v", got)
	}
}

func TestAssociateWithAllAndIgnore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, folder := writeData(t, cfg)
	ctx := context.Background()
	s := openSession(t, cfg, nil)
	if res := s.Load(ctx, folder); res.Err != nil {
		t.Fatal(res.Err)
	}

	s.Select(filepath.Join(folder, "2630_RS_B2_ini.mrk"))
	out := s.AssociateWithAll(ctx)
	if !out.Committed || len(out.Changed) != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	b1 := filepath.Join(folder, "2631_RS_B1.con")
	b2 := filepath.Join(folder, "2631_RS_B2.con")
	if _, err := s.EditRecording(ctx, b1, session.RecordingEdit{Task: str("rest"), Run: str("1")}); err != nil {
		t.Fatal(err)
	}
	if view, _ := s.Group(folder); view.Ready {
		t.Fatal("second recording still lacks task and run")
	}
	s.Select(b2)
	if out := s.SetJunk(ctx, true); !out.Committed {
		t.Fatalf("ignore failed: %+v", out)
	}
	if view, _ := s.Group(folder); !view.Ready {
		t.Fatal("ignoring the incomplete recording must make the group ready")
	}
}

func TestSelectionBeforeLoadIsNotReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	folder, _ := writeData(t, cfg)
	s := openSession(t, cfg, nil)

	s.Select(filepath.Join(folder, "2630_RS_B2.con"))
	out := s.Associate(context.Background())
	if out.Reason != association.ReasonNotReady || s.Mode() != association.Normal {
		t.Fatalf("expected not_ready, got %+v", out)
	}
}

func TestConcurrentLoadsShareOneGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(4))
	folder, _ := writeData(t, cfg)
	s := openSession(t, cfg, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]session.LoadResult, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Load(ctx, folder)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("load failed: %v", res.Err)
		}
		if res.Group != results[0].Group {
			t.Fatal("every load must resolve to the same group")
		}
	}
	if n := len(s.Groups()); n != 1 {
		t.Fatalf("expected one group, got %d", n)
	}
}

func TestFailedLoadCanBeRetried(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	folder := filepath.Join(cfg.Paths.DataDir, "2630_RS")
	s := openSession(t, cfg, nil)
	ctx := context.Background()

	if res := s.Load(ctx, folder); res.Err == nil {
		t.Fatal("expected error for missing folder")
	}
	if len(s.Groups()) != 0 {
		t.Fatal("failed load must leave no group")
	}
	testsupport.WriteFolder(t, folder, testsupport.StandardFolder())
	if res := s.Load(ctx, folder); res.Err != nil {
		t.Fatalf("retry failed: %v", res.Err)
	}
}

func TestEditSubjectIsAtomicAndPersisted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	folder, _ := writeData(t, cfg)
	ctx := context.Background()
	s, err := session.Open(ctx, session.Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	s.Load(ctx, folder)

	err = s.EditSubject(ctx, folder, session.SubjectEdit{Birthdate: str("1990-04-02"), Sex: str("x")})
	if err == nil {
		t.Fatal("expected invalid sex error")
	}
	if view, _ := s.Group(folder); !view.Meta.Birthdate.IsZero() {
		t.Fatal("invalid edit must not apply partially")
	}
	if err := s.EditSubject(ctx, folder, session.SubjectEdit{Birthdate: str("1990-04-02"), Sex: str("f"), DewarPosition: str("upright")}); err != nil {
		t.Fatal(err)
	}
	if err := s.EditSubject(ctx, "/nowhere", session.SubjectEdit{}); !errors.Is(err, session.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openSession(t, cfg, nil)
	reopened.Load(ctx, folder)
	view, _ := reopened.Group(folder)
	if view.Meta.Sex != group.SexFemale || view.Meta.Birthdate.Year != 1990 || view.Meta.DewarPosition != group.DewarUpright {
		t.Fatalf("metadata not restored: %+v", view.Meta)
	}
}

func TestAssembleWritesManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	folder, _ := writeData(t, cfg)
	ctx := context.Background()
	s := openSession(t, cfg, nil)
	s.Load(ctx, folder)

	if _, err := s.Assemble(ctx, folder); !errors.Is(err, group.ErrIncompleteGroup) {
		t.Fatalf("expected ErrIncompleteGroup, got %v", err)
	}

	rec := filepath.Join(folder, "2630_RS_B2.con")
	if _, err := s.EditRecording(ctx, rec, session.RecordingEdit{Task: str("rest"), Run: str("1")}); err != nil {
		t.Fatal(err)
	}
	s.Select(filepath.Join(folder, "2630_RS_B2_ini.mrk"))
	s.AssociateWithAll(ctx)

	res, err := s.Assemble(ctx, folder)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Jobs != 1 {
		t.Fatalf("expected one job, got %d", res.Jobs)
	}
	if _, err := os.Stat(res.ManifestPath); err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	if _, err := s.Assemble(ctx, "/nowhere"); !errors.Is(err, session.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
}

func TestLoadAfterCloseFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	folder, _ := writeData(t, cfg)
	s, err := session.Open(context.Background(), session.Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if res := s.Load(context.Background(), folder); !errors.Is(res.Err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", res.Err)
	}
}
