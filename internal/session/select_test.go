package session

import (
	"context"
	"path/filepath"
	"testing"

	"bidsprep/internal/association"
	"bidsprep/internal/testsupport"
)

func TestSelectDoesNotIndexUnloadedPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	folder := testsupport.WriteFolder(t, filepath.Join(cfg.Paths.DataDir, "2630_RS_PROJ01"), testsupport.StandardFolder())
	s, err := Open(context.Background(), Options{Config: cfg})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	path := filepath.Join(folder, "2630_RS_B2.con")
	s.Select(path)
	if _, ok := s.cache.Lookup(path); ok {
		t.Fatal("selecting an unloaded path must not assign it a node ID")
	}
	if out := s.Associate(context.Background()); out.Reason != association.ReasonNotReady {
		t.Fatalf("expected not_ready, got %+v", out)
	}

	if res := s.Load(context.Background(), folder); res.Err != nil {
		t.Fatalf("Load: %v", res.Err)
	}
	id, ok := s.cache.Lookup(path)
	if !ok {
		t.Fatal("loading must index the recording")
	}
	s.Select(path)
	if got := s.engine.Selection(); len(got) != 1 || got[0] != id {
		t.Fatalf("expected selection of loaded node %s, got %v", id, got)
	}
}
