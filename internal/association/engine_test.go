package association_test

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"bidsprep/internal/association"
	"bidsprep/internal/config"
	"bidsprep/internal/filekind"
	"bidsprep/internal/header"
	"bidsprep/internal/record"
)

type catalog struct {
	records map[record.ID]record.Record
}

func newCatalog() *catalog {
	return &catalog{records: map[record.ID]record.Record{}}
}

func (c *catalog) Record(id record.ID) (record.Record, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

func (c *catalog) RecordingsIn(folder string) []*record.Recording {
	var out []*record.Recording
	for _, id := range c.sortedIDs() {
		if r, ok := c.records[id].(*record.Recording); ok && filepath.Dir(r.Path()) == folder {
			out = append(out, r)
		}
	}
	return out
}

func (c *catalog) sortedIDs() []record.ID {
	ids := make([]record.ID, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *catalog) recording(id record.ID, path string) *record.Recording {
	r := record.NewRecording(id, path, header.Info{})
	r.SetTask("rest")
	r.SetRun("1")
	c.records[id] = r
	return r
}

func (c *catalog) marker(id record.ID, path string) {
	c.records[id] = record.NewFile(id, path, filekind.Marker)
}

type prompter struct {
	retry        bool
	instructions []filekind.Kind
	refusals     []error
}

func (p *prompter) Instruct(want filekind.Kind) { p.instructions = append(p.instructions, want) }

func (p *prompter) RetryOrCancel(err error) bool {
	p.refusals = append(p.refusals, err)
	return p.retry
}

func settings(max int) config.Association {
	return config.Association{MaxMarkers: max, ShowInstructions: true}
}

func newEngine(c *catalog, p association.Prompter, max int) *association.Engine {
	return association.New(c, p, settings(max), nil)
}

func TestRecordingAnchorThenMarkerPick(t *testing.T) {
	c := newCatalog()
	rec := c.recording("r1", "/data/s01/run1.con")
	c.marker("m1", "/data/s01/pre.mrk")
	p := &prompter{}
	e := newEngine(c, p, 2)

	e.Select("r1")
	out := e.Associate()
	if out.Err != nil || out.Mode != association.AwaitingMarkerPick || out.Committed {
		t.Fatalf("unexpected first outcome %+v", out)
	}
	if !slices.Equal(e.Anchor(), []record.ID{"r1"}) {
		t.Fatalf("unexpected anchor %v", e.Anchor())
	}
	if !slices.Equal(p.instructions, []filekind.Kind{filekind.Marker}) {
		t.Fatalf("expected marker instruction, got %v", p.instructions)
	}

	e.Select("m1")
	out = e.Associate()
	if !out.Committed || out.Mode != association.Normal || out.Err != nil {
		t.Fatalf("unexpected second outcome %+v", out)
	}
	if !slices.Equal(rec.Markers(), []record.ID{"m1"}) {
		t.Fatalf("expected binding, got %v", rec.Markers())
	}
	if !rec.Validity().IsGood() {
		t.Fatalf("bound recording must validate, got %s", rec.Validity())
	}
	if len(e.Anchor()) != 0 {
		t.Fatal("anchor must be cleared after commit")
	}
	if !slices.Equal(out.Changed, []record.ID{"r1"}) {
		t.Fatalf("unexpected changed set %v", out.Changed)
	}
}

func TestMarkerAnchorThenRecordingPick(t *testing.T) {
	c := newCatalog()
	r1 := c.recording("r1", "/data/s01/run1.con")
	r2 := c.recording("r2", "/data/s01/run2.con")
	c.marker("m1", "/data/s01/pre.mrk")
	c.marker("m2", "/data/s01/post.mrk")
	p := &prompter{}
	e := newEngine(c, p, 2)

	e.Select("m1", "m2")
	if out := e.Associate(); out.Mode != association.AwaitingRecordingPick {
		t.Fatalf("unexpected outcome %+v", out)
	}
	e.Select("r1", "r2")
	out := e.Associate()
	if !out.Committed || out.Mode != association.Normal {
		t.Fatalf("unexpected outcome %+v", out)
	}
	for _, r := range []*record.Recording{r1, r2} {
		if !slices.Equal(r.Markers(), []record.ID{"m1", "m2"}) {
			t.Fatalf("%s: unexpected markers %v", r.ID(), r.Markers())
		}
	}
}

func TestMixedSelectionStaysNormal(t *testing.T) {
	c := newCatalog()
	c.recording("r1", "/data/s01/run1.con")
	c.marker("m1", "/data/s01/pre.mrk")
	p := &prompter{retry: true}
	e := newEngine(c, p, 2)

	e.Select("r1")
	e.Select("r1", "m1")
	out := e.Associate()
	if !errors.Is(out.Err, association.ErrMixedSelection) || out.Reason != association.ReasonMixed {
		t.Fatalf("expected mixed selection, got %+v", out)
	}
	var mixed *association.MixedSelectionError
	if !errors.As(out.Err, &mixed) || len(mixed.Kinds) != 2 {
		t.Fatalf("expected both roles reported, got %v", out.Err)
	}
	if e.Mode() != association.Normal || len(e.Anchor()) != 0 {
		t.Fatal("mixed selection must leave the engine in Normal without an anchor")
	}
	if !slices.Equal(e.Selection(), []record.ID{"r1"}) {
		t.Fatalf("selection must revert to the previous one, got %v", e.Selection())
	}
	if len(p.refusals) != 1 {
		t.Fatalf("expected one retry-or-cancel prompt, got %d", len(p.refusals))
	}
}

func TestMarkerCardinality(t *testing.T) {
	tests := []struct {
		name    string
		markers int
		anchor  bool
		wantErr bool
	}{
		{name: "max as anchor", markers: 2, anchor: true},
		{name: "max plus one as anchor", markers: 3, anchor: true, wantErr: true},
		{name: "max as pick", markers: 2},
		{name: "max plus one as pick", markers: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCatalog()
			rec := c.recording("r1", "/data/s01/run1.con")
			var markers []record.ID
			for i := 0; i < tt.markers; i++ {
				name := string(rune('a' + i))
				id := record.ID("m" + name)
				c.marker(id, filepath.Join("/data/s01", name+".mrk"))
				markers = append(markers, id)
			}
			e := newEngine(c, &prompter{}, 2)

			var out association.Outcome
			if tt.anchor {
				e.Select(markers...)
				out = e.Associate()
				if out.Err == nil {
					e.Select("r1")
					out = e.Associate()
				}
			} else {
				e.Select("r1")
				e.Associate()
				e.Select(markers...)
				out = e.Associate()
			}

			if tt.wantErr {
				if out.Reason != association.ReasonTooManyMarkers || !errors.Is(out.Err, association.ErrGuardFailure) {
					t.Fatalf("expected too_many_markers, got %+v", out)
				}
				if len(rec.Markers()) != 0 {
					t.Fatal("refused pick must not truncate and bind")
				}
				return
			}
			if !out.Committed || len(rec.Markers()) != tt.markers {
				t.Fatalf("expected %d markers bound, got %+v / %v", tt.markers, out, rec.Markers())
			}
		})
	}
}

func TestCoLocationRetryKeepsGesture(t *testing.T) {
	c := newCatalog()
	rec := c.recording("r1", "/data/s01/run1.con")
	c.marker("far", "/data/s02/pre.mrk")
	c.marker("near", "/data/s01/pre.mrk")
	p := &prompter{retry: true}
	e := newEngine(c, p, 2)

	e.Select("r1")
	e.Associate()
	e.Select("far")
	out := e.Associate()
	if out.Reason != association.ReasonNotColocated {
		t.Fatalf("expected not_colocated, got %+v", out)
	}
	if e.Mode() != association.AwaitingMarkerPick || !slices.Equal(e.Anchor(), []record.ID{"r1"}) {
		t.Fatal("retry must keep the pending gesture")
	}

	e.Select("near")
	if out := e.Associate(); !out.Committed {
		t.Fatalf("expected commit after retry, got %+v", out)
	}
	if !slices.Equal(rec.Markers(), []record.ID{"near"}) {
		t.Fatalf("unexpected markers %v", rec.Markers())
	}
}

func TestCoLocationCancelRevertsSelection(t *testing.T) {
	c := newCatalog()
	rec := c.recording("r1", "/data/s01/run1.con")
	c.marker("far", "/data/s02/pre.mrk")
	e := newEngine(c, &prompter{retry: false}, 2)

	e.Select("r1")
	e.Associate()
	e.Select("far")
	if !slices.Equal(e.PreviousSelection(), []record.ID{"r1"}) {
		t.Fatalf("expected anchor pick kept as previous selection, got %v", e.PreviousSelection())
	}
	out := e.Associate()
	if out.Mode != association.Normal || len(e.Anchor()) != 0 {
		t.Fatalf("cancel must clear the gesture, got %+v", out)
	}
	if !slices.Equal(e.Selection(), []record.ID{"r1"}) {
		t.Fatalf("selection must revert, got %v", e.Selection())
	}
	if len(rec.Markers()) != 0 {
		t.Fatal("no binding after cancel")
	}
}

func TestBindingIsAllOrNothing(t *testing.T) {
	c := newCatalog()
	r1 := c.recording("r1", "/data/s01/run1.con")
	r2 := c.recording("r2", "/data/s02/run1.con")
	r1.SetMarkers([]record.ID{"old"})
	c.marker("m1", "/data/s01/pre.mrk")
	e := newEngine(c, nil, 2)

	e.Select("r1", "r2")
	e.Associate()
	e.Select("m1")
	out := e.Associate()
	if out.Committed || out.Reason != association.ReasonNotColocated {
		t.Fatalf("expected refusal, got %+v", out)
	}
	if !slices.Equal(r1.Markers(), []record.ID{"old"}) || len(r2.Markers()) != 0 {
		t.Fatalf("no target may change on refusal: %v %v", r1.Markers(), r2.Markers())
	}
}

func TestBindingReplacesMarkers(t *testing.T) {
	c := newCatalog()
	rec := c.recording("r1", "/data/s01/run1.con")
	rec.SetMarkers([]record.ID{"old"})
	c.marker("m1", "/data/s01/pre.mrk")
	e := newEngine(c, nil, 2)

	e.Select("r1")
	e.Associate()
	e.Select("m1")
	e.Associate()
	if !slices.Equal(rec.Markers(), []record.ID{"m1"}) {
		t.Fatalf("expected replaced list, got %v", rec.Markers())
	}
}

func TestAssociateWithAll(t *testing.T) {
	c := newCatalog()
	a1 := c.recording("a1", "/data/s01/run1.con")
	a2 := c.recording("a2", "/data/s01/run2.con")
	a3 := c.recording("a3", "/data/s01/run3.con")
	b1 := c.recording("b1", "/data/s02/run1.con")
	c.marker("m1", "/data/s01/pre.mrk")
	c.marker("m2", "/data/s01/post.mrk")
	e := newEngine(c, &prompter{}, 2)

	e.Select("m1", "m2")
	out := e.AssociateWithAll()
	if !out.Committed || out.Mode != association.Normal {
		t.Fatalf("unexpected outcome %+v", out)
	}
	for _, r := range []*record.Recording{a1, a2, a3} {
		if !slices.Equal(r.Markers(), []record.ID{"m1", "m2"}) || !r.Validity().IsGood() {
			t.Fatalf("%s: markers %v validity %s", r.ID(), r.Markers(), r.Validity())
		}
	}
	if len(b1.Markers()) != 0 {
		t.Fatal("recordings in other folders must not be bound")
	}
	if len(out.Changed) != 3 {
		t.Fatalf("expected 3 changed recordings, got %v", out.Changed)
	}
}

func TestAssociateWithAllThreeMarkersTwoRecordings(t *testing.T) {
	c := newCatalog()
	r1 := c.recording("r1", "/data/s01/run1.con")
	r2 := c.recording("r2", "/data/s01/run2.con")
	c.marker("m1", "/data/s01/pre.mrk")
	c.marker("m2", "/data/s01/mid.mrk")
	c.marker("m3", "/data/s01/post.mrk")
	e := newEngine(c, &prompter{}, 3)

	e.Select("m1", "m2", "m3")
	out := e.AssociateWithAll()
	if !out.Committed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	want := []record.ID{"m1", "m2", "m3"}
	if !slices.Equal(r1.Markers(), want) || !slices.Equal(r2.Markers(), want) {
		t.Fatalf("expected identical marker lists, got %v and %v", r1.Markers(), r2.Markers())
	}
}

func TestAssociateWithAllEnforcesGuards(t *testing.T) {
	c := newCatalog()
	rec := c.recording("r1", "/data/s01/run1.con")
	c.marker("m1", "/data/s01/a.mrk")
	c.marker("m2", "/data/s01/b.mrk")
	c.marker("m3", "/data/s01/c.mrk")
	c.marker("far", "/data/s02/d.mrk")
	e := newEngine(c, nil, 2)

	e.Select("m1", "m2", "m3")
	if out := e.AssociateWithAll(); out.Reason != association.ReasonTooManyMarkers {
		t.Fatalf("expected too_many_markers, got %+v", out)
	}
	e.Select("m1", "far")
	if out := e.AssociateWithAll(); out.Reason != association.ReasonNotColocated {
		t.Fatalf("expected not_colocated, got %+v", out)
	}
	if len(rec.Markers()) != 0 {
		t.Fatal("refused association must not bind")
	}

	e.Select("r1")
	e.Associate()
	e.Select("m1")
	if out := e.AssociateWithAll(); out.Reason != association.ReasonBusy || e.Mode() != association.AwaitingMarkerPick {
		t.Fatalf("associate-with-all must not disturb a pending gesture, got %+v", out)
	}
}

func TestSelectionNotLoaded(t *testing.T) {
	c := newCatalog()
	e := newEngine(c, &prompter{}, 2)

	e.Select("missing")
	out := e.Associate()
	if !errors.Is(out.Err, association.ErrNotReady) || out.Reason != association.ReasonNotReady {
		t.Fatalf("expected not_ready, got %+v", out)
	}
	if out.Mode != association.Normal {
		t.Fatal("not-ready selection must not change mode")
	}
}

func TestSetJunkTogglesSelection(t *testing.T) {
	c := newCatalog()
	r1 := c.recording("r1", "/data/s01/run1.con")
	r1.SetTask("")
	e := newEngine(c, nil, 2)

	e.Select("r1")
	if out := e.SetJunk(true); !out.Committed || !r1.Junk() || !r1.Validity().IsGood() {
		t.Fatalf("ignore failed: %+v junk=%v validity=%s", out, r1.Junk(), r1.Validity())
	}
	if out := e.SetJunk(false); !out.Committed || r1.Junk() || r1.Validity().IsGood() {
		t.Fatalf("include failed: %+v junk=%v validity=%s", out, r1.Junk(), r1.Validity())
	}

	c.marker("m1", "/data/s01/pre.mrk")
	e.Select("m1")
	if out := e.SetJunk(true); out.Reason != association.ReasonWrongRole {
		t.Fatalf("markers cannot be ignored, got %+v", out)
	}
}

func TestCancelAbandonsGesture(t *testing.T) {
	c := newCatalog()
	c.recording("r1", "/data/s01/run1.con")
	p := &prompter{}
	e := association.New(c, p, config.Association{MaxMarkers: 2}, nil)

	e.Select("r1")
	e.Associate()
	if len(p.instructions) != 0 {
		t.Fatal("instructions are disabled")
	}
	out := e.Cancel()
	if out.Mode != association.Normal || out.Reason != association.ReasonCancelled || len(e.Anchor()) != 0 {
		t.Fatalf("unexpected cancel outcome %+v", out)
	}
	if out := e.Cancel(); out.Reason != association.ReasonNone {
		t.Fatalf("cancel in Normal is a no-op, got %+v", out)
	}
}

func TestWrongRoleAnchor(t *testing.T) {
	c := newCatalog()
	c.records["d1"] = record.NewFile("d1", "/data/s01/points.elp", filekind.Digitizer)
	e := newEngine(c, nil, 2)

	e.Select("d1")
	if out := e.Associate(); out.Reason != association.ReasonWrongRole || out.Mode != association.Normal {
		t.Fatalf("expected wrong_role, got %+v", out)
	}
}
