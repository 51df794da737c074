package session

import (
	"path/filepath"
	"sort"

	"bidsprep/internal/filekind"
	"bidsprep/internal/group"
	"bidsprep/internal/record"
)

// RecordingView is a snapshot of one recording.
type RecordingView struct {
	ID        record.ID
	Path      string
	Task      string
	Run       string
	Junk      bool
	EmptyRoom bool
	Markers   []string
	Validity  record.Validity
}

// GroupView is a snapshot of one loaded folder.
type GroupView struct {
	ID               record.ID
	Path             string
	Meta             group.Metadata
	ContainsRequired bool
	Ready            bool
	Missing          []filekind.Kind
	Counts           map[filekind.Kind]int
	Recordings       []RecordingView
}

// Groups returns snapshots of every loaded folder sorted by path.
func (s *Session) Groups() []GroupView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GroupView, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, s.view(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Group returns a snapshot of one loaded folder.
func (s *Session) Group(folder string) (GroupView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[filepath.Clean(folder)]
	if !ok {
		return GroupView{}, false
	}
	return s.view(g), true
}

func (s *Session) view(g *group.Group) GroupView {
	v := GroupView{
		ID:               g.ID,
		Path:             g.Path,
		Meta:             g.Meta,
		ContainsRequired: g.ContainsRequired,
		Ready:            g.Ready,
		Missing:          g.MissingRoles(),
		Counts:           make(map[filekind.Kind]int, len(filekind.Roles)),
	}
	for _, kind := range filekind.Roles {
		v.Counts[kind] = len(g.Files[kind])
	}
	for _, rec := range g.Recordings() {
		rv := RecordingView{
			ID:        rec.ID(),
			Path:      rec.Path(),
			Task:      rec.Task(),
			Run:       rec.Run(),
			Junk:      rec.Junk(),
			EmptyRoom: rec.EmptyRoom(),
			Validity:  rec.Validity(),
		}
		for _, id := range rec.Markers() {
			if marker, ok := s.cache.Get(id); ok {
				rv.Markers = append(rv.Markers, marker.Path())
			}
		}
		v.Recordings = append(v.Recordings, rv)
	}
	return v
}
