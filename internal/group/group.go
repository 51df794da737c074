package group

import (
	"log/slog"
	"path/filepath"

	"bidsprep/internal/cache"
	"bidsprep/internal/events"
	"bidsprep/internal/filekind"
	"bidsprep/internal/header"
	"bidsprep/internal/listing"
	"bidsprep/internal/logging"
	"bidsprep/internal/record"
)

// Deps are the collaborators a group loads through.
type Deps struct {
	Lister   listing.Lister
	Classify filekind.Classifier
	Reader   header.Reader
	Cache    *cache.RecordCache
	Sink     events.Sink
	Hooks    record.Hooks
	Logger   *slog.Logger
	// Restore, when set, is applied to every recording created by Apply
	// before readiness is aggregated.
	Restore func(rec *record.Recording)
}

func (d Deps) withDefaults() Deps {
	if d.Lister == nil {
		d.Lister = listing.OS{}
	}
	if d.Classify == nil {
		d.Classify = filekind.KIT
	}
	if d.Reader == nil {
		d.Reader = header.SidecarReader{}
	}
	if d.Cache == nil {
		d.Cache = cache.New()
	}
	if d.Sink == nil {
		d.Sink = events.Nop{}
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	return d
}

// Group is one acquisition folder and the records it owns.
type Group struct {
	ID   record.ID
	Path string

	// Files holds node IDs per role in listing order.
	Files map[filekind.Kind][]record.ID
	// Jobs are the recordings of the folder: the units handed to assembly.
	Jobs             []record.ID
	ContainsRequired bool
	Ready            bool
	Meta             Metadata

	loaded   bool
	computed bool
	deps     Deps
	logger   *slog.Logger
}

// New returns an unloaded group for folder. Metadata is seeded from the
// folder name.
func New(folder string, deps Deps) *Group {
	deps = deps.withDefaults()
	folder = filepath.Clean(folder)
	return &Group{
		ID:     deps.Cache.NodeID(folder),
		Path:   folder,
		Files:  emptyBuckets(),
		Meta:   MetadataFromFolder(folder),
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "group").With(logging.String(logging.FieldGroup, folder)),
	}
}

func emptyBuckets() map[filekind.Kind][]record.ID {
	out := make(map[filekind.Kind][]record.ID, len(filekind.Roles))
	for _, kind := range filekind.Roles {
		out[kind] = nil
	}
	return out
}

// Loaded reports whether Apply has run at least once.
func (g *Group) Loaded() bool { return g.loaded }

// Records returns the group's records of one role, in listing order.
func (g *Group) Records(kind filekind.Kind) []record.Record {
	ids := g.Files[kind]
	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := g.deps.Cache.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Recordings returns the group's recordings in listing order.
func (g *Group) Recordings() []*record.Recording {
	out := make([]*record.Recording, 0, len(g.Jobs))
	for _, id := range g.Jobs {
		if rec, ok := g.deps.Cache.Recording(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Contains reports whether id belongs to the group.
func (g *Group) Contains(id record.ID) bool {
	for _, ids := range g.Files {
		for _, candidate := range ids {
			if candidate == id {
				return true
			}
		}
	}
	return false
}

// MissingRoles returns the roles with no file in the folder.
func (g *Group) MissingRoles() []filekind.Kind {
	var out []filekind.Kind
	for _, kind := range filekind.Roles {
		if len(g.Files[kind]) == 0 {
			out = append(out, kind)
		}
	}
	return out
}
