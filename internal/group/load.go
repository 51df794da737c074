package group

import (
	"context"
	"fmt"
	"slices"

	"bidsprep/internal/filekind"
	"bidsprep/internal/header"
	"bidsprep/internal/logging"
	"bidsprep/internal/record"
)

// Found is one classified child of a folder.
type Found struct {
	Path string
	Kind filekind.Kind
	// Info is set for recordings whose header was parsed during discovery.
	Info   header.Info
	Parsed bool
}

// Discovery is the result of listing and classifying a folder.
type Discovery struct {
	Folder string
	Files  []Found
}

// Discover lists the group's folder and parses the headers of recordings the
// cache does not already hold. It reads the cache but never writes to it.
func (g *Group) Discover(ctx context.Context) (Discovery, error) {
	entries, err := g.deps.Lister.List(ctx, g.Path)
	if err != nil {
		return Discovery{}, fmt.Errorf("list %s: %w", g.Path, err)
	}
	disc := Discovery{Folder: g.Path}
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		kind := g.deps.Classify(entry.Path)
		if kind == filekind.Unclassified {
			continue
		}
		found := Found{Path: entry.Path, Kind: kind}
		if kind == filekind.Recording && !g.cached(entry.Path, kind) {
			info, err := g.deps.Reader.Read(ctx, entry.Path)
			if err != nil {
				return Discovery{}, fmt.Errorf("read header %s: %w", entry.Path, err)
			}
			found.Info = info
			found.Parsed = true
		}
		disc.Files = append(disc.Files, found)
	}
	return disc, nil
}

func (g *Group) cached(path string, kind filekind.Kind) bool {
	id, ok := g.deps.Cache.Lookup(path)
	if !ok {
		return false
	}
	rec, ok := g.deps.Cache.Get(id)
	return ok && rec.Kind() == kind
}

// Apply installs a discovery: cached records are reused, new ones inserted,
// records whose files vanished are evicted, and readiness is re-aggregated.
func (g *Group) Apply(ctx context.Context, disc Discovery) error {
	if disc.Folder != g.Path {
		return fmt.Errorf("discovery for %s applied to group %s", disc.Folder, g.Path)
	}
	previous := make(map[record.ID]struct{})
	for _, ids := range g.Files {
		for _, id := range ids {
			previous[id] = struct{}{}
		}
	}

	buckets := emptyBuckets()
	var jobs []record.ID
	created := 0
	for _, found := range disc.Files {
		rec, isNew, err := g.install(ctx, found)
		if err != nil {
			return err
		}
		if isNew {
			created++
		}
		id := rec.ID()
		delete(previous, id)
		buckets[found.Kind] = append(buckets[found.Kind], id)
		if found.Kind == filekind.Recording {
			jobs = append(jobs, id)
		}
	}
	for id := range previous {
		g.deps.Cache.Evict(id)
	}
	unbound := g.dropDanglingMarkers(jobs)

	g.Files = buckets
	g.Jobs = jobs
	g.ContainsRequired = len(g.MissingRoles()) == 0
	g.loaded = true

	logger := logging.WithContext(ctx, g.logger)
	logger.Debug("group applied",
		logging.Int("recordings", len(jobs)),
		logging.Int("new_records", created),
		logging.Int("evicted", len(previous)),
		logging.Int("unbound_markers", unbound),
		logging.Bool("contains_required", g.ContainsRequired),
	)
	g.AggregateReadiness()
	return nil
}

// dropDanglingMarkers unbinds marker IDs that no longer resolve in the cache
// so a recording whose marker file vanished reads as missing its markers.
func (g *Group) dropDanglingMarkers(jobs []record.ID) int {
	dropped := 0
	for _, id := range jobs {
		rec, ok := g.deps.Cache.Recording(id)
		if !ok {
			continue
		}
		bound := rec.Markers()
		kept := slices.DeleteFunc(slices.Clone(bound), func(marker record.ID) bool {
			_, ok := g.deps.Cache.Get(marker)
			return !ok
		})
		if len(kept) != len(bound) {
			dropped += len(bound) - len(kept)
			rec.SetMarkers(kept)
		}
	}
	return dropped
}

func (g *Group) install(ctx context.Context, found Found) (record.Record, bool, error) {
	id := g.deps.Cache.NodeID(found.Path)
	if rec, ok := g.deps.Cache.Get(id); ok && rec.Kind() == found.Kind {
		return rec, false, nil
	}

	var rec record.Record
	if found.Kind == filekind.Recording {
		info := found.Info
		if !found.Parsed {
			// The cached record was evicted or changed role between phases.
			parsed, err := g.deps.Reader.Read(ctx, found.Path)
			if err != nil {
				return nil, false, fmt.Errorf("read header %s: %w", found.Path, err)
			}
			info = parsed
		}
		recording := record.NewRecording(id, found.Path, info)
		if g.deps.Restore != nil {
			g.deps.Restore(recording)
		}
		rec = recording
	} else {
		rec = record.NewFile(id, found.Path, found.Kind)
	}
	rec.SetGroup(g.ID)
	rec.SetHooks(g.deps.Hooks)
	g.deps.Cache.Put(rec)
	return rec, true, nil
}

// Load discovers and applies in one step.
func (g *Group) Load(ctx context.Context) error {
	disc, err := g.Discover(ctx)
	if err != nil {
		return err
	}
	return g.Apply(ctx, disc)
}
