package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"bidsprep/internal/assemble"
	"bidsprep/internal/association"
	"bidsprep/internal/cache"
	"bidsprep/internal/config"
	"bidsprep/internal/events"
	"bidsprep/internal/filekind"
	"bidsprep/internal/group"
	"bidsprep/internal/header"
	"bidsprep/internal/listing"
	"bidsprep/internal/logging"
	"bidsprep/internal/record"
	"bidsprep/internal/store"
)

// Options configures a session. Only Config is required.
type Options struct {
	Config    *config.Config
	Logger    *slog.Logger
	Lister    listing.Lister
	Classify  filekind.Classifier
	Reader    header.Reader
	Sink      events.Sink
	Prompter  association.Prompter
	Assembler assemble.Assembler
	// Store overrides the database opened from Config. The session does not
	// close a store it was given.
	Store *store.Store
}

// Session is one bidsprep run.
type Session struct {
	mu     sync.Mutex
	id     string
	cfg    *config.Config
	base   *slog.Logger
	logger *slog.Logger

	cache     *cache.RecordCache
	groups    map[string]*group.Group
	byID      map[record.ID]*group.Group
	engine    *association.Engine
	sink      events.Sink
	assembler assemble.Assembler

	lister   listing.Lister
	classify filekind.Classifier
	reader   header.Reader

	store      *store.Store
	ownsStore  bool
	savedRecs  map[string]store.Recording
	savedGroup map[string]store.Group

	lock   *flock.Flock
	jobs   chan loadJob
	quit   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Open creates a session, takes the state lock, restores persisted edits and
// starts the loader pool.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("session requires a config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		cache:     cache.New(),
		groups:    make(map[string]*group.Group),
		byID:      make(map[record.ID]*group.Group),
		sink:      opts.Sink,
		assembler: opts.Assembler,
		lister:    opts.Lister,
		classify:  opts.Classify,
		reader:    opts.Reader,
		store:     opts.Store,
		lock:      lock,
	}
	if s.sink == nil {
		s.sink = events.Nop{}
	}
	if s.assembler == nil {
		s.assembler = assemble.ManifestWriter{OutputDir: cfg.Paths.OutputDir, Checksums: true}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s.base = logger.With(logging.String(logging.FieldSessionID, s.id))
	s.logger = logging.NewComponentLogger(s.base, "session")

	if s.store == nil {
		st, err := store.Open(cfg)
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.store = st
		s.ownsStore = true
	}
	if err := s.restore(ctx); err != nil {
		s.release()
		return nil, err
	}

	s.engine = association.New(s, opts.Prompter, cfg.Association, s.base)
	s.startWorkers(cfg.Loader.Workers)
	s.logger.Debug("session opened",
		logging.String("state", cfg.StatePath()),
		logging.Int("workers", cfg.Loader.Workers),
		logging.Int("saved_recordings", len(s.savedRecs)),
	)
	return s, nil
}

func (s *Session) restore(ctx context.Context) error {
	recs, err := s.store.Recordings(ctx)
	if err != nil {
		return fmt.Errorf("restore recordings: %w", err)
	}
	groups, err := s.store.Groups(ctx)
	if err != nil {
		return fmt.Errorf("restore groups: %w", err)
	}
	s.savedRecs = recs
	s.savedGroup = groups
	return nil
}

// ID returns the session identifier used in logs and scan history.
func (s *Session) ID() string { return s.id }

// Context returns ctx annotated with the session ID for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	return logging.WithSessionID(ctx, s.id)
}

// Close stops the loader pool, closes the store if the session opened it and
// releases the state lock.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
	return s.release()
}

func (s *Session) release() error {
	var errs []error
	if s.ownsStore {
		errs = append(errs, s.store.Close())
	}
	if err := s.lock.Unlock(); err != nil {
		logging.WarnWithContext(s.logger, "failed to release state lock", "lock_release_failed", logging.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidityChanged forwards record verdicts to the sink. It runs under the
// session lock.
func (s *Session) ValidityChanged(id record.ID, v record.Validity) {
	s.sink.ValidityChanged(id, v)
}

// PostValidate re-aggregates the owning group. It runs under the session
// lock.
func (s *Session) PostValidate(groupID record.ID) {
	if g, ok := s.byID[groupID]; ok {
		g.AggregateReadiness()
	}
}

// Record resolves a node ID for the association engine.
func (s *Session) Record(id record.ID) (record.Record, bool) {
	rec, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	if _, loaded := s.byID[rec.Group()]; !loaded {
		return nil, false
	}
	return rec, true
}

// RecordingsIn returns the loaded recordings of folder.
func (s *Session) RecordingsIn(folder string) []*record.Recording {
	g, ok := s.groups[folder]
	if !ok {
		return nil
	}
	return g.Recordings()
}

func (s *Session) groupDeps() group.Deps {
	return group.Deps{
		Lister:   s.lister,
		Classify: s.classify,
		Reader:   s.reader,
		Cache:    s.cache,
		Sink:     s.sink,
		Hooks:    s,
		Logger:   s.base,
		Restore:  s.restoreRecording,
	}
}
