package association

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"bidsprep/internal/config"
	"bidsprep/internal/filekind"
	"bidsprep/internal/logging"
	"bidsprep/internal/record"
)

// Mode is the engine's selection mode.
type Mode int

const (
	Normal Mode = iota
	AwaitingMarkerPick
	AwaitingRecordingPick
)

func (m Mode) String() string {
	switch m {
	case AwaitingMarkerPick:
		return "awaiting_marker_pick"
	case AwaitingRecordingPick:
		return "awaiting_recording_pick"
	default:
		return "normal"
	}
}

// Catalog resolves node IDs to loaded records.
type Catalog interface {
	// Record returns a record only once its group load has been applied.
	Record(id record.ID) (record.Record, bool)
	// RecordingsIn returns every loaded recording in folder.
	RecordingsIn(folder string) []*record.Recording
}

// Prompter talks to the operator.
type Prompter interface {
	// Instruct tells the operator which role to pick next.
	Instruct(want filekind.Kind)
	// RetryOrCancel reports a refused pick; true means retry.
	RetryOrCancel(err error) bool
}

// Outcome is the result of one engine call.
type Outcome struct {
	Committed bool
	Mode      Mode
	Reason    Reason
	Err       error
	// Changed lists recordings whose fields were modified.
	Changed []record.ID
}

// Engine tracks the operator's selection and the pending gesture.
type Engine struct {
	catalog  Catalog
	prompter Prompter
	settings config.Association
	logger   *slog.Logger

	mode     Mode
	anchor   []record.ID
	previous []record.ID
	current  []record.ID
}

// New returns an engine in Normal mode. A nil prompter cancels every refused
// pick.
func New(catalog Catalog, prompter Prompter, settings config.Association, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if settings.MaxMarkers < 1 {
		settings.MaxMarkers = 1
	}
	return &Engine{
		catalog:  catalog,
		prompter: prompter,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "association"),
	}
}

func (e *Engine) Mode() Mode                     { return e.mode }
func (e *Engine) Anchor() []record.ID            { return slices.Clone(e.anchor) }
func (e *Engine) Selection() []record.ID         { return slices.Clone(e.current) }
func (e *Engine) PreviousSelection() []record.ID { return slices.Clone(e.previous) }

// Select replaces the current selection. The prior one is kept so a refused
// pick can be reverted.
func (e *Engine) Select(ids ...record.ID) {
	e.previous = e.current
	e.current = slices.Clone(ids)
}

// Associate advances the two-phase gesture with the current selection.
func (e *Engine) Associate() Outcome {
	recs, kind, err := e.resolve(e.current)
	if err != nil {
		return e.refuseWithoutPrompt(err)
	}
	switch e.mode {
	case AwaitingMarkerPick:
		return e.completeMarkerPick(recs, kind)
	case AwaitingRecordingPick:
		return e.completeRecordingPick(recs, kind)
	default:
		return e.begin(recs, kind)
	}
}

func (e *Engine) begin(recs []record.Record, kind filekind.Kind) Outcome {
	switch kind {
	case filekind.Marker:
		if err := e.checkMarkers(recs, ""); err != nil {
			return e.fail(err)
		}
		e.anchorOn(recs, AwaitingRecordingPick)
		e.instruct(filekind.Recording)
	case filekind.Recording:
		e.anchorOn(recs, AwaitingMarkerPick)
		e.instruct(filekind.Marker)
	case filekind.Unclassified:
		return e.fail(&MixedSelectionError{Kinds: kinds(recs)})
	default:
		return e.fail(&GuardError{Reason: ReasonWrongRole, Detail: fmt.Sprintf("cannot associate %s files", kind)})
	}
	return Outcome{Mode: e.mode}
}

func (e *Engine) completeMarkerPick(markers []record.Record, kind filekind.Kind) Outcome {
	if kind != filekind.Marker {
		return e.fail(wrongRole(filekind.Marker, kind))
	}
	anchor, _, err := e.resolve(e.anchor)
	if err != nil {
		return e.fail(err)
	}
	targets, err := asRecordings(anchor)
	if err != nil {
		return e.fail(err)
	}
	folder := filepath.Dir(targets[0].Path())
	for _, rec := range targets[1:] {
		if filepath.Dir(rec.Path()) != folder {
			return e.fail(&GuardError{Reason: ReasonNotColocated, Detail: "anchored recordings span folders"})
		}
	}
	if err := e.checkMarkers(markers, folder); err != nil {
		return e.fail(err)
	}
	return e.commit(bind(targets, ids(markers)))
}

func (e *Engine) completeRecordingPick(recs []record.Record, kind filekind.Kind) Outcome {
	if kind != filekind.Recording {
		return e.fail(wrongRole(filekind.Recording, kind))
	}
	markers, _, err := e.resolve(e.anchor)
	if err != nil {
		return e.fail(err)
	}
	targets, err := asRecordings(recs)
	if err != nil {
		return e.fail(err)
	}
	folder := filepath.Dir(markers[0].Path())
	for _, rec := range targets {
		if filepath.Dir(rec.Path()) != folder {
			return e.fail(&GuardError{Reason: ReasonNotColocated, Detail: rec.Path()})
		}
	}
	return e.commit(bind(targets, slices.Clone(e.anchor)))
}

// AssociateWithAll binds the selected markers to every recording in their
// folder. It never changes mode.
func (e *Engine) AssociateWithAll() Outcome {
	if e.mode != Normal {
		return Outcome{Mode: e.mode, Reason: ReasonBusy, Err: &GuardError{Reason: ReasonBusy}}
	}
	markers, kind, err := e.resolve(e.current)
	if err != nil {
		return e.refuseWithoutPrompt(err)
	}
	if kind != filekind.Marker {
		if kind == filekind.Unclassified {
			return e.fail(&MixedSelectionError{Kinds: kinds(markers)})
		}
		return e.fail(wrongRole(filekind.Marker, kind))
	}
	if err := e.checkMarkers(markers, ""); err != nil {
		return e.fail(err)
	}
	targets := e.catalog.RecordingsIn(filepath.Dir(markers[0].Path()))
	if len(targets) == 0 {
		return Outcome{Mode: e.mode, Reason: ReasonNoTargets}
	}
	changed := bind(targets, ids(markers))
	e.logger.Info("markers associated with folder",
		logging.Int("markers", len(markers)),
		logging.Int("recordings", len(changed)),
	)
	return Outcome{Committed: true, Mode: e.mode, Changed: changed}
}

// SetJunk marks every selected recording as junk or includes it again.
func (e *Engine) SetJunk(junk bool) Outcome {
	recs, kind, err := e.resolve(e.current)
	if err != nil {
		return e.refuseWithoutPrompt(err)
	}
	if kind != filekind.Recording {
		err := wrongRole(filekind.Recording, kind)
		return Outcome{Mode: e.mode, Reason: reasonOf(err), Err: err}
	}
	targets, err := asRecordings(recs)
	if err != nil {
		return Outcome{Mode: e.mode, Reason: reasonOf(err), Err: err}
	}
	changed := make([]record.ID, 0, len(targets))
	for _, r := range targets {
		r.SetJunk(junk)
		r.Validate()
		changed = append(changed, r.ID())
	}
	return Outcome{Committed: true, Mode: e.mode, Changed: changed}
}

// Cancel abandons a pending gesture.
func (e *Engine) Cancel() Outcome {
	if e.mode == Normal {
		return Outcome{Mode: Normal}
	}
	e.reset()
	return Outcome{Mode: Normal, Reason: ReasonCancelled}
}

func (e *Engine) anchorOn(recs []record.Record, mode Mode) {
	e.anchor = ids(recs)
	e.mode = mode
	e.logger.Debug("association anchored",
		logging.String(logging.FieldMode, mode.String()),
		logging.Int("anchor", len(e.anchor)),
	)
}

func (e *Engine) instruct(want filekind.Kind) {
	if e.settings.ShowInstructions && e.prompter != nil {
		e.prompter.Instruct(want)
	}
}

func (e *Engine) commit(changed []record.ID) Outcome {
	e.logger.Info("association committed",
		logging.String(logging.FieldMode, e.mode.String()),
		logging.Int("recordings", len(changed)),
	)
	e.anchor = nil
	e.mode = Normal
	return Outcome{Committed: true, Mode: Normal, Changed: changed}
}

// fail reports err to the operator. Retry keeps the pending gesture; cancel
// reverts the selection and returns to Normal.
func (e *Engine) fail(err error) Outcome {
	retry := e.prompter != nil && e.prompter.RetryOrCancel(err)
	logging.WarnWithContext(e.logger, "association refused", "association_refused",
		logging.String("reason", string(reasonOf(err))),
		logging.String(logging.FieldMode, e.mode.String()),
		logging.Bool("retry", retry),
		logging.Error(err),
	)
	if e.mode == Normal || !retry {
		e.current = e.previous
		e.reset()
	}
	return Outcome{Mode: e.mode, Reason: reasonOf(err), Err: err}
}

func (e *Engine) refuseWithoutPrompt(err error) Outcome {
	return Outcome{Mode: e.mode, Reason: reasonOf(err), Err: err}
}

func (e *Engine) reset() {
	e.anchor = nil
	e.mode = Normal
}

// resolve looks up every selected record. The returned kind is the shared
// role, or Unclassified when the selection mixes roles.
func (e *Engine) resolve(sel []record.ID) ([]record.Record, filekind.Kind, error) {
	if len(sel) == 0 {
		return nil, filekind.Unclassified, &GuardError{Reason: ReasonEmpty}
	}
	recs := make([]record.Record, 0, len(sel))
	for _, id := range sel {
		rec, ok := e.catalog.Record(id)
		if !ok {
			return nil, filekind.Unclassified, fmt.Errorf("%w: %s", ErrNotReady, id)
		}
		recs = append(recs, rec)
	}
	kind := recs[0].Kind()
	for _, rec := range recs[1:] {
		if rec.Kind() != kind {
			return recs, filekind.Unclassified, nil
		}
	}
	return recs, kind, nil
}

// checkMarkers enforces co-location and cardinality. When folder is set the
// markers must live there as well.
func (e *Engine) checkMarkers(markers []record.Record, folder string) error {
	if len(markers) > e.settings.MaxMarkers {
		return &GuardError{
			Reason: ReasonTooManyMarkers,
			Detail: fmt.Sprintf("%d selected, at most %d allowed", len(markers), e.settings.MaxMarkers),
		}
	}
	if folder == "" {
		folder = filepath.Dir(markers[0].Path())
	}
	for _, m := range markers {
		if filepath.Dir(m.Path()) != folder {
			return &GuardError{Reason: ReasonNotColocated, Detail: m.Path()}
		}
	}
	return nil
}

// bind replaces the marker list of every target and re-validates it. Guards
// have already passed, so every target is updated.
func bind(targets []*record.Recording, markers []record.ID) []record.ID {
	changed := make([]record.ID, 0, len(targets))
	for _, rec := range targets {
		rec.SetMarkers(markers)
		rec.Validate()
		changed = append(changed, rec.ID())
	}
	return changed
}

func wrongRole(want, got filekind.Kind) error {
	return &GuardError{Reason: ReasonWrongRole, Detail: fmt.Sprintf("expected %s files, got %s", want, got)}
}

func asRecordings(recs []record.Record) ([]*record.Recording, error) {
	out := make([]*record.Recording, 0, len(recs))
	for _, rec := range recs {
		r, ok := rec.(*record.Recording)
		if !ok {
			return nil, wrongRole(filekind.Recording, rec.Kind())
		}
		out = append(out, r)
	}
	return out, nil
}

func ids(recs []record.Record) []record.ID {
	out := make([]record.ID, len(recs))
	for i, rec := range recs {
		out[i] = rec.ID()
	}
	return out
}

func kinds(recs []record.Record) []filekind.Kind {
	var out []filekind.Kind
	for _, rec := range recs {
		if !slices.Contains(out, rec.Kind()) {
			out = append(out, rec.Kind())
		}
	}
	slices.Sort(out)
	return out
}
