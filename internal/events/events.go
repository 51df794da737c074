// Package events is the boundary to whatever renders file and folder state.
package events

import (
	"log/slog"
	"sync"

	"bidsprep/internal/logging"
	"bidsprep/internal/record"
)

// Sink receives validity and readiness changes. Calls arrive on the goroutine
// that holds the session lock and must not block.
type Sink interface {
	ValidityChanged(id record.ID, v record.Validity)
	ReadinessChanged(group record.ID, ready bool)
}

// Nop discards every event.
type Nop struct{}

func (Nop) ValidityChanged(record.ID, record.Validity) {}
func (Nop) ReadinessChanged(record.ID, bool)           {}

// Kind identifies an event in a Recorder log.
type Kind string

const (
	KindValidity  Kind = "validity"
	KindReadiness Kind = "readiness"
)

// Event is one recorded notification.
type Event struct {
	Kind     Kind
	ID       record.ID
	Validity record.Validity
	Ready    bool
}

// Recorder keeps every event in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) ValidityChanged(id record.ID, v record.Validity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: KindValidity, ID: id, Validity: v})
}

func (r *Recorder) ReadinessChanged(group record.ID, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: KindReadiness, ID: group, Ready: ready})
}

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns the recorded events of one kind.
func (r *Recorder) Filter(kind Kind) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Logger writes events to a structured logger at debug level, and readiness
// flips at info.
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a sink that logs through logger.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Logger{log: logging.NewComponentLogger(logger, "events")}
}

func (l *Logger) ValidityChanged(id record.ID, v record.Validity) {
	l.log.Debug("validity changed",
		logging.String(logging.FieldRecordID, string(id)),
		logging.String("validity", v.String()),
	)
}

func (l *Logger) ReadinessChanged(group record.ID, ready bool) {
	l.log.Info("group readiness changed",
		logging.String(logging.FieldGroup, string(group)),
		logging.Bool("ready", ready),
	)
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) ValidityChanged(id record.ID, v record.Validity) {
	for _, s := range f {
		s.ValidityChanged(id, v)
	}
}

func (f Fanout) ReadinessChanged(group record.ID, ready bool) {
	for _, s := range f {
		s.ReadinessChanged(group, ready)
	}
}
