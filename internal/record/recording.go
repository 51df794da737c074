package record

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"bidsprep/internal/filekind"
	"bidsprep/internal/header"
)

// Tracked recording fields.
const (
	FieldTask      = "task"
	FieldRun       = "run"
	FieldMarkers   = "hpi"
	FieldJunk      = "is_junk"
	FieldEmptyRoom = "is_empty_room"
)

// EmptyRoomToken marks a recording captured without a subject.
const EmptyRoomToken = "emptyroom"

// Recording is a continuous acquisition file: the unit that is exported.
type Recording struct {
	File

	task      string
	run       string
	junk      bool
	emptyRoom bool
	markers   []ID

	// Info is the parsed header. Extra is filled in at assembly time.
	Info  header.Info
	Extra map[string]any
}

// NewRecording creates a recording with the standard required fields. Files
// whose name contains "emptyroom" start classified as empty-room captures.
func NewRecording(id ID, path string, info header.Info) *Recording {
	r := &Recording{
		File: *NewFile(id, path, filekind.Recording),
		Info: info,
	}
	r.model.Require(FieldTask, "")
	r.model.Require(FieldRun, "")
	r.model.Require(FieldMarkers, "")
	if strings.Contains(strings.ToLower(filepath.Base(path)), EmptyRoomToken) {
		r.emptyRoom = true
	}
	return r
}

func (r *Recording) Task() string    { return r.task }
func (r *Recording) Run() string     { return r.run }
func (r *Recording) Junk() bool      { return r.junk }
func (r *Recording) EmptyRoom() bool { return r.emptyRoom }

// Markers returns a copy of the bound marker IDs in binding order.
func (r *Recording) Markers() []ID { return slices.Clone(r.markers) }

func (r *Recording) SetTask(task string)         { r.task = strings.TrimSpace(task) }
func (r *Recording) SetRun(run string)           { r.run = strings.TrimSpace(run) }
func (r *Recording) SetJunk(junk bool)           { r.junk = junk }
func (r *Recording) SetEmptyRoom(emptyRoom bool) { r.emptyRoom = emptyRoom }

// SetMarkers replaces the bound marker list.
func (r *Recording) SetMarkers(ids []ID) { r.markers = slices.Clone(ids) }

// FieldValue reads a tracked field by name.
func (r *Recording) FieldValue(field string) (string, error) {
	switch field {
	case FieldTask:
		return r.task, nil
	case FieldRun:
		return r.run, nil
	case FieldMarkers:
		parts := make([]string, len(r.markers))
		for i, id := range r.markers {
			parts[i] = string(id)
		}
		return strings.Join(parts, ","), nil
	case FieldJunk:
		return strconv.FormatBool(r.junk), nil
	case FieldEmptyRoom:
		return strconv.FormatBool(r.emptyRoom), nil
	default:
		return r.File.FieldValue(field)
	}
}

// exempt reports whether field is skipped because the recording is junk or an
// empty-room capture.
func (r *Recording) exempt(field string) bool {
	if !r.junk && !r.emptyRoom {
		return false
	}
	switch field {
	case FieldTask, FieldRun, FieldMarkers:
		return true
	default:
		return false
	}
}

// CheckComplete evaluates the recording's fields and stores the verdict.
func (r *Recording) CheckComplete() Validity {
	return r.check(r.FieldValue, r.exempt)
}

// Validate checks the record and then lets the owning group re-aggregate.
func (r *Recording) Validate() Validity {
	v := r.CheckComplete()
	r.PostValidate()
	return v
}

// PostValidate notifies the owning group that this record's verdict may have
// changed.
func (r *Recording) PostValidate() {
	if r.hooks != nil && r.group != "" {
		r.hooks.PostValidate(r.group)
	}
}

// Copy returns a recording sharing path, header and classification under a
// new ID. Validity is recomputed for the copy.
func (r *Recording) Copy(newID ID) Record {
	dup := &Recording{
		File:      *r.File.clone(newID),
		task:      r.task,
		run:       r.run,
		junk:      r.junk,
		emptyRoom: r.emptyRoom,
		markers:   slices.Clone(r.markers),
		Info:      r.Info.Clone(),
	}
	dup.CheckComplete()
	return dup
}
