package record

import (
	"fmt"
	"path/filepath"

	"bidsprep/internal/filekind"
)

// ID is a stable node identifier, unique within a session.
type ID string

// Hooks is the back-channel from a record to whatever owns it. The session
// implements it: ValidityChanged feeds the view sink, PostValidate asks the
// owning group to re-aggregate readiness.
type Hooks interface {
	ValidityChanged(id ID, v Validity)
	PostValidate(group ID)
}

// Record is the behaviour shared by every file type.
type Record interface {
	ID() ID
	Path() string
	Kind() filekind.Kind
	Group() ID
	Validity() Validity
	CheckComplete() Validity
	Copy(newID ID) Record
	SetGroup(group ID)
	SetHooks(h Hooks)
}

// File is the base record for any classified file.
type File struct {
	id       ID
	path     string
	kind     filekind.Kind
	group    ID
	model    ValidationModel
	validity Validity
	hooks    Hooks
}

// NewFile creates a record with an empty validation model. Files without
// tracked fields validate as Good.
func NewFile(id ID, path string, kind filekind.Kind) *File {
	return &File{
		id:    id,
		path:  filepath.Clean(path),
		kind:  kind,
		model: NewValidationModel(),
	}
}

func (f *File) ID() ID                 { return f.id }
func (f *File) Path() string           { return f.path }
func (f *File) Dir() string            { return filepath.Dir(f.path) }
func (f *File) Kind() filekind.Kind    { return f.kind }
func (f *File) Group() ID              { return f.group }
func (f *File) Validity() Validity     { return f.validity }
func (f *File) Model() ValidationModel { return f.model }
func (f *File) SetGroup(group ID)      { f.group = group }
func (f *File) SetHooks(h Hooks)       { f.hooks = h }

// SetModel replaces the validation model. The verdict is not recomputed.
func (f *File) SetModel(m ValidationModel) { f.model = m }

// FieldValue reads a tracked field by name.
func (f *File) FieldValue(field string) (string, error) {
	switch field {
	case "path":
		return f.path, nil
	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}

// CheckComplete evaluates the validation model and stores the verdict.
func (f *File) CheckComplete() Validity {
	return f.check(f.FieldValue, nil)
}

func (f *File) check(read fieldReader, skip func(string) bool) Validity {
	f.setValidity(f.model.evaluate(read, skip))
	return f.validity
}

func (f *File) setValidity(v Validity) {
	if f.validity.Equal(v) {
		return
	}
	f.validity = v
	if f.hooks != nil {
		f.hooks.ValidityChanged(f.id, v)
	}
}

// Copy returns a File with the same path, kind and model under a new ID. The
// copy starts Unknown and is validated on its own.
func (f *File) Copy(newID ID) Record {
	dup := f.clone(newID)
	dup.CheckComplete()
	return dup
}

func (f *File) clone(newID ID) *File {
	return &File{
		id:    newID,
		path:  f.path,
		kind:  f.kind,
		group: f.group,
		model: f.model.Clone(),
	}
}

func (f *File) String() string {
	return fmt.Sprintf("<%s %s %s>", f.kind, f.id, f.path)
}
