package group

import (
	"errors"
	"fmt"
	"strings"

	"bidsprep/internal/filekind"
	"bidsprep/internal/header"
	"bidsprep/internal/record"
)

// ErrIncompleteGroup is returned when assembly is attempted on a group that is
// not Ready.
var ErrIncompleteGroup = errors.New("group is not ready")

// IncompleteGroupError carries why a group is not Ready.
type IncompleteGroupError struct {
	Group        string
	MissingRoles []filekind.Kind
	Failures     []*record.ValidationFailure
}

func (e *IncompleteGroupError) Error() string {
	var parts []string
	if len(e.MissingRoles) > 0 {
		roles := make([]string, len(e.MissingRoles))
		for i, kind := range e.MissingRoles {
			roles[i] = kind.String()
		}
		parts = append(parts, "missing "+strings.Join(roles, ", "))
	}
	if len(e.Failures) > 0 {
		details := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			details[i] = f.Error()
		}
		parts = append(parts, fmt.Sprintf("%d invalid recording(s) (%s)", len(e.Failures), strings.Join(details, "; ")))
	}
	if len(parts) == 0 {
		parts = append(parts, "not loaded")
	}
	return fmt.Sprintf("%s: %s: %s", ErrIncompleteGroup, e.Group, strings.Join(parts, "; "))
}

func (e *IncompleteGroupError) Unwrap() error { return ErrIncompleteGroup }

// ErrorKind classifies the failure for reporting.
func (e *IncompleteGroupError) ErrorKind() string { return "incomplete_group" }

// Stimulus encodings.
const (
	StimChannel  = "channel"
	StimBinary   = "binary"
	SlopeRising  = "+"
	SlopeFalling = "-"

	ManufacturerModel = "KIT-160"
	EmptyRoomRun      = "emptyroom"
	EmptyRoomTask     = "noise"
)

// Defaults fill metadata a group does not carry itself.
type Defaults struct {
	Institution   string
	ProjectName   string
	DewarPosition string
}

// Job is the assembly input for one recording.
type Job struct {
	ID          string           `json:"id" jsonschema:"required"`
	Path        string           `json:"path" jsonschema:"required"`
	Task        string           `json:"task" jsonschema:"required"`
	Run         string           `json:"run" jsonschema:"required"`
	EmptyRoom   bool             `json:"empty_room"`
	Markers     []string         `json:"markers" jsonschema:"description=Marker (.mrk) files bound to the recording"`
	Digitizer   string           `json:"digitizer" jsonschema:"description=Digitized points file (.elp)"`
	HeadShape   string           `json:"head_shape" jsonschema:"description=Head shape file (.hsp)"`
	Triggers    []header.Trigger `json:"triggers"`
	StimCode    string           `json:"stim_code" jsonschema:"required,enum=channel,enum=binary"`
	Slope       string           `json:"slope" jsonschema:"required,enum=+,enum=-"`
	BadChannels []string         `json:"bad_channels"`
	Extra       map[string]any   `json:"extra"`
}

// Subject is the subject block of a bundle.
type Subject struct {
	ID        string `json:"id" jsonschema:"required"`
	Birthdate string `json:"birthdate,omitempty" jsonschema:"format=date"`
	Sex       int    `json:"sex" jsonschema:"required,enum=0,enum=1,enum=2,description=0 unknown / 1 male / 2 female"`
}

// Bundle is everything the archival writer needs for one group.
type Bundle struct {
	Group   string  `json:"group" jsonschema:"required"`
	Project string  `json:"project"`
	Subject Subject `json:"subject" jsonschema:"required"`
	Jobs    []Job   `json:"jobs" jsonschema:"required"`
}

// AssembleInputs builds the assembly bundle for a Ready group. Junk
// recordings are left out. Each recording's Extra map is refreshed.
func (g *Group) AssembleInputs(defaults Defaults) (Bundle, error) {
	if !g.Ready {
		return Bundle{}, &IncompleteGroupError{
			Group:        g.Path,
			MissingRoles: g.MissingRoles(),
			Failures:     g.Failures(),
		}
	}

	digitizer := firstPath(g.Records(filekind.Digitizer))
	headShape := firstPath(g.Records(filekind.HeadShape))
	dewar := g.Meta.DewarPosition
	if dewar == "" {
		dewar = defaults.DewarPosition
	}
	project := g.Meta.Project
	if project == "" {
		project = defaults.ProjectName
	}

	bundle := Bundle{
		Group:   g.Path,
		Project: project,
		Subject: Subject{
			ID:        g.Meta.SubjectID,
			Birthdate: g.Meta.Birthdate.String(),
			Sex:       g.Meta.Sex.Code(),
		},
	}
	for _, rec := range g.Recordings() {
		if rec.Junk() {
			continue
		}
		job, err := g.job(rec, digitizer, headShape)
		if err != nil {
			return Bundle{}, err
		}
		institution := rec.Info.Get(header.KeyInstitution)
		if institution == "" {
			institution = defaults.Institution
		}
		rec.Extra = map[string]any{
			"InstitutionName":        institution,
			"ManufacturersModelName": ManufacturerModel,
			"DewarPosition":          dewar,
			"Name":                   project,
			"DeviceSerialNumber":     rec.Info.Get(header.KeySerialNumber),
		}
		job.Extra = rec.Extra
		bundle.Jobs = append(bundle.Jobs, job)
	}
	return bundle, nil
}

func (g *Group) job(rec *record.Recording, digitizer, headShape string) (Job, error) {
	job := Job{
		ID:          string(rec.ID()),
		Path:        rec.Path(),
		Task:        rec.Task(),
		Run:         rec.Run(),
		EmptyRoom:   rec.EmptyRoom(),
		Digitizer:   digitizer,
		HeadShape:   headShape,
		Triggers:    append([]header.Trigger(nil), rec.Info.Triggers...),
		BadChannels: append([]string(nil), rec.Info.BadChannels...),
		StimCode:    StimBinary,
		Slope:       SlopeFalling,
	}
	if len(job.Triggers) > 0 {
		job.StimCode = StimChannel
		job.Slope = SlopeRising
	}
	for _, id := range rec.Markers() {
		marker, ok := g.deps.Cache.Get(id)
		if !ok {
			return Job{}, fmt.Errorf("recording %s: marker %s is no longer loaded", rec.Path(), id)
		}
		job.Markers = append(job.Markers, marker.Path())
	}
	if rec.EmptyRoom() {
		job.Run = EmptyRoomRun
		job.Task = EmptyRoomTask
	}
	return job, nil
}

func firstPath(records []record.Record) string {
	if len(records) == 0 {
		return ""
	}
	return records[0].Path()
}
