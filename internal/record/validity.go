package record

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Verdict is the coarse validation outcome.
type Verdict int

const (
	Unknown Verdict = iota
	Good
	Bad
)

func (v Verdict) String() string {
	switch v {
	case Good:
		return "good"
	case Bad:
		return "bad"
	default:
		return "unknown"
	}
}

// BadField is a field holding a disallowed value.
type BadField struct {
	Field string
	Value string
}

func (b BadField) String() string {
	return fmt.Sprintf("%s=%q", b.Field, b.Value)
}

// Validity is the verdict plus the required fields that caused a Bad verdict.
// Warnings lists optional fields holding disallowed values; they never make a
// record Bad.
type Validity struct {
	Verdict  Verdict
	Reasons  []BadField
	Warnings []BadField
}

func (v Validity) IsGood() bool { return v.Verdict == Good }

// Fields returns the names of the offending required fields.
func (v Validity) Fields() []string {
	out := make([]string, 0, len(v.Reasons))
	for _, r := range v.Reasons {
		out = append(out, r.Field)
	}
	return out
}

// Equal reports whether two verdicts carry the same outcome and reasons.
func (v Validity) Equal(other Validity) bool {
	return v.Verdict == other.Verdict &&
		slices.Equal(v.Reasons, other.Reasons) &&
		slices.Equal(v.Warnings, other.Warnings)
}

func (v Validity) String() string {
	if v.Verdict != Bad {
		return v.Verdict.String()
	}
	return "bad(" + strings.Join(v.Fields(), ",") + ")"
}

// ValidationFailure describes a recording that is not Good as an error, for
// example when refusing an export.
type ValidationFailure struct {
	Path    string
	Reasons []BadField
}

func (e *ValidationFailure) Error() string {
	if len(e.Reasons) == 0 {
		return filepath.Base(e.Path) + ": not validated"
	}
	parts := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		parts = append(parts, r.String())
	}
	return filepath.Base(e.Path) + ": " + strings.Join(parts, ", ")
}

// Failure returns the verdict as a *ValidationFailure for the record at path,
// or nil when the verdict is Good.
func (v Validity) Failure(path string) *ValidationFailure {
	if v.IsGood() {
		return nil
	}
	return &ValidationFailure{Path: path, Reasons: slices.Clone(v.Reasons)}
}

func (e *ValidationFailure) ErrorKind() string { return "validation" }
