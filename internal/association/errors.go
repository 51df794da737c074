package association

import (
	"errors"
	"fmt"
	"strings"

	"bidsprep/internal/filekind"
)

// Reason is a machine-readable code for a refused gesture.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotColocated   Reason = "not_colocated"
	ReasonTooManyMarkers Reason = "too_many_markers"
	ReasonWrongRole      Reason = "wrong_role"
	ReasonMixed          Reason = "mixed_selection"
	ReasonNotReady       Reason = "not_ready"
	ReasonEmpty          Reason = "empty_selection"
	ReasonBusy           Reason = "gesture_pending"
	ReasonNoTargets      Reason = "no_recordings"
	ReasonCancelled      Reason = "cancelled"
)

var (
	// ErrGuardFailure marks a pick that violates an association guard.
	ErrGuardFailure = errors.New("association guard failed")
	// ErrMixedSelection marks a selection holding more than one role.
	ErrMixedSelection = errors.New("selection mixes file roles")
	// ErrNotReady marks a selection referencing records that are still loading.
	ErrNotReady = errors.New("selection is not loaded yet")
)

// GuardError describes a failed guard.
type GuardError struct {
	Reason Reason
	Detail string
}

func (e *GuardError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrGuardFailure, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrGuardFailure, e.Reason, e.Detail)
}

func (e *GuardError) Unwrap() error { return ErrGuardFailure }

// ErrorKind classifies the failure for reporting.
func (e *GuardError) ErrorKind() string { return string(e.Reason) }

// MixedSelectionError lists the roles found in a heterogeneous selection.
type MixedSelectionError struct {
	Kinds []filekind.Kind
}

func (e *MixedSelectionError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = k.String()
	}
	return fmt.Sprintf("%s: %s", ErrMixedSelection, strings.Join(names, ", "))
}

func (e *MixedSelectionError) Unwrap() error { return ErrMixedSelection }

// ErrorKind classifies the failure for reporting.
func (e *MixedSelectionError) ErrorKind() string { return string(ReasonMixed) }

func reasonOf(err error) Reason {
	var guard *GuardError
	switch {
	case err == nil:
		return ReasonNone
	case errors.As(err, &guard):
		return guard.Reason
	case errors.Is(err, ErrMixedSelection):
		return ReasonMixed
	case errors.Is(err, ErrNotReady):
		return ReasonNotReady
	default:
		return ReasonNone
	}
}
