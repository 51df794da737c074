// Package filekind classifies acquisition files into the roles a recording
// group is built from.
//
// Kind is a closed enumeration; anything a Classifier does not recognize is
// Unclassified and is ignored by discovery and readiness.
package filekind

import (
	"path/filepath"
	"strings"
)

// Kind is the role of a file within a recording group.
type Kind int

const (
	Unclassified Kind = iota
	Recording
	Marker
	Digitizer
	HeadShape
)

// Roles lists the roles a complete group must contain, in bucket order.
var Roles = []Kind{Recording, Marker, Digitizer, HeadShape}

func (k Kind) String() string {
	switch k {
	case Recording:
		return "recording"
	case Marker:
		return "marker"
	case Digitizer:
		return "digitizer"
	case HeadShape:
		return "headshape"
	default:
		return "unclassified"
	}
}

// Extension returns the canonical KIT extension for the role.
func (k Kind) Extension() string {
	switch k {
	case Recording:
		return ".con"
	case Marker:
		return ".mrk"
	case Digitizer:
		return ".elp"
	case HeadShape:
		return ".hsp"
	default:
		return ""
	}
}

// Parse maps a role name back to its Kind.
func Parse(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "recording":
		return Recording
	case "marker":
		return Marker
	case "digitizer":
		return Digitizer
	case "headshape":
		return HeadShape
	default:
		return Unclassified
	}
}

// Classifier maps a path to its role. Implementations must be pure.
type Classifier func(path string) Kind

var kitExtensions = map[string]Kind{
	".con": Recording,
	".mrk": Marker,
	".elp": Digitizer,
	".hsp": HeadShape,
}

// KIT classifies KIT/Yokogawa files by extension, case-insensitively.
func KIT(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if kind, ok := kitExtensions[ext]; ok {
		return kind
	}
	return Unclassified
}
