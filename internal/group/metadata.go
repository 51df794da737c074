package group

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Sex is the subject's recorded sex.
type Sex int

const (
	SexUnknown Sex = iota
	SexMale
	SexFemale
)

// Code is the integer written into the archive's subject info.
func (s Sex) Code() int { return int(s) }

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "M"
	case SexFemale:
		return "F"
	default:
		return "U"
	}
}

// ParseSex accepts U, M or F in any case.
func ParseSex(value string) (Sex, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "U":
		return SexUnknown, nil
	case "M":
		return SexMale, nil
	case "F":
		return SexFemale, nil
	default:
		return SexUnknown, fmt.Errorf("invalid sex %q (want U, M or F)", value)
	}
}

// Date is a calendar date without a time zone. The zero value means unknown.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseDate parses YYYY-MM-DD. An empty string is the zero Date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

// Dewar positions accepted by the archive.
const (
	DewarSupine  = "supine"
	DewarUpright = "upright"
)

// Metadata is the subject and project information attached to a group.
type Metadata struct {
	SubjectID     string
	Project       string
	DewarPosition string
	Birthdate     Date
	Sex           Sex
}

// MetadataFromFolder derives the subject ID and project from a folder named
// like 2630_RS_PROJ123_B2: field 0 is the subject, field 2 the project.
func MetadataFromFolder(folder string) Metadata {
	parts := strings.Split(filepath.Base(folder), "_")
	meta := Metadata{SubjectID: parts[0]}
	if len(parts) > 2 {
		meta.Project = parts[2]
	}
	return meta
}

// SetDewarPosition validates and stores the dewar position.
func (m *Metadata) SetDewarPosition(position string) error {
	position = strings.ToLower(strings.TrimSpace(position))
	switch position {
	case DewarSupine, DewarUpright:
		m.DewarPosition = position
		return nil
	default:
		return fmt.Errorf("invalid dewar position %q (want %s or %s)", position, DewarSupine, DewarUpright)
	}
}
