package record

import "sort"

// ValidationModel tracks which fields are checked and which literal values
// each field may not hold. Only fields listed in Required or Optional are
// evaluated; entries in Disallowed for any other field are ignored.
type ValidationModel struct {
	Required   map[string]struct{}
	Optional   map[string]struct{}
	Disallowed map[string]map[string]struct{}
}

// NewValidationModel returns an empty model.
func NewValidationModel() ValidationModel {
	return ValidationModel{
		Required:   map[string]struct{}{},
		Optional:   map[string]struct{}{},
		Disallowed: map[string]map[string]struct{}{},
	}
}

// Require marks field as required and records its disallowed values.
func (m *ValidationModel) Require(field string, disallowed ...string) {
	m.ensure()
	delete(m.Optional, field)
	m.Required[field] = struct{}{}
	m.disallow(field, disallowed)
}

// Allow marks field as optional and records its disallowed values.
func (m *ValidationModel) Allow(field string, disallowed ...string) {
	m.ensure()
	if _, ok := m.Required[field]; ok {
		return
	}
	m.Optional[field] = struct{}{}
	m.disallow(field, disallowed)
}

func (m *ValidationModel) ensure() {
	if m.Required == nil {
		m.Required = map[string]struct{}{}
	}
	if m.Optional == nil {
		m.Optional = map[string]struct{}{}
	}
	if m.Disallowed == nil {
		m.Disallowed = map[string]map[string]struct{}{}
	}
}

func (m *ValidationModel) disallow(field string, values []string) {
	set, ok := m.Disallowed[field]
	if !ok {
		set = map[string]struct{}{}
		m.Disallowed[field] = set
	}
	for _, v := range values {
		set[v] = struct{}{}
	}
}

// Clone returns a deep copy of the model.
func (m ValidationModel) Clone() ValidationModel {
	out := NewValidationModel()
	for k := range m.Required {
		out.Required[k] = struct{}{}
	}
	for k := range m.Optional {
		out.Optional[k] = struct{}{}
	}
	for field, values := range m.Disallowed {
		set := make(map[string]struct{}, len(values))
		for v := range values {
			set[v] = struct{}{}
		}
		out.Disallowed[field] = set
	}
	return out
}

// fieldReader reads the current value of a tracked field. A field that cannot
// be read counts as holding a disallowed empty value.
type fieldReader func(field string) (string, error)

// evaluate checks every tracked field in deterministic order. Fields for
// which skip returns true are exempt.
func (m ValidationModel) evaluate(read fieldReader, skip func(string) bool) Validity {
	fields := make([]string, 0, len(m.Disallowed))
	for field := range m.Disallowed {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var bad, warn []BadField
	for _, field := range fields {
		_, required := m.Required[field]
		_, optional := m.Optional[field]
		if !required && !optional {
			continue
		}
		if skip != nil && skip(field) {
			continue
		}
		value, err := read(field)
		if err != nil {
			value = ""
		} else if _, disallowed := m.Disallowed[field][value]; !disallowed {
			continue
		}
		if required {
			bad = append(bad, BadField{Field: field, Value: value})
		} else {
			warn = append(warn, BadField{Field: field, Value: value})
		}
	}
	if len(bad) > 0 {
		return Validity{Verdict: Bad, Reasons: bad, Warnings: warn}
	}
	return Validity{Verdict: Good, Warnings: warn}
}
