package types

import (
	"fmt"
	"sort"
	"strings"
)

// FilterField names one filterable attribute of a knowledge chunk.
type FilterField string

const (
	FieldCategory       FilterField = "category"
	FieldDifficulty     FilterField = "difficulty"
	FieldBusinessStage  FilterField = "business_stage"
	FieldPatterns       FilterField = "patterns"
	FieldTemperaments   FilterField = "temperaments"
	FieldPopulations    FilterField = "populations"
	FieldTopics         FilterField = "topics"
	FieldTimeCommitment FilterField = "time_commitment"
	FieldEmergency      FilterField = "emergency_only"
)

// FilterSchema is the set of fields a namespace accepts.
type FilterSchema map[FilterField]bool

// NewFilterSchema builds a schema allowing the given fields.
func NewFilterSchema(fields ...FilterField) FilterSchema {
	s := make(FilterSchema, len(fields))
	for _, f := range fields {
		s[f] = true
	}
	return s
}

// Allows reports whether the schema accepts field f.
func (s FilterSchema) Allows(f FilterField) bool {
	return s[f]
}

// Filters narrows a search. Equality fields match exactly, slice fields
// require every listed value to be present on the chunk, and the minute
// bounds constrain the chunk's time commitment range.
type Filters struct {
	Category      string   `json:"category,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	BusinessStage string   `json:"business_stage,omitempty"`
	Patterns      []string `json:"patterns,omitempty"`
	Temperaments  []string `json:"temperaments,omitempty"`
	Populations   []string `json:"populations,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	MinMinutes    *int     `json:"min_minutes,omitempty"`
	MaxMinutes    *int     `json:"max_minutes,omitempty"`
	EmergencyOnly bool     `json:"emergency_only,omitempty"`
}

// Fields returns the fields that are set, sorted by name.
func (f Filters) Fields() []FilterField {
	var fields []FilterField
	if f.Category != "" {
		fields = append(fields, FieldCategory)
	}
	if f.Difficulty != "" {
		fields = append(fields, FieldDifficulty)
	}
	if f.BusinessStage != "" {
		fields = append(fields, FieldBusinessStage)
	}
	if len(f.Patterns) > 0 {
		fields = append(fields, FieldPatterns)
	}
	if len(f.Temperaments) > 0 {
		fields = append(fields, FieldTemperaments)
	}
	if len(f.Populations) > 0 {
		fields = append(fields, FieldPopulations)
	}
	if len(f.Topics) > 0 {
		fields = append(fields, FieldTopics)
	}
	if f.MinMinutes != nil || f.MaxMinutes != nil {
		fields = append(fields, FieldTimeCommitment)
	}
	if f.EmergencyOnly {
		fields = append(fields, FieldEmergency)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.Fields()) == 0
}

// Validate checks f against the namespace schema.
func (f Filters) Validate(schema FilterSchema) error {
	for _, field := range f.Fields() {
		if !schema.Allows(field) {
			return fmt.Errorf("%w: field %q not supported for this namespace", ErrInvalidFilter, field)
		}
	}

	if f.MinMinutes != nil && *f.MinMinutes < 0 {
		return fmt.Errorf("%w: min_minutes must be >= 0", ErrInvalidFilter)
	}
	if f.MaxMinutes != nil && *f.MaxMinutes < 0 {
		return fmt.Errorf("%w: max_minutes must be >= 0", ErrInvalidFilter)
	}
	if f.MinMinutes != nil && f.MaxMinutes != nil && *f.MinMinutes > *f.MaxMinutes {
		return fmt.Errorf("%w: min_minutes %d exceeds max_minutes %d", ErrInvalidFilter, *f.MinMinutes, *f.MaxMinutes)
	}

	for _, list := range [][]string{f.Patterns, f.Temperaments, f.Populations, f.Topics} {
		for _, v := range list {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%w: empty value in list filter", ErrInvalidFilter)
			}
		}
	}
	return nil
}

// Key returns a stable string form of the filters, used for logging and
// cache keys.
func (f Filters) Key() string {
	var b strings.Builder
	b.WriteString("c=" + f.Category)
	b.WriteString("|d=" + f.Difficulty)
	b.WriteString("|s=" + f.BusinessStage)
	b.WriteString("|p=" + joinSorted(f.Patterns))
	b.WriteString("|t=" + joinSorted(f.Temperaments))
	b.WriteString("|pop=" + joinSorted(f.Populations))
	b.WriteString("|top=" + joinSorted(f.Topics))
	if f.MinMinutes != nil {
		fmt.Fprintf(&b, "|min=%d", *f.MinMinutes)
	}
	if f.MaxMinutes != nil {
		fmt.Fprintf(&b, "|max=%d", *f.MaxMinutes)
	}
	if f.EmergencyOnly {
		b.WriteString("|e=1")
	}
	return b.String()
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// IntPtr is a small helper for building minute bounds.
func IntPtr(v int) *int {
	return &v
}
