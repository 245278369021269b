package model

import (
	"slices"
	"time"
)

// NameCorrection is an add/remove delta replayed onto restaurants whose
// name contains the pattern.
type NameCorrection struct {
	Add    []ProductPick `json:"add"`
	Remove []string      `json:"remove"`
}

// CuisineCorrection pins SKUs in or out for one cuisine.
type CuisineCorrection struct {
	AlwaysInclude []string `json:"always_include"`
	NeverInclude  []string `json:"never_include"`
}

// FieldFeedback is one append-only training signal from a field outcome.
type FieldFeedback struct {
	Restaurant   string    `json:"restaurant"`
	AISuggested  []string  `json:"ai_suggested"`
	ActualNeeded []string  `json:"actual_needed"`
	Outcome      Outcome   `json:"outcome"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// CorrectionSet holds the three correction indices.
type CorrectionSet struct {
	ByName    map[string]NameCorrection    `json:"by_name"`
	ByCuisine map[string]CuisineCorrection `json:"by_cuisine"`
	ByField   map[string][]FieldFeedback   `json:"by_field"`
}

// NewCorrectionSet returns an empty set with initialized indices.
func NewCorrectionSet() CorrectionSet {
	return CorrectionSet{
		ByName:    map[string]NameCorrection{},
		ByCuisine: map[string]CuisineCorrection{},
		ByField:   map[string][]FieldFeedback{},
	}
}

// Normalize replaces nil indices with empty maps.
func (c *CorrectionSet) Normalize() {
	if c.ByName == nil {
		c.ByName = map[string]NameCorrection{}
	}
	if c.ByCuisine == nil {
		c.ByCuisine = map[string]CuisineCorrection{}
	}
	if c.ByField == nil {
		c.ByField = map[string][]FieldFeedback{}
	}
}

// Clone returns a deep copy.
func (c CorrectionSet) Clone() CorrectionSet {
	out := NewCorrectionSet()
	for k, v := range c.ByName {
		out.ByName[k] = NameCorrection{Add: slices.Clone(v.Add), Remove: slices.Clone(v.Remove)}
	}
	for k, v := range c.ByCuisine {
		out.ByCuisine[k] = CuisineCorrection{
			AlwaysInclude: slices.Clone(v.AlwaysInclude),
			NeverInclude:  slices.Clone(v.NeverInclude),
		}
	}
	for k, v := range c.ByField {
		out.ByField[k] = slices.Clone(v)
	}
	return out
}

// Count is the number of name and cuisine buckets.
func (c CorrectionSet) Count() int {
	return len(c.ByName) + len(c.ByCuisine)
}

// FieldCount is the total number of field feedback entries.
func (c CorrectionSet) FieldCount() int {
	n := 0
	for _, entries := range c.ByField {
		n += len(entries)
	}
	return n
}
