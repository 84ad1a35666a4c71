// Package query filters and looks up records inside loaded portfolio documents.
// Both operations are pure functions of their input and never fail: a document
// of the wrong shape yields an empty result.
package query

import "strings"

// Record is one element of an array document (a project, job or certificate).
type Record = map[string]any

// Default field names used by the portfolio documents.
const (
	DefaultMatchField = "category"
	FeaturedField     = "featured"
	IDField           = "id"
)

// Criteria holds optional filter constraints. A nil field means "no constraint".
type Criteria struct {
	// Field is the record field compared against Value. Empty means DefaultMatchField.
	Field string
	// Value is matched case-insensitively against Field.
	Value *string
	// Featured keeps records whose featured flag equals it.
	Featured *bool
	// Limit keeps at most this many records, in document order.
	Limit *int
}

// Filter returns the records of doc that satisfy every supplied criterion.
// Non-array documents produce an empty slice. Order follows the document.
func Filter(doc any, c Criteria) []Record {
	arr, ok := doc.([]any)
	if !ok {
		return []Record{}
	}

	field := c.Field
	if field == "" {
		field = DefaultMatchField
	}

	out := make([]Record, 0, len(arr))
	for _, el := range arr {
		rec, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if c.Value != nil && !fieldEquals(rec, field, *c.Value) {
			continue
		}
		if c.Featured != nil && !flagEquals(rec, FeaturedField, *c.Featured) {
			continue
		}
		out = append(out, rec)
	}

	if c.Limit != nil {
		limit := max(*c.Limit, 0)
		if limit < len(out) {
			out = out[:limit]
		}
	}
	return out
}

// FindByID returns the first record whose id equals id exactly.
func FindByID(doc any, id string) (Record, bool) {
	arr, ok := doc.([]any)
	if !ok {
		return nil, false
	}
	for _, el := range arr {
		rec, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if v, ok := rec[IDField].(string); ok && v == id {
			return rec, true
		}
	}
	return nil, false
}

// Count returns the number of elements of an array document, or 0.
func Count(doc any) int {
	arr, ok := doc.([]any)
	if !ok {
		return 0
	}
	return len(arr)
}

// fieldEquals compares a string field case-insensitively. A missing field counts as "".
func fieldEquals(rec Record, field, want string) bool {
	raw, present := rec[field]
	if !present || raw == nil {
		return want == ""
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	return strings.EqualFold(s, want)
}

// flagEquals compares a boolean field exactly. A missing field counts as false;
// non-boolean values match neither true nor false.
func flagEquals(rec Record, field string, want bool) bool {
	raw, present := rec[field]
	if !present || raw == nil {
		return !want
	}
	b, ok := raw.(bool)
	return ok && b == want
}

// Ptr returns a pointer to v. Handy for building Criteria.
func Ptr[T any](v T) *T {
	return &v
}
