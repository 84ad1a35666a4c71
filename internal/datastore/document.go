package datastore

import "fmt"

// Status tags the outcome of a Load.
type Status int

const (
	// StatusNotFound means the file is absent or unreadable.
	StatusNotFound Status = iota
	// StatusFound means the file was parsed (or served from cache).
	StatusFound
	// StatusParseError means the file exists but is not valid JSON.
	StatusParseError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusParseError:
		return "parse_error"
	default:
		return "not_found"
	}
}

// Document is the tagged result of loading one named file.
// Value is set only when Status is StatusFound; Err carries the detail otherwise.
type Document struct {
	Name   string
	Value  any
	Status Status
	Err    error
}

// Found reports whether the document was loaded.
func (d Document) Found() bool {
	return d.Status == StatusFound
}

// Array returns the document as a list of elements when it is a JSON array.
func (d Document) Array() ([]any, bool) {
	if !d.Found() {
		return nil, false
	}
	arr, ok := d.Value.([]any)
	return arr, ok
}

// Object returns the document as a JSON object when it is one.
func (d Document) Object() (map[string]any, bool) {
	if !d.Found() {
		return nil, false
	}
	obj, ok := d.Value.(map[string]any)
	return obj, ok
}

// LoadError reports a data file that could not be read.
type LoadError struct {
	File  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("data file %s not loaded: %v", e.File, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError reports a data file whose content is not valid JSON.
type ParseError struct {
	File  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("data file %s is malformed: %v", e.File, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
