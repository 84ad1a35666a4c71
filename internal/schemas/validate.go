// Package schemas provides JSON Schema validation for the portfolio data documents.
package schemas

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed files/*.schema.json
var schemaFiles embed.FS

// documentSchemas maps each data document to its embedded schema.
var documentSchemas = map[string]string{
	"page.json":         "page.schema.json",
	"intro.json":        "intro.schema.json",
	"layout.json":       "layout.schema.json",
	"projects.json":     "projects.schema.json",
	"jobs.json":         "jobs.schema.json",
	"certificates.json": "certificates.schema.json",
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Documents returns the data file names that have a schema, sorted.
func Documents() []string {
	names := make([]string, 0, len(documentSchemas))
	for name := range documentSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaFor returns the raw schema for a data document.
func SchemaFor(document string) ([]byte, error) {
	name, ok := documentSchemas[document]
	if !ok {
		return nil, &SchemaLoadError{Path: document, Message: "no schema registered"}
	}
	data, err := schemaFiles.ReadFile(path.Join("files", name))
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "embedded schema missing", Cause: err}
	}
	return data, nil
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// compile returns the parsed schema for document, parsing it once.
func compile(document string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[document]; ok {
		return s, nil
	}

	raw, err := SchemaFor(document)
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &SchemaLoadError{Path: documentSchemas[document], Message: "invalid schema", Cause: err}
	}
	compiled[document] = s
	return s, nil
}

// ValidateDocument validates raw JSON content of a named data document.
func ValidateDocument(document string, data []byte) error {
	schema, err := compile(document)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", document, err)
	}
	return toValidationError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	// Build structured error
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}

// File statuses reported by ValidateFS.
const (
	FileValid    = "valid"
	FileInvalid  = "invalid"
	FileMissing  = "missing"
	FileReadFail = "unreadable"
)

// FileResult is the outcome of validating one data document.
type FileResult struct {
	File   string       `json:"file"`
	Status string       `json:"status"`
	Errors []FieldError `json:"errors,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

// Report collects results for every known data document.
type Report struct {
	Results []FileResult `json:"results"`
}

// Valid reports whether no present document failed validation. Missing files are allowed.
func (r Report) Valid() bool {
	for _, res := range r.Results {
		if res.Status == FileInvalid || res.Status == FileReadFail {
			return false
		}
	}
	return true
}

// Count returns how many results have the given status.
func (r Report) Count(status string) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// ValidateFS validates every known data document found in fsys.
func ValidateFS(fsys fs.FS) Report {
	var report Report
	for _, name := range Documents() {
		report.Results = append(report.Results, validateFile(fsys, name))
	}
	return report
}

func validateFile(fsys fs.FS, name string) FileResult {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return FileResult{File: name, Status: FileMissing}
	}
	if err != nil {
		return FileResult{File: name, Status: FileReadFail, Detail: err.Error()}
	}

	err = ValidateDocument(name, data)
	var verr *ValidationError
	switch {
	case err == nil:
		return FileResult{File: name, Status: FileValid}
	case errors.As(err, &verr):
		return FileResult{File: name, Status: FileInvalid, Errors: verr.Errors}
	default:
		return FileResult{File: name, Status: FileInvalid, Detail: err.Error()}
	}
}
