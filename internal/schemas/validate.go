// Package schemas provides JSON Schema validation for profile records and the files they are written to.
package schemas

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/profile-scraper/internal/types"
	schemafiles "github.com/jonathan/profile-scraper/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
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

// LineError reports which lines of a JSON-lines file failed validation.
type LineError struct {
	Path  string
	Lines map[int]error
}

func (e *LineError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %d invalid record(s)\n", e.Path, len(e.Lines)))
	for _, n := range sortedLines(e.Lines) {
		sb.WriteString(fmt.Sprintf("  line %d: %s\n", n, strings.TrimSpace(firstLine(e.Lines[n].Error()))))
	}
	return sb.String()
}

func sortedLines(m map[int]error) []int {
	lines := make([]int, 0, len(m))
	for n := range m {
		lines = append(lines, n)
	}
	sort.Ints(lines)
	return lines
}

func firstLine(s string) string {
	s = strings.TrimPrefix(s, "validation failed:\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

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

var (
	recordSchemaOnce sync.Once
	recordSchema     *gojsonschema.Schema
	recordSchemaErr  error
)

func profileRecordSchema() (*gojsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemafiles.ProfileRecord))
		if recordSchemaErr != nil {
			recordSchemaErr = &SchemaLoadError{
				Path:    schemafiles.ProfileRecordFile,
				Message: "embedded schema does not compile",
				Cause:   recordSchemaErr,
			}
		}
	})
	return recordSchema, recordSchemaErr
}

// ValidateRecordJSON validates one serialized record against the embedded
// profile record schema.
func ValidateRecordJSON(data []byte) error {
	schema, err := profileRecordSchema()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to read record JSON: %w", err)
	}
	return toValidationError(result)
}

// ValidateRecord validates rec against the embedded profile record schema.
func ValidateRecord(rec types.ProfileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return ValidateRecordJSON(data)
}

// ValidateRecordLines validates every non-blank line of r as a profile
// record. It returns how many records were checked; err is a *LineError
// when any of them failed.
func ValidateRecordLines(r io.Reader, name string) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	bad := map[int]error{}
	count := 0
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		count++
		if err := ValidateRecordJSON([]byte(line)); err != nil {
			bad[lineNo] = err
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(bad) > 0 {
		return count, &LineError{Path: name, Lines: bad}
	}
	return count, nil
}

// ValidateRecordsFile validates a JSON-lines file of profile records.
func ValidateRecordsFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ValidateRecordLines(f, path)
}
