// Package schemas provides JSON Schema validation for structured LLM output.
// Schemas are embedded at compile time so response validation works wherever
// the binary runs from.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed slug_response.schema.json
var slugResponseSchema []byte

var (
	slugSchemaOnce sync.Once
	slugSchema     *gojsonschema.Schema
	slugSchemaErr  error
)

// ValidationError reports the field-level problems found in a document.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf(" %s: %s;", err.Field, err.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// ValidateSlugResponse checks a raw LLM reply against the slug response
// schema. A nil return means the document is structurally valid.
func ValidateSlugResponse(doc []byte) error {
	slugSchemaOnce.Do(func() {
		slugSchema, slugSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewBytesLoader(slugResponseSchema))
	})
	if slugSchemaErr != nil {
		return fmt.Errorf("failed to compile slug response schema: %w", slugSchemaErr)
	}

	result, err := slugSchema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{}
	for _, resultErr := range result.Errors() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   resultErr.Field(),
			Message: resultErr.Description(),
		})
	}
	return ve
}
