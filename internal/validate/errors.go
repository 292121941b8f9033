package validate

import (
	"errors"
	"fmt"
)

// ErrMissingSchema is returned when a value is validated against an empty
// schema text, which means the call site was never augmented.
var ErrMissingSchema = errors.New("schema is not specified")

// Keywords reported on a Failure.
const (
	KeywordType                 = "type"
	KeywordRequired             = "required"
	KeywordAdditionalProperties = "additionalProperties"
	KeywordEnum                 = "enum"
	KeywordConst                = "const"
)

// Failure is the first constraint a value violated. Message follows the
// wording of ajv v6, e.g. "should be number".
type Failure struct {
	Keyword string
	// InstancePath is a JSON Pointer to the offending value ("" for the root).
	InstancePath string
	Message      string
	// Params carries the keyword's details: "type", "missingProperty",
	// "additionalProperty" or "allowedValues".
	Params map[string]any
}

func (f *Failure) Error() string { return f.Message }

// SchemaError is returned when the schema text itself cannot be used.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("invalid schema: %v", e.Err) }

func (e *SchemaError) Unwrap() error { return e.Err }

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func typeFailure(path, want string) *Failure {
	return &Failure{
		Keyword:      KeywordType,
		InstancePath: path,
		Message:      "should be " + want,
		Params:       map[string]any{"type": want},
	}
}

func requiredFailure(path, name string) *Failure {
	return &Failure{
		Keyword:      KeywordRequired,
		InstancePath: path,
		Message:      fmt.Sprintf("should have required property '%s'", name),
		Params:       map[string]any{"missingProperty": name},
	}
}

func additionalFailure(path, name string) *Failure {
	return &Failure{
		Keyword:      KeywordAdditionalProperties,
		InstancePath: path,
		Message:      "should NOT have additional properties",
		Params:       map[string]any{"additionalProperty": name},
	}
}

func enumFailure(path string, allowed []any) *Failure {
	return &Failure{
		Keyword:      KeywordEnum,
		InstancePath: path,
		Message:      "should be equal to one of the allowed values",
		Params:       map[string]any{"allowedValues": allowed},
	}
}

func constFailure(path string, allowed any) *Failure {
	return &Failure{
		Keyword:      KeywordConst,
		InstancePath: path,
		Message:      "should be equal to constant",
		Params:       map[string]any{"allowedValue": allowed},
	}
}
