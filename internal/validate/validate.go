// Package validate checks run-time values against the schema texts that
// augmentation injects into call sites.
//
// Schemas are compiled as JSON Schema draft-07 and cached, so validating
// many values against the same site is cheap. Failures carry the first
// violated constraint with ajv v6 wording.
package validate

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dyncast/dyncast/internal/schema"
)

// Mode selects how values are treated before checking.
type Mode int

const (
	// ModeValidate checks values as they are.
	ModeValidate Mode = iota
	// ModeCoerce first converts primitives the way ajv's coerceTypes does,
	// e.g. "123" to 123 for a number schema.
	ModeCoerce
)

func (m Mode) String() string {
	switch m {
	case ModeValidate:
		return "validate"
	case ModeCoerce:
		return "coerce"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// DefaultCacheSize is the number of compiled schemas a Validator keeps.
const DefaultCacheSize = 256

const schemaURL = "mem://dyncast/schema.json"

// Schema is a compiled schema text. It is safe for concurrent use.
type Schema struct {
	text   string
	engine *jsonschema.Schema
	// doc is set when the text is in the synthesized algebra. It drives
	// coercion and the ajv-ordered failure report.
	doc   schema.Document
	typed bool
}

// Compile compiles a schema text. An empty text yields ErrMissingSchema; a
// text the engine rejects yields a *SchemaError.
func Compile(text string) (*Schema, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingSchema
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemaURL, strings.NewReader(text)); err != nil {
		return nil, &SchemaError{Err: err}
	}
	engine, err := c.Compile(schemaURL)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}

	s := &Schema{text: text, engine: engine}
	if doc, err := schema.Parse(text); err == nil {
		s.doc, s.typed = doc, true
	}
	return s, nil
}

// Text returns the schema text the Schema was compiled from.
func (s *Schema) Text() string { return s.text }

// Document returns the parsed schema document, if the text is in the
// synthesized algebra.
func (s *Schema) Document() (schema.Document, bool) { return s.doc, s.typed }

// Validate checks value. In ModeValidate the value is returned unchanged;
// in ModeCoerce the coerced copy is returned. The caller's value is never
// modified.
func (s *Schema) Validate(value any, mode Mode) (any, error) {
	v, err := normalize(value)
	if err != nil {
		return nil, err
	}
	if mode == ModeCoerce && s.typed {
		v = coerce(s.doc, v)
	}

	if err := s.engine.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		if s.typed {
			if f := firstFailure(s.doc, v, ""); f != nil {
				return nil, f
			}
		}
		return nil, translate(ve)
	}

	if mode == ModeCoerce {
		return v, nil
	}
	return value, nil
}

// Validator compiles schema texts through a bounded LRU cache. It is safe
// for concurrent use.
type Validator struct {
	cache *lru.Cache[string, *Schema]
}

// NewValidator creates a Validator caching up to size compiled schemas.
// A size of zero or less means DefaultCacheSize.
func NewValidator(size int) (*Validator, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Schema](size)
	if err != nil {
		return nil, err
	}
	return &Validator{cache: cache}, nil
}

// Compile returns the compiled form of text, compiling it on first use.
// Failed compilations are not cached.
func (v *Validator) Compile(text string) (*Schema, error) {
	if s, ok := v.cache.Get(text); ok {
		return s, nil
	}
	s, err := Compile(text)
	if err != nil {
		return nil, err
	}
	v.cache.Add(text, s)
	return s, nil
}

// Validate compiles text and checks value in the given mode.
func (v *Validator) Validate(text string, value any, mode Mode) (any, error) {
	s, err := v.Compile(text)
	if err != nil {
		return nil, err
	}
	return s.Validate(value, mode)
}

// Len returns the number of cached schemas.
func (v *Validator) Len() int { return v.cache.Len() }

var defaultValidator = mustValidator(DefaultCacheSize)

func mustValidator(size int) *Validator {
	v, err := NewValidator(size)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks value against schemaText and returns it unchanged.
func Validate(schemaText string, value any) (any, error) {
	return defaultValidator.Validate(schemaText, value, ModeValidate)
}

// Coerce checks value against schemaText after coercing primitives and
// returns the coerced value.
func Coerce(schemaText string, value any) (any, error) {
	return defaultValidator.Validate(schemaText, value, ModeCoerce)
}

// Cast is the run-time side of an augmented dynamic_cast call. It validates
// value against schemaText and returns it as a T, converting through JSON
// when value is not already a T.
func Cast[T any](value any, schemaText string) (T, error) {
	var zero T
	v, err := Validate(schemaText, value)
	if err != nil {
		return zero, err
	}
	return convert[T](v)
}
