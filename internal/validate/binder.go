package validate

import "fmt"

// Source is where a bound parameter's value comes from.
type Source int

const (
	SourceBody Source = iota
	SourcePath
	SourceQuery
)

func (s Source) String() string {
	switch s {
	case SourceBody:
		return "body"
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Mode returns the validation mode for the source. Path and query values
// arrive as strings and are coerced; bodies are already typed.
func (s Source) Mode() Mode {
	if s == SourceBody {
		return ModeValidate
	}
	return ModeCoerce
}

// Binder validates one decorated parameter. It is created once per
// parameter from the options the augmenter injected, and is safe for
// concurrent use.
type Binder struct {
	Source Source
	Name   string
	schema *Schema
}

// NewBinder compiles schemaText for a parameter. An empty schema text
// means the parameter was not augmented and yields ErrMissingSchema.
func NewBinder(source Source, name, schemaText string) (*Binder, error) {
	s, err := defaultValidator.Compile(schemaText)
	if err != nil {
		return nil, err
	}
	return &Binder{Source: source, Name: name, schema: s}, nil
}

// Bind looks up the parameter by name and validates it. A value the lookup
// does not find binds to nil without error. On failure the returned error
// is the *Failure itself, so its text is the bare constraint message.
func (b *Binder) Bind(lookup func(name string) (any, bool)) (any, error) {
	raw, ok := lookup(b.Name)
	if !ok {
		return nil, nil
	}
	return b.schema.Validate(raw, b.Source.Mode())
}
