// Package registry holds the closed set of call and decorator names that
// receive schema augmentation.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Form is the syntactic shape a recognized name appears in.
type Form int

const (
	// FormCall is a generic call such as dynamic_cast<T>(value).
	FormCall Form = iota
	// FormDecorator is a parameter decorator call such as @RequestBody().
	FormDecorator
)

func (f Form) String() string {
	switch f {
	case FormCall:
		return "call"
	case FormDecorator:
		return "decorator"
	}
	return "unknown"
}

// Entry describes one recognized name.
type Entry struct {
	Name string
	Form Form
	// InjectName makes a decorator also receive the parameter's source name.
	InjectName bool
}

// Default names recognized when no configuration overrides them.
const (
	DefaultCall         = "dynamic_cast"
	DefaultPathVariable = "PathVariable"
	DefaultRequestParam = "RequestParam"
	DefaultRequestBody  = "RequestBody"
)

// Registry maps recognized names to their entries. It is immutable once
// built.
type Registry struct {
	calls      map[string]Entry
	decorators map[string]Entry
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// reserved words that can never name a function.
var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true,
}

// ValidateName reports whether name can be used as a recognized name.
func ValidateName(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%q is not a JavaScript identifier", name)
	}
	if reserved[name] {
		return fmt.Errorf("%q is a reserved word", name)
	}
	return nil
}

// New validates entries and builds a registry. Names must be distinct
// across both forms.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		calls:      make(map[string]Entry),
		decorators: make(map[string]Entry),
	}
	var errs []string
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if err := ValidateName(e.Name); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if seen[e.Name] {
			errs = append(errs, fmt.Sprintf("%q is registered more than once", e.Name))
			continue
		}
		seen[e.Name] = true

		switch e.Form {
		case FormCall:
			if e.InjectName {
				errs = append(errs, fmt.Sprintf("call %q cannot inject a parameter name", e.Name))
				continue
			}
			r.calls[e.Name] = e
		case FormDecorator:
			r.decorators[e.Name] = e
		default:
			errs = append(errs, fmt.Sprintf("%q has unknown form %d", e.Name, e.Form))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid registry: %s", strings.Join(errs, "; "))
	}
	return r, nil
}

// Default returns the registry with the built-in names.
func Default() *Registry {
	r, err := New(
		Entry{Name: DefaultCall, Form: FormCall},
		Entry{Name: DefaultPathVariable, Form: FormDecorator, InjectName: true},
		Entry{Name: DefaultRequestParam, Form: FormDecorator, InjectName: true},
		Entry{Name: DefaultRequestBody, Form: FormDecorator},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Call looks up a recognized call name.
func (r *Registry) Call(name string) (Entry, bool) {
	e, ok := r.calls[name]
	return e, ok
}

// Decorator looks up a recognized decorator name.
func (r *Registry) Decorator(name string) (Entry, bool) {
	e, ok := r.decorators[name]
	return e, ok
}

// Entries returns every entry sorted by name.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.calls)+len(r.decorators))
	for _, e := range r.calls {
		out = append(out, e)
	}
	for _, e := range r.decorators {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
