// Package schema defines the schema document produced by type synthesis and
// consumed by the run-time validator.
//
// A Document is a closed variant: every value has exactly one Kind and only
// the fields belonging to that kind are meaningful. The canonical text form
// (see Marshal) is plain JSON Schema so that any standard validator can read
// it back without extensions.
package schema

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a Document.
type Kind string

const (
	KindAny       Kind = "any"       // matches every value
	KindPrimitive Kind = "primitive" // number, string or boolean
	KindConst     Kind = "const"     // exactly one literal
	KindEnum      Kind = "enum"      // one of several literals
	KindArray     Kind = "array"     // homogeneous sequence
	KindObject    Kind = "object"    // closed keyed structure
)

// Primitive names a JSON primitive type.
type Primitive string

const (
	Number  Primitive = "number"
	String  Primitive = "string"
	Boolean Primitive = "boolean"
)

// Document is a node of the schema algebra.
type Document struct {
	Kind Kind

	// Primitive is set when Kind == KindPrimitive.
	Primitive Primitive

	// Value holds the literal for KindConst: a string, float64 or bool.
	Value any

	// Values holds the literals for KindEnum, in declaration order.
	Values []any

	// Items is the element schema for KindArray.
	Items *Document

	// Properties lists the members of a KindObject in declaration order.
	Properties []Property
}

// Property is a member of an object document.
type Property struct {
	Name     string
	Schema   Document
	Required bool
}

// Any returns the document that accepts every value.
func Any() Document { return Document{Kind: KindAny} }

// PrimitiveOf returns a primitive document.
func PrimitiveOf(p Primitive) Document { return Document{Kind: KindPrimitive, Primitive: p} }

// Const returns a single-literal document.
func Const(v any) Document { return Document{Kind: KindConst, Value: v} }

// Enum returns a document accepting any of the given literals.
func Enum(values ...any) Document { return Document{Kind: KindEnum, Values: values} }

// ArrayOf returns an array document with the given element schema.
func ArrayOf(items Document) Document { return Document{Kind: KindArray, Items: &items} }

// Object returns an object document with the given members.
func Object(props ...Property) Document {
	if props == nil {
		props = []Property{}
	}
	return Document{Kind: KindObject, Properties: props}
}

// Required returns the names of required members, in declaration order.
func (d Document) Required() []string {
	names := []string{}
	for _, p := range d.Properties {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Member looks up an object member by name.
func (d Document) Member(name string) (Property, int, bool) {
	for i, p := range d.Properties {
		if p.Name == name {
			return p, i, true
		}
	}
	return Property{}, -1, false
}

// String returns the canonical text, or a placeholder if the document is
// malformed.
func (d Document) String() string {
	data, err := Marshal(d)
	if err != nil {
		return fmt.Sprintf("<invalid schema: %v>", err)
	}
	return string(data)
}

// Describe returns a short human-readable summary, e.g. "array of number".
func (d Document) Describe() string {
	switch d.Kind {
	case KindAny:
		return "any"
	case KindPrimitive:
		return string(d.Primitive)
	case KindConst:
		return fmt.Sprintf("const %v", d.Value)
	case KindEnum:
		parts := make([]string, len(d.Values))
		for i, v := range d.Values {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return "enum(" + strings.Join(parts, ", ") + ")"
	case KindArray:
		if d.Items == nil {
			return "array"
		}
		return "array of " + d.Items.Describe()
	case KindObject:
		return fmt.Sprintf("object with %d properties", len(d.Properties))
	}
	return "unknown"
}

// literalKind classifies a literal value for enum homogeneity checks.
func literalKind(v any) (Primitive, bool) {
	switch v.(type) {
	case string:
		return String, true
	case float64:
		return Number, true
	case bool:
		return Boolean, true
	}
	return "", false
}

// Check verifies the structural invariants of the document tree.
func (d Document) Check() error {
	switch d.Kind {
	case KindAny:
		return nil
	case KindPrimitive:
		switch d.Primitive {
		case Number, String, Boolean:
			return nil
		}
		return fmt.Errorf("unknown primitive %q", d.Primitive)
	case KindConst:
		if _, ok := literalKind(d.Value); !ok {
			return fmt.Errorf("const value %v (%T) is not a literal", d.Value, d.Value)
		}
		return nil
	case KindEnum:
		if len(d.Values) == 0 {
			return fmt.Errorf("enum has no values")
		}
		first, ok := literalKind(d.Values[0])
		if !ok {
			return fmt.Errorf("enum value %v (%T) is not a literal", d.Values[0], d.Values[0])
		}
		for _, v := range d.Values[1:] {
			if k, ok := literalKind(v); !ok || k != first {
				return fmt.Errorf("enum mixes literal kinds: %v", d.Values)
			}
		}
		return nil
	case KindArray:
		if d.Items == nil {
			return fmt.Errorf("array has no item schema")
		}
		return d.Items.Check()
	case KindObject:
		seen := make(map[string]bool, len(d.Properties))
		for _, p := range d.Properties {
			if seen[p.Name] {
				return fmt.Errorf("duplicate property %q", p.Name)
			}
			seen[p.Name] = true
			if err := p.Schema.Check(); err != nil {
				return fmt.Errorf("property %q: %w", p.Name, err)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown schema kind %q", d.Kind)
}
