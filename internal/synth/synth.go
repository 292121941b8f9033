// Package synth turns TypeScript types into schema documents.
//
// Two entry points share one algebra: FromTypeNode works on a syntactic
// annotation and keeps its written order, FromType works on a resolved type
// handle. Named references met in syntax are resolved through the injected
// Resolver and then handled as types.
package synth

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"

	"github.com/dyncast/dyncast/internal/schema"
)

// maxDepth bounds schema nesting. Deeper types synthesize to Any.
const maxDepth = 32

// Synthesizer converts types into schema documents. It keeps per-walk state
// and is not safe for concurrent use; create one per unit.
type Synthesizer struct {
	resolver Resolver
	// visiting holds the object types on the current path, for cycle detection.
	visiting map[shimchecker.TypeId]bool
	depth    int
	warnings []Warning
}

// New creates a Synthesizer that resolves types through r.
func New(r Resolver) *Synthesizer {
	return &Synthesizer{
		resolver: r,
		visiting: make(map[shimchecker.TypeId]bool),
	}
}

// Warnings returns the warnings recorded so far.
func (s *Synthesizer) Warnings() []Warning {
	return s.warnings
}

func (s *Synthesizer) warn(kind, typeName, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{
		Kind:     kind,
		TypeName: typeName,
		Message:  fmt.Sprintf(format, args...),
	})
}

// enter descends one nesting level. It returns false, after recording a
// warning, when the depth limit is reached.
func (s *Synthesizer) enter(name func() string) bool {
	if s.depth >= maxDepth {
		n := name()
		s.warn(WarnDepthExceeded, n, "type %s nests deeper than %d levels; using any", n, maxDepth)
		return false
	}
	s.depth++
	return true
}

func (s *Synthesizer) leave() { s.depth-- }

// FromTypeNode synthesizes a schema from a type annotation. A nil node
// yields Any.
func (s *Synthesizer) FromTypeNode(node *ast.Node) (schema.Document, error) {
	if node == nil {
		return schema.Any(), nil
	}

	switch node.Kind {
	case ast.KindParenthesizedType:
		return s.FromTypeNode(node.AsParenthesizedTypeNode().Type)
	case ast.KindNumberKeyword:
		return schema.PrimitiveOf(schema.Number), nil
	case ast.KindStringKeyword:
		return schema.PrimitiveOf(schema.String), nil
	case ast.KindBooleanKeyword:
		return schema.PrimitiveOf(schema.Boolean), nil
	case ast.KindAnyKeyword, ast.KindUnknownKeyword:
		return schema.Any(), nil
	case ast.KindArrayType:
		if !s.enter(func() string { return nodeText(node) }) {
			return schema.Any(), nil
		}
		defer s.leave()
		items, err := s.FromTypeNode(node.AsArrayTypeNode().ElementType)
		if err != nil {
			return schema.Document{}, err
		}
		return schema.ArrayOf(items), nil
	case ast.KindUnionType:
		return s.fromUnionNode(node)
	}

	t := s.resolver.TypeFromTypeNode(node)
	d, err := s.FromType(t)
	if err != nil {
		return schema.Document{}, renameUnsupported(err, t, node)
	}
	return d, nil
}

// fromUnionNode keeps the written order of a literal union. Anything else
// is delegated to the resolved union type.
func (s *Synthesizer) fromUnionNode(node *ast.Node) (schema.Document, error) {
	members := node.AsUnionTypeNode().Types.Nodes
	types := make([]*shimchecker.Type, 0, len(members))
	for _, m := range members {
		types = append(types, s.resolver.TypeFromTypeNode(m))
	}
	if values, ok := literalEnum(types); ok {
		return schema.Enum(values...), nil
	}

	t := s.resolver.TypeFromTypeNode(node)
	d, err := s.FromType(t)
	if err != nil {
		return schema.Document{}, renameUnsupported(err, t, node)
	}
	return d, nil
}

// FromType synthesizes a schema from a resolved type. A nil type yields Any.
func (s *Synthesizer) FromType(t *shimchecker.Type) (schema.Document, error) {
	if t == nil {
		return schema.Any(), nil
	}
	if !s.enter(func() string { return displayName(t) }) {
		return schema.Any(), nil
	}
	defer s.leave()

	flags := t.Flags()
	switch {
	case flags&(shimchecker.TypeFlagsAny|shimchecker.TypeFlagsUnknown) != 0:
		return schema.Any(), nil

	// boolean is the union true | false and must be checked before unions.
	case flags&shimchecker.TypeFlagsBoolean != 0:
		return schema.PrimitiveOf(schema.Boolean), nil

	case flags&shimchecker.TypeFlagsUnion != 0:
		return s.fromUnion(t, t.Types())

	case flags&shimchecker.TypeFlagsObject != 0:
		return s.fromObject(t)

	case flags&shimchecker.TypeFlagsString != 0:
		return schema.PrimitiveOf(schema.String), nil
	case flags&shimchecker.TypeFlagsNumber != 0:
		return schema.PrimitiveOf(schema.Number), nil

	case flags&(shimchecker.TypeFlagsStringLiteral|shimchecker.TypeFlagsNumberLiteral|shimchecker.TypeFlagsBooleanLiteral) != 0:
		if v, ok := literalValue(t); ok {
			return schema.Const(v), nil
		}

	case flags&shimchecker.TypeFlagsTypeParameter != 0:
		if c := s.resolver.BaseConstraint(t); c != nil {
			return s.FromType(c)
		}
		return schema.Any(), nil
	}

	return schema.Document{}, unsupported(t, "")
}

// fromUnion handles the members of a union. members may already have the
// implicit undefined of an optional property removed.
func (s *Synthesizer) fromUnion(t *shimchecker.Type, members []*shimchecker.Type) (schema.Document, error) {
	switch len(members) {
	case 0:
		return schema.Any(), nil
	case 1:
		return s.FromType(members[0])
	}

	if isBooleanPair(members) {
		return schema.PrimitiveOf(schema.Boolean), nil
	}

	values, ok := literalEnum(members)
	if !ok {
		return schema.Document{}, unsupported(t, "union members must be literals of one kind")
	}
	if len(members) == len(t.Types()) {
		if d, ok := s.aliasOrder(t); ok {
			return d, nil
		}
	}
	return schema.Enum(values...), nil
}

// aliasOrder re-reads a literal union through its alias declaration so the
// enum keeps the order it was written in.
func (s *Synthesizer) aliasOrder(t *shimchecker.Type) (schema.Document, bool) {
	alias := shimchecker.Type_alias(t)
	if alias == nil || alias.Symbol() == nil {
		return schema.Document{}, false
	}
	for _, decl := range alias.Symbol().Declarations {
		if decl.Kind != ast.KindTypeAliasDeclaration {
			continue
		}
		body := decl.AsTypeAliasDeclaration().Type
		if body == nil || body.Kind != ast.KindUnionType {
			continue
		}
		if len(body.AsUnionTypeNode().Types.Nodes) != len(t.Types()) {
			continue
		}
		d, err := s.fromUnionNode(body)
		if err != nil || d.Kind != schema.KindEnum {
			continue
		}
		return d, true
	}
	return schema.Document{}, false
}

func (s *Synthesizer) fromObject(t *shimchecker.Type) (schema.Document, error) {
	if s.resolver.IsArray(t) {
		args := s.resolver.TypeArguments(t)
		if len(args) == 0 {
			return schema.ArrayOf(schema.Any()), nil
		}
		items, err := s.FromType(args[0])
		if err != nil {
			return schema.Document{}, err
		}
		return schema.ArrayOf(items), nil
	}

	if s.resolver.IsTuple(t) {
		return schema.Document{}, unsupported(t, "tuple types have no schema")
	}
	if s.resolver.HasCallSignatures(t) {
		return schema.Document{}, unsupported(t, "function types have no schema")
	}
	// Index signatures admit keys outside the property list, which a closed
	// object cannot express.
	if s.resolver.HasIndexSignature(t) {
		return schema.Document{}, unsupported(t, "index signatures have no schema")
	}

	if s.visiting[t.Id()] {
		name := displayName(t)
		s.warn(WarnCircularType, name, "type %s refers to itself; the recursive member accepts any value", name)
		return schema.Any(), nil
	}
	s.visiting[t.Id()] = true
	defer delete(s.visiting, t.Id())

	props := []schema.Property{}
	for _, sym := range s.resolver.Properties(t) {
		if isMethod(sym) {
			continue
		}
		optional := sym.Flags&ast.SymbolFlagsOptional != 0
		d, err := s.fromProperty(sym, optional)
		if err != nil {
			return schema.Document{}, err
		}
		props = append(props, schema.Property{
			Name:     sym.Name,
			Schema:   d,
			Required: !optional,
		})
	}
	return schema.Object(props...), nil
}

// fromProperty prefers the written annotation of a property when it denotes
// the same type the checker resolved. Generic instantiations fall back to
// the resolved type.
func (s *Synthesizer) fromProperty(sym *ast.Symbol, optional bool) (schema.Document, error) {
	resolved := s.resolver.TypeOfSymbol(sym)
	members := definedMembers(resolved, optional)

	if annotation := propertyAnnotation(sym); annotation != nil {
		written := s.resolver.TypeFromTypeNode(annotation)
		if sameType(written, resolved, members) {
			return s.FromTypeNode(annotation)
		}
	}

	if resolved != nil && resolved.Flags()&shimchecker.TypeFlagsUnion != 0 &&
		resolved.Flags()&shimchecker.TypeFlagsBoolean == 0 {
		if !s.enter(func() string { return displayName(resolved) }) {
			return schema.Any(), nil
		}
		defer s.leave()
		return s.fromUnion(resolved, members)
	}
	return s.FromType(resolved)
}

// definedMembers returns the union members of t without the implicit
// undefined an optional property acquires.
func definedMembers(t *shimchecker.Type, optional bool) []*shimchecker.Type {
	if t == nil || t.Flags()&shimchecker.TypeFlagsUnion == 0 {
		return nil
	}
	if !optional {
		return t.Types()
	}
	var out []*shimchecker.Type
	for _, m := range t.Types() {
		if m.Flags()&shimchecker.TypeFlagsUndefined == 0 {
			out = append(out, m)
		}
	}
	return out
}

func sameType(written, resolved *shimchecker.Type, members []*shimchecker.Type) bool {
	if written == nil || resolved == nil {
		return false
	}
	if written.Id() == resolved.Id() {
		return true
	}
	if members == nil {
		return false
	}
	if len(members) == 1 {
		return written.Id() == members[0].Id()
	}
	if written.Flags()&shimchecker.TypeFlagsUnion == 0 || len(written.Types()) != len(members) {
		return false
	}
	ids := make(map[shimchecker.TypeId]bool, len(members))
	for _, m := range members {
		ids[m.Id()] = true
	}
	for _, m := range written.Types() {
		if !ids[m.Id()] {
			return false
		}
	}
	return true
}

func propertyAnnotation(sym *ast.Symbol) *ast.Node {
	decl := sym.ValueDeclaration
	if decl == nil {
		return nil
	}
	switch decl.Kind {
	case ast.KindPropertySignature:
		return decl.AsPropertySignatureDeclaration().Type
	case ast.KindPropertyDeclaration:
		return decl.AsPropertyDeclaration().Type
	}
	return nil
}

func isMethod(sym *ast.Symbol) bool {
	decl := sym.ValueDeclaration
	return decl != nil && (decl.Kind == ast.KindMethodDeclaration || decl.Kind == ast.KindMethodSignature)
}

func isBooleanPair(members []*shimchecker.Type) bool {
	if len(members) != 2 {
		return false
	}
	seen := map[bool]bool{}
	for _, m := range members {
		if m.Flags()&shimchecker.TypeFlagsBooleanLiteral == 0 {
			return false
		}
		v, ok := literalValue(m)
		if !ok {
			return false
		}
		seen[v.(bool)] = true
	}
	return seen[true] && seen[false]
}

// literalEnum returns the values of a union whose members are all literals
// of the same kind. A true | false pair is not an enum.
func literalEnum(members []*shimchecker.Type) ([]any, bool) {
	if len(members) == 0 || isBooleanPair(members) {
		return nil, false
	}
	values := make([]any, 0, len(members))
	var kind reflect.Kind
	for i, m := range members {
		v, ok := literalValue(m)
		if !ok {
			return nil, false
		}
		k := reflect.TypeOf(v).Kind()
		if i == 0 {
			kind = k
		} else if k != kind {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// literalValue extracts a string, float64 or bool from a literal type.
func literalValue(t *shimchecker.Type) (any, bool) {
	if t == nil {
		return nil, false
	}
	flags := t.Flags()
	if flags&(shimchecker.TypeFlagsStringLiteral|shimchecker.TypeFlagsNumberLiteral|shimchecker.TypeFlagsBooleanLiteral) == 0 {
		return nil, false
	}
	lit := t.AsLiteralType()
	if lit == nil {
		return nil, false
	}
	switch v := lit.Value().(type) {
	case string:
		return v, true
	case bool:
		return v, true
	}
	if f, ok := toFloat(lit.Value()); ok {
		return f, true
	}
	return nil, false
}

// toFloat converts checker numeric values, which use a named float64 type,
// into a plain float64.
func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	}
	return 0, false
}

// unsupported builds the error for t. The type is remembered so a caller
// holding the written annotation can give a better name.
func unsupported(t *shimchecker.Type, reason string) *UnsupportedTypeError {
	return &UnsupportedTypeError{TypeName: displayName(t), Reason: reason, typ: t}
}

func renameUnsupported(err error, t *shimchecker.Type, node *ast.Node) error {
	var ue *UnsupportedTypeError
	if errors.As(err, &ue) && ue.typ == t {
		if text := nodeText(node); text != "" {
			ue.TypeName = text
		}
	}
	return err
}

// displayName names a type for messages without asking the checker to
// print it.
func displayName(t *shimchecker.Type) string {
	if t == nil {
		return "<nil>"
	}
	if v, ok := literalValue(t); ok {
		if s, isString := v.(string); isString {
			return strconv.Quote(s)
		}
		return fmt.Sprint(v)
	}
	if alias := shimchecker.Type_alias(t); alias != nil && alias.Symbol() != nil && usableName(alias.Symbol().Name) {
		return alias.Symbol().Name
	}
	flags := t.Flags()
	if flags&shimchecker.TypeFlagsUnion != 0 {
		parts := make([]string, 0, len(t.Types()))
		for _, m := range t.Types() {
			parts = append(parts, displayName(m))
		}
		return strings.Join(parts, " | ")
	}
	if sym := t.Symbol(); sym != nil && usableName(sym.Name) {
		return sym.Name
	}
	switch {
	case flags&shimchecker.TypeFlagsNull != 0:
		return "null"
	case flags&shimchecker.TypeFlagsUndefined != 0:
		return "undefined"
	case flags&shimchecker.TypeFlagsVoid != 0:
		return "void"
	case flags&shimchecker.TypeFlagsNever != 0:
		return "never"
	case flags&(shimchecker.TypeFlagsBigInt|shimchecker.TypeFlagsBigIntLiteral) != 0:
		return "bigint"
	case flags&shimchecker.TypeFlagsESSymbol != 0:
		return "symbol"
	case flags&shimchecker.TypeFlagsIntersection != 0:
		return "intersection"
	case flags&shimchecker.TypeFlagsTemplateLiteral != 0:
		return "template literal"
	case flags&shimchecker.TypeFlagsObject != 0:
		return "object"
	}
	return "unknown type"
}

func usableName(name string) bool {
	if name == "" || name == "__type" || name == "__object" || name == "__function" {
		return false
	}
	return name[0] != '\xfe'
}

// nodeText returns the trimmed source text of a node.
func nodeText(node *ast.Node) string {
	for n := node; n != nil; n = n.Parent {
		if n.Kind != ast.KindSourceFile {
			continue
		}
		text := n.AsSourceFile().Text()
		if node.Pos() < 0 || node.End() > len(text) || node.Pos() > node.End() {
			return ""
		}
		return strings.TrimSpace(text[node.Pos():node.End()])
	}
	return ""
}
