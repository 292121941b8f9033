package synth

import (
	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
)

// Resolver answers the type questions the synthesizer asks. It is the only
// path from the synthesizer to the type checker.
type Resolver interface {
	// TypeFromTypeNode resolves a syntactic type annotation.
	TypeFromTypeNode(node *ast.Node) *shimchecker.Type
	// Properties returns the structural properties of an object type.
	Properties(t *shimchecker.Type) []*ast.Symbol
	// TypeOfSymbol returns the declared type of a property symbol.
	TypeOfSymbol(sym *ast.Symbol) *shimchecker.Type
	// IsArray reports whether t is Array<T> (or T[]).
	IsArray(t *shimchecker.Type) bool
	// TypeArguments returns the type arguments of a generic reference.
	TypeArguments(t *shimchecker.Type) []*shimchecker.Type
	// IsTuple reports whether t is a tuple type such as [string, number].
	IsTuple(t *shimchecker.Type) bool
	// HasCallSignatures reports whether t is callable.
	HasCallSignatures(t *shimchecker.Type) bool
	// HasIndexSignature reports whether t declares a string, number or
	// symbol index signature, as Record<string, T> does.
	HasIndexSignature(t *shimchecker.Type) bool
	// BaseConstraint returns the constraint of a type parameter, or nil.
	BaseConstraint(t *shimchecker.Type) *shimchecker.Type
}

type checkerResolver struct {
	checker *shimchecker.Checker
}

// NewCheckerResolver returns a Resolver backed by a type checker.
func NewCheckerResolver(checker *shimchecker.Checker) Resolver {
	return &checkerResolver{checker: checker}
}

func (r *checkerResolver) TypeFromTypeNode(node *ast.Node) *shimchecker.Type {
	return shimchecker.Checker_getTypeFromTypeNode(r.checker, node)
}

func (r *checkerResolver) Properties(t *shimchecker.Type) []*ast.Symbol {
	return shimchecker.Checker_getPropertiesOfType(r.checker, t)
}

func (r *checkerResolver) TypeOfSymbol(sym *ast.Symbol) *shimchecker.Type {
	return shimchecker.Checker_getTypeOfSymbol(r.checker, sym)
}

func (r *checkerResolver) IsArray(t *shimchecker.Type) bool {
	return shimchecker.Checker_isArrayType(r.checker, t)
}

func (r *checkerResolver) TypeArguments(t *shimchecker.Type) []*shimchecker.Type {
	return shimchecker.Checker_getTypeArguments(r.checker, t)
}

func (r *checkerResolver) IsTuple(t *shimchecker.Type) bool {
	return shimchecker.IsTupleType(t)
}

func (r *checkerResolver) HasIndexSignature(t *shimchecker.Type) bool {
	return len(shimchecker.Checker_getIndexInfosOfType(r.checker, t)) > 0
}

func (r *checkerResolver) HasCallSignatures(t *shimchecker.Type) bool {
	return len(shimchecker.Checker_getSignaturesOfType(r.checker, t, shimchecker.SignatureKindCall)) > 0
}

func (r *checkerResolver) BaseConstraint(t *shimchecker.Type) *shimchecker.Type {
	c := shimchecker.Checker_getBaseConstraintOfType(r.checker, t)
	if c == t {
		return nil
	}
	return c
}
