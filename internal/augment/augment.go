// Package augment finds recognized call and decorator sites in a unit and
// produces a new unit text with synthesized schemas spliced into them.
//
// The syntax tree and its text are never modified. Augment records
// insertions against the original text and builds a fresh text from them,
// so every untouched region is carried over byte for byte.
package augment

import (
	"sort"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimscanner "github.com/microsoft/typescript-go/shim/scanner"

	"github.com/dyncast/dyncast/internal/registry"
	"github.com/dyncast/dyncast/internal/schema"
	"github.com/dyncast/dyncast/internal/synth"
)

// SiteKind distinguishes the two recognized forms.
type SiteKind string

const (
	SiteCall      SiteKind = "call"
	SiteDecorator SiteKind = "decorator"
)

// Entry keys inserted into decorator options.
const (
	EntryName       = "name"
	EntryJSONSchema = "jsonSchema"
)

// Site is one recognized call or decorator.
type Site struct {
	Kind SiteKind
	// Name is the recognized callee name.
	Name string
	// Param is the decorated parameter's source name. Empty for calls.
	Param  string
	Pos    int
	Line   int // 1-based
	Column int // 1-based
	Schema schema.Document
	// Added lists the entries this site received. Calls report "schema";
	// decorators report the option keys they gained.
	Added []string
	// Warnings raised while synthesizing this site's schema.
	Warnings []synth.Warning
}

// Result is the outcome of augmenting one unit.
type Result struct {
	FileName string
	// Text is the new unit text. It equals the original when nothing changed.
	Text     string
	Changed  bool
	Sites    []Site
	Warnings []synth.Warning
}

// Augmenter rewrites units against a fixed registry. One Augmenter may be
// reused across units; each call to Augment gets its own Synthesizer.
type Augmenter struct {
	resolver synth.Resolver
	registry *registry.Registry
}

// New creates an Augmenter. reg must not be nil.
func New(resolver synth.Resolver, reg *registry.Registry) *Augmenter {
	return &Augmenter{resolver: resolver, registry: reg}
}

type insertion struct {
	pos  int
	text string
}

// unit carries the per-file state of one Augment call.
type unit struct {
	sf         *ast.SourceFile
	text       string
	synth      *synth.Synthesizer
	registry   *registry.Registry
	insertions []insertion
	sites      []Site
	err        error
}

// Augment visits every node of sf once, depth first, and returns the new
// text. Any site failure aborts the whole unit and no text is returned.
func (a *Augmenter) Augment(sf *ast.SourceFile) (*Result, error) {
	u := &unit{
		sf:       sf,
		text:     sf.Text(),
		synth:    synth.New(a.resolver),
		registry: a.registry,
	}
	u.visit(sf.AsNode(), nil)
	if u.err != nil {
		return nil, u.err
	}

	text := u.text
	if len(u.insertions) > 0 {
		text = applyInsertions(u.text, u.insertions)
	}
	return &Result{
		FileName: sf.FileName(),
		Text:     text,
		Changed:  len(u.insertions) > 0,
		Sites:    u.sites,
		Warnings: u.synth.Warnings(),
	}, nil
}

func (u *unit) visit(node, parent *ast.Node) {
	if node == nil || u.err != nil {
		return
	}

	switch node.Kind {
	case ast.KindCallExpression:
		u.callSite(node)
	case ast.KindDecorator:
		u.decoratorSite(node, parent)
	}
	if u.err != nil {
		return
	}

	node.ForEachChild(func(child *ast.Node) bool {
		u.visit(child, node)
		return u.err != nil
	})
}

func (u *unit) callSite(node *ast.Node) {
	call := node.AsCallExpression()
	if call.Expression == nil || call.Expression.Kind != ast.KindIdentifier {
		return
	}
	name := call.Expression.AsIdentifier().Text
	if _, ok := u.registry.Call(name); !ok {
		return
	}
	if call.TypeArguments == nil || len(call.TypeArguments.Nodes) != 1 {
		return
	}
	if call.Arguments == nil || len(call.Arguments.Nodes) != 1 {
		return
	}

	site := Site{Kind: SiteCall, Name: name, Pos: node.Pos(), Added: []string{"schema"}}
	quoted, err := u.synthesize(&site, call.TypeArguments.Nodes[0])
	if err != nil {
		u.fail(node, name, err)
		return
	}

	arg := call.Arguments.Nodes[0]
	u.insertions = append(u.insertions, insertion{pos: arg.End(), text: ", " + quoted})
	u.record(site)
}

func (u *unit) decoratorSite(node, parent *ast.Node) {
	expr := node.AsDecorator().Expression
	if expr == nil || expr.Kind != ast.KindCallExpression {
		return
	}
	call := expr.AsCallExpression()
	if call.Expression == nil || call.Expression.Kind != ast.KindIdentifier {
		return
	}
	name := call.Expression.AsIdentifier().Text
	entry, ok := u.registry.Decorator(name)
	if !ok {
		return
	}
	if parent == nil || parent.Kind != ast.KindParameter {
		parent = node.Parent
	}
	if parent == nil || parent.Kind != ast.KindParameter {
		return
	}
	param := parent.AsParameterDeclaration()

	var options *ast.Node
	if call.Arguments != nil && len(call.Arguments.Nodes) > 0 {
		options = call.Arguments.Nodes[0]
		if options.Kind != ast.KindObjectLiteralExpression {
			u.fail(node, name, &MalformedDecoratorError{Decorator: name, Found: describeKind(options)})
			return
		}
	}

	site := Site{Kind: SiteDecorator, Name: name, Param: u.paramName(param.Name()), Pos: node.Pos()}
	var entries []string

	if entry.InjectName && !hasEntry(options, EntryName) {
		quoted, err := schema.QuoteString(site.Param)
		if err != nil {
			u.fail(node, name, err)
			return
		}
		entries = append(entries, EntryName+": "+quoted)
		site.Added = append(site.Added, EntryName)
	}

	if !hasEntry(options, EntryJSONSchema) {
		quoted, err := u.synthesize(&site, param.Type)
		if err != nil {
			u.fail(node, name, err)
			return
		}
		entries = append(entries, EntryJSONSchema+": "+quoted)
		site.Added = append(site.Added, EntryJSONSchema)
	}

	u.record(site)
	if len(entries) == 0 {
		return
	}
	body := strings.Join(entries, ", ")

	switch {
	case options == nil:
		// Before the closing parenthesis of the call.
		u.insertions = append(u.insertions, insertion{pos: expr.End() - 1, text: "{ " + body + " }"})
	case len(options.AsObjectLiteralExpression().Properties.Nodes) == 0:
		// Before the closing brace of the empty literal.
		u.insertions = append(u.insertions, insertion{pos: options.End() - 1, text: " " + body + " "})
	default:
		props := options.AsObjectLiteralExpression().Properties.Nodes
		u.insertions = append(u.insertions, insertion{pos: props[len(props)-1].End(), text: ", " + body})
	}
}

// synthesize fills site.Schema and site.Warnings from typeNode and returns
// the schema as a quoted string literal.
func (u *unit) synthesize(site *Site, typeNode *ast.Node) (string, error) {
	seen := len(u.synth.Warnings())
	doc, err := u.synth.FromTypeNode(typeNode)
	if err != nil {
		return "", err
	}
	if ws := u.synth.Warnings(); len(ws) > seen {
		site.Warnings = append([]synth.Warning(nil), ws[seen:]...)
	}
	site.Schema = doc
	return schema.Quote(doc)
}

// hasEntry reports whether an options literal already names key, as an
// identifier, a string literal, a shorthand property or a method.
func hasEntry(options *ast.Node, key string) bool {
	if options == nil {
		return false
	}
	for _, prop := range options.AsObjectLiteralExpression().Properties.Nodes {
		switch prop.Kind {
		case ast.KindPropertyAssignment, ast.KindShorthandPropertyAssignment,
			ast.KindMethodDeclaration, ast.KindGetAccessor, ast.KindSetAccessor:
		default:
			continue
		}
		name := prop.Name()
		if name == nil {
			continue
		}
		switch name.Kind {
		case ast.KindIdentifier:
			if name.AsIdentifier().Text == key {
				return true
			}
		case ast.KindStringLiteral:
			if name.AsStringLiteral().Text == key {
				return true
			}
		}
	}
	return false
}

func (u *unit) paramName(name *ast.Node) string {
	if name == nil {
		return ""
	}
	if name.Kind == ast.KindIdentifier {
		return name.AsIdentifier().Text
	}
	return strings.TrimSpace(u.text[name.Pos():name.End()])
}

func (u *unit) record(site Site) {
	site.Line, site.Column = u.position(site.Pos)
	u.sites = append(u.sites, site)
}

func (u *unit) fail(node *ast.Node, site string, err error) {
	line, col := u.position(node.Pos())
	u.err = &SiteError{
		File:   u.sf.FileName(),
		Line:   line,
		Column: col,
		Site:   site,
		Err:    err,
	}
}

// position converts a node start, which includes leading trivia, into a
// 1-based line and column of its first token.
func (u *unit) position(pos int) (int, int) {
	pos = skipTrivia(u.text, pos)
	line, char := shimscanner.GetECMALineAndCharacterOfPosition(u.sf, pos)
	return line + 1, char + 1
}

func describeKind(node *ast.Node) string {
	switch node.Kind {
	case ast.KindStringLiteral, ast.KindNoSubstitutionTemplateLiteral, ast.KindTemplateExpression:
		return "string"
	case ast.KindNumericLiteral:
		return "number"
	case ast.KindTrueKeyword, ast.KindFalseKeyword:
		return "boolean"
	case ast.KindArrayLiteralExpression:
		return "array literal"
	case ast.KindIdentifier:
		return "identifier " + node.AsIdentifier().Text
	case ast.KindArrowFunction, ast.KindFunctionExpression:
		return "function"
	}
	return "expression"
}

// applyInsertions builds a new text from the original and a set of
// insertions. Insertions at the same offset keep discovery order.
func applyInsertions(text string, ins []insertion) string {
	sorted := make([]insertion, len(ins))
	copy(sorted, ins)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].pos < sorted[j].pos })

	var b strings.Builder
	extra := 0
	for _, in := range sorted {
		extra += len(in.text)
	}
	b.Grow(len(text) + extra)

	last := 0
	for _, in := range sorted {
		b.WriteString(text[last:in.pos])
		b.WriteString(in.text)
		last = in.pos
	}
	b.WriteString(text[last:])
	return b.String()
}

// skipTrivia advances pos past whitespace and comments.
func skipTrivia(text string, pos int) int {
	for pos < len(text) {
		switch c := text[pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			pos++
		case strings.HasPrefix(text[pos:], "//"):
			end := strings.IndexByte(text[pos:], '\n')
			if end < 0 {
				return len(text)
			}
			pos += end + 1
		case strings.HasPrefix(text[pos:], "/*"):
			end := strings.Index(text[pos+2:], "*/")
			if end < 0 {
				return len(text)
			}
			pos += end + 4
		default:
			return pos
		}
	}
	return pos
}
