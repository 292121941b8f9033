package augment_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dyncast/dyncast/internal/augment"
	"github.com/dyncast/dyncast/internal/registry"
	"github.com/dyncast/dyncast/internal/schema"
	"github.com/dyncast/dyncast/internal/synth"
)

func TestAugment_CallSite(t *testing.T) {
	res, err := augmentSource(t, `const n = dynamic_cast<number>(input);
const s = dynamic_cast<string[]>(JSON.parse(raw));
`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `const n = dynamic_cast<number>(input, "{\"type\":\"number\"}");
const s = dynamic_cast<string[]>(JSON.parse(raw), "{\"items\":{\"type\":\"string\"},\"additionalItems\":true}");
`
	if res.Text != want {
		t.Errorf("got:\n%s\nwant:\n%s", res.Text, want)
	}
	if !res.Changed {
		t.Error("expected Changed = true")
	}
	if len(res.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(res.Sites))
	}
	first := res.Sites[0]
	if first.Kind != augment.SiteCall || first.Name != "dynamic_cast" {
		t.Errorf("unexpected site %+v", first)
	}
	if first.Line != 5 || first.Column != 11 {
		t.Errorf("expected 5:11, got %d:%d", first.Line, first.Column)
	}
}

func TestAugment_CallArityMismatchIsUntouched(t *testing.T) {
	source := `const a = dynamic_cast<number>(x, y);
const b = dynamic_cast(x);
const c = dynamic_cast<number, string>(x);
const d = other<number>(x);
`
	res, err := augmentSource(t, source, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed || res.Text != source {
		t.Errorf("expected text to be untouched, got:\n%s", res.Text)
	}
	if len(res.Sites) != 0 {
		t.Errorf("expected no sites, got %d", len(res.Sites))
	}
}

func TestAugment_CallIdempotent(t *testing.T) {
	first, err := augmentSource(t, "const n = dynamic_cast<{ a: number }>(input);\n", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := augmentSource(t, first.Text, nil)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if second.Changed || second.Text != first.Text {
		t.Errorf("second pass changed the text:\n%s", second.Text)
	}
}

func TestAugment_DecoratorWithoutArguments(t *testing.T) {
	res, err := augmentSource(t, `class Users {
  get(@PathVariable() id: number, @RequestBody() body: { name: string }) {}
}
`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `class Users {
  get(@PathVariable({ name: "id", jsonSchema: "{\"type\":\"number\"}" }) id: number, ` +
		`@RequestBody({ jsonSchema: "{\"properties\":{\"name\":{\"type\":\"string\"}},\"required\":[\"name\"],\"additionalProperties\":false}" }) body: { name: string }) {}
}
`
	if res.Text != want {
		t.Errorf("got:\n%s\nwant:\n%s", res.Text, want)
	}
	if len(res.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(res.Sites))
	}
	path := res.Sites[0]
	if path.Kind != augment.SiteDecorator || path.Param != "id" {
		t.Errorf("unexpected site %+v", path)
	}
	if strings.Join(path.Added, ",") != "name,jsonSchema" {
		t.Errorf("unexpected added entries %v", path.Added)
	}
	if strings.Join(res.Sites[1].Added, ",") != "jsonSchema" {
		t.Errorf("body decorator must not receive a name, got %v", res.Sites[1].Added)
	}
}

func TestAugment_DecoratorExtendsOptions(t *testing.T) {
	res, err := augmentSource(t, `class Search {
  find(@RequestParam({ name: "q" }) query: string, @RequestBody({}) flag: boolean) {}
}
`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `class Search {
  find(@RequestParam({ name: "q", jsonSchema: "{\"type\":\"string\"}" }) query: string, ` +
		`@RequestBody({ jsonSchema: "{\"type\":\"boolean\"}" }) flag: boolean) {}
}
`
	if res.Text != want {
		t.Errorf("got:\n%s\nwant:\n%s", res.Text, want)
	}
}

func TestAugment_DecoratorIdempotent(t *testing.T) {
	source := `class Items {
  one(@PathVariable({ jsonSchema: "{}", "name": "custom" }) id: number) {}
  two(@RequestParam({ name, jsonSchema }) q: string) {}
}
const name = "n";
const jsonSchema = "{}";
`
	res, err := augmentSource(t, source, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed || res.Text != source {
		t.Errorf("expected text to be untouched, got:\n%s", res.Text)
	}
	if len(res.Sites) != 2 {
		t.Fatalf("expected sites to be recorded, got %d", len(res.Sites))
	}
	for _, s := range res.Sites {
		if len(s.Added) != 0 {
			t.Errorf("expected nothing added at %s, got %v", s.Param, s.Added)
		}
	}

	first, err := augmentSource(t, "class A { m(@PathVariable() id: string) {} }\n", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := augmentSource(t, first.Text, nil)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if second.Changed || second.Text != first.Text {
		t.Errorf("second pass changed the text:\n%s", second.Text)
	}
}

func TestAugment_MissingAnnotationIsAny(t *testing.T) {
	res, err := augmentSource(t, "class A { m(@RequestBody() body) {} }\n", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Text, `@RequestBody({ jsonSchema: "{\"additionalItems\":true}" })`) {
		t.Errorf("expected any schema, got:\n%s", res.Text)
	}
}

func TestAugment_DecoratorOutsideParameterIgnored(t *testing.T) {
	source := "class A { @RequestBody() m() {} }\n"
	res, err := augmentSource(t, source, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed || len(res.Sites) != 0 {
		t.Errorf("expected method decorator to be ignored, got:\n%s", res.Text)
	}
}

func TestAugment_MalformedDecoratorAbortsUnit(t *testing.T) {
	res, err := augmentSource(t, `const ok = dynamic_cast<number>(v);
class A {
  m(@PathVariable("id") id: number) {}
}
`, nil)
	if res != nil {
		t.Fatalf("expected no result for a failed unit, got:\n%s", res.Text)
	}
	var se *augment.SiteError
	if !errors.As(err, &se) {
		t.Fatalf("expected SiteError, got %v", err)
	}
	var me *augment.MalformedDecoratorError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedDecoratorError, got %v", err)
	}
	if me.Decorator != "PathVariable" || me.Found != "string" {
		t.Errorf("unexpected error fields %+v", me)
	}
	if se.Line != 7 || se.Column != 5 {
		t.Errorf("expected 7:5, got %d:%d", se.Line, se.Column)
	}
	if !strings.HasSuffix(se.File, "test.ts") {
		t.Errorf("expected file test.ts, got %q", se.File)
	}
}

func TestAugment_UnsupportedTypeAbortsUnit(t *testing.T) {
	res, err := augmentSource(t, `const ok = dynamic_cast<number>(v);
const bad = dynamic_cast<1 | "two">(v);
`, nil)
	if res != nil {
		t.Fatal("expected no result for a failed unit")
	}
	var ue *synth.UnsupportedTypeError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedTypeError, got %v", err)
	}
	if ue.TypeName != `1 | "two"` {
		t.Errorf("unexpected type name %q", ue.TypeName)
	}
	var se *augment.SiteError
	if !errors.As(err, &se) {
		t.Error("expected error to carry a site location")
	}
	if !strings.Contains(err.Error(), ":6:13: dynamic_cast:") {
		t.Errorf("expected location in message, got %q", err.Error())
	}
}

func TestAugment_CustomRegistry(t *testing.T) {
	reg, err := registry.New(
		registry.Entry{Name: "cast", Form: registry.FormCall},
		registry.Entry{Name: "Header", Form: registry.FormDecorator, InjectName: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	res, err := augmentSource(t, `declare function cast<T>(v: unknown, s?: string): T;
declare function Header(o?: object): ParameterDecorator;
const a = cast<boolean>(v);
const b = dynamic_cast<boolean>(v);
class A { m(@Header() token: "a" | "b") {} }
`, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Text, `cast<boolean>(v, "{\"type\":\"boolean\"}")`) {
		t.Errorf("expected custom call to be augmented:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, `dynamic_cast<boolean>(v);`) {
		t.Errorf("default call name must be ignored by a custom registry:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, `@Header({ name: "token", jsonSchema: "{\"enum\":[\"a\",\"b\"]}" })`) {
		t.Errorf("expected custom decorator to be augmented:\n%s", res.Text)
	}
}

func TestAugment_SiteSchemaMatchesText(t *testing.T) {
	res, err := augmentSource(t, "const x = dynamic_cast<{ a?: number; b: string }>(v);\n", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := res.Sites[0].Schema
	if doc.Kind != schema.KindObject {
		t.Fatalf("expected object schema, got %s", doc.Kind)
	}
	quoted, err := schema.Quote(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Text, quoted) {
		t.Errorf("site schema %s not found in text", quoted)
	}
}

func TestAugment_SiteCarriesWarnings(t *testing.T) {
	res, err := augmentSource(t, `interface Tree { label: string; children: Tree[] }
const plain = dynamic_cast<number>(v);
const tree = dynamic_cast<Tree>(v);
`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(res.Sites))
	}
	if len(res.Sites[0].Warnings) != 0 {
		t.Errorf("expected no warnings on the first site, got %v", res.Sites[0].Warnings)
	}
	ws := res.Sites[1].Warnings
	if len(ws) != 1 || ws[0].Kind != synth.WarnCircularType || ws[0].TypeName != "Tree" {
		t.Errorf("expected one circular-type warning for Tree, got %v", ws)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected the unit to report 1 warning, got %d", len(res.Warnings))
	}
}
