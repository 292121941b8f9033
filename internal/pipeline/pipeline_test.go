package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyncast/dyncast/internal/diagnostic"
	"github.com/dyncast/dyncast/internal/registry"
)

func TestBuild_EmitsAugmentedUnits(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/main.ts": "export const n = dynamic_cast<number>(input);\n",
	})
	res := buildProject(t, dir, Options{Emit: true})

	if !res.OK() {
		t.Fatalf("expected a clean build, failed=%v\n%s", res.Failed(), res.Diagnostics.FormatAll())
	}
	js := readOutput(t, dir, "out/main.js")
	if !strings.Contains(js, `dynamic_cast(input, "{\"type\":\"number\"}")`) {
		t.Errorf("expected augmented call in output:\n%s", js)
	}

	main := res.Unit(srcPath(dir, "src/main.ts"))
	if main == nil {
		t.Fatal("main.ts unit missing")
	}
	if !main.Changed || len(main.Sites) != 1 {
		t.Errorf("unexpected unit %+v", main)
	}
	if outs := res.Emitted()[main.FileName]; len(outs) != 1 || !strings.HasSuffix(outs[0], "out/main.js") {
		t.Errorf("unexpected outputs %v", outs)
	}
}

func TestBuild_FailedUnitIsNotEmitted(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/good.ts": "export const g = dynamic_cast<string>(input);\n",
		"src/bad.ts":  "export const b = dynamic_cast<1 | \"two\">(input);\n",
	})
	res := buildProject(t, dir, Options{Emit: true})

	bad := srcPath(dir, "src/bad.ts")
	if failed := res.Failed(); len(failed) != 1 || failed[0] != bad {
		t.Fatalf("expected only bad.ts to fail, got %v", failed)
	}
	if res.OK() {
		t.Error("expected OK() = false")
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "bad.js")); !os.IsNotExist(err) {
		t.Errorf("bad.js must not be written, stat err = %v", err)
	}
	if js := readOutput(t, dir, "out/good.js"); !strings.Contains(js, `{\"type\":\"string\"}`) {
		t.Errorf("good.js should still be emitted and augmented:\n%s", js)
	}

	diags := diagnosticsFor(res.Diagnostics, bad)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic for bad.ts, got %v", diags)
	}
	d := diags[0]
	if d.Severity != diagnostic.SeverityError || d.Category != diagnostic.CategoryTypeUnsupported {
		t.Errorf("unexpected diagnostic %s", d)
	}
	if d.Line != 1 || d.Column != 18 {
		t.Errorf("expected 1:18, got %d:%d", d.Line, d.Column)
	}
	if !strings.Contains(d.Message, `1 | "two"`) {
		t.Errorf("expected the type to be named, got %q", d.Message)
	}
}

func TestBuild_FailedUnitRemovesStaleOutput(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/x.ts": "export const x = dynamic_cast<string>(input);\n",
	})
	first := buildProject(t, dir, Options{Emit: true})
	if !first.OK() {
		t.Fatalf("first build failed:\n%s", first.Diagnostics.FormatAll())
	}
	stale := filepath.Join(dir, "out", "x.js")
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("expected out/x.js after the first build: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "src", "x.ts"),
		[]byte("export const x = dynamic_cast<[string, number]>(input);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	second := buildProject(t, dir, Options{Emit: true})

	x := second.Unit(srcPath(dir, "src/x.ts"))
	if x == nil || !x.Failed {
		t.Fatalf("expected x.ts to fail, got %+v", x)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("out/x.js from the earlier build must be removed, stat err = %v", err)
	}
	if len(x.Removed) != 1 || !strings.HasSuffix(x.Removed[0], "out/x.js") {
		t.Errorf("unexpected removed list %v", x.Removed)
	}

	var infos int
	for _, d := range diagnosticsFor(second.Diagnostics, x.FileName) {
		if d.Severity == diagnostic.SeverityInfo && d.Category == diagnostic.CategoryToolchain {
			infos++
		}
	}
	if infos != 1 {
		t.Errorf("expected one toolchain info for the removal, got %d", infos)
	}
}

func TestBuild_NoEmitOnErrorWarns(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"tsconfig.json": `{
  "compilerOptions": {"strict": true, "module": "commonjs", "outDir": "out", "noEmitOnError": true},
  "include": ["src"]
}
`,
		"src/a.ts": "const n: number = \"a\";\nexport const a = dynamic_cast<number>(n);\n",
	})
	res := buildProject(t, dir, Options{Emit: true})

	if _, err := os.Stat(filepath.Join(dir, "out", "a.js")); !os.IsNotExist(err) {
		t.Fatalf("noEmitOnError should keep a.js unwritten, stat err = %v", err)
	}
	var skipped bool
	for _, d := range diagnosticsFor(res.Diagnostics, srcPath(dir, "src/a.ts")) {
		if d.Category == diagnostic.CategoryToolchain && strings.Contains(d.Message, "skipped") {
			skipped = true
		}
	}
	if !skipped {
		t.Errorf("expected a toolchain warning for the skipped emit, got:\n%s", res.Diagnostics.FormatAll())
	}
}

func TestBuild_MalformedDecoratorCategory(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/ctrl.ts": "export class C {\n  m(@PathVariable(\"id\") id: number) {}\n}\n",
	})
	res := buildProject(t, dir, Options{Emit: true})

	diags := res.Diagnostics.Diagnostics()
	if len(diags) != 1 || diags[0].Category != diagnostic.CategoryDecoratorMalformed {
		t.Fatalf("expected a decorator-malformed diagnostic, got %v", diags)
	}
	if diags[0].Line != 2 || diags[0].Column != 5 {
		t.Errorf("expected 2:5, got %d:%d", diags[0].Line, diags[0].Column)
	}
}

func TestBuild_ExcludedUnitEmittedAsIs(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/a.ts":        "export const a = dynamic_cast<number>(input);\n",
		"src/raw.skip.ts": "export const r = dynamic_cast<number>(input);\n",
	})
	res := buildProject(t, dir, Options{Emit: true, Exclude: []string{"**/*.skip.ts"}})

	raw := res.Unit(srcPath(dir, "src/raw.skip.ts"))
	if raw == nil || !raw.Skipped || len(raw.Sites) != 0 {
		t.Fatalf("expected raw.skip.ts to be skipped, got %+v", raw)
	}
	if js := readOutput(t, dir, "out/raw.skip.js"); !strings.Contains(js, "dynamic_cast(input)") {
		t.Errorf("expected untouched call in skipped unit:\n%s", js)
	}
	if len(res.Augmented()) != 1 {
		t.Errorf("expected 1 augmented unit, got %d", len(res.Augmented()))
	}
}

func TestBuild_WithoutEmit(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/a.ts": "\nexport const a = dynamic_cast<boolean[]>(input);\n",
	})
	res := buildProject(t, dir, Options{})

	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Errorf("nothing should be written without Emit, stat err = %v", err)
	}
	sites := res.Sites()
	if len(sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(sites))
	}
	if sites[0].Line != 2 || sites[0].Column != 18 {
		t.Errorf("expected 2:18, got %d:%d", sites[0].Line, sites[0].Column)
	}
}

func TestBuild_StrictFailsOnWarnings(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/tree.ts": "interface Tree { children: Tree[] }\nexport const t = dynamic_cast<Tree>(input);\n",
	})

	lenient := buildProject(t, dir, Options{Emit: true})
	if !lenient.OK() || lenient.Diagnostics.WarningCount() != 1 {
		t.Fatalf("expected one warning and a clean build:\n%s", lenient.Diagnostics.FormatAll())
	}

	strict := buildProject(t, dir, Options{Emit: true, Strict: true, Clean: true})
	if len(strict.Failed()) != 1 {
		t.Fatalf("expected strict build to fail the unit")
	}
	d := strict.Diagnostics.Diagnostics()
	if len(d) != 1 || d[0].Severity != diagnostic.SeverityError || d[0].Category != diagnostic.CategoryCircularType {
		t.Errorf("unexpected diagnostics %v", d)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "tree.js")); !os.IsNotExist(err) {
		t.Errorf("tree.js must be cleaned and not rewritten, stat err = %v", err)
	}
}

func TestBuild_ResolvesPathAliases(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"tsconfig.json": `{
  "compilerOptions": {
    "target": "es2020",
    "module": "commonjs",
    "outDir": "out",
    "paths": { "@lib/*": ["src/lib/*"] }
  },
  "include": ["src"]
}
`,
		"src/lib/util.ts": "export const one = 1;\n",
		"src/main.ts":     "import { one } from \"@lib/util\";\nexport const n = dynamic_cast<number>(one);\n",
	})
	res := buildProject(t, dir, Options{Emit: true})
	if !res.OK() {
		t.Fatalf("unexpected failure:\n%s", res.Diagnostics.FormatAll())
	}
	js := readOutput(t, dir, "out/main.js")
	if !strings.Contains(js, `require("./lib/util")`) {
		t.Errorf("expected alias to be rewritten:\n%s", js)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "lib", "util.js")); err != nil {
		t.Errorf("expected out/lib/util.js: %v", err)
	}
}

func TestBuild_CustomRegistry(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/a.ts": "declare function cast<T>(v: unknown, s?: string): T;\nexport const a = cast<string>(input);\n",
	})
	reg, err := registry.New(registry.Entry{Name: "cast", Form: registry.FormCall})
	if err != nil {
		t.Fatal(err)
	}
	res := buildProject(t, dir, Options{Emit: true, Registry: reg})
	if js := readOutput(t, dir, "out/a.js"); !strings.Contains(js, `cast(input, "{\"type\":\"string\"}")`) {
		t.Errorf("expected custom call to be augmented:\n%s", js)
	}
	if !res.OK() {
		t.Errorf("unexpected failure: %v", res.Failed())
	}
}

func TestBuild_MissingTSConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := Build(t.Context(), Options{Cwd: dir, TSConfig: "tsconfig.json"}); err == nil {
		t.Fatal("expected an error for a missing tsconfig")
	}
}
