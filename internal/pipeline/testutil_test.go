package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/microsoft/typescript-go/shim/tspath"

	"github.com/dyncast/dyncast/internal/diagnostic"
)

const baseTSConfig = `{
  "compilerOptions": {
    "target": "es2020",
    "module": "commonjs",
    "strict": true,
    "experimentalDecorators": true,
    "outDir": "out"
  },
  "include": ["src"]
}
`

const runtimeDecl = `declare function dynamic_cast<T>(value: unknown, schema?: string): T;
declare function PathVariable(options?: object): ParameterDecorator;
declare function RequestParam(options?: object): ParameterDecorator;
declare function RequestBody(options?: object): ParameterDecorator;
declare const input: unknown;
`

// writeProject lays files out under a fresh directory. A tsconfig.json and
// the runtime declarations are added unless files provides them.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	all := map[string]string{
		"tsconfig.json":    baseTSConfig,
		"src/runtime.d.ts": runtimeDecl,
	}
	for name, text := range files {
		all[name] = text
	}
	for name, text := range all {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func buildProject(t *testing.T, dir string, opts Options) *Result {
	t.Helper()
	opts.Cwd = dir
	if opts.TSConfig == "" {
		opts.TSConfig = "tsconfig.json"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	res, err := Build(context.Background(), opts)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return res
}

// srcPath returns the toolchain's normalized name for a project file.
func srcPath(dir, name string) string {
	return tspath.NormalizePath(filepath.Join(dir, filepath.FromSlash(name)))
}

func readOutput(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

// diagnosticsFor returns the diagnostics recorded against file, in order.
func diagnosticsFor(c *diagnostic.Collector, file string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range c.Diagnostics() {
		if d.File == file {
			out = append(out, d)
		}
	}
	return out
}
