package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyncast/dyncast/internal/config"
)

const testTSConfig = `{
  "compilerOptions": {
    "target": "es2020",
    "module": "commonjs",
    "strict": true,
    "experimentalDecorators": true,
    "outDir": "dist"
  },
  "include": ["src"]
}
`

const testRuntime = `declare function dynamic_cast<T>(value: unknown, schema?: string): T;
declare function PathVariable(options?: object): ParameterDecorator;
declare function RequestParam(options?: object): ParameterDecorator;
declare function RequestBody(options?: object): ParameterDecorator;
declare const input: unknown;
`

// writeProject lays files out under a fresh directory next to a tsconfig
// and the runtime declarations.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	all := map[string]string{
		"tsconfig.json":    testTSConfig,
		"src/runtime.d.ts": testRuntime,
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

func testProject(dir string) Project {
	return Project{Dir: dir, Config: config.DefaultConfig()}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captured struct {
	stdout, stderr bytes.Buffer
}

func (c *captured) output() output {
	return output{stdout: &c.stdout, stderr: &c.stderr}
}
