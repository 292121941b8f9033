package augment_test

import (
	"context"
	"path"
	"runtime"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"

	"github.com/dyncast/dyncast/internal/augment"
	"github.com/dyncast/dyncast/internal/compiler"
	"github.com/dyncast/dyncast/internal/overlay"
	"github.com/dyncast/dyncast/internal/registry"
	"github.com/dyncast/dyncast/internal/synth"
)

// prelude declares the recognized names so test sources type-check.
const prelude = `declare function dynamic_cast<T>(value: unknown, schema?: string): T;
declare function PathVariable(options?: object): ParameterDecorator;
declare function RequestParam(options?: object): ParameterDecorator;
declare function RequestBody(options?: object): ParameterDecorator;
`

func augmentTestDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return path.Join(path.Dir(filename), "..", "..", "testdata", "augment")
}

type augmentEnv struct {
	sourceFile *ast.SourceFile
	augmenter  *augment.Augmenter
	release    func()
}

// setupAugment builds a program over prelude+source and an augmenter with
// reg, or the default registry when reg is nil.
func setupAugment(t *testing.T, source string, reg *registry.Registry) *augmentEnv {
	t.Helper()

	rootDir := augmentTestDir()
	fileName := "test.ts"
	fs := overlay.New(compiler.OSFS(), map[string]string{
		tspath.ResolvePath(rootDir, fileName): prelude + source,
	})
	host := shimcompiler.NewCompilerHost(rootDir, fs, bundled.LibPath(), nil, nil)

	parsed, diags := tsoptions.GetParsedCommandLineOfConfigFile(
		"tsconfig.json", &core.CompilerOptions{}, nil, host, nil,
	)
	if len(diags) > 0 {
		t.Fatalf("tsconfig parse errors: %v", diags[0].String())
	}

	program := shimcompiler.NewProgram(shimcompiler.ProgramOptions{
		Config:                      parsed,
		SingleThreaded:              core.TSTrue,
		Host:                        host,
		UseSourceOfProjectReference: true,
	})
	if program == nil {
		t.Fatal("failed to create program")
	}
	program.BindSourceFiles()

	sf := program.GetSourceFile(fileName)
	if sf == nil {
		t.Fatalf("source file %q not found in program", fileName)
	}
	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		t.Fatal("failed to get type checker")
	}

	if reg == nil {
		reg = registry.Default()
	}
	return &augmentEnv{
		sourceFile: sf,
		augmenter:  augment.New(synth.NewCheckerResolver(checker), reg),
		release:    release,
	}
}

// augmentSource runs the augmenter over source and returns the result with
// the prelude stripped from its text.
func augmentSource(t *testing.T, source string, reg *registry.Registry) (*augment.Result, error) {
	t.Helper()
	env := setupAugment(t, source, reg)
	defer env.release()

	res, err := env.augmenter.Augment(env.sourceFile)
	if res != nil {
		res.Text = res.Text[len(prelude):]
	}
	return res, err
}
