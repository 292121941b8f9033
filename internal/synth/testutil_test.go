package synth_test

import (
	"context"
	"path"
	"runtime"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"

	"github.com/dyncast/dyncast/internal/compiler"
	"github.com/dyncast/dyncast/internal/overlay"
	"github.com/dyncast/dyncast/internal/schema"
	"github.com/dyncast/dyncast/internal/synth"
)

// synthTestDir returns the absolute path to testdata/synth/.
func synthTestDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return path.Join(path.Dir(filename), "..", "..", "testdata", "synth")
}

type synthEnv struct {
	checker    *shimchecker.Checker
	sourceFile *ast.SourceFile
	release    func()
}

// setupSynth builds a program from inline source and returns its checker.
// The caller must call env.release() when done.
func setupSynth(t *testing.T, tsSource string) *synthEnv {
	t.Helper()

	rootDir := synthTestDir()
	fileName := "test.ts"
	fs := overlay.New(compiler.OSFS(), map[string]string{
		tspath.ResolvePath(rootDir, fileName): tsSource,
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
	return &synthEnv{checker: checker, sourceFile: sf, release: release}
}

// synthAlias synthesizes the written body of a type alias.
func (env *synthEnv) synthAlias(t *testing.T, name string) (schema.Document, *synth.Synthesizer, error) {
	t.Helper()
	s := synth.New(synth.NewCheckerResolver(env.checker))
	for _, stmt := range env.sourceFile.Statements.Nodes {
		if stmt.Kind != ast.KindTypeAliasDeclaration {
			continue
		}
		decl := stmt.AsTypeAliasDeclaration()
		if decl.Name().Text() == name {
			d, err := s.FromTypeNode(decl.Type)
			return d, s, err
		}
	}
	t.Fatalf("type alias %q not found", name)
	return schema.Document{}, nil, nil
}

// synthDeclared synthesizes the declared type of an interface or class.
func (env *synthEnv) synthDeclared(t *testing.T, name string) (schema.Document, *synth.Synthesizer, error) {
	t.Helper()
	s := synth.New(synth.NewCheckerResolver(env.checker))
	for _, stmt := range env.sourceFile.Statements.Nodes {
		var nameNode *ast.Node
		switch stmt.Kind {
		case ast.KindInterfaceDeclaration:
			nameNode = stmt.AsInterfaceDeclaration().Name()
		case ast.KindClassDeclaration:
			nameNode = stmt.AsClassDeclaration().Name()
		default:
			continue
		}
		if nameNode == nil || nameNode.Text() != name {
			continue
		}
		sym := env.checker.GetSymbolAtLocation(nameNode)
		if sym == nil {
			t.Fatalf("no symbol for %q", name)
		}
		d, err := s.FromType(shimchecker.Checker_getDeclaredTypeOfSymbol(env.checker, sym))
		return d, s, err
	}
	t.Fatalf("declaration %q not found", name)
	return schema.Document{}, nil, nil
}
