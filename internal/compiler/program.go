// Package compiler wraps the typescript-go toolchain: tsconfig parsing,
// program creation, per-unit emit and diagnostic reporting.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
)

// Diagnostic is a toolchain message reduced to a file and text.
type Diagnostic struct {
	FilePath string
	Message  string
}

func (d Diagnostic) String() string {
	if d.FilePath != "" {
		return fmt.Sprintf("%s: %s", d.FilePath, d.Message)
	}
	return d.Message
}

// DiagnosticsError is returned when the toolchain rejects the configuration
// or the program before any unit is processed.
type DiagnosticsError struct {
	Stage       string
	Diagnostics []Diagnostic
}

func (e *DiagnosticsError) Error() string {
	return fmt.Sprintf("%s: %d diagnostic(s)\n%s", e.Stage, len(e.Diagnostics), FormatDiagnostics(e.Diagnostics))
}

// ParseTSConfig parses a tsconfig.json with the toolchain's JSONC parser,
// following extends chains.
func ParseTSConfig(fs vfs.FS, cwd string, tsconfigPath string, host shimcompiler.CompilerHost) (*tsoptions.ParsedCommandLine, error) {
	resolved := tspath.ResolvePath(cwd, tsconfigPath)
	if !fs.FileExists(resolved) {
		return nil, fmt.Errorf("could not find tsconfig at %v", resolved)
	}

	parsed, diags := tsoptions.GetParsedCommandLineOfConfigFile(resolved, &core.CompilerOptions{}, nil, host, nil)
	if len(diags) > 0 {
		return nil, &DiagnosticsError{Stage: "tsconfig", Diagnostics: convertDiagnostics(diags)}
	}
	if parsed != nil && len(parsed.Errors) > 0 {
		return nil, &DiagnosticsError{Stage: "tsconfig", Diagnostics: convertDiagnostics(parsed.Errors)}
	}
	return parsed, nil
}

// CreateProgram builds a single-threaded, bound program from a parsed
// tsconfig. host decides which filesystem the sources are read from, so the
// same config can be reused over an overlay.
func CreateProgram(parsed *tsoptions.ParsedCommandLine, host shimcompiler.CompilerHost) (*shimcompiler.Program, error) {
	program := shimcompiler.NewProgram(shimcompiler.ProgramOptions{
		Config:                      parsed,
		SingleThreaded:              core.TSTrue,
		Host:                        host,
		UseSourceOfProjectReference: true,
	})
	if program == nil {
		return nil, errors.New("failed to create program")
	}
	if diags := program.GetProgramDiagnostics(); len(diags) > 0 {
		return nil, &DiagnosticsError{Stage: "program", Diagnostics: convertDiagnostics(diags)}
	}
	program.BindSourceFiles()
	return program, nil
}

// Checker obtains the program's type checker. The returned release func
// must be called once the checker is no longer needed.
func Checker(ctx context.Context, program *shimcompiler.Program) (*shimchecker.Checker, func(), error) {
	c, release := shimcompiler.Program_GetTypeChecker(program, ctx)
	if c == nil {
		return nil, nil, errors.New("failed to get type checker")
	}
	return c, release, nil
}

// EmitResult summarizes one emit call.
type EmitResult struct {
	EmittedFiles []string
	Diagnostics  []*ast.Diagnostic
	EmitSkipped  bool
}

// EmitUnit emits the outputs of a single source file. Every output passes
// through writeFile, which decides whether and where it is written.
func EmitUnit(ctx context.Context, program *shimcompiler.Program, sf *ast.SourceFile, writeFile shimcompiler.WriteFile) *EmitResult {
	result := program.Emit(ctx, shimcompiler.EmitOptions{
		TargetSourceFile: sf,
		WriteFile:        writeFile,
	})
	return &EmitResult{
		EmittedFiles: result.EmittedFiles,
		Diagnostics:  result.Diagnostics,
		EmitSkipped:  result.EmitSkipped,
	}
}

// GatherDiagnostics collects diagnostics in the order tsc reports them:
// config, syntactic, program, options, global, semantic, declaration.
// With noCheck only syntactic diagnostics are gathered.
func GatherDiagnostics(ctx context.Context, program *shimcompiler.Program, noCheck bool) []*ast.Diagnostic {
	if noCheck {
		return shimcompiler.Program_GetSyntacticDiagnostics(program, ctx, nil)
	}
	return shimcompiler.GetDiagnosticsOfAnyProgram(
		ctx,
		program,
		nil,
		false,
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic {
			// Binding already ran in CreateProgram.
			return nil
		},
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic {
			return shimcompiler.Program_GetSemanticDiagnostics(program, ctx, file)
		},
	)
}

// SourceFiles returns the program's non-declaration source files.
func SourceFiles(program *shimcompiler.Program) []*ast.SourceFile {
	var files []*ast.SourceFile
	for _, f := range program.GetSourceFiles() {
		if !f.IsDeclarationFile {
			files = append(files, f)
		}
	}
	return files
}

func convertDiagnostics(tsdiags []*ast.Diagnostic) []Diagnostic {
	diags := make([]Diagnostic, len(tsdiags))
	for i, d := range tsdiags {
		var filePath string
		if d.File() != nil {
			filePath = d.File().FileName()
		}
		diags[i] = Diagnostic{FilePath: filePath, Message: d.String()}
	}
	return diags
}

// FormatDiagnostics renders diagnostics one per line.
func FormatDiagnostics(diags []Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}
