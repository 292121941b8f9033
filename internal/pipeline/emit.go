package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"

	"github.com/dyncast/dyncast/internal/compiler"
	"github.com/dyncast/dyncast/internal/diagnostic"
)

// unitWriter returns the emit callback for one unit. JavaScript outputs get
// their path aliases rewritten; every output is written to disk and
// recorded on the unit.
func unitWriter(u *Unit, aliases *aliasResolver) shimcompiler.WriteFile {
	return func(fileName string, text string, bom bool, data *shimcompiler.WriteFileData) error {
		if isScriptOutput(fileName) {
			text = aliases.rewrite(text, fileName)
		}
		if err := writeFileToDisk(fileName, text, bom); err != nil {
			return err
		}
		u.Outputs = append(u.Outputs, fileName)
		return nil
	}
}

// removeStaleOutputs deletes the files the unit would emit. The names come
// from an emit whose callback only records them.
func removeStaleOutputs(ctx context.Context, program *shimcompiler.Program, sf *ast.SourceFile, u *Unit,
	diags *diagnostic.Collector, logger *slog.Logger,
) {
	var names []string
	compiler.EmitUnit(ctx, program, sf, func(fileName string, text string, bom bool, data *shimcompiler.WriteFileData) error {
		names = append(names, fileName)
		return nil
	})
	pos := diagnostic.Position{File: u.FileName}
	for _, name := range names {
		err := os.Remove(name)
		switch {
		case err == nil:
			u.Removed = append(u.Removed, name)
			diags.Info(diagnostic.CategoryToolchain, pos, "removed stale output "+name)
			logger.Debug("removed stale output", "file", name)
		case os.IsNotExist(err):
		default:
			diags.Warn(diagnostic.CategoryToolchain, pos, fmt.Sprintf("could not remove stale output %s: %v", name, err))
		}
	}
}

func isScriptOutput(fileName string) bool {
	for _, ext := range []string{".js", ".mjs", ".cjs"} {
		if strings.HasSuffix(fileName, ext) {
			return true
		}
	}
	return false
}

// writeFileToDisk writes a file, creating parent directories as needed.
func writeFileToDisk(fileName string, text string, writeByteOrderMark bool) error {
	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return err
	}
	if writeByteOrderMark {
		text = "\xEF\xBB\xBF" + text
	}
	return os.WriteFile(fileName, []byte(text), 0o644)
}

// cleanDir removes everything inside dir, keeping dir itself.
func cleanDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
