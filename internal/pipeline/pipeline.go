// Package pipeline runs a project through the toolchain end to end: type
// check, augment every eligible unit, re-parse the augmented texts over an
// overlay and emit JavaScript.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/microsoft/typescript-go/shim/ast"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"

	"github.com/dyncast/dyncast/internal/augment"
	"github.com/dyncast/dyncast/internal/compiler"
	"github.com/dyncast/dyncast/internal/diagnostic"
	"github.com/dyncast/dyncast/internal/overlay"
	"github.com/dyncast/dyncast/internal/registry"
	"github.com/dyncast/dyncast/internal/synth"
)

// Options configures one build.
type Options struct {
	// Cwd is the project root. Relative paths resolve against it.
	Cwd string
	// TSConfig is the tsconfig path, relative to Cwd or absolute.
	TSConfig string
	// Registry holds the recognized names. Nil means registry.Default().
	Registry *registry.Registry
	// Include and Exclude select the units to augment, matched against
	// paths relative to Cwd. An empty Include selects every unit.
	Include []string
	Exclude []string
	// Emit writes JavaScript. When false the build stops after augmentation.
	Emit bool
	// Clean empties the output directory before emitting.
	Clean bool
	// NoCheck skips semantic diagnostics. Syntax errors are still reported.
	NoCheck bool
	// Strict fails units that raised synthesis warnings.
	Strict bool
	// FS is the filesystem sources are read from. Nil means the OS.
	FS          vfs.FS
	Logger      *slog.Logger
	Diagnostics *diagnostic.Collector
}

// Unit is the outcome for one source file.
type Unit struct {
	FileName string
	Sites    []augment.Site
	Changed  bool
	// Skipped units were not selected by the globs. They are emitted as is.
	Skipped bool
	// Failed units are never emitted. Err holds the reason.
	Failed bool
	Err    error
	// Outputs lists the files written for this unit.
	Outputs []string
	// Removed lists outputs of an earlier build deleted because the unit
	// failed.
	Removed []string
	// text is the augmented text, kept for the overlay.
	text string
}

// Result summarizes a build.
type Result struct {
	Units []*Unit
	// Toolchain holds the type checker's and emitter's own diagnostics.
	Toolchain   []*ast.Diagnostic
	Diagnostics *diagnostic.Collector
	OutDir      string
}

// Failed returns the file names of failed units, sorted.
func (r *Result) Failed() []string {
	var names []string
	for _, u := range r.Units {
		if u.Failed {
			names = append(names, u.FileName)
		}
	}
	sort.Strings(names)
	return names
}

// Emitted maps each emitted unit to the files written for it.
func (r *Result) Emitted() map[string][]string {
	out := make(map[string][]string)
	for _, u := range r.Units {
		if len(u.Outputs) > 0 {
			out[u.FileName] = u.Outputs
		}
	}
	return out
}

// Unit returns the unit for fileName, or nil.
func (r *Result) Unit(fileName string) *Unit {
	for _, u := range r.Units {
		if u.FileName == fileName {
			return u
		}
	}
	return nil
}

// Augmented returns the units that were selected for augmentation.
func (r *Result) Augmented() []*Unit {
	var units []*Unit
	for _, u := range r.Units {
		if !u.Skipped {
			units = append(units, u)
		}
	}
	return units
}

// Sites returns every recognized site across units, in unit order.
func (r *Result) Sites() []augment.Site {
	var sites []augment.Site
	for _, u := range r.Units {
		sites = append(sites, u.Sites...)
	}
	return sites
}

// OK reports whether no unit failed and the toolchain reported no errors.
func (r *Result) OK() bool {
	return len(r.Failed()) == 0 && compiler.CountErrors(r.Toolchain) == 0
}

// Build runs the pipeline. Per-unit failures do not make Build return an
// error; they are recorded on the unit and in the diagnostics collector.
// An error is returned only when the project cannot be compiled at all.
func Build(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}
	diags := opts.Diagnostics
	if diags == nil {
		diags = diagnostic.NewCollector(opts.Strict, false)
	}
	fs := opts.FS
	if fs == nil {
		fs = compiler.OSFS()
	}
	cwd := tspath.NormalizePath(opts.Cwd)
	result := &Result{Diagnostics: diags}

	start := time.Now()
	host := compiler.NewHost(cwd, fs)
	parsed, err := compiler.ParseTSConfig(fs, cwd, opts.TSConfig, host)
	if err != nil {
		return nil, err
	}
	co := parsed.CompilerOptions()
	if co.RootDir == "" && co.OutDir != "" {
		if root := inferRootDir(parsed.FileNames()); root != "" {
			logger.Debug("inferred rootDir", "rootDir", root)
			co.RootDir = root
		}
	}
	result.OutDir = co.OutDir

	program, err := compiler.CreateProgram(parsed, host)
	if err != nil {
		return nil, err
	}
	logger.Debug("program created", "files", len(program.GetSourceFiles()), "took", time.Since(start))

	phase := time.Now()
	result.Toolchain = compiler.GatherDiagnostics(ctx, program, opts.NoCheck)
	erroneous := compiler.FilesWithErrors(result.Toolchain)
	logger.Debug("diagnostics gathered", "count", len(result.Toolchain), "took", time.Since(phase))

	phase = time.Now()
	if err := augmentUnits(ctx, program, reg, opts, cwd, erroneous, result, logger); err != nil {
		return nil, err
	}
	logger.Debug("units augmented", "units", len(result.Augmented()), "took", time.Since(phase))

	if !opts.Emit {
		return result, nil
	}
	if co.NoEmit == core.TSTrue {
		logger.Warn("tsconfig sets noEmit; nothing will be written")
		return result, nil
	}

	changed := make(map[string]string)
	for _, u := range result.Units {
		if u.Changed && !u.Failed {
			changed[u.FileName] = u.text
		}
	}
	if len(changed) > 0 {
		phase = time.Now()
		overlaid := overlay.New(fs, changed)
		host = compiler.NewHost(cwd, overlaid)
		program, err = compiler.CreateProgram(parsed, host)
		if err != nil {
			return nil, fmt.Errorf("re-parsing augmented units: %w", err)
		}
		logger.Debug("augmented program created", "changed", overlaid.Paths(), "took", time.Since(phase))
	}

	if opts.Clean && co.OutDir != "" {
		if err := cleanDir(co.OutDir); err != nil {
			logger.Warn("could not clean output directory", "dir", co.OutDir, "error", err)
		}
	}

	phase = time.Now()
	emitUnits(ctx, program, parsed, cwd, result, logger)
	logger.Debug("emit finished", "units", len(result.Emitted()), "took", time.Since(phase))
	logger.Info("build finished",
		"units", len(result.Units),
		"emitted", len(result.Emitted()),
		"failed", len(result.Failed()),
		"took", time.Since(start))
	return result, nil
}

// augmentUnits runs the augmenter over every selected unit of program.
// The checker is held only for the duration of this pass.
func augmentUnits(ctx context.Context, program *shimcompiler.Program, reg *registry.Registry, opts Options,
	cwd string, erroneous map[string]bool, result *Result, logger *slog.Logger,
) error {
	checker, release, err := compiler.Checker(ctx, program)
	if err != nil {
		return err
	}
	defer release()
	augmenter := augment.New(synth.NewCheckerResolver(checker), reg)

	for _, sf := range compiler.SourceFiles(program) {
		if err := ctx.Err(); err != nil {
			return err
		}
		fileName := sf.FileName()
		u := &Unit{FileName: fileName}
		result.Units = append(result.Units, u)
		if !matchesGlob(relativeTo(cwd, fileName), opts.Include, opts.Exclude) {
			u.Skipped = true
			continue
		}
		if erroneous[fileName] {
			logger.Debug("augmenting a unit with type errors", "file", fileName)
		}

		res, err := augmenter.Augment(sf)
		if err != nil {
			u.Failed = true
			u.Err = err
			reportFailure(result.Diagnostics, fileName, err)
			logger.Error("unit failed", "file", fileName, "error", err)
			continue
		}
		u.Sites = res.Sites
		u.Changed = res.Changed
		u.text = res.Text

		warned := false
		for _, site := range res.Sites {
			for _, w := range site.Warnings {
				warned = true
				reportWarning(result.Diagnostics, fileName, site, w)
			}
		}
		if opts.Strict && warned {
			u.Failed = true
			u.Err = fmt.Errorf("%s: synthesis warnings in strict mode", fileName)
		}
	}
	return nil
}

// emitUnits writes every unit that did not fail. A failed unit instead has
// the outputs of earlier builds removed, so nothing stale can be loaded.
func emitUnits(ctx context.Context, program *shimcompiler.Program, parsed *tsoptions.ParsedCommandLine, cwd string,
	result *Result, logger *slog.Logger,
) {
	aliases := aliasesFor(parsed, cwd)
	for _, u := range result.Units {
		sf := program.GetSourceFile(u.FileName)
		if sf == nil {
			continue
		}
		if u.Failed {
			removeStaleOutputs(ctx, program, sf, u, result.Diagnostics, logger)
			continue
		}
		res := compiler.EmitUnit(ctx, program, sf, unitWriter(u, aliases))
		result.Toolchain = append(result.Toolchain, res.Diagnostics...)
		if res.EmitSkipped {
			logger.Warn("emit skipped", "file", u.FileName, "diagnostics", len(res.Diagnostics))
			result.Diagnostics.Warn(diagnostic.CategoryToolchain, diagnostic.Position{File: u.FileName},
				"the compiler skipped emitting this unit; check noEmitOnError")
		}
	}
}

// aliasesFor builds the alias resolver from the tsconfig "paths" option.
// It returns nil when no aliases are configured.
func aliasesFor(parsed *tsoptions.ParsedCommandLine, cwd string) *aliasResolver {
	co := parsed.CompilerOptions()
	if co.Paths == nil || co.Paths.Size() == 0 {
		return nil
	}
	paths := make(map[string][]string, co.Paths.Size())
	for k, v := range co.Paths.Entries() {
		paths[k] = v
	}
	return newAliasResolver(co.GetPathsBasePath(cwd), co.RootDir, co.OutDir, paths)
}

func reportFailure(c *diagnostic.Collector, fileName string, err error) {
	pos := diagnostic.Position{File: fileName}
	var se *augment.SiteError
	if errors.As(err, &se) {
		pos.Line, pos.Column = se.Line, se.Column
	}
	category := diagnostic.CategoryTypeUnsupported
	var me *augment.MalformedDecoratorError
	if errors.As(err, &me) {
		category = diagnostic.CategoryDecoratorMalformed
	}
	msg := err.Error()
	if se != nil {
		msg = fmt.Sprintf("%s: %v", se.Site, se.Err)
	}
	c.Error(category, pos, msg)
}

func reportWarning(c *diagnostic.Collector, fileName string, site augment.Site, w synth.Warning) {
	category := diagnostic.CategoryCircularType
	if w.Kind == synth.WarnDepthExceeded {
		category = diagnostic.CategoryDepthExceeded
	}
	c.Warn(category, diagnostic.Position{File: fileName, Line: site.Line, Column: site.Column}, w.Message)
}

func relativeTo(cwd, fileName string) string {
	if rel, ok := within(cwd, fileName); ok {
		return rel
	}
	return strings.TrimPrefix(fileName, "/")
}
