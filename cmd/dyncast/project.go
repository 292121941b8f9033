package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dyncast/dyncast/internal/compiler"
	"github.com/dyncast/dyncast/internal/config"
	"github.com/dyncast/dyncast/internal/diagnostic"
	"github.com/dyncast/dyncast/internal/pipeline"
)

// Project selects a TypeScript project and its dyncast settings. It is
// embedded in every command that compiles.
type Project struct {
	Dir           string `name:"dir" short:"C" help:"Project directory." default:"." type:"existingdir"`
	config.Config `embed:""`
}

// output is where a command writes its results and its diagnostics.
type output struct {
	stdout io.Writer
	stderr io.Writer
	pretty bool
}

// build validates the config, runs the pipeline and reports every
// diagnostic. The returned error is an exitCode when the build produced
// errors; the result is still returned in that case.
func (p *Project) build(ctx context.Context, logger *slog.Logger, emit bool, out output) (*pipeline.Result, error) {
	diags := diagnostic.NewCollector(p.Strict, p.Quiet)
	p.ValidateDetailed().Report(diags, "")
	reg, err := p.Validate()
	if err != nil {
		fmt.Fprint(out.stderr, diags.FormatAll())
		return nil, err
	}

	opts := p.PipelineOptions(p.Dir, reg)
	opts.Emit = emit
	opts.Logger = logger
	opts.Diagnostics = diags

	result, err := pipeline.Build(ctx, opts)
	if err != nil {
		fmt.Fprint(out.stderr, diags.FormatAll())
		return nil, err
	}

	report := compiler.NewReporter(out.stderr, p.Dir, out.pretty)
	for _, d := range result.Toolchain {
		report(d)
	}
	fmt.Fprint(out.stderr, diags.FormatAll())
	if len(result.Toolchain) > 0 {
		compiler.WriteSummary(out.stderr, result.Toolchain, p.Dir)
	}

	if !result.OK() || diags.HasErrors() {
		logger.Error("build failed", "failed", len(result.Failed()), "summary", diags.Summary())
		return result, exitCode(1)
	}
	return result, nil
}
