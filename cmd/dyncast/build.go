package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dyncast/dyncast/internal/compiler"
	"github.com/dyncast/dyncast/internal/runner"
)

// Build augments the project and emits JavaScript.
type Build struct {
	Project `embed:""`
}

func (b *Build) Run(logger *slog.Logger) error {
	_, err := b.build(context.Background(), logger, true, stdOutput())
	return err
}

// Run builds the project, then starts node on the emitted entry point and
// exits with the child's status.
type Run struct {
	Project `embed:""`

	Node         string   `name:"node" help:"Node.js executable." default:"node" env:"DYNCAST_NODE"`
	EnvFile      []string `name:"env-file" help:"Files merged into the child environment, relative to the project directory." default:".env"`
	NoSourceMaps bool     `name:"no-source-maps" help:"Do not pass --enable-source-maps to node."`
	Args         []string `arg:"" optional:"" passthrough:"" help:"Arguments passed to the entry point."`
}

func (r *Run) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := r.build(ctx, logger, true, stdOutput())
	if err != nil {
		return err
	}
	entry, err := entryPoint(result.OutDir, r.Dir, r.Entry)
	if err != nil {
		return err
	}

	files := make([]string, len(r.EnvFile))
	for i, f := range r.EnvFile {
		files[i] = resolveIn(r.Dir, f)
	}
	env, err := runner.DotEnv(os.Environ(), files...)
	if err != nil {
		return err
	}

	args := nodeArgs(entry, !r.NoSourceMaps, r.Args)
	proc := runner.New(r.Node, args, r.Dir)
	proc.Env = env
	logger.Info("starting", "command", r.Node+" "+strings.Join(args, " "), "env", len(env))

	code, err := proc.Run(ctx)
	if err != nil {
		return err
	}
	logger.Debug("child exited", "code", code)
	if code != 0 {
		return exitCode(code)
	}
	return nil
}

func stdOutput() output {
	return output{stdout: os.Stdout, stderr: os.Stderr, pretty: compiler.PrettyOutput(os.Stderr)}
}

// entryPoint resolves the emitted entry file. entry is a name relative to
// the output directory, or to the project directory when no outDir is set.
func entryPoint(outDir, dir, entry string) (string, error) {
	base := outDir
	if base == "" {
		base = dir
	}
	switch filepath.Ext(entry) {
	case ".js", ".mjs", ".cjs":
	default:
		entry += ".js"
	}
	p := resolveIn(base, entry)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("entry point %s not found: did the build emit it?", p)
	}
	return p, nil
}

// nodeArgs builds node's arguments. The entry point comes after node's own
// flags and before the script's arguments.
func nodeArgs(entry string, sourceMaps bool, scriptArgs []string) []string {
	var args []string
	if sourceMaps {
		args = append(args, "--enable-source-maps")
	}
	args = append(args, entry)
	return append(args, scriptArgs...)
}

func resolveIn(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, filepath.FromSlash(p))
}
