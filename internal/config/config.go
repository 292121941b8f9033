// Package config holds the project settings shared by the dyncast commands.
//
// The same struct tags drive command-line flags, DYNCAST_* environment
// variables and the keys of dyncast.json, dyncast.yaml and dyncast.toml.
// Flag and key names are single words so every loader resolves them the
// same way.
package config

import (
	"fmt"
	"strings"

	"github.com/dyncast/dyncast/internal/pipeline"
	"github.com/dyncast/dyncast/internal/registry"
)

// Config represents the dyncast project configuration.
type Config struct {
	TSConfig string   `name:"tsconfig" help:"Path to tsconfig.json." default:"tsconfig.json" env:"DYNCAST_TSCONFIG"`
	Include  []string `name:"include" help:"Glob patterns of units to augment. Empty selects every unit." env:"DYNCAST_INCLUDE"`
	Exclude  []string `name:"exclude" help:"Glob patterns of units emitted without augmentation." env:"DYNCAST_EXCLUDE"`
	Names    Names    `embed:"" prefix:"names."`

	Strict    bool   `name:"strict" help:"Treat synthesis warnings as errors." env:"DYNCAST_STRICT"`
	Quiet     bool   `name:"quiet" help:"Suppress warnings." env:"DYNCAST_QUIET"`
	TypeCheck bool   `name:"typecheck" help:"Report semantic type errors." default:"true" negatable:"" env:"DYNCAST_TYPECHECK"`
	Clean     bool   `name:"clean" help:"Delete the output directory before emitting." env:"DYNCAST_CLEAN"`
	Entry     string `name:"entry" help:"Entry point name without extension, relative to the output directory." default:"main" env:"DYNCAST_ENTRY"`
}

// Names lists the recognized call and decorator names.
type Names struct {
	Call  []string `name:"call" help:"Generic calls that receive a schema argument." default:"dynamic_cast" env:"DYNCAST_NAMES_CALL"`
	Named []string `name:"named" help:"Parameter decorators that receive the parameter name and a schema." default:"PathVariable,RequestParam" env:"DYNCAST_NAMES_NAMED"`
	Body  []string `name:"body" help:"Parameter decorators that receive a schema." default:"RequestBody" env:"DYNCAST_NAMES_BODY"`
}

// Log configures the process logger.
type Log struct {
	Level string `name:"level" help:"Log level." enum:"trace,debug,info,warn,error" default:"info" env:"DYNCAST_LOG_LEVEL"`
	File  string `name:"file" help:"Also write logs to this file." env:"DYNCAST_LOG_FILE" type:"path"`
}

// DefaultConfig returns a config with the same values the flag defaults
// produce.
func DefaultConfig() Config {
	return Config{
		TSConfig: "tsconfig.json",
		Names: Names{
			Call:  []string{registry.DefaultCall},
			Named: []string{registry.DefaultPathVariable, registry.DefaultRequestParam},
			Body:  []string{registry.DefaultRequestBody},
		},
		TypeCheck: true,
		Entry:     "main",
	}
}

// Registry builds the registry of recognized names. Every name must be a
// distinct JavaScript identifier across the three lists.
func (c *Config) Registry() (*registry.Registry, error) {
	var entries []registry.Entry
	for _, n := range c.Names.Call {
		entries = append(entries, registry.Entry{Name: n, Form: registry.FormCall})
	}
	for _, n := range c.Names.Named {
		entries = append(entries, registry.Entry{Name: n, Form: registry.FormDecorator, InjectName: true})
	}
	for _, n := range c.Names.Body {
		entries = append(entries, registry.Entry{Name: n, Form: registry.FormDecorator})
	}
	return registry.New(entries...)
}

// Error reports every problem found by Validate.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks the config and builds its registry. It runs once, before
// any unit is read.
func (c *Config) Validate() (*registry.Registry, error) {
	if result := c.ValidateDetailed(); !result.IsValid() {
		return nil, &Error{Problems: result.Errors}
	}
	reg, err := c.Registry()
	if err != nil {
		return nil, fmt.Errorf("names: %w", err)
	}
	return reg, nil
}

// PipelineOptions maps the config onto build options. Callers fill in the
// fields that depend on the command.
func (c *Config) PipelineOptions(cwd string, reg *registry.Registry) pipeline.Options {
	return pipeline.Options{
		Cwd:      cwd,
		TSConfig: c.TSConfig,
		Registry: reg,
		Include:  c.Include,
		Exclude:  c.Exclude,
		Clean:    c.Clean,
		NoCheck:  !c.TypeCheck,
		Strict:   c.Strict,
	}
}
