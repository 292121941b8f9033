package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/dyncast/dyncast/internal/config"
	"github.com/dyncast/dyncast/internal/log"
)

var version = "0.0.1-dev"

// CLI is the root command.
type CLI struct {
	ConfigFile string     `name:"config" help:"Path to a dyncast config file (json, yaml or toml)." env:"DYNCAST_CONFIG" placeholder:"FILE"`
	Log        config.Log `embed:"" prefix:"log."`

	Build   Build         `cmd:"" default:"1" help:"Augment the project and emit JavaScript (default)."`
	Run     Run           `cmd:"" help:"Build, then run the emitted entry point with node."`
	Schema  Schema        `cmd:"" help:"Print every recognized site and its schema as JSON."`
	Check   Check         `cmd:"" help:"Validate a JSON or YAML value against a schema."`
	Config  ConfigCommand `cmd:"" help:"Manage configuration files."`
	Version Version       `cmd:"" help:"Print the version."`
}

// exitCode ends the process with a specific status once the command has
// reported its own output.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	cwd, _ := os.Getwd()
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := config.CandidatePaths(userCfg, cwd)

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("dyncast"),
		kong.Description("Synthesize JSON schemas from TypeScript types and splice them into dynamic_cast calls and parameter decorators."),
		kong.UsageOnError(),
		// Flags and environment override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx.Bind(logger)
	err = ctx.Run()
	for _, c := range closeFiles {
		_ = c.Close()
	}

	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("DYNCAST_CONFIG")
}

// Version prints the version.
type Version struct{}

func (v *Version) Run(logger *slog.Logger) error {
	fmt.Println("dyncast", version)
	return nil
}
