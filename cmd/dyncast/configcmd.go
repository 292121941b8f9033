package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dyncast/dyncast/internal/config"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template."`
}

// ConfigInit writes a config file holding every setting at its default.
type ConfigInit struct {
	Format string `help:"Output format." enum:"json,yaml,toml" default:"json"`
	Output string `help:"Destination file path (defaults to dyncast.<format> in the current directory)."`
	Force  bool   `help:"Overwrite if the file already exists."`
}

func (c *ConfigInit) Run(logger *slog.Logger) error {
	dest, err := c.write()
	if err != nil {
		return err
	}
	logger.Info("wrote config template", "file", dest)
	return nil
}

func (c *ConfigInit) write() (string, error) {
	data, err := config.Template(c.Format)
	if err != nil {
		return "", err
	}

	dest := c.Output
	if dest == "" {
		dest = config.BaseName + "." + c.Format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return "", errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := config.EnsureDir(dest); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	return dest, nil
}
