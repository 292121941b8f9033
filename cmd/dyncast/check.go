package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	gojson "github.com/goccy/go-json"
	yaml "gopkg.in/yaml.v3"

	"github.com/dyncast/dyncast/internal/config"
	"github.com/dyncast/dyncast/internal/validate"
)

// Check validates a value against a schema, the way the runtime does.
type Check struct {
	Schema string `short:"s" required:"" help:"Schema text, or @file to read it from a file."`
	Coerce bool   `help:"Coerce primitives the way path and query parameters are."`
	Format string `help:"Value format." enum:"auto,json,yaml" default:"auto"`
	Value  string `arg:"" optional:"" default:"-" help:"JSON or YAML file holding the value, or - for stdin."`
}

func (c *Check) Run(logger *slog.Logger) error {
	return c.run(logger, os.Stdin, os.Stdout, os.Stderr)
}

func (c *Check) run(logger *slog.Logger, stdin io.Reader, stdout, stderr io.Writer) error {
	schemaText, err := c.schemaText()
	if err != nil {
		return err
	}
	raw, err := c.read(stdin)
	if err != nil {
		return err
	}
	value, err := decodeValue(raw, c.format())
	if err != nil {
		return fmt.Errorf("decoding %s: %w", c.Value, err)
	}

	logger.Debug("checking value", "coerce", c.Coerce, "bytes", len(raw))
	check := validate.Validate
	if c.Coerce {
		check = validate.Coerce
	}
	got, err := check(schemaText, value)
	if failure, ok := validate.AsFailure(err); ok {
		path := failure.InstancePath
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(stderr, "%s: %s\n", path, failure.Message)
		return exitCode(1)
	}
	if err != nil {
		return err
	}

	data, err := gojson.MarshalIndent(got, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", data)
	return err
}

func (c *Check) schemaText() (string, error) {
	if name, ok := strings.CutPrefix(c.Schema, "@"); ok {
		data, err := os.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("reading schema: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return c.Schema, nil
}

func (c *Check) read(stdin io.Reader) ([]byte, error) {
	if c.Value == "" || c.Value == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(c.Value)
}

// format picks the decoder: an explicit format, else the file extension,
// else JSON with a YAML fallback.
func (c *Check) format() string {
	if c.Format != "" && c.Format != "auto" {
		return c.Format
	}
	if c.Value != "" && c.Value != "-" && config.Format(c.Value) == "yaml" {
		return "yaml"
	}
	return "auto"
}

func decodeValue(raw []byte, format string) (any, error) {
	switch format {
	case "json":
		return validate.DecodeJSON(raw)
	case "yaml":
		return decodeYAML(raw)
	}
	v, err := validate.DecodeJSON(raw)
	if err == nil {
		return v, nil
	}
	if y, yerr := decodeYAML(raw); yerr == nil {
		return y, nil
	}
	return nil, err
}

func decodeYAML(raw []byte) (any, error) {
	var v any
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
