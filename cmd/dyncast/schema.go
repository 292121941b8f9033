package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/dyncast/dyncast/internal/pipeline"
	"github.com/dyncast/dyncast/internal/schema"
)

// Schema augments the project without emitting and prints every site.
type Schema struct {
	Project `embed:""`

	Output string `short:"o" help:"Write the JSON to this file instead of stdout." type:"path"`
}

// siteDump is one recognized site in the schema command's output.
type siteDump struct {
	File     string          `json:"file"`
	Line     int             `json:"line"`
	Column   int             `json:"column"`
	Kind     string          `json:"kind"`
	Name     string          `json:"name"`
	Param    string          `json:"param,omitempty"`
	Added    []string        `json:"added,omitempty"`
	Type     string          `json:"type"`
	Schema   schema.Document `json:"schema"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (s *Schema) Run(logger *slog.Logger) error {
	return s.run(context.Background(), logger, stdOutput())
}

func (s *Schema) run(ctx context.Context, logger *slog.Logger, out output) error {
	result, buildErr := s.build(ctx, logger, false, out)
	var code exitCode
	if buildErr != nil && !errors.As(buildErr, &code) {
		return buildErr
	}

	data, err := json.Marshal(dumpSites(result, s.Dir), jsontext.WithIndent("  "))
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if s.Output == "" {
		if _, err := out.stdout.Write(data); err != nil {
			return err
		}
		return buildErr
	}
	if err := os.MkdirAll(filepath.Dir(s.Output), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.Output, data, 0o644); err != nil {
		return err
	}
	logger.Info("wrote schemas", "file", s.Output)
	return buildErr
}

// dumpSites lists the sites of every unit that was augmented successfully.
func dumpSites(result *pipeline.Result, dir string) []siteDump {
	sites := []siteDump{}
	for _, u := range result.Augmented() {
		if u.Failed {
			continue
		}
		file := u.FileName
		if rel, err := filepath.Rel(dir, filepath.FromSlash(u.FileName)); err == nil {
			file = filepath.ToSlash(rel)
		}
		for _, site := range u.Sites {
			d := siteDump{
				File:   file,
				Line:   site.Line,
				Column: site.Column,
				Kind:   string(site.Kind),
				Name:   site.Name,
				Param:  site.Param,
				Added:  site.Added,
				Type:   site.Schema.Describe(),
				Schema: site.Schema,
			}
			for _, w := range site.Warnings {
				d.Warnings = append(d.Warnings, w.Message)
			}
			sites = append(sites, d)
		}
	}
	return sites
}
