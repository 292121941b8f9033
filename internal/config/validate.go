package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/dyncast/dyncast/internal/diagnostic"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

var sourceExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}

	if strings.TrimSpace(c.TSConfig) == "" {
		result.Errors = append(result.Errors, "tsconfig: must not be empty")
	}
	if strings.TrimSpace(c.Entry) == "" {
		result.Errors = append(result.Errors, "entry: must not be empty")
	}

	for _, pattern := range c.Include {
		if err := checkPattern(pattern); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("include: %v", err))
			continue
		}
		if !strings.Contains(pattern, "*") && !hasSourceExtension(pattern) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("include: pattern %q has no wildcard or source extension, did you mean %q?", pattern, strings.TrimSuffix(pattern, "/")+"/**/*.ts"))
		}
	}
	for _, pattern := range c.Exclude {
		if err := checkPattern(pattern); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("exclude: %v", err))
		}
	}

	if _, err := c.Registry(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("names: %v", err))
	}
	if len(c.Names.Call)+len(c.Names.Named)+len(c.Names.Body) == 0 {
		result.Warnings = append(result.Warnings, "names: no call or decorator names are configured, nothing will be augmented")
	}

	return result
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Report records the result in c under the config-invalid category. file
// names the config source, if any.
func (r *ValidationResult) Report(c *diagnostic.Collector, file string) {
	pos := diagnostic.Position{File: file}
	for _, msg := range r.Errors {
		c.Error(diagnostic.CategoryConfigInvalid, pos, msg)
	}
	for _, msg := range r.Warnings {
		c.Warn(diagnostic.CategoryConfigInvalid, pos, msg)
	}
}

func checkPattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty pattern")
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func hasSourceExtension(pattern string) bool {
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(pattern, ext) {
			return true
		}
	}
	return false
}
