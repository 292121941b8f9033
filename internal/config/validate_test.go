package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyncast/dyncast/internal/diagnostic"
)

func TestValidateDetailed_Valid(t *testing.T) {
	cfg := DefaultConfig()
	result := cfg.ValidateDetailed()
	assert.True(t, result.IsValid(), "errors: %v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateDetailed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty tsconfig", func(c *Config) { c.TSConfig = " " }, "tsconfig: must not be empty"},
		{"empty entry", func(c *Config) { c.Entry = "" }, "entry: must not be empty"},
		{"bad include", func(c *Config) { c.Include = []string{"src/[a-"} }, `include: pattern "src/[a-"`},
		{"bad exclude", func(c *Config) { c.Exclude = []string{"[z"} }, `exclude: pattern "[z"`},
		{"empty pattern", func(c *Config) { c.Exclude = []string{""} }, "exclude: empty pattern"},
		{"duplicate name", func(c *Config) { c.Names.Body = []string{"PathVariable"} }, "names:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			result := cfg.ValidateDetailed()
			require.False(t, result.IsValid())
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.want)
		})
	}
}

func TestValidateDetailed_DoubleStarIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Include = []string{"src/**/*.ts", "**/handlers/*.tsx"}
	cfg.Exclude = []string{"**/*.spec.ts"}
	result := cfg.ValidateDetailed()
	assert.True(t, result.IsValid(), "errors: %v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateDetailed_IncludeWithoutWildcardWarns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Include = []string{"src/controllers/", "src/main.ts"}
	result := cfg.ValidateDetailed()
	assert.True(t, result.IsValid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `did you mean "src/controllers/**/*.ts"`)
}

func TestValidateDetailed_NoNamesWarns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Names = Names{}
	result := cfg.ValidateDetailed()
	assert.True(t, result.IsValid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "nothing will be augmented")
}

func TestValidationResult_Report(t *testing.T) {
	result := &ValidationResult{
		Errors:   []string{"entry: must not be empty"},
		Warnings: []string{"names: none"},
	}

	c := diagnostic.NewCollector(false, false)
	result.Report(c, "dyncast.json")
	assert.Equal(t, 1, c.ErrorCount())
	assert.Equal(t, 1, c.WarningCount())
	for _, d := range c.Diagnostics() {
		assert.Equal(t, diagnostic.CategoryConfigInvalid, d.Category)
		assert.Equal(t, "dyncast.json", d.File)
	}

	strict := diagnostic.NewCollector(true, false)
	result.Report(strict, "")
	assert.Equal(t, 2, strict.ErrorCount())

	// A nil collector drops everything.
	result.Report(nil, "")
}
