package augment_test

import (
	"strings"
	"testing"

	"github.com/dyncast/dyncast/internal/schema"
	"github.com/dyncast/dyncast/internal/validate"
)

// The schema text spliced into a unit must be the one the runtime validator
// accepts, with the messages it reports.
func TestAugment_SynthesizedSchemaValidates(t *testing.T) {
	res, err := augmentSource(t, `const s = dynamic_cast<string>(v);
const r = dynamic_cast<{ a?: number; b: string[]; c: 'abc' | 'def' }>(v);
`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(res.Sites))
	}
	texts := make([]string, len(res.Sites))
	for i, site := range res.Sites {
		data, err := schema.Marshal(site.Schema)
		if err != nil {
			t.Fatal(err)
		}
		texts[i] = string(data)
		quoted, err := schema.Quote(site.Schema)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(res.Text, quoted) {
			t.Fatalf("site %d schema %s not found in text", i, quoted)
		}
	}
	str, record := texts[0], texts[1]

	tests := []struct {
		name   string
		schema string
		value  any
		want   string // empty means the value is accepted
		path   string
	}{
		{"string accepted", str, "123", "", ""},
		{"number is not a string", str, 123, "should be string", ""},
		{"optional member missing", record, map[string]any{"b": []any{"s0", "s1"}, "c": "def"}, "", ""},
		{"enum mismatch", record, map[string]any{"a": 123, "b": []any{"s0"}, "c": "unknown"},
			"should be equal to one of the allowed values", "/c"},
		{"required missing", record, map[string]any{"a": 123, "c": "abc"},
			"should have required property 'b'", ""},
		{"extra member", record, map[string]any{"b": []any{}, "c": "abc", "d": true},
			"should NOT have additional properties", ""},
		{"item type", record, map[string]any{"b": []any{"s0", 1}, "c": "abc"}, "should be string", "/b/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate.Validate(tt.schema, tt.value)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected the value to pass, got %v", err)
				}
				return
			}
			f, ok := validate.AsFailure(err)
			if !ok {
				t.Fatalf("expected a validation failure, got %v", err)
			}
			if f.Error() != tt.want {
				t.Errorf("got %q, want %q", f.Error(), tt.want)
			}
			if f.InstancePath != tt.path {
				t.Errorf("got path %q, want %q", f.InstancePath, tt.path)
			}
		})
	}
}
