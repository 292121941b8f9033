package validate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dyncast/dyncast/internal/schema"
)

// firstFailure walks d against v and returns the first violation in the
// order ajv v6 reports them: type, required, additionalProperties,
// properties in schema order, items in element order, then enum or const.
// v must be normalized.
func firstFailure(d schema.Document, v any, path string) *Failure {
	switch d.Kind {
	case schema.KindPrimitive:
		if !hasType(v, d.Primitive) {
			return typeFailure(path, string(d.Primitive))
		}
	case schema.KindConst:
		if !literalEqual(v, d.Value) {
			return constFailure(path, d.Value)
		}
	case schema.KindEnum:
		for _, allowed := range d.Values {
			if literalEqual(v, allowed) {
				return nil
			}
		}
		return enumFailure(path, d.Values)
	case schema.KindArray:
		arr, ok := v.([]any)
		if !ok || d.Items == nil {
			return nil
		}
		for i, e := range arr {
			if f := firstFailure(*d.Items, e, path+"/"+strconv.Itoa(i)); f != nil {
				return f
			}
		}
	case schema.KindObject:
		// Without a "type" keyword the object keywords only constrain objects.
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		for _, p := range d.Properties {
			if _, present := obj[p.Name]; p.Required && !present {
				return requiredFailure(path, p.Name)
			}
		}
		for _, key := range sortedKeys(obj) {
			if _, _, declared := d.Member(key); !declared {
				return additionalFailure(path, key)
			}
		}
		for _, p := range d.Properties {
			e, present := obj[p.Name]
			if !present {
				continue
			}
			if f := firstFailure(p.Schema, e, path+"/"+escapePointer(p.Name)); f != nil {
				return f
			}
		}
	}
	return nil
}

func hasType(v any, p schema.Primitive) bool {
	switch p {
	case schema.Number:
		_, ok := v.(float64)
		return ok
	case schema.String:
		_, ok := v.(string)
		return ok
	case schema.Boolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}

func literalEqual(v, literal any) bool {
	switch l := literal.(type) {
	case float64:
		n, ok := v.(float64)
		return ok && n == l
	case string:
		s, ok := v.(string)
		return ok && s == l
	case bool:
		b, ok := v.(bool)
		return ok && b == l
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

// translate maps the engine's first leaf error onto a Failure. It serves
// schemas outside the synthesized algebra, which the ordered walk cannot
// read.
func translate(ve *jsonschema.ValidationError) *Failure {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	keyword := leaf.KeywordLocation
	if i := strings.LastIndexByte(keyword, '/'); i >= 0 {
		keyword = keyword[i+1:]
	}
	path := leaf.InstanceLocation

	switch keyword {
	case KeywordType:
		// "expected number, but got string"
		want, _, _ := strings.Cut(strings.TrimPrefix(leaf.Message, "expected "), ",")
		return typeFailure(path, want)
	case KeywordRequired:
		if name, ok := firstQuoted(leaf.Message); ok {
			return requiredFailure(path, name)
		}
	case KeywordAdditionalProperties:
		if name, ok := firstQuoted(leaf.Message); ok {
			return additionalFailure(path, name)
		}
	case KeywordEnum:
		return enumFailure(path, nil)
	case KeywordConst:
		return constFailure(path, nil)
	}
	return &Failure{Keyword: keyword, InstancePath: path, Message: leaf.Message}
}

func firstQuoted(s string) (string, bool) {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}
