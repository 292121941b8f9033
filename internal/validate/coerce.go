package validate

import (
	"math"
	"strconv"
	"strings"

	"github.com/dyncast/dyncast/internal/schema"
)

// coerce applies ajv's coerceTypes rules wherever d asks for a primitive.
// Values that cannot be coerced are returned unchanged so validation
// reports them. v must be normalized; containers are updated in place.
func coerce(d schema.Document, v any) any {
	switch d.Kind {
	case schema.KindPrimitive:
		return coercePrimitive(d.Primitive, v)
	case schema.KindArray:
		if arr, ok := v.([]any); ok && d.Items != nil {
			for i, e := range arr {
				arr[i] = coerce(*d.Items, e)
			}
		}
	case schema.KindObject:
		if obj, ok := v.(map[string]any); ok {
			for _, p := range d.Properties {
				if e, present := obj[p.Name]; present {
					obj[p.Name] = coerce(p.Schema, e)
				}
			}
		}
	}
	return v
}

func coercePrimitive(p schema.Primitive, v any) any {
	switch p {
	case schema.Number:
		switch x := v.(type) {
		case nil:
			return 0.0
		case bool:
			if x {
				return 1.0
			}
			return 0.0
		case string:
			if n, ok := parseNumber(x); ok {
				return n
			}
		}
	case schema.String:
		switch x := v.(type) {
		case nil:
			return ""
		case bool:
			return strconv.FormatBool(x)
		case float64:
			return formatNumber(x)
		}
	case schema.Boolean:
		switch x := v.(type) {
		case nil:
			return false
		case string:
			switch x {
			case "true":
				return true
			case "false":
				return false
			}
		case float64:
			switch x {
			case 1:
				return true
			case 0:
				return false
			}
		}
	}
	return v
}

// parseNumber accepts the decimal strings a JavaScript unary plus turns
// into a finite number. Surrounding whitespace is ignored; "" is rejected.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	// ParseFloat also takes "Inf", "0x1p-2" and underscores.
	if strings.ContainsAny(s, "_pPxXiInN") {
		return 0, false
	}
	return n, true
}

// formatNumber renders n the way JavaScript's String(n) does for the
// common cases.
func formatNumber(n float64) string {
	if math.Abs(n) >= 1e21 {
		return strconv.FormatFloat(n, 'e', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
