package validate

import (
	"bytes"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
)

// normalize converts v into the JSON data model: nil, bool, float64,
// string, []any and map[string]any. Values already in that model are
// copied shallowly so coercion never mutates the caller's data. Anything
// else takes a JSON round trip.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return x, nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}

	data, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not representable as JSON: %w", err)
	}
	var out any
	if err := gojson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeJSON decodes a single JSON value. Trailing data is an error.
// Numbers decode to float64, the same number model JavaScript values have,
// so integers beyond 2^53 round the way they would at runtime.
func DecodeJSON(data []byte) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON value: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("decoding JSON value: unexpected data after the value")
	}
	return v, nil
}

// convert turns a validated value into T. A value that already is a T is
// returned as is; otherwise it is re-decoded through JSON.
func convert[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var out T
	data, err := gojson.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := gojson.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("converting to %T: %w", out, err)
	}
	return out, nil
}
