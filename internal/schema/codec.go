package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// Marshal encodes a document in its canonical compact form. Key order is
// fixed per kind:
//
//	object    {"properties":{...},"required":[...],"additionalProperties":false}
//	array     {"items":...,"additionalItems":true}
//	primitive {"type":"..."}
//	enum      {"enum":[...]}
//	const     {"const":...}
//	any       {"additionalItems":true}
func Marshal(d Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := d.MarshalJSONTo(enc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalJSON implements json.Marshaler using the canonical form.
func (d Document) MarshalJSON() ([]byte, error) {
	return Marshal(d)
}

// MarshalJSONTo streams the canonical form to enc.
func (d Document) MarshalJSONTo(enc *jsontext.Encoder) error {
	w := tokenWriter{enc: enc}
	w.document(d)
	return w.err
}

// Quote returns the canonical text of d as a double-quoted string literal,
// ready to be spliced into JavaScript source.
func Quote(d Document) (string, error) {
	text, err := Marshal(d)
	if err != nil {
		return "", err
	}
	return QuoteString(string(text))
}

// QuoteString returns s as a double-quoted string literal.
func QuoteString(s string) (string, error) {
	quoted, err := jsontext.AppendQuote(nil, s)
	if err != nil {
		return "", err
	}
	return string(quoted), nil
}

type tokenWriter struct {
	enc *jsontext.Encoder
	err error
}

func (w *tokenWriter) write(tok jsontext.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.WriteToken(tok)
}

func (w *tokenWriter) literal(v any) {
	switch val := v.(type) {
	case string:
		w.write(jsontext.String(val))
	case float64:
		w.write(jsontext.Float(val))
	case bool:
		w.write(jsontext.Bool(val))
	default:
		if w.err == nil {
			w.err = fmt.Errorf("unsupported literal %v (%T)", v, v)
		}
	}
}

func (w *tokenWriter) document(d Document) {
	w.write(jsontext.BeginObject)
	switch d.Kind {
	case KindAny:
		w.write(jsontext.String("additionalItems"))
		w.write(jsontext.True)

	case KindPrimitive:
		w.write(jsontext.String("type"))
		w.write(jsontext.String(string(d.Primitive)))

	case KindConst:
		w.write(jsontext.String("const"))
		w.literal(d.Value)

	case KindEnum:
		w.write(jsontext.String("enum"))
		w.write(jsontext.BeginArray)
		for _, v := range d.Values {
			w.literal(v)
		}
		w.write(jsontext.EndArray)

	case KindArray:
		items := Any()
		if d.Items != nil {
			items = *d.Items
		}
		w.write(jsontext.String("items"))
		w.document(items)
		w.write(jsontext.String("additionalItems"))
		w.write(jsontext.True)

	case KindObject:
		w.write(jsontext.String("properties"))
		w.write(jsontext.BeginObject)
		for _, p := range d.Properties {
			w.write(jsontext.String(p.Name))
			w.document(p.Schema)
		}
		w.write(jsontext.EndObject)
		w.write(jsontext.String("required"))
		w.write(jsontext.BeginArray)
		for _, name := range d.Required() {
			w.write(jsontext.String(name))
		}
		w.write(jsontext.EndArray)
		w.write(jsontext.String("additionalProperties"))
		w.write(jsontext.False)

	default:
		if w.err == nil {
			w.err = fmt.Errorf("unknown schema kind %q", d.Kind)
		}
	}
	w.write(jsontext.EndObject)
}

// Parse decodes canonical schema text back into a Document. Member order is
// preserved. Keywords outside the schema algebra are rejected.
func Parse(text string) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return Document{}, errors.New("empty schema text")
	}
	dec := jsontext.NewDecoder(strings.NewReader(text))
	d, err := parseDocument(dec)
	if err != nil {
		return Document{}, fmt.Errorf("parse schema: %w", err)
	}
	if _, err := dec.ReadToken(); err != io.EOF {
		return Document{}, errors.New("parse schema: trailing data after document")
	}
	if err := d.Check(); err != nil {
		return Document{}, fmt.Errorf("parse schema: %w", err)
	}
	return d, nil
}

// keywords seen while parsing one schema object.
type keywords struct {
	typ          string
	hasConst     bool
	constValue   any
	enum         []any
	hasEnum      bool
	items        *Document
	properties   []Property
	hasProps     bool
	required     []string
	closed       bool
	hasClosedKey bool
}

func parseDocument(dec *jsontext.Decoder) (Document, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return Document{}, err
	}
	if tok.Kind() != '{' {
		return Document{}, fmt.Errorf("expected object, got %v", tok.Kind())
	}

	var kw keywords
	for {
		tok, err := dec.ReadToken()
		if err != nil {
			return Document{}, err
		}
		if tok.Kind() == '}' {
			break
		}
		key := tok.String()
		switch key {
		case "type":
			v, err := readString(dec)
			if err != nil {
				return Document{}, fmt.Errorf("type: %w", err)
			}
			kw.typ = v
		case "const":
			v, err := readLiteral(dec)
			if err != nil {
				return Document{}, fmt.Errorf("const: %w", err)
			}
			kw.hasConst, kw.constValue = true, v
		case "enum":
			vs, err := readLiteralArray(dec)
			if err != nil {
				return Document{}, fmt.Errorf("enum: %w", err)
			}
			kw.hasEnum, kw.enum = true, vs
		case "items":
			items, err := parseDocument(dec)
			if err != nil {
				return Document{}, fmt.Errorf("items: %w", err)
			}
			kw.items = &items
		case "additionalItems":
			if _, err := readBool(dec); err != nil {
				return Document{}, fmt.Errorf("additionalItems: %w", err)
			}
		case "properties":
			props, err := parseProperties(dec)
			if err != nil {
				return Document{}, fmt.Errorf("properties: %w", err)
			}
			kw.hasProps, kw.properties = true, props
		case "required":
			names, err := readStringArray(dec)
			if err != nil {
				return Document{}, fmt.Errorf("required: %w", err)
			}
			kw.required = names
		case "additionalProperties":
			b, err := readBool(dec)
			if err != nil {
				return Document{}, fmt.Errorf("additionalProperties: %w", err)
			}
			kw.hasClosedKey, kw.closed = true, !b
		default:
			return Document{}, fmt.Errorf("unsupported keyword %q", key)
		}
	}
	return kw.document()
}

func (kw keywords) document() (Document, error) {
	switch {
	case kw.hasProps || kw.required != nil || kw.hasClosedKey:
		d := Object(kw.properties...)
		for _, name := range kw.required {
			found := false
			for i := range d.Properties {
				if d.Properties[i].Name == name {
					d.Properties[i].Required = true
					found = true
				}
			}
			if !found {
				return Document{}, fmt.Errorf("required property %q is not declared", name)
			}
		}
		return d, nil
	case kw.items != nil:
		return ArrayOf(*kw.items), nil
	case kw.typ != "":
		return PrimitiveOf(Primitive(kw.typ)), nil
	case kw.hasEnum:
		return Enum(kw.enum...), nil
	case kw.hasConst:
		return Const(kw.constValue), nil
	}
	return Any(), nil
}

func parseProperties(dec *jsontext.Decoder) ([]Property, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	if tok.Kind() != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok.Kind())
	}
	props := []Property{}
	for {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind() == '}' {
			return props, nil
		}
		name := tok.String()
		sub, err := parseDocument(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		props = append(props, Property{Name: name, Schema: sub})
	}
}

func readString(dec *jsontext.Decoder) (string, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return "", err
	}
	if tok.Kind() != '"' {
		return "", fmt.Errorf("expected string, got %v", tok.Kind())
	}
	return tok.String(), nil
}

func readBool(dec *jsontext.Decoder) (bool, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return false, err
	}
	switch tok.Kind() {
	case 't', 'f':
		return tok.Bool(), nil
	}
	return false, fmt.Errorf("expected boolean, got %v", tok.Kind())
}

func readLiteral(dec *jsontext.Decoder) (any, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	return tokenLiteral(tok)
}

func tokenLiteral(tok jsontext.Token) (any, error) {
	switch tok.Kind() {
	case '"':
		return tok.String(), nil
	case '0':
		return tok.Float(), nil
	case 't', 'f':
		return tok.Bool(), nil
	}
	return nil, fmt.Errorf("expected literal, got %v", tok.Kind())
}

func readLiteralArray(dec *jsontext.Decoder) ([]any, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	if tok.Kind() != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok.Kind())
	}
	values := []any{}
	for {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind() == ']' {
			return values, nil
		}
		v, err := tokenLiteral(tok)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
}

func readStringArray(dec *jsontext.Decoder) ([]string, error) {
	values, err := readLiteralArray(dec)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %v", v)
		}
		names = append(names, s)
	}
	return names, nil
}
