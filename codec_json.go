package meta

import (
	"bytes"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
)

// JSONCodec turns a dumped value into compact JSON text and back. It is
// registered as "json".
type JSONCodec struct {
	// SortKeys drops insertion order and writes object members sorted.
	SortKeys bool
}

func init() { RegisterCodec("json", JSONCodec{}) }

func (cd JSONCodec) Encode(v any, _ Property, _ *Context) (any, error) {
	if cd.SortKeys {
		v = unorder(v)
	}
	b, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (JSONCodec) Decode(v any, _ Property, _ *Context) (any, error) {
	var b []byte
	switch x := v.(type) {
	case string:
		b = []byte(x)
	case []byte:
		b = x
	default:
		return nil, Invalidf(CodeInvalidType, "json codec expects text, got %T", v)
	}
	return DecodeJSON(b)
}

// DecodeJSON parses one JSON document into generic values. Integral numbers
// become int64 when they fit, other numbers float64.
func DecodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return normalizeNumbers(out), nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
	}
	return v
}

// unorder replaces Objects with plain maps, recursively.
func unorder(v any) any {
	switch x := v.(type) {
	case *Object:
		m := make(map[string]any, x.Len())
		for _, k := range x.keys {
			m[k] = unorder(x.vals[k])
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = unorder(e)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = unorder(e)
		}
		return out
	}
	return v
}
