package meta

import (
	"math"
	"reflect"
	"time"

	json "github.com/goccy/go-json"
)

// AnyProperty accepts any JSON-compatible value: nil, strings, booleans,
// numbers, string-keyed maps and slices of those. Containers are copied.
type AnyProperty struct{ base }

// Any returns a property accepting any JSON-compatible value.
func Any(opts ...Option) *AnyProperty {
	p := &AnyProperty{}
	p.spec = newSpec(opts)
	return p
}

func (p *AnyProperty) LoadValue(raw any, c *Context) (any, error) { return checkJSON(raw, c) }

func (p *AnyProperty) DumpValue(v any, c *Context) (any, error) { return checkJSON(v, c) }

// checkJSON copies a JSON-compatible value, failing on anything else.
// Reference cycles are fatal.
func checkJSON(v any, c *Context) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return v, nil
	case null:
		return nil, nil
	case json.Number:
		return normalizeNumbers(x), nil
	case map[string]any, *Object:
		return checkObject(v, c)
	case []any:
		return checkArray(x, c)
	}
	if n, err := number(v, numberOpts{allowNaN: true}); err == nil {
		return n, nil
	}
	if items, ok := asSlice(v); ok {
		return checkArray(items, c)
	}
	return nil, Invalidf(CodeInvalidType, "%T is not JSON-compatible", v)
}

func checkObject(v any, c *Context) (any, error) {
	keys, get, ok := mapping(v)
	if !ok {
		return nil, Invalidf(CodeInvalidType, "expected an object, got %T", v)
	}
	m, err := openMarker(c, v, true)
	if err != nil {
		return nil, err
	}
	var out any
	var set func(string, any)
	if _, ordered := v.(*Object); ordered {
		o := NewObject()
		out, set = o, o.Set
	} else {
		mm := make(map[string]any, len(keys))
		out, set = mm, func(k string, e any) { mm[k] = e }
	}
	for _, k := range keys {
		e := get(k)
		cp, err := checkJSON(e, m.ctx)
		if err != nil {
			if m.fail(k, e, err) {
				return nil, m.close(errStop)
			}
			continue
		}
		set(k, cp)
	}
	if err := m.close(nil); err != nil {
		return nil, err
	}
	return out, nil
}

func checkArray(items []any, c *Context) (any, error) {
	m, err := openMarker(c, items, true)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	for i, e := range items {
		cp, err := checkJSON(e, m.ctx)
		if err != nil {
			if m.fail(i, e, err) {
				return nil, m.close(errStop)
			}
			continue
		}
		out = append(out, cp)
	}
	if err := m.close(nil); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONObjectProperty accepts a string-keyed map of JSON-compatible values.
type JSONObjectProperty struct{ base }

func JSONObject(opts ...Option) *JSONObjectProperty {
	p := &JSONObjectProperty{}
	p.spec = newSpec(opts)
	return p
}

func (p *JSONObjectProperty) LoadValue(raw any, c *Context) (any, error) { return checkObject(raw, c) }

func (p *JSONObjectProperty) DumpValue(v any, c *Context) (any, error) { return checkObject(v, c) }

// JSONArrayProperty accepts a slice of JSON-compatible values.
type JSONArrayProperty struct{ base }

func JSONArray(opts ...Option) *JSONArrayProperty {
	p := &JSONArrayProperty{}
	p.spec = newSpec(opts)
	return p
}

func (p *JSONArrayProperty) LoadValue(raw any, c *Context) (any, error) {
	items, ok := asSlice(raw)
	if !ok {
		return nil, Invalidf(CodeInvalidType, "expected an array, got %T", raw)
	}
	return checkArray(items, c)
}

func (p *JSONArrayProperty) DumpValue(v any, c *Context) (any, error) { return p.LoadValue(v, c) }

// StringProperty accepts strings. Byte slices are converted.
type StringProperty struct {
	base
	nonEmpty bool
}

func String(opts ...Option) *StringProperty {
	p := &StringProperty{}
	p.spec = newSpec(opts)
	return p
}

// NonEmpty rejects "".
func (p *StringProperty) NonEmpty() *StringProperty {
	p.nonEmpty = true
	return p
}

func (p *StringProperty) IsNonEmpty() bool { return p.nonEmpty }

func (p *StringProperty) LoadValue(raw any, _ *Context) (any, error) {
	var s string
	switch x := raw.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return nil, Invalidf(CodeInvalidType, "expected a string, got %T", raw)
	}
	if s == "" && p.nonEmpty {
		return nil, Invalid(CodeInvalidValue, "empty string")
	}
	return s, nil
}

func (p *StringProperty) DumpValue(v any, c *Context) (any, error) { return p.LoadValue(v, c) }

// BooleanProperty accepts true and false only.
type BooleanProperty struct{ base }

func Boolean(opts ...Option) *BooleanProperty {
	p := &BooleanProperty{}
	p.spec = newSpec(opts)
	return p
}

func (p *BooleanProperty) LoadValue(raw any, _ *Context) (any, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, Invalidf(CodeInvalidType, "expected a boolean, got %T", raw)
	}
	return b, nil
}

func (p *BooleanProperty) DumpValue(v any, c *Context) (any, error) { return p.LoadValue(v, c) }

// maxSafeInteger is the largest integer a binary64 float holds exactly.
const maxSafeInteger = 1<<53 - 1

type numberOpts struct {
	allowBool bool
	allowNaN  bool
	jsSafe    bool
}

// number folds Go numeric kinds into int64 or float64.
func number(v any, o numberOpts) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if !o.allowBool {
			return nil, Invalid(CodeInvalidType, "boolean is not a number")
		}
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if o.jsSafe && (i > maxSafeInteger || i < -maxSafeInteger) {
			return nil, Invalidf(CodeInvalidValue, "%d is outside the safe integer range", i)
		}
		return i, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 || (o.jsSafe && u > maxSafeInteger) {
			return nil, Invalidf(CodeInvalidValue, "%d is outside the integer range", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if !o.allowNaN && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, Invalid(CodeInvalidValue, "NaN and infinities are not allowed")
		}
		return f, nil
	}
	if n, ok := v.(json.Number); ok {
		return number(normalizeNumbers(n), o)
	}
	return nil, Invalidf(CodeInvalidType, "expected a number, got %T", v)
}

// NumberProperty accepts integers and floats without conversion beyond
// folding them into int64 and float64.
type NumberProperty struct {
	base
	opts numberOpts
}

func Number(opts ...Option) *NumberProperty {
	p := &NumberProperty{}
	p.spec = newSpec(opts)
	return p
}

// AllowBool accepts booleans as 0 and 1.
func (p *NumberProperty) AllowBool() *NumberProperty {
	p.opts.allowBool = true
	return p
}

// AllowNaN accepts NaN and the infinities.
func (p *NumberProperty) AllowNaN() *NumberProperty {
	p.opts.allowNaN = true
	return p
}

// JSSafe rejects integers a JavaScript number cannot hold exactly.
func (p *NumberProperty) JSSafe() *NumberProperty {
	p.opts.jsSafe = true
	return p
}

func (p *NumberProperty) LoadValue(raw any, _ *Context) (any, error) { return number(raw, p.opts) }

func (p *NumberProperty) DumpValue(v any, c *Context) (any, error) { return p.LoadValue(v, c) }

// IntegerProperty accepts integers and integral floats, yielding int64.
type IntegerProperty struct {
	NumberProperty
}

func Integer(opts ...Option) *IntegerProperty {
	p := &IntegerProperty{}
	p.spec = newSpec(opts)
	return p
}

func (p *IntegerProperty) AllowBool() *IntegerProperty {
	p.opts.allowBool = true
	return p
}

func (p *IntegerProperty) JSSafe() *IntegerProperty {
	p.opts.jsSafe = true
	return p
}

func (p *IntegerProperty) LoadValue(raw any, _ *Context) (any, error) {
	n, err := number(raw, p.opts)
	if err != nil {
		return nil, err
	}
	if f, ok := n.(float64); ok {
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return nil, Invalidf(CodeInvalidValue, "%v is not an integer", f)
		}
		i := int64(f)
		if p.opts.jsSafe && (i > maxSafeInteger || i < -maxSafeInteger) {
			return nil, Invalidf(CodeInvalidValue, "%d is outside the safe integer range", i)
		}
		return i, nil
	}
	return n, nil
}

func (p *IntegerProperty) DumpValue(v any, c *Context) (any, error) { return p.LoadValue(v, c) }

// FloatProperty accepts numbers, yielding float64.
type FloatProperty struct {
	NumberProperty
}

func Float(opts ...Option) *FloatProperty {
	p := &FloatProperty{}
	p.spec = newSpec(opts)
	return p
}

func (p *FloatProperty) AllowNaN() *FloatProperty {
	p.opts.allowNaN = true
	return p
}

func (p *FloatProperty) LoadValue(raw any, _ *Context) (any, error) {
	n, err := number(raw, p.opts)
	if err != nil {
		return nil, err
	}
	if i, ok := n.(int64); ok {
		return float64(i), nil
	}
	return n, nil
}

func (p *FloatProperty) DumpValue(v any, c *Context) (any, error) { return p.LoadValue(v, c) }

// DateTimeProperty holds time.Time values. The wire form is an RFC 3339
// string unless a layout or Unix seconds are selected.
type DateTimeProperty struct {
	base
	layout string
	unix   bool
}

func DateTime(opts ...Option) *DateTimeProperty {
	p := &DateTimeProperty{}
	p.spec = newSpec(opts)
	return p
}

// Layout selects a time.Parse layout for the wire form.
func (p *DateTimeProperty) Layout(layout string) *DateTimeProperty {
	p.layout, p.unix = layout, false
	return p
}

// Unix selects fractional Unix seconds for the wire form.
func (p *DateTimeProperty) Unix() *DateTimeProperty {
	p.layout, p.unix = "", true
	return p
}

// WireForm reports the layout and whether Unix seconds are used. An empty
// layout without Unix means RFC 3339.
func (p *DateTimeProperty) WireForm() (layout string, unix bool) { return p.layout, p.unix }

func (p *DateTimeProperty) LoadValue(raw any, _ *Context) (any, error) {
	switch x := raw.(type) {
	case time.Time:
		return x, nil
	case string:
		if p.unix {
			break
		}
		var (
			t   time.Time
			err error
		)
		if p.layout != "" {
			t, err = time.Parse(p.layout, x)
		} else {
			t, err = parseISO(x)
		}
		if err != nil {
			return nil, &InvalidError{Code: CodeInvalidValue, Hint: "invalid time", Cause: err}
		}
		return t, nil
	default:
		if !p.unix {
			break
		}
		n, err := number(raw, numberOpts{})
		if err != nil {
			return nil, err
		}
		var f float64
		switch v := n.(type) {
		case int64:
			f = float64(v)
		case float64:
			f = v
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
	}
	return nil, Invalidf(CodeInvalidType, "expected a time, got %T", raw)
}

func (p *DateTimeProperty) DumpValue(v any, _ *Context) (any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, Invalidf(CodeInvalidType, "expected time.Time, got %T", v)
	}
	switch {
	case p.unix:
		return float64(t.UnixNano()) / 1e9, nil
	case p.layout != "":
		return t.Format(p.layout), nil
	}
	return formatRFC3339Canonical(t), nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parseISO accepts RFC 3339 and the shorter ISO 8601 forms down to a bare
// year. Values without an offset are taken as UTC.
func parseISO(s string) (time.Time, error) {
	var first error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if first == nil {
			first = err
		}
	}
	return time.Time{}, first
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
