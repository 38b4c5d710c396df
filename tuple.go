package meta

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Repeat is the cardinality of a tuple: how many times its unit may occur.
// It is either an arithmetic progression (start, optional stop, step) or an
// explicit set of counts. The zero Repeat allows any count.
type Repeat struct {
	set     map[int]struct{}
	start   int
	stop    int
	bounded bool
	step    int
}

// Exactly allows n repetitions.
func Exactly(n int) Repeat { return Repeat{start: n, stop: n + 1, bounded: true, step: 1} }

// Range allows start <= n < stop.
func Range(start, stop int) Repeat { return RangeStep(start, stop, 1) }

// RangeStep allows the counts a slice start:stop:step selects. A negative
// step walks down from start; a zero step allows nothing.
func RangeStep(start, stop, step int) Repeat {
	switch {
	case step == 0, step < 0 && start <= stop:
		return Repeat{bounded: true, step: 1}
	case step < 0:
		s := -step
		return Repeat{start: start - s*((start-stop-1)/s), stop: start + 1, bounded: true, step: s}
	}
	return Repeat{start: start, stop: stop, bounded: true, step: step}
}

// AtLeast allows n or more repetitions.
func AtLeast(n int) Repeat { return Repeat{start: n, step: 1} }

// Unbounded allows any number of repetitions, including none.
func Unbounded() Repeat { return AtLeast(0) }

// Counts allows exactly the listed repetition counts.
func Counts(ns ...int) Repeat {
	set := make(map[int]struct{}, len(ns))
	for _, n := range ns {
		set[n] = struct{}{}
	}
	return Repeat{set: set}
}

// Allows reports whether n repetitions satisfy r.
func (r Repeat) Allows(n int) bool {
	if r.set != nil {
		_, ok := r.set[n]
		return ok
	}
	if n < r.start || (n-r.start)%max(r.step, 1) != 0 {
		return false
	}
	return !r.bounded || n < r.stop
}

// Min returns the smallest allowed count, -1 when none is allowed.
func (r Repeat) Min() int {
	if r.set != nil {
		if len(r.set) == 0 {
			return -1
		}
		return slices.Min(r.members())
	}
	if r.bounded && r.start >= r.stop {
		return -1
	}
	return r.start
}

// Max returns the largest allowed count; ok is false when unbounded.
func (r Repeat) Max() (n int, ok bool) {
	if r.set != nil {
		if len(r.set) == 0 {
			return -1, true
		}
		return slices.Max(r.members()), true
	}
	if !r.bounded {
		return 0, false
	}
	if r.start >= r.stop {
		return -1, true
	}
	step := max(r.step, 1)
	return r.start + (r.stop-1-r.start)/step*step, true
}

func (r Repeat) members() []int {
	out := make([]int, 0, len(r.set))
	for n := range r.set {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (r Repeat) String() string {
	if r.set != nil {
		ns := make([]string, 0, len(r.set))
		for _, n := range r.members() {
			ns = append(ns, strconv.Itoa(n))
		}
		return "{" + strings.Join(ns, ",") + "}"
	}
	stop := ""
	if r.bounded {
		stop = strconv.Itoa(r.stop)
	}
	return fmt.Sprintf("%d:%s:%d", r.start, stop, r.step)
}

// TupleProperty holds a sequence made of a repeating unit of properties.
type TupleProperty struct {
	base
	units  []Property
	repeat *Repeat
}

// Tuple returns a tuple of one occurrence of units.
func Tuple(units ...Property) *TupleProperty {
	t := &TupleProperty{units: append([]Property(nil), units...)}
	for i, u := range t.units {
		if u == nil {
			t.spec.err = fmt.Errorf("%w: tuple unit %d is nil", ErrSchema, i)
			continue
		}
		if err := u.Spec().bind(i, t); err != nil && t.spec.err == nil {
			t.spec.err = err
		}
	}
	return t
}

// Many makes a homogeneous tuple of p repeated r times.
func Many(p Property, r Repeat, opts ...Option) *TupleProperty {
	return Tuple(p).Repeat(r).With(opts...)
}

// Repeat sets the cardinality of the unit.
func (t *TupleProperty) Repeat(r Repeat) *TupleProperty {
	t.repeat = &r
	return t
}

// With applies options to the tuple itself.
func (t *TupleProperty) With(opts ...Option) *TupleProperty {
	prev := t.spec.err
	if err := t.spec.Apply(opts...); err == nil && prev != nil {
		t.spec.err = prev
	}
	return t
}

// Units returns the unit properties.
func (t *TupleProperty) Units() []Property { return append([]Property(nil), t.units...) }

// Cardinality returns the repeat cardinality; nil means exactly one.
func (t *TupleProperty) Cardinality() *Repeat { return t.repeat }

func (t *TupleProperty) replace(key any, old, p Property) error {
	i, ok := key.(int)
	if !ok || i < 0 || i >= len(t.units) || t.units[i] != old {
		return fmt.Errorf("%w: unit %v is not a forward reference", ErrSchema, key)
	}
	t.units[i] = p
	return nil
}

// checkLength returns the repeat count of a sequence of length l.
func (t *TupleProperty) checkLength(l int) (int, error) {
	unit := len(t.units)
	if unit == 0 {
		if l != 0 {
			return 0, Invalidf(CodeLengthMismatch, "expected no items, got %d", l)
		}
		return 0, nil
	}
	n, r := l/unit, l%unit
	if r != 0 {
		return 0, Invalidf(CodeLengthMismatch, "%d items do not divide into units of %d", l, unit)
	}
	if t.repeat == nil {
		if l != unit {
			return 0, Invalidf(CodeLengthMismatch, "expected %d items, got %d", unit, l)
		}
		return n, nil
	}
	if !t.repeat.Allows(n) {
		return 0, Invalidf(CodeLengthMismatch, "%d repetitions outside %s", n, t.repeat)
	}
	return n, nil
}

func (t *TupleProperty) visibility(c *Context) []bool {
	out := make([]bool, len(t.units))
	for i, u := range t.units {
		out[i] = Visible(u, c)
	}
	return out
}

func (t *TupleProperty) LoadValue(raw any, c *Context) (any, error) {
	items, ok := asSlice(raw)
	if !ok {
		return nil, Invalidf(CodeInvalidType, "expected an array, got %T", raw)
	}
	m, err := openMarker(c, raw, true)
	if err != nil {
		return nil, err
	}
	n, err := t.checkLength(len(items))
	if err != nil {
		return nil, m.close(err)
	}
	if n == 0 {
		return []any{}, m.close(nil)
	}
	unit := len(t.units)
	visible := t.visibility(m.ctx)
	out := make([]any, 0, len(items))
	for i, val := range items {
		j := i % unit
		if !visible[j] {
			if val != nil {
				if m.fail(i, val, Invalid(CodeHiddenValue, "")) {
					return nil, m.close(errStop)
				}
				continue
			}
			out = append(out, nil)
			continue
		}
		u := t.units[j]
		in := val
		if in == nil {
			if p, err := resolve(u); err == nil && p.Spec().def != nil {
				in = p.Spec().def.value()
			}
		}
		v, err := Load(u, in, m.ctx)
		if err != nil {
			if m.fail(i, val, err) {
				return nil, m.close(errStop)
			}
			continue
		}
		out = append(out, v)
	}
	if err := m.close(nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *TupleProperty) DumpValue(v any, c *Context) (any, error) {
	items, ok := asSlice(v)
	if !ok {
		return nil, Invalidf(CodeInvalidType, "expected a slice, got %T", v)
	}
	m, err := openMarker(c, v, true)
	if err != nil {
		return nil, err
	}
	unit := len(t.units)
	if unit == 0 && len(items) > 0 {
		return nil, m.close(Invalidf(CodeLengthMismatch, "expected no items, got %d", len(items)))
	}
	visible := t.visibility(m.ctx)
	out := make([]any, 0, len(items))
	for i, val := range items {
		j := i % unit
		if !visible[j] {
			out = append(out, nil)
			continue
		}
		d, err := Dump(t.units[j], val, m.ctx)
		if err != nil {
			if m.fail(i, val, err) {
				return nil, m.close(errStop)
			}
			continue
		}
		out = append(out, d)
	}
	if err := m.close(nil); err != nil {
		return nil, err
	}
	return out, nil
}

// asSlice views arrays and slices, other than byte strings, as []any.
func asSlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []byte, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
