package meta

import (
	"fmt"
	"slices"
)

// UnionType holds at most one of its member properties at a time. On the
// wire a union is the bare value of its active member.
type UnionType struct {
	name    string
	members []*field
	byKey   map[string]*field
}

// UnionBuilder declares a UnionType.
type UnionBuilder struct {
	t   *UnionType
	err error
}

// NewUnion starts the declaration of a union type.
func NewUnion(name string) *UnionBuilder {
	return &UnionBuilder{t: &UnionType{name: name, byKey: map[string]*field{}}}
}

// Member declares a member. Loading tries ordered members first, by order
// index, then the rest in declaration order.
func (b *UnionBuilder) Member(key string, p Property) *UnionBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case key == "" || p == nil:
		b.err = fmt.Errorf("%w: %s: invalid member %q", ErrSchema, b.t.name, key)
		return b
	case b.t.byKey[key] != nil:
		b.err = fmt.Errorf("%w: %s: member %q declared twice", ErrSchema, b.t.name, key)
		return b
	}
	if err := p.Spec().bind(key, b.t); err != nil {
		b.err = fmt.Errorf("%s.%s: %w", b.t.name, key, err)
		return b
	}
	if err := p.Spec().Err(); err != nil {
		b.err = fmt.Errorf("%s.%s: %w", b.t.name, key, err)
		return b
	}
	f := &field{key: key, prop: p}
	b.t.members = append(b.t.members, f)
	b.t.byKey[key] = f
	return b
}

// Build finishes the declaration.
func (b *UnionBuilder) Build() (*UnionType, error) {
	if b.err != nil {
		return nil, b.err
	}
	slices.SortStableFunc(b.t.members, func(x, y *field) int {
		ox, oy := x.spec().order, y.spec().order
		switch {
		case ox == oy:
			return 0
		case ox == 0:
			return 1
		case oy == 0, ox < oy:
			return -1
		}
		return 1
	})
	return b.t, nil
}

// MustBuild is Build that panics on a declaration error.
func (b *UnionBuilder) MustBuild() *UnionType {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *UnionType) Name() string { return t.name }

func (t *UnionType) String() string { return t.name }

// Keys returns the member keys in trial order.
func (t *UnionType) Keys() []string {
	out := make([]string, len(t.members))
	for i, f := range t.members {
		out[i] = f.key
	}
	return out
}

// Member returns the property of a member.
func (t *UnionType) Member(key string) (Property, bool) {
	f, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	return f.prop, true
}

func (t *UnionType) replace(key any, old, p Property) error {
	k, _ := key.(string)
	f, ok := t.byKey[k]
	if !ok || f.prop != old {
		return fmt.Errorf("%w: member %v is not a forward reference", ErrSchema, key)
	}
	f.prop = p
	return nil
}

// New returns an empty union.
func (t *UnionType) New() *Union { return &Union{typ: t} }

// Load reads a union value.
func (t *UnionType) Load(raw any, c *Context) (*Union, error) {
	v, err := Load(t.Property(), raw, c)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*Union), nil
}

// Union is an instance of a UnionType.
type Union struct {
	typ *UnionType
	key string
	val any
}

func (u *Union) Type() *UnionType { return u.typ }

// Key returns the active member, "" when empty.
func (u *Union) Key() string { return u.key }

// Value returns the active value, nil when empty.
func (u *Union) Value() any { return u.val }

// Item returns the active member and its value.
func (u *Union) Item() (string, any) { return u.key, u.val }

func (u *Union) member(key string) (*field, error) {
	f, ok := u.typ.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no member %q", ErrUnknownKey, u.typ.name, key)
	}
	return f, nil
}

// Get returns the value of key if it is the active member.
func (u *Union) Get(key string) (any, error) {
	if _, err := u.member(key); err != nil {
		return nil, err
	}
	if key != u.key {
		return nil, nil
	}
	return u.val, nil
}

// Set makes key the active member. nil clears the union.
func (u *Union) Set(key string, v any) error {
	f, err := u.member(key)
	if err != nil {
		return err
	}
	switch {
	case IsNull(v):
		if f.spec().required {
			return Invalidf(CodeRequired, "%s.%s cannot be null", u.typ.name, key)
		}
	case v != nil:
		if v, err = Load(f.prop, v, nil); err != nil {
			return err
		}
	}
	if v == nil {
		u.key, u.val = "", nil
		return nil
	}
	u.key, u.val = key, v
	return nil
}

// Delete clears the union.
func (u *Union) Delete(key string) error {
	if _, err := u.member(key); err != nil {
		return err
	}
	u.key, u.val = "", nil
	return nil
}

// Equal compares active values. other may be a Union or a bare value.
func (u *Union) Equal(other any) bool {
	if o, ok := other.(*Union); ok {
		return deepEqual(u.val, o.val)
	}
	return deepEqual(u.val, other)
}

// Validate fails when the union is empty or its value is invalid.
func (u *Union) Validate(c *Context) error { return validateUnion(u, c) }

func validateUnion(u *Union, c *Context) error {
	m, err := openMarker(c, u, true)
	if err != nil {
		return err
	}
	if isEmpty(u.val) {
		return m.close(Invalidf(CodeRequired, "%s has no value", u.typ.name))
	}
	return m.close(validateValue(u.val, m))
}

// Dump converts the active value; an empty union dumps as nil.
func (u *Union) Dump(c *Context) (any, error) { return Dump(u.typ.Property(), u, c) }

// UnionProperty uses a UnionType as a field type.
type UnionProperty struct {
	base
	typ *UnionType
}

// Property returns a property of type t.
func (t *UnionType) Property(opts ...Option) *UnionProperty {
	p := &UnionProperty{typ: t}
	p.spec = newSpec(opts)
	return p
}

func (p *UnionProperty) Type() *UnionType { return p.typ }

// LoadValue tries the visible members in order on a copy of c; the first
// that loads raw without a fault wins. Fatal faults are not retried.
func (p *UnionProperty) LoadValue(raw any, c *Context) (any, error) {
	if u, ok := raw.(*Union); ok && u.typ == p.typ {
		return u, nil
	}
	inst := p.typ.New()
	for _, f := range p.typ.members {
		if !Visible(f.prop, c) {
			continue
		}
		v, err := Load(f.prop, raw, c.Copy())
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			continue
		}
		if v != nil {
			inst.key, inst.val = f.key, v
		}
		return inst, nil
	}
	return nil, Invalidf(CodeUnionNoMatch, "%s", p.typ.name)
}

func (p *UnionProperty) DumpValue(v any, c *Context) (any, error) {
	u, ok := v.(*Union)
	if !ok || u == nil || u.typ != p.typ {
		return nil, Invalidf(CodeInvalidType, "%s expects a union of its type, got %T", p.typ.name, v)
	}
	if u.key == "" {
		return nil, nil
	}
	return Dump(u.typ.byKey[u.key].prop, u.val, c)
}
