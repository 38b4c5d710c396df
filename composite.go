package meta

import (
	"fmt"
	"log/slog"
	"slices"
)

// field is one entry of a field table.
type field struct {
	key  string
	prop Property
}

func (f *field) spec() *Spec { return f.prop.Spec() }

// kindSpace maps discriminator values to the concrete types of one
// polymorphic hierarchy.
type kindSpace struct {
	types map[any]*EntityType
}

// EntityType is a named record type: an ordered field table, an optional
// discriminator and the hooks that check relations between fields.
type EntityType struct {
	name   string
	parent *EntityType

	fields []*field
	byKey  map[string]*field
	names  map[string]string // wire name -> key

	kindKey string
	kind    any
	ns      *kindSpace

	hasOrdered bool
	freeze     bool
	hooks      []func(*Entity, *Context) error
}

// Name returns the type name.
func (t *EntityType) Name() string { return t.name }

func (t *EntityType) String() string { return t.name }

// Parent returns the type t extends, or nil.
func (t *EntityType) Parent() *EntityType { return t.parent }

// Keys returns the field keys in table order.
func (t *EntityType) Keys() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.key
	}
	return out
}

// Field returns the property bound to key.
func (t *EntityType) Field(key string) (Property, bool) {
	f, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	return f.prop, true
}

// KindKey returns the discriminator field key, "" for non-polymorphic types.
func (t *EntityType) KindKey() string { return t.kindKey }

// Kind returns the discriminator value of t; nil for abstract types.
func (t *EntityType) Kind() any { return t.kind }

// Abstract reports whether t is polymorphic without a discriminator value.
func (t *EntityType) Abstract() bool { return t.kindKey != "" && t.kind == nil }

// Subtypes returns the registered concrete types of t's hierarchy that
// extend t, including t itself.
func (t *EntityType) Subtypes() []*EntityType {
	if t.ns == nil {
		return nil
	}
	var out []*EntityType
	for _, st := range t.ns.types {
		if st.Extends(t) {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b *EntityType) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return out
}

// Extends reports whether t is u or derives from it.
func (t *EntityType) Extends(u *EntityType) bool {
	for x := t; x != nil; x = x.parent {
		if x == u {
			return true
		}
	}
	return false
}

func (t *EntityType) replace(key any, old, p Property) error {
	k, _ := key.(string)
	f, ok := t.byKey[k]
	if !ok || f.prop != old {
		return fmt.Errorf("%w: field %v is not a forward reference", ErrSchema, key)
	}
	f.prop = p
	return nil
}

// KindProperty is the discriminator field of a polymorphic hierarchy. It is
// read-only: its value belongs to the type, not the instance.
type KindProperty struct {
	base
	value any
}

// Value returns the discriminator literal.
func (k *KindProperty) Value() any { return k.value }

func (k *KindProperty) LoadValue(raw any, _ *Context) (any, error) {
	return normalizeKind(raw), nil
}

func (k *KindProperty) DumpValue(v any, _ *Context) (any, error) { return v, nil }

func (k *KindProperty) withValue(v any) *KindProperty {
	cp := &KindProperty{value: v}
	cp.spec = k.spec
	return cp
}

// normalizeKind folds the numeric forms a discriminator can take on the wire
// into int64.
func normalizeKind(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
	}
	return v
}

func validKind(v any) bool {
	switch normalizeKind(v).(type) {
	case nil, string, int64:
		return true
	}
	return false
}

// Builder declares an EntityType.
type Builder struct {
	name     string
	parent   *EntityType
	decl     []*field
	kindKey  string
	kind     any
	hasKind  bool
	freeze   bool
	hooks    []func(*Entity, *Context) error
	logger   *slog.Logger
	err      error
	declared map[string]bool
}

// NewEntity starts the declaration of a root entity type.
func NewEntity(name string) *Builder {
	return &Builder{name: name, logger: discardLogger, declared: map[string]bool{}}
}

// Extend starts the declaration of a type inheriting every field of parent.
// Fields declared again replace the inherited ones.
func Extend(parent *EntityType, name string) *Builder {
	b := NewEntity(name)
	b.parent = parent
	if parent == nil {
		b.err = fmt.Errorf("%w: %s extends a nil type", ErrSchema, name)
	}
	return b
}

func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf("%w: %s: %s", ErrSchema, b.name, fmt.Sprintf(format, args...))
	}
	return b
}

// Field declares a field.
func (b *Builder) Field(key string, p Property) *Builder {
	switch {
	case key == "":
		return b.fail("empty field key")
	case p == nil:
		return b.fail("field %q has no property", key)
	case b.declared[key]:
		return b.fail("field %q declared twice", key)
	}
	if _, ok := p.(*KindProperty); ok {
		return b.fail("field %q: declare discriminators with Kind", key)
	}
	b.declared[key] = true
	b.decl = append(b.decl, &field{key: key, prop: p})
	return b
}

// Kind declares the discriminator field of a new polymorphic hierarchy and
// the discriminator value of this type; a nil value makes the type
// abstract. Only Name and Ordered apply.
func (b *Builder) Kind(key string, value any, opts ...Option) *Builder {
	if b.kindKey != "" || (b.parent != nil && b.parent.kindKey != "") {
		return b.fail("multiple Kind not allowed")
	}
	if b.declared[key] {
		return b.fail("field %q declared twice", key)
	}
	if !validKind(value) {
		return b.fail("%#v is not a valid kind value", value)
	}
	k := &KindProperty{value: normalizeKind(value)}
	k.spec = Spec{kind: true, required: true}
	if err := k.spec.Apply(opts...); err != nil {
		b.err = err
		return b
	}
	b.declared[key] = true
	b.kindKey = key
	b.decl = append(b.decl, &field{key: key, prop: k})
	return b
}

// KindValue sets the discriminator value of a type extending a polymorphic
// parent. Types without one are abstract.
func (b *Builder) KindValue(v any) *Builder {
	if !validKind(v) {
		return b.fail("%#v is not a valid kind value", v)
	}
	b.kind, b.hasKind = normalizeKind(v), true
	return b
}

// Freeze makes SetAttr reject names outside the field table.
func (b *Builder) Freeze() *Builder {
	b.freeze = true
	return b
}

// Check adds a relational hook run by Validate after the field checks of an
// instance passed. Hooks of parent types run first.
func (b *Builder) Check(fn func(*Entity, *Context) error) *Builder {
	if fn != nil {
		b.hooks = append(b.hooks, fn)
	}
	return b
}

// Logger sets the logger for declaration records.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// Build compiles the field table.
func (b *Builder) Build() (*EntityType, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := &EntityType{name: b.name, parent: b.parent, freeze: b.freeze, byKey: map[string]*field{}}
	if p := b.parent; p != nil {
		t.fields = append(t.fields, p.fields...)
		for k, f := range p.byKey {
			t.byKey[k] = f
		}
		t.kindKey, t.ns = p.kindKey, p.ns
		t.hooks = append(t.hooks, p.hooks...)
	}
	t.hooks = append(t.hooks, b.hooks...)

	for _, f := range b.decl {
		if f.key == t.kindKey && b.kindKey == "" {
			return nil, fmt.Errorf("%w: %s: field %q shadows the discriminator", ErrSchema, b.name, f.key)
		}
		if err := f.spec().bind(f.key, t); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", b.name, f.key, err)
		}
		if err := f.spec().Err(); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", b.name, f.key, err)
		}
		if old, ok := t.byKey[f.key]; ok {
			i := slices.Index(t.fields, old)
			t.fields[i] = f
		} else {
			t.fields = append(t.fields, f)
		}
		t.byKey[f.key] = f
	}

	switch {
	case b.kindKey != "":
		t.kindKey = b.kindKey
		t.ns = &kindSpace{types: map[any]*EntityType{}}
		t.kind = t.byKey[b.kindKey].prop.(*KindProperty).value
		if b.hasKind {
			return nil, fmt.Errorf("%w: %s: use the Kind value, not KindValue, on the declaring type", ErrSchema, b.name)
		}
	case t.kindKey != "":
		kf := t.byKey[t.kindKey]
		if b.hasKind {
			t.kind = b.kind
		}
		nf := &field{key: t.kindKey, prop: kf.prop.(*KindProperty).withValue(t.kind)}
		t.fields[slices.Index(t.fields, kf)] = nf
		t.byKey[t.kindKey] = nf
	case b.hasKind:
		return nil, fmt.Errorf("%w: %s: KindValue without a Kind field", ErrSchema, b.name)
	}
	if t.kind != nil {
		if prev, ok := t.ns.types[t.kind]; ok {
			return nil, fmt.Errorf("%w: %s %#v was already registered by %s", ErrSchema, t.kindKey, t.kind, prev.name)
		}
		t.ns.types[t.kind] = t
		b.logger.Debug("kind registered", slog.String("type", t.name), slog.Any("kind", t.kind))
	}

	// ordered fields first, by order index; the rest keep declaration order
	slices.SortStableFunc(t.fields, func(x, y *field) int {
		ox, oy := x.spec().order, y.spec().order
		switch {
		case ox == oy, ox == 0 && oy == 0:
			return 0
		case ox == 0:
			return 1
		case oy == 0:
			return -1
		case ox < oy:
			return -1
		}
		return 1
	})

	t.names = make(map[string]string, len(t.fields))
	for _, f := range t.fields {
		if f.spec().IsOrdered() {
			t.hasOrdered = true
		}
		name := f.spec().WireName()
		if prev, ok := t.names[name]; ok {
			return nil, fmt.Errorf("%w: %s: name %s was already registered by field %s", ErrSchema, b.name, name, prev)
		}
		t.names[name] = f.key
	}
	return t, nil
}

// MustBuild is Build that panics on a declaration error.
func (b *Builder) MustBuild() *EntityType {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
