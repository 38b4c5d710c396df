package meta

import (
	"errors"
	"fmt"
	"log/slog"
)

// EntityProperty uses an EntityType as a field type. Polymorphic types accept
// every concrete subtype and dispatch on the discriminator when loading.
type EntityProperty struct {
	base
	typ  *EntityType
	only map[string]struct{}
}

// Property returns a property of type t. Only and Exclude apply here.
func (t *EntityType) Property(opts ...Option) *EntityProperty {
	p := &EntityProperty{typ: t}
	p.spec = Spec{entity: true}
	p.spec.Apply(opts...)
	if p.spec.only != nil || p.spec.exclude != nil {
		keys := p.spec.only
		if keys == nil {
			keys = t.Keys()
		}
		p.only = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			p.only[k] = struct{}{}
		}
		for _, k := range p.spec.exclude {
			delete(p.only, k)
		}
	}
	return p
}

// Type returns the static type of the property.
func (p *EntityProperty) Type() *EntityType { return p.typ }

// Fields returns the keys kept by Only and Exclude, or nil when unrestricted.
func (p *EntityProperty) Fields() []string {
	if p.only == nil {
		return nil
	}
	var out []string
	for _, k := range p.typ.Keys() {
		if _, ok := p.only[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func (p *EntityProperty) isVisible(key string, c *Context, inst *Entity) bool {
	f, ok := inst.typ.byKey[key]
	if !ok {
		return false
	}
	if f.spec().required {
		return true
	}
	if p.only != nil {
		if _, ok := p.only[key]; !ok {
			return false
		}
	}
	return Visible(f.prop, c)
}

// Load reads an instance of t, or of the concrete subtype named by the
// discriminator.
func (t *EntityType) Load(raw any, c *Context) (*Entity, error) {
	v, err := Load(t.Property(), raw, c)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*Entity), nil
}

// LoadJSON is Load on a JSON document. A strict Context also rejects
// repeated object keys, which a plain decode would silently collapse.
func (t *EntityType) LoadJSON(b []byte, c *Context) (*Entity, error) {
	raw, err := DecodeJSON(b)
	if err != nil {
		return nil, &InvalidError{Code: CodeParseError, Cause: err}
	}
	if c != nil && c.strict {
		dups, err := duplicateKeys(b)
		if err != nil {
			return nil, &InvalidError{Code: CodeParseError, Cause: err}
		}
		if len(dups) > 0 {
			c.logger.Debug("duplicate keys", slog.Int("count", len(dups)))
			return nil, reportDuplicates(c, dups)
		}
	}
	return t.Load(raw, c)
}

func (p *EntityProperty) LoadValue(raw any, c *Context) (any, error) {
	t := p.typ
	if inst, ok := raw.(*Entity); ok {
		if t.kindKey == "" {
			if inst.typ == t {
				return inst, nil
			}
		} else if inst.typ.Extends(t) && inst.typ.kind != nil {
			return inst, nil
		}
	}
	keys, get, ok := mapping(raw)
	if !ok {
		return nil, Invalidf(CodeInvalidType, "%s expects an object, got %T", t.name, raw)
	}
	target := t
	if t.kindKey != "" {
		wire := t.byKey[t.kindKey].spec().WireName()
		kv := normalizeKind(get(wire))
		sub := t.ns.types[kv]
		if kv == nil || sub == nil || !sub.Extends(t) {
			return nil, &InvalidError{Code: CodeDiscriminatorUnknown, Hint: fmt.Sprintf("%s %v", t.name, kv)}
		}
		target = sub
	}
	inst := &Entity{typ: target, prop: p, data: map[string]any{}}
	fields := make(map[string]*field, len(target.fields))
	for _, f := range target.fields {
		if p.isVisible(f.key, c, inst) {
			fields[f.spec().WireName()] = f
		}
	}

	m, err := openMarker(c, raw, true)
	if err != nil {
		return nil, err
	}
	for _, name := range keys {
		f, ok := fields[name]
		if !ok {
			if m.ctx.strict {
				if m.fail(name, Null, Invalidf(CodeUnknownKey, "%s", name)) {
					return nil, m.close(errStop)
				}
			}
			continue
		}
		if f.key == target.kindKey {
			continue
		}
		val := get(name)
		v, err := Load(f.prop, val, m.ctx)
		if err != nil {
			if m.fail(name, val, err) {
				return nil, m.close(errStop)
			}
			continue
		}
		if v == nil {
			v = Null
		}
		inst.data[f.key] = v
	}
	if err := m.close(nil); err != nil {
		return nil, err
	}
	return inst, nil
}

func (p *EntityProperty) DumpValue(v any, c *Context) (any, error) {
	inst, ok := v.(*Entity)
	if !ok || inst == nil || !inst.typ.Extends(p.typ) {
		return nil, Invalidf(CodeInvalidType, "%s expects an entity of its type, got %T", p.typ.name, v)
	}
	m, err := openMarker(c, inst, true)
	if err != nil {
		return nil, err
	}
	out := newDumpMap(inst.typ.hasOrdered, len(inst.data))
	for _, f := range inst.typ.fields {
		if !p.isVisible(f.key, m.ctx, inst) {
			continue
		}
		val, err := inst.Get(f.key)
		if err != nil {
			return nil, m.close(err)
		}
		if val == nil {
			continue
		}
		name := f.spec().WireName()
		switch {
		case IsNull(val):
			out.set(name, nil)
		case f.key == inst.typ.kindKey:
			out.set(name, val)
		default:
			d, err := Dump(f.prop, val, m.ctx)
			if err != nil {
				if m.fail(f.key, val, err) {
					return nil, m.close(errStop)
				}
				continue
			}
			out.set(name, d)
		}
	}
	if err := m.close(nil); err != nil {
		return nil, err
	}
	return out.value(), nil
}

// dumpMap collects dumped members into an *Object for types with ordered
// fields and into a map otherwise.
type dumpMap struct {
	obj *Object
	m   map[string]any
}

func newDumpMap(ordered bool, n int) dumpMap {
	if ordered {
		return dumpMap{obj: NewObject()}
	}
	return dumpMap{m: make(map[string]any, n)}
}

func (d dumpMap) set(k string, v any) {
	if d.obj != nil {
		d.obj.Set(k, v)
		return
	}
	d.m[k] = v
}

func (d dumpMap) value() any {
	if d.obj != nil {
		return d.obj
	}
	return d.m
}

func validateEntity(node *Entity, c *Context) error {
	m, err := openMarker(c, node, true)
	if err != nil {
		return err
	}
	for _, f := range node.typ.fields {
		if f.key == node.typ.kindKey {
			continue
		}
		val, err := node.Get(f.key)
		if err != nil {
			return m.close(err)
		}
		var ferr error
		issueValue := val
		if isEmpty(val) {
			if f.spec().required {
				ferr = Invalid(CodeRequired, "")
				issueValue = Null
			}
		} else {
			ferr = validateValue(val, m)
		}
		if ferr != nil && m.fail(f.key, issueValue, ferr) {
			return m.close(errStop)
		}
	}
	if m.pending == nil {
		for _, hook := range node.typ.hooks {
			if err := hook(node, m.ctx); err != nil {
				if !errors.Is(err, ErrInvalid) && !isFatal(err) {
					err = &InvalidError{Code: CodeRelation, Cause: err}
				}
				return m.close(err)
			}
		}
	}
	return m.close(nil)
}

// validateValue descends into composite values that are not already being
// validated by an enclosing scope.
func validateValue(v any, m *marker) error {
	switch x := v.(type) {
	case *Entity:
		if !m.visited(x) {
			return validateEntity(x, m.ctx)
		}
	case *Union:
		if !m.visited(x) {
			return validateUnion(x, m.ctx)
		}
	case []any:
		if !m.visited(x) {
			return validateItems(x, m.ctx)
		}
	}
	return nil
}

func validateItems(items []any, c *Context) error {
	m, err := openMarker(c, items, true)
	if err != nil {
		return err
	}
	for i, v := range items {
		if err := validateValue(v, m); err != nil && m.fail(i, v, err) {
			return m.close(errStop)
		}
	}
	return m.close(nil)
}
