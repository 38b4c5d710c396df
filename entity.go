package meta

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// FieldAccess is the get/set/delete protocol shared by entities and unions.
type FieldAccess interface {
	Get(key string) (any, error)
	Set(key string, v any) error
	Delete(key string) error
}

var (
	_ FieldAccess = (*Entity)(nil)
	_ FieldAccess = (*Union)(nil)
)

// Entity is an instance of an EntityType. Unset fields are absent from its
// storage; Null marks a field that is present but null.
type Entity struct {
	typ   *EntityType
	prop  *EntityProperty
	data  map[string]any
	attrs map[string]any
}

// Item is one key/value pair of an Entity.
type Item struct {
	Key   string
	Value any
}

// New returns an empty instance of t.
func (t *EntityType) New() *Entity {
	return &Entity{typ: t, prop: t.Property(), data: map[string]any{}}
}

// Make returns an instance of t holding items, each assigned with Set.
func (t *EntityType) Make(items map[string]any) (*Entity, error) {
	e := t.New()
	if err := e.Update(items); err != nil {
		return nil, err
	}
	return e, nil
}

// Type returns the concrete type of e.
func (e *Entity) Type() *EntityType { return e.typ }

func (e *Entity) field(key string) (*field, error) {
	f, ok := e.typ.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownKey, e.typ.name, key)
	}
	return f, nil
}

// Get returns the value of key. Reading an unset field with a default
// stores the default first, so Has can be false before Get and true after.
// The discriminator reads as the type's kind value.
func (e *Entity) Get(key string) (any, error) {
	f, err := e.field(key)
	if err != nil {
		return nil, err
	}
	if v, ok := e.data[key]; ok {
		return v, nil
	}
	if key == e.typ.kindKey {
		return e.typ.kind, nil
	}
	if d := f.spec().def; d != nil {
		if err := e.Set(key, d.value()); err != nil {
			return nil, err
		}
	}
	return e.data[key], nil
}

// MustGet is Get that panics on an unknown key.
func (e *Entity) MustGet(key string) any {
	v, err := e.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

// GetOr returns the stored value of key, or def when unset. Defaults are
// not materialized.
func (e *Entity) GetOr(key string, def any) any {
	if v, ok := e.data[key]; ok {
		return v
	}
	return def
}

// Set assigns v to key through the field's property. nil deletes the
// field; Null stores present-but-null unless the field is required.
func (e *Entity) Set(key string, v any) error {
	f, err := e.field(key)
	if err != nil {
		return err
	}
	if key == e.typ.kindKey {
		return fmt.Errorf("%w: %s.%s", ErrReadOnly, e.typ.name, key)
	}
	if IsNull(v) {
		if f.spec().required {
			return Invalidf(CodeRequired, "%s.%s cannot be null", e.typ.name, key)
		}
		e.data[key] = Null
		return nil
	}
	if v != nil {
		if v, err = Load(f.prop, v, nil); err != nil {
			return err
		}
	}
	if v == nil {
		delete(e.data, key)
		return nil
	}
	e.data[key] = v
	return nil
}

// Delete unsets key.
func (e *Entity) Delete(key string) error {
	if _, err := e.field(key); err != nil {
		return err
	}
	delete(e.data, key)
	return nil
}

// Has reports whether key is stored. Defaults do not count until read.
func (e *Entity) Has(key string) bool {
	_, ok := e.data[key]
	return ok
}

// Keys returns the stored keys in field table order.
func (e *Entity) Keys() []string {
	out := make([]string, 0, len(e.data))
	for _, f := range e.typ.fields {
		if _, ok := e.data[f.key]; ok {
			out = append(out, f.key)
		}
	}
	return out
}

// Items returns the stored pairs in field table order.
func (e *Entity) Items() []Item {
	out := make([]Item, 0, len(e.data))
	for _, k := range e.Keys() {
		out = append(out, Item{Key: k, Value: e.data[k]})
	}
	return out
}

func (e *Entity) Len() int { return len(e.data) }

// Clear unsets every field.
func (e *Entity) Clear() { clear(e.data) }

// Pop unsets key and returns its stored value.
func (e *Entity) Pop(key string) (any, bool) {
	v, ok := e.data[key]
	delete(e.data, key)
	return v, ok
}

// SetDefault assigns v to an unset key and returns the stored value.
func (e *Entity) SetDefault(key string, v any) (any, error) {
	if _, err := e.field(key); err != nil {
		return nil, err
	}
	if v != nil && !e.Has(key) {
		if err := e.Set(key, v); err != nil {
			return nil, err
		}
	}
	return e.data[key], nil
}

// Update assigns every pair of src, which may be a map, an *Object or an
// *Entity.
func (e *Entity) Update(src any) error {
	if src == nil {
		return nil
	}
	if other, ok := src.(*Entity); ok {
		for _, it := range other.Items() {
			if err := e.Set(it.Key, it.Value); err != nil {
				return err
			}
		}
		return nil
	}
	keys, get, ok := mapping(src)
	if !ok {
		return Invalidf(CodeInvalidType, "cannot update from %T", src)
	}
	for _, k := range keys {
		if err := e.Set(k, get(k)); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a shallow copy carrying the same options.
func (e *Entity) Copy() *Entity {
	cp := &Entity{typ: e.typ, prop: e.prop, data: make(map[string]any, len(e.data))}
	for k, v := range e.data {
		cp.data[k] = v
	}
	return cp
}

// Equal compares stored values with another Entity or a map.
func (e *Entity) Equal(other any) bool {
	switch o := other.(type) {
	case *Entity:
		if o == nil {
			return false
		}
		return deepEqual(e.data, o.data)
	case map[string]any:
		return deepEqual(e.data, o)
	}
	return false
}

// String renders the dumped entity as compact JSON.
func (e *Entity) String() string {
	v, err := e.Dump(nil)
	if err != nil {
		return fmt.Sprintf("%s(<%v>)", e.typ.name, err)
	}
	b, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		return fmt.Sprintf("%s(<%v>)", e.typ.name, err)
	}
	return string(b)
}

// SetAttr stores a non-field attribute; field names go through Set. Frozen
// types reject unknown names.
func (e *Entity) SetAttr(name string, v any) error {
	if _, ok := e.typ.byKey[name]; ok {
		return e.Set(name, v)
	}
	if e.typ.freeze {
		return fmt.Errorf("%w: %s has no field %q", ErrFrozen, e.typ.name, name)
	}
	if e.attrs == nil {
		e.attrs = map[string]any{}
	}
	e.attrs[name] = v
	return nil
}

// Attr returns a non-field attribute set with SetAttr.
func (e *Entity) Attr(name string) (any, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// IsVisible reports whether key takes part in calls made with c.
func (e *Entity) IsVisible(key string, c *Context) bool {
	return e.prop.isVisible(key, c, e)
}

// GetIfVisible returns the value of key when it is visible under c and not
// Null, else nil.
func (e *Entity) GetIfVisible(key string, c *Context) (any, error) {
	if !e.IsVisible(key, c) {
		return nil, nil
	}
	v, err := e.Get(key)
	if err != nil || IsNull(v) {
		return nil, err
	}
	return v, nil
}

// Dump converts e to wire values.
func (e *Entity) Dump(c *Context) (any, error) { return Dump(e.prop, e, c) }

// Validate checks required fields and relational hooks, recursing into
// nested entities, unions and tuples.
func (e *Entity) Validate(c *Context) error { return validateEntity(e, c) }
