package meta

import (
	"fmt"

	json "github.com/goccy/go-json"

	jsonpatch "github.com/evanphx/json-patch"
)

type patchConfig struct {
	keepNulls bool
	inPlace   bool
}

// PatchOption configures Patch.
type PatchOption func(*patchConfig)

// KeepNulls makes nil and Null values in a delta store Null instead of
// deleting the field.
func KeepNulls() PatchOption { return func(pc *patchConfig) { pc.keepNulls = true } }

// InPlace makes Patch modify the receiver instead of a copy.
func InPlace() PatchOption { return func(pc *patchConfig) { pc.inPlace = true } }

// Patch applies delta, a map, an *Object or an *Entity, and returns the
// result. nil and Null values delete their field, required or not; other
// values are assigned with Set.
func (e *Entity) Patch(delta any, opts ...PatchOption) (*Entity, error) {
	pc := patchConfig{}
	for _, opt := range opts {
		opt(&pc)
	}
	target := e
	if !pc.inPlace {
		target = e.Copy()
	}
	var items []Item
	if other, ok := delta.(*Entity); ok {
		items = other.Items()
	} else if delta != nil {
		keys, get, ok := mapping(delta)
		if !ok {
			return nil, Invalidf(CodeInvalidType, "cannot patch from %T", delta)
		}
		for _, k := range keys {
			items = append(items, Item{Key: k, Value: get(k)})
		}
	}
	for _, it := range items {
		var err error
		switch {
		case !isEmpty(it.Value):
			err = target.Set(it.Key, it.Value)
		case pc.keepNulls:
			err = target.Set(it.Key, Null)
		default:
			err = target.Delete(it.Key)
		}
		if err != nil {
			return nil, err
		}
	}
	return target, nil
}

// Diff returns the delta that turns other into e: fields of e that differ
// from other, and Null for fields only other has. Fields equal in both are
// left out. other.Patch(e.Diff(other)) equals e.
func (e *Entity) Diff(other *Entity) (*Entity, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: diff against nil", ErrInvalid)
	}
	out := e.Copy()
	for _, it := range other.Items() {
		if v, ok := out.data[it.Key]; ok {
			if deepEqual(v, it.Value) {
				delete(out.data, it.Key)
			}
			continue
		}
		if _, known := out.typ.byKey[it.Key]; !known {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownKey, out.typ.name, it.Key)
		}
		out.data[it.Key] = Null
	}
	return out, nil
}

// MergePatch applies an RFC 7396 merge patch to the dumped form of e and
// loads the result back with c.
func (e *Entity) MergePatch(doc []byte, c *Context) (*Entity, error) {
	cur, err := e.marshal(c)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(cur, doc)
	if err != nil {
		return nil, &InvalidError{Code: CodeParseError, Cause: err}
	}
	raw, err := DecodeJSON(merged)
	if err != nil {
		return nil, &InvalidError{Code: CodeParseError, Cause: err}
	}
	v, err := Load(e.prop, raw, c)
	if err != nil {
		return nil, err
	}
	return v.(*Entity), nil
}

// CreateMergePatch returns the RFC 7396 merge patch that turns the dumped
// form of from into that of to.
func CreateMergePatch(from, to *Entity, c *Context) ([]byte, error) {
	a, err := from.marshal(c)
	if err != nil {
		return nil, err
	}
	b, err := to.marshal(c)
	if err != nil {
		return nil, err
	}
	return jsonpatch.CreateMergePatch(a, b)
}

func (e *Entity) marshal(c *Context) ([]byte, error) {
	v, err := e.Dump(c)
	if err != nil {
		return nil, err
	}
	return json.MarshalWithOption(v, json.DisableHTMLEscape())
}
