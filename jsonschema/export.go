// Package jsonschema exports meta types as JSON Schema documents.
//
// Entity types become object definitions under $defs, referenced by name.
// Polymorphic types become a oneOf over their concrete subtypes, each
// pinning its discriminator with const. Unions become anyOf in trial order
// and tuples become arrays with prefixItems or items and count bounds.
package jsonschema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/reoring/meta"
)

// ErrNameClash reports two distinct types exported under the same name.
var ErrNameClash = errors.New("jsonschema: two types share a name")

// For exports t and every type reachable from it.
func For(t meta.Type) (*Schema, error) {
	ex := &exporter{defs: map[string]*Schema{}, owners: map[string]meta.Type{}}
	var (
		root *Schema
		err  error
	)
	switch x := t.(type) {
	case *meta.EntityType:
		root, err = ex.entity(x, nil)
	case *meta.UnionType:
		root, err = ex.union(x)
	default:
		return nil, fmt.Errorf("jsonschema: unsupported type %T", t)
	}
	if err != nil {
		return nil, err
	}
	root.Dialect = Draft
	root.Defs = ex.defs
	return root, nil
}

// ForRegistry exports every type of reg as a definition. The document has
// no root schema of its own.
func ForRegistry(reg *meta.Registry) (*Schema, error) {
	ex := &exporter{defs: map[string]*Schema{}, owners: map[string]meta.Type{}}
	for _, name := range reg.Names() {
		t, _ := reg.Lookup(name)
		var err error
		switch x := t.(type) {
		case *meta.EntityType:
			err = ex.define(x)
		case *meta.UnionType:
			_, err = ex.union(x)
		}
		if err != nil {
			return nil, err
		}
	}
	return &Schema{Dialect: Draft, Defs: ex.defs}, nil
}

type exporter struct {
	defs   map[string]*Schema
	owners map[string]meta.Type
}

func ref(name string) *Schema { return &Schema{Ref: "#/$defs/" + name} }

// claim reserves name for t. It reports false when t is already defined.
func (ex *exporter) claim(name string, t meta.Type) (bool, error) {
	if prev, ok := ex.owners[name]; ok {
		if prev != t {
			return false, fmt.Errorf("%w: %s", ErrNameClash, name)
		}
		return false, nil
	}
	ex.owners[name] = t
	return true, nil
}

// entity returns the schema of a property of type t restricted to only.
func (ex *exporter) entity(t *meta.EntityType, only []string) (*Schema, error) {
	if t.KindKey() == "" {
		if only != nil {
			return ex.record(t, only)
		}
		if err := ex.define(t); err != nil {
			return nil, err
		}
		return ref(t.Name()), nil
	}
	s := &Schema{}
	for _, st := range t.Subtypes() {
		var sub *Schema
		var err error
		if only != nil {
			sub, err = ex.record(st, only)
		} else if err = ex.define(st); err == nil {
			sub = ref(st.Name())
		}
		if err != nil {
			return nil, err
		}
		s.OneOf = append(s.OneOf, sub)
	}
	return s, nil
}

func (ex *exporter) define(t *meta.EntityType) error {
	fresh, err := ex.claim(t.Name(), t)
	if err != nil || !fresh {
		return err
	}
	ex.defs[t.Name()] = &Schema{}
	s, err := ex.record(t, nil)
	if err != nil {
		return err
	}
	*ex.defs[t.Name()] = *s
	return nil
}

func (ex *exporter) record(t *meta.EntityType, only []string) (*Schema, error) {
	s := &Schema{Type: "object", Title: t.Name(), Properties: map[string]*Schema{}}
	for _, key := range t.Keys() {
		p, _ := t.Field(key)
		spec := p.Spec()
		if only != nil && !spec.Required() && !slices.Contains(only, key) {
			continue
		}
		ps, err := ex.property(p)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), key, err)
		}
		name := spec.WireName()
		s.Properties[name] = ps
		if spec.Required() {
			s.Required = append(s.Required, name)
		}
	}
	return s, nil
}

func (ex *exporter) union(t *meta.UnionType) (*Schema, error) {
	fresh, err := ex.claim(t.Name(), t)
	if err != nil {
		return nil, err
	}
	if fresh {
		ex.defs[t.Name()] = &Schema{}
		s := &Schema{Title: t.Name()}
		for _, key := range t.Keys() {
			p, _ := t.Member(key)
			ms, err := ex.property(p)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name(), key, err)
			}
			s.AnyOf = append(s.AnyOf, ms)
		}
		*ex.defs[t.Name()] = *s
	}
	return ref(t.Name()), nil
}

func (ex *exporter) property(p meta.Property) (*Schema, error) {
	var (
		s   *Schema
		err error
	)
	switch x := p.(type) {
	case *meta.Proxy:
		r, err := x.Resolve()
		if err != nil {
			return nil, err
		}
		return ex.property(r)
	case *meta.EntityProperty:
		s, err = ex.entity(x.Type(), x.Fields())
	case *meta.UnionProperty:
		s, err = ex.union(x.Type())
	case *meta.TupleProperty:
		s, err = ex.tuple(x)
	case *meta.KindProperty:
		s = &Schema{Const: x.Value()}
	case *meta.StringProperty:
		s = &Schema{Type: "string"}
		if x.IsNonEmpty() {
			s.MinLength = intPtr(1)
		}
	case *meta.BooleanProperty:
		s = &Schema{Type: "boolean"}
	case *meta.IntegerProperty:
		s = &Schema{Type: "integer"}
	case *meta.NumberProperty, *meta.FloatProperty:
		s = &Schema{Type: "number"}
	case *meta.DateTimeProperty:
		switch layout, unix := x.WireForm(); {
		case unix:
			s = &Schema{Type: "number"}
		case layout == "":
			s = &Schema{Type: "string", Format: "date-time"}
		default:
			s = &Schema{Type: "string"}
		}
	case *meta.JSONObjectProperty:
		s = &Schema{Type: "object"}
	case *meta.JSONArrayProperty:
		s = &Schema{Type: "array"}
	default:
		s = &Schema{}
	}
	if err != nil {
		return nil, err
	}
	if spec := p.Spec(); spec.HasDefault() && s.Ref == "" {
		if d, err := meta.Dump(p, spec.DefaultValue(), nil); err == nil {
			s.Default = d
		}
	}
	return s, nil
}

func (ex *exporter) tuple(t *meta.TupleProperty) (*Schema, error) {
	units := t.Units()
	schemas := make([]*Schema, len(units))
	for i, u := range units {
		us, err := ex.property(u)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		schemas[i] = us
	}
	s := &Schema{Type: "array"}
	r := t.Cardinality()
	if r == nil {
		s.PrefixItems = schemas
		s.MinItems, s.MaxItems = intPtr(len(units)), intPtr(len(units))
		return s, nil
	}
	switch len(schemas) {
	case 0:
		s.MaxItems = intPtr(0)
		return s, nil
	case 1:
		s.Items = schemas[0]
	default:
		s.Items = &Schema{AnyOf: schemas}
	}
	if lo := r.Min(); lo < 0 {
		s.MaxItems = intPtr(0)
		s.MinItems = intPtr(1)
	} else if lo > 0 {
		s.MinItems = intPtr(lo * len(units))
	}
	if hi, ok := r.Max(); ok && hi >= 0 {
		s.MaxItems = intPtr(hi * len(units))
	}
	return s, nil
}
