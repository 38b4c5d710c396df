package meta

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
)

// Property is a field type: it converts between wire values and in-memory
// values.
//
// LoadValue receives a raw value that is neither nil nor Null, after the
// codec chain ran, and a non-nil Context. DumpValue receives a value that is
// neither nil nor Null, and a non-nil Context. Implementations must not
// return a mutable input container unchanged.
//
// Callers go through Load and Dump, which enforce the shared contract.
type Property interface {
	Spec() *Spec
	LoadValue(raw any, c *Context) (any, error)
	DumpValue(v any, c *Context) (any, error)
}

// owner is a field table that a property can be bound into.
type owner interface {
	replace(key any, old, p Property) error
}

var orderSeq atomic.Int64

// Spec is the configuration shared by every property type. It is set at
// declaration time and bound to a single key within a single owner.
type Spec struct {
	key   any
	owner owner
	bound bool

	required bool
	def      *defaultValue
	view     map[string]struct{}
	name     string
	codecs   []codecRef
	validate func(any) bool
	check    func(any) error
	order    int64

	only, exclude []string
	entity        bool // only/exclude are accepted
	kind          bool // only name and ordered are accepted

	err error
}

// defaultValue is either a constant or a factory evaluated once per
// materialization.
type defaultValue struct {
	constant any
	factory  func() any
}

func (d *defaultValue) value() any {
	if d.factory != nil {
		return d.factory()
	}
	return d.constant
}

// Option configures a Spec.
type Option func(*Spec)

// Required forbids absent and Null values.
func Required() Option { return func(s *Spec) { s.required = true } }

// Default supplies a constant for an unset field. Use DefaultFunc for
// mutable values.
func Default(v any) Option {
	return func(s *Spec) { s.def = &defaultValue{constant: v} }
}

// DefaultFunc supplies a factory for an unset field.
func DefaultFunc(fn func() any) Option {
	return func(s *Spec) {
		if fn != nil {
			s.def = &defaultValue{factory: fn}
		}
	}
}

// View restricts the property to contexts whose requested views are all in
// names. Required properties cannot carry a view.
func View(names ...string) Option {
	return func(s *Spec) {
		s.view = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.view[n] = struct{}{}
		}
	}
}

// Name sets the wire name used in loaded and dumped mappings.
func Name(wire string) Option { return func(s *Spec) { s.name = wire } }

// Codecs appends named codecs to the chain.
func Codecs(names ...string) Option {
	return func(s *Spec) {
		for _, n := range names {
			s.codecs = append(s.codecs, codecRef{name: n})
		}
	}
}

// CodecWith appends configured codecs to the chain.
func CodecWith(cds ...Codec) Option {
	return func(s *Spec) {
		for _, cd := range cds {
			s.codecs = append(s.codecs, codecRef{codec: cd})
		}
	}
}

// Validate rejects loaded values for which fn returns false.
func Validate(fn func(any) bool) Option { return func(s *Spec) { s.validate = fn } }

// Check rejects loaded values for which fn returns an error.
func Check(fn func(any) error) Option { return func(s *Spec) { s.check = fn } }

// Ordered pins the property's position: ordered fields dump first, in the
// order their Ordered options were applied, and ordered union members are
// tried first.
func Ordered() Option { return func(s *Spec) { s.order = orderSeq.Add(1) } }

// Only limits an entity property to the given fields. Required fields stay
// visible.
func Only(keys ...string) Option {
	return func(s *Spec) { s.only = append(s.only, keys...) }
}

// Exclude hides the given fields of an entity property. Required fields stay
// visible.
func Exclude(keys ...string) Option {
	return func(s *Spec) { s.exclude = append(s.exclude, keys...) }
}

func newSpec(opts []Option) Spec {
	s := Spec{}
	s.Apply(opts...)
	return s
}

// Apply applies additional options and reports a declaration error, if any.
// The error is kept and returned again by Load.
func (s *Spec) Apply(opts ...Option) error {
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	switch {
	case s.required && s.view != nil:
		s.err = fmt.Errorf("%w: view option cannot be used with a required property", ErrSchema)
	case !s.entity && (s.only != nil || s.exclude != nil):
		s.err = fmt.Errorf("%w: only and exclude apply to entity properties", ErrSchema)
	case s.kind && (s.def != nil || s.view != nil || s.codecs != nil || s.validate != nil || s.check != nil):
		s.err = fmt.Errorf("%w: kind fields accept only name and ordered", ErrSchema)
	}
	return s.err
}

// Err returns the declaration error recorded by Apply.
func (s *Spec) Err() error { return s.err }

// Key returns the bound key: a field name, or an index within a tuple.
func (s *Spec) Key() any { return s.key }

// WireName returns the name used on the wire.
func (s *Spec) WireName() string {
	if s.name != "" {
		return s.name
	}
	if k, ok := s.key.(string); ok {
		return k
	}
	return ""
}

func (s *Spec) Required() bool { return s.required }

func (s *Spec) HasDefault() bool { return s.def != nil }

// DefaultValue evaluates the default; nil when none is configured.
func (s *Spec) DefaultValue() any {
	if s.def == nil {
		return nil
	}
	return s.def.value()
}

// Views returns the view restriction in sorted order, or nil.
func (s *Spec) Views() []string {
	if s.view == nil {
		return nil
	}
	out := make([]string, 0, len(s.view))
	for v := range s.view {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Codecs returns the codec chain, by name.
func (s *Spec) Codecs() []string {
	out := make([]string, len(s.codecs))
	for i, r := range s.codecs {
		out[i] = r.String()
	}
	return out
}

func (s *Spec) IsOrdered() bool { return s.order != 0 }

// Order returns the declaration-order index of an ordered property, 0 when
// unordered.
func (s *Spec) Order() int64 { return s.order }

func (s *Spec) bind(key any, o owner) error {
	if s.bound && s.key != key {
		return fmt.Errorf("%w: bound to %v, then %v", ErrBinding, s.key, key)
	}
	s.key, s.owner, s.bound = key, o, true
	return nil
}

// base carries the Spec of a property implementation.
type base struct{ spec Spec }

func (b *base) Spec() *Spec { return &b.spec }

// Load converts a raw wire value with p. A nil Context opens an implicit one,
// which skips codecs.
//
// When the call fails, the returned error is the last fault met; an explicit
// Context keeps every recorded issue for Errors.
func Load(p Property, raw any, c *Context) (any, error) {
	p, err := resolve(p)
	if err != nil {
		return nil, err
	}
	m, err := openMarker(c, raw, false)
	if err != nil {
		return nil, err
	}
	v, err := load(p, raw, m.ctx)
	if err = m.close(err); err != nil {
		return nil, err
	}
	return v, nil
}

func load(p Property, raw any, c *Context) (any, error) {
	s := p.Spec()
	if s.err != nil {
		return nil, s.err
	}
	if isEmpty(raw) {
		if s.required {
			return nil, Invalid(CodeRequired, "")
		}
		return nil, nil
	}
	var err error
	if c.explicit && len(s.codecs) > 0 {
		if raw, err = decodeChain(p, raw, c); err != nil {
			return nil, err
		}
	}
	v, err := p.LoadValue(raw, c)
	if err != nil {
		return nil, err
	}
	if s.validate != nil && !s.validate(v) {
		return nil, Invalid(CodeRejected, "")
	}
	if s.check != nil {
		if err := s.check(v); err != nil {
			if !errors.Is(err, ErrInvalid) {
				err = &InvalidError{Code: CodeRejected, Cause: err}
			}
			return nil, err
		}
	}
	return v, nil
}

// Dump converts an in-memory value with p. Absent values dump as nil and
// Null as a wire null. Codecs run only when c is an explicit Context. Faults
// are recorded in c the same way Load records them.
func Dump(p Property, v any, c *Context) (any, error) {
	if isEmpty(v) {
		return nil, nil
	}
	p, err := resolve(p)
	if err != nil {
		return nil, err
	}
	m, err := openMarker(c, v, false)
	if err != nil {
		return nil, err
	}
	out, err := dump(p, v, m.ctx)
	if err = m.close(err); err != nil {
		return nil, err
	}
	return out, nil
}

func dump(p Property, v any, c *Context) (any, error) {
	s := p.Spec()
	if s.err != nil {
		return nil, s.err
	}
	out, err := p.DumpValue(v, c)
	if err != nil {
		return nil, err
	}
	if c.explicit && len(s.codecs) > 0 {
		return encodeChain(p, out, c)
	}
	return out, nil
}

// Visible reports whether p takes part in a call made with c: a property
// with a view restriction is hidden unless it covers every view c requests.
func Visible(p Property, c *Context) bool {
	s := p.Spec()
	if c == nil || s.view == nil || c.view == nil {
		return true
	}
	for v := range c.view {
		if _, ok := s.view[v]; !ok {
			return false
		}
	}
	return true
}

func resolve(p Property) (Property, error) {
	if px, ok := p.(*Proxy); ok {
		return px.resolve()
	}
	return p, nil
}
