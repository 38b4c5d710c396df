package meta

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Type is a named composite type that a Registry can hold.
type Type interface {
	Name() string
	newProperty(opts []Option) Property
}

func (t *EntityType) newProperty(opts []Option) Property { return t.Property(opts...) }

func (t *UnionType) newProperty(opts []Option) Property { return t.Property(opts...) }

// Registry is a scope of named types. Forward references made with Ref are
// resolved against it the first time they are used.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]Type
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for resolution records.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types:  map[string]Type{},
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultRegistry backs the package-level Register and Ref.
var DefaultRegistry = NewRegistry()

// Register adds t under its name.
func (r *Registry) Register(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name()]; ok {
		return fmt.Errorf("%w: type %s registered twice", ErrSchema, t.Name())
	}
	r.types[t.Name()] = t
	return nil
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for n := range r.types {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Ref returns a placeholder for the type name, which may be registered
// later. opts configure the property built on resolution.
func (r *Registry) Ref(name string, opts ...Option) *Proxy {
	px := &Proxy{reg: r, target: name, opts: opts}
	px.spec = Spec{entity: true}
	px.spec.Apply(opts...)
	return px
}

// Register adds t to DefaultRegistry.
func Register(t Type) error { return DefaultRegistry.Register(t) }

// Ref makes a forward reference into DefaultRegistry.
func Ref(name string, opts ...Option) *Proxy { return DefaultRegistry.Ref(name, opts...) }

// Proxy stands in for a type that is not declared yet. On first use it
// looks the type up, replaces itself in its owner's field table and binds
// the real property to its key.
type Proxy struct {
	base
	reg    *Registry
	target string
	opts   []Option

	mu       sync.Mutex
	resolved Property
}

// Target returns the referenced type name.
func (px *Proxy) Target() string { return px.target }

// Resolve returns the property the reference stands for, resolving it if
// needed.
func (px *Proxy) Resolve() (Property, error) { return px.resolve() }

func (px *Proxy) resolve() (Property, error) {
	px.mu.Lock()
	defer px.mu.Unlock()
	if px.resolved != nil {
		return px.resolved, nil
	}
	t, ok := px.reg.Lookup(px.target)
	if !ok || px.spec.owner == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, px.target)
	}
	p := t.newProperty(px.opts)
	p.Spec().order = px.spec.order
	if err := p.Spec().Err(); err != nil {
		return nil, err
	}
	if err := px.spec.owner.replace(px.spec.key, px, p); err != nil {
		return nil, err
	}
	if err := p.Spec().bind(px.spec.key, px.spec.owner); err != nil {
		return nil, err
	}
	px.resolved = p
	px.reg.logger.Debug("reference resolved", slog.String("type", px.target), slog.Any("key", px.spec.key))
	return p, nil
}

func (px *Proxy) LoadValue(raw any, c *Context) (any, error) {
	p, err := px.resolve()
	if err != nil {
		return nil, err
	}
	return p.LoadValue(raw, c)
}

func (px *Proxy) DumpValue(v any, c *Context) (any, error) {
	p, err := px.resolve()
	if err != nil {
		return nil, err
	}
	return p.DumpValue(v, c)
}
