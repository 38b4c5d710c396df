package meta

import (
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Context carries the configuration of one load, dump or validate call and
// the state that call accumulates: the cycle guard, the error tree and the
// error count.
//
// A Context is not safe for concurrent use. Call Reset before reusing it
// after a failed call.
type Context struct {
	view      map[string]struct{}
	strict    bool
	maxErrors int
	logger    *slog.Logger
	codecs    map[string]Codec

	// explicit is false for the ad-hoc context opened when a caller passes nil;
	// codecs only run on explicit contexts.
	explicit bool

	guard   map[any]struct{}
	errtree errTree
	errcnt  int
	errors  Issues
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithView restricts visibility to properties whose view set covers every
// given view name.
func WithView(views ...string) ContextOption {
	return func(c *Context) {
		if len(views) == 0 {
			c.view = nil
			return
		}
		c.view = make(map[string]struct{}, len(views))
		for _, v := range views {
			c.view[v] = struct{}{}
		}
	}
}

// WithStrict makes unknown keys in loaded mappings an error.
func WithStrict(strict bool) ContextOption { return func(c *Context) { c.strict = strict } }

// WithMaxErrors bounds the number of issues collected before a call stops.
// Values below 1 are treated as 1.
func WithMaxErrors(n int) ContextOption {
	return func(c *Context) {
		if n < 1 {
			n = 1
		}
		c.maxErrors = n
	}
}

// WithLogger sets the logger used for debug records.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCodec installs a per-call codec that shadows the process-wide one.
func WithCodec(name string, cd Codec) ContextOption {
	return func(c *Context) { c.SetCodec(name, cd) }
}

var discardLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// NewContext returns an explicit Context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		maxErrors: 1,
		logger:    discardLogger,
		explicit:  true,
		guard:     map[any]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func implicitContext() *Context {
	c := NewContext()
	c.explicit = false
	return c
}

// View returns the requested views in sorted order, or nil when unfiltered.
func (c *Context) View() []string {
	if c.view == nil {
		return nil
	}
	out := make([]string, 0, len(c.view))
	for v := range c.view {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func (c *Context) Strict() bool { return c.strict }

func (c *Context) MaxErrors() int { return c.maxErrors }

func (c *Context) Logger() *slog.Logger { return c.logger }

// Explicit reports whether the context was supplied by a caller.
func (c *Context) Explicit() bool { return c.explicit }

// SetCodec installs a codec for this context only.
func (c *Context) SetCodec(name string, cd Codec) {
	if c.codecs == nil {
		c.codecs = map[string]Codec{}
	}
	c.codecs[name] = cd
}

// Codec looks a codec up in this context first, then in the process-wide
// registry.
func (c *Context) Codec(name string) (Codec, error) {
	if cd, ok := c.codecs[name]; ok {
		return cd, nil
	}
	return LookupCodec(name)
}

// Reset clears call state. Configuration is kept.
func (c *Context) Reset() {
	c.guard = map[any]struct{}{}
	c.errtree = nil
	c.errcnt = 0
	c.errors = nil
}

// Copy returns a context with the same configuration and a snapshot of the
// cycle guard. The copy starts with no errors.
func (c *Context) Copy() *Context {
	cp := *c
	cp.Reset()
	for k := range c.guard {
		cp.guard[k] = struct{}{}
	}
	if c.codecs != nil {
		cp.codecs = make(map[string]Codec, len(c.codecs))
		for k, v := range c.codecs {
			cp.codecs[k] = v
		}
	}
	return &cp
}

// Errors returns the issues recorded by the last call, in traversal order,
// or nil when there were none. The cycle guard is left untouched.
func (c *Context) Errors() Issues {
	if c.errors == nil && c.errtree != nil {
		c.errtree.walk(pointer{}, func(at pointer, leaf *errLeaf) {
			c.errors = append(c.errors, Issue{
				Path:    at.String(),
				Code:    codeOf(leaf.err),
				Message: leaf.err.Error(),
				Value:   leaf.value,
				Cause:   leaf.err,
			})
		})
		c.errtree = nil
	}
	return c.errors
}

// ContextConfig is the serializable form of the Context options.
type ContextConfig struct {
	View      []string `yaml:"view,omitempty" json:"view,omitempty" mapstructure:"view"`
	Strict    bool     `yaml:"strict,omitempty" json:"strict,omitempty" mapstructure:"strict"`
	MaxErrors int      `yaml:"maxErrors,omitempty" json:"maxErrors,omitempty" mapstructure:"maxErrors"`
}

// DecodeContextConfig reads a ContextConfig from a generic map, such as one
// produced by a YAML or JSON decoder.
func DecodeContextConfig(m map[string]any) (ContextConfig, error) {
	var cfg ContextConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(m); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewContext builds an explicit Context from the configuration.
func (cfg ContextConfig) NewContext(opts ...ContextOption) *Context {
	base := []ContextOption{WithView(cfg.View...), WithStrict(cfg.Strict)}
	if cfg.MaxErrors > 0 {
		base = append(base, WithMaxErrors(cfg.MaxErrors))
	}
	return NewContext(append(base, opts...)...)
}

func (c *Context) String() string {
	return "Context(view=" + strconv.Quote(strings.Join(c.View(), ",")) +
		", strict=" + strconv.FormatBool(c.strict) +
		", maxErrors=" + strconv.Itoa(c.maxErrors) + ")"
}
