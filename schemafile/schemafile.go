// Package schemafile compiles declarative schema documents into a
// meta.Registry.
//
// A document is YAML or JSON. Types are declared in order under types;
// field and member order is kept:
//
//	types:
//	  Shape:
//	    discriminator: type
//	    fields:
//	      name: {type: string, required: true}
//	  Circle:
//	    extends: Shape
//	    kind: circle
//	    fields:
//	      r: {type: float, check: "value > 0"}
//	  Drawing:
//	    fields:
//	      shapes: {type: list, items: Shape, repeat: "1:"}
//	    invariants:
//	      - "len(shapes) < 100"
//	  Size:
//	    members:
//	      named: string
//	      pixels: integer
//
// A field given as a bare string is a field of that type. Type names other
// than the builtins are references into the registry and may point forward.
package schemafile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/reoring/meta"
)

// ErrDocument reports a malformed schema document.
var ErrDocument = errors.New("schemafile: invalid document")

// Options controls compilation.
type Options struct {
	// Registry receives the compiled types; nil means a new registry.
	Registry *meta.Registry
	// Logger receives declaration records; nil discards them.
	Logger *slog.Logger
}

// LoadFile reads and compiles the document at path.
func LoadFile(path string, opts Options) (*meta.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data, opts)
}

// Load compiles a YAML or JSON document.
func Load(data []byte, opts Options) (*meta.Registry, error) {
	doc, err := meta.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocument, err)
	}
	return Compile(doc, opts)
}

// Compile compiles a decoded document, a map or a *meta.Object.
func Compile(doc any, opts Options) (*meta.Registry, error) {
	reg := opts.Registry
	if reg == nil {
		reg = meta.NewRegistry(meta.WithRegistryLogger(opts.Logger))
	}
	keys, top, ok := entries(doc)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping at the top level", ErrDocument)
	}
	for _, k := range keys {
		if k != "types" && k != "version" {
			return nil, fmt.Errorf("%w: unknown top-level key %q", ErrDocument, k)
		}
	}
	names, types, ok := entries(top["types"])
	if !ok {
		return nil, fmt.Errorf("%w: types must be a mapping", ErrDocument)
	}
	c := &compiler{
		reg:      reg,
		logger:   opts.Logger,
		decls:    map[string]*typeDecl{},
		entities: map[string]*meta.EntityType{},
		building: map[string]bool{},
	}
	for _, name := range names {
		d, err := parseType(types[name])
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		c.decls[name] = d
	}
	for _, name := range names {
		if err := c.build(name); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

type typeDecl struct {
	Extends       string   `mapstructure:"extends"`
	Discriminator string   `mapstructure:"discriminator"`
	Kind          any      `mapstructure:"kind"`
	Freeze        bool     `mapstructure:"freeze"`
	Invariants    []string `mapstructure:"invariants"`
	Description   string   `mapstructure:"description"`

	fields  []string
	members []string
	props   map[string]any
	union   bool
}

type fieldDecl struct {
	Type        string   `mapstructure:"type"`
	Required    bool     `mapstructure:"required"`
	Default     any      `mapstructure:"default"`
	View        []string `mapstructure:"view"`
	Name        string   `mapstructure:"name"`
	Codecs      []string `mapstructure:"codecs"`
	Check       string   `mapstructure:"check"`
	Ordered     bool     `mapstructure:"ordered"`
	Only        []string `mapstructure:"only"`
	Exclude     []string `mapstructure:"exclude"`
	Items       any      `mapstructure:"items"`
	Units       []any    `mapstructure:"units"`
	Repeat      any      `mapstructure:"repeat"`
	NonEmpty    bool     `mapstructure:"nonEmpty"`
	AllowBool   bool     `mapstructure:"allowBool"`
	AllowNaN    bool     `mapstructure:"allowNaN"`
	JSSafe      bool     `mapstructure:"jsSafe"`
	Layout      string   `mapstructure:"layout"`
	Unix        bool     `mapstructure:"unix"`
	Description string   `mapstructure:"description"`
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %v", ErrDocument, err)
	}
	return nil
}

func parseType(raw any) (*typeDecl, error) {
	keys, m, ok := entries(raw)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping", ErrDocument)
	}
	d := &typeDecl{}
	rest := make(map[string]any, len(keys))
	for _, k := range keys {
		switch k {
		case "fields", "members":
			names, props, ok := entries(m[k])
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a mapping", ErrDocument, k)
			}
			if d.props != nil {
				return nil, fmt.Errorf("%w: fields and members are exclusive", ErrDocument)
			}
			d.props = props
			if k == "members" {
				d.members, d.union = names, true
			} else {
				d.fields = names
			}
		default:
			rest[k] = plain(m[k])
		}
	}
	if err := decode(rest, d); err != nil {
		return nil, err
	}
	if d.union && (d.Extends != "" || d.Discriminator != "" || d.Kind != nil || d.Freeze || d.Invariants != nil) {
		return nil, fmt.Errorf("%w: unions take members only", ErrDocument)
	}
	return d, nil
}

type compiler struct {
	reg      *meta.Registry
	logger   *slog.Logger
	decls    map[string]*typeDecl
	entities map[string]*meta.EntityType
	building map[string]bool
}

func (c *compiler) build(name string) error {
	if _, ok := c.reg.Lookup(name); ok && c.entities[name] != nil {
		return nil
	}
	d := c.decls[name]
	if d.union {
		if _, done := c.reg.Lookup(name); done {
			return nil
		}
		return c.buildUnion(name, d)
	}
	if c.building[name] {
		return fmt.Errorf("%w: type %s extends itself", ErrDocument, name)
	}
	c.building[name] = true
	defer delete(c.building, name)

	var b *meta.Builder
	if d.Extends != "" {
		if _, ok := c.decls[d.Extends]; !ok {
			return fmt.Errorf("%w: type %s extends unknown type %q", ErrDocument, name, d.Extends)
		}
		if c.decls[d.Extends].union {
			return fmt.Errorf("%w: type %s extends union %q", ErrDocument, name, d.Extends)
		}
		if err := c.build(d.Extends); err != nil {
			return err
		}
		b = meta.Extend(c.entities[d.Extends], name)
	} else {
		b = meta.NewEntity(name)
	}
	b.Logger(c.logger)
	switch {
	case d.Discriminator != "":
		b.Kind(d.Discriminator, d.Kind)
	case d.Kind != nil:
		b.KindValue(d.Kind)
	}
	if d.Freeze {
		b.Freeze()
	}
	for _, key := range d.fields {
		p, err := c.property(d.props[key])
		if err != nil {
			return fmt.Errorf("type %s: field %s: %w", name, key, err)
		}
		b.Field(key, p)
	}
	for _, src := range d.Invariants {
		b.CheckExpr(src)
	}
	t, err := b.Build()
	if err != nil {
		return fmt.Errorf("type %s: %w", name, err)
	}
	if err := c.reg.Register(t); err != nil {
		return err
	}
	c.entities[name] = t
	return nil
}

func (c *compiler) buildUnion(name string, d *typeDecl) error {
	b := meta.NewUnion(name)
	for _, key := range d.members {
		p, err := c.property(d.props[key])
		if err != nil {
			return fmt.Errorf("union %s: member %s: %w", name, key, err)
		}
		b.Member(key, p)
	}
	t, err := b.Build()
	if err != nil {
		return fmt.Errorf("union %s: %w", name, err)
	}
	return c.reg.Register(t)
}

func (c *compiler) property(raw any) (meta.Property, error) {
	var fd fieldDecl
	switch x := raw.(type) {
	case string:
		fd.Type = x
	default:
		_, m, ok := entries(raw)
		if !ok {
			return nil, fmt.Errorf("%w: expected a type name or a mapping, got %T", ErrDocument, raw)
		}
		if err := decode(plainMap(m), &fd); err != nil {
			return nil, err
		}
	}

	var opts []meta.Option
	if fd.Required {
		opts = append(opts, meta.Required())
	}
	if fd.Default != nil {
		if isContainer(fd.Default) {
			def := fd.Default
			opts = append(opts, meta.DefaultFunc(func() any { return clone(def) }))
		} else {
			opts = append(opts, meta.Default(fd.Default))
		}
	}
	if fd.View != nil {
		opts = append(opts, meta.View(fd.View...))
	}
	if fd.Name != "" {
		opts = append(opts, meta.Name(fd.Name))
	}
	if fd.Codecs != nil {
		opts = append(opts, meta.Codecs(fd.Codecs...))
	}
	if fd.Check != "" {
		opts = append(opts, meta.Expr(fd.Check))
	}
	if fd.Ordered {
		opts = append(opts, meta.Ordered())
	}
	if fd.Only != nil {
		opts = append(opts, meta.Only(fd.Only...))
	}
	if fd.Exclude != nil {
		opts = append(opts, meta.Exclude(fd.Exclude...))
	}

	switch fd.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrDocument)
	case "string":
		p := meta.String(opts...)
		if fd.NonEmpty {
			p.NonEmpty()
		}
		return p, nil
	case "boolean", "bool":
		return meta.Boolean(opts...), nil
	case "number":
		p := meta.Number(opts...)
		if fd.AllowBool {
			p.AllowBool()
		}
		if fd.AllowNaN {
			p.AllowNaN()
		}
		if fd.JSSafe {
			p.JSSafe()
		}
		return p, nil
	case "integer", "int":
		p := meta.Integer(opts...)
		if fd.AllowBool {
			p.AllowBool()
		}
		if fd.JSSafe {
			p.JSSafe()
		}
		return p, nil
	case "float":
		p := meta.Float(opts...)
		if fd.AllowNaN {
			p.AllowNaN()
		}
		return p, nil
	case "datetime":
		p := meta.DateTime(opts...)
		switch {
		case fd.Unix:
			p.Unix()
		case fd.Layout != "":
			p.Layout(fd.Layout)
		}
		return p, nil
	case "any":
		return meta.Any(opts...), nil
	case "object":
		return meta.JSONObject(opts...), nil
	case "array":
		return meta.JSONArray(opts...), nil
	case "list":
		if fd.Items == nil {
			return nil, fmt.Errorf("%w: list needs items", ErrDocument)
		}
		item, err := c.property(fd.Items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		r := meta.Unbounded()
		if fd.Repeat != nil {
			if r, err = ParseRepeat(fd.Repeat); err != nil {
				return nil, err
			}
		}
		return meta.Many(item, r, opts...), nil
	case "tuple":
		units := make([]meta.Property, len(fd.Units))
		for i, u := range fd.Units {
			p, err := c.property(u)
			if err != nil {
				return nil, fmt.Errorf("units[%d]: %w", i, err)
			}
			units[i] = p
		}
		t := meta.Tuple(units...)
		if fd.Repeat != nil {
			r, err := ParseRepeat(fd.Repeat)
			if err != nil {
				return nil, err
			}
			t.Repeat(r)
		}
		return t.With(opts...), nil
	}
	if _, ok := c.decls[fd.Type]; !ok {
		if _, ok := c.reg.Lookup(fd.Type); !ok {
			return nil, fmt.Errorf("%w: unknown type %q", ErrDocument, fd.Type)
		}
	}
	return c.reg.Ref(fd.Type, opts...), nil
}

// ParseRepeat reads a cardinality: a count, a list of counts, "*", or a
// slice "start:stop[:step]" where start or stop may be left out.
func ParseRepeat(v any) (meta.Repeat, error) {
	switch x := v.(type) {
	case int:
		return meta.Exactly(x), nil
	case []any:
		ns := make([]int, len(x))
		for i, e := range x {
			n, ok := e.(int)
			if !ok {
				return meta.Repeat{}, fmt.Errorf("%w: repeat count %v is not an integer", ErrDocument, e)
			}
			ns[i] = n
		}
		return meta.Counts(ns...), nil
	case string:
		return parseSlice(x)
	}
	return meta.Repeat{}, fmt.Errorf("%w: invalid repeat %v", ErrDocument, v)
}

func parseSlice(s string) (meta.Repeat, error) {
	if s == "*" {
		return meta.Unbounded(), nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return meta.Repeat{}, fmt.Errorf("%w: invalid repeat %q", ErrDocument, s)
	}
	nums := make([]*int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return meta.Repeat{}, fmt.Errorf("%w: invalid repeat %q", ErrDocument, s)
		}
		nums[i] = &n
	}
	if len(parts) == 1 {
		if nums[0] == nil {
			return meta.Repeat{}, fmt.Errorf("%w: invalid repeat %q", ErrDocument, s)
		}
		return meta.Exactly(*nums[0]), nil
	}
	start, step := 0, 1
	if nums[0] != nil {
		start = *nums[0]
	}
	if len(parts) == 3 && nums[2] != nil {
		step = *nums[2]
	}
	if nums[1] == nil {
		if step != 1 {
			return meta.Repeat{}, fmt.Errorf("%w: open repeat %q cannot step", ErrDocument, s)
		}
		return meta.AtLeast(start), nil
	}
	return meta.RangeStep(start, *nums[1], step), nil
}

// entries views a mapping in document order.
func entries(v any) ([]string, map[string]any, bool) {
	switch x := v.(type) {
	case *meta.Object:
		return x.Keys(), x.Map(), true
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys, x, true
	}
	return nil, nil, false
}

// plain turns Objects into maps, recursively, for mapstructure.
func plain(v any) any {
	switch x := v.(type) {
	case *meta.Object:
		return plainMap(x.Map())
	case map[string]any:
		return plainMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = plain(e)
	}
	return out
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any, *meta.Object:
		return true
	}
	return false
}

func clone(v any) any { return plain(v) }
