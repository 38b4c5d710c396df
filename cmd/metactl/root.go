package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reoring/meta"
	_ "github.com/reoring/meta/codec"
	"github.com/reoring/meta/schemafile"
)

// errFailed is returned after a command already reported its findings.
var errFailed = errors.New("validation failed")

type options struct {
	schema    string
	config    string
	typeName  string
	format    string
	views     []string
	strict    bool
	maxErrors int
	verbose   bool

	logger *slog.Logger
	cfg    meta.ContextConfig
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "metactl",
		Short:         "Validate and normalize documents against meta schema files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&o.schema, "schema", "s", "", "schema file (YAML or JSON)")
	pf.StringVar(&o.config, "config", "", "context configuration file (YAML)")
	pf.StringVarP(&o.typeName, "type", "t", "", "type to read documents as")
	pf.StringVarP(&o.format, "output", "o", "json", "output format: json or yaml")
	pf.StringSliceVar(&o.views, "view", nil, "restrict to the given views")
	pf.BoolVar(&o.strict, "strict", false, "reject unknown keys")
	pf.IntVar(&o.maxErrors, "max-errors", 0, "issues to collect before stopping")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "log debug records to stderr")

	root.AddCommand(
		newValidateCmd(o),
		newDumpCmd(o),
		newDiffCmd(o),
		newSchemaCmd(o),
	)
	return root
}

func (o *options) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if o.config != "" {
		data, err := os.ReadFile(o.config)
		if err != nil {
			return err
		}
		var m map[string]any
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("%s: %w", o.config, err)
		}
		if o.cfg, err = meta.DecodeContextConfig(m); err != nil {
			return fmt.Errorf("%s: %w", o.config, err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("view") {
		o.cfg.View = o.views
	}
	if flags.Changed("strict") {
		o.cfg.Strict = o.strict
	}
	if flags.Changed("max-errors") {
		o.cfg.MaxErrors = o.maxErrors
	}
	switch o.format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", o.format)
	}
	return nil
}

func (o *options) newContext() *meta.Context {
	return o.cfg.NewContext(meta.WithLogger(o.logger))
}

func (o *options) registry() (*meta.Registry, error) {
	if o.schema == "" {
		return nil, errors.New("--schema is required")
	}
	return schemafile.LoadFile(o.schema, schemafile.Options{Logger: o.logger})
}

// document is a type documents can be read as.
type document struct {
	typ meta.Type
}

func (o *options) document() (*meta.Registry, document, error) {
	reg, err := o.registry()
	if err != nil {
		return nil, document{}, err
	}
	if o.typeName == "" {
		return nil, document{}, errors.New("--type is required")
	}
	t, ok := reg.Lookup(o.typeName)
	if !ok {
		return nil, document{}, fmt.Errorf("type %q is not declared in %s", o.typeName, o.schema)
	}
	return reg, document{typ: t}, nil
}

func (d document) load(raw any, c *meta.Context) (any, error) {
	switch t := d.typ.(type) {
	case *meta.EntityType:
		return t.Load(raw, c)
	case *meta.UnionType:
		return t.Load(raw, c)
	}
	return nil, fmt.Errorf("cannot read documents as %T", d.typ)
}

func (d document) validate(v any, c *meta.Context) error {
	switch x := v.(type) {
	case *meta.Entity:
		return x.Validate(c)
	case *meta.Union:
		return x.Validate(c)
	}
	return nil
}

func (d document) dump(v any, c *meta.Context) (any, error) {
	switch x := v.(type) {
	case *meta.Entity:
		return x.Dump(c)
	case *meta.Union:
		return x.Dump(c)
	}
	return nil, nil
}

// readDocument reads a YAML or JSON file; "-" is standard input.
func readDocument(cmd *cobra.Command, path string) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			return nil, errors.New("standard input is a terminal; pipe a document in")
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	v, err := meta.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
