package main

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDumpCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Print a document in normalized form",
		Long:  `Loads the document as --type and dumps it back: wire names, defaults, codecs and field order applied.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, doc, err := o.document()
			if err != nil {
				return err
			}
			out, err := o.normalize(cmd, doc, args[0])
			if err != nil {
				return err
			}
			return o.write(cmd.OutOrStdout(), out)
		},
	}
}

// normalize loads the document at path and dumps it again.
func (o *options) normalize(cmd *cobra.Command, doc document, path string) (any, error) {
	raw, err := readDocument(cmd, path)
	if err != nil {
		return nil, err
	}
	c := o.newContext()
	v, err := doc.load(raw, c)
	if err != nil {
		if iss := c.Errors(); len(iss) > 0 {
			printIssues(cmd.ErrOrStderr(), iss)
			return nil, fmt.Errorf("%s: %w", path, errFailed)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Reset()
	out, err := doc.dump(v, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func (o *options) write(w io.Writer, v any) error {
	if o.format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	b, err := o.marshalJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func (o *options) marshalJSON(v any) ([]byte, error) {
	return json.MarshalIndentWithOption(v, "", "  ", json.DisableHTMLEscape())
}
