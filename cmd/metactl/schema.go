package main

import (
	"github.com/spf13/cobra"

	"github.com/reoring/meta/jsonschema"
)

func newSchemaCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Export JSON Schema",
		Long:  `Exports --type and the types it reaches, or every declared type when --type is not given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				s   *jsonschema.Schema
				err error
			)
			if o.typeName == "" {
				reg, rerr := o.registry()
				if rerr != nil {
					return rerr
				}
				s, err = jsonschema.ForRegistry(reg)
			} else {
				_, doc, derr := o.document()
				if derr != nil {
					return derr
				}
				s, err = jsonschema.For(doc.typ)
			}
			if err != nil {
				return err
			}
			return o.write(cmd.OutOrStdout(), s)
		},
	}
}
