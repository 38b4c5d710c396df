package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reoring/meta"
)

var (
	okColor    = color.New(color.FgGreen).SprintFunc()
	failColor  = color.New(color.FgRed, color.Bold).SprintFunc()
	pathColor  = color.New(color.FgCyan).SprintFunc()
	faintColor = color.New(color.Faint).SprintFunc()
)

func newValidateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Load and validate documents",
		Long:  `Loads each document as --type, then checks required fields and invariants. "-" reads standard input.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, doc, err := o.document()
			if err != nil {
				return err
			}
			failed := false
			for _, path := range args {
				ok, err := o.validateFile(cmd, doc, path)
				if err != nil {
					return err
				}
				failed = failed || !ok
			}
			if failed {
				return errFailed
			}
			return nil
		},
	}
}

func (o *options) validateFile(cmd *cobra.Command, doc document, path string) (bool, error) {
	w := cmd.OutOrStdout()
	raw, err := readDocument(cmd, path)
	if err != nil {
		return false, err
	}
	c := o.newContext()
	v, err := doc.load(raw, c)
	if err == nil {
		c.Reset()
		err = doc.validate(v, c)
	}
	if err == nil {
		fmt.Fprintf(w, "%s %s\n", okColor("ok"), path)
		return true, nil
	}
	fmt.Fprintf(w, "%s %s\n", failColor("FAIL"), path)
	iss := c.Errors()
	if len(iss) == 0 {
		// fatal faults are not recorded as issues
		fmt.Fprintf(w, "  %v\n", err)
		return false, nil
	}
	printIssues(w, iss)
	return false, nil
}

func printIssues(w io.Writer, iss meta.Issues) {
	for _, it := range iss {
		path := it.Path
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(w, "  %s %s %s\n", pathColor(path), failColor(it.Code), faintColor(it.Message))
	}
}
