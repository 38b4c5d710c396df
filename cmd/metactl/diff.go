package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/reoring/meta"
)

var errDiffer = errors.New("documents differ")

var (
	insertColor = color.New(color.FgGreen).SprintFunc()
	deleteColor = color.New(color.FgRed).SprintFunc()
)

func newDiffCmd(o *options) *cobra.Command {
	var mergePatch bool
	cmd := &cobra.Command{
		Use:   "diff FROM TO",
		Short: "Compare two documents after normalization",
		Long: `Loads both documents as --type, dumps them and prints a line diff.
With --merge-patch, prints the RFC 7396 merge patch turning FROM into TO instead.
Exits with an error when the documents differ.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, doc, err := o.document()
			if err != nil {
				return err
			}
			if mergePatch {
				return o.mergePatch(cmd, doc, args[0], args[1])
			}
			from, err := o.normalize(cmd, doc, args[0])
			if err != nil {
				return err
			}
			to, err := o.normalize(cmd, doc, args[1])
			if err != nil {
				return err
			}
			a, err := o.marshalJSON(from)
			if err != nil {
				return err
			}
			b, err := o.marshalJSON(to)
			if err != nil {
				return err
			}
			if !writeLineDiff(cmd.OutOrStdout(), string(a)+"\n", string(b)+"\n") {
				return nil
			}
			return errDiffer
		},
	}
	cmd.Flags().BoolVar(&mergePatch, "merge-patch", false, "print an RFC 7396 merge patch")
	return cmd
}

func (o *options) mergePatch(cmd *cobra.Command, doc document, fromPath, toPath string) error {
	load := func(path string) (*meta.Entity, error) {
		raw, err := readDocument(cmd, path)
		if err != nil {
			return nil, err
		}
		v, err := doc.load(raw, o.newContext())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		e, ok := v.(*meta.Entity)
		if !ok {
			return nil, fmt.Errorf("merge patches need an entity type, %s is not one", o.typeName)
		}
		return e, nil
	}
	from, err := load(fromPath)
	if err != nil {
		return err
	}
	to, err := load(toPath)
	if err != nil {
		return err
	}
	patch, err := meta.CreateMergePatch(from, to, o.newContext())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(patch))
	if string(patch) == "{}" {
		return nil
	}
	return errDiffer
}

// writeLineDiff prints a unified-style line diff and reports whether the
// texts differ.
func writeLineDiff(w io.Writer, a, b string) bool {
	dmp := diffpatch.New()
	ac, bc, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ac, bc, false), lines)
	changed := false
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffpatch.DiffInsert:
				changed = true
				fmt.Fprintln(w, insertColor("+ "+line))
			case diffpatch.DiffDelete:
				changed = true
				fmt.Fprintln(w, deleteColor("- "+line))
			default:
				fmt.Fprintln(w, "  "+line)
			}
		}
	}
	return changed
}
