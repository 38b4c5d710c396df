package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userSchema = `
types:
  User:
    fields:
      id: {type: integer, required: true, ordered: true}
      name: {type: string, required: true, ordered: true}
      email: {type: string, name: e-mail}
      admin: {type: boolean, default: false}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.yaml": userSchema,
		"good.json":   `{"id": 1, "name": "ann"}`,
		"bad.yaml":    "id: one\n",
	})
	schema := filepath.Join(dir, "schema.yaml")

	out, err := run(t, "validate", "-s", schema, "-t", "User", filepath.Join(dir, "good.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok ")

	out, err = run(t, "validate", "-s", schema, "-t", "User", "--max-errors", "5", filepath.Join(dir, "bad.yaml"))
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "/id invalid_type")
}

func TestValidate_MissingRequired(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.yaml": userSchema,
		"doc.json":    `{"id": 1}`,
	})
	out, err := run(t, "validate", "-s", filepath.Join(dir, "schema.yaml"), "-t", "User", filepath.Join(dir, "doc.json"))
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "/name required")
}

func TestValidate_StrictFromConfig(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.yaml": userSchema,
		"config.yaml": "strict: true\nmaxErrors: 3\n",
		"doc.json":    `{"id": 1, "name": "ann", "extra": 1}`,
	})
	out, err := run(t, "validate",
		"-s", filepath.Join(dir, "schema.yaml"),
		"--config", filepath.Join(dir, "config.yaml"),
		"-t", "User", filepath.Join(dir, "doc.json"))
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "/extra unknown_key")
}

func TestDump(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.yaml": userSchema,
		"doc.json":    `{"e-mail": "a@example.com", "name": "ann", "id": 7}`,
	})
	out, err := run(t, "dump", "-s", filepath.Join(dir, "schema.yaml"), "-t", "User", filepath.Join(dir, "doc.json"))
	require.NoError(t, err)
	assert.Equal(t, `{
  "id": 7,
  "name": "ann",
  "e-mail": "a@example.com",
  "admin": false
}
`, out)
}

func TestDiff(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.yaml": userSchema,
		"a.json":      `{"id": 1, "name": "ann"}`,
		"b.yaml":      "id: 1\nname: bob\n",
		"c.yaml":      "name: ann\nid: 1.0\n",
	})
	schema := filepath.Join(dir, "schema.yaml")

	out, err := run(t, "diff", "-s", schema, "-t", "User", filepath.Join(dir, "a.json"), filepath.Join(dir, "b.yaml"))
	assert.ErrorIs(t, err, errDiffer)
	assert.Contains(t, out, `-   "name": "ann",`)
	assert.Contains(t, out, `+   "name": "bob",`)

	_, err = run(t, "diff", "-s", schema, "-t", "User", filepath.Join(dir, "a.json"), filepath.Join(dir, "c.yaml"))
	assert.NoError(t, err)

	out, err = run(t, "diff", "--merge-patch", "-s", schema, "-t", "User", filepath.Join(dir, "a.json"), filepath.Join(dir, "b.yaml"))
	assert.ErrorIs(t, err, errDiffer)
	assert.Equal(t, "{\"name\":\"bob\"}\n", out)
}

func TestSchema(t *testing.T) {
	dir := writeFiles(t, map[string]string{"schema.yaml": userSchema})
	out, err := run(t, "schema", "-s", filepath.Join(dir, "schema.yaml"), "-t", "User", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "$ref: '#/$defs/User'")
	assert.Contains(t, out, "e-mail:")
}

func TestDump_Stdin(t *testing.T) {
	dir := writeFiles(t, map[string]string{"schema.yaml": userSchema})
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("name: ann\nid: 2\n"))
	cmd.SetArgs([]string{"dump", "-s", filepath.Join(dir, "schema.yaml"), "-t", "User", "-o", "yaml", "-"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "id: 2\nname: ann\nadmin: false\n", out.String())
}

func TestFlagsRequired(t *testing.T) {
	_, err := run(t, "dump", "x.json")
	assert.EqualError(t, err, "--schema is required")

	_, err = run(t, "schema", "-o", "xml")
	assert.Error(t, err)
}
