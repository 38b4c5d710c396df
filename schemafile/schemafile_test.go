package schemafile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/meta"
	"github.com/reoring/meta/schemafile"
)

const drawing = `
types:
  Drawing:
    fields:
      title: {type: string, required: true, nonEmpty: true}
      shapes: {type: list, items: Shape, repeat: "1:"}
      size: Size
    invariants:
      - "len(shapes) < 3"
  Shape:
    discriminator: type
    fields:
      name: string
  Circle:
    extends: Shape
    kind: circle
    fields:
      r: {type: float, check: "value > 0"}
  Square:
    extends: Shape
    kind: square
    fields:
      side: float
  Size:
    members:
      pixels: integer
      named: string
`

func TestLoad_Drawing(t *testing.T) {
	reg, err := schemafile.Load([]byte(drawing), schemafile.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Circle", "Drawing", "Shape", "Size", "Square"}, reg.Names())

	typ, ok := reg.Lookup("Drawing")
	require.True(t, ok)
	dt := typ.(*meta.EntityType)
	assert.Equal(t, []string{"title", "shapes", "size"}, dt.Keys())

	d, err := dt.LoadJSON([]byte(`{
		"title": "t",
		"shapes": [{"type": "circle", "r": 1.5}, {"type": "square", "side": 2}],
		"size": 640
	}`), nil)
	require.NoError(t, err)

	shapes := d.MustGet("shapes").([]any)
	require.Len(t, shapes, 2)
	assert.Equal(t, "Circle", shapes[0].(*meta.Entity).Type().Name())
	assert.Equal(t, "Square", shapes[1].(*meta.Entity).Type().Name())
	assert.Equal(t, "pixels", d.MustGet("size").(*meta.Union).Key())
	assert.NoError(t, d.Validate(nil))
}

func TestLoad_FieldCheck(t *testing.T) {
	reg, err := schemafile.Load([]byte(drawing), schemafile.Options{})
	require.NoError(t, err)
	typ, _ := reg.Lookup("Drawing")

	c := meta.NewContext(meta.WithMaxErrors(10))
	_, err = typ.(*meta.EntityType).LoadJSON([]byte(`{"title": "t", "shapes": [{"type": "circle", "r": -1}]}`), c)
	require.Error(t, err)
	iss := c.Errors()
	require.Len(t, iss, 1)
	assert.Equal(t, "/shapes/0/r", iss[0].Path)
	assert.Equal(t, meta.CodeRejected, iss[0].Code)
}

func TestLoad_Invariant(t *testing.T) {
	reg, err := schemafile.Load([]byte(drawing), schemafile.Options{})
	require.NoError(t, err)
	typ, _ := reg.Lookup("Drawing")

	d, err := typ.(*meta.EntityType).LoadJSON([]byte(`{
		"title": "t",
		"shapes": [{"type": "square"}, {"type": "square"}, {"type": "square"}]
	}`), nil)
	require.NoError(t, err)

	c := meta.NewContext()
	err = d.Validate(c)
	require.Error(t, err)
	iss := c.Errors()
	require.Len(t, iss, 1)
	assert.Equal(t, "", iss[0].Path)
	assert.Equal(t, meta.CodeRejected, iss[0].Code)
}

func TestLoad_JSONDocument(t *testing.T) {
	reg, err := schemafile.Load([]byte(`{"types": {"Point": {"fields": {
		"x": {"type": "integer", "ordered": true},
		"y": {"type": "integer", "ordered": true},
		"tags": {"type": "list", "items": "string", "default": ["a"]}
	}}}}`), schemafile.Options{})
	require.NoError(t, err)
	typ, _ := reg.Lookup("Point")
	pt := typ.(*meta.EntityType)

	p := pt.New()
	require.NoError(t, p.Set("y", 2))
	require.NoError(t, p.Set("x", 1))
	out, err := p.Dump(nil)
	require.NoError(t, err)
	obj, ok := out.(*meta.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y", "tags"}, obj.Keys())

	// defaults are fresh per instance
	a, b := pt.New(), pt.New()
	ta := a.MustGet("tags").([]any)
	ta[0] = "changed"
	assert.Equal(t, []any{"a"}, b.MustGet("tags"))
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown top-level key": "kinds: {}",
		"unknown type":          "types: {A: {fields: {x: Nope}}}",
		"unknown option":        "types: {A: {fields: {x: {type: string, colour: red}}}}",
		"extends cycle":         "types: {A: {extends: B}, B: {extends: A}}",
		"union with extends":    "types: {A: {fields: {}}, U: {extends: A, members: {x: string}}}",
		"bad repeat":            `types: {A: {fields: {x: {type: list, items: string, repeat: "a:b"}}}}`,
		"bad check":             `types: {A: {fields: {x: {type: integer, check: "value >"}}}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := schemafile.Load([]byte(doc), schemafile.Options{})
			assert.Error(t, err)
		})
	}
}

func TestParseRepeat(t *testing.T) {
	cases := []struct {
		in      any
		allowed []int
		denied  []int
	}{
		{in: 3, allowed: []int{3}, denied: []int{2, 4}},
		{in: "2:", allowed: []int{2, 100}, denied: []int{1}},
		{in: "1:4", allowed: []int{1, 3}, denied: []int{0, 4}},
		{in: "0:10:5", allowed: []int{0, 5}, denied: []int{3, 10}},
		{in: "*", allowed: []int{0, 7}},
		{in: []any{1, 3}, allowed: []int{1, 3}, denied: []int{2}},
	}
	for _, tc := range cases {
		r, err := schemafile.ParseRepeat(tc.in)
		require.NoError(t, err, tc.in)
		for _, n := range tc.allowed {
			assert.True(t, r.Allows(n), "%v allows %d", tc.in, n)
		}
		for _, n := range tc.denied {
			assert.False(t, r.Allows(n), "%v denies %d", tc.in, n)
		}
	}
}
