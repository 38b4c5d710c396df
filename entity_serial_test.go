package meta_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/meta"
)

func TestLoadDump_RoundTrip(t *testing.T) {
	person, _ := personType()
	raw := map[string]any{
		"name":    "ann",
		"age":     int64(30),
		"tags":    []any{"a", "b"},
		"address": map[string]any{"street": "main", "postal-code": "123"},
		"secret":  nil,
	}
	p, err := person.Load(raw, nil)
	require.NoError(t, err)
	assert.True(t, meta.IsNull(p.MustGet("secret")))

	out, err := p.Dump(nil)
	require.NoError(t, err)
	assert.Equal(t, raw, out, spew.Sdump(out))

	back, err := person.Load(out, nil)
	require.NoError(t, err)
	assert.True(t, back.Equal(p))
}

func TestLoad_JSON(t *testing.T) {
	person, _ := personType()
	p, err := person.LoadJSON([]byte(`{"name": "ann", "age": 7, "address": {"street": "x"}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.MustGet("age"))

	_, err = person.LoadJSON([]byte(`{"name": `), nil)
	var ie *meta.InvalidError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, meta.CodeParseError, ie.Code)
}

func TestLoad_MissingRequiredIsNotALoadError(t *testing.T) {
	person, _ := personType()
	p, err := person.Load(map[string]any{"age": 1}, nil)
	require.NoError(t, err)

	c := meta.NewContext()
	err = p.Validate(c)
	require.Error(t, err)
	iss := c.Errors()
	require.Len(t, iss, 1)
	assert.Equal(t, "/name", iss[0].Path)
	assert.Equal(t, meta.CodeRequired, iss[0].Code)
	assert.True(t, iss[0].KeyProblem())
}

func TestLoad_RequiredNull(t *testing.T) {
	person, _ := personType()
	c := meta.NewContext()
	_, err := person.Load(map[string]any{"name": nil}, c)
	require.Error(t, err)
	assert.Equal(t, "/name", c.Errors()[0].Path)
	assert.Equal(t, meta.CodeRequired, c.Errors()[0].Code)
}

func TestLoad_NotAMapping(t *testing.T) {
	person, _ := personType()
	c := meta.NewContext()
	_, err := person.Load([]any{1}, c)
	require.ErrorIs(t, err, meta.ErrInvalid)
	iss := c.Errors()
	require.Len(t, iss, 1)
	assert.Equal(t, "", iss[0].Path)
	assert.Equal(t, meta.CodeInvalidType, iss[0].Code)
}

func TestLoad_MaxErrors(t *testing.T) {
	typ := meta.NewEntity("Five").
		Field("a", meta.Integer()).
		Field("b", meta.Integer()).
		Field("c", meta.Integer()).
		Field("d", meta.Integer()).
		Field("e", meta.Integer()).
		MustBuild()
	raw := map[string]any{"a": "x", "b": "x", "c": "x", "d": "x", "e": "x"}

	for _, n := range []int{1, 3, 5, 10} {
		c := meta.NewContext(meta.WithMaxErrors(n))
		_, err := typ.Load(raw, c)
		require.Error(t, err)
		iss := c.Errors()
		want := min(n, 5)
		require.Len(t, iss, want, "max %d", n)
		assert.Equal(t, []string{"/a", "/b", "/c", "/d", "/e"}[:want], iss.Paths())
		for _, it := range iss {
			assert.Equal(t, "x", it.Value)
			assert.Equal(t, meta.CodeInvalidType, it.Code)
		}
	}
}

func TestLoad_NestedPaths(t *testing.T) {
	person, _ := personType()
	c := meta.NewContext(meta.WithMaxErrors(10))
	raw := meta.NewObject()
	raw.Set("tags", []any{"ok", 2, "ok", false})
	raw.Set("address", map[string]any{"street": 1, "postal-code": 2})
	raw.Set("age", "old")
	_, err := person.Load(raw, c)
	require.Error(t, err)

	// *Object inputs are visited in insertion order, maps in key order
	assert.Equal(t, []string{
		"/tags/1",
		"/tags/3",
		"/address/postal-code",
		"/address/street",
		"/age",
	}, c.Errors().Paths())
}

func TestLoad_Strict(t *testing.T) {
	person, _ := personType()
	raw := map[string]any{"name": "ann", "nick": "a", "zzz": 1}

	_, err := person.Load(raw, meta.NewContext())
	require.NoError(t, err)

	c := meta.NewContext(meta.WithStrict(true), meta.WithMaxErrors(5))
	_, err = person.Load(raw, c)
	require.Error(t, err)
	iss := c.Errors()
	assert.Equal(t, []string{"/nick", "/zzz"}, iss.Paths())
	for _, it := range iss {
		assert.Equal(t, meta.CodeUnknownKey, it.Code)
		assert.True(t, it.KeyProblem())
	}
}

func TestLoad_HiddenFieldIsUnknown(t *testing.T) {
	person, _ := personType()
	raw := map[string]any{"name": "ann", "secret": "s"}

	p, err := person.Load(raw, meta.NewContext(meta.WithView("public")))
	require.NoError(t, err)
	assert.False(t, p.Has("secret"))

	c := meta.NewContext(meta.WithView("public"), meta.WithStrict(true))
	_, err = person.Load(raw, c)
	require.Error(t, err)
	assert.Equal(t, "/secret", c.Errors()[0].Path)
}

func TestLoad_WireNames(t *testing.T) {
	addr := addressType()
	a, err := addr.Load(map[string]any{"street": "s", "zip": "ignored", "postal-code": "p"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "p", a.MustGet("zip"))

	out, err := a.Dump(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"street": "s", "postal-code": "p"}, out)
}

func TestDump_WrongType(t *testing.T) {
	person, addr := personType()
	_, err := meta.Dump(person.Property(), addr.New(), nil)
	assert.ErrorIs(t, err, meta.ErrInvalid)
}

func TestDump_TopLevelIssue(t *testing.T) {
	c := meta.NewContext()
	_, err := meta.Load(meta.Integer(), "s", c)
	require.ErrorIs(t, err, meta.ErrInvalid)
	assert.Equal(t, []string{""}, c.Errors().Paths())
	assert.Equal(t, meta.CodeInvalidType, c.Errors()[0].Code)

	c.Reset()
	_, err = meta.Dump(meta.Integer(), "s", c)
	require.ErrorIs(t, err, meta.ErrInvalid)
	iss := c.Errors()
	require.Len(t, iss, 1)
	assert.Equal(t, "", iss[0].Path)
	assert.Equal(t, meta.CodeInvalidType, iss[0].Code)
	assert.Equal(t, "s", iss[0].Value)

	// nested faults keep a single record at the item
	c = meta.NewContext(meta.WithMaxErrors(10))
	_, err = meta.Dump(meta.Many(meta.Integer(), meta.Unbounded()), []any{1, "s", "t"}, c)
	require.ErrorIs(t, err, meta.ErrInvalid)
	assert.Equal(t, []string{"/1", "/2"}, c.Errors().Paths())
}

func TestDump_Absent(t *testing.T) {
	out, err := meta.Dump(meta.String(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	out, err = meta.Dump(meta.String(), meta.Null, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestValidate_Nested(t *testing.T) {
	person, addr := personType()
	p := person.New()
	require.NoError(t, p.Set("name", "ann"))
	require.NoError(t, p.Set("address", addr.New()))

	c := meta.NewContext()
	require.Error(t, p.Validate(c))
	iss := c.Errors()
	require.Len(t, iss, 1)
	assert.Equal(t, "/address/street", iss[0].Path)
	assert.True(t, meta.IsNull(iss[0].Value))
}

func TestValidate_TupleElements(t *testing.T) {
	addr := addressType()
	book := meta.NewEntity("Book").
		Field("addresses", meta.Many(addr.Property(), meta.Unbounded())).
		MustBuild()
	b, err := book.Load(map[string]any{"addresses": []any{
		map[string]any{"street": "a"},
		map[string]any{"city": "b"},
	}}, nil)
	require.NoError(t, err)

	c := meta.NewContext()
	require.Error(t, b.Validate(c))
	assert.Equal(t, []string{"/addresses/1/street"}, c.Errors().Paths())
}

func TestValidate_MaxErrors(t *testing.T) {
	typ := meta.NewEntity("Req").
		Field("a", meta.String(meta.Required())).
		Field("b", meta.String(meta.Required())).
		Field("c", meta.String(meta.Required())).
		MustBuild()

	c := meta.NewContext(meta.WithMaxErrors(2))
	require.Error(t, typ.New().Validate(c))
	assert.Equal(t, []string{"/a", "/b"}, c.Errors().Paths())
}
