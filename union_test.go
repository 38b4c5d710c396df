package meta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/meta"
)

func sizeType() *meta.UnionType {
	return meta.NewUnion("Size").
		Member("n", meta.Integer()).
		Member("s", meta.String().NonEmpty()).
		MustBuild()
}

func TestUnion_Load(t *testing.T) {
	size := sizeType()

	u, err := size.Load(3, nil)
	require.NoError(t, err)
	assert.Equal(t, "n", u.Key())
	assert.Equal(t, int64(3), u.Value())

	u, err = size.Load("XL", nil)
	require.NoError(t, err)
	k, v := u.Item()
	assert.Equal(t, "s", k)
	assert.Equal(t, "XL", v)

	c := meta.NewContext(meta.WithMaxErrors(10))
	_, err = size.Load(true, c)
	require.Error(t, err)
	iss := c.Errors()
	require.Len(t, iss, 1)
	assert.Equal(t, "", iss[0].Path)
	assert.Equal(t, meta.CodeUnionNoMatch, iss[0].Code)

	_, err = size.Load("", meta.NewContext())
	assert.Error(t, err)
}

func TestUnion_OrderedMembersFirst(t *testing.T) {
	num := meta.NewUnion("Num").
		Member("f", meta.Float()).
		Member("i", meta.Integer(meta.Ordered())).
		MustBuild()
	assert.Equal(t, []string{"i", "f"}, num.Keys())

	u, err := num.Load(3, nil)
	require.NoError(t, err)
	assert.Equal(t, "i", u.Key())

	u, err = num.Load(2.5, nil)
	require.NoError(t, err)
	assert.Equal(t, "f", u.Key())
}

func TestUnion_Access(t *testing.T) {
	u := sizeType().New()
	require.NoError(t, u.Set("n", 3))
	assert.Equal(t, "n", u.Key())

	v, err := u.Get("s")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, u.Set("s", "M"))
	assert.Equal(t, "s", u.Key())
	v, err = u.Get("n")
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.ErrorIs(t, u.Set("zz", 1), meta.ErrUnknownKey)
	assert.ErrorIs(t, u.Set("n", "three"), meta.ErrInvalid)
	assert.Equal(t, "M", u.Value())

	assert.True(t, u.Equal("M"))
	out, err := u.Dump(nil)
	require.NoError(t, err)
	assert.Equal(t, "M", out)

	require.NoError(t, u.Delete("s"))
	assert.Equal(t, "", u.Key())
	out, err = u.Dump(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	c := meta.NewContext()
	require.Error(t, u.Validate(c))
	assert.Equal(t, meta.CodeRequired, c.Errors()[0].Code)
}

func TestUnion_AsField(t *testing.T) {
	size := sizeType()
	shirt := meta.NewEntity("Shirt").
		Field("size", size.Property(meta.Required())).
		MustBuild()

	s, err := shirt.Load(map[string]any{"size": "L"}, nil)
	require.NoError(t, err)
	u := s.MustGet("size").(*meta.Union)
	assert.Equal(t, "s", u.Key())

	out, err := s.Dump(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"size": "L"}, out)

	c := meta.NewContext()
	_, err = shirt.Load(map[string]any{"size": []any{1}}, c)
	require.Error(t, err)
	assert.Equal(t, "/size", c.Errors()[0].Path)
	assert.Equal(t, meta.CodeUnionNoMatch, c.Errors()[0].Code)
}

func TestUnion_EntityMembers(t *testing.T) {
	_, circle, square := shapeTypes()
	either := meta.NewUnion("Either").
		Member("circle", circle.Property()).
		Member("square", square.Property()).
		MustBuild()

	u, err := either.Load(map[string]any{"type": "square", "side": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "square", u.Key())
}

func TestUnion_FatalErrorsPropagate(t *testing.T) {
	reg := meta.NewRegistry()
	broken := meta.NewUnion("Broken").
		Member("ref", reg.Ref("Missing")).
		Member("s", meta.String()).
		MustBuild()

	c := meta.NewContext()
	_, err := broken.Load("x", c)
	assert.ErrorIs(t, err, meta.ErrUnresolved)
	assert.Empty(t, c.Errors())
}
