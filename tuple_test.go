package meta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/meta"
)

func TestRepeat(t *testing.T) {
	tests := []struct {
		name    string
		r       meta.Repeat
		allowed []int
		denied  []int
		min     int
		max     int
		bounded bool
		str     string
	}{
		{"exactly", meta.Exactly(5), []int{5}, []int{0, 4, 6}, 5, 5, true, "5:6:1"},
		{"range", meta.Range(2, 5), []int{2, 3, 4}, []int{1, 5}, 2, 4, true, "2:5:1"},
		{"step", meta.RangeStep(0, 10, 4), []int{0, 4, 8}, []int{2, 10, 12}, 0, 8, true, "0:10:4"},
		{"negative step", meta.RangeStep(10, 0, -3), []int{1, 4, 7, 10}, []int{0, 3, 11, 13}, 1, 10, true, "1:11:3"},
		{"zero step", meta.RangeStep(0, 5, 0), nil, []int{0, 1, 4}, -1, -1, true, "0:0:1"},
		{"empty range", meta.Range(3, 3), nil, []int{2, 3}, -1, -1, true, "3:3:1"},
		{"at least", meta.AtLeast(2), []int{2, 3, 100}, []int{0, 1}, 2, 0, false, "2::1"},
		{"counts", meta.Counts(3, 1), []int{1, 3}, []int{0, 2, 4}, 1, 3, true, "{1,3}"},
		{"zero value", meta.Repeat{}, []int{0, 1, 9}, nil, 0, 0, false, "0::0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, n := range tt.allowed {
				assert.True(t, tt.r.Allows(n), "%d", n)
			}
			for _, n := range tt.denied {
				assert.False(t, tt.r.Allows(n), "%d", n)
			}
			assert.Equal(t, tt.min, tt.r.Min())
			mx, ok := tt.r.Max()
			assert.Equal(t, tt.bounded, ok)
			if ok {
				assert.Equal(t, tt.max, mx)
			}
			assert.Equal(t, tt.str, tt.r.String())
		})
	}
}

func TestTuple_Fixed(t *testing.T) {
	pair := meta.Tuple(meta.String(), meta.Integer())

	v, err := meta.Load(pair, []any{"a", 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", int64(1)}, v)

	c := meta.NewContext()
	_, err = meta.Load(pair, []any{"a"}, c)
	require.Error(t, err)
	assert.Equal(t, meta.CodeLengthMismatch, c.Errors()[0].Code)
	assert.Equal(t, "", c.Errors()[0].Path)

	_, err = meta.Load(pair, "ab", nil)
	assert.ErrorIs(t, err, meta.ErrInvalid)
}

func TestTuple_Exactly(t *testing.T) {
	five := meta.Many(meta.Integer(), meta.Exactly(5))

	v, err := meta.Load(five, []int{1, 2, 3, 4, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}, v)

	_, err = meta.Load(five, []any{1, 2, 3, 4}, nil)
	assert.Error(t, err)
	_, err = meta.Load(five, []any{}, nil)
	assert.Error(t, err)
}

func TestTuple_UnboundedAcceptsEmpty(t *testing.T) {
	v, err := meta.Load(meta.Many(meta.String(), meta.Unbounded()), []any{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)
}

func TestTuple_MultiUnit(t *testing.T) {
	pairs := meta.Tuple(meta.String(), meta.Integer()).Repeat(meta.Range(1, 3))

	for _, ok := range [][]any{{"a", 1}, {"a", 1, "b", 2}} {
		_, err := meta.Load(pairs, ok, nil)
		assert.NoError(t, err, "%v", ok)
	}
	for _, bad := range [][]any{{}, {"a", 1, "b"}, {"a", 1, "b", 2, "c", 3}} {
		c := meta.NewContext()
		_, err := meta.Load(pairs, bad, c)
		require.Error(t, err, "%v", bad)
		assert.Equal(t, meta.CodeLengthMismatch, c.Errors()[0].Code)
	}

	c := meta.NewContext(meta.WithMaxErrors(5))
	_, err := meta.Load(pairs, []any{"a", "x", 3, 4}, c)
	require.Error(t, err)
	assert.Equal(t, []string{"/1", "/2"}, c.Errors().Paths())
}

func TestTuple_HiddenUnit(t *testing.T) {
	row := meta.Tuple(meta.String(), meta.String(meta.View("admin")))
	public := meta.NewContext(meta.WithView("public"))

	v, err := meta.Load(row, []any{"a", nil}, public)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", nil}, v)

	c := meta.NewContext(meta.WithView("public"))
	_, err = meta.Load(row, []any{"a", "b"}, c)
	require.Error(t, err)
	assert.Equal(t, "/1", c.Errors()[0].Path)
	assert.Equal(t, meta.CodeHiddenValue, c.Errors()[0].Code)

	out, err := meta.Dump(row, []any{"a", "b"}, meta.NewContext(meta.WithView("public")))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", nil}, out)

	out, err = meta.Dump(row, []any{"a", "b"}, meta.NewContext(meta.WithView("admin")))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out)
}

func TestTuple_ElementDefaults(t *testing.T) {
	row := meta.Tuple(meta.String(), meta.Integer(meta.Default(7)))
	v, err := meta.Load(row, []any{"a", nil}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", int64(7)}, v)
}

func TestTuple_Nested(t *testing.T) {
	grid := meta.Many(meta.Many(meta.Integer(), meta.Exactly(2)), meta.Unbounded())
	c := meta.NewContext(meta.WithMaxErrors(3))
	_, err := meta.Load(grid, []any{[]any{1, 2}, []any{3, "x"}, []any{5}}, c)
	require.Error(t, err)
	assert.Equal(t, []string{"/1/1", "/2"}, c.Errors().Paths())
}

func TestTuple_DoesNotAliasInput(t *testing.T) {
	in := []any{"a", "b"}
	v, err := meta.Load(meta.Many(meta.String(), meta.Unbounded()), in, nil)
	require.NoError(t, err)
	out := v.([]any)
	out[0] = "z"
	assert.Equal(t, "a", in[0])
}

func TestTuple_Cycle(t *testing.T) {
	loop := []any{nil}
	loop[0] = loop
	_, err := meta.Load(meta.Any(), loop, nil)
	assert.ErrorIs(t, err, meta.ErrCycle)
}
