package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateKeys(t *testing.T) {
	tests := []struct {
		doc  string
		want [][]any
	}{
		{`{"a":1,"b":2}`, nil},
		{`{"a":1,"a":2}`, [][]any{{"a"}}},
		{`{"a":{"x":1,"x":2},"b":[{"k":1},{"k":2,"k":3}]}`, [][]any{{"a", "x"}, {"b", 1, "k"}}},
		{`[{"a":"a"},{"a":"b","b":"a"}]`, nil},
		{`{"a":[1,{"b":1,"b":{}}],"a":null}`, [][]any{{"a", 1, "b"}, {"a"}}},
	}
	for _, tt := range tests {
		got, err := duplicateKeys([]byte(tt.doc))
		require.NoError(t, err, tt.doc)
		assert.Equal(t, tt.want, got, tt.doc)
	}

	_, err := duplicateKeys([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestLoadJSON_DuplicateKeys(t *testing.T) {
	typ := NewEntity("Pair").
		Field("a", Integer()).
		Field("b", Any()).
		MustBuild()
	doc := []byte(`{"a":1,"b":{"x":1,"x":2},"a":2}`)

	e, err := typ.LoadJSON(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.MustGet("a"))

	c := NewContext(WithStrict(true), WithMaxErrors(10))
	_, err = typ.LoadJSON(doc, c)
	require.Error(t, err)
	iss := c.Errors()
	assert.Equal(t, []string{"/b/x", "/a"}, iss.Paths())
	for _, it := range iss {
		assert.Equal(t, CodeDuplicateKey, it.Code)
		assert.True(t, it.KeyProblem())
	}

	c = NewContext(WithStrict(true))
	_, err = typ.LoadJSON(doc, c)
	require.Error(t, err)
	assert.Len(t, c.Errors(), 1)
}
