package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/meta"
)

func TestRFC3339_Encode_Time(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	out, err := RFC3339{}.Encode(time.Date(2025, 1, 1, 9, 0, 0, 0, loc), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z", out)
}

func TestRFC3339_Decode_Normalizes(t *testing.T) {
	out, err := RFC3339{}.Decode("2025-01-01T09:00:00.500+09:00", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00.5Z", out)
}

func TestRFC3339_Decode_Invalid(t *testing.T) {
	_, err := RFC3339{}.Decode("yesterday", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, meta.ErrInvalid)

	_, err = RFC3339{}.Decode(42, nil, nil)
	var ie *meta.InvalidError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, meta.CodeInvalidType, ie.Code)
}

func TestParseRFC3339_AcceptsBothForms(t *testing.T) {
	for _, s := range []string{"2025-01-01T00:00:00Z", "2025-01-01T00:00:00.123456789Z"} {
		_, err := parseRFC3339(s)
		assert.NoError(t, err, s)
	}
}
