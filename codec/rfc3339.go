package codec

import (
	"time"

	"github.com/reoring/meta"
)

// RFC3339 normalizes timestamps to canonical RFC 3339 text in UTC. Encode
// accepts time.Time or a timestamp string; Decode accepts a timestamp string.
type RFC3339 struct{}

func (RFC3339) Encode(v any, _ meta.Property, _ *meta.Context) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return formatRFC3339Canonical(x), nil
	case string:
		t, err := parseRFC3339(x)
		if err != nil {
			return nil, &meta.InvalidError{Code: meta.CodeInvalidValue, Hint: "invalid RFC3339 time", Cause: err}
		}
		return formatRFC3339Canonical(t), nil
	}
	return nil, meta.Invalidf(meta.CodeInvalidType, "rfc3339 codec expects a time, got %T", v)
}

func (RFC3339) Decode(v any, _ meta.Property, _ *meta.Context) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, meta.Invalidf(meta.CodeInvalidType, "rfc3339 codec expects a string, got %T", v)
	}
	t, err := parseRFC3339(s)
	if err != nil {
		return nil, &meta.InvalidError{Code: meta.CodeInvalidValue, Hint: "invalid RFC3339 time", Cause: err}
	}
	return formatRFC3339Canonical(t), nil
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
