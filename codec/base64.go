package codec

import (
	"encoding/base64"

	"github.com/reoring/meta"
)

// Base64 encodes text or bytes as padded base64. Decode yields bytes.
type Base64 struct {
	// URL selects the URL-safe alphabet.
	URL bool
}

func (cd Base64) encoding() *base64.Encoding {
	if cd.URL {
		return base64.URLEncoding
	}
	return base64.StdEncoding
}

func (cd Base64) Encode(v any, _ meta.Property, _ *meta.Context) (any, error) {
	switch x := v.(type) {
	case string:
		return cd.encoding().EncodeToString([]byte(x)), nil
	case []byte:
		return cd.encoding().EncodeToString(x), nil
	}
	return nil, meta.Invalidf(meta.CodeInvalidType, "base64 codec expects text, got %T", v)
}

func (cd Base64) Decode(v any, _ meta.Property, _ *meta.Context) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, meta.Invalidf(meta.CodeInvalidType, "base64 codec expects a string, got %T", v)
	}
	b, err := cd.encoding().DecodeString(s)
	if err != nil {
		return nil, &meta.InvalidError{Code: meta.CodeInvalidValue, Hint: "invalid base64", Cause: err}
	}
	return b, nil
}
