package codec

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/meta"
)

// YAML turns a dumped value into a YAML document and back.
type YAML struct {
	// Indent is the number of spaces per level; 0 means 4, yaml.v3's default.
	Indent int
}

func (cd YAML) Encode(v any, _ meta.Property, _ *meta.Context) (any, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	if cd.Indent > 0 {
		enc.SetIndent(cd.Indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return sb.String(), nil
}

func (YAML) Decode(v any, _ meta.Property, _ *meta.Context) (any, error) {
	var b []byte
	switch x := v.(type) {
	case string:
		b = []byte(x)
	case []byte:
		b = x
	default:
		return nil, meta.Invalidf(meta.CodeInvalidType, "yaml codec expects text, got %T", v)
	}
	out, err := meta.DecodeYAML(b)
	if err != nil {
		return nil, &meta.InvalidError{Code: meta.CodeParseError, Cause: err}
	}
	return out, nil
}
