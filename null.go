package meta

// null is the type of Null. It is comparable, so v == Null works on any
// interface value.
type null struct{}

// Null marks a field that is present but explicitly empty. It is distinct
// from absence (a nil value), which means the field was omitted.
//
// Dumping Null yields a JSON null; loading a JSON null into an optional field
// stores Null so that the two states round-trip separately.
var Null = null{}

// IsNull reports whether v is the Null sentinel.
func IsNull(v any) bool { return v == any(Null) }

func (null) String() string { return "Null" }

func (null) GoString() string { return "meta.Null" }

// MarshalJSON renders Null as a JSON null.
func (null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalYAML renders Null as a YAML null.
func (null) MarshalYAML() (any, error) { return nil, nil }

// isEmpty reports whether v is absent or Null.
func isEmpty(v any) bool { return v == nil || IsNull(v) }
