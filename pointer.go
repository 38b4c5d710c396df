package meta

import (
	"fmt"
	"strconv"
	"strings"
)

// pointer builds JSON Pointer paths (RFC 6901) segment by segment.
type pointer struct {
	parts []string
}

// Field appends an object member name, escaping '~' and '/'.
func (p pointer) Field(name string) pointer {
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return pointer{parts: append(append([]string{}, p.parts...), esc)}
}

// Index appends an array position.
func (p pointer) Index(i int) pointer {
	return pointer{parts: append(append([]string{}, p.parts...), strconv.Itoa(i))}
}

// Key appends a tree key: strings become members, ints become indices.
func (p pointer) Key(key any) pointer {
	switch k := key.(type) {
	case string:
		return p.Field(k)
	case int:
		return p.Index(k)
	default:
		return p.Field(fmt.Sprint(k))
	}
}

// String renders the pointer; the root document is "".
func (p pointer) String() string {
	if len(p.parts) == 0 {
		return ""
	}
	return "/" + strings.Join(p.parts, "/")
}

// SplitPointer decodes a JSON Pointer into its unescaped segments.
func SplitPointer(ptr string) []string {
	if ptr == "" {
		return nil
	}
	raw := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
	}
	return out
}
