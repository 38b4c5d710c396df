package meta

import (
	"reflect"
	"slices"
	"time"
)

// deepEqual compares in-memory values structurally. Entities compare by
// stored data, unions by active value, numbers by value across widths.
func deepEqual(a, b any) bool {
	return equalSeen(a, b, map[[2]uintptr]bool{})
}

func equalSeen(a, b any, seen map[[2]uintptr]bool) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case *Entity:
		y, ok := b.(*Entity)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if x == y {
			return true
		}
		pair := [2]uintptr{reflect.ValueOf(x).Pointer(), reflect.ValueOf(y).Pointer()}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		return equalSeen(x.data, y.data, seen)
	case *Union:
		y, ok := b.(*Union)
		return ok && x != nil && y != nil && equalSeen(x.val, y.val, seen)
	case *Object:
		y, ok := b.(*Object)
		return ok && slices.Equal(x.keys, y.keys) && equalSeen(x.vals, y.vals, seen)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !equalSeen(v, w, seen) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equalSeen(x[i], y[i], seen) {
				return false
			}
		}
		return true
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
