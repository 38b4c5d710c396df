package meta

import (
	"bytes"
	"encoding/json"
	"io"
)

type dupFrame struct {
	object  bool
	path    []any
	keys    map[string]struct{}
	wantKey bool
	key     string
	index   int
}

// duplicateKeys scans a JSON document token by token and returns the path of
// every object member whose key repeats an earlier key of the same object.
func duplicateKeys(b []byte) ([][]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var (
		out   [][]any
		stack []*dupFrame
	)
	top := func() *dupFrame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}
	// childPath is the location of the value about to start.
	childPath := func() []any {
		f := top()
		if f == nil {
			return nil
		}
		var k any = f.index
		if f.object {
			k = f.key
		}
		return append(append([]any{}, f.path...), k)
	}
	// valueDone moves the enclosing container past a finished value.
	valueDone := func() {
		if f := top(); f != nil {
			if f.object {
				f.wantKey = true
			} else {
				f.index++
			}
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				stack = append(stack, &dupFrame{
					object:  v == '{',
					path:    childPath(),
					keys:    map[string]struct{}{},
					wantKey: v == '{',
				})
			default:
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if f := top(); f != nil && f.object && f.wantKey {
				if _, seen := f.keys[v]; seen {
					out = append(out, append(append([]any{}, f.path...), v))
				}
				f.keys[v] = struct{}{}
				f.key, f.wantKey = v, false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

// reportDuplicates records a duplicate_key issue at each path, within the
// error budget of c, and returns the last one.
func reportDuplicates(c *Context, paths [][]any) error {
	root := &errNode{}
	var last error
	for _, path := range paths {
		n := root
		for _, k := range path[:len(path)-1] {
			n = n.child(k)
		}
		last = Invalidf(CodeDuplicateKey, "%v", path[len(path)-1])
		n.set(path[len(path)-1], &errLeaf{value: Null, err: last})
		c.errcnt++
		if c.errcnt >= c.maxErrors {
			break
		}
	}
	c.errtree = root
	return last
}
