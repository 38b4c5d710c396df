package meta

import (
	"errors"
	"log/slog"
	"reflect"
)

// errStop is passed to marker.close when a scope unwinds because the error
// budget of the context is spent.
var errStop = errors.New("meta: stop")

// errTree is the in-progress error structure of a call: a leaf for a single
// fault or a node keyed by field name or index.
type errTree interface {
	walk(at pointer, fn func(pointer, *errLeaf))
}

type errLeaf struct {
	value any
	err   error
}

func (l *errLeaf) walk(at pointer, fn func(pointer, *errLeaf)) { fn(at, l) }

type errEntry struct {
	key  any // nil is the scope itself
	tree errTree
}

type errNode struct {
	entries []errEntry
}

func (n *errNode) set(key any, t errTree) {
	for i := range n.entries {
		if n.entries[i].key == key {
			n.entries[i].tree = t
			return
		}
	}
	n.entries = append(n.entries, errEntry{key: key, tree: t})
}

// child returns the node under key, creating it when missing.
func (n *errNode) child(key any) *errNode {
	for _, e := range n.entries {
		if e.key == key {
			if c, ok := e.tree.(*errNode); ok {
				return c
			}
		}
	}
	c := &errNode{}
	n.set(key, c)
	return c
}

func (n *errNode) walk(at pointer, fn func(pointer, *errLeaf)) {
	for _, e := range n.entries {
		if e.key == nil {
			e.tree.walk(at, fn)
			continue
		}
		e.tree.walk(at.Key(e.key), fn)
	}
}

// marker is one traversal scope. Faults met inside the scope are recorded with
// fail; close must be called exactly once on every path out of the scope.
type marker struct {
	ctx     *Context
	value   any
	id      any
	tracked bool
	pending *errNode
	last    error
}

// openMarker enters a scope over value. With check set, the identity of
// value joins the cycle guard and a value already in the guard is a cycle.
func openMarker(c *Context, value any, check bool) (*marker, error) {
	if c == nil {
		c = implicitContext()
	}
	m := &marker{ctx: c, value: value}
	if check {
		if id, ok := identity(value); ok {
			if _, seen := c.guard[id]; seen {
				c.logger.Debug("reference cycle", slog.String("type", reflect.TypeOf(value).String()))
				return nil, ErrCycle
			}
			c.guard[id] = struct{}{}
			m.id, m.tracked = id, true
		}
	}
	return m, nil
}

// visited reports whether v is being traversed by an enclosing scope.
func (m *marker) visited(v any) bool {
	id, ok := identity(v)
	if !ok {
		return false
	}
	_, seen := m.ctx.guard[id]
	return seen
}

// fail records err under key. It reports whether the scope must stop, either
// because err is fatal or because the error budget is spent.
func (m *marker) fail(key, value any, err error) bool {
	m.last = err
	if isFatal(err) {
		return true
	}
	if m.pending == nil {
		m.pending = &errNode{}
	}
	if m.ctx.errtree == nil {
		m.pending.set(key, &errLeaf{value: value, err: err})
		m.ctx.errcnt++
		m.ctx.logger.Debug("issue recorded", slog.Any("key", key), slog.String("code", codeOf(err)), slog.Int("count", m.ctx.errcnt))
	} else {
		m.pending.set(key, m.ctx.errtree)
		m.ctx.errtree = nil
	}
	if m.ctx.errcnt >= m.ctx.maxErrors {
		m.ctx.logger.Debug("error budget spent", slog.Int("max", m.ctx.maxErrors))
		return true
	}
	return false
}

// close leaves the scope. err is the fault that ended the scope early, errStop
// after fail asked to stop, or nil. The returned error is what the scope's
// caller must report.
func (m *marker) close(err error) error {
	if m.tracked {
		delete(m.ctx.guard, m.id)
	}
	switch {
	case err == nil:
		if m.pending != nil {
			m.ctx.errtree = m.pending
			return m.last
		}
		return nil
	case err == errStop:
		if m.pending != nil {
			m.ctx.errtree = m.pending
		}
		return m.last
	case isFatal(err):
		if m.pending != nil {
			m.ctx.errtree = m.pending
		}
		return err
	}
	if m.ctx.errtree == nil {
		leaf := &errLeaf{value: m.value, err: err}
		m.ctx.errcnt++
		if m.pending != nil {
			m.pending.set(nil, leaf)
			m.ctx.errtree = m.pending
		} else {
			m.ctx.errtree = leaf
		}
	} else if m.pending != nil {
		m.pending.set(nil, m.ctx.errtree)
		m.ctx.errtree = m.pending
	}
	return err
}

type identityKey struct {
	t   reflect.Type
	ptr uintptr
	n   int
}

// identity returns a comparable key for values that can take part in a
// reference cycle: pointers, maps and non-empty slices.
func identity(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return nil, false
		}
		return identityKey{t: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return nil, false
		}
		return identityKey{t: rv.Type(), ptr: rv.Pointer(), n: rv.Len()}, true
	}
	return nil, false
}
