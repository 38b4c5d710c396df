package meta

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expr rejects loaded values for which the boolean expression src is false.
// The value is bound to the name value, as in `len(value) <= 16`.
// A compile error is a declaration error of the property.
func Expr(src string) Option {
	program, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	return func(s *Spec) {
		if err != nil {
			s.err = fmt.Errorf("%w: expression %q: %v", ErrSchema, src, err)
			return
		}
		prev := s.check
		s.check = func(v any) error {
			if prev != nil {
				if err := prev(v); err != nil {
					return err
				}
			}
			return runExpr(program, src, map[string]any{"value": v})
		}
	}
}

// CheckExpr adds a relational hook evaluating src with every stored field
// bound by key. Unset and null fields are nil.
func (b *Builder) CheckExpr(src string) *Builder {
	program, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return b.fail("expression %q: %v", src, err)
	}
	return b.Check(func(e *Entity, _ *Context) error {
		env := make(map[string]any, len(e.typ.fields))
		for _, f := range e.typ.fields {
			v, err := e.Get(f.key)
			if err != nil {
				return err
			}
			if !IsNull(v) {
				env[f.key] = v
			}
		}
		return runExpr(program, src, env)
	})
}

func runExpr(program *vm.Program, src string, env map[string]any) error {
	out, err := vm.Run(program, env)
	if err != nil {
		return Invalidf(CodeRejected, "%s: %v", src, err)
	}
	if ok, _ := out.(bool); !ok {
		return Invalid(CodeRejected, src)
	}
	return nil
}
