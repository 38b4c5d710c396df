package meta

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/meta/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType          = "invalid_type"
	CodeInvalidValue         = "invalid_value"
	CodeRequired             = "required"
	CodeUnknownKey           = "unknown_key"
	CodeLengthMismatch       = "length_mismatch"
	CodeHiddenValue          = "hidden_value"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeUnionNoMatch         = "union_no_match"
	CodeRejected             = "rejected"
	CodeRelation             = "relation"
	CodeParseError           = "parse_error"
	CodeDuplicateKey         = "duplicate_key"
)

// Fatal faults. They abort the whole call and are never accumulated into the
// issue list of a Context.
var (
	// ErrCycle reports a self-referential structure met during a guarded traversal.
	ErrCycle = errors.New("meta: reference cycle")
	// ErrUnresolved reports a forward reference whose target was never registered.
	ErrUnresolved = errors.New("meta: unresolved reference")
	// ErrUnknownCodec reports a codec name missing from both registries.
	ErrUnknownCodec = errors.New("meta: unknown codec")
	// ErrUnknownKey reports map-style access with a key outside the schema.
	ErrUnknownKey = errors.New("meta: unknown key")
	// ErrBinding reports a property bound to a second key.
	ErrBinding = errors.New("meta: multiple binding")
	// ErrReadOnly reports an assignment to a discriminator field.
	ErrReadOnly = errors.New("meta: read-only field")
	// ErrFrozen reports an attribute assignment on a frozen entity type.
	ErrFrozen = errors.New("meta: frozen entity")
	// ErrSchema reports an invalid schema declaration.
	ErrSchema = errors.New("meta: invalid schema")
)

// ErrInvalid is matched (errors.Is) by every validation fault.
var ErrInvalid = errors.New("meta: invalid")

// InvalidError is a validation fault: a value or structure failed a type or
// relational constraint. It is recoverable and accumulates in a Context.
type InvalidError struct {
	Code  string
	Hint  string
	Cause error
}

func (e *InvalidError) Error() string {
	msg := i18n.T(e.Code, nil)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both ErrInvalid and the underlying cause.
func (e *InvalidError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalid}
	}
	return []error{ErrInvalid, e.Cause}
}

// Invalid returns a validation fault with the given code and hint.
func Invalid(code, hint string) error { return &InvalidError{Code: code, Hint: hint} }

// Invalidf is Invalid with a formatted hint.
func Invalidf(code, format string, args ...any) error {
	return &InvalidError{Code: code, Hint: fmt.Sprintf(format, args...)}
}

func isFatal(err error) bool {
	return errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrUnresolved) ||
		errors.Is(err, ErrUnknownCodec) ||
		errors.Is(err, ErrUnknownKey) ||
		errors.Is(err, ErrBinding) ||
		errors.Is(err, ErrReadOnly) ||
		errors.Is(err, ErrFrozen) ||
		errors.Is(err, ErrSchema)
}

// codeOf maps an error to an issue code. Foreign errors surface as parse errors.
func codeOf(err error) string {
	var ie *InvalidError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return CodeParseError
}

// Issue is one accumulated error record.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price); "" is the root.
	Code    string // One of the codes listed above.
	Message string
	// Value is the offending value. Null means the key itself was the
	// problem (missing or disallowed) rather than its value.
	Value any
	Cause error
}

// KeyProblem reports whether the issue concerns the key at Path rather than
// the value stored under it.
func (it Issue) KeyProblem() bool { return IsNull(it.Value) }

func (it Issue) String() string {
	mark := ""
	if it.KeyProblem() {
		mark = "?"
	}
	return fmt.Sprintf("%s(%s%s)", it.Code, it.Path, mark)
}

// Issues is a collection of error records that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Paths returns the location of every issue, in order.
func (iss Issues) Paths() []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Path
	}
	return out
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
