package granite

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType = "invalid_type"
	CodeNull        = "null_value"
	CodeTooSmall    = "too_small"
	CodeTooBig      = "too_big"
	CodeTooShort    = "too_short"
	CodeTooLong     = "too_long"
	CodePattern     = "pattern"
	CodeInvalidEnum = "invalid_enum"
	CodeBadLength   = "bad_length"
)

// Issue is a single validation fault: where it happened, what went wrong,
// and (for container elements) which key or value was being processed.
// Key and Value are optional and nil when not applicable.
type Issue struct {
	Path    string
	Code    string
	Message string
	Key     any
	Value   any
}

// Issues is the aggregated error list gathered during one Validate call.
// It implements error.
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
		fmt.Fprintf(b, "%s at %s: %s", it.Code, it.Path, it.Message)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice
// when needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
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

// SchemaError reports a fault in the schema declaration itself: unknown
// type tag, missing required attribute, conflicting nullable syntax, or an
// attribute the type's handler does not recognize. It is raised during
// compilation and no plan is produced.
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("granite: schema error at `%s`: %s", e.Path, e.Message)
}

func schemaErrf(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// ExecError reports an unexpected fault inside a compiled plan: a defect in
// the compiler or a handler, not a data problem. It carries the path being
// processed and the input value so the defect can be reproduced.
type ExecError struct {
	Path  string
	Input any
	Cause any
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("granite: plan execution fault at `%s` (input %v): %v", e.Path, e.Input, e.Cause)
}
