package pathexp

import (
	"errors"
	"fmt"
)

// Pattern and generation errors.
var (
	ErrInvalidPattern = errors.New("invalid path pattern")
	ErrMissingParam   = errors.New("missing required parameter")
	ErrParamMismatch  = errors.New("parameter does not match pattern")
)

// SyntaxError describes a pattern that cannot be compiled.
type SyntaxError struct {
	// Pattern is the offending pattern.
	Pattern string

	// Offset is the byte offset where scanning failed, or -1 when the
	// failure came from the regular expression compiler.
	Offset int

	// Reason is a short description of the problem.
	Reason string

	// Err is the underlying regexp error, if any.
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("pathexp: %s in %q", e.Reason, e.Pattern)
	}
	return fmt.Sprintf("pathexp: %s at offset %d in %q", e.Reason, e.Offset, e.Pattern)
}

// Unwrap reports both ErrInvalidPattern and the regexp error.
func (e *SyntaxError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidPattern, e.Err}
	}
	return []error{ErrInvalidPattern}
}

// ParamError describes a parameter that could not be rendered into a path.
type ParamError struct {
	Pattern string
	Name    string
	Value   string

	// Err is ErrMissingParam or ErrParamMismatch.
	Err error
}

func (e *ParamError) Error() string {
	if errors.Is(e.Err, ErrMissingParam) {
		return fmt.Sprintf("pathexp: missing required parameter %q for pattern %q", e.Name, e.Pattern)
	}
	return fmt.Sprintf("pathexp: parameter %q value %q does not match pattern %q", e.Name, e.Value, e.Pattern)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

func syntaxErr(pattern string, offset int, reason string) error {
	return &SyntaxError{Pattern: pattern, Offset: offset, Reason: reason}
}
