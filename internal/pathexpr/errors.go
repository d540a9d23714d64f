package pathexpr

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax indicates a malformed path expression.
	ErrSyntax = errors.New("pathexpr: syntax error")

	// ErrUnresolvable indicates a write whose container does not exist.
	ErrUnresolvable = errors.New("pathexpr: cannot resolve target")

	// ErrWildcardWrite indicates a write through a wildcard segment.
	ErrWildcardWrite = errors.New("pathexpr: wildcard segment is not writable")
)

func syntaxError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}
