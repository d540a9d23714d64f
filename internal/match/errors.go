package match

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec indicates a match spec that is neither a prefix nor a
// range rule.
var ErrInvalidSpec = errors.New("invalid match spec")

func specError(spec string, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidSpec, spec, fmt.Sprintf(format, args...))
}
