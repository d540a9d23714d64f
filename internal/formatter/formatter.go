package formatter

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/pathexpr"
)

// ErrInvalidOptions indicates formatter options that cannot be applied.
var ErrInvalidOptions = errors.New("invalid formatter options")

// Formatter defines the interface for the different output formats.
// Implementations own how rows reach their destination.
type Formatter interface {
	// Write emits one finalized entity. mc holds the locations that
	// satisfied the match rules and may be nil.
	Write(e any, mc *match.Context) error
	// Close flushes pending output. It does not close the destination
	// writer.
	Close() error
}

// Options configures every output format. Formats ignore the fields
// that do not apply to them.
type Options struct {
	Paths       []pathexpr.Path
	Separator   string
	Delimiter   string
	Nil         string
	Header      bool
	MatchedOnly bool
	Select      string
	Table       string
}

// Text renders a cell value. Strings are written as they are, numbers in
// their shortest form and nested nodes as JSON.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}

	if entity.IsAbsent(value) {
		return ""
	}
	b, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(b)
}
