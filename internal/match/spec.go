// Package match compiles textual match specs into rules evaluated against
// finalized entities.
//
// Two spec forms are accepted:
//
//	path:literal    prefix rule, any value under path starting with literal
//	path:NNN-MMM    range rule, any value under path within [NNN, MMM]
//
// Paths may contain wildcards; every location that satisfies a rule is
// recorded in the match Context.
package match

import (
	"strconv"
	"strings"

	"github.com/jacoelho/cnpj/internal/pathexpr"
)

// Kind identifies the rule family of a Spec.
type Kind uint8

const (
	KindPrefix Kind = iota + 1
	KindRange
)

// Spec is the parsed form of a match spec.
type Spec struct {
	Raw     string
	Path    pathexpr.Path
	Kind    Kind
	Literal string // KindPrefix

	// KindRange bounds, inclusive. Width is the number of leading
	// characters of a string value compared against them.
	Start float64
	End   float64
	Width int
}

// ParseSpec parses a single "path:value" spec.
func ParseSpec(input string) (Spec, error) {
	raw := strings.TrimSpace(input)
	sep := strings.IndexByte(raw, ':')
	if sep <= 0 {
		return Spec{}, specError(raw, "expected path:value")
	}

	path, err := pathexpr.Parse(raw[:sep])
	if err != nil {
		return Spec{}, specError(raw, "%v", err)
	}
	if len(path) == 0 {
		return Spec{}, specError(raw, "path is empty")
	}

	spec := Spec{Raw: raw, Path: path}
	value := raw[sep+1:]

	if start, end, ok := splitRange(value); ok {
		lo, err := strconv.ParseFloat(start, 64)
		if err != nil {
			return Spec{}, specError(raw, "invalid range start %q", start)
		}
		hi, err := strconv.ParseFloat(end, 64)
		if err != nil {
			return Spec{}, specError(raw, "invalid range end %q", end)
		}
		if lo > hi {
			return Spec{}, specError(raw, "range start %s exceeds end %s", start, end)
		}
		spec.Kind = KindRange
		spec.Start, spec.End = lo, hi
		spec.Width = max(len(start), len(end))
		return spec, nil
	}

	if value == "" || !isWord(value) {
		return Spec{}, specError(raw, "value must be a word or a NNN-MMM range")
	}
	spec.Kind = KindPrefix
	spec.Literal = value
	return spec, nil
}

// ParseSpecs parses a comma separated list of specs. Blank entries are
// skipped.
func ParseSpecs(input string) ([]Spec, error) {
	var specs []Spec
	for _, part := range strings.Split(input, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		spec, err := ParseSpec(part)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// splitRange recognises digits '-' digits.
func splitRange(value string) (string, string, bool) {
	start, end, found := strings.Cut(value, "-")
	if !found || !isDigits(start) || !isDigits(end) {
		return "", "", false
	}
	return start, end, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
