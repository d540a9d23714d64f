package match

import (
	"slices"

	"github.com/jacoelho/cnpj/internal/entity"
)

// Mode selects how the rules of a Set combine.
type Mode uint8

const (
	// ModeAnd requires every rule, stopping at the first miss.
	ModeAnd Mode = iota
	// ModeOr requires one rule, stopping at the first hit.
	ModeOr
)

func (m Mode) String() string {
	if m == ModeOr {
		return "or"
	}
	return "and"
}

// Context collects the absolute paths that satisfied a rule while
// evaluating one entity, and the result of every rule that was run.
type Context struct {
	paths    []string
	seen     map[string]struct{}
	outcomes []Outcome
}

// Outcome is the result of one evaluated rule. Paths holds the locations
// the rule was first to record.
type Outcome struct {
	Rule    string
	Matched bool
	Paths   []string
}

func NewContext() *Context {
	return &Context{seen: make(map[string]struct{})}
}

// Record adds path once, keeping first-seen order.
func (c *Context) Record(path string) {
	if _, ok := c.seen[path]; ok {
		return
	}
	c.seen[path] = struct{}{}
	c.paths = append(c.paths, path)
}

// Has reports whether path satisfied any rule. A nil context has no paths.
func (c *Context) Has(path string) bool {
	if c == nil {
		return false
	}
	_, ok := c.seen[path]
	return ok
}

func (c *Context) Paths() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.paths)
}

func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.paths)
}

// Outcomes returns the evaluated rules in evaluation order. Rules skipped
// by short-circuiting are absent.
func (c *Context) Outcomes() []Outcome {
	if c == nil {
		return nil
	}
	return slices.Clone(c.outcomes)
}

// Set is the configured combination of rules.
type Set struct {
	rules []Rule
	mode  Mode
}

// NewSet combines rules with mode.
func NewSet(mode Mode, rules ...Rule) *Set {
	return &Set{rules: rules, mode: mode}
}

// ParseSet compiles a comma separated list of specs.
func ParseSet(specs string, mode Mode) (*Set, error) {
	parsed, err := ParseSpecs(specs)
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, len(parsed))
	for i, spec := range parsed {
		rules[i] = Compile(spec)
	}
	return NewSet(mode, rules...), nil
}

func (s *Set) Len() int {
	return len(s.rules)
}

func (s *Set) Mode() Mode {
	return s.mode
}

// Evaluate applies the rules to candidate in order. With no rules every
// present candidate matches. The returned context holds the paths
// recorded up to the point evaluation stopped.
func (s *Set) Evaluate(candidate any) (bool, *Context) {
	mc := NewContext()
	if entity.IsAbsent(candidate) {
		return false, mc
	}

	result := true
	for _, rule := range s.rules {
		before := len(mc.paths)
		result = rule.Match(candidate, mc)
		mc.outcomes = append(mc.outcomes, Outcome{
			Rule:    rule.String(),
			Matched: result,
			Paths:   slices.Clone(mc.paths[before:]),
		})
		if !result && s.mode == ModeAnd {
			break
		}
		if result && s.mode == ModeOr {
			break
		}
	}
	return result, mc
}
