package match

import (
	"strings"

	"github.com/jacoelho/cnpj/internal/number"
	"github.com/jacoelho/cnpj/internal/pathexpr"
)

// Rule is a compiled predicate over one entity. Match records in mc every
// absolute path that satisfied the rule.
type Rule interface {
	Match(candidate any, mc *Context) bool
	String() string
}

// Compile turns a parsed spec into a Rule.
func Compile(spec Spec) Rule {
	if spec.Kind == KindRange {
		return rangeRule{spec: spec}
	}
	return prefixRule{spec: spec}
}

type prefixRule struct {
	spec Spec
}

func (r prefixRule) Match(candidate any, mc *Context) bool {
	matched := false
	for result := range pathexpr.All(candidate, r.spec.Path) {
		value, ok := result.Value.(string)
		if !ok || !strings.HasPrefix(value, r.spec.Literal) {
			continue
		}
		matched = true
		mc.Record(result.Path)
	}
	return matched
}

func (r prefixRule) String() string {
	return r.spec.Raw
}

type rangeRule struct {
	spec Spec
}

func (r rangeRule) Match(candidate any, mc *Context) bool {
	matched := false
	for result := range pathexpr.All(candidate, r.spec.Path) {
		value, ok := r.numeric(result.Value)
		if !ok || value < r.spec.Start || value > r.spec.End {
			continue
		}
		matched = true
		mc.Record(result.Path)
	}
	return matched
}

// numeric truncates strings to the bound width before parsing them.
// Values that do not parse never match.
func (r rangeRule) numeric(value any) (float64, bool) {
	if s, ok := value.(string); ok {
		return number.ParseDecimal(number.Prefix(s, r.spec.Width))
	}
	return number.ToFloat64(value)
}

func (r rangeRule) String() string {
	return r.spec.Raw
}
