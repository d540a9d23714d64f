package pathexpr

import (
	"fmt"

	"github.com/jacoelho/cnpj/internal/entity"
)

// Resolve reads the value addressed by p. It reports false as soon as an
// intermediate or final value is missing; this is not an error. A wildcard
// segment addresses the whole collection it names.
func Resolve(root any, p Path) (any, bool) {
	current := root
	for _, seg := range p {
		next, ok := step(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}

	if entity.IsAbsent(current) {
		return nil, false
	}
	return current, true
}

// Attribute writes value at the location addressed by p. The container of
// the final segment must already exist, otherwise ErrUnresolvable is
// returned and nothing is written.
//
// For name[n] element n is replaced, or appended when n equals the length.
// For name[~] the last element is replaced, or value is appended when the
// collection is empty.
func Attribute(root any, p Path, value any) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrUnresolvable)
	}

	parentPath, last := p.Parent()
	parent, _ := Resolve(root, parentPath)
	obj, ok := parent.(*entity.Object)
	if !ok || obj == nil {
		return fmt.Errorf("%w: %q", ErrUnresolvable, p.String())
	}

	switch last.Selector {
	case SelectNone:
		obj.Set(last.Name, value)
		return nil
	case SelectWildcard:
		return fmt.Errorf("%w: %q", ErrWildcardWrite, p.String())
	}

	current, _ := obj.Get(last.Name)
	list, ok := current.(*entity.List)
	if !ok || list == nil {
		return fmt.Errorf("%w: %q is not a collection", ErrUnresolvable, p.String())
	}

	if last.Selector == SelectLast {
		if list.Len() == 0 {
			list.Append(value)
			return nil
		}
		list.Set(list.Len()-1, value)
		return nil
	}

	if !list.Set(last.Index, value) {
		return fmt.Errorf("%w: %q index out of range (len %d)", ErrUnresolvable, p.String(), list.Len())
	}
	return nil
}

// step descends one segment from value.
func step(value any, seg Segment) (any, bool) {
	obj, ok := value.(*entity.Object)
	if !ok || obj == nil {
		return nil, false
	}

	field, ok := obj.Get(seg.Name)
	if !ok || entity.IsAbsent(field) {
		return nil, false
	}

	switch seg.Selector {
	case SelectIndex:
		list, ok := field.(*entity.List)
		if !ok {
			return nil, false
		}
		return list.At(seg.Index)
	case SelectLast:
		list, ok := field.(*entity.List)
		if !ok {
			return nil, false
		}
		return list.Last()
	default:
		return field, true
	}
}
