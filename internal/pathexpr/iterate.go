package pathexpr

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/stack"
)

// Result is one location visited by an Iterator.
type Result struct {
	Path  string // p with every wildcard replaced by the visited index
	Value any    // nil when the location holds no value
	Found bool
}

// frame records the progress of one wildcard segment.
type frame struct {
	seg    int
	list   *entity.List
	next   int
	prefix []string
}

// Iterator walks the locations matched by a path. Each wildcard segment
// contributes one frame to an explicit stack, so nested wildcards are
// visited like nested loops: the outermost varies slowest.
//
// An Iterator holds no state shared with other iterators and may be
// abandoned at any point.
type Iterator struct {
	root    any
	path    Path
	frames  *stack.Stack[frame]
	started bool
}

// Iterate returns a fresh iterator over root for p.
//
// A path without wildcards yields exactly one Result, whose Value is nil
// when the location is absent. A wildcard over a missing value, or over a
// value that is not a collection, yields nothing for that branch.
func Iterate(root any, p Path) *Iterator {
	return &Iterator{
		root:   root,
		path:   p,
		frames: stack.NewWithCapacity[frame](len(p)),
	}
}

// Next advances the iterator. It reports false once every location has
// been visited.
func (it *Iterator) Next() (Result, bool) {
	if !it.started {
		it.started = true
		if result, ok := it.descend(it.root, 0, nil); ok {
			return result, true
		}
	}

	for !it.frames.IsEmpty() {
		top := it.frames.PeekRef()
		if top.next >= top.list.Len() {
			it.frames.Pop()
			continue
		}

		index := top.next
		top.next++
		element, _ := top.list.At(index)
		from := top.seg + 1
		prefix := append(slices.Clip(top.prefix), it.path[top.seg].Name+"["+strconv.Itoa(index)+"]")

		if result, ok := it.descend(element, from, prefix); ok {
			return result, true
		}
	}

	return Result{}, false
}

// descend follows deterministic segments starting at from. It stops at the
// first wildcard, pushing a frame for it, or at the end of the path, where
// it produces a Result.
func (it *Iterator) descend(value any, from int, prefix []string) (Result, bool) {
	for i := from; i < len(it.path); i++ {
		seg := it.path[i]
		if seg.Selector == SelectWildcard {
			collection, _ := step(value, seg)
			if list, ok := collection.(*entity.List); ok && list.Len() > 0 {
				it.frames.Push(frame{seg: i, list: list, prefix: slices.Clip(prefix)})
			}
			return Result{}, false
		}

		prefix = append(prefix, seg.String())
		value, _ = step(value, seg)
	}

	if entity.IsAbsent(value) {
		value = nil
	}

	return Result{
		Path:  strings.Join(prefix, "."),
		Value: value,
		Found: !entity.IsAbsent(value),
	}, true
}

// All adapts Iterate to a range-over-func sequence. Every call to the
// returned sequence starts a new traversal.
func All(root any, p Path) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		it := Iterate(root, p)
		for {
			result, ok := it.Next()
			if !ok || !yield(result) {
				return
			}
		}
	}
}
