// Package entity holds the node types of the accumulation tree built while
// decoding a record stream.
//
// A tree is made of *Object (named fields kept in insertion order), *List
// (ordered elements) and scalar leaves, usually strings.
package entity

import (
	"bytes"
	"encoding/json"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a property bag that remembers field insertion order.
type Object struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{fields: orderedmap.New[string, any]()}
}

// Get returns the value stored under name.
func (o *Object) Get(name string) (any, bool) {
	if o == nil {
		return nil, false
	}
	return o.fields.Get(name)
}

// Set stores value under name, keeping the original position when the
// field already exists.
func (o *Object) Set(name string, value any) {
	o.fields.Set(name, value)
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return o.fields.Len()
}

// Keys returns field names in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}

	keys := make([]string, 0, o.fields.Len())
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON encodes the object with fields in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}

	var b bytes.Buffer
	b.WriteByte('{')
	first := true
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			b.WriteByte(',')
		}
		first = false

		key, err := marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// List is an ordered collection. It is always handled by pointer so that
// appends are visible to every holder of the reference.
type List struct {
	items []any
}

// NewList returns a list holding items.
func NewList(items ...any) *List {
	return &List{items: slices.Clone(items)}
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns element i.
func (l *List) At(i int) (any, bool) {
	if l == nil || i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// Last returns the final element.
func (l *List) Last() (any, bool) {
	return l.At(l.Len() - 1)
}

func (l *List) Append(value any) {
	l.items = append(l.items, value)
}

// Set replaces element i. Setting i == Len appends.
func (l *List) Set(i int, value any) bool {
	switch {
	case i >= 0 && i < len(l.items):
		l.items[i] = value
		return true
	case i == len(l.items):
		l.items = append(l.items, value)
		return true
	default:
		return false
	}
}

func (l *List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	if l.items == nil {
		return []byte("[]"), nil
	}
	return marshal(l.items)
}

// marshal encodes v without HTML escaping; registry names often carry '&'.
func marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

// IsAbsent reports whether v carries no value, including typed nil nodes.
func IsAbsent(v any) bool {
	switch node := v.(type) {
	case nil:
		return true
	case *Object:
		return node == nil
	case *List:
		return node == nil
	default:
		return false
	}
}

// Plain converts a tree into map[string]any / []any values, the shape
// expected by generic JSON tooling.
func Plain(v any) any {
	switch node := v.(type) {
	case *Object:
		if node == nil {
			return nil
		}
		out := make(map[string]any, node.Len())
		for pair := node.fields.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = Plain(pair.Value)
		}
		return out
	case *List:
		if node == nil {
			return nil
		}
		out := make([]any, len(node.items))
		for i, item := range node.items {
			out[i] = Plain(item)
		}
		return out
	default:
		return v
	}
}
