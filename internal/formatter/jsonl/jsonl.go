// Package jsonl writes finalized entities as JSON Lines.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/theory/jsonpath"
	"github.com/theory/jsonpath/spec"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/formatter"
	"github.com/jacoelho/cnpj/internal/match"
)

// Formatter writes one JSON document per line. With a selector every
// selected node becomes its own line.
type Formatter struct {
	writer      *bufio.Writer
	encoder     *json.Encoder
	selector    *jsonpath.Path
	matchedOnly bool
}

type envelope struct {
	Entity  any      `json:"entity"`
	Matches []string `json:"matches"`
}

// New creates a formatter writing to w. opts.Select, when set, must be a
// valid JSONPath query.
func New(w io.Writer, opts formatter.Options) (formatter.Formatter, error) {
	f := &Formatter{matchedOnly: opts.MatchedOnly}
	if opts.Select != "" {
		selector, err := jsonpath.Parse(opts.Select)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid select %q: %v", formatter.ErrInvalidOptions, opts.Select, err)
		}
		f.selector = selector
	}

	f.writer = bufio.NewWriter(w)
	f.encoder = json.NewEncoder(f.writer)
	f.encoder.SetEscapeHTML(false)
	return f, nil
}

func (f *Formatter) Write(e any, mc *match.Context) error {
	if f.selector == nil {
		return f.emit(e, mc)
	}

	// query the plain form, then emit the ordered node at each location
	for _, located := range f.selector.SelectLocated(entity.Plain(e)) {
		node, ok := locate(e, located.Path)
		if !ok {
			node = located.Node
		}
		if err := f.emit(node, mc); err != nil {
			return err
		}
	}
	return nil
}

// locate follows a normalized path through the entity tree.
func locate(value any, path spec.NormalizedPath) (any, bool) {
	for _, sel := range path {
		switch sel := sel.(type) {
		case spec.Name:
			obj, ok := value.(*entity.Object)
			if !ok {
				return nil, false
			}
			if value, ok = obj.Get(string(sel)); !ok {
				return nil, false
			}
		case spec.Index:
			list, ok := value.(*entity.List)
			if !ok {
				return nil, false
			}
			if value, ok = list.At(int(sel)); !ok {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return value, true
}

func (f *Formatter) emit(value any, mc *match.Context) error {
	if !f.matchedOnly {
		return f.encoder.Encode(value)
	}

	matches := mc.Paths()
	if matches == nil {
		matches = []string{}
	}
	return f.encoder.Encode(envelope{Entity: value, Matches: matches})
}

func (f *Formatter) Close() error {
	return f.writer.Flush()
}
