package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/pathexpr"
)

// State is the accumulation tree threaded through every decoded record.
type State struct {
	Root *entity.Object
}

// NewState returns an empty accumulation tree.
func NewState() *State {
	return &State{Root: entity.NewObject()}
}

// Outcome reports what decoding a record did.
type Outcome struct {
	Type         byte
	Ignored      bool
	Unregistered bool
	Stop         bool

	// Finalized is the entity handed downstream by a swap, nil otherwise.
	// Ownership moves to the caller.
	Finalized any
}

// Decoder applies a Schema to raw records.
type Decoder struct {
	schema *Schema
	logger *slog.Logger
}

// NewDecoder returns a decoder for schema. A nil logger uses slog.Default.
func NewDecoder(schema *Schema, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{schema: schema, logger: logger}
}

// Summary returns the trailer totals object, when the layout names one
// and the stream produced it.
func (d *Decoder) Summary(state *State) (any, bool) {
	path := d.schema.SummaryPath()
	if len(path) == 0 {
		return nil, false
	}
	return pathexpr.Resolve(state.Root, path)
}

// FrameSize is the exact size of a record.
func (d *Decoder) FrameSize() int {
	return d.schema.FrameSize
}

// Decode applies the definition selected by the first byte of record to
// state. Only ErrShortRecord and charset failures are returned; unresolved
// write targets are logged and skipped.
func (d *Decoder) Decode(state *State, record []byte) (Outcome, error) {
	if len(record) < d.schema.FrameSize {
		return Outcome{}, fmt.Errorf("%w (%d < %d bytes)", ErrShortRecord, len(record), d.schema.FrameSize)
	}
	record = record[:d.schema.FrameSize]

	outcome := Outcome{Type: record[0]}
	def, ok := d.schema.Lookup(record[0])
	if !ok {
		outcome.Unregistered = true
		return outcome, nil
	}
	if def.Ignore {
		outcome.Ignored = true
		return outcome, nil
	}

	if err := d.run(state, def.Actions, &outcome); err != nil {
		return outcome, err
	}

	target, _ := pathexpr.Resolve(state.Root, def.target)
	obj, ok := target.(*entity.Object)
	if !ok || obj == nil {
		d.logger.Debug("cannot resolve record target", "type", string(record[0]), "path", def.target.String())
		return outcome, nil
	}

	for _, field := range def.Fields {
		if field.Collection {
			obj.Set(field.Name, entity.NewList())
			continue
		}

		value, err := d.extract(record, field)
		if err != nil {
			return outcome, err
		}
		// repeated sub-records share field names; keep earlier values
		if value != "" {
			obj.Set(field.Name, value)
		}
	}

	return outcome, nil
}

// Flush runs the end-of-stream actions, finalizing the entity still being
// built.
func (d *Decoder) Flush(state *State) (Outcome, error) {
	var outcome Outcome
	err := d.run(state, d.schema.Flush, &outcome)
	return outcome, err
}

func (d *Decoder) extract(record []byte, field Field) (string, error) {
	start := field.Start - 1
	window := record[start : start+field.Length]

	decoded, err := d.schema.charset.NewDecoder().Bytes(window)
	if err != nil {
		return "", fmt.Errorf("decode field %q: %w", field.Name, err)
	}

	value := string(decoded)
	if field.Trimmed() {
		value = strings.TrimSpace(value)
	}
	return value, nil
}

func (d *Decoder) run(state *State, actions []Action, outcome *Outcome) error {
	for _, action := range actions {
		switch action.kind {
		case actionSwap:
			finalized, err := d.swap(state, action)
			if err != nil {
				return err
			}
			if finalized != nil {
				outcome.Finalized = finalized
			}
		case actionAllocate:
			if err := d.allocate(state, action.to); err != nil {
				return err
			}
		case actionStop:
			outcome.Stop = true
		}
	}
	return nil
}

func (d *Decoder) swap(state *State, action Action) (any, error) {
	current, found := pathexpr.Resolve(state.Root, action.from)
	if found {
		if err := d.recoverable(pathexpr.Attribute(state.Root, action.to, current), action.to); err != nil {
			return nil, err
		}
	}

	if err := d.allocate(state, action.from); err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}
	return current, nil
}

// allocate starts a new empty object at p, appending it when p holds a
// collection.
func (d *Decoder) allocate(state *State, p pathexpr.Path) error {
	current, _ := pathexpr.Resolve(state.Root, p)
	if list, ok := current.(*entity.List); ok {
		list.Append(entity.NewObject())
		return nil
	}

	return d.recoverable(pathexpr.Attribute(state.Root, p, entity.NewObject()), p)
}

// recoverable logs write failures caused by missing containers and reports
// every other error.
func (d *Decoder) recoverable(err error, p pathexpr.Path) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pathexpr.ErrUnresolvable) {
		d.logger.Debug("cannot set path", "path", p.String(), "error", err)
		return nil
	}
	return err
}
