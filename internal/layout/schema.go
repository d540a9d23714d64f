// Package layout declares fixed-width record layouts and decodes records
// into an accumulation tree.
//
// A layout maps the first byte of every record to a record definition: the
// structural actions to run, the path receiving the record fields, and the
// byte window of each field.
package layout

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	yaml "github.com/goccy/go-yaml"
	"golang.org/x/text/encoding"

	"github.com/jacoelho/cnpj/internal/pathexpr"
)

//go:embed cnpj.yaml
var defaultLayout []byte

// Schema is a complete record layout.
type Schema struct {
	FrameSize int                `yaml:"frame_size"`
	Encoding  string             `yaml:"encoding,omitempty"`
	Flush     []Action           `yaml:"flush,omitempty"`
	Summary   string             `yaml:"summary,omitempty"` // object holding the trailer totals
	Records   map[string]*Record `yaml:"records"`

	byType  map[byte]*Record
	charset encoding.Encoding
	summary pathexpr.Path
}

// Record describes one record type. An ignored record is counted but
// produces no effect.
type Record struct {
	Ignore  bool     `yaml:"ignore,omitempty"`
	Actions []Action `yaml:"actions,omitempty"`
	Target  string   `yaml:"target,omitempty"`
	Fields  []Field  `yaml:"fields,omitempty"`

	target pathexpr.Path
}

// Action is a structural step run before field extraction. Exactly one of
// Swap, Allocate and Stop is set.
type Action struct {
	Swap     *Swap  `yaml:"swap,omitempty"`
	Allocate string `yaml:"allocate,omitempty"`
	Stop     bool   `yaml:"stop,omitempty"`

	kind actionKind
	from pathexpr.Path
	to   pathexpr.Path
}

// Swap moves the entity at From to To, handing it downstream, and starts a
// fresh entity at From.
type Swap struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Field is a fixed-width window of a record, or a collection initialiser.
type Field struct {
	Name       string `yaml:"name"`
	Start      int    `yaml:"start,omitempty"` // 1-based byte offset
	Length     int    `yaml:"length,omitempty"`
	Trim       *bool  `yaml:"trim,omitempty"` // defaults to true
	Collection bool   `yaml:"collection,omitempty"`
}

type actionKind uint8

const (
	actionSwap actionKind = iota + 1
	actionAllocate
	actionStop
)

// Trimmed reports whether surrounding whitespace is removed from the value.
func (f Field) Trimmed() bool {
	return f.Trim == nil || *f.Trim
}

// Default returns the built-in CNPJ export layout.
func Default() *Schema {
	schema, err := Load(bytes.NewReader(defaultLayout))
	if err != nil {
		panic(fmt.Sprintf("layout: built-in layout is invalid: %v", err))
	}
	return schema
}

// LoadFile reads and compiles a YAML layout file.
func LoadFile(filename string) (*Schema, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open layout %s: %w", filename, err)
	}
	defer f.Close()

	schema, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", filename, err)
	}
	return schema, nil
}

// Load decodes and compiles a YAML layout.
func Load(r io.Reader) (*Schema, error) {
	var schema Schema
	if err := yaml.NewDecoder(r).Decode(&schema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	if err := schema.compile(); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Encode renders the layout as YAML.
func (s *Schema) Encode(w io.Writer) error {
	payload, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	_, err = w.Write(payload)
	return err
}

// SetEncoding overrides the character set used to decode field values.
func (s *Schema) SetEncoding(name string) error {
	charset, err := lookupEncoding(name)
	if err != nil {
		return err
	}
	s.Encoding = name
	s.charset = charset
	return nil
}

// Lookup returns the definition registered for a record discriminant.
func (s *Schema) Lookup(discriminant byte) (*Record, bool) {
	record, ok := s.byType[discriminant]
	return record, ok
}

// SummaryPath returns the location of the trailer totals, or nil when
// the layout declares none.
func (s *Schema) SummaryPath() pathexpr.Path {
	return s.summary
}

func (s *Schema) compile() error {
	if s.FrameSize <= 0 {
		return fmt.Errorf("%w: frame_size must be positive, got %d", ErrInvalidLayout, s.FrameSize)
	}
	if len(s.Records) == 0 {
		return fmt.Errorf("%w: no records declared", ErrInvalidLayout)
	}

	charset, err := lookupEncoding(s.Encoding)
	if err != nil {
		return err
	}
	s.charset = charset

	if s.Summary != "" {
		summary, err := parseWritable(s.Summary)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		s.summary = summary
	}

	for i := range s.Flush {
		if err := s.Flush[i].compile(); err != nil {
			return fmt.Errorf("flush action %d: %w", i, err)
		}
	}

	s.byType = make(map[byte]*Record, len(s.Records))
	for key, record := range s.Records {
		if len(key) != 1 {
			return fmt.Errorf("%w: record type %q must be a single character", ErrInvalidLayout, key)
		}
		if record == nil {
			record = &Record{Ignore: true}
			s.Records[key] = record
		}
		if err := record.compile(s.FrameSize); err != nil {
			return fmt.Errorf("record %q: %w", key, err)
		}
		s.byType[key[0]] = record
	}

	return nil
}

func (r *Record) compile(frameSize int) error {
	if r.Ignore {
		if len(r.Actions) > 0 || len(r.Fields) > 0 {
			return fmt.Errorf("%w: ignored record declares actions or fields", ErrInvalidLayout)
		}
		return nil
	}

	for i := range r.Actions {
		if err := r.Actions[i].compile(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}

	target, err := parseWritable(r.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	r.target = target

	seen := make(map[string]struct{}, len(r.Fields))
	for _, field := range r.Fields {
		if err := field.validate(frameSize); err != nil {
			return err
		}
		if _, dup := seen[field.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidLayout, field.Name)
		}
		seen[field.Name] = struct{}{}
	}

	return nil
}

func (a *Action) compile() error {
	set := 0
	if a.Swap != nil {
		set++
		from, err := parseWritable(a.Swap.From)
		if err != nil {
			return fmt.Errorf("swap from: %w", err)
		}
		to, err := parseWritable(a.Swap.To)
		if err != nil {
			return fmt.Errorf("swap to: %w", err)
		}
		if len(from) == 0 || len(to) == 0 {
			return fmt.Errorf("%w: swap requires from and to", ErrInvalidLayout)
		}
		a.kind, a.from, a.to = actionSwap, from, to
	}
	if a.Allocate != "" {
		set++
		path, err := parseWritable(a.Allocate)
		if err != nil {
			return fmt.Errorf("allocate: %w", err)
		}
		a.kind, a.to = actionAllocate, path
	}
	if a.Stop {
		set++
		a.kind = actionStop
	}

	if set != 1 {
		return fmt.Errorf("%w: an action sets exactly one of swap, allocate, stop", ErrInvalidLayout)
	}
	return nil
}

func (f Field) validate(frameSize int) error {
	path, err := pathexpr.Parse(f.Name)
	if err != nil || len(path) != 1 || path[0].Selector != pathexpr.SelectNone {
		return fmt.Errorf("%w: invalid field name %q", ErrInvalidLayout, f.Name)
	}

	if f.Collection {
		if f.Start != 0 || f.Length != 0 {
			return fmt.Errorf("%w: collection field %q cannot declare a byte window", ErrInvalidLayout, f.Name)
		}
		return nil
	}

	if f.Start < 1 || f.Length < 1 {
		return fmt.Errorf("%w: field %q needs start >= 1 and length >= 1", ErrInvalidLayout, f.Name)
	}
	if end := f.Start - 1 + f.Length; end > frameSize {
		return fmt.Errorf("%w: field %q ends at byte %d beyond frame size %d", ErrInvalidLayout, f.Name, end, frameSize)
	}
	return nil
}

func parseWritable(expr string) (pathexpr.Path, error) {
	path, err := pathexpr.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if path.HasWildcard() {
		return nil, fmt.Errorf("%w: %q cannot contain a wildcard", ErrInvalidLayout, expr)
	}
	return path, nil
}
