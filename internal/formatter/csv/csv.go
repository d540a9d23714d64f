// Package csv writes flattened entities as delimited text.
package csv

import (
	"bufio"
	"io"
	"strings"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/flatten"
	"github.com/jacoelho/cnpj/internal/formatter"
	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/number"
)

// Formatter writes one line per flattened row. Text fields are wrapped in
// the delimiter, numeric fields are written bare and absent fields are
// replaced by the nil token.
type Formatter struct {
	writer      *bufio.Writer
	flattener   *flatten.Flattener
	separator   string
	delimiter   string
	nilToken    string
	header      bool
	matchedOnly bool
	started     bool
}

// New creates a formatter writing to w.
func New(w io.Writer, opts formatter.Options) formatter.Formatter {
	return &Formatter{
		writer:      bufio.NewWriter(w),
		flattener:   flatten.New(opts.Paths),
		separator:   opts.Separator,
		delimiter:   opts.Delimiter,
		nilToken:    opts.Nil,
		header:      opts.Header || opts.MatchedOnly,
		matchedOnly: opts.MatchedOnly,
	}
}

func (f *Formatter) Write(e any, mc *match.Context) error {
	if err := f.start(); err != nil {
		return err
	}

	for row := range f.flattener.Rows(e) {
		if f.matchedOnly && !row.Matches(mc) {
			continue
		}
		if err := f.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Close writes the header when no entity was written and flushes.
func (f *Formatter) Close() error {
	if err := f.start(); err != nil {
		return err
	}
	return f.writer.Flush()
}

func (f *Formatter) start() error {
	if f.started {
		return nil
	}
	f.started = true
	if !f.header {
		return nil
	}

	for i, name := range f.flattener.Header() {
		if i > 0 {
			if _, err := f.writer.WriteString(f.separator); err != nil {
				return err
			}
		}
		if _, err := f.writer.WriteString(f.quote(name)); err != nil {
			return err
		}
	}
	return f.writer.WriteByte('\n')
}

func (f *Formatter) writeRow(row flatten.Row) error {
	for i, cell := range row.Cells {
		if i > 0 {
			if _, err := f.writer.WriteString(f.separator); err != nil {
				return err
			}
		}
		if _, err := f.writer.WriteString(f.field(cell.Value)); err != nil {
			return err
		}
	}
	return f.writer.WriteByte('\n')
}

func (f *Formatter) field(value any) string {
	switch {
	case entity.IsAbsent(value):
		return f.nilToken
	case number.IsNumeric(value):
		return formatter.Text(value)
	default:
		return f.quote(formatter.Text(value))
	}
}

// quote wraps s in the delimiter, doubling any delimiter inside it.
func (f *Formatter) quote(s string) string {
	if f.delimiter == "" {
		return s
	}
	return f.delimiter + strings.ReplaceAll(s, f.delimiter, f.delimiter+f.delimiter) + f.delimiter
}
