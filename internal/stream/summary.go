package stream

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// Total is one trailer field.
type Total struct {
	Name  string
	Value string
}

// Summary describes a finished run.
type Summary struct {
	Records      int
	Ignored      int
	Unregistered map[string]int
	Entities     int
	Written      int
	Stopped      bool
	Bytes        int64
	Trailer      []Total
	Duration     time.Duration
}

func newSummary() Summary {
	return Summary{Unregistered: make(map[string]int)}
}

// UnregisteredTotal is the number of records whose type had no definition.
func (s Summary) UnregisteredTotal() int {
	total := 0
	for _, n := range s.Unregistered {
		total += n
	}
	return total
}

func (s Summary) RecordsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Records) / s.Duration.Seconds()
}

// Print writes the summary in a human readable form.
func (s Summary) Print(w io.Writer) error {
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 80)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Records:      %d (%.2f/s)\n", s.Records, s.RecordsPerSecond()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Ignored:      %d\n", s.Ignored); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Unregistered: %d\n", s.UnregisteredTotal()); err != nil {
		return err
	}

	types := make([]string, 0, len(s.Unregistered))
	for kind := range s.Unregistered {
		types = append(types, kind)
	}
	slices.Sort(types)
	for _, kind := range types {
		if _, err := fmt.Fprintf(w, "  type %q:    %d\n", kind, s.Unregistered[kind]); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "Entities:     %d\n", s.Entities); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Written:      %d\n", s.Written); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Duration:     %d ms\n", s.Duration.Milliseconds()); err != nil {
		return err
	}

	if len(s.Trailer) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Trailer:"); err != nil {
		return err
	}
	for _, total := range s.Trailer {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", total.Name, total.Value); err != nil {
			return err
		}
	}
	return nil
}
