// Package flatten projects a nested entity onto rows, one column per path.
//
// Paths are walked in lock-step: row i holds the i-th value yielded by
// every path, so a company with three partners produces three rows whose
// company-level columns are only filled on the first one.
package flatten

import (
	"iter"

	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/pathexpr"
)

// Cell is one column of a row. Path is empty once the column's path has
// no more values.
type Cell struct {
	Path    string
	Value   any
	Present bool
}

// Row is one projected line of an entity.
type Row struct {
	Index int
	Cells []Cell
}

// Matches reports whether any cell location satisfied a rule.
func (r Row) Matches(mc *match.Context) bool {
	for _, cell := range r.Cells {
		if cell.Path != "" && mc.Has(cell.Path) {
			return true
		}
	}
	return false
}

// Values returns the cell values in column order.
func (r Row) Values() []any {
	values := make([]any, len(r.Cells))
	for i, cell := range r.Cells {
		values[i] = cell.Value
	}
	return values
}

type Flattener struct {
	paths  []pathexpr.Path
	header []string
}

func New(paths []pathexpr.Path) *Flattener {
	header := make([]string, len(paths))
	for i, p := range paths {
		header[i] = p.String()
	}
	return &Flattener{paths: paths, header: header}
}

// Header returns the column names, the paths as written.
func (f *Flattener) Header() []string {
	return f.header
}

// Rows lazily yields the rows of root. Iteration ends after the first
// round in which no path produced a value.
func (f *Flattener) Rows(root any) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		iterators := make([]*pathexpr.Iterator, len(f.paths))
		for i, p := range f.paths {
			iterators[i] = pathexpr.Iterate(root, p)
		}

		for index := 0; ; index++ {
			row := Row{Index: index, Cells: make([]Cell, len(iterators))}
			advanced := false
			for i, it := range iterators {
				result, ok := it.Next()
				if !ok {
					continue
				}
				advanced = true
				row.Cells[i] = Cell{Path: result.Path, Value: result.Value, Present: result.Found}
			}
			if !advanced {
				return
			}
			if !yield(row) {
				return
			}
		}
	}
}
