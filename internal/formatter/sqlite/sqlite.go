// Package sqlite stores flattened entities as rows of a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/flatten"
	"github.com/jacoelho/cnpj/internal/formatter"
	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/number"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "empresas"

// Formatter inserts one row per flattened row. Every entity is written in
// its own transaction and tagged with a sequence number, so the rows of
// one company can be grouped back together.
type Formatter struct {
	ctx         context.Context
	db          *sql.DB
	flattener   *flatten.Flattener
	insert      string
	matchedOnly bool
	seq         int64
}

// New opens dsn and creates the output table when it does not exist. ctx
// bounds every statement issued by the formatter.
func New(ctx context.Context, dsn string, opts formatter.Options) (formatter.Formatter, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if len(opts.Paths) == 0 {
		return nil, fmt.Errorf("%w: no output columns", formatter.ErrInvalidOptions)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	f := &Formatter{
		ctx:         ctx,
		db:          db,
		flattener:   flatten.New(opts.Paths),
		matchedOnly: opts.MatchedOnly,
	}

	create, insert := buildSQL(table, f.flattener.Header())
	if _, err := db.ExecContext(ctx, create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	f.insert = insert
	return f, nil
}

func buildSQL(table string, columns []string) (string, string) {
	var create, insert strings.Builder

	create.WriteString("CREATE TABLE IF NOT EXISTS ")
	create.WriteString(sqlIdent(table))
	create.WriteString(" (entity_seq INTEGER NOT NULL, row_index INTEGER NOT NULL")

	insert.WriteString("INSERT INTO ")
	insert.WriteString(sqlIdent(table))
	insert.WriteString(" (entity_seq, row_index")

	for _, column := range columns {
		create.WriteString(", ")
		create.WriteString(sqlIdent(column))
		create.WriteString(" TEXT")

		insert.WriteString(", ")
		insert.WriteString(sqlIdent(column))
	}
	create.WriteString(")")

	insert.WriteString(") VALUES (?, ?")
	insert.WriteString(strings.Repeat(", ?", len(columns)))
	insert.WriteString(")")

	return create.String(), insert.String()
}

func (f *Formatter) Write(e any, mc *match.Context) error {
	f.seq++

	tx, err := f.db.BeginTx(f.ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(f.ctx, f.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for row := range f.flattener.Rows(e) {
		if f.matchedOnly && !row.Matches(mc) {
			continue
		}

		args := make([]any, 0, len(row.Cells)+2)
		args = append(args, f.seq, row.Index)
		for _, cell := range row.Cells {
			args = append(args, column(cell.Value))
		}
		if _, err := stmt.ExecContext(f.ctx, args...); err != nil {
			return fmt.Errorf("insert entity %d: %w", f.seq, err)
		}
	}

	return tx.Commit()
}

func (f *Formatter) Close() error {
	return f.db.Close()
}

func column(value any) any {
	switch {
	case entity.IsAbsent(value):
		return nil
	case number.IsNumeric(value):
		return value
	default:
		return formatter.Text(value)
	}
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
