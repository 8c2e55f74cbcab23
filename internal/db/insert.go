package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/city-pulse/internal/geometry"
	"github.com/sells-group/city-pulse/internal/schema"
)

// Dialect selects placeholder syntax and geometry binding.
type Dialect int

const (
	// Postgres binds $n placeholders and parses geometry with PostGIS.
	Postgres Dialect = iota
	// SQLite binds ? placeholders and stores geometry as WKT text.
	SQLite
)

// Bind parameter ceilings per statement.
const (
	postgresMaxParams = 65535
	sqliteMaxParams   = 32766
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// MaxRows returns how many rows of width columns fit in one statement.
func (d Dialect) MaxRows(width int) int {
	limit := postgresMaxParams
	if d == SQLite {
		limit = sqliteMaxParams
	}
	if width <= 0 {
		return limit
	}
	return limit / width
}

func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

func (d Dialect) bind(c schema.Column, n int) string {
	p := d.placeholder(n)
	if c.Geometry && d == Postgres {
		return fmt.Sprintf("ST_GeomFromText(%s, %d)", p, geometry.SRID)
	}
	return p
}

// InsertSQL builds one multi-row INSERT for rows and returns the statement and
// its flattened arguments. Every row must match the table width.
func InsertSQL(d Dialect, t schema.Table, rows [][]any) (string, []any, error) {
	if len(t.Columns) == 0 {
		return "", nil, eris.Errorf("db: insert %s: no columns", t.Name)
	}
	if len(rows) == 0 {
		return "", nil, eris.Errorf("db: insert %s: no rows", t.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", Quote(t.Name), QuoteAndJoin(t.ColumnNames()))

	args := make([]any, 0, len(rows)*len(t.Columns))
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return "", nil, eris.Errorf("db: insert %s: row %d has %d values, want %d", t.Name, i, len(row), len(t.Columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, c := range t.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, row[j])
			b.WriteString(d.bind(c, len(args)))
		}
		b.WriteByte(')')
	}
	return b.String(), args, nil
}

// Chunks splits rows into consecutive slices of at most size rows.
func Chunks(rows [][]any, size int) [][][]any {
	if size <= 0 {
		size = len(rows)
	}
	var out [][][]any
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}

// Quote quotes an identifier. Double quotes work for both dialects.
func Quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = Quote(c)
	}
	return strings.Join(quoted, ", ")
}

// SelectSQL builds a full-table read ordered by id. Postgres geometry columns
// are read back as WKT.
func SelectSQL(d Dialect, t schema.Table) string {
	exprs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		exprs[i] = Quote(c.Name)
		if c.Geometry && d == Postgres {
			exprs[i] = "ST_AsText(" + exprs[i] + ")"
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(exprs, ", "), Quote(t.Name), Quote("id"))
}
