package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/city-pulse/internal/schema"
)

var testTable = schema.Table{
	Name: "leisure_venues",
	Columns: []schema.Column{
		{Name: "id"},
		{Name: "name"},
		{Name: "location", Geometry: true},
	},
}

func TestInsertSQL_Postgres(t *testing.T) {
	rows := [][]any{
		{1, "a", "POINT(29.5 106.5)"},
		{2, "b", "POINT(29.6 106.6)"},
	}
	sql, args, err := InsertSQL(Postgres, testTable, rows)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "leisure_venues" ("id", "name", "location") VALUES `+
			`($1, $2, ST_GeomFromText($3, 4326)), ($4, $5, ST_GeomFromText($6, 4326))`,
		sql)
	assert.Equal(t, []any{1, "a", "POINT(29.5 106.5)", 2, "b", "POINT(29.6 106.6)"}, args)
}

func TestInsertSQL_SQLite(t *testing.T) {
	sql, args, err := InsertSQL(SQLite, testTable, [][]any{{1, "a", "POINT(29.5 106.5)"}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "leisure_venues" ("id", "name", "location") VALUES (?, ?, ?)`, sql)
	assert.Len(t, args, 3)
}

func TestInsertSQL_Errors(t *testing.T) {
	_, _, err := InsertSQL(Postgres, testTable, nil)
	assert.ErrorContains(t, err, "no rows")

	_, _, err = InsertSQL(Postgres, schema.Table{Name: "x"}, [][]any{{1}})
	assert.ErrorContains(t, err, "no columns")

	_, _, err = InsertSQL(SQLite, testTable, [][]any{{1, "short"}})
	assert.ErrorContains(t, err, "has 2 values, want 3")
}

func TestChunks(t *testing.T) {
	rows := [][]any{{1}, {2}, {3}, {4}, {5}}

	chunks := Chunks(rows, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, [][]any{{5}}, chunks[2])

	assert.Len(t, Chunks(rows, 0), 1)
	assert.Len(t, Chunks(rows, 10), 1)
	assert.Empty(t, Chunks(nil, 3))
}

func TestDialect_MaxRows(t *testing.T) {
	assert.Equal(t, 65535/16, Postgres.MaxRows(16))
	assert.Equal(t, 32766/11, SQLite.MaxRows(11))
	assert.Equal(t, "sqlite", SQLite.String())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"regions"`, Quote("regions"))
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
	assert.Equal(t, `"id", "name"`, QuoteAndJoin([]string{"id", "name"}))
}

func TestSelectSQL(t *testing.T) {
	assert.Equal(t,
		`SELECT "id", "name", ST_AsText("location") FROM "leisure_venues" ORDER BY "id"`,
		SelectSQL(Postgres, testTable))
	assert.Equal(t,
		`SELECT "id", "name", "location" FROM "leisure_venues" ORDER BY "id"`,
		SelectSQL(SQLite, testTable))
}
