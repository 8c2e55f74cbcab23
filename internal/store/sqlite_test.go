package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/city-pulse/internal/schema"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func countRows(t *testing.T, st *SQLiteStore, table string) int {
	t.Helper()
	var n int
	require.NoError(t, st.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_LoadAndReadBack(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	ds := fixtureDataset(t)

	_, err := LoadDataset(ctx, st, ds, LoadOptions{BatchSize: 7})
	require.NoError(t, err)

	got, err := Snapshot(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, ds.Counts(), got.Counts())

	for i, r := range got.Regions {
		want := ds.Regions[i]
		assert.Equal(t, want.Name, r.Name)
		assert.Equal(t, want.Center, r.Center)
		assert.InDelta(t, want.Boundary.MinLng, r.Boundary.MinLng, 1e-9)
		assert.InDelta(t, want.Boundary.MaxLat, r.Boundary.MaxLat, 1e-9)
		assert.Equal(t, want.HighDensity, r.HighDensity)
		assert.True(t, want.CreatedAt.Equal(r.CreatedAt))
	}
	for i, v := range got.DiningVenues {
		want := ds.DiningVenues[i]
		assert.Equal(t, want.BrandID, v.BrandID)
		assert.Equal(t, want.Location, v.Location)
		assert.Equal(t, want.PriceAvg, v.PriceAvg)
		assert.Equal(t, want.Active, v.Active)
		assert.True(t, want.OpenDate.Equal(v.OpenDate))
	}
	for i, v := range got.LeisureVenues {
		assert.Equal(t, ds.LeisureVenues[i].Tags, v.Tags)
	}
	for i, s := range got.Signals {
		want := ds.Signals[i]
		assert.Equal(t, want.SpecialEvent, s.SpecialEvent)
		assert.Equal(t, want.Date, s.Date)
		assert.True(t, want.Timestamp.Equal(s.Timestamp))
	}
	for i, a := range got.Alerts {
		assert.Equal(t, ds.Alerts[i].Type, a.Type)
		assert.Equal(t, ds.Alerts[i].Active, a.Active)
	}
}

func TestSQLite_InsertTwiceConflicts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	rows := schema.RegionTable.Rows(fixtureDataset(t).Regions)

	n, err := st.InsertBatch(ctx, schema.RegionTable.Table, rows, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(len(rows)), n)

	_, err = st.InsertBatch(ctx, schema.RegionTable.Table, rows, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "--clear")

	require.NoError(t, st.ClearTable(ctx, schema.TableRegions))
	_, err = st.InsertBatch(ctx, schema.RegionTable.Table, rows, 10)
	require.NoError(t, err)
	assert.Equal(t, len(rows), countRows(t, st, schema.TableRegions))
}

func TestSQLite_ConflictRollsBackEveryChunk(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	rows := schema.RegionTable.Rows(fixtureDataset(t).Regions)

	_, err := st.InsertBatch(ctx, schema.RegionTable.Table, rows[:5], 10)
	require.NoError(t, err)

	// The first chunks are new rows; the last chunk repeats region 1.
	second := append(append([][]any{}, rows[5:12]...), rows[0])
	_, err = st.InsertBatch(ctx, schema.RegionTable.Table, second, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 5, countRows(t, st, schema.TableRegions))
}

func TestSQLite_LoadDatasetWithClearIsRepeatable(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	ds := fixtureDataset(t)

	_, err := LoadDataset(ctx, st, ds, LoadOptions{Clear: true})
	require.NoError(t, err)
	_, err = LoadDataset(ctx, st, ds, LoadOptions{Clear: true})
	require.NoError(t, err)

	_, err = LoadDataset(ctx, st, ds, LoadOptions{})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, len(ds.Signals), countRows(t, st, schema.TableSignals))
}

func TestSQLite_ClearParentRemovesReferencingRows(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	ds := fixtureDataset(t)

	_, err := LoadDataset(ctx, st, ds, LoadOptions{})
	require.NoError(t, err)

	require.NoError(t, st.ClearTable(ctx, schema.TableRegions))
	for _, table := range []string{schema.TableRegions, schema.TableDiningVenues, schema.TableLeisureVenues, schema.TableSignals} {
		assert.Zero(t, countRows(t, st, table), table)
	}
	assert.Equal(t, len(ds.Brands), countRows(t, st, schema.TableBrands))
	assert.Equal(t, len(ds.Alerts), countRows(t, st, schema.TableAlerts))

	n, err := st.InsertBatch(ctx, schema.RegionTable.Table, schema.RegionTable.Rows(ds.Regions), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(len(ds.Regions)), n)

	require.NoError(t, st.ClearTable(ctx, schema.TableBrands))
	assert.Zero(t, countRows(t, st, schema.TableBrands))
	assert.Equal(t, len(ds.Regions), countRows(t, st, schema.TableRegions))
}

func TestSQLite_UnknownTable(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.ClearTable(context.Background(), "sqlite_master")
	assert.True(t, errors.Is(err, ErrUnknownTable))

	_, err = st.InsertBatch(context.Background(), schema.Table{Name: "users"}, [][]any{{1}}, 1)
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestSQLite_EmptyInsertIsNoop(t *testing.T) {
	st := newTestSQLiteStore(t)
	n, err := st.InsertBatch(context.Background(), schema.AlertTable.Table, nil, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_EmptyTablesReadAsEmptySlices(t *testing.T) {
	st := newTestSQLiteStore(t)
	regions, err := st.Regions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, regions)
	assert.Empty(t, regions)
}
