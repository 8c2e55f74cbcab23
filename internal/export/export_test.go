package export

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
	"github.com/sells-group/city-pulse/internal/synth"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// Tabular timestamps carry no zone and parse as local time.
var fixtureNow = time.Date(2025, 6, 14, 22, 0, 0, 0, time.Local)

func fixtureDataset(t *testing.T) *model.Dataset {
	t.Helper()
	profile, err := synth.DefaultProfile()
	require.NoError(t, err)
	g := synth.NewGenerator(profile, rand.New(rand.NewPCG(7, 8)),
		synth.WithClock(func() time.Time { return fixtureNow }))
	ds, err := g.Generate(synth.Counts{DiningVenues: 30, LeisureVenues: 12, Days: 1, Alerts: 5})
	require.NoError(t, err)
	return ds
}

func roundTrip(t *testing.T, ds *model.Dataset,
	write func(*bytes.Buffer, schema.Layout, [][]any) error,
	read func(*bytes.Buffer, schema.Layout) ([][]any, error),
) *model.Dataset {
	t.Helper()
	rows := make(map[string][][]any)
	for _, tbl := range Tabulate(ds) {
		var buf bytes.Buffer
		require.NoError(t, write(&buf, tbl.Layout, tbl.Rows))
		got, err := read(&buf, tbl.Layout)
		require.NoError(t, err, tbl.Layout.Name)
		rows[tbl.Layout.Name] = got
	}
	out, err := Assemble(rows)
	require.NoError(t, err)
	return out
}

func TestCSV_RoundTrip(t *testing.T) {
	ds := fixtureDataset(t)
	got := roundTrip(t, ds,
		func(b *bytes.Buffer, l schema.Layout, r [][]any) error { return WriteCSV(b, l, r) },
		func(b *bytes.Buffer, l schema.Layout) ([][]any, error) { return ReadCSV(b, l) },
	)
	assert.Equal(t, ds, got)
}

func TestJSON_RoundTrip(t *testing.T) {
	ds := fixtureDataset(t)
	got := roundTrip(t, ds,
		func(b *bytes.Buffer, l schema.Layout, r [][]any) error { return WriteJSON(b, l, r) },
		func(b *bytes.Buffer, l schema.Layout) ([][]any, error) { return ReadJSON(b, l) },
	)
	assert.Equal(t, ds, got)
}

func TestWriteCSV_NullsAreEmptyCells(t *testing.T) {
	venue := model.DiningVenue{ID: 1, Name: "Lao Ma", RegionID: 2, PriceMin: 30, PriceAvg: 60, PriceMax: 90, OpenDate: fixtureNow}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, schema.DiningSheet.Layout, schema.DiningSheet.Rows([]model.DiningVenue{venue})))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(schema.DiningSheet.Header(), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Lao Ma,,"), lines[1])
}

func TestWriteJSON_Shape(t *testing.T) {
	event := "festival"
	signals := []model.SignalRecord{
		{ID: 1, Timestamp: fixtureNow, Hour: 22, RegionID: 1, Weather: "clear", Date: "2025-06-14", Time: "22:00:00"},
		{ID: 2, Timestamp: fixtureNow, Hour: 22, RegionID: 2, Weather: "rain", SpecialEvent: &event, Date: "2025-06-14", Time: "22:00:00"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, schema.SignalSheet.Layout, schema.SignalSheet.Rows(signals)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[\n  {\"id\": 1, "), out)
	assert.Contains(t, out, `"special_event": null`)
	assert.Contains(t, out, `"special_event": "festival"`)
	assert.Contains(t, out, `"timestamp": "2025-06-14 22:00:00"`)
}

func TestWriteJSON_TagsAsList(t *testing.T) {
	leisure := []model.LeisureVenue{{ID: 1, Name: "Jiaotong", Tags: []string{"opera", "mahjong"}}}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, schema.LeisureSheet.Layout, schema.LeisureSheet.Rows(leisure)))
	assert.Contains(t, buf.String(), `"cultural_tags": ["opera","mahjong"]`)
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, schema.AlertSheet.Layout, nil))
	assert.Equal(t, "[]\n", buf.String())

	rows, err := ReadJSON(&buf, schema.AlertSheet.Layout)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadJSON_MissingNullableKey(t *testing.T) {
	in := `[{"id": 3, "name": "Shancheng", "brand_id": null}]`
	l := schema.Layout{Name: "mini", Fields: []schema.Field{
		{Name: "id", Kind: schema.KindInt},
		{Name: "name", Kind: schema.KindString},
		{Name: "brand_id", Kind: schema.KindNullableInt},
		{Name: "special_event", Kind: schema.KindNullableString},
	}}
	rows, err := ReadJSON(strings.NewReader(in), l)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{3, "Shancheng", nil, nil}}, rows)

	_, err = ReadJSON(strings.NewReader(`[{"name": "x"}]`), l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field id")
}

func TestReadCSV_Errors(t *testing.T) {
	l := schema.AlertSheet.Layout

	_, err := ReadCSV(strings.NewReader(""), l)
	assert.ErrorContains(t, err, "is empty")

	_, err = ReadCSV(strings.NewReader("id,alert_type,alert_time,content,impact_value,active\n"), l)
	assert.ErrorContains(t, err, "header column 2")

	header := strings.Join(l.Header(), ",")
	_, err = ReadCSV(strings.NewReader(header+"\nx,2025-06-14 21:00:00,traffic,jam,+10%,true\n"), l)
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadCSV(strings.NewReader(header+"\n1,2\n"), l)
	assert.Error(t, err)
}

func TestWorkbook_RoundTrip(t *testing.T) {
	ds := fixtureDataset(t)
	path := filepath.Join(t.TempDir(), WorkbookFile)
	require.NoError(t, WriteWorkbook(path, Tabulate(ds)))

	rows, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Len(t, rows, 6)

	got, err := Assemble(rows)
	require.NoError(t, err)
	assert.Equal(t, ds, got)
}

func TestShapefiles(t *testing.T) {
	ds := fixtureDataset(t)
	dir := t.TempDir()

	paths, err := WriteShapefiles(dir, ds)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		assert.FileExists(t, strings.TrimSuffix(p, ".shp")+".dbf")
		assert.FileExists(t, strings.TrimSuffix(p, ".shp")+".prj")
		assert.NoFileExists(t, strings.TrimSuffix(p, ".shp")+"dbf")
	}

	regions, err := ReadShapefile(filepath.Join(dir, "regions.shp"))
	require.NoError(t, err)
	require.Len(t, regions, len(ds.Regions))
	first := regions[0]
	assert.Equal(t, ds.Regions[0].Name, first.Attrs["name"])
	assert.Equal(t, ds.Regions[0].ID, first.AttrInt("id"))
	require.Len(t, first.Points, 5)
	assert.Equal(t, ds.Regions[0].Boundary.Ring(), first.Points)

	dining, err := ReadShapefile(filepath.Join(dir, "dining_venues.shp"))
	require.NoError(t, err)
	require.Len(t, dining, len(ds.DiningVenues))
	for i, f := range dining {
		v := ds.DiningVenues[i]
		require.Len(t, f.Points, 1)
		assert.Equal(t, v.Location, f.Points[0])
		assert.Equal(t, v.PriceAvg, f.AttrInt("price_avg"))
		if v.BrandID == nil {
			assert.Zero(t, f.AttrInt("brand_id"))
		} else {
			assert.Equal(t, *v.BrandID, f.AttrInt("brand_id"))
		}
	}

	leisure, err := ReadShapefile(filepath.Join(dir, "leisure_venues.shp"))
	require.NoError(t, err)
	require.Len(t, leisure, len(ds.LeisureVenues))
	assert.Equal(t, strings.Join(ds.LeisureVenues[0].Tags, ";"), leisure[0].Attrs["tags"])
}

func TestShapefiles_AttributesReadBack(t *testing.T) {
	ds := fixtureDataset(t)
	dir := t.TempDir()
	_, err := WriteShapefiles(dir, ds)
	require.NoError(t, err)

	regions, err := ReadShapefile(filepath.Join(dir, "regions.shp"))
	require.NoError(t, err)
	for i, f := range regions {
		r := ds.Regions[i]
		assert.Equal(t, r.Name, f.Attrs["name"])
		assert.Equal(t, r.Population, f.AttrInt("population"))
		assert.Equal(t, flag(r.HighDensity), f.AttrInt("high_dens"))
	}

	leisure, err := ReadShapefile(filepath.Join(dir, "leisure_venues.shp"))
	require.NoError(t, err)
	for i, f := range leisure {
		assert.Equal(t, ds.LeisureVenues[i].FoundingYear, f.AttrInt("founded"))
		assert.Equal(t, ds.LeisureVenues[i].RegionID, f.AttrInt("region_id"))
	}
}

func TestReadShapefile_MissingDBF(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteShapefiles(dir, fixtureDataset(t))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "dining_venues.dbf")))

	_, err = ReadShapefile(filepath.Join(dir, "dining_venues.shp"))
	assert.ErrorContains(t, err, "shapefile: attributes")
}

func TestWriteDir_AllFormats(t *testing.T) {
	ds := fixtureDataset(t)
	dir := filepath.Join(t.TempDir(), "out")

	m, err := WriteDir(dir, ds, AllFormats, Manifest{RunID: "run-1", GeneratedAt: fixtureNow, Seed: 7})
	require.NoError(t, err)
	assert.Len(t, m.Files, 6+6+1+3)
	assert.Equal(t, len(ds.DiningVenues), m.Counts["dining_venues"])

	read, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-1", read.RunID)
	assert.Equal(t, uint64(7), read.Seed)
	assert.Equal(t, m.Files, read.Files)

	for _, f := range []Format{FormatCSV, FormatJSON, FormatXLSX} {
		got, err := ReadDir(dir, f)
		require.NoError(t, err, f)
		assert.Equal(t, ds, got, f)
	}

	_, err = ReadDir(dir, FormatShapefile)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestConvertDir(t *testing.T) {
	ds := fixtureDataset(t)
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "json")

	_, err := WriteDir(src, ds, []Format{FormatCSV}, Manifest{RunID: "run-2"})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(src, "alerts.csv")))

	counts, err := ConvertDir(src, dst)
	require.NoError(t, err)
	assert.Len(t, counts, 5)
	assert.NotContains(t, counts, "alerts")
	assert.Equal(t, len(ds.Signals), counts["signal_records"])

	got, err := ReadDir(dst, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, ds.DiningVenues, got.DiningVenues)
	assert.Empty(t, got.Alerts)
}

func TestConvertDir_NoFiles(t *testing.T) {
	_, err := ConvertDir(t.TempDir(), t.TempDir())
	assert.ErrorContains(t, err, "no table csv files")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("parquet")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}
