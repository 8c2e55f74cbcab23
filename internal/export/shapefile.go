package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/city-pulse/internal/geometry"
	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
)

// wgs84PRJ is the projection sidecar for SRID 4326.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// layer describes one shapefile: dbf field names are limited to 10 bytes.
type layer struct {
	name   string
	kind   shp.ShapeType
	fields []shp.Field
	n      int
	shape  func(i int) shp.Shape
	attrs  func(i int) []any
}

// WriteShapefiles writes regions as polygons and both venue kinds as points
// into dir, with x = longitude and y = latitude. It returns the .shp paths.
func WriteShapefiles(dir string, ds *model.Dataset) ([]string, error) {
	layers := []layer{regionLayer(ds.Regions), diningLayer(ds.DiningVenues), leisureLayer(ds.LeisureVenues)}
	paths := make([]string, 0, len(layers))
	for _, l := range layers {
		path := filepath.Join(dir, l.name+".shp")
		if err := writeLayer(path, l); err != nil {
			return nil, err
		}
		paths = append(paths, path)
		zap.L().Debug("wrote shapefile",
			zap.String("component", "export.shapefile"),
			zap.String("path", path),
			zap.Int("features", l.n),
		)
	}
	return paths, nil
}

func writeLayer(path string, l layer) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	w, err := shp.Create(path, l.kind)
	if err != nil {
		return eris.Wrapf(err, "shapefile: create %s", path)
	}
	err = writeFeatures(w, l)
	w.Close()
	if err != nil {
		return err
	}

	// go-shp names the attribute table <base>dbf with no dot.
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "shapefile: rename dbf for %s", l.name)
	}
	if err := os.WriteFile(base+".prj", []byte(wgs84PRJ), 0o644); err != nil {
		return eris.Wrapf(err, "shapefile: write %s.prj", base)
	}
	return nil
}

func writeFeatures(w *shp.Writer, l layer) error {
	if err := w.SetFields(l.fields); err != nil {
		return eris.Wrapf(err, "shapefile: set fields %s", l.name)
	}
	for i := 0; i < l.n; i++ {
		row := int(w.Write(l.shape(i)))
		for j, v := range l.attrs(i) {
			if err := w.WriteAttribute(row, j, v); err != nil {
				return eris.Wrapf(err, "shapefile: %s row %d field %d", l.name, i, j)
			}
		}
	}
	return nil
}

func point(p geometry.LngLat) *shp.Point {
	return &shp.Point{X: p.Lng, Y: p.Lat}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func regionLayer(regions []model.Region) layer {
	return layer{
		name: schema.TableRegions,
		kind: shp.POLYGON,
		fields: []shp.Field{
			shp.NumberField("id", 10),
			shp.StringField("name", 64),
			shp.FloatField("density", 12, 2),
			shp.NumberField("population", 10),
			shp.FloatField("vitality", 6, 1),
			shp.NumberField("high_dens", 1),
		},
		n: len(regions),
		shape: func(i int) shp.Shape {
			ring := regions[i].Boundary.Ring()
			pts := make([]shp.Point, len(ring))
			for j, p := range ring {
				pts[j] = *point(p)
			}
			poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{pts}))
			return &poly
		},
		attrs: func(i int) []any {
			r := regions[i]
			return []any{r.ID, r.Name, r.Density, r.Population, r.VitalityScore, flag(r.HighDensity)}
		},
	}
}

func diningLayer(dining []model.DiningVenue) layer {
	return layer{
		name: schema.TableDiningVenues,
		kind: shp.POINT,
		fields: []shp.Field{
			shp.NumberField("id", 10),
			shp.StringField("name", 64),
			shp.NumberField("region_id", 10),
			shp.NumberField("brand_id", 10),
			shp.NumberField("price_avg", 6),
			shp.FloatField("rating", 4, 1),
			shp.StringField("category", 16),
			shp.NumberField("active", 1),
		},
		n:     len(dining),
		shape: func(i int) shp.Shape { return point(dining[i].Location) },
		attrs: func(i int) []any {
			v := dining[i]
			// 0 marks an independent venue; brand ids start at 1.
			brand := 0
			if v.BrandID != nil {
				brand = *v.BrandID
			}
			return []any{v.ID, v.Name, v.RegionID, brand, v.PriceAvg, v.Rating, v.Category, flag(v.Active)}
		},
	}
}

func leisureLayer(leisure []model.LeisureVenue) layer {
	return layer{
		name: schema.TableLeisureVenues,
		kind: shp.POINT,
		fields: []shp.Field{
			shp.NumberField("id", 10),
			shp.StringField("name", 64),
			shp.NumberField("region_id", 10),
			shp.NumberField("founded", 4),
			shp.NumberField("historic", 1),
			shp.StringField("community", 16),
			shp.StringField("tags", 128),
		},
		n:     len(leisure),
		shape: func(i int) shp.Shape { return point(leisure[i].Location) },
		attrs: func(i int) []any {
			v := leisure[i]
			return []any{v.ID, v.Name, v.RegionID, v.FoundingYear, flag(v.Historic), v.CommunityType, strings.Join(v.Tags, ";")}
		},
	}
}

// Feature is one shapefile record with its vertices and trimmed attributes.
type Feature struct {
	Points []geometry.LngLat
	Attrs  map[string]string
}

// ReadShapefile reads every record of a point or polygon shapefile.
func ReadShapefile(path string) ([]Feature, error) {
	dbf := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
	if _, err := os.Stat(dbf); err != nil {
		return nil, eris.Wrapf(err, "shapefile: attributes for %s", path)
	}
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var out []Feature
	for reader.Next() {
		_, shape := reader.Shape()
		f := Feature{Attrs: make(map[string]string, len(names))}
		switch s := shape.(type) {
		case *shp.Point:
			f.Points = []geometry.LngLat{{Lng: s.X, Lat: s.Y}}
		case *shp.Polygon:
			for _, p := range s.Points {
				f.Points = append(f.Points, geometry.LngLat{Lng: p.X, Lat: p.Y})
			}
		default:
			return nil, eris.Errorf("shapefile: unsupported shape %T in %s", shape, path)
		}
		for i, name := range names {
			f.Attrs[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		out = append(out, f)
	}
	return out, nil
}

// AttrInt parses an integer attribute, returning 0 when absent or malformed.
func (f Feature) AttrInt(name string) int {
	n, _ := strconv.Atoi(f.Attrs[name])
	return n
}
