// Package geometry converts between in-memory coordinates and the WKT text
// stored in the city schema.
//
// The stored text uses latitude-first axis order (SRID 4326 as MySQL and the
// legacy dashboard expect it): POINT(<lat> <lng>). In memory every coordinate
// is a LngLat. Axis swapping happens only in this package, in both directions
// and for both points and polygons.
package geometry

import (
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// SRID is the spatial reference every stored geometry is tagged with.
const SRID = 4326

// LngLat is a coordinate in decimal degrees.
type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// BBox is an axis-aligned rectangle in decimal degrees.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// BBoxAround returns the square of half-width radius centered on anchor.
func BBoxAround(anchor LngLat, radius float64) BBox {
	return BBox{
		MinLng: anchor.Lng - radius,
		MinLat: anchor.Lat - radius,
		MaxLng: anchor.Lng + radius,
		MaxLat: anchor.Lat + radius,
	}
}

// BBoxOf returns the bounding box of pts. The zero BBox is returned for no points.
func BBoxOf(pts []LngLat) BBox {
	if len(pts) == 0 {
		return BBox{}
	}
	b := BBox{
		MinLng: math.Inf(1), MinLat: math.Inf(1),
		MaxLng: math.Inf(-1), MaxLat: math.Inf(-1),
	}
	for _, p := range pts {
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
	}
	return b
}

// Contains reports whether p lies inside b, edges included.
func (b BBox) Contains(p LngLat) bool {
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// IsZero reports whether b is the zero box.
func (b BBox) IsZero() bool {
	return b == BBox{}
}

// Ring returns the closed five-vertex ring of b, starting and ending at the
// south-west corner and walking north first.
func (b BBox) Ring() []LngLat {
	return []LngLat{
		{Lng: b.MinLng, Lat: b.MinLat},
		{Lng: b.MinLng, Lat: b.MaxLat},
		{Lng: b.MaxLng, Lat: b.MaxLat},
		{Lng: b.MaxLng, Lat: b.MinLat},
		{Lng: b.MinLng, Lat: b.MinLat},
	}
}

// EncodePoint renders p as POINT(<lat> <lng>).
func EncodePoint(p LngLat) string {
	return "POINT(" + formatPair(p) + ")"
}

// EncodePolygon renders the square of half-width radius around anchor as a
// single-ring MULTIPOLYGON with latitude-first vertices.
func EncodePolygon(anchor LngLat, radius float64) string {
	return EncodeBBox(BBoxAround(anchor, radius))
}

// EncodeBBox renders b as a single-ring MULTIPOLYGON.
func EncodeBBox(b BBox) string {
	ring := b.Ring()
	parts := make([]string, len(ring))
	for i, p := range ring {
		parts[i] = formatPair(p)
	}
	return "MULTIPOLYGON(((" + strings.Join(parts, ", ") + ")))"
}

// DecodePoint parses POINT(<lat> <lng>). ok is false for empty or malformed
// text, a non-point geometry, or an empty point.
func DecodePoint(s string) (p LngLat, ok bool) {
	g := unmarshal(s, "POINT")
	pt, isPoint := g.(*geom.Point)
	if !isPoint || pt.Empty() {
		return LngLat{}, false
	}
	c := pt.Coords()
	return LngLat{Lng: c[1], Lat: c[0]}, true
}

// DecodePolygon parses POLYGON((...)) or MULTIPOLYGON(((...))) and returns the
// exterior ring of the first polygon as LngLat vertices. Malformed input
// yields nil.
func DecodePolygon(s string) []LngLat {
	g := unmarshal(s, "POLYGON", "MULTIPOLYGON")

	var poly *geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		poly = t
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil
		}
		poly = t.Polygon(0)
	default:
		return nil
	}
	if poly.NumLinearRings() == 0 {
		return nil
	}

	coords := poly.LinearRing(0).Coords()
	out := make([]LngLat, len(coords))
	for i, c := range coords {
		out[i] = LngLat{Lng: c[1], Lat: c[0]}
	}
	return out
}

// DecodeBBox decodes a polygon and returns its bounding box.
func DecodeBBox(s string) (BBox, bool) {
	ring := DecodePolygon(s)
	if len(ring) == 0 {
		return BBox{}, false
	}
	return BBoxOf(ring), true
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// unmarshal parses s when it starts with one of the given type prefixes.
// Anything else, including parse failures, returns nil.
func unmarshal(s string, prefixes ...string) geom.T {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	upper := strings.ToUpper(s)
	matched := false
	for _, prefix := range prefixes {
		rest, found := strings.CutPrefix(upper, prefix)
		if found && strings.HasPrefix(strings.TrimSpace(rest), "(") {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil
	}
	return g
}

func formatPair(p LngLat) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + " " + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
