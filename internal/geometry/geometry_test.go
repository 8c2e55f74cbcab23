package geometry

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePoint_LatitudeFirst(t *testing.T) {
	assert.Equal(t, "POINT(29.563 106.551)", EncodePoint(LngLat{Lng: 106.551, Lat: 29.563}))
}

func TestDecodePoint_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for range 500 {
		in := LngLat{
			Lng: Round(105.5+rng.Float64()*2, 7),
			Lat: Round(28.5+rng.Float64()*2, 7),
		}
		out, ok := DecodePoint(EncodePoint(in))
		require.True(t, ok)
		assert.Equal(t, in, out)
	}
}

func TestDecodePoint_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"wrong prefix", "LINESTRING(1 2, 3 4)"},
		{"polygon", "MULTIPOLYGON(((1 2, 3 4, 5 6, 1 2)))"},
		{"one token", "POINT(29.5)"},
		{"not numeric", "POINT(abc def)"},
		{"no parens", "POINT 29.5 106.5"},
		{"empty point", "POINT EMPTY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := DecodePoint(tt.in)
			assert.False(t, ok)
			assert.Equal(t, LngLat{}, p)
		})
	}
}

func TestEncodePolygon_ClosedLatitudeFirstRing(t *testing.T) {
	got := EncodePolygon(LngLat{Lng: 106.5, Lat: 29.5}, 0.25)
	assert.Equal(t, "MULTIPOLYGON(((29.25 106.25, 29.75 106.25, 29.75 106.75, 29.25 106.75, 29.25 106.25)))", got)
}

func TestDecodePolygon_MultiPolygonRoundTrip(t *testing.T) {
	anchor := LngLat{Lng: 106.5512345, Lat: 29.5634567}
	ring := DecodePolygon(EncodePolygon(anchor, 0.15))
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
	assert.Equal(t, BBoxAround(anchor, 0.15).Ring(), ring)
}

func TestDecodePolygon_PlainPolygon(t *testing.T) {
	ring := DecodePolygon("POLYGON((29 106, 30 106, 30 107, 29 107, 29 106))")
	require.Len(t, ring, 5)
	assert.Equal(t, LngLat{Lng: 106, Lat: 29}, ring[0])
	assert.Equal(t, LngLat{Lng: 106, Lat: 30}, ring[1])
}

func TestDecodePolygon_Malformed(t *testing.T) {
	for _, in := range []string{"", "POINT(1 2)", "POLYGON((1 2, 3", "MULTIPOLYGON(((a b)))"} {
		assert.Nil(t, DecodePolygon(in), in)
	}
}

func TestDecodeBBox(t *testing.T) {
	b := BBox{MinLng: 106.1, MinLat: 29.1, MaxLng: 106.4, MaxLat: 29.3}
	got, ok := DecodeBBox(EncodeBBox(b))
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = DecodeBBox("garbage")
	assert.False(t, ok)
}

func TestBBox_Contains(t *testing.T) {
	b := BBoxAround(LngLat{Lng: 106, Lat: 29}, 0.3)
	assert.True(t, b.Contains(LngLat{Lng: 106, Lat: 29}))
	assert.True(t, b.Contains(LngLat{Lng: 106.3, Lat: 28.7}))
	assert.False(t, b.Contains(LngLat{Lng: 106.31, Lat: 29}))
	assert.False(t, BBox{}.Contains(LngLat{Lng: 1, Lat: 1}))
}

func TestBBoxOf(t *testing.T) {
	assert.True(t, BBoxOf(nil).IsZero())
	b := BBoxOf([]LngLat{{Lng: 2, Lat: 5}, {Lng: -1, Lat: 7}, {Lng: 0, Lat: 3}})
	assert.Equal(t, BBox{MinLng: -1, MinLat: 3, MaxLng: 2, MaxLat: 7}, b)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 106.1234568, Round(106.12345678, 7))
	assert.Equal(t, 2.3, Round(2.25, 1))
}
