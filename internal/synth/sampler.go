// Package synth generates the synthetic city dataset: clustered coordinates,
// diurnal hourly signals, and the six entity collections built from them.
package synth

import (
	"math/rand/v2"

	"github.com/sells-group/city-pulse/internal/geometry"
)

// Jitter applied around a registered anchor, in degrees.
const (
	anchorJitterLng = 0.15
	anchorJitterLat = 0.12
)

// coordPlaces keeps sampled coordinates at roughly centimeter precision.
const coordPlaces = 7

// Sampler draws coordinates inside an envelope, optionally clustered around
// named anchors. A Sampler belongs to one generator and is not safe for
// concurrent use.
type Sampler struct {
	env     Envelope
	rng     *rand.Rand
	anchors map[string]geometry.LngLat
}

// NewSampler returns a Sampler bounded by env.
func NewSampler(env Envelope, rng *rand.Rand) *Sampler {
	return &Sampler{
		env:     env,
		rng:     rng,
		anchors: make(map[string]geometry.LngLat),
	}
}

// RegisterAnchor sets the anchor for name. The last registration wins.
func (s *Sampler) RegisterAnchor(name string, p geometry.LngLat) {
	s.anchors[name] = p
}

// Anchor returns the registered anchor for name.
func (s *Sampler) Anchor(name string) (geometry.LngLat, bool) {
	p, ok := s.anchors[name]
	return p, ok
}

// Sample returns a coordinate near the anchor registered for name, or a
// uniform coordinate over the envelope when name has no anchor. The result is
// clamped into the envelope after jitter, so anchors near an edge pile
// samples onto that edge.
func (s *Sampler) Sample(name string) geometry.LngLat {
	var lng, lat float64
	if a, ok := s.anchors[name]; ok {
		lng = a.Lng + uniform(s.rng, -anchorJitterLng, anchorJitterLng)
		lat = a.Lat + uniform(s.rng, -anchorJitterLat, anchorJitterLat)
	} else {
		lng = uniform(s.rng, s.env.MinLng, s.env.MaxLng)
		lat = uniform(s.rng, s.env.MinLat, s.env.MaxLat)
	}

	lng = clamp(lng, s.env.MinLng, s.env.MaxLng)
	lat = clamp(lat, s.env.MinLat, s.env.MaxLat)

	return geometry.LngLat{
		Lng: geometry.Round(lng, coordPlaces),
		Lat: geometry.Round(lat, coordPlaces),
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// intBetween draws from [lo, hi] inclusive.
func intBetween(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

func choice[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}
