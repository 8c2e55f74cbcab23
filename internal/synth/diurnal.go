package synth

import (
	"math"
	"math/rand/v2"
)

// DefaultPeakHour is the hour of day with the strongest activity.
const DefaultPeakHour = 21

// maxHourDistance caps the distance used by Wave. Hours are not wrapped
// around midnight: hour 0 is 21 hours from a 21:00 peak and is capped to 12.
const maxHourDistance = 12

// Noise bounds applied on top of the diurnal wave.
const (
	noiseLow  = 0.7
	noiseHigh = 1.3
)

// Wave returns the deterministic diurnal multiplier for hour: 1.8 at the peak,
// decaying linearly to 1.0 at 12 or more hours away.
func Wave(hour, peak int) float64 {
	distance := min(abs(hour-peak), maxHourDistance)
	return 1 + 0.8*(1-float64(distance)/maxHourDistance)
}

// HourlyValue returns base scaled by Wave and multiplicative noise drawn from
// [0.7, 1.3), floored to an integer.
func HourlyValue(rng *rand.Rand, hour, base, peak int) int {
	noise := uniform(rng, noiseLow, noiseHigh)
	return int(math.Floor(float64(base) * Wave(hour, peak) * noise))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
