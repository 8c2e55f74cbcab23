package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/city-pulse/internal/model"
)

// Temperature index ceilings and weights. Changing any of them changes every
// published score.
const (
	densityCeiling  = 20.0
	nightCeiling    = 10.0
	leisureCeiling  = 30.0
	vitalityCeiling = 100.0

	densityWeight  = 0.3
	nightWeight    = 0.3
	leisureWeight  = 0.2
	vitalityWeight = 0.2

	// leisurePerVenue is the leisure sub-score contributed by one venue,
	// capped at leisureCeiling.
	leisurePerVenue = 0.1

	// nightDivisor scales the mean population index into night-signal units.
	nightDivisor = 1000.0
)

// Factors are the normalized sub-scores, each in [0,100].
type Factors struct {
	Density  int `json:"dining_density"`
	Night    int `json:"night_economy"`
	Leisure  int `json:"leisure_culture"`
	Vitality int `json:"vitality"`
}

// Temperature is the composite city temperature index.
type Temperature struct {
	Score   int     `json:"score"`
	Date    string  `json:"date"`
	Factors Factors `json:"factors"`
}

// TemperatureIndex combines mean region density, mean night population,
// leisure venue count, and mean region vitality into one 0-100 score. All
// roundings are half to even.
func TemperatureIndex(regions []model.Region, leisure []model.LeisureVenue, signals []model.SignalRecord, day time.Time) Temperature {
	var density, vitality float64
	if len(regions) > 0 {
		for _, r := range regions {
			density += r.Density
			vitality += r.VitalityScore
		}
		density /= float64(len(regions))
		vitality /= float64(len(regions))
	}

	var night float64
	if len(signals) > 0 {
		for _, s := range signals {
			night += float64(s.PopulationIndex)
		}
		night = night / float64(len(signals)) / nightDivisor
	}

	leisureScore := math.Min(float64(len(leisure))*leisurePerVenue, leisureCeiling)

	d := normalize(density, densityCeiling)
	n := normalize(night, nightCeiling)
	l := normalize(leisureScore, leisureCeiling)
	v := normalize(vitality, vitalityCeiling)

	return Temperature{
		Score: round(d*densityWeight + n*nightWeight + l*leisureWeight + v*vitalityWeight),
		Date:  day.Format(model.DateLayout),
		Factors: Factors{
			Density:  round(d),
			Night:    round(n),
			Leisure:  round(l),
			Vitality: round(v),
		},
	}
}

// normalize maps x onto [0,100] against ceiling. Non-positive x scores 0.
func normalize(x, ceiling float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Max(0, math.Min(100, x/ceiling*100))
}

func round(x float64) int {
	return int(math.RoundToEven(x))
}

// VitalityRanking returns regions by descending vitality score. Equal scores
// keep input order. The input is not modified.
func VitalityRanking(regions []model.Region) []model.Region {
	out := make([]model.Region, len(regions))
	copy(out, regions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].VitalityScore > out[j].VitalityScore })
	return out
}

// ActiveAlerts returns active alerts, newest first.
func ActiveAlerts(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, 0)
	for _, a := range alerts {
		if a.Active {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AlertTime.After(out[j].AlertTime) })
	return out
}

// RegionSummary is a region with its venue counts.
type RegionSummary struct {
	model.Region
	DiningCount  int `json:"dining_count"`
	LeisureCount int `json:"leisure_count"`
}

// RegionDetail finds the region with id and counts its venues. ok is false
// when no region matches.
func RegionDetail(id int, regions []model.Region, dining []model.DiningVenue, leisure []model.LeisureVenue) (RegionSummary, bool) {
	for _, r := range regions {
		if r.ID != id {
			continue
		}
		s := RegionSummary{Region: r}
		for _, v := range dining {
			if v.RegionID == id {
				s.DiningCount++
			}
		}
		for _, v := range leisure {
			if v.RegionID == id {
				s.LeisureCount++
			}
		}
		return s, true
	}
	return RegionSummary{}, false
}
