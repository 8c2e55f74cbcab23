package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/city-pulse/internal/model"
)

// HourlyPoint is the mean population index and consumption heat for one hour
// of the day, across every day and region.
type HourlyPoint struct {
	Hour        int `json:"hour"`
	Population  int `json:"population"`
	Consumption int `json:"consumption"`
}

// HourlyTrend averages signals by hour of day. Only hours present in the
// input appear, ascending. Means round half to even.
func HourlyTrend(signals []model.SignalRecord) []HourlyPoint {
	type acc struct {
		pop, heat float64
		n         int
	}
	byHour := make(map[int]*acc)
	for _, s := range signals {
		a, ok := byHour[s.Hour]
		if !ok {
			a = &acc{}
			byHour[s.Hour] = a
		}
		a.pop += float64(s.PopulationIndex)
		a.heat += s.ConsumptionHeat
		a.n++
	}

	out := make([]HourlyPoint, 0, len(byHour))
	for hour, a := range byHour {
		out = append(out, HourlyPoint{
			Hour:        hour,
			Population:  int(math.RoundToEven(a.pop / float64(a.n))),
			Consumption: int(math.RoundToEven(a.heat / float64(a.n))),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

// SignalsAtHour returns the records sampled at hour, in input order.
func SignalsAtHour(signals []model.SignalRecord, hour int) []model.SignalRecord {
	out := make([]model.SignalRecord, 0)
	for _, s := range signals {
		if s.Hour == hour {
			out = append(out, s)
		}
	}
	return out
}

// Overview is the headline city operation summary.
type Overview struct {
	Regions       int        `json:"total_regions"`
	ActiveDining  int        `json:"total_dining"`
	LeisureVenues int        `json:"total_leisure"`
	LatestSignal  *time.Time `json:"timestamp"`
}

// CityOverview counts regions, active dining venues, and leisure venues, and
// finds the newest signal timestamp. LatestSignal is nil without signals.
func CityOverview(regions []model.Region, dining []model.DiningVenue, leisure []model.LeisureVenue, signals []model.SignalRecord) Overview {
	o := Overview{Regions: len(regions), LeisureVenues: len(leisure)}
	for _, v := range dining {
		if v.Active {
			o.ActiveDining++
		}
	}
	for i := range signals {
		ts := signals[i].Timestamp
		if o.LatestSignal == nil || ts.After(*o.LatestSignal) {
			o.LatestSignal = &ts
		}
	}
	return o
}
