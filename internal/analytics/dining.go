// Package analytics derives chart-ready views from city collections. Every
// function is read-only over its inputs and returns empty, non-nil results
// for empty inputs.
package analytics

import (
	"math"
	"sort"

	"github.com/sells-group/city-pulse/internal/model"
)

// DensityCell pairs a region's stored density with a live venue count. The
// two can diverge when the venue table changes after the region was written.
type DensityCell struct {
	Region  string  `json:"region"`
	Density float64 `json:"density"`
	Count   int     `json:"count"`
}

// DensityMatrix returns one cell per region in input order. Counts include
// inactive venues.
func DensityMatrix(regions []model.Region, dining []model.DiningVenue) []DensityCell {
	counts := venuesPerRegion(dining)
	out := make([]DensityCell, 0, len(regions))
	for _, r := range regions {
		out = append(out, DensityCell{Region: r.Name, Density: r.Density, Count: counts[r.ID]})
	}
	return out
}

// PriceBand is a half-open [Min, Max) interval of average prices.
type PriceBand struct {
	Range string `json:"range"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// priceBands lists the bands in ascending order. The last band is unbounded.
var priceBands = []PriceBand{
	{Range: "<50", Min: 0, Max: 50},
	{Range: "50-80", Min: 50, Max: 80},
	{Range: "80-100", Min: 80, Max: 100},
	{Range: "100-150", Min: 100, Max: 150},
	{Range: "150+", Min: 150, Max: math.MaxInt},
}

// Contains reports whether price falls in the band.
func (b PriceBand) Contains(price int) bool {
	return price >= b.Min && price < b.Max
}

// PriceDistribution buckets venues by average price. Bands are tested in
// ascending order and the first match wins.
func PriceDistribution(dining []model.DiningVenue) []PriceBand {
	out := make([]PriceBand, len(priceBands))
	copy(out, priceBands)
	for _, v := range dining {
		for i := range out {
			if out[i].Contains(v.PriceAvg) {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// LabelCount is a label with its occurrence count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryDistribution counts venues per category in first-seen order.
// Venues without a category are skipped.
func CategoryDistribution(dining []model.DiningVenue) []LabelCount {
	c := newCounter()
	for _, v := range dining {
		if v.Category != "" {
			c.add(v.Category)
		}
	}
	return c.list()
}

// RegionRank is one row of RankRegions.
type RegionRank struct {
	Rank   int    `json:"rank"`
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// RankRegions orders regions by descending venue count. Equal counts keep
// input order; rank is the 1-based position after sorting. Venues that
// reference an unknown region are ignored.
func RankRegions(regions []model.Region, dining []model.DiningVenue) []RegionRank {
	counts := venuesPerRegion(dining)
	out := make([]RegionRank, 0, len(regions))
	for _, r := range regions {
		out = append(out, RegionRank{Region: r.Name, Count: counts[r.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func venuesPerRegion(dining []model.DiningVenue) map[int]int {
	counts := make(map[int]int)
	for _, v := range dining {
		counts[v.RegionID]++
	}
	return counts
}

// counter tallies labels and remembers first-seen order.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(label string) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label]++
}

// list returns labels in first-seen order.
func (c *counter) list() []LabelCount {
	out := make([]LabelCount, 0, len(c.order))
	for _, label := range c.order {
		out = append(out, LabelCount{Label: label, Count: c.counts[label]})
	}
	return out
}

// ranked returns labels by descending count, ties in first-seen order.
func (c *counter) ranked() []LabelCount {
	out := c.list()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
