package analytics

import (
	"sort"

	"github.com/sells-group/city-pulse/internal/model"
)

// UnknownRegion labels venues whose region id matches no region.
const UnknownRegion = "unknown"

// DecadeCount is the number of leisure venues founded in a decade.
type DecadeCount struct {
	Decade int `json:"decade"`
	Count  int `json:"count"`
}

// FoundingDecades groups venues by founding decade, ascending. Venues with
// no founding year are skipped.
func FoundingDecades(leisure []model.LeisureVenue) []DecadeCount {
	counts := make(map[int]int)
	for _, v := range leisure {
		if v.FoundingYear <= 0 {
			continue
		}
		counts[v.FoundingYear/10*10]++
	}
	out := make([]DecadeCount, 0, len(counts))
	for decade, n := range counts {
		out = append(out, DecadeCount{Decade: decade, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Decade < out[j].Decade })
	return out
}

// LeisureByRegion counts venues per region name, descending, ties in
// first-seen order.
func LeisureByRegion(regions []model.Region, leisure []model.LeisureVenue) []LabelCount {
	names := make(map[int]string, len(regions))
	for _, r := range regions {
		names[r.ID] = r.Name
	}
	c := newCounter()
	for _, v := range leisure {
		name, ok := names[v.RegionID]
		if !ok {
			name = UnknownRegion
		}
		c.add(name)
	}
	return c.ranked()
}

// TagCounts counts cultural tags across venues, descending, ties in
// first-seen order.
func TagCounts(leisure []model.LeisureVenue) []LabelCount {
	c := newCounter()
	for _, v := range leisure {
		for _, tag := range v.Tags {
			c.add(tag)
		}
	}
	return c.ranked()
}

// Timeline returns venues with a founding year, oldest first. Equal years
// keep input order.
func Timeline(leisure []model.LeisureVenue) []model.LeisureVenue {
	out := make([]model.LeisureVenue, 0, len(leisure))
	for _, v := range leisure {
		if v.FoundingYear > 0 {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FoundingYear < out[j].FoundingYear })
	return out
}
