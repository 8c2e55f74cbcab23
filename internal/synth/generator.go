package synth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/city-pulse/internal/geometry"
	"github.com/sells-group/city-pulse/internal/model"
)

var (
	// ErrRegionsMissing means a dependent collection was requested before
	// Regions. Generation order is fixed, so callers treat this as fatal.
	ErrRegionsMissing = eris.New("synth: regions must be generated first")

	// ErrAlreadyGenerated means Regions or Brands was called twice on one generator.
	ErrAlreadyGenerated = eris.New("synth: collection already generated")
)

// Skew and rate constants for generated collections.
const (
	highDensityShare = 0.7
	brandedShare     = 0.8
	open24hShare     = 0.05
	historicShare    = 0.08
	specialEventRate = 0.02
	alertWindowHours = 168
	minBrandShare    = 5.0
	maxBrandShare    = 20.0
)

// Counts sizes the variable-length collections of a run.
type Counts struct {
	DiningVenues  int
	LeisureVenues int
	Days          int
	Alerts        int
}

// DefaultCounts matches the CLI defaults.
var DefaultCounts = Counts{DiningVenues: 5000, LeisureVenues: 300, Days: 7, Alerts: 30}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the generation clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// Generator builds the entity collections of one run. Its anchor registry
// and id counters are private to the instance, so independent generators can
// run in parallel. A single Generator is not safe for concurrent use.
type Generator struct {
	profile *Profile
	rng     *rand.Rand
	now     func() time.Time
	sampler *Sampler

	ids struct {
		region, brand, dining, leisure, signal, alert int
	}

	regions  []model.Region
	highIDs  []int
	otherIDs []int
	brands   []model.Brand
}

// NewGenerator returns a generator drawing from rng.
func NewGenerator(profile *Profile, rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{
		profile: profile,
		rng:     rng,
		now:     wallClock,
		sampler: NewSampler(profile.Envelope, rng),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sampler exposes the generator's coordinate sampler.
func (g *Generator) Sampler() *Sampler {
	return g.sampler
}

// Generate runs every step in dependency order and returns the full dataset.
func (g *Generator) Generate(c Counts) (*model.Dataset, error) {
	log := zap.L().With(zap.String("component", "synth.generate"))

	regions, err := g.Regions()
	if err != nil {
		return nil, err
	}
	brands, err := g.Brands()
	if err != nil {
		return nil, err
	}
	dining, err := g.DiningVenues(c.DiningVenues)
	if err != nil {
		return nil, err
	}
	leisure, err := g.LeisureVenues(c.LeisureVenues)
	if err != nil {
		return nil, err
	}
	signals, err := g.Signals(c.Days)
	if err != nil {
		return nil, err
	}

	ds := &model.Dataset{
		Regions:       regions,
		Brands:        brands,
		DiningVenues:  dining,
		LeisureVenues: leisure,
		Signals:       signals,
		Alerts:        g.Alerts(c.Alerts),
	}
	for table, n := range ds.Counts() {
		log.Debug("generated collection", zap.String("table", table), zap.Int("rows", n))
	}
	return ds, nil
}

// Regions generates one region per profile entry and registers each center as
// a sampling anchor. It must run before any venue or signal generation.
func (g *Generator) Regions() ([]model.Region, error) {
	if g.regions != nil {
		return nil, eris.Wrap(ErrAlreadyGenerated, "regions")
	}

	now := g.now()
	out := make([]model.Region, 0, len(g.profile.Regions))
	for _, spec := range g.profile.Regions {
		center := g.sampler.Sample("")
		g.sampler.RegisterAnchor(spec.Name, center)

		r := model.Region{
			ID:          g.next(&g.ids.region),
			Name:        spec.Name,
			Center:      center,
			HighDensity: spec.HighDensity,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		radius := 0.3
		if spec.HighDensity {
			radius = 0.15
			r.Density = uniform(g.rng, 15, 25)
			r.Population = intBetween(g.rng, 300000, 2000000)
			r.VitalityScore = uniform(g.rng, 80, 95)
			r.AreaKm2 = uniform(g.rng, 50, 350)
		} else {
			r.Density = uniform(g.rng, 0.5, 5)
			r.Population = intBetween(g.rng, 50000, 500000)
			r.VitalityScore = uniform(g.rng, 60, 85)
			r.AreaKm2 = uniform(g.rng, 1000, 4000)
		}
		r.Density = geometry.Round(r.Density, 2)
		r.VitalityScore = geometry.Round(r.VitalityScore, 1)
		r.AreaKm2 = geometry.Round(r.AreaKm2, 2)
		r.Boundary = geometry.BBoxAround(center, radius)

		if spec.HighDensity {
			g.highIDs = append(g.highIDs, r.ID)
		} else {
			g.otherIDs = append(g.otherIDs, r.ID)
		}
		out = append(out, r)
	}

	g.regions = out
	return out, nil
}

// Brands generates the brand dimension. Every brand but the last draws a share
// leaving at least 5% for each remaining brand; the last takes what is left,
// so shares always total 100.
func (g *Generator) Brands() ([]model.Brand, error) {
	if g.brands != nil {
		return nil, eris.Wrap(ErrAlreadyGenerated, "brands")
	}

	now := g.now()
	today := truncateDay(now)
	n := len(g.profile.Brands)
	remaining := 100.0
	out := make([]model.Brand, 0, n)
	for i, name := range g.profile.Brands {
		var share float64
		if i == n-1 {
			share = geometry.Round(remaining, 1)
		} else {
			left := float64(n - 1 - i)
			hi := min(maxBrandShare, remaining-minBrandShare*left)
			share = geometry.Round(uniform(g.rng, minBrandShare, hi), 1)
			remaining -= share
		}

		out = append(out, model.Brand{
			ID:             g.next(&g.ids.brand),
			Name:           name,
			MarketShare:    share,
			AvgWaitMinutes: intBetween(g.rng, 15, 90),
			StoreCount:     intBetween(g.rng, 50, 300),
			PriceTier:      choice(g.rng, g.profile.BrandTiers),
			UpdateDate:     today,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	g.brands = out
	return out, nil
}

// DiningVenues generates n restaurants. 70% land in the high-density subset;
// 80% carry a brand when brands exist. The category drives the average price,
// and the minimum and maximum are drawn around it.
func (g *Generator) DiningVenues(n int) ([]model.DiningVenue, error) {
	if g.regions == nil {
		return nil, eris.Wrap(ErrRegionsMissing, "dining venues")
	}

	now := g.now()
	out := make([]model.DiningVenue, 0, max(n, 0))
	for range n {
		region := g.pickRegion()

		var brandID *int
		if len(g.brands) > 0 && g.rng.Float64() < brandedShare {
			id := g.brands[g.rng.IntN(len(g.brands))].ID
			brandID = &id
		}

		cat := choice(g.rng, g.profile.DiningCategories)
		avg := intBetween(g.rng, cat.AvgMin, cat.AvgMax)
		open24h := g.rng.Float64() < open24hShare
		hours := fmt.Sprintf("%d:00-23:00", intBetween(g.rng, 9, 11))
		if open24h {
			hours = "00:00-24:00"
		}

		name := region.Name + " " + choice(g.rng, g.profile.DiningNamePrefixes) +
			" " + choice(g.rng, g.profile.DiningNameSuffixes)

		out = append(out, model.DiningVenue{
			ID:            g.next(&g.ids.dining),
			Name:          name,
			BrandID:       brandID,
			Address:       fmt.Sprintf("No. %d, %s", intBetween(g.rng, 1, 500), region.Name),
			RegionID:      region.ID,
			PriceMin:      max(PriceFloor, avg-intBetween(g.rng, 10, 30)),
			PriceAvg:      avg,
			PriceMax:      avg + intBetween(g.rng, 20, 50),
			Rating:        geometry.Round(uniform(g.rng, 3.5, 4.8), 1),
			ReviewCount:   intBetween(g.rng, 50, 5000),
			Category:      cat.Name,
			BusinessHours: hours,
			Open24h:       open24h,
			OpenDate:      truncateDay(now.AddDate(0, 0, -intBetween(g.rng, 30, 7300))),
			Active:        true,
			Location:      g.sampler.Sample(region.Name),
		})
	}
	return out, nil
}

// LeisureVenues generates n teahouses spread uniformly over all regions.
func (g *Generator) LeisureVenues(n int) ([]model.LeisureVenue, error) {
	if g.regions == nil {
		return nil, eris.Wrap(ErrRegionsMissing, "leisure venues")
	}

	out := make([]model.LeisureVenue, 0, max(n, 0))
	for range n {
		region := g.regions[g.rng.IntN(len(g.regions))]

		historic := g.rng.Float64() < historicShare
		year := intBetween(g.rng, 1950, 2024)
		if historic {
			year = intBetween(g.rng, 1900, 1950)
		}

		var community string
		switch {
		case year < 1950:
			community = "community"
		case year < 2000:
			community = choice(g.rng, []string{"community", "scenic"})
		default:
			community = choice(g.rng, []string{"scenic", "business"})
		}

		out = append(out, model.LeisureVenue{
			ID:            g.next(&g.ids.leisure),
			Name:          region.Name + " " + choice(g.rng, g.profile.LeisureNameSuffixes),
			Address:       fmt.Sprintf("No. %d, %s", intBetween(g.rng, 1, 500), region.Name),
			RegionID:      region.ID,
			FoundingYear:  year,
			AvgPrice:      geometry.Round(uniform(g.rng, 15, 80), 2),
			Popularity:    intBetween(g.rng, 10, 1000),
			Historic:      historic,
			CommunityType: community,
			Tags:          g.sampleTags(),
			Location:      g.sampler.Sample(region.Name),
		})
	}
	return out, nil
}

// Signals generates one record per high-density region, per hour, per day
// for the trailing window of days ending today.
func (g *Generator) Signals(days int) ([]model.SignalRecord, error) {
	if g.regions == nil {
		return nil, eris.Wrap(ErrRegionsMissing, "signal records")
	}

	now := g.now()
	out := make([]model.SignalRecord, 0, max(days, 0)*24*len(g.highIDs))
	for day := range days {
		d := now.AddDate(0, 0, -day)
		for hour := range 24 {
			ts := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, d.Location())
			for _, regionID := range g.highIDs {
				base := intBetween(g.rng, 1000, 8000)
				population := HourlyValue(g.rng, hour, base, DefaultPeakHour)

				var event *string
				if g.rng.Float64() < specialEventRate {
					e := choice(g.rng, g.profile.SpecialEvents)
					event = &e
				}

				transit := intBetween(g.rng, 200, 2000)
				if hour >= 6 && hour <= 23 {
					transit = intBetween(g.rng, 5000, 20000)
				}

				rec := model.NewSignalRecord(ts)
				rec.ID = g.next(&g.ids.signal)
				rec.RegionID = regionID
				rec.PopulationIndex = population
				rec.ConsumptionHeat = geometry.Round(float64(population)*uniform(g.rng, 0.8, 1.5), 2)
				rec.TransitPassengers = transit
				rec.ActiveBusinesses = intBetween(g.rng, 500, 3000)
				rec.Weather = choice(g.rng, g.profile.Weather)
				rec.SpecialEvent = event
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// Alerts generates n alerts spread over the trailing week.
func (g *Generator) Alerts(n int) []model.Alert {
	now := g.now().Truncate(time.Second)
	out := make([]model.Alert, 0, max(n, 0))
	for range n {
		kind := choice(g.rng, g.profile.AlertTypes)
		region := choice(g.rng, g.profile.Regions).Name

		out = append(out, model.Alert{
			ID:          g.next(&g.ids.alert),
			AlertTime:   now.Add(-time.Duration(intBetween(g.rng, 0, alertWindowHours)) * time.Hour),
			Type:        kind,
			Content:     fmt.Sprintf("%s %s: %s", region, kind, choice(g.rng, g.profile.AlertEffects)),
			ImpactValue: fmt.Sprintf("+%d%%", intBetween(g.rng, 10, 50)),
			Active:      g.rng.IntN(2) == 1,
		})
	}
	return out
}

// pickRegion chooses the high-density subset with 70% probability. When one
// side of the split is empty the other side is used.
func (g *Generator) pickRegion() model.Region {
	pool := g.otherIDs
	if len(g.highIDs) > 0 && (len(g.otherIDs) == 0 || g.rng.Float64() < highDensityShare) {
		pool = g.highIDs
	}
	id := pool[g.rng.IntN(len(pool))]
	return g.regions[id-g.regions[0].ID]
}

// sampleTags draws 1 to 3 distinct tags, capped by the vocabulary size.
func (g *Generator) sampleTags() []string {
	vocab := g.profile.LeisureTags
	k := min(intBetween(g.rng, 1, 3), len(vocab))
	perm := g.rng.Perm(len(vocab))
	tags := make([]string, k)
	for i := range k {
		tags[i] = vocab[perm[i]]
	}
	return tags
}

func (g *Generator) next(counter *int) int {
	*counter++
	return *counter
}

// wallClock drops sub-second precision so timestamps survive tabular export.
func wallClock() time.Time {
	return time.Now().Truncate(time.Second)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
