package analytics

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/store"
)

// Part selects collections for Reporter.Load.
type Part uint8

// Collections a view can depend on.
const (
	PartRegions Part = 1 << iota
	PartBrands
	PartDining
	PartLeisure
	PartSignals
	PartAlerts

	PartAll = PartRegions | PartBrands | PartDining | PartLeisure | PartSignals | PartAlerts
)

// Report bundles every view computed from one snapshot.
type Report struct {
	GeneratedAt    time.Time      `json:"generated_at"`
	Overview       Overview       `json:"overview"`
	Temperature    Temperature    `json:"temperature"`
	Trend          []HourlyPoint  `json:"trend"`
	Density        []DensityCell  `json:"density_matrix"`
	Prices         []PriceBand    `json:"price_distribution"`
	Categories     []LabelCount   `json:"categories"`
	Ranking        []RegionRank   `json:"ranking"`
	Decades        []DecadeCount  `json:"decades"`
	LeisureRegions []LabelCount   `json:"leisure_regions"`
	Tags           []LabelCount   `json:"tags"`
	Vitality       []model.Region `json:"vitality"`
	ActiveAlerts   []model.Alert  `json:"active_alerts"`
}

// Build computes every view from ds.
func Build(ds *model.Dataset, now time.Time) *Report {
	return &Report{
		GeneratedAt:    now,
		Overview:       CityOverview(ds.Regions, ds.DiningVenues, ds.LeisureVenues, ds.Signals),
		Temperature:    TemperatureIndex(ds.Regions, ds.LeisureVenues, ds.Signals, now),
		Trend:          HourlyTrend(ds.Signals),
		Density:        DensityMatrix(ds.Regions, ds.DiningVenues),
		Prices:         PriceDistribution(ds.DiningVenues),
		Categories:     CategoryDistribution(ds.DiningVenues),
		Ranking:        RankRegions(ds.Regions, ds.DiningVenues),
		Decades:        FoundingDecades(ds.LeisureVenues),
		LeisureRegions: LeisureByRegion(ds.Regions, ds.LeisureVenues),
		Tags:           TagCounts(ds.LeisureVenues),
		Vitality:       VitalityRanking(ds.Regions),
		ActiveAlerts:   ActiveAlerts(ds.Alerts),
	}
}

// Reporter loads collections from a store and computes views over them.
// It holds no cached state; each call reads the store again.
type Reporter struct {
	src store.Reader
	now func() time.Time
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithReportClock overrides the clock used for report dates.
func WithReportClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// NewReporter returns a Reporter reading from src.
func NewReporter(src store.Reader, opts ...ReporterOption) *Reporter {
	r := &Reporter{src: src, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the reporter clock's current time.
func (r *Reporter) Now() time.Time {
	return r.now()
}

// Report loads a full snapshot and builds every view.
func (r *Reporter) Report(ctx context.Context) (*Report, error) {
	start := time.Now()
	ds, err := store.Snapshot(ctx, r.src)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: load snapshot")
	}
	rep := Build(ds, r.now())
	zap.L().Debug("report built",
		zap.String("component", "analytics.report"),
		zap.Int("score", rep.Temperature.Score),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

// Load reads the selected collections concurrently. Unselected collections
// are left nil.
func (r *Reporter) Load(ctx context.Context, parts Part) (*model.Dataset, error) {
	if parts == PartAll {
		ds, err := store.Snapshot(ctx, r.src)
		return ds, eris.Wrap(err, "analytics: load")
	}

	var ds model.Dataset
	g, gctx := errgroup.WithContext(ctx)
	if parts&PartRegions != 0 {
		g.Go(func() error {
			var err error
			ds.Regions, err = r.src.Regions(gctx)
			return err
		})
	}
	if parts&PartBrands != 0 {
		g.Go(func() error {
			var err error
			ds.Brands, err = r.src.Brands(gctx)
			return err
		})
	}
	if parts&PartDining != 0 {
		g.Go(func() error {
			var err error
			ds.DiningVenues, err = r.src.DiningVenues(gctx)
			return err
		})
	}
	if parts&PartLeisure != 0 {
		g.Go(func() error {
			var err error
			ds.LeisureVenues, err = r.src.LeisureVenues(gctx)
			return err
		})
	}
	if parts&PartSignals != 0 {
		g.Go(func() error {
			var err error
			ds.Signals, err = r.src.Signals(gctx)
			return err
		})
	}
	if parts&PartAlerts != 0 {
		g.Go(func() error {
			var err error
			ds.Alerts, err = r.src.Alerts(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "analytics: load")
	}
	return &ds, nil
}
