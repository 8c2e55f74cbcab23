package store

import (
	"github.com/sells-group/city-pulse/internal/geometry"
	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
)

// scanner is satisfied by pgx.Rows and *sql.Rows. Column order follows the
// schema table layouts.
type scanner interface {
	Scan(dest ...any) error
}

func scanRegion(sc scanner) (model.Region, error) {
	var r model.Region
	var center, boundary string
	if err := sc.Scan(&r.ID, &r.Name, &r.AreaKm2, &r.Density, &r.Population, &r.VitalityScore,
		&center, &boundary, &r.HighDensity, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return r, err
	}
	r.Center, _ = geometry.DecodePoint(center)
	r.Boundary, _ = geometry.DecodeBBox(boundary)
	return r, nil
}

func scanBrand(sc scanner) (model.Brand, error) {
	var b model.Brand
	err := sc.Scan(&b.ID, &b.Name, &b.MarketShare, &b.AvgWaitMinutes, &b.StoreCount,
		&b.PriceTier, &b.UpdateDate, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanDining(sc scanner) (model.DiningVenue, error) {
	var v model.DiningVenue
	var location string
	if err := sc.Scan(&v.ID, &v.Name, &v.BrandID, &v.Address, &v.RegionID, &v.PriceMin, &v.PriceAvg, &v.PriceMax,
		&v.Rating, &v.ReviewCount, &v.Category, &v.BusinessHours, &v.Open24h, &v.OpenDate, &v.Active,
		&location); err != nil {
		return v, err
	}
	v.Location, _ = geometry.DecodePoint(location)
	return v, nil
}

func scanLeisure(sc scanner) (model.LeisureVenue, error) {
	var v model.LeisureVenue
	var tags, location string
	if err := sc.Scan(&v.ID, &v.Name, &v.Address, &v.RegionID, &v.FoundingYear, &v.AvgPrice, &v.Popularity,
		&v.Historic, &v.CommunityType, &tags, &location); err != nil {
		return v, err
	}
	v.Tags = schema.DecodeTags(tags)
	v.Location, _ = geometry.DecodePoint(location)
	return v, nil
}

func scanSignal(sc scanner) (model.SignalRecord, error) {
	var s model.SignalRecord
	err := sc.Scan(&s.ID, &s.Timestamp, &s.Hour, &s.RegionID, &s.PopulationIndex, &s.ConsumptionHeat,
		&s.TransitPassengers, &s.ActiveBusinesses, &s.Weather, &s.SpecialEvent, &s.Date, &s.Time)
	return s, err
}

func scanAlert(sc scanner) (model.Alert, error) {
	var a model.Alert
	err := sc.Scan(&a.ID, &a.AlertTime, &a.Type, &a.Content, &a.ImpactValue, &a.Active)
	return a, err
}
