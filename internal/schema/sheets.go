package schema

import (
	"github.com/sells-group/city-pulse/internal/geometry"
	"github.com/sells-group/city-pulse/internal/model"
)

// Tabular sheets replace geometry with decomposed coordinate fields.

// RegionSheet is the tabular layout of regions.
var RegionSheet = Sheet[model.Region]{
	Layout: Layout{
		Name: TableRegions,
		Fields: []Field{
			{"id", KindInt},
			{"name", KindString},
			{"area_km2", KindFloat},
			{"density", KindFloat},
			{"population", KindInt},
			{"vitality_score", KindFloat},
			{"center_lng", KindFloat},
			{"center_lat", KindFloat},
			{"boundary_min_lng", KindFloat},
			{"boundary_min_lat", KindFloat},
			{"boundary_max_lng", KindFloat},
			{"boundary_max_lat", KindFloat},
			{"high_density", KindBool},
			{"created_at", KindTimestamp},
			{"updated_at", KindTimestamp},
		},
	},
	Encode: func(r model.Region) []any {
		return []any{
			r.ID, r.Name, r.AreaKm2, r.Density, r.Population, r.VitalityScore,
			r.Center.Lng, r.Center.Lat,
			r.Boundary.MinLng, r.Boundary.MinLat, r.Boundary.MaxLng, r.Boundary.MaxLat,
			r.HighDensity, r.CreatedAt, r.UpdatedAt,
		}
	},
	Decode: func(row *Row) model.Region {
		return model.Region{
			ID:            row.Int(),
			Name:          row.Text(),
			AreaKm2:       row.Float(),
			Density:       row.Float(),
			Population:    row.Int(),
			VitalityScore: row.Float(),
			Center:        geometry.LngLat{Lng: row.Float(), Lat: row.Float()},
			Boundary: geometry.BBox{
				MinLng: row.Float(),
				MinLat: row.Float(),
				MaxLng: row.Float(),
				MaxLat: row.Float(),
			},
			HighDensity: row.Bool(),
			CreatedAt:   row.Time(),
			UpdatedAt:   row.Time(),
		}
	},
}

// BrandSheet is the tabular layout of brands.
var BrandSheet = Sheet[model.Brand]{
	Layout: Layout{
		Name: TableBrands,
		Fields: []Field{
			{"id", KindInt},
			{"name", KindString},
			{"market_share", KindFloat},
			{"avg_wait_minutes", KindInt},
			{"store_count", KindInt},
			{"price_tier", KindString},
			{"update_date", KindDate},
			{"created_at", KindTimestamp},
			{"updated_at", KindTimestamp},
		},
	},
	Encode: func(b model.Brand) []any {
		return []any{
			b.ID, b.Name, b.MarketShare, b.AvgWaitMinutes, b.StoreCount,
			b.PriceTier, b.UpdateDate, b.CreatedAt, b.UpdatedAt,
		}
	},
	Decode: func(row *Row) model.Brand {
		return model.Brand{
			ID:             row.Int(),
			Name:           row.Text(),
			MarketShare:    row.Float(),
			AvgWaitMinutes: row.Int(),
			StoreCount:     row.Int(),
			PriceTier:      row.Text(),
			UpdateDate:     row.Time(),
			CreatedAt:      row.Time(),
			UpdatedAt:      row.Time(),
		}
	},
}

// DiningSheet is the tabular layout of dining venues.
var DiningSheet = Sheet[model.DiningVenue]{
	Layout: Layout{
		Name: TableDiningVenues,
		Fields: []Field{
			{"id", KindInt},
			{"name", KindString},
			{"brand_id", KindNullableInt},
			{"address", KindString},
			{"region_id", KindInt},
			{"price_min", KindInt},
			{"price_avg", KindInt},
			{"price_max", KindInt},
			{"rating", KindFloat},
			{"review_count", KindInt},
			{"category", KindString},
			{"business_hours", KindString},
			{"open_24h", KindBool},
			{"open_date", KindDate},
			{"active", KindBool},
			{"location_lng", KindFloat},
			{"location_lat", KindFloat},
		},
	},
	Encode: func(v model.DiningVenue) []any {
		return []any{
			v.ID, v.Name, nullInt(v.BrandID), v.Address, v.RegionID, v.PriceMin, v.PriceAvg, v.PriceMax,
			v.Rating, v.ReviewCount, v.Category, v.BusinessHours, v.Open24h, v.OpenDate, v.Active,
			v.Location.Lng, v.Location.Lat,
		}
	},
	Decode: func(row *Row) model.DiningVenue {
		return model.DiningVenue{
			ID:            row.Int(),
			Name:          row.Text(),
			BrandID:       row.IntPtr(),
			Address:       row.Text(),
			RegionID:      row.Int(),
			PriceMin:      row.Int(),
			PriceAvg:      row.Int(),
			PriceMax:      row.Int(),
			Rating:        row.Float(),
			ReviewCount:   row.Int(),
			Category:      row.Text(),
			BusinessHours: row.Text(),
			Open24h:       row.Bool(),
			OpenDate:      row.Time(),
			Active:        row.Bool(),
			Location:      geometry.LngLat{Lng: row.Float(), Lat: row.Float()},
		}
	},
}

// LeisureSheet is the tabular layout of leisure venues.
var LeisureSheet = Sheet[model.LeisureVenue]{
	Layout: Layout{
		Name: TableLeisureVenues,
		Fields: []Field{
			{"id", KindInt},
			{"name", KindString},
			{"address", KindString},
			{"region_id", KindInt},
			{"founding_year", KindInt},
			{"avg_price", KindFloat},
			{"popularity", KindInt},
			{"historic", KindBool},
			{"community_type", KindString},
			{"cultural_tags", KindStringList},
			{"location_lng", KindFloat},
			{"location_lat", KindFloat},
		},
	},
	Encode: func(v model.LeisureVenue) []any {
		tags := v.Tags
		if tags == nil {
			tags = []string{}
		}
		return []any{
			v.ID, v.Name, v.Address, v.RegionID, v.FoundingYear, v.AvgPrice, v.Popularity,
			v.Historic, v.CommunityType, tags,
			v.Location.Lng, v.Location.Lat,
		}
	},
	Decode: func(row *Row) model.LeisureVenue {
		return model.LeisureVenue{
			ID:            row.Int(),
			Name:          row.Text(),
			Address:       row.Text(),
			RegionID:      row.Int(),
			FoundingYear:  row.Int(),
			AvgPrice:      row.Float(),
			Popularity:    row.Int(),
			Historic:      row.Bool(),
			CommunityType: row.Text(),
			Tags:          row.Strings(),
			Location:      geometry.LngLat{Lng: row.Float(), Lat: row.Float()},
		}
	},
}

// SignalSheet is the tabular layout of signal records.
var SignalSheet = Sheet[model.SignalRecord]{
	Layout: Layout{
		Name: TableSignals,
		Fields: []Field{
			{"id", KindInt},
			{"timestamp", KindTimestamp},
			{"hour", KindInt},
			{"region_id", KindInt},
			{"population_index", KindInt},
			{"consumption_heat", KindFloat},
			{"transit_passengers", KindInt},
			{"active_businesses", KindInt},
			{"weather", KindString},
			{"special_event", KindNullableString},
			{"date", KindString},
			{"time", KindString},
		},
	},
	Encode: func(s model.SignalRecord) []any {
		return []any{
			s.ID, s.Timestamp, s.Hour, s.RegionID, s.PopulationIndex, s.ConsumptionHeat,
			s.TransitPassengers, s.ActiveBusinesses, s.Weather, nullString(s.SpecialEvent), s.Date, s.Time,
		}
	},
	Decode: func(row *Row) model.SignalRecord {
		return model.SignalRecord{
			ID:                row.Int(),
			Timestamp:         row.Time(),
			Hour:              row.Int(),
			RegionID:          row.Int(),
			PopulationIndex:   row.Int(),
			ConsumptionHeat:   row.Float(),
			TransitPassengers: row.Int(),
			ActiveBusinesses:  row.Int(),
			Weather:           row.Text(),
			SpecialEvent:      row.TextPtr(),
			Date:              row.Text(),
			Time:              row.Text(),
		}
	},
}

// AlertSheet is the tabular layout of alerts.
var AlertSheet = Sheet[model.Alert]{
	Layout: Layout{
		Name: TableAlerts,
		Fields: []Field{
			{"id", KindInt},
			{"alert_time", KindTimestamp},
			{"alert_type", KindString},
			{"content", KindString},
			{"impact_value", KindString},
			{"active", KindBool},
		},
	},
	Encode: func(a model.Alert) []any {
		return []any{a.ID, a.AlertTime, a.Type, a.Content, a.ImpactValue, a.Active}
	},
	Decode: func(row *Row) model.Alert {
		return model.Alert{
			ID:          row.Int(),
			AlertTime:   row.Time(),
			Type:        row.Text(),
			Content:     row.Text(),
			ImpactValue: row.Text(),
			Active:      row.Bool(),
		}
	},
}

// Layouts returns every sheet layout in load order.
func Layouts() []Layout {
	return []Layout{
		RegionSheet.Layout,
		BrandSheet.Layout,
		DiningSheet.Layout,
		LeisureSheet.Layout,
		SignalSheet.Layout,
		AlertSheet.Layout,
	}
}
