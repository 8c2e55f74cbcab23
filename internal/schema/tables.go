package schema

import (
	"encoding/json"

	"github.com/sells-group/city-pulse/internal/geometry"
	"github.com/sells-group/city-pulse/internal/model"
)

// Table names, in insert dependency order.
const (
	TableRegions       = "regions"
	TableBrands        = "brands"
	TableDiningVenues  = "dining_venues"
	TableLeisureVenues = "leisure_venues"
	TableSignals       = "signal_records"
	TableAlerts        = "alerts"
)

// LoadOrder lists every table parents first. Clearing walks it backwards.
var LoadOrder = []string{
	TableRegions,
	TableBrands,
	TableDiningVenues,
	TableLeisureVenues,
	TableSignals,
	TableAlerts,
}

// parents maps each table to the tables its foreign keys reference.
var parents = map[string][]string{
	TableDiningVenues:  {TableRegions, TableBrands},
	TableLeisureVenues: {TableRegions},
	TableSignals:       {TableRegions},
}

// Dependents returns every table whose rows reference name, directly or
// through another table, children first. Clearing name requires clearing
// these before it.
func Dependents(name string) []string {
	hit := map[string]bool{name: true}
	var out []string
	for _, t := range LoadOrder {
		for _, p := range parents[t] {
			if hit[p] && !hit[t] {
				hit[t] = true
				out = append(out, t)
			}
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Known reports whether name is one of the city tables.
func Known(name string) bool {
	for _, t := range LoadOrder {
		if t == name {
			return true
		}
	}
	return false
}

// Column is one SQL column. Geometry columns carry WKT text that the store
// wraps so the database parses it with the fixed SRID.
type Column struct {
	Name     string
	Geometry bool
}

// Table is the ordered column layout of a SQL table.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Mapping binds a Table to the row encoder for its entity type.
type Mapping[T any] struct {
	Table
	Row func(T) []any
}

// Rows encodes items in order.
func (m Mapping[T]) Rows(items []T) [][]any {
	out := make([][]any, len(items))
	for i, item := range items {
		out[i] = m.Row(item)
	}
	return out
}

func cols(names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{Name: n}
	}
	return out
}

func geom(name string) Column {
	return Column{Name: name, Geometry: true}
}

// RegionTable maps regions to SQL rows.
var RegionTable = Mapping[model.Region]{
	Table: Table{
		Name: TableRegions,
		Columns: append(append(
			cols("id", "name", "area_km2", "density", "population", "vitality_score"),
			geom("center"), geom("boundary")),
			cols("high_density", "created_at", "updated_at")...),
	},
	Row: func(r model.Region) []any {
		return []any{
			r.ID, r.Name, r.AreaKm2, r.Density, r.Population, r.VitalityScore,
			geometry.EncodePoint(r.Center), geometry.EncodeBBox(r.Boundary),
			r.HighDensity, r.CreatedAt, r.UpdatedAt,
		}
	},
}

// BrandTable maps brands to SQL rows.
var BrandTable = Mapping[model.Brand]{
	Table: Table{
		Name: TableBrands,
		Columns: cols("id", "name", "market_share", "avg_wait_minutes", "store_count",
			"price_tier", "update_date", "created_at", "updated_at"),
	},
	Row: func(b model.Brand) []any {
		return []any{
			b.ID, b.Name, b.MarketShare, b.AvgWaitMinutes, b.StoreCount,
			b.PriceTier, b.UpdateDate, b.CreatedAt, b.UpdatedAt,
		}
	},
}

// DiningTable maps dining venues to SQL rows.
var DiningTable = Mapping[model.DiningVenue]{
	Table: Table{
		Name: TableDiningVenues,
		Columns: append(
			cols("id", "name", "brand_id", "address", "region_id", "price_min", "price_avg", "price_max",
				"rating", "review_count", "category", "business_hours", "open_24h", "open_date", "active"),
			geom("location")),
	},
	Row: func(v model.DiningVenue) []any {
		return []any{
			v.ID, v.Name, nullInt(v.BrandID), v.Address, v.RegionID, v.PriceMin, v.PriceAvg, v.PriceMax,
			v.Rating, v.ReviewCount, v.Category, v.BusinessHours, v.Open24h, v.OpenDate, v.Active,
			geometry.EncodePoint(v.Location),
		}
	},
}

// LeisureTable maps leisure venues to SQL rows. Tags are stored as JSON text.
var LeisureTable = Mapping[model.LeisureVenue]{
	Table: Table{
		Name: TableLeisureVenues,
		Columns: append(
			cols("id", "name", "address", "region_id", "founding_year", "avg_price", "popularity",
				"historic", "community_type", "cultural_tags"),
			geom("location")),
	},
	Row: func(v model.LeisureVenue) []any {
		return []any{
			v.ID, v.Name, v.Address, v.RegionID, v.FoundingYear, v.AvgPrice, v.Popularity,
			v.Historic, v.CommunityType, EncodeTags(v.Tags),
			geometry.EncodePoint(v.Location),
		}
	},
}

// SignalTable maps signal records to SQL rows.
var SignalTable = Mapping[model.SignalRecord]{
	Table: Table{
		Name: TableSignals,
		Columns: cols("id", "recorded_at", "hour", "region_id", "population_index", "consumption_heat",
			"transit_passengers", "active_businesses", "weather", "special_event", "record_date", "record_time"),
	},
	Row: func(s model.SignalRecord) []any {
		return []any{
			s.ID, s.Timestamp, s.Hour, s.RegionID, s.PopulationIndex, s.ConsumptionHeat,
			s.TransitPassengers, s.ActiveBusinesses, s.Weather, nullString(s.SpecialEvent), s.Date, s.Time,
		}
	},
}

// AlertTable maps alerts to SQL rows.
var AlertTable = Mapping[model.Alert]{
	Table: Table{
		Name:    TableAlerts,
		Columns: cols("id", "alert_time", "alert_type", "content", "impact_value", "active"),
	},
	Row: func(a model.Alert) []any {
		return []any{a.ID, a.AlertTime, a.Type, a.Content, a.ImpactValue, a.Active}
	},
}

// EncodeTags renders a tag list as JSON text. A nil list encodes as "[]".
func EncodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	return string(data)
}

// DecodeTags parses JSON tag text. Malformed or empty text yields no tags.
func DecodeTags(s string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
