// Package model defines the city dataset entities shared by the generator,
// the store, the exporters, and the analytics engine.
package model

import (
	"time"

	"github.com/sells-group/city-pulse/internal/geometry"
)

// Region is an administrative district with its center and boundary box.
type Region struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	AreaKm2       float64         `json:"area_km2"`
	Density       float64         `json:"density"`
	Population    int             `json:"population"`
	VitalityScore float64         `json:"vitality_score"`
	Center        geometry.LngLat `json:"center"`
	Boundary      geometry.BBox   `json:"boundary"`
	HighDensity   bool            `json:"high_density"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Brand is a dining chain with its share of the market.
type Brand struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	MarketShare    float64   `json:"market_share"`
	AvgWaitMinutes int       `json:"avg_wait_minutes"`
	StoreCount     int       `json:"store_count"`
	PriceTier      string    `json:"price_tier"`
	UpdateDate     time.Time `json:"update_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DiningVenue is a restaurant. BrandID is nil for independent venues.
type DiningVenue struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	BrandID       *int            `json:"brand_id"`
	Address       string          `json:"address"`
	RegionID      int             `json:"region_id"`
	PriceMin      int             `json:"price_min"`
	PriceAvg      int             `json:"price_avg"`
	PriceMax      int             `json:"price_max"`
	Rating        float64         `json:"rating"`
	ReviewCount   int             `json:"review_count"`
	Category      string          `json:"category"`
	BusinessHours string          `json:"business_hours"`
	Open24h       bool            `json:"open_24h"`
	OpenDate      time.Time       `json:"open_date"`
	Active        bool            `json:"active"`
	Location      geometry.LngLat `json:"location"`
}

// LeisureVenue is a teahouse-style leisure venue.
type LeisureVenue struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Address       string          `json:"address"`
	RegionID      int             `json:"region_id"`
	FoundingYear  int             `json:"founding_year"`
	AvgPrice      float64         `json:"avg_price"`
	Popularity    int             `json:"popularity"`
	Historic      bool            `json:"historic"`
	CommunityType string          `json:"community_type"`
	Tags          []string        `json:"tags"`
	Location      geometry.LngLat `json:"location"`
}

// SignalRecord is one hourly activity sample for a region.
type SignalRecord struct {
	ID                int       `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Hour              int       `json:"hour"`
	RegionID          int       `json:"region_id"`
	PopulationIndex   int       `json:"population_index"`
	ConsumptionHeat   float64   `json:"consumption_heat"`
	TransitPassengers int       `json:"transit_passengers"`
	ActiveBusinesses  int       `json:"active_businesses"`
	Weather           string    `json:"weather"`
	SpecialEvent      *string   `json:"special_event"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
}

// Alert is a denormalized city event notice.
type Alert struct {
	ID          int       `json:"id"`
	AlertTime   time.Time `json:"alert_time"`
	Type        string    `json:"alert_type"`
	Content     string    `json:"content"`
	ImpactValue string    `json:"impact_value"`
	Active      bool      `json:"active"`
}

// Date and time layouts used for the split signal fields and tabular exports.
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04:05"
	TimestampLayout = "2006-01-02 15:04:05"
)

// NewSignalRecord fills the derived Hour, Date, and Time fields from ts.
func NewSignalRecord(ts time.Time) SignalRecord {
	return SignalRecord{
		Timestamp: ts,
		Hour:      ts.Hour(),
		Date:      ts.Format(DateLayout),
		Time:      ts.Format(ClockLayout),
	}
}

// Dataset is one complete generated or stored city snapshot.
type Dataset struct {
	Regions       []Region       `json:"regions"`
	Brands        []Brand        `json:"brands"`
	DiningVenues  []DiningVenue  `json:"dining_venues"`
	LeisureVenues []LeisureVenue `json:"leisure_venues"`
	Signals       []SignalRecord `json:"signals"`
	Alerts        []Alert        `json:"alerts"`
}

// Counts returns the size of each collection keyed by table name.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"regions":        len(d.Regions),
		"brands":         len(d.Brands),
		"dining_venues":  len(d.DiningVenues),
		"leisure_venues": len(d.LeisureVenues),
		"signal_records": len(d.Signals),
		"alerts":         len(d.Alerts),
	}
}
