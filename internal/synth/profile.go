package synth

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/city-pulse/internal/geometry"
)

//go:embed profile.yaml
var defaultProfileYAML []byte

// PriceFloor is the lowest minimum price a dining venue may carry.
const PriceFloor = 30

// maxBrands keeps every non-final brand able to draw at least 5% share.
const maxBrands = 20

// Envelope is the rectangle all sampled coordinates are clamped into.
type Envelope struct {
	MinLng float64 `yaml:"min_lng" mapstructure:"min_lng"`
	MaxLng float64 `yaml:"max_lng" mapstructure:"max_lng"`
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
}

// BBox returns the envelope as a geometry box.
func (e Envelope) BBox() geometry.BBox {
	return geometry.BBox{MinLng: e.MinLng, MinLat: e.MinLat, MaxLng: e.MaxLng, MaxLat: e.MaxLat}
}

// RegionSpec names one region and whether it belongs to the high-density subset.
type RegionSpec struct {
	Name        string `yaml:"name"`
	HighDensity bool   `yaml:"high_density"`
}

// CategorySpec is a dining price tier and the range its average price is drawn from.
type CategorySpec struct {
	Name   string `yaml:"name"`
	AvgMin int    `yaml:"avg_min"`
	AvgMax int    `yaml:"avg_max"`
}

// Profile holds the vocabularies and geography a generation run draws from.
type Profile struct {
	Envelope            Envelope       `yaml:"envelope"`
	Regions             []RegionSpec   `yaml:"regions"`
	Brands              []string       `yaml:"brands"`
	BrandTiers          []string       `yaml:"brand_tiers"`
	DiningCategories    []CategorySpec `yaml:"dining_categories"`
	DiningNamePrefixes  []string       `yaml:"dining_name_prefixes"`
	DiningNameSuffixes  []string       `yaml:"dining_name_suffixes"`
	LeisureNameSuffixes []string       `yaml:"leisure_name_suffixes"`
	LeisureTags         []string       `yaml:"leisure_tags"`
	Weather             []string       `yaml:"weather"`
	SpecialEvents       []string       `yaml:"special_events"`
	AlertTypes          []string       `yaml:"alert_types"`
	AlertEffects        []string       `yaml:"alert_effects"`
}

// DefaultProfile returns the embedded profile.
func DefaultProfile() (*Profile, error) {
	return ParseProfile(defaultProfileYAML)
}

// LoadProfile reads a profile from a YAML file. An empty path loads the default.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "synth: read profile %s", path)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "synth: parse profile")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the profile can drive a generation run.
func (p *Profile) Validate() error {
	e := p.Envelope
	if e.MinLng >= e.MaxLng || e.MinLat >= e.MaxLat {
		return eris.New("synth: profile envelope is empty")
	}
	if len(p.Regions) == 0 {
		return eris.New("synth: profile has no regions")
	}
	seen := make(map[string]bool, len(p.Regions))
	for _, r := range p.Regions {
		if r.Name == "" {
			return eris.New("synth: profile region with empty name")
		}
		if seen[r.Name] {
			return eris.Errorf("synth: duplicate region %q", r.Name)
		}
		seen[r.Name] = true
	}
	if len(p.Brands) == 0 || len(p.Brands) > maxBrands {
		return eris.Errorf("synth: profile needs 1 to %d brands, has %d", maxBrands, len(p.Brands))
	}
	if len(p.DiningCategories) == 0 {
		return eris.New("synth: profile has no dining categories")
	}
	for _, c := range p.DiningCategories {
		if c.AvgMin < PriceFloor || c.AvgMax < c.AvgMin {
			return eris.Errorf("synth: dining category %q has invalid price range %d-%d", c.Name, c.AvgMin, c.AvgMax)
		}
	}
	if len(p.LeisureTags) == 0 {
		return eris.New("synth: profile has no leisure tags")
	}

	required := map[string][]string{
		"brand_tiers":           p.BrandTiers,
		"dining_name_prefixes":  p.DiningNamePrefixes,
		"dining_name_suffixes":  p.DiningNameSuffixes,
		"leisure_name_suffixes": p.LeisureNameSuffixes,
		"weather":               p.Weather,
		"special_events":        p.SpecialEvents,
		"alert_types":           p.AlertTypes,
		"alert_effects":         p.AlertEffects,
	}
	for name, vocab := range required {
		if len(vocab) == 0 {
			return eris.Errorf("synth: profile vocabulary %s is empty", name)
		}
	}
	return nil
}

// HighDensityNames returns the names of the high-density subset in profile order.
func (p *Profile) HighDensityNames() []string {
	var names []string
	for _, r := range p.Regions {
		if r.HighDensity {
			names = append(names, r.Name)
		}
	}
	return names
}
