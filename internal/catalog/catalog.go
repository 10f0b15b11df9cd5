// Package catalog loads the static crop catalog, regional profiles and
// seasonal price tables the engine scores against.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"krishi-advisor/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type cropEntry struct {
	Name            string             `yaml:"name"`
	Category        string             `yaml:"category"`
	Seasons         []string           `yaml:"seasons"`
	Water           string             `yaml:"water"`
	BaseYield       float64            `yaml:"base_yield"`
	BaseCost        float64            `yaml:"base_cost"`
	HistoricalPrice float64            `yaml:"historical_price"`
	Soil            map[string]float64 `yaml:"soil"`
	SeasonalIndex   []float64          `yaml:"seasonal_index"`
}

type regionEntry struct {
	City        string  `yaml:"city"`
	State       string  `yaml:"state"`
	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
	Soil        string  `yaml:"soil"`
	Water       float64 `yaml:"water"`
	AvgTemp     float64 `yaml:"avg_temp"`
	AvgHumidity float64 `yaml:"avg_humidity"`
}

type document struct {
	Crops    []cropEntry      `yaml:"crops"`
	Regions  []regionEntry    `yaml:"regions"`
	Calendar map[int][]string `yaml:"calendar"`
}

// Catalog is immutable after Load and safe for concurrent reads.
type Catalog struct {
	crops         []models.CropProfile
	byName        map[string]models.CropProfile
	regions       map[string]models.Region
	seasonalIndex map[string][12]float64
	calendar      map[time.Month][]string

	// Skipped lists entries that could not be used, with the reason.
	Skipped []string
}

// Load reads the catalog from path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog document. Crop entries with an unknown season or
// water tier are skipped and recorded in Skipped rather than failing the load.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		byName:        make(map[string]models.CropProfile),
		regions:       make(map[string]models.Region),
		seasonalIndex: make(map[string][12]float64),
		calendar:      make(map[time.Month][]string),
	}

	for _, e := range doc.Crops {
		profile, err := e.toProfile()
		if err != nil {
			c.Skipped = append(c.Skipped, fmt.Sprintf("crop %q: %v", e.Name, err))
			continue
		}
		key := normalize(profile.Name)
		if _, dup := c.byName[key]; dup {
			c.Skipped = append(c.Skipped, fmt.Sprintf("crop %q: duplicate entry", e.Name))
			continue
		}
		c.crops = append(c.crops, profile)
		c.byName[key] = profile

		var idx [12]float64
		for m := range idx {
			idx[m] = 1.0
			if m < len(e.SeasonalIndex) && e.SeasonalIndex[m] > 0 {
				idx[m] = e.SeasonalIndex[m]
			}
		}
		c.seasonalIndex[key] = idx
	}

	for _, r := range doc.Regions {
		if strings.TrimSpace(r.City) == "" {
			c.Skipped = append(c.Skipped, "region with empty city")
			continue
		}
		c.regions[normalize(r.City)] = models.Region{
			City:              r.City,
			State:             r.State,
			Latitude:          r.Lat,
			Longitude:         r.Lon,
			SoilType:          strings.ToLower(r.Soil),
			WaterAvailability: clamp01(r.Water),
			AvgTempC:          r.AvgTemp,
			AvgHumidity:       r.AvgHumidity,
		}
	}

	for month, tags := range doc.Calendar {
		if month < 1 || month > 12 {
			c.Skipped = append(c.Skipped, fmt.Sprintf("calendar month %d out of range", month))
			continue
		}
		c.calendar[time.Month(month)] = tags
	}

	if len(c.crops) == 0 {
		return nil, fmt.Errorf("catalog has no usable crops")
	}
	return c, nil
}

func (e cropEntry) toProfile() (models.CropProfile, error) {
	if strings.TrimSpace(e.Name) == "" {
		return models.CropProfile{}, fmt.Errorf("missing name")
	}
	if len(e.Seasons) == 0 {
		return models.CropProfile{}, fmt.Errorf("no growing season")
	}
	seasons := make([]models.Season, 0, len(e.Seasons))
	for _, s := range e.Seasons {
		season, err := models.ParseSeason(s)
		if err != nil {
			return models.CropProfile{}, err
		}
		seasons = append(seasons, season)
	}
	water, err := models.ParseWaterTier(e.Water)
	if err != nil {
		return models.CropProfile{}, err
	}
	if e.BaseYield < 0 || e.BaseCost < 0 {
		return models.CropProfile{}, fmt.Errorf("negative yield or cost")
	}

	soil := make(map[string]float64, len(e.Soil))
	for k, v := range e.Soil {
		soil[strings.ToLower(k)] = clamp01(v)
	}

	return models.CropProfile{
		Name:            strings.TrimSpace(e.Name),
		Category:        models.ParseCropCategory(e.Category),
		Seasons:         seasons,
		Water:           water,
		BaseYield:       e.BaseYield,
		BaseCost:        e.BaseCost,
		HistoricalPrice: e.HistoricalPrice,
		SoilSuitability: soil,
	}, nil
}

// Crops returns the catalog entries in file order.
func (c *Catalog) Crops() []models.CropProfile {
	out := make([]models.CropProfile, len(c.crops))
	copy(out, c.crops)
	return out
}

// Crop looks a crop up by name, case-insensitively.
func (c *Catalog) Crop(name string) (models.CropProfile, error) {
	p, ok := c.byName[normalize(name)]
	if !ok {
		return models.CropProfile{}, models.NewValidationError("crop", name, "not in catalog")
	}
	return p, nil
}

// Region resolves a city to its regional profile.
func (c *Catalog) Region(city string) (models.Region, error) {
	if strings.TrimSpace(city) == "" {
		return models.Region{}, models.NewValidationError("city", city, "must not be empty")
	}
	r, ok := c.regions[normalize(city)]
	if !ok {
		return models.Region{}, models.NewValidationError("city", city, "unknown location")
	}
	return r, nil
}

// Cities lists known cities in alphabetical order.
func (c *Catalog) Cities() []string {
	out := make([]string, 0, len(c.regions))
	for _, r := range c.regions {
		out = append(out, r.City)
	}
	sort.Strings(out)
	return out
}

// SeasonalIndex returns the per-month price multipliers for a crop, January first.
func (c *Catalog) SeasonalIndex(crop string) ([12]float64, bool) {
	idx, ok := c.seasonalIndex[normalize(crop)]
	return idx, ok
}

// MonthFactors returns the calendar-driven price drivers for a month.
func (c *Catalog) MonthFactors(month time.Month) []string {
	tags := c.calendar[month]
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
