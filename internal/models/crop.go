package models

import (
	"fmt"
	"strings"
)

// Season is one of India's three cropping seasons.
type Season int

const (
	SeasonUnknown Season = iota
	Kharif
	Rabi
	Zaid
)

// DayWindow is an inclusive day-of-year range. Start > End means the window wraps the year end.
type DayWindow struct {
	Start int
	End   int
}

// Contains reports whether the day of year falls inside the window.
func (w DayWindow) Contains(day int) bool {
	if w.Start <= w.End {
		return day >= w.Start && day <= w.End
	}
	return day >= w.Start || day <= w.End
}

type seasonProps struct {
	label  string
	color  string
	window DayWindow
}

var seasonTable = map[Season]seasonProps{
	Kharif: {label: "Kharif", color: "#2E7D32", window: DayWindow{Start: 166, End: 288}},
	Rabi:   {label: "Rabi", color: "#F9A825", window: DayWindow{Start: 288, End: 74}},
	Zaid:   {label: "Zaid", color: "#EF6C00", window: DayWindow{Start: 74, End: 166}},
}

func (s Season) String() string {
	if p, ok := seasonTable[s]; ok {
		return p.label
	}
	return "Unknown"
}

// Color is the display color associated with the season.
func (s Season) Color() string {
	return seasonTable[s].color
}

// Window is the sowing-to-harvest window of the season.
func (s Season) Window() DayWindow {
	return seasonTable[s].window
}

// ParseSeason maps a season name to its variant.
func ParseSeason(name string) (Season, error) {
	for s, p := range seasonTable {
		if strings.EqualFold(p.label, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return SeasonUnknown, fmt.Errorf("unknown season %q", name)
}

// WaterTier is a crop's water requirement.
type WaterTier int

const (
	WaterUnknown WaterTier = iota
	WaterLow
	WaterMedium
	WaterHigh
)

var waterTierNames = map[WaterTier]string{
	WaterLow:    "low",
	WaterMedium: "medium",
	WaterHigh:   "high",
}

func (w WaterTier) String() string {
	if n, ok := waterTierNames[w]; ok {
		return n
	}
	return "unknown"
}

// Normalized maps the tier onto [0,1]: low 0, medium 0.5, high 1.
func (w WaterTier) Normalized() float64 {
	switch w {
	case WaterLow:
		return 0
	case WaterMedium:
		return 0.5
	case WaterHigh:
		return 1
	}
	return 0.5
}

// ParseWaterTier maps "low", "medium" or "high" to a tier.
func ParseWaterTier(name string) (WaterTier, error) {
	for t, n := range waterTierNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return WaterUnknown, fmt.Errorf("unknown water requirement %q", name)
}

// CropCategory groups crops for display.
type CropCategory int

const (
	CategoryOther CropCategory = iota
	CategoryCereal
	CategoryPulse
	CategoryOilseed
	CategoryFibre
	CategoryCash
	CategoryVegetable
	CategoryFruit
)

type categoryProps struct {
	label string
	icon  string
}

var categoryTable = map[CropCategory]categoryProps{
	CategoryOther:     {label: "other", icon: "leaf"},
	CategoryCereal:    {label: "cereal", icon: "grain"},
	CategoryPulse:     {label: "pulse", icon: "seed"},
	CategoryOilseed:   {label: "oilseed", icon: "flower"},
	CategoryFibre:     {label: "fibre", icon: "cotton"},
	CategoryCash:      {label: "cash", icon: "sugarcane"},
	CategoryVegetable: {label: "vegetable", icon: "carrot"},
	CategoryFruit:     {label: "fruit", icon: "fruit"},
}

func (c CropCategory) String() string {
	return categoryTable[c].label
}

// Icon is the presentation icon key for the category.
func (c CropCategory) Icon() string {
	return categoryTable[c].icon
}

// ParseCropCategory maps a category label to its variant; unknown labels become CategoryOther.
func ParseCropCategory(label string) CropCategory {
	for c, p := range categoryTable {
		if strings.EqualFold(p.label, strings.TrimSpace(label)) {
			return c
		}
	}
	return CategoryOther
}

// CropProfile is a static catalog entry.
type CropProfile struct {
	Name            string
	Category        CropCategory
	Seasons         []Season
	Water           WaterTier
	BaseYield       float64 // kg/acre
	BaseCost        float64 // per acre
	HistoricalPrice float64 // per kg, used when no market price is available
	SoilSuitability map[string]float64
}

// SeasonLabel joins the crop's season names, e.g. "Kharif/Rabi".
func (p CropProfile) SeasonLabel() string {
	names := make([]string, 0, len(p.Seasons))
	for _, s := range p.Seasons {
		names = append(names, s.String())
	}
	return strings.Join(names, "/")
}

// Region is the static climate and soil context of a city.
type Region struct {
	City              string
	State             string
	Latitude          float64
	Longitude         float64
	SoilType          string
	WaterAvailability float64
	AvgTempC          float64
	AvgHumidity       float64
}
