package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"krishi-advisor/internal/models"
)

// Sub-score weights of the confidence score.
const (
	seasonWeight = 0.5
	soilWeight   = 0.3
	waterWeight  = 0.2

	seasonMarginDays = 30.0
	defaultSoilMatch = 0.5
	minYieldFactor   = 0.7
	daysPerYear      = 365
)

// ScoreInput is everything the scorer needs for one (location, date) pass.
type ScoreInput struct {
	Location models.Location
	Date     time.Time
	Soil     models.SoilProfile
	Crops    []models.CropProfile
	// Prices maps lower-cased crop names to the current market price per kg.
	Prices map[string]float64
}

// Scorer ranks catalog crops by how well they suit a location and date.
type Scorer struct {
	logger *zap.Logger
}

func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{logger: logger}
}

type subScore struct {
	weighted float64
	reason   string
}

// Score computes a recommendation for every usable crop, sorted by confidence
// descending, then yield descending, then name ascending. Unusable catalog entries
// are skipped with a warning.
func (s *Scorer) Score(in ScoreInput) []models.CropRecommendation {
	recs := make([]models.CropRecommendation, 0, len(in.Crops))
	for _, crop := range in.Crops {
		if err := validProfile(crop); err != "" {
			s.logger.Warn("Skipping catalog entry",
				zap.String("crop", crop.Name),
				zap.String("reason", err))
			continue
		}
		recs = append(recs, s.scoreCrop(crop, in))
	}
	SortRecommendations(recs)
	return recs
}

func (s *Scorer) scoreCrop(crop models.CropProfile, in ScoreInput) models.CropRecommendation {
	season := SeasonMatch(crop, in.Date)
	soil := SoilMatch(crop, in.Soil.SoilType)
	water := WaterMatch(crop.Water, in.Soil.WaterAvailability)

	confidence := round(clamp(seasonWeight*season+soilWeight*soil+waterWeight*water, 0, 1), 4)
	yield := round(math.Max(0, crop.BaseYield*(minYieldFactor+(1-minYieldFactor)*confidence)), 2)

	rec := models.CropRecommendation{
		CropName:          crop.Name,
		Category:          crop.Category.String(),
		Icon:              crop.Category.Icon(),
		ConfidenceScore:   confidence,
		ConfidencePercent: UnitToPercent(confidence),
		YieldForecast:     yield,
		Reasons: topReasons([]subScore{
			{weighted: seasonWeight * season, reason: seasonReason(season)},
			{weighted: soilWeight * soil, reason: soilReason(soil)},
			{weighted: waterWeight * water, reason: waterReason(water)},
		}),
		GrowingSeason:    crop.SeasonLabel(),
		SeasonColor:      crop.Seasons[0].Color(),
		WaterRequirement: crop.Water.String(),
		SoilSuitability:  SoilLabel(soil),
	}

	price, ok := in.Prices[strings.ToLower(crop.Name)]
	switch {
	case ok && price > 0:
		p := price
		rec.CurrentPrice = &p
	case crop.HistoricalPrice > 0:
		price = crop.HistoricalPrice
		rec.PriceStale = true
	default:
		rec.PriceStale = true
		return rec
	}
	profit := round(yield*price-crop.BaseCost, 2)
	rec.ProfitEstimate = &profit
	return rec
}

// SortRecommendations orders recommendations deterministically.
func SortRecommendations(recs []models.CropRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.ConfidenceScore != b.ConfidenceScore {
			return a.ConfidenceScore > b.ConfidenceScore
		}
		if a.YieldForecast != b.YieldForecast {
			return a.YieldForecast > b.YieldForecast
		}
		return a.CropName < b.CropName
	})
}

// SeasonMatch is 1 inside any of the crop's season windows and falls linearly
// to 0 over the 30 days outside the nearest window edge.
func SeasonMatch(crop models.CropProfile, date time.Time) float64 {
	day := date.YearDay()
	best := 0.0
	for _, season := range crop.Seasons {
		w := season.Window()
		if w.Contains(day) {
			return 1
		}
		d := math.Min(dayDistance(day, w.Start), dayDistance(day, w.End))
		best = math.Max(best, clamp(1-d/seasonMarginDays, 0, 1))
	}
	return best
}

// SoilMatch looks the soil type up in the crop's suitability table.
func SoilMatch(crop models.CropProfile, soilType string) float64 {
	if v, ok := crop.SoilSuitability[strings.ToLower(strings.TrimSpace(soilType))]; ok {
		return clamp(v, 0, 1)
	}
	return defaultSoilMatch
}

// WaterMatch compares the normalized requirement tier with availability in [0,1].
func WaterMatch(tier models.WaterTier, availability float64) float64 {
	return clamp(1-math.Abs(tier.Normalized()-clamp(availability, 0, 1)), 0, 1)
}

// SoilLabel renders a soil sub-score as a suitability label.
func SoilLabel(soil float64) string {
	switch {
	case soil >= 0.75:
		return "High"
	case soil >= 0.5:
		return "Moderate"
	default:
		return "Low"
	}
}

func validProfile(crop models.CropProfile) string {
	switch {
	case strings.TrimSpace(crop.Name) == "":
		return "missing name"
	case len(crop.Seasons) == 0:
		return "no growing season"
	case crop.Water == models.WaterUnknown:
		return "unknown water requirement"
	case crop.BaseYield < 0:
		return "negative base yield"
	}
	for _, s := range crop.Seasons {
		if s == models.SeasonUnknown {
			return "unknown season"
		}
	}
	return ""
}

func dayDistance(a, b int) float64 {
	d := math.Abs(float64(a - b))
	return math.Min(d, daysPerYear-d)
}

// topReasons keeps the two largest weighted contributions; earlier entries win ties.
func topReasons(scores []subScore) []string {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].weighted > scores[j].weighted
	})
	out := make([]string, 0, 2)
	for _, s := range scores[:2] {
		out = append(out, s.reason)
	}
	return out
}

func seasonReason(v float64) string {
	switch {
	case v >= 1:
		return "Ideal growing season"
	case v > 0:
		return "Near the growing season window"
	default:
		return "Outside the growing season"
	}
}

func soilReason(v float64) string {
	return SoilLabel(v) + " soil suitability"
}

func waterReason(v float64) string {
	switch {
	case v >= 0.8:
		return "Water availability matches requirement"
	case v >= 0.5:
		return "Adequate water availability"
	default:
		return "Water availability mismatch"
	}
}
