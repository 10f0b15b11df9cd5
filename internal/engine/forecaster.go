package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"krishi-advisor/internal/models"
)

// Trend labels.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

const (
	trendThresholdPercent = 2.0
	maxMagnitudePercent   = 25.0
	baseConfidence        = 90.0
	factorPenalty         = 5.0
	freeFactors           = 2
	minConfidence         = 40.0
)

// Price factor tags.
const (
	FactorMonsoon           = "Monsoon season"
	FactorFestival          = "Festival demand"
	FactorExport            = "Export demand"
	FactorHarvest           = "Harvest season"
	FactorBumperCrop        = "Bumper crop"
	FactorImports           = "Import competition"
	FactorStoragePremium    = "Storage premium"
	FactorProcurement       = "Government procurement"
	FactorWeatherDisruption = "Weather disruption"
	FactorMomentumUp        = "Upward price momentum"
	FactorMomentumDown      = "Downward price momentum"
)

// factorEffects holds the signed percent effect of each tag, keyed by lower-cased tag.
var factorEffects = map[string]float64{
	strings.ToLower(FactorMonsoon):           5,
	strings.ToLower(FactorFestival):          8,
	strings.ToLower(FactorExport):            4,
	strings.ToLower(FactorHarvest):           -5,
	strings.ToLower(FactorBumperCrop):        -6,
	strings.ToLower(FactorImports):           -4,
	strings.ToLower(FactorStoragePremium):    3,
	strings.ToLower(FactorProcurement):       2,
	strings.ToLower(FactorWeatherDisruption): 6,
	strings.ToLower(FactorMomentumUp):        3,
	strings.ToLower(FactorMomentumDown):      -3,
}

// ErrNoCurrentPrice means a crop has no usable current price and cannot be predicted.
var ErrNoCurrentPrice = errors.New("no current price")

// FactorEffect returns the signed percent effect of a factor tag.
func FactorEffect(tag string) (float64, bool) {
	v, ok := factorEffects[strings.ToLower(strings.TrimSpace(tag))]
	return v, ok
}

// FormatFactor renders a tag with its signed effect, e.g. "Festival demand (+8%)".
func FormatFactor(tag string) string {
	v, ok := FactorEffect(tag)
	if !ok {
		return tag
	}
	return fmt.Sprintf("%s (%+g%%)", strings.TrimSpace(tag), v)
}

// ClassifyTrend maps a percent change to a trend. The interval [-2, 2] is stable.
func ClassifyTrend(changePercent float64) string {
	switch {
	case changePercent > trendThresholdPercent:
		return TrendRising
	case changePercent < -trendThresholdPercent:
		return TrendFalling
	default:
		return TrendStable
	}
}

// FactorConfidence is 90 less 5 per factor beyond the first two, floored at 40.
func FactorConfidence(factorCount int) float64 {
	extra := math.Max(0, float64(factorCount-freeFactors))
	return math.Max(minConfidence, baseConfidence-factorPenalty*extra)
}

// Forecaster predicts near-term mandi prices from qualitative factors.
type Forecaster struct {
	logger *zap.Logger
	period string
}

func NewForecaster(logger *zap.Logger, period string) *Forecaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if period == "" {
		period = "Next 30 days"
	}
	return &Forecaster{logger: logger, period: period}
}

// Predict applies the factor effects to the current price. Unknown tags are
// ignored and do not count toward the confidence penalty; repeated tags count once.
func (f *Forecaster) Predict(crop string, currentPrice float64, factors []string, weatherImpact string) (models.PricePrediction, error) {
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return models.PricePrediction{}, fmt.Errorf("%s: %w", crop, ErrNoCurrentPrice)
	}

	seen := make(map[string]bool, len(factors))
	applied := make([]string, 0, len(factors))
	sum := 0.0
	for _, tag := range factors {
		key := strings.ToLower(strings.TrimSpace(tag))
		effect, ok := factorEffects[key]
		if !ok {
			f.logger.Warn("Ignoring unknown price factor", zap.String("crop", crop), zap.String("factor", tag))
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		sum += effect
		applied = append(applied, FormatFactor(tag))
	}

	magnitude := clamp(sum, -maxMagnitudePercent, maxMagnitudePercent)
	predicted := currentPrice * (1 + magnitude/100)
	change := round(100*(predicted-currentPrice)/currentPrice, 2)

	return models.PricePrediction{
		ID:                 uuid.NewString(),
		CropName:           crop,
		CurrentPrice:       currentPrice,
		PredictedPrice:     round(predicted, 2),
		PriceChangePercent: change,
		Trend:              ClassifyTrend(change),
		Confidence:         FactorConfidence(len(applied)),
		SeasonalFactors:    applied,
		WeatherImpact:      weatherImpact,
		PredictionPeriod:   f.period,
	}, nil
}
