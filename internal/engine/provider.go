package engine

import (
	"context"
	"time"

	"krishi-advisor/internal/models"
)

// PriceInput is a single crop's prediction request.
type PriceInput struct {
	Crop          string
	CurrentPrice  float64
	Factors       []string
	WeatherImpact string
}

// TrendInput is a seasonal curve request.
type TrendInput struct {
	Crop     string
	Baseline float64
	Start    time.Time
	Months   int
}

// PredictionProvider is the seam for price models. The aggregator depends only on
// this interface, so a trained model can replace RuleBasedProvider without
// changing its contract.
type PredictionProvider interface {
	PredictPrice(ctx context.Context, in PriceInput) (models.PricePrediction, error)
	SeasonalTrend(ctx context.Context, in TrendInput) ([]models.SeasonalTrendPoint, error)
}

// RuleBasedProvider implements PredictionProvider with the fixed factor table and
// static seasonal indices.
type RuleBasedProvider struct {
	forecaster *Forecaster
	curves     *CurveGenerator
}

func NewRuleBasedProvider(forecaster *Forecaster, curves *CurveGenerator) *RuleBasedProvider {
	return &RuleBasedProvider{forecaster: forecaster, curves: curves}
}

func (p *RuleBasedProvider) PredictPrice(ctx context.Context, in PriceInput) (models.PricePrediction, error) {
	if err := ctx.Err(); err != nil {
		return models.PricePrediction{}, err
	}
	return p.forecaster.Predict(in.Crop, in.CurrentPrice, in.Factors, in.WeatherImpact)
}

func (p *RuleBasedProvider) SeasonalTrend(ctx context.Context, in TrendInput) ([]models.SeasonalTrendPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.curves.Generate(in.Crop, in.Baseline, in.Start, in.Months)
}
