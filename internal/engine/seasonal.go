package engine

import (
	"math"
	"time"

	"krishi-advisor/internal/models"
)

const (
	curveDecayPerMonth = 3.0
	MaxHorizonMonths   = 12
)

// SeasonalTable supplies the static per-crop monthly multipliers and the
// calendar annotations for each month.
type SeasonalTable interface {
	SeasonalIndex(crop string) ([12]float64, bool)
	MonthFactors(month time.Month) []string
}

// CurveGenerator produces multi-month price curves with decaying confidence.
type CurveGenerator struct {
	table SeasonalTable
}

func NewCurveGenerator(table SeasonalTable) *CurveGenerator {
	return &CurveGenerator{table: table}
}

// Generate returns one point per month starting at the month of start.
// Confidence never increases with the month index.
func (g *CurveGenerator) Generate(crop string, baseline float64, start time.Time, months int) ([]models.SeasonalTrendPoint, error) {
	if months < 1 || months > MaxHorizonMonths {
		return nil, models.NewValidationError("months", "", "horizon must be between 1 and 12")
	}
	if baseline <= 0 || math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		return nil, models.NewValidationError("baseline", crop, "baseline price must be positive")
	}
	index, ok := g.table.SeasonalIndex(crop)
	if !ok {
		return nil, models.NewValidationError("crop", crop, "no seasonal index")
	}

	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	points := make([]models.SeasonalTrendPoint, 0, months)
	for i := 0; i < months; i++ {
		month := first.AddDate(0, i, 0)
		tags := g.table.MonthFactors(month.Month())
		factors := make([]string, 0, len(tags))
		for _, tag := range tags {
			factors = append(factors, FormatFactor(tag))
		}
		points = append(points, models.SeasonalTrendPoint{
			Month:          month.Format("Jan 2006"),
			PredictedPrice: round(baseline*index[month.Month()-1], 2),
			Confidence:     CurveConfidence(i),
			Factors:        factors,
		})
	}
	return points, nil
}

// CurveConfidence is max(40, 90 - 3*i) for month index i.
func CurveConfidence(i int) float64 {
	if i < 0 {
		i = 0
	}
	return math.Max(minConfidence, baseConfidence-curveDecayPerMonth*float64(i))
}
