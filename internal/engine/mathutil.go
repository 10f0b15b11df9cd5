package engine

import "math"

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// UnitToPercent converts a [0,1] confidence to the [0,100] scale used by price predictions.
func UnitToPercent(v float64) int {
	return int(math.Round(clamp(v, 0, 1) * 100))
}
