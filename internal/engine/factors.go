package engine

import (
	"strings"
	"time"

	"krishi-advisor/internal/models"
)

const (
	momentumThreshold = 0.05
	harvestLagDays    = 30
)

// FactorInput is the context used to derive qualitative price factors for a crop.
type FactorInput struct {
	Crop    models.CropProfile
	Date    time.Time
	Alerts  []string
	History []float64
}

// DeriveFactors lists the market-impact tags that apply to a crop on a date:
// calendar drivers, the crop's own harvest glut, weather disruption and recent
// price momentum.
func DeriveFactors(in FactorInput) []string {
	var tags []string
	switch in.Date.Month() {
	case time.June, time.July, time.August, time.September:
		tags = append(tags, FactorMonsoon)
	case time.October, time.November:
		tags = append(tags, FactorFestival)
	case time.April, time.May:
		tags = append(tags, FactorStoragePremium)
	}
	if inHarvestWindow(in.Crop, in.Date) {
		tags = append(tags, FactorHarvest)
	}
	if hasAlert(in.Alerts, AlertHeavyRain) || hasAlert(in.Alerts, AlertStrongWind) {
		tags = append(tags, FactorWeatherDisruption)
	}
	if m := Momentum(in.History); m > momentumThreshold {
		tags = append(tags, FactorMomentumUp)
	} else if m < -momentumThreshold {
		tags = append(tags, FactorMomentumDown)
	}
	return tags
}

// Momentum is the relative deviation of the latest price from the mean of the
// series. It is 0 for fewer than two usable points.
func Momentum(history []float64) float64 {
	var sum float64
	var n int
	last := 0.0
	for _, p := range history {
		if p > 0 {
			sum += p
			n++
			last = p
		}
	}
	if n < 2 {
		return 0
	}
	mean := sum / float64(n)
	return (last - mean) / mean
}

// WeatherImpact summarizes how the alerts affect supply.
func WeatherImpact(alerts []string, stale bool) string {
	if stale {
		return "Weather data unavailable; prediction based on average conditions"
	}
	var parts []string
	for _, a := range alerts {
		switch a {
		case AlertExtremeHeat:
			parts = append(parts, "heat stress may reduce arrivals")
		case AlertCold:
			parts = append(parts, "cold may slow crop maturity")
		case AlertHeavyRain:
			parts = append(parts, "heavy rain may disrupt transport to mandis")
		case AlertStrongWind:
			parts = append(parts, "strong winds may damage standing crops")
		}
	}
	if len(parts) == 0 {
		return "Weather conditions normal; no supply disruption expected"
	}
	s := strings.Join(parts, "; ")
	return strings.ToUpper(s[:1]) + s[1:]
}

func inHarvestWindow(crop models.CropProfile, date time.Time) bool {
	day := date.YearDay()
	for _, s := range crop.Seasons {
		end := s.Window().End
		after := day - end
		if after < 0 {
			after += daysPerYear
		}
		if after > 0 && after <= harvestLagDays {
			return true
		}
	}
	return false
}

func hasAlert(alerts []string, code string) bool {
	for _, a := range alerts {
		if a == code {
			return true
		}
	}
	return false
}
