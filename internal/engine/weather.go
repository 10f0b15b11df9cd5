package engine

import (
	"strings"

	"krishi-advisor/internal/models"
)

// Alert codes, emitted in this order.
const (
	AlertExtremeHeat = "extreme_heat"
	AlertCold        = "cold"
	AlertHeavyRain   = "heavy_rain"
	AlertStrongWind  = "strong_wind"
	AlertFavorable   = "favorable"
)

const (
	heatThresholdC   = 40.0
	coldThresholdC   = 5.0
	heavyRainPercent = 80.0
	strongWindKmh    = 30.0
)

var alertMessages = map[string]string{
	AlertExtremeHeat: "Extreme heat expected. Irrigate in the early morning and shade young plants.",
	AlertCold:        "Cold conditions expected. Protect seedlings from frost.",
	AlertHeavyRain:   "Heavy rain likely. Clear field drainage and delay spraying.",
	AlertStrongWind:  "Strong winds expected. Stake tall crops and postpone spraying.",
	AlertFavorable:   "Weather conditions are favorable for field work.",
}

var alertMessagesHindi = map[string]string{
	AlertExtremeHeat: "अत्यधिक गर्मी की संभावना। सुबह जल्दी सिंचाई करें और छोटे पौधों को छाया दें।",
	AlertCold:        "ठंड की संभावना। पौधों को पाले से बचाएं।",
	AlertHeavyRain:   "भारी बारिश की संभावना। खेत की जल निकासी साफ रखें और छिड़काव टालें।",
	AlertStrongWind:  "तेज हवा की संभावना। ऊंची फसलों को सहारा दें और छिड़काव टालें।",
	AlertFavorable:   "मौसम खेत के काम के लिए अनुकूल है।",
}

// EvaluateWeather maps an observation to its risk alerts. Missing fields never
// trigger an alert. When nothing matches, the single favorable alert is returned.
func EvaluateWeather(obs models.WeatherObservation) []string {
	var alerts []string
	if above(obs.Temperature, heatThresholdC) {
		alerts = append(alerts, AlertExtremeHeat)
	}
	if obs.Temperature != nil && *obs.Temperature < coldThresholdC {
		alerts = append(alerts, AlertCold)
	}
	if above(obs.PrecipProbability, heavyRainPercent) {
		alerts = append(alerts, AlertHeavyRain)
	}
	if above(obs.WindSpeed, strongWindKmh) {
		alerts = append(alerts, AlertStrongWind)
	}
	if len(alerts) == 0 {
		alerts = append(alerts, AlertFavorable)
	}
	return alerts
}

// AlertMessage returns the farmer-facing text for an alert code.
func AlertMessage(code string) string {
	return alertMessages[code]
}

// LocalizedAlertMessages renders alert codes in the requested language.
// Languages without a table fall back to English.
func LocalizedAlertMessages(codes []string, language string) []string {
	table := alertMessages
	if strings.EqualFold(strings.TrimSpace(language), "hi") {
		table = alertMessagesHindi
	}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, table[c])
	}
	return out
}

// NeutralObservation is the average-conditions observation used when the
// weather provider is unavailable.
func NeutralObservation(region models.Region) models.WeatherObservation {
	temp := region.AvgTempC
	humidity := region.AvgHumidity
	wind := 10.0
	precip := 20.0
	return models.WeatherObservation{
		City:              region.City,
		Temperature:       &temp,
		Humidity:          &humidity,
		WindSpeed:         &wind,
		PrecipProbability: &precip,
		Conditions:        "Average conditions",
		Source:            "regional-normals",
	}
}

func above(v *float64, threshold float64) bool {
	return v != nil && *v > threshold
}
