package models

import "time"

// Location identifies where a recommendation is requested for.
type Location struct {
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	PolygonID string   `json:"polygonId,omitempty"`
}

// WeatherObservation is the current weather for a location.
// Pointer fields are nil when the provider did not report them.
type WeatherObservation struct {
	City              string    `json:"city"`
	Temperature       *float64  `json:"temperature,omitempty"`       // °C
	Humidity          *float64  `json:"humidity,omitempty"`          // %
	WindSpeed         *float64  `json:"windSpeed,omitempty"`         // km/h
	PrecipProbability *float64  `json:"precipProbability,omitempty"` // % for the next period
	Conditions        string    `json:"conditions"`
	ObservedAt        time.Time `json:"observedAt"`
	Source            string    `json:"source"`
}

// SoilProfile is the soil and water context resolved for a location.
type SoilProfile struct {
	SoilType          string   `json:"soilType"`
	WaterAvailability float64  `json:"waterAvailability"` // [0,1]
	Moisture          *float64 `json:"moisture,omitempty"`
	SurfaceTempC      *float64 `json:"surfaceTempC,omitempty"`
	Source            string   `json:"source"`
}

// SoilReading is a live soil measurement for a registered field polygon.
type SoilReading struct {
	PolygonID    string    `json:"polygon_id"`
	Moisture     float64   `json:"moisture"` // m3/m3
	SurfaceTempC float64   `json:"temperature_surface"`
	Depth10TempC float64   `json:"temperature_10cm"`
	ObservedAt   time.Time `json:"observed_at"`
}

// PolygonCreate is the body of POST /v1/polygons. Coordinates is a GeoJSON
// polygon: rings of [lon, lat] points, each ring closed.
type PolygonCreate struct {
	Name        string        `json:"name"`
	Coordinates [][][]float64 `json:"coordinates"`
	FarmerID    string        `json:"farmer_id"`
}

// FieldPolygon is a farm field registered with the soil provider.
type FieldPolygon struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Coordinates [][][]float64 `json:"coordinates"`
	FarmerID    string        `json:"farmer_id,omitempty"`
	Area        float64       `json:"area"` // hectares
	Center      []float64     `json:"center"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CropRecommendation is a scored, explained crop for one request.
type CropRecommendation struct {
	CropName           string   `json:"crop_name"`
	Category           string   `json:"category"`
	Icon               string   `json:"icon"`
	ConfidenceScore    float64  `json:"confidence_score"`   // [0,1]
	ConfidencePercent  int      `json:"confidence_percent"` // [0,100]
	YieldForecast      float64  `json:"yield_forecast"`
	ProfitEstimate     *float64 `json:"profit_estimate,omitempty"`
	PriceStale         bool     `json:"price_stale"`
	Reasons            []string `json:"reasons"`
	GrowingSeason      string   `json:"growing_season"`
	SeasonColor        string   `json:"season_color"`
	WaterRequirement   string   `json:"water_requirement"`
	SoilSuitability    string   `json:"soil_suitability"`
	PriceDataAvailable bool     `json:"price_data_available"`
	CurrentPrice       *float64 `json:"current_price,omitempty"`
	PredictedPrice     *float64 `json:"predicted_price,omitempty"`
	PriceTrend         string   `json:"price_trend,omitempty"`
}

// MarketPricePoint is a single observed mandi price.
type MarketPricePoint struct {
	CropName   string    `json:"crop_name"`
	PricePerKg float64   `json:"price_per_kg"`
	MarketName string    `json:"market_name"`
	PriceTrend string    `json:"price_trend"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PricePrediction is the near-term price outlook for a crop.
type PricePrediction struct {
	ID                 string   `json:"id"`
	CropName           string   `json:"crop_name"`
	CurrentPrice       float64  `json:"current_price"`
	PredictedPrice     float64  `json:"predicted_price"`
	PriceChangePercent float64  `json:"price_change_percent"`
	Trend              string   `json:"trend"`
	Confidence         float64  `json:"confidence"` // [0,100]
	SeasonalFactors    []string `json:"seasonal_factors"`
	WeatherImpact      string   `json:"weather_impact"`
	PredictionPeriod   string   `json:"prediction_period"`
}

// SeasonalTrendPoint is one month of a seasonal price curve.
type SeasonalTrendPoint struct {
	Month          string   `json:"month"`
	PredictedPrice float64  `json:"predicted_price"`
	Confidence     float64  `json:"confidence"` // [0,100]
	Factors        []string `json:"factors"`
}

// RequestOptions carries per-call presentation settings. Nothing here is global.
type RequestOptions struct {
	Language  string
	TopN      int
	Dashboard bool
	ClientID  string
}

// RecommendationResult is the aggregated output for one (location, date).
type RecommendationResult struct {
	City               string               `json:"city"`
	Date               string               `json:"date"`
	Alerts             []string             `json:"alerts"`
	AlertMessages      []string             `json:"alert_messages"`
	Recommendations    []CropRecommendation `json:"recommendations"`
	Predictions        []PricePrediction    `json:"predictions"`
	PriceDataAvailable bool                 `json:"price_data_available"`
	WeatherDataStale   bool                 `json:"weather_data_stale"`
	SoilDataStale      bool                 `json:"soil_data_stale"`
	MarketDataStale    bool                 `json:"market_data_stale"`
	Notices            []string             `json:"notices,omitempty"`
	GeneratedAt        time.Time            `json:"generated_at"`
	CacheHit           bool                 `json:"cache_hit"`
}

// WeatherReport is the response of the weather alerts endpoint.
type WeatherReport struct {
	Observation   WeatherObservation `json:"observation"`
	Alerts        []string           `json:"alerts"`
	AlertMessages []string           `json:"alert_messages"`
	Stale         bool               `json:"weather_data_stale"`
}

// PredictRequest is the body of POST /v1/predictions.
type PredictRequest struct {
	City             string               `json:"city"`
	Weather          *WeatherObservation  `json:"weather,omitempty"`
	HistoricalPrices map[string][]float64 `json:"historicalPrices,omitempty"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
