// Package agromonitoring fetches satellite soil readings for a registered field polygon.
package agromonitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "http://api.agromonitoring.com/agro/1.0"
	kelvinOffset   = 273.15
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Soil is a soil reading with temperatures already converted to °C.
type Soil struct {
	Moisture     float64 // m3/m3
	SurfaceTempC float64
	Depth10TempC float64
	ObservedAt   time.Time
}

type soilResponse struct {
	DT       int64    `json:"dt"`
	T0       *float64 `json:"t0"`
	T10      *float64 `json:"t10"`
	Moisture *float64 `json:"moisture"`
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetSoil returns the latest soil reading for a polygon.
func (c *Client) GetSoil(ctx context.Context, polygonID string) (*Soil, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("agromonitoring not configured")
	}

	q := url.Values{}
	q.Set("appid", c.apiKey)
	q.Set("polyid", polygonID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/soil?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request soil: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agromonitoring returned status %d", resp.StatusCode)
	}

	var payload soilResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode soil: %w", err)
	}
	if payload.Moisture == nil {
		return nil, fmt.Errorf("no soil moisture for polygon %s", polygonID)
	}

	soil := &Soil{
		Moisture:   *payload.Moisture,
		ObservedAt: time.Unix(payload.DT, 0).UTC(),
	}
	if payload.T0 != nil {
		soil.SurfaceTempC = *payload.T0 - kelvinOffset
	}
	if payload.T10 != nil {
		soil.Depth10TempC = *payload.T10 - kelvinOffset
	}
	return soil, nil
}

// Polygon is a field registered with agromonitoring.
type Polygon struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Area   float64   `json:"area"`   // hectares
	Center []float64 `json:"center"` // [lon, lat]
}

type geoJSON struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   geometry       `json:"geometry"`
}

type geometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

type polygonRequest struct {
	Name    string  `json:"name"`
	GeoJSON geoJSON `json:"geo_json"`
}

// CreatePolygon registers a field outline. Coordinates are GeoJSON polygon rings
// of [lon, lat] points.
func (c *Client) CreatePolygon(ctx context.Context, name string, coordinates [][][]float64) (*Polygon, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("agromonitoring not configured")
	}

	body, err := json.Marshal(polygonRequest{
		Name: name,
		GeoJSON: geoJSON{
			Type:       "Feature",
			Properties: map[string]any{},
			Geometry:   geometry{Type: "Polygon", Coordinates: coordinates},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode polygon: %w", err)
	}

	q := url.Values{}
	q.Set("appid", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/polygons?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create polygon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("agromonitoring returned status %d", resp.StatusCode)
	}

	var polygon Polygon
	if err := json.NewDecoder(resp.Body).Decode(&polygon); err != nil {
		return nil, fmt.Errorf("decode polygon: %w", err)
	}
	if polygon.ID == "" {
		return nil, fmt.Errorf("agromonitoring returned no polygon id")
	}
	return &polygon, nil
}
