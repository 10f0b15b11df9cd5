package visualcrossing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"krishi-advisor/internal/models"
)

const defaultBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a timeline API client. An empty baseURL selects the public endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type conditions struct {
	Temp       *float64 `json:"temp"`
	Humidity   *float64 `json:"humidity"`
	WindSpeed  *float64 `json:"windspeed"`
	PrecipProb *float64 `json:"precipprob"`
	Conditions string   `json:"conditions"`
}

type TimelineResponse struct {
	ResolvedAddress   string       `json:"resolvedAddress"`
	CurrentConditions *conditions  `json:"currentConditions"`
	Days              []conditions `json:"days"`
}

// GetCurrent fetches current conditions for a city name or a "lat,lon" pair. The
// next-period precipitation probability comes from today's forecast when present.
func (c *Client) GetCurrent(ctx context.Context, city string) (*models.WeatherObservation, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("visual crossing not configured")
	}

	q := url.Values{}
	q.Set("unitGroup", "metric")
	q.Set("key", c.apiKey)
	q.Set("contentType", "json")
	q.Set("include", "days,current")
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(city), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request timeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("visual crossing returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var timeline TimelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&timeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}

	current := timeline.CurrentConditions
	if current == nil {
		if len(timeline.Days) == 0 {
			return nil, fmt.Errorf("no weather data returned for %s", city)
		}
		current = &timeline.Days[0]
	}

	precip := current.PrecipProb
	if len(timeline.Days) > 0 && timeline.Days[0].PrecipProb != nil {
		precip = timeline.Days[0].PrecipProb
	}

	return &models.WeatherObservation{
		City:              city,
		Temperature:       current.Temp,
		Humidity:          current.Humidity,
		WindSpeed:         current.WindSpeed,
		PrecipProbability: precip,
		Conditions:        current.Conditions,
		ObservedAt:        time.Now().UTC(),
		Source:            "visualcrossing",
	}, nil
}
