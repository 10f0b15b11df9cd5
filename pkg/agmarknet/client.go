// Package agmarknet reads daily mandi prices from the data.gov.in Agmarknet resource.
package agmarknet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"krishi-advisor/internal/models"
)

const (
	defaultBaseURL = "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070"
	quintalKg      = 100.0
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL selects the public resource.
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

// Record is one market row. Prices are rupees per quintal.
type Record struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	ArrivalDate string `json:"arrival_date"`
	MinPrice    string `json:"min_price"`
	MaxPrice    string `json:"max_price"`
	ModalPrice  string `json:"modal_price"`
}

type resourceResponse struct {
	Records []Record `json:"records"`
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetRecords fetches today's rows for one commodity.
func (c *Client) GetRecords(ctx context.Context, commodity string, limit int) ([]Record, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("data.gov.in not configured")
	}

	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("filters[commodity]", commodity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request mandi prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("data.gov.in returned status %d", resp.StatusCode)
	}

	var payload resourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode mandi prices: %w", err)
	}
	return payload.Records, nil
}

// GetPrice returns the commodity's modal price per kg, averaged across the
// reporting markets. Trend is derived from the modal position inside the day's range.
func (c *Client) GetPrice(ctx context.Context, commodity string) (*models.MarketPricePoint, error) {
	records, err := c.GetRecords(ctx, commodity, 50)
	if err != nil {
		return nil, err
	}

	var sum, lowSum, highSum float64
	var n int
	markets := make(map[string]bool)
	for _, r := range records {
		modal, err := strconv.ParseFloat(strings.TrimSpace(r.ModalPrice), 64)
		if err != nil || modal <= 0 {
			continue
		}
		low, _ := strconv.ParseFloat(strings.TrimSpace(r.MinPrice), 64)
		high, _ := strconv.ParseFloat(strings.TrimSpace(r.MaxPrice), 64)
		sum += modal
		lowSum += low
		highSum += high
		n++
		markets[r.Market] = true
	}
	if n == 0 {
		return nil, fmt.Errorf("no price records for %s", commodity)
	}

	marketName := "Agmarknet average"
	if len(markets) == 1 {
		for m := range markets {
			marketName = m
		}
	}

	avg := sum / float64(n)
	return &models.MarketPricePoint{
		CropName:   commodity,
		PricePerKg: avg / quintalKg,
		MarketName: marketName,
		PriceTrend: rangeTrend(avg, lowSum/float64(n), highSum/float64(n)),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

func rangeTrend(modal, low, high float64) string {
	if high <= low {
		return "stable"
	}
	pos := (modal - low) / (high - low)
	switch {
	case pos > 0.65:
		return "rising"
	case pos < 0.35:
		return "falling"
	default:
		return "stable"
	}
}
