package agmarknet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Tomato", r.URL.Query().Get("filters[commodity]"))
		assert.Equal(t, "key", r.URL.Query().Get("api-key"))
		_, _ = w.Write([]byte(`{"records": [
			{"market": "Azadpur", "commodity": "Tomato", "min_price": "1500", "max_price": "2500", "modal_price": "2400"},
			{"market": "Ghazipur", "commodity": "Tomato", "min_price": "1500", "max_price": "2500", "modal_price": "2200"},
			{"market": "Okhla", "commodity": "Tomato", "min_price": "", "max_price": "", "modal_price": "NA"}
		]}`))
	}))
	defer srv.Close()

	p, err := NewClient("key", srv.URL).GetPrice(context.Background(), "Tomato")
	require.NoError(t, err)
	assert.InDelta(t, 23.0, p.PricePerKg, 1e-9)
	assert.Equal(t, "Agmarknet average", p.MarketName)
	assert.Equal(t, "rising", p.PriceTrend)
}

func TestGetPriceSingleMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records": [{"market": "Vashi APMC", "modal_price": "2000", "min_price": "1800", "max_price": "2200"}]}`))
	}))
	defer srv.Close()

	p, err := NewClient("key", srv.URL).GetPrice(context.Background(), "Onion")
	require.NoError(t, err)
	assert.Equal(t, "Vashi APMC", p.MarketName)
	assert.Equal(t, "stable", p.PriceTrend)
	assert.InDelta(t, 20.0, p.PricePerKg, 1e-9)
}

func TestGetPriceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records": []}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", srv.URL).GetPrice(context.Background(), "Saffron")
	assert.ErrorContains(t, err, "no price records")

	_, err = NewClient("", srv.URL).GetPrice(context.Background(), "Rice")
	assert.ErrorContains(t, err, "not configured")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	_, err = NewClient("key", down.URL).GetPrice(context.Background(), "Rice")
	assert.ErrorContains(t, err, "503")
}

func TestRangeTrend(t *testing.T) {
	assert.Equal(t, "stable", rangeTrend(10, 10, 10))
	assert.Equal(t, "falling", rangeTrend(11, 10, 20))
	assert.Equal(t, "rising", rangeTrend(19, 10, 20))
}
