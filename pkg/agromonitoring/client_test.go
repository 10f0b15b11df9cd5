package agromonitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSoil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/soil", r.URL.Path)
		assert.Equal(t, "poly-1", r.URL.Query().Get("polyid"))
		_, _ = w.Write([]byte(`{"dt": 1760000000, "t10": 298.15, "moisture": 0.24, "t0": 303.15}`))
	}))
	defer srv.Close()

	soil, err := NewClient("key", srv.URL).GetSoil(context.Background(), "poly-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.24, soil.Moisture, 1e-9)
	assert.InDelta(t, 30.0, soil.SurfaceTempC, 1e-9)
	assert.InDelta(t, 25.0, soil.Depth10TempC, 1e-9)
}

func TestGetSoilErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dt": 1}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", srv.URL).GetSoil(context.Background(), "poly-1")
	assert.ErrorContains(t, err, "no soil moisture")

	_, err = NewClient("", srv.URL).GetSoil(context.Background(), "poly-1")
	assert.ErrorContains(t, err, "not configured")
}

func TestCreatePolygon(t *testing.T) {
	ring := [][]float64{{77.1, 28.6}, {77.2, 28.6}, {77.2, 28.7}, {77.1, 28.6}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/polygons", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("appid"))

		var body polygonRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "North field", body.Name)
		assert.Equal(t, "Feature", body.GeoJSON.Type)
		assert.Equal(t, "Polygon", body.GeoJSON.Geometry.Type)
		assert.Equal(t, [][][]float64{ring}, body.GeoJSON.Geometry.Coordinates)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "5aaa8052cbbbb5000b73ff66", "name": "North field", "area": 190.6, "center": [77.15, 28.63]}`))
	}))
	defer srv.Close()

	polygon, err := NewClient("key", srv.URL).CreatePolygon(context.Background(), "North field", [][][]float64{ring})
	require.NoError(t, err)
	assert.Equal(t, "5aaa8052cbbbb5000b73ff66", polygon.ID)
	assert.InDelta(t, 190.6, polygon.Area, 1e-9)
	assert.Equal(t, []float64{77.15, 28.63}, polygon.Center)
}

func TestCreatePolygonErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid geo_json", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient("key", srv.URL).CreatePolygon(context.Background(), "f", nil)
	assert.ErrorContains(t, err, "422")

	_, err = NewClient("", srv.URL).CreatePolygon(context.Background(), "f", nil)
	assert.ErrorContains(t, err, "not configured")
}
