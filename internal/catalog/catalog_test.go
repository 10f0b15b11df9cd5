package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krishi-advisor/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Empty(t, c.Skipped)
	assert.GreaterOrEqual(t, len(c.Crops()), 8)

	rice, err := c.Crop("rice")
	require.NoError(t, err)
	assert.Equal(t, "Rice", rice.Name)
	assert.Equal(t, []models.Season{models.Kharif}, rice.Seasons)
	assert.Equal(t, models.WaterHigh, rice.Water)
	assert.InDelta(t, 0.9, rice.SoilSuitability["loamy"], 1e-9)
	assert.Equal(t, models.CategoryCereal, rice.Category)

	delhi, err := c.Region(" DELHI ")
	require.NoError(t, err)
	assert.Equal(t, "loamy", delhi.SoilType)
	assert.InDelta(t, 0.8, delhi.WaterAvailability, 1e-9)

	idx, ok := c.SeasonalIndex("Onion")
	require.True(t, ok)
	for _, v := range idx {
		assert.Greater(t, v, 0.0)
	}

	assert.Contains(t, c.MonthFactors(time.July), "Monsoon season")
	assert.Contains(t, c.Cities(), "Pune")
}

func TestUnknownLookups(t *testing.T) {
	c := Default()

	_, err := c.Crop("Dragonfruit")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = c.Region("Atlantis")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = c.Region("")
	assert.True(t, models.IsValidation(err))
}

func TestParseSkipsInvalidCrops(t *testing.T) {
	doc := []byte(`
crops:
  - name: Rice
    seasons: [Kharif]
    water: high
    base_yield: 2000
    seasonal_index: [1.1]
  - name: Quinoa
    seasons: [Winter]
    water: low
  - name: Barley
    seasons: [Rabi]
    water: soaking
  - name: rice
    seasons: [Kharif]
    water: high
calendar:
  13: [Harvest season]
`)
	c, err := Parse(doc)
	require.NoError(t, err)

	assert.Len(t, c.Crops(), 1)
	assert.Len(t, c.Skipped, 4)

	idx, ok := c.SeasonalIndex("Rice")
	require.True(t, ok)
	assert.InDelta(t, 1.1, idx[0], 1e-9)
	assert.InDelta(t, 1.0, idx[11], 1e-9)
}

func TestParseRejectsEmptyCatalog(t *testing.T) {
	_, err := Parse([]byte("crops: []\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("crops: [\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/catalog.yaml")
	assert.Error(t, err)
}
