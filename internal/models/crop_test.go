package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindowContains(t *testing.T) {
	kharif := Kharif.Window()
	assert.True(t, kharif.Contains(166))
	assert.True(t, kharif.Contains(288))
	assert.False(t, kharif.Contains(165))

	// Rabi wraps the year end.
	rabi := Rabi.Window()
	assert.True(t, rabi.Contains(300))
	assert.True(t, rabi.Contains(1))
	assert.True(t, rabi.Contains(74))
	assert.False(t, rabi.Contains(75))
}

func TestSeasonTable(t *testing.T) {
	for _, s := range []Season{Kharif, Rabi, Zaid} {
		parsed, err := ParseSeason(" " + s.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
		assert.NotEmpty(t, s.Color())
	}

	_, err := ParseSeason("Monsoon")
	assert.Error(t, err)
	assert.Equal(t, "Unknown", SeasonUnknown.String())
}

func TestWaterTier(t *testing.T) {
	tier, err := ParseWaterTier("HIGH")
	require.NoError(t, err)
	assert.Equal(t, WaterHigh, tier)
	assert.Equal(t, 1.0, tier.Normalized())
	assert.Equal(t, 0.0, WaterLow.Normalized())
	assert.Equal(t, 0.5, WaterMedium.Normalized())

	_, err = ParseWaterTier("soaking")
	assert.Error(t, err)
}

func TestCropCategory(t *testing.T) {
	assert.Equal(t, CategoryPulse, ParseCropCategory("Pulse"))
	assert.Equal(t, "seed", CategoryPulse.Icon())
	assert.Equal(t, CategoryOther, ParseCropCategory("spice"))
	assert.Equal(t, "leaf", CategoryOther.Icon())
}

func TestSeasonLabel(t *testing.T) {
	p := CropProfile{Seasons: []Season{Kharif, Rabi}}
	assert.Equal(t, "Kharif/Rabi", p.SeasonLabel())
}

func TestErrorTaxonomy(t *testing.T) {
	ve := NewValidationError("city", "Atlantis", "unknown location")
	assert.Equal(t, `invalid city "Atlantis": unknown location`, ve.Error())
	assert.True(t, IsValidation(errors.Join(errors.New("context"), ve)))
	assert.False(t, IsValidation(ErrSuperseded))

	cause := errors.New("timeout")
	up := &UpstreamError{Source: "weather", Err: cause}
	assert.ErrorIs(t, up, cause)
	assert.Equal(t, "weather unavailable: timeout", up.Error())
}
