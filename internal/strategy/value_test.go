package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-extract/internal/model"
)

func TestParseValue_NumberBeforeUnit(t *testing.T) {
	got := parseValue("total energy consumed was 4,210 MWh in 2023", []model.UnitCategory{model.UnitEnergy})
	require.NotNil(t, got.Value)
	assert.InDelta(t, 4210, *got.Value, 1e-9)
	assert.Equal(t, "MWh", got.Unit)
}

func TestParseValue_DecimalAndCommas(t *testing.T) {
	got := parseValue("emitted 1,234,567.89 tonnes of CO2e", []model.UnitCategory{model.UnitEmissions})
	require.NotNil(t, got.Value)
	assert.InDelta(t, 1234567.89, *got.Value, 1e-6)
	assert.Equal(t, "tonnes", got.Unit)
}

func TestParseValue_Percent(t *testing.T) {
	got := parseValue("renewable share rose to 37.5% of total", []model.UnitCategory{model.UnitPercentage})
	require.NotNil(t, got.Value)
	assert.InDelta(t, 37.5, *got.Value, 1e-9)
	assert.Equal(t, "%", got.Unit)
}

func TestParseValue_UnknownUnitFallback(t *testing.T) {
	got := parseValue("the figure was 42 overall", []model.UnitCategory{model.UnitEnergy})
	require.NotNil(t, got.Value)
	assert.InDelta(t, 42, *got.Value, 1e-9)
	assert.Equal(t, UnknownUnit, got.Unit)
}

func TestParseValue_TemperatureUnit(t *testing.T) {
	got := parseValue("average process temperature held at 45 °C year round", []model.UnitCategory{model.UnitTemperature})
	require.NotNil(t, got.Value)
	assert.InDelta(t, 45, *got.Value, 1e-9)
	assert.Equal(t, "°C", got.Unit)

	got = parseValue("cooling water returned at 21.5 celsius", []model.UnitCategory{model.UnitTemperature})
	require.NotNil(t, got.Value)
	assert.InDelta(t, 21.5, *got.Value, 1e-9)
	assert.Equal(t, "celsius", got.Unit)
}

func TestParseValue_NoNumber(t *testing.T) {
	got := parseValue("no quantitative disclosure this period", nil)
	assert.Nil(t, got.Value)
	assert.Equal(t, UnknownUnit, got.Unit)
}

func TestParseValue_CategoryScoping(t *testing.T) {
	// An energy-scoped parse must not bind the employees unit.
	got := parseValue("serving 1,200 employees across 310 MWh of usage", []model.UnitCategory{model.UnitEnergy})
	require.NotNil(t, got.Value)
	assert.InDelta(t, 310, *got.Value, 1e-9)
	assert.Equal(t, "MWh", got.Unit)
}

func TestWindow_Clipping(t *testing.T) {
	text := "abcdefghij"
	assert.Equal(t, "abcde", window(text, 0, 3, 2))
	assert.Equal(t, "fghij", window(text, 7, 9, 2))
	assert.Equal(t, text, window(text, 0, len(text), 50))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-0.2))
	assert.Equal(t, 1.0, clamp(1.7))
	assert.Equal(t, 0.42, clamp(0.42))
}
