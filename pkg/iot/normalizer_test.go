package iot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

func TestNormalizeUnwrapsValues(t *testing.T) {
	data := map[string]any{
		"frequency":  map[string]any{"id": "f1", "value": 50.0},
		"pump_power": 3.2,
		"mode":       map[string]any{"id": "m"},
		"running":    map[string]any{"id": "r", "value": false},
		"status":     nil,
		"phases":     []any{1.0, 2.0},
		"nested":     map[string]any{"id": "n", "value": map[string]any{"a": 1.0}},
	}

	got := Normalize("Inv_A", data, defaultRegistry())

	assert.Equal(t, models.Fields{
		"frequency":  50.0,
		"pump_power": 3.2,
		"running":    false,
		"status":     nil,
	}, got)
	// input untouched
	assert.Equal(t, map[string]any{"id": "f1", "value": 50.0}, data["frequency"])
}

func TestNormalizeAppliesAllowList(t *testing.T) {
	data := map[string]any{
		"water_pumped_flow_rate_per_hour": map[string]any{"value": 12.5},
		"totalWaterVolume_m3":             100.0,
		"noise":                           1.0,
	}

	got := Normalize("FlowMeter_1", data, defaultRegistry())

	assert.Equal(t, models.Fields{
		"water_pumped_flow_rate_per_hour": 12.5,
		"totalWaterVolume_m3":             100.0,
	}, got)
}

func TestNormalizeFlowMeterDropsUnlistedKeys(t *testing.T) {
	data := map[string]any{
		"water_pumped_flow_rate_per_hour": 3.0,
		"hourly_nonsolar_consumption":     1.0,
	}

	got := Normalize("FlowMeter_1", data, defaultRegistry())

	assert.Equal(t, models.Fields{"water_pumped_flow_rate_per_hour": 3.0}, got)
}

func TestNormalizeNonObject(t *testing.T) {
	assert.Empty(t, Normalize("Inv_A", []any{1.0}, defaultRegistry()))
	assert.Empty(t, Normalize("Inv_A", nil, defaultRegistry()))
	assert.Empty(t, Normalize("Inv_A", "text", nil))
}

func TestNormalizeNilRegistryAcceptsAll(t *testing.T) {
	got := Normalize("FlowMeter_1", map[string]any{"noise": 1.0}, nil)
	assert.Equal(t, models.Fields{"noise": 1.0}, got)
}
