package iot

import (
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

// Normalize flattens {id, value} wrappers and drops keys outside the allow-list
// of the device's category. Only scalars and nulls survive: objects without a
// value, arrays and wrapped non-scalars are dropped. The input is never modified.
func Normalize(deviceName string, data any, types *DeviceTypeRegistry) models.Fields {
	out := models.Fields{}

	var raw map[string]any
	switch v := data.(type) {
	case map[string]any:
		raw = v
	case models.Fields:
		raw = v
	default:
		return out
	}

	allowed := types.AllowedKeys(deviceName)
	for key, value := range raw {
		if allowed != nil {
			if _, ok := allowed[key]; !ok {
				continue
			}
		}
		if value, ok := unwrap(value); ok {
			out[key] = value
		}
	}
	return out
}

func unwrap(value any) (any, bool) {
	if obj, ok := value.(map[string]any); ok {
		inner, ok := obj["value"]
		if !ok {
			return nil, false
		}
		value = inner
	}
	switch value.(type) {
	case nil, string, bool, float64, float32, int, int64, int32:
		return value, true
	}
	return nil, false
}
