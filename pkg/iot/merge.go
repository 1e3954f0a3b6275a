package iot

import (
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

// Merge returns current overlaid with update. Keys absent from the update, and
// keys the update carries as null, keep their current value. Neither input is
// modified.
func Merge(current, update models.Fields) models.Fields {
	merged := make(models.Fields, len(current)+len(update))
	for key, value := range current {
		merged[key] = value
	}
	for key, value := range update {
		if value == nil {
			continue
		}
		merged[key] = value
	}
	return merged
}
