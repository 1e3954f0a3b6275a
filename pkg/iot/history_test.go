package iot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

func TestTelemetryHistoryNewestFirstAndBounded(t *testing.T) {
	h := NewHistory(3, 10, 10)
	base := time.Now()

	for i := range 5 {
		h.AddTelemetry("Inv_A", models.HistoryEntry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Fields:    models.Fields{"n": float64(i)},
		})
	}

	entries := h.Telemetry("Inv_A")
	require.Len(t, entries, 3)
	assert.Equal(t, 4.0, entries[0].Fields["n"])
	assert.Equal(t, 2.0, entries[2].Fields["n"])
	assert.Empty(t, h.Telemetry("Inv_B"))
}

func TestGraphOldestFirstAndBounded(t *testing.T) {
	h := NewHistory(10, 10, 2)

	h.AddGraphPoint("Inv_A", models.GraphPoint{Label: "10:00:00", Value: 1})
	h.AddGraphPoint("Inv_A", models.GraphPoint{Label: "10:00:01", Value: 2})
	h.AddGraphPoint("Inv_A", models.GraphPoint{Label: "10:00:02", Value: 3})

	assert.Equal(t, []models.GraphPoint{
		{Label: "10:00:01", Value: 2},
		{Label: "10:00:02", Value: 3},
	}, h.Graph("Inv_A"))
}

func TestAlertsBatchAtHeadAndBounded(t *testing.T) {
	h := NewHistory(10, 3, 10)

	h.AddAlerts([]models.AlertRecord{{DeviceName: "Inv_A", Title: "old", Category: models.AlertCategoryAlarm}})
	h.AddAlerts([]models.AlertRecord{
		{DeviceName: "Inv_B", Title: "new1", Category: models.AlertCategoryEvent},
		{DeviceName: "Inv_A", Title: "new2", Category: models.AlertCategoryAlarm},
	})
	h.AddAlerts(nil)

	titles := func(records []models.AlertRecord) []string {
		out := []string{}
		for _, r := range records {
			out = append(out, r.Title)
		}
		return out
	}

	assert.Equal(t, []string{"new1", "new2", "old"}, titles(h.Alerts(AlertFilter{})))
	assert.Equal(t, []string{"new2", "old"}, titles(h.Alerts(AlertFilter{DeviceName: "Inv_A"})))
	assert.Equal(t, []string{"new1"}, titles(h.Alerts(AlertFilter{Category: models.AlertCategoryEvent})))
	assert.Equal(t, []string{"new1", "new2", "old"}, titles(h.Alerts(AlertFilter{Category: models.AlertCategoryAll})))

	h.AddAlerts([]models.AlertRecord{{DeviceName: "Inv_C", Title: "newest"}})
	assert.Equal(t, []string{"newest", "new1", "new2"}, titles(h.Alerts(AlertFilter{})))
}

func TestAlertsWithoutCategoryUseTypeHeuristic(t *testing.T) {
	h := NewHistory(10, 10, 10)
	h.SeedAlerts([]models.AlertRecord{
		{DeviceName: "Inv_A", Title: "a", Type: "Door event"},
		{DeviceName: "Inv_A", Title: "b", Type: "Overheat"},
	})

	events := h.Alerts(AlertFilter{Category: models.AlertCategoryEvent})
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Title)

	alarms := h.Alerts(AlertFilter{Category: models.AlertCategoryAlarm})
	require.Len(t, alarms, 1)
	assert.Equal(t, "b", alarms[0].Title)
}

func TestSeedAlertsTruncates(t *testing.T) {
	h := NewHistory(10, 2, 10)
	var records []models.AlertRecord
	for i := range 5 {
		records = append(records, models.AlertRecord{Title: fmt.Sprint(i)})
	}
	h.SeedAlerts(records)

	got := h.Alerts(AlertFilter{})
	require.Len(t, got, 2)
	assert.Equal(t, "0", got[0].Title)
}

func TestTelemetryHistoryKeepsNewestHundred(t *testing.T) {
	h := NewHistory(100, 10, 10)
	base := time.Now()

	for i := range 101 {
		h.AddTelemetry("Inv_A", models.HistoryEntry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Fields:    models.Fields{"n": float64(i)},
		})
	}

	entries := h.Telemetry("Inv_A")
	require.Len(t, entries, 100)
	assert.Equal(t, 100.0, entries[0].Fields["n"])
	assert.Equal(t, 1.0, entries[99].Fields["n"], "oldest entry evicted")
}
