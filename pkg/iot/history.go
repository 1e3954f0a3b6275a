package iot

import (
	"strings"
	"sync"

	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

type AlertFilter struct {
	DeviceName string
	Category   models.AlertCategory
}

// History keeps the bounded views shown to operators: per-device telemetry
// history and graph points, and the global alert list. Telemetry history and
// alerts are newest-first, graph points oldest-first.
type History struct {
	mu          sync.RWMutex
	telemetry   map[string][]models.HistoryEntry
	graph       map[string][]models.GraphPoint
	alerts      []models.AlertRecord
	historySize int
	alertSize   int
	graphSize   int
}

func NewHistory(historySize, alertSize, graphSize int) *History {
	return &History{
		telemetry:   make(map[string][]models.HistoryEntry),
		graph:       make(map[string][]models.GraphPoint),
		historySize: historySize,
		alertSize:   alertSize,
		graphSize:   graphSize,
	}
}

func prepend[T any](list []T, items []T, capacity int) []T {
	next := make([]T, 0, min(len(items)+len(list), capacity))
	next = append(next, items...)
	next = append(next, list...)
	if len(next) > capacity {
		next = next[:capacity]
	}
	return next
}

func (h *History) AddTelemetry(deviceName string, entry models.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.telemetry[deviceName] = prepend(h.telemetry[deviceName], []models.HistoryEntry{entry}, h.historySize)
}

func (h *History) Telemetry(deviceName string) []models.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entries := h.telemetry[deviceName]
	out := make([]models.HistoryEntry, len(entries))
	copy(out, entries)
	return out
}

func (h *History) AddGraphPoint(deviceName string, point models.GraphPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	points := append(h.graph[deviceName], point)
	if len(points) > h.graphSize {
		points = append([]models.GraphPoint(nil), points[len(points)-h.graphSize:]...)
	}
	h.graph[deviceName] = points
}

func (h *History) Graph(deviceName string) []models.GraphPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	points := h.graph[deviceName]
	out := make([]models.GraphPoint, len(points))
	copy(out, points)
	return out
}

// AddAlerts puts one classified batch at the head of the alert list, keeping
// the batch's own order.
func (h *History) AddAlerts(batch []models.AlertRecord) {
	if len(batch) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = prepend(h.alerts, batch, h.alertSize)
}

// SeedAlerts replaces the alert list with records loaded at startup,
// newest-first.
func (h *History) SeedAlerts(records []models.AlertRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = prepend(nil, records, h.alertSize)
}

func (h *History) Alerts(filter AlertFilter) []models.AlertRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.AlertRecord, 0, len(h.alerts))
	for _, alert := range h.alerts {
		if filter.DeviceName != "" && alert.DeviceName != filter.DeviceName {
			continue
		}
		if filter.Category != "" && filter.Category != models.AlertCategoryAll && categoryOf(alert) != filter.Category {
			continue
		}
		out = append(out, alert)
	}
	return out
}

func categoryOf(alert models.AlertRecord) models.AlertCategory {
	if alert.Category != "" {
		return alert.Category
	}
	if strings.Contains(strings.ToLower(alert.Type), "event") {
		return models.AlertCategoryEvent
	}
	return models.AlertCategoryAlarm
}
