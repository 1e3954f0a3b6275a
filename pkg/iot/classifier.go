package iot

import (
	"sort"
	"strconv"
	"strings"

	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

const (
	defaultAlarmSeverity = 3
	defaultEventSeverity = 1
	defaultAlertStatus   = 1
)

type alertCandidate struct {
	obj        map[string]any
	deviceName string
}

// Classify extracts the alert records carried by an alarm or event envelope,
// in payload order. Candidates without a title or a device name are skipped.
func Classify(env Envelope, types *DeviceTypeRegistry) []models.AlertRecord {
	defaultCategory := models.AlertCategoryAlarm
	if env.Kind == KindEvent {
		defaultCategory = models.AlertCategoryEvent
	}

	var candidates []alertCandidate
	collectCandidates(env.Body, env.DeviceName, 0, &candidates)

	records := make([]models.AlertRecord, 0, len(candidates))
	for _, c := range candidates {
		title := strings.TrimSpace(stringField(c.obj, "title"))
		if title == "" || strings.TrimSpace(c.deviceName) == "" {
			continue
		}

		alertType := stringField(c.obj, "type")
		category := defaultCategory
		switch strings.ToLower(strings.TrimSpace(stringField(c.obj, "category"))) {
		case "alarm":
			category = models.AlertCategoryAlarm
		case "event":
			category = models.AlertCategoryEvent
		default:
			if types.IsEventType(alertType) {
				category = models.AlertCategoryEvent
			}
		}

		severity := defaultAlarmSeverity
		if category == models.AlertCategoryEvent {
			severity = defaultEventSeverity
		}
		if n, ok := intField(c.obj, "severity"); ok {
			severity = n
		}
		status := defaultAlertStatus
		if n, ok := intField(c.obj, "status"); ok {
			status = n
		}
		propagate, _ := c.obj["propagate"].(bool)

		records = append(records, models.AlertRecord{
			DeviceName: strings.TrimSpace(c.deviceName),
			Title:      title,
			Type:       alertType,
			Category:   category,
			Severity:   severity,
			Status:     status,
			Propagate:  propagate,
			Timestamp:  env.ReceivedAt,
		})
	}
	return records
}

// collectCandidates accepts a single alert object, an array of them, either
// nested under data, or a legacy map of named sub-objects.
func collectCandidates(body any, parentDevice string, depth int, out *[]alertCandidate) {
	switch v := body.(type) {
	case []any:
		for _, item := range v {
			collectCandidates(item, parentDevice, depth, out)
		}
	case string:
		if depth == 0 {
			return
		}
		if parsed, err := parseJSON([]byte(v)); err == nil {
			collectCandidates(parsed, parentDevice, depth, out)
		}
	case map[string]any:
		device := stringField(v, "DeviceName")
		if strings.TrimSpace(device) == "" {
			device = parentDevice
		}

		if hasTitle(v) {
			*out = append(*out, alertCandidate{obj: v, deviceName: device})
			return
		}

		if data, ok := v["data"]; ok && depth == 0 {
			collectCandidates(data, device, depth+1, out)
			return
		}

		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if sub, ok := v[key].(map[string]any); ok && hasTitle(sub) {
				subDevice := stringField(sub, "DeviceName")
				if strings.TrimSpace(subDevice) == "" {
					subDevice = device
				}
				*out = append(*out, alertCandidate{obj: sub, deviceName: subDevice})
			}
		}
	}
}

func hasTitle(obj map[string]any) bool {
	return strings.TrimSpace(stringField(obj, "title")) != ""
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func intField(obj map[string]any, key string) (int, bool) {
	switch v := obj[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}
