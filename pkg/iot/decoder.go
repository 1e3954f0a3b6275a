package iot

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
)

type Kind string

const (
	KindTelemetry    Kind = "telemetry"
	KindAlarm        Kind = "alarm"
	KindEvent        Kind = "event"
	KindMalformed    Kind = "malformed"
	KindUnrecognized Kind = "unrecognized"
)

var ErrMissingDeviceName = errors.New("message carries no DeviceName")

// Envelope is one decoded broker message. Body holds the parsed JSON value
// (map[string]any, []any, string, float64, bool or nil).
type Envelope struct {
	Kind       Kind
	Topic      string
	DeviceName string
	Body       any
	Raw        string
	Err        error
	ReceivedAt time.Time
}

var deviceNameSchema = z.String().Min(1).Required()

func validateDeviceName(deviceName *string) z.ZogIssueList {
	return deviceNameSchema.Validate(deviceName)
}

// Decode never fails: unparseable payloads come back as KindMalformed and
// traffic it cannot attribute to a device as KindUnrecognized.
func Decode(topic string, payload []byte, receivedAt time.Time) Envelope {
	env := Envelope{
		Topic:      topic,
		Raw:        string(payload),
		ReceivedAt: receivedAt,
	}

	body, err := parseJSON(payload)
	if err != nil {
		env.Kind = KindMalformed
		env.Err = err
		return env
	}

	// double-encoded payloads: a failed second pass keeps the inner string
	if inner, ok := body.(string); ok {
		if reparsed, err := parseJSON([]byte(inner)); err == nil {
			body = reparsed
		}
	}
	env.Body = body
	env.Kind = kindOf(topic, body)

	if env.Kind == KindUnrecognized {
		return env
	}

	// alert payloads may name the device per record, so only telemetry
	// requires a top-level name
	if env.Kind == KindTelemetry {
		name, _ := body.(map[string]any)["DeviceName"].(string)
		env.DeviceName = strings.TrimSpace(name)
	} else {
		env.DeviceName = strings.TrimSpace(deviceNameOf(body))
	}
	if issues := validateDeviceName(&env.DeviceName); issues != nil && env.Kind == KindTelemetry {
		env.Kind = KindUnrecognized
		env.Err = ErrMissingDeviceName
	}

	return env
}

// TelemetryData is the value of the body's data field, parsed once more
// when a device sent it as a JSON string.
func (e Envelope) TelemetryData() any {
	obj, ok := e.Body.(map[string]any)
	if !ok {
		return nil
	}
	data := obj["data"]
	if s, ok := data.(string); ok {
		if parsed, err := parseJSON([]byte(s)); err == nil {
			return parsed
		}
	}
	return data
}

// DeviceTimestamp returns the device supplied timestamp (seconds or
// milliseconds since epoch), if any.
func (e Envelope) DeviceTimestamp() *time.Time {
	obj, ok := e.Body.(map[string]any)
	if !ok {
		return nil
	}
	n, ok := obj["timestamp"].(float64)
	if !ok || n <= 0 {
		return nil
	}

	var ts time.Time
	if n >= 1e12 {
		ts = time.UnixMilli(int64(n))
	} else {
		ts = time.Unix(int64(n), 0)
	}
	return &ts
}

func parseJSON(payload []byte) (any, error) {
	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func kindOf(topic string, body any) Kind {
	lower := strings.ToLower(topic)
	switch {
	case strings.Contains(lower, "alarm"):
		return KindAlarm
	case strings.Contains(lower, "event"):
		return KindEvent
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return KindUnrecognized
	}
	if _, ok := obj["DeviceName"].(string); !ok {
		return KindUnrecognized
	}
	if _, ok := obj["data"]; !ok {
		return KindUnrecognized
	}
	return KindTelemetry
}

func deviceNameOf(body any) string {
	switch v := body.(type) {
	case map[string]any:
		if name, _ := v["DeviceName"].(string); strings.TrimSpace(name) != "" {
			return name
		}
		if data, ok := v["data"]; ok {
			return deviceNameOf(data)
		}
	case []any:
		for _, item := range v {
			if name := deviceNameOf(item); strings.TrimSpace(name) != "" {
				return name
			}
		}
	}
	return ""
}
