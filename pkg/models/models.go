package models

import (
	"time"
)

type AlertCategory string

const (
	AlertCategoryAlarm AlertCategory = "Alarm"
	AlertCategoryEvent AlertCategory = "Event"
	AlertCategoryAll   AlertCategory = "All"
)

// Fields is the flat attribute map of one device: key -> string | float64 | bool.
type Fields map[string]any

func (f Fields) Clone() Fields {
	cloned := make(Fields, len(f))
	for k, v := range f {
		cloned[k] = v
	}
	return cloned
}

// DeviceState is the merged view of one device. A published DeviceState is
// never mutated; every merge produces a new value.
type DeviceState struct {
	DeviceName  string    `json:"deviceName"`
	Fields      Fields    `json:"fields"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func (s *DeviceState) IsOnline(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(s.LastUpdated) <= staleAfter
}

type HistoryEntry struct {
	Timestamp       time.Time  `json:"timestamp"`
	DeviceTimestamp *time.Time `json:"deviceTimestamp,omitempty"`
	Fields          Fields     `json:"fields"`
}

type GraphPoint struct {
	Label string  `json:"time"`
	Value float64 `json:"value"`
}

// DeviceSnapshot is the durable per-device record.
type DeviceSnapshot struct {
	DeviceName  string    `gorm:"primaryKey" json:"DeviceName"`
	Fields      Fields    `gorm:"serializer:json" json:"data"`
	LastUpdated time.Time `json:"last_system_update"`
}

type AlertRecord struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	DeviceName string        `gorm:"index" json:"DeviceName"`
	Title      string        `json:"title"`
	Type       string        `json:"type"`
	Category   AlertCategory `gorm:"type:varchar(10);index;check:category IN ('Alarm','Event')" json:"category"`
	Severity   int           `json:"severity"`
	Status     int           `json:"status"`
	Propagate  bool          `json:"propagate"`
	Timestamp  time.Time     `gorm:"index" json:"timestamp"`
}

// DeviceType maps a device name prefix to a category. An empty AttributeKeys
// list means every key is accepted.
type DeviceType struct {
	ID            string   `gorm:"primaryKey" json:"id" yaml:"id"`
	Label         string   `json:"label" yaml:"label"`
	NamePrefix    string   `gorm:"index" json:"namePrefix" yaml:"namePrefix"`
	AttributeKeys []string `gorm:"serializer:json" json:"attributeKeys" yaml:"attributeKeys"`
	GraphMetric   string   `json:"graphMetric" yaml:"graphMetric"`
}
