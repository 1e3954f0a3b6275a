package iot

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

func DefaultDeviceTypes() []models.DeviceType {
	return []models.DeviceType{
		{
			ID:          "inv",
			Label:       "Inverter",
			NamePrefix:  "Inv",
			GraphMetric: "pump_power",
		},
		{
			ID:         "fm",
			Label:      "Flow Meter",
			NamePrefix: "FlowMeter",
			AttributeKeys: []string{
				"water_pumped_flow_rate_per_hour",
				"totalWaterVolume_m3",
				"flowmeter_conductivity",
			},
			GraphMetric: "water_pumped_flow_rate_per_hour",
		},
		{
			ID:          "em",
			Label:       "Energy Meter",
			NamePrefix:  "EnergyMeter",
			GraphMetric: "total_active_power",
		},
	}
}

func DefaultEventTypes() []string {
	return []string{"Inverter protection status", "SetPointTemp", "No Set Password"}
}

// DeviceTypeRegistry resolves a device name to its category by longest
// matching name prefix, and knows which alert type labels denote events.
type DeviceTypeRegistry struct {
	mu         sync.RWMutex
	types      []models.DeviceType
	eventTypes map[string]struct{}
}

func NewDeviceTypeRegistry(types []models.DeviceType, eventTypes []string) *DeviceTypeRegistry {
	r := &DeviceTypeRegistry{eventTypes: make(map[string]struct{})}
	for _, t := range types {
		r.upsertLocked(t)
	}
	for _, et := range eventTypes {
		if et = strings.ToLower(strings.TrimSpace(et)); et != "" {
			r.eventTypes[et] = struct{}{}
		}
	}
	return r
}

func (r *DeviceTypeRegistry) Resolve(deviceName string) (models.DeviceType, bool) {
	if r == nil {
		return models.DeviceType{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	// types are kept sorted by descending prefix length
	for _, t := range r.types {
		if t.NamePrefix != "" && strings.HasPrefix(deviceName, t.NamePrefix) {
			return t, true
		}
	}
	return models.DeviceType{}, false
}

// AllowedKeys returns nil when the device's category accepts every key.
func (r *DeviceTypeRegistry) AllowedKeys(deviceName string) map[string]struct{} {
	t, ok := r.Resolve(deviceName)
	if !ok || len(t.AttributeKeys) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(t.AttributeKeys))
	for _, key := range t.AttributeKeys {
		allowed[key] = struct{}{}
	}
	return allowed
}

func (r *DeviceTypeRegistry) GraphMetric(deviceName string) string {
	t, _ := r.Resolve(deviceName)
	return t.GraphMetric
}

// IsEventType reports whether an alert type label denotes an event. Any label
// mentioning "event" counts as one.
func (r *DeviceTypeRegistry) IsEventType(alertType string) bool {
	label := strings.ToLower(strings.TrimSpace(alertType))
	if label == "" {
		return false
	}
	if strings.Contains(label, "event") {
		return true
	}
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.eventTypes[label]
	return ok
}

func (r *DeviceTypeRegistry) Upsert(t models.DeviceType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertLocked(t)
}

func (r *DeviceTypeRegistry) upsertLocked(t models.DeviceType) {
	replaced := false
	for i := range r.types {
		if r.types[i].ID == t.ID {
			r.types[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		r.types = append(r.types, t)
	}
	sort.SliceStable(r.types, func(i, j int) bool {
		return len(r.types[i].NamePrefix) > len(r.types[j].NamePrefix)
	})
}

func (r *DeviceTypeRegistry) List() []models.DeviceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.DeviceType, len(r.types))
	copy(list, r.types)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

type deviceTypesFile struct {
	DeviceTypes []models.DeviceType `yaml:"deviceTypes"`
	EventTypes  []string            `yaml:"eventTypes"`
}

// LoadDeviceTypesFile reads device types and event type labels from a YAML file.
func LoadDeviceTypesFile(path string) ([]models.DeviceType, []string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var file deviceTypesFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, t := range file.DeviceTypes {
		if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.NamePrefix) == "" {
			return nil, nil, fmt.Errorf("parse %s: device type needs id and namePrefix", path)
		}
	}

	return file.DeviceTypes, file.EventTypes, nil
}

func (i *IOT) upsertDeviceType(typeID string, input *models.DeviceType) error {
	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTConfig),
	)

	deviceType := models.DeviceType{
		ID:            typeID,
		Label:         input.Label,
		NamePrefix:    input.NamePrefix,
		AttributeKeys: input.AttributeKeys,
		GraphMetric:   input.GraphMetric,
	}

	logger.Info("Received device type", zap.Reflect("deviceType", deviceType))

	err := i.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&deviceType).Error

	if err == nil {
		logger.Info("Upserted device type", zap.Reflect("deviceType", deviceType))
	}

	return err
}

func (i *IOT) listDeviceTypes() ([]models.DeviceType, error) {
	var types []models.DeviceType
	err := i.Db.Conn.Order("id").Find(&types).Error
	return types, err
}

type IDeviceTypeImpl struct {
	iot *IOT
}

func (id *IDeviceTypeImpl) UpsertDeviceType(typeID string, input *models.DeviceType) error {
	return id.iot.upsertDeviceType(typeID, input)
}

func (id *IDeviceTypeImpl) ListDeviceTypes() ([]models.DeviceType, error) {
	return id.iot.listDeviceTypes()
}

func (i *IOT) GetIDeviceType() IDeviceType {
	return &IDeviceTypeImpl{iot: i}
}

// BuildDeviceTypeRegistry layers device types: built-in defaults, then the
// YAML file, then rows saved through the API. Event type labels from the
// environment replace the file's, which replace the defaults.
func BuildDeviceTypeRegistry(cfg *common.Config, store IDeviceType) (*DeviceTypeRegistry, error) {
	types := DefaultDeviceTypes()
	eventTypes := DefaultEventTypes()

	if cfg.DeviceTypesPath != "" {
		fileTypes, fileEventTypes, err := LoadDeviceTypesFile(cfg.DeviceTypesPath)
		if err != nil {
			return nil, err
		}
		types = append(types, fileTypes...)
		if len(fileEventTypes) > 0 {
			eventTypes = fileEventTypes
		}
	}
	if len(cfg.EventTypes) > 0 {
		eventTypes = cfg.EventTypes
	}

	if store != nil {
		saved, err := store.ListDeviceTypes()
		if err != nil {
			return nil, fmt.Errorf("list device types: %w", err)
		}
		types = append(types, saved...)
	}

	return NewDeviceTypeRegistry(types, eventTypes), nil
}
