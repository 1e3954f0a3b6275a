package iot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
	_ "liyu1981.xyz/iot-telemetry-state/pkg/testing"
)

func TestRegistryResolveLongestPrefix(t *testing.T) {
	r := NewDeviceTypeRegistry(append(DefaultDeviceTypes(), models.DeviceType{
		ID:          "fm-pro",
		NamePrefix:  "FlowMeterPro",
		GraphMetric: "pressure",
	}), nil)

	typ, ok := r.Resolve("FlowMeterPro_7")
	require.True(t, ok)
	assert.Equal(t, "fm-pro", typ.ID)

	typ, ok = r.Resolve("FlowMeter_7")
	require.True(t, ok)
	assert.Equal(t, "fm", typ.ID)

	_, ok = r.Resolve("Pump_1")
	assert.False(t, ok)
	assert.Nil(t, r.AllowedKeys("Pump_1"))
	assert.Nil(t, r.AllowedKeys("Inv_1"))
	assert.Len(t, r.AllowedKeys("FlowMeter_7"), 3)
	assert.Equal(t, "pump_power", r.GraphMetric("Inv_1"))
	assert.Equal(t, "", r.GraphMetric("Pump_1"))
}

func TestRegistryUpsertReplaces(t *testing.T) {
	r := defaultRegistry()
	r.Upsert(models.DeviceType{ID: "fm", NamePrefix: "FlowMeter", AttributeKeys: []string{"only"}})

	assert.Equal(t, map[string]struct{}{"only": {}}, r.AllowedKeys("FlowMeter_1"))
	assert.Len(t, r.List(), 3)
	assert.Equal(t, "em", r.List()[0].ID)
}

func TestRegistryIsEventType(t *testing.T) {
	r := defaultRegistry()

	assert.True(t, r.IsEventType("SetPointTemp"))
	assert.True(t, r.IsEventType(" no set password "))
	assert.True(t, r.IsEventType("Pump Event"))
	assert.False(t, r.IsEventType("Overheat"))
	assert.False(t, r.IsEventType(""))

	var nilRegistry *DeviceTypeRegistry
	assert.True(t, nilRegistry.IsEventType("event"))
	assert.False(t, nilRegistry.IsEventType("SetPointTemp"))
}

func TestLoadDeviceTypesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	content := `
deviceTypes:
  - id: pump
    label: Pump
    namePrefix: Pump
    attributeKeys: [rpm, pressure]
    graphMetric: rpm
eventTypes:
  - Door Open
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	types, eventTypes, err := LoadDeviceTypesFile(path)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Pump", types[0].NamePrefix)
	assert.Equal(t, []string{"rpm", "pressure"}, types[0].AttributeKeys)
	assert.Equal(t, []string{"Door Open"}, eventTypes)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("deviceTypes:\n  - label: x\n"), 0o644))
	_, _, err = LoadDeviceTypesFile(bad)
	assert.Error(t, err)

	_, _, err = LoadDeviceTypesFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildDeviceTypeRegistry(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, _, _, _, mockIDeviceType := GetMockIOTWithMemorySqliteDialector(t, false, false, true)
	defer ctrl.Finish()

	mockIDeviceType.EXPECT().ListDeviceTypes().Return([]models.DeviceType{
		{ID: "inv", NamePrefix: "Inv", GraphMetric: "frequency"},
	}, nil)

	cfg := &common.Config{EventTypes: []string{"Custom Notice"}}
	r, err := BuildDeviceTypeRegistry(cfg, mockIDeviceType)
	require.NoError(t, err)

	assert.Equal(t, "frequency", r.GraphMetric("Inv_1"))
	assert.True(t, r.IsEventType("Custom Notice"))
	assert.False(t, r.IsEventType("SetPointTemp"))
}

func TestUpsertDeviceType(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _, _, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	typeID := uuid.NewString()

	err := iotObj.DeviceType.UpsertDeviceType(typeID, &models.DeviceType{
		NamePrefix:    "Pump",
		AttributeKeys: []string{"rpm"},
	})
	assert.NoError(t, err)

	var saved models.DeviceType
	err = iotObj.Db.Conn.Where("id = ?", typeID).First(&saved).Error
	assert.NoError(t, err)
	assert.Equal(t, []string{"rpm"}, saved.AttributeKeys)

	err = iotObj.DeviceType.UpsertDeviceType(typeID, &models.DeviceType{
		NamePrefix:    "Pump",
		AttributeKeys: []string{"rpm", "pressure"},
		GraphMetric:   "rpm",
	})
	assert.NoError(t, err)

	var updated models.DeviceType
	err = iotObj.Db.Conn.Where("id = ?", typeID).First(&updated).Error
	assert.NoError(t, err)
	assert.Equal(t, []string{"rpm", "pressure"}, updated.AttributeKeys)
	assert.Equal(t, "rpm", updated.GraphMetric)

	types, err := iotObj.DeviceType.ListDeviceTypes()
	assert.NoError(t, err)
	found := false
	for _, typ := range types {
		if typ.ID == typeID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUpsertDeviceType_WithLog(t *testing.T) {
	var buf = &bytes.Buffer{}
	common.SetTestCaptureLogger(buf, zapcore.InfoLevel)

	ctrl, iotObj, _, _, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	typeID := uuid.NewString()
	err := iotObj.DeviceType.UpsertDeviceType(typeID, &models.DeviceType{NamePrefix: "Valve"})
	assert.NoError(t, err)

	logs := ParseLogs(buf)

	for _, msg := range []string{"Received device type", "Upserted device type"} {
		found := findLog(logs, func(lobj map[string]any) bool {
			deviceType, ok := lobj["deviceType"].(map[string]any)
			return ok &&
				lobj["category"] == "config" &&
				lobj["logger"] == "iot_core" &&
				lobj["msg"] == msg &&
				deviceType["id"] == typeID &&
				deviceType["namePrefix"] == "Valve"
		})
		assert.True(t, found, "log not found: "+msg)
	}
}
