package iot

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"

	"go.uber.org/mock/gomock"
	"liyu1981.xyz/iot-telemetry-state/pkg/db"
	"liyu1981.xyz/iot-telemetry-state/pkg/iot/mocks"
)

func GetMockIOTWithMemorySqliteDialector(t *testing.T, useMockISnapshot, useMockIAlert, useMockIDeviceType bool) (
	*gomock.Controller,
	*IOT,
	*mocks.MockISnapshot,
	*mocks.MockIAlert,
	*mocks.MockIDeviceType,
) {
	ctrl := gomock.NewController(t)

	mockISnapshot := mocks.NewMockISnapshot(ctrl)
	mockIAlert := mocks.NewMockIAlert(ctrl)
	mockIDeviceType := mocks.NewMockIDeviceType(ctrl)
	dialector := db.UseMemorySqliteDialector()
	dbInstance := db.GetInstance(dialector) // ensure migrations
	iotInstance := (&IOT{Db: *dbInstance})

	snapshotService := iotInstance.GetISnapshot()
	if useMockISnapshot {
		snapshotService = mockISnapshot
	}

	alertService := iotInstance.GetIAlert()
	if useMockIAlert {
		alertService = mockIAlert
	}

	deviceTypeService := iotInstance.GetIDeviceType()
	if useMockIDeviceType {
		deviceTypeService = mockIDeviceType
	}

	iotInstance.WithServices(ServiceOpts{
		Snapshot:   snapshotService,
		Alert:      alertService,
		DeviceType: deviceTypeService,
	})

	return ctrl, iotInstance, mockISnapshot, mockIAlert, mockIDeviceType
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func findLog(logs []any, match func(map[string]any) bool) bool {
	for _, log := range logs {
		if lobj, ok := log.(map[string]any); ok && match(lobj) {
			return true
		}
	}
	return false
}

func defaultRegistry() *DeviceTypeRegistry {
	return NewDeviceTypeRegistry(DefaultDeviceTypes(), DefaultEventTypes())
}
