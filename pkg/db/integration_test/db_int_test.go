package test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/db"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

func TestWithEnvPath(t *testing.T) {
	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}

	common.SetTestLoggerNop()

	testPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv(common.EnvKeyIOTDbPath, testPath)

	instance := db.GetInstance(db.UseSqliteDialector())
	require.NotNil(t, instance)
	require.NotNil(t, instance.Conn)

	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Errorf("Expected database file to be created at %s", testPath)
	}

	snapshot := models.DeviceSnapshot{
		DeviceName:  "Inverter_1",
		Fields:      models.Fields{"frequency": 50.0, "StartCommandMode": "AUTO"},
		LastUpdated: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, instance.Conn.Create(&snapshot).Error)

	var loaded models.DeviceSnapshot
	require.NoError(t, instance.Conn.First(&loaded, "device_name = ?", "Inverter_1").Error)
	assert.Equal(t, 50.0, loaded.Fields["frequency"])
	assert.Equal(t, "AUTO", loaded.Fields["StartCommandMode"])
}
