package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
	_ "liyu1981.xyz/iot-telemetry-state/pkg/testing"
)

func setupTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, New(client, "iot:device:")
}

func TestSaveAndLoadSnapshots(t *testing.T) {
	common.SetTestLoggerNop()
	_, store := setupTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.SaveSnapshot(ctx, &models.DeviceSnapshot{
		DeviceName:  "Inv_A",
		Fields:      models.Fields{"frequency": 50.0},
		LastUpdated: at,
	}))
	require.NoError(t, store.SaveSnapshot(ctx, &models.DeviceSnapshot{
		DeviceName:  "Inv_A",
		Fields:      models.Fields{"frequency": 51.0, "pump_power": 2.0},
		LastUpdated: at.Add(time.Second),
	}))
	require.NoError(t, store.SaveSnapshot(ctx, &models.DeviceSnapshot{
		DeviceName:  "EnergyMeter_1",
		Fields:      models.Fields{"total_active_power": 7.0},
		LastUpdated: at,
	}))

	snapshots, err := store.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "EnergyMeter_1", snapshots[0].DeviceName)
	assert.Equal(t, "Inv_A", snapshots[1].DeviceName)
	assert.Equal(t, models.Fields{"frequency": 51.0, "pump_power": 2.0}, snapshots[1].Fields)
	assert.True(t, snapshots[1].LastUpdated.Equal(at.Add(time.Second)))
}

func TestLoadSnapshotsSkipsBadDocuments(t *testing.T) {
	common.SetTestLoggerNop()
	mr, store := setupTestStore(t)

	require.NoError(t, mr.Set("iot:device:broken", "{nope"))
	require.NoError(t, mr.Set("iot:device:FlowMeter_1", `{"data":{"totalWaterVolume_m3":3}}`))
	require.NoError(t, mr.Set("other:key", `{"DeviceName":"x"}`))

	snapshots, err := store.LoadSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "FlowMeter_1", snapshots[0].DeviceName, "name falls back to the storage key")
	assert.Equal(t, models.Fields{"totalWaterVolume_m3": 3.0}, snapshots[0].Fields)
}

func TestLoadSnapshotsUnavailable(t *testing.T) {
	common.SetTestLoggerNop()
	mr, store := setupTestStore(t)
	mr.Close()

	_, err := store.LoadSnapshots(context.Background())
	assert.Error(t, err)
}
