package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
	_ "liyu1981.xyz/iot-telemetry-state/pkg/testing"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestForwardAlerts(t *testing.T) {
	common.SetTestLoggerNop()

	w := &fakeWriter{}
	f := newAlertForwarder(w, "device-alerts")
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	err := f.ForwardAlerts(context.Background(), []models.AlertRecord{
		{DeviceName: "Inv_A", Title: "Overheat", Category: models.AlertCategoryAlarm, Severity: 3, Timestamp: at},
		{DeviceName: "Inv_B", Title: "Start", Category: models.AlertCategoryEvent, Severity: 1, Timestamp: at},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, []byte("Inv_A"), w.msgs[0].Key)
	assert.Equal(t, at, w.msgs[0].Time)

	var decoded models.AlertRecord
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &decoded))
	assert.Equal(t, "Start", decoded.Title)
	assert.Equal(t, models.AlertCategoryEvent, decoded.Category)

	require.NoError(t, f.Close())
	assert.True(t, w.closed)
}

func TestForwardAlertsEmptyAndFailure(t *testing.T) {
	common.SetTestLoggerNop()

	w := &fakeWriter{err: errors.New("leader not available")}
	f := newAlertForwarder(w, "device-alerts")

	assert.NoError(t, f.ForwardAlerts(context.Background(), nil))

	err := f.ForwardAlerts(context.Background(), []models.AlertRecord{{DeviceName: "Inv_A", Title: "x"}})
	assert.ErrorContains(t, err, "leader not available")
}
