package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReceived("telemetry")
		m.ObserveDropped("malformed")
		m.ObserveMerge(time.Millisecond, 3)
		m.ObserveAlerts("Alarm", 2)
		m.ObserveWriteFailure("snapshot")
		m.ObserveWriterDropped()
		m.SetBrokerConnected(true)
		m.SetDevicesTracked(1)
		m.ObserveCommand("ok")
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveReceived("telemetry")
	m.ObserveReceived("telemetry")
	m.ObserveDropped("malformed")
	m.ObserveMerge(time.Millisecond, 4)
	m.ObserveAlerts("Event", 3)
	m.ObserveAlerts("Event", 0)
	m.SetBrokerConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues("telemetry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesDropped.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MergesTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DevicesTracked))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AlertsClassified.WithLabelValues("Event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerConnected))

	m.SetBrokerConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BrokerConnected))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveCommand("ok")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `iot_telemetry_commands_published_total{result="ok"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
