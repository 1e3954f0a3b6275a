package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iot_telemetry"

// Metrics holds the service's collectors on a private registry. All helper
// methods are safe to call on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	MessagesReceived  *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	MergesTotal       prometheus.Counter
	MergeDuration     prometheus.Histogram
	AlertsClassified  *prometheus.CounterVec
	WriteFailures     *prometheus.CounterVec
	WriterDropped     prometheus.Counter
	BrokerConnected   prometheus.Gauge
	DevicesTracked    prometheus.Gauge
	CommandsPublished *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Broker messages received, by decoded kind",
			},
			[]string{"kind"},
		),
		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "dropped_total",
				Help:      "Broker messages dropped, by reason",
			},
			[]string{"reason"},
		),
		MergesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "merges_total",
				Help:      "Device state merges committed",
			},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "merge_duration_seconds",
				Help:      "Time spent merging one device update",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
		),
		AlertsClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerts",
				Name:      "classified_total",
				Help:      "Alert records classified, by category",
			},
			[]string{"category"},
		),
		WriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "writer",
				Name:      "failures_total",
				Help:      "Detached write jobs that failed, by job",
			},
			[]string{"job"},
		),
		WriterDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "writer",
				Name:      "dropped_total",
				Help:      "Write jobs dropped because the queue was full",
			},
		),
		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "connected",
				Help:      "1 when the broker connection is up",
			},
		),
		DevicesTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "devices",
				Help:      "Devices with a merged state",
			},
		),
		CommandsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "commands",
				Name:      "published_total",
				Help:      "Outbound device commands, by result",
			},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesReceived,
		m.MessagesDropped,
		m.MergesTotal,
		m.MergeDuration,
		m.AlertsClassified,
		m.WriteFailures,
		m.WriterDropped,
		m.BrokerConnected,
		m.DevicesTracked,
		m.CommandsPublished,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveReceived(kind string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDropped(reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveMerge(d time.Duration, devices int) {
	if m == nil {
		return
	}
	m.MergesTotal.Inc()
	m.MergeDuration.Observe(d.Seconds())
	m.DevicesTracked.Set(float64(devices))
}

func (m *Metrics) ObserveAlerts(category string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.AlertsClassified.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) ObserveWriteFailure(job string) {
	if m == nil {
		return
	}
	m.WriteFailures.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveWriterDropped() {
	if m == nil {
		return
	}
	m.WriterDropped.Inc()
}

func (m *Metrics) SetBrokerConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.BrokerConnected.Set(1)
	} else {
		m.BrokerConnected.Set(0)
	}
}

func (m *Metrics) SetDevicesTracked(n int) {
	if m == nil {
		return
	}
	m.DevicesTracked.Set(float64(n))
}

func (m *Metrics) ObserveCommand(result string) {
	if m == nil {
		return
	}
	m.CommandsPublished.WithLabelValues(result).Inc()
}
