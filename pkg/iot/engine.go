package iot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/metrics"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrNotConnected   = errors.New("broker not connected")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// Topics are the broker subscriptions. Both slash-prefixed and bare forms are
// in use by deployed devices.
var Topics = []string{
	"devices/+/telemetry",
	"/devices/+/telemetry",
	"device/+/telemetry",
	"/device/+/telemetry",
	"device/+/alarm",
	"/device/+/alarm",
	"device/+/event",
	"/device/+/event",
	"device/+/events",
	"/device/+/events",
}

const graphLabelLayout = "15:04:05"

func CommandTopic(deviceName string) string {
	return fmt.Sprintf("device/%s/rpc", deviceName)
}

type EngineOpts struct {
	FlushInterval    time.Duration
	StaleAfter       time.Duration
	HistorySize      int
	AlertHistorySize int
	GraphSize        int
	WriterQueueSize  int
}

func DefaultEngineOpts() EngineOpts {
	return EngineOpts{
		FlushInterval:    common.DefaultFlushInterval,
		StaleAfter:       common.DefaultStaleAfter,
		HistorySize:      common.DefaultHistorySize,
		AlertHistorySize: common.DefaultAlertHistorySize,
		GraphSize:        common.DefaultGraphSize,
		WriterQueueSize:  common.DefaultWriterQueueSize,
	}
}

func EngineOptsFromConfig(cfg *common.Config) EngineOpts {
	return EngineOpts{
		FlushInterval:    cfg.FlushInterval,
		StaleAfter:       cfg.StaleAfter,
		HistorySize:      cfg.HistorySize,
		AlertHistorySize: cfg.AlertHistorySize,
		GraphSize:        cfg.GraphSize,
		WriterQueueSize:  cfg.WriterQueueSize,
	}
}

// Engine turns broker traffic into merged device state, bounded history and
// alert lists, and persists them through the IOT services.
type Engine struct {
	iot     *IOT
	types   *DeviceTypeRegistry
	state   *StateStore
	history *History
	updates *Broadcaster
	writer  *AsyncWriter
	// raw log lines and alert forwarding queue apart from snapshot saves
	rawWriter     *AsyncWriter
	forwardWriter *AsyncWriter
	batcher       *Batcher
	opts          EngineOpts

	transport       ITransport
	rawLog          IRawLog
	sinks           []IAlertSink
	metrics         *metrics.Metrics
	commandLimiters *RateLimiterStore

	connected atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	now       func() time.Time
	logger    *zap.Logger
}

func NewEngine(core *IOT, types *DeviceTypeRegistry, opts EngineOpts) *Engine {
	e := &Engine{
		iot:     core,
		types:   types,
		state:   NewStateStore(),
		history: NewHistory(opts.HistorySize, opts.AlertHistorySize, opts.GraphSize),
		updates: NewBroadcaster(),
		opts:    opts,
		now:     time.Now,
		logger:  common.GetLoggerWith(common.LoggerNameIOTCore),
	}
	e.writer = NewAsyncWriter(opts.WriterQueueSize, nil)
	e.rawWriter = NewAsyncWriter(opts.WriterQueueSize, nil).withLogCategory(common.LoggerCategoryIOTDecode)
	e.forwardWriter = NewAsyncWriter(opts.WriterQueueSize, nil).withLogCategory(common.LoggerCategoryIOTAlert)
	if opts.FlushInterval > 0 {
		e.batcher = NewBatcher(opts.FlushInterval, e.commit)
	}
	return e
}

func (e *Engine) WithTransport(t ITransport) *Engine {
	e.transport = t
	return e
}

func (e *Engine) WithRawLog(l IRawLog) *Engine {
	e.rawLog = l
	return e
}

func (e *Engine) WithAlertSinks(sinks ...IAlertSink) *Engine {
	e.sinks = append(e.sinks, sinks...)
	return e
}

func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	for _, w := range e.writers() {
		w.metrics = m
	}
	return e
}

func (e *Engine) WithCommandLimiter(store *RateLimiterStore) *Engine {
	e.commandLimiters = store
	return e
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start seeds state from durable storage, then starts the background writer,
// the batcher and the broker subscription, in that order.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	e.startOnce.Do(func() {
		e.seed(ctx)

		for _, w := range e.writers() {
			w.Start()
		}
		if e.batcher != nil {
			e.batcher.Start()
		}

		if e.transport != nil {
			if err = e.transport.Subscribe(Topics, e.HandleMessage); err != nil {
				err = fmt.Errorf("subscribe: %w", err)
			}
		}
	})
	return err
}

// Stop flushes pending telemetry and waits for queued writes.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.batcher != nil {
			e.batcher.Stop()
		}
		for _, w := range e.writers() {
			w.Close()
		}
	})
}

func (e *Engine) writers() []*AsyncWriter {
	return []*AsyncWriter{e.writer, e.rawWriter, e.forwardWriter}
}

// Flush commits pending batched telemetry immediately.
func (e *Engine) Flush() {
	if e.batcher != nil {
		e.batcher.Flush()
	}
}

func (e *Engine) seed(ctx context.Context) {
	logger := e.logger.With(zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTState))

	if e.iot.Snapshot != nil {
		snapshots, err := e.iot.Snapshot.LoadSnapshots(ctx)
		if err != nil {
			logger.Warn("Failed to load snapshots, starting with empty state", zap.Error(err))
		}

		states := make([]*models.DeviceState, 0, len(snapshots))
		for _, snapshot := range snapshots {
			name := snapshot.DeviceName
			if declared, ok := snapshot.Fields["DeviceName"].(string); ok && strings.TrimSpace(declared) != "" {
				name = strings.TrimSpace(declared)
			}
			if name == "" {
				continue
			}
			states = append(states, &models.DeviceState{
				DeviceName:  name,
				Fields:      sanitizeSnapshotFields(name, snapshot.Fields, e.types),
				LastUpdated: snapshot.LastUpdated,
			})
		}

		if err := e.state.Seed(states); err != nil {
			logger.Warn("Skipped seeding device state", zap.Error(err))
		} else {
			logger.Info("Seeded device state", zap.Int("devices", len(states)))
		}
		e.metrics.SetDevicesTracked(e.state.Len())
	}

	if e.iot.Alert != nil {
		recent, err := e.iot.Alert.RecentAlerts(ctx, e.opts.AlertHistorySize)
		if err != nil {
			logger.Warn("Failed to load recent alerts", zap.Error(err))
			return
		}
		e.history.SeedAlerts(recent)
	}
}

// sanitizeSnapshotFields removes marker keys and nulls that older writers
// left in stored records, and re-applies the device's allow-list.
func sanitizeSnapshotFields(deviceName string, fields models.Fields, types *DeviceTypeRegistry) models.Fields {
	cleaned := make(models.Fields, len(fields))
	for key, value := range fields {
		if key == "DeviceName" || key == "last_system_update" || value == nil {
			continue
		}
		cleaned[key] = value
	}
	return Normalize(deviceName, cleaned, types)
}

// HandleMessage processes one broker message. It never panics and never
// returns an error: bad input is logged and dropped.
func (e *Engine) HandleMessage(topic string, payload []byte) {
	receivedAt := e.now()
	logger := e.logger.With(zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTDecode))

	defer func() {
		if r := recover(); r != nil {
			e.metrics.ObserveDropped("panic")
			logger.Error("Recovered from panic while handling message",
				zap.String("topic", topic),
				zap.Any("panic", r),
			)
		}
	}()

	e.appendRawLog(topic, payload, receivedAt)

	env := Decode(topic, payload, receivedAt)
	e.metrics.ObserveReceived(string(env.Kind))

	switch env.Kind {
	case KindMalformed:
		e.metrics.ObserveDropped("malformed")
		logger.Warn("Dropped malformed message",
			zap.String("topic", topic),
			zap.String("payload", truncate(env.Raw, 256)),
			zap.Error(env.Err),
		)
	case KindUnrecognized:
		reason := "unrecognized"
		if errors.Is(env.Err, ErrMissingDeviceName) {
			reason = "missing_device_name"
		}
		e.metrics.ObserveDropped(reason)
		logger.Debug("Ignored message", zap.String("topic", topic), zap.String("reason", reason))
	case KindTelemetry:
		e.handleTelemetry(env)
	case KindAlarm, KindEvent:
		e.handleAlerts(env)
	}
}

func (e *Engine) appendRawLog(topic string, payload []byte, receivedAt time.Time) {
	if e.rawLog == nil {
		return
	}
	raw := append([]byte(nil), payload...)
	e.rawWriter.Enqueue(WriteJob{
		Name: "raw_log",
		Run: func(context.Context) error {
			return e.rawLog.Append(topic, raw, receivedAt)
		},
	})
}

func (e *Engine) handleTelemetry(env Envelope) {
	fields := Normalize(env.DeviceName, env.TelemetryData(), e.types)
	deviceTimestamp := env.DeviceTimestamp()

	if e.batcher != nil {
		e.batcher.Add(pendingUpdate{
			deviceName:      env.DeviceName,
			fields:          fields,
			receivedAt:      env.ReceivedAt,
			deviceTimestamp: deviceTimestamp,
		})
		return
	}
	e.commit(env.DeviceName, fields, env.ReceivedAt, deviceTimestamp)
}

func (e *Engine) commit(deviceName string, update models.Fields, receivedAt time.Time, deviceTimestamp *time.Time) {
	started := time.Now()
	state := e.state.Apply(deviceName, update, receivedAt)
	e.metrics.ObserveMerge(time.Since(started), e.state.Len())
	e.logger.Debug("Merged telemetry",
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTMerge),
		zap.String("device", deviceName),
		zap.Int("fields", len(update)),
	)

	e.history.AddTelemetry(deviceName, models.HistoryEntry{
		Timestamp:       receivedAt,
		DeviceTimestamp: deviceTimestamp,
		Fields:          update.Clone(),
	})
	if metric := e.types.GraphMetric(deviceName); metric != "" {
		e.history.AddGraphPoint(deviceName, models.GraphPoint{
			Label: receivedAt.Format(graphLabelLayout),
			Value: graphValue(state.Fields[metric]),
		})
	}

	e.updates.Publish(Update{Type: UpdateTelemetry, Payload: state})

	e.writer.Enqueue(WriteJob{
		Name:       "snapshot",
		DeviceName: deviceName,
		Run: func(ctx context.Context) error {
			if e.iot.Snapshot == nil {
				return nil
			}
			return e.iot.Snapshot.SaveSnapshot(ctx, &models.DeviceSnapshot{
				DeviceName:  state.DeviceName,
				Fields:      state.Fields.Clone(),
				LastUpdated: state.LastUpdated,
			})
		},
	})
}

func graphValue(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
	}
	return 0
}

func (e *Engine) handleAlerts(env Envelope) {
	logger := e.logger.With(zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTAlert))

	records := Classify(env, e.types)
	if len(records) == 0 {
		e.metrics.ObserveDropped("no_alerts")
		logger.Debug("No alert records in message", zap.String("topic", env.Topic))
		return
	}

	for _, category := range []models.AlertCategory{models.AlertCategoryAlarm, models.AlertCategoryEvent} {
		n := 0
		for _, r := range records {
			if r.Category == category {
				n++
			}
		}
		e.metrics.ObserveAlerts(string(category), n)
	}

	logger.Info("Alerts classified",
		zap.String("device", env.DeviceName),
		zap.Int("count", len(records)),
	)

	e.history.AddAlerts(records)
	e.updates.Publish(Update{Type: UpdateAlert, Payload: records})

	if e.iot.Alert != nil {
		batch := append([]models.AlertRecord(nil), records...)
		e.writer.Enqueue(WriteJob{
			Name:       "alerts",
			DeviceName: env.DeviceName,
			Run: func(ctx context.Context) error {
				return e.iot.Alert.StoreAlerts(ctx, batch)
			},
		})
	}

	for _, sink := range e.sinks {
		sink := sink
		batch := append([]models.AlertRecord(nil), records...)
		e.forwardWriter.Enqueue(WriteJob{
			Name:       "alert_forward",
			DeviceName: env.DeviceName,
			Run: func(ctx context.Context) error {
				return sink.ForwardAlerts(ctx, batch)
			},
		})
	}
}

// SetConnected records the broker connection state and tells subscribers.
func (e *Engine) SetConnected(connected bool) {
	if e.connected.Swap(connected) == connected {
		return
	}
	e.metrics.SetBrokerConnected(connected)
	e.logger.Info("Broker connection changed", zap.Bool("connected", connected))
	e.updates.Publish(Update{Type: UpdateStatus, Payload: StatusPayload{Connected: connected}})
}

func (e *Engine) Connected() bool {
	return e.connected.Load()
}

// PublishCommand sends a JSON command to device/{name}/rpc.
func (e *Engine) PublishCommand(deviceName string, payload []byte) error {
	logger := e.logger.With(
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTCommand),
		zap.String("device", deviceName),
	)

	name := strings.TrimSpace(deviceName)
	if issues := validateDeviceName(&name); issues != nil || strings.ContainsAny(name, "/+#") {
		e.metrics.ObserveCommand("invalid")
		return fmt.Errorf("%w: bad device name %q", ErrInvalidCommand, deviceName)
	}
	if !json.Valid(payload) {
		e.metrics.ObserveCommand("invalid")
		return fmt.Errorf("%w: payload is not valid JSON", ErrInvalidCommand)
	}
	if e.commandLimiters != nil && !e.commandLimiters.Allow(name) {
		e.metrics.ObserveCommand("rate_limited")
		return ErrRateLimited
	}
	if e.transport == nil || !e.transport.IsConnected() {
		e.metrics.ObserveCommand("not_connected")
		return ErrNotConnected
	}

	if err := e.transport.Publish(CommandTopic(name), payload); err != nil {
		e.metrics.ObserveCommand("failed")
		logger.Error("Failed to publish command", zap.Error(err))
		return fmt.Errorf("publish command: %w", err)
	}

	e.metrics.ObserveCommand("ok")
	logger.Info("Published command", zap.String("topic", CommandTopic(name)))
	return nil
}

func (e *Engine) Devices() map[string]*models.DeviceState {
	return e.state.Snapshot()
}

func (e *Engine) Device(deviceName string) (*models.DeviceState, bool) {
	return e.state.Get(deviceName)
}

// IsOnline is computed at read time from the last merge.
func (e *Engine) IsOnline(state *models.DeviceState) bool {
	return state.IsOnline(e.now(), e.opts.StaleAfter)
}

func (e *Engine) History(deviceName string) []models.HistoryEntry {
	return e.history.Telemetry(deviceName)
}

func (e *Engine) Graph(deviceName string) []models.GraphPoint {
	return e.history.Graph(deviceName)
}

func (e *Engine) Alerts(filter AlertFilter) []models.AlertRecord {
	return e.history.Alerts(filter)
}

func (e *Engine) Subscribe(buffer int) (<-chan Update, func()) {
	return e.updates.Subscribe(buffer)
}

func (e *Engine) DeviceTypes() []models.DeviceType {
	return e.types.List()
}

// UpsertDeviceType persists a device type and applies it to future messages.
func (e *Engine) UpsertDeviceType(typeID string, input *models.DeviceType) (models.DeviceType, error) {
	deviceType := models.DeviceType{
		ID:            typeID,
		Label:         input.Label,
		NamePrefix:    input.NamePrefix,
		AttributeKeys: input.AttributeKeys,
		GraphMetric:   input.GraphMetric,
	}
	if e.iot.DeviceType != nil {
		if err := e.iot.DeviceType.UpsertDeviceType(typeID, &deviceType); err != nil {
			return models.DeviceType{}, err
		}
	}
	e.types.Upsert(deviceType)
	return deviceType, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
