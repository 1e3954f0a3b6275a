package forwarder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertForwarder publishes classified alert batches to a Kafka topic, keyed
// by device name so one device's alerts stay on one partition.
type AlertForwarder struct {
	writer messageWriter
	topic  string
}

func NewAlertForwarder(brokers []string, topic string) *AlertForwarder {
	return newAlertForwarder(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}, topic)
}

func newAlertForwarder(writer messageWriter, topic string) *AlertForwarder {
	return &AlertForwarder{writer: writer, topic: topic}
}

func (f *AlertForwarder) ForwardAlerts(ctx context.Context, alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(alerts))
	for _, alert := range alerts {
		value, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("encode alert: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(alert.DeviceName),
			Value: value,
			Time:  alert.Timestamp,
		})
	}

	if err := f.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("forward %d alerts to %s: %w", len(msgs), f.topic, err)
	}

	common.GetLoggerWith(common.LoggerNameKafka).Debug("Forwarded alerts",
		zap.String("topic", f.topic),
		zap.Int("count", len(msgs)),
	)
	return nil
}

func (f *AlertForwarder) Close() error {
	return f.writer.Close()
}
