package iot

import (
	"context"
	"time"

	"liyu1981.xyz/iot-telemetry-state/pkg/db"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

//go:generate mockgen -source=iot.go -destination=mocks/mock_iot.go -package=mocks

// ISnapshot is the durable per-device snapshot store.
type ISnapshot interface {
	SaveSnapshot(ctx context.Context, snapshot *models.DeviceSnapshot) error
	LoadSnapshots(ctx context.Context) ([]models.DeviceSnapshot, error)
}

type IAlert interface {
	StoreAlerts(ctx context.Context, alerts []models.AlertRecord) error
	RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error)
}

type IDeviceType interface {
	UpsertDeviceType(typeID string, input *models.DeviceType) error
	ListDeviceTypes() ([]models.DeviceType, error)
}

// ITransport is the broker connection the engine consumes from and publishes
// commands to.
type ITransport interface {
	Subscribe(topics []string, handler func(topic string, payload []byte)) error
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

type IAlertSink interface {
	ForwardAlerts(ctx context.Context, alerts []models.AlertRecord) error
}

type IRawLog interface {
	Append(topic string, payload []byte, receivedAt time.Time) error
}

type IOT struct {
	Db         db.DB
	Snapshot   ISnapshot
	Alert      IAlert
	DeviceType IDeviceType
}

type ServiceOpts struct {
	Snapshot   ISnapshot
	Alert      IAlert
	DeviceType IDeviceType
}

func (i *IOT) WithServices(opts ServiceOpts) *IOT {
	if opts.Snapshot != nil {
		i.Snapshot = opts.Snapshot
	}
	if opts.Alert != nil {
		i.Alert = opts.Alert
	}
	if opts.DeviceType != nil {
		i.DeviceType = opts.DeviceType
	}
	return i
}
