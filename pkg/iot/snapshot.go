package iot

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

func (i *IOT) saveSnapshot(ctx context.Context, snapshot *models.DeviceSnapshot) error {
	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTSnapshot),
	)

	err := i.Db.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_name"}},
		UpdateAll: true,
	}).Create(snapshot).Error

	if err == nil {
		logger.Debug("Saved snapshot for device",
			zap.String("device", snapshot.DeviceName),
			zap.Int("fields", len(snapshot.Fields)),
		)
	}

	return err
}

func (i *IOT) loadSnapshots(ctx context.Context) ([]models.DeviceSnapshot, error) {
	var snapshots []models.DeviceSnapshot
	err := i.Db.Conn.WithContext(ctx).Order("device_name").Find(&snapshots).Error
	return snapshots, err
}

type ISnapshotImpl struct {
	iot *IOT
}

func (is *ISnapshotImpl) SaveSnapshot(ctx context.Context, snapshot *models.DeviceSnapshot) error {
	return is.iot.saveSnapshot(ctx, snapshot)
}

func (is *ISnapshotImpl) LoadSnapshots(ctx context.Context) ([]models.DeviceSnapshot, error) {
	return is.iot.loadSnapshots(ctx)
}

func (i *IOT) GetISnapshot() ISnapshot {
	return &ISnapshotImpl{iot: i}
}
