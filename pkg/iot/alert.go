package iot

import (
	"context"

	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

// storeAlerts writes one classified batch in a single statement, so a batch is
// stored completely or not at all.
func (i *IOT) storeAlerts(ctx context.Context, alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}

	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTAlert),
	)

	if err := i.Db.Conn.WithContext(ctx).Create(&alerts).Error; err != nil {
		return err
	}

	logger.Info("Alerts saved",
		zap.String("device", alerts[0].DeviceName),
		zap.Int("count", len(alerts)),
	)
	return nil
}

func (i *IOT) recentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	var alerts []models.AlertRecord
	err := i.Db.Conn.WithContext(ctx).
		Order("timestamp desc").
		Order("id asc").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

type IAlertImpl struct {
	iot *IOT
}

func (ia *IAlertImpl) StoreAlerts(ctx context.Context, alerts []models.AlertRecord) error {
	return ia.iot.storeAlerts(ctx, alerts)
}

func (ia *IAlertImpl) RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	return ia.iot.recentAlerts(ctx, limit)
}

func (i *IOT) GetIAlert() IAlert {
	return &IAlertImpl{iot: i}
}
