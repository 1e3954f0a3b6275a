package db

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// GetInstance opens the database once per process and migrates the snapshot,
// alert and device type tables.
func GetInstance(dialector gorm.Dialector) *DB {
	var logger = common.GetLogger()
	once.Do(func() {
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

		instance = &DB{Conn: conn}

		err = instance.Conn.AutoMigrate(&models.DeviceSnapshot{}, &models.AlertRecord{}, &models.DeviceType{})
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}

		logger.Info("Database migration completed")

		if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			log.Fatal("Failed to set sqlite journal mode", err)
		}

		// sqlite allows one writer; the snapshot writer and API handlers share it
		if sqlDB, err := instance.Conn.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	})
	return instance
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyIOTDbPath); !found {
		dbPath = "telemetry.db"
	}
	return sqlite.Open(dbPath)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}
