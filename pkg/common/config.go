package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHttpHostPort     = ":1080"
	DefaultMQTTBroker       = "tcp://broker.emqx.io:1883"
	DefaultFlushInterval    = 100 * time.Millisecond
	DefaultStaleAfter       = 60 * time.Second
	DefaultHistorySize      = 100
	DefaultAlertHistorySize = 100
	DefaultGraphSize        = 20
	DefaultWriterQueueSize  = 1024
	DefaultRedisKeyPrefix   = "iot:device:"
	DefaultKafkaAlertTopic  = "device-alerts"
)

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
}

type Config struct {
	DBType          string
	SnapshotBackend string

	HttpHostPort string
	GrpcHostPort string

	DefaultRate  float64
	DefaultBurst int

	MQTT  MQTTConfig
	Redis RedisConfig
	Kafka KafkaConfig

	FlushInterval    time.Duration
	StaleAfter       time.Duration
	HistorySize      int
	AlertHistorySize int
	GraphSize        int
	WriterQueueSize  int

	DeviceTypesPath string
	EventTypes      []string
	RawLogDir       string
}

// LoadConfig reads the service configuration from the environment. Call
// godotenv.Load first if a .env file should be honoured.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBType:          envOr(EnvKeyIOTDBType, "file"),
		SnapshotBackend: envOr(EnvKeyIOTSnapshotBackend, "sqlite"),
		HttpHostPort:    envOr(EnvKeyIOTHttpHostPort, DefaultHttpHostPort),
		GrpcHostPort:    strings.TrimSpace(os.Getenv(EnvKeyIOTGrpcHostPort)),
		MQTT: MQTTConfig{
			Broker:   envOr(EnvKeyIOTMQTTBroker, DefaultMQTTBroker),
			ClientID: strings.TrimSpace(os.Getenv(EnvKeyIOTMQTTClientID)),
			Username: os.Getenv(EnvKeyIOTMQTTUsername),
			Password: os.Getenv(EnvKeyIOTMQTTPassword),
		},
		Redis: RedisConfig{
			Addr:      strings.TrimSpace(os.Getenv(EnvKeyIOTRedisAddr)),
			Password:  os.Getenv(EnvKeyIOTRedisPassword),
			KeyPrefix: envOr(EnvKeyIOTRedisKeyPrefix, DefaultRedisKeyPrefix),
		},
		Kafka: KafkaConfig{
			Brokers:    SplitList(os.Getenv(EnvKeyIOTKafkaBrokers)),
			AlertTopic: envOr(EnvKeyIOTKafkaAlertTopic, DefaultKafkaAlertTopic),
		},
		DeviceTypesPath: strings.TrimSpace(os.Getenv(EnvKeyIOTDeviceTypesPath)),
		EventTypes:      SplitList(os.Getenv(EnvKeyIOTEventTypes)),
		RawLogDir:       envOr(EnvKeyIOTRawLogDir, LogsDir()),
	}

	var err error

	if cfg.DefaultRate, err = strconv.ParseFloat(envOr(EnvKeyIOTDefaultRate, "10"), 64); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a float64 value: %w", EnvKeyIOTDefaultRate, err)
	}
	if cfg.DefaultBurst, err = strconv.Atoi(envOr(EnvKeyIOTDefaultBurst, "20")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be an int value: %w", EnvKeyIOTDefaultBurst, err)
	}
	if cfg.Redis.DB, err = strconv.Atoi(envOr(EnvKeyIOTRedisDB, "0")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be an int value: %w", EnvKeyIOTRedisDB, err)
	}

	if cfg.FlushInterval, err = durationEnv(EnvKeyIOTFlushInterval, DefaultFlushInterval); err != nil {
		return nil, err
	}
	if cfg.StaleAfter, err = durationEnv(EnvKeyIOTStaleAfter, DefaultStaleAfter); err != nil {
		return nil, err
	}

	if cfg.HistorySize, err = positiveIntEnv(EnvKeyIOTHistorySize, DefaultHistorySize); err != nil {
		return nil, err
	}
	if cfg.AlertHistorySize, err = positiveIntEnv(EnvKeyIOTAlertHistorySize, DefaultAlertHistorySize); err != nil {
		return nil, err
	}
	if cfg.GraphSize, err = positiveIntEnv(EnvKeyIOTGraphSize, DefaultGraphSize); err != nil {
		return nil, err
	}
	if cfg.WriterQueueSize, err = positiveIntEnv(EnvKeyIOTWriterQueueSize, DefaultWriterQueueSize); err != nil {
		return nil, err
	}

	switch cfg.SnapshotBackend {
	case "sqlite":
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("%s=redis requires %s", EnvKeyIOTSnapshotBackend, EnvKeyIOTRedisAddr)
		}
	default:
		return nil, fmt.Errorf("unknown %s: %s", EnvKeyIOTSnapshotBackend, cfg.SnapshotBackend)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s, should be a non-negative duration like 100ms: %q", key, raw)
	}
	return d, nil
}

func positiveIntEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s, should be a positive int value: %q", key, raw)
	}
	return n, nil
}
