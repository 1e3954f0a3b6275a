package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyIOTDBType string = "IOT_DB_TYPE"
	EnvKeyIOTDbPath string = "IOT_DB_PATH"

	EnvKeyIOTSnapshotBackend string = "IOT_SNAPSHOT_BACKEND"
	EnvKeyIOTRedisAddr       string = "IOT_REDIS_ADDR"
	EnvKeyIOTRedisPassword   string = "IOT_REDIS_PASSWORD"
	EnvKeyIOTRedisDB         string = "IOT_REDIS_DB"
	EnvKeyIOTRedisKeyPrefix  string = "IOT_REDIS_KEY_PREFIX"

	EnvKeyIOTHttpHostPort string = "IOT_HTTP_HOST_PORT"
	EnvKeyIOTGrpcHostPort string = "IOT_GRPC_HOST_PORT"

	EnvKeyIOTDefaultRate  string = "IOT_DEFAULT_RATE"
	EnvKeyIOTDefaultBurst string = "IOT_DEFAULT_BURST"

	EnvKeyIOTMQTTBroker   string = "IOT_MQTT_BROKER"
	EnvKeyIOTMQTTClientID string = "IOT_MQTT_CLIENT_ID"
	EnvKeyIOTMQTTUsername string = "IOT_MQTT_USERNAME"
	EnvKeyIOTMQTTPassword string = "IOT_MQTT_PASSWORD"

	EnvKeyIOTFlushInterval    string = "IOT_FLUSH_INTERVAL"
	EnvKeyIOTStaleAfter       string = "IOT_STALE_AFTER"
	EnvKeyIOTHistorySize      string = "IOT_HISTORY_SIZE"
	EnvKeyIOTAlertHistorySize string = "IOT_ALERT_HISTORY_SIZE"
	EnvKeyIOTGraphSize        string = "IOT_GRAPH_SIZE"
	EnvKeyIOTWriterQueueSize  string = "IOT_WRITER_QUEUE_SIZE"

	EnvKeyIOTDeviceTypesPath string = "IOT_DEVICE_TYPES_PATH"
	EnvKeyIOTEventTypes      string = "IOT_EVENT_TYPES"

	EnvKeyIOTLogDir    string = "IOT_LOG_DIR"
	EnvKeyIOTRawLogDir string = "IOT_RAW_LOG_DIR"

	EnvKeyIOTKafkaBrokers    string = "IOT_KAFKA_BROKERS"
	EnvKeyIOTKafkaAlertTopic string = "IOT_KAFKA_ALERT_TOPIC"

	LoggerNameIOTCore       string = "iot_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameTransport     string = "mqtt_transport"
	LoggerNameRedisStore    string = "redis_store"
	LoggerNameKafka         string = "kafka_forwarder"

	LoggerFieldIOTCategory string = "category"

	LoggerCategoryIOTDecode   string = "decode"
	LoggerCategoryIOTMerge    string = "merge"
	LoggerCategoryIOTAlert    string = "alert"
	LoggerCategoryIOTSnapshot string = "snapshot"
	LoggerCategoryIOTConfig   string = "config"
	LoggerCategoryIOTCommand  string = "command"
	LoggerCategoryIOTState    string = "state"
)
