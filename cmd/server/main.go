package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/db"
	"liyu1981.xyz/iot-telemetry-state/pkg/forwarder"
	iotGrpc "liyu1981.xyz/iot-telemetry-state/pkg/grpc"
	iotHttp "liyu1981.xyz/iot-telemetry-state/pkg/http"
	"liyu1981.xyz/iot-telemetry-state/pkg/iot"
	"liyu1981.xyz/iot-telemetry-state/pkg/metrics"
	"liyu1981.xyz/iot-telemetry-state/pkg/mqtt"
	"liyu1981.xyz/iot-telemetry-state/pkg/rawlog"
	"liyu1981.xyz/iot-telemetry-state/pkg/redisstore"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil && common.IsDevelopment() {
		log.Fatal("Error loading .env file, copy .env.example to .env first if in development")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	var dbInstance *db.DB
	switch cfg.DBType {
	case "file":
		dbInstance = db.GetInstance(db.UseSqliteDialector())
	case "memory":
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	default:
		log.Fatal("Unknown IOT_DB_TYPE: " + cfg.DBType)
	}

	logger := common.GetLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	iotCore := iot.IOT{
		Db: *dbInstance,
	}
	serviceOpts := iot.ServiceOpts{
		Snapshot:   iotCore.GetISnapshot(),
		Alert:      iotCore.GetIAlert(),
		DeviceType: iotCore.GetIDeviceType(),
	}

	switch cfg.SnapshotBackend {
	case "sqlite":
	case "redis":
		store := redisstore.New(redisstore.NewClient(cfg.Redis), cfg.Redis.KeyPrefix)
		if err := store.Ping(ctx); err != nil {
			log.Fatalf("redis snapshot backend unreachable: %v", err)
		}
		serviceOpts.Snapshot = store
	default:
		log.Fatal("Unknown IOT_SNAPSHOT_BACKEND: " + cfg.SnapshotBackend)
	}
	iotCore.WithServices(serviceOpts)

	types, err := iot.BuildDeviceTypeRegistry(cfg, iotCore.DeviceType)
	if err != nil {
		log.Fatalf("failed to load device types: %v", err)
	}

	m := metrics.New()
	engine := iot.NewEngine(&iotCore, types, iot.EngineOptsFromConfig(cfg)).
		WithMetrics(m).
		WithCommandLimiter(iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst))

	if cfg.RawLogDir != "" {
		raw, err := rawlog.New(cfg.RawLogDir)
		if err != nil {
			log.Fatalf("failed to open raw message log: %v", err)
		}
		defer raw.Close()
		engine.WithRawLog(raw)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		alertForwarder := forwarder.NewAlertForwarder(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		defer alertForwarder.Close()
		engine.WithAlertSinks(alertForwarder)
		logger.Info("Forwarding alerts to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.AlertTopic),
		)
	}

	broker := mqtt.NewClient(cfg.MQTT, engine.SetConnected)
	engine.WithTransport(broker)

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, connectTimeout)
	if err := broker.Connect(connectCtx); err != nil {
		logger.Warn("Initial broker connection failed, retrying in background", zap.Error(err))
	}
	cancelConnect()

	var grpcServer *grpc.Server
	if cfg.GrpcHostPort != "" {
		deviceServer := iotGrpc.DeviceStateServer{
			Engine:           engine,
			RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
		}
		interceptor := deviceServer.CreateRateLimitInterceptor(iotGrpc.RateLimitedMethods)
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		iotGrpc.RegisterDeviceStateServiceServer(grpcServer, &deviceServer)
		logger.Info("gRPC server created with:",
			zap.String("default_limiter",
				fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

		listener, err := net.Listen("tcp", cfg.GrpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("start gRPC server on " + cfg.GrpcHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("grpc server failed to serve", zap.Error(err))
				stop()
			}
		}()
	}

	rs := &iotHttp.RestfulServer{
		Server:           gin.Default(),
		Engine:           engine,
		RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
		Metrics:          m,
		Upgrader:         iotHttp.NewUpgrader(),
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

	httpServer := &http.Server{
		Addr:    cfg.HttpHostPort,
		Handler: rs.Server,
	}
	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed to serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	// stop intake before draining the batcher and the write queue
	broker.Disconnect()
	engine.Stop()
}
