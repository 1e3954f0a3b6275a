package http

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
	"liyu1981.xyz/iot-telemetry-state/pkg/iot"
	"liyu1981.xyz/iot-telemetry-state/pkg/metrics"
)

type RestfulServer struct {
	Server           *gin.Engine
	Engine           *iot.Engine
	RateLimiterStore *iot.RateLimiterStore
	Metrics          *metrics.Metrics
	Upgrader         websocket.Upgrader
}

func (rs *RestfulServer) GetLimiter(deviceName string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(deviceName)
	}
}

func (rs *RestfulServer) CheckDeviceLimiter(deviceName string) bool {
	limiter := rs.GetLimiter(deviceName)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(deviceName string, deviceRate float64, deviceBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(deviceName, rate.Limit(deviceRate), deviceBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/status", rs.GetStatus)
	rs.Server.GET("/alerts", rs.GetAlerts)
	rs.Server.GET("/ws", rs.ServeWebsocket)

	if rs.Metrics != nil {
		rs.Server.GET("/metrics", gin.WrapH(rs.Metrics.Handler()))
	}

	rs.Server.GET("/devices", rs.ListDevices)
	devices := rs.Server.Group("/devices/:device_id")
	{
		devices.GET("", rs.GetDevice)
		devices.GET("/history", rs.GetDeviceHistory)
		devices.GET("/graph", rs.GetDeviceGraph)
		devices.POST("/rpc", rs.PostCommand)
		devices.POST("/limiter", rs.PostLimiter)
	}

	rs.Server.GET("/device-types", rs.ListDeviceTypes)
	rs.Server.PUT("/device-types/:type_id", rs.PutDeviceType)
}
