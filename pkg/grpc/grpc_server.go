package grpc

import (
	"golang.org/x/time/rate"

	"liyu1981.xyz/iot-telemetry-state/pkg/iot"
)

type DeviceStateServer struct {
	Engine           *iot.Engine
	RateLimiterStore *iot.RateLimiterStore
}

var _ DeviceStateServiceServer = (*DeviceStateServer)(nil)

func (s *DeviceStateServer) GetLimiter(deviceName string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	} else {
		return s.RateLimiterStore.GetLimiter(deviceName)
	}
}

func (s *DeviceStateServer) CheckDeviceLimiter(deviceName string) bool {
	limiter := s.GetLimiter(deviceName)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// RateLimitedMethods are the calls addressed to a single device.
var RateLimitedMethods = []string{
	MethodGetDevice,
	MethodGetHistory,
	MethodGetGraph,
	MethodPublishCommand,
}
