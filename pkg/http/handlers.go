package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/iot"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

// DeviceView is a device's merged state as served to clients. Timestamp is
// the last merge time in epoch milliseconds.
type DeviceView struct {
	DeviceName string        `json:"deviceName"`
	Fields     models.Fields `json:"fields"`
	Timestamp  int64         `json:"timestamp"`
	Online     bool          `json:"online"`
}

func (rs *RestfulServer) deviceView(state *models.DeviceState) DeviceView {
	return DeviceView{
		DeviceName: state.DeviceName,
		Fields:     state.Fields,
		Timestamp:  state.LastUpdated.UnixMilli(),
		Online:     rs.Engine.IsOnline(state),
	}
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rs *RestfulServer) GetStatus(c *gin.Context) {
	devices := rs.Engine.Devices()
	online := 0
	for _, state := range devices {
		if rs.Engine.IsOnline(state) {
			online++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"connected": rs.Engine.Connected(),
		"devices":   len(devices),
		"online":    online,
	})
}

func (rs *RestfulServer) ListDevices(c *gin.Context) {
	devices := rs.Engine.Devices()
	views := make(map[string]DeviceView, len(devices))
	for name, state := range devices {
		views[name] = rs.deviceView(state)
	}
	c.JSON(http.StatusOK, views)
}

func (rs *RestfulServer) GetDevice(c *gin.Context) {
	deviceName := c.Param("device_id")

	if !rs.CheckDeviceLimiter(deviceName) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	state, ok := rs.Engine.Device(deviceName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
		return
	}
	c.JSON(http.StatusOK, rs.deviceView(state))
}

func (rs *RestfulServer) GetDeviceHistory(c *gin.Context) {
	deviceName := c.Param("device_id")

	if !rs.CheckDeviceLimiter(deviceName) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	if _, ok := rs.Engine.Device(deviceName); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
		return
	}
	c.JSON(http.StatusOK, rs.Engine.History(deviceName))
}

func (rs *RestfulServer) GetDeviceGraph(c *gin.Context) {
	deviceName := c.Param("device_id")

	if !rs.CheckDeviceLimiter(deviceName) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	if _, ok := rs.Engine.Device(deviceName); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
		return
	}
	c.JSON(http.StatusOK, rs.Engine.Graph(deviceName))
}

type AlertQuery struct {
	Device   string `json:"device"`
	Category string `json:"category"`
}

var alertQuerySchema = z.Struct(z.Shape{
	"device": z.String().Optional(),
	"category": z.String().OneOf([]string{
		string(models.AlertCategoryAlarm),
		string(models.AlertCategoryEvent),
		string(models.AlertCategoryAll),
	}).Default(string(models.AlertCategoryAll)),
})

func (rs *RestfulServer) GetAlerts(c *gin.Context) {
	var query AlertQuery
	if err := alertQuerySchema.Parse(zhttp.Request(c.Request), &query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	c.JSON(http.StatusOK, rs.Engine.Alerts(iot.AlertFilter{
		DeviceName: query.Device,
		Category:   models.AlertCategory(query.Category),
	}))
}

func (rs *RestfulServer) PostCommand(c *gin.Context) {
	deviceName := c.Param("device_id")

	if !rs.CheckDeviceLimiter(deviceName) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := rs.Engine.PublishCommand(deviceName, payload); err != nil {
		c.JSON(commandErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"topic": iot.CommandTopic(deviceName)})
}

func commandErrorStatus(err error) int {
	switch {
	case errors.Is(err, iot.ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, iot.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	deviceName := c.Param("device_id")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(deviceName, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) ListDeviceTypes(c *gin.Context) {
	c.JSON(http.StatusOK, rs.Engine.DeviceTypes())
}

type DeviceTypeRequest struct {
	Label         string   `json:"label"`
	NamePrefix    string   `json:"namePrefix"`
	AttributeKeys []string `json:"attributeKeys"`
	GraphMetric   string   `json:"graphMetric"`
}

var deviceTypeRequestSchema = z.Struct(z.Shape{
	"label":         z.String().Optional(),
	"namePrefix":    z.String().Min(1).Required(),
	"attributeKeys": z.Slice(z.String()).Optional(),
	"graphMetric":   z.String().Optional(),
})

func (rs *RestfulServer) PutDeviceType(c *gin.Context) {
	typeID := c.Param("type_id")

	var req DeviceTypeRequest
	if err := deviceTypeRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	saved, err := rs.Engine.UpsertDeviceType(typeID, &models.DeviceType{
		Label:         req.Label,
		NamePrefix:    req.NamePrefix,
		AttributeKeys: req.AttributeKeys,
		GraphMetric:   req.GraphMetric,
	})
	if err != nil {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("Failed to save device type",
			zap.String("typeID", typeID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, saved)
}
