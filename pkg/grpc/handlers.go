package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/iot"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

const watchBuffer = 256

type deviceView struct {
	DeviceName string        `json:"deviceName"`
	Fields     models.Fields `json:"fields"`
	Timestamp  int64         `json:"timestamp"`
	Online     bool          `json:"online"`
}

func (s *DeviceStateServer) deviceView(state *models.DeviceState) deviceView {
	return deviceView{
		DeviceName: state.DeviceName,
		Fields:     state.Fields,
		Timestamp:  state.LastUpdated.UnixMilli(),
		Online:     s.Engine.IsOnline(state),
	}
}

// toMessage converts a JSON-encodable value into a well-known message.
func toMessage[M proto.Message](v any, m M) (M, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return m, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	if string(b) == "null" {
		if _, ok := any(m).(*structpb.ListValue); ok {
			b = []byte("[]")
		} else {
			b = []byte("{}")
		}
	}
	if err := protojson.Unmarshal(b, m); err != nil {
		return m, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return m, nil
}

type deviceRequest struct {
	Device string
}

var deviceRequestSchema = z.Struct(z.Shape{
	"device": z.String().Min(1).Required(),
})

func parseDeviceRequest(in *structpb.Struct) (string, error) {
	var req deviceRequest
	if errs := deviceRequestSchema.Parse(in.AsMap(), &req); errs != nil {
		return "", status.Errorf(codes.InvalidArgument, "validation error: %v", errs)
	}
	return req.Device, nil
}

func (s *DeviceStateServer) knownDevice(in *structpb.Struct) (*models.DeviceState, error) {
	deviceName, err := parseDeviceRequest(in)
	if err != nil {
		return nil, err
	}
	state, ok := s.Engine.Device(deviceName)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown device %q", deviceName)
	}
	return state, nil
}

func (s *DeviceStateServer) ListDevices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	devices := s.Engine.Devices()
	views := make(map[string]deviceView, len(devices))
	for name, state := range devices {
		views[name] = s.deviceView(state)
	}
	return toMessage(views, new(structpb.Struct))
}

func (s *DeviceStateServer) GetDevice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	state, err := s.knownDevice(req)
	if err != nil {
		return nil, err
	}
	return toMessage(s.deviceView(state), new(structpb.Struct))
}

func (s *DeviceStateServer) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	state, err := s.knownDevice(req)
	if err != nil {
		return nil, err
	}
	return toMessage(s.Engine.History(state.DeviceName), new(structpb.ListValue))
}

func (s *DeviceStateServer) GetGraph(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	state, err := s.knownDevice(req)
	if err != nil {
		return nil, err
	}
	return toMessage(s.Engine.Graph(state.DeviceName), new(structpb.ListValue))
}

type alertRequest struct {
	Device   string
	Category string
}

var alertRequestSchema = z.Struct(z.Shape{
	"device": z.String().Optional(),
	"category": z.String().OneOf([]string{
		string(models.AlertCategoryAlarm),
		string(models.AlertCategoryEvent),
		string(models.AlertCategoryAll),
	}).Default(string(models.AlertCategoryAll)),
})

func (s *DeviceStateServer) GetAlerts(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	var query alertRequest
	if errs := alertRequestSchema.Parse(req.AsMap(), &query); errs != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", errs)
	}

	alerts := s.Engine.Alerts(iot.AlertFilter{
		DeviceName: query.Device,
		Category:   models.AlertCategory(query.Category),
	})
	return toMessage(alerts, new(structpb.ListValue))
}

func (s *DeviceStateServer) PublishCommand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	deviceName, err := parseDeviceRequest(req)
	if err != nil {
		return nil, err
	}

	payload, ok := req.GetFields()["payload"]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: payload is required")
	}
	body, err := protojson.Marshal(payload)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	if err := s.Engine.PublishCommand(deviceName, body); err != nil {
		common.GetLoggerWith(common.LoggerNameGrpcServer).Warn("Command not published",
			zap.String("device", deviceName),
			zap.Error(err),
		)
		return nil, commandStatus(err)
	}

	return structpb.NewStruct(map[string]any{"topic": iot.CommandTopic(deviceName)})
}

func commandStatus(err error) error {
	switch {
	case errors.Is(err, iot.ErrInvalidCommand):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, iot.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

type limiterRequest struct {
	Device string
	Rate   float64
	Burst  int
}

var limiterRequestSchema = z.Struct(z.Shape{
	"device": z.String().Min(1).Required(),
	"rate":   z.Float64().Required(),
	"burst":  z.Int().Required(),
})

func limiterReply(success bool, message string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"success": success, "message": message})
}

func (s *DeviceStateServer) PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var limiter limiterRequest
	if errs := limiterRequestSchema.Parse(req.AsMap(), &limiter); errs != nil {
		return limiterReply(false, fmt.Sprintf("validation error: %v", errs))
	}

	if s.RateLimiterStore == nil {
		return limiterReply(false, "RateLimiterStore is not used. No effect.")
	}

	s.RateLimiterStore.SetLimiter(limiter.Device, rate.Limit(limiter.Rate), limiter.Burst)
	return limiterReply(true, "OK")
}

// WatchUpdates streams every update the engine publishes, led by the current
// broker status.
func (s *DeviceStateServer) WatchUpdates(_ *emptypb.Empty, stream UpdateStream) error {
	updates, cancel := s.Engine.Subscribe(watchBuffer)
	defer cancel()

	send := func(update iot.Update) error {
		msg, err := toMessage(update, new(structpb.Struct))
		if err != nil {
			return err
		}
		return stream.Send(msg)
	}

	if err := send(iot.Update{Type: iot.UpdateStatus, Payload: iot.StatusPayload{Connected: s.Engine.Connected()}}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := send(update); err != nil {
				return err
			}
		}
	}
}
