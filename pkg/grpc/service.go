package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Requests and replies use the well-known Struct and ListValue messages,
// carrying the same JSON shapes the REST API serves.
const (
	ServiceName = "iot.telemetry.v1.DeviceStateService"

	MethodListDevices    = "/" + ServiceName + "/ListDevices"
	MethodGetDevice      = "/" + ServiceName + "/GetDevice"
	MethodGetHistory     = "/" + ServiceName + "/GetHistory"
	MethodGetGraph       = "/" + ServiceName + "/GetGraph"
	MethodGetAlerts      = "/" + ServiceName + "/GetAlerts"
	MethodPublishCommand = "/" + ServiceName + "/PublishCommand"
	MethodPostLimiter    = "/" + ServiceName + "/PostLimiter"
	MethodWatchUpdates   = "/" + ServiceName + "/WatchUpdates"
)

type DeviceStateServiceServer interface {
	ListDevices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDevice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	GetGraph(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	GetAlerts(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	PublishCommand(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostLimiter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchUpdates(*emptypb.Empty, UpdateStream) error
}

type UpdateStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

func RegisterDeviceStateServiceServer(s grpc.ServiceRegistrar, srv DeviceStateServiceServer) {
	s.RegisterService(&DeviceStateService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	method string,
	newReq func() *Req,
	call func(DeviceStateServiceServer, context.Context, *Req) (Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DeviceStateServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DeviceStateServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }

type updateStream struct {
	grpc.ServerStream
}

func (x *updateStream) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func watchUpdatesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DeviceStateServiceServer).WatchUpdates(in, &updateStream{stream})
}

var DeviceStateService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeviceStateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListDevices",
			Handler:    unaryHandler(MethodListDevices, newEmpty, DeviceStateServiceServer.ListDevices),
		},
		{
			MethodName: "GetDevice",
			Handler:    unaryHandler(MethodGetDevice, newStruct, DeviceStateServiceServer.GetDevice),
		},
		{
			MethodName: "GetHistory",
			Handler:    unaryHandler(MethodGetHistory, newStruct, DeviceStateServiceServer.GetHistory),
		},
		{
			MethodName: "GetGraph",
			Handler:    unaryHandler(MethodGetGraph, newStruct, DeviceStateServiceServer.GetGraph),
		},
		{
			MethodName: "GetAlerts",
			Handler:    unaryHandler(MethodGetAlerts, newStruct, DeviceStateServiceServer.GetAlerts),
		},
		{
			MethodName: "PublishCommand",
			Handler:    unaryHandler(MethodPublishCommand, newStruct, DeviceStateServiceServer.PublishCommand),
		},
		{
			MethodName: "PostLimiter",
			Handler:    unaryHandler(MethodPostLimiter, newStruct, DeviceStateServiceServer.PostLimiter),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchUpdates",
			Handler:       watchUpdatesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "iot_telemetry_state.proto",
}

type DeviceStateServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDeviceStateServiceClient(cc grpc.ClientConnInterface) *DeviceStateServiceClient {
	return &DeviceStateServiceClient{cc: cc}
}

func (c *DeviceStateServiceClient) ListDevices(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodListDevices, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DeviceStateServiceClient) GetDevice(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetDevice, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DeviceStateServiceClient) GetHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, MethodGetHistory, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DeviceStateServiceClient) GetGraph(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, MethodGetGraph, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DeviceStateServiceClient) GetAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, MethodGetAlerts, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DeviceStateServiceClient) PublishCommand(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodPublishCommand, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DeviceStateServiceClient) PostLimiter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodPostLimiter, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type UpdateReceiver interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type updateReceiver struct {
	grpc.ClientStream
}

func (x *updateReceiver) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *DeviceStateServiceClient) WatchUpdates(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (UpdateReceiver, error) {
	stream, err := c.cc.NewStream(ctx, &DeviceStateService_ServiceDesc.Streams[0], MethodWatchUpdates, opts...)
	if err != nil {
		return nil, err
	}
	x := &updateReceiver{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
