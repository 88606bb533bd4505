package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarmclock.v1.AlarmClock"

// Full method names.
const (
	MethodGetState  = "/" + ServiceName + "/GetState"
	MethodSetTarget = "/" + ServiceName + "/SetTarget"
	MethodToggle    = "/" + ServiceName + "/Toggle"
	MethodWatch     = "/" + ServiceName + "/Watch"
)

// AlarmClockServer is the server API of the alarm clock service.
type AlarmClockServer interface {
	// GetState returns the current alarm.
	GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// SetTarget sets the target "HH:MM"; an empty value clears it.
	SetTarget(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	// Toggle stops a sounding alarm or flips the enabled flag.
	Toggle(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// Watch streams the alarm on every clock tick and every change.
	Watch(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the alarm clock service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmClockServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: getStateHandler},
		{MethodName: "SetTarget", Handler: setTargetHandler},
		{MethodName: "Toggle", Handler: toggleHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "alarmclock/v1/alarm_clock.proto",
}

// RegisterAlarmClockServer registers srv on s.
func RegisterAlarmClockServer(s grpc.ServiceRegistrar, srv AlarmClockServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getStateHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmClockServer).GetState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmClockServer).GetState(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func setTargetHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmClockServer).SetTarget(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSetTarget}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmClockServer).SetTarget(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

func toggleHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmClockServer).Toggle(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodToggle}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmClockServer).Toggle(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(AlarmClockServer).Watch(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{
		ServerStream: stream,
	})
}

// AlarmClockClient is the client API of the alarm clock service.
type AlarmClockClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmClockClient creates a client over cc.
func NewAlarmClockClient(cc grpc.ClientConnInterface) *AlarmClockClient {
	return &AlarmClockClient{cc: cc}
}

// GetState calls AlarmClock.GetState.
func (c *AlarmClockClient) GetState(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetState, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// SetTarget calls AlarmClock.SetTarget.
func (c *AlarmClockClient) SetTarget(
	ctx context.Context,
	target string,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodSetTarget, wrapperspb.String(target), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Toggle calls AlarmClock.Toggle.
func (c *AlarmClockClient) Toggle(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodToggle, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Watch opens the AlarmClock.Watch stream.
func (c *AlarmClockClient) Watch(
	ctx context.Context,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], MethodWatch, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, err
	}

	if err := x.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}
