package alarm

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/controller"
)

// ActorHeader is the metadata key carrying "user@host" of the caller.
const ActorHeader = "x-alarm-actor"

// watchBuffer is how many updates a slow Watch stream may lag behind.
const watchBuffer = 16

// Service abstracts the alarm operations the transport layer depends on.
type Service interface {
	Snapshot() *domain.Snapshot
	SetTarget(ctx context.Context, target string) (*domain.Snapshot, error)
	Toggle(ctx context.Context) (*domain.Snapshot, error)
	Subscribe(l controller.Listener) (unsubscribe func())
}

// Clock publishes the readings streamed by Watch.
type Clock interface {
	Subscribe(h clock.Handler) (unsubscribe func())
}

// Server implements the AlarmClock gRPC API.
type Server struct {
	// service provides the alarm state machine.
	service Service
	// clock drives the Watch stream.
	clock Clock
}

var _ AlarmClockServer = (*Server)(nil)

// NewServer wires the provided service and clock into a gRPC handler.
func NewServer(service Service, clk Clock) *Server {
	return &Server{
		service: service,
		clock:   clk,
	}
}

// GetState returns the current alarm.
func (s *Server) GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return toProto(s.service.Snapshot(), time.Now()), nil
}

// SetTarget changes the target minute.
func (s *Server) SetTarget(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	snapshot, err := s.service.SetTarget(withActor(ctx), req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	return toProto(snapshot, time.Now()), nil
}

// Toggle stops a sounding alarm or flips the enabled flag.
func (s *Server) Toggle(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.Toggle(withActor(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	return toProto(snapshot, time.Now()), nil
}

// Watch sends the current alarm, then one update per tick and per change,
// until the client goes away. Updates are dropped for a stream that falls
// more than watchBuffer messages behind.
func (s *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := logger.WithName(stream.Context(), "watch")
	updates := make(chan *structpb.Struct, watchBuffer)

	push := func(msg *structpb.Struct) {
		select {
		case updates <- msg:
		default:
			logger.Debug(ctx, "Watch stream is lagging, update dropped")
		}
	}

	unsubscribeClock := s.clock.Subscribe(func(_ context.Context, r clock.Reading) {
		push(toProto(s.service.Snapshot(), r.Time))
	})
	defer unsubscribeClock()

	unsubscribeEvents := s.service.Subscribe(func(_ context.Context, e controller.Event) {
		if e.Kind == controller.EventState {
			push(toProto(e.Snapshot, time.Now()))
		}
	})
	defer unsubscribeEvents()

	if err := stream.Send(toProto(s.service.Snapshot(), time.Now())); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-updates:
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// withActor adds the caller from request metadata to the context logger.
func withActor(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	if actors := md.Get(ActorHeader); len(actors) > 0 {
		return logger.WithKV(ctx, "actor", actors[0])
	}

	return ctx
}

// toStatus maps controller errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTarget):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, controller.ErrSounding):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, controller.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "unable to change the alarm")
	}
}
