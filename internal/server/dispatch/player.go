package dispatch

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Players expose a single unary method. Requests carry {"method", "payload"},
// responses {"status", "payload"}, both as google.protobuf.Struct.
const (
	playerServiceName = "player.v1.Player"
	invokeFullMethod  = "/player.v1.Player/Invoke"
)

// PlayerServer is implemented by the agent running on a player.
type PlayerServer interface {
	Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterPlayerServer attaches srv to s.
func RegisterPlayerServer(s grpc.ServiceRegistrar, srv PlayerServer) {
	s.RegisterService(&playerServiceDesc, srv)
}

func playerInvokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlayerServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: invokeFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlayerServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var playerServiceDesc = grpc.ServiceDesc{
	ServiceName: playerServiceName,
	HandlerType: (*PlayerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: playerInvokeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "player/v1/player.proto",
}
