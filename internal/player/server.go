package player

import (
	"context"
	"net"

	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/dispatch"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCServer answers the hub's direct calls.
type GRPCServer struct {
	address string
	player  *Player
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, p *Player) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		player:  p,
	}
}

// Invoke decodes {"method", "payload"} and replies {"status", "payload"}.
func (s *GRPCServer) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	method := req.GetFields()["method"].GetStringValue()
	if method == "" {
		return nil, status.Error(codes.InvalidArgument, "method is required")
	}

	var payload map[string]any
	if p := req.GetFields()["payload"].GetStructValue(); p != nil {
		payload = p.AsMap()
	}

	code, out := s.player.Execute(method, payload)
	s.logger.Info(ctx, "direct command", "method", method, "status", code)

	resp, err := structpb.NewStruct(map[string]any{"status": code, "payload": out})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoverInterceptor, s.loggingInterceptor))

	dispatch.RegisterPlayerServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
