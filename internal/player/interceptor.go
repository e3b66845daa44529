package player

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn(ctx, "grpc call failed", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
		return nil, err
	}
	s.logger.Debug(ctx, "grpc call", "method", info.FullMethod, "duration", time.Since(start))
	return resp, nil
}

// recoverInterceptor keeps a panicking command from taking the agent down.
func (s *GRPCServer) recoverInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic in handler", "method", info.FullMethod, "panic", fmt.Sprint(r))
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
