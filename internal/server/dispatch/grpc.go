package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCInvoker calls players over gRPC, keeping one client connection per
// endpoint.
type GRPCInvoker struct {
	connectTimeout time.Duration
	dialOpts       []grpc.DialOption

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewGRPCInvoker uses plaintext transport; extra opts are appended.
func NewGRPCInvoker(connectTimeout time.Duration, opts ...grpc.DialOption) *GRPCInvoker {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return &GRPCInvoker{
		connectTimeout: connectTimeout,
		dialOpts:       dialOpts,
		conns:          make(map[string]*grpc.ClientConn),
	}
}

func (g *GRPCInvoker) conn(endpoint string) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cc, ok := g.conns[endpoint]; ok {
		return cc, nil
	}
	cc, err := grpc.NewClient(endpoint, g.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", endpoint, err)
	}
	g.conns[endpoint] = cc
	return cc, nil
}

// waitReady blocks until cc is connected or timeout passes.
func waitReady(ctx context.Context, cc *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cc.Connect()
	for {
		state := cc.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("connection shut down")
		}
		if !cc.WaitForStateChange(ctx, state) {
			return fmt.Errorf("connect %s: %w", cc.Target(), ctx.Err())
		}
	}
}

func (g *GRPCInvoker) Invoke(ctx context.Context, endpoint, method string, payload map[string]any) (*DirectResponse, error) {
	cc, err := g.conn(endpoint)
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, cc, g.connectTimeout); err != nil {
		return nil, err
	}

	if payload == nil {
		payload = map[string]any{}
	}
	req, err := structpb.NewStruct(map[string]any{"method": method, "payload": payload})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	out := &structpb.Struct{}
	if err := cc.Invoke(ctx, invokeFullMethod, req, out); err != nil {
		return nil, err
	}

	resp := &DirectResponse{
		Status:  int(out.GetFields()["status"].GetNumberValue()),
		Payload: map[string]any{},
	}
	if p := out.GetFields()["payload"].GetStructValue(); p != nil {
		resp.Payload = p.AsMap()
	}
	return resp, nil
}

// Close drops every cached connection.
func (g *GRPCInvoker) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for endpoint, cc := range g.conns {
		if err := cc.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(g.conns, endpoint)
	}
	return errors.Join(errs...)
}
