package dispatch

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubPlayer struct {
	got *structpb.Struct
}

func (p *stubPlayer) Invoke(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p.got = req
	method := req.GetFields()["method"].GetStringValue()
	if method == "restart" {
		return nil, status.Error(codes.Unimplemented, "restart not supported")
	}
	return structpb.NewStruct(map[string]any{
		"status":  200,
		"payload": map[string]any{"method": method, "volume": 7},
	})
}

func startPlayer(t *testing.T, srv PlayerServer) *GRPCInvoker {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterPlayerServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	inv := NewGRPCInvoker(time.Second, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	t.Cleanup(func() { _ = inv.Close() })
	return inv
}

func TestGRPCInvoker_RoundTrip(t *testing.T) {
	player := &stubPlayer{}
	inv := startPlayer(t, player)

	resp, err := inv.Invoke(context.Background(), "passthrough:///bufnet", "play", map[string]any{"track": "a.mp4"})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, map[string]any{"method": "play", "volume": float64(7)}, resp.Payload)
	assert.Equal(t, "a.mp4", player.got.GetFields()["payload"].GetStructValue().GetFields()["track"].GetStringValue())
}

func TestGRPCInvoker_ReusesConnection(t *testing.T) {
	inv := startPlayer(t, &stubPlayer{})

	for i := 0; i < 3; i++ {
		_, err := inv.Invoke(context.Background(), "passthrough:///bufnet", "status", nil)
		require.NoError(t, err)
	}
	assert.Len(t, inv.conns, 1)
}

func TestGRPCInvoker_MethodError(t *testing.T) {
	inv := startPlayer(t, &stubPlayer{})

	_, err := inv.Invoke(context.Background(), "passthrough:///bufnet", "restart", nil)
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestGRPCInvoker_ConnectTimeout(t *testing.T) {
	inv := NewGRPCInvoker(50*time.Millisecond, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	t.Cleanup(func() { _ = inv.Close() })

	start := time.Now()
	_, err := inv.Invoke(context.Background(), "passthrough:///unreachable", "play", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
