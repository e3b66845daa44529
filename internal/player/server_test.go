package player

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func startServer(t *testing.T, p *Player) *dispatch.GRPCInvoker {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", logging.Discard(), p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	inv := dispatch.NewGRPCInvoker(time.Second, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	t.Cleanup(func() { _ = inv.Close() })
	return inv
}

func TestGRPCServer_DirectCommands(t *testing.T) {
	p := New(clock.Fake(t0))
	inv := startServer(t, p)
	ctx := context.Background()

	resp, err := inv.Invoke(ctx, "passthrough:///bufnet", "change-track", map[string]any{"track": "promo.mp4"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "promo.mp4", resp.Payload["track"])
	assert.Equal(t, "promo.mp4", p.State().Track)

	resp, err = inv.Invoke(ctx, "passthrough:///bufnet", "dance", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, resp.Status)
}

func TestGRPCServer_InvokeRequiresMethod(t *testing.T) {
	srv := NewGRPCServer("bufnet", logging.Discard(), New(clock.Fake(t0)))

	req, err := structpb.NewStruct(map[string]any{"payload": map[string]any{}})
	require.NoError(t, err)

	_, err = srv.Invoke(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRecoverInterceptor(t *testing.T) {
	srv := NewGRPCServer("bufnet", logging.Discard(), New(clock.Fake(t0)))

	_, err := srv.recoverInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Discard(), New(clock.Real()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Discard(), New(clock.Real()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
