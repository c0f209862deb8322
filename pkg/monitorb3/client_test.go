package monitorb3

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealth(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	hs := health.NewServer()
	hs.SetServingStatus(DashboardService, healthpb.HealthCheckResponse_NOT_SERVING)
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	go gs.Serve(ln)
	t.Cleanup(gs.Stop)

	c, err := NewClient(ln.Addr().String())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if status != "NOT_SERVING" {
		t.Errorf("status = %s, want NOT_SERVING", status)
	}

	hs.SetServingStatus(DashboardService, healthpb.HealthCheckResponse_SERVING)
	if status, _ = c.Health(ctx); status != "SERVING" {
		t.Errorf("status = %s, want SERVING", status)
	}
}

func TestHealthUnreachable(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := c.Health(ctx); err == nil {
		t.Error("Health on a closed port returned nil error")
	}
}
