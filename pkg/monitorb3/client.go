// Package monitorb3 is a small Go client for a running monitor-b3 server.
package monitorb3

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DashboardService is the health service name reported by the server.
const DashboardService = "monitorb3.Dashboard"

// Client talks to the monitor-b3 gRPC endpoint.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewClient creates a client for the gRPC server at addr. The connection is
// established lazily on the first call.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gRPC client for %s: %w", addr, err)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

// Check runs a grpc.health.v1 check for the dashboard service.
func (c *Client) Check(ctx context.Context) (*healthpb.HealthCheckResponse, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: DashboardService})
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return resp, nil
}

// Health returns the serving status of the dashboard, e.g. "SERVING".
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.Check(ctx)
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
