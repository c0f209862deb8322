package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"monitorb3/pkg/monitorb3"
)

type healthCmd struct {
	addr    string
	timeout time.Duration
	json    bool
}

func (*healthCmd) Name() string     { return "health" }
func (*healthCmd) Synopsis() string { return "check a running server over gRPC health" }
func (*healthCmd) Usage() string {
	return `health [-addr host:port] [-timeout 5s] [-json]

  Exits 0 when the server reports SERVING and 1 otherwise.
`
}

func (c *healthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "localhost:9501", "gRPC address of the server")
	f.DurationVar(&c.timeout, "timeout", 5*time.Second, "Deadline for the check")
	f.BoolVar(&c.json, "json", false, "Print the raw health response as JSON")
}

func (c *healthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	client, err := monitorb3.NewClient(c.addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := client.Check(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if c.json {
		fmt.Println(protojson.Format(resp))
	} else {
		fmt.Println(resp.GetStatus())
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
