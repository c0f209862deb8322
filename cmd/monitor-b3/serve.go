package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"monitorb3/internal/api"
	"monitorb3/internal/httpapi"
	"monitorb3/internal/session"
	"monitorb3/internal/store"
	"monitorb3/internal/util"
	"monitorb3/internal/watchlist"
)

type serveCmd struct {
	port int
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the dashboard and the gRPC health service" }
func (*serveCmd) Usage() string {
	return `serve [-port N]

  Serves the dashboard page over HTTP and grpc.health.v1 (with reflection)
  on the configured gRPC port. Stops gracefully on SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.port, "port", 0, "HTTP port, overrides server.port")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if c.port != 0 {
		cfg.Server.Port = c.port
	}
	log := slog.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rs, err := store.Open(ctx, cfg)
	if err != nil {
		log.Error("opening row store", "driver", cfg.Storage.Driver, "error", err)
		return subcommands.ExitFailure
	}
	defer rs.Close()

	lookup, err := newLookup(cfg)
	if err != nil {
		log.Error("creating market data lookup", "error", err)
		return subcommands.ExitFailure
	}
	loader := newUniverseLoader(cfg)

	dash := httpapi.NewDashboardServer(httpapi.Options{
		Universe:   loader,
		Market:     lookup,
		Watchlist:  watchlist.NewService(rs),
		Sessions:   session.NewRegistry(0, time.Duration(cfg.Server.SessionTTL)*time.Second),
		Calendar:   util.NewTradingCalendar(cfg.Calendar.MIC),
		Indices:    cfg.Indices.Benchmarks,
		WindowDays: cfg.Indices.WindowDays,
		StoreName:  rs.Name(),
	})

	srv := api.NewServer(cfg.Server.HTTPAddr(), cfg.Server.GRPCAddr(), dash.Handler(), loader, cfg.Cache.TTL())

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(ctx) }()
	log.Info("monitor-b3 starting",
		"http", cfg.Server.HTTPAddr(), "grpc", cfg.Server.GRPCAddr(),
		"store", rs.Name(), "provider", lookup.Provider())

	status := subcommands.ExitSuccess
	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			log.Error("server error", "error", err)
			status = subcommands.ExitFailure
		}
	}
	log.Info("shutting down monitor-b3")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	return status
}
