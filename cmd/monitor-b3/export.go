package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"monitorb3/internal/store"
)

type exportCmd struct {
	out string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write all persisted watchlist rows to a Parquet file" }
func (*exportCmd) Usage() string {
	return `export [-out FILE]

  Reads every (user id, ticker) row from the configured row store and
  writes them to a Parquet file. The default file is
  <storage.export_dir>/watchlist-YYYY-MM-DD.parquet.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "out", "", "Output Parquet file")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	rs, err := store.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s store: %v\n", cfg.Storage.Driver, err)
		return subcommands.ExitFailure
	}
	defer rs.Close()

	rows, err := rs.ReadRows(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading rows: %v\n", err)
		return subcommands.ExitFailure
	}

	now := time.Now()
	out := c.out
	if out == "" {
		out = store.ExportPath(cfg.Storage.ExportDir, now)
	}
	if err := store.ExportRows(out, rows, now); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("exported %d rows from %s to %s\n", len(rows), rs.Name(), out)
	return subcommands.ExitSuccess
}
