package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"monitorb3/internal/dashboard"
	"monitorb3/internal/domain"
)

type quoteCmd struct {
	index bool
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "print quotes for tickers" }
func (*quoteCmd) Usage() string {
	return `quote [-index] TICKER...

  Looks up each ticker through the same two-tier lookup the dashboard uses
  and prints the price, the change and the tier that answered.
  With -index, also prints the configured index series.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.index, "index", false, "Also print the configured index series")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 && !c.index {
		fmt.Fprintln(os.Stderr, "Error: at least one ticker is required.")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	lookup, err := newLookup(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tPRICE\tCHANGE\tCHANGE %\tSOURCE")
	for _, arg := range f.Args() {
		t := domain.NormalizeTicker(arg)
		if !t.Valid() {
			continue
		}
		q := lookup.Quote(ctx, t)
		card := dashboard.BuildCard(q, nil)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", card.Ticker, card.Price, card.Change, card.ChangePct, q.Source)
	}
	w.Flush()

	if c.index {
		for _, idx := range cfg.Indices.Benchmarks {
			s, err := lookup.Series(ctx, idx, cfg.Indices.WindowDays)
			if err != nil {
				fmt.Printf("\n%s (%s): %s\n", idx.Name, idx.Symbol, dashboard.InsufficientData)
				continue
			}
			fmt.Printf("\n%s (%s), trend %s\n", idx.Name, idx.Symbol, s.Trend())
			for _, p := range s.Points {
				fmt.Printf("  %s  %s\n", p.Date.Format("2006-01-02"), dashboard.FormatIndex(p.Close))
			}
		}
	}
	return subcommands.ExitSuccess
}
