// Command monitor-b3 serves the B3 watchlist dashboard and offers a few
// operational subcommands.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "server")
	commander.Register(&healthCmd{}, "server")
	commander.Register(&quoteCmd{}, "data")
	commander.Register(&exportCmd{}, "data")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
