package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

var configDir = flag.String("config", "./configs", "Directory holding an optional config.yml")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(newTradesCmd(), "flows")
	subcommands.Register(newPositionsCmd(), "flows")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
