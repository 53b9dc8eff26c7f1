// Command sini is the CLI around the sini language core: compile and
// run source files, start an interactive REPL, or work with compiled
// .sic binary programs directly (build/dump/validate).
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&buildCmd{}, "")
	subcommands.Register(&dumpCmd{}, "")
	subcommands.Register(&validateCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
