package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"sini/program"
)

// dumpCmd disassembles a .sic binary program file to a text listing,
// the read-a-compiled-program counterpart to build's write side.
type dumpCmd struct{}

func (*dumpCmd) Name() string     { return "dump" }
func (*dumpCmd) Synopsis() string { return "Disassemble a .sic binary program" }
func (*dumpCmd) Usage() string {
	return `dump <file.sic>:
  Print a disassembly listing of a compiled sini program.
`
}

func (*dumpCmd) SetFlags(f *flag.FlagSet) {}

func (*dumpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	p, err := program.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Decode error: %v\n", err)
		return subcommands.ExitFailure
	}

	listing, err := program.Disassemble(p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Disassemble error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprint(os.Stdout, listing)
	return subcommands.ExitSuccess
}
