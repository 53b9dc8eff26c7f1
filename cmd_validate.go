package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"sini/program"
)

// validateCmd decodes a .sic file and runs it through §4.5's two-pass
// validator without executing it, reporting pass/fail the way a host
// streaming in an untrusted compiled program would check it before
// ever handing it to a VM.
type validateCmd struct{}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "Validate a .sic binary program without running it" }
func (*validateCmd) Usage() string {
	return `validate <file.sic>:
  Decode and validate a compiled sini program, reporting pass or fail.
`
}

func (*validateCmd) SetFlags(f *flag.FlagSet) {}

func (*validateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
		fmt.Fprintf(os.Stdout, "FAIL: decode error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := program.Validate(p); err != nil {
		fmt.Fprintf(os.Stdout, "FAIL: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(os.Stdout, "OK")
	return subcommands.ExitSuccess
}
