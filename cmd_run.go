package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"sini/vm"
)

// runCmd compiles a source file and executes it to completion: the
// sole "run a program" entry point, since the language has one
// execution model (compile to bytecode, run on the stack VM).
type runCmd struct {
	debug bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and execute a sini source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and execute a sini source file.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.debug, "debug", false, "keep debug tables (positions, command hints) for richer abort traces")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	host := newStdioHost(os.Stdout, os.Stderr, os.Stdin)
	c, v := newRuntime(newFSResolver(filename), host)

	p, _, err := compileFile(c, string(data), r.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}
	v.SetProgram(p)

	status, runErr := v.Run(ctx, 0)
	if status == vm.StatusHalted {
		return subcommands.ExitSuccess
	}
	if runErr != nil {
		printAbort(os.Stderr, runErr)
	} else {
		fmt.Fprintf(os.Stderr, "💥 run ended with status %v\n", status)
	}
	return subcommands.ExitFailure
}
