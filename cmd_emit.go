package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"sini/program"
)

// buildCmd compiles a source file to a .sic binary program, following
// §4.5's binary layout.
type buildCmd struct {
	debug      bool
	disasm     bool
	outputPath string
}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "Compile a sini source file to a .sic binary program" }
func (*buildCmd) Usage() string {
	return `build <file>:
  Compile a sini source file and write a .sic binary program.
`
}

func (cmd *buildCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.debug, "debug", true, "include debug tables (positions, command hints) in the output")
	f.BoolVar(&cmd.disasm, "disassemble", false, "also print a disassembly listing to stdout")
	f.StringVar(&cmd.outputPath, "out", "", "output path for the .sic file (defaults to the input file with a .sic extension)")
}

func (cmd *buildCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	sourceFile := args[0]

	data, err := os.ReadFile(sourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	c, _ := newRuntime(newFSResolver(sourceFile), nil)
	p, encoded, err := compileFile(c, string(data), cmd.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}

	out := cmd.outputPath
	if out == "" {
		out = strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".sic"
	}
	if err := os.WriteFile(out, encoded, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to write %s: %v\n", out, err)
		return subcommands.ExitFailure
	}

	if cmd.disasm {
		listing, err := program.Disassemble(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 Disassemble error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprint(os.Stdout, listing)
	}

	return subcommands.ExitSuccess
}
