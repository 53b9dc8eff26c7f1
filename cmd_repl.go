package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"sini/lexer"
	"sini/parser"
	"sini/program"
	"sini/vm"
)

// replCmd is the interactive REPL. This language has a single compiled
// execution path, and its parser/compiler already carry first-class
// REPL support (Parser.Feed/ErrNeedMoreInput, Compiler's repl-accumulate
// mode), so no hand-rolled brace-balance "is this ready yet" heuristic
// is needed here.
type replCmd struct {
	debug bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive sini REPL" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive REPL session.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.debug, "debug", false, "keep debug tables for richer abort traces")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		FuncGetWidth:    terminalWidth,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start readline: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stderr(), "Welcome to sini!")

	host := newStdioHost(os.Stdout, os.Stderr, os.Stdin)
	c, v := newRuntime(newFSResolver("."), host)

	var p *parser.Parser
	resetParser := func() {
		toks, _ := lexer.New("", 0).Scan()
		p = parser.New(toks, true)
	}
	resetParser()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				resetParser()
				continue
			}
			if errors.Is(err, io.EOF) {
				return subcommands.ExitSuccess
			}
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}
		if strings.TrimSpace(line) == "exit" {
			return subcommands.ExitSuccess
		}

		toks, lexErr := lexer.New(line+"\n", 0).Scan()
		if lexErr != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", lexErr)
			rl.SetPrompt(">>> ")
			resetParser()
			continue
		}
		p.Feed(toks)

		stmts, parseErr := p.Parse()
		if parseErr == parser.ErrNeedMoreInput {
			rl.SetPrompt("... ")
			continue
		}
		rl.SetPrompt(">>> ")
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", parseErr)
			resetParser()
			continue
		}
		if len(stmts) == 0 {
			continue
		}

		res, compileErr := c.Compile(stmts)
		if compileErr != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", compileErr)
			continue
		}

		encoded := program.Encode(program.Result(*res), r.debug)
		decoded, decodeErr := program.Decode(encoded)
		if decodeErr != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", decodeErr)
			continue
		}
		if validateErr := program.Validate(decoded); validateErr != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", validateErr)
			continue
		}
		v.SetProgram(decoded)

		status, runErr := v.Run(ctx, 0)
		switch status {
		case vm.StatusHalted:
			// nothing to print beyond what say/warn already wrote
		case vm.StatusNeedMoreInput:
			rl.SetPrompt("... ")
		default:
			if runErr != nil {
				printAbort(os.Stderr, runErr)
			} else {
				fmt.Fprintf(os.Stderr, "💥 run ended with status %v\n", status)
			}
		}
	}
}

// historyFilePath returns a best-effort location for REPL line history,
// empty if the home directory can't be determined (readline treats an
// empty HistoryFile as "don't persist history").
func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.sini_history"
}
