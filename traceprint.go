package main

import (
	"fmt"
	"io"
	"strings"

	"sini/vm"
)

// printAbort renders a VM error the way the REPL and run command report
// a failed program: the abort message word-wrapped to the terminal
// width (long `abort("...")` messages and native error text can run
// well past 80 columns), followed by the stack trace AbortError.Error
// already formats one frame per line.
func printAbort(w io.Writer, err error) {
	ae, ok := err.(vm.AbortError)
	if !ok {
		fmt.Fprintf(w, "💥 %v\n", err)
		return
	}
	fmt.Fprintf(w, "💥 %s\n", wrapText(ae.Message, terminalWidth()))
	for i, f := range ae.Trace {
		if i >= 9 {
			fmt.Fprintln(w, "  ... (truncated)")
			break
		}
		if f.Command != "" {
			fmt.Fprintf(w, "  at %s", f.Command)
		} else {
			fmt.Fprint(w, "  at <anonymous>")
		}
		if f.Line != 0 || f.Chr != 0 {
			fmt.Fprintf(w, " (line %d, chr %d)", f.Line, f.Chr)
		}
		fmt.Fprintln(w)
	}
}

// wrapText greedily wraps s to width columns on word boundaries. width
// <= 0 disables wrapping (treated as unlimited).
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out strings.Builder
	for lineIdx, line := range strings.Split(s, "\n") {
		if lineIdx > 0 {
			out.WriteByte('\n')
		}
		col := 0
		for i, word := range strings.Fields(line) {
			if i > 0 {
				if col+1+len(word) > width {
					out.WriteByte('\n')
					col = 0
				} else {
					out.WriteByte(' ')
					col++
				}
			}
			out.WriteString(word)
			col += len(word)
		}
	}
	return out.String()
}
