package vm

import (
	"fmt"
	"strings"
)

// AbortError is raised by `abort`, by a native call that fails, or by a
// runtime type error (e.g. indexing a number). It carries a formatted
// stack trace synthesized from the position/command-hint tables, up to
// nine frames deep (§4.6 "Error propagation").
type AbortError struct {
	Message string
	Trace   []TraceFrame
}

// TraceFrame is one entry in an AbortError's stack trace: the command
// name hint for the call site, and its source position if the program
// was compiled with debug tables.
type TraceFrame struct {
	Command string
	Line    int32
	Chr     int32
}

const maxTraceFrames = 9

func (e AbortError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i, f := range e.Trace {
		if i >= maxTraceFrames {
			b.WriteString("\n  ... (truncated)")
			break
		}
		if f.Command != "" {
			fmt.Fprintf(&b, "\n  at %s", f.Command)
		} else {
			fmt.Fprintf(&b, "\n  at <anonymous>")
		}
		if f.Line != 0 || f.Chr != 0 {
			fmt.Fprintf(&b, " (line %d, chr %d)", f.Line, f.Chr)
		}
	}
	return b.String()
}

// typeError reports an opcode receiving an operand of the wrong Kind.
func typeError(op string, got Value) error {
	return AbortError{Message: fmt.Sprintf("%s: unexpected %s operand", op, got.TypeName())}
}
