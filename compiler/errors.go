package compiler

import "fmt"

// SemanticError is raised for a program that parses but is meaningless:
// an undefined name, a redefinition outside REPL mode, a break/continue
// outside a loop, and so on.
type SemanticError struct {
	Message string
}

func (e SemanticError) Error() string {
	return fmt.Sprintf("semantic error: %s", e.Message)
}

// DeveloperError signals a compiler-internal invariant violation - an
// opcode emitted with the wrong operand count, a purpose with no
// handler, and so on. Seeing one means this package has a bug, not the
// input program.
type DeveloperError struct {
	Message string
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("internal compiler error: %s", e.Message)
}
