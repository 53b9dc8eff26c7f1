package parser

import "fmt"

// SyntaxError is raised for malformed input. The parser does not attempt
// recovery past statement boundaries (§4.2 error model).
type SyntaxError struct {
	Pos     string
	Message string
}

func newSyntaxError(pos fmt.Stringer, message string) SyntaxError {
	return SyntaxError{Pos: pos.String(), Message: message}
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Message)
}

// ErrNeedMoreInput is a sentinel returned by Parse when running in REPL
// mode and the token stream ends mid-construction - the caller should
// read another line and Feed it in (§4.2 "requests more input").
var ErrNeedMoreInput = fmt.Errorf("need more input")
