package program

import (
	"errors"
	"strings"
	"testing"

	"sini/compiler"
	"sini/lexer"
	"sini/parser"
)

func compile(t *testing.T, src string) *compiler.Result {
	t.Helper()
	toks, err := lexer.New(src, 0).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	res, err := compiler.New(false, nil).Compile(stmts)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return res
}

func TestEncodeDecodeRoundTripsWithDebugTables(t *testing.T) {
	res := compile(t, "def add(a, b)\n  return a + b\nend\nvar r = add(1, 2)\n")
	encoded := Encode(Result(*res), true)

	if encoded[0] != Magic[0] || encoded[1] != Magic[1] || encoded[2] != Magic[2] || encoded[3] != Magic[3] {
		t.Fatalf("encoded bytes do not start with the magic header")
	}
	if encoded[len(encoded)-1] != Terminator {
		t.Fatalf("encoded bytes do not end with the terminator byte")
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Code) != len(res.Code) {
		t.Fatalf("code length mismatch: got %d, want %d", len(decoded.Code), len(res.Code))
	}
	for i := range decoded.Code {
		if decoded.Code[i] != res.Code[i] {
			t.Fatalf("code byte %d mismatch: got %#x, want %#x", i, decoded.Code[i], res.Code[i])
		}
	}
	if !decoded.Debug {
		t.Fatalf("expected Debug to be true when positions/hints were encoded")
	}
	if len(decoded.Positions) == 0 {
		t.Fatalf("expected at least one position table entry for a call site")
	}
	if len(decoded.Hints) == 0 {
		t.Fatalf("expected at least one command-hint entry for the call to add()")
	}
	foundHint := false
	for _, h := range decoded.Hints {
		if decoded.DebugStrings[h.HintString] == "add" {
			foundHint = true
		}
	}
	if !foundHint {
		t.Fatalf("expected a command-hint entry naming 'add', got debug strings %v", decoded.DebugStrings)
	}
}

func TestEncodeOmitsDebugTablesWhenDebugFalse(t *testing.T) {
	res := compile(t, "def add(a, b)\n  return a + b\nend\nvar r = add(1, 2)\n")
	encoded := Encode(Result(*res), false)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Debug {
		t.Fatalf("Debug should be false when encoded without debug tables")
	}
	if len(decoded.Positions) != 0 || len(decoded.Hints) != 0 || len(decoded.DebugStrings) != 0 {
		t.Fatalf("debug tables should be empty, got positions=%d hints=%d debugStrings=%d",
			len(decoded.Positions), len(decoded.Hints), len(decoded.DebugStrings))
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	if err == nil {
		t.Fatalf("expected an error for bad magic")
	}
}

func TestDecodeRejectsMissingTerminator(t *testing.T) {
	res := compile(t, "var x = 1\n")
	encoded := Encode(Result(*res), false)
	encoded[len(encoded)-1] = 0x00
	_, err := Decode(encoded)
	if err == nil {
		t.Fatalf("expected an error for a corrupted terminator byte")
	}
}

func TestValidateAcceptsWellFormedProgram(t *testing.T) {
	res := compile(t, "def add(a, b)\n  return a + b\nend\nvar r = add(1, 2)\n")
	encoded := Encode(Result(*res), true)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := Validate(decoded); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsJumpTargetNotOnInstructionBoundary(t *testing.T) {
	res := compile(t, "if 1\n  var x = 1\nend\n")
	encoded := Encode(Result(*res), false)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Corrupt the first jump_if_false target (4 bytes right after its
	// opcode byte) to point one byte into the middle of an instruction.
	for i, op := range decoded.Code {
		if compiler.Opcode(op) == compiler.OpJumpIfFalse {
			decoded.Code[i+1] = decoded.Code[i+1] + 1
			break
		}
	}
	if err := Validate(decoded); err == nil {
		t.Fatalf("expected Validate to reject a misaligned jump target")
	}
}

func TestValidateRejectsUnknownNativeHash(t *testing.T) {
	// Build a minimal program by hand: a single call_native to a hash
	// that never appears in the key table.
	code := []byte{byte(opCallNativeForTest())}
	code = appendU64(code, 0xDEADBEEF)
	code = append(code, 0) // argc
	p := &Program{Code: code}
	if err := Validate(p); err == nil {
		t.Fatalf("expected Validate to reject a call_native to an undeclared hash")
	}
}

func opCallNativeForTest() compiler.Opcode { return compiler.OpCallNative }

func TestDisassembleAnnotatesConstantsAndCallHints(t *testing.T) {
	res := compile(t, "def add(a, b)\n  return a + b\nend\nvar r = add(1, 2)\n")
	encoded := Encode(Result(*res), true)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := Disassemble(decoded)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(out, "call add") {
		t.Fatalf("expected disassembly to annotate the call site with the command name, got:\n%s", out)
	}
}

func TestLoaderFeedsBinaryIncrementally(t *testing.T) {
	res := compile(t, "var x = 1\n")
	encoded := Encode(Result(*res), false)

	l := NewLoader(func() *compiler.Compiler { return compiler.New(false, nil) })
	// feed one byte at a time up to the last, expecting ErrNeedMoreInput throughout
	for i := 0; i < len(encoded)-1; i++ {
		if err := l.Feed(encoded[i : i+1]); !errors.Is(err, ErrNeedMoreInput) {
			t.Fatalf("byte %d: expected ErrNeedMoreInput, got %v", i, err)
		}
	}
	if err := l.Feed(encoded[len(encoded)-1:]); err != nil {
		t.Fatalf("final Feed: %v", err)
	}
	if !l.Done() {
		t.Fatalf("expected loader to report Done after the final byte")
	}
	if l.Program() == nil {
		t.Fatalf("expected a decoded Program after completion")
	}
}

func TestLoaderCompilesTextSource(t *testing.T) {
	l := NewLoader(func() *compiler.Compiler { return compiler.New(false, nil) })
	err := l.Feed([]byte("var x = 1\n"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !l.Done() || l.Program() == nil {
		t.Fatalf("expected the loader to compile a complete text program in one feed")
	}
}
