package vm

import (
	"context"
	"math"
	"testing"

	"sini/compiler"
	"sini/lexer"
	"sini/parser"
	"sini/program"
)

func compileProgram(t *testing.T, src string) *program.Program {
	t.Helper()
	toks, err := lexer.New(src, 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := compiler.New(false, nil).Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	encoded := program.Encode(program.Result(*res), true)
	decoded, err := program.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := program.Validate(decoded); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return decoded
}

func run(t *testing.T, v *VM) Status {
	t.Helper()
	status, err := v.Run(context.Background(), 0)
	if status == StatusFailed {
		t.Fatalf("run aborted: %v", err)
	}
	if err != nil {
		t.Fatalf("run returned error with status %s: %v", status, err)
	}
	return status
}

func TestArithmeticAndVariables(t *testing.T) {
	p := compileProgram(t, "var r = 1 + 2 * 3\n")
	v := New(p)
	if got := run(t, v); got != StatusHalted {
		t.Fatalf("status = %s, want halted", got)
	}
	if g := v.curFrame.slots[0]; g.Kind != KindNumber || g.Num != 7 {
		t.Fatalf("r = %+v, want 7", g)
	}
}

func TestStringConcat(t *testing.T) {
	p := compileProgram(t, "var r = 'ab' ~ 'cd'\n")
	v := New(p)
	run(t, v)
	if g := v.curFrame.slots[0]; g.Kind != KindString || g.Str != "abcd" {
		t.Fatalf("r = %+v, want \"abcd\"", g)
	}
}

func TestLocalCommandCallReturnsValue(t *testing.T) {
	p := compileProgram(t, "def add(a, b)\n  return a + b\nend\nvar r = add(1, 2)\n")
	v := New(p)
	run(t, v)
	if g := v.curFrame.slots[0]; g.Kind != KindNumber || g.Num != 3 {
		t.Fatalf("r = %+v, want 3", g)
	}
	if len(v.calls) != 0 {
		t.Fatalf("calls left open: %d", len(v.calls))
	}
}

func TestNonTailRecursionAccumulatesAndUnwindsCallRecords(t *testing.T) {
	src := "def fact(n)\n" +
		"  if n <= 1\n" +
		"    return 1\n" +
		"  end\n" +
		"  return n * fact(n - 1)\n" +
		"end\n" +
		"var r = fact(5)\n"
	p := compileProgram(t, src)
	v := New(p)
	run(t, v)
	if g := v.curFrame.slots[0]; g.Kind != KindNumber || g.Num != 120 {
		t.Fatalf("r = %+v, want 120", g)
	}
	if len(v.calls) != 0 {
		t.Fatalf("calls left open after return: %d", len(v.calls))
	}
}

func TestTailCallRecursionTerminatesWithoutGrowingCallStack(t *testing.T) {
	src := "def countdown(n)\n" +
		"  if n <= 0\n" +
		"    return n\n" +
		"  end\n" +
		"  return countdown(n - 1)\n" +
		"end\n" +
		"var r = countdown(5000)\n"
	p := compileProgram(t, src)
	v := New(p)
	run(t, v)
	if g := v.curFrame.slots[0]; g.Kind != KindNumber || g.Num != 0 {
		t.Fatalf("r = %+v, want 0", g)
	}
	// the outer var r = countdown(5000) call is the only non-tail call
	// on the books; every recursive step inside reused that one frame.
	if len(v.calls) != 0 {
		t.Fatalf("calls left open after return: %d", len(v.calls))
	}
}

func TestListIndexingAndMutation(t *testing.T) {
	p := compileProgram(t, "var xs = [1, 2, 3]\nxs[1] = 9\nvar y = xs[1]\nvar z = xs[0]\n")
	v := New(p)
	run(t, v)
	if g := v.curFrame.slots[1]; g.Kind != KindNumber || g.Num != 9 {
		t.Fatalf("y = %+v, want 9", g)
	}
	if g := v.curFrame.slots[2]; g.Kind != KindNumber || g.Num != 1 {
		t.Fatalf("z = %+v, want 1 (untouched)", g)
	}
}

func TestListIndexOutOfRangeReadsNil(t *testing.T) {
	p := compileProgram(t, "var xs = [1, 2, 3]\nvar a = xs[10]\nvar b = xs[-10]\n")
	v := New(p)
	run(t, v)
	if g := v.curFrame.slots[1]; g.Kind != KindNil {
		t.Fatalf("a = %+v, want nil", g)
	}
	if g := v.curFrame.slots[2]; g.Kind != KindNil {
		t.Fatalf("b = %+v, want nil", g)
	}
}

func TestListIndexOutOfRangeWriteExtendsWithNil(t *testing.T) {
	p := compileProgram(t, "var xs = [1, 2]\nxs[4] = 9\nvar a = xs[2]\nvar b = xs[3]\nvar c = xs[4]\n")
	v := New(p)
	run(t, v)
	if g := v.curFrame.slots[1]; g.Kind != KindNil {
		t.Fatalf("a = %+v, want nil", g)
	}
	if g := v.curFrame.slots[2]; g.Kind != KindNil {
		t.Fatalf("b = %+v, want nil", g)
	}
	if g := v.curFrame.slots[3]; g.Kind != KindNumber || g.Num != 9 {
		t.Fatalf("c = %+v, want 9", g)
	}
}

func TestNumericListBroadcast(t *testing.T) {
	p := compileProgram(t, "var xs = [1, 2, 3] + [10, 20]\n")
	v := New(p)
	run(t, v)
	g := v.curFrame.slots[0]
	if g.Kind != KindList {
		t.Fatalf("xs = %+v, want a list", g)
	}
	items := v.arena.get(g.List).items
	want := []float64{11, 22, 3}
	if len(items) != len(want) {
		t.Fatalf("len(xs) = %d, want %d", len(items), len(want))
	}
	for i, w := range want {
		if items[i].Num != w {
			t.Fatalf("xs[%d] = %v, want %v", i, items[i].Num, w)
		}
	}
}

func TestTypeErrorAborts(t *testing.T) {
	p := compileProgram(t, "var x = 1 + 'a'\n")
	v := New(p)
	status, err := v.Run(context.Background(), 0)
	if status != StatusFailed {
		t.Fatalf("status = %s, want failed", status)
	}
	if _, ok := err.(AbortError); !ok {
		t.Fatalf("err = %T, want AbortError", err)
	}
}

func TestFailedRunLatchesAndShortCircuitsFurtherRuns(t *testing.T) {
	p := compileProgram(t, "var x = 1 + 'a'\n")
	v := New(p)
	first, _ := v.Run(context.Background(), 0)
	if first != StatusFailed {
		t.Fatalf("first status = %s, want failed", first)
	}
	second, err := v.Run(context.Background(), 0)
	if second != StatusFailed {
		t.Fatalf("second status = %s, want failed", second)
	}
	if _, ok := err.(AbortError); !ok {
		t.Fatalf("second err = %T, want AbortError", err)
	}
}

func TestBudgetExhaustionReturnsTimeoutAndResumes(t *testing.T) {
	p := compileProgram(t, "var r = 1 + 2 + 3 + 4 + 5\n")
	v := New(p)
	status, err := v.Run(context.Background(), 1)
	if status != StatusTimeout || err != nil {
		t.Fatalf("status = %s, err = %v, want timeout/nil", status, err)
	}
	// resuming with a generous budget finishes the program from where
	// it left off.
	final := run(t, v)
	if final != StatusHalted {
		t.Fatalf("status = %s, want halted", final)
	}
	if g := v.curFrame.slots[0]; g.Kind != KindNumber || g.Num != 15 {
		t.Fatalf("r = %+v, want 15", g)
	}
}

func TestNativeCallInvokesRegisteredCallback(t *testing.T) {
	c := compiler.New(false, nil)
	c.DeclareNative("double", 0xD0, true)
	toks, err := lexer.New("var r = double(21)\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := c.Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	encoded := program.Encode(program.Result(*res), true)
	p, err := program.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := program.Validate(p); err != nil {
		t.Fatalf("validate: %v", err)
	}

	v := New(p)
	v.RegisterNative(0xD0, func(vm *VM, ctx context.Context, args []Value) (Value, error) {
		return Number(args[0].Num * 2), nil
	})
	run(t, v)
	if g := v.curFrame.slots[0]; g.Kind != KindNumber || g.Num != 42 {
		t.Fatalf("r = %+v, want 42", g)
	}
}

// A call_local/tail_call whose target is still the REPL placeholder
// (not yet patched because the callee hasn't been compiled in this
// input chunk) must surface as "need more input" rather than crash.
func TestUnresolvedCallTargetReturnsNeedMoreInput(t *testing.T) {
	code := []byte{byte(compiler.OpPushNum)}
	code = appendFloatBits(code, 1)
	code = append(code, byte(compiler.OpPushNum))
	code = appendFloatBits(code, 2)
	code = append(code, byte(compiler.OpCallLocal))
	code = append(code, 0xFF, 0xFF, 0xFF, 0xFF, 2)
	code = append(code, byte(compiler.OpHalt))

	p := &program.Program{Code: code}
	v := New(p)
	status, err := v.Run(context.Background(), 0)
	if status != StatusNeedMoreInput {
		t.Fatalf("status = %s, want replmore", status)
	}
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
}

func appendFloatBits(buf []byte, f float64) []byte {
	bits := math.Float64bits(f)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return append(buf, out...)
}
