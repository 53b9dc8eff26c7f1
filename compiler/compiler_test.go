package compiler

import (
	"math"
	"testing"

	"sini/lexer"
	"sini/parser"
)

type instr struct {
	op       Opcode
	operands []uint64
}

// disasm walks a compiled code stream back into its opcode/operand
// shape, using the same width table the emitter wrote it with.
func disasm(t *testing.T, code []byte) []instr {
	t.Helper()
	var out []instr
	i := 0
	for i < len(code) {
		op := Opcode(code[i])
		info, err := infoFor(op)
		if err != nil {
			t.Fatalf("disasm: %v at byte %d", err, i)
		}
		i++
		var operands []uint64
		for _, w := range info.Widths {
			var v uint64
			for b := 0; b < w; b++ {
				v |= uint64(code[i+b]) << (8 * b)
			}
			operands = append(operands, v)
			i += w
		}
		out = append(out, instr{op, operands})
	}
	return out
}

func opsOf(instrs []instr) []Opcode {
	out := make([]Opcode, len(instrs))
	for i, in := range instrs {
		out[i] = in.op
	}
	return out
}

func assertOps(t *testing.T, instrs []instr, want ...Opcode) {
	t.Helper()
	got := opsOf(instrs)
	if len(got) != len(want) {
		t.Fatalf("op count mismatch: got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("op[%d]: got %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func compileSrc(t *testing.T, src string) *Result {
	t.Helper()
	toks, err := lexer.New(src, 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := New(false, nil).Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return res
}

func compileSrcErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.New(src, 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = New(false, nil).Compile(stmts)
	return err
}

func TestVarDeclarationUsesGetAndSetVar(t *testing.T) {
	res := compileSrc(t, "var x = 1\nvar y = x + 2\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs,
		OpPushNum, OpSetVar, // var x = 1
		OpGetVar, OpPushNum, OpAdd, OpSetVar, // var y = x + 2
	)
}

func TestIfElseBranchesBothPatched(t *testing.T) {
	res := compileSrc(t, "var x = 1\nif x\n  var y = 2\nelse\n  var y = 3\nend\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs,
		OpPushNum, OpSetVar, // var x = 1
		OpGetVar,             // cond x
		OpJumpIfFalse,
		OpPushNum, OpSetVar, // then branch
		OpJump,
		OpPushNum, OpSetVar, // else branch
	)
	// the false-jump must land at the else branch's first instruction,
	// and the unconditional jump must land past it (end of chain).
	falseJump := instrs[3]
	elseBranchPC := 0
	for i := 0; i < 7; i++ {
		elseBranchPC += opWidth(t, instrs[i])
	}
	if falseJump.operands[0] != uint64(elseBranchPC) {
		t.Fatalf("jump_if_false target = %d, want %d", falseJump.operands[0], elseBranchPC)
	}
}

func opWidth(t *testing.T, in instr) int {
	info, err := infoFor(in.op)
	if err != nil {
		t.Fatal(err)
	}
	w := 1
	for _, x := range info.Widths {
		w += x
	}
	return w
}

func TestLoopBreakJumpsPastLoopEnd(t *testing.T) {
	res := compileSrc(t, "loop\n  break\nend\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpJump, OpJump)
	// break's jump must land after the loop-end jump (index 1), i.e. at
	// the very end of the program.
	if instrs[0].operands[0] != uint64(len(res.Code)) {
		t.Fatalf("break target = %d, want %d (end of program)", instrs[0].operands[0], len(res.Code))
	}
	// the loop-end jump goes back to pc 0 (the loop's top).
	if instrs[1].operands[0] != 0 {
		t.Fatalf("loop-end jump target = %d, want 0", instrs[1].operands[0])
	}
}

func TestForLoopOverListIteratesWithIndexAndSizeCheck(t *testing.T) {
	res := compileSrc(t, "for v : [1, 2, 3]\n  var y = v\nend\n")
	instrs := disasm(t, res.Code)
	ops := opsOf(instrs)
	mustContain := []Opcode{OpMakeList, OpListSize, OpLess, OpJumpIfFalse, OpIndexGet, OpAdd, OpJump}
	for _, want := range mustContain {
		found := false
		for _, got := range ops {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %s in compiled for-loop, got %v", want, ops)
		}
	}
}

func TestDoWhileMidExitsOnFalseCondition(t *testing.T) {
	res := compileSrc(t, "var i = 0\ndo\n  i += 1\nwhile i < 3\nend\n")
	instrs := disasm(t, res.Code)
	ops := opsOf(instrs)
	foundWhile := false
	for i, op := range ops {
		if op == OpLess {
			if ops[i+1] != OpJumpIfFalse {
				t.Fatalf("expected jump_if_false right after the while condition, got %s", ops[i+1])
			}
			foundWhile = true
		}
	}
	if !foundWhile {
		t.Fatalf("expected a less comparison for the while condition, got %v", ops)
	}
}

func TestDefAndCallLocalCommand(t *testing.T) {
	res := compileSrc(t, "def add(a, b)\n  return a + b\nend\nvar r = add(1, 2)\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs,
		OpJump, // jump over the body
		OpCmdHead,
		OpGetVar, OpGetVar, OpAdd, OpReturn, OpReturnNil, // body
		OpPushNum, OpPushNum, OpCallLocal, OpSetVar, // call site
	)
	// the jump-over must land on the call site's first instruction, and
	// the call target must point at the command's cmd_head.
	jumpOver := instrs[0].operands[0]
	callSitePC := 0
	for i := 0; i < 7; i++ {
		callSitePC += opWidth(t, instrs[i])
	}
	if jumpOver != uint64(callSitePC) {
		t.Fatalf("jump-over target %d, want %d (call site)", jumpOver, callSitePC)
	}
	callTarget := instrs[9].operands[0]
	if callTarget != uint64(opWidth(t, instrs[0])) {
		t.Fatalf("call_local target %d, want %d (cmd_head)", callTarget, opWidth(t, instrs[0]))
	}
}

func TestReturnDetectsTailCall(t *testing.T) {
	res := compileSrc(t, "def f(n)\n  return f(n)\nend\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs,
		OpJump,
		OpCmdHead,
		OpGetVar, OpTailCall, OpReturnNil,
	)
}

func TestPickLowersToConditionalWithoutEvaluatingBothBranches(t *testing.T) {
	res := compileSrc(t, "var x = pick(1, 2, 3)\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs,
		OpPushNum, OpJumpIfFalse, OpPushNum, OpJump, OpPushNum, OpSetVar,
	)
}

func TestEnumValuesFoldAtCompileTime(t *testing.T) {
	res := compileSrc(t, "enum\n  RED\n  GREEN\n  BLUE: 10\nend\nvar c = GREEN\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpPushNum, OpSetVar)
	got := float64From(instrs[0].operands[0])
	if got != 1 {
		t.Fatalf("GREEN folded to %v, want 1", got)
	}
}

func TestShortCircuitAndOrSkipSecondOperand(t *testing.T) {
	res := compileSrc(t, "var x = 1 && 2\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpPushNum, OpDup, OpJumpIfFalse, OpPop, OpPushNum, OpSetVar)
}

func TestGreaterThanSynthesizedByOperandSwap(t *testing.T) {
	res := compileSrc(t, "var a = 1\nvar b = a > 2\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs,
		OpPushNum, OpSetVar, // var a = 1
		OpPushNum, OpGetVar, OpLess, OpSetVar, // a > 2 => 2 < a
	)
}

func TestCompoundAssignmentReadsModifiesAndStores(t *testing.T) {
	res := compileSrc(t, "var x = 1\nx += 2\n")
	instrs := disasm(t, res.Code)
	assertOps(t, instrs,
		OpPushNum, OpSetVar, // var x = 1
		OpGetVar, OpPushNum, OpAdd, OpDup, OpSetVar, OpPop, // x += 2 as a statement
	)
}

func TestDestructuringVarSplitsListIntoSlots(t *testing.T) {
	res := compileSrc(t, "var a, b, ...rest = [1, 2, 3, 4]\n")
	instrs := disasm(t, res.Code)
	ops := opsOf(instrs)
	mustContain := []Opcode{OpMakeList, OpSetVar, OpIndexGet, OpSliceGet}
	for _, want := range mustContain {
		found := false
		for _, got := range ops {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s in destructuring var, got %v", want, ops)
		}
	}
}

func TestUndefinedNameIsSemanticError(t *testing.T) {
	err := compileSrcErr(t, "var x = y\n")
	if err == nil {
		t.Fatal("expected an error referencing an undefined name")
	}
	if _, ok := err.(SemanticError); !ok {
		t.Fatalf("expected a SemanticError, got %T: %v", err, err)
	}
}

func TestBreakOutsideLoopIsSemanticError(t *testing.T) {
	err := compileSrcErr(t, "break\n")
	if err == nil {
		t.Fatal("expected an error for break outside a loop")
	}
}

func TestRedefinitionOutsideREPLIsError(t *testing.T) {
	err := compileSrcErr(t, "var x = 1\nvar x = 2\n")
	if err == nil {
		t.Fatal("expected an error redefining 'x' outside REPL mode")
	}
}

func TestEmbedRequiresLiteralPath(t *testing.T) {
	err := compileSrcErr(t, "var p = \"f\"\nvar x = embed(p)\n")
	if err == nil {
		t.Fatal("expected an error for a non-literal embed() argument")
	}
}

func TestUndefinedCommandIsSemanticErrorByDefault(t *testing.T) {
	err := compileSrcErr(t, "plugin.greet(\"hi\")\n")
	if err == nil {
		t.Fatal("expected an error calling an undeclared command")
	}
	if _, ok := err.(SemanticError); !ok {
		t.Fatalf("expected a SemanticError, got %T: %v", err, err)
	}
}

func TestUndeclaredCommandFallsBackToAutoNativeHash(t *testing.T) {
	toks, err := lexer.New("plugin.greet(\"hi\", 3)\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := New(false, nil)
	c.SetAutoNativeHashFunc(func(name string) uint64 {
		if name != "plugin.greet" {
			t.Fatalf("hash func called with %q, want \"plugin.greet\"", name)
		}
		return 0xDEADBEEF
	})
	res, err := c.Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpPushStr, OpPushNum, OpCallNative, OpPop)
	if instrs[2].operands[0] != 0xDEADBEEF {
		t.Fatalf("call native hash = %#x, want %#x", instrs[2].operands[0], 0xDEADBEEF)
	}
	if instrs[2].operands[1] != 2 {
		t.Fatalf("call native argc = %d, want 2", instrs[2].operands[1])
	}
}

func TestIsNativeReflectsInstalledCallback(t *testing.T) {
	toks, err := lexer.New("var x = isnative(\"say\")\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := New(false, nil)
	c.DeclareNative("say", 0xABCDEF, true)
	res, err := c.Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpPushNum, OpSetVar)
	if float64From(instrs[0].operands[0]) != 1 {
		t.Fatalf("isnative(\"say\") folded to %v, want 1", float64From(instrs[0].operands[0]))
	}
}

func TestStrHashFoldsToFourElementList(t *testing.T) {
	toks, err := lexer.New("var x = str.hash(\"a\", 7)\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := New(false, nil)
	c.SetHashFunc(func(s string, seed int64) [4]uint32 {
		if s != "a" || seed != 7 {
			t.Fatalf("hash func called with (%q, %d), want (\"a\", 7)", s, seed)
		}
		return [4]uint32{10, 20, 30, 40}
	})
	res, err := c.Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpPushNum, OpPushNum, OpPushNum, OpPushNum, OpMakeList, OpSetVar)
	want := []float64{10, 20, 30, 40}
	for i, w := range want {
		if got := float64From(instrs[i].operands[0]); got != w {
			t.Fatalf("word[%d] = %v, want %v", i, got, w)
		}
	}
	if instrs[4].operands[0] != 4 {
		t.Fatalf("make_list count = %d, want 4", instrs[4].operands[0])
	}
}

func TestNamespaceQualifiesAndUsingBringsIntoScope(t *testing.T) {
	src := "namespace geo\n  enum\n    CIRCLE\n    SQUARE\n  end\nend\nusing geo\nvar shape = SQUARE\n"
	res := compileSrc(t, src)
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpPushNum, OpSetVar)
	if float64From(instrs[0].operands[0]) != 1 {
		t.Fatalf("geo.SQUARE folded to %v, want 1", float64From(instrs[0].operands[0]))
	}
}

type mapResolver map[string]string

func (m mapResolver) Resolve(path string) (string, error) {
	return m[path], nil
}

func TestIncludeCompilesFileInline(t *testing.T) {
	toks, err := lexer.New("include \"helpers.sini\"\nvar total = helper\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	resolver := mapResolver{"helpers.sini": "enum\n  helper\nend\n"}
	res, err := New(false, resolver).Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	instrs := disasm(t, res.Code)
	assertOps(t, instrs, OpPushNum, OpSetVar)
}

func float64From(bits uint64) float64 {
	return math.Float64frombits(bits)
}
