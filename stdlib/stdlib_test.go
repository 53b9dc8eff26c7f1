package stdlib

import (
	"context"
	"strings"
	"testing"

	"sini/compiler"
	"sini/lexer"
	"sini/parser"
	"sini/program"
	"sini/vm"
)

// runWith compiles src against a compiler that already has the full
// standard library declared, links it into a fresh VM carrying the
// same registered callbacks, and runs it to completion.
func runWith(t *testing.T, host Host, src string) *vm.VM {
	t.Helper()
	c := compiler.New(false, nil)
	rt := vm.New(&program.Program{})
	Register(c, rt, host, NewPRNG(1))

	toks, err := lexer.New(src, 0).Scan()
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
	rt.SetProgram(p)

	status, err := rt.Run(context.Background(), 0)
	if status != vm.StatusHalted {
		t.Fatalf("run: status = %s, err = %v", status, err)
	}
	return rt
}

func num(t *testing.T, v *vm.VM, slot int) float64 {
	t.Helper()
	g := v.CurFrameSlot(slot)
	if g.Kind != vm.KindNumber {
		t.Fatalf("slot %d = %+v, want number", slot, g)
	}
	return g.Num
}

func str(t *testing.T, v *vm.VM, slot int) string {
	t.Helper()
	g := v.CurFrameSlot(slot)
	if g.Kind != vm.KindString {
		t.Fatalf("slot %d = %+v, want string", slot, g)
	}
	return g.Str
}

func TestNumericGroup(t *testing.T) {
	v := runWith(t, nil, "var a = num.abs(-3)\nvar b = num.max(1, 9, 4)\nvar c = num.clamp(10, 0, 5)\n")
	if num(t, v, 0) != 3 {
		t.Fatalf("num.abs(-3) = %v, want 3", num(t, v, 0))
	}
	if num(t, v, 1) != 9 {
		t.Fatalf("num.max = %v, want 9", num(t, v, 1))
	}
	if num(t, v, 2) != 5 {
		t.Fatalf("num.clamp = %v, want 5", num(t, v, 2))
	}
}

func TestIntegerGroupWraps32Bits(t *testing.T) {
	v := runWith(t, nil, "var a = int.add(4294967295, 1)\nvar b = int.div(10, 0)\n")
	if num(t, v, 0) != 0 {
		t.Fatalf("int.add wraparound = %v, want 0", num(t, v, 0))
	}
	if num(t, v, 1) != 0 {
		t.Fatalf("int.div by zero = %v, want 0", num(t, v, 1))
	}
}

func TestStringGroup(t *testing.T) {
	v := runWith(t, nil, "var a = str.upper('hi')\nvar b = str.rev('abc')\nvar c = str.split('a,b,c', ',')\n")
	if str(t, v, 0) != "HI" {
		t.Fatalf("str.upper = %q", str(t, v, 0))
	}
	if str(t, v, 1) != "cba" {
		t.Fatalf("str.rev = %q", str(t, v, 1))
	}
	items, ok := v.ListItems(v.CurFrameSlot(2))
	if !ok || len(items) != 3 || items[0].Str != "a" || items[2].Str != "c" {
		t.Fatalf("str.split = %+v", items)
	}
}

func TestUTF8GroupRejectsSurrogates(t *testing.T) {
	v := runWith(t, nil, "var a = utf8.valid('abc')\nvar b = utf8.list('ab')\n")
	if num(t, v, 0) != 1 {
		t.Fatalf("utf8.valid('abc') = %v, want true", num(t, v, 0))
	}
	items, ok := v.ListItems(v.CurFrameSlot(1))
	if !ok || len(items) != 2 || items[0].Str != "a" || items[1].Str != "b" {
		t.Fatalf("utf8.list = %+v", items)
	}
	if !validUTF8("abc") {
		t.Fatalf("validUTF8 rejected a plain ASCII string")
	}
	if validUTF8(string([]byte{0xED, 0xA0, 0x80})) {
		t.Fatalf("validUTF8 accepted an encoded surrogate half")
	}
}

func TestStructRoundTrip(t *testing.T) {
	v := runWith(t, nil,
		"var fmt = ['U8', 'UL16', 'F32']\n"+
			"var packed = struct.str(fmt, [7, 300, 1.5])\n"+
			"var back = struct.list(fmt, packed)\n"+
			"var size = struct.size(fmt)\n")
	items, ok := v.ListItems(v.CurFrameSlot(2))
	if !ok || len(items) != 3 {
		t.Fatalf("struct.list result = %+v", items)
	}
	if items[0].Num != 7 || items[1].Num != 300 {
		t.Fatalf("struct round trip = %+v, want [7 300 1.5]", items)
	}
	if diff := items[2].Num - 1.5; diff > 1e-5 || diff < -1e-5 {
		t.Fatalf("struct float round trip = %v, want ~1.5", items[2].Num)
	}
	if num(t, v, 3) != 7 {
		t.Fatalf("struct.size = %v, want 7 (1+2+4)", num(t, v, 3))
	}
}

func TestListGroup(t *testing.T) {
	v := runWith(t, nil,
		"var xs = [1, 2, 3]\n"+
			"var popped = list.pop(xs)\n"+
			"list.push(xs, 9)\n"+
			"var found = list.find(xs, 9)\n"+
			"var joined = list.join(xs, '-')\n")
	if num(t, v, 1) != 3 {
		t.Fatalf("list.pop = %v, want 3", num(t, v, 1))
	}
	if num(t, v, 2) != 2 {
		t.Fatalf("list.find(9) = %v, want index 2", num(t, v, 2))
	}
	if str(t, v, 3) != "1-2-9" {
		t.Fatalf("list.join = %q, want \"1-2-9\"", str(t, v, 3))
	}
}

func TestListSortOrdersNumbersAscendingAndDescending(t *testing.T) {
	v := runWith(t, nil,
		"var a = [3, 1, 2]\n"+
			"list.sort(a)\n"+
			"var b = [3, 1, 2]\n"+
			"list.rsort(b)\n")
	a, _ := v.ListItems(v.CurFrameSlot(0))
	b, _ := v.ListItems(v.CurFrameSlot(1))
	want := []float64{1, 2, 3}
	for i, w := range want {
		if a[i].Num != w {
			t.Fatalf("sorted[%d] = %v, want %v", i, a[i].Num, w)
		}
	}
	wantDesc := []float64{3, 2, 1}
	for i, w := range wantDesc {
		if b[i].Num != w {
			t.Fatalf("rsorted[%d] = %v, want %v", i, b[i].Num, w)
		}
	}
}

func TestPickleBinRoundTripsSharedAndCircularLists(t *testing.T) {
	v := runWith(t, nil,
		"var inner = [1, 2]\n"+
			"var outer = [inner, inner, 'x']\n"+
			"var packed = pickle.bin(outer)\n"+
			"var back = pickle.val(packed)\n"+
			"var same = pickle.sibling(back[0], back[1])\n")
	if num(t, v, 4) != 1 {
		t.Fatalf("pickle round trip lost sibling sharing: same = %v", num(t, v, 4))
	}
	back, _ := v.ListItems(v.CurFrameSlot(3))
	if len(back) != 3 || back[2].Str != "x" {
		t.Fatalf("pickle round trip = %+v", back)
	}
}

func TestPickleJSONAbortsOnCircularList(t *testing.T) {
	c := compiler.New(false, nil)
	rt := vm.New(&program.Program{})
	Register(c, rt, nil, NewPRNG(1))
	self := rt.NewList(nil)
	rt.SetListItems(self, []vm.Value{self})
	if !pickleIsCircular(rt, self, map[vm.ListHandle]bool{}) {
		t.Fatalf("pickleIsCircular missed a direct self-reference")
	}
	var b strings.Builder
	if err := pickleJSON(rt, self, &b, map[vm.ListHandle]bool{}); err == nil {
		t.Fatalf("pickleJSON on a circular list did not abort")
	}
}

func TestRandGroupIsReproducibleFromSeed(t *testing.T) {
	c1 := compiler.New(false, nil)
	rt1 := vm.New(&program.Program{})
	Register(c1, rt1, nil, NewPRNG(42))
	c2 := compiler.New(false, nil)
	rt2 := vm.New(&program.Program{})
	Register(c2, rt2, nil, NewPRNG(42))

	src := "var a = rand.int(100)\nvar b = rand.int(100)\n"
	runSrc := func(c *compiler.Compiler, rt *vm.VM) {
		toks, _ := lexer.New(src, 0).Scan()
		stmts, _ := parser.New(toks, false).Parse()
		res, err := c.Compile(stmts)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		p, err := program.Decode(program.Encode(program.Result(*res), true))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if err := program.Validate(p); err != nil {
			t.Fatalf("validate: %v", err)
		}
		rt.SetProgram(p)
		if status, err := rt.Run(context.Background(), 0); status != vm.StatusHalted {
			t.Fatalf("run: %s, %v", status, err)
		}
	}
	runSrc(c1, rt1)
	runSrc(c2, rt2)
	if num(t, rt1, 0) != num(t, rt2, 0) || num(t, rt1, 1) != num(t, rt2, 1) {
		t.Fatalf("same seed produced different sequences")
	}
}

type recordingHost struct {
	said []string
}

func (h *recordingHost) Say(ctx context.Context, text string) error {
	h.said = append(h.said, text)
	return nil
}
func (h *recordingHost) Warn(ctx context.Context, text string) error { return nil }
func (h *recordingHost) Ask(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func TestSayCallsHost(t *testing.T) {
	h := &recordingHost{}
	runWith(t, h, "say('hello ' ~ 5)\n")
	if len(h.said) != 1 || h.said[0] != "hello 5" {
		t.Fatalf("host.Say calls = %+v", h.said)
	}
}

func TestUniversalPredicatesAndOrder(t *testing.T) {
	v := runWith(t, nil,
		"var a = isnum(1)\nvar b = isstr('x')\nvar c = islist([1])\nvar d = order(1, 2)\nvar e = order('b', 'a')\n")
	if num(t, v, 0) != 1 || num(t, v, 1) != 1 || num(t, v, 2) != 1 {
		t.Fatalf("type predicates failed: %v %v %v", num(t, v, 0), num(t, v, 1), num(t, v, 2))
	}
	if num(t, v, 3) != -1 {
		t.Fatalf("order(1,2) = %v, want -1", num(t, v, 3))
	}
	if num(t, v, 4) != 1 {
		t.Fatalf("order('b','a') = %v, want 1", num(t, v, 4))
	}
}

func TestRangeBuildsAList(t *testing.T) {
	v := runWith(t, nil, "var xs = range(0, 5)\n")
	items, ok := v.ListItems(v.CurFrameSlot(0))
	if !ok || len(items) != 5 {
		t.Fatalf("range(0,5) = %+v", items)
	}
	for i, it := range items {
		if it.Num != float64(i) {
			t.Fatalf("range[%d] = %v, want %v", i, it.Num, i)
		}
	}
}

func TestAbortCarriesMessage(t *testing.T) {
	c := compiler.New(false, nil)
	rt := vm.New(&program.Program{})
	Register(c, rt, nil, NewPRNG(1))
	toks, _ := lexer.New("abort('boom')\n", 0).Scan()
	stmts, _ := parser.New(toks, false).Parse()
	res, err := c.Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	p, err := program.Decode(program.Encode(program.Result(*res), true))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := program.Validate(p); err != nil {
		t.Fatalf("validate: %v", err)
	}
	rt.SetProgram(p)
	status, runErr := rt.Run(context.Background(), 0)
	if status != vm.StatusFailed {
		t.Fatalf("status = %s, want failed", status)
	}
	ae, ok := runErr.(vm.AbortError)
	if !ok || ae.Message != "boom" {
		t.Fatalf("err = %+v, want AbortError{Message: \"boom\"}", runErr)
	}
}

func TestStrHashMatchesMurmur3x64_128ZeroVector(t *testing.T) {
	// MurmurHash3_x64_128 of an empty input with seed 0 is the all-zero
	// digest (no blocks, no tail, and fmix64(0) == 0), a reference
	// vector any conformant implementation reproduces exactly.
	got := StrHash("", 0)
	want := [4]uint32{0, 0, 0, 0}
	if got != want {
		t.Fatalf("StrHash(\"\", 0) = %v, want %v", got, want)
	}
}

func TestStrHashLiteralCallProducesFourWordList(t *testing.T) {
	v := runWith(t, nil, "var h = str.hash(\"\", 0)\n")
	items, ok := v.ListItems(v.CurFrameSlot(0))
	if !ok || len(items) != 4 {
		t.Fatalf("str.hash(\"\", 0) = %+v, want a 4-element list", items)
	}
	for i, item := range items {
		if item.Kind != vm.KindNumber || item.Num != 0 {
			t.Fatalf("h[%d] = %+v, want 0", i, item)
		}
	}
}

func TestAutoNativeForwardReferenceResolvesAtRuntime(t *testing.T) {
	c := compiler.New(false, nil)
	rt := vm.New(&program.Program{})
	Register(c, rt, nil, NewPRNG(1))

	toks, err := lexer.New("var g = plugin.greet(\"ada\")\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	stmts, err := parser.New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := c.Compile(stmts)
	if err != nil {
		t.Fatalf("compile a call to an undeclared command: %v", err)
	}

	// The host only learns about "plugin.greet" after compilation -
	// exactly the forward reference §6's auto-natives are for.
	RegisterAutoNative(rt, "plugin.greet", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return vm.String("hi " + args[0].Str), nil
	})

	encoded := program.Encode(program.Result(*res), true)
	p, err := program.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := program.Validate(p); err != nil {
		t.Fatalf("validate: %v", err)
	}
	rt.SetProgram(p)

	status, err := rt.Run(context.Background(), 0)
	if status != vm.StatusHalted {
		t.Fatalf("run: status = %s, err = %v", status, err)
	}
	if got := str(t, rt, 0); got != "hi ada" {
		t.Fatalf("plugin.greet result = %q, want %q", got, "hi ada")
	}
}
