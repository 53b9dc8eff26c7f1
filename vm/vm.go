package vm

import (
	"context"
	"math"

	"sini/compiler"
	"sini/program"
)

// Status is what Run returns when it stops: halted normally, failed on
// an abort, ran out of its tick budget, or (REPL mode only) reached a
// call whose target has not been compiled yet (§4.6).
type Status int

const (
	StatusHalted Status = iota
	StatusFailed
	StatusTimeout
	StatusNeedMoreInput
)

func (s Status) String() string {
	switch s {
	case StatusHalted:
		return "halted"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	case StatusNeedMoreInput:
		return "replmore"
	default:
		return "?"
	}
}

// VM is a stack-based interpreter for one compiled program (§4.6). Its
// state - pc, operand stack, call records, lexical-frame chains -
// persists across Run calls, so a timeout return can simply be resumed
// by calling Run again with a fresh budget.
type VM struct {
	prog *program.Program

	stack Stack
	arena arena

	calls    []callRecord
	chains   [][]*frame
	curFrame *frame
	curDepth int

	pendingCall *pendingCall

	natives map[uint64]NativeFunc

	pc uint32

	failed  bool
	failErr error
}

// New creates a VM ready to execute p from its first instruction. The
// top-level program runs in depth-0's ever-present frame, the same one
// a `def` at the outermost nesting level addresses via frame-delta 1.
func New(p *program.Program) *VM {
	root := &frame{}
	return &VM{
		prog:     p,
		curFrame: root,
		curDepth: 0,
		chains:   [][]*frame{{root}},
		natives:  make(map[uint64]NativeFunc),
	}
}

// SetProgram repoints the VM at a newly compiled program without
// disturbing anything else (natives, variable slots, arena, pc). This
// is what lets a REPL recompile a growing source buffer after each
// line and hand the VM the new bytes, rather than restarting the
// interpreter and losing state every time the user hits enter.
func (vm *VM) SetProgram(p *program.Program) {
	vm.prog = p
}

// Run executes until the program halts, aborts, exhausts budget (if
// budget > 0), or - in REPL mode - reaches an unresolved call target.
// ctx cancellation is checked between instructions, surfacing as
// StatusTimeout.
func (vm *VM) Run(ctx context.Context, budget int) (Status, error) {
	if vm.failed {
		return StatusFailed, vm.failErr
	}
	ticks := 0
	code := vm.prog.Code
	for {
		select {
		case <-ctx.Done():
			return StatusTimeout, ctx.Err()
		default:
		}
		if budget > 0 && ticks >= budget {
			return StatusTimeout, nil
		}
		if int(vm.pc) >= len(code) {
			return StatusHalted, nil
		}

		instrPC := vm.pc
		op := compiler.Opcode(code[instrPC])
		widths, ok := compiler.OperandWidths(op)
		if !ok {
			return vm.abort(instrPC, AbortError{Message: "unknown opcode"})
		}
		operandPC := instrPC + 1
		operands := make([]uint64, len(widths))
		for i, w := range widths {
			v, err := program.ReadOperand(code, operandPC, w)
			if err != nil {
				return vm.abort(instrPC, AbortError{Message: err.Error()})
			}
			operands[i] = v
			operandPC += uint32(w)
		}
		nextPC := operandPC

		switch op {
		case compiler.OpNop:

		case compiler.OpPushNil:
			vm.stack.Push(Nil)
		case compiler.OpPushNum:
			vm.stack.Push(Number(math.Float64frombits(operands[0])))
		case compiler.OpPushStr:
			idx := operands[0]
			if int(idx) >= len(vm.prog.Strings) {
				return vm.abort(instrPC, AbortError{Message: "string constant index out of range"})
			}
			vm.stack.Push(String(vm.prog.Strings[idx]))
		case compiler.OpPop:
			if _, ok := vm.stack.Pop(); !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
		case compiler.OpDup:
			v, ok := vm.stack.Peek()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			vm.stack.Push(v)

		case compiler.OpGetVar:
			ptr, err := vm.resolveSlot(byte(operands[0]), byte(operands[1]))
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(*ptr)
		case compiler.OpSetVar:
			v, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			ptr, err := vm.resolveSlot(byte(operands[0]), byte(operands[1]))
			if err != nil {
				return vm.abort(instrPC, err)
			}
			*ptr = v

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod, compiler.OpPow:
			b, okb := vm.stack.Pop()
			a, oka := vm.stack.Pop()
			if !oka || !okb {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			res, err := vm.broadcastArith(op.String(), a, b, arithFn(op))
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)
		case compiler.OpNeg:
			a, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			res, err := vm.unaryArith("neg", a, func(x float64) float64 { return -x })
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)
		case compiler.OpPos:
			a, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			res, err := vm.unaryArith("pos", a, func(x float64) float64 { return x })
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)

		case compiler.OpConcat:
			b, okb := vm.stack.Pop()
			a, oka := vm.stack.Pop()
			if !oka || !okb {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			res, err := vm.concat(a, b)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)

		case compiler.OpLess, compiler.OpLessEq:
			b, okb := vm.stack.Pop()
			a, oka := vm.stack.Pop()
			if !oka || !okb {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			less, err := compareOrdered(op.String(), a, b)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			result := less
			if op == compiler.OpLessEq {
				eq, err := valueEqual(vm, a, b, cycleGuard{})
				if err != nil {
					return vm.abort(instrPC, err)
				}
				result = less || eq
			}
			vm.stack.Push(boolValue(result))
		case compiler.OpEqual, compiler.OpNotEqual:
			b, okb := vm.stack.Pop()
			a, oka := vm.stack.Pop()
			if !oka || !okb {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			eq, err := valueEqual(vm, a, b, cycleGuard{})
			if err != nil {
				return vm.abort(instrPC, err)
			}
			if op == compiler.OpNotEqual {
				eq = !eq
			}
			vm.stack.Push(boolValue(eq))

		case compiler.OpNot:
			a, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			vm.stack.Push(boolValue(!a.Truthy()))
		case compiler.OpTruthy:
			a, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			vm.stack.Push(boolValue(a.Truthy()))

		case compiler.OpMakeList:
			n := int(operands[0])
			items, err := vm.popArgs(n)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(List(vm.arena.alloc(items)))
		case compiler.OpIndexGet:
			idx, okidx := vm.stack.Pop()
			obj, okobj := vm.stack.Pop()
			if !okidx || !okobj {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			res, err := vm.indexGet(obj, idx)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)
		case compiler.OpIndexSet:
			res, okr := vm.stack.Pop()
			val, okv := vm.stack.Pop()
			idx, oki := vm.stack.Pop()
			obj, oko := vm.stack.Pop()
			if !okr || !okv || !oki || !oko {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			if err := vm.indexSet(obj, idx, val); err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)
		case compiler.OpSliceGet:
			ln, okl := vm.stack.Pop()
			start, oks := vm.stack.Pop()
			obj, oko := vm.stack.Pop()
			if !okl || !oks || !oko {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			res, err := vm.sliceGet(obj, start, ln)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)
		case compiler.OpSliceSet:
			res, okr := vm.stack.Pop()
			val, okv := vm.stack.Pop()
			ln, okl := vm.stack.Pop()
			start, oks := vm.stack.Pop()
			obj, oko := vm.stack.Pop()
			if !okr || !okv || !okl || !oks || !oko {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			if err := vm.sliceSet(obj, start, ln, val); err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)
		case compiler.OpListSize:
			obj, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			if obj.Kind != KindList {
				return vm.abort(instrPC, typeError("list_size", obj))
			}
			vm.stack.Push(Number(float64(len(vm.arena.get(obj.List).items))))
		case compiler.OpListRef:
			// & takes an identity reference to an already-shared list
			// handle; lists never copy on a plain get (see OpGetVar),
			// so this is a pass-through marking the operand as aliased
			// for the benefit of native calls that mutate in place.

		case compiler.OpJump:
			nextPC = uint32(operands[0])
		case compiler.OpJumpIfFalse:
			cond, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			if !cond.Truthy() {
				nextPC = uint32(operands[0])
			}
		case compiler.OpJumpIfTrue:
			cond, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			if cond.Truthy() {
				nextPC = uint32(operands[0])
			}

		case compiler.OpCmdHead:
			target, err := vm.execCmdHead(byte(operands[0]), operands[1] != 0, int(operands[2]), operandPC)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			nextPC = target

		case compiler.OpCallLocal, compiler.OpTailCall:
			target := uint32(operands[0])
			argc := int(operands[1])
			if target == 0xFFFFFFFF {
				return StatusNeedMoreInput, nil
			}
			args, err := vm.popArgs(argc)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			call := &pendingCall{args: args, tail: op == compiler.OpTailCall}
			if !call.tail {
				call.returnPC = operandPC
				call.callSitePC = instrPC
				call.callerFrame = vm.curFrame
				call.callerDepth = vm.curDepth
			}
			vm.pendingCall = call
			nextPC = target

		case compiler.OpCallNative:
			hash := operands[0]
			argc := int(operands[1])
			args, err := vm.popArgs(argc)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			fn, ok := vm.natives[hash]
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "native command not installed"})
			}
			res, err := fn(vm, ctx, args)
			if err != nil {
				return vm.abort(instrPC, err)
			}
			vm.stack.Push(res)

		case compiler.OpReturn:
			v, ok := vm.stack.Pop()
			if !ok {
				return vm.abort(instrPC, AbortError{Message: "stack underflow"})
			}
			if done, haltStatus := vm.doReturn(v); done {
				return haltStatus, nil
			}
			nextPC = vm.pc
		case compiler.OpReturnNil:
			if done, haltStatus := vm.doReturn(Nil); done {
				return haltStatus, nil
			}
			nextPC = vm.pc

		case compiler.OpHalt:
			return StatusHalted, nil

		default:
			return vm.abort(instrPC, AbortError{Message: "unimplemented opcode " + op.String()})
		}

		vm.pc = nextPC
		ticks++
	}
}

func boolValue(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

func arithFn(op compiler.Opcode) func(a, b float64) float64 {
	switch op {
	case compiler.OpAdd:
		return func(a, b float64) float64 { return a + b }
	case compiler.OpSub:
		return func(a, b float64) float64 { return a - b }
	case compiler.OpMul:
		return func(a, b float64) float64 { return a * b }
	case compiler.OpDiv:
		return func(a, b float64) float64 { return a / b }
	case compiler.OpMod:
		return math.Mod
	case compiler.OpPow:
		return math.Pow
	}
	return func(a, b float64) float64 { return math.NaN() }
}

// popArgs pops n values off the operand stack, preserving their
// original left-to-right push order (args[0] is the first one pushed).
func (vm *VM) popArgs(n int) ([]Value, error) {
	if len(vm.stack) < n {
		return nil, AbortError{Message: "stack underflow"}
	}
	args := make([]Value, n)
	copy(args, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	return args, nil
}

// execCmdHead finishes setting up the frame a call_local/tail_call
// jumped to: it consumes vm.pendingCall, built by whichever of those two
// instructions got us here (§4.6 "cmdhead at the target adjusts extra
// arguments into a rest list if declared"). resumePC is always the byte
// right after cmd_head's own operands, i.e. the body's first real
// instruction.
func (vm *VM) execCmdHead(arity byte, hasRest bool, depth int, resumePC uint32) (uint32, error) {
	pending := vm.pendingCall
	vm.pendingCall = nil
	if pending == nil {
		return 0, AbortError{Message: "cmd_head reached outside of a call"}
	}
	args := pending.args
	if !hasRest && len(args) != int(arity) {
		return 0, AbortError{Message: "wrong number of arguments"}
	}
	if hasRest && len(args) < int(arity) {
		return 0, AbortError{Message: "wrong number of arguments"}
	}

	var f *frame
	if pending.tail {
		f = vm.curFrame
		f.slots = [256]Value{}
	} else {
		f = &frame{}
	}
	n := int(arity)
	if n > len(args) {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		f.slots[i] = args[i]
	}
	if hasRest {
		rest := append([]Value(nil), args[arity:]...)
		f.slots[arity] = List(vm.arena.alloc(rest))
	}

	if pending.tail {
		vm.curDepth = depth
	} else {
		vm.ensureChain(depth)
		vm.calls = append(vm.calls, callRecord{
			returnPC:    pending.returnPC,
			callSitePC:  pending.callSitePC,
			calleeDepth: depth,
			callerFrame: pending.callerFrame,
			callerDepth: pending.callerDepth,
		})
		vm.chains[depth] = append(vm.chains[depth], f)
		vm.curFrame = f
		vm.curDepth = depth
	}
	return resumePC, nil
}

// doReturn pops the innermost call record (if any), leaving ret on the
// stack either way: as the completed program's final value when the
// call stack is empty, or as the resumed caller's received result
// (§4.6 "return pops the node and restores the caller's PC..."). done
// is true when there is no caller left to resume (the top-level program
// itself returning), in which case status reports StatusHalted.
func (vm *VM) doReturn(ret Value) (done bool, status Status) {
	if len(vm.calls) == 0 {
		vm.stack.Push(ret)
		return true, StatusHalted
	}
	rec := vm.calls[len(vm.calls)-1]
	vm.calls = vm.calls[:len(vm.calls)-1]
	chain := vm.chains[rec.calleeDepth]
	vm.chains[rec.calleeDepth] = chain[:len(chain)-1]
	vm.curFrame = rec.callerFrame
	vm.curDepth = rec.callerDepth
	vm.pc = rec.returnPC
	vm.stack.Push(ret)
	return false, StatusHalted
}

func (vm *VM) abort(pc uint32, err error) (Status, error) {
	ae, ok := err.(AbortError)
	if !ok {
		ae = AbortError{Message: err.Error()}
	}
	if ae.Trace == nil {
		ae.Trace = vm.buildTrace(pc)
	}
	vm.failed = true
	vm.failErr = ae
	return StatusFailed, ae
}

func (vm *VM) buildTrace(currentPC uint32) []TraceFrame {
	frames := []TraceFrame{vm.traceFrame(currentPC)}
	for i := len(vm.calls) - 1; i >= 0 && len(frames) < maxTraceFrames; i-- {
		frames = append(frames, vm.traceFrame(vm.calls[i].callSitePC))
	}
	return frames
}

func (vm *VM) traceFrame(pc uint32) TraceFrame {
	var tf TraceFrame
	for _, h := range vm.prog.Hints {
		if h.PC == pc && int(h.HintString) < len(vm.prog.DebugStrings) {
			tf.Command = vm.prog.DebugStrings[h.HintString]
			break
		}
	}
	for _, p := range vm.prog.Positions {
		if p.PC == pc {
			tf.Line = p.Line
			tf.Chr = p.Chr
			break
		}
	}
	return tf
}
