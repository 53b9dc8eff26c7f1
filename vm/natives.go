package vm

import "context"

// NativeFunc is a host-registered native command callback, keyed by its
// 64-bit name hash in the program's key table (§4.6's asynchronous
// native-call protocol). This exercise models "async" as an ordinary
// synchronous Go call from the interpreter's point of view: any real
// asynchrony (blocking I/O, a `say`/`warn`/`ask` prompt waiting on a
// terminal) is the callback's own concern, handled with Go's usual
// concurrency primitives exactly as a host normally runs an embedded
// VM on its own goroutine rather than threading bytecode-level
// coroutines through it. The callback receives the VM itself so it can
// allocate or mutate lists through the same arena the interpreter uses
// (NewList/ListItems/SetListItems below) rather than a second one.
type NativeFunc func(vm *VM, ctx context.Context, args []Value) (Value, error)

// RegisterNative installs the callback the VM calls for hash, as
// assigned by compiler.DeclareNative. Calling it again for the same
// hash replaces the previous callback.
func (vm *VM) RegisterNative(hash uint64, fn NativeFunc) {
	vm.natives[hash] = fn
}

// NewList allocates a fresh list in the VM's arena and returns a Value
// referencing it, for natives that build list results (str.split,
// list.new, pickle.val, ...).
func (vm *VM) NewList(items []Value) Value {
	return List(vm.arena.alloc(items))
}

// ListItems returns the live backing slice of a list value, letting a
// native read or mutate it in place (mutations are visible to the
// script immediately, matching list reference semantics). ok is false
// if v is not a list.
func (vm *VM) ListItems(v Value) (items []Value, ok bool) {
	if v.Kind != KindList {
		return nil, false
	}
	return vm.arena.get(v.List).items, true
}

// SetListItems replaces a list's backing slice in place, for built-ins
// that resize a list (push/pop/shift/unshift/sort/...).
func (vm *VM) SetListItems(v Value, items []Value) bool {
	if v.Kind != KindList {
		return false
	}
	vm.arena.get(v.List).items = items
	return true
}

// CloneList returns an independent copy of a list value (pickle.copy).
func (vm *VM) CloneList(v Value) (Value, bool) {
	if v.Kind != KindList {
		return Nil, false
	}
	return List(vm.arena.clone(v.List)), true
}

// Equal exposes structural equality (with cycle protection) to natives
// that need it, e.g. list.find.
func (vm *VM) Equal(a, b Value) (bool, error) {
	return valueEqual(vm, a, b, cycleGuard{})
}

// Format exposes the `say`/concatenation string rendering of a value.
func (vm *VM) Format(v Value) string {
	return FormatValue(vm, v)
}

// StackTrace exposes the same call-stack-to-TraceFrame walk an abort
// uses, for the `stacktrace` native command. It reflects the call in
// progress when invoked, same as an abort raised from that point would
// report.
func (vm *VM) StackTrace() []TraceFrame {
	return vm.buildTrace(vm.pc)
}

// CurFrameSlot reads a variable slot out of the currently executing
// frame, for a host inspecting a finished top-level run (a REPL
// printing the result of the last statement, or a test asserting on a
// top-level `var`).
func (vm *VM) CurFrameSlot(i int) Value {
	return vm.curFrame.slots[i]
}
