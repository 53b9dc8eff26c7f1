package stdlib

import (
	"context"

	"sini/compiler"
	"sini/vm"
)

// registerUniversal binds the ungrouped top-level commands: host I/O
// (say/warn/ask), program control (exit/abort), list/range helpers
// reachable outside the `for`-over-range fast path (range/order),
// introspection (stacktrace), and the type predicates (isnum/isstr/
// islist). `pick`, `embed` and `isnative` are compiler special forms
// (compiler/call.go) and never reach a native call, so they have no
// entry here.
func registerUniversal(c *compiler.Compiler, v *vm.VM, host Host) {
	if host != nil {
		declareNative(c, v, "say", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			if err := wantArgs("say", args, 1); err != nil {
				return vm.Nil, err
			}
			if err := host.Say(ctx, rt.Format(args[0])); err != nil {
				return vm.Nil, err
			}
			return vm.Nil, nil
		})
		declareNative(c, v, "warn", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			if err := wantArgs("warn", args, 1); err != nil {
				return vm.Nil, err
			}
			if err := host.Warn(ctx, rt.Format(args[0])); err != nil {
				return vm.Nil, err
			}
			return vm.Nil, nil
		})
		declareNative(c, v, "ask", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			prompt := ""
			if len(args) >= 1 {
				prompt = rt.Format(args[0])
			}
			answer, err := host.Ask(ctx, prompt)
			if err != nil {
				return vm.Nil, err
			}
			return vm.String(answer), nil
		})
	}

	// exit has no dedicated VM status of its own; it is modeled as an
	// abort whose message names the exit code, the simplest way to
	// unwind every open frame with the existing Run/Status machinery.
	declareNative(c, v, "exit", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		code := 0.0
		if len(args) >= 1 && args[0].Kind == vm.KindNumber {
			code = args[0].Num
		}
		return vm.Nil, vm.AbortError{Message: "exit(" + vm.FormatNumber(code) + ")"}
	})

	declareNative(c, v, "abort", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		msg := "abort"
		if len(args) >= 1 {
			msg = rt.Format(args[0])
		}
		return vm.Nil, vm.AbortError{Message: msg}
	})

	// range is the general-purpose constructor; `for x : range(a, b)`
	// is additionally recognized at compile time and lowered to a
	// counted loop that never calls this at all (§4.4).
	declareNative(c, v, "range", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if len(args) < 1 || len(args) > 3 {
			return vm.Nil, vm.AbortError{Message: "range() expects 1 to 3 arguments"}
		}
		start, stop, step := 0.0, 0.0, 1.0
		switch len(args) {
		case 1:
			stop, _ = numArg("range", args, 0)
		case 2:
			start, _ = numArg("range", args, 0)
			stop, _ = numArg("range", args, 1)
		case 3:
			start, _ = numArg("range", args, 0)
			stop, _ = numArg("range", args, 1)
			step, _ = numArg("range", args, 2)
		}
		if step == 0 {
			return vm.Nil, vm.AbortError{Message: "range(): step must not be zero"}
		}
		var out []vm.Value
		if step > 0 {
			for x := start; x < stop; x += step {
				out = append(out, vm.Number(x))
			}
		} else {
			for x := start; x > stop; x += step {
				out = append(out, vm.Number(x))
			}
		}
		return rt.NewList(out), nil
	})

	declareNative(c, v, "order", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("order", args, 2); err != nil {
			return vm.Nil, err
		}
		lt, err := valueLess(args[0], args[1])
		if err != nil {
			return vm.Nil, err
		}
		if lt {
			return vm.Number(-1), nil
		}
		if valueEq(args[0], args[1]) {
			return vm.Number(0), nil
		}
		return vm.Number(1), nil
	})

	declareNative(c, v, "stacktrace", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		frames := rt.StackTrace()
		out := make([]vm.Value, len(frames))
		for i, f := range frames {
			out[i] = vm.String(f.Command)
		}
		return rt.NewList(out), nil
	})

	declareNative(c, v, "isnum", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return boolNum(len(args) >= 1 && args[0].Kind == vm.KindNumber), nil
	})
	declareNative(c, v, "isstr", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return boolNum(len(args) >= 1 && args[0].Kind == vm.KindString), nil
	})
	declareNative(c, v, "islist", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return boolNum(len(args) >= 1 && args[0].Kind == vm.KindList), nil
	})
}
