package stdlib

import (
	"context"
	"math"
	"strconv"

	"sini/compiler"
	"sini/vm"
)

// mapNum1 applies f to a number, or element-wise to a list of numbers,
// matching the broadcasting rule §4.7 states for numeric operators -
// generalized here to the numeric standard-library functions built the
// same way vm/ops.go's unaryArith generalizes `-`/`+`.
func mapNum1(rt *vm.VM, v vm.Value, f func(float64) float64) (vm.Value, error) {
	if v.Kind == vm.KindNumber {
		return vm.Number(f(v.Num)), nil
	}
	items, ok := rt.ListItems(v)
	if !ok {
		return vm.Nil, notNumberErr(v)
	}
	out := make([]vm.Value, len(items))
	for i, it := range items {
		if it.Kind != vm.KindNumber {
			return vm.Nil, notNumberErr(it)
		}
		out[i] = vm.Number(f(it.Num))
	}
	return rt.NewList(out), nil
}

func notNumberErr(v vm.Value) error {
	return vm.AbortError{Message: "expected a number or list of numbers, got " + v.TypeName()}
}

func wantArgs(name string, args []vm.Value, n int) error {
	if len(args) != n {
		return vm.AbortError{Message: name + "() expects " + strconv.Itoa(n) + " argument(s)"}
	}
	return nil
}

func numArg(name string, args []vm.Value, i int) (float64, error) {
	if i >= len(args) || args[i].Kind != vm.KindNumber {
		return 0, vm.AbortError{Message: name + "() expects a number argument"}
	}
	return args[i].Num, nil
}

func registerNumeric(c *compiler.Compiler, v *vm.VM) {
	unary := map[string]func(float64) float64{
		"abs":   math.Abs,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"round": math.Round,
		"trunc": math.Trunc,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"log":   math.Log,
		"log2":  math.Log2,
		"log10": math.Log10,
		"exp":   math.Exp,
		"sign": func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			default:
				return 0
			}
		},
	}
	for name, fn := range unary {
		fn := fn
		declareNative(c, v, "num."+name, func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			if err := wantArgs(name, args, 1); err != nil {
				return vm.Nil, err
			}
			return mapNum1(rt, args[0], fn)
		})
	}

	// The four arithmetic ops plus pow are also reachable as num.* named
	// commands, not just the `+ - * /` operators themselves (§4.7
	// "numeric ... and the four arithmetic + pow ops").
	arith := map[string]func(a, b float64) float64{
		"add": func(a, b float64) float64 { return a + b },
		"sub": func(a, b float64) float64 { return a - b },
		"mul": func(a, b float64) float64 { return a * b },
		"div": func(a, b float64) float64 { return a / b },
		"pow": math.Pow,
	}
	for name, fn := range arith {
		fn := fn
		declareNative(c, v, "num."+name, func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			if err := wantArgs("num."+name, args, 2); err != nil {
				return vm.Nil, err
			}
			a, err := numArg("num."+name, args, 0)
			if err != nil {
				return vm.Nil, err
			}
			b, err := numArg("num."+name, args, 1)
			if err != nil {
				return vm.Nil, err
			}
			return vm.Number(fn(a, b)), nil
		})
	}

	declareNative(c, v, "num.min", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return reduceNums("min", args, math.Min)
	})
	declareNative(c, v, "num.max", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return reduceNums("max", args, math.Max)
	})
	declareNative(c, v, "num.clamp", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("num.clamp", args, 3); err != nil {
			return vm.Nil, err
		}
		x, err := numArg("num.clamp", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		lo, err := numArg("num.clamp", args, 1)
		if err != nil {
			return vm.Nil, err
		}
		hi, err := numArg("num.clamp", args, 2)
		if err != nil {
			return vm.Nil, err
		}
		return vm.Number(math.Min(math.Max(x, lo), hi)), nil
	})
	declareNative(c, v, "num.lerp", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("num.lerp", args, 3); err != nil {
			return vm.Nil, err
		}
		a, err := numArg("num.lerp", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		b, err := numArg("num.lerp", args, 1)
		if err != nil {
			return vm.Nil, err
		}
		t, err := numArg("num.lerp", args, 2)
		if err != nil {
			return vm.Nil, err
		}
		return vm.Number(a + (b-a)*t), nil
	})
	declareNative(c, v, "num.atan2", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("num.atan2", args, 2); err != nil {
			return vm.Nil, err
		}
		y, err := numArg("num.atan2", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		x, err := numArg("num.atan2", args, 1)
		if err != nil {
			return vm.Nil, err
		}
		return vm.Number(math.Atan2(y, x)), nil
	})

	bases := map[string]int{"hex": 16, "oct": 8, "bin": 2}
	for name, base := range bases {
		base := base
		declareNative(c, v, "num."+name, func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			n, err := numArg("num."+name, args, 0)
			if err != nil {
				return vm.Nil, err
			}
			return vm.String(strconv.FormatInt(int64(n), base)), nil
		})
	}

	declareNative(c, v, "num.nan", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return vm.Number(math.NaN()), nil
	})
	declareNative(c, v, "num.inf", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		sign := 1.0
		if len(args) == 1 && args[0].Kind == vm.KindNumber && args[0].Num < 0 {
			sign = -1
		}
		return vm.Number(math.Inf(int(sign))), nil
	})
	declareNative(c, v, "num.isnan", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		n, err := numArg("num.isnan", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		return boolNum(math.IsNaN(n)), nil
	})
	declareNative(c, v, "num.isfinite", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		n, err := numArg("num.isfinite", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		return boolNum(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})
}

func reduceNums(name string, args []vm.Value, pick func(a, b float64) float64) (vm.Value, error) {
	if len(args) == 0 {
		return vm.Nil, vm.AbortError{Message: name + "() expects at least 1 argument"}
	}
	best, err := numArg(name, args, 0)
	if err != nil {
		return vm.Nil, err
	}
	for i := 1; i < len(args); i++ {
		x, err := numArg(name, args, i)
		if err != nil {
			return vm.Nil, err
		}
		best = pick(best, x)
	}
	return vm.Number(best), nil
}

func boolNum(b bool) vm.Value {
	if b {
		return vm.Number(1)
	}
	return vm.Number(0)
}
