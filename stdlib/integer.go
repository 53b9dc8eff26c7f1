package stdlib

import (
	"context"
	"math/bits"

	"sini/compiler"
	"sini/vm"
)

// toU32 truncates a language number to its 32-bit wrapped integer
// representation, the same rule every function in this group uses
// (§4.7 "integer (32-bit wrap)").
func toU32(f float64) uint32 {
	return uint32(int64(f))
}

func registerInteger(c *compiler.Compiler, v *vm.VM) {
	unary := map[string]func(uint32) uint32{
		"new": func(a uint32) uint32 { return a },
		"not": func(a uint32) uint32 { return ^a },
		"clz": func(a uint32) uint32 { return uint32(bits.LeadingZeros32(a)) },
		"pop": func(a uint32) uint32 { return uint32(bits.OnesCount32(a)) },
		"bswap": func(a uint32) uint32 {
			return uint32(bits.ReverseBytes32(a))
		},
	}
	for name, fn := range unary {
		fn := fn
		declareNative(c, v, "int."+name, func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			a, err := numArg("int."+name, args, 0)
			if err != nil {
				return vm.Nil, err
			}
			return vm.Number(float64(fn(toU32(a)))), nil
		})
	}

	binary := map[string]func(a, b uint32) uint32{
		"and": func(a, b uint32) uint32 { return a & b },
		"or":  func(a, b uint32) uint32 { return a | b },
		"xor": func(a, b uint32) uint32 { return a ^ b },
		"shl": func(a, b uint32) uint32 { return a << (b & 31) },
		"shr": func(a, b uint32) uint32 { return a >> (b & 31) },
		"sar": func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 31)) },
		"add": func(a, b uint32) uint32 { return a + b },
		"sub": func(a, b uint32) uint32 { return a - b },
		"mul": func(a, b uint32) uint32 { return a * b },
		// integer division/mod by zero yields zero, a deliberate
		// preserved choice from the original source (spec §9 open
		// questions), not an oversight.
		"div": func(a, b uint32) uint32 {
			if b == 0 {
				return 0
			}
			return a / b
		},
		"mod": func(a, b uint32) uint32 {
			if b == 0 {
				return 0
			}
			return a % b
		},
	}
	for name, fn := range binary {
		fn := fn
		declareNative(c, v, "int."+name, func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
			a, err := numArg("int."+name, args, 0)
			if err != nil {
				return vm.Nil, err
			}
			b, err := numArg("int."+name, args, 1)
			if err != nil {
				return vm.Nil, err
			}
			return vm.Number(float64(fn(toU32(a), toU32(b)))), nil
		})
	}
}
