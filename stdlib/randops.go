package stdlib

import (
	"context"
	"crypto/rand"
	"encoding/binary"

	"sini/compiler"
	"sini/vm"
)

// registerRand binds the rand.* group to a single shared PRNG instance
// owned by the embedder, mirroring §4.7's "a specific 32-bit
// MurmurHash-derived generator with a 64-bit state (seed, i)" - every
// call mutates the same generator, so rand.seed/getstate/setstate
// observably affect every later rand.num/rand.int/... call.
func registerRand(c *compiler.Compiler, v *vm.VM, rng *PRNG) {
	declareNative(c, v, "rand.seed", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		n, err := numArg("rand.seed", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		rng.Seed(uint32(int64(n)))
		return vm.Nil, nil
	})

	declareNative(c, v, "rand.seedauto", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		var b [4]byte
		rand.Read(b[:])
		rng.SeedAuto(binary.LittleEndian.Uint32(b[:]))
		return vm.Nil, nil
	})

	declareNative(c, v, "rand.int", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		n, err := numArg("rand.int", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		return vm.Number(rng.Int(int64(n))), nil
	})

	declareNative(c, v, "rand.num", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return vm.Number(rng.Num()), nil
	})

	declareNative(c, v, "rand.range", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("rand.range", args, 2); err != nil {
			return vm.Nil, err
		}
		lo, err := numArg("rand.range", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		hi, err := numArg("rand.range", args, 1)
		if err != nil {
			return vm.Nil, err
		}
		return vm.Number(rng.Range(lo, hi)), nil
	})

	declareNative(c, v, "rand.pick", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		items, err := listArg("rand.pick", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		if len(items) == 0 {
			return vm.Nil, nil
		}
		return items[rng.PickIndex(len(items))], nil
	})

	declareNative(c, v, "rand.shuffle", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		items, err := listArg("rand.shuffle", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		out := append([]vm.Value(nil), items...)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		rt.SetListItems(args[0], out)
		return args[0], nil
	})

	declareNative(c, v, "rand.getstate", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		seed, i := rng.GetState()
		return rt.NewList([]vm.Value{vm.Number(float64(seed)), vm.Number(float64(i))}), nil
	})

	declareNative(c, v, "rand.setstate", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		items, err := listArg("rand.setstate", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		if len(items) != 2 || items[0].Kind != vm.KindNumber || items[1].Kind != vm.KindNumber {
			return vm.Nil, vm.AbortError{Message: "rand.setstate: expects a 2-element [seed, i] state list"}
		}
		rng.SetState(uint32(int64(items[0].Num)), uint32(int64(items[1].Num)))
		return vm.Nil, nil
	})
}
