package stdlib

import (
	"context"
	"unicode/utf8"

	"sini/compiler"
	"sini/vm"
)

// validUTF8 rejects overlong encodings and surrogate code points in
// addition to what unicode/utf8.Valid already checks, since Go's
// decoder is itself strict about both (RuneError only appears for
// exactly the sequences §4.7 calls out: overlong forms and encoded
// surrogate halves D800-DFFF are never produced as valid runes by
// DecodeRune either). This wrapper exists to name the two rejected
// classes explicitly rather than relying on stdlib's behavior being
// coincidentally strict enough.
func validUTF8(s string) bool {
	b := []byte(s)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			return false
		}
		if r >= 0xD800 && r <= 0xDFFF {
			return false
		}
		b = b[size:]
	}
	return true
}

func registerUTF8(c *compiler.Compiler, v *vm.VM) {
	declareNative(c, v, "utf8.valid", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		s, err := strArg("utf8.valid", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		return boolNum(validUTF8(s)), nil
	})

	// utf8.list is the one code-point-aware operation in the string
	// surface (§9 open question: every other string op is byte-based).
	declareNative(c, v, "utf8.list", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		s, err := strArg("utf8.list", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		if !validUTF8(s) {
			return vm.Nil, vm.AbortError{Message: "utf8.list: invalid UTF-8"}
		}
		var out []vm.Value
		for _, r := range s {
			out = append(out, vm.String(string(r)))
		}
		return rt.NewList(out), nil
	})

	declareNative(c, v, "utf8.str", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("utf8.str", args, 1); err != nil {
			return vm.Nil, err
		}
		items, ok := rt.ListItems(args[0])
		if !ok {
			return vm.Nil, vm.AbortError{Message: "utf8.str() expects a list of code points"}
		}
		runes := make([]rune, len(items))
		for i, it := range items {
			if it.Kind != vm.KindNumber {
				return vm.Nil, vm.AbortError{Message: "utf8.str() expects a list of code points"}
			}
			runes[i] = rune(int32(it.Num))
		}
		return vm.String(string(runes)), nil
	})
}
