package stdlib

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"sini/compiler"
	"sini/vm"
)

// Binary pickle format tags. A list is tagged tagList followed by a
// varint element count and then its elements; the first time the
// encoder visits a given list handle it assigns it the next sequence
// id, so any later encounter of that same handle - whether a sibling
// reference elsewhere in the graph or the list reaching back into
// itself - is written as tagRef plus that id instead of being
// re-encoded. Decoding registers a list's placeholder before walking
// its elements for the same reason, so a circular tagRef resolves to
// an already-allocated (if not yet fully populated) list rather than
// recursing forever.
const (
	tagNil    = 0xF0
	tagNumber = 0xF1
	tagString = 0xF2
	tagList   = 0xF3
	tagRef    = 0xF4
)

func pickleEncode(rt *vm.VM, v vm.Value, buf *bytes.Buffer, seen map[vm.ListHandle]int) error {
	switch v.Kind {
	case vm.KindNil:
		buf.WriteByte(tagNil)
	case vm.KindNumber:
		buf.WriteByte(tagNumber)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.Num))
		buf.Write(tmp[:])
	case vm.KindString:
		buf.WriteByte(tagString)
		putUvarint(buf, uint64(len(v.Str)))
		buf.WriteString(v.Str)
	case vm.KindList:
		if id, ok := seen[v.List]; ok {
			buf.WriteByte(tagRef)
			putUvarint(buf, uint64(id))
			return nil
		}
		items, _ := rt.ListItems(v)
		id := len(seen)
		seen[v.List] = id
		buf.WriteByte(tagList)
		putUvarint(buf, uint64(len(items)))
		for _, it := range items {
			if err := pickleEncode(rt, it, buf, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func putUvarint(buf *bytes.Buffer, n uint64) {
	var tmp [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(tmp[:], n)
	buf.Write(tmp[:l])
}

func pickleDecode(rt *vm.VM, r *bytes.Reader, refs *[]vm.Value) (vm.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return vm.Nil, vm.AbortError{Message: "pickle: truncated input"}
	}
	switch tag {
	case tagNil:
		return vm.Nil, nil
	case tagNumber:
		var tmp [8]byte
		if _, err := r.Read(tmp[:]); err != nil {
			return vm.Nil, vm.AbortError{Message: "pickle: truncated number"}
		}
		return vm.Number(math.Float64frombits(binary.LittleEndian.Uint64(tmp[:]))), nil
	case tagString:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return vm.Nil, vm.AbortError{Message: "pickle: truncated string length"}
		}
		s := make([]byte, n)
		if _, err := r.Read(s); err != nil {
			return vm.Nil, vm.AbortError{Message: "pickle: truncated string"}
		}
		return vm.String(string(s)), nil
	case tagList:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return vm.Nil, vm.AbortError{Message: "pickle: truncated list length"}
		}
		placeholder := rt.NewList(make([]vm.Value, n))
		*refs = append(*refs, placeholder)
		items := make([]vm.Value, n)
		for i := range items {
			it, err := pickleDecode(rt, r, refs)
			if err != nil {
				return vm.Nil, err
			}
			items[i] = it
		}
		rt.SetListItems(placeholder, items)
		return placeholder, nil
	case tagRef:
		id, err := binary.ReadUvarint(r)
		if err != nil || int(id) >= len(*refs) {
			return vm.Nil, vm.AbortError{Message: "pickle: invalid back-reference"}
		}
		return (*refs)[id], nil
	default:
		return vm.Nil, vm.AbortError{Message: "pickle: unknown tag byte"}
	}
}

func pickleJSON(rt *vm.VM, v vm.Value, b *strings.Builder, ancestry map[vm.ListHandle]bool) error {
	switch v.Kind {
	case vm.KindNil:
		b.WriteString("null")
	case vm.KindNumber:
		b.WriteString(jsonNumber(v.Num))
	case vm.KindString:
		b.WriteString(strconv.Quote(v.Str))
	case vm.KindList:
		if ancestry[v.List] {
			return vm.AbortError{Message: "pickle.json: circular list"}
		}
		ancestry[v.List] = true
		items, _ := rt.ListItems(v)
		b.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := pickleJSON(rt, it, b, ancestry); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		delete(ancestry, v.List)
	}
	return nil
}

func jsonNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "null"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func pickleIsCircular(rt *vm.VM, v vm.Value, ancestry map[vm.ListHandle]bool) bool {
	if v.Kind != vm.KindList {
		return false
	}
	if ancestry[v.List] {
		return true
	}
	ancestry[v.List] = true
	items, _ := rt.ListItems(v)
	for _, it := range items {
		if pickleIsCircular(rt, it, ancestry) {
			return true
		}
	}
	delete(ancestry, v.List)
	return false
}

func pickleDeepCopy(rt *vm.VM, v vm.Value, copied map[vm.ListHandle]vm.Value) vm.Value {
	if v.Kind != vm.KindList {
		return v
	}
	if nv, ok := copied[v.List]; ok {
		return nv
	}
	items, _ := rt.ListItems(v)
	placeholder := rt.NewList(make([]vm.Value, len(items)))
	copied[v.List] = placeholder
	out := make([]vm.Value, len(items))
	for i, it := range items {
		out[i] = pickleDeepCopy(rt, it, copied)
	}
	rt.SetListItems(placeholder, out)
	return placeholder
}

func registerPickle(c *compiler.Compiler, v *vm.VM) {
	declareNative(c, v, "pickle.bin", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("pickle.bin", args, 1); err != nil {
			return vm.Nil, err
		}
		var buf bytes.Buffer
		if err := pickleEncode(rt, args[0], &buf, map[vm.ListHandle]int{}); err != nil {
			return vm.Nil, err
		}
		return vm.String(buf.String()), nil
	})

	declareNative(c, v, "pickle.val", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		s, err := strArg("pickle.val", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		r := bytes.NewReader([]byte(s))
		refs := []vm.Value{}
		return pickleDecode(rt, r, &refs)
	})

	declareNative(c, v, "pickle.valid", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		s, err := strArg("pickle.valid", args, 0)
		if err != nil {
			return vm.Nil, err
		}
		r := bytes.NewReader([]byte(s))
		refs := []vm.Value{}
		_, derr := pickleDecode(rt, r, &refs)
		return boolNum(derr == nil), nil
	})

	declareNative(c, v, "pickle.json", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("pickle.json", args, 1); err != nil {
			return vm.Nil, err
		}
		var b strings.Builder
		if err := pickleJSON(rt, args[0], &b, map[vm.ListHandle]bool{}); err != nil {
			return vm.Nil, err
		}
		return vm.String(b.String()), nil
	})

	declareNative(c, v, "pickle.sibling", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("pickle.sibling", args, 2); err != nil {
			return vm.Nil, err
		}
		a, b := args[0], args[1]
		return boolNum(a.Kind == vm.KindList && b.Kind == vm.KindList && a.List == b.List), nil
	})

	declareNative(c, v, "pickle.circular", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("pickle.circular", args, 1); err != nil {
			return vm.Nil, err
		}
		return boolNum(pickleIsCircular(rt, args[0], map[vm.ListHandle]bool{})), nil
	})

	declareNative(c, v, "pickle.copy", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("pickle.copy", args, 1); err != nil {
			return vm.Nil, err
		}
		return pickleDeepCopy(rt, args[0], map[vm.ListHandle]vm.Value{}), nil
	})
}
