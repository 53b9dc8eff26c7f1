package stdlib

import (
	"context"
	"encoding/binary"
	"math"

	"sini/compiler"
	"sini/vm"
)

// fieldType describes one typed field in a struct.* format list: its
// byte width and how to pack/unpack a language number into that many
// bytes (§4.7 "struct (size/str/list/isLE with typed fields U8/U16/
// UL16/UB16/U32/UL32/UB32 and signed and float counterparts)"). Tags
// without an L/B suffix use this module's native order, which is
// little-endian - the same order the program binary format itself
// uses (§4.5) - so `struct.isLE()` with no arguments is a fixed true.
type fieldType struct {
	size   int
	encode func(buf []byte, v float64)
	decode func(buf []byte) float64
}

var fieldTypes = map[string]fieldType{
	"U8": {1, func(b []byte, v float64) { b[0] = byte(uint8(int64(v))) }, func(b []byte) float64 { return float64(b[0]) }},
	"I8": {1, func(b []byte, v float64) { b[0] = byte(int8(int64(v))) }, func(b []byte) float64 { return float64(int8(b[0])) }},

	"U16":  u16Field(binary.LittleEndian, false),
	"UL16": u16Field(binary.LittleEndian, false),
	"UB16": u16Field(binary.BigEndian, false),
	"I16":  u16Field(binary.LittleEndian, true),
	"IL16": u16Field(binary.LittleEndian, true),
	"IB16": u16Field(binary.BigEndian, true),

	"U32":  u32Field(binary.LittleEndian, false),
	"UL32": u32Field(binary.LittleEndian, false),
	"UB32": u32Field(binary.BigEndian, false),
	"I32":  u32Field(binary.LittleEndian, true),
	"IL32": u32Field(binary.LittleEndian, true),
	"IB32": u32Field(binary.BigEndian, true),

	"F32":  f32Field(binary.LittleEndian),
	"FL32": f32Field(binary.LittleEndian),
	"FB32": f32Field(binary.BigEndian),
	"F64":  f64Field(binary.LittleEndian),
	"FL64": f64Field(binary.LittleEndian),
	"FB64": f64Field(binary.BigEndian),
}

type byteOrder interface {
	PutUint16([]byte, uint16)
	Uint16([]byte) uint16
	PutUint32([]byte, uint32)
	Uint32([]byte) uint32
	PutUint64([]byte, uint64)
	Uint64([]byte) uint64
}

func u16Field(order byteOrder, signed bool) fieldType {
	return fieldType{2,
		func(b []byte, v float64) { order.PutUint16(b, uint16(int64(v))) },
		func(b []byte) float64 {
			u := order.Uint16(b)
			if signed {
				return float64(int16(u))
			}
			return float64(u)
		},
	}
}

func u32Field(order byteOrder, signed bool) fieldType {
	return fieldType{4,
		func(b []byte, v float64) { order.PutUint32(b, uint32(int64(v))) },
		func(b []byte) float64 {
			u := order.Uint32(b)
			if signed {
				return float64(int32(u))
			}
			return float64(u)
		},
	}
}

func f32Field(order byteOrder) fieldType {
	return fieldType{4,
		func(b []byte, v float64) { order.PutUint32(b, math.Float32bits(float32(v))) },
		func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) },
	}
}

func f64Field(order byteOrder) fieldType {
	return fieldType{8,
		func(b []byte, v float64) { order.PutUint64(b, math.Float64bits(v)) },
		func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) },
	}
}

func parseFieldSpec(rt *vm.VM, fmtList vm.Value) ([]fieldType, error) {
	items, ok := rt.ListItems(fmtList)
	if !ok {
		return nil, vm.AbortError{Message: "struct: format must be a list of type tags"}
	}
	fields := make([]fieldType, len(items))
	for i, it := range items {
		if it.Kind != vm.KindString {
			return nil, vm.AbortError{Message: "struct: format must be a list of type tags"}
		}
		ft, ok := fieldTypes[it.Str]
		if !ok {
			return nil, vm.AbortError{Message: "struct: unknown type tag '" + it.Str + "'"}
		}
		fields[i] = ft
	}
	return fields, nil
}

func registerStruct(c *compiler.Compiler, v *vm.VM) {
	declareNative(c, v, "struct.size", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("struct.size", args, 1); err != nil {
			return vm.Nil, err
		}
		fields, err := parseFieldSpec(rt, args[0])
		if err != nil {
			return vm.Nil, err
		}
		total := 0
		for _, f := range fields {
			total += f.size
		}
		return vm.Number(float64(total)), nil
	})

	declareNative(c, v, "struct.str", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("struct.str", args, 2); err != nil {
			return vm.Nil, err
		}
		fields, err := parseFieldSpec(rt, args[0])
		if err != nil {
			return vm.Nil, err
		}
		values, ok := rt.ListItems(args[1])
		if !ok || len(values) != len(fields) {
			return vm.Nil, vm.AbortError{Message: "struct.str: value count does not match format"}
		}
		total := 0
		for _, f := range fields {
			total += f.size
		}
		buf := make([]byte, total)
		off := 0
		for i, f := range fields {
			if values[i].Kind != vm.KindNumber {
				return vm.Nil, vm.AbortError{Message: "struct.str: every value must be a number"}
			}
			f.encode(buf[off:off+f.size], values[i].Num)
			off += f.size
		}
		return vm.String(string(buf)), nil
	})

	declareNative(c, v, "struct.list", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("struct.list", args, 2); err != nil {
			return vm.Nil, err
		}
		fields, err := parseFieldSpec(rt, args[0])
		if err != nil {
			return vm.Nil, err
		}
		s, err := strArg("struct.list", args, 1)
		if err != nil {
			return vm.Nil, err
		}
		buf := []byte(s)
		off := 0
		out := make([]vm.Value, len(fields))
		for i, f := range fields {
			if off+f.size > len(buf) {
				return vm.Nil, vm.AbortError{Message: "struct.list: source string too short"}
			}
			out[i] = vm.Number(f.decode(buf[off : off+f.size]))
			off += f.size
		}
		return rt.NewList(out), nil
	})

	declareNative(c, v, "struct.isLE", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return vm.Number(1), nil
	})
}
