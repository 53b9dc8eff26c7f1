package vm

import (
	"fmt"
	"math"
)

// Kind tags a Value's payload (§3's data model: nil, number, string,
// list - there is no separate boolean, truthiness is derived).
type Kind uint8

const (
	KindNil Kind = iota
	KindNumber
	KindString
	KindList
)

// Value is the VM's tagged runtime representation. Numbers are always
// float64 (integers are a stdlib convention layered on top, not a
// distinct runtime kind). A list Value holds a handle into the VM's
// arena rather than the backing slice directly, so two Values can share
// or not share identity depending on whether they were produced by a
// plain get (copy) or by `&name` (alias) - see arena.go.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	List ListHandle
}

var Nil = Value{Kind: KindNil}

func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func List(h ListHandle) Value { return Value{Kind: KindList, List: h} }

// Truthy implements the language's single coercion rule used by every
// conditional jump: nil and the number 0 are false, everything else
// (including the empty string and the empty list) is true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindNumber:
		return v.Num != 0
	default:
		return true
	}
}

func (v Value) TypeName() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindNumber:
		return "num"
	case KindString:
		return "str"
	case KindList:
		return "list"
	default:
		return "?"
	}
}

// FormatNumber renders a float the way the language prints numbers:
// integral values with no trailing ".0", everything else via %g.
func FormatNumber(n float64) string {
	if math.IsNaN(n) {
		return "nan"
	}
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
