// Package compiler lowers a parsed statement sequence into the program's
// opcode byte stream (§4.4). It walks the ast package's visitor
// interfaces, asks a symtab.SymbolTable for slots and labels, and emits
// into a program.Program under construction.
package compiler

import "fmt"

// Opcode is one instruction tag, encoded as a single byte (§4.4 opcode
// encoding).
type Opcode byte

const (
	// stack / constants
	OpNop Opcode = iota
	OpPushNil
	OpPushNum   // 8-byte IEEE-754 immediate
	OpPushStr   // 4-byte index into the program's string constant pool
	OpPop       // discard top of stack (purpose=empty)
	OpDup       // duplicate top of stack

	// variables: operand is a 2-byte (frame-delta uint8, slot uint8) pair
	OpGetVar
	OpSetVar

	// arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpPos

	// string / concat
	OpConcat

	// comparison (only `<` and `<=` are primary; `>`/`>=` are synthesized
	// by swapping operands at emit time, per §4.4)
	OpLess
	OpLessEq
	OpEqual
	OpNotEqual

	// boolean
	OpNot
	OpTruthy // coerces top-of-stack to its truthiness for jump conditions

	// list / index / slice
	OpMakeList  // 2-byte element count, pops that many and pushes a list
	OpIndexGet
	OpIndexSet
	OpSliceGet
	OpSliceSet
	OpListSize
	OpListRef // &name - duplicate an identity reference to a list value

	// control flow: operand is a 4-byte little-endian program-counter target
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue

	// calls
	OpCmdHead    // 1-byte declared arity, 1-byte has-rest flag, 1-byte lexical depth; marks a callable command's entry point
	OpCallLocal  // 4-byte target pc, 1-byte argc, pushes a call-frame
	OpCallNative // 8-byte hash, 1-byte argc
	OpTailCall   // 4-byte target pc, 1-byte argc, reuses the current frame
	OpReturn
	OpReturnNil

	// enums / compile-time constants fold away entirely - no runtime opcode
	// needed beyond OpPushNum for their resolved value.

	OpHalt
)

// opInfo describes one opcode's human-readable name and the byte width
// of each of its operands, in the order they are encoded (§4.4).
type opInfo struct {
	Name    string
	Widths  []int // in bytes; len(Widths) == number of operands
}

var infoTable = map[Opcode]opInfo{
	OpNop:         {"nop", nil},
	OpPushNil:     {"push_nil", nil},
	OpPushNum:     {"push_num", []int{8}},
	OpPushStr:     {"push_str", []int{4}},
	OpPop:         {"pop", nil},
	OpDup:         {"dup", nil},
	OpGetVar:      {"get_var", []int{1, 1}},
	OpSetVar:      {"set_var", []int{1, 1}},
	OpAdd:         {"add", nil},
	OpSub:         {"sub", nil},
	OpMul:         {"mul", nil},
	OpDiv:         {"div", nil},
	OpMod:         {"mod", nil},
	OpPow:         {"pow", nil},
	OpNeg:         {"neg", nil},
	OpPos:         {"pos", nil},
	OpConcat:      {"concat", nil},
	OpLess:        {"less", nil},
	OpLessEq:      {"less_eq", nil},
	OpEqual:       {"equal", nil},
	OpNotEqual:    {"not_equal", nil},
	OpNot:         {"not", nil},
	OpTruthy:      {"truthy", nil},
	OpMakeList:    {"make_list", []int{2}},
	OpIndexGet:    {"index_get", nil},
	OpIndexSet:    {"index_set", nil},
	OpSliceGet:    {"slice_get", nil},
	OpSliceSet:    {"slice_set", nil},
	OpListSize:    {"list_size", nil},
	OpListRef:     {"list_ref", nil},
	OpJump:        {"jump", []int{4}},
	OpJumpIfFalse: {"jump_if_false", []int{4}},
	OpJumpIfTrue:  {"jump_if_true", []int{4}},
	OpCmdHead:     {"cmd_head", []int{1, 1, 1}},
	OpCallLocal:   {"call_local", []int{4, 1}},
	OpCallNative:  {"call_native", []int{8, 1}},
	OpTailCall:    {"tail_call", []int{4, 1}},
	OpReturn:      {"return", nil},
	OpReturnNil:   {"return_nil", nil},
	OpHalt:        {"halt", nil},
}

func infoFor(op Opcode) (opInfo, error) {
	info, ok := infoTable[op]
	if !ok {
		return opInfo{}, fmt.Errorf("compiler: opcode %d has no definition", op)
	}
	return info, nil
}

func (op Opcode) String() string {
	if info, ok := infoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("opcode(%d)", byte(op))
}

// OperandWidths reports the byte width of each operand op expects, in
// encoding order, so other packages (program's validator/disassembler,
// the VM's decode loop) can walk the instruction stream without
// duplicating infoTable. ok is false for an unrecognized byte.
func OperandWidths(op Opcode) (widths []int, ok bool) {
	info, found := infoTable[op]
	if !found {
		return nil, false
	}
	return info.Widths, true
}

// IsJumpFamily reports whether op's first operand is a 4-byte program
// counter that must land on a valid instruction boundary (§4.8
// validator requirement); call-family opcodes additionally require that
// boundary to be a command-head.
func IsJumpFamily(op Opcode) bool {
	switch op {
	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		return true
	}
	return false
}

// IsCallFamily reports whether op's first operand is a 4-byte program
// counter that must specifically land on an OpCmdHead instruction.
func IsCallFamily(op Opcode) bool {
	switch op {
	case OpCallLocal, OpTailCall:
		return true
	}
	return false
}
