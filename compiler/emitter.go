package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
)

// emitter accumulates the opcode byte stream. Widths are little-endian
// throughout (§4.4 "4-byte little-endian jump/load locations").
type emitter struct {
	code []byte
}

// pc is the address a jump/call would land on if emitted right now.
func (e *emitter) pc() uint32 { return uint32(len(e.code)) }

// emit appends one instruction: the opcode byte followed by its operands
// encoded per infoTable's declared widths.
func (e *emitter) emit(op Opcode, operands ...uint64) (uint32, error) {
	info, err := infoFor(op)
	if err != nil {
		return 0, err
	}
	if len(operands) != len(info.Widths) {
		return 0, fmt.Errorf("compiler: %s expects %d operand(s), got %d", info.Name, len(info.Widths), len(operands))
	}
	at := e.pc()
	e.code = append(e.code, byte(op))
	for i, width := range info.Widths {
		e.appendWidth(operands[i], width)
	}
	return at, nil
}

func (e *emitter) appendWidth(v uint64, width int) {
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	}
	e.code = append(e.code, buf...)
}

// emitFloat emits OpPushNum with its 8-byte IEEE-754 operand.
func (e *emitter) emitFloat(v float64) (uint32, error) {
	return e.emit(OpPushNum, math.Float64bits(v))
}

// emitVarRef emits a variable-reference opcode with its (frame,index)
// operand pair, each one byte (§3 "two-byte variable references").
func (e *emitter) emitVarRef(op Opcode, frameDelta, slot uint8) (uint32, error) {
	return e.emit(op, uint64(frameDelta), uint64(slot))
}

// emitJumpPlaceholder emits a jump/call opcode with a placeholder 4-byte
// target of 0xFFFFFFFF and returns the byte offset of that operand, for
// later patching (§4.4 label patching). Trailing operands (e.g. argc)
// are passed through unchanged.
func (e *emitter) emitJumpPlaceholder(op Opcode, trailing ...uint64) (site uint32, err error) {
	operands := append([]uint64{uint64(0xFFFFFFFF)}, trailing...)
	at, err := e.emit(op, operands...)
	if err != nil {
		return 0, err
	}
	return at + 1, nil // +1 skips the opcode byte itself
}

// patch overwrites the 4-byte operand at site with target.
func (e *emitter) patch(site uint32, target uint32) {
	binary.LittleEndian.PutUint32(e.code[site:site+4], target)
}
