package program

import (
	"fmt"

	"sini/compiler"
)

// Validate decodes every instruction in p.Code and checks every index
// and jump/call target it carries, per §4.5's two-pass validator: the
// first pass walks the stream recording instruction boundaries and every
// jump/call site's required target class; the second pass checks each
// recorded need against what is actually at that target.
func Validate(p *Program) error {
	boundaries := make(map[uint32]compiler.Opcode)

	type pendingTarget struct {
		fromPC   uint32
		target   uint32
		wantCall bool // true: must land on OpCmdHead; false: any instruction boundary
	}
	var pending []pendingTarget

	pc := uint32(0)
	for int(pc) < len(p.Code) {
		op := compiler.Opcode(p.Code[pc])
		widths, ok := compiler.OperandWidths(op)
		if !ok {
			return fmt.Errorf("program: unknown opcode 0x%02x at pc %d", p.Code[pc], pc)
		}
		boundaries[pc] = op

		opStart := pc
		operandPC := pc + 1
		operands := make([]uint64, len(widths))
		for i, w := range widths {
			v, err := ReadOperand(p.Code, operandPC, w)
			if err != nil {
				return fmt.Errorf("program: pc %d (%s): %w", opStart, op, err)
			}
			operands[i] = v
			operandPC += uint32(w)
		}

		switch {
		case compiler.IsJumpFamily(op):
			pending = append(pending, pendingTarget{fromPC: opStart, target: uint32(operands[0])})
		case compiler.IsCallFamily(op):
			pending = append(pending, pendingTarget{fromPC: opStart, target: uint32(operands[0]), wantCall: true})
		}

		if op == compiler.OpPushStr {
			if int(operands[0]) >= len(p.Strings) {
				return fmt.Errorf("program: pc %d: string index %d out of range (have %d)", opStart, operands[0], len(p.Strings))
			}
		}
		if op == compiler.OpCallNative {
			if !hasHash(p.NativeHashes, operands[0]) {
				return fmt.Errorf("program: pc %d: native hash %#x not present in key table", opStart, operands[0])
			}
		}

		pc = operandPC
	}
	if int(pc) != len(p.Code) {
		return fmt.Errorf("program: final instruction overruns code length")
	}

	for _, t := range pending {
		// REPL-mode programs may still carry an unpatched placeholder
		// for a command whose body has not arrived yet; the VM's own
		// convention (§4.6) is to treat that as "need more input", not
		// a validation failure.
		if t.target == 0xFFFFFFFF {
			continue
		}
		op, ok := boundaries[t.target]
		if !ok {
			return fmt.Errorf("program: pc %d: target %d is not an instruction boundary", t.fromPC, t.target)
		}
		if t.wantCall && op != compiler.OpCmdHead {
			return fmt.Errorf("program: pc %d: call target %d is %s, not a command head", t.fromPC, t.target, op)
		}
	}

	for i, h := range p.Hints {
		if int(h.HintString) >= len(p.DebugStrings) {
			return fmt.Errorf("program: command-hint entry %d: debug string index %d out of range (have %d)", i, h.HintString, len(p.DebugStrings))
		}
		if _, ok := boundaries[h.PC]; !ok {
			return fmt.Errorf("program: command-hint entry %d: pc %d is not an instruction boundary", i, h.PC)
		}
	}
	for i, pe := range p.Positions {
		if _, ok := boundaries[pe.PC]; !ok {
			return fmt.Errorf("program: position entry %d: pc %d is not an instruction boundary", i, pe.PC)
		}
	}

	return nil
}

func hasHash(hashes []uint64, h uint64) bool {
	for _, x := range hashes {
		if x == h {
			return true
		}
	}
	return false
}

func ReadOperand(code []byte, at uint32, width int) (uint64, error) {
	if int(at)+width > len(code) {
		return 0, fmt.Errorf("truncated operand (want %d byte(s) at %d, have %d total)", width, at, len(code))
	}
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(code[int(at)+i]) << (8 * i)
	}
	return v, nil
}
