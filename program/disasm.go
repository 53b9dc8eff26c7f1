package program

import (
	"fmt"
	"math"
	"strings"

	"sini/compiler"
)

// Disassemble renders p.Code as one line per instruction, annotating
// string/native-call/jump operands with the value they resolve to,
// across the full opcode set and the value-bearing tables this format
// adds (§4.5).
func Disassemble(p *Program) (string, error) {
	var b strings.Builder
	pc := uint32(0)
	for int(pc) < len(p.Code) {
		op := compiler.Opcode(p.Code[pc])
		widths, ok := compiler.OperandWidths(op)
		if !ok {
			return "", fmt.Errorf("program: unknown opcode 0x%02x at pc %d", p.Code[pc], pc)
		}
		fmt.Fprintf(&b, "%6d  %-14s", pc, op)

		operandPC := pc + 1
		operands := make([]uint64, len(widths))
		for i, w := range widths {
			v, err := ReadOperand(p.Code, operandPC, w)
			if err != nil {
				return "", err
			}
			operands[i] = v
			fmt.Fprintf(&b, " %d", v)
			operandPC += uint32(w)
		}

		switch op {
		case compiler.OpPushStr:
			if int(operands[0]) < len(p.Strings) {
				fmt.Fprintf(&b, "  ; %q", p.Strings[operands[0]])
			}
		case compiler.OpPushNum:
			fmt.Fprintf(&b, "  ; %v", math.Float64frombits(operands[0]))
		}
		if hint, ok := hintAt(p, pc); ok {
			fmt.Fprintf(&b, "  ; call %s", hint)
		}

		b.WriteByte('\n')
		pc = operandPC
	}
	return b.String(), nil
}

func hintAt(p *Program, pc uint32) (string, bool) {
	for _, h := range p.Hints {
		if h.PC == pc && int(h.HintString) < len(p.DebugStrings) {
			return p.DebugStrings[h.HintString], true
		}
	}
	return "", false
}
