// Package program implements the binary on-disk representation of a
// compiled sini program (§4.5): a fixed little-endian layout built
// directly from a compiler.Result, plus the validator pass a loaded
// program must pass before the VM will run it (§4.8).
package program

import "sini/token"

// Magic is the 4-byte header every encoded program starts with.
var Magic = [4]byte{0xFC, 0x53, 0x6B, 0x01}

// Terminator is the single byte that must follow the opcode stream.
const Terminator = 0xFD

// PosEntry is one row of the position table: the pc of an instruction
// and the source location its command/expression came from. File is the
// caller-assigned lexer fileID (lexer.New's second argument) - the
// binary format carries the raw integer only. Resolving it back to a
// path is the host's concern (the CLI keeps the fileID->path table it
// built while compiling `include`s); no separate file-name table is part
// of §4.5's six-field header, so this is the only reading of
// "basefile-index" consistent with that header shape (Open Question,
// decided in DESIGN.md).
type PosEntry struct {
	PC   uint32
	Line int32
	Chr  int32
	File int32
}

// HintEntry is one row of the command-hint table: the pc of a call
// instruction and the index into the debug-strings table naming the
// command invoked there. The VM's stack-trace synthesis on abort walks
// both tables together (§4.6).
type HintEntry struct {
	PC         uint32
	HintString uint32
}

// Program is a fully decoded binary program, ready for the validator and
// then the VM.
type Program struct {
	Strings      []string
	NativeHashes []uint64
	DebugStrings []string
	Positions    []PosEntry
	Hints        []HintEntry
	Code         []byte
	Debug        bool
}

// Result is the shape Encode needs from a compile. compiler.Result has
// the identical field set, so a *compiler.Result value converts to this
// type directly (Result(*res)) without program needing a compile-time
// dependency on the compiler package for that relationship - Validate
// and Disassemble still import compiler directly, since decoding an
// opcode stream's operand widths and call/jump shape is inherently
// compiler.Opcode's concern.
type Result struct {
	Code         []byte
	Strings      []string
	NativeHashes []uint64
	DebugStrings []string
	PCToPos      map[uint32]token.Pos
	PCToNameHint map[uint32]string
}
