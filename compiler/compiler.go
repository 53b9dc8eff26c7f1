package compiler

import (
	"strings"

	"sini/ast"
	"sini/symtab"
	"sini/token"
)

// Resolver reads the source of an `include`d path or an `embed(...)`
// literal at compile time (§4.3 include modeling, §4.4 embed). The CLI
// wires a filesystem-backed implementation; tests can use a map.
type Resolver interface {
	Resolve(path string) (string, error)
}

// Result is everything the code generator produced for one compile
// unit: the opcode stream plus the parallel tables the program format
// packages into its binary layout (§4.5's six parallel arrays), the
// pc-to-name-hint table included.
type Result struct {
	Code          []byte
	Strings       []string
	NativeHashes  []uint64
	DebugStrings  []string
	PCToPos       map[uint32]token.Pos
	PCToNameHint  map[uint32]string
}

// Compiler lowers one statement at a time into the emitter's byte
// stream, driven by a symtab.SymbolTable for names/slots/labels. It
// implements both ast.ExprVisitor and ast.StmtVisitor.
type Compiler struct {
	sym            *symtab.SymbolTable
	em             emitter
	resolver       Resolver
	hashFunc       func(s string, seed int64) [4]uint32
	autoNativeHash func(name string) uint64
	natives        map[string]bool // name -> host has installed a callback (isnative)

	strings     []string
	stringIndex map[string]int

	nativeHashes []uint64

	debugStrings []string
	pcToPos      map[uint32]token.Pos
	pcToNameHint map[uint32]string

	ctrl []*ctrlFrame
	repl bool
	err  error
}

// ctrlFrame tracks the compile-time bookkeeping for one open nested
// block construct. Statements arrive flat (begin/mid/end), so the
// compiler keeps its own stack mirroring the parser's, recording the
// label/jump-site state each construct needs to close itself out.
type ctrlFrame struct {
	kind string // "if", "for", "loop", "do", "def", "namespace"

	// if-chain
	pendingFalse    uint32
	hasPendingFalse bool
	endSites        []uint32

	// loops (for/loop/do)
	topPC     uint32
	breakLbl  *symtab.Label
	contLbl   *symtab.Label
	iterList  uint8
	iterIdx   uint8
	hasIdxVar bool

	// def
	jumpOverSite uint32
	defName      string
}

// New creates a compiler over a fresh symbol table. repl enables
// redefinition-replaces-instead-of-errors symtab semantics and makes
// unresolved blocks at end-of-input request more input rather than
// error (mirroring the parser's own REPL mode).
func New(repl bool, resolver Resolver) *Compiler {
	return &Compiler{
		sym:          symtab.New(repl),
		resolver:     resolver,
		natives:      make(map[string]bool),
		stringIndex:  make(map[string]int),
		pcToPos:      make(map[uint32]token.Pos),
		pcToNameHint: make(map[uint32]string),
		repl:         repl,
	}
}

// SetHashFunc installs the compile-time evaluator for `str.hash(s,
// seed)` (§4.4), returning the four 32-bit MurmurHash3_x64_128 words
// per §4.7; the stdlib package's hash implementation is wired in by the
// host once it exists.
func (c *Compiler) SetHashFunc(f func(s string, seed int64) [4]uint32) {
	c.hashFunc = f
}

// SetAutoNativeHashFunc installs the hash function a call to an
// undeclared command name falls back to (§6 "Auto-natives"), instead of
// failing with "undefined command": the host may register the matching
// native under this same hash after compilation, so scripts can
// forward-reference host commands the compiler has never heard of. A
// nil func (the default) keeps undefined commands a compile error.
func (c *Compiler) SetAutoNativeHashFunc(f func(name string) uint64) {
	c.autoNativeHash = f
}

// DeclareNative registers a native command's name hash in the symbol
// table and records that the host has a callback installed for it, so
// `isnative(cmd)` resolves to true at compile time. name may be a
// dotted path (e.g. "str.upper"), in which case intermediate
// namespaces are created under the table's root the way the standard
// library groups itself (§4.7): numeric/int/rand/str/utf8/struct/list/
// pickle, plus the ungrouped universal commands.
func (c *Compiler) DeclareNative(name string, hash uint64, installed bool) {
	c.sym.DeclareNativeQualified(strings.Split(name, "."), hash)
	c.natives[name] = installed
	c.nativeHashes = append(c.nativeHashes, hash)
}

// DeclareOpcode registers a synthetic opcode-command, used for the
// stdlib's thin wrappers around primitive opcodes. name may be dotted
// the same way DeclareNative's is.
func (c *Compiler) DeclareOpcode(name string, op byte, arity int) {
	c.sym.DeclareOpcodeQualified(strings.Split(name, "."), op, arity)
}

// Compile lowers a full statement sequence and returns the accumulated
// result. It may be called repeatedly on a REPL compiler, each call
// extending the same program.
func (c *Compiler) Compile(statements []ast.Statement) (*Result, error) {
	for _, stmt := range statements {
		c.err = nil
		stmt.Accept(c)
		if c.err != nil {
			return nil, c.err
		}
	}
	if len(c.ctrl) > 0 && !c.repl {
		return nil, SemanticError{Message: "unterminated block at end of input"}
	}
	return &Result{
		Code:         append([]byte(nil), c.em.code...),
		Strings:      c.strings,
		NativeHashes: c.nativeHashes,
		DebugStrings: c.debugStrings,
		PCToPos:      c.pcToPos,
		PCToNameHint: c.pcToNameHint,
	}, nil
}

func (c *Compiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *Compiler) top() *ctrlFrame {
	return c.ctrl[len(c.ctrl)-1]
}

func (c *Compiler) push(f *ctrlFrame) {
	c.ctrl = append(c.ctrl, f)
}

func (c *Compiler) pop() *ctrlFrame {
	f := c.ctrl[len(c.ctrl)-1]
	c.ctrl = c.ctrl[:len(c.ctrl)-1]
	return f
}

// nearestDo finds the innermost enclosing "do" ctrlFrame, allowing a
// `while` to appear inside a nested if within the do-while's body.
func (c *Compiler) nearestDo() *ctrlFrame {
	for i := len(c.ctrl) - 1; i >= 0; i-- {
		if c.ctrl[i].kind == "do" {
			return c.ctrl[i]
		}
	}
	return nil
}

// stringConst interns s in the string constant pool and returns its
// index.
func (c *Compiler) stringConst(s string) uint32 {
	if i, ok := c.stringIndex[s]; ok {
		return uint32(i)
	}
	i := len(c.strings)
	c.strings = append(c.strings, s)
	c.stringIndex[s] = i
	return uint32(i)
}

// emitLabelJump emits a jump-family instruction targeting lbl: a
// placeholder if lbl is still unresolved (queued for later patching), or
// a direct jump if lbl already has a known pc.
func (c *Compiler) emitLabelJump(op Opcode, lbl *symtab.Label) {
	if lbl.Resolved() {
		if _, err := c.em.emit(op, uint64(lbl.PC())); err != nil {
			c.fail(err)
		}
		return
	}
	site, err := c.em.emitJumpPlaceholder(op)
	if err != nil {
		c.fail(err)
		return
	}
	if pc, ok := lbl.AddSite(int(site)); ok {
		c.em.patch(site, pc)
	}
}

// resolveLabel assigns lbl's pc and patches every site accumulated while
// it was pending.
func (c *Compiler) resolveLabel(lbl *symtab.Label, pc uint32) {
	for _, site := range lbl.Resolve(pc) {
		c.em.patch(uint32(site), pc)
	}
}

// varRef returns the (frameDelta, slot) operand pair for a variable
// entry, relative to the frame currently being compiled.
func (c *Compiler) varRef(entry *symtab.Entry) (uint8, uint8) {
	delta := c.sym.CurrentFrame().Depth - entry.Frame
	return uint8(delta), uint8(entry.Index)
}

// compileExpr compiles e so that exactly one value is left on the
// stack (the "create" purpose, §4.4) - the default for every expression
// position except a bare statement or a store target.
func (c *Compiler) compileExpr(e ast.Expression) {
	e.Accept(c)
}

// compileForEffect compiles e and discards its value (the "empty"
// purpose), used for bare expression statements.
func (c *Compiler) compileForEffect(e ast.Expression) {
	c.compileExpr(e)
	if c.err != nil {
		return
	}
	if _, err := c.em.emit(OpPop); err != nil {
		c.fail(err)
	}
}

// compileInto compiles e and stores it directly into slot (the "into"
// purpose is approximated here as evaluate-then-store rather than
// avoiding the intermediate stack push - see DESIGN.md).
func (c *Compiler) compileInto(e ast.Expression, slot uint8) {
	c.compileExpr(e)
	if c.err != nil {
		return
	}
	if _, err := c.em.emitVarRef(OpSetVar, 0, slot); err != nil {
		c.fail(err)
	}
}
