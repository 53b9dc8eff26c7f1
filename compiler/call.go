package compiler

import (
	"strconv"

	"sini/ast"
	"sini/lexer"
	"sini/parser"
	"sini/symtab"
	"sini/token"
)

// VisitCall lowers a command invocation. A handful of dotted names are
// compile-time special forms handled before any symbol lookup happens,
// since they are meaningful even when no such command is declared
// (§4.4): `pick`, `embed`, `isnative`, `str.hash`.
func (c *Compiler) VisitCall(e *ast.CallExpr) any {
	if handled := c.compileSpecialForm(e); handled {
		return nil
	}

	entry, ok := c.sym.Lookup(e.Cmd)
	if !ok {
		if c.autoNativeHash != nil {
			c.compileAutoNativeCall(e)
			return nil
		}
		c.fail(SemanticError{Message: "undefined command '" + joinDots(e.Cmd) + "'"})
		return nil
	}

	switch entry.Kind {
	case symtab.EntryOpcodeCommand:
		if len(e.Params) != entry.Arity {
			c.fail(SemanticError{Message: "'" + joinDots(e.Cmd) + "' expects " + strconv.Itoa(entry.Arity) + " argument(s)"})
			return nil
		}
		c.compileCallArgs(e.Params)
		if c.err != nil {
			return nil
		}
		pc, err := c.em.emit(Opcode(entry.Op))
		if err != nil {
			c.fail(err)
			return nil
		}
		c.recordCallSite(pc, e.Pos(), e.Cmd)
	case symtab.EntryLocalCommand:
		c.compileCallArgs(e.Params)
		if c.err != nil {
			return nil
		}
		pc := c.emitCallJump(OpCallLocal, entry.Label, uint64(len(e.Params)))
		c.recordCallSite(pc, e.Pos(), e.Cmd)
	case symtab.EntryNativeCommand:
		c.compileCallArgs(e.Params)
		if c.err != nil {
			return nil
		}
		pc, err := c.em.emit(OpCallNative, entry.Hash, uint64(len(e.Params)))
		if err != nil {
			c.fail(err)
			return nil
		}
		c.recordCallSite(pc, e.Pos(), e.Cmd)
	default:
		c.fail(SemanticError{Message: "'" + joinDots(e.Cmd) + "' is not callable"})
	}
	return nil
}

// compileAutoNativeCall lowers a call to a command name with no symbol
// table entry at all, the auto-native fallback (§6): the call compiles
// the same way an ordinary native call does, except the hash comes from
// autoNativeHash instead of a declared Entry, so a host that installs
// the matching callback later (under the same hash) is still reachable.
func (c *Compiler) compileAutoNativeCall(e *ast.CallExpr) {
	c.compileCallArgs(e.Params)
	if c.err != nil {
		return
	}
	hash := c.autoNativeHash(joinDots(e.Cmd))
	known := false
	for _, h := range c.nativeHashes {
		if h == hash {
			known = true
			break
		}
	}
	if !known {
		c.nativeHashes = append(c.nativeHashes, hash)
	}
	pc, err := c.em.emit(OpCallNative, hash, uint64(len(e.Params)))
	if err != nil {
		c.fail(err)
		return
	}
	c.recordCallSite(pc, e.Pos(), e.Cmd)
}

// recordCallSite remembers a call instruction's source position and the
// dotted command name invoked there, feeding the program format's
// position/command-hint debug tables (§4.5) so the VM can synthesize a
// stack trace on abort (§4.6).
func (c *Compiler) recordCallSite(pc uint32, pos token.Pos, cmd []string) {
	c.pcToPos[pc] = pos
	c.pcToNameHint[pc] = joinDots(cmd)
}

// compileCallArgs compiles each call argument left to right, one
// expression per parameter as the parser already split them.
func (c *Compiler) compileCallArgs(params []ast.Expression) {
	for _, p := range params {
		c.compileExpr(p)
		if c.err != nil {
			return
		}
	}
}

// emitCallJump is emitLabelJump's call-opcode counterpart: the operand
// layout carries a trailing argc after the 4-byte target, so a direct
// jump (label already resolved) must still encode it. Returns the pc of
// the call instruction itself (not the target), for debug-table bookkeeping.
func (c *Compiler) emitCallJump(op Opcode, lbl *symtab.Label, argc uint64) uint32 {
	if lbl.Resolved() {
		pc, err := c.em.emit(op, uint64(lbl.PC()), argc)
		if err != nil {
			c.fail(err)
		}
		return pc
	}
	site, err := c.em.emitJumpPlaceholder(op, argc)
	if err != nil {
		c.fail(err)
		return 0
	}
	if pc, ok := lbl.AddSite(int(site)); ok {
		c.em.patch(site, pc)
	}
	return site - 1 // the opcode byte precedes its operand
}

// compileSpecialForm handles the compile-time forms that are meaningful
// regardless of what is or isn't declared in scope (§4.4). It reports
// handled=true (even on error) whenever the name matches one of these
// forms, so the caller never falls through to an ordinary symbol lookup
// for them.
func (c *Compiler) compileSpecialForm(e *ast.CallExpr) (handled bool) {
	switch {
	case len(e.Cmd) == 1 && e.Cmd[0] == "pick" && len(e.Params) == 3:
		c.compilePick(e.Params[0], e.Params[1], e.Params[2])
		return true
	case len(e.Cmd) == 1 && e.Cmd[0] == "embed" && len(e.Params) == 1:
		c.compileEmbed(e.Params[0])
		return true
	case len(e.Cmd) == 1 && e.Cmd[0] == "isnative" && len(e.Params) == 1:
		c.compileIsNative(e.Params[0])
		return true
	case len(e.Cmd) == 2 && e.Cmd[0] == "str" && e.Cmd[1] == "hash" && len(e.Params) == 2:
		c.compileStrHash(e.Params[0], e.Params[1])
		return true
	}
	return false
}

// compilePick lowers `pick(cond, t, f)` to a conditional, never
// evaluating the untaken branch.
func (c *Compiler) compilePick(cond, t, f ast.Expression) {
	c.compileExpr(cond)
	if c.err != nil {
		return
	}
	falseSite, err := c.em.emitJumpPlaceholder(OpJumpIfFalse)
	if err != nil {
		c.fail(err)
		return
	}
	c.compileExpr(t)
	if c.err != nil {
		return
	}
	endSite, err := c.em.emitJumpPlaceholder(OpJump)
	if err != nil {
		c.fail(err)
		return
	}
	c.em.patch(falseSite, c.em.pc())
	c.compileExpr(f)
	if c.err != nil {
		return
	}
	c.em.patch(endSite, c.em.pc())
}

// compileEmbed lowers `embed("path")`: the literal's file is read
// through the compiler's Resolver at compile time and its contents
// become a string constant, so nothing is read at run time.
func (c *Compiler) compileEmbed(pathArg ast.Expression) {
	lit, ok := pathArg.(*ast.StrExpr)
	if !ok {
		c.fail(SemanticError{Message: "embed() requires a literal string path"})
		return
	}
	if c.resolver == nil {
		c.fail(SemanticError{Message: "embed() requires a resolver"})
		return
	}
	content, err := c.resolver.Resolve(lit.Value)
	if err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return
	}
	idx := c.stringConst(content)
	if _, err := c.em.emit(OpPushStr, uint64(idx)); err != nil {
		c.fail(err)
	}
}

// compileIsNative lowers `isnative(cmd)`: true only if the host
// installed a callback for that literal command name, per
// DeclareNative's `installed` flag.
func (c *Compiler) compileIsNative(cmdArg ast.Expression) {
	lit, ok := cmdArg.(*ast.StrExpr)
	if !ok {
		c.fail(SemanticError{Message: "isnative() requires a literal string"})
		return
	}
	val := 0.0
	if c.natives[lit.Value] {
		val = 1.0
	}
	if _, err := c.em.emitFloat(val); err != nil {
		c.fail(err)
	}
}

// compileStrHash lowers `str.hash(s, seed)`, both arguments literal, by
// calling the hash function installed via SetHashFunc and emitting its
// four 32-bit words as a list literal (§4.7), the same shape VisitList
// builds for an ordinary `[...]` literal.
func (c *Compiler) compileStrHash(strArg, seedArg ast.Expression) {
	s, ok := strArg.(*ast.StrExpr)
	if !ok {
		c.fail(SemanticError{Message: "str.hash() requires a literal string"})
		return
	}
	seed, ok := seedArg.(*ast.NumExpr)
	if !ok {
		c.fail(SemanticError{Message: "str.hash() requires a literal numeric seed"})
		return
	}
	if c.hashFunc == nil {
		c.fail(SemanticError{Message: "str.hash() requires a hash function"})
		return
	}
	words := c.hashFunc(s.Value, int64(seed.Value))
	for _, w := range words {
		if _, err := c.em.emitFloat(float64(w)); err != nil {
			c.fail(err)
			return
		}
	}
	if _, err := c.em.emit(OpMakeList, uint64(len(words))); err != nil {
		c.fail(err)
	}
}

// parseSource lexes and parses a complete source string for `include`
// (§4.3), producing the statement sequence to compile inline.
func (c *Compiler) parseSource(src string) ([]ast.Statement, error) {
	toks, err := lexer.New(src, 0).Scan()
	if err != nil {
		return nil, err
	}
	return parser.New(toks, false).Parse()
}
