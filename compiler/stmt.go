package compiler

import (
	"sini/ast"
	"sini/symtab"
)

// VisitBreak lowers `break` to a jump at the nearest enclosing loop's
// break label.
func (c *Compiler) VisitBreak(s *ast.BreakStmt) any {
	lbl, ok := c.sym.LblBreak()
	if !ok {
		c.fail(SemanticError{Message: "break outside a loop"})
		return nil
	}
	c.emitLabelJump(OpJump, lbl)
	return nil
}

// VisitContinue lowers `continue` to a jump at the nearest enclosing
// loop's continue label.
func (c *Compiler) VisitContinue(s *ast.ContinueStmt) any {
	lbl, ok := c.sym.LblContinue()
	if !ok {
		c.fail(SemanticError{Message: "continue outside a loop"})
		return nil
	}
	c.emitLabelJump(OpJump, lbl)
	return nil
}

// VisitDeclare pre-registers a local command name with no opcode
// emitted: pure symbol-table bookkeeping for a forward reference.
func (c *Compiler) VisitDeclare(s *ast.DeclareStmt) any {
	c.sym.DeclareCommand(s.Name)
	return nil
}

// VisitDefBegin emits a jump over the command body (so control never
// falls into it by accident), declares the name if it was not already
// forward-declared, resolves its label to the body's first instruction,
// opens a fresh frame for the body, and binds its parameters into the
// first N slots (§4.3/§4.4's calling convention: the caller pushes argc
// values that land in slots 0..argc-1 before control transfers here).
func (c *Compiler) VisitDefBegin(s *ast.DefBeginStmt) any {
	site, err := c.em.emitJumpPlaceholder(OpJump)
	if err != nil {
		c.fail(err)
		return nil
	}
	bodyPC := c.em.pc()
	hasRest := uint64(0)
	if s.Rest != "" {
		hasRest = 1
	}
	bodyDepth := uint64(c.sym.CurrentFrame().Depth + 1)
	if _, err := c.em.emit(OpCmdHead, uint64(len(s.Params)), hasRest, bodyDepth); err != nil {
		c.fail(err)
		return nil
	}

	if _, ok := c.sym.Lookup([]string{s.Name}); !ok {
		c.sym.DeclareCommand(s.Name)
	}
	for _, site := range c.sym.DefineCommand(s.Name, bodyPC) {
		c.em.patch(uint32(site), bodyPC)
	}

	c.sym.PushFrame()
	c.sym.PushUniqueNamespace()
	for _, p := range s.Params {
		if _, err := c.sym.AddVariable(p); err != nil {
			c.fail(err)
			return nil
		}
	}
	if s.Rest != "" {
		if _, err := c.sym.AddVariable(s.Rest); err != nil {
			c.fail(err)
			return nil
		}
	}

	c.push(&ctrlFrame{kind: "def", jumpOverSite: site, defName: s.Name})
	return nil
}

// VisitDefEnd emits the implicit `return nil` a falling-through body
// gets, closes the frame/scope, and patches the jump-over from
// VisitDefBegin to land here.
func (c *Compiler) VisitDefEnd(s *ast.DefEndStmt) any {
	if _, err := c.em.emit(OpReturnNil); err != nil {
		c.fail(err)
		return nil
	}
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return nil
	}
	if err := c.sym.PopFrame(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return nil
	}
	f := c.pop()
	c.em.patch(f.jumpOverSite, c.em.pc())
	return nil
}

// VisitDoWhileBegin opens a `do ... while cond ... end` / `do ... end`
// loop. Continue targets the loop's top; break is resolved at the end
// or by an in-body `while cond` testing false.
func (c *Compiler) VisitDoWhileBegin(s *ast.DoWhileBeginStmt) any {
	top := c.em.pc()
	breakLbl := symtab.NewLabel("$break")
	contLbl := symtab.NewLabel("$continue")
	c.resolveLabel(contLbl, top)
	c.sym.PushUniqueNamespace()
	sc := c.sym.CurrentScope()
	sc.BreakLabel, sc.ContinueLabel = breakLbl, contLbl
	c.push(&ctrlFrame{kind: "do", topPC: top, breakLbl: breakLbl, contLbl: contLbl})
	return nil
}

// VisitDoWhileMid compiles the `while cond` test: if false, jump to the
// loop's break label, skipping the remainder of the body; otherwise
// fall through and keep executing it.
func (c *Compiler) VisitDoWhileMid(s *ast.DoWhileMidStmt) any {
	f := c.nearestDo()
	if f == nil {
		c.fail(SemanticError{Message: "while outside a do block"})
		return nil
	}
	c.compileExpr(s.Cond)
	if c.err != nil {
		return nil
	}
	c.emitLabelJump(OpJumpIfFalse, f.breakLbl)
	return nil
}

// VisitDoWhileEnd jumps back to the loop's top and resolves break.
func (c *Compiler) VisitDoWhileEnd(s *ast.DoWhileEndStmt) any {
	f := c.pop()
	if _, err := c.em.emit(OpJump, uint64(f.topPC)); err != nil {
		c.fail(err)
		return nil
	}
	c.resolveLabel(f.breakLbl, c.em.pc())
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
	}
	return nil
}

// VisitEnum folds each member to a compile-time constant: the previous
// member's value plus one when no initializer is given, or the
// initializer's already-folded numeric value otherwise (§4.4 "enum
// values may be computed at compile time"). No opcode is emitted.
func (c *Compiler) VisitEnum(s *ast.EnumStmt) any {
	next := 0.0
	for _, m := range s.Members {
		val := next
		if m.Value != nil {
			num, ok := m.Value.(*ast.NumExpr)
			if !ok {
				c.fail(SemanticError{Message: "enum value must be a compile-time constant"})
				return nil
			}
			val = num.Value
		}
		c.sym.DeclareEnumValue(m.Name, val)
		next = val + 1
	}
	return nil
}

// VisitForBegin lowers `for name[, index] : iterable ... end`. The
// iterable is evaluated once into a temp; the index counter is a second
// temp, compared against the list's size (recomputed each pass rather
// than cached in a third temp - a documented simplification over a
// fully optimizing lowering) at the loop top.
func (c *Compiler) VisitForBegin(s *ast.ForBeginStmt) any {
	c.sym.PushUniqueNamespace()

	listSlot, err := c.sym.AddTemp()
	if err != nil {
		c.fail(err)
		return nil
	}
	c.compileInto(s.Iterable, uint8(listSlot))
	if c.err != nil {
		return nil
	}

	idxSlot, err := c.sym.AddTemp()
	if err != nil {
		c.fail(err)
		return nil
	}
	if _, err := c.em.emitFloat(0); err != nil {
		c.fail(err)
		return nil
	}
	if _, err := c.em.emitVarRef(OpSetVar, 0, uint8(idxSlot)); err != nil {
		c.fail(err)
		return nil
	}

	breakLbl := symtab.NewLabel("$break")
	contLbl := symtab.NewLabel("$continue")
	top := c.em.pc()
	c.resolveLabel(contLbl, top)

	c.em.emitVarRef(OpGetVar, 0, uint8(idxSlot))
	c.em.emitVarRef(OpGetVar, 0, uint8(listSlot))
	c.em.emit(OpListSize)
	c.em.emit(OpLess)
	c.emitLabelJump(OpJumpIfFalse, breakLbl)

	nameEntry, err := c.sym.AddVariable(s.Name)
	if err != nil {
		c.fail(err)
		return nil
	}
	c.em.emitVarRef(OpGetVar, 0, uint8(listSlot))
	c.em.emitVarRef(OpGetVar, 0, uint8(idxSlot))
	c.em.emit(OpIndexGet)
	nd, ni := c.varRef(nameEntry)
	c.em.emitVarRef(OpSetVar, nd, ni)

	if s.Index != "" {
		idxEntry, err := c.sym.AddVariable(s.Index)
		if err != nil {
			c.fail(err)
			return nil
		}
		c.em.emitVarRef(OpGetVar, 0, uint8(idxSlot))
		id, ii := c.varRef(idxEntry)
		c.em.emitVarRef(OpSetVar, id, ii)
	}

	sc := c.sym.CurrentScope()
	sc.BreakLabel, sc.ContinueLabel = breakLbl, contLbl
	c.push(&ctrlFrame{kind: "for", topPC: top, breakLbl: breakLbl, contLbl: contLbl,
		iterList: uint8(listSlot), iterIdx: uint8(idxSlot)})
	return nil
}

// VisitForEnd increments the counter, jumps back to the loop top, and
// resolves break.
func (c *Compiler) VisitForEnd(s *ast.ForEndStmt) any {
	f := c.pop()
	c.em.emitVarRef(OpGetVar, 0, f.iterIdx)
	c.em.emitFloat(1)
	c.em.emit(OpAdd)
	c.em.emitVarRef(OpSetVar, 0, f.iterIdx)
	if _, err := c.em.emit(OpJump, uint64(f.topPC)); err != nil {
		c.fail(err)
		return nil
	}
	c.resolveLabel(f.breakLbl, c.em.pc())
	c.sym.ReleaseTemp(int(f.iterList))
	c.sym.ReleaseTemp(int(f.iterIdx))
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
	}
	return nil
}

// VisitLoopBegin opens an unconditional `loop ... end`, exited only by
// break or return.
func (c *Compiler) VisitLoopBegin(s *ast.LoopBeginStmt) any {
	c.sym.PushUniqueNamespace()
	top := c.em.pc()
	breakLbl := symtab.NewLabel("$break")
	contLbl := symtab.NewLabel("$continue")
	c.resolveLabel(contLbl, top)
	sc := c.sym.CurrentScope()
	sc.BreakLabel, sc.ContinueLabel = breakLbl, contLbl
	c.push(&ctrlFrame{kind: "loop", topPC: top, breakLbl: breakLbl, contLbl: contLbl})
	return nil
}

func (c *Compiler) VisitLoopEnd(s *ast.LoopEndStmt) any {
	f := c.pop()
	if _, err := c.em.emit(OpJump, uint64(f.topPC)); err != nil {
		c.fail(err)
		return nil
	}
	c.resolveLabel(f.breakLbl, c.em.pc())
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
	}
	return nil
}

// VisitGoto jumps to a named label within the current frame, forward or
// backward.
func (c *Compiler) VisitGoto(s *ast.GotoStmt) any {
	lbl := c.sym.CurrentFrame().Label(s.Name)
	c.emitLabelJump(OpJump, lbl)
	return nil
}

// VisitLabel declares a named jump target at the current pc.
func (c *Compiler) VisitLabel(s *ast.LabelStmt) any {
	lbl := c.sym.CurrentFrame().Label(s.Name)
	c.resolveLabel(lbl, c.em.pc())
	return nil
}

// VisitIfBegin compiles the condition and reserves the "jump past this
// branch if false" site, to be patched once the next branch (or the
// chain's end) is known.
func (c *Compiler) VisitIfBegin(s *ast.IfBeginStmt) any {
	c.compileExpr(s.Cond)
	if c.err != nil {
		return nil
	}
	site, err := c.em.emitJumpPlaceholder(OpJumpIfFalse)
	if err != nil {
		c.fail(err)
		return nil
	}
	c.sym.PushUniqueNamespace()
	c.push(&ctrlFrame{kind: "if", pendingFalse: site, hasPendingFalse: true})
	return nil
}

// VisitIfCond closes the previous branch (jump to the chain's end, then
// patch its false-jump to land here) and opens the elseif's own
// condition/branch.
func (c *Compiler) VisitIfCond(s *ast.IfCondStmt) any {
	f := c.top()
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return nil
	}
	endSite, err := c.em.emitJumpPlaceholder(OpJump)
	if err != nil {
		c.fail(err)
		return nil
	}
	f.endSites = append(f.endSites, endSite)
	if f.hasPendingFalse {
		c.em.patch(f.pendingFalse, c.em.pc())
	}

	c.compileExpr(s.Cond)
	if c.err != nil {
		return nil
	}
	site, err := c.em.emitJumpPlaceholder(OpJumpIfFalse)
	if err != nil {
		c.fail(err)
		return nil
	}
	f.pendingFalse = site
	f.hasPendingFalse = true
	c.sym.PushUniqueNamespace()
	return nil
}

// VisitIfElse closes the previous branch the same way as VisitIfCond but
// opens an always-taken else branch instead of a new condition.
func (c *Compiler) VisitIfElse(s *ast.IfElseStmt) any {
	f := c.top()
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return nil
	}
	endSite, err := c.em.emitJumpPlaceholder(OpJump)
	if err != nil {
		c.fail(err)
		return nil
	}
	f.endSites = append(f.endSites, endSite)
	if f.hasPendingFalse {
		c.em.patch(f.pendingFalse, c.em.pc())
	}
	f.hasPendingFalse = false
	c.sym.PushUniqueNamespace()
	return nil
}

// VisitIfEnd closes the whole chain: patch the final pending false-jump
// (if the chain has no `else`) and every branch's "jump to end".
func (c *Compiler) VisitIfEnd(s *ast.IfEndStmt) any {
	f := c.pop()
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return nil
	}
	here := c.em.pc()
	if f.hasPendingFalse {
		c.em.patch(f.pendingFalse, here)
	}
	for _, site := range f.endSites {
		c.em.patch(site, here)
	}
	return nil
}

// VisitInclude compiles another source's statements inline, within a
// fresh anonymous namespace immediately `using`d by the current one -
// the same lexical-include model PushUniqueNamespace gives `def` bodies
// (§4.3).
func (c *Compiler) VisitInclude(s *ast.IncludeStmt) any {
	if c.resolver == nil {
		c.fail(SemanticError{Message: "include requires a resolver"})
		return nil
	}
	src, err := c.resolver.Resolve(s.Path)
	if err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return nil
	}
	stmts, err := c.parseSource(src)
	if err != nil {
		c.fail(SemanticError{Message: err.Error()})
		return nil
	}
	c.sym.PushUniqueNamespace()
	for _, stmt := range stmts {
		stmt.Accept(c)
		if c.err != nil {
			return nil
		}
	}
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
	}
	return nil
}

func (c *Compiler) VisitNamespaceBegin(s *ast.NamespaceBeginStmt) any {
	c.sym.PushNamespace([]string{s.Name})
	c.push(&ctrlFrame{kind: "namespace"})
	return nil
}

func (c *Compiler) VisitNamespaceEnd(s *ast.NamespaceEndStmt) any {
	c.pop()
	if err := c.sym.PopScope(); err != nil {
		c.fail(SemanticError{Message: err.Error()})
	}
	return nil
}

// VisitReturn lowers `return`, detecting the tail-call shape: a bare
// call to a local command as the returned value reuses the current
// frame instead of pushing a new one (§4.4).
func (c *Compiler) VisitReturn(s *ast.ReturnStmt) any {
	if s.Value == nil {
		_, err := c.em.emit(OpReturnNil)
		if err != nil {
			c.fail(err)
		}
		return nil
	}
	if call, ok := s.Value.(*ast.CallExpr); ok {
		if entry, ok := c.sym.Lookup(call.Cmd); ok && entry.Kind == symtab.EntryLocalCommand {
			c.compileCallArgs(call.Params)
			if c.err != nil {
				return nil
			}
			c.emitCallJump(OpTailCall, entry.Label, uint64(len(call.Params)))
			return nil
		}
	}
	c.compileExpr(s.Value)
	if c.err != nil {
		return nil
	}
	if _, err := c.em.emit(OpReturn); err != nil {
		c.fail(err)
	}
	return nil
}

func (c *Compiler) VisitUsing(s *ast.UsingStmt) any {
	if err := c.sym.Using(s.Path); err != nil {
		c.fail(SemanticError{Message: err.Error()})
	}
	return nil
}

// VisitVar declares one or more locals, destructuring a single
// initializer across them when there is more than one name (§4.4 lvalue
// lowering, the destructuring-list case).
func (c *Compiler) VisitVar(s *ast.VarStmt) any {
	if len(s.Names) == 1 && s.Rest == "" {
		entry, err := c.sym.AddVariable(s.Names[0])
		if err != nil {
			c.fail(err)
			return nil
		}
		_, slot := c.varRef(entry)
		if s.Initializer != nil {
			c.compileInto(s.Initializer, slot)
		} else {
			if _, err := c.em.emit(OpPushNil); err != nil {
				c.fail(err)
				return nil
			}
			if _, err := c.em.emitVarRef(OpSetVar, 0, slot); err != nil {
				c.fail(err)
			}
		}
		return nil
	}

	tmp, err := c.sym.AddTemp()
	if err != nil {
		c.fail(err)
		return nil
	}
	if s.Initializer == nil {
		c.fail(SemanticError{Message: "destructuring var requires an initializer"})
		return nil
	}
	c.compileInto(s.Initializer, uint8(tmp))
	if c.err != nil {
		return nil
	}
	for i, name := range s.Names {
		entry, err := c.sym.AddVariable(name)
		if err != nil {
			c.fail(err)
			return nil
		}
		c.em.emitVarRef(OpGetVar, 0, uint8(tmp))
		c.em.emitFloat(float64(i))
		c.em.emit(OpIndexGet)
		_, slot := c.varRef(entry)
		c.em.emitVarRef(OpSetVar, 0, slot)
	}
	if s.Rest != "" {
		entry, err := c.sym.AddVariable(s.Rest)
		if err != nil {
			c.fail(err)
			return nil
		}
		c.em.emitVarRef(OpGetVar, 0, uint8(tmp))
		c.em.emitFloat(float64(len(s.Names)))
		c.em.emitFloat(-1) // slice-to-end sentinel
		c.em.emit(OpSliceGet)
		_, slot := c.varRef(entry)
		c.em.emitVarRef(OpSetVar, 0, slot)
	}
	c.sym.ReleaseTemp(tmp)
	return nil
}

// VisitEval compiles a bare expression statement, discarding its value.
func (c *Compiler) VisitEval(s *ast.EvalStmt) any {
	c.compileForEffect(s.Expr)
	return nil
}
