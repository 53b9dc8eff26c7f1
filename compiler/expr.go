package compiler

import (
	"sini/ast"
	"sini/symtab"
	"sini/token"
)

func (c *Compiler) VisitNil(e *ast.NilExpr) any {
	if _, err := c.em.emit(OpPushNil); err != nil {
		c.fail(err)
	}
	return nil
}

func (c *Compiler) VisitNum(e *ast.NumExpr) any {
	if _, err := c.em.emitFloat(e.Value); err != nil {
		c.fail(err)
	}
	return nil
}

func (c *Compiler) VisitStr(e *ast.StrExpr) any {
	idx := c.stringConst(e.Value)
	if _, err := c.em.emit(OpPushStr, uint64(idx)); err != nil {
		c.fail(err)
	}
	return nil
}

// VisitList compiles a `[...]` literal: each element in order, then a
// single OpMakeList collecting them.
func (c *Compiler) VisitList(e *ast.ListExpr) any {
	if e.Elements == nil {
		if _, err := c.em.emit(OpMakeList, 0); err != nil {
			c.fail(err)
		}
		return nil
	}
	items := flattenGroup(e.Elements)
	for _, item := range items {
		c.compileExpr(item)
		if c.err != nil {
			return nil
		}
	}
	if _, err := c.em.emit(OpMakeList, uint64(len(items))); err != nil {
		c.fail(err)
	}
	return nil
}

// flattenGroup unwraps a top-level GroupExpr into its items, or returns
// a single-item slice for any other expression - list literals and call
// argument lists share this shape (§4.2's comma-group at precedence 9).
func flattenGroup(e ast.Expression) []ast.Expression {
	if g, ok := e.(*ast.GroupExpr); ok {
		return g.Items
	}
	return []ast.Expression{e}
}

// VisitNames resolves a dotted path against the symbol table: a
// variable becomes a get, an enum value becomes its folded constant. A
// bare reference to a command or namespace is not a value (§3's
// "nsname" only resolves to a value for the variable/enum-value kinds).
func (c *Compiler) VisitNames(e *ast.NamesExpr) any {
	entry, ok := c.sym.Lookup(e.Path)
	if !ok {
		c.fail(SemanticError{Message: "undefined name '" + joinDots(e.Path) + "'"})
		return nil
	}
	switch entry.Kind {
	case symtab.EntryVariable:
		delta, slot := c.varRef(entry)
		if _, err := c.em.emitVarRef(OpGetVar, delta, slot); err != nil {
			c.fail(err)
		}
	case symtab.EntryEnumValue:
		if _, err := c.em.emitFloat(entry.Number); err != nil {
			c.fail(err)
		}
	default:
		c.fail(SemanticError{Message: "'" + joinDots(e.Path) + "' is a command and cannot be used as a value"})
	}
	return nil
}

func joinDots(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func (c *Compiler) VisitParen(e *ast.ParenExpr) any {
	c.compileExpr(e.Inner)
	return nil
}

// VisitGroup compiles a bare comma-group expression (outside a call or
// list-literal context) with C-like comma-operator semantics: every item
// but the last is evaluated and discarded.
func (c *Compiler) VisitGroup(e *ast.GroupExpr) any {
	for i, item := range e.Items {
		if i == len(e.Items)-1 {
			c.compileExpr(item)
		} else {
			c.compileForEffect(item)
		}
		if c.err != nil {
			return nil
		}
	}
	return nil
}

// VisitCat compiles an interpolated-string reassembly: each part, then
// Concat folded left to right.
func (c *Compiler) VisitCat(e *ast.CatExpr) any {
	if len(e.Items) == 0 {
		idx := c.stringConst("")
		if _, err := c.em.emit(OpPushStr, uint64(idx)); err != nil {
			c.fail(err)
		}
		return nil
	}
	c.compileExpr(e.Items[0])
	if c.err != nil {
		return nil
	}
	for _, item := range e.Items[1:] {
		c.compileExpr(item)
		if c.err != nil {
			return nil
		}
		if _, err := c.em.emit(OpConcat); err != nil {
			c.fail(err)
			return nil
		}
	}
	return nil
}

func (c *Compiler) VisitPrefix(e *ast.PrefixExpr) any {
	if e.Op == token.AMP {
		names, ok := e.Operand.(*ast.NamesExpr)
		if !ok {
			c.fail(SemanticError{Message: "& requires a variable"})
			return nil
		}
		entry, ok := c.sym.Lookup(names.Path)
		if !ok || entry.Kind != symtab.EntryVariable {
			c.fail(SemanticError{Message: "& requires a variable"})
			return nil
		}
		delta, slot := c.varRef(entry)
		c.em.emitVarRef(OpGetVar, delta, slot)
		if _, err := c.em.emit(OpListRef); err != nil {
			c.fail(err)
		}
		return nil
	}

	c.compileExpr(e.Operand)
	if c.err != nil {
		return nil
	}
	var op Opcode
	switch e.Op {
	case token.UMINUS, token.MINUS:
		op = OpNeg
	case token.UPLUS, token.PLUS:
		op = OpPos
	case token.BANG:
		op = OpNot
	default:
		c.fail(DeveloperError{Message: "unhandled prefix operator " + string(e.Op)})
		return nil
	}
	if _, err := c.em.emit(op); err != nil {
		c.fail(err)
	}
	return nil
}

// VisitInfix compiles a binary operator. Assignment operators lower
// through compileAssignment instead, since their left operand is a
// store target rather than a value to push.
func (c *Compiler) VisitInfix(e *ast.InfixExpr) any {
	if isAssignOp(e.Op) {
		c.compileAssignment(e)
		return nil
	}

	switch e.Op {
	case token.ANDAND:
		c.compileShortCircuit(e.Left, e.Right, OpJumpIfFalse)
		return nil
	case token.OROR:
		c.compileShortCircuit(e.Left, e.Right, OpJumpIfTrue)
		return nil
	case token.GT:
		// synthesized by operand swap: a > b  <=>  b < a (§4.4)
		c.compileExpr(e.Right)
		if c.err != nil {
			return nil
		}
		c.compileExpr(e.Left)
		if c.err != nil {
			return nil
		}
		if _, err := c.em.emit(OpLess); err != nil {
			c.fail(err)
		}
		return nil
	case token.GE:
		c.compileExpr(e.Right)
		if c.err != nil {
			return nil
		}
		c.compileExpr(e.Left)
		if c.err != nil {
			return nil
		}
		if _, err := c.em.emit(OpLessEq); err != nil {
			c.fail(err)
		}
		return nil
	}

	c.compileExpr(e.Left)
	if c.err != nil {
		return nil
	}
	c.compileExpr(e.Right)
	if c.err != nil {
		return nil
	}
	op, err := infixOpcode(e.Op)
	if err != nil {
		c.fail(err)
		return nil
	}
	if _, err := c.em.emit(op); err != nil {
		c.fail(err)
	}
	return nil
}

func isAssignOp(t token.Type) bool {
	switch t {
	case token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.PERCENT_EQ, token.CARET_EQ, token.TILDE_EQ, token.ANDAND_EQ, token.OROR_EQ:
		return true
	}
	return false
}

func infixOpcode(t token.Type) (Opcode, error) {
	switch t {
	case token.PLUS:
		return OpAdd, nil
	case token.MINUS:
		return OpSub, nil
	case token.STAR:
		return OpMul, nil
	case token.SLASH:
		return OpDiv, nil
	case token.PERCENT:
		return OpMod, nil
	case token.CARET:
		return OpPow, nil
	case token.TILDE:
		return OpConcat, nil
	case token.LT:
		return OpLess, nil
	case token.LE:
		return OpLessEq, nil
	case token.EQ:
		return OpEqual, nil
	case token.NE:
		return OpNotEqual, nil
	}
	return 0, DeveloperError{Message: "unhandled infix operator " + string(t)}
}

// compileShortCircuit lowers `&&`/`||`: evaluate left, duplicate it, and
// skip right entirely if the duplicate already decides the result.
func (c *Compiler) compileShortCircuit(left, right ast.Expression, skipIf Opcode) {
	c.compileExpr(left)
	if c.err != nil {
		return
	}
	if _, err := c.em.emit(OpDup); err != nil {
		c.fail(err)
		return
	}
	site, err := c.em.emitJumpPlaceholder(skipIf)
	if err != nil {
		c.fail(err)
		return
	}
	if _, err := c.em.emit(OpPop); err != nil {
		c.fail(err)
		return
	}
	c.compileExpr(right)
	if c.err != nil {
		return
	}
	c.em.patch(site, c.em.pc())
}

func (c *Compiler) VisitIndex(e *ast.IndexExpr) any {
	c.compileExpr(e.Obj)
	if c.err != nil {
		return nil
	}
	c.compileExpr(e.Key)
	if c.err != nil {
		return nil
	}
	if _, err := c.em.emit(OpIndexGet); err != nil {
		c.fail(err)
	}
	return nil
}

// VisitSlice compiles `obj[start:len]`. A missing Start defaults to 0; a
// missing Len is encoded as the "-1 means to end" sentinel (a VM-level
// convention shared with VarStmt's `...rest` lowering).
func (c *Compiler) VisitSlice(e *ast.SliceExpr) any {
	c.compileExpr(e.Obj)
	if c.err != nil {
		return nil
	}
	if e.Start != nil {
		c.compileExpr(e.Start)
	} else {
		c.em.emitFloat(0)
	}
	if c.err != nil {
		return nil
	}
	if e.Len != nil {
		c.compileExpr(e.Len)
	} else {
		c.em.emitFloat(-1)
	}
	if c.err != nil {
		return nil
	}
	if _, err := c.em.emit(OpSliceGet); err != nil {
		c.fail(err)
	}
	return nil
}
