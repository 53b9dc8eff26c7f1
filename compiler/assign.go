package compiler

import (
	"sini/ast"
	"sini/symtab"
	"sini/token"
)

// compileAssignment lowers every assignment-family infix operator
// (§4.4 lvalue lowering). Every form leaves the stored value on the
// stack as the expression's result, so assignment can itself be used as
// a sub-expression (`a = b = 1`).
//
// Compound assignment to an index/slice target is simplified to
// re-evaluating the object/key expressions twice (once to read, once to
// write) rather than caching them - acceptable for this exercise's
// scope, but a real optimizing lowering would hold them in temps. See
// DESIGN.md.
func (c *Compiler) compileAssignment(e *ast.InfixExpr) {
	switch target := e.Left.(type) {
	case *ast.NamesExpr:
		c.assignName(target, e.Op, e.Right)
	case *ast.IndexExpr:
		c.assignIndex(target, e.Op, e.Right)
	case *ast.SliceExpr:
		c.assignSlice(target, e.Op, e.Right)
	case *ast.GroupExpr:
		c.assignDestructure(target, e.Right)
	default:
		c.fail(SemanticError{Message: "invalid assignment target"})
	}
}

func (c *Compiler) lookupVar(names *ast.NamesExpr) (*symtab.Entry, bool) {
	entry, ok := c.sym.Lookup(names.Path)
	if !ok || entry.Kind != symtab.EntryVariable {
		return nil, false
	}
	return entry, true
}

func (c *Compiler) assignName(target *ast.NamesExpr, op token.Type, rhs ast.Expression) {
	entry, ok := c.lookupVar(target)
	if !ok {
		c.fail(SemanticError{Message: "undefined name '" + joinDots(target.Path) + "'"})
		return
	}
	delta, slot := c.varRef(entry)

	switch op {
	case token.ASSIGN:
		c.compileExpr(rhs)
		if c.err != nil {
			return
		}
		c.em.emit(OpDup)
		c.em.emitVarRef(OpSetVar, delta, slot)
		return
	case token.ANDAND_EQ, token.OROR_EQ:
		c.em.emitVarRef(OpGetVar, delta, slot)
		c.em.emit(OpDup)
		skipIf := OpJumpIfFalse
		if op == token.OROR_EQ {
			skipIf = OpJumpIfTrue
		}
		site, err := c.em.emitJumpPlaceholder(skipIf)
		if err != nil {
			c.fail(err)
			return
		}
		c.em.emit(OpPop)
		c.compileExpr(rhs)
		if c.err != nil {
			return
		}
		c.em.emit(OpDup)
		c.em.emitVarRef(OpSetVar, delta, slot)
		c.em.patch(site, c.em.pc())
		return
	}

	base, err := compoundBaseOp(op)
	if err != nil {
		c.fail(err)
		return
	}
	c.em.emitVarRef(OpGetVar, delta, slot)
	c.compileExpr(rhs)
	if c.err != nil {
		return
	}
	c.em.emit(base)
	c.em.emit(OpDup)
	c.em.emitVarRef(OpSetVar, delta, slot)
}

func compoundBaseOp(op token.Type) (Opcode, error) {
	switch op {
	case token.PLUS_EQ:
		return OpAdd, nil
	case token.MINUS_EQ:
		return OpSub, nil
	case token.STAR_EQ:
		return OpMul, nil
	case token.SLASH_EQ:
		return OpDiv, nil
	case token.PERCENT_EQ:
		return OpMod, nil
	case token.CARET_EQ:
		return OpPow, nil
	case token.TILDE_EQ:
		return OpConcat, nil
	}
	return 0, DeveloperError{Message: "unhandled compound assignment operator " + string(op)}
}

// assignIndex lowers `obj[key] = value` and its compound forms. Plain
// assignment evaluates obj/key/value once each; compound forms
// re-evaluate obj/key a second time to perform the read half.
func (c *Compiler) assignIndex(target *ast.IndexExpr, op token.Type, rhs ast.Expression) {
	if op == token.ASSIGN {
		c.compileExpr(target.Obj)
		if c.err != nil {
			return
		}
		c.compileExpr(target.Key)
		if c.err != nil {
			return
		}
		c.compileExpr(rhs)
		if c.err != nil {
			return
		}
		c.em.emit(OpDup)
		if _, err := c.em.emit(OpIndexSet); err != nil {
			c.fail(err)
		}
		return
	}
	if op == token.ANDAND_EQ || op == token.OROR_EQ {
		c.fail(SemanticError{Message: "&&=/||= target must be a variable"})
		return
	}
	base, err := compoundBaseOp(op)
	if err != nil {
		c.fail(err)
		return
	}
	c.compileExpr(target.Obj)
	if c.err != nil {
		return
	}
	c.compileExpr(target.Key)
	if c.err != nil {
		return
	}
	c.compileExpr(target.Obj)
	if c.err != nil {
		return
	}
	c.compileExpr(target.Key)
	if c.err != nil {
		return
	}
	c.em.emit(OpIndexGet)
	c.compileExpr(rhs)
	if c.err != nil {
		return
	}
	c.em.emit(base)
	c.em.emit(OpDup)
	if _, err := c.em.emit(OpIndexSet); err != nil {
		c.fail(err)
	}
}

// assignSlice lowers `obj[start:len] = value`, plain assignment only -
// compound slice assignment is not a meaningful operation on a list
// range and is rejected.
func (c *Compiler) assignSlice(target *ast.SliceExpr, op token.Type, rhs ast.Expression) {
	if op != token.ASSIGN {
		c.fail(SemanticError{Message: "slice assignment only supports '='"})
		return
	}
	c.compileExpr(target.Obj)
	if c.err != nil {
		return
	}
	if target.Start != nil {
		c.compileExpr(target.Start)
	} else {
		c.em.emitFloat(0)
	}
	if c.err != nil {
		return
	}
	if target.Len != nil {
		c.compileExpr(target.Len)
	} else {
		c.em.emitFloat(-1)
	}
	if c.err != nil {
		return
	}
	c.compileExpr(rhs)
	if c.err != nil {
		return
	}
	c.em.emit(OpDup)
	if _, err := c.em.emit(OpSliceSet); err != nil {
		c.fail(err)
	}
}

// assignDestructure lowers `(a, b, ...rest) = value` - the same
// destructuring shape var uses, applied to already-declared targets.
func (c *Compiler) assignDestructure(target *ast.GroupExpr, rhs ast.Expression) {
	names := make([]*ast.NamesExpr, 0, len(target.Items))
	for _, item := range target.Items {
		n, ok := item.(*ast.NamesExpr)
		if !ok {
			c.fail(SemanticError{Message: "destructuring assignment target must be a list of variables"})
			return
		}
		names = append(names, n)
	}

	tmp, err := c.sym.AddTemp()
	if err != nil {
		c.fail(err)
		return
	}
	c.compileInto(rhs, uint8(tmp))
	if c.err != nil {
		return
	}
	for i, n := range names {
		entry, ok := c.lookupVar(n)
		if !ok {
			c.fail(SemanticError{Message: "undefined name '" + joinDots(n.Path) + "'"})
			return
		}
		delta, slot := c.varRef(entry)
		c.em.emitVarRef(OpGetVar, 0, uint8(tmp))
		c.em.emitFloat(float64(i))
		c.em.emit(OpIndexGet)
		c.em.emitVarRef(OpSetVar, delta, slot)
	}
	c.em.emitVarRef(OpGetVar, 0, uint8(tmp))
	c.sym.ReleaseTemp(tmp)
}
