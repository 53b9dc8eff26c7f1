// Package ast defines the expression and statement nodes produced by the
// parser. Unlike a tree-shaped AST, statements here are flat: the parser
// is a pushdown state machine that emits one statement at a time (§4.2),
// so control-flow constructs are pairs/triples of begin/mid/end markers
// rather than nodes owning a nested statement list. Expressions still
// nest in the ordinary way.
//
// Both layers follow the visitor pattern, so the same node set can be
// walked by the compiler, an AST dumper, or a future optimizer without
// changing the node types.
package ast

import "sini/token"

// ExprVisitor operates on every Expression variant named in the data
// model: nil, num, str, list, names, paren, group, cat, prefix, infix,
// call, index, slice.
type ExprVisitor interface {
	VisitNil(e *NilExpr) any
	VisitNum(e *NumExpr) any
	VisitStr(e *StrExpr) any
	VisitList(e *ListExpr) any
	VisitNames(e *NamesExpr) any
	VisitParen(e *ParenExpr) any
	VisitGroup(e *GroupExpr) any
	VisitCat(e *CatExpr) any
	VisitPrefix(e *PrefixExpr) any
	VisitInfix(e *InfixExpr) any
	VisitCall(e *CallExpr) any
	VisitIndex(e *IndexExpr) any
	VisitSlice(e *SliceExpr) any
}

// Expression is the base interface for every expression node.
type Expression interface {
	Accept(v ExprVisitor) any
	Pos() token.Pos
}

// StmtVisitor operates on every Statement variant named in the data
// model. Control flow constructs arrive as a sequence of begin/mid/end
// statements rather than as a single nested node.
type StmtVisitor interface {
	VisitBreak(s *BreakStmt) any
	VisitContinue(s *ContinueStmt) any
	VisitDeclare(s *DeclareStmt) any
	VisitDefBegin(s *DefBeginStmt) any
	VisitDefEnd(s *DefEndStmt) any
	VisitDoWhileBegin(s *DoWhileBeginStmt) any
	VisitDoWhileMid(s *DoWhileMidStmt) any
	VisitDoWhileEnd(s *DoWhileEndStmt) any
	VisitEnum(s *EnumStmt) any
	VisitForBegin(s *ForBeginStmt) any
	VisitForEnd(s *ForEndStmt) any
	VisitLoopBegin(s *LoopBeginStmt) any
	VisitLoopEnd(s *LoopEndStmt) any
	VisitGoto(s *GotoStmt) any
	VisitIfBegin(s *IfBeginStmt) any
	VisitIfCond(s *IfCondStmt) any
	VisitIfElse(s *IfElseStmt) any
	VisitIfEnd(s *IfEndStmt) any
	VisitInclude(s *IncludeStmt) any
	VisitNamespaceBegin(s *NamespaceBeginStmt) any
	VisitNamespaceEnd(s *NamespaceEndStmt) any
	VisitReturn(s *ReturnStmt) any
	VisitUsing(s *UsingStmt) any
	VisitVar(s *VarStmt) any
	VisitEval(s *EvalStmt) any
	VisitLabel(s *LabelStmt) any
}

// Statement is the base interface for every statement node.
type Statement interface {
	Accept(v StmtVisitor) any
	Pos() token.Pos
}
