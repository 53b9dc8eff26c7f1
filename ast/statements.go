// statements.go contains all statement AST nodes. A statement produces no
// value. Control-flow constructs are emitted as a flat sequence of
// begin/mid/end markers (§4.2 "no separate parse tree"), matching how the
// parser hands them to the code generator one at a time.
package ast

import "sini/token"

type stmtBase struct {
	at token.Pos
}

func (s stmtBase) Pos() token.Pos { return s.at }

// BreakStmt exits the nearest enclosing loop.
type BreakStmt struct {
	stmtBase
}

func NewBreak(pos token.Pos) *BreakStmt { return &BreakStmt{stmtBase{pos}} }

func (s *BreakStmt) Accept(v StmtVisitor) any { return v.VisitBreak(s) }

// ContinueStmt jumps to the top of the nearest enclosing loop: the index
// check of a `for`, the start of a `loop`, or the start of a `do` body
// (in `do ... while`, not the `while` test).
type ContinueStmt struct {
	stmtBase
}

func NewContinue(pos token.Pos) *ContinueStmt { return &ContinueStmt{stmtBase{pos}} }

func (s *ContinueStmt) Accept(v StmtVisitor) any { return v.VisitContinue(s) }

// DeclareStmt predeclares a local command name, reserving its label
// before the body is compiled (forward reference support, §4.3).
type DeclareStmt struct {
	stmtBase
	Name string
}

func NewDeclare(pos token.Pos, name string) *DeclareStmt {
	return &DeclareStmt{stmtBase{pos}, name}
}

func (s *DeclareStmt) Accept(v StmtVisitor) any { return v.VisitDeclare(s) }

// DefBeginStmt opens a local command definition; DefEndStmt closes it.
type DefBeginStmt struct {
	stmtBase
	Name   string
	Params []string
	Rest   string // name of a trailing "...rest" parameter, empty if none
}

func NewDefBegin(pos token.Pos, name string, params []string, rest string) *DefBeginStmt {
	return &DefBeginStmt{stmtBase{pos}, name, params, rest}
}

func (s *DefBeginStmt) Accept(v StmtVisitor) any { return v.VisitDefBegin(s) }

type DefEndStmt struct {
	stmtBase
}

func NewDefEnd(pos token.Pos) *DefEndStmt { return &DefEndStmt{stmtBase{pos}} }

func (s *DefEndStmt) Accept(v StmtVisitor) any { return v.VisitDefEnd(s) }

// DoWhileBeginStmt opens a `do ... while cond ... end` or `do ... end`
// loop. DoWhileMidStmt carries the condition (nil for an unconditional
// `do ... end`, which only exits via break). DoWhileEndStmt closes it.
type DoWhileBeginStmt struct {
	stmtBase
}

func NewDoWhileBegin(pos token.Pos) *DoWhileBeginStmt { return &DoWhileBeginStmt{stmtBase{pos}} }

func (s *DoWhileBeginStmt) Accept(v StmtVisitor) any { return v.VisitDoWhileBegin(s) }

type DoWhileMidStmt struct {
	stmtBase
	Cond Expression
}

func NewDoWhileMid(pos token.Pos, cond Expression) *DoWhileMidStmt {
	return &DoWhileMidStmt{stmtBase{pos}, cond}
}

func (s *DoWhileMidStmt) Accept(v StmtVisitor) any { return v.VisitDoWhileMid(s) }

type DoWhileEndStmt struct {
	stmtBase
}

func NewDoWhileEnd(pos token.Pos) *DoWhileEndStmt { return &DoWhileEndStmt{stmtBase{pos}} }

func (s *DoWhileEndStmt) Accept(v StmtVisitor) any { return v.VisitDoWhileEnd(s) }

// EnumMember is one `name` or `name: expr` entry in an enum block.
// Value is nil when the member's numeric value is implicit (one more
// than the previous member, starting at 0).
type EnumMember struct {
	Name  string
	Value Expression
}

// EnumStmt declares a block of compile-time integer constants.
type EnumStmt struct {
	stmtBase
	Members []EnumMember
}

func NewEnum(pos token.Pos, members []EnumMember) *EnumStmt {
	return &EnumStmt{stmtBase{pos}, members}
}

func (s *EnumStmt) Accept(v StmtVisitor) any { return v.VisitEnum(s) }

// ForBeginStmt opens a `for name[, index] : iterable ... end` loop.
// Index is empty when the loop does not bind a running index. ForEndStmt
// closes it.
type ForBeginStmt struct {
	stmtBase
	Name     string
	Index    string
	Iterable Expression
}

func NewForBegin(pos token.Pos, name, index string, iterable Expression) *ForBeginStmt {
	return &ForBeginStmt{stmtBase{pos}, name, index, iterable}
}

func (s *ForBeginStmt) Accept(v StmtVisitor) any { return v.VisitForBegin(s) }

type ForEndStmt struct {
	stmtBase
}

func NewForEnd(pos token.Pos) *ForEndStmt { return &ForEndStmt{stmtBase{pos}} }

func (s *ForEndStmt) Accept(v StmtVisitor) any { return v.VisitForEnd(s) }

// LoopBeginStmt/LoopEndStmt bracket an infinite `loop ... end`, exited
// only by `break` or `return`.
type LoopBeginStmt struct {
	stmtBase
}

func NewLoopBegin(pos token.Pos) *LoopBeginStmt { return &LoopBeginStmt{stmtBase{pos}} }

func (s *LoopBeginStmt) Accept(v StmtVisitor) any { return v.VisitLoopBegin(s) }

type LoopEndStmt struct {
	stmtBase
}

func NewLoopEnd(pos token.Pos) *LoopEndStmt { return &LoopEndStmt{stmtBase{pos}} }

func (s *LoopEndStmt) Accept(v StmtVisitor) any { return v.VisitLoopEnd(s) }

// GotoStmt jumps to a named label, forward or backward.
type GotoStmt struct {
	stmtBase
	Name string
}

func NewGoto(pos token.Pos, name string) *GotoStmt { return &GotoStmt{stmtBase{pos}, name} }

func (s *GotoStmt) Accept(v StmtVisitor) any { return v.VisitGoto(s) }

// IfBeginStmt opens an `if cond ... `; IfCondStmt is each `elseif cond`;
// IfElseStmt is the `else`; IfEndStmt closes the whole chain.
type IfBeginStmt struct {
	stmtBase
	Cond Expression
}

func NewIfBegin(pos token.Pos, cond Expression) *IfBeginStmt {
	return &IfBeginStmt{stmtBase{pos}, cond}
}

func (s *IfBeginStmt) Accept(v StmtVisitor) any { return v.VisitIfBegin(s) }

type IfCondStmt struct {
	stmtBase
	Cond Expression
}

func NewIfCond(pos token.Pos, cond Expression) *IfCondStmt {
	return &IfCondStmt{stmtBase{pos}, cond}
}

func (s *IfCondStmt) Accept(v StmtVisitor) any { return v.VisitIfCond(s) }

type IfElseStmt struct {
	stmtBase
}

func NewIfElse(pos token.Pos) *IfElseStmt { return &IfElseStmt{stmtBase{pos}} }

func (s *IfElseStmt) Accept(v StmtVisitor) any { return v.VisitIfElse(s) }

type IfEndStmt struct {
	stmtBase
}

func NewIfEnd(pos token.Pos) *IfEndStmt { return &IfEndStmt{stmtBase{pos}} }

func (s *IfEndStmt) Accept(v StmtVisitor) any { return v.VisitIfEnd(s) }

// IncludeStmt pulls another source file's statements into the current
// compile at the point of the statement (lexical include, §4.3's
// "pushNamespace(unique)" modeling).
type IncludeStmt struct {
	stmtBase
	Path string
}

func NewInclude(pos token.Pos, path string) *IncludeStmt {
	return &IncludeStmt{stmtBase{pos}, path}
}

func (s *IncludeStmt) Accept(v StmtVisitor) any { return v.VisitInclude(s) }

// NamespaceBeginStmt/NamespaceEndStmt bracket a `namespace name ... end`
// block.
type NamespaceBeginStmt struct {
	stmtBase
	Name string
}

func NewNamespaceBegin(pos token.Pos, name string) *NamespaceBeginStmt {
	return &NamespaceBeginStmt{stmtBase{pos}, name}
}

func (s *NamespaceBeginStmt) Accept(v StmtVisitor) any { return v.VisitNamespaceBegin(s) }

type NamespaceEndStmt struct {
	stmtBase
}

func NewNamespaceEnd(pos token.Pos) *NamespaceEndStmt { return &NamespaceEndStmt{stmtBase{pos}} }

func (s *NamespaceEndStmt) Accept(v StmtVisitor) any { return v.VisitNamespaceEnd(s) }

// ReturnStmt returns from the enclosing command, with an optional
// value. A direct call to a same-frame-level local command in Value is
// detected by the compiler as a tail call (§4.4).
type ReturnStmt struct {
	stmtBase
	Value Expression
}

func NewReturn(pos token.Pos, value Expression) *ReturnStmt {
	return &ReturnStmt{stmtBase{pos}, value}
}

func (s *ReturnStmt) Accept(v StmtVisitor) any { return v.VisitReturn(s) }

// UsingStmt adds a namespace back-reference visible from the current
// scope (§4.3 lookup: "within each namespace, walk the usings").
type UsingStmt struct {
	stmtBase
	Path []string
}

func NewUsing(pos token.Pos, path []string) *UsingStmt {
	return &UsingStmt{stmtBase{pos}, path}
}

func (s *UsingStmt) Accept(v StmtVisitor) any { return v.VisitUsing(s) }

// VarStmt declares one or more local variables, optionally destructuring
// a single initializer across them (trailing Rest name captures the
// remainder of a list, mirroring `...rest` lowering in §4.4).
type VarStmt struct {
	stmtBase
	Names       []string
	Rest        string
	Initializer Expression
}

func NewVar(pos token.Pos, names []string, rest string, init Expression) *VarStmt {
	return &VarStmt{stmtBase{pos}, names, rest, init}
}

func (s *VarStmt) Accept(v StmtVisitor) any { return v.VisitVar(s) }

// EvalStmt evaluates an expression and discards its result - the
// "bare expression as a statement" form, also used for bare assignment
// expressions.
type EvalStmt struct {
	stmtBase
	Expr Expression
}

func NewEval(pos token.Pos, expr Expression) *EvalStmt {
	return &EvalStmt{stmtBase{pos}, expr}
}

func (s *EvalStmt) Accept(v StmtVisitor) any { return v.VisitEval(s) }

// LabelStmt declares a named branch target at the current program
// counter, the destination of a `goto`.
type LabelStmt struct {
	stmtBase
	Name string
}

func NewLabel(pos token.Pos, name string) *LabelStmt {
	return &LabelStmt{stmtBase{pos}, name}
}

func (s *LabelStmt) Accept(v StmtVisitor) any { return v.VisitLabel(s) }
