// expressions.go contains all expression AST nodes. An expression always
// evaluates to a value (§3 Value: nil/number/string/list).
package ast

import "sini/token"

type exprBase struct {
	at token.Pos
}

func (e exprBase) Pos() token.Pos { return e.at }

// NilExpr is the literal `nil`.
type NilExpr struct {
	exprBase
}

func NewNil(pos token.Pos) *NilExpr {
	return &NilExpr{exprBase{pos}}
}

func (e *NilExpr) Accept(v ExprVisitor) any { return v.VisitNil(e) }

// NumExpr is a numeric literal, already folded to its float64 value by
// the lexer (§4.1 numeric literal semantics).
type NumExpr struct {
	exprBase
	Value float64
}

func NewNum(pos token.Pos, value float64) *NumExpr {
	return &NumExpr{exprBase{pos}, value}
}

func (e *NumExpr) Accept(v ExprVisitor) any { return v.VisitNum(e) }

// StrExpr is a string literal with no interpolation splices, or a
// compile-time-folded concatenation of two literal strings (§4.2).
type StrExpr struct {
	exprBase
	Value string
}

func NewStr(pos token.Pos, value string) *StrExpr {
	return &StrExpr{exprBase{pos}, value}
}

func (e *StrExpr) Accept(v ExprVisitor) any { return v.VisitStr(e) }

// ListExpr is a `[...]` list literal. Elements is nil for an empty list
// and otherwise the (possibly grouped) expression enumerating its
// members.
type ListExpr struct {
	exprBase
	Elements Expression
}

func NewList(pos token.Pos, elements Expression) *ListExpr {
	return &ListExpr{exprBase{pos}, elements}
}

func (e *ListExpr) Accept(v ExprVisitor) any { return v.VisitList(e) }

// NamesExpr is a dotted identifier path (`a.b.c`), resolved against the
// symbol table at compile time: a variable reference, an enum value, or
// a namespace-qualified command name.
type NamesExpr struct {
	exprBase
	Path []string
}

func NewNames(pos token.Pos, path []string) *NamesExpr {
	return &NamesExpr{exprBase{pos}, path}
}

func (e *NamesExpr) Accept(v ExprVisitor) any { return v.VisitNames(e) }

// ParenExpr is a single parenthesized expression, kept distinct from
// GroupExpr so the compiler can tell "(x)" from the comma-operator form
// "(x, y)" used for multi-value command arguments.
type ParenExpr struct {
	exprBase
	Inner Expression
}

func NewParen(pos token.Pos, inner Expression) *ParenExpr {
	return &ParenExpr{exprBase{pos}, inner}
}

func (e *ParenExpr) Accept(v ExprVisitor) any { return v.VisitParen(e) }

// GroupExpr is a comma-separated list of expressions at precedence
// level 9 (§4.2), used for multi-value contexts: call arguments,
// destructuring targets, list literal elements.
type GroupExpr struct {
	exprBase
	Items []Expression
}

func NewGroup(pos token.Pos, items []Expression) *GroupExpr {
	return &GroupExpr{exprBase{pos}, items}
}

func (e *GroupExpr) Accept(v ExprVisitor) any { return v.VisitGroup(e) }

// CatExpr concatenates the string forms of its operands. It is how the
// lexer's interpolated-string splices (`$ident`, `${...}`) are
// assembled back into a single expression by the parser.
type CatExpr struct {
	exprBase
	Items []Expression
}

func NewCat(pos token.Pos, items []Expression) *CatExpr {
	return &CatExpr{exprBase{pos}, items}
}

func (e *CatExpr) Accept(v ExprVisitor) any { return v.VisitCat(e) }

// PrefixExpr is a unary operator applied to one operand: `-x`, `+x`,
// `!x`.
type PrefixExpr struct {
	exprBase
	Op      token.Type
	Operand Expression
}

func NewPrefix(pos token.Pos, op token.Type, operand Expression) *PrefixExpr {
	return &PrefixExpr{exprBase{pos}, op, operand}
}

func (e *PrefixExpr) Accept(v ExprVisitor) any { return v.VisitPrefix(e) }

// InfixExpr is a binary operator applied to Left and, ordinarily,
// Right. Right is nil only for the rare forms that the parser lowers
// through this node without a second operand (§3's "infix(op, left,
// opt-right)").
type InfixExpr struct {
	exprBase
	Op    token.Type
	Left  Expression
	Right Expression
}

func NewInfix(pos token.Pos, op token.Type, left, right Expression) *InfixExpr {
	return &InfixExpr{exprBase{pos}, op, left, right}
}

func (e *InfixExpr) Accept(v ExprVisitor) any { return v.VisitInfix(e) }

// CallExpr invokes a command (local, native, or opcode) by name with a
// parameter list. Cmd is a dotted path resolved at compile time.
type CallExpr struct {
	exprBase
	Cmd    []string
	Params []Expression
}

func NewCall(pos token.Pos, cmd []string, params []Expression) *CallExpr {
	return &CallExpr{exprBase{pos}, cmd, params}
}

func (e *CallExpr) Accept(v ExprVisitor) any { return v.VisitCall(e) }

// IndexExpr is `obj[key]`.
type IndexExpr struct {
	exprBase
	Obj Expression
	Key Expression
}

func NewIndex(pos token.Pos, obj, key Expression) *IndexExpr {
	return &IndexExpr{exprBase{pos}, obj, key}
}

func (e *IndexExpr) Accept(v ExprVisitor) any { return v.VisitIndex(e) }

// SliceExpr is `obj[start:len]`, with Start and Len each optional
// (a missing Start means "from the beginning", a missing Len means "to
// the end").
type SliceExpr struct {
	exprBase
	Obj   Expression
	Start Expression
	Len   Expression
}

func NewSlice(pos token.Pos, obj, start, length Expression) *SliceExpr {
	return &SliceExpr{exprBase{pos}, obj, start, length}
}

func (e *SliceExpr) Accept(v ExprVisitor) any { return v.VisitSlice(e) }
