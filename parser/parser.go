// Package parser turns a sini token stream into statement AST nodes.
//
// The grammar is parsed by a cascade of precedence-specific methods, one
// per row of the operator table in §4.2 - the same recursive-descent
// shape as a four-operator toy grammar, generalized to the full table
// (exponent through assignment) and to statement forms with no
// enclosing block node: control flow is emitted as a flat sequence of
// begin/mid/end statements, consumed directly by the code generator.
//
// This cascade is the recursive equivalent of the explicit operator/
// operand stacks described in §4.2: each call frame plays the role of
// one stack entry, and precedence is resolved by which method called
// which, rather than by an explicit stack value pushed and popped by
// hand. The observable parse result is identical either way.
package parser

import (
	"fmt"

	"sini/ast"
	"sini/lexer"
	"sini/token"
)

// Parser consumes a token slice and emits statements. REPL mode governs
// what happens when input ends mid-construction: Parse returns
// ErrNeedMoreInput instead of a SyntaxError so the caller can Feed more
// tokens and retry.
type Parser struct {
	tokens []token.Token
	pos    int
	repl   bool

	// depth tracks nesting of begin/end statement pairs (def/if/for/
	// loop/do-while/namespace), so `end` can be validated against what
	// it is actually closing.
	depth []string
}

// New constructs a Parser over a complete token slice (EOF-terminated).
func New(tokens []token.Token, repl bool) *Parser {
	return &Parser{tokens: tokens, repl: repl}
}

// Feed appends more tokens to a REPL parser, replacing the old
// EOF sentinel token with the new stream's tokens.
func (p *Parser) Feed(tokens []token.Token) {
	if n := len(p.tokens); n > 0 && p.tokens[n-1].Type == token.EOF {
		p.tokens = p.tokens[:n-1]
	}
	p.tokens = append(p.tokens, tokens...)
}

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }
func (p *Parser) atEOF() bool       { return p.peek().Type == token.EOF }
func (p *Parser) previous() token.Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() token.Token {
	if !p.atEOF() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) check(t token.Type) bool {
	if p.atEOF() && t != token.EOF {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.Type, msg string) (token.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	if p.atEOF() && p.repl {
		return token.Token{}, ErrNeedMoreInput
	}
	return token.Token{}, newSyntaxError(p.peek().Pos, msg)
}

// skipNewlines consumes any run of (soft or hard) newline tokens. Most
// statement boundaries accept either.
func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) endOfStatement() error {
	if p.check(token.NEWLINE) || p.check(token.SEMI) || p.atEOF() {
		if !p.atEOF() {
			p.advance()
		}
		return nil
	}
	if p.atEOF() && p.repl {
		return ErrNeedMoreInput
	}
	return newSyntaxError(p.peek().Pos, "expected end of statement")
}

// Parse consumes the whole token stream, returning every statement
// successfully parsed and the first error encountered (if any). On
// error the remaining tokens are not parsed, matching §4.2's "no
// recovery" error model.
func (p *Parser) Parse() ([]ast.Statement, error) {
	var out []ast.Statement
	p.skipNewlines()
	for !p.atEOF() {
		stmt, err := p.statement()
		if err != nil {
			return out, err
		}
		if stmt != nil {
			out = append(out, stmt)
		}
		p.skipNewlines()
	}
	if len(p.depth) > 0 {
		if p.repl {
			return out, ErrNeedMoreInput
		}
		return out, fmt.Errorf("unterminated %s block", p.depth[len(p.depth)-1])
	}
	return out, nil
}

func (p *Parser) statement() (ast.Statement, error) {
	pos := p.peek().Pos
	switch {
	case p.match(token.KW_BREAK):
		err := p.endOfStatement()
		return ast.NewBreak(pos), err
	case p.match(token.KW_CONTINUE):
		err := p.endOfStatement()
		return ast.NewContinue(pos), err
	case p.match(token.KW_VAR):
		return p.varStatement(pos)
	case p.match(token.KW_DEF):
		return p.defStatement(pos)
	case p.match(token.KW_END):
		return p.endStatement(pos)
	case p.match(token.KW_DO):
		p.depth = append(p.depth, "do")
		err := p.endOfStatement()
		return ast.NewDoWhileBegin(pos), err
	case p.match(token.KW_WHILE):
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return ast.NewDoWhileMid(pos, cond), nil
	case p.match(token.KW_LOOP):
		p.depth = append(p.depth, "loop")
		err := p.endOfStatement()
		return ast.NewLoopBegin(pos), err
	case p.match(token.KW_FOR):
		return p.forStatement(pos)
	case p.match(token.KW_IF):
		return p.ifStatement(pos)
	case p.match(token.KW_ELSEIF):
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return ast.NewIfCond(pos, cond), nil
	case p.match(token.KW_ELSE):
		err := p.endOfStatement()
		return ast.NewIfElse(pos), err
	case p.match(token.KW_ENUM):
		return p.enumStatement(pos)
	case p.match(token.KW_GOTO):
		name, err := p.consume(token.IDENTIFIER, "expected a label name after 'goto'")
		if err != nil {
			return nil, err
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return ast.NewGoto(pos, name.Lexeme), nil
	case p.match(token.KW_INCLUDE):
		path, err := p.consume(token.STRING, "expected a path string after 'include'")
		if err != nil {
			return nil, err
		}
		lit, _ := path.Literal.(string)
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return ast.NewInclude(pos, lit), nil
	case p.match(token.KW_NAMESPACE):
		name, err := p.consume(token.IDENTIFIER, "expected a namespace name")
		if err != nil {
			return nil, err
		}
		p.depth = append(p.depth, "namespace")
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return ast.NewNamespaceBegin(pos, name.Lexeme), nil
	case p.match(token.KW_USING):
		path, err := p.dottedPath()
		if err != nil {
			return nil, err
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return ast.NewUsing(pos, path), nil
	case p.match(token.KW_RETURN):
		if p.check(token.NEWLINE) || p.check(token.SEMI) || p.atEOF() {
			err := p.endOfStatement()
			return ast.NewReturn(pos, nil), err
		}
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return ast.NewReturn(pos, val), nil
	}

	// A leading "identifier :" is a label declaration.
	if p.check(token.IDENTIFIER) && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == token.COLON {
		name := p.advance()
		p.advance() // consume ':'
		err := p.endOfStatement()
		return ast.NewLabel(pos, name.Lexeme), err
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return ast.NewEval(pos, expr), nil
}

func (p *Parser) endStatement(pos token.Pos) (ast.Statement, error) {
	if len(p.depth) == 0 {
		return nil, newSyntaxError(pos, "'end' with no matching block")
	}
	kind := p.depth[len(p.depth)-1]
	p.depth = p.depth[:len(p.depth)-1]
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	switch kind {
	case "def":
		return ast.NewDefEnd(pos), nil
	case "do":
		return ast.NewDoWhileEnd(pos), nil
	case "loop":
		return ast.NewLoopEnd(pos), nil
	case "for":
		return ast.NewForEnd(pos), nil
	case "if":
		return ast.NewIfEnd(pos), nil
	case "namespace":
		return ast.NewNamespaceEnd(pos), nil
	}
	return nil, newSyntaxError(pos, "'end' with no matching block")
}

func (p *Parser) varStatement(pos token.Pos) (ast.Statement, error) {
	var names []string
	rest := ""
	for {
		if p.match(token.DOTDOTDOT) {
			name, err := p.consume(token.IDENTIFIER, "expected a name after '...'")
			if err != nil {
				return nil, err
			}
			rest = name.Lexeme
			break
		}
		name, err := p.consume(token.IDENTIFIER, "expected a variable name")
		if err != nil {
			return nil, err
		}
		names = append(names, name.Lexeme)
		if !p.match(token.COMMA) {
			break
		}
	}
	var init ast.Expression
	if p.match(token.ASSIGN) {
		var err error
		init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return ast.NewVar(pos, names, rest, init), nil
}

func (p *Parser) defStatement(pos token.Pos) (ast.Statement, error) {
	name, err := p.consume(token.IDENTIFIER, "expected a command name after 'def'")
	if err != nil {
		return nil, err
	}
	var params []string
	rest := ""
	if p.match(token.LPAREN) {
		for !p.check(token.RPAREN) {
			if p.match(token.DOTDOTDOT) {
				r, err := p.consume(token.IDENTIFIER, "expected a name after '...'")
				if err != nil {
					return nil, err
				}
				rest = r.Lexeme
				break
			}
			pname, err := p.consume(token.IDENTIFIER, "expected a parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, pname.Lexeme)
			if !p.match(token.COMMA) {
				break
			}
		}
		if _, err := p.consume(token.RPAREN, "expected ')' after parameter list"); err != nil {
			return nil, err
		}
	}
	p.depth = append(p.depth, "def")
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return ast.NewDefBegin(pos, name.Lexeme, params, rest), nil
}

func (p *Parser) ifStatement(pos token.Pos) (ast.Statement, error) {
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.depth = append(p.depth, "if")
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return ast.NewIfBegin(pos, cond), nil
}

func (p *Parser) forStatement(pos token.Pos) (ast.Statement, error) {
	name, err := p.consume(token.IDENTIFIER, "expected a loop variable name")
	if err != nil {
		return nil, err
	}
	index := ""
	if p.match(token.COMMA) {
		idx, err := p.consume(token.IDENTIFIER, "expected an index variable name")
		if err != nil {
			return nil, err
		}
		index = idx.Lexeme
	}
	if _, err := p.consume(token.COLON, "expected ':' in 'for' statement"); err != nil {
		return nil, err
	}
	iter, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.depth = append(p.depth, "for")
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return ast.NewForBegin(pos, name.Lexeme, index, iter), nil
}

func (p *Parser) enumStatement(pos token.Pos) (ast.Statement, error) {
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	var members []ast.EnumMember
	for !p.check(token.KW_END) {
		p.skipNewlines()
		if p.check(token.KW_END) {
			break
		}
		name, err := p.consume(token.IDENTIFIER, "expected an enum member name")
		if err != nil {
			return nil, err
		}
		var value ast.Expression
		if p.match(token.COLON) {
			value, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		members = append(members, ast.EnumMember{Name: name.Lexeme, Value: value})
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.KW_END, "expected 'end' to close 'enum'"); err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return ast.NewEnum(pos, members), nil
}

func (p *Parser) dottedPath() ([]string, error) {
	first, err := p.consume(token.IDENTIFIER, "expected an identifier")
	if err != nil {
		return nil, err
	}
	path := []string{first.Lexeme}
	for p.match(token.DOT) {
		next, err := p.consume(token.IDENTIFIER, "expected an identifier after '.'")
		if err != nil {
			return nil, err
		}
		path = append(path, next.Lexeme)
	}
	return path, nil
}

// ---- expressions ----
//
// Entry point is the loosest-binding row of §4.2's precedence table
// (assignment) and descends one method per row to the tightest
// (exponent/unary), each precedence level its own method in the usual
// equality/comparison/term/factor/unary cascade.

func (p *Parser) expression() (ast.Expression, error) {
	return p.assignment()
}

func (p *Parser) assignment() (ast.Expression, error) {
	left, err := p.pipe()
	if err != nil {
		return nil, err
	}
	if p.peek().IsAssignOp() {
		op := p.advance()
		right, err := p.assignment()
		if err != nil {
			return nil, err
		}
		return ast.NewInfix(op.Pos, op.Type, left, right), nil
	}
	return left, nil
}

// pipe rewrites `x | f(args)` to `f(x, args)` and bare `x | f` to `f(x)`.
func (p *Parser) pipe() (ast.Expression, error) {
	left, err := p.commaGroup()
	if err != nil {
		return nil, err
	}
	for p.match(token.PIPE) {
		rhs, err := p.commaGroup()
		if err != nil {
			return nil, err
		}
		switch call := rhs.(type) {
		case *ast.CallExpr:
			call.Params = append([]ast.Expression{left}, call.Params...)
			left = call
		case *ast.NamesExpr:
			left = ast.NewCall(call.Pos(), call.Path, []ast.Expression{left})
		default:
			return nil, newSyntaxError(rhs.Pos(), "right side of '|' must be a command call")
		}
	}
	return left, nil
}

func (p *Parser) commaGroup() (ast.Expression, error) {
	first, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.check(token.COMMA) {
		return first, nil
	}
	items := []ast.Expression{first}
	for p.match(token.COMMA) {
		next, err := p.or()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	return ast.NewGroup(first.Pos(), items), nil
}

func (p *Parser) or() (ast.Expression, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.check(token.OROR) {
		op := p.advance()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = ast.NewInfix(op.Pos, op.Type, left, right)
	}
	return left, nil
}

func (p *Parser) and() (ast.Expression, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.check(token.ANDAND) {
		op := p.advance()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = ast.NewInfix(op.Pos, op.Type, left, right)
	}
	return left, nil
}

func (p *Parser) equality() (ast.Expression, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.check(token.EQ) || p.check(token.NE) {
		op := p.advance()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = ast.NewInfix(op.Pos, op.Type, left, right)
	}
	return left, nil
}

func (p *Parser) comparison() (ast.Expression, error) {
	left, err := p.concat()
	if err != nil {
		return nil, err
	}
	for p.check(token.LT) || p.check(token.LE) || p.check(token.GT) || p.check(token.GE) {
		op := p.advance()
		right, err := p.concat()
		if err != nil {
			return nil, err
		}
		left = ast.NewInfix(op.Pos, op.Type, left, right)
	}
	return left, nil
}

func (p *Parser) concat() (ast.Expression, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.check(token.TILDE) {
		op := p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = foldInfix(op, left, right)
	}
	return left, nil
}

func (p *Parser) term() (ast.Expression, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.check(token.PLUS) || p.check(token.MINUS) {
		op := p.advance()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = foldInfix(op, left, right)
	}
	return left, nil
}

func (p *Parser) factor() (ast.Expression, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.check(token.STAR) || p.check(token.SLASH) || p.check(token.PERCENT) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = foldInfix(op, left, right)
	}
	return left, nil
}

// unary and pow are mutually recursive so that a unary +/- loses to `^`
// on its right operand but wins everywhere else (§4.2): "-2^2" parses
// as -(2^2), and "2^-2" parses as 2^(-2).
func (p *Parser) unary() (ast.Expression, error) {
	if p.check(token.UPLUS) || p.check(token.UMINUS) || p.check(token.BANG) {
		op := p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if num, ok := operand.(*ast.NumExpr); ok && op.Type != token.BANG {
			v := num.Value
			if op.Type == token.UMINUS {
				v = -v
			}
			return ast.NewNum(op.Pos, v), nil
		}
		return ast.NewPrefix(op.Pos, op.Type, operand), nil
	}
	return p.pow()
}

func (p *Parser) pow() (ast.Expression, error) {
	left, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.check(token.CARET) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.NewInfix(op.Pos, op.Type, left, right), nil
	}
	return left, nil
}

// foldInfix performs the compile-time constant folding described in
// §4.2 for numeric infix operations and literal string concatenation.
func foldInfix(op token.Token, left, right ast.Expression) ast.Expression {
	if l, ok := left.(*ast.NumExpr); ok {
		if r, ok := right.(*ast.NumExpr); ok {
			switch op.Type {
			case token.PLUS:
				return ast.NewNum(op.Pos, l.Value+r.Value)
			case token.MINUS:
				return ast.NewNum(op.Pos, l.Value-r.Value)
			case token.STAR:
				return ast.NewNum(op.Pos, l.Value*r.Value)
			case token.SLASH:
				if r.Value != 0 {
					return ast.NewNum(op.Pos, l.Value/r.Value)
				}
			}
		}
	}
	if op.Type == token.TILDE {
		if l, ok := left.(*ast.StrExpr); ok {
			if r, ok := right.(*ast.StrExpr); ok {
				return ast.NewStr(op.Pos, l.Value+r.Value)
			}
		}
	}
	return ast.NewInfix(op.Pos, op.Type, left, right)
}

// postfix handles index/slice application after a primary expression:
// `obj[key]` and `obj[start:len]`.
func (p *Parser) postfix() (ast.Expression, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.check(token.LBRACKET) {
		open := p.advance()
		if p.match(token.COLON) {
			var length ast.Expression
			if !p.check(token.RBRACKET) {
				length, err = p.expression()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.consume(token.RBRACKET, "expected ']' to close a slice"); err != nil {
				return nil, err
			}
			expr = ast.NewSlice(open.Pos, expr, nil, length)
			continue
		}
		first, err := p.expression()
		if err != nil {
			return nil, err
		}
		if p.match(token.COLON) {
			var length ast.Expression
			if !p.check(token.RBRACKET) {
				length, err = p.expression()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.consume(token.RBRACKET, "expected ']' to close a slice"); err != nil {
				return nil, err
			}
			expr = ast.NewSlice(open.Pos, expr, first, length)
			continue
		}
		if _, err := p.consume(token.RBRACKET, "expected ']' to close an index"); err != nil {
			return nil, err
		}
		expr = ast.NewIndex(open.Pos, expr, first)
	}
	return expr, nil
}

func (p *Parser) primary() (ast.Expression, error) {
	tok := p.peek()
	switch {
	case p.match(token.KW_NIL):
		return ast.NewNil(tok.Pos), nil
	case p.match(token.NUMBER):
		return ast.NewNum(tok.Pos, tok.Literal.(float64)), nil
	case p.match(token.STRING):
		return p.stringExpr(tok)
	case p.match(token.LBRACKET):
		return p.listExpr(tok)
	case p.match(token.LPAREN):
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
		if grp, ok := inner.(*ast.GroupExpr); ok {
			return grp, nil
		}
		return ast.NewParen(tok.Pos, inner), nil
	case p.match(token.AMP):
		name, err := p.dottedPath()
		if err != nil {
			return nil, err
		}
		return ast.NewPrefix(tok.Pos, token.AMP, ast.NewNames(tok.Pos, name)), nil
	case p.check(token.IDENTIFIER):
		return p.namesOrCall()
	}
	if p.atEOF() && p.repl {
		return nil, ErrNeedMoreInput
	}
	return nil, newSyntaxError(tok.Pos, fmt.Sprintf("unexpected token %q", tok.Lexeme))
}

func (p *Parser) namesOrCall() (ast.Expression, error) {
	pos := p.peek().Pos
	path, err := p.dottedPath()
	if err != nil {
		return nil, err
	}
	if !p.match(token.LPAREN) {
		return ast.NewNames(pos, path), nil
	}
	var params []ast.Expression
	for !p.check(token.RPAREN) {
		arg, err := p.or()
		if err != nil {
			return nil, err
		}
		params = append(params, arg)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' to close a call"); err != nil {
		return nil, err
	}
	return ast.NewCall(pos, path, params), nil
}

func (p *Parser) listExpr(open token.Token) (ast.Expression, error) {
	if p.match(token.RBRACKET) {
		return ast.NewList(open.Pos, nil), nil
	}
	elements, err := p.commaGroup()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RBRACKET, "expected ']' to close a list literal"); err != nil {
		return nil, err
	}
	return ast.NewList(open.Pos, elements), nil
}

// stringExpr turns a lexed STRING token into a StrExpr (no
// interpolation) or a CatExpr assembled from the lexer's InterpParts,
// each expression splice re-parsed from its own already-lexed token
// stream (§3 "cat(exprs)").
func (p *Parser) stringExpr(tok token.Token) (ast.Expression, error) {
	parts, ok := tok.Literal.([]lexer.InterpPart)
	if !ok {
		s, _ := tok.Literal.(string)
		return ast.NewStr(tok.Pos, s), nil
	}
	items := make([]ast.Expression, 0, len(parts))
	for _, part := range parts {
		if !part.IsExpr {
			items = append(items, ast.NewStr(tok.Pos, part.Lit))
			continue
		}
		sub := New(part.Tokens, false)
		expr, err := sub.expression()
		if err != nil {
			return nil, err
		}
		items = append(items, expr)
	}
	return ast.NewCat(tok.Pos, items), nil
}
