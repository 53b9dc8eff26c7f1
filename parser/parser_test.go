package parser

import (
	"testing"

	"sini/ast"
	"sini/lexer"
	"sini/token"
)

func parseSource(t *testing.T, src string) []ast.Statement {
	t.Helper()
	toks, err := lexer.New(src, 0).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	stmts, err := New(toks, false).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return stmts
}

func TestParseVarDeclaration(t *testing.T) {
	stmts := parseSource(t, "var x = 1\n")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	v, ok := stmts[0].(*ast.VarStmt)
	if !ok {
		t.Fatalf("expected *ast.VarStmt, got %T", stmts[0])
	}
	if len(v.Names) != 1 || v.Names[0] != "x" {
		t.Fatalf("expected names [x], got %v", v.Names)
	}
	num, ok := v.Initializer.(*ast.NumExpr)
	if !ok || num.Value != 1 {
		t.Fatalf("expected initializer 1, got %v", v.Initializer)
	}
}

func TestParseVarDestructureWithRest(t *testing.T) {
	stmts := parseSource(t, "var a, b, ...rest\n")
	v := stmts[0].(*ast.VarStmt)
	if len(v.Names) != 2 || v.Names[0] != "a" || v.Names[1] != "b" {
		t.Fatalf("expected names [a b], got %v", v.Names)
	}
	if v.Rest != "rest" {
		t.Fatalf("expected rest 'rest', got %q", v.Rest)
	}
}

func TestParseIfElseifElse(t *testing.T) {
	stmts := parseSource(t, "if a\nelseif b\nelse\nend\n")
	kinds := []string{}
	for _, s := range stmts {
		switch s.(type) {
		case *ast.IfBeginStmt:
			kinds = append(kinds, "begin")
		case *ast.IfCondStmt:
			kinds = append(kinds, "cond")
		case *ast.IfElseStmt:
			kinds = append(kinds, "else")
		case *ast.IfEndStmt:
			kinds = append(kinds, "end")
		}
	}
	want := []string{"begin", "cond", "else", "end"}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, kinds)
		}
	}
}

func TestParseForLoop(t *testing.T) {
	stmts := parseSource(t, "for item, i : list\nend\n")
	begin, ok := stmts[0].(*ast.ForBeginStmt)
	if !ok {
		t.Fatalf("expected *ast.ForBeginStmt, got %T", stmts[0])
	}
	if begin.Name != "item" || begin.Index != "i" {
		t.Fatalf("expected name=item index=i, got name=%q index=%q", begin.Name, begin.Index)
	}
	if _, ok := stmts[1].(*ast.ForEndStmt); !ok {
		t.Fatalf("expected *ast.ForEndStmt, got %T", stmts[1])
	}
}

func TestParseDoWhileUnconditional(t *testing.T) {
	stmts := parseSource(t, "do\nbreak\nend\n")
	if _, ok := stmts[0].(*ast.DoWhileBeginStmt); !ok {
		t.Fatalf("expected *ast.DoWhileBeginStmt, got %T", stmts[0])
	}
	if _, ok := stmts[2].(*ast.DoWhileEndStmt); !ok {
		t.Fatalf("expected *ast.DoWhileEndStmt, got %T", stmts[2])
	}
}

func TestParseDefWithParamsAndRest(t *testing.T) {
	stmts := parseSource(t, "def greet(name, ...extra)\nend\n")
	begin, ok := stmts[0].(*ast.DefBeginStmt)
	if !ok {
		t.Fatalf("expected *ast.DefBeginStmt, got %T", stmts[0])
	}
	if begin.Name != "greet" || len(begin.Params) != 1 || begin.Params[0] != "name" || begin.Rest != "extra" {
		t.Fatalf("unexpected def header: %+v", begin)
	}
}

func TestParseLabelAndGoto(t *testing.T) {
	stmts := parseSource(t, "top:\ngoto top\n")
	if _, ok := stmts[0].(*ast.LabelStmt); !ok {
		t.Fatalf("expected *ast.LabelStmt, got %T", stmts[0])
	}
	g, ok := stmts[1].(*ast.GotoStmt)
	if !ok || g.Name != "top" {
		t.Fatalf("expected goto top, got %+v", stmts[1])
	}
}

func TestParseEnumImplicitAndExplicitValues(t *testing.T) {
	stmts := parseSource(t, "enum\nred\ngreen: 5\nend\n")
	e, ok := stmts[0].(*ast.EnumStmt)
	if !ok {
		t.Fatalf("expected *ast.EnumStmt, got %T", stmts[0])
	}
	if len(e.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(e.Members))
	}
	if e.Members[0].Name != "red" || e.Members[0].Value != nil {
		t.Fatalf("expected red with no explicit value, got %+v", e.Members[0])
	}
	if e.Members[1].Name != "green" {
		t.Fatalf("expected green, got %q", e.Members[1].Name)
	}
	num, ok := e.Members[1].Value.(*ast.NumExpr)
	if !ok || num.Value != 5 {
		t.Fatalf("expected green: 5, got %v", e.Members[1].Value)
	}
}

func TestPrecedenceArithmetic(t *testing.T) {
	// 1 + 2 * 3 should fold to 7 since both operands are literal.
	stmts := parseSource(t, "1 + 2 * 3\n")
	eval := stmts[0].(*ast.EvalStmt)
	num, ok := eval.Expr.(*ast.NumExpr)
	if !ok {
		t.Fatalf("expected constant-folded NumExpr, got %T", eval.Expr)
	}
	if num.Value != 7 {
		t.Fatalf("expected 7, got %v", num.Value)
	}
}

func TestUnaryMinusLosesToCaretOnRight(t *testing.T) {
	// 2^-2 parses as 2^(-2): the unary minus folds into the literal -2,
	// while the '^' itself stays an InfixExpr.
	stmts := parseSource(t, "2^-2\n")
	eval := stmts[0].(*ast.EvalStmt)
	infix, ok := eval.Expr.(*ast.InfixExpr)
	if !ok {
		t.Fatalf("expected InfixExpr, got %T", eval.Expr)
	}
	right, ok := infix.Right.(*ast.NumExpr)
	if !ok || right.Value != -2 {
		t.Fatalf("expected right operand folded to -2, got %v", infix.Right)
	}
}

func TestUnaryMinusAppliesToWholePowerExpression(t *testing.T) {
	// -2^2 should parse as -(2^2): the unary minus wraps the whole power
	// expression rather than binding to 2 alone.
	stmts := parseSource(t, "-2^2\n")
	eval := stmts[0].(*ast.EvalStmt)
	prefix, ok := eval.Expr.(*ast.PrefixExpr)
	if !ok {
		t.Fatalf("expected PrefixExpr wrapping the power expression, got %T", eval.Expr)
	}
	pow, ok := prefix.Operand.(*ast.InfixExpr)
	if !ok || pow.Op != token.CARET {
		t.Fatalf("expected the operand to be a '^' InfixExpr, got %v", prefix.Operand)
	}
}

func TestStringConcatFoldsLiterals(t *testing.T) {
	stmts := parseSource(t, "'ab' ~ 'cd'\n")
	eval := stmts[0].(*ast.EvalStmt)
	str, ok := eval.Expr.(*ast.StrExpr)
	if !ok || str.Value != "abcd" {
		t.Fatalf("expected folded 'abcd', got %v", eval.Expr)
	}
}

func TestPipeRewritesIntoLeadingArgument(t *testing.T) {
	stmts := parseSource(t, "x | f(1, 2)\n")
	eval := stmts[0].(*ast.EvalStmt)
	call, ok := eval.Expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", eval.Expr)
	}
	if len(call.Cmd) != 1 || call.Cmd[0] != "f" {
		t.Fatalf("expected call to f, got %v", call.Cmd)
	}
	if len(call.Params) != 3 {
		t.Fatalf("expected 3 params (x, 1, 2), got %d", len(call.Params))
	}
	if _, ok := call.Params[0].(*ast.NamesExpr); !ok {
		t.Fatalf("expected first param to be the piped names expr, got %T", call.Params[0])
	}
}

func TestPipeIntoBareNameBecomesCall(t *testing.T) {
	stmts := parseSource(t, "x | str.upper\n")
	eval := stmts[0].(*ast.EvalStmt)
	call, ok := eval.Expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", eval.Expr)
	}
	if len(call.Cmd) != 2 || call.Cmd[0] != "str" || call.Cmd[1] != "upper" {
		t.Fatalf("expected call to str.upper, got %v", call.Cmd)
	}
	if len(call.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(call.Params))
	}
}

func TestAssignmentIsRightAssociativeAndLoosest(t *testing.T) {
	stmts := parseSource(t, "a = b = 1 + 2\n")
	eval := stmts[0].(*ast.EvalStmt)
	outer, ok := eval.Expr.(*ast.InfixExpr)
	if !ok {
		t.Fatalf("expected InfixExpr, got %T", eval.Expr)
	}
	inner, ok := outer.Right.(*ast.InfixExpr)
	if !ok {
		t.Fatalf("expected nested assignment on the right, got %T", outer.Right)
	}
	num, ok := inner.Right.(*ast.NumExpr)
	if !ok || num.Value != 3 {
		t.Fatalf("expected folded 3 as innermost right operand, got %v", inner.Right)
	}
}

func TestInterpolatedStringBecomesCatExpr(t *testing.T) {
	stmts := parseSource(t, "\"hi $name!\"\n")
	eval := stmts[0].(*ast.EvalStmt)
	cat, ok := eval.Expr.(*ast.CatExpr)
	if !ok {
		t.Fatalf("expected CatExpr, got %T", eval.Expr)
	}
	if len(cat.Items) != 3 {
		t.Fatalf("expected 3 parts (literal, names, literal), got %d", len(cat.Items))
	}
	if _, ok := cat.Items[1].(*ast.NamesExpr); !ok {
		t.Fatalf("expected middle part to be a names splice, got %T", cat.Items[1])
	}
}

func TestIndexAndSliceExpressions(t *testing.T) {
	stmts := parseSource(t, "xs[0]\nxs[1:2]\n")
	idx, ok := stmts[0].(*ast.EvalStmt).Expr.(*ast.IndexExpr)
	if !ok {
		t.Fatalf("expected IndexExpr, got %T", stmts[0].(*ast.EvalStmt).Expr)
	}
	if _, ok := idx.Obj.(*ast.NamesExpr); !ok {
		t.Fatalf("expected names object, got %T", idx.Obj)
	}
	sl, ok := stmts[1].(*ast.EvalStmt).Expr.(*ast.SliceExpr)
	if !ok {
		t.Fatalf("expected SliceExpr, got %T", stmts[1].(*ast.EvalStmt).Expr)
	}
	if sl.Start == nil || sl.Len == nil {
		t.Fatalf("expected both start and len present, got %+v", sl)
	}
}

func TestUnterminatedBlockIsErrorInBatchMode(t *testing.T) {
	toks, err := lexer.New("if a\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	_, err = New(toks, false).Parse()
	if err == nil {
		t.Fatal("expected an error for an unterminated 'if' block")
	}
}

func TestUnterminatedBlockRequestsMoreInputInREPLMode(t *testing.T) {
	toks, err := lexer.New("if a\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	_, err = New(toks, true).Parse()
	if err != ErrNeedMoreInput {
		t.Fatalf("expected ErrNeedMoreInput, got %v", err)
	}
}

func TestFeedAppendsTokensAfterRemovingOldEOF(t *testing.T) {
	first, err := lexer.New("if a\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := New(first, true)
	_, err = p.Parse()
	if err != ErrNeedMoreInput {
		t.Fatalf("expected ErrNeedMoreInput, got %v", err)
	}
	more, err := lexer.New("end\n", 0).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p.Feed(more)
	stmts, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected error after feeding remainder: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected the closing 'end' statement, got %d statements", len(stmts))
	}
	if _, ok := stmts[0].(*ast.IfEndStmt); !ok {
		t.Fatalf("expected *ast.IfEndStmt, got %T", stmts[0])
	}
}
