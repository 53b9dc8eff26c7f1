package lexer

import (
	"testing"

	"sini/token"
)

func scanTypes(t *testing.T, src string) []token.Type {
	t.Helper()
	l := CreateLexer(src)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan(%q) raised an error: %v", src, err)
	}
	types := make([]token.Type, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func assertTypes(t *testing.T, got, want []token.Type) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d tokens %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v (full: got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func TestOperatorsSuccess(t *testing.T) {
	got := scanTypes(t, "==/=*+>-<!=<=>=!")
	want := []token.Type{
		token.EQ, token.SLASH_EQ, token.STAR, token.UPLUS, token.GT,
		token.UMINUS, token.LT, token.NE, token.LE, token.GE, token.BANG,
		token.EOF,
	}
	assertTypes(t, got, want)
}

func TestScanPunctuation(t *testing.T) {
	got := scanTypes(t, "(){}[]**;,.")
	want := []token.Type{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACKET, token.RBRACKET, token.STAR, token.STAR,
		token.SEMI, token.COMMA, token.DOT, token.EOF,
	}
	assertTypes(t, got, want)
}

func TestCompoundAssignOperators(t *testing.T) {
	got := scanTypes(t, "+= -= *= /= %= ^= ~= &&= ||=")
	want := []token.Type{
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.PERCENT_EQ, token.CARET_EQ, token.TILDE_EQ, token.ANDAND_EQ,
		token.OROR_EQ, token.EOF,
	}
	assertTypes(t, got, want)
}

func TestAmpersandFamily(t *testing.T) {
	got := scanTypes(t, "& && &&=")
	want := []token.Type{token.AMP, token.ANDAND, token.ANDAND_EQ, token.EOF}
	assertTypes(t, got, want)
}

func TestPipeFamily(t *testing.T) {
	got := scanTypes(t, "| || ||=")
	want := []token.Type{token.PIPE, token.OROR, token.OROR_EQ, token.EOF}
	assertTypes(t, got, want)
}

func TestUnaryVsBinaryPlusMinus(t *testing.T) {
	got := scanTypes(t, "-1 + x - (1) -2")
	want := []token.Type{
		token.UMINUS, token.NUMBER, token.PLUS, token.IDENTIFIER,
		token.MINUS, token.LPAREN, token.NUMBER, token.RPAREN,
		token.MINUS, token.NUMBER, token.EOF,
	}
	assertTypes(t, got, want)
}

func TestKeywords(t *testing.T) {
	got := scanTypes(t, "if elseif else end while do for loop var enum def return break continue goto namespace using include nil")
	want := []token.Type{
		token.KW_IF, token.KW_ELSEIF, token.KW_ELSE, token.KW_END, token.KW_WHILE,
		token.KW_DO, token.KW_FOR, token.KW_LOOP, token.KW_VAR, token.KW_ENUM,
		token.KW_DEF, token.KW_RETURN, token.KW_BREAK, token.KW_CONTINUE,
		token.KW_GOTO, token.KW_NAMESPACE, token.KW_USING, token.KW_INCLUDE,
		token.KW_NIL, token.EOF,
	}
	assertTypes(t, got, want)
}

func TestIdentifierNotKeyword(t *testing.T) {
	got := scanTypes(t, "ifx endish my_var")
	want := []token.Type{token.IDENTIFIER, token.IDENTIFIER, token.IDENTIFIER, token.EOF}
	assertTypes(t, got, want)
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want float64
	}{
		{"decimal", "42", 42},
		{"decimal fraction", "1.5", 1.5},
		{"binary", "0b101", 5},
		{"octal", "0c17", 15},
		{"hex", "0xFF", 255},
		{"hex fraction", "0x1.8", 1.5},
		{"decimal exponent", "1e2", 100},
		{"hex exponent", "0x1p4", 16},
		{"underscored", "1_000", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := CreateLexer(tt.src)
			toks, err := l.Scan()
			if err != nil {
				t.Fatalf("Scan(%q) error: %v", tt.src, err)
			}
			if len(toks) < 1 || toks[0].Type != token.NUMBER {
				t.Fatalf("Scan(%q) first token = %v, want NUMBER", tt.src, toks)
			}
			got, ok := toks[0].Literal.(float64)
			if !ok {
				t.Fatalf("Scan(%q) literal = %v (%T), want float64", tt.src, toks[0].Literal, toks[0].Literal)
			}
			if got != tt.want {
				t.Errorf("Scan(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestBasicString(t *testing.T) {
	l := CreateLexer(`'hello ''world'''`)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if toks[0].Type != token.STRING {
		t.Fatalf("want STRING, got %v", toks[0])
	}
	want := `hello 'world'`
	if toks[0].Literal != want {
		t.Errorf("literal = %q, want %q", toks[0].Literal, want)
	}
}

func TestStringEscapes(t *testing.T) {
	l := CreateLexer(`"a\tb\nc\\d\"e"`)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	want := "a\tb\nc\\d\"e"
	if toks[0].Literal != want {
		t.Errorf("literal = %q, want %q", toks[0].Literal, want)
	}
}

func TestStringHexEscape(t *testing.T) {
	l := CreateLexer(`"\x41\x42"`)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if toks[0].Literal != "AB" {
		t.Errorf("literal = %q, want %q", toks[0].Literal, "AB")
	}
}

func TestInterpolatedStringSplitsIntoParts(t *testing.T) {
	l := CreateLexer(`"hi $name, ${1 + 2}!"`)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	parts, ok := toks[0].Literal.([]InterpPart)
	if !ok {
		t.Fatalf("literal = %v (%T), want []InterpPart", toks[0].Literal, toks[0].Literal)
	}
	if len(parts) != 5 {
		t.Fatalf("got %d parts, want 5: %+v", len(parts), parts)
	}
	if parts[0].IsExpr || parts[0].Lit != "hi " {
		t.Errorf("part 0 = %+v, want literal \"hi \"", parts[0])
	}
	if !parts[1].IsExpr {
		t.Errorf("part 1 = %+v, want an expr splice for $name", parts[1])
	}
	if parts[2].IsExpr || parts[2].Lit != ", " {
		t.Errorf("part 2 = %+v, want literal \", \"", parts[2])
	}
	if !parts[3].IsExpr {
		t.Errorf("part 3 = %+v, want an expr splice for ${1 + 2}", parts[3])
	}
}

func TestLineComment(t *testing.T) {
	got := scanTypes(t, "1 # this is a comment\n2")
	want := []token.Type{token.NUMBER, token.NEWLINE, token.NUMBER, token.EOF}
	assertTypes(t, got, want)
}

func TestBlockCommentDoesNotNest(t *testing.T) {
	got := scanTypes(t, "1 /* outer /* inner */ 2")
	want := []token.Type{token.NUMBER, token.NUMBER, token.EOF}
	assertTypes(t, got, want)
}

func TestSoftVsHardNewline(t *testing.T) {
	l := CreateLexer("x +\ny\nz;")
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	var newlines []token.Token
	for _, tok := range toks {
		if tok.Type == token.NEWLINE {
			newlines = append(newlines, tok)
		}
	}
	if len(newlines) != 2 {
		t.Fatalf("got %d newlines, want 2: %+v", len(newlines), newlines)
	}
	if !newlines[0].Soft {
		t.Errorf("newline after '+' should be soft")
	}
	if newlines[1].Soft {
		t.Errorf("newline after identifier 'y' should be hard")
	}
}

func TestSemicolonAlwaysHardNewlineEquivalent(t *testing.T) {
	got := scanTypes(t, "x; y")
	want := []token.Type{token.IDENTIFIER, token.SEMI, token.IDENTIFIER, token.EOF}
	assertTypes(t, got, want)
}

func TestUnterminatedStringProducesError(t *testing.T) {
	l := CreateLexer(`'unterminated`)
	_, err := l.Scan()
	if err == nil {
		t.Fatalf("expected an error for unterminated string")
	}
}

func TestScanIsDeterministic(t *testing.T) {
	src := "def f(x) return x + 1 end"
	a := scanTypes(t, src)
	b := scanTypes(t, src)
	assertTypes(t, a, b)
}
