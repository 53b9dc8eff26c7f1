package token

import "testing"

func TestNewLiteral(t *testing.T) {
	tests := []struct {
		name   string
		typ    Type
		lexeme string
		lit    any
	}{
		{"number literal", NUMBER, "42", float64(42)},
		{"string literal", STRING, "hi", "hi"},
		{"identifier", IDENTIFIER, "myVar", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLiteral(tt.typ, tt.lexeme, tt.lit, Pos{})
			if got.Type != tt.typ || got.Lexeme != tt.lexeme || got.Literal != tt.lit {
				t.Errorf("NewLiteral() = %+v, want type=%v lexeme=%v literal=%v", got, tt.typ, tt.lexeme, tt.lit)
			}
		})
	}
}

func TestIsAssignOp(t *testing.T) {
	yes := []Type{ASSIGN, PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, PERCENT_EQ, CARET_EQ, TILDE_EQ, ANDAND_EQ, OROR_EQ}
	for _, typ := range yes {
		if !(Token{Type: typ}).IsAssignOp() {
			t.Errorf("IsAssignOp() = false for %v, want true", typ)
		}
	}
	no := []Type{PLUS, EQ, NE, IDENTIFIER}
	for _, typ := range no {
		if (Token{Type: typ}).IsAssignOp() {
			t.Errorf("IsAssignOp() = true for %v, want false", typ)
		}
	}
}

func TestPosString(t *testing.T) {
	p := Pos{Line: 4, Chr: 9}
	if got, want := p.String(), "5:10"; got != want {
		t.Errorf("Pos.String() = %q, want %q", got, want)
	}
}
