package lexer

import (
	"io"
	"testing"

	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/token"
	"github.com/anthony-63/Ignis/pkg/util"
	"github.com/google/go-cmp/cmp"
)

func lex(t *testing.T, src string) (toks []token.Token, err error) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Log = io.Discard
	defer util.Recover(&err)
	return NewLexer([]rune(src), 0, cfg).Tokenize(), nil
}

func kinds(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestTokenKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Type
	}{
		{"declaration", "main -> sub () { }", []token.Type{token.Identifier, token.Arrow, token.Sub, token.LParen, token.RParen, token.LBrace, token.RBrace, token.EOF}},
		{"operators", "== != <= >= && || ^^ += -= ++ --", []token.Type{token.EqEq, token.Neq, token.Lte, token.Gte, token.AndAnd, token.OrOr, token.Pow, token.PlusEq, token.MinusEq, token.Inc, token.Dec, token.EOF}},
		{"range vs decimal", "1..2 1.5", []token.Type{token.Integer, token.Range, token.Integer, token.Decimal, token.EOF}},
		{"keywords", "mut immut ref this new linklib linkstatic extern include", []token.Type{token.Mut, token.Immut, token.Ref, token.Identifier, token.New, token.LinkLib, token.LinkStatic, token.Extern, token.Include, token.EOF}},
		{"comments", "x // ignored\ny", []token.Type{token.Identifier, token.Identifier, token.EOF}},
		{"booleans", "true false", []token.Type{token.Bool, token.Bool, token.EOF}},
		{"member", "p.x", []token.Type{token.Identifier, token.Dot, token.Identifier, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lex(t, tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, kinds(toks)); diff != "" {
				t.Errorf("kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenPayloads(t *testing.T) {
	toks, err := lex(t, `immut s = "a\tb\x41"; mut n = 42; mut f = 3.25; mut b = true;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, tok := range toks {
		switch tok.Type {
		case token.String, token.Integer, token.Decimal, token.Bool:
			got = append(got, tok.Value)
		}
	}
	want := []string{"a\tbA", "42", "3.25", "true"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	toks, err := lex(t, "a\n  bb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := toks[1]
	if b.Line != 2 || b.Column != 3 || b.Len != 2 {
		t.Errorf("got line %d col %d len %d, want 2 3 2", b.Line, b.Column, b.Len)
	}
}

func TestLexErrors(t *testing.T) {
	for _, src := range []string{`"unterminated`, "a @ b", `"\xZZ"`} {
		if _, err := lex(t, src); err == nil {
			t.Errorf("%q: expected an error", src)
		}
	}
}
