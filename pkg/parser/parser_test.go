package parser

import (
	"io"
	"testing"

	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/lexer"
	"github.com/anthony-63/Ignis/pkg/token"
	"github.com/google/go-cmp/cmp"
)

func parseSource(t *testing.T, src string) (*ast.Block, error) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Log = io.Discard
	toks := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	return Parse(toks)
}

func mustParse(t *testing.T, src string) *ast.Block {
	t.Helper()
	root, err := parseSource(t, src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return root
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		// Logical vs Relational
		{"a && b == c;", "(a && (b == c))"},
		{"a == b || c;", "((a == b) || c)"},
		// Relational vs Additive
		{"a < b + c;", "(a < (b + c))"},
		{"a - b >= c;", "((a - b) >= c)"},
		// Additive vs Multiplicative
		{"a + b * c;", "(a + (b * c))"},
		{"a / b - c;", "((a / b) - c)"},
		// Multiplicative vs Unary
		{"a * -b;", "(a * (-b))"},
		{"-a % b;", "((-a) % b)"},
		// Unary vs Call and Member
		{"-f(x);", "(-f(x))"},
		{"!p.ok;", "(!p.ok)"},
		// Assignment vs Logical
		{"x = a || b;", "(x = (a || b))"},
		// Associativity
		{"a - b - c;", "((a - b) - c)"},
		{"a / b * c;", "((a / b) * c)"},
		{"x = y = 1;", "(x = (y = 1))"},
		// Grouping and the rest
		{"(a + b) * c;", "((a + b) * c)"},
		{"x += 1 * 2;", "(x = (x + (1 * 2)))"},
		{"f(a + 1, g(b));", "f((a + 1), g(b))"},
		{"p.len(1);", "p.len(1)"},
		{"new P { x: 1, y: a + b };", "new P{x: 1, y: (a + b)}"},
		{"[1, 2 * 3];", "[1, (2 * 3)]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			root := mustParse(t, tt.src)
			if len(root.Stmts) != 1 {
				t.Fatalf("got %d statements, want 1", len(root.Stmts))
			}
			stmt, ok := root.Stmts[0].(*ast.ExprStmt)
			if !ok {
				t.Fatalf("got %T, want *ast.ExprStmt", root.Stmts[0])
			}
			if got := ast.Format(stmt.X); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// Every pair of adjacent binary levels must group the tighter operator first,
// whichever side it appears on.
func TestPrecedenceGrid(t *testing.T) {
	levels := []struct {
		bp BindingPower
		op string
	}{
		{Logical, "&&"},
		{Relational, "<"},
		{Additive, "+"},
		{Multiplicative, "*"},
	}
	for i := 0; i+1 < len(levels); i++ {
		lo, hi := levels[i], levels[i+1]
		cases := map[string]string{
			"a " + lo.op + " b " + hi.op + " c;": "(a " + lo.op + " (b " + hi.op + " c))",
			"a " + hi.op + " b " + lo.op + " c;": "((a " + hi.op + " b) " + lo.op + " c)",
		}
		for src, want := range cases {
			root := mustParse(t, src)
			if got := ast.Format(root.Stmts[0].(*ast.ExprStmt).X); got != want {
				t.Errorf("%s vs %s: %q parsed as %s, want %s", lo.bp, hi.bp, src, got, want)
			}
		}
	}
}

func TestBindingPowerOrder(t *testing.T) {
	order := []BindingPower{Default, Comma, Assignment, Logical, Relational, Additive, Multiplicative, Unary, Call, Member, Primary}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("%s must bind looser than %s", order[i-1], order[i])
		}
	}
}

func TestLookupIgnoresPayload(t *testing.T) {
	table := NewTable[ast.Expr]()
	table.RegisterPrefix(token.Integer, parseInteger)
	table.RegisterInfix(token.Plus, Additive, parseBinary)

	for _, tok := range []token.Token{
		{Type: token.Integer, Value: "0"},
		{Type: token.Integer, Value: "42"},
		{Type: token.Integer, Value: "-7"},
	} {
		if _, ok := table.Prefix(tok.Type); !ok {
			t.Errorf("no prefix handler for %s", tok.Describe())
		}
	}
	if bp, ok := table.Power(token.Token{Type: token.Plus, Value: "ignored"}.Type); !ok || bp != Additive {
		t.Errorf("Power(+) = %s, %v; want Additive, true", bp, ok)
	}
	if _, ok := table.Infix(token.Minus); ok {
		t.Errorf("unregistered kind must not resolve")
	}

	root := mustParse(t, "0 + 42 + 7;")
	if got := ast.Format(root.Stmts[0].(*ast.ExprStmt).X); got != "((0 + 42) + 7)" {
		t.Errorf("got %s", got)
	}
}

const program = `
include "std.ig";
linklib "m";
linkstatic "libs/libfoo.a";

puts -> extern "puts" (s: str) i32;
printf -> extern (fmt: str, ..) i32;

Point -> struct {
	x: i32,
	y i32
	len -> sub (ref this) i32 { return this.x + this.y; }
}

add -> sub (a: i32, b: i32) i32 {
	return a + b;
}

main -> sub () {
	mut p = new Point { x: 1, y: 2 };
	immut n: i32 = add(2, 3);
	if n > 4 {
		p.x = n;
	} else if n == 0 {
		return;
	} else {
		p.y -= 1;
	}
	while p.x > 0 {
		p.x -= 1;
	}
}
`

func TestDeclarations(t *testing.T) {
	root := mustParse(t, program)
	want := []string{
		`include "std.ig";`,
		`linklib "m";`,
		`linkstatic "libs/libfoo.a";`,
		`puts -> extern "puts" (s: str) i32;`,
		`printf -> extern "printf" (fmt: str, ..) i32;`,
		`Point -> struct {x: i32, y: i32 len -> sub (this: ref this) i32 {return (this.x + this.y);}}`,
		`add -> sub (a: i32, b: i32) i32 {return (a + b);}`,
		`main -> sub () void {mut p = new Point{x: 1, y: 2}; immut n: i32 = add(2, 3); ` +
			`if (n > 4) {(p.x = n);} else if (n == 0) {return;} else {(p.y = (p.y - 1));} ` +
			`while (p.x > 0) {(p.x = (p.x - 1));}}`,
	}
	var got []string
	for _, s := range root.Stmts {
		got = append(got, ast.Format(s))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	first := mustParse(t, program)
	second := mustParse(t, program)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-parsing produced a different tree (-first +second):\n%s", diff)
	}
}

func TestDeclarationEscapesExpression(t *testing.T) {
	root := mustParse(t, "f -> sub () { } g -> sub () { }")
	if len(root.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(root.Stmts))
	}
	for _, s := range root.Stmts {
		if _, ok := s.(*ast.FuncDecl); !ok {
			t.Errorf("got %T, want *ast.FuncDecl", s)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"1 +;",
		"mut = 1;",
		"x -> y;",
		"a.b.c();",
		"f(1, 2",
		"main -> sub () { return 1 }",
		"immut x 1;",
		"p -> struct { x: i32 y }",
	} {
		if _, err := parseSource(t, src); err == nil {
			t.Errorf("%q: expected a parse error", src)
		}
	}
}
