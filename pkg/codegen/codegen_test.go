package codegen

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/lexer"
	"github.com/anthony-63/Ignis/pkg/parser"
	"github.com/anthony-63/Ignis/pkg/util"
	"github.com/google/go-cmp/cmp"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Log = io.Discard
	return cfg
}

func generate(t *testing.T, cfg *config.Config, src string) (unit *Unit, err error) {
	t.Helper()
	defer util.Recover(&err)
	toks := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	root, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Generate(cfg, root, Options{Output: filepath.Join(t.TempDir(), "out")})
}

// lower compiles src and renders its IR, failing the test on any error.
func lower(t *testing.T, src string) (*Unit, string) {
	t.Helper()
	unit, err := generate(t, testConfig(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := NewQBEBackend().GenerateIR(unit.Program)
	if err != nil {
		t.Fatalf("render IR: %v", err)
	}
	return unit, text
}

func wantIR(t *testing.T, text string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(text, f) {
			t.Errorf("IR is missing %q:\n%s", f, text)
		}
	}
}

func TestCallAndReturn(t *testing.T) {
	_, text := lower(t, `
add -> sub (a: i32, b: i32) i32 {
	return a + b;
}
main -> sub () i32 {
	return add(2, 3);
}`)
	wantIR(t, text,
		"export function w $add(w %p_a, w %p_b) {",
		"storew %p_a, %t0",
		"=w add %t",
		"export function w $main() {",
		"%t0 =w call $add(w 2, w 3)",
		"ret %t0",
	)
}

func TestVoidMainReturnsZero(t *testing.T) {
	_, text := lower(t, "main -> sub () { }")
	wantIR(t, text, "export function w $main() {\n@start\n\tret 0\n}")

	_, text = lower(t, "main -> sub () { return; }")
	wantIR(t, text, "\tret 0\n")
}

func TestComparisons(t *testing.T) {
	_, text := lower(t, "main -> sub () { if 1 == 1 { } }")
	wantIR(t, text, "%t0 =w ceqw 1, 1", "jnz %t0, @L0, @L1")

	_, text = lower(t, "main -> sub () { mut a = 1; if a < 2 { } }")
	wantIR(t, text, "=w cultw %t")

	_, text = lower(t, "main -> sub () { mut f = 1.5; if f < 2.0 { } }")
	wantIR(t, text, "=w cuos %t", "=w clts %t", "=w or %.uo_")
}

func TestWhileLowering(t *testing.T) {
	const src = "main -> sub () { mut i = 0; while i < 3 { i = i + 1; } }"

	_, text := lower(t, src)
	wantIR(t, text, "jmp @L0\n@L0\n")

	cfg := testConfig()
	cfg.SetFeature(config.FeatGuardedWhile, true)
	unit, err := generate(t, cfg, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	guarded, _ := NewQBEBackend().GenerateIR(unit.Program)
	wantIR(t, guarded, "jmp @L2\n@L2\n", "jnz %t", ", @L0, @L1")
}

func TestStructs(t *testing.T) {
	unit, text := lower(t, `
P -> struct {
	a: i8,
	b: i32,
	c: i64
	get -> sub (ref this) i32 { return this.b; }
}
main -> sub () i32 {
	mut p = new P { a: 1, b: 2 };
	p.b = 3;
	return p.get();
}`)
	for want, name := range []string{"P.a", "P.b", "P.c"} {
		if got, ok := unit.Scope.Field(name); !ok || got != want {
			t.Errorf("Field(%s) = %d, %v; want %d, true", name, got, ok, want)
		}
	}
	wantIR(t, text,
		"type :P = { b, w, l }",
		"=l alloc8 16",
		"storeb 1, %t0",
		"%t1 =l add %t0, 4",
		"storew 2, %t1",
		"blit %t0, %t2, 16",
		"%t3 =l add %t2, 4",
		"storew 3, %t3",
		"export function w $P.get(l %p_this) {",
		"=w call $P.get(l %t2)",
	)
}

func TestVariadicExtern(t *testing.T) {
	unit, text := lower(t, `
printf -> extern (fmt: str, ..) i32;
main -> sub () { printf("%d\n", 5); }`)
	if diff := cmp.Diff([]string{"printf"}, unit.Program.Externs); diff != "" {
		t.Errorf("externs mismatch (-want +got):\n%s", diff)
	}
	wantIR(t, text,
		`data $str.0 = { b "%d", b 10, b 0 }`,
		"call $printf(l $str.0, ..., w 5)",
	)
}

func TestLiteralsAdaptToDestination(t *testing.T) {
	_, text := lower(t, `
wide -> sub (x: i64) i64 { return x; }
main -> sub () {
	immut n: i64 = 7;
	immut d: f64 = -2.5;
	wide(9);
}`)
	wantIR(t, text, "storel 7, %t", "stored d_-2.5, %t", "call $wide(l 9)")
}

func TestLinkDirectives(t *testing.T) {
	unit, _ := lower(t, `
linklib "m";
linkstatic "libs/libfoo.a";
linklib "m";
main -> sub () { }`)
	want := []Library{{Name: "m"}, {Name: "libs/libfoo.a", Static: true}}
	if diff := cmp.Diff(want, unit.Libraries); diff != "" {
		t.Errorf("libraries mismatch (-want +got):\n%s", diff)
	}
}

func TestScopingRules(t *testing.T) {
	// Blocks share the function's scope, so their declarations outlive them.
	lower(t, `
main -> sub () i32 {
	mut x = 1;
	if x == 1 { mut y = 2; x = y; } else { x = 0; }
	y = 3;
	while x < 3 { mut z = x; x = z + 1; }
	return z;
}`)
	// Function parameters live in the function's own scope.
	lower(t, "f -> sub (x: i32) i32 { return x; } g -> sub (x: i32) i32 { return x; } main -> sub () { }")
	// A nested function opens a scope of its own and may reuse an outer name.
	_, text := lower(t, `
main -> sub () i32 {
	mut x = 1;
	f -> sub () i32 { mut x = 2; return x; }
	return x + f();
}`)
	wantIR(t, text, "export function w $f() {", "call $f()")
}

func TestFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"redeclared variable", "main -> sub () { mut x = 1; mut x = 2; }", "already declared"},
		{"redeclared in if body", "main -> sub () { mut x = 1; if x == 1 { mut x = 2; } }", "already declared"},
		{"redeclared after while", "main -> sub () { mut i = 0; while i < 3 { mut y = i; i = y + 1; } mut y = 1; }", "already declared"},
		{"captured local", "main -> sub () i32 { mut x = 4; f -> sub () i32 { return x; } return f(); }", "cannot capture local 'x'"},
		{"captured parameter", "g -> sub (n: i32) { f -> sub () { n = 1; } }", "cannot capture local 'n'"},
		{"redeclared function", "f -> sub () { } f -> sub () { } main -> sub () { }", "already defined"},
		{"mixed operands", "main -> sub () { mut x = 1 + 1.0; }", "unsupported operation"},
		{"float remainder", "main -> sub () { mut x = 1.0 % 2.0; }", "not defined"},
		{"power", "main -> sub () { mut x = 2 ^^ 3; }", "not supported"},
		{"immutable assign", "main -> sub () { immut x = 1; x = 2; }", "immutable variable 'x'"},
		{"immutable field", "P -> struct { a: i32 } main -> sub () { immut p = new P { a: 1 }; p.a = 2; }", "immutable variable 'p'"},
		{"undefined", "main -> sub () { y = 2; }", "undefined symbol 'y'"},
		{"value from void main", "main -> sub () { return 1; }", "void function"},
		{"missing value", "f -> sub () i32 { return; } main -> sub () { }", "missing return value"},
		{"arity", "f -> sub (a: i32) { } main -> sub () { f(); }", "expects 1 arguments"},
		{"argument type", "f -> sub (a: str) { } main -> sub () { f(1); }", "expected type 'str'"},
		{"statement at top level", "1 + 2;", "only declarations"},
		{"nested member", "P -> struct { a: i32 } main -> sub () { mut p = new P { a: 1 }; mut q = p.a.b; }", "failed to get member type"},
		{"unknown field", "P -> struct { a: i32 } main -> sub () { mut p = new P { z: 1 }; }", "no field 'z'"},
		{"self containing struct", "P -> struct { p: P } main -> sub () { }", "cannot contain itself"},
		{"builtin type name", "i32 -> struct { a: i32 } main -> sub () { }", "built-in type"},
		{"array literal", "main -> sub () { mut a = [1, 2]; }", "not supported"},
		{"function as value", "f -> sub () { } main -> sub () { mut g = f; }", "cannot be used as a value"},
		{"global needs literal", "mut g = 1 + 2; main -> sub () { }", "literal initializer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generate(t, testConfig(), tt.src)
			if err == nil {
				t.Fatalf("expected an error containing %q", tt.want)
			}
			var d *util.Diagnostic
			if !errors.As(err, &d) {
				t.Fatalf("got %T, want *util.Diagnostic", err)
			}
			if !strings.Contains(d.Msg, tt.want) {
				t.Errorf("got %q, want it to contain %q", d.Msg, tt.want)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	var log bytes.Buffer
	cfg := testConfig()
	cfg.Log = &log
	cfg.SetWarning(config.WarnShadow, true)
	_, err := generate(t, cfg, `
mut x = 1;
f -> sub () i32 { }
main -> sub () {
	mut x = 2;
	return;
	x = 3;
}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"[-Wshadow]", "unreachable code", "control reaches the end of non-void function 'f'"} {
		if !strings.Contains(log.String(), want) {
			t.Errorf("log is missing %q:\n%s", want, log.String())
		}
	}
}

func TestLogicalOperatorsYieldBool(t *testing.T) {
	_, text := lower(t, `
main -> sub () {
	mut a: bool = 1 && 0;
	mut b: bool = 1 || 0;
	mut c: bool = a && b;
}`)
	wantIR(t, text, "=w and 1, 0", "=w or 1, 0", "storeb %t")
}

func TestGlobalVariables(t *testing.T) {
	_, text := lower(t, `
mut counter: i64 = 5;
main -> sub () i64 { return counter; }`)
	wantIR(t, text, "data $counter = align 8 { l 5 }", "loadl $counter")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIncludeSplicesPublicNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.ig", `
linklib "m";
Pair -> struct { a: i32, b: i32 }
helper -> sub (x: i32) i32 { return x; }
`)
	main := writeFile(t, dir, "main.ig", `
include "lib.ig";
include "lib.ig";
main -> sub () i32 {
	mut p = new Pair { a: 1, b: 2 };
	return helper(p.b);
}`)

	d := &Driver{Config: testConfig(), SkipAssemble: true}
	out := filepath.Join(dir, "out")
	unit, err := d.Compile(main, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]Library{{Name: "m"}}, unit.Libraries); diff != "" {
		t.Errorf("libraries mismatch (-want +got):\n%s", diff)
	}
	if len(unit.Outputs) != 2 {
		t.Fatalf("got outputs %v, want the included module and the main module", unit.Outputs)
	}
	if !strings.HasPrefix(unit.Outputs[0], out+".lib-") || !strings.HasSuffix(unit.Outputs[0], ".ssa") {
		t.Errorf("unexpected include output %s", unit.Outputs[0])
	}
	if unit.Outputs[1] != out+".ssa" {
		t.Errorf("got main output %s, want %s", unit.Outputs[1], out+".ssa")
	}
	for _, f := range unit.Outputs {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("output not written: %v", err)
		}
	}
	if diff := cmp.Diff([]string{"helper"}, unit.Program.Externs); diff != "" {
		t.Errorf("externs mismatch (-want +got):\n%s", diff)
	}
	if unit.Program.FindAggregate("Pair") == nil {
		t.Errorf("included struct layout was not spliced")
	}
}

func TestIncludeErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ig", `include "b.ig";`)
	writeFile(t, dir, "b.ig", `include "a.ig";`)
	missing := writeFile(t, dir, "missing.ig", `include "nope.ig";`)
	private := writeFile(t, dir, "private.ig", `include "globals.ig"; main -> sub () i32 { return g; }`)
	writeFile(t, dir, "globals.ig", `mut g = 1;`)

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(dir, "a.ig"), "include cycle"},
		{missing, "cannot find included file"},
		{private, "undefined symbol 'g'"},
	}
	for _, tt := range tests {
		d := &Driver{Config: testConfig(), SkipAssemble: true}
		_, err := d.Compile(tt.path, filepath.Join(dir, "out"))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %v, want an error containing %q", filepath.Base(tt.path), err, tt.want)
		}
	}
}

func TestVariadicFloatsWiden(t *testing.T) {
	_, text := lower(t, `
printf -> extern (fmt: str, ..) i32;
main -> sub () { mut f = 0.5; printf("%f\n", f); }`)
	wantIR(t, text, "%t2 =d exts %t1", "call $printf(l $str.0, ..., d %t2)")
}

func TestNarrowConstantOverflow(t *testing.T) {
	var log bytes.Buffer
	cfg := testConfig()
	cfg.Log = &log
	if _, err := generate(t, cfg, "main -> sub () { immut a: i8 = 255; immut b: i8 = 300; }"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(log.String(), "[-Woverflow]") != 1 || !strings.Contains(log.String(), "constant 300 does not fit in 'i8'") {
		t.Errorf("unexpected overflow warnings:\n%s", log.String())
	}
}
