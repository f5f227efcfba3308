package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	var (
		output   string
		includes []string
		irOnly   bool
		dumpAST  bool
	)
	fs := NewFlagSet("ignis")
	fs.String(&output, "output", "o", "a.out", "Output file", "file")
	fs.List(&includes, "include", "I", nil, "Include path", "dir")
	fs.Bool(&irOnly, "ir-only", "S", false, "Stop after IR")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Dump the syntax tree")

	err := fs.Parse([]string{"-o", "prog", "-Ilib", "--include=std", "-S", "--dump-ast", "main.ig", "--", "-x"})
	if err != nil {
		t.Fatal(err)
	}
	if output != "prog" || !irOnly || !dumpAST {
		t.Errorf("got output %q irOnly %v dumpAST %v", output, irOnly, dumpAST)
	}
	if diff := cmp.Diff([]string{"lib", "std"}, includes); diff != "" {
		t.Errorf("includes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"main.ig", "-x"}, fs.Args()); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{{"--nope"}, {"-z"}, {"--output"}, {"-o"}} {
		var output string
		fs := NewFlagSet("ignis")
		fs.String(&output, "output", "o", "", "Output file", "file")
		if err := fs.Parse(args); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestAppHelp(t *testing.T) {
	var stdout bytes.Buffer
	app := NewApp("ignis")
	app.Synopsis = "[options] <input.ig> [output]"
	app.Stdout = &stdout
	var output string
	app.FlagSet.String(&output, "output", "o", "a.out", "Place the output into <file>", "file")
	called := false
	app.Action = func([]string) error { called = true; return nil }

	if err := app.Run([]string{"--help"}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Errorf("--help must not run the action")
	}
	if !strings.Contains(stdout.String(), "--output") {
		t.Errorf("help text does not list --output:\n%s", stdout.String())
	}
}

func TestAppAction(t *testing.T) {
	var stderr bytes.Buffer
	app := NewApp("ignis")
	app.Stderr = &stderr
	var got []string
	app.Action = func(args []string) error { got = args; return nil }

	if err := app.Run([]string{"a.ig", "out"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.ig", "out"}, got); diff != "" {
		t.Errorf("action args mismatch (-want +got):\n%s", diff)
	}

	bad := NewApp("ignis")
	bad.Stderr = &stderr
	if err := bad.Run([]string{"--bogus"}); err == nil {
		t.Errorf("expected an error for an unknown flag")
	}
	if !strings.Contains(stderr.String(), "Usage: ignis") {
		t.Errorf("usage not printed on a bad flag:\n%s", stderr.String())
	}
}
