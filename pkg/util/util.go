package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// AddSourceFile registers a file for rich diagnostics and returns the index
// tokens lexed from it must carry.
func AddSourceFile(name string, content []rune) int {
	sourceFiles = append(sourceFiles, SourceFileRecord{Name: name, Content: content})
	return len(sourceFiles) - 1
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "ignis", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))

	fmt.Fprintf(w, "  %s\033[32m^", strings.Repeat(" ", max(tok.Column-1, 0)))
	if tok.Len > 1 {
		fmt.Fprintf(w, "%s", strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(w, "\033[0m")
}

// Diagnostic is a fatal compile error anchored at a token.
type Diagnostic struct {
	Tok token.Token
	Msg string
}

func (d *Diagnostic) Error() string {
	filename, line, col := findFileAndLine(d.Tok)
	return fmt.Sprintf("%s:%d:%d: %s", filename, line, col, d.Msg)
}

// Error aborts the current compilation with a diagnostic. It unwinds to the
// nearest Recover, so callers never see it return.
func Error(tok token.Token, format string, args ...interface{}) {
	panic(&Diagnostic{Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

// Recover turns a Diagnostic raised by Error into a returned error. Any other
// panic is re-raised. Use it as `defer util.Recover(&err)`.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if d, ok := r.(*Diagnostic); ok {
		*err = d
		return
	}
	panic(r)
}

// Report prints err the way the compiler presents fatal errors: location,
// message and, when the error is a Diagnostic, the offending source line.
func Report(w io.Writer, err error) {
	var d *Diagnostic
	if !errors.As(err, &d) {
		fmt.Fprintf(w, "ignis: \033[31merror:\033[0m %v\n", err)
		return
	}
	filename, line, col := findFileAndLine(d.Tok)
	fmt.Fprintf(w, "%s:%d:%d: \033[31merror:\033[0m %s\n", filename, line, col, d.Msg)
	printErrorLine(w, d.Tok)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	w := cfg.Log
	if w == nil {
		w = os.Stderr
	}
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(w, "%s:%d:%d: \033[33mwarning:\033[0m ", filename, line, col)
	fmt.Fprintf(w, format, args...)
	fmt.Fprintf(w, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(w, tok)
}

// AlignUp rounds n up to the next multiple of align.
func AlignUp(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
