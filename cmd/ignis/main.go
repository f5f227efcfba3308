package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/cli"
	"github.com/anthony-63/Ignis/pkg/codegen"
	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/lexer"
	"github.com/anthony-63/Ignis/pkg/token"
	"github.com/anthony-63/Ignis/pkg/util"
	"github.com/goforj/godump"
)

func main() {
	app := cli.NewApp("ignis")
	app.Synopsis = "[options] <input.ig> [output]"
	app.Description = "A compiler for the Ignis programming language. Lowers Ignis sources to QBE and links a native executable."
	app.Authors = []string{"anthony-63"}
	app.Repository = "<https://github.com/anthony-63/Ignis>"

	var (
		outFile      string
		target       string
		emitter      string
		linker       string
		includePaths []string
		stopAtIR     bool
		dumpAST      bool
		dumpTokens   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "", "Set the QBE target ABI (defaults to the host).", "target")
	fs.String(&emitter, "emitter", "", "", "Use an external object emitter, run as '<tool> --filetype=obj <ir> -o <obj>'.", "tool")
	fs.String(&linker, "linker", "", "cc", "Use <tool> to assemble and link.", "tool")
	fs.List(&includePaths, "include", "I", []string{}, "Add a directory to the include path.", "path")
	fs.Bool(&stopAtIR, "ir-only", "S", false, "Stop after writing the IR files.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Dump the syntax tree of every module.")
	fs.Bool(&dumpTokens, "dump-tokens", "", false, "Dump the token stream of the input and exit.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	compile := func(args []string) error {
		if len(args) == 0 || len(args) > 2 {
			return fmt.Errorf("expected an input file and an optional output path")
		}
		input := args[0]
		if len(args) == 2 {
			if outFile != "" {
				return fmt.Errorf("output given both as -o and as an argument")
			}
			outFile = args[1]
		}
		if outFile == "" {
			outFile = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}

		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)
		cfg.IncludePaths = append(cfg.IncludePaths, includePaths...)
		cfg.Emitter = emitter
		cfg.Linker = linker

		if dumpTokens {
			return dumpTokenStream(cfg, input)
		}

		driver := codegen.NewDriver(cfg)
		driver.SkipAssemble = stopAtIR
		driver.OnStage = func(file string, s codegen.Stage) {
			switch s {
			case codegen.StageInit:
				fmt.Printf("Parsing %s...\n", file)
			case codegen.StageLowering:
				fmt.Println("Creating intermediate representation...")
			case codegen.StageEmit:
				fmt.Println("Writing QBE IR...")
			case codegen.StageAssemble:
				fmt.Printf("Linking to create '%s'...\n", outFile)
			}
		}
		if dumpAST {
			driver.OnParse = func(file string, root *ast.Block) {
				fmt.Printf("AST of %s:\n", file)
				godump.Dump(root)
			}
		}

		fmt.Println("----------------------")
		unit, err := driver.Compile(input, outFile)
		if err != nil {
			return err
		}
		if stopAtIR {
			for _, irFile := range unit.Outputs {
				fmt.Printf("Wrote %s\n", irFile)
			}
		}
		fmt.Println("----------------------")
		fmt.Println("Done!")
		return nil
	}

	app.Action = func(args []string) error {
		err := compile(args)
		if err != nil {
			util.Report(os.Stderr, err)
		}
		return err
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func dumpTokenStream(cfg *config.Config, path string) (err error) {
	defer util.Recover(&err)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read file '%s': %w", path, err)
	}
	runes := []rune(string(content))
	l := lexer.NewLexer(runes, util.AddSourceFile(path, runes), cfg)
	var tokens []token.Token
	for tok := l.Next(); ; tok = l.Next() {
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	godump.Dump(tokens)
	return nil
}
