package codegen

import (
	"fmt"
	"os"
	"slices"

	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/lexer"
	"github.com/anthony-63/Ignis/pkg/parser"
	"github.com/anthony-63/Ignis/pkg/util"
)

type Stage int

const (
	StageInit Stage = iota
	StageLowering
	StageEmit
	StageAssemble
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageLowering:
		return "lowering"
	case StageEmit:
		return "emit"
	case StageAssemble:
		return "assemble"
	case StageDone:
		return "done"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Driver walks modules through Init, Lowering, Emit and, for the top-level
// module only, Assemble.
type Driver struct {
	Config  *config.Config
	Emitter Emitter
	Linker  Linker

	// SkipAssemble stops the top-level module after its IR file is written.
	SkipAssemble bool
	// OnStage, when set, is called as each module enters a stage.
	OnStage func(file string, s Stage)
	// OnParse, when set, receives each module's syntax tree before lowering.
	OnParse func(file string, root *ast.Block)
}

func NewDriver(cfg *config.Config) *Driver {
	return &Driver{Config: cfg, Emitter: NewEmitter(cfg), Linker: NewLinker(cfg)}
}

// Compile builds the executable output from the source file at path.
func (d *Driver) Compile(path, output string) (*Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file '%s': %w", path, err)
	}
	sess := NewSession()
	sess.driver = d
	return d.CompileUnit(src, Options{File: path, Output: output, Session: sess})
}

// CompileUnit compiles one module. Included modules (opts.Sub) stop after
// Emit and hand their unit back to the includer.
func CompileUnit(cfg *config.Config, src []byte, opts Options) (*Unit, error) {
	if opts.Session != nil && opts.Session.driver != nil {
		return opts.Session.driver.CompileUnit(src, opts)
	}
	return (&Driver{Config: cfg}).CompileUnit(src, opts)
}

func (d *Driver) CompileUnit(src []byte, opts Options) (unit *Unit, err error) {
	defer util.Recover(&err)
	if opts.Session == nil {
		opts.Session = NewSession()
	}
	if opts.Session.driver == nil {
		opts.Session.driver = d
	}

	var root *ast.Block
	stage := StageInit
	for stage != StageDone {
		if d.OnStage != nil {
			d.OnStage(opts.File, stage)
		}
		switch stage {
		case StageInit:
			fileIndex := util.AddSourceFile(opts.File, []rune(string(src)))
			tokens := lexer.NewLexer([]rune(string(src)), fileIndex, d.Config).Tokenize()
			if root, err = parser.Parse(tokens); err != nil {
				return nil, err
			}
			if d.OnParse != nil {
				d.OnParse(opts.File, root)
			}
			stage = StageLowering

		case StageLowering:
			ctx := NewContext(d.Config, opts)
			ctx.lowerModule(root)
			unit = ctx.unit()
			stage = StageEmit

		case StageEmit:
			irFile, err := d.emitIR(unit, opts.Output)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(unit.Outputs, irFile) {
				unit.Outputs = append(unit.Outputs, irFile)
			}
			stage = StageAssemble
			if opts.Sub || d.SkipAssemble {
				stage = StageDone
			}

		case StageAssemble:
			if err := d.assemble(unit, opts.Output); err != nil {
				return nil, err
			}
			stage = StageDone
		}
	}
	return unit, nil
}

func (d *Driver) emitIR(unit *Unit, output string) (string, error) {
	text, err := NewQBEBackend().GenerateIR(unit.Program)
	if err != nil {
		return "", err
	}
	irFile := output + d.Config.IRExt
	if err := os.WriteFile(irFile, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write IR file: %w", err)
	}
	return irFile, nil
}
