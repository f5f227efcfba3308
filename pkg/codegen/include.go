package codegen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/ir"
	"github.com/anthony-63/Ignis/pkg/util"
	"github.com/cespare/xxhash/v2"
)

// Session is shared by every module compiled for one top-level input.
type Session struct {
	driver *Driver
	units  map[uint64]*Unit
	active map[uint64]string
}

func NewSession() *Session {
	return &Session{units: make(map[uint64]*Unit), active: make(map[uint64]string)}
}

func (ctx *Context) resolveInclude(s *ast.Include) string {
	candidates := []string{s.Path}
	if ctx.opts.File != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(ctx.opts.File), s.Path))
	}
	for _, dir := range ctx.cfg.IncludePaths {
		candidates = append(candidates, filepath.Join(dir, s.Path))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	util.Error(s.Tok, "cannot find included file '%s'", s.Path)
	return ""
}

// includeOutput names the IR side file of an included module after the
// including module's output and a hash of the included path.
func includeOutput(parent, path string, key uint64) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fmt.Sprintf("%s.%s-%08x", parent, stem, uint32(key))
}

func (ctx *Context) include(s *ast.Include) {
	path := ctx.resolveInclude(s)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	key := xxhash.Sum64String(abs)
	sess := ctx.opts.Session

	if from, busy := sess.active[key]; busy {
		util.Error(s.Tok, "include cycle: '%s' is already being compiled (included from %s)", path, from)
	}

	unit, cached := sess.units[key]
	if !cached || !ctx.cfg.IsFeatureEnabled(config.FeatIncludeOnce) {
		src, err := os.ReadFile(path)
		if err != nil {
			util.Error(s.Tok, "failed to read included file '%s': %v", path, err)
		}

		sess.active[key] = ctx.opts.File
		unit, err = CompileUnit(ctx.cfg, src, Options{
			File:    path,
			Output:  includeOutput(ctx.opts.Output, path, key),
			Sub:     true,
			Session: sess,
		})
		delete(sess.active, key)

		if err != nil {
			var d *util.Diagnostic
			if errors.As(err, &d) {
				panic(d)
			}
			util.Error(s.Tok, "failed to compile included file '%s': %v", path, err)
		}
		sess.units[key] = unit
	}

	ctx.splice(unit)
}

// splice makes an included module's public names usable here. Functions are
// re-declared as externals of this module; struct types bring their layout.
func (ctx *Context) splice(sub *Unit) {
	for _, name := range sub.Scope.Symbols() {
		v, _ := sub.Scope.LookupLocal(name)
		if !v.Public {
			continue
		}
		switch v.Kind {
		case ValueFunc:
			if g, ok := v.IR.(*ir.Global); ok {
				ctx.prog.AddExtern(g.Name)
			}
			ctx.scope.Define(name, newValue(ValueFunc, v.IR, v.Type, false, true))
		case ValueType:
			ctx.addAggregates(v.Type)
			ctx.scope.Define(name, v)
		}
	}
	for _, qualified := range sub.Scope.Fields() {
		idx, _ := sub.Scope.Field(qualified)
		ctx.scope.DefineField(qualified, idx)
	}
	for _, lib := range sub.Libraries {
		ctx.addLibrary(lib)
	}
	for _, out := range sub.Outputs {
		ctx.addOutput(out)
	}
}

// addAggregates declares t and every struct it contains, innermost first.
func (ctx *Context) addAggregates(t *Type) {
	for _, f := range t.Fields {
		if f.IsStruct() {
			ctx.addAggregates(f)
		}
	}
	ctx.prog.AddAggregate(t.aggregate())
}
