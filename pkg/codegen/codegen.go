package codegen

import (
	"fmt"
	"slices"

	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/ir"
	"github.com/anthony-63/Ignis/pkg/token"
	"github.com/anthony-63/Ignis/pkg/util"
)

type Library struct {
	Name   string
	Static bool
}

// Unit is everything the including module needs from a compiled module.
type Unit struct {
	Scope     *Scope
	Libraries []Library
	Outputs   []string
	Program   *ir.Program
}

// Options describe one module compilation.
type Options struct {
	File    string // source path; includes resolve against its directory
	Output  string // output stem; the IR file is Output + cfg.IRExt
	Sub     bool   // compiling an included module
	Session *Session
}

// Context holds the per-module state of the code generator.
type Context struct {
	cfg          *config.Config
	opts         Options
	prog         *ir.Program
	types        map[string]*Type
	scope        *Scope
	global       *Scope
	frame        *Scope // body scope of the function being lowered
	currentFunc  *ir.Func
	currentBlock *ir.BasicBlock
	allocCount   int
	returnType   *Type
	implicitZero bool
	thisType     *Type
	tempCount    int
	labelCount   int
	libs         []Library
	outputs      []string
}

func NewContext(cfg *config.Config, opts Options) *Context {
	if opts.Session == nil {
		opts.Session = NewSession()
	}
	global := NewScope(nil)
	return &Context{
		cfg:    cfg,
		opts:   opts,
		prog:   &ir.Program{Name: opts.File, WordSize: cfg.WordSize},
		types:  newTypeMap(),
		scope:  global,
		global: global,
	}
}

// Generate lowers a parsed module into IR. Fatal diagnostics come back as the error.
func Generate(cfg *config.Config, root *ast.Block, opts Options) (unit *Unit, err error) {
	defer util.Recover(&err)
	ctx := NewContext(cfg, opts)
	ctx.lowerModule(root)
	return ctx.unit(), nil
}

func (ctx *Context) unit() *Unit {
	return &Unit{Scope: ctx.global, Libraries: ctx.libs, Outputs: ctx.outputs, Program: ctx.prog}
}

func (ctx *Context) newTemp() *ir.Temporary {
	t := &ir.Temporary{ID: ctx.tempCount}
	ctx.tempCount++
	return t
}

func (ctx *Context) newLabel() *ir.Label {
	l := &ir.Label{Name: fmt.Sprintf("L%d", ctx.labelCount)}
	ctx.labelCount++
	return l
}

func (ctx *Context) startBlock(label *ir.Label) {
	block := &ir.BasicBlock{Label: label}
	ctx.currentFunc.Blocks = append(ctx.currentFunc.Blocks, block)
	ctx.currentBlock = block
}

func (ctx *Context) addInstr(instr *ir.Instruction) {
	if ctx.currentBlock == nil {
		ctx.startBlock(ctx.newLabel())
	}
	ctx.currentBlock.Instructions = append(ctx.currentBlock.Instructions, instr)
}

func (ctx *Context) jump(target *ir.Label) {
	ctx.addInstr(&ir.Instruction{Op: ir.OpJmp, Args: []ir.Value{target}})
}

// alloc reserves stack memory for typ in the entry block, so storage is
// claimed once per call no matter where the declaration sits.
func (ctx *Context) alloc(typ *Type) ir.Value {
	res := ctx.newTemp()
	instr := &ir.Instruction{
		Op:     ir.OpAlloc,
		Typ:    ir.TypePtr,
		Result: res,
		Args:   []ir.Value{&ir.Const{Value: max(typ.Size(ctx.cfg.WordSize), 1)}},
		Align:  int(typ.Align(ctx.cfg.WordSize)),
	}
	entry := ctx.currentFunc.Blocks[0]
	entry.Instructions = slices.Insert(entry.Instructions, ctx.allocCount, instr)
	ctx.allocCount++
	return res
}

func (ctx *Context) addString(value string) ir.Value {
	label := fmt.Sprintf("str.%d", len(ctx.prog.Strings))
	data := &ir.Data{Name: label}
	if value != "" {
		data.Items = append(data.Items, ir.DataItem{Str: value})
	}
	data.Items = append(data.Items, ir.DataItem{Typ: ir.TypeUB, Value: &ir.Const{Value: 0}})
	ctx.prog.Strings = append(ctx.prog.Strings, data)
	return &ir.Global{Name: label}
}

// genLoad reads a value of typ from addr. Structs are handled by address.
func (ctx *Context) genLoad(addr ir.Value, typ *Type) ir.Value {
	if typ.IsStruct() {
		return addr
	}
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{Op: ir.OpLoad, Typ: typ.Storage(), Result: res, Args: []ir.Value{addr}})
	return res
}

func (ctx *Context) genStore(addr, value ir.Value, typ *Type) {
	if typ.IsStruct() {
		ctx.addInstr(&ir.Instruction{
			Op:   ir.OpBlit,
			Args: []ir.Value{value, addr, &ir.Const{Value: typ.Size(ctx.cfg.WordSize)}},
		})
		return
	}
	ctx.addInstr(&ir.Instruction{Op: ir.OpStore, Typ: typ.Storage(), Args: []ir.Value{value, addr}})
}

func (ctx *Context) genOffset(base ir.Value, offset int64) ir.Value {
	if offset == 0 {
		return base
	}
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{
		Op:     ir.OpAdd,
		Typ:    ir.TypePtr,
		Result: res,
		Args:   []ir.Value{base, &ir.Const{Value: offset}},
	})
	return res
}

func (ctx *Context) lookup(tok token.Token, name string) *Value {
	v, ok := ctx.scope.Lookup(name)
	if !ok {
		util.Error(tok, "undefined symbol '%s'", name)
	}
	// Stack slots belong to one function; a nested function cannot reach its parent's.
	if _, isGlobal := v.IR.(*ir.Global); v.Kind == ValueStorage && !isGlobal && ctx.frame != nil {
		if own, ok := ctx.frame.LookupLocal(name); !ok || own != v {
			util.Error(tok, "cannot capture local '%s' of an enclosing function", name)
		}
	}
	return v
}

func (ctx *Context) resolveType(t ast.Type) *Type {
	switch t := t.(type) {
	case *ast.SymbolType:
		if t.Name == "this" {
			if ctx.thisType == nil {
				util.Error(t.Tok, "'this' can only be used in the parameters of a struct method")
			}
			return ctx.thisType
		}
		if typ, ok := ctx.types[t.Name]; ok {
			return typ
		}
		if v, ok := ctx.scope.Lookup(t.Name); ok && v.Kind == ValueType {
			return v.Type
		}
		util.Error(t.Tok, "invalid type '%s'", t.Name)
	case *ast.RefType:
		return ctx.resolveType(t.Elem)
	case *ast.ArrayType:
		util.Error(t.Tok, "array types are not supported by the code generator")
	case nil:
		return ctx.types["void"]
	}
	util.Error(t.Pos(), "unknown type expression %T", t)
	return nil
}

func (ctx *Context) lowerModule(root *ast.Block) {
	for _, stmt := range root.Stmts {
		switch s := stmt.(type) {
		case *ast.FuncDecl:
			ctx.funcDecl(s, nil)
		case *ast.StructDecl:
			ctx.structDecl(s)
		case *ast.Extern:
			ctx.externDecl(s)
		case *ast.Link:
			ctx.link(s)
		case *ast.Include:
			ctx.include(s)
		case *ast.VarDecl:
			ctx.globalVarDecl(s)
		default:
			util.Error(stmt.Pos(), "only declarations are allowed at module level")
		}
	}
}

// stmt lowers one statement inside a function body and reports whether
// control can no longer fall through it.
func (ctx *Context) stmt(node ast.Stmt) (terminates bool) {
	switch s := node.(type) {
	case *ast.Block:
		return ctx.stmts(s.Stmts)
	case *ast.ExprStmt:
		ctx.expr(s.X)
		return false
	case *ast.VarDecl:
		ctx.varDecl(s)
		return false
	case *ast.If:
		return ctx.ifStmt(s)
	case *ast.While:
		return ctx.whileStmt(s)
	case *ast.Return:
		return ctx.returnStmt(s)
	case *ast.FuncDecl:
		ctx.funcDecl(s, nil)
		return false
	case *ast.StructDecl:
		ctx.structDecl(s)
		return false
	case *ast.Extern:
		ctx.externDecl(s)
		return false
	case *ast.Link:
		ctx.link(s)
		return false
	case *ast.Include:
		ctx.include(s)
		return false
	}
	util.Error(node.Pos(), "unexpected %T in statement position", node)
	return false
}

// stmts stops at the first statement that terminates; anything after it is
// unreachable and not lowered.
func (ctx *Context) stmts(list []ast.Stmt) bool {
	for i, s := range list {
		if ctx.stmt(s) {
			if i+1 < len(list) {
				util.Warn(ctx.cfg, config.WarnExtra, list[i+1].Pos(), "unreachable code")
			}
			return true
		}
	}
	return false
}

func (ctx *Context) varDecl(d *ast.VarDecl) {
	if _, dup := ctx.scope.LookupLocal(d.Name); dup {
		util.Error(d.Tok, "'%s' is already declared in this scope", d.Name)
	}
	if _, shadows := ctx.scope.Lookup(d.Name); shadows {
		util.Warn(ctx.cfg, config.WarnShadow, d.Tok, "declaration of '%s' shadows an outer declaration", d.Name)
	}

	var want *Type
	if d.Type != nil {
		want = ctx.resolveType(d.Type)
	}
	val := ctx.valueOf(d.Value, want, "initializer of '"+d.Name+"'")

	slot := ctx.alloc(val.Type)
	ctx.genStore(slot, val.IR, val.Type)
	ctx.scope.Define(d.Name, newValue(ValueStorage, slot, val.Type, d.Mutable, false))
}

// globalVarDecl turns a module-level declaration into a private data definition.
func (ctx *Context) globalVarDecl(d *ast.VarDecl) {
	if _, dup := ctx.scope.LookupLocal(d.Name); dup {
		util.Error(d.Tok, "'%s' is already declared in this scope", d.Name)
	}

	var want *Type
	if d.Type != nil {
		want = ctx.resolveType(d.Type)
	}
	val, ok := ctx.literal(d.Value, want)
	if !ok {
		util.Error(d.Value.Pos(), "module-level variable '%s' needs a literal initializer", d.Name)
	}
	if want != nil && !sameType(want, val.Type) {
		util.Error(d.Value.Pos(), "cannot initialize '%s' of type '%s' with a value of type '%s'", d.Name, want, val.Type)
	}

	ctx.prog.Globals = append(ctx.prog.Globals, &ir.Data{
		Name:  d.Name,
		Align: int(val.Type.Align(ctx.cfg.WordSize)),
		Items: []ir.DataItem{{Typ: val.Type.Storage(), Value: val.IR}},
	})
	ctx.scope.Define(d.Name, newValue(ValueStorage, &ir.Global{Name: d.Name}, val.Type, d.Mutable, false))
}

func (ctx *Context) funcDecl(d *ast.FuncDecl, owner *Type) {
	prevThis := ctx.thisType
	ctx.thisType = owner
	defer func() { ctx.thisType = prevThis }()

	ret := ctx.resolveType(d.ReturnType)
	implicitZero := false
	if owner == nil && d.Name == "main" && ret.IsVoid() {
		ret, implicitZero = ctx.types["i32"], true
	}

	fnType := &Type{Kind: KindFunc, Return: ret}
	for _, p := range d.Params {
		pt := ctx.resolveType(p.Type)
		if pt.IsVoid() {
			util.Error(p.Tok, "parameter '%s' cannot have type void", p.Name)
		}
		_, isRef := p.Type.(*ast.RefType)
		fnType.Params = append(fnType.Params, pt)
		fnType.ByRef = append(fnType.ByRef, isRef && pt.IsStruct())
	}

	linkName := d.Name
	if owner != nil {
		linkName = owner.Name + "." + d.Name
	}
	if ctx.prog.FindFunc(linkName) != nil {
		util.Error(d.Tok, "function '%s' is already defined", linkName)
	}
	fnVal := newValue(ValueFunc, &ir.Global{Name: linkName}, fnType, false, true)

	fn := &ir.Func{Name: linkName, Exported: true}
	if ret.IsStruct() {
		fn.ReturnAgg = ret.Name
	} else {
		fn.ReturnType = ret.ABI()
	}
	ctx.prog.Funcs = append(ctx.prog.Funcs, fn)

	outer, prevFrame := ctx.scope, ctx.frame
	prevFunc, prevBlock, prevAllocs := ctx.currentFunc, ctx.currentBlock, ctx.allocCount
	prevRet, prevZero, prevTemps := ctx.returnType, ctx.implicitZero, ctx.tempCount
	defer func() {
		ctx.scope, ctx.frame = outer, prevFrame
		ctx.currentFunc, ctx.currentBlock, ctx.allocCount = prevFunc, prevBlock, prevAllocs
		ctx.returnType, ctx.implicitZero, ctx.tempCount = prevRet, prevZero, prevTemps
	}()

	ctx.scope = NewScope(outer)
	ctx.frame = ctx.scope
	ctx.currentFunc, ctx.allocCount, ctx.tempCount = fn, 0, 0
	ctx.returnType, ctx.implicitZero = ret, implicitZero
	ctx.startBlock(&ir.Label{Name: "start"})
	if owner == nil {
		ctx.scope.Define(d.Name, fnVal)
	}

	for i, p := range d.Params {
		if _, dup := ctx.scope.LookupLocal(p.Name); dup {
			util.Error(p.Tok, "duplicate parameter '%s'", p.Name)
		}
		pt := fnType.Params[i]
		param := &ir.Param{Name: p.Name, Val: &ir.Temporary{Name: "p." + p.Name, ID: -1}}
		switch {
		case fnType.ByRef[i]:
			param.Typ = ir.TypePtr
		case pt.IsStruct():
			param.Typ, param.Agg = ir.TypeAgg, pt.Name
		default:
			param.Typ = pt.ABI()
		}
		fn.Params = append(fn.Params, param)

		if pt.IsStruct() {
			ctx.scope.Define(p.Name, newValue(ValueStorage, param.Val, pt, true, false))
			continue
		}
		slot := ctx.alloc(pt)
		ctx.genStore(slot, param.Val, pt)
		ctx.scope.Define(p.Name, newValue(ValueStorage, slot, pt, true, false))
	}

	if !ctx.stmts(d.Body.Stmts) {
		ctx.fallthroughReturn(d)
	}

	if owner == nil {
		outer.Define(d.Name, fnVal)
	} else {
		outer.Define(linkName, fnVal)
	}
}

func (ctx *Context) fallthroughReturn(d *ast.FuncDecl) {
	switch ret := ctx.returnType; {
	case ctx.implicitZero:
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{&ir.Const{Value: 0}}})
	case ret.IsVoid():
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet})
	case ret.IsStruct():
		util.Error(d.Tok, "function '%s' can reach its end without returning a '%s'", d.Name, ret)
	default:
		util.Warn(ctx.cfg, config.WarnExtra, d.Tok, "control reaches the end of non-void function '%s'", d.Name)
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{zeroOf(ret)}})
	}
	ctx.currentBlock = nil
}

func zeroOf(t *Type) ir.Value {
	if t.Kind == KindFloat {
		return &ir.FloatConst{Value: 0, Typ: t.ABI()}
	}
	return &ir.Const{Value: 0}
}

func (ctx *Context) returnStmt(r *ast.Return) bool {
	if ctx.currentFunc == nil {
		util.Error(r.Tok, "return outside of a function")
	}
	ret := ctx.returnType
	switch {
	case r.Value == nil && ctx.implicitZero:
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{&ir.Const{Value: 0}}})
	case r.Value == nil && ret.IsVoid():
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet})
	case r.Value == nil:
		util.Error(r.Tok, "missing return value of type '%s'", ret)
	case ret.IsVoid() || ctx.implicitZero:
		util.Error(r.Tok, "cannot return a value from a void function")
	default:
		val := ctx.valueOf(r.Value, ret, "return value")
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{val.IR}})
	}
	ctx.currentBlock = nil
	return true
}

func (ctx *Context) externDecl(e *ast.Extern) {
	fnType := &Type{Kind: KindFunc, Return: ctx.resolveType(e.ReturnType), Variadic: e.Variadic}
	for _, p := range e.Params {
		pt := ctx.resolveType(p.Type)
		if pt.IsVoid() {
			util.Error(p.Tok, "parameter '%s' cannot have type void", p.Name)
		}
		_, isRef := p.Type.(*ast.RefType)
		fnType.Params = append(fnType.Params, pt)
		fnType.ByRef = append(fnType.ByRef, isRef && pt.IsStruct())
	}
	ctx.prog.AddExtern(e.Symbol)
	ctx.scope.Define(e.Name, newValue(ValueFunc, &ir.Global{Name: e.Symbol}, fnType, false, true))
}

func (ctx *Context) link(l *ast.Link) {
	ctx.addLibrary(Library{Name: l.Library, Static: l.Static})
}

func (ctx *Context) addLibrary(lib Library) {
	if !slices.Contains(ctx.libs, lib) {
		ctx.libs = append(ctx.libs, lib)
	}
}

func (ctx *Context) addOutput(path string) {
	if !slices.Contains(ctx.outputs, path) {
		ctx.outputs = append(ctx.outputs, path)
	}
}

func (ctx *Context) structDecl(d *ast.StructDecl) {
	if _, dup := ctx.scope.LookupLocal(d.Name); dup {
		util.Error(d.Tok, "'%s' is already declared in this scope", d.Name)
	}
	if _, builtin := ctx.types[d.Name]; builtin {
		util.Error(d.Tok, "cannot redeclare built-in type '%s'", d.Name)
	}

	typ := &Type{Kind: KindStruct, Name: d.Name}
	seen := make(map[string]bool)
	for i, f := range d.Fields {
		if seen[f.Name] {
			util.Error(f.Tok, "duplicate field '%s' in struct '%s'", f.Name, d.Name)
		}
		seen[f.Name] = true
		if st, ok := f.Type.(*ast.SymbolType); ok && st.Name == d.Name {
			util.Error(f.Tok, "struct '%s' cannot contain itself", d.Name)
		}
		ft := ctx.resolveType(f.Type)
		if ft.IsVoid() {
			util.Error(f.Tok, "field '%s' cannot have type void", f.Name)
		}
		typ.Fields = append(typ.Fields, ft)
		typ.FieldNames = append(typ.FieldNames, f.Name)
		ctx.scope.DefineField(d.Name+"."+f.Name, i)
	}

	ctx.prog.AddAggregate(typ.aggregate())
	ctx.scope.Define(d.Name, newValue(ValueType, nil, typ, false, true))

	for _, m := range d.Methods {
		ctx.funcDecl(m, typ)
	}
}

func (ctx *Context) ifStmt(s *ast.If) bool {
	thenL, endL := ctx.newLabel(), ctx.newLabel()
	elseL := endL
	if s.Else != nil {
		elseL = ctx.newLabel()
	}

	cond := ctx.condition(s.Cond)
	ctx.addInstr(&ir.Instruction{Op: ir.OpJnz, Args: []ir.Value{cond, thenL, elseL}})

	ctx.startBlock(thenL)
	thenTerminates := ctx.stmts(s.Body.Stmts)
	if !thenTerminates {
		ctx.jump(endL)
	}

	elseTerminates := false
	if s.Else != nil {
		ctx.startBlock(elseL)
		elseTerminates = ctx.stmt(s.Else)
		if !elseTerminates {
			ctx.jump(endL)
		}
	}

	if thenTerminates && elseTerminates {
		ctx.currentBlock = nil
		return true
	}
	ctx.startBlock(endL)
	return false
}

// whileStmt emits the body before the first test unless guarded-while is on.
func (ctx *Context) whileStmt(s *ast.While) bool {
	bodyL, endL := ctx.newLabel(), ctx.newLabel()

	if ctx.cfg.IsFeatureEnabled(config.FeatGuardedWhile) {
		condL := ctx.newLabel()
		ctx.jump(condL)
		ctx.startBlock(condL)
		cond := ctx.condition(s.Cond)
		ctx.addInstr(&ir.Instruction{Op: ir.OpJnz, Args: []ir.Value{cond, bodyL, endL}})

		ctx.startBlock(bodyL)
		if !ctx.stmts(s.Body.Stmts) {
			ctx.jump(condL)
		}
		ctx.startBlock(endL)
		return false
	}

	ctx.jump(bodyL)
	ctx.startBlock(bodyL)
	if !ctx.stmts(s.Body.Stmts) {
		cond := ctx.condition(s.Cond)
		ctx.addInstr(&ir.Instruction{Op: ir.OpJnz, Args: []ir.Value{cond, bodyL, endL}})
	}
	ctx.startBlock(endL)
	return false
}
