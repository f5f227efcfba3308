package codegen

import (
	"strconv"

	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/ir"
	"github.com/anthony-63/Ignis/pkg/token"
	"github.com/anthony-63/Ignis/pkg/util"
)

var compareOps = map[token.Type]ir.Op{
	token.EqEq: ir.OpCEq,
	token.Neq:  ir.OpCNeq,
	token.Lt:   ir.OpCLt,
	token.Lte:  ir.OpCLe,
	token.Gt:   ir.OpCGt,
	token.Gte:  ir.OpCGe,
}

var arithOps = map[token.Type]ir.Op{
	token.Plus:   ir.OpAdd,
	token.Minus:  ir.OpSub,
	token.Star:   ir.OpMul,
	token.Slash:  ir.OpDiv,
	token.Rem:    ir.OpRem,
	token.AndAnd: ir.OpAnd,
	token.OrOr:   ir.OpOr,
}

// expr lowers an expression. Calls to void functions yield nil.
func (ctx *Context) expr(node ast.Expr) *Value {
	switch e := node.(type) {
	case *ast.IntLit:
		return tempValue(&ir.Const{Value: e.Value}, ctx.types["i32"])
	case *ast.FloatLit:
		return tempValue(&ir.FloatConst{Value: e.Value, Typ: ir.TypeS}, ctx.types["f32"])
	case *ast.BoolLit:
		v := int64(0)
		if e.Value {
			v = 1
		}
		return tempValue(&ir.Const{Value: v}, ctx.types["bool"])
	case *ast.StringLit:
		return tempValue(ctx.addString(e.Value), ctx.types["str"])
	case *ast.Symbol:
		return ctx.symbol(e)
	case *ast.Binary:
		return ctx.binary(e)
	case *ast.Prefix:
		return ctx.prefix(e)
	case *ast.Call:
		return ctx.call(e)
	case *ast.Assign:
		return ctx.assign(e)
	case *ast.StructInit:
		return ctx.structInit(e)
	case *ast.Member:
		return ctx.member(e)
	case *ast.ArrayLit:
		util.Error(e.Tok, "array literals are not supported by the code generator")
	case *ast.StmtExpr:
		util.Error(e.Pos(), "a declaration cannot be used as a value")
	}
	util.Error(node.Pos(), "unexpected expression %T", node)
	return nil
}

func (ctx *Context) rvalue(e ast.Expr, what string) *Value {
	v := ctx.expr(e)
	if v == nil || v.Type.IsVoid() {
		util.Error(e.Pos(), "%s has no value", what)
	}
	return v
}

// valueOf lowers e for a destination of type want. Untyped numeric literals
// take the destination's width; everything else must already match.
func (ctx *Context) valueOf(e ast.Expr, want *Type, what string) *Value {
	if want == nil {
		return ctx.rvalue(e, what)
	}
	if v, ok := ctx.literal(e, want); ok && sameType(v.Type, want) {
		return v
	}
	v := ctx.rvalue(e, what)
	if !sameType(v.Type, want) {
		util.Error(e.Pos(), "%s: expected type '%s', got '%s'", what, want, v.Type)
	}
	return v
}

// literal evaluates a constant initializer without emitting code.
func (ctx *Context) literal(e ast.Expr, want *Type) (*Value, bool) {
	neg := false
	if p, ok := e.(*ast.Prefix); ok && p.Op == token.Minus {
		neg, e = true, p.Right
	}
	switch lit := e.(type) {
	case *ast.IntLit:
		v := lit.Value
		if neg {
			v = -v
		}
		typ := ctx.types["i32"]
		if want != nil && want.Kind == KindInt {
			typ = want
		}
		if !fits(v, typ.Bits) {
			util.Warn(ctx.cfg, config.WarnOverflow, lit.Tok, "constant %d does not fit in '%s'", v, typ)
		}
		return tempValue(&ir.Const{Value: v}, typ), true
	case *ast.FloatLit:
		v := lit.Value
		if neg {
			v = -v
		}
		typ := ctx.types["f32"]
		if want != nil && want.Kind == KindFloat {
			typ = want
		}
		return tempValue(&ir.FloatConst{Value: v, Typ: typ.ABI()}, typ), true
	}
	if neg {
		return nil, false
	}
	switch lit := e.(type) {
	case *ast.BoolLit:
		return ctx.expr(lit), true
	case *ast.StringLit:
		return tempValue(ctx.addString(lit.Value), ctx.types["str"]), true
	}
	return nil, false
}

// fits accepts both the signed and the unsigned range of an n-bit integer.
func fits(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	return v >= -(1<<(bits-1)) && v <= (1<<bits)-1
}

func (ctx *Context) condition(e ast.Expr) ir.Value {
	v := ctx.rvalue(e, "condition")
	if v.Type.Kind != KindBool && v.Type.ABI() != ir.TypeW {
		util.Error(e.Pos(), "condition must be a bool or a 32-bit integer, got '%s'", v.Type)
	}
	return v.IR
}

func (ctx *Context) symbol(e *ast.Symbol) *Value {
	v := ctx.lookup(e.Tok, e.Name)
	switch v.Kind {
	case ValueStorage:
		return tempValue(ctx.genLoad(v.IR, v.Type), v.Type)
	case ValueFunc:
		util.Error(e.Tok, "function '%s' cannot be used as a value", e.Name)
	case ValueType:
		util.Error(e.Tok, "type '%s' cannot be used as a value", e.Name)
	}
	return v
}

func (ctx *Context) binary(e *ast.Binary) *Value {
	l := ctx.rvalue(e.Left, "left operand")
	r := ctx.rvalue(e.Right, "right operand")

	boolean := ctx.types["bool"]
	var class ir.Type
	switch {
	case l.Type.is(KindInt, 32) && r.Type.is(KindInt, 32):
		class = ir.TypeW
	case l.Type.is(KindFloat, 32) && r.Type.is(KindFloat, 32):
		class = ir.TypeS
	case sameType(l.Type, boolean) && sameType(r.Type, boolean) && isLogicalOrEquality(e.Op):
		class = ir.TypeW
	default:
		util.Error(e.Tok, "unsupported operation '%s' between types '%s' and '%s'", e.Op, l.Type, r.Type)
	}
	isFloat := class == ir.TypeS

	res := ctx.newTemp()
	instr := &ir.Instruction{Typ: class, Result: res, Args: []ir.Value{l.IR, r.IR}}
	resultType := l.Type

	if op, ok := compareOps[e.Op]; ok {
		instr.Op, instr.Typ, instr.OperandType = op, ir.TypeW, class
		instr.Unsigned, instr.Unordered = !isFloat, isFloat
		resultType = boolean
	} else if op, ok := arithOps[e.Op]; ok {
		if isFloat && (op == ir.OpRem || op == ir.OpAnd || op == ir.OpOr) {
			util.Error(e.Tok, "operator '%s' is not defined for '%s'", e.Op, l.Type)
		}
		instr.Op = op
		if op == ir.OpAnd || op == ir.OpOr {
			resultType = boolean
		}
	} else {
		util.Error(e.Tok, "operator '%s' is not supported by the code generator", e.Op)
	}

	ctx.addInstr(instr)
	return tempValue(res, resultType)
}

func isLogicalOrEquality(op token.Type) bool {
	return op == token.EqEq || op == token.Neq || op == token.AndAnd || op == token.OrOr
}

func (ctx *Context) prefix(e *ast.Prefix) *Value {
	v := ctx.rvalue(e.Right, "operand")
	res := ctx.newTemp()
	switch e.Op {
	case token.Not:
		if v.Type.Kind != KindBool && !v.Type.is(KindInt, 32) {
			util.Error(e.Tok, "operator '!' is not defined for '%s'", v.Type)
		}
		ctx.addInstr(&ir.Instruction{
			Op:          ir.OpCEq,
			Typ:         ir.TypeW,
			OperandType: ir.TypeW,
			Result:      res,
			Args:        []ir.Value{v.IR, &ir.Const{Value: 0}},
		})
		return tempValue(res, ctx.types["bool"])
	case token.Minus:
		if !v.Type.is(KindInt, 32) && !v.Type.is(KindFloat, 32) {
			util.Error(e.Tok, "operator '-' is not defined for '%s'", v.Type)
		}
		ctx.addInstr(&ir.Instruction{Op: ir.OpNeg, Typ: v.Type.ABI(), Result: res, Args: []ir.Value{v.IR}})
		return tempValue(res, v.Type)
	}
	util.Error(e.Tok, "prefix operator '%s' is not supported by the code generator", e.Op)
	return nil
}

func (ctx *Context) call(e *ast.Call) *Value {
	if e.Receiver != nil {
		return ctx.methodCall(e)
	}
	fn := ctx.lookup(e.Tok, e.Name)
	if fn.Kind != ValueFunc {
		util.Error(e.Tok, "'%s' is not a function", e.Name)
	}
	return ctx.emitCall(e.Tok, e.Name, fn, nil, e.Args)
}

// methodCall handles Type.method(args) and value.method(args); the latter
// passes value as the receiver.
func (ctx *Context) methodCall(e *ast.Call) *Value {
	recv := ctx.lookup(e.Receiver.Tok, e.Receiver.Name)
	if !recv.Type.IsStruct() || (recv.Kind != ValueType && recv.Kind != ValueStorage) {
		util.Error(e.Receiver.Tok, "'%s' has no methods", e.Receiver.Name)
	}
	qualified := recv.Type.Name + "." + e.Name
	fn, ok := ctx.scope.Lookup(qualified)
	if !ok || fn.Kind != ValueFunc {
		util.Error(e.Tok, "struct '%s' has no method '%s'", recv.Type.Name, e.Name)
	}
	var self ir.Value
	if recv.Kind == ValueStorage {
		self = recv.IR
	}
	return ctx.emitCall(e.Tok, qualified, fn, self, e.Args)
}

// emitCall passes self, when non-nil, as the leading receiver argument.
func (ctx *Context) emitCall(tok token.Token, name string, fn *Value, self ir.Value, args []ast.Expr) *Value {
	ft := fn.Type
	params := ft.Params
	var irArgs []ir.Value
	var argTypes []ir.Type
	var argAggs []string

	if self != nil {
		if len(params) == 0 || !params[0].IsStruct() {
			util.Error(tok, "method '%s' takes no receiver", name)
		}
		irArgs = append(irArgs, self)
		if ft.ByRef[0] {
			argTypes = append(argTypes, ir.TypePtr)
			argAggs = append(argAggs, "")
		} else {
			argTypes = append(argTypes, ir.TypeAgg)
			argAggs = append(argAggs, params[0].Name)
		}
		params = params[1:]
	}

	if len(args) < len(params) || (len(args) > len(params) && !ft.Variadic) {
		util.Error(tok, "'%s' expects %d arguments, got %d", name, len(params), len(args))
	}

	for i, a := range args {
		if i >= len(params) {
			v := ctx.rvalue(a, "variadic argument")
			if v.Type.IsStruct() {
				util.Error(a.Pos(), "struct values cannot be passed as variadic arguments")
			}
			arg, typ := v.IR, v.Type.ABI()
			if typ == ir.TypeS {
				// C varargs take floats as doubles.
				wide := ctx.newTemp()
				ctx.addInstr(&ir.Instruction{Op: ir.OpExtS, Typ: ir.TypeD, OperandType: ir.TypeS, Result: wide, Args: []ir.Value{arg}})
				arg, typ = wide, ir.TypeD
			}
			irArgs = append(irArgs, arg)
			argTypes = append(argTypes, typ)
			argAggs = append(argAggs, "")
			continue
		}
		pt := params[i]
		v := ctx.valueOf(a, pt, "argument "+strconv.Itoa(i+1)+" of '"+name+"'")
		irArgs = append(irArgs, v.IR)
		byRef := ft.ByRef[len(ft.Params)-len(params)+i]
		switch {
		case byRef:
			argTypes = append(argTypes, ir.TypePtr)
			argAggs = append(argAggs, "")
		case pt.IsStruct():
			argTypes = append(argTypes, ir.TypeAgg)
			argAggs = append(argAggs, pt.Name)
		default:
			argTypes = append(argTypes, pt.ABI())
			argAggs = append(argAggs, "")
		}
	}

	instr := &ir.Instruction{
		Op:        ir.OpCall,
		Args:      append([]ir.Value{fn.IR}, irArgs...),
		ArgTypes:  argTypes,
		ArgAggs:   argAggs,
		FixedArgs: -1,
	}
	if ft.Variadic {
		instr.FixedArgs = len(ft.Params)
	}

	var result *Value
	switch ret := ft.Return; {
	case ret.IsVoid():
	case ret.IsStruct():
		res := ctx.newTemp()
		instr.Result, instr.Typ, instr.Agg = res, ir.TypePtr, ret.Name
		result = tempValue(res, ret)
	default:
		res := ctx.newTemp()
		instr.Result, instr.Typ = res, ret.ABI()
		result = tempValue(res, ret)
	}
	ctx.addInstr(instr)
	return result
}

func (ctx *Context) assign(e *ast.Assign) *Value {
	var addr ir.Value
	var typ *Type

	switch target := e.Assignee.(type) {
	case *ast.Symbol:
		v := ctx.lookup(target.Tok, target.Name)
		if v.Kind != ValueStorage {
			util.Error(target.Tok, "cannot assign to '%s'", target.Name)
		}
		if !v.Mutable {
			util.Error(target.Tok, "cannot assign to immutable variable '%s'", target.Name)
		}
		addr, typ = v.IR, v.Type
	case *ast.Member:
		root := rootSymbol(target.Object)
		if root != nil {
			if v, ok := ctx.scope.Lookup(root.Name); ok && v.Kind == ValueStorage && !v.Mutable {
				util.Error(target.Tok, "cannot assign to a field of immutable variable '%s'", root.Name)
			}
		}
		addr, typ = ctx.memberAddr(target)
	default:
		util.Error(e.Tok, "invalid assignment target")
	}

	val := ctx.valueOf(e.Value, typ, "assigned value")
	ctx.genStore(addr, val.IR, typ)
	return val
}

func rootSymbol(e ast.Expr) *ast.Symbol {
	for {
		switch x := e.(type) {
		case *ast.Symbol:
			return x
		case *ast.Member:
			e = x.Object
		default:
			return nil
		}
	}
}

func (ctx *Context) structType(tok token.Token, name string) *Type {
	v, ok := ctx.scope.Lookup(name)
	if !ok || v.Kind != ValueType {
		util.Error(tok, "unknown struct '%s'", name)
	}
	return v.Type
}

func (ctx *Context) structInit(e *ast.StructInit) *Value {
	typ := ctx.structType(e.Tok, e.Name)
	slot := ctx.alloc(typ)

	seen := make(map[string]bool)
	for _, f := range e.Fields {
		if seen[f.Name] {
			util.Error(f.Tok, "field '%s' is initialized twice", f.Name)
		}
		seen[f.Name] = true
		idx, ok := ctx.scope.Field(typ.Name + "." + f.Name)
		if !ok {
			util.Error(f.Tok, "struct '%s' has no field '%s'", typ.Name, f.Name)
		}
		ft := typ.Fields[idx]
		val := ctx.valueOf(f.Value, ft, "field '"+f.Name+"'")
		ctx.genStore(ctx.genOffset(slot, typ.FieldOffset(idx, ctx.cfg.WordSize)), val.IR, ft)
	}
	return tempValue(slot, typ)
}

// memberAddr computes the address of obj.field. Only a single level of
// access on a named struct value is supported.
func (ctx *Context) memberAddr(e *ast.Member) (ir.Value, *Type) {
	obj, ok := e.Object.(*ast.Symbol)
	if !ok {
		util.Error(e.Tok, "failed to get member type: member access needs a named struct value on the left")
	}
	v := ctx.lookup(obj.Tok, obj.Name)
	if v.Kind != ValueStorage || v.Struct == "" {
		util.Error(e.Tok, "failed to get member type: '%s' is not a struct value", obj.Name)
	}
	base, typ := v.IR, v.Type

	idx, ok := ctx.scope.Field(typ.Name + "." + e.Field.Name)
	if !ok {
		util.Error(e.Field.Tok, "struct '%s' has no field '%s'", typ.Name, e.Field.Name)
	}
	return ctx.genOffset(base, typ.FieldOffset(idx, ctx.cfg.WordSize)), typ.Fields[idx]
}

func (ctx *Context) member(e *ast.Member) *Value {
	addr, typ := ctx.memberAddr(e)
	return tempValue(ctx.genLoad(addr, typ), typ)
}
