package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anthony-63/Ignis/pkg/ir"
)

// Backend renders an IR program as the text handed to the object emitter.
type Backend interface {
	GenerateIR(prog *ir.Program) (string, error)
}

type qbeBackend struct {
	out  *strings.Builder
	prog *ir.Program
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) GenerateIR(prog *ir.Program) (string, error) {
	var sb strings.Builder
	b.out = &sb
	b.prog = prog

	if prog.Name != "" {
		fmt.Fprintf(b.out, "# module %s\n", prog.Name)
	}
	for _, name := range prog.Externs {
		fmt.Fprintf(b.out, "# extern $%s\n", name)
	}

	if len(prog.Aggregates) > 0 {
		b.out.WriteString("\n")
		for _, agg := range prog.Aggregates {
			b.genAggregate(agg)
		}
	}

	if len(prog.Globals) > 0 {
		b.out.WriteString("\n")
		for _, g := range prog.Globals {
			b.genData(g)
		}
	}

	if len(prog.Strings) > 0 {
		b.out.WriteString("\n")
		for _, s := range prog.Strings {
			b.genData(s)
		}
	}

	for _, fn := range prog.Funcs {
		if err := b.genFunc(fn); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func (b *qbeBackend) genAggregate(agg *ir.Aggregate) {
	fields := make([]string, len(agg.Fields))
	for i, f := range agg.Fields {
		if f.Typ == ir.TypeAgg {
			fields[i] = ":" + f.Agg
			continue
		}
		fields[i] = b.formatStorageType(f.Typ)
	}
	fmt.Fprintf(b.out, "type :%s = { %s }\n", agg.Name, strings.Join(fields, ", "))
}

func (b *qbeBackend) genData(d *ir.Data) {
	if d.Exported {
		b.out.WriteString("export ")
	}
	alignStr := ""
	if d.Align > 0 {
		alignStr = fmt.Sprintf("align %d ", d.Align)
	}

	fmt.Fprintf(b.out, "data $%s = %s{ ", d.Name, alignStr)
	for i, item := range d.Items {
		switch {
		case item.Count > 0:
			fmt.Fprintf(b.out, "z %d", item.Count)
		case item.Str != "":
			b.out.WriteString(formatBytes(item.Str))
		default:
			fmt.Fprintf(b.out, "%s %s", b.formatStorageType(item.Typ), b.formatValue(item.Value))
		}
		if i < len(d.Items)-1 {
			b.out.WriteString(", ")
		}
	}
	b.out.WriteString(" }\n")
}

// formatBytes keeps printable runs quoted and spells everything else out as
// byte values, so the assembler never sees an escape it might not know.
func formatBytes(s string) string {
	var parts []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, fmt.Sprintf("b \"%s\"", run.String()))
			run.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			run.WriteByte(c)
			continue
		}
		flush()
		parts = append(parts, fmt.Sprintf("b %d", c))
	}
	flush()
	return strings.Join(parts, ", ")
}

func (b *qbeBackend) genFunc(fn *ir.Func) error {
	var retTypeStr string
	switch {
	case fn.ReturnAgg != "":
		retTypeStr = " :" + fn.ReturnAgg
	case fn.ReturnType != ir.TypeNone:
		retTypeStr = " " + b.formatType(fn.ReturnType)
	}

	b.out.WriteString("\n")
	if fn.Exported {
		b.out.WriteString("export ")
	}
	fmt.Fprintf(b.out, "function%s $%s(", retTypeStr, fn.Name)
	for i, p := range fn.Params {
		if p.Agg != "" {
			fmt.Fprintf(b.out, ":%s %s", p.Agg, b.formatValue(p.Val))
		} else {
			fmt.Fprintf(b.out, "%s %s", b.formatType(p.Typ), b.formatValue(p.Val))
		}
		if i < len(fn.Params)-1 {
			b.out.WriteString(", ")
		}
	}
	b.out.WriteString(") {\n")

	for _, block := range fn.Blocks {
		fmt.Fprintf(b.out, "@%s\n", block.Label.Name)
		for _, instr := range block.Instructions {
			if err := b.genInstr(instr); err != nil {
				return fmt.Errorf("function $%s: %w", fn.Name, err)
			}
		}
	}

	b.out.WriteString("}\n")
	return nil
}

func (b *qbeBackend) genInstr(instr *ir.Instruction) error {
	switch instr.Op {
	case ir.OpCall:
		b.genCall(instr)
		return nil
	case ir.OpCEq, ir.OpCNeq, ir.OpCLt, ir.OpCGt, ir.OpCLe, ir.OpCGe:
		if instr.Unordered && instr.OperandType.IsFloat() {
			b.genUnorderedCompare(instr)
			return nil
		}
	}

	opStr, err := b.formatOp(instr)
	if err != nil {
		return err
	}

	b.out.WriteString("\t")
	if instr.Result != nil {
		fmt.Fprintf(b.out, "%s =%s ", b.formatValue(instr.Result), b.resultType(instr))
	}
	b.out.WriteString(opStr)
	for i, arg := range instr.Args {
		b.out.WriteString(" ")
		b.out.WriteString(b.formatValue(arg))
		if i < len(instr.Args)-1 {
			b.out.WriteString(",")
		}
	}
	b.out.WriteString("\n")
	return nil
}

// genUnorderedCompare emits `cuo | c<op>` so the result is true whenever
// either operand is NaN.
func (b *qbeBackend) genUnorderedCompare(instr *ir.Instruction) {
	suffix := b.formatType(instr.OperandType)
	ordered := *instr
	ordered.Unordered = false
	ordered.Result = &ir.Temporary{Name: "uo", ID: b.prog.IncBackendTempCount()}
	opStr, _ := b.formatOp(&ordered)
	nan := &ir.Temporary{Name: "uo", ID: b.prog.IncBackendTempCount()}

	lhs, rhs := b.formatValue(instr.Args[0]), b.formatValue(instr.Args[1])
	fmt.Fprintf(b.out, "\t%s =w cuo%s %s, %s\n", b.formatValue(nan), suffix, lhs, rhs)
	fmt.Fprintf(b.out, "\t%s =w %s %s, %s\n", b.formatValue(ordered.Result), opStr, lhs, rhs)
	fmt.Fprintf(b.out, "\t%s =w or %s, %s\n", b.formatValue(instr.Result), b.formatValue(nan), b.formatValue(ordered.Result))
}

func (b *qbeBackend) genCall(instr *ir.Instruction) {
	b.out.WriteString("\t")
	if instr.Result != nil {
		if instr.Agg != "" {
			fmt.Fprintf(b.out, "%s =:%s ", b.formatValue(instr.Result), instr.Agg)
		} else {
			fmt.Fprintf(b.out, "%s =%s ", b.formatValue(instr.Result), b.formatType(instr.Typ))
		}
	}

	fmt.Fprintf(b.out, "call %s(", b.formatValue(instr.Args[0]))
	args := instr.Args[1:]
	for i, arg := range args {
		if i > 0 {
			b.out.WriteString(", ")
		}
		if instr.FixedArgs >= 0 && i == instr.FixedArgs {
			b.out.WriteString("..., ")
		}
		if i < len(instr.ArgAggs) && instr.ArgAggs[i] != "" {
			fmt.Fprintf(b.out, ":%s %s", instr.ArgAggs[i], b.formatValue(arg))
			continue
		}
		argType := ir.TypeL
		if i < len(instr.ArgTypes) {
			argType = instr.ArgTypes[i]
		}
		fmt.Fprintf(b.out, "%s %s", b.formatType(argType), b.formatValue(arg))
	}
	if instr.FixedArgs >= 0 && instr.FixedArgs >= len(args) {
		if len(args) > 0 {
			b.out.WriteString(", ")
		}
		b.out.WriteString("...")
	}
	b.out.WriteString(")\n")
}

func (b *qbeBackend) resultType(instr *ir.Instruction) string {
	switch instr.Op {
	case ir.OpCEq, ir.OpCNeq, ir.OpCLt, ir.OpCGt, ir.OpCLe, ir.OpCGe:
		return "w"
	case ir.OpAlloc:
		return b.formatType(ir.TypePtr)
	}
	return b.formatType(instr.Typ)
}

func (b *qbeBackend) formatValue(v ir.Value) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case *ir.Const:
		return strconv.FormatInt(val.Value, 10)
	case *ir.FloatConst:
		return fmt.Sprintf("%s_%s", b.formatType(val.Typ), strconv.FormatFloat(val.Value, 'g', -1, 64))
	case *ir.Global:
		return "$" + val.Name
	case *ir.Temporary:
		safeName := strings.NewReplacer(".", "_", "[", "_", "]", "_").Replace(val.Name)
		if val.ID == -1 {
			return "%" + safeName
		}
		if safeName != "" {
			return fmt.Sprintf("%%.%s_%d", safeName, val.ID)
		}
		return fmt.Sprintf("%%t%d", val.ID)
	case *ir.Label:
		return "@" + val.Name
	default:
		return ""
	}
}

// formatType gives the register class of a value; sub-word integers widen to w.
func (b *qbeBackend) formatType(t ir.Type) string {
	switch t {
	case ir.TypeSB, ir.TypeUB, ir.TypeSH, ir.TypeUH, ir.TypeW:
		return "w"
	case ir.TypeL:
		return "l"
	case ir.TypeS:
		return "s"
	case ir.TypeD:
		return "d"
	case ir.TypePtr, ir.TypeAgg:
		if b.prog != nil && b.prog.WordSize == 4 {
			return "w"
		}
		return "l"
	default:
		return ""
	}
}

// formatStorageType gives the in-memory width used by stores and data.
func (b *qbeBackend) formatStorageType(t ir.Type) string {
	switch t {
	case ir.TypeSB, ir.TypeUB:
		return "b"
	case ir.TypeSH, ir.TypeUH:
		return "h"
	}
	return b.formatType(t)
}

func (b *qbeBackend) formatOp(instr *ir.Instruction) (string, error) {
	typ := instr.Typ
	argType := instr.OperandType
	if argType == ir.TypeNone {
		argType = instr.Typ
	}
	argTypeStr := b.formatType(argType)
	isFloat := argType.IsFloat()

	switch instr.Op {
	case ir.OpAlloc:
		if instr.Align <= 4 {
			return "alloc4", nil
		}
		if instr.Align <= 8 {
			return "alloc8", nil
		}
		return "alloc16", nil
	case ir.OpLoad:
		switch typ {
		case ir.TypeSB:
			return "loadsb", nil
		case ir.TypeUB:
			return "loadub", nil
		case ir.TypeSH:
			return "loadsh", nil
		case ir.TypeUH:
			return "loaduh", nil
		}
		return "load" + b.formatType(typ), nil
	case ir.OpStore:
		return "store" + b.formatStorageType(typ), nil
	case ir.OpBlit:
		return "blit", nil
	case ir.OpCopy:
		return "copy", nil
	case ir.OpAdd:
		return "add", nil
	case ir.OpSub:
		return "sub", nil
	case ir.OpMul:
		return "mul", nil
	case ir.OpDiv:
		return "div", nil
	case ir.OpRem:
		return "rem", nil
	case ir.OpAnd:
		return "and", nil
	case ir.OpOr:
		return "or", nil
	case ir.OpNeg:
		return "neg", nil
	case ir.OpCEq:
		return "ceq" + argTypeStr, nil
	case ir.OpCNeq:
		return "cne" + argTypeStr, nil
	case ir.OpCLt, ir.OpCGt, ir.OpCLe, ir.OpCGe:
		rel := map[ir.Op]string{ir.OpCLt: "lt", ir.OpCGt: "gt", ir.OpCLe: "le", ir.OpCGe: "ge"}[instr.Op]
		switch {
		case isFloat:
			return "c" + rel + argTypeStr, nil
		case instr.Unsigned:
			return "cu" + rel + argTypeStr, nil
		default:
			return "cs" + rel + argTypeStr, nil
		}
	case ir.OpExtS:
		if argType == ir.TypeS {
			return "exts", nil
		}
		return "ext" + map[ir.Type]string{ir.TypeSB: "sb", ir.TypeUB: "ub", ir.TypeSH: "sh", ir.TypeUH: "uh", ir.TypeW: "sw"}[argType], nil
	case ir.OpJmp:
		return "jmp", nil
	case ir.OpJnz:
		return "jnz", nil
	case ir.OpRet:
		return "ret", nil
	}
	return "", fmt.Errorf("unsupported IR op %d", instr.Op)
}
