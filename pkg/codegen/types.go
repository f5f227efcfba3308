package codegen

import (
	"fmt"
	"strings"

	"github.com/anthony-63/Ignis/pkg/ir"
	"github.com/anthony-63/Ignis/pkg/util"
)

type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindStruct
	KindFunc
)

// Type is a resolved Ignis type. Built-in types are shared singletons from
// the type map; struct and function types are built during lowering.
type Type struct {
	Kind       TypeKind
	Name       string
	Bits       int
	Fields     []*Type
	FieldNames []string
	Params     []*Type
	ByRef      []bool // params passed as a pointer to the caller's storage
	Return     *Type
	Variadic   bool
}

// newTypeMap seeds the built-in types.
func newTypeMap() map[string]*Type {
	m := map[string]*Type{
		"i8":   {Kind: KindInt, Name: "i8", Bits: 8},
		"i16":  {Kind: KindInt, Name: "i16", Bits: 16},
		"i32":  {Kind: KindInt, Name: "i32", Bits: 32},
		"i64":  {Kind: KindInt, Name: "i64", Bits: 64},
		"f16":  {Kind: KindFloat, Name: "f16", Bits: 16},
		"f32":  {Kind: KindFloat, Name: "f32", Bits: 32},
		"f64":  {Kind: KindFloat, Name: "f64", Bits: 64},
		"bool": {Kind: KindBool, Name: "bool", Bits: 1},
		"str":  {Kind: KindString, Name: "str"},
		"void": {Kind: KindVoid, Name: "void"},
	}
	return m
}

func (t *Type) String() string {
	if t == nil {
		return "<none>"
	}
	if t.Kind != KindFunc {
		return t.Name
	}
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
		if i < len(t.ByRef) && t.ByRef[i] {
			params[i] = "ref " + params[i]
		}
	}
	if t.Variadic {
		params = append(params, "..")
	}
	return fmt.Sprintf("sub (%s) %s", strings.Join(params, ", "), t.Return)
}

func (t *Type) IsVoid() bool   { return t == nil || t.Kind == KindVoid }
func (t *Type) IsStruct() bool { return t != nil && t.Kind == KindStruct }

func (t *Type) is(kind TypeKind, bits int) bool {
	return t != nil && t.Kind == kind && t.Bits == bits
}

// Storage is the in-memory class used for loads, stores and data.
func (t *Type) Storage() ir.Type {
	switch t.Kind {
	case KindInt:
		switch t.Bits {
		case 8:
			return ir.TypeSB
		case 16:
			return ir.TypeSH
		case 32:
			return ir.TypeW
		}
		return ir.TypeL
	case KindFloat:
		// QBE has no half precision; f16 is carried as single.
		if t.Bits == 64 {
			return ir.TypeD
		}
		return ir.TypeS
	case KindBool:
		return ir.TypeUB
	case KindStruct:
		return ir.TypeAgg
	case KindString, KindFunc:
		return ir.TypePtr
	}
	return ir.TypeNone
}

// ABI is the register class a value of t travels in; sub-word integers widen to w.
func (t *Type) ABI() ir.Type {
	switch s := t.Storage(); s {
	case ir.TypeSB, ir.TypeUB, ir.TypeSH, ir.TypeUH:
		return ir.TypeW
	default:
		return s
	}
}

func (t *Type) Size(wordSize int) int64 {
	if t.Kind != KindStruct {
		return ir.SizeOfType(t.Storage(), wordSize)
	}
	var size int64
	for _, f := range t.Fields {
		size = util.AlignUp(size, f.Align(wordSize)) + f.Size(wordSize)
	}
	return util.AlignUp(size, t.Align(wordSize))
}

func (t *Type) Align(wordSize int) int64 {
	if t.Kind != KindStruct {
		return t.Size(wordSize)
	}
	var align int64 = 1
	for _, f := range t.Fields {
		align = max(align, f.Align(wordSize))
	}
	return align
}

// FieldOffset is the byte offset of field i under natural alignment, the
// layout QBE uses for the matching aggregate type.
func (t *Type) FieldOffset(i, wordSize int) int64 {
	var off int64
	for j, f := range t.Fields {
		off = util.AlignUp(off, f.Align(wordSize))
		if j == i {
			return off
		}
		off += f.Size(wordSize)
	}
	return off
}

// aggregate describes a struct type for the backend's type section.
func (t *Type) aggregate() *ir.Aggregate {
	agg := &ir.Aggregate{Name: t.Name}
	for _, f := range t.Fields {
		field := ir.AggField{Typ: f.Storage()}
		if f.IsStruct() {
			field.Agg = f.Name
		}
		agg.Fields = append(agg.Fields, field)
	}
	return agg
}

// sameType compares types structurally; struct types compare by name.
func sameType(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Name != b.Name || a.Bits != b.Bits {
		return false
	}
	if a.Kind != KindFunc {
		return true
	}
	if len(a.Params) != len(b.Params) || a.Variadic != b.Variadic || !sameType(a.Return, b.Return) {
		return false
	}
	for i := range a.Params {
		if !sameType(a.Params[i], b.Params[i]) {
			return false
		}
	}
	return true
}
