package codegen

import (
	"github.com/anthony-63/Ignis/pkg/ir"
)

type ValueKind int

const (
	ValueTemp    ValueKind = iota // result of an expression
	ValueStorage                  // IR holds the address of the variable's memory
	ValueFunc                     // IR is the function's global symbol
	ValueType                     // a struct type binding; IR is nil
)

// Value is what names and expressions compile to.
type Value struct {
	Kind    ValueKind
	IR      ir.Value
	Type    *Type
	Mutable bool
	Public  bool
	Struct  string // owning struct type name, set for every struct-typed value
}

// newValue builds a Value, deriving Struct from the type so the two never disagree.
func newValue(kind ValueKind, v ir.Value, typ *Type, mutable, public bool) *Value {
	val := &Value{Kind: kind, IR: v, Type: typ, Mutable: mutable, Public: public}
	if typ.IsStruct() {
		val.Struct = typ.Name
	}
	return val
}

func tempValue(v ir.Value, typ *Type) *Value {
	return newValue(ValueTemp, v, typ, false, false)
}
