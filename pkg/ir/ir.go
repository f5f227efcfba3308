package ir

type Op int

const (
	OpAlloc Op = iota
	OpLoad
	OpStore
	OpBlit
	OpCopy
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpNeg
	OpCEq
	OpCNeq
	OpCLt
	OpCGt
	OpCLe
	OpCGe
	OpExtS
	OpJmp
	OpJnz
	OpRet
	OpCall
)

type Type int

const (
	TypeNone Type = iota
	TypeSB        // signed byte (8-bit)
	TypeUB        // unsigned byte (8-bit)
	TypeSH        // signed half-word (16-bit)
	TypeUH        // unsigned half-word (16-bit)
	TypeW         // word (32-bit)
	TypeL         // long (64-bit)
	TypeS         // single float (32-bit)
	TypeD         // double float (64-bit)
	TypePtr
	TypeAgg // aggregate passed by reference; the instruction names it
)

// IsFloat reports whether values of t live in floating-point registers.
func (t Type) IsFloat() bool { return t == TypeS || t == TypeD }

type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int64 }
type FloatConst struct {
	Value float64
	Typ   Type
}
type Global struct{ Name string }
type Temporary struct {
	Name string
	ID   int
}
type Label struct{ Name string }

func (c *Const) isValue()      {}
func (f *FloatConst) isValue() {}
func (g *Global) isValue()     {}
func (t *Temporary) isValue()  {}
func (l *Label) isValue()      {}

func (c *Const) String() string      { return "" }
func (f *FloatConst) String() string { return "" }
func (g *Global) String() string     { return g.Name }
func (t *Temporary) String() string  { return t.Name }
func (l *Label) String() string      { return l.Name }

type Func struct {
	Name       string
	Params     []*Param
	ReturnType Type
	ReturnAgg  string
	Blocks     []*BasicBlock
	Exported   bool
}

type Param struct {
	Name string
	Typ  Type
	Agg  string
	Val  Value
}

type BasicBlock struct {
	Label        *Label
	Instructions []*Instruction
}

type Instruction struct {
	Op          Op
	Typ         Type
	OperandType Type
	Result      Value
	Args        []Value
	ArgTypes    []Type
	Align       int
	Unsigned    bool     // integer comparisons
	Unordered   bool     // float comparisons: true when either operand is NaN
	Agg         string   // aggregate result of a call
	ArgAggs     []string // aggregate name per call argument, "" for scalars
	FixedArgs   int      // calls: arguments before the variadic marker, -1 when not variadic
}

type AggField struct {
	Typ Type
	Agg string
}

type Aggregate struct {
	Name   string
	Fields []AggField
}

type Data struct {
	Name     string
	Align    int
	Items    []DataItem
	Exported bool
}

type DataItem struct {
	Typ   Type
	Value Value
	Str   string // byte string payload when non-empty
	Count int    // zero-fill count when non-zero
}

type Program struct {
	Name             string
	Aggregates       []*Aggregate
	Globals          []*Data
	Strings          []*Data
	Funcs            []*Func
	Externs          []string
	WordSize         int
	BackendTempCount int
}

func SizeOfType(t Type, wordSize int) int64 {
	switch t {
	case TypeSB, TypeUB:
		return 1
	case TypeSH, TypeUH:
		return 2
	case TypeW, TypeS:
		return 4
	case TypeL, TypeD:
		return 8
	default:
		return int64(wordSize)
	}
}

func (p *Program) IncBackendTempCount() int {
	p.BackendTempCount++
	return p.BackendTempCount
}

func (p *Program) FindFunc(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (p *Program) FindAggregate(name string) *Aggregate {
	for _, a := range p.Aggregates {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AddAggregate records an aggregate once; later additions with the same name are ignored.
func (p *Program) AddAggregate(a *Aggregate) {
	if p.FindAggregate(a.Name) == nil {
		p.Aggregates = append(p.Aggregates, a)
	}
}

// AddExtern records an externally defined symbol once.
func (p *Program) AddExtern(name string) {
	for _, e := range p.Externs {
		if e == name {
			return
		}
	}
	p.Externs = append(p.Externs, name)
}
