// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/anthony-63/Ignis/pkg/token"
)

// Node is anything that can be pointed at in a diagnostic.
type Node interface {
	Pos() token.Token
}

// Expr is a closed set of expression variants; only this package implements it.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a closed set of statement variants.
type Stmt interface {
	Node
	stmtNode()
}

// Type is a closed set of type-expression variants.
type Type interface {
	Node
	typeNode()
}

// --- Expressions ---
type IntLit struct {
	Tok   token.Token
	Value int64
}
type FloatLit struct {
	Tok   token.Token
	Value float64
}
type StringLit struct {
	Tok   token.Token
	Value string
}
type BoolLit struct {
	Tok   token.Token
	Value bool
}
type Symbol struct {
	Tok  token.Token
	Name string
}
type Binary struct {
	Tok         token.Token
	Op          token.Type
	Left, Right Expr
}
type Prefix struct {
	Tok   token.Token
	Op    token.Type
	Right Expr
}
type ArrayLit struct {
	Tok   token.Token
	Elems []Expr
}
type Call struct {
	Tok      token.Token
	Receiver *Symbol // set for obj.method(...) and Type.method(...)
	Name     string
	Args     []Expr
}
type Assign struct {
	Tok      token.Token
	Assignee Expr
	Value    Expr
}
type StructInit struct {
	Tok    token.Token
	Name   string
	Fields []*StructInitField
}
type Member struct {
	Tok    token.Token
	Object Expr
	Field  *Symbol
}

// StmtExpr lets a statement travel through expression position; the
// statement parser unwraps it.
type StmtExpr struct {
	Stmt Stmt
}

// --- Statements ---
type Block struct {
	Tok   token.Token
	Stmts []Stmt
}
type ExprStmt struct {
	X Expr
}
type VarDecl struct {
	Tok     token.Token
	Name    string
	Mutable bool
	Type    Type // nil when inferred from Value
	Value   Expr
}
type If struct {
	Tok  token.Token
	Cond Expr
	Body *Block
	Else Stmt // nil, *If or *Block
}
type While struct {
	Tok  token.Token
	Cond Expr
	Body *Block
}
type Link struct {
	Tok     token.Token
	Library string
	Static  bool
}
type Field struct {
	Tok  token.Token
	Name string
	Type Type
}
type Return struct {
	Tok   token.Token
	Value Expr // nil for a bare return
}
type StructDecl struct {
	Tok     token.Token
	Name    string
	Fields  []*Field
	Methods []*FuncDecl
}
type StructInitField struct {
	Tok   token.Token
	Name  string
	Value Expr
}
type FuncDecl struct {
	Tok        token.Token
	Name       string
	ReturnType Type
	Params     []*Field
	Body       *Block
}
type Extern struct {
	Tok        token.Token
	Name       string
	Symbol     string
	ReturnType Type
	Params     []*Field
	Variadic   bool
}
type Include struct {
	Tok  token.Token
	Path string
}

// --- Types ---
type SymbolType struct {
	Tok  token.Token
	Name string
}
type RefType struct {
	Tok  token.Token
	Elem Type
}
type ArrayType struct {
	Tok  token.Token
	Elem Type
}

func (e *IntLit) Pos() token.Token     { return e.Tok }
func (e *FloatLit) Pos() token.Token   { return e.Tok }
func (e *StringLit) Pos() token.Token  { return e.Tok }
func (e *BoolLit) Pos() token.Token    { return e.Tok }
func (e *Symbol) Pos() token.Token     { return e.Tok }
func (e *Binary) Pos() token.Token     { return e.Tok }
func (e *Prefix) Pos() token.Token     { return e.Tok }
func (e *ArrayLit) Pos() token.Token   { return e.Tok }
func (e *Call) Pos() token.Token       { return e.Tok }
func (e *Assign) Pos() token.Token     { return e.Tok }
func (e *StructInit) Pos() token.Token { return e.Tok }
func (e *Member) Pos() token.Token     { return e.Tok }
func (e *StmtExpr) Pos() token.Token   { return e.Stmt.Pos() }

func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*Symbol) exprNode()     {}
func (*Binary) exprNode()     {}
func (*Prefix) exprNode()     {}
func (*ArrayLit) exprNode()   {}
func (*Call) exprNode()       {}
func (*Assign) exprNode()     {}
func (*StructInit) exprNode() {}
func (*Member) exprNode()     {}
func (*StmtExpr) exprNode()   {}

func (s *Block) Pos() token.Token           { return s.Tok }
func (s *ExprStmt) Pos() token.Token        { return s.X.Pos() }
func (s *VarDecl) Pos() token.Token         { return s.Tok }
func (s *If) Pos() token.Token              { return s.Tok }
func (s *While) Pos() token.Token           { return s.Tok }
func (s *Link) Pos() token.Token            { return s.Tok }
func (s *Field) Pos() token.Token           { return s.Tok }
func (s *Return) Pos() token.Token          { return s.Tok }
func (s *StructDecl) Pos() token.Token      { return s.Tok }
func (s *StructInitField) Pos() token.Token { return s.Tok }
func (s *FuncDecl) Pos() token.Token        { return s.Tok }
func (s *Extern) Pos() token.Token          { return s.Tok }
func (s *Include) Pos() token.Token         { return s.Tok }

func (*Block) stmtNode()           {}
func (*ExprStmt) stmtNode()        {}
func (*VarDecl) stmtNode()         {}
func (*If) stmtNode()              {}
func (*While) stmtNode()           {}
func (*Link) stmtNode()            {}
func (*Field) stmtNode()           {}
func (*Return) stmtNode()          {}
func (*StructDecl) stmtNode()      {}
func (*StructInitField) stmtNode() {}
func (*FuncDecl) stmtNode()        {}
func (*Extern) stmtNode()          {}
func (*Include) stmtNode()         {}

func (t *SymbolType) Pos() token.Token { return t.Tok }
func (t *RefType) Pos() token.Token    { return t.Tok }
func (t *ArrayType) Pos() token.Token  { return t.Tok }

func (*SymbolType) typeNode() {}
func (*RefType) typeNode()    {}
func (*ArrayType) typeNode()  {}
