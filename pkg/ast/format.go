package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anthony-63/Ignis/pkg/token"
)

var opText = map[token.Type]string{
	token.Plus: "+", token.Minus: "-", token.Star: "*", token.Slash: "/", token.Rem: "%", token.Pow: "^^",
	token.EqEq: "==", token.Neq: "!=", token.Lt: "<", token.Lte: "<=", token.Gt: ">", token.Gte: ">=",
	token.AndAnd: "&&", token.OrOr: "||", token.Not: "!",
}

// Format renders a node as a compact, fully parenthesised string. Two trees
// format identically exactly when they have the same shape and payloads.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *IntLit:
		sb.WriteString(strconv.FormatInt(n.Value, 10))
	case *FloatLit:
		sb.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *StringLit:
		sb.WriteString(strconv.Quote(n.Value))
	case *BoolLit:
		sb.WriteString(strconv.FormatBool(n.Value))
	case *Symbol:
		sb.WriteString(n.Name)
	case *Binary:
		sb.WriteByte('(')
		format(sb, n.Left)
		fmt.Fprintf(sb, " %s ", opText[n.Op])
		format(sb, n.Right)
		sb.WriteByte(')')
	case *Prefix:
		fmt.Fprintf(sb, "(%s", opText[n.Op])
		format(sb, n.Right)
		sb.WriteByte(')')
	case *ArrayLit:
		sb.WriteByte('[')
		for i, e := range n.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, e)
		}
		sb.WriteByte(']')
	case *Call:
		if n.Receiver != nil {
			fmt.Fprintf(sb, "%s.", n.Receiver.Name)
		}
		fmt.Fprintf(sb, "%s(", n.Name)
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, a)
		}
		sb.WriteByte(')')
	case *Assign:
		sb.WriteByte('(')
		format(sb, n.Assignee)
		sb.WriteString(" = ")
		format(sb, n.Value)
		sb.WriteByte(')')
	case *StructInit:
		fmt.Fprintf(sb, "new %s{", n.Name)
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, f)
		}
		sb.WriteByte('}')
	case *StructInitField:
		fmt.Fprintf(sb, "%s: ", n.Name)
		format(sb, n.Value)
	case *Member:
		format(sb, n.Object)
		fmt.Fprintf(sb, ".%s", n.Field.Name)
	case *StmtExpr:
		format(sb, n.Stmt)
	case *Block:
		sb.WriteByte('{')
		for i, s := range n.Stmts {
			if i > 0 {
				sb.WriteByte(' ')
			}
			format(sb, s)
		}
		sb.WriteByte('}')
	case *ExprStmt:
		format(sb, n.X)
		sb.WriteByte(';')
	case *VarDecl:
		kw := "immut"
		if n.Mutable {
			kw = "mut"
		}
		fmt.Fprintf(sb, "%s %s", kw, n.Name)
		if n.Type != nil {
			sb.WriteString(": ")
			format(sb, n.Type)
		}
		sb.WriteString(" = ")
		format(sb, n.Value)
		sb.WriteByte(';')
	case *If:
		sb.WriteString("if ")
		format(sb, n.Cond)
		sb.WriteByte(' ')
		format(sb, n.Body)
		if n.Else != nil {
			sb.WriteString(" else ")
			format(sb, n.Else)
		}
	case *While:
		sb.WriteString("while ")
		format(sb, n.Cond)
		sb.WriteByte(' ')
		format(sb, n.Body)
	case *Link:
		kw := "linklib"
		if n.Static {
			kw = "linkstatic"
		}
		fmt.Fprintf(sb, "%s %q;", kw, n.Library)
	case *Field:
		fmt.Fprintf(sb, "%s: ", n.Name)
		format(sb, n.Type)
	case *Return:
		sb.WriteString("return")
		if n.Value != nil {
			sb.WriteByte(' ')
			format(sb, n.Value)
		}
		sb.WriteByte(';')
	case *StructDecl:
		fmt.Fprintf(sb, "%s -> struct {", n.Name)
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, f)
		}
		for _, m := range n.Methods {
			sb.WriteByte(' ')
			format(sb, m)
		}
		sb.WriteByte('}')
	case *FuncDecl:
		fmt.Fprintf(sb, "%s -> sub ", n.Name)
		formatSignature(sb, n.Params, false, n.ReturnType)
		sb.WriteByte(' ')
		format(sb, n.Body)
	case *Extern:
		fmt.Fprintf(sb, "%s -> extern %q ", n.Name, n.Symbol)
		formatSignature(sb, n.Params, n.Variadic, n.ReturnType)
		sb.WriteByte(';')
	case *Include:
		fmt.Fprintf(sb, "include %q;", n.Path)
	case *SymbolType:
		sb.WriteString(n.Name)
	case *RefType:
		sb.WriteString("ref ")
		format(sb, n.Elem)
	case *ArrayType:
		sb.WriteString("[]")
		format(sb, n.Elem)
	case nil:
		sb.WriteString("<nil>")
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

func formatSignature(sb *strings.Builder, params []*Field, variadic bool, ret Type) {
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Type == nil {
			sb.WriteString(p.Name)
			continue
		}
		format(sb, p)
	}
	if variadic {
		if len(params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("..")
	}
	sb.WriteByte(')')
	if ret != nil {
		sb.WriteByte(' ')
		format(sb, ret)
	}
}
