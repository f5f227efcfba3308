package parser

import (
	"strconv"

	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/token"
)

func registerExpressions(t *Table[ast.Expr]) {
	t.RegisterInfix(token.AndAnd, Logical, parseBinary)
	t.RegisterInfix(token.OrOr, Logical, parseBinary)

	t.RegisterInfix(token.Lt, Relational, parseBinary)
	t.RegisterInfix(token.Lte, Relational, parseBinary)
	t.RegisterInfix(token.Gt, Relational, parseBinary)
	t.RegisterInfix(token.Gte, Relational, parseBinary)
	t.RegisterInfix(token.EqEq, Relational, parseBinary)
	t.RegisterInfix(token.Neq, Relational, parseBinary)

	t.RegisterInfix(token.Plus, Additive, parseBinary)
	t.RegisterInfix(token.Minus, Additive, parseBinary)

	t.RegisterInfix(token.Star, Multiplicative, parseBinary)
	t.RegisterInfix(token.Slash, Multiplicative, parseBinary)
	t.RegisterInfix(token.Rem, Multiplicative, parseBinary)
	t.RegisterInfix(token.Pow, Multiplicative, parseBinary)

	t.RegisterInfix(token.Eq, Assignment, parseAssign)
	t.RegisterInfix(token.PlusEq, Assignment, parseCompoundAssign)
	t.RegisterInfix(token.MinusEq, Assignment, parseCompoundAssign)

	t.RegisterInfix(token.LParen, Call, parseCall)
	t.RegisterInfix(token.Dot, Member, parseMember)
	t.RegisterInfix(token.Arrow, Primary, parseDeclaration)

	t.RegisterPrefix(token.Integer, parseInteger)
	t.RegisterPrefix(token.Decimal, parseDecimal)
	t.RegisterPrefix(token.String, parseString)
	t.RegisterPrefix(token.Bool, parseBool)
	t.RegisterPrefix(token.Identifier, parseSymbol)
	t.RegisterPrefix(token.LParen, parseGrouping)
	t.RegisterPrefix(token.LBracket, parseArray)
	t.RegisterPrefix(token.Minus, parsePrefix)
	t.RegisterPrefix(token.Not, parsePrefix)
	t.RegisterPrefix(token.New, parseStructInit)
}

func parseInteger(p *Parser) ast.Expr {
	tok := p.advance()
	val, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		p.failAt(tok, "integer literal %s is out of range", tok.Value)
	}
	return &ast.IntLit{Tok: tok, Value: val}
}

func parseDecimal(p *Parser) ast.Expr {
	tok := p.advance()
	val, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		p.failAt(tok, "malformed decimal literal %s", tok.Value)
	}
	return &ast.FloatLit{Tok: tok, Value: val}
}

func parseString(p *Parser) ast.Expr {
	tok := p.advance()
	return &ast.StringLit{Tok: tok, Value: tok.Value}
}

func parseBool(p *Parser) ast.Expr {
	tok := p.advance()
	return &ast.BoolLit{Tok: tok, Value: tok.Value == "true"}
}

func parseSymbol(p *Parser) ast.Expr {
	tok := p.advance()
	return &ast.Symbol{Tok: tok, Name: tok.Value}
}

func parseGrouping(p *Parser) ast.Expr {
	p.advance()
	expr := p.parseExpr(Default)
	p.expect(token.RParen, "after grouped expression")
	return expr
}

func parseArray(p *Parser) ast.Expr {
	arr := &ast.ArrayLit{Tok: p.advance()}
	for !p.check(token.RBracket) && !p.check(token.EOF) {
		arr.Elems = append(arr.Elems, p.parseExpr(Comma))
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBracket, "to close the array literal")
	return arr
}

func parsePrefix(p *Parser) ast.Expr {
	op := p.advance()
	return &ast.Prefix{Tok: op, Op: op.Type, Right: p.parseExpr(Unary)}
}

// new Name { field: value, ... }
func parseStructInit(p *Parser) ast.Expr {
	tok := p.advance()
	name := p.expect(token.Identifier, "after 'new'")
	init := &ast.StructInit{Tok: tok, Name: name.Value}
	p.expect(token.LBrace, "to open the struct initializer")
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		field := p.expect(token.Identifier, "naming a field")
		p.expect(token.Colon, "after the field name")
		init.Fields = append(init.Fields, &ast.StructInitField{Tok: field, Name: field.Value, Value: p.parseExpr(Comma)})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, "to close the struct initializer")
	return init
}

// Binary operators parse their right side at their own power, so equal
// powers associate to the left.
func parseBinary(p *Parser, left ast.Expr, _ BindingPower) ast.Expr {
	op := p.advance()
	power, _ := p.exprs.Power(op.Type)
	right := p.parseExpr(power)
	return &ast.Binary{Tok: op, Op: op.Type, Left: left, Right: right}
}

func parseAssign(p *Parser, left ast.Expr, _ BindingPower) ast.Expr {
	tok := p.advance()
	return &ast.Assign{Tok: tok, Assignee: left, Value: p.parseExpr(Comma)}
}

// x += e becomes x = x + e; the assignee is evaluated twice.
func parseCompoundAssign(p *Parser, left ast.Expr, _ BindingPower) ast.Expr {
	tok := p.advance()
	op := token.Plus
	if tok.Type == token.MinusEq {
		op = token.Minus
	}
	value := &ast.Binary{Tok: tok, Op: op, Left: left, Right: p.parseExpr(Comma)}
	return &ast.Assign{Tok: tok, Assignee: left, Value: value}
}

func parseCall(p *Parser, left ast.Expr, _ BindingPower) ast.Expr {
	var call *ast.Call
	switch callee := left.(type) {
	case *ast.Symbol:
		call = &ast.Call{Tok: callee.Tok, Name: callee.Name}
	case *ast.Member:
		recv, ok := callee.Object.(*ast.Symbol)
		if !ok {
			p.fail("methods can only be called on a named value or type")
		}
		call = &ast.Call{Tok: callee.Field.Tok, Receiver: recv, Name: callee.Field.Name}
	default:
		p.fail("only named functions can be called")
	}
	p.advance()
	for !p.check(token.RParen) && !p.check(token.EOF) {
		call.Args = append(call.Args, p.parseExpr(Comma))
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "to close the argument list")
	return call
}

func parseMember(p *Parser, left ast.Expr, _ BindingPower) ast.Expr {
	dot := p.advance()
	field := p.expect(token.Identifier, "after '.'")
	return &ast.Member{Tok: dot, Object: left, Field: &ast.Symbol{Tok: field, Name: field.Value}}
}

// name -> sub|struct|extern ... produces a declaration that escapes
// expression position.
func parseDeclaration(p *Parser, left ast.Expr, _ BindingPower) ast.Expr {
	name, ok := left.(*ast.Symbol)
	if !ok {
		p.fail("'->' must follow the name being declared")
	}
	p.advance()
	switch p.current.Type {
	case token.Sub:
		return &ast.StmtExpr{Stmt: p.parseFuncDecl(name)}
	case token.Struct:
		return &ast.StmtExpr{Stmt: p.parseStructDecl(name)}
	case token.Extern:
		return &ast.StmtExpr{Stmt: p.parseExtern(name)}
	}
	p.fail("expected 'sub', 'struct' or 'extern' after '->', found %s", p.current.Describe())
	return nil
}
