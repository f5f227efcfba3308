package parser

import (
	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/token"
)

func registerStatements(t *Table[ast.Expr]) {
	t.RegisterStatement(token.If, parseIf)
	t.RegisterStatement(token.While, parseWhile)
	t.RegisterStatement(token.Mut, parseVarDecl)
	t.RegisterStatement(token.Immut, parseVarDecl)
	t.RegisterStatement(token.Return, parseReturn)
	t.RegisterStatement(token.LinkStatic, parseLink)
	t.RegisterStatement(token.LinkLib, parseLink)
	t.RegisterStatement(token.Include, parseInclude)
}

func parseIf(p *Parser) ast.Stmt {
	stmt := &ast.If{Tok: p.advance()}
	stmt.Cond = p.parseExpr(Default)
	stmt.Body = p.parseBlock()
	if p.match(token.Else) {
		if p.check(token.If) {
			stmt.Else = parseIf(p)
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func parseWhile(p *Parser) ast.Stmt {
	stmt := &ast.While{Tok: p.advance()}
	stmt.Cond = p.parseExpr(Default)
	stmt.Body = p.parseBlock()
	return stmt
}

// mut name[: type] = value;   immut name[: type] = value;
func parseVarDecl(p *Parser) ast.Stmt {
	kw := p.advance()
	name := p.expect(token.Identifier, "naming the variable")
	decl := &ast.VarDecl{Tok: name, Name: name.Value, Mutable: kw.Type == token.Mut}
	if p.match(token.Colon) {
		decl.Type = p.parseType(Default)
	}
	p.expect(token.Eq, "in variable declaration")
	decl.Value = p.parseExpr(Default)
	p.expect(token.Semi, "after variable declaration")
	return decl
}

func parseReturn(p *Parser) ast.Stmt {
	stmt := &ast.Return{Tok: p.advance()}
	if !p.check(token.Semi) {
		stmt.Value = p.parseExpr(Default)
	}
	p.expect(token.Semi, "after return")
	return stmt
}

func parseLink(p *Parser) ast.Stmt {
	kw := p.advance()
	lib := p.expect(token.String, "naming the library")
	p.expect(token.Semi, "after link directive")
	return &ast.Link{Tok: kw, Library: lib.Value, Static: kw.Type == token.LinkStatic}
}

func parseInclude(p *Parser) ast.Stmt {
	kw := p.advance()
	path := p.expect(token.String, "naming the file to include")
	p.expect(token.Semi, "after include")
	return &ast.Include{Tok: kw, Path: path.Value}
}

// sub (params) [type] { body }
func (p *Parser) parseFuncDecl(name *ast.Symbol) *ast.FuncDecl {
	p.advance()
	decl := &ast.FuncDecl{Tok: name.Tok, Name: name.Name}
	decl.Params, _ = p.parseParams(name.Name, false)
	decl.ReturnType = p.parseReturnType()
	decl.Body = p.parseBlock()
	return decl
}

// extern ["symbol"] (params) [type];
func (p *Parser) parseExtern(name *ast.Symbol) *ast.Extern {
	p.advance()
	ext := &ast.Extern{Tok: name.Tok, Name: name.Name, Symbol: name.Name}
	if p.check(token.String) {
		ext.Symbol = p.advance().Value
	}
	ext.Params, ext.Variadic = p.parseParams(name.Name, true)
	ext.ReturnType = p.parseReturnType()
	p.expect(token.Semi, "after extern declaration")
	return ext
}

// struct { field: type, ..., method -> sub (...) { ... } }
func (p *Parser) parseStructDecl(name *ast.Symbol) *ast.StructDecl {
	p.advance()
	decl := &ast.StructDecl{Tok: name.Tok, Name: name.Name}
	p.expect(token.LBrace, "to open the struct body")
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		member := p.expect(token.Identifier, "naming a struct member")
		if p.match(token.Arrow) {
			decl.Methods = append(decl.Methods, p.parseFuncDecl(&ast.Symbol{Tok: member, Name: member.Value}))
			p.match(token.Comma)
			continue
		}
		p.match(token.Colon)
		decl.Fields = append(decl.Fields, &ast.Field{Tok: member, Name: member.Value, Type: p.parseType(Default)})
		if !p.match(token.Comma) && !p.check(token.RBrace) && !p.check(token.Identifier) {
			p.fail("expected ',' between struct members, found %s", p.current.Describe())
		}
	}
	p.expect(token.RBrace, "to close the struct body")
	return decl
}

// (this | ref this | name [:] type, ... [, ..])
func (p *Parser) parseParams(owner string, allowVariadic bool) ([]*ast.Field, bool) {
	var params []*ast.Field
	variadic := false
	p.expect(token.LParen, "to open the parameter list of '"+owner+"'")
	for !p.check(token.RParen) && !p.check(token.EOF) {
		switch {
		case p.check(token.Range) && allowVariadic:
			p.advance()
			variadic = true
		case p.check(token.Ref):
			ref := p.advance()
			this := p.expect(token.Identifier, "after 'ref'")
			if this.Value != "this" {
				p.failAt(this, "'ref' in a parameter list may only precede 'this'; write the type as 'ref T' instead")
			}
			params = append(params, &ast.Field{Tok: this, Name: "this", Type: &ast.RefType{Tok: ref, Elem: &ast.SymbolType{Tok: this, Name: "this"}}})
		default:
			name := p.expect(token.Identifier, "or 'this' in the parameters of '"+owner+"'")
			if name.Value == "this" {
				params = append(params, &ast.Field{Tok: name, Name: "this", Type: &ast.SymbolType{Tok: name, Name: "this"}})
				break
			}
			p.match(token.Colon)
			params = append(params, &ast.Field{Tok: name, Name: name.Value, Type: p.parseType(Default)})
		}
		if variadic || !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "to close the parameter list of '"+owner+"'")
	return params, variadic
}

func (p *Parser) parseReturnType() ast.Type {
	switch p.current.Type {
	case token.Identifier, token.Ref, token.LBracket:
		return p.parseType(Default)
	}
	return &ast.SymbolType{Tok: p.current, Name: "void"}
}
