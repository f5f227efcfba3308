package parser

import (
	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/token"
)

func registerTypes(t *Table[ast.Type]) {
	t.RegisterPrefix(token.Identifier, parseSymbolType)
	t.RegisterPrefix(token.Ref, parseRefType)
	t.RegisterPrefix(token.LBracket, parseArrayType)
}

func parseSymbolType(p *Parser) ast.Type {
	tok := p.advance()
	return &ast.SymbolType{Tok: tok, Name: tok.Value}
}

func parseRefType(p *Parser) ast.Type {
	tok := p.advance()
	return &ast.RefType{Tok: tok, Elem: p.parseType(Unary)}
}

// []T
func parseArrayType(p *Parser) ast.Type {
	tok := p.advance()
	p.expect(token.RBracket, "in array type")
	return &ast.ArrayType{Tok: tok, Elem: p.parseType(Unary)}
}
