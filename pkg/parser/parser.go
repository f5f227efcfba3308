package parser

import (
	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/token"
	"github.com/anthony-63/Ignis/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	exprs    *Table[ast.Expr]
	types    *Table[ast.Type]
}

// NewParser creates and initializes a new Parser from a token stream. The
// stream is expected to end with an EOF token; one is appended otherwise.
func NewParser(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		eof := token.Token{Type: token.EOF}
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1]
			eof.FileIndex, eof.Line, eof.Column = last.FileIndex, last.Line, last.Column+last.Len
		}
		tokens = append(tokens, eof)
	}
	p := &Parser{
		tokens: tokens,
		exprs:  NewTable[ast.Expr](),
		types:  NewTable[ast.Type](),
	}
	p.current = p.tokens[0]
	registerExpressions(p.exprs)
	registerStatements(p.exprs)
	registerTypes(p.types)
	return p
}

// Parse builds the AST for the whole token stream.
func Parse(tokens []token.Token) (root *ast.Block, err error) {
	defer util.Recover(&err)
	return NewParser(tokens).Parse(), nil
}

// Parse consumes every token and returns the top-level block. Syntax errors
// are raised through util.Error.
func (p *Parser) Parse() *ast.Block {
	root := &ast.Block{Tok: p.current}
	for !p.check(token.EOF) {
		root.Stmts = append(root.Stmts, p.parseStatement())
	}
	return root
}

// Parser helpers
func (p *Parser) advance() token.Token {
	p.previous = p.current
	if p.pos < len(p.tokens)-1 {
		p.pos++
		p.current = p.tokens[p.pos]
	}
	return p.previous
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

// expect consumes a token of the given kind or fails naming what was wanted.
func (p *Parser) expect(tokType token.Type, context string) token.Token {
	if p.check(tokType) {
		return p.advance()
	}
	p.fail("expected %s %s, found %s", tokType, context, p.current.Describe())
	return p.current
}

func (p *Parser) fail(format string, args ...interface{}) {
	util.Error(p.current, format, args...)
}

func (p *Parser) failAt(tok token.Token, format string, args ...interface{}) {
	util.Error(tok, format, args...)
}

func (p *Parser) parseExpr(bp BindingPower) ast.Expr {
	return parsePratt(p, p.exprs, bp, "expression", isEscape)
}

func (p *Parser) parseType(bp BindingPower) ast.Type {
	return parsePratt(p, p.types, bp, "type", nil)
}

func isEscape(e ast.Expr) bool {
	_, ok := e.(*ast.StmtExpr)
	return ok
}

func (p *Parser) parseStatement() ast.Stmt {
	if h, ok := p.exprs.Statement(p.current.Type); ok {
		return h(p)
	}

	expr := p.parseExpr(Default)
	if escape, ok := expr.(*ast.StmtExpr); ok {
		return escape.Stmt
	}

	p.expect(token.Semi, "after expression")
	return &ast.ExprStmt{X: expr}
}

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Tok: p.expect(token.LBrace, "to open a block")}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		block.Stmts = append(block.Stmts, p.parseStatement())
	}
	p.expect(token.RBrace, "to close the block")
	return block
}
