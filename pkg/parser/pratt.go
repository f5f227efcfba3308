package parser

import (
	"github.com/anthony-63/Ignis/pkg/ast"
	"github.com/anthony-63/Ignis/pkg/token"
)

// BindingPower orders how tightly an operator holds its operands.
type BindingPower int

const (
	Default BindingPower = iota
	Comma
	Assignment
	Logical
	Relational
	Additive
	Multiplicative
	Unary
	Call
	Member
	Primary
)

var powerNames = [...]string{
	"Default", "Comma", "Assignment", "Logical", "Relational", "Additive",
	"Multiplicative", "Unary", "Call", "Member", "Primary",
}

func (bp BindingPower) String() string {
	if bp >= 0 && int(bp) < len(powerNames) {
		return powerNames[bp]
	}
	return "BindingPower(?)"
}

type (
	NudHandler[N any] func(p *Parser) N
	LedHandler[N any] func(p *Parser, left N, bp BindingPower) N
	StmtHandler       func(p *Parser) ast.Stmt
)

// Table holds the four registries for one node kind. Every registry is keyed
// by token kind alone, so payloads never influence dispatch.
type Table[N any] struct {
	bp   map[token.Type]BindingPower
	nud  map[token.Type]NudHandler[N]
	led  map[token.Type]LedHandler[N]
	stmt map[token.Type]StmtHandler
}

func NewTable[N any]() *Table[N] {
	return &Table[N]{
		bp:   make(map[token.Type]BindingPower),
		nud:  make(map[token.Type]NudHandler[N]),
		led:  make(map[token.Type]LedHandler[N]),
		stmt: make(map[token.Type]StmtHandler),
	}
}

// RegisterInfix installs a led handler and the kind's binding power.
func (t *Table[N]) RegisterInfix(kind token.Type, bp BindingPower, h LedHandler[N]) {
	t.bp[kind] = bp
	t.led[kind] = h
}

func (t *Table[N]) RegisterPrefix(kind token.Type, h NudHandler[N]) {
	t.nud[kind] = h
}

// RegisterStatement installs a statement handler; the kind gets Default power
// so an expression never continues through it.
func (t *Table[N]) RegisterStatement(kind token.Type, h StmtHandler) {
	t.bp[kind] = Default
	t.stmt[kind] = h
}

func (t *Table[N]) Power(kind token.Type) (BindingPower, bool) {
	bp, ok := t.bp[kind]
	return bp, ok
}

func (t *Table[N]) Prefix(kind token.Type) (NudHandler[N], bool) {
	h, ok := t.nud[kind]
	return h, ok
}

func (t *Table[N]) Infix(kind token.Type) (LedHandler[N], bool) {
	h, ok := t.led[kind]
	return h, ok
}

func (t *Table[N]) Statement(kind token.Type) (StmtHandler, bool) {
	h, ok := t.stmt[kind]
	return h, ok
}

// parsePratt is the precedence-climbing loop shared by expressions and types.
// done, when non-nil, ends the loop early after a node that must not be extended.
func parsePratt[N any](p *Parser, t *Table[N], bp BindingPower, what string, done func(N) bool) N {
	nud, ok := t.Prefix(p.current.Type)
	if !ok {
		p.fail("expected %s, found %s", what, p.current.Describe())
	}
	left := nud(p)

	for done == nil || !done(left) {
		power, ok := t.Power(p.current.Type)
		if !ok || power <= bp {
			break
		}
		led, ok := t.Infix(p.current.Type)
		if !ok {
			p.fail("%s cannot continue %s", p.current.Describe(), what)
		}
		left = led(p, left, bp)
	}
	return left
}
