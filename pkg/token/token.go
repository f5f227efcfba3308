package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Integer
	Decimal
	String
	Identifier
	Bool
	LBracket
	RBracket
	LBrace
	RBrace
	LParen
	RParen
	Eq
	EqEq
	Neq
	Lt
	Lte
	Gt
	Gte
	Not
	OrOr
	AndAnd
	Dot
	Range
	Semi
	Colon
	Question
	Comma
	Inc
	Dec
	PlusEq
	MinusEq
	Plus
	Minus
	Star
	Slash
	Rem
	Pow
	Arrow
	Ref
	Include
	Sub
	Return
	Struct
	New
	If
	Else
	For
	While
	Sizeof
	Mut
	Immut
	LinkStatic
	LinkLib
	Extern
	typeCount
)

var KeywordMap = map[string]Type{
	"ref":        Ref,
	"include":    Include,
	"sub":        Sub,
	"return":     Return,
	"struct":     Struct,
	"new":        New,
	"if":         If,
	"else":       Else,
	"for":        For,
	"while":      While,
	"sizeof":     Sizeof,
	"mut":        Mut,
	"immut":      Immut,
	"linkstatic": LinkStatic,
	"linklib":    LinkLib,
	"extern":     Extern,
	"true":       Bool,
	"false":      Bool,
}

var names = [...]string{
	EOF:        "end of file",
	Integer:    "integer literal",
	Decimal:    "decimal literal",
	String:     "string literal",
	Identifier: "identifier",
	Bool:       "boolean literal",
	LBracket:   "'['",
	RBracket:   "']'",
	LBrace:     "'{'",
	RBrace:     "'}'",
	LParen:     "'('",
	RParen:     "')'",
	Eq:         "'='",
	EqEq:       "'=='",
	Neq:        "'!='",
	Lt:         "'<'",
	Lte:        "'<='",
	Gt:         "'>'",
	Gte:        "'>='",
	Not:        "'!'",
	OrOr:       "'||'",
	AndAnd:     "'&&'",
	Dot:        "'.'",
	Range:      "'..'",
	Semi:       "';'",
	Colon:      "':'",
	Question:   "'?'",
	Comma:      "','",
	Inc:        "'++'",
	Dec:        "'--'",
	PlusEq:     "'+='",
	MinusEq:    "'-='",
	Plus:       "'+'",
	Minus:      "'-'",
	Star:       "'*'",
	Slash:      "'/'",
	Rem:        "'%'",
	Pow:        "'^^'",
	Arrow:      "'->'",
	Ref:        "'ref'",
	Include:    "'include'",
	Sub:        "'sub'",
	Return:     "'return'",
	Struct:     "'struct'",
	New:        "'new'",
	If:         "'if'",
	Else:       "'else'",
	For:        "'for'",
	While:      "'while'",
	Sizeof:     "'sizeof'",
	Mut:        "'mut'",
	Immut:      "'immut'",
	LinkStatic: "'linkstatic'",
	LinkLib:    "'linklib'",
	Extern:     "'extern'",
}

func (t Type) String() string {
	if t >= 0 && t < typeCount {
		return names[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a single lexeme. Value carries the payload for literals and
// identifiers; dispatch tables only ever look at Type.
type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

// Describe renders the token the way diagnostics quote it.
func (t Token) Describe() string {
	switch t.Type {
	case Identifier, Integer, Decimal, Bool:
		return fmt.Sprintf("%s '%s'", t.Type, t.Value)
	case String:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	}
	return t.Type.String()
}
