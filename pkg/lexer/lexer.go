package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/anthony-63/Ignis/pkg/config"
	"github.com/anthony-63/Ignis/pkg/token"
	"github.com/anthony-63/Ignis/pkg/util"
)

var punct = map[rune]token.Type{
	'(': token.LParen, ')': token.RParen,
	'{': token.LBrace, '}': token.RBrace,
	'[': token.LBracket, ']': token.RBracket,
	';': token.Semi, ',': token.Comma, '?': token.Question, ':': token.Colon,
	'*': token.Star, '/': token.Slash, '%': token.Rem,
}

type follow struct {
	next rune
	typ  token.Type
}

// compound lists the two-rune operators by their first rune, tried in order.
var compound = map[rune][]follow{
	'!': {{'=', token.Neq}},
	'<': {{'=', token.Lte}},
	'>': {{'=', token.Gte}},
	'=': {{'=', token.EqEq}},
	'.': {{'.', token.Range}},
	'+': {{'+', token.Inc}, {'=', token.PlusEq}},
	'-': {{'-', token.Dec}, {'=', token.MinusEq}, {'>', token.Arrow}},
	'&': {{'&', token.AndAnd}},
	'|': {{'|', token.OrOr}},
	'^': {{'^', token.Pow}},
}

// bare is the fallback when no compound operator matched. '&', '|' and '^'
// have no single-rune form.
var bare = map[rune]token.Type{
	'!': token.Not, '<': token.Lt, '>': token.Gt, '=': token.Eq,
	'.': token.Dot, '+': token.Plus, '-': token.Minus,
}

var escapes = map[rune]byte{
	'n': '\n', 't': '\t', 'r': '\r', '0': 0, '\\': '\\', '"': '"', '\'': '\'',
	'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v', 'e': 0x1b,
}

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize lexes the whole source. The returned slice always ends with EOF.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine)
	}
	if unicode.IsDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	if typ, ok := punct[ch]; ok {
		return l.makeToken(typ, "", startPos, startCol, startLine)
	}
	for _, alt := range compound[ch] {
		if l.match(alt.next) {
			return l.makeToken(alt.typ, "", startPos, startCol, startLine)
		}
	}
	if typ, ok := bare[ch]; ok {
		return l.makeToken(typ, "", startPos, startCol, startLine)
	}
	if ch == '"' {
		return l.stringLiteral(startPos, startCol, startLine)
	}

	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	util.Error(tok, "Unexpected character: '%c'", ch)
	return tok
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r', '\f':
			l.advance()
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Identifier, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		tok.Type = tokType
		if tokType != token.Bool {
			tok.Value = ""
		}
	}
	return tok
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}

	// "1..2" lexes as Integer Range Integer, not as a decimal.
	if l.peek() == '.' && unicode.IsDigit(l.peekNext()) {
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
		valueStr := string(l.source[startPos:l.pos])
		return l.makeToken(token.Decimal, valueStr, startPos, startCol, startLine)
	}

	valueStr := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Integer, valueStr, startPos, startCol, startLine)
	if _, err := strconv.ParseInt(valueStr, 10, 64); err != nil {
		util.Warn(l.cfg, config.WarnOverflow, tok, "Integer constant overflow: %s", valueStr)
	}
	return tok
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == '"' {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
		}
		if c == '\n' {
			break
		}
		l.advance()
		if c == '\\' {
			sb.WriteByte(l.decodeEscape(startPos, startCol, startLine))
			continue
		}
		sb.WriteRune(c)
	}
	util.Error(l.makeToken(token.String, "", startPos, startCol, startLine), "Unterminated string literal")
	return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
}

func (l *Lexer) decodeEscape(startPos, startCol, startLine int) byte {
	if l.isAtEnd() {
		util.Error(l.makeToken(token.EOF, "", l.pos, l.column, l.line), "Unterminated escape sequence")
	}
	c := l.advance()

	if c == 'x' {
		var val byte
		for i := 0; i < 2; i++ {
			d, ok := hexDigit(l.peek())
			if !ok {
				util.Error(l.makeToken(token.String, "", startPos, startCol, startLine), "Invalid hex digit '%c' in escape sequence", l.peek())
			}
			val = val*16 + d
			l.advance()
		}
		return val
	}

	if val, ok := escapes[c]; ok {
		return val
	}
	util.Warn(l.cfg, config.WarnPedantic, l.makeToken(token.String, "", startPos, startCol, startLine), "Unrecognized escape sequence '\\%c'", c)
	return byte(c)
}

func hexDigit(c rune) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return byte(c - '0'), true
	case c >= 'a' && c <= 'f':
		return byte(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return byte(c-'A') + 10, true
	}
	return 0, false
}
