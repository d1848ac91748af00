// Package lexer tokenizes FHIRPath source text.
//
// The scanning loop and functional-option configuration follow the
// hand-rolled lexer pattern used elsewhere in this codebase's reference
// corpus for small expression languages: a rune-at-a-time reader with
// explicit line/column bookkeeping and an option to retain trivia
// (whitespace and comments) for editor tooling, rather than a
// generated/table-driven scanner.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"
)

// Option configures a Lexer.
type Option func(*Lexer)

// WithTrivia makes the lexer attach preceding whitespace/comment text to
// the Trivia field of the next emitted token, instead of discarding it.
// Used by the parser's LSP mode to preserve formatting for round-tripping.
func WithTrivia() Option {
	return func(l *Lexer) { l.preserveTrivia = true }
}

// Lexer scans FHIRPath source one rune at a time.
type Lexer struct {
	input          string
	pos            int // byte offset of ch
	readPos        int // byte offset of next rune
	line           int
	column         int
	ch             rune
	preserveTrivia bool

	errs []error
}

// New creates a Lexer over src.
func New(src string, opts ...Option) *Lexer {
	l := &Lexer{input: src, line: 1, column: 0}
	for _, opt := range opts {
		opt(l)
	}
	l.readRune()
	return l
}

// Errors returns any invalid-rune/malformed-literal diagnostics accumulated
// while scanning. Tokenization never stops on these; Illegal tokens are
// emitted instead so the parser can recover.
func (l *Lexer) Errors() []error { return l.errs }

func (l *Lexer) errorf(format string, args ...interface{}) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

func (l *Lexer) readRune() {
	if l.readPos >= len(l.input) {
		l.pos = l.readPos
		l.ch = 0
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	if r == utf8.RuneError && size <= 1 {
		l.errorf("invalid UTF-8 byte at offset %d", l.readPos)
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.pos = l.readPos
	l.readPos += size
	l.ch = r
	l.column++
}

func (l *Lexer) peekRune() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() token.Position {
	return token.Position{Offset: l.pos, Line: l.line, Column: l.column}
}

// Next scans and returns the next token, ending with a token.EOF.
func (l *Lexer) Next() token.Token {
	trivia := l.skipTrivia()

	start := l.position()
	var tok token.Token
	switch {
	case l.ch == 0:
		tok = l.make(token.EOF, "", start)
	case l.ch == '\'':
		tok = l.lexString(start)
	case l.ch == '`':
		tok = l.lexDelimitedIdent(start)
	case l.ch == '@':
		tok = l.lexTemporal(start)
	case l.ch == '%':
		tok = l.lexExternalConstant(start)
	case l.ch == '$':
		tok = l.lexSystemVariable(start)
	case isDigit(l.ch):
		tok = l.lexNumber(start)
	case isIdentStart(l.ch):
		tok = l.lexIdentOrKeyword(start)
	default:
		tok = l.lexOperator(start)
	}

	if l.preserveTrivia {
		tok.Trivia = trivia
	}
	return tok
}

func (l *Lexer) make(tt token.Type, text string, start token.Position) token.Token {
	return token.Token{Type: tt, Text: text, Start: start, End: l.position()}
}

// skipTrivia consumes whitespace and comments, returning their combined
// text for callers that preserve trivia.
func (l *Lexer) skipTrivia() string {
	var sb strings.Builder
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			sb.WriteRune(l.ch)
			l.readRune()
		case l.ch == '/' && l.peekRune() == '/':
			for l.ch != '\n' && l.ch != 0 {
				sb.WriteRune(l.ch)
				l.readRune()
			}
		case l.ch == '/' && l.peekRune() == '*':
			sb.WriteRune(l.ch)
			l.readRune()
			sb.WriteRune(l.ch)
			l.readRune()
			for !(l.ch == '*' && l.peekRune() == '/') && l.ch != 0 {
				sb.WriteRune(l.ch)
				l.readRune()
			}
			if l.ch != 0 {
				sb.WriteRune(l.ch)
				l.readRune()
				sb.WriteRune(l.ch)
				l.readRune()
			}
		default:
			return sb.String()
		}
	}
}

func (l *Lexer) lexString(start token.Position) token.Token {
	var sb strings.Builder
	sb.WriteRune('\'')
	l.readRune() // consume opening quote
	for l.ch != '\'' && l.ch != 0 {
		if l.ch == '\\' {
			sb.WriteRune(l.ch)
			l.readRune()
			if l.ch != 0 {
				sb.WriteRune(l.ch)
				l.readRune()
			}
			continue
		}
		sb.WriteRune(l.ch)
		l.readRune()
	}
	if l.ch == '\'' {
		sb.WriteRune('\'')
		l.readRune()
	} else {
		l.errorf("unterminated string literal starting at line %d column %d", start.Line, start.Column)
	}
	return l.make(token.String, sb.String(), start)
}

func (l *Lexer) lexDelimitedIdent(start token.Position) token.Token {
	var sb strings.Builder
	sb.WriteRune('`')
	l.readRune()
	for l.ch != '`' && l.ch != 0 {
		sb.WriteRune(l.ch)
		l.readRune()
	}
	if l.ch == '`' {
		sb.WriteRune('`')
		l.readRune()
	} else {
		l.errorf("unterminated delimited identifier starting at line %d column %d", start.Line, start.Column)
	}
	return l.make(token.DelimitedIdent, sb.String(), start)
}

// lexTemporal scans @date, @datetime or @T time literals, including the
// leading '@' in the token text so literal parsing in the parser can strip
// it uniformly.
func (l *Lexer) lexTemporal(start token.Position) token.Token {
	var sb strings.Builder
	sb.WriteRune('@')
	l.readRune()

	isTime := l.ch == 'T'
	if isTime {
		sb.WriteRune('T')
		l.readRune()
	}

	for isDigit(l.ch) || l.ch == '-' || l.ch == ':' || l.ch == '.' || l.ch == '+' || l.ch == 'T' || l.ch == 'Z' {
		sb.WriteRune(l.ch)
		l.readRune()
	}

	text := sb.String()
	tt := token.Date
	if isTime {
		tt = token.Time
	} else if strings.Contains(text, "T") {
		tt = token.DateTime
	}
	return l.make(tt, text, start)
}

func (l *Lexer) lexExternalConstant(start token.Position) token.Token {
	var sb strings.Builder
	sb.WriteRune('%')
	l.readRune()

	switch {
	case l.ch == '`':
		inner := l.lexDelimitedIdent(l.position())
		sb.WriteString(inner.Text)
	case l.ch == '\'':
		inner := l.lexString(l.position())
		sb.WriteString(inner.Text)
	default:
		for isIdentPart(l.ch) {
			sb.WriteRune(l.ch)
			l.readRune()
		}
	}
	return l.make(token.ExternalConstant, sb.String(), start)
}

func (l *Lexer) lexSystemVariable(start token.Position) token.Token {
	l.readRune() // consume '$'
	var sb strings.Builder
	for isIdentPart(l.ch) {
		sb.WriteRune(l.ch)
		l.readRune()
	}
	switch sb.String() {
	case "this":
		return l.make(token.ThisVar, "$this", start)
	case "index":
		return l.make(token.IndexVar, "$index", start)
	case "total":
		return l.make(token.TotalVar, "$total", start)
	default:
		l.errorf("unknown system variable $%s", sb.String())
		return l.make(token.Illegal, "$"+sb.String(), start)
	}
}

func (l *Lexer) lexNumber(start token.Position) token.Token {
	var sb strings.Builder
	for isDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readRune()
	}
	if l.ch == '.' && isDigit(l.peekRune()) {
		sb.WriteRune(l.ch)
		l.readRune()
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readRune()
		}
	}
	return l.make(token.Number, sb.String(), start)
}

func (l *Lexer) lexIdentOrKeyword(start token.Position) token.Token {
	var sb strings.Builder
	for isIdentPart(l.ch) {
		sb.WriteRune(l.ch)
		l.readRune()
	}
	text := sb.String()
	if tt, ok := token.Keywords[text]; ok {
		return l.make(tt, text, start)
	}
	return l.make(token.Ident, text, start)
}

func (l *Lexer) lexOperator(start token.Position) token.Token {
	ch := l.ch
	l.readRune()
	switch ch {
	case '.':
		return l.make(token.Dot, ".", start)
	case ',':
		return l.make(token.Comma, ",", start)
	case '(':
		return l.make(token.LParen, "(", start)
	case ')':
		return l.make(token.RParen, ")", start)
	case '[':
		return l.make(token.LBracket, "[", start)
	case ']':
		return l.make(token.RBracket, "]", start)
	case '{':
		if l.ch == '}' {
			l.readRune()
			return l.make(token.LBrace, "{}", start)
		}
		return l.make(token.LBrace, "{", start)
	case '}':
		return l.make(token.RBrace, "}", start)
	case '+':
		return l.make(token.Plus, "+", start)
	case '-':
		return l.make(token.Minus, "-", start)
	case '*':
		return l.make(token.Star, "*", start)
	case '/':
		return l.make(token.Slash, "/", start)
	case '&':
		return l.make(token.Amp, "&", start)
	case '|':
		return l.make(token.Pipe, "|", start)
	case '=':
		return l.make(token.Eq, "=", start)
	case '~':
		return l.make(token.Equiv, "~", start)
	case '<':
		if l.ch == '=' {
			l.readRune()
			return l.make(token.Lte, "<=", start)
		}
		return l.make(token.Lt, "<", start)
	case '>':
		if l.ch == '=' {
			l.readRune()
			return l.make(token.Gte, ">=", start)
		}
		return l.make(token.Gt, ">", start)
	case '!':
		if l.ch == '=' {
			l.readRune()
			return l.make(token.Neq, "!=", start)
		}
		if l.ch == '~' {
			l.readRune()
			return l.make(token.NotEquiv, "!~", start)
		}
		l.errorf("unexpected character '!' at line %d column %d", start.Line, start.Column)
		return l.make(token.Illegal, "!", start)
	default:
		l.errorf("unexpected character %q at line %d column %d", ch, start.Line, start.Column)
		return l.make(token.Illegal, string(ch), start)
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
