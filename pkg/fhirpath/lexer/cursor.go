package lexer

import "github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"

// Tokenize scans src to completion and returns every token including the
// trailing EOF. The parser works off this buffered slice rather than
// pulling from the Lexer directly, since Pratt parsing needs unlimited
// lookahead/backtracking (e.g. to retry a member name as a type specifier).
func Tokenize(src string, opts ...Option) ([]token.Token, []error) {
	l := New(src, opts...)
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Type == token.EOF {
			break
		}
	}
	return toks, l.Errors()
}

// Cursor is an immutable position into a buffered token stream. Advancing
// returns a new Cursor, so a parser can save a Cursor value before a
// speculative parse and simply resume from it on failure instead of
// mutating shared state.
type Cursor struct {
	tokens []token.Token
	index  int
}

// NewCursor creates a Cursor positioned at the first token.
func NewCursor(tokens []token.Token) Cursor {
	return Cursor{tokens: tokens, index: 0}
}

// Peek returns the token n positions ahead of the cursor (n=0 is current).
// Past the end of the stream it repeats the final EOF token.
func (c Cursor) Peek(n int) token.Token {
	i := c.index + n
	if i >= len(c.tokens) {
		return c.tokens[len(c.tokens)-1]
	}
	return c.tokens[i]
}

// Current is shorthand for Peek(0).
func (c Cursor) Current() token.Token { return c.Peek(0) }

// Advance returns a new Cursor moved one token forward.
func (c Cursor) Advance() Cursor {
	if c.index < len(c.tokens)-1 {
		return Cursor{tokens: c.tokens, index: c.index + 1}
	}
	return c
}

// AtEnd reports whether the cursor sits on the terminal EOF token.
func (c Cursor) AtEnd() bool { return c.Current().Type == token.EOF }
