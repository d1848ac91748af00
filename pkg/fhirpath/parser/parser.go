// Package parser implements a hand-rolled, registry-driven Pratt parser for
// FHIRPath expressions.
//
// FHIRPath's reference grammar is usually consumed through a generated
// ANTLR parser, but a generated visitor tree gives no good hook for the
// editor-facing features this module needs: preserved trivia, stable node
// identity for incremental re-analysis, and a "cursor" mode that tolerates
// a half-typed expression so completion can still run. A precedence-climbing
// parser driven by the operator table in pkg/fhirpath/registry gives direct
// control over all three, following the same architecture (TokenCursor +
// parseExpression(precedence) loop) used for small expression languages
// elsewhere in this codebase's lineage.
package parser

import (
	"fmt"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/lexer"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/registry"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"
)

// Diagnostic is a parser-reported problem, distinct from a runtime
// evaluation error: it carries a source Range instead of an evaluation Path.
type Diagnostic struct {
	Message string
	Range   ast.Range
}

// Mode controls which tooling-oriented behaviors the parser enables.
type Mode int

const (
	// ModeStandard produces the minimal tree needed for analysis/evaluation.
	ModeStandard Mode = iota
	// ModeLSP retains trivia and parenthesis nodes for round-tripping and
	// hover/outline tooling.
	ModeLSP
	// ModeCursor additionally tolerates an incomplete expression ending at
	// a synthetic cursor position, emitting an error node instead of
	// failing the whole parse, so completion can run against a partial tree.
	ModeCursor
)

// Parser consumes a buffered token stream and builds an ast.Tree.
type Parser struct {
	cursor      lexer.Cursor
	tree        *ast.Tree
	mode        Mode
	diagnostics []Diagnostic
	cursorPos   int // byte offset of the completion cursor, ModeCursor only
}

// Parse parses src in ModeStandard.
func Parse(src string) (*ast.Tree, []Diagnostic) {
	return ParseMode(src, ModeStandard, -1)
}

// ParseLSP parses src retaining trivia/parens for editor tooling.
func ParseLSP(src string) (*ast.Tree, []Diagnostic) {
	return ParseMode(src, ModeLSP, -1)
}

// ParseAtCursor parses src in completion mode, where cursorOffset marks the
// byte offset of the edit caret. The tree always has a valid Root even if
// the text ending at the cursor is incomplete.
func ParseAtCursor(src string, cursorOffset int) (*ast.Tree, []Diagnostic) {
	return ParseMode(src, ModeCursor, cursorOffset)
}

// ParseMode parses src under the given mode.
func ParseMode(src string, mode Mode, cursorOffset int) (*ast.Tree, []Diagnostic) {
	var opts []lexer.Option
	if mode != ModeStandard {
		opts = append(opts, lexer.WithTrivia())
	}
	toks, lexErrs := lexer.Tokenize(src, opts...)

	p := &Parser{
		cursor:    lexer.NewCursor(toks),
		tree:      ast.NewTree(src, mode != ModeStandard),
		mode:      mode,
		cursorPos: cursorOffset,
	}
	for _, e := range lexErrs {
		p.diagnostics = append(p.diagnostics, Diagnostic{Message: e.Error()})
	}

	root := p.parseExpression(0)
	if !p.atEnd() {
		p.errorf("unexpected token %q", p.cur().Text)
		root = p.recoverAsError(root)
	}
	p.tree.Root = root
	return p.tree, p.diagnostics
}

func (p *Parser) cur() token.Token  { return p.cursor.Current() }
func (p *Parser) peek(n int) token.Token { return p.cursor.Peek(n) }
func (p *Parser) advance()          { p.cursor = p.cursor.Advance() }
func (p *Parser) atEnd() bool       { return p.cur().Type == token.EOF }

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diagnostics = append(p.diagnostics, Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Range:   rangeOf(p.cur(), p.cur()),
	})
}

func rangeOf(start, end token.Token) ast.Range {
	return ast.Range{Start: start.Start, End: end.End}
}

// recoverAsError wraps whatever was parsed so far plus the unconsumed tail
// into a single Error node, so ModeCursor/ModeLSP callers still get a tree
// whose Root is non-zero instead of a hard failure.
func (p *Parser) recoverAsError(partial int) int {
	startTok := p.cur()
	for !p.atEnd() {
		p.advance()
	}
	idx := p.tree.Add(ast.Node{
		Kind:  ast.KindError,
		Range: ast.Range{Start: startTok.Start, End: p.cur().End},
		Text:  "unexpected trailing input",
	})
	if partial > 0 {
		p.tree.AddChild(idx, partial)
	}
	return idx
}

// expect consumes tt or records a diagnostic and returns false.
func (p *Parser) expect(tt token.Type) (token.Token, bool) {
	if p.cur().Type == tt {
		t := p.cur()
		p.advance()
		return t, true
	}
	p.errorf("expected %s, got %q", tt, p.cur().Text)
	return p.cur(), false
}

// parseExpression is the precedence-climbing core: parse a prefix term,
// then keep absorbing infix/postfix operators whose precedence is at
// least minPrec.
func (p *Parser) parseExpression(minPrec int) int {
	left := p.parsePrefix()

	for {
		tt := p.cur().Type
		prec := registry.Precedence(tt)
		if prec < 0 || prec < minPrec {
			break
		}

		switch tt {
		case token.LBracket:
			left = p.parseIndexer(left)
			continue
		case token.KwIs, token.KwAs:
			left = p.parseTypeExpr(left, tt, prec)
			continue
		case token.Dot:
			left = p.parseInvocationExpr(left)
			continue
		}

		opTok := p.cur()
		p.advance()
		nextMin := prec + 1
		if registry.Associativity(tt) == token.RightAssoc {
			nextMin = prec
		}
		right := p.parseExpression(nextMin)

		idx := p.tree.Add(ast.Node{
			Kind:  ast.KindBinary,
			Op:    tt,
			Range: ast.Range{Start: p.tree.Node(left).Range.Start, End: p.tree.Node(right).Range.End},
			Text:  opTok.Text,
		})
		p.tree.AddChild(idx, left)
		p.tree.AddChild(idx, right)
		left = idx
	}

	return left
}

func (p *Parser) parseInvocationExpr(base int) int {
	p.advance() // consume '.'
	member := p.parseInvocation()
	idx := p.tree.Add(ast.Node{
		Kind:  ast.KindInvocation,
		Range: ast.Range{Start: p.tree.Node(base).Range.Start, End: p.tree.Node(member).Range.End},
	})
	p.tree.AddChild(idx, base)
	p.tree.AddChild(idx, member)
	return idx
}

func (p *Parser) parseIndexer(base int) int {
	start := p.cur()
	p.advance() // '['
	idxExpr := p.parseExpression(0)
	end, _ := p.expect(token.RBracket)
	idx := p.tree.Add(ast.Node{
		Kind:  ast.KindIndexer,
		Range: ast.Range{Start: p.tree.Node(base).Range.Start, End: end.End},
	})
	_ = start
	p.tree.AddChild(idx, base)
	p.tree.AddChild(idx, idxExpr)
	return idx
}

// parseTypeExpr handles `expr is TypeSpecifier` / `expr as TypeSpecifier`.
// Unlike other infix operators the right-hand side is a type name, not a
// full expression, so it gets its own case rather than flowing through the
// generic binary-operator path.
func (p *Parser) parseTypeExpr(left int, op token.Type, prec int) int {
	p.advance() // consume 'is'/'as'
	typeName, end := p.parseTypeSpecifier()
	idx := p.tree.Add(ast.Node{
		Kind:  ast.KindTypeExpr,
		Op:    op,
		Text:  typeName,
		Range: ast.Range{Start: p.tree.Node(left).Range.Start, End: end},
	})
	p.tree.AddChild(idx, left)
	_ = prec
	return idx
}

// parseTypeSpecifier reads a (possibly qualified) type name: Patient,
// FHIR.Patient, System.String.
func (p *Parser) parseTypeSpecifier() (string, token.Position) {
	name := p.identifierText()
	end := p.cur().End
	if p.cur().Type == token.Ident || p.cur().Type == token.DelimitedIdent {
		// leading segment already consumed by identifierText; nothing to do.
	}
	for p.cur().Type == token.Dot && (p.peek(1).Type == token.Ident || p.peek(1).Type == token.DelimitedIdent) {
		p.advance() // '.'
		name += "." + p.identifierText()
		end = p.cur().End
	}
	return name, end
}

// identifierText consumes one identifier token (plain or delimited) and
// returns its literal name with any backticks stripped.
func (p *Parser) identifierText() string {
	t := p.cur()
	switch t.Type {
	case token.Ident:
		p.advance()
		return t.Text
	case token.DelimitedIdent:
		p.advance()
		return stripBackticks(t.Text)
	case token.KwAnd, token.KwOr, token.KwXor, token.KwImplies, token.KwIn, token.KwContains,
		token.KwDiv, token.KwMod, token.KwIs, token.KwAs, token.KwTrue, token.KwFalse:
		// Reserved words are valid identifiers in member/type-name position
		// per the FHIRPath grammar's identifier production.
		p.advance()
		return t.Text
	default:
		p.errorf("expected identifier, got %q", t.Text)
		return ""
	}
}

func stripBackticks(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}
