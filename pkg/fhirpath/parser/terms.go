package parser

import (
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/registry"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"
)

// parsePrefix parses a single term: literal, unary +/-, parenthesized
// expression, or an invocation (identifier/function/$this/$index/$total/
// %variable), which is the entry point of precedence climbing.
func (p *Parser) parsePrefix() int {
	t := p.cur()

	if _, ok := registry.LookupUnary(t.Type); ok && (t.Type == token.Plus || t.Type == token.Minus) {
		return p.parseUnary()
	}

	switch t.Type {
	case token.LParen:
		return p.parseParenthesized()
	case token.LBrace:
		return p.parseNullLiteral()
	case token.KwTrue, token.KwFalse:
		return p.parseBooleanLiteral()
	case token.Number:
		return p.parseNumberLiteral()
	case token.String:
		return p.parseStringLiteral()
	case token.Date:
		return p.parseTemporalLiteral(ast.LitDate)
	case token.DateTime:
		return p.parseTemporalLiteral(ast.LitDateTime)
	case token.Time:
		return p.parseTemporalLiteral(ast.LitTime)
	case token.ExternalConstant:
		return p.parseExternalConstant()
	case token.ThisVar:
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.KindThis, Range: rangeOf(t, t)})
	case token.IndexVar:
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.KindIndexVar, Range: rangeOf(t, t)})
	case token.TotalVar:
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.KindTotalVar, Range: rangeOf(t, t)})
	case token.Ident, token.DelimitedIdent:
		return p.parseInvocation()
	case token.EOF:
		if p.mode == ModeCursor {
			return p.tree.Add(ast.Node{Kind: ast.KindError, Range: rangeOf(t, t), Text: "incomplete expression"})
		}
		p.errorf("unexpected end of expression")
		return p.tree.Add(ast.Node{Kind: ast.KindError, Range: rangeOf(t, t), Text: "unexpected end of expression"})
	default:
		p.errorf("unexpected token %q", t.Text)
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.KindError, Range: rangeOf(t, t), Text: "unexpected token " + t.Text})
	}
}

func (p *Parser) parseUnary() int {
	opTok := p.cur()
	p.advance()
	operand := p.parseExpression(token.UnaryPrecedence)
	idx := p.tree.Add(ast.Node{
		Kind:  ast.KindUnary,
		Op:    opTok.Type,
		Text:  opTok.Text,
		Range: ast.Range{Start: opTok.Start, End: p.tree.Node(operand).Range.End},
	})
	p.tree.AddChild(idx, operand)
	return idx
}

func (p *Parser) parseParenthesized() int {
	start := p.cur()
	p.advance() // '('
	inner := p.parseExpression(0)
	end, _ := p.expect(token.RParen)

	if p.mode == ModeStandard {
		// Standard mode collapses the parens: the grouping only mattered
		// for precedence, which parseExpression already applied.
		return inner
	}
	idx := p.tree.Add(ast.Node{Kind: ast.KindParen, Range: ast.Range{Start: start.Start, End: end.End}})
	p.tree.AddChild(idx, inner)
	return idx
}

func (p *Parser) parseNullLiteral() int {
	t := p.cur()
	p.advance()
	return p.tree.Add(ast.Node{Kind: ast.KindLiteral, Lit: ast.LitNull, Range: rangeOf(t, t)})
}

func (p *Parser) parseBooleanLiteral() int {
	t := p.cur()
	p.advance()
	return p.tree.Add(ast.Node{Kind: ast.KindLiteral, Lit: ast.LitBoolean, Text: t.Text, Range: rangeOf(t, t)})
}

func (p *Parser) parseNumberLiteral() int {
	t := p.cur()
	p.advance()

	// A number may be immediately followed by a unit, forming a quantity
	// literal: 4 'mg', 10 years. A bare STRING unit or a calendar-unit
	// keyword both qualify.
	switch p.cur().Type {
	case token.String:
		unit := p.cur()
		p.advance()
		text := t.Text + " " + unit.Text
		return p.tree.Add(ast.Node{Kind: ast.KindLiteral, Lit: ast.LitQuantity, Text: text, Range: ast.Range{Start: t.Start, End: unit.End}})
	case token.Ident:
		if canon, ok := token.CalendarUnitKeywords[p.cur().Text]; ok {
			unitTok := p.cur()
			p.advance()
			text := t.Text + " " + canon
			return p.tree.Add(ast.Node{Kind: ast.KindLiteral, Lit: ast.LitQuantity, Text: text, Range: ast.Range{Start: t.Start, End: unitTok.End}})
		}
	}

	return p.tree.Add(ast.Node{Kind: ast.KindLiteral, Lit: ast.LitNumber, Text: t.Text, Range: rangeOf(t, t)})
}

func (p *Parser) parseStringLiteral() int {
	t := p.cur()
	p.advance()
	return p.tree.Add(ast.Node{Kind: ast.KindLiteral, Lit: ast.LitString, Text: t.Text, Range: rangeOf(t, t)})
}

func (p *Parser) parseTemporalLiteral(kind ast.LitKind) int {
	t := p.cur()
	p.advance()
	return p.tree.Add(ast.Node{Kind: ast.KindLiteral, Lit: kind, Text: t.Text, Range: rangeOf(t, t)})
}

func (p *Parser) parseExternalConstant() int {
	t := p.cur()
	p.advance()
	name := strings.TrimSuffix(strings.TrimPrefix(t.Text, "'"), "'")
	name = strings.TrimSuffix(strings.TrimPrefix(name, "`"), "`")
	return p.tree.Add(ast.Node{Kind: ast.KindVariable, Text: name, Range: rangeOf(t, t)})
}

// parseInvocation parses the invocation grammar production: an identifier
// that is either a bare member-access name or, when followed by '(', a
// function call.
func (p *Parser) parseInvocation() int {
	start := p.cur()
	name := p.identifierText()

	if p.cur().Type == token.LParen {
		return p.parseFunctionCall(name, start)
	}

	return p.tree.Add(ast.Node{Kind: ast.KindIdentifier, Text: name, Range: ast.Range{Start: start.Start, End: p.prevEnd(start)}})
}

// prevEnd returns the end position of the identifier token just consumed.
// identifierText() already advanced past it, so we recompute the end from
// the original token rather than re-reading the cursor.
func (p *Parser) prevEnd(t token.Token) token.Position { return t.End }

func (p *Parser) parseFunctionCall(name string, start token.Token) int {
	p.advance() // '('
	var args []int
	if p.cur().Type != token.RParen {
		args = append(args, p.parseExpression(0))
		for p.cur().Type == token.Comma {
			p.advance()
			args = append(args, p.parseExpression(0))
		}
	}
	end, _ := p.expect(token.RParen)

	idx := p.tree.Add(ast.Node{
		Kind:  ast.KindFunction,
		Text:  name,
		Range: ast.Range{Start: start.Start, End: end.End},
	})
	for _, a := range args {
		p.tree.AddChild(idx, a)
	}
	return idx
}
