package fhirpath

import (
	"fmt"
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/common"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/parser"
)

// compile parses a FHIRPath expression into a compiled Expression.
func compile(expr string) (*Expression, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", common.ErrInvalidExpression)
	}

	tree, diags := parser.Parse(expr)
	if msgs := errorMessages(diags); len(msgs) > 0 {
		return nil, common.WrapPathf(expr, "%w: %s", common.ErrInvalidExpression, strings.Join(msgs, "; "))
	}

	return &Expression{
		source: expr,
		tree:   tree,
	}, nil
}

// errorMessages renders parser diagnostics as "line:col message" strings.
func errorMessages(diags []parser.Diagnostic) []string {
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		msgs = append(msgs, fmt.Sprintf("%d:%d %s", d.Range.Start.Line, d.Range.Start.Column, d.Message))
	}
	return msgs
}
