// Package fhirpath provides a FHIRPath engine for evaluating expressions on FHIR resources.
package fhirpath

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/analyzer"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/parser"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// Evaluate parses and evaluates a FHIRPath expression against a JSON resource.
// This is a convenience function that compiles and evaluates in one step.
func Evaluate(resource []byte, expr string) (types.Collection, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}

// MustEvaluate is like Evaluate but panics on error.
func MustEvaluate(resource []byte, expr string) types.Collection {
	result, err := Evaluate(resource, expr)
	if err != nil {
		panic(err)
	}
	return result
}

// Compile parses a FHIRPath expression and returns a compiled Expression.
// The compiled expression can be evaluated multiple times against different resources.
func Compile(expr string) (*Expression, error) {
	return compile(expr)
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Expression {
	compiled, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Parse parses a FHIRPath expression into its AST without evaluating it,
// returning parser diagnostics rather than a single error so editor tooling
// can surface every syntax problem at once.
func Parse(expr string) (*ast.Tree, []parser.Diagnostic) {
	return parser.Parse(expr)
}

// ParseAtCursor parses expr in LSP mode and stops descent at the fragment
// under cursorOffset, for completion/hover tooling editing an expression
// that is not yet syntactically complete.
func ParseAtCursor(expr string, cursorOffset int) (*ast.Tree, []parser.Diagnostic) {
	return parser.ParseAtCursor(expr, cursorOffset)
}

// Analyze parses expr and runs static type inference over the result,
// returning type-annotated nodes plus diagnostics. Pass analyzer.Option
// values (WithInputType, WithVariable, WithModelProvider, WithCursorMode)
// to seed the starting type environment.
func Analyze(expr string, opts ...analyzer.Option) (analyzer.Result, []parser.Diagnostic) {
	tree, diags := parser.ParseLSP(expr)
	return analyzer.Analyze(tree, opts...), diags
}
