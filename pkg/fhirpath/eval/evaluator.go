package eval

import (
	"context"
	"strconv"
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ctxstate"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/registry"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// FuncImpl is the signature for function implementations.
type FuncImpl func(ctx *Context, input types.Collection, args []interface{}) (types.Collection, error)

// ParamDef documents one declared parameter of a FuncDef's Signature.
type ParamDef struct {
	Name string
	Type string // e.g. "Boolean", "String", "expression", "TypeSpecifier"

	// Optional marks a parameter that may be omitted from a call.
	Optional bool

	// Expression marks a parameter that takes a criteria/projection
	// expression rather than a plain value. For where, select, all,
	// exists, repeat and aggregate, visitFunction does not pre-evaluate it:
	// it re-evaluates the expression per element itself with $this/$index
	// rebound. Every other argument, including trace's projection, is
	// evaluated once before the call.
	Expression bool
}

// FuncSignature documents a function's accepted input type, declared
// parameters, and result type - the data the analyzer needs to type-check a
// call and decide which arguments are lazily-evaluated expressions, instead
// of re-deriving that per call site.
type FuncSignature struct {
	Input      string
	Parameters []ParamDef
	Result     string
}

// FuncDef defines a FHIRPath function: Fn is its behavior, the rest is the
// declarative metadata the registry exposes to documentation tooling and to
// the analyzer's static type inference.
type FuncDef struct {
	Name        string
	Category    string
	Description string
	Examples    []string
	Signature   FuncSignature
	MinArgs     int
	MaxArgs     int
	Fn          FuncImpl
}

// TakesExpressionArg reports whether the parameter at position i (0-based,
// among Signature.Parameters) is a lazily-evaluated expression argument
// rather than a plain pre-evaluated value. Callers outside the Signature's
// declared parameter count get false, since a function with no declared
// parameters for that slot has nothing to rebind $this/$index for.
func (d FuncDef) TakesExpressionArg(i int) bool {
	if i < 0 || i >= len(d.Signature.Parameters) {
		return false
	}
	return d.Signature.Parameters[i].Expression
}

// FuncRegistry is an interface for function lookup.
type FuncRegistry interface {
	Get(name string) (FuncDef, bool)
}

// Resolver handles FHIR reference resolution.
type Resolver interface {
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// Evaluator walks an ast.Tree and produces a types.Collection.
type Evaluator struct {
	tree  *ast.Tree
	ctx   *Context
	funcs FuncRegistry
}

// Context holds the evaluation state. $this/$index/$total/variables are
// layered through a ctxstate.Frame prototype chain so that re-binding them
// on every where()/select() iteration is O(1) instead of copying a map.
type Context struct {
	root     types.Collection
	frame    *ctxstate.Frame
	limits   map[string]int
	goCtx    context.Context
	resolver Resolver
}

// NewContext creates a new evaluation context.
// Automatically sets %resource and %context to the root resource for FHIR constraint evaluation.
// Per FHIRPath spec:
//   - %resource: the root resource being evaluated
//   - %context: the original node passed to the evaluation engine (same as %resource for top-level evaluation)
func NewContext(resource []byte) *Context {
	root, _ := types.JSONToCollection(resource)

	frame := ctxstate.NewRoot(map[string]any{
		ctxstate.KeyThis:  root,
		ctxstate.KeyIndex: -1,
		"resource":        root,
		"context":         root,
	})

	return &Context{
		root:   root,
		frame:  frame,
		limits: make(map[string]int),
		goCtx:  context.Background(),
	}
}

// SetLimit sets a limit value (e.g., maxDepth, maxCollectionSize).
func (c *Context) SetLimit(name string, value int) {
	if c.limits == nil {
		c.limits = make(map[string]int)
	}
	c.limits[name] = value
}

// GetLimit gets a limit value.
func (c *Context) GetLimit(name string) int {
	if c.limits == nil {
		return 0
	}
	return c.limits[name]
}

// SetContext sets the Go context for cancellation.
func (c *Context) SetContext(ctx context.Context) { c.goCtx = ctx }

// Context returns the Go context.
func (c *Context) Context() context.Context {
	if c.goCtx == nil {
		return context.Background()
	}
	return c.goCtx
}

// SetResolver sets the reference resolver.
func (c *Context) SetResolver(r Resolver) { c.resolver = r }

// GetResolver returns the reference resolver.
func (c *Context) GetResolver() Resolver { return c.resolver }

// CheckCancellation checks if the context has been canceled.
func (c *Context) CheckCancellation() error {
	if c.goCtx == nil {
		return nil
	}
	select {
	case <-c.goCtx.Done():
		return c.goCtx.Err()
	default:
		return nil
	}
}

// CheckCollectionSize validates that a collection doesn't exceed the maximum size.
func (c *Context) CheckCollectionSize(col types.Collection) error {
	maxSize := c.GetLimit("maxCollectionSize")
	if maxSize > 0 && len(col) > maxSize {
		return NewEvalError(ErrInvalidExpression,
			"collection size %d exceeds maximum allowed %d", len(col), maxSize)
	}
	return nil
}

// EnforceCollectionLimit truncates a collection if it exceeds the maximum size.
func (c *Context) EnforceCollectionLimit(col types.Collection) (types.Collection, bool) {
	maxSize := c.GetLimit("maxCollectionSize")
	if maxSize > 0 && len(col) > maxSize {
		return col[:maxSize], true
	}
	return col, false
}

// Root returns the root collection.
func (c *Context) Root() types.Collection { return c.root }

// This returns the current $this value.
func (c *Context) This() types.Collection {
	if v, ok := c.frame.Lookup(ctxstate.KeyThis); ok {
		return v.(types.Collection)
	}
	return c.root
}

func (c *Context) index() int {
	if v, ok := c.frame.Lookup(ctxstate.KeyIndex); ok {
		return v.(int)
	}
	return -1
}

func (c *Context) total() (types.Value, bool) {
	v, ok := c.frame.Lookup(ctxstate.KeyTotal)
	if !ok || v == nil {
		return nil, false
	}
	val, ok := v.(types.Value)
	return val, ok
}

// WithThis returns a new context with the given $this value bound.
func (c *Context) WithThis(this types.Collection) *Context {
	nc := *c
	nc.frame = c.frame.Derive(ctxstate.KeyThis, this)
	return &nc
}

// WithIndex returns a new context with the given $index value bound.
func (c *Context) WithIndex(index int) *Context {
	nc := *c
	nc.frame = c.frame.Derive(ctxstate.KeyIndex, index)
	return &nc
}

// WithIteration derives a context with $this, $index (and optionally
// $total) rebound in a single layer, the shape every lazy-argument
// function (where/select/all/exists/repeat/aggregate) needs per element.
func (c *Context) WithIteration(this types.Collection, index int, total types.Value) *Context {
	bindings := map[string]any{ctxstate.KeyThis: this, ctxstate.KeyIndex: index}
	if total != nil {
		bindings[ctxstate.KeyTotal] = total
	}
	nc := *c
	nc.frame = c.frame.DeriveMany(bindings)
	return &nc
}

// SetVariable sets an external variable, shadowing any existing binding.
func (c *Context) SetVariable(name string, value types.Collection) {
	c.frame = c.frame.Derive(name, value)
}

// GetVariable gets an external variable.
func (c *Context) GetVariable(name string) (types.Collection, bool) {
	v, ok := c.frame.Lookup(name)
	if !ok {
		return nil, false
	}
	col, ok := v.(types.Collection)
	return col, ok
}

// NewEvaluator creates a new evaluator with the given context and function registry.
func NewEvaluator(ctx *Context, funcs FuncRegistry) *Evaluator {
	return &Evaluator{ctx: ctx, funcs: funcs}
}

// Evaluate evaluates a parsed tree and returns the result.
func (e *Evaluator) Evaluate(tree *ast.Tree) (types.Collection, error) {
	e.tree = tree
	result := e.visit(tree.Root)
	if err, ok := result.(error); ok {
		return nil, err
	}
	if col, ok := result.(types.Collection); ok {
		return types.UnwrapCollection(col), nil
	}
	return types.Collection{}, nil
}

// visit dispatches on node Kind; each case handles one AST node shape.
func (e *Evaluator) visit(idx int) interface{} {
	if idx <= 0 {
		return types.Collection{}
	}
	n := e.tree.Node(idx)

	switch n.Kind {
	case ast.KindLiteral:
		return e.visitLiteral(n)
	case ast.KindThis:
		return e.ctx.This()
	case ast.KindIndexVar:
		return types.Collection{types.NewInteger(int64(e.ctx.index()))}
	case ast.KindTotalVar:
		if v, ok := e.ctx.total(); ok {
			return types.Collection{v}
		}
		return types.Collection{}
	case ast.KindVariable:
		if value, ok := e.ctx.GetVariable(n.Text); ok {
			return value
		}
		return NewEvalError(ErrInvalidPath, "undefined variable: %"+n.Text)
	case ast.KindIdentifier:
		return e.navigateMember(e.ctx.This(), n.Text)
	case ast.KindFunction:
		return e.visitFunction(idx, n)
	case ast.KindUnary:
		return e.visitUnary(idx, n)
	case ast.KindBinary:
		return e.visitBinary(idx, n)
	case ast.KindInvocation:
		return e.visitInvocation(idx, n)
	case ast.KindIndexer:
		return e.visitIndexer(idx, n)
	case ast.KindTypeExpr:
		return e.visitTypeExpr(idx, n)
	case ast.KindParen:
		return e.visit(n.Children[0])
	case ast.KindError:
		return ParseError(n.Text)
	default:
		return types.Collection{}
	}
}

func (e *Evaluator) visitLiteral(n *ast.Node) interface{} {
	switch n.Lit {
	case ast.LitNull:
		return types.Collection{}
	case ast.LitBoolean:
		return types.Collection{types.NewBoolean(n.Text == "true")}
	case ast.LitString:
		return types.Collection{types.NewString(unquoteString(n.Text))}
	case ast.LitNumber:
		return e.visitNumberLiteral(n.Text)
	case ast.LitDate:
		text := stripAt(n.Text)
		d, err := types.NewDate(text)
		if err != nil {
			return ParseError("invalid date: " + text)
		}
		return types.Collection{d}
	case ast.LitDateTime:
		text := stripAt(n.Text)
		dt, err := types.NewDateTime(text)
		if err != nil {
			return ParseError("invalid datetime: " + text)
		}
		return types.Collection{dt}
	case ast.LitTime:
		text := stripAt(n.Text)
		t, err := types.NewTime(text)
		if err != nil {
			return ParseError("invalid time: " + text)
		}
		return types.Collection{t}
	case ast.LitQuantity:
		q, err := types.NewQuantity(n.Text)
		if err != nil {
			return ParseError("invalid quantity: " + n.Text)
		}
		return types.Collection{q}
	default:
		return types.Collection{}
	}
}

func (e *Evaluator) visitNumberLiteral(text string) interface{} {
	if !strings.Contains(text, ".") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return types.Collection{types.NewInteger(i)}
		}
	}
	d, err := types.NewDecimal(text)
	if err != nil {
		return ParseError("invalid number: " + text)
	}
	return types.Collection{d}
}

func stripAt(s string) string {
	if strings.HasPrefix(s, "@") {
		return s[1:]
	}
	return s
}

// visitFunction dispatches a function call, special-casing the functions
// whose argument is an expression evaluated per-element against $this
// rather than a value evaluated once up front.
func (e *Evaluator) visitFunction(idx int, n *ast.Node) interface{} {
	fn, ok := e.funcs.Get(n.Text)
	if !ok {
		return FunctionNotFoundError(n.Text)
	}

	argExprs := n.Children
	argCount := len(argExprs)

	if argCount < fn.MinArgs {
		return InvalidArgumentsError(n.Text, fn.MinArgs, argCount)
	}
	if fn.MaxArgs >= 0 && argCount > fn.MaxArgs {
		return InvalidArgumentsError(n.Text, fn.MaxArgs, argCount)
	}

	input := e.ctx.This()
	switch n.Text {
	case "where":
		if argCount > 0 {
			return e.evaluateWhere(input, argExprs[0])
		}
	case "exists":
		if argCount > 0 {
			return e.evaluateExists(input, argExprs[0])
		}
	case "all":
		if argCount > 0 {
			return e.evaluateAll(input, argExprs[0])
		}
	case "select":
		if argCount > 0 {
			return e.evaluateSelect(input, argExprs[0])
		}
	case "repeat":
		if argCount > 0 {
			return e.evaluateRepeat(input, argExprs[0])
		}
	case "aggregate":
		if argCount > 0 {
			var initExpr int
			if argCount > 1 {
				initExpr = argExprs[1]
			}
			return e.evaluateAggregate(input, argExprs[0], initExpr)
		}
	case "is":
		if argCount > 0 {
			return e.evaluateIsFunction(input, argExprs[0])
		}
	case "as":
		if argCount > 0 {
			return e.evaluateAsFunction(input, argExprs[0])
		}
	case "ofType":
		if argCount > 0 {
			return e.evaluateOfType(input, argExprs[0])
		}
	case "iif":
		if argCount >= 2 {
			return e.evaluateIif(argExprs)
		}
	}

	args := make([]interface{}, argCount)
	for i, argExpr := range argExprs {
		result := e.visit(argExpr)
		if err, ok := result.(error); ok {
			return err
		}
		if col, ok := result.(types.Collection); ok {
			result = types.UnwrapCollection(col)
		}
		args[i] = result
	}

	result, err := fn.Fn(e.ctx, types.UnwrapCollection(input), args)
	if err != nil {
		return err
	}
	return result
}

// withSavedContext runs body with e.ctx temporarily replaced, restoring the
// previous context afterward. Every per-element lazy-eval helper below uses
// this so a criteria/projection expression sees the right $this/$index.
func (e *Evaluator) withSavedContext(next *Context, body func() interface{}) interface{} {
	saved := e.ctx
	e.ctx = next
	defer func() { e.ctx = saved }()
	return body()
}

func (e *Evaluator) evaluateWhere(input types.Collection, criteria int) interface{} {
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return err
	}
	result := types.Collection{}
	for i, item := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return err
			}
		}
		iterCtx := e.ctx.WithIteration(types.Collection{item}, i, nil)
		res := e.withSavedContext(iterCtx, func() interface{} { return e.visit(criteria) })
		if err, ok := res.(error); ok {
			return err
		}
		if col, ok := res.(types.Collection); ok && !col.Empty() {
			if b, ok := types.Unwrap(col[0]).(types.Boolean); ok && b.Bool() {
				result = append(result, item)
			}
		}
	}
	return result
}

func (e *Evaluator) evaluateExists(input types.Collection, criteria int) interface{} {
	for i, item := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return err
			}
		}
		iterCtx := e.ctx.WithIteration(types.Collection{item}, i, nil)
		res := e.withSavedContext(iterCtx, func() interface{} { return e.visit(criteria) })
		if err, ok := res.(error); ok {
			return err
		}
		if col, ok := res.(types.Collection); ok && !col.Empty() {
			if b, ok := types.Unwrap(col[0]).(types.Boolean); ok && b.Bool() {
				return types.Collection{types.NewBoolean(true)}
			}
		}
	}
	return types.Collection{types.NewBoolean(false)}
}

func (e *Evaluator) evaluateAll(input types.Collection, criteria int) interface{} {
	if input.Empty() {
		return types.Collection{types.NewBoolean(true)}
	}
	for i, item := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return err
			}
		}
		iterCtx := e.ctx.WithIteration(types.Collection{item}, i, nil)
		res := e.withSavedContext(iterCtx, func() interface{} { return e.visit(criteria) })
		if err, ok := res.(error); ok {
			return err
		}
		if col, ok := res.(types.Collection); ok {
			if col.Empty() {
				return types.Collection{types.NewBoolean(false)}
			}
			if b, ok := types.Unwrap(col[0]).(types.Boolean); ok && !b.Bool() {
				return types.Collection{types.NewBoolean(false)}
			}
		}
	}
	return types.Collection{types.NewBoolean(true)}
}

func (e *Evaluator) evaluateSelect(input types.Collection, projection int) interface{} {
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return err
	}
	result := types.Collection{}
	for i, item := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return err
			}
		}
		iterCtx := e.ctx.WithIteration(types.Collection{item}, i, nil)
		res := e.withSavedContext(iterCtx, func() interface{} { return e.visit(projection) })
		if err, ok := res.(error); ok {
			return err
		}
		if col, ok := res.(types.Collection); ok {
			result = append(result, col...)
			if err := e.ctx.CheckCollectionSize(result); err != nil {
				return err
			}
		}
	}
	return result
}

// evaluateRepeat implements repeat(projection): repeatedly applies the
// projection to the result of the previous application, accumulating all
// distinct new elements, until an iteration produces nothing new.
func (e *Evaluator) evaluateRepeat(input types.Collection, projection int) interface{} {
	seen := map[types.Value]bool{}
	result := types.Collection{}
	frontier := input

	for len(frontier) > 0 {
		if err := e.ctx.CheckCancellation(); err != nil {
			return err
		}
		next := types.Collection{}
		for i, item := range frontier {
			iterCtx := e.ctx.WithIteration(types.Collection{item}, i, nil)
			res := e.withSavedContext(iterCtx, func() interface{} { return e.visit(projection) })
			if err, ok := res.(error); ok {
				return err
			}
			col, ok := res.(types.Collection)
			if !ok {
				continue
			}
			for _, v := range col {
				if seen[v] {
					continue
				}
				seen[v] = true
				result = append(result, v)
				next = append(next, v)
			}
		}
		if err := e.ctx.CheckCollectionSize(result); err != nil {
			return err
		}
		frontier = next
	}

	return result
}

// evaluateAggregate implements aggregate(aggregator [, init]): iterates the
// input left to right, rebinding $this to the element and $total to the
// running accumulator (seeded from init, or empty), and returns the final
// $total.
func (e *Evaluator) evaluateAggregate(input types.Collection, aggregator int, initExpr int) interface{} {
	var total types.Value
	if initExpr > 0 {
		initRes := e.visit(initExpr)
		if err, ok := initRes.(error); ok {
			return err
		}
		if col, ok := initRes.(types.Collection); ok && !col.Empty() {
			total = col[0]
		}
	}

	for i, item := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return err
			}
		}
		iterCtx := e.ctx.WithIteration(types.Collection{item}, i, total)
		res := e.withSavedContext(iterCtx, func() interface{} { return e.visit(aggregator) })
		if err, ok := res.(error); ok {
			return err
		}
		if col, ok := res.(types.Collection); ok && !col.Empty() {
			total = col[0]
		} else {
			total = nil
		}
	}

	if total == nil {
		return types.Collection{}
	}
	return types.Collection{total}
}

func (e *Evaluator) evaluateIsFunction(input types.Collection, typeExpr int) interface{} {
	if input.Empty() {
		return types.Collection{}
	}
	if len(input) != 1 {
		return SingletonError(len(input))
	}
	typeName := e.extractTypeName(typeExpr)
	if typeName == "" {
		return InvalidArgumentsError("is", 1, 0)
	}
	return types.Collection{types.NewBoolean(TypeMatches(input[0].Type(), typeName))}
}

func (e *Evaluator) evaluateAsFunction(input types.Collection, typeExpr int) interface{} {
	if input.Empty() {
		return types.Collection{}
	}
	if len(input) != 1 {
		return SingletonError(len(input))
	}
	typeName := e.extractTypeName(typeExpr)
	if typeName == "" {
		return InvalidArgumentsError("as", 1, 0)
	}
	if TypeMatches(input[0].Type(), typeName) {
		return input
	}
	return types.Collection{}
}

// extractTypeName recovers a type name from a function-argument subtree.
// The argument is syntactically an expression (ofType(Patient)), but
// semantically a bare type name, so it is read back from source text
// rather than evaluated.
func (e *Evaluator) extractTypeName(idx int) string {
	n := e.tree.Node(idx)
	if n.Kind == ast.KindIdentifier {
		return n.Text
	}
	// Qualified names (FHIR.Patient) parse as a chain of Invocation nodes;
	// reconstruct the dotted text from the tree's source range.
	r := n.Range
	if r.End.Offset > r.Start.Offset && r.End.Offset <= len(e.tree.Source) {
		return e.tree.Source[r.Start.Offset:r.End.Offset]
	}
	return n.Text
}

func (e *Evaluator) evaluateOfType(input types.Collection, typeExpr int) interface{} {
	if input.Empty() {
		return types.Collection{}
	}
	typeName := e.extractTypeName(typeExpr)
	if typeName == "" {
		return InvalidArgumentsError("ofType", 1, 0)
	}
	result := types.Collection{}
	for _, item := range input {
		actualType := item.Type()
		if obj, ok := item.(*types.ObjectValue); ok {
			actualType = obj.Type()
		}
		if TypeMatches(actualType, typeName) {
			result = append(result, item)
		}
	}
	return result
}

func (e *Evaluator) evaluateIif(argExprs []int) interface{} {
	if len(argExprs) < 2 {
		return InvalidArgumentsError("iif", 2, len(argExprs))
	}
	criterionResult := e.visit(argExprs[0])
	if err, ok := criterionResult.(error); ok {
		return err
	}
	criterion := false
	if coll, ok := criterionResult.(types.Collection); ok && !coll.Empty() {
		if b, ok := types.Unwrap(coll[0]).(types.Boolean); ok {
			criterion = b.Bool()
		}
	}

	if criterion {
		result := e.visit(argExprs[1])
		if err, ok := result.(error); ok {
			return err
		}
		if coll, ok := result.(types.Collection); ok {
			return coll
		}
		return types.Collection{}
	}

	if len(argExprs) > 2 {
		result := e.visit(argExprs[2])
		if err, ok := result.(error); ok {
			return err
		}
		if coll, ok := result.(types.Collection); ok {
			return coll
		}
	}
	return types.Collection{}
}

func (e *Evaluator) visitUnary(idx int, n *ast.Node) interface{} {
	result := e.visit(n.Children[0])
	if err, ok := result.(error); ok {
		return err
	}
	operand := result.(types.Collection)

	def, ok := registry.GetUnaryOperator(n.Op)
	if !ok || def.EvalUnary == nil {
		col := types.UnwrapCollection(operand)
		if col.Empty() {
			return col
		}
		if len(col) != 1 {
			return SingletonError(len(col))
		}
		return col
	}

	out, err := def.EvalUnary(operand)
	if err != nil {
		return err
	}
	return out
}

func (e *Evaluator) visitInvocation(idx int, n *ast.Node) interface{} {
	base := e.visit(n.Children[0])
	if err, ok := base.(error); ok {
		return err
	}
	baseCol, ok := base.(types.Collection)
	if !ok {
		baseCol = types.Collection{}
	}

	iterCtx := e.ctx.WithThis(baseCol)
	return e.withSavedContext(iterCtx, func() interface{} { return e.visit(n.Children[1]) })
}

func (e *Evaluator) visitIndexer(idx int, n *ast.Node) interface{} {
	base := e.visit(n.Children[0])
	if err, ok := base.(error); ok {
		return err
	}
	baseCol := base.(types.Collection)

	index := e.visit(n.Children[1])
	if err, ok := index.(error); ok {
		return err
	}
	indexCol := types.UnwrapCollection(index.(types.Collection))
	if indexCol.Empty() {
		return types.Collection{}
	}

	idxVal, ok := indexCol[0].(types.Integer)
	if !ok {
		return TypeError("Integer", indexCol[0].Type(), "indexer")
	}
	i := int(idxVal.Value())
	if i < 0 || i >= len(baseCol) {
		return types.Collection{}
	}
	return types.Collection{baseCol[i]}
}

func (e *Evaluator) visitTypeExpr(idx int, n *ast.Node) interface{} {
	left := e.visit(n.Children[0])
	if err, ok := left.(error); ok {
		return err
	}
	leftCol := left.(types.Collection)
	if leftCol.Empty() {
		return types.Collection{}
	}
	if len(leftCol) != 1 {
		return SingletonError(len(leftCol))
	}

	actualType := leftCol[0].Type()
	switch n.Op {
	case token.KwIs:
		return types.Collection{types.NewBoolean(TypeMatches(actualType, n.Text))}
	case token.KwAs:
		if TypeMatches(actualType, n.Text) {
			return leftCol
		}
		return types.Collection{}
	default:
		return types.Collection{}
	}
}

// visitBinary evaluates a binary operator by looking up its OperatorDef in
// the shared registry and calling its Eval hook - the registry, not a
// switch here, owns which operators exist and how each one propagates
// empty operands, enforces singletons, and combines its operands.
func (e *Evaluator) visitBinary(idx int, n *ast.Node) interface{} {
	def, ok := registry.GetOperator(n.Op)
	if !ok || def.Eval == nil {
		return types.Collection{}
	}

	left := e.visit(n.Children[0])
	if err, ok := left.(error); ok {
		return err
	}
	right := e.visit(n.Children[1])
	if err, ok := right.(error); ok {
		return err
	}

	result, err := def.Eval(left.(types.Collection), right.(types.Collection))
	if err != nil {
		return err
	}
	return result
}

// nonDomainResources contains FHIR resources that inherit directly from Resource,
// not from DomainResource. All other resources inherit from DomainResource.
var nonDomainResources = map[string]bool{
	"Bundle":     true,
	"Binary":     true,
	"Parameters": true,
}

// IsDomainResource returns true if the given resource type inherits from DomainResource.
func IsDomainResource(resourceType string) bool {
	return !nonDomainResources[resourceType]
}

// IsSubtypeOf checks if actualType is a subtype of (or equal to) baseType.
func IsSubtypeOf(actualType, baseType string) bool {
	if actualType == baseType {
		return true
	}
	if strings.EqualFold(actualType, baseType) {
		return true
	}
	if baseType == "Resource" || strings.EqualFold(baseType, "resource") {
		return isPossibleResourceType(actualType)
	}
	if baseType == "DomainResource" || strings.EqualFold(baseType, "domainresource") {
		return isPossibleResourceType(actualType) && IsDomainResource(actualType)
	}
	return false
}

func isPossibleResourceType(typeName string) bool {
	if typeName == "" {
		return false
	}
	primitiveTypes := map[string]bool{
		"Boolean": true, "String": true, "Integer": true, "Decimal": true,
		"Date": true, "DateTime": true, "Time": true, "Quantity": true,
		"Object": true,
	}
	if primitiveTypes[typeName] {
		return false
	}
	return typeName[0] >= 'A' && typeName[0] <= 'Z'
}

// TypeMatches checks if actualType matches the requested typeName.
func TypeMatches(actualType, typeName string) bool {
	if actualType == typeName {
		return true
	}
	actualLower := strings.ToLower(actualType)
	typeNameLower := strings.ToLower(typeName)
	if actualLower == typeNameLower {
		return true
	}
	if IsSubtypeOf(actualType, typeName) {
		return true
	}

	fhirToFHIRPath := map[string]string{
		"boolean": "Boolean", "string": "String", "integer": "Integer", "decimal": "Decimal",
		"date": "Date", "datetime": "DateTime", "time": "Time", "instant": "DateTime",
		"uri": "String", "url": "String", "canonical": "String", "base64binary": "String",
		"code": "String", "id": "String", "markdown": "String", "oid": "String", "uuid": "String",
		"positiveint": "Integer", "unsignedint": "Integer", "integer64": "Integer",
		"quantity": "Quantity", "simplequantity": "Quantity", "age": "Quantity", "count": "Quantity",
		"distance": "Quantity", "duration": "Quantity", "money": "Quantity",
	}

	if fhirPathType, ok := fhirToFHIRPath[typeNameLower]; ok && actualType == fhirPathType {
		return true
	}
	if fhirPathType, ok := fhirToFHIRPath[actualLower]; ok &&
		(fhirPathType == typeName || strings.EqualFold(fhirPathType, typeName)) {
		return true
	}
	if strings.HasPrefix(typeNameLower, "system.") {
		systemType := typeName[7:]
		if strings.EqualFold(actualType, systemType) {
			return true
		}
	}
	if strings.HasPrefix(typeNameLower, "fhir.") {
		fhirType := typeName[5:]
		if strings.EqualFold(actualType, fhirType) {
			return true
		}
	}
	return false
}

// polymorphicTypeSuffixes contains all FHIR type suffixes for polymorphic elements (value[x] pattern).
var polymorphicTypeSuffixes = []string{
	"Boolean", "Integer", "Integer64", "Decimal", "String", "Code", "Id", "Uri", "Url", "Canonical",
	"Base64Binary", "Instant", "Date", "DateTime", "Time", "Oid", "Uuid", "Markdown", "PositiveInt", "UnsignedInt",
	"Quantity", "CodeableConcept", "Coding", "Range", "Period", "Ratio", "RatioRange",
	"Identifier", "Reference", "Attachment", "HumanName", "Address", "ContactPoint",
	"Timing", "Signature", "Annotation", "SampledData", "Age", "Distance", "Duration",
	"Count", "Money", "MoneyQuantity", "SimpleQuantity",
	"Meta", "Dosage", "ContactDetail", "Contributor", "DataRequirement", "Expression",
	"ParameterDefinition", "RelatedArtifact", "TriggerDefinition", "UsageContext",
}

// navigateMember navigates to a member of objects in the collection.
func (e *Evaluator) navigateMember(input types.Collection, name string) types.Collection {
	result := types.Collection{}

	for _, item := range input {
		if boxed, ok := item.(types.Boxed); ok {
			if boxed.Extension != nil {
				result = append(result, boxed.Extension.GetCollection(name)...)
			}
			continue
		}

		obj, ok := item.(*types.ObjectValue)
		if !ok {
			continue
		}

		if IsSubtypeOf(obj.Type(), name) {
			result = append(result, obj)
			continue
		}

		children := obj.GetCollection(name)
		if len(children) > 0 {
			result = append(result, children...)
			continue
		}

		polymorphicChildren := resolvePolymorphicField(obj, name)
		result = append(result, polymorphicChildren...)
	}

	return result
}

// resolvePolymorphicField attempts to resolve a polymorphic FHIR element.
func resolvePolymorphicField(obj *types.ObjectValue, name string) types.Collection {
	result := types.Collection{}
	for _, suffix := range polymorphicTypeSuffixes {
		fieldName := name + suffix
		children := obj.GetCollection(fieldName)
		if len(children) > 0 {
			result = append(result, children...)
			return result
		}
	}
	return result
}

// unquoteString removes quotes and handles escape sequences.
func unquoteString(s string) string {
	if len(s) < 2 {
		return s
	}
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, "\\'", "'")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\r", "\r")
	s = strings.ReplaceAll(s, "\\t", "\t")
	return s
}
