// Package analyzer implements static type inference over a parsed FHIRPath
// AST, producing LSP-compatible diagnostics instead of runtime errors.
//
// It reuses the evaluator's error-taxonomy idiom (pkg/fhirpath/eval/errors.go)
// for its own Diagnostic type, and ctxstate.Frame (shared with the
// interpreter's runtime Context) for its $this/$index/$total/user-variable
// environment.
package analyzer

import (
	"fmt"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ctxstate"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/funcs"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/model"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"
)

// Severity mirrors the LSP DiagnosticSeverity enum (1-based: Error is most
// severe).
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
	SeverityHint
)

// Diagnostic codes, per the closed set the analyzer is allowed to emit.
const (
	CodeUnknownVariable      = "UNKNOWN_VARIABLE"
	CodeUnknownUserVariable  = "UNKNOWN_USER_VARIABLE"
	CodeUnknownFunction      = "UNKNOWN_FUNCTION"
	CodeUnknownProperty      = "UNKNOWN_PROPERTY"
	CodeTooFewArgs           = "TOO_FEW_ARGS"
	CodeTooManyArgs          = "TOO_MANY_ARGS"
	CodeArgumentTypeMismatch = "ARGUMENT_TYPE_MISMATCH"
	CodeInputTypeMismatch    = "INPUT_TYPE_MISMATCH"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeInvalidOperandType   = "INVALID_OPERAND_TYPE"
	CodeSingletonRequired    = "SINGLETON_REQUIRED"
	CodeModelProviderReq     = "MODEL_PROVIDER_REQUIRED"
)

// Diagnostic is an LSP-shaped analyzer finding. Unlike a runtime eval.EvalError,
// a Diagnostic never halts analysis - it is collected into the Result and the
// walk continues with a best-effort type for the offending node.
type Diagnostic struct {
	Range    ast.Range
	Severity Severity
	Code     string
	Message  string
	Source   string
}

func diag(r ast.Range, sev Severity, code, format string, args ...interface{}) Diagnostic {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return Diagnostic{Range: r, Severity: sev, Code: code, Message: msg, Source: "fhirpath-analyzer"}
}

// CursorContext describes where analysis stopped when cursor mode is active.
type CursorContext struct {
	Node            int
	TypeBeforeCursor *ast.TypeInfo
	ExpectedType     *ast.TypeInfo
}

// Result is what Analyze returns: the type-annotated tree plus diagnostics.
type Result struct {
	Tree            *ast.Tree
	Diagnostics     []Diagnostic
	StoppedAtCursor bool
	CursorContext   *CursorContext
}

// Option configures an analysis run.
type Option func(*options)

type options struct {
	inputType     ast.TypeInfo
	variables     map[string]ast.TypeInfo
	modelProvider model.Provider
	cursorMode    bool
	cursorOffset  int
}

// WithInputType seeds the root $this type (e.g. the resource type being
// evaluated against). Defaults to an unresolved Any collection.
func WithInputType(t ast.TypeInfo) Option {
	return func(o *options) { o.inputType = t }
}

// WithVariable declares the static type of a %name external variable.
func WithVariable(name string, t ast.TypeInfo) Option {
	return func(o *options) {
		if o.variables == nil {
			o.variables = map[string]ast.TypeInfo{}
		}
		o.variables[name] = t
	}
}

// WithModelProvider supplies the schema source used to resolve property
// navigation and non-primitive ofType/is/as checks.
func WithModelProvider(p model.Provider) Option {
	return func(o *options) { o.modelProvider = p }
}

// WithCursorMode enables cursor-stop semantics: analysis halts at the first
// ast.KindError node whose range reaches cursorOffset, per spec.md §4.4.3.
func WithCursorMode(cursorOffset int) Option {
	return func(o *options) { o.cursorMode = true; o.cursorOffset = cursorOffset }
}

// env threads the current input type and variable bindings through the walk.
// Reuses ctxstate.Frame so the analyzer and interpreter share one
// structural-inheritance derivation strategy (see package ctxstate).
type env struct {
	frame    *ctxstate.Frame
	provider model.Provider
}

func (e env) this() ast.TypeInfo {
	if v, ok := e.frame.Lookup(ctxstate.KeyThis); ok {
		return v.(ast.TypeInfo)
	}
	return anyCollection()
}

func (e env) withThis(t ast.TypeInfo) env {
	return env{frame: e.frame.Derive(ctxstate.KeyThis, t), provider: e.provider}
}

func (e env) withIteration(this ast.TypeInfo, total *ast.TypeInfo) env {
	bindings := map[string]any{
		ctxstate.KeyThis:  this,
		ctxstate.KeyIndex: ast.TypeInfo{Namespace: "System", Name: "Integer"},
	}
	if total != nil {
		bindings[ctxstate.KeyTotal] = *total
	}
	return env{frame: e.frame.DeriveMany(bindings), provider: e.provider}
}

func (e env) variable(name string) (ast.TypeInfo, bool) {
	v, ok := e.frame.Lookup("%" + name)
	if !ok {
		return ast.TypeInfo{}, false
	}
	return v.(ast.TypeInfo), true
}

func anyCollection() ast.TypeInfo {
	return ast.TypeInfo{Namespace: "System", Name: "Any", Collection: true}
}

func singleton(namespace, name string) ast.TypeInfo {
	return ast.TypeInfo{Namespace: namespace, Name: name}
}

func collectionOf(namespace, name string) ast.TypeInfo {
	return ast.TypeInfo{Namespace: namespace, Name: name, Collection: true}
}

// analyzer holds the mutable state of one Analyze call.
type analyzer struct {
	tree  *ast.Tree
	opts  options
	diags []Diagnostic

	stoppedNode     int
	stoppedBefore   *ast.TypeInfo
	stoppedExpected *ast.TypeInfo
}

// Analyze performs static type inference over tree, returning a Result with
// the tree's nodes annotated (Node.Type) and any diagnostics collected.
func Analyze(tree *ast.Tree, opts ...Option) Result {
	o := options{inputType: anyCollection(), cursorOffset: -1}
	for _, opt := range opts {
		opt(&o)
	}

	a := &analyzer{tree: tree, opts: o}
	vars := map[string]any{ctxstate.KeyThis: o.inputType}
	for name, t := range o.variables {
		vars["%"+name] = t
	}
	e := env{frame: ctxstate.NewRoot(vars), provider: o.modelProvider}

	result := Result{Tree: tree}
	if tree == nil || tree.Root == 0 {
		result.Diagnostics = a.diags
		return result
	}

	t := a.visit(tree.Root, e)
	tree.Node(tree.Root).Type = t

	result.Diagnostics = a.diags
	if a.stoppedNode != 0 {
		result.StoppedAtCursor = true
		result.CursorContext = &CursorContext{
			Node:             a.stoppedNode,
			TypeBeforeCursor: a.stoppedBefore,
			ExpectedType:     a.stoppedExpected,
		}
	}
	return result
}

func (a *analyzer) addDiag(r ast.Range, sev Severity, code, format string, args ...interface{}) {
	a.diags = append(a.diags, diag(r, sev, code, format, args...))
}

// visit assigns and returns the TypeInfo for idx, recursing into children as
// needed. It also stamps tree.Node(idx).Type so callers/tooling can read it
// back off the tree afterward.
func (a *analyzer) visit(idx int, e env) *ast.TypeInfo {
	n := a.tree.Node(idx)

	if a.opts.cursorMode && a.stoppedNode == 0 && n.Kind == ast.KindError &&
		n.Range.End.Offset >= a.opts.cursorOffset {
		before := e.this()
		a.stoppedNode = idx
		a.stoppedBefore = &before
		n.Type = &before
		return n.Type
	}

	var t ast.TypeInfo
	switch n.Kind {
	case ast.KindLiteral:
		t = a.visitLiteral(n)
	case ast.KindThis:
		t = e.this()
	case ast.KindIndexVar:
		t = singleton("System", "Integer")
	case ast.KindTotalVar:
		if v, ok := e.frame.Lookup(ctxstate.KeyTotal); ok {
			t = v.(ast.TypeInfo)
		} else {
			t = anyCollection()
		}
	case ast.KindVariable:
		if v, ok := e.variable(n.Text); ok {
			t = v
		} else {
			a.addDiag(n.Range, SeverityError, CodeUnknownVariable, "unknown variable '%%%s'", n.Text)
			t = anyCollection()
		}
	case ast.KindIdentifier:
		t = a.visitNavigation(n, e.this())
	case ast.KindUnary:
		t = a.visitUnary(n, e)
	case ast.KindBinary:
		t = a.visitBinary(n, e)
	case ast.KindInvocation:
		t = a.visitInvocation(n, e)
	case ast.KindIndexer:
		t = a.visitIndexer(n, e)
	case ast.KindFunction:
		t = a.visitFunction(idx, n, e)
	case ast.KindTypeExpr:
		t = a.visitTypeExpr(n, e)
	case ast.KindParen:
		if len(n.Children) == 1 {
			child := a.visit(n.Children[0], e)
			if child != nil {
				t = *child
			}
		}
	case ast.KindError:
		t = anyCollection()
	default:
		t = anyCollection()
	}

	n.Type = &t
	return n.Type
}

func (a *analyzer) visitLiteral(n *ast.Node) ast.TypeInfo {
	switch n.Lit {
	case ast.LitNull:
		return anyCollection()
	case ast.LitBoolean:
		return singleton("System", "Boolean")
	case ast.LitNumber:
		for _, r := range n.Text {
			if r == '.' {
				return singleton("System", "Decimal")
			}
		}
		return singleton("System", "Integer")
	case ast.LitString:
		return singleton("System", "String")
	case ast.LitDate:
		return singleton("System", "Date")
	case ast.LitDateTime:
		return singleton("System", "DateTime")
	case ast.LitTime:
		return singleton("System", "Time")
	case ast.LitQuantity:
		return singleton("System", "Quantity")
	default:
		return anyCollection()
	}
}

func (a *analyzer) visitUnary(n *ast.Node, e env) ast.TypeInfo {
	child := a.visit(n.Children[0], e)
	if child == nil {
		return anyCollection()
	}
	if child.Collection {
		a.addDiag(n.Range, SeverityError, CodeSingletonRequired, "unary %s requires a singleton", n.Op)
	}
	return *child
}

func (a *analyzer) visitInvocation(n *ast.Node, e env) ast.TypeInfo {
	base := a.visit(n.Children[0], e)
	baseType := anyCollection()
	if base != nil {
		baseType = *base
	}
	itemEnv := e.withThis(ast.TypeInfo{Namespace: baseType.Namespace, Name: baseType.Name})
	member := a.visit(n.Children[1], itemEnv)
	if member == nil {
		return anyCollection()
	}
	result := *member
	result.Collection = result.Collection || baseType.Collection
	return result
}

func (a *analyzer) visitNavigation(n *ast.Node, receiver ast.TypeInfo) ast.TypeInfo {
	if a.opts.modelProvider == nil {
		return anyCollection()
	}
	el, ok := a.opts.modelProvider.Element(receiver.Name, n.Text)
	if !ok {
		a.addDiag(n.Range, SeverityWarning, CodeUnknownProperty, "unknown property '%s' on %s", n.Text, receiver.Name)
		return anyCollection()
	}
	return ast.TypeInfo{Namespace: "FHIR", Name: el.TypeName, Collection: el.Collection}
}

func (a *analyzer) visitIndexer(n *ast.Node, e env) ast.TypeInfo {
	base := a.visit(n.Children[0], e)
	a.visit(n.Children[1], e)
	if base == nil {
		return anyCollection()
	}
	return ast.TypeInfo{Namespace: base.Namespace, Name: base.Name, Collection: false}
}

func (a *analyzer) visitTypeExpr(n *ast.Node, e env) ast.TypeInfo {
	left := a.visit(n.Children[0], e)
	if left != nil && left.Collection {
		a.addDiag(n.Range, SeverityError, CodeSingletonRequired, "'%s' requires a singleton operand", n.Op)
	}
	if !isPrimitiveTypeName(n.Text) && a.opts.modelProvider == nil {
		a.addDiag(n.Range, SeverityWarning, CodeModelProviderReq, "resolving '%s' requires a ModelProvider", n.Text)
	}
	switch n.Op {
	case token.KwIs:
		return singleton("System", "Boolean")
	case token.KwAs:
		return singleton("FHIR", n.Text)
	default:
		return anyCollection()
	}
}

func (a *analyzer) visitBinary(n *ast.Node, e env) ast.TypeInfo {
	left := a.visit(n.Children[0], e)
	right := a.visit(n.Children[1], e)
	lt, rt := safeType(left), safeType(right)

	switch n.Op {
	case token.Eq, token.Neq, token.Equiv, token.NotEquiv,
		token.Lt, token.Lte, token.Gt, token.Gte:
		return singleton("System", "Boolean")
	case token.KwAnd, token.KwOr, token.KwXor, token.KwImplies,
		token.KwIn, token.KwContains:
		return singleton("System", "Boolean")
	case token.Amp:
		return singleton("System", "String")
	case token.Pipe:
		result := lt
		result.Collection = true
		return result
	case token.Plus:
		if lt.Name == "String" && rt.Name == "String" {
			return singleton("System", "String")
		}
		return arithmeticResult(a, n, lt, rt)
	case token.Minus, token.Star, token.Slash:
		return arithmeticResult(a, n, lt, rt)
	case token.KwDiv, token.KwMod:
		if lt.Name != "Integer" && lt.Name != "Decimal" {
			a.addDiag(n.Range, SeverityError, CodeInvalidOperandType, "'%s' requires numeric operands", n.Op)
		}
		return singleton("System", "Integer")
	default:
		return anyCollection()
	}
}

func arithmeticResult(a *analyzer, n *ast.Node, lt, rt ast.TypeInfo) ast.TypeInfo {
	numeric := func(t ast.TypeInfo) bool { return t.Name == "Integer" || t.Name == "Decimal" }
	if lt.Name == "Quantity" || rt.Name == "Quantity" {
		return singleton("System", "Quantity")
	}
	if isTemporalName(lt.Name) && rt.Name == "Quantity" {
		return singleton("System", lt.Name)
	}
	if !numeric(lt) || !numeric(rt) {
		a.addDiag(n.Range, SeverityError, CodeInvalidOperandType, "'%s' requires numeric operands, got %s and %s", n.Op, lt.Name, rt.Name)
		return anyCollection()
	}
	if lt.Name == "Decimal" || rt.Name == "Decimal" {
		return singleton("System", "Decimal")
	}
	return singleton("System", "Integer")
}

func isTemporalName(name string) bool {
	return name == "Date" || name == "DateTime" || name == "Time"
}

func isPrimitiveTypeName(name string) bool {
	switch name {
	case "Boolean", "Integer", "Decimal", "String", "Date", "DateTime", "Time", "Quantity", "Any":
		return true
	}
	return false
}

func safeType(t *ast.TypeInfo) ast.TypeInfo {
	if t == nil {
		return anyCollection()
	}
	return *t
}

// singletonResultFuncs lists the built-in functions that return a single
// element of the receiver's type rather than a fixed TypeInfo.
var singletonResultFuncs = map[string]bool{
	"first": true, "last": true, "single": true,
}

var booleanResultFuncs = map[string]bool{
	"exists": true, "all": true, "allTrue": true, "anyTrue": true,
	"allFalse": true, "anyFalse": true, "hasValue": true,
	"isDistinct": true, "not": true, "is": true, "empty": true,
	"subsumes": true, "subsumedBy": true, "contains": true,
	"startsWith": true, "endsWith": true, "matches": true,
}

var integerResultFuncs = map[string]bool{
	"count": true, "indexOf": true, "compareTo": true,
}

var stringResultFuncs = map[string]bool{
	"toString": true, "substring": true, "upper": true, "lower": true,
	"trim": true, "replace": true, "replaceMatches": true, "join": true,
}

func (a *analyzer) visitFunction(idx int, n *ast.Node, e env) ast.TypeInfo {
	def, known := funcs.Get(n.Text)
	argCount := len(n.Children)
	if !known {
		a.addDiag(n.Range, SeverityError, CodeUnknownFunction, "unknown function '%s'", n.Text)
	} else {
		if argCount < def.MinArgs {
			a.addDiag(n.Range, SeverityError, CodeTooFewArgs, "'%s' expects at least %d arguments, got %d", n.Text, def.MinArgs, argCount)
		}
		if def.MaxArgs >= 0 && argCount > def.MaxArgs {
			a.addDiag(n.Range, SeverityError, CodeTooManyArgs, "'%s' expects at most %d arguments, got %d", n.Text, def.MaxArgs, argCount)
		}
	}

	receiver := e.this()

	// Expression-typed parameters (where/select/all/exists/repeat/sort/...)
	// analyze their argument with $this rebound to the receiver's element
	// type and $index available. Which parameter position is lazily
	// evaluated this way comes off the function's own registered Signature
	// rather than a name list here, so a function registered at runtime
	// with Expression: true parameters gets the same treatment.
	if known && n.Text == "aggregate" {
		var total *ast.TypeInfo
		if argCount > 1 {
			total = a.visit(n.Children[1], e)
		}
		if argCount > 0 && def.TakesExpressionArg(0) {
			itemEnv := e.withIteration(ast.TypeInfo{Namespace: receiver.Namespace, Name: receiver.Name}, total)
			a.visit(n.Children[0], itemEnv)
		} else if argCount > 0 {
			a.visit(n.Children[0], e)
		}
	} else {
		for i, c := range n.Children {
			if known && def.TakesExpressionArg(i) {
				itemEnv := e.withIteration(ast.TypeInfo{Namespace: receiver.Namespace, Name: receiver.Name}, nil)
				a.visit(c, itemEnv)
			} else {
				a.visit(c, e)
			}
		}
	}

	switch {
	case n.Text == "count":
		return singleton("System", "Integer")
	case n.Text == "where" || n.Text == "ofType" || n.Text == "distinct" || n.Text == "skip" || n.Text == "take":
		result := receiver
		result.Collection = true
		return result
	case n.Text == "select":
		return anyCollection()
	case singletonResultFuncs[n.Text]:
		return ast.TypeInfo{Namespace: receiver.Namespace, Name: receiver.Name}
	case booleanResultFuncs[n.Text]:
		return singleton("System", "Boolean")
	case integerResultFuncs[n.Text]:
		return singleton("System", "Integer")
	case stringResultFuncs[n.Text]:
		return singleton("System", "String")
	case n.Text == "iif":
		return anyCollection()
	default:
		return anyCollection()
	}
}
