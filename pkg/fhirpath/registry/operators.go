// Package registry holds the operator table the parser, analyzer, and
// evaluator all consult. Function registration lives in pkg/fhirpath/funcs;
// this package covers the fixed set of FHIRPath infix/prefix operators,
// described as data (a tagged OperatorDef per symbol) rather than one
// parser or evaluator case per operator, so precedence, associativity,
// arity, documentation, and the semantic Eval hook all live in one place.
package registry

import (
	"fmt"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/token"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// Arity distinguishes unary from binary operator defs.
type Arity int

const (
	Binary Arity = iota
	Unary
)

// Category groups operators for documentation and tooling, mirroring the
// Category field on funcs.FuncDef.
type Category string

const (
	CategoryArithmetic Category = "arithmetic"
	CategoryComparison Category = "comparison"
	CategoryEquality   Category = "equality"
	CategoryLogical    Category = "logical"
	CategoryString     Category = "string"
	CategoryCollection Category = "collection"
	CategoryMembership Category = "membership"
	CategoryType       Category = "type"
	CategoryPolarity   Category = "polarity"
)

// OperatorSignature documents one accepted operand/result type combination,
// e.g. {Left: "Integer", Right: "Integer", Result: "Integer"} for '+'. An
// operator may list several signatures (Integer+Integer, Decimal+Decimal,
// Date+Quantity, ...); the analyzer walks them to infer a result TypeInfo
// and to flag operand types that match none of them.
type OperatorSignature struct {
	Left   string
	Right  string
	Result string
}

// OperatorFunc evaluates a binary operator over already-unwrapped operand
// collections. It owns its own empty-propagation and singleton rules, so
// callers never special-case them per operator.
type OperatorFunc func(left, right types.Collection) (types.Collection, error)

// UnaryFunc evaluates a prefix operator over an unwrapped operand collection.
type UnaryFunc func(operand types.Collection) (types.Collection, error)

// OperatorDef describes one FHIRPath operator as data: the parser reads
// Precedence/RightAssoc, the analyzer reads Signatures to infer a result
// type, and the evaluator calls Eval/EvalUnary instead of switching on the
// operator token itself.
type OperatorDef struct {
	Token       token.Type
	Symbol      string
	Name        string
	Category    Category
	Arity       Arity
	Precedence  int
	RightAssoc  bool
	Description string
	Examples    []string
	Signatures  []OperatorSignature
	Eval        OperatorFunc // set when Arity == Binary
	EvalUnary   UnaryFunc    // set when Arity == Unary
}

// maxOperators bounds each arity table to a single byte of token id space -
// the dispatch table the evaluator indexes is keyed directly by operator
// token id, so a def outside this range could never be looked up anyway.
const maxOperators = 256

var (
	binarySlots [maxOperators]*OperatorDef
	unarySlots  [maxOperators]*OperatorDef
)

// RegisterOperator adds def to the table, keyed by def.Token and def.Arity.
// It returns an error if def.Token falls outside [0, maxOperators), so a
// caller extending the language at runtime gets a clear failure instead of
// a silently-dropped operator.
func RegisterOperator(def OperatorDef) error {
	id := int(def.Token)
	if id < 0 || id >= maxOperators {
		return fmt.Errorf("registry: operator token id %d out of range [0,%d)", id, maxOperators)
	}
	switch def.Arity {
	case Unary:
		unarySlots[id] = &def
	default:
		binarySlots[id] = &def
	}
	return nil
}

func mustRegisterOperator(def OperatorDef) {
	if err := RegisterOperator(def); err != nil {
		panic(err)
	}
}

// BindEval attaches fn as the evaluation hook for the already-registered
// binary operator tt. It exists so that pkg/fhirpath/eval - which depends on
// this package, not the reverse - can supply the actual Add/Subtract/...
// implementations without registry importing eval and creating a cycle.
func BindEval(tt token.Type, fn OperatorFunc) error {
	id := int(tt)
	if id < 0 || id >= maxOperators || binarySlots[id] == nil {
		return fmt.Errorf("registry: no binary operator registered for token %d", id)
	}
	binarySlots[id].Eval = fn
	return nil
}

// BindUnaryEval attaches fn as the evaluation hook for the already-registered
// unary operator tt. See BindEval.
func BindUnaryEval(tt token.Type, fn UnaryFunc) error {
	id := int(tt)
	if id < 0 || id >= maxOperators || unarySlots[id] == nil {
		return fmt.Errorf("registry: no unary operator registered for token %d", id)
	}
	unarySlots[id].EvalUnary = fn
	return nil
}

// GetOperator returns the binary OperatorDef for tt.
func GetOperator(tt token.Type) (OperatorDef, bool) {
	id := int(tt)
	if id < 0 || id >= maxOperators || binarySlots[id] == nil {
		return OperatorDef{}, false
	}
	return *binarySlots[id], true
}

// GetUnaryOperator returns the prefix OperatorDef for tt.
func GetUnaryOperator(tt token.Type) (OperatorDef, bool) {
	id := int(tt)
	if id < 0 || id >= maxOperators || unarySlots[id] == nil {
		return OperatorDef{}, false
	}
	return *unarySlots[id], true
}

// IsBinaryOperator reports whether tt has a registered infix form.
func IsBinaryOperator(tt token.Type) bool {
	_, ok := GetOperator(tt)
	return ok
}

// IsUnaryOperator reports whether tt has a registered prefix form.
func IsUnaryOperator(tt token.Type) bool {
	_, ok := GetUnaryOperator(tt)
	return ok
}

// Lookup is an alias for GetOperator kept for the parser's call sites.
func Lookup(tt token.Type) (OperatorDef, bool) { return GetOperator(tt) }

// LookupUnary is an alias for GetUnaryOperator kept for the parser's call sites.
func LookupUnary(tt token.Type) (OperatorDef, bool) { return GetUnaryOperator(tt) }

// Precedence reports the infix binding power of tt, or -1 if tt cannot
// start an infix operator.
func Precedence(tt token.Type) int {
	if d, ok := GetOperator(tt); ok {
		return d.Precedence
	}
	if tt == token.LBracket {
		return 95
	}
	return -1
}

// Associativity reports whether tt is right-associative ("implies" only).
func Associativity(tt token.Type) token.Associativity {
	if d, ok := GetOperator(tt); ok && d.RightAssoc {
		return token.RightAssoc
	}
	return token.LeftAssoc
}

// Operators returns every registered binary OperatorDef, in no particular
// order. Used by completion/documentation tooling.
func Operators() []OperatorDef {
	defs := make([]OperatorDef, 0, maxOperators)
	for _, d := range binarySlots {
		if d != nil {
			defs = append(defs, *d)
		}
	}
	return defs
}

func init() {
	mustRegisterOperator(OperatorDef{
		Token: token.Dot, Symbol: ".", Name: "navigation", Category: CategoryCollection,
		Arity: Binary, Precedence: 100,
		Description: "Navigates from the left operand into a child element or invocation named by the right operand.",
		Examples:    []string{"Patient.name", "name.given.first()"},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwIs, Symbol: "is", Name: "type test", Category: CategoryType,
		Arity: Binary, Precedence: 90,
		Description: "Tests whether the left operand's runtime type matches the type named on the right.",
		Examples:    []string{"value is Quantity", "Patient.name.first() is HumanName"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "TypeSpecifier", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwAs, Symbol: "as", Name: "type cast", Category: CategoryType,
		Arity: Binary, Precedence: 90,
		Description: "Casts the left operand to the type named on the right, or returns empty if it does not match.",
		Examples:    []string{"value as Quantity"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "TypeSpecifier", Result: "Any"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Star, Symbol: "*", Name: "multiplication", Category: CategoryArithmetic,
		Arity: Binary, Precedence: 80,
		Description: "Multiplies two numeric operands, or a Quantity by a numeric scalar.",
		Examples:    []string{"3 * 4", "1.5 * 2"},
		Signatures: []OperatorSignature{
			{Left: "Integer", Right: "Integer", Result: "Integer"},
			{Left: "Decimal", Right: "Decimal", Result: "Decimal"},
		},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Slash, Symbol: "/", Name: "division", Category: CategoryArithmetic,
		Arity: Binary, Precedence: 80,
		Description: "Divides the left operand by the right, always producing a Decimal.",
		Examples:    []string{"10 / 4", "15.0 / 3"},
		Signatures: []OperatorSignature{
			{Left: "Integer", Right: "Integer", Result: "Decimal"},
			{Left: "Decimal", Right: "Decimal", Result: "Decimal"},
		},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwDiv, Symbol: "div", Name: "integer division", Category: CategoryArithmetic,
		Arity: Binary, Precedence: 80,
		Description: "Divides two integers and truncates toward zero.",
		Examples:    []string{"17 div 5"},
		Signatures:  []OperatorSignature{{Left: "Integer", Right: "Integer", Result: "Integer"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwMod, Symbol: "mod", Name: "modulo", Category: CategoryArithmetic,
		Arity: Binary, Precedence: 80,
		Description: "Returns the remainder of integer division.",
		Examples:    []string{"17 mod 5"},
		Signatures:  []OperatorSignature{{Left: "Integer", Right: "Integer", Result: "Integer"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Plus, Symbol: "+", Name: "addition", Category: CategoryArithmetic,
		Arity: Binary, Precedence: 70,
		Description: "Adds two numeric operands, concatenates two strings, or advances a Date/DateTime by a Quantity duration.",
		Examples:    []string{"2 + 3", "'a' + 'b'", "@2024-01-01 + 1 'year'"},
		Signatures: []OperatorSignature{
			{Left: "Integer", Right: "Integer", Result: "Integer"},
			{Left: "Decimal", Right: "Decimal", Result: "Decimal"},
			{Left: "String", Right: "String", Result: "String"},
			{Left: "Date", Right: "Quantity", Result: "Date"},
			{Left: "DateTime", Right: "Quantity", Result: "DateTime"},
			{Left: "Quantity", Right: "Quantity", Result: "Quantity"},
		},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Minus, Symbol: "-", Name: "subtraction", Category: CategoryArithmetic,
		Arity: Binary, Precedence: 70,
		Description: "Subtracts the right numeric operand from the left, or retreats a Date/DateTime by a Quantity duration.",
		Examples:    []string{"10 - 4", "@2024-01-01 - 1 'month'"},
		Signatures: []OperatorSignature{
			{Left: "Integer", Right: "Integer", Result: "Integer"},
			{Left: "Decimal", Right: "Decimal", Result: "Decimal"},
			{Left: "Date", Right: "Quantity", Result: "Date"},
			{Left: "DateTime", Right: "Quantity", Result: "DateTime"},
			{Left: "Quantity", Right: "Quantity", Result: "Quantity"},
		},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Amp, Symbol: "&", Name: "string concatenation", Category: CategoryString,
		Arity: Binary, Precedence: 70,
		Description: "Concatenates two strings, treating an empty operand as the empty string rather than propagating empty.",
		Examples:    []string{"'a' & 'b'", "given.first() & ' ' & family"},
		Signatures:  []OperatorSignature{{Left: "String", Right: "String", Result: "String"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Pipe, Symbol: "|", Name: "union", Category: CategoryCollection,
		Arity: Binary, Precedence: 60,
		Description: "Merges two collections into one, removing duplicates.",
		Examples:    []string{"name.given | name.family"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "Any", Result: "Any"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Lt, Symbol: "<", Name: "less than", Category: CategoryComparison,
		Arity: Binary, Precedence: 50,
		Description: "Compares two singleton operands of the same ordered type.",
		Examples:    []string{"5 < 10"},
		Signatures:  comparisonSignatures,
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Lte, Symbol: "<=", Name: "less than or equal", Category: CategoryComparison,
		Arity: Binary, Precedence: 50,
		Description: "Compares two singleton operands of the same ordered type.",
		Examples:    []string{"5 <= 5"},
		Signatures:  comparisonSignatures,
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Gt, Symbol: ">", Name: "greater than", Category: CategoryComparison,
		Arity: Binary, Precedence: 50,
		Description: "Compares two singleton operands of the same ordered type.",
		Examples:    []string{"10 > 5"},
		Signatures:  comparisonSignatures,
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Gte, Symbol: ">=", Name: "greater than or equal", Category: CategoryComparison,
		Arity: Binary, Precedence: 50,
		Description: "Compares two singleton operands of the same ordered type.",
		Examples:    []string{"5 >= 5"},
		Signatures:  comparisonSignatures,
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Eq, Symbol: "=", Name: "equality", Category: CategoryEquality,
		Arity: Binary, Precedence: 40,
		Description: "Tests exact equality; empty if either operand is empty.",
		Examples:    []string{"5 = 5", "'abc' = 'abc'"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "Any", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Neq, Symbol: "!=", Name: "inequality", Category: CategoryEquality,
		Arity: Binary, Precedence: 40,
		Description: "Negation of =.",
		Examples:    []string{"5 != 10"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "Any", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Equiv, Symbol: "~", Name: "equivalence", Category: CategoryEquality,
		Arity: Binary, Precedence: 40,
		Description: "Tests equivalence: case-insensitive and whitespace-normalized for strings, and true for two empty operands.",
		Examples:    []string{"'ABC' ~ 'abc'"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "Any", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.NotEquiv, Symbol: "!~", Name: "not equivalent", Category: CategoryEquality,
		Arity: Binary, Precedence: 40,
		Description: "Negation of ~.",
		Examples:    []string{"'abc' !~ 'xyz'"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "Any", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwIn, Symbol: "in", Name: "membership", Category: CategoryMembership,
		Arity: Binary, Precedence: 35,
		Description: "Tests whether the left singleton is a member of the right collection.",
		Examples:    []string{"'b' in ('a' | 'b' | 'c')"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "Any", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwContains, Symbol: "contains", Name: "reverse membership", Category: CategoryMembership,
		Arity: Binary, Precedence: 35,
		Description: "Tests whether the left collection contains the right singleton.",
		Examples:    []string{"('a' | 'b' | 'c') contains 'b'"},
		Signatures:  []OperatorSignature{{Left: "Any", Right: "Any", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwAnd, Symbol: "and", Name: "logical and", Category: CategoryLogical,
		Arity: Binary, Precedence: 30,
		Description: "Three-valued logical AND.",
		Examples:    []string{"true and false"},
		Signatures:  []OperatorSignature{{Left: "Boolean", Right: "Boolean", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwXor, Symbol: "xor", Name: "logical xor", Category: CategoryLogical,
		Arity: Binary, Precedence: 25,
		Description: "Logical exclusive-or.",
		Examples:    []string{"true xor false"},
		Signatures:  []OperatorSignature{{Left: "Boolean", Right: "Boolean", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwOr, Symbol: "or", Name: "logical or", Category: CategoryLogical,
		Arity: Binary, Precedence: 20,
		Description: "Three-valued logical OR.",
		Examples:    []string{"true or false"},
		Signatures:  []OperatorSignature{{Left: "Boolean", Right: "Boolean", Result: "Boolean"}},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.KwImplies, Symbol: "implies", Name: "logical implication", Category: CategoryLogical,
		Arity: Binary, Precedence: 10, RightAssoc: true,
		Description: "Three-valued logical implication.",
		Examples:    []string{"false implies true"},
		Signatures:  []OperatorSignature{{Left: "Boolean", Right: "Boolean", Result: "Boolean"}},
	})

	mustRegisterOperator(OperatorDef{
		Token: token.Plus, Symbol: "+", Name: "unary plus", Category: CategoryPolarity,
		Arity: Unary, Precedence: token.UnaryPrecedence,
		Description: "No-op polarity marker on a numeric operand.",
		Examples:    []string{"+5"},
		Signatures: []OperatorSignature{
			{Left: "Integer", Result: "Integer"},
			{Left: "Decimal", Result: "Decimal"},
		},
	})
	mustRegisterOperator(OperatorDef{
		Token: token.Minus, Symbol: "-", Name: "unary minus", Category: CategoryPolarity,
		Arity: Unary, Precedence: token.UnaryPrecedence,
		Description: "Negates a numeric operand.",
		Examples:    []string{"-5", "-x.value"},
		Signatures: []OperatorSignature{
			{Left: "Integer", Result: "Integer"},
			{Left: "Decimal", Result: "Decimal"},
		},
	})
}

var comparisonSignatures = []OperatorSignature{
	{Left: "Integer", Right: "Integer", Result: "Boolean"},
	{Left: "Decimal", Right: "Decimal", Result: "Boolean"},
	{Left: "String", Right: "String", Result: "Boolean"},
	{Left: "Date", Right: "Date", Result: "Boolean"},
	{Left: "DateTime", Right: "DateTime", Result: "Boolean"},
	{Left: "Time", Right: "Time", Result: "Boolean"},
	{Left: "Quantity", Right: "Quantity", Result: "Boolean"},
}
