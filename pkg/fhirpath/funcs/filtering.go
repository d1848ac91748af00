package funcs

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:        "where",
		Category:    "filtering",
		Description: "Returns elements of the input for which criteria evaluates to true.",
		Examples:    []string{"Patient.name.where(use = 'official')"},
		Signature: eval.FuncSignature{
			Input:      "collection",
			Parameters: []eval.ParamDef{{Name: "criteria", Type: "expression", Expression: true}},
			Result:     "collection",
		},
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnWhere,
	})

	Register(FuncDef{
		Name:        "select",
		Category:    "filtering",
		Description: "Projects each input element through an expression and flattens the results.",
		Examples:    []string{"Patient.name.select(given)"},
		Signature: eval.FuncSignature{
			Input:      "collection",
			Parameters: []eval.ParamDef{{Name: "projection", Type: "expression", Expression: true}},
			Result:     "collection",
		},
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnSelect,
	})

	Register(FuncDef{
		Name:        "repeat",
		Category:    "filtering",
		Description: "Repeatedly applies projection to the result set until no new elements appear, collecting every generation.",
		Examples:    []string{"Questionnaire.repeat(item)"},
		Signature: eval.FuncSignature{
			Input:      "collection",
			Parameters: []eval.ParamDef{{Name: "projection", Type: "expression", Expression: true}},
			Result:     "collection",
		},
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnRepeat,
	})

	Register(FuncDef{
		Name:        "ofType",
		Category:    "filtering",
		Description: "Returns elements of the input whose runtime type matches the given type specifier.",
		Examples:    []string{"Observation.value.ofType(Quantity)"},
		Signature: eval.FuncSignature{
			Input:      "collection",
			Parameters: []eval.ParamDef{{Name: "type", Type: "TypeSpecifier"}},
			Result:     "collection",
		},
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnOfType,
	})
}

// fnWhere filters the collection based on a criteria expression.
// Returns elements where the criteria evaluates to true.
func fnWhere(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("where", 1, 0)
	}

	// The evaluator handles where() itself, re-evaluating the criteria per
	// element; when called directly, args[0] is the pre-evaluated criteria
	// collection, one Boolean per input element.

	// If we receive pre-evaluated results (collection of booleans), filter based on them
	if criteria, ok := args[0].(types.Collection); ok {
		result := types.Collection{}
		for i, item := range input {
			if i < len(criteria) {
				if b, ok := criteria[i].(types.Boolean); ok && b.Bool() {
					result = append(result, item)
				}
			}
		}
		return result, nil
	}

	// Default: return input (criteria evaluation should be handled by evaluator)
	return input, nil
}

// fnSelect projects each element using an expression.
// Returns the flattened results of evaluating the expression on each element.
func fnSelect(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("select", 1, 0)
	}

	// The argument should be evaluated for each element
	// This is handled specially in the evaluator
	if results, ok := args[0].(types.Collection); ok {
		return results, nil
	}

	return types.Collection{}, nil
}

// fnRepeat is never actually invoked: the evaluator recognizes "repeat" in
// its function-dispatch switch and runs evaluateRepeat's fixed-point loop
// instead, since the argument is an expression re-evaluated per generation
// with $this rebound, not a pre-evaluated value. This entry exists only so
// the function is registered (for arity validation / Has/List queries).
func fnRepeat(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("repeat", 1, 0)
	}
	return input, nil
}

// fnOfType filters elements by type.
func fnOfType(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("ofType", 1, 0)
	}

	// Get the type name
	typeName := ""
	switch v := args[0].(type) {
	case types.Collection:
		if len(v) > 0 {
			if s, ok := v[0].(types.String); ok {
				typeName = s.Value()
			}
		}
	case types.String:
		typeName = v.Value()
	case string:
		typeName = v
	}

	if typeName == "" {
		return types.Collection{}, nil
	}

	result := types.Collection{}
	for _, item := range input {
		if item.Type() == typeName {
			result = append(result, item)
		}
	}

	return result, nil
}
