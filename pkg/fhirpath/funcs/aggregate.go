package funcs

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:        "aggregate",
		Category:    "aggregate",
		Description: "Folds the input collection through an aggregator expression with $total carried across iterations, seeded by init.",
		Examples:    []string{"value.aggregate($this + $total, 0)"},
		Signature: eval.FuncSignature{
			Input: "collection",
			Parameters: []eval.ParamDef{
				{Name: "aggregator", Type: "expression", Expression: true},
				{Name: "init", Type: "Any", Optional: true},
			},
			Result: "Any",
		},
		MinArgs: 1,
		MaxArgs: 2,
		Fn:      fnAggregate,
	})

	Register(FuncDef{
		Name:        "children",
		Category:    "navigation",
		Description: "Returns all immediate child elements of every item in the input collection.",
		Examples:    []string{"Patient.children()"},
		Signature:   eval.FuncSignature{Input: "collection", Result: "collection"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnChildren,
	})

	Register(FuncDef{
		Name:        "descendants",
		Category:    "navigation",
		Description: "Returns all descendant elements of every item in the input collection, recursively.",
		Examples:    []string{"Patient.descendants()"},
		Signature:   eval.FuncSignature{Input: "collection", Result: "collection"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnDescendants,
	})

	Register(FuncDef{
		Name:        "not",
		Category:    "logical",
		Description: "Negates a singleton Boolean input, propagating empty.",
		Examples:    []string{"Patient.active.not()"},
		Signature:   eval.FuncSignature{Input: "Boolean", Result: "Boolean"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnNot,
	})

	Register(FuncDef{
		Name:        "hasValue",
		Category:    "existence",
		Description: "Returns true if the input contains at least one primitive value (not a complex type); false for empty input.",
		Examples:    []string{"Patient.birthDate.hasValue()"},
		Signature:   eval.FuncSignature{Input: "collection", Result: "Boolean"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnHasValue,
	})

	Register(FuncDef{
		Name:        "getValue",
		Category:    "conversion",
		Description: "Returns the primitive values among the input elements, or empty if there are none.",
		Examples:    []string{"Patient.birthDate.getValue()"},
		Signature:   eval.FuncSignature{Input: "collection", Result: "Any"},
		MinArgs:     0,
		MaxArgs:     0,
		Fn:          fnGetValue,
	})

	Register(FuncDef{
		Name:        "combine",
		Category:    "collection",
		Description: "Merges two collections into one without removing duplicates.",
		Examples:    []string{"name.given.combine(name.family)"},
		Signature: eval.FuncSignature{
			Input:      "collection",
			Parameters: []eval.ParamDef{{Name: "other", Type: "collection"}},
			Result:     "collection",
		},
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnCombine,
	})

	Register(FuncDef{
		Name:        "union",
		Category:    "collection",
		Description: "Merges two collections into one, removing duplicates (function form of the | operator).",
		Examples:    []string{"name.given.union(name.family)"},
		Signature: eval.FuncSignature{
			Input:      "collection",
			Parameters: []eval.ParamDef{{Name: "other", Type: "collection"}},
			Result:     "collection",
		},
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnUnion,
	})

	Register(FuncDef{
		Name:        "as",
		Category:    "type",
		Description: "Casts the input to the named type, or returns empty if it does not match (function form of the 'as' operator).",
		Examples:    []string{"Observation.value.as(Quantity)"},
		Signature: eval.FuncSignature{
			Input:      "Any",
			Parameters: []eval.ParamDef{{Name: "type", Type: "TypeSpecifier"}},
			Result:     "Any",
		},
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnAs,
	})
}

// fnAggregate is never actually invoked: the evaluator recognizes
// "aggregate" in its function-dispatch switch and runs evaluateAggregate,
// which rebinds $this and $total per element as it folds over the
// collection. Registered here only for arity validation / Has/List.
func fnAggregate(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("aggregate", 1, 0)
	}
	if len(args) > 1 {
		if init, ok := args[1].(types.Collection); ok {
			return init, nil
		}
	}
	return types.Collection{}, nil
}

// fnChildren returns all direct children of the input.
func fnChildren(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	result := types.Collection{}

	for _, item := range input {
		if obj, ok := item.(*types.ObjectValue); ok {
			children := obj.Children()
			result = append(result, children...)
		}
	}

	return result, nil
}

// fnDescendants returns all descendants of the input (recursive children).
func fnDescendants(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	result := types.Collection{}
	seen := make(map[types.Value]bool)

	var collect func(items types.Collection)
	collect = func(items types.Collection) {
		for _, item := range items {
			if seen[item] {
				continue
			}
			seen[item] = true

			if obj, ok := item.(*types.ObjectValue); ok {
				children := obj.Children()
				result = append(result, children...)
				collect(children)
			}
		}
	}

	collect(input)
	return result, nil
}

// fnNot returns the boolean negation.
func fnNot(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	if b, ok := input[0].(types.Boolean); ok {
		return types.Collection{types.NewBoolean(!b.Bool())}, nil
	}

	return types.Collection{}, nil
}

// fnHasValue returns true if the input has a primitive value.
func fnHasValue(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(false)}, nil
	}

	// Check if any element has a primitive value
	for _, item := range input {
		switch item.(type) {
		case types.Boolean, types.String, types.Integer, types.Decimal,
			types.Date, types.DateTime, types.Time:
			return types.Collection{types.NewBoolean(true)}, nil
		}
	}

	return types.Collection{types.NewBoolean(false)}, nil
}

// fnGetValue returns the primitive value if it exists.
func fnGetValue(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	// Return primitive values
	result := types.Collection{}
	for _, item := range input {
		switch v := item.(type) {
		case types.Boolean, types.String, types.Integer, types.Decimal,
			types.Date, types.DateTime, types.Time:
			result = append(result, v)
		}
	}

	return result, nil
}

// fnCombine combines two collections.
func fnCombine(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("combine", 1, 0)
	}

	result := make(types.Collection, len(input))
	copy(result, input)

	if other, ok := args[0].(types.Collection); ok {
		result = append(result, other...)
	}

	return result, nil
}

// fnUnion returns the union of two collections (removes duplicates).
func fnUnion(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("union", 1, 0)
	}

	// Get the other collection
	var other types.Collection
	if o, ok := args[0].(types.Collection); ok {
		other = o
	} else {
		return input, nil
	}

	// Use the Collection.Union method which handles duplicates
	return input.Union(other), nil
}

// fnAs casts the input to a specific type.
func fnAs(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("as", 1, 0)
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

	if typeName == "" || input.Empty() {
		return types.Collection{}, nil
	}

	// Filter elements by type
	result := types.Collection{}
	for _, item := range input {
		if item.Type() == typeName {
			result = append(result, item)
		}
	}

	return result, nil
}
