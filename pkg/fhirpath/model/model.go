// Package model defines the ModelProvider contract the analyzer consults to
// resolve FHIR element types during static type inference.
//
// The interpreter can evaluate paths against raw FHIR JSON without any
// schema knowledge (FHIRPath is defined over an untyped tree), but the
// analyzer's job - inferring a TypeInfo for every node so that tooling can
// offer completion and catch type errors ahead of evaluation - needs a
// source of truth for "what type does Patient.name.given resolve to".
package model

// ElementInfo describes one structural element of a FHIR type.
type ElementInfo struct {
	Name       string
	TypeName   string // e.g. "string", "HumanName", "Quantity"
	Collection bool   // true if the element is a list (max > 1)

	// Choice lists the concrete type suffixes available for a polymorphic
	// value[x] element, e.g. ["Quantity", "CodeableConcept", "string"] for
	// Observation.value. Empty for non-polymorphic elements.
	Choice []string
}

// TypeInfo describes one resolvable FHIR or System type.
type TypeInfo struct {
	Namespace string // "FHIR" or "System"
	Name      string
	BaseType  string // empty for root types
	Elements  map[string]ElementInfo
}

// Provider resolves FHIR/System type and element metadata for the analyzer.
// Implementations may be backed by a StructureDefinition cache, a generated
// table, or (as here) an in-memory map seeded for the types the evaluator's
// function/operator set actually needs to reason about.
type Provider interface {
	// TypeByName returns the TypeInfo for a namespaced or bare type name
	// ("Patient", "FHIR.Patient", "System.String").
	TypeByName(name string) (TypeInfo, bool)

	// Element returns the ElementInfo for name on typeName, resolving a
	// type-suffixed name such as "valueQuantity" to the value[x] element.
	Element(typeName, name string) (ElementInfo, bool)

	// IsSubtypeOf reports whether child derives from (or equals) parent,
	// walking TypeInfo.BaseType links.
	IsSubtypeOf(child, parent string) bool

	// OfType narrows typeName to targetTypeName, returning the resolved
	// TypeInfo only when targetTypeName is typeName itself or one of its
	// subtypes (per IsSubtypeOf). Backs the ofType()/is/as analyzer checks
	// for FHIR types that aren't part of the System primitive set.
	OfType(typeName, targetTypeName string) (TypeInfo, bool)

	// ElementNames lists the declared element names of parentType, walking
	// BaseType links so inherited elements are included. Used by completion
	// tooling and by the analyzer to validate property navigation.
	ElementNames(parentType string) []string
}

// StaticModelProvider is an in-memory Provider backed by a fixed type map.
// It covers the System primitive types plus a small, explicitly registered
// set of FHIR resource/complex types - enough for analyzer tests and for
// embedding applications to extend via Register before first use.
type StaticModelProvider struct {
	types map[string]TypeInfo
}

// NewStaticModelProvider returns a StaticModelProvider pre-seeded with the
// FHIRPath System type hierarchy and a handful of common FHIR resource
// shapes (Patient, Observation, Bundle) useful for analyzer smoke tests.
func NewStaticModelProvider() *StaticModelProvider {
	m := &StaticModelProvider{types: make(map[string]TypeInfo)}
	for _, t := range defaultSystemTypes() {
		m.Register(t)
	}
	for _, t := range defaultFHIRTypes() {
		m.Register(t)
	}
	return m
}

// Register adds or replaces a TypeInfo entry.
func (m *StaticModelProvider) Register(t TypeInfo) {
	m.types[t.Namespace+"."+t.Name] = t
	if _, exists := m.types[t.Name]; !exists {
		m.types[t.Name] = t
	}
}

func (m *StaticModelProvider) TypeByName(name string) (TypeInfo, bool) {
	t, ok := m.types[name]
	return t, ok
}

func (m *StaticModelProvider) Element(typeName, name string) (ElementInfo, bool) {
	t, ok := m.TypeByName(typeName)
	if !ok {
		return ElementInfo{}, false
	}
	if el, ok := t.Elements[name]; ok {
		return el, true
	}
	// Polymorphic value[x]-style lookup: a caller may ask for "valueQuantity"
	// while the schema lists "value" with "Quantity" among its Choice suffixes.
	for elName, el := range t.Elements {
		for _, choice := range el.Choice {
			if name == elName+choice {
				return el, true
			}
		}
	}
	if t.BaseType != "" {
		return m.Element(t.BaseType, name)
	}
	return ElementInfo{}, false
}

func (m *StaticModelProvider) IsSubtypeOf(child, parent string) bool {
	if child == parent {
		return true
	}
	t, ok := m.TypeByName(child)
	for ok && t.BaseType != "" {
		if t.BaseType == parent {
			return true
		}
		t, ok = m.TypeByName(t.BaseType)
	}
	return false
}

func (m *StaticModelProvider) OfType(typeName, targetTypeName string) (TypeInfo, bool) {
	t, ok := m.TypeByName(targetTypeName)
	if !ok {
		return TypeInfo{}, false
	}
	if !m.IsSubtypeOf(targetTypeName, typeName) && !m.IsSubtypeOf(typeName, targetTypeName) {
		return TypeInfo{}, false
	}
	return t, true
}

func (m *StaticModelProvider) ElementNames(parentType string) []string {
	t, ok := m.TypeByName(parentType)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for ; ok; t, ok = m.TypeByName(t.BaseType) {
		for name := range t.Elements {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		if t.BaseType == "" {
			break
		}
	}
	return names
}

func defaultSystemTypes() []TypeInfo {
	names := []string{"Boolean", "String", "Integer", "Long", "Decimal", "Date", "DateTime", "Time", "Quantity"}
	out := make([]TypeInfo, 0, len(names))
	for _, n := range names {
		out = append(out, TypeInfo{Namespace: "System", Name: n})
	}
	return out
}

func defaultFHIRTypes() []TypeInfo {
	return []TypeInfo{
		{
			Namespace: "FHIR", Name: "Resource",
			Elements: map[string]ElementInfo{
				"id":   {Name: "id", TypeName: "id"},
				"meta": {Name: "meta", TypeName: "Meta"},
			},
		},
		{
			Namespace: "FHIR", Name: "DomainResource", BaseType: "Resource",
			Elements: map[string]ElementInfo{
				"extension": {Name: "extension", TypeName: "Extension", Collection: true},
				"text":      {Name: "text", TypeName: "Narrative"},
			},
		},
		{
			Namespace: "FHIR", Name: "Patient", BaseType: "DomainResource",
			Elements: map[string]ElementInfo{
				"name":      {Name: "name", TypeName: "HumanName", Collection: true},
				"birthDate": {Name: "birthDate", TypeName: "date"},
				"active":    {Name: "active", TypeName: "boolean"},
				"gender":    {Name: "gender", TypeName: "code"},
			},
		},
		{
			Namespace: "FHIR", Name: "Observation", BaseType: "DomainResource",
			Elements: map[string]ElementInfo{
				"status": {Name: "status", TypeName: "code"},
				"code":   {Name: "code", TypeName: "CodeableConcept"},
				"value": {
					Name: "value", Choice: []string{"Quantity", "CodeableConcept", "string", "boolean", "integer", "Range", "Ratio"},
				},
			},
		},
		{
			Namespace: "FHIR", Name: "Bundle", BaseType: "Resource",
			Elements: map[string]ElementInfo{
				"type":  {Name: "type", TypeName: "code"},
				"entry": {Name: "entry", TypeName: "BackboneElement", Collection: true},
			},
		},
		{
			Namespace: "FHIR", Name: "HumanName",
			Elements: map[string]ElementInfo{
				"given":  {Name: "given", TypeName: "string", Collection: true},
				"family": {Name: "family", TypeName: "string"},
			},
		},
		{
			Namespace: "FHIR", Name: "Quantity",
			Elements: map[string]ElementInfo{
				"value": {Name: "value", TypeName: "decimal"},
				"unit":  {Name: "unit", TypeName: "string"},
				"code":  {Name: "code", TypeName: "code"},
			},
		},
	}
}
