package types

// Boxed wraps a primitive Value together with the FHIR primitive-extension
// sibling object that travelled alongside it in the source JSON (the
// "_field" member holding id/extension, e.g. "_gender" next to "gender").
// Navigation into .id or .extension on a primitive reads through Extension;
// everything else (Equal, String, arithmetic type switches, ...) delegates
// to the embedded Value unchanged.
type Boxed struct {
	Value
	Extension *ObjectValue
}

// Unbox returns the underlying primitive value, discarding the extension
// sibling. The public evaluation API always returns unboxed values.
func (b Boxed) Unbox() Value {
	return b.Value
}

// Unwrap removes one level of Boxed wrapping from v, returning v unchanged
// if it isn't boxed.
func Unwrap(v Value) Value {
	if b, ok := v.(Boxed); ok {
		return b.Value
	}
	return v
}

// UnwrapCollection strips Boxed wrappers from every element of col.
func UnwrapCollection(col Collection) Collection {
	if col == nil {
		return nil
	}
	out := make(Collection, len(col))
	for i, v := range col {
		out[i] = Unwrap(v)
	}
	return out
}

// ExtensionOf returns the primitive-extension sibling carried by v, if any.
func ExtensionOf(v Value) (*ObjectValue, bool) {
	if b, ok := v.(Boxed); ok && b.Extension != nil {
		return b.Extension, true
	}
	return nil, false
}
