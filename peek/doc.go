// Package peek reads values through their shapes without knowing their
// static types.
//
// A Value pairs a read-only pointer with the shape describing it. Category
// readers are obtained from a Value and fail with a type mismatch when the
// shape has another kind:
//
//	v := peek.Of(&cfg)
//	st, err := v.Struct()
//	for f, fv := range st.Fields() {
//		fmt.Println(f.Name, fv.Debug())
//	}
//
// Map iteration hands out a handle that must be released exactly once.
// Ranging over Map.All releases it automatically; Map.Iter returns the
// handle for callers that drive iteration themselves and must Close it.
//
// Comparison, hashing and formatting delegate to the shape's vtable and
// fail with errors.KindUnsupported when the slot is absent or the two
// operands have different shapes.
package peek
