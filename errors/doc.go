// Package errors provides structured error types for the shape runtime.
//
// Errors are categorized by Phase (which engine layer failed) and Kind (error category).
// The Error type carries the frame path, shape name, failed operation and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePartial, errors.KindOperationFailed).
//		Path("user", "address").
//		Shape("Address").
//		Operation("select_variant").
//		Detail("variant already selected").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UninitializedValue(path, "Config", "field \"port\" is not initialized")
//	err := errors.OutOfBounds(errors.PhasePartial, path, 3, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
// Comparing against a sentinel such as ErrUninitializedValue matches on Kind
// alone, regardless of the phase that produced the error.
package errors
