package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which engine layer produced the error
type Phase string

const (
	PhaseShape   Phase = "shape"   // descriptor derivation and registration
	PhasePeek    Phase = "peek"    // read-only traversal
	PhasePartial Phase = "partial" // progressive construction
	PhaseConvert Phase = "convert" // descriptor-to-descriptor conversion
	PhaseRegion  Phase = "region"  // borrow scope checks
	PhaseCompile Phase = "compile" // WIT to shape compilation
)

// Kind categorizes the error
type Kind string

const (
	KindUninitializedValue     Kind = "uninitialized_value"
	KindUninitializedEnumField Kind = "uninitialized_enum_field"
	KindOperationFailed        Kind = "operation_failed"
	KindConversion             Kind = "conversion"
	KindInvariant              Kind = "invariant"
	KindOutOfBounds            Kind = "out_of_bounds"
	KindTypeMismatch           Kind = "type_mismatch"
	KindFieldUnknown           Kind = "field_unknown"
	KindFieldMissing           Kind = "field_missing"
	KindVariantUnknown         Kind = "variant_unknown"
	KindUnsupported            Kind = "unsupported"
	KindBorrowScope            Kind = "borrow_scope"
	KindOverflow               Kind = "overflow"
	KindInvalidData            Kind = "invalid_data"
	KindNilPointer             Kind = "nil_pointer"
)

// Sentinels match any *Error of the same Kind regardless of phase.
var (
	ErrUninitializedValue     = &Error{Kind: KindUninitializedValue}
	ErrUninitializedEnumField = &Error{Kind: KindUninitializedEnumField}
	ErrOperationFailed        = &Error{Kind: KindOperationFailed}
	ErrConversion             = &Error{Kind: KindConversion}
	ErrInvariant              = &Error{Kind: KindInvariant}
	ErrOutOfBounds            = &Error{Kind: KindOutOfBounds}
	ErrUnsupported            = &Error{Kind: KindUnsupported}
	ErrBorrowScope            = &Error{Kind: KindBorrowScope}
)

// Error is the structured error type used throughout the engine
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Shape     string
	Operation string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Shape != "" || e.Operation != "" {
		b.WriteString(": ")
		if e.Shape != "" && e.Operation != "" {
			b.WriteString("shape ")
			b.WriteString(e.Shape)
			b.WriteString(", operation ")
			b.WriteString(e.Operation)
		} else if e.Shape != "" {
			b.WriteString("shape ")
			b.WriteString(e.Shape)
		} else {
			b.WriteString("operation ")
			b.WriteString(e.Operation)
		}
	}

	if e.Detail != "" {
		if e.Shape != "" || e.Operation != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the frame path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Shape sets the shape name
func (b *Builder) Shape(name string) *Builder {
	b.err.Shape = name
	return b
}

// Operation sets the failed operation name
func (b *Builder) Operation(op string) *Builder {
	b.err.Operation = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OperationFailed reports an operation that is invalid for the current state
func OperationFailed(phase Phase, shape, operation, detail string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindOperationFailed,
		Shape:     shape,
		Operation: operation,
		Detail:    detail,
	}
}

// UninitializedValue reports a value finalized with required slots unset
func UninitializedValue(path []string, shape, detail string) *Error {
	return &Error{
		Phase:  PhasePartial,
		Kind:   KindUninitializedValue,
		Path:   path,
		Shape:  shape,
		Detail: detail,
	}
}

// UninitializedEnumField reports an enum variant finalized with a field unset
func UninitializedEnumField(path []string, shape, variant, field string) *Error {
	return &Error{
		Phase:  PhasePartial,
		Kind:   KindUninitializedEnumField,
		Path:   path,
		Shape:  shape,
		Detail: fmt.Sprintf("field %q of variant %q is not initialized", field, variant),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, got, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Shape:  want,
		Detail: fmt.Sprintf("got %s", got),
	}
}

// Conversion creates an incompatible-source conversion error
func Conversion(src, dst string, cause error) *Error {
	return &Error{
		Phase:  PhaseConvert,
		Kind:   KindConversion,
		Shape:  dst,
		Detail: fmt.Sprintf("cannot convert from %s", src),
		Cause:  cause,
	}
}

// Invariant wraps a failed custom invariant predicate
func Invariant(path []string, shape string, cause error) *Error {
	return &Error{
		Phase:  PhasePartial,
		Kind:   KindInvariant,
		Path:   path,
		Shape:  shape,
		Detail: "invariant check failed",
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, shape, operation string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindUnsupported,
		Shape:     shape,
		Operation: operation,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(phase Phase, path []string, shape, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Shape:  shape,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// VariantUnknown creates an unknown variant error
func VariantUnknown(phase Phase, path []string, shape, variant string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindVariantUnknown,
		Path:   path,
		Shape:  shape,
		Detail: fmt.Sprintf("unknown variant %q", variant),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Shape:  target,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// BorrowScope reports borrowed input that does not outlive the produced value
func BorrowScope(detail string) *Error {
	return &Error{
		Phase:  PhaseRegion,
		Kind:   KindBorrowScope,
		Detail: detail,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, shape string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Shape:  shape,
		Detail: "nil pointer",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
