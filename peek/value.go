package peek

import (
	"hash/maphash"
	"reflect"
	"strings"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/shape"
)

// Value is a read-only view of a value together with its shape.
// The zero Value is invalid.
type Value struct {
	s *shape.Shape
	p ptr.Const
}

// Of returns a reader over *v.
func Of[T any](v *T) Value {
	return Value{s: shape.Of[T](), p: ptr.ConstOf(v)}
}

// ValueOf returns a reader over a copy of v. It returns the zero Value for nil.
func ValueOf(v any) Value {
	if v == nil {
		return Value{}
	}
	rv := reflect.ValueOf(v)
	cp := reflect.New(rv.Type())
	cp.Elem().Set(rv)
	return Value{s: shape.OfType(rv.Type()), p: ptr.NewConst(cp.UnsafePointer())}
}

// Unchecked wraps p as a value of shape s. The caller guarantees p holds an
// initialized value of that shape.
func Unchecked(p ptr.Const, s *shape.Shape) Value {
	return Value{s: s, p: p}
}

func (v Value) IsValid() bool        { return v.s != nil && !v.p.IsNil() }
func (v Value) Shape() *shape.Shape  { return v.s }
func (v Value) Ptr() ptr.Const       { return v.p }
func (v Value) Kind() shape.Kind     { return v.s.Kind() }
func (v Value) GoType() reflect.Type { return v.s.GoType }

// Interface returns a copy of the value boxed in an interface.
func (v Value) Interface() any { return v.p.Value(v.s.GoType).Interface() }

// Get returns a copy of the value as T.
func Get[T any](v Value) (T, error) {
	var zero T
	if !v.IsValid() {
		return zero, errors.NilPointer(errors.PhasePeek, nil, "")
	}
	if v.s.GoType != reflect.TypeFor[T]() {
		return zero, errors.TypeMismatch(errors.PhasePeek, nil, v.s.Name, reflect.TypeFor[T]().String())
	}
	return ptr.Read[T](v.p), nil
}

// Innermost unwraps transparent wrappers down to the value they carry.
func (v Value) Innermost() Value {
	for v.s.Inner != nil && v.s.VTable.TryBorrowInner != nil {
		inner, err := v.s.VTable.TryBorrowInner(v.p)
		if err != nil {
			return v
		}
		v = Value{s: v.s.Inner(), p: inner}
	}
	return v
}

func (v Value) want(kind shape.Kind, what string) error {
	if !v.IsValid() {
		return errors.NilPointer(errors.PhasePeek, nil, "")
	}
	if v.s.Kind() != kind {
		return errors.TypeMismatch(errors.PhasePeek, nil, v.s.Name+" ("+v.s.Kind().String()+")", what)
	}
	return nil
}

func (v Value) unsupported(op shape.Op) error {
	return errors.Unsupported(errors.PhasePeek, v.s.Name, op.String())
}

// binary checks that v and o share a shape supporting op.
func (v Value) binary(o Value, op shape.Op) error {
	if !v.IsValid() || !o.IsValid() {
		return errors.NilPointer(errors.PhasePeek, nil, "")
	}
	if !v.s.Is(o.s) {
		return errors.New(errors.PhasePeek, errors.KindUnsupported).
			Shape(v.s.Name).
			Operation(op.String()).
			Detail("cannot %s %s with %s", op, v.s.Name, o.s.Name).
			Build()
	}
	if !v.s.Supports(op) {
		return v.unsupported(op)
	}
	return nil
}

// Equal reports whether v and o are equal.
func (v Value) Equal(o Value) (bool, error) {
	if err := v.binary(o, shape.OpEqual); err != nil {
		return false, err
	}
	return v.s.VTable.Equal(v.p, o.p), nil
}

// Compare orders v against o: -1, 0 or +1.
func (v Value) Compare(o Value) (int, error) {
	if err := v.binary(o, shape.OpCompare); err != nil {
		return 0, err
	}
	return v.s.VTable.Compare(v.p, o.p), nil
}

// Hash feeds v into h.
func (v Value) Hash(h *maphash.Hash) error {
	if !v.IsValid() {
		return errors.NilPointer(errors.PhasePeek, nil, "")
	}
	if !v.s.Supports(shape.OpHash) {
		return v.unsupported(shape.OpHash)
	}
	v.s.VTable.Hash(v.p, h)
	return nil
}

// Hash64 hashes v with seed.
func (v Value) Hash64(seed maphash.Seed) (uint64, error) {
	var h maphash.Hash
	h.SetSeed(seed)
	if err := v.Hash(&h); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Debug formats v structurally.
func (v Value) Debug() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	return shape.DebugString(v.s, v.p)
}

// Display formats v for end users.
func (v Value) Display() (string, error) {
	if !v.IsValid() {
		return "", errors.NilPointer(errors.PhasePeek, nil, "")
	}
	if v.s.VTable.Display == nil {
		return "", v.unsupported(shape.OpDisplay)
	}
	var b strings.Builder
	v.s.VTable.Display(v.p, &b)
	return b.String(), nil
}

// String returns the Display form when there is one and the Debug form otherwise.
func (v Value) String() string {
	if s, err := v.Display(); err == nil {
		return s
	}
	return v.Debug()
}
