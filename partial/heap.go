package partial

import (
	"reflect"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/peek"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/region"
	"github.com/wippyai/shape-runtime/shape"
)

// HeapValue owns a value produced by Build. It is tied to the builder's
// output region: once that region is closed or reset the value can no
// longer be read or materialized.
type HeapValue struct {
	s    *shape.Shape
	p    ptr.Mut
	tok  region.Token
	gone bool
}

func (h *HeapValue) Shape() *shape.Shape { return h.s }

// Region returns the region the value was built for.
func (h *HeapValue) Region() *region.Region { return h.tok.Region() }

func (h *HeapValue) usable(op string) error {
	if h.gone {
		return errors.OperationFailed(errors.PhasePartial, h.s.Name, op, "value was dropped or moved out")
	}
	if !h.tok.Live() {
		return errors.BorrowScope("region " + h.tok.Region().String() + " of the built value has ended")
	}
	return nil
}

// Peek returns a reader over the value.
func (h *HeapValue) Peek() (peek.Value, error) {
	if err := h.usable("peek"); err != nil {
		return peek.Value{}, err
	}
	return peek.Unchecked(h.p.Const(), h.s), nil
}

// Drop runs the value's destructor hooks. Further calls are no-ops.
func (h *HeapValue) Drop() {
	if h.gone {
		return
	}
	h.gone = true
	shape.DropValue(h.s, h.p)
}

// Materialize moves the value out as a T. The HeapValue is consumed.
func Materialize[T any](h *HeapValue) (T, error) {
	var zero T
	if err := h.usable("materialize"); err != nil {
		return zero, err
	}
	want := reflect.TypeFor[T]()
	if h.s.GoType != want {
		return zero, errors.TypeMismatch(errors.PhasePartial, nil, h.s.Name, want.String())
	}
	h.gone = true
	return ptr.Read[T](h.p.Const()), nil
}

// Build runs a builder to completion and materializes its value. A value
// that cannot be materialized as T is dropped.
func Build[T any](p *Partial) (T, error) {
	hv, err := p.Build()
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := Materialize[T](hv)
	if err != nil {
		hv.Drop()
	}
	return v, err
}
