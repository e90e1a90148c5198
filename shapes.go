package shaperuntime

import (
	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/partial"
	"github.com/wippyai/shape-runtime/peek"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/shape"
)

// Describe returns the shape of T from the default registry.
func Describe[T any]() *shape.Shape {
	return shape.Of[T]()
}

// Peek returns a reader over *v.
func Peek[T any](v *T) peek.Value {
	return peek.Of(v)
}

// Construct builds a T with fill. When fill or the build fails, everything
// written so far is dropped.
func Construct[T any](fill func(p *partial.Partial) error) (T, error) {
	var zero T
	p, err := partial.Alloc[T]()
	if err != nil {
		return zero, err
	}
	if err := fill(p); err != nil {
		p.Discard()
		return zero, err
	}
	v, err := partial.Build[T](p)
	if err != nil {
		p.Discard()
		return zero, err
	}
	return v, nil
}

// Clone deep-copies *v through the Clone slot of its shape.
func Clone[T any](v *T) (T, error) {
	var out T
	s := shape.Of[T]()
	if s.VTable.Clone == nil || !s.Supports(shape.OpClone) {
		return out, errors.Unsupported(errors.PhaseShape, s.Name, shape.OpClone.String())
	}
	s.VTable.Clone(ptr.ConstOf(v), ptr.NewUninit(ptr.MutOf(&out).Raw()))
	return out, nil
}

// Drop runs the destructor hooks of *v and zeroes it.
func Drop[T any](v *T) {
	shape.DropValue(shape.Of[T](), ptr.MutOf(v))
}
