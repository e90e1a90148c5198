package peek

import (
	"iter"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

// List reads an array, list or slice view.
type List struct {
	v    Value
	elem *shape.Shape
}

// List returns a sequence reader over arrays, lists and slice views.
func (v Value) List() (List, error) {
	if !v.IsValid() {
		return List{}, errors.NilPointer(errors.PhasePeek, nil, "")
	}
	switch v.s.Kind() {
	case shape.KindArray, shape.KindList, shape.KindSlice:
		return List{v: v, elem: shape.ElemShape(v.s)}, nil
	}
	return List{}, errors.TypeMismatch(errors.PhasePeek, nil, v.s.Name+" ("+v.s.Kind().String()+")", "list")
}

func (l List) Value() Value       { return l.v }
func (l List) Elem() *shape.Shape { return l.elem }
func (l List) Len() int           { return shape.SequenceLen(l.v.s, l.v.p) }
func (l List) IsArray() bool      { return l.v.s.Kind() == shape.KindArray }

// Get returns element i; ok is false past the end.
func (l List) Get(i int) (Value, bool) {
	if i < 0 || i >= l.Len() {
		return Value{}, false
	}
	return Value{s: l.elem, p: shape.ElementAt(l.v.s, l.v.p, i)}, true
}

// At is Get reporting out-of-range indices as errors.
func (l List) At(i int) (Value, error) {
	v, ok := l.Get(i)
	if !ok {
		return Value{}, errors.OutOfBounds(errors.PhasePeek, nil, i, l.Len())
	}
	return v, nil
}

// All iterates the elements in order.
func (l List) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		i := 0
		for p := range shape.Elements(l.v.s, l.v.p) {
			if !yield(i, Value{s: l.elem, p: p}) {
				return
			}
			i++
		}
	}
}

// AsSlice returns the unsized view over a list's elements. Arrays and slice
// views are returned unchanged.
func (l List) AsSlice() Value {
	if l.v.s.Kind() != shape.KindList {
		return l.v
	}
	return Value{s: l.v.s.Def.List.Slice(), p: l.v.p}
}
