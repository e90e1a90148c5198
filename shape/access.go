package shape

import (
	"iter"

	"github.com/wippyai/shape-runtime/ptr"
)

// ActiveVariant returns the active variant of the enum at p and the base
// address of its fields.
func ActiveVariant(s *Shape, p ptr.Const) (*Variant, ptr.Const, bool) {
	d := s.Def.Enum
	i, ok := d.VTable.Active(p)
	if !ok {
		return nil, ptr.Const{}, false
	}
	payload := d.VTable.Payload(p)
	if payload.IsNil() && d.Repr == EnumReprInterface {
		// a nil pointer stored as a variant holds no value
		return nil, ptr.Const{}, false
	}
	return &d.Variants[i], payload, true
}

// ElemShape returns the element shape of an array, slice or list shape.
func ElemShape(s *Shape) *Shape { return elemShape(s) }

func elemShape(s *Shape) *Shape {
	switch s.Def.Kind {
	case KindArray:
		return s.Def.Array.Elem()
	case KindSlice:
		return s.Def.Slice.Elem()
	case KindList:
		return s.Def.List.Elem()
	}
	return nil
}

func listVTable(s *Shape) *ListVTable {
	switch s.Def.Kind {
	case KindSlice:
		return &s.Def.Slice.VTable
	case KindList:
		return &s.Def.List.VTable
	}
	return nil
}

// SequenceLen returns the number of elements of an array, slice or list.
func SequenceLen(s *Shape, p ptr.Const) int {
	if s.Def.Kind == KindArray {
		return s.Def.Array.Len
	}
	return listVTable(s).Len(p)
}

// ElementAt returns element i of an array, slice or list. Callers check
// bounds with SequenceLen first.
func ElementAt(s *Shape, p ptr.Const, i int) ptr.Const {
	if s.Def.Kind == KindArray {
		return s.Def.Array.VTable.AsPtr(p).Add(uintptr(i) * s.Def.Array.Elem().Layout.Size)
	}
	return listVTable(s).Get(p, i)
}

// elements walks a sequence, striding over contiguous storage when it is
// available.
func elements(s *Shape, p ptr.Const) iter.Seq[ptr.Const] {
	return func(yield func(ptr.Const) bool) {
		n := SequenceLen(s, p)
		if n == 0 {
			return
		}
		var base ptr.Const
		if s.Def.Kind == KindArray {
			base = s.Def.Array.VTable.AsPtr(p)
		} else if vt := listVTable(s); vt.AsPtr != nil {
			base = vt.AsPtr(p)
		}
		if base.IsNil() {
			for e := range listVTable(s).Iter(p) {
				if !yield(e) {
					return
				}
			}
			return
		}
		size := elemShape(s).Layout.Size
		for i := 0; i < n; i++ {
			if !yield(base.Add(uintptr(i) * size)) {
				return
			}
		}
	}
}

// Elements iterates the elements of an array, slice or list in order.
func Elements(s *Shape, p ptr.Const) iter.Seq[ptr.Const] { return elements(s, p) }
