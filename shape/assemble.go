package shape

import (
	"reflect"

	"github.com/wippyai/shape-runtime/errors"
)

// The constructors below build shapes for descriptor sources other than
// reflection (an IDL, hand-written registration). Child shapes are given
// directly, field offsets are trusted, and the resulting shapes are not
// registered: they overlay the derived shape of the same Go type.

func fixed(s *Shape) func() *Shape { return func() *Shape { return s } }

// FieldOf declares a field with a known shape.
func FieldOf(name string, index int, offset uintptr, flags FieldFlags, s *Shape) Field {
	return NewField(name, index, offset, flags, fixed(s))
}

// NewStruct builds a struct, tuple or unit shape over the struct type t.
func NewStruct(t reflect.Type, name, origin string, kind StructKind, fields []Field) (*Shape, error) {
	if t.Kind() != reflect.Struct {
		return nil, mismatch(t, "struct")
	}
	k := KindStruct
	if kind == StructKindTuple {
		k = KindTuple
	}
	return Assemble(t, name, origin, Def{Kind: k, Struct: &StructDef{Kind: kind, Fields: fields}}), nil
}

// NewUnion builds a union shape over a struct of pointer fields. Each field
// shape is the pointee's.
func NewUnion(t reflect.Type, name, origin string, fields []Field) (*Shape, error) {
	if t.Kind() != reflect.Struct {
		return nil, mismatch(t, "struct")
	}
	return Assemble(t, name, origin, Def{Kind: KindUnion, Union: &UnionDef{
		Fields: fields,
		VTable: unionVTable(fields),
	}}), nil
}

// NewEnum builds an integer-backed enum whose discriminants are the
// positions of names.
func NewEnum(t reflect.Type, name, origin string, names []string) (*Shape, error) {
	if !isIntegerKind(t.Kind()) {
		return nil, mismatch(t, "integer")
	}
	cases := make([]enumCase, len(names))
	for i, n := range names {
		cases[i] = enumCase{name: n, value: int64(i)}
	}
	return Assemble(t, name, origin, Def{Kind: KindEnum, Enum: intEnumDef(t, &intEnumDecl{cases: cases})}), nil
}

// NewList builds a list shape over the slice type t.
func NewList(t reflect.Type, origin string, elem *Shape) (*Shape, error) {
	if t.Kind() != reflect.Slice || t.Elem() != elem.GoType {
		return nil, mismatch(t, "[]"+elem.GoType.String())
	}
	return Assemble(t, "", origin, Def{Kind: KindList, List: &ListDef{
		Elem:   fixed(elem),
		VTable: sliceVTable(t, true),
		Slice:  func() *Shape { return defaultRegistry.SliceOf(t.Elem()) },
	}}), nil
}

// NewArray builds an array shape over the array type t.
func NewArray(t reflect.Type, origin string, elem *Shape) (*Shape, error) {
	if t.Kind() != reflect.Array || t.Elem() != elem.GoType {
		return nil, mismatch(t, "array of "+elem.GoType.String())
	}
	return Assemble(t, "", origin, Def{Kind: KindArray, Array: &ArrayDef{
		Len:    t.Len(),
		Elem:   fixed(elem),
		VTable: defaultRegistry.Of(t).Def.Array.VTable,
	}}), nil
}

// NewOption builds an option shape over the pointer type t.
func NewOption(t reflect.Type, origin string, inner *Shape) (*Shape, error) {
	if t.Kind() != reflect.Pointer || t.Elem() != inner.GoType {
		return nil, mismatch(t, "*"+inner.GoType.String())
	}
	return Assemble(t, "", origin, Def{Kind: KindOption, Option: newPointerOptionDef(t, fixed(inner))}), nil
}

// NewMap builds a map shape over the map type t.
func NewMap(t reflect.Type, origin string, key, value *Shape) (*Shape, error) {
	if t.Kind() != reflect.Map || t.Key() != key.GoType || t.Elem() != value.GoType {
		return nil, mismatch(t, "map["+key.GoType.String()+"]"+value.GoType.String())
	}
	return Assemble(t, "", origin, Def{Kind: KindMap, Map: newMapDef(t, fixed(key), fixed(value))}), nil
}

// NewSet builds a set shape over the map[K]struct{} type t.
func NewSet(t reflect.Type, origin string, elem *Shape) (*Shape, error) {
	if t.Kind() != reflect.Map || t.Key() != elem.GoType || !isEmptyStruct(t.Elem()) {
		return nil, mismatch(t, "map["+elem.GoType.String()+"]struct{}")
	}
	return Assemble(t, "", origin, Def{Kind: KindSet, Set: newSetDef(t, fixed(elem))}), nil
}

func mismatch(t reflect.Type, want string) error {
	return errors.TypeMismatch(errors.PhaseShape, nil, t.String(), want)
}
