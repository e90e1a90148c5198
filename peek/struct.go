package peek

import (
	"iter"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/shape"
)

// Struct reads the fields of a struct, tuple or unit value.
type Struct struct {
	v   Value
	def *shape.StructDef
}

// Struct returns a field reader. Tuples are accepted too.
func (v Value) Struct() (Struct, error) {
	if !v.IsValid() {
		return Struct{}, errors.NilPointer(errors.PhasePeek, nil, "")
	}
	if v.s.Def.Struct == nil {
		return Struct{}, errors.TypeMismatch(errors.PhasePeek, nil, v.s.Name+" ("+v.s.Kind().String()+")", "struct")
	}
	return Struct{v: v, def: v.s.Def.Struct}, nil
}

// Tuple returns a positional reader over a tuple value.
func (v Value) Tuple() (Struct, error) {
	if err := v.want(shape.KindTuple, "tuple"); err != nil {
		return Struct{}, err
	}
	return Struct{v: v, def: v.s.Def.Struct}, nil
}

func (s Struct) Value() Value           { return s.v }
func (s Struct) Kind() shape.StructKind { return s.def.Kind }
func (s Struct) Len() int               { return len(s.def.Fields) }

// Field returns the value of field i.
func (s Struct) Field(i int) (Value, error) {
	if i < 0 || i >= len(s.def.Fields) {
		return Value{}, errors.OutOfBounds(errors.PhasePeek, nil, i, len(s.def.Fields))
	}
	return fieldValue(&s.def.Fields[i], s.v.p), nil
}

// FieldByName returns the value of the field called name.
func (s Struct) FieldByName(name string) (Value, error) {
	i, ok := s.def.FieldIndex(name)
	if !ok {
		return Value{}, errors.FieldUnknown(errors.PhasePeek, nil, s.v.s.Name, name)
	}
	return fieldValue(&s.def.Fields[i], s.v.p), nil
}

// Fields iterates every field in declaration order.
func (s Struct) Fields() iter.Seq2[*shape.Field, Value] {
	return fieldsAt(s.def.Fields, s.v.p)
}

// FieldsForSerialize iterates the fields a serializer would emit. Skipped
// fields and empty omitempty fields are left out. Flattened structs and
// options are spliced into the parent; a flattened enum appears as a single
// entry named after its active variant.
func (s Struct) FieldsForSerialize() iter.Seq2[SerializedField, Value] {
	return func(yield func(SerializedField, Value) bool) {
		serializeFields(s.def.Fields, s.v.p, yield)
	}
}

// SerializedField names an entry produced by FieldsForSerialize.
type SerializedField struct {
	Field *shape.Field
	Name  string
	// Flattened is set when the entry was lifted out of a flattened field.
	Flattened bool
}

func fieldValue(f *shape.Field, base ptr.Const) Value {
	return Value{s: f.Shape(), p: base.Field(f.Offset)}
}

func fieldsAt(fields []shape.Field, base ptr.Const) iter.Seq2[*shape.Field, Value] {
	return func(yield func(*shape.Field, Value) bool) {
		for i := range fields {
			if !yield(&fields[i], fieldValue(&fields[i], base)) {
				return
			}
		}
	}
}

func serializeFields(fields []shape.Field, base ptr.Const, yield func(SerializedField, Value) bool) bool {
	for i := range fields {
		f := &fields[i]
		if f.Has(shape.FieldSkip) || f.Has(shape.FieldSkipSerializing) {
			continue
		}
		fv := fieldValue(f, base)
		if f.SkipIf != nil && f.SkipIf(base) {
			continue
		}
		if f.Has(shape.FieldOmitEmpty) && isEmpty(fv) {
			continue
		}
		if f.Has(shape.FieldFlatten) {
			if !flatten(f, fv, yield) {
				return false
			}
			continue
		}
		if !yield(SerializedField{Field: f, Name: f.Name}, fv) {
			return false
		}
	}
	return true
}

func flatten(f *shape.Field, fv Value, yield func(SerializedField, Value) bool) bool {
	switch fv.s.Kind() {
	case shape.KindStruct, shape.KindTuple:
		return serializeFields(fv.s.Def.Struct.Fields, fv.p, func(sf SerializedField, v Value) bool {
			sf.Flattened = true
			return yield(sf, v)
		})
	case shape.KindOption:
		inner, ok := fv.s.Def.Option.VTable.Get(fv.p)
		if !ok {
			return true
		}
		return flatten(f, Value{s: fv.s.Def.Option.Inner(), p: inner}, yield)
	case shape.KindEnum:
		variant, payload, ok := shape.ActiveVariant(fv.s, fv.p)
		if !ok {
			return true
		}
		out := fv
		if ps := variant.Payload(); ps != nil {
			out = Value{s: ps, p: payload}
		}
		return yield(SerializedField{Field: f, Name: variant.Name, Flattened: true}, out)
	}
	return yield(SerializedField{Field: f, Name: f.Name}, fv)
}

func isEmpty(v Value) bool {
	switch v.s.Kind() {
	case shape.KindOption:
		return !v.s.Def.Option.VTable.IsSome(v.p)
	case shape.KindList, shape.KindSlice:
		return shape.SequenceLen(v.s, v.p) == 0
	case shape.KindMap:
		return v.s.Def.Map.VTable.Len(v.p) == 0
	case shape.KindSet:
		return v.s.Def.Set.VTable.Len(v.p) == 0
	}
	return v.p.Value(v.s.GoType).IsZero()
}
