package peek

import (
	"iter"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/shape"
)

// Enum reads the active variant of an enum value.
type Enum struct {
	v       Value
	variant *shape.Variant
	payload ptr.Const
}

// Enum returns a variant reader. A nil interface enum has no active variant
// and is reported as uninitialized.
func (v Value) Enum() (Enum, error) {
	if err := v.want(shape.KindEnum, "enum"); err != nil {
		return Enum{}, err
	}
	variant, payload, ok := shape.ActiveVariant(v.s, v.p)
	if !ok {
		return Enum{}, errors.New(errors.PhasePeek, errors.KindUninitializedValue).
			Shape(v.s.Name).
			Detail("no active variant").
			Build()
	}
	return Enum{v: v, variant: variant, payload: payload}, nil
}

func (e Enum) Value() Value            { return e.v }
func (e Enum) Variant() *shape.Variant { return e.variant }
func (e Enum) VariantName() string     { return e.variant.Name }
func (e Enum) VariantIndex() int       { return e.variant.Index }
func (e Enum) Discriminant() int64     { return e.variant.Discriminant }
func (e Enum) Len() int                { return len(e.variant.Data.Fields) }
func (e Enum) IsUnit() bool            { return e.variant.IsUnit() }

// Payload returns the variant's storage as a value of its own shape. It is
// invalid for fieldless variants of integer enums.
func (e Enum) Payload() Value {
	ps := e.variant.Payload()
	if ps == nil {
		return Value{}
	}
	return Value{s: ps, p: e.payload}
}

// Field returns field i of the active variant.
func (e Enum) Field(i int) (Value, error) {
	fields := e.variant.Data.Fields
	if i < 0 || i >= len(fields) {
		return Value{}, errors.OutOfBounds(errors.PhasePeek, []string{e.variant.Name}, i, len(fields))
	}
	return fieldValue(&fields[i], e.payload), nil
}

// FieldByName returns the named field of the active variant.
func (e Enum) FieldByName(name string) (Value, error) {
	i, ok := e.variant.Data.FieldIndex(name)
	if !ok {
		return Value{}, errors.FieldUnknown(errors.PhasePeek, []string{e.variant.Name}, e.v.s.Name, name)
	}
	return fieldValue(&e.variant.Data.Fields[i], e.payload), nil
}

// Fields iterates the fields of the active variant.
func (e Enum) Fields() iter.Seq2[*shape.Field, Value] {
	return fieldsAt(e.variant.Data.Fields, e.payload)
}

// Union reads a struct of mutually exclusive pointer fields.
type Union struct {
	v   Value
	def *shape.UnionDef
}

func (v Value) Union() (Union, error) {
	if err := v.want(shape.KindUnion, "union"); err != nil {
		return Union{}, err
	}
	return Union{v: v, def: v.s.Def.Union}, nil
}

func (u Union) Value() Value { return u.v }

// Active returns the set field and its pointee. ok is false when every
// field is nil.
func (u Union) Active() (f *shape.Field, v Value, ok bool) {
	i := u.def.VTable.Active(u.v.p)
	if i < 0 {
		return nil, Value{}, false
	}
	f = &u.def.Fields[i]
	return f, Value{s: f.Shape(), p: u.def.VTable.Get(u.v.p, i)}, true
}
