package peek

import (
	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

// Option reads an optional value.
type Option struct {
	v   Value
	def *shape.OptionDef
}

func (v Value) Option() (Option, error) {
	if err := v.want(shape.KindOption, "option"); err != nil {
		return Option{}, err
	}
	return Option{v: v, def: v.s.Def.Option}, nil
}

func (o Option) IsSome() bool        { return o.def.VTable.IsSome(o.v.p) }
func (o Option) IsNone() bool        { return !o.IsSome() }
func (o Option) Inner() *shape.Shape { return o.def.Inner() }

// Value returns the contained value; ok is false for None.
func (o Option) Value() (Value, bool) {
	p, ok := o.def.VTable.Get(o.v.p)
	if !ok {
		return Value{}, false
	}
	return Value{s: o.def.Inner(), p: p}, true
}

// SmartPointer reads a shared or weak reference.
type SmartPointer struct {
	v   Value
	def *shape.PointerDef
}

func (v Value) SmartPointer() (SmartPointer, error) {
	if err := v.want(shape.KindPointer, "smart_pointer"); err != nil {
		return SmartPointer{}, err
	}
	return SmartPointer{v: v, def: v.s.Def.Pointer}, nil
}

func (sp SmartPointer) Flags() shape.PointerFlags { return sp.def.Flags }
func (sp SmartPointer) Known() shape.KnownPointer { return sp.def.Known }
func (sp SmartPointer) Pointee() *shape.Shape     { return sp.def.Pointee() }

// Borrow gives read access to the target. release must be called when done;
// lock-backed pointers hold a read lock until then. Nil pointers and weak
// pointers whose target was collected fail with a nil pointer error.
func (sp SmartPointer) Borrow() (Value, func(), error) {
	inner, release, ok := sp.def.VTable.Borrow(sp.v.p)
	if !ok {
		return Value{}, func() {}, errors.NilPointer(errors.PhasePeek, nil, sp.v.s.Name)
	}
	return Value{s: sp.def.Pointee(), p: inner}, release, nil
}
