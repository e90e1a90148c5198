package partial

import (
	"reflect"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/peek"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/region"
	"github.com/wippyai/shape-runtime/shape"
)

// Set writes v as the whole value of the current frame, replacing anything
// written so far. Values of another shape are converted through the frame
// shape's TryFrom slot; a variant value is accepted by its enum.
func (p *Partial) Set(v any) error {
	f, err := p.check("set")
	if err != nil {
		return err
	}
	if v == nil {
		return errors.NilPointer(errors.PhasePartial, p.Path(), f.s.Name)
	}
	rv := reflect.ValueOf(v)
	src := reflect.New(rv.Type())
	src.Elem().Set(rv)
	return p.put(f, ptr.NewConst(src.UnsafePointer()), shape.OfType(rv.Type()), "set")
}

// SetShape moves the value at src, described by from, into the current
// frame. The caller must not drop src afterwards.
func (p *Partial) SetShape(src ptr.Const, from *shape.Shape) error {
	f, err := p.check("set_shape")
	if err != nil {
		return err
	}
	if from == nil || src.IsNil() {
		return errors.NilPointer(errors.PhasePartial, p.Path(), f.s.Name)
	}
	return p.put(f, src, from, "set_shape")
}

// SetBorrowed copies a value that borrows from the region tok was taken
// from. Build fails unless that region is still live and outlives the
// builder's output region.
func (p *Partial) SetBorrowed(src peek.Value, tok region.Token) error {
	f, err := p.check("set_borrowed")
	if err != nil {
		return err
	}
	if !src.IsValid() {
		return errors.NilPointer(errors.PhasePartial, p.Path(), f.s.Name)
	}
	if err := region.Check(p.opts.region(), []region.Token{tok}); err != nil {
		return err
	}
	if err := p.put(f, src.Ptr(), src.Shape(), "set_borrowed"); err != nil {
		return err
	}
	f.tokens = append(f.tokens, tok)
	return nil
}

// SetDefault writes the default value of the frame's shape.
func (p *Partial) SetDefault() error {
	f, err := p.check("set_default")
	if err != nil {
		return err
	}
	if f.s.VTable.Default == nil {
		return errors.New(errors.PhasePartial, errors.KindUnsupported).
			Path(p.Path()...).
			Shape(f.s.Name).
			Operation("default").
			Build()
	}
	tmp := ptr.Alloc(f.s.GoType)
	f.s.VTable.Default(tmp)
	p.replace(f, tmp.AssumeInit().Const())
	return nil
}

// SetFromText parses text with the frame shape's Parse slot.
func (p *Partial) SetFromText(text string) error {
	f, err := p.check("set_from_text")
	if err != nil {
		return err
	}
	if f.s.VTable.Parse == nil {
		return errors.New(errors.PhasePartial, errors.KindUnsupported).
			Path(p.Path()...).
			Shape(f.s.Name).
			Operation("parse").
			Build()
	}
	tmp := ptr.Alloc(f.s.GoType)
	out, err := f.s.VTable.Parse(text, tmp)
	if err != nil {
		return err
	}
	p.replace(f, out.Const())
	return nil
}

// SetField sets the named field in one step.
func (p *Partial) SetField(name string, v any) error {
	if err := p.BeginField(name); err != nil {
		return err
	}
	return p.setAndEnd(v)
}

// SetNthField sets field i in one step.
func (p *Partial) SetNthField(i int, v any) error {
	if err := p.BeginNthField(i); err != nil {
		return err
	}
	return p.setAndEnd(v)
}

// setAndEnd fills the frame just pushed. On failure the frame is abandoned
// and the slot stays unset; a value it held before BeginField was already
// dropped by the push.
func (p *Partial) setAndEnd(v any) error {
	if err := p.Set(v); err != nil {
		p.popDiscard()
		return err
	}
	if err := p.End(); err != nil {
		p.popDiscard()
		return err
	}
	return nil
}

func (p *Partial) put(f *frame, src ptr.Const, from *shape.Shape, op string) error {
	if from.Is(f.s) || from.GoType == f.s.GoType {
		p.replace(f, src)
		return nil
	}
	if i, ok := variantFor(f.s, from.GoType); ok {
		tmp := ptr.Alloc(f.s.GoType)
		tmp.AssumeInit().Value(f.s.GoType).Set(src.Value(f.s.Def.Enum.Variants[i].GoType))
		p.replace(f, tmp.AssumeInit().Const())
		return nil
	}
	tmp := ptr.Alloc(f.s.GoType)
	out, err := shape.TryFrom(f.s, src, from, tmp)
	if err != nil {
		return errors.New(errors.PhasePartial, errors.KindConversion).
			Path(p.Path()...).
			Shape(f.s.Name).
			Operation(op).
			Detail("cannot store %s", from.Name).
			Cause(err).
			Build()
	}
	p.replace(f, out.Const())
	return nil
}

// replace drops what the frame holds and moves the value at src in.
func (p *Partial) replace(f *frame, src ptr.Const) {
	f.deinit()
	f.data.CopyFrom(src, f.s.GoType)
	f.full = true
}

// variantFor finds the interface enum variant whose dynamic type is t.
func variantFor(s *shape.Shape, t reflect.Type) (int, bool) {
	if s.Kind() != shape.KindEnum || s.Def.Enum.Repr != shape.EnumReprInterface {
		return -1, false
	}
	for i := range s.Def.Enum.Variants {
		if s.Def.Enum.Variants[i].GoType == t {
			return i, true
		}
	}
	return -1, false
}
