package shape

import (
	"encoding"
	"math"
	"reflect"

	"fortio.org/safecast"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
)

// TryFrom converts the value at src, of shape from, into dst of shape s.
// On success ownership of src has moved into dst.
func TryFrom(s *Shape, src ptr.Const, from *Shape, dst ptr.Uninit) (ptr.Mut, error) {
	if s.VTable.TryFrom == nil {
		if from.Is(s) {
			return dst.CopyFrom(src, s.GoType), nil
		}
		return ptr.Mut{}, errors.Conversion(from.Name, s.Name, nil)
	}
	return s.VTable.TryFrom(src, from, dst)
}

func tryFrom(s *Shape, src ptr.Const, from *Shape, dst ptr.Uninit) (ptr.Mut, error) {
	// shapes of one Go type from different origins share a memory layout
	if from.Is(s) || from.GoType == s.GoType {
		return dst.CopyFrom(src, s.GoType), nil
	}

	if s.Inner != nil {
		f := &s.Def.Struct.Fields[0]
		if _, err := TryFrom(f.Shape(), src, from, dst.Field(f.Offset)); err != nil {
			return ptr.Mut{}, errors.Conversion(from.Name, s.Name, err)
		}
		out := dst.AssumeInit()
		if err := checkInvariants(s, out.Const()); err != nil {
			drop(s, out)
			return ptr.Mut{}, err
		}
		return out, nil
	}

	// a transparent source converts through the value it wraps
	if from.Inner != nil {
		f := &from.Def.Struct.Fields[0]
		return TryFrom(s, src.Field(f.Offset), f.Shape(), dst)
	}

	switch s.Def.Kind {
	case KindScalar:
		if from.Def.Kind == KindScalar {
			return convertScalar(s, src, from, dst)
		}
	case KindEnum:
		if s.Def.Enum.Repr == EnumReprInteger && from.Def.Kind == KindScalar {
			return enumFromInteger(s, src, from, dst)
		}
	case KindOption:
		d := s.Def.Option
		inner := d.Inner()
		fresh := d.VTable.AllocInner()
		if _, err := TryFrom(inner, src, from, fresh); err != nil {
			return ptr.Mut{}, errors.Conversion(from.Name, s.Name, err)
		}
		return d.VTable.InitSome(dst, fresh.AssumeInit()), nil
	}
	return ptr.Mut{}, errors.Conversion(from.Name, s.Name, nil)
}

func enumFromInteger(s *Shape, src ptr.Const, from *Shape, dst ptr.Uninit) (ptr.Mut, error) {
	var n int64
	v := src.Value(from.GoType)
	switch from.Def.Scalar.Affinity {
	case AffinityInt:
		n = v.Int()
	case AffinityUint:
		var err error
		if n, err = safecast.Conv[int64](v.Uint()); err != nil {
			return ptr.Mut{}, errors.Overflow(errors.PhaseConvert, nil, v.Uint(), s.Name)
		}
	default:
		return ptr.Mut{}, errors.Conversion(from.Name, s.Name, nil)
	}
	d := s.Def.Enum
	for i := range d.Variants {
		if d.Variants[i].Discriminant == n {
			return d.VTable.Commit(dst, i, ptr.Mut{}), nil
		}
	}
	return ptr.Mut{}, errors.New(errors.PhaseConvert, errors.KindVariantUnknown).
		Shape(s.Name).
		Operation("try_from").
		Value(n).
		Detail("no variant with discriminant %d", n).
		Build()
}

func convertScalar(s *Shape, src ptr.Const, from *Shape, dst ptr.Uninit) (ptr.Mut, error) {
	t := s.GoType
	sv := src.Value(from.GoType)
	out := reflect.New(t).Elem()
	to, fa := s.Def.Scalar.Affinity, from.Def.Scalar.Affinity

	overflow := func(v any) error { return errors.Overflow(errors.PhaseConvert, nil, v, s.Name) }
	mismatch := func(cause error) error { return errors.Conversion(from.Name, s.Name, cause) }

	switch {
	case to == fa && (to == AffinityBool || to == AffinityString):
		out.Set(sv.Convert(t))
	case to == AffinityComplex && fa == AffinityComplex:
		c := sv.Complex()
		if out.OverflowComplex(c) {
			return ptr.Mut{}, overflow(c)
		}
		out.SetComplex(c)
	case to == AffinityInt && isNumeric(fa):
		x, err := toInt64(sv, fa)
		if err != nil {
			return ptr.Mut{}, mismatch(err)
		}
		if out.OverflowInt(x) {
			return ptr.Mut{}, overflow(x)
		}
		out.SetInt(x)
	case to == AffinityUint && isNumeric(fa):
		x, err := toUint64(sv, fa)
		if err != nil {
			return ptr.Mut{}, mismatch(err)
		}
		if out.OverflowUint(x) {
			return ptr.Mut{}, overflow(x)
		}
		out.SetUint(x)
	case to == AffinityFloat && isNumeric(fa):
		var f float64
		switch fa {
		case AffinityInt:
			f = float64(sv.Int())
		case AffinityUint:
			f = float64(sv.Uint())
		default:
			f = sv.Float()
		}
		if out.OverflowFloat(f) {
			return ptr.Mut{}, overflow(f)
		}
		out.SetFloat(f)
	case to == AffinityText && (fa == AffinityString || fa == AffinityText):
		text := sv.String()
		if fa == AffinityText {
			var err error
			if text, err = marshalText(from.GoType, src); err != nil {
				return ptr.Mut{}, mismatch(err)
			}
		}
		if err := out.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
			return ptr.Mut{}, mismatch(err)
		}
	case to == AffinityString && fa == AffinityText:
		text, err := marshalText(from.GoType, src)
		if err != nil {
			return ptr.Mut{}, mismatch(err)
		}
		out.SetString(text)
	default:
		return ptr.Mut{}, mismatch(nil)
	}
	return dst.PutValue(out), nil
}

func isNumeric(a Affinity) bool {
	return a == AffinityInt || a == AffinityUint || a == AffinityFloat
}

func toInt64(v reflect.Value, a Affinity) (int64, error) {
	switch a {
	case AffinityInt:
		return v.Int(), nil
	case AffinityUint:
		return safecast.Conv[int64](v.Uint())
	}
	f := v.Float()
	if f != math.Trunc(f) {
		return 0, errors.InvalidData(errors.PhaseConvert, nil, "float has a fractional part")
	}
	return safecast.Convert[int64](f)
}

func toUint64(v reflect.Value, a Affinity) (uint64, error) {
	switch a {
	case AffinityUint:
		return v.Uint(), nil
	case AffinityInt:
		return safecast.Conv[uint64](v.Int())
	}
	f := v.Float()
	if f != math.Trunc(f) {
		return 0, errors.InvalidData(errors.PhaseConvert, nil, "float has a fractional part")
	}
	return safecast.Convert[uint64](f)
}

func tryIntoInnerFunc(s *Shape) func(ptr.Const, ptr.Uninit) (ptr.Mut, error) {
	if s.Inner != nil {
		f := &s.Def.Struct.Fields[0]
		return func(src ptr.Const, dst ptr.Uninit) (ptr.Mut, error) {
			return dst.CopyFrom(src.Field(f.Offset), f.Shape().GoType), nil
		}
	}
	if s.Def.Kind == KindOption {
		d := s.Def.Option
		return func(src ptr.Const, dst ptr.Uninit) (ptr.Mut, error) {
			inner, ok := d.VTable.Get(src)
			if !ok {
				return ptr.Mut{}, errors.NilPointer(errors.PhaseConvert, nil, s.Name)
			}
			return dst.CopyFrom(inner, d.Inner().GoType), nil
		}
	}
	return nil
}

func tryBorrowInnerFunc(s *Shape) func(ptr.Const) (ptr.Const, error) {
	if s.Inner != nil {
		f := &s.Def.Struct.Fields[0]
		return func(src ptr.Const) (ptr.Const, error) { return src.Field(f.Offset), nil }
	}
	if s.Def.Kind == KindOption {
		d := s.Def.Option
		return func(src ptr.Const) (ptr.Const, error) {
			inner, ok := d.VTable.Get(src)
			if !ok {
				return ptr.Const{}, errors.NilPointer(errors.PhaseConvert, nil, s.Name)
			}
			return inner, nil
		}
	}
	return nil
}
