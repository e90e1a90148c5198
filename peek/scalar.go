package peek

import (
	"encoding"
	"reflect"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

// Scalar reads a primitive value.
type Scalar struct {
	v   Value
	def *shape.ScalarDef
}

func (v Value) Scalar() (Scalar, error) {
	if err := v.want(shape.KindScalar, "scalar"); err != nil {
		return Scalar{}, err
	}
	return Scalar{v: v, def: v.s.Def.Scalar}, nil
}

func (s Scalar) Affinity() shape.Affinity { return s.def.Affinity }
func (s Scalar) Bits() int                { return s.def.Bits }

func (s Scalar) rv() reflect.Value { return s.v.p.Value(s.v.s.GoType) }

func (s Scalar) mismatch(want string) error {
	return errors.TypeMismatch(errors.PhasePeek, nil, s.v.s.Name, want)
}

func (s Scalar) Bool() (bool, error) {
	if s.def.Affinity != shape.AffinityBool {
		return false, s.mismatch("bool")
	}
	return s.rv().Bool(), nil
}

func (s Scalar) Int() (int64, error) {
	if s.def.Affinity != shape.AffinityInt {
		return 0, s.mismatch("int")
	}
	return s.rv().Int(), nil
}

func (s Scalar) Uint() (uint64, error) {
	if s.def.Affinity != shape.AffinityUint {
		return 0, s.mismatch("uint")
	}
	return s.rv().Uint(), nil
}

func (s Scalar) Float() (float64, error) {
	if s.def.Affinity != shape.AffinityFloat {
		return 0, s.mismatch("float")
	}
	return s.rv().Float(), nil
}

func (s Scalar) Complex() (complex128, error) {
	if s.def.Affinity != shape.AffinityComplex {
		return 0, s.mismatch("complex")
	}
	return s.rv().Complex(), nil
}

// Text returns string values as they are and text types in their marshaled
// form.
func (s Scalar) Text() (string, error) {
	switch s.def.Affinity {
	case shape.AffinityString:
		return s.rv().String(), nil
	case shape.AffinityText:
		m, ok := reflect.NewAt(s.v.s.GoType, s.v.p.Raw()).Interface().(encoding.TextMarshaler)
		if !ok {
			return "", s.mismatch("text")
		}
		text, err := m.MarshalText()
		if err != nil {
			return "", errors.New(errors.PhasePeek, errors.KindOperationFailed).
				Shape(s.v.s.Name).
				Operation("marshal_text").
				Cause(err).
				Build()
		}
		return string(text), nil
	}
	return "", s.mismatch("string")
}
