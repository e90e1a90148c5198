package witshape

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/shape-runtime/errors"
)

var primitiveTypes = map[reflect.Type]reflect.Type{
	reflect.TypeFor[wit.Bool]():   reflect.TypeFor[bool](),
	reflect.TypeFor[wit.U8]():     reflect.TypeFor[uint8](),
	reflect.TypeFor[wit.S8]():     reflect.TypeFor[int8](),
	reflect.TypeFor[wit.U16]():    reflect.TypeFor[uint16](),
	reflect.TypeFor[wit.S16]():    reflect.TypeFor[int16](),
	reflect.TypeFor[wit.U32]():    reflect.TypeFor[uint32](),
	reflect.TypeFor[wit.S32]():    reflect.TypeFor[int32](),
	reflect.TypeFor[wit.U64]():    reflect.TypeFor[uint64](),
	reflect.TypeFor[wit.S64]():    reflect.TypeFor[int64](),
	reflect.TypeFor[wit.F32]():    reflect.TypeFor[float32](),
	reflect.TypeFor[wit.F64]():    reflect.TypeFor[float64](),
	reflect.TypeFor[wit.Char]():   reflect.TypeFor[rune](),
	reflect.TypeFor[wit.String](): reflect.TypeFor[string](),
}

var unitType = reflect.TypeFor[struct{}]()

// GoTypeFor synthesizes a Go type able to hold values of witType:
//
//	record     struct with exported fields tagged wit:"name"
//	list<T>    []T
//	option<T>  *T
//	tuple      [N]T when all elements agree, otherwise struct{F0, F1, ...}
//	enum       smallest unsigned integer holding every case
//	flags      smallest unsigned integer with a bit per flag
//	variant    struct with one pointer field per case
//	result     struct{Ok *T; Err *E}
//	own/borrow uint32 handle
//
// Cases without payload are *struct{}.
func GoTypeFor(witType wit.Type) (reflect.Type, error) {
	return goTypeFor(witType, nil)
}

func goTypeFor(witType wit.Type, path []string) (reflect.Type, error) {
	if witType == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Path(path...).
			Detail("WIT type cannot be nil").
			Build()
	}
	if t, ok := primitiveTypes[reflect.TypeOf(witType)]; ok {
		return t, nil
	}
	td, ok := witType.(*wit.TypeDef)
	if !ok {
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type: %T", witType).
			Build()
	}

	switch kind := td.Kind.(type) {
	case *wit.Record:
		fields := make([]reflect.StructField, len(kind.Fields))
		for i, f := range kind.Fields {
			ft, err := goTypeFor(f.Type, childPath(path, f.Name))
			if err != nil {
				return nil, err
			}
			fields[i] = taggedField(f.Name, ft)
		}
		return structOf(fields, path)
	case *wit.List:
		elem, err := goTypeFor(kind.Type, childPath(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case *wit.Option:
		inner, err := goTypeFor(kind.Type, childPath(path, "[some]"))
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(inner), nil
	case *wit.Tuple:
		return tupleType(kind, path)
	case *wit.Enum:
		return unsignedFor(len(kind.Cases)-1, path)
	case *wit.Flags:
		if len(kind.Flags) > 64 {
			return nil, errors.New(errors.PhaseCompile, errors.KindInvalidData).
				Path(path...).
				Detail("flags type exceeds maximum 64 flags, got %d", len(kind.Flags)).
				Build()
		}
		return flagsType(len(kind.Flags)), nil
	case *wit.Variant:
		fields := make([]reflect.StructField, len(kind.Cases))
		for i, vc := range kind.Cases {
			ft, err := payloadType(vc.Type, childPath(path, vc.Name))
			if err != nil {
				return nil, err
			}
			fields[i] = taggedField(vc.Name, ft)
		}
		return structOf(fields, path)
	case *wit.Result:
		ok, err := payloadType(kind.OK, childPath(path, "ok"))
		if err != nil {
			return nil, err
		}
		fail, err := payloadType(kind.Err, childPath(path, "err"))
		if err != nil {
			return nil, err
		}
		return structOf([]reflect.StructField{taggedField("ok", ok), taggedField("err", fail)}, path)
	case *wit.Own, *wit.Borrow:
		return reflect.TypeFor[uint32](), nil
	case wit.Type:
		return goTypeFor(kind, path)
	}
	return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
		Path(path...).
		Detail("unsupported TypeDef kind: %T", td.Kind).
		Build()
}

func payloadType(t wit.Type, path []string) (reflect.Type, error) {
	if t == nil {
		return reflect.PointerTo(unitType), nil
	}
	pt, err := goTypeFor(t, path)
	if err != nil {
		return nil, err
	}
	return reflect.PointerTo(pt), nil
}

func tupleType(t *wit.Tuple, path []string) (reflect.Type, error) {
	elems := make([]reflect.Type, len(t.Types))
	same := true
	for i, et := range t.Types {
		gt, err := goTypeFor(et, childPath(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		elems[i] = gt
		same = same && gt == elems[0]
	}
	if same && len(elems) > 0 {
		return reflect.ArrayOf(len(elems), elems[0]), nil
	}
	fields := make([]reflect.StructField, len(elems))
	for i, gt := range elems {
		fields[i] = reflect.StructField{Name: "F" + strconv.Itoa(i), Type: gt}
	}
	return structOf(fields, path)
}

func unsignedFor(maxValue int, path []string) (reflect.Type, error) {
	switch {
	case maxValue <= 0xff:
		return reflect.TypeFor[uint8](), nil
	case maxValue <= 0xffff:
		return reflect.TypeFor[uint16](), nil
	case int64(maxValue) <= 0xffffffff:
		return reflect.TypeFor[uint32](), nil
	}
	return nil, errors.Overflow(errors.PhaseCompile, path, maxValue, "uint32")
}

func flagsType(n int) reflect.Type {
	switch {
	case n <= 8:
		return reflect.TypeFor[uint8]()
	case n <= 16:
		return reflect.TypeFor[uint16]()
	case n <= 32:
		return reflect.TypeFor[uint32]()
	}
	return reflect.TypeFor[uint64]()
}

func taggedField(witName string, t reflect.Type) reflect.StructField {
	return reflect.StructField{
		Name: exportName(witName),
		Type: t,
		Tag:  reflect.StructTag(`wit:"` + witName + `"`),
	}
}

// exportName turns a kebab-case WIT name into an exported Go identifier.
func exportName(witName string) string {
	var b strings.Builder
	upper := true
	for _, r := range strings.TrimPrefix(witName, "%") {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" || out[0] < 'A' || out[0] > 'Z' {
		out = "X" + out
	}
	return out
}

// structOf builds a struct type, reporting duplicate Go field names.
func structOf(fields []reflect.StructField, path []string) (reflect.Type, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			return nil, errors.New(errors.PhaseCompile, errors.KindInvalidData).
				Path(path...).
				Detail("names collide as Go field %s", f.Name).
				Build()
		}
		seen[f.Name] = true
	}
	return reflect.StructOf(fields), nil
}
