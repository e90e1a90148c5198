package shape

import (
	"encoding"
	"reflect"
	"strings"
	"unsafe"

	"github.com/wippyai/shape-runtime/ptr"
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func (r *Registry) derive(t reflect.Type) *Shape {
	s := &Shape{
		ID:     TypeID{t: t},
		GoType: t,
		Name:   typeName(t),
		Layout: Layout{Size: t.Size(), Align: uintptr(t.Align())},
	}
	s.Def = r.deriveDef(t)
	if s.Def.Kind == KindStruct {
		for i := range s.Def.Struct.Fields {
			f := &s.Def.Struct.Fields[i]
			if f.Has(FieldTransparent) && len(s.Def.Struct.Fields) == 1 {
				s.Inner = f.shape
			}
		}
	}
	s.dropHook = runsDropHook(t, s.Fields())
	s.VTable = deriveVTable(s)
	return s
}

func (r *Registry) deriveDef(t reflect.Type) Def {
	r.mu.RLock()
	enum, isEnum := r.enums[t]
	intEnum, isIntEnum := r.intEnums[t]
	r.mu.RUnlock()

	switch {
	case isEnum:
		return Def{Kind: KindEnum, Enum: r.interfaceEnumDef(t, enum)}
	case isIntEnum:
		return Def{Kind: KindEnum, Enum: intEnumDef(t, intEnum)}
	}

	if d, ok := r.knownGeneric(t); ok {
		return d
	}

	if isTextType(t) {
		return Def{Kind: KindScalar, Scalar: &ScalarDef{Affinity: AffinityText}}
	}

	switch t.Kind() {
	case reflect.Bool:
		return scalarDef(AffinityBool, 1)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalarDef(AffinityInt, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return scalarDef(AffinityUint, t.Bits())
	case reflect.Float32, reflect.Float64:
		return scalarDef(AffinityFloat, t.Bits())
	case reflect.Complex64, reflect.Complex128:
		return scalarDef(AffinityComplex, t.Bits())
	case reflect.String:
		return scalarDef(AffinityString, 0)
	case reflect.Struct:
		return r.deriveStruct(t)
	case reflect.Array:
		return Def{Kind: KindArray, Array: &ArrayDef{
			Len:    t.Len(),
			Elem:   r.lazy(t.Elem()),
			VTable: ArrayVTable{AsPtr: func(p ptr.Const) ptr.Const { return p }},
		}}
	case reflect.Slice:
		return Def{Kind: KindList, List: r.listDef(t)}
	case reflect.Map:
		if isEmptyStruct(t.Elem()) {
			return Def{Kind: KindSet, Set: r.setDef(t)}
		}
		return Def{Kind: KindMap, Map: r.mapDef(t)}
	case reflect.Pointer:
		return Def{Kind: KindOption, Option: r.pointerOptionDef(t)}
	}
	// func, chan, unsafe.Pointer and unregistered interfaces
	return scalarDef(AffinityOpaque, 0)
}

func scalarDef(a Affinity, bits int) Def {
	return Def{Kind: KindScalar, Scalar: &ScalarDef{Affinity: a, Bits: bits}}
}

func isTextType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	return (t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)) &&
		pt.Implements(textUnmarshalerType)
}

func isEmptyStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

func (r *Registry) deriveStruct(t reflect.Type) Def {
	kind := StructKindStruct
	union := false
	var fields []Field

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == tupleMarkerType {
			kind = StructKindTuple
			continue
		}
		if sf.Anonymous && sf.Type == unionMarkerType {
			union = true
			continue
		}
		if !sf.IsExported() {
			continue
		}

		tag := parseTag(sf.Tag.Get("shape"))
		if tag.omit {
			continue
		}

		name := sf.Name
		if tag.name != "" {
			name = tag.name
		}
		flags := tag.flags
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && tag.name == "" {
			flags |= FieldFlatten
		}

		f := Field{
			Name:        name,
			GoName:      sf.Name,
			Index:       len(fields),
			Offset:      sf.Offset,
			Flags:       flags,
			DefaultText: tag.defaultText,
		}
		ft := sf.Type
		if union {
			// union members are pointers; the field shape is the pointee
			if ft.Kind() != reflect.Pointer {
				continue
			}
			ft = ft.Elem()
		}
		f.shape = r.lazy(ft)
		if flags.Has(FieldOmitEmpty) {
			off, typ := sf.Offset, sf.Type
			f.SkipIf = func(p ptr.Const) bool { return p.Field(off).Value(typ).IsZero() }
		}
		fields = append(fields, f)
	}

	if union {
		return Def{Kind: KindUnion, Union: &UnionDef{Fields: fields, VTable: unionVTable(fields)}}
	}
	if kind == StructKindTuple {
		for i := range fields {
			fields[i].Name = positionalName(i)
		}
		return Def{Kind: KindTuple, Struct: &StructDef{Kind: StructKindTuple, Fields: fields}}
	}
	if len(fields) == 0 {
		kind = StructKindUnit
	}
	return Def{Kind: KindStruct, Struct: &StructDef{Kind: kind, Fields: fields}}
}

type fieldTag struct {
	name        string
	defaultText string
	flags       FieldFlags
	omit        bool
}

func parseTag(tag string) fieldTag {
	var out fieldTag
	if tag == "" {
		return out
	}
	if tag == "-" {
		out.omit = true
		return out
	}
	parts := strings.Split(tag, ",")
	out.name = parts[0]
	for _, opt := range parts[1:] {
		key, val, hasVal := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "flatten":
			out.flags |= FieldFlatten
		case "skip":
			out.flags |= FieldSkip
		case "skip_serializing":
			out.flags |= FieldSkipSerializing
		case "sensitive":
			out.flags |= FieldSensitive
		case "omitempty":
			out.flags |= FieldOmitEmpty
		case "transparent":
			out.flags |= FieldTransparent
		case "default":
			out.flags |= FieldHasDefault
			if hasVal {
				out.defaultText = val
			}
		}
	}
	return out
}

func unionVTable(fields []Field) UnionVTable {
	return UnionVTable{
		Active: func(p ptr.Const) int {
			for i := range fields {
				if *(*unsafe.Pointer)(p.Field(fields[i].Offset).Raw()) != nil {
					return i
				}
			}
			return -1
		},
		Get: func(p ptr.Const, i int) ptr.Const {
			return ptr.NewConst(*(*unsafe.Pointer)(p.Field(fields[i].Offset).Raw()))
		},
		Commit: func(dst ptr.Mut, i int, value ptr.Mut) {
			*(*unsafe.Pointer)(dst.Field(fields[i].Offset).Raw()) = value.Raw()
		},
	}
}
