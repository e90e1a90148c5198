package shape

import (
	"cmp"
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
)

var stringerType = reflect.TypeFor[fmt.Stringer]()

const redacted = "[REDACTED]"

// hook returns the value at p as an interface through its pointer type, so
// both value and pointer receiver methods are visible.
func hook(t reflect.Type, p ptr.Const) any {
	return reflect.NewAt(t, p.Raw()).Interface()
}

func implements(t, iface reflect.Type) bool {
	if t == nil || t.Kind() == reflect.Interface {
		return false
	}
	return reflect.PointerTo(t).Implements(iface)
}

func marshalText(t reflect.Type, p ptr.Const) (string, error) {
	m, ok := hook(t, p).(encoding.TextMarshaler)
	if !ok {
		return "", fmt.Errorf("%s does not implement encoding.TextMarshaler", t)
	}
	text, err := m.MarshalText()
	return string(text), err
}

func debugInto(s *Shape, p ptr.Const, b *strings.Builder) {
	if s == nil || s.VTable.Debug == nil {
		b.WriteString("<unsupported>")
		return
	}
	s.VTable.Debug(p, b)
}

// DebugString formats the value at p with its shape's Debug slot.
func DebugString(s *Shape, p ptr.Const) string {
	var b strings.Builder
	debugInto(s, p, &b)
	return b.String()
}

func writeScalar(s *Shape, p ptr.Const, b *strings.Builder, quote bool) {
	v := p.Value(s.GoType)
	bits := s.Def.Scalar.Bits
	switch s.Def.Scalar.Affinity {
	case AffinityBool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case AffinityInt:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case AffinityUint:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case AffinityFloat:
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, bits))
	case AffinityComplex:
		b.WriteString(strconv.FormatComplex(v.Complex(), 'g', -1, bits))
	case AffinityString:
		if quote {
			b.WriteString(strconv.Quote(v.String()))
		} else {
			b.WriteString(v.String())
		}
	case AffinityText:
		text, err := marshalText(s.GoType, p)
		if err != nil {
			b.WriteString("<error: " + err.Error() + ">")
			return
		}
		b.WriteString(text)
	default:
		b.WriteString("<" + s.Name + ">")
	}
}

func writeFields(fields []Field, base ptr.Const, b *strings.Builder, tuple bool) {
	for i := range fields {
		f := &fields[i]
		if i > 0 {
			b.WriteString(", ")
		}
		if !tuple {
			b.WriteString(f.Name)
			b.WriteString(": ")
		}
		if f.Has(FieldSensitive) {
			b.WriteString(redacted)
			continue
		}
		debugInto(f.Shape(), base.Field(f.Offset), b)
	}
}

func writeStruct(name string, def *StructDef, p ptr.Const, b *strings.Builder) {
	b.WriteString(name)
	switch def.Kind {
	case StructKindUnit:
	case StructKindTuple:
		b.WriteByte('(')
		writeFields(def.Fields, p, b, true)
		b.WriteByte(')')
	default:
		if len(def.Fields) == 0 {
			return
		}
		b.WriteString(" { ")
		writeFields(def.Fields, p, b, false)
		b.WriteString(" }")
	}
}

func writeDebug(s *Shape, p ptr.Const, b *strings.Builder) {
	switch s.Def.Kind {
	case KindScalar:
		writeScalar(s, p, b, true)
	case KindStruct, KindTuple:
		writeStruct(s.Name, s.Def.Struct, p, b)
	case KindEnum:
		v, payload, ok := ActiveVariant(s, p)
		if !ok {
			if s.Def.Enum.Repr == EnumReprInteger {
				b.WriteString(s.Name)
				b.WriteByte('(')
				b.WriteString(fmt.Sprint(p.Value(s.GoType).Interface()))
				b.WriteByte(')')
				return
			}
			b.WriteString("<nil>")
			return
		}
		writeStruct(v.Name, &v.Data, payload, b)
	case KindUnion:
		b.WriteString(s.Name)
		i := s.Def.Union.VTable.Active(p)
		if i < 0 {
			b.WriteString(" {}")
			return
		}
		f := &s.Def.Union.Fields[i]
		b.WriteString(" { ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		debugInto(f.Shape(), s.Def.Union.VTable.Get(p, i), b)
		b.WriteString(" }")
	case KindArray, KindList, KindSlice:
		elem := elemShape(s)
		b.WriteByte('[')
		i := 0
		for e := range elements(s, p) {
			if i > 0 {
				b.WriteString(", ")
			}
			debugInto(elem, e, b)
			i++
		}
		b.WriteByte(']')
	case KindMap:
		writeMapDebug(s, p, b)
	case KindSet:
		writeSetDebug(s, p, b)
	case KindOption:
		inner, ok := s.Def.Option.VTable.Get(p)
		if !ok {
			b.WriteString("None")
			return
		}
		b.WriteString("Some(")
		debugInto(s.Def.Option.Inner(), inner, b)
		b.WriteByte(')')
	case KindPointer:
		d := s.Def.Pointer
		b.WriteString(pointerLabel(d.Known))
		b.WriteByte('(')
		inner, release, ok := d.VTable.Borrow(p)
		if !ok {
			b.WriteString("nil")
		} else {
			debugInto(d.Pointee(), inner, b)
			release()
		}
		b.WriteByte(')')
	default:
		b.WriteString("<" + s.Name + ">")
	}
}

func pointerLabel(k KnownPointer) string {
	switch k {
	case KnownPointerAtomic:
		return "Atomic"
	case KnownPointerWeak:
		return "Weak"
	case KnownPointerShared:
		return "Shared"
	}
	return "Pointer"
}

type debugEntry struct {
	key, value string
}

// maps and sets print in key order so the output is deterministic
func writeMapDebug(s *Shape, p ptr.Const, b *strings.Builder) {
	d := s.Def.Map
	var entries []debugEntry
	it := d.VTable.IterInit(p)
	for {
		k, v, ok := d.VTable.IterNext(it)
		if !ok {
			break
		}
		entries = append(entries, debugEntry{DebugString(d.Key(), k), DebugString(d.Value(), v)})
	}
	d.VTable.IterDealloc(it)
	slices.SortFunc(entries, func(a, b debugEntry) int { return cmp.Compare(a.key, b.key) })

	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.key)
		b.WriteString(": ")
		b.WriteString(e.value)
	}
	b.WriteByte('}')
}

func writeSetDebug(s *Shape, p ptr.Const, b *strings.Builder) {
	d := s.Def.Set
	var elems []string
	it := d.VTable.IterInit(p)
	for {
		e, ok := d.VTable.IterNext(it)
		if !ok {
			break
		}
		elems = append(elems, DebugString(d.Elem(), e))
	}
	d.VTable.IterDealloc(it)
	slices.Sort(elems)
	b.WriteByte('{')
	b.WriteString(strings.Join(elems, ", "))
	b.WriteByte('}')
}

func displayFunc(s *Shape) func(ptr.Const, *strings.Builder) {
	t := s.GoType
	if implements(t, stringerType) {
		return func(p ptr.Const, b *strings.Builder) {
			b.WriteString(hook(t, p).(fmt.Stringer).String())
		}
	}
	switch s.Def.Kind {
	case KindScalar:
		if s.Def.Scalar.Affinity == AffinityOpaque {
			return nil
		}
		return func(p ptr.Const, b *strings.Builder) { writeScalar(s, p, b, false) }
	case KindEnum:
		if s.Def.Enum.Repr != EnumReprInteger {
			return nil
		}
		return func(p ptr.Const, b *strings.Builder) {
			v, _, ok := ActiveVariant(s, p)
			if !ok {
				b.WriteString(fmt.Sprint(p.Value(t).Interface()))
				return
			}
			b.WriteString(v.Name)
		}
	}
	if s.Inner != nil {
		f := &s.Def.Struct.Fields[0]
		return func(p ptr.Const, b *strings.Builder) {
			inner := f.Shape()
			if inner.VTable.Display == nil {
				b.WriteString("<" + inner.Name + ">")
				return
			}
			inner.VTable.Display(p.Field(f.Offset), b)
		}
	}
	return nil
}

func parseError(s *Shape, text string, err error) error {
	kind := errors.KindInvalidData
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		kind = errors.KindOverflow
	}
	return errors.New(errors.PhaseConvert, kind).
		Shape(s.Name).
		Operation("parse").
		Value(text).
		Cause(err).
		Build()
}

func parseFunc(s *Shape) func(string, ptr.Uninit) (ptr.Mut, error) {
	t := s.GoType
	if implements(t, textUnmarshalerType) {
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			v := reflect.New(t)
			if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
				return ptr.Mut{}, parseError(s, text, err)
			}
			return dst.PutValue(v.Elem()), nil
		}
	}

	switch s.Def.Kind {
	case KindScalar:
		return parseScalarFunc(s)
	case KindEnum:
		if s.Def.Enum.Repr == EnumReprInteger {
			return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
				def := s.Def.Enum
				i, ok := def.VariantIndex(text)
				if !ok {
					n, err := strconv.ParseInt(text, 10, 64)
					if err != nil {
						return ptr.Mut{}, errors.VariantUnknown(errors.PhaseConvert, nil, s.Name, text)
					}
					i = slices.IndexFunc(def.Variants, func(v Variant) bool { return v.Discriminant == n })
					if i < 0 {
						return ptr.Mut{}, errors.VariantUnknown(errors.PhaseConvert, nil, s.Name, text)
					}
				}
				return def.VTable.Commit(dst, i, ptr.Mut{}), nil
			}
		}
		return nil
	}

	if s.Inner != nil {
		f := &s.Def.Struct.Fields[0]
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			inner := f.Shape()
			if inner.VTable.Parse == nil {
				return ptr.Mut{}, errors.Unsupported(errors.PhaseConvert, inner.Name, "parse")
			}
			if _, err := inner.VTable.Parse(text, dst.Field(f.Offset)); err != nil {
				return ptr.Mut{}, err
			}
			out := dst.AssumeInit()
			if err := checkInvariants(s, out.Const()); err != nil {
				drop(s, out)
				return ptr.Mut{}, err
			}
			return out, nil
		}
	}
	return nil
}

func parseScalarFunc(s *Shape) func(string, ptr.Uninit) (ptr.Mut, error) {
	t := s.GoType
	bits := s.Def.Scalar.Bits
	put := func(dst ptr.Uninit, set func(v reflect.Value)) ptr.Mut {
		v := reflect.New(t).Elem()
		set(v)
		return dst.PutValue(v)
	}

	switch s.Def.Scalar.Affinity {
	case AffinityString:
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			return put(dst, func(v reflect.Value) { v.SetString(text) }), nil
		}
	case AffinityBool:
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			x, err := strconv.ParseBool(text)
			if err != nil {
				return ptr.Mut{}, parseError(s, text, err)
			}
			return put(dst, func(v reflect.Value) { v.SetBool(x) }), nil
		}
	case AffinityInt:
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			x, err := strconv.ParseInt(text, 10, bits)
			if err != nil {
				return ptr.Mut{}, parseError(s, text, err)
			}
			return put(dst, func(v reflect.Value) { v.SetInt(x) }), nil
		}
	case AffinityUint:
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			x, err := strconv.ParseUint(text, 10, bits)
			if err != nil {
				return ptr.Mut{}, parseError(s, text, err)
			}
			return put(dst, func(v reflect.Value) { v.SetUint(x) }), nil
		}
	case AffinityFloat:
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			x, err := strconv.ParseFloat(text, bits)
			if err != nil {
				return ptr.Mut{}, parseError(s, text, err)
			}
			return put(dst, func(v reflect.Value) { v.SetFloat(x) }), nil
		}
	case AffinityComplex:
		return func(text string, dst ptr.Uninit) (ptr.Mut, error) {
			x, err := strconv.ParseComplex(text, bits)
			if err != nil {
				return ptr.Mut{}, parseError(s, text, err)
			}
			return put(dst, func(v reflect.Value) { v.SetComplex(x) }), nil
		}
	}
	return nil
}
