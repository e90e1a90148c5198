package shape

import (
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
)

func defaultFunc(s *Shape) func(ptr.Uninit) ptr.Mut {
	t := s.GoType
	withHook := func(fill func(ptr.Uninit) ptr.Mut) func(ptr.Uninit) ptr.Mut {
		if !implements(t, defaulterType) {
			return fill
		}
		return func(dst ptr.Uninit) ptr.Mut {
			out := fill(dst)
			hook(t, out.Const()).(Defaulter).SetDefaults()
			return out
		}
	}
	zero := func(dst ptr.Uninit) ptr.Mut { return dst.Zero(t) }

	switch s.Def.Kind {
	case KindStruct, KindTuple:
		fields := s.Def.Struct.Fields
		return withHook(func(dst ptr.Uninit) ptr.Mut {
			out := dst.Zero(t)
			for i := range fields {
				// errors are impossible to report from here; the field keeps its zero value
				_ = DefaultField(&fields[i], dst.Field(fields[i].Offset))
			}
			return out
		})
	case KindArray:
		d := s.Def.Array
		return withHook(func(dst ptr.Uninit) ptr.Mut {
			out := dst.Zero(t)
			elem := d.Elem()
			if elem.VTable.Default == nil {
				return out
			}
			for i := 0; i < d.Len; i++ {
				elem.VTable.Default(dst.Add(uintptr(i) * elem.Layout.Size))
			}
			return out
		})
	case KindEnum:
		d := s.Def.Enum
		if d.Repr != EnumReprInteger {
			return nil
		}
		i := slices.IndexFunc(d.Variants, func(v Variant) bool { return v.Discriminant == 0 })
		if i < 0 {
			return nil
		}
		return withHook(func(dst ptr.Uninit) ptr.Mut { return d.VTable.Commit(dst, i, ptr.Mut{}) })
	case KindUnion, KindSlice:
		return nil
	}
	return withHook(zero)
}

// DefaultField writes the default of f into dst: its default text parsed
// through the field shape, or the shape's Default slot.
func DefaultField(f *Field, dst ptr.Uninit) error {
	fs := f.Shape()
	if f.DefaultText != "" {
		if fs.VTable.Parse == nil {
			return errors.Unsupported(errors.PhaseShape, fs.Name, "parse")
		}
		if _, err := fs.VTable.Parse(f.DefaultText, dst); err != nil {
			Logger().Debug("field default text rejected",
				zap.String("field", f.Name),
				zap.String("text", f.DefaultText),
				zap.Error(err))
			return err
		}
		return nil
	}
	if fs.VTable.Default == nil {
		return errors.Unsupported(errors.PhaseShape, fs.Name, "default")
	}
	fs.VTable.Default(dst)
	return nil
}

func cloneFunc(s *Shape) func(ptr.Const, ptr.Uninit) ptr.Mut {
	t := s.GoType
	switch s.Def.Kind {
	case KindScalar, KindPointer:
		// smart pointer clones share the target
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut { return dst.CopyFrom(src, t) }
	case KindStruct, KindTuple:
		fields := s.Def.Struct.Fields
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			// the shallow copy carries unexported state; described fields are then deep-cloned
			out := dst.CopyFrom(src, t)
			cloneFields(fields, src, dst)
			return out
		}
	case KindEnum:
		d := s.Def.Enum
		if d.Repr == EnumReprInteger {
			return func(src ptr.Const, dst ptr.Uninit) ptr.Mut { return dst.CopyFrom(src, t) }
		}
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			v, payload, ok := ActiveVariant(s, src)
			if !ok {
				return dst.Zero(t)
			}
			fresh := d.VTable.AllocPayload(v.Index)
			cloneInto(v.Payload(), payload, fresh)
			return d.VTable.Commit(dst, v.Index, fresh.AssumeInit())
		}
	case KindUnion:
		d := s.Def.Union
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			out := dst.Zero(t)
			i := d.VTable.Active(src)
			if i < 0 {
				return out
			}
			fs := d.Fields[i].Shape()
			fresh := ptr.Alloc(fs.GoType)
			cloneInto(fs, d.VTable.Get(src, i), fresh)
			d.VTable.Commit(out, i, fresh.AssumeInit())
			return out
		}
	case KindArray:
		d := s.Def.Array
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			out := dst.CopyFrom(src, t)
			elem := d.Elem()
			for i := 0; i < d.Len; i++ {
				off := uintptr(i) * elem.Layout.Size
				cloneInto(elem, src.Add(off), dst.Add(off))
			}
			return out
		}
	case KindList:
		d := s.Def.List
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			sv := src.Value(t)
			if sv.IsNil() {
				return dst.Zero(t)
			}
			n := sv.Len()
			nv := reflect.MakeSlice(t, n, n)
			elem := d.Elem()
			for i := 0; i < n; i++ {
				cloneInto(elem, d.VTable.Get(src, i), ptr.NewUninit(nv.Index(i).Addr().UnsafePointer()))
			}
			return dst.PutValue(nv)
		}
	case KindMap:
		d := s.Def.Map
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			if src.Value(t).IsNil() {
				return dst.Zero(t)
			}
			out := d.VTable.Init(dst, d.VTable.Len(src))
			it := d.VTable.IterInit(src)
			defer d.VTable.IterDealloc(it)
			for {
				k, v, ok := d.VTable.IterNext(it)
				if !ok {
					break
				}
				ks, vs := d.Key(), d.Value()
				nk, nv := ptr.Alloc(ks.GoType), ptr.Alloc(vs.GoType)
				cloneInto(ks, k, nk)
				cloneInto(vs, v, nv)
				d.VTable.Insert(out, nk.AssumeInit(), nv.AssumeInit())
			}
			return out
		}
	case KindSet:
		d := s.Def.Set
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			if src.Value(t).IsNil() {
				return dst.Zero(t)
			}
			out := d.VTable.Init(dst, d.VTable.Len(src))
			it := d.VTable.IterInit(src)
			defer d.VTable.IterDealloc(it)
			for {
				e, ok := d.VTable.IterNext(it)
				if !ok {
					break
				}
				es := d.Elem()
				ne := ptr.Alloc(es.GoType)
				cloneInto(es, e, ne)
				d.VTable.Insert(out, ne.AssumeInit())
			}
			return out
		}
	case KindOption:
		d := s.Def.Option
		return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			inner, ok := d.VTable.Get(src)
			if !ok {
				return d.VTable.InitNone(dst)
			}
			fresh := d.VTable.AllocInner()
			cloneInto(d.Inner(), inner, fresh)
			return d.VTable.InitSome(dst, fresh.AssumeInit())
		}
	}
	return nil
}

func cloneInto(s *Shape, src ptr.Const, dst ptr.Uninit) {
	if s.VTable.Clone == nil {
		dst.CopyFrom(src, s.GoType)
		return
	}
	s.VTable.Clone(src, dst)
}

func cloneFields(fields []Field, src ptr.Const, dst ptr.Uninit) {
	for i := range fields {
		f := &fields[i]
		cloneInto(f.Shape(), src.Field(f.Offset), dst.Field(f.Offset))
	}
}

// drop runs destructor hooks for the value at p and its owned children,
// children in reverse declaration order, then zeroes p.
func drop(s *Shape, p ptr.Mut) {
	t := s.GoType
	if !s.NeedsDrop() {
		p.Value(t).SetZero()
		return
	}
	if s.dropHook {
		hook(t, p.Const()).(Dropper).Drop()
	}

	switch s.Def.Kind {
	case KindStruct, KindTuple:
		dropFields(s.Def.Struct.Fields, p)
	case KindEnum:
		if v, payload, ok := ActiveVariant(s, p.Const()); ok && v.payload != nil {
			drop(v.Payload(), ptr.NewMut(payload.Raw()))
		}
	case KindUnion:
		d := s.Def.Union
		if i := d.VTable.Active(p.Const()); i >= 0 {
			drop(d.Fields[i].Shape(), ptr.NewMut(d.VTable.Get(p.Const(), i).Raw()))
		}
	case KindArray:
		elem := s.Def.Array.Elem()
		for i := s.Def.Array.Len - 1; i >= 0; i-- {
			drop(elem, p.Add(uintptr(i)*elem.Layout.Size))
		}
	case KindList:
		d := s.Def.List
		elem := d.Elem()
		for i := d.VTable.Len(p.Const()) - 1; i >= 0; i-- {
			drop(elem, ptr.NewMut(d.VTable.Get(p.Const(), i).Raw()))
		}
	case KindMap:
		// entries are dropped through copies; the map itself is released below
		d := s.Def.Map
		it := d.VTable.IterInit(p.Const())
		for {
			k, v, ok := d.VTable.IterNext(it)
			if !ok {
				break
			}
			drop(d.Value(), ptr.NewMut(v.Raw()))
			drop(d.Key(), ptr.NewMut(k.Raw()))
		}
		d.VTable.IterDealloc(it)
	case KindSet:
		d := s.Def.Set
		it := d.VTable.IterInit(p.Const())
		for {
			e, ok := d.VTable.IterNext(it)
			if !ok {
				break
			}
			drop(d.Elem(), ptr.NewMut(e.Raw()))
		}
		d.VTable.IterDealloc(it)
	case KindOption:
		d := s.Def.Option
		if inner, ok := d.VTable.Get(p.Const()); ok {
			drop(d.Inner(), ptr.NewMut(inner.Raw()))
		}
	}
	p.Value(t).SetZero()
}

func dropFields(fields []Field, p ptr.Mut) {
	for i := len(fields) - 1; i >= 0; i-- {
		f := &fields[i]
		drop(f.Shape(), p.Field(f.Offset))
	}
}

// DropValue drops the value at p through s's Drop slot.
func DropValue(s *Shape, p ptr.Mut) {
	if s.VTable.Drop != nil {
		s.VTable.Drop(p)
		return
	}
	p.Value(s.GoType).SetZero()
}

func invariantsFunc(s *Shape) func(ptr.Const) error {
	if !implements(s.GoType, validatorType) {
		return nil
	}
	t := s.GoType
	return func(p ptr.Const) error {
		return hook(t, p).(Validator).Validate()
	}
}

// checkInvariants runs s's invariant predicate, wrapping a failure.
func checkInvariants(s *Shape, p ptr.Const) error {
	if s.VTable.Invariants == nil {
		return nil
	}
	if err := s.VTable.Invariants(p); err != nil {
		return errors.Invariant(nil, s.Name, err)
	}
	return nil
}

// CheckInvariants runs the invariant predicate of s on the value at p.
func CheckInvariants(s *Shape, p ptr.Const) error { return checkInvariants(s, p) }
