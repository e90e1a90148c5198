package shape

import (
	"iter"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"
	"weak"

	"github.com/wippyai/shape-runtime/ptr"
)

func (r *Registry) listDef(t reflect.Type) *ListDef {
	elem := t.Elem()
	return &ListDef{
		Elem:   r.lazy(elem),
		VTable: sliceVTable(t, true),
		Slice:  func() *Shape { return r.SliceOf(elem) },
	}
}

// sliceVTable builds the list operations for a []E type. Growable lists also
// get Init, PushSlot and Truncate.
func sliceVTable(t reflect.Type, growable bool) ListVTable {
	get := func(p ptr.Const, i int) ptr.Const {
		return ptr.NewConst(p.Value(t).Index(i).Addr().UnsafePointer())
	}
	vt := ListVTable{
		Len: func(p ptr.Const) int { return p.Value(t).Len() },
		Get: get,
		AsPtr: func(p ptr.Const) ptr.Const {
			v := p.Value(t)
			if v.Len() == 0 {
				return ptr.Const{}
			}
			return ptr.NewConst(v.UnsafePointer())
		},
		Iter: func(p ptr.Const) iter.Seq[ptr.Const] {
			return func(yield func(ptr.Const) bool) {
				n := p.Value(t).Len()
				for i := 0; i < n; i++ {
					if !yield(get(p, i)) {
						return
					}
				}
			}
		},
	}
	if !growable {
		return vt
	}
	vt.Init = func(dst ptr.Uninit, capacity int) ptr.Mut {
		return dst.PutValue(reflect.MakeSlice(t, 0, max(capacity, 0)))
	}
	vt.PushSlot = func(p ptr.Mut) ptr.Uninit {
		v := p.Value(t)
		n := v.Len()
		if n == v.Cap() {
			v.Grow(1)
		}
		v.SetLen(n + 1)
		slot := v.Index(n)
		slot.SetZero()
		return ptr.NewUninit(slot.Addr().UnsafePointer())
	}
	vt.Truncate = func(p ptr.Mut, n int) {
		v := p.Value(t)
		for i := n; i < v.Len(); i++ {
			v.Index(i).SetZero()
		}
		v.SetLen(n)
	}
	return vt
}

func (r *Registry) deriveSlice(elem reflect.Type) *Shape {
	t := reflect.SliceOf(elem)
	s := &Shape{
		ID:     TypeID{t: t, origin: "slice"},
		GoType: t,
		Name:   "[" + typeName(elem) + "]",
		Layout: Layout{Align: uintptr(elem.Align()), Unsized: true},
		Def: Def{Kind: KindSlice, Slice: &SliceDef{
			Elem:   r.lazy(elem),
			VTable: sliceVTable(t, false),
		}},
	}
	s.VTable = deriveVTable(s)
	return s
}

var iterPool = sync.Pool{
	New: func() any { return new(MapIter) },
}

func newMapIter(m reflect.Value, kt, vt reflect.Type) *MapIter {
	it := iterPool.Get().(*MapIter)
	it.it = m.MapRange()
	it.key = reflect.New(kt).Elem()
	if vt != nil {
		it.value = reflect.New(vt).Elem()
	}
	it.live = true
	return it
}

func releaseMapIter(it *MapIter) {
	if !it.Live() {
		panic("shape: map iterator deallocated twice")
	}
	*it = MapIter{}
	iterPool.Put(it)
}

func (r *Registry) mapDef(t reflect.Type) *MapDef {
	return newMapDef(t, r.lazy(t.Key()), r.lazy(t.Elem()))
}

func newMapDef(t reflect.Type, key, value func() *Shape) *MapDef {
	kt, vt := t.Key(), t.Elem()
	return &MapDef{
		Key:   key,
		Value: value,
		VTable: MapVTable{
			Len: func(p ptr.Const) int { return p.Value(t).Len() },
			Contains: func(p, key ptr.Const) bool {
				return p.Value(t).MapIndex(key.Value(kt)).IsValid()
			},
			Get: func(p, key ptr.Const) (ptr.Const, bool) {
				mv := p.Value(t).MapIndex(key.Value(kt))
				if !mv.IsValid() {
					return ptr.Const{}, false
				}
				cp := reflect.New(vt)
				cp.Elem().Set(mv)
				return ptr.NewConst(cp.UnsafePointer()), true
			},
			Init: func(dst ptr.Uninit, capacity int) ptr.Mut {
				return dst.PutValue(reflect.MakeMapWithSize(t, max(capacity, 0)))
			},
			Insert: func(p ptr.Mut, key, value ptr.Mut) (ptr.Mut, bool) {
				m := p.Value(t)
				if m.IsNil() {
					m.Set(reflect.MakeMap(t))
				}
				k := key.Value(kt)
				var old ptr.Mut
				replaced := false
				if prev := m.MapIndex(k); prev.IsValid() {
					cp := reflect.New(vt)
					cp.Elem().Set(prev)
					old, replaced = ptr.NewMut(cp.UnsafePointer()), true
				}
				m.SetMapIndex(k, value.Value(vt))
				return old, replaced
			},
			IterInit: func(p ptr.Const) *MapIter {
				return newMapIter(p.Value(t), kt, vt)
			},
			IterNext: func(it *MapIter) (ptr.Const, ptr.Const, bool) {
				if !it.it.Next() {
					return ptr.Const{}, ptr.Const{}, false
				}
				it.key.SetIterKey(it.it)
				it.value.SetIterValue(it.it)
				return ptr.NewConst(it.key.Addr().UnsafePointer()), ptr.NewConst(it.value.Addr().UnsafePointer()), true
			},
			IterDealloc: releaseMapIter,
		},
	}
}

func (r *Registry) setDef(t reflect.Type) *SetDef {
	return newSetDef(t, r.lazy(t.Key()))
}

func newSetDef(t reflect.Type, elem func() *Shape) *SetDef {
	kt := t.Key()
	present := reflect.New(t.Elem()).Elem()
	return &SetDef{
		Elem: elem,
		VTable: SetVTable{
			Len: func(p ptr.Const) int { return p.Value(t).Len() },
			Contains: func(p, elem ptr.Const) bool {
				return p.Value(t).MapIndex(elem.Value(kt)).IsValid()
			},
			Init: func(dst ptr.Uninit, capacity int) ptr.Mut {
				return dst.PutValue(reflect.MakeMapWithSize(t, max(capacity, 0)))
			},
			Insert: func(p ptr.Mut, elem ptr.Mut) bool {
				m := p.Value(t)
				if m.IsNil() {
					m.Set(reflect.MakeMap(t))
				}
				k := elem.Value(kt)
				if m.MapIndex(k).IsValid() {
					return false
				}
				m.SetMapIndex(k, present)
				return true
			},
			IterInit: func(p ptr.Const) *MapIter {
				return newMapIter(p.Value(t), kt, nil)
			},
			IterNext: func(it *MapIter) (ptr.Const, bool) {
				if !it.it.Next() {
					return ptr.Const{}, false
				}
				it.key.SetIterKey(it.it)
				return ptr.NewConst(it.key.Addr().UnsafePointer()), true
			},
			IterDealloc: releaseMapIter,
		},
	}
}

func loadPointer(p ptr.Const) unsafe.Pointer { return *(*unsafe.Pointer)(p.Raw()) }

func (r *Registry) pointerOptionDef(t reflect.Type) *OptionDef {
	return newPointerOptionDef(t, r.lazy(t.Elem()))
}

func newPointerOptionDef(t reflect.Type, inner func() *Shape) *OptionDef {
	elem := t.Elem()
	return &OptionDef{
		Inner: inner,
		Repr:  OptionReprPointer,
		VTable: OptionVTable{
			IsSome: func(p ptr.Const) bool { return loadPointer(p) != nil },
			Get: func(p ptr.Const) (ptr.Const, bool) {
				inner := loadPointer(p)
				return ptr.NewConst(inner), inner != nil
			},
			AllocInner: func() ptr.Uninit { return ptr.Alloc(elem) },
			InitSome: func(dst ptr.Uninit, inner ptr.Mut) ptr.Mut {
				*(*unsafe.Pointer)(dst.Raw()) = inner.Raw()
				return dst.AssumeInit()
			},
			InitNone: func(dst ptr.Uninit) ptr.Mut {
				*(*unsafe.Pointer)(dst.Raw()) = nil
				return dst.AssumeInit()
			},
		},
	}
}

// knownGeneric recognises the standard library and package generics that map
// onto options and smart pointers.
func (r *Registry) knownGeneric(t reflect.Type) (Def, bool) {
	if t.Kind() != reflect.Struct {
		return Def{}, false
	}
	name := t.Name()
	switch {
	case t.PkgPath() == "database/sql" && strings.HasPrefix(name, "Null["):
		return Def{Kind: KindOption, Option: r.nullOptionDef(t)}, true
	case t.PkgPath() == "sync/atomic" && strings.HasPrefix(name, "Pointer["):
		return Def{Kind: KindPointer, Pointer: r.atomicPointerDef(t)}, true
	case t.PkgPath() == "weak" && strings.HasPrefix(name, "Pointer["):
		return Def{Kind: KindPointer, Pointer: r.weakPointerDef(t)}, true
	case isSharedType(t):
		return Def{Kind: KindPointer, Pointer: r.sharedPointerDef(t)}, true
	}
	return Def{}, false
}

func (r *Registry) nullOptionDef(t reflect.Type) *OptionDef {
	vField, _ := t.FieldByName("V")
	validField, _ := t.FieldByName("Valid")
	elem := vField.Type
	vOff, validOff := vField.Offset, validField.Offset
	return &OptionDef{
		Inner: r.lazy(elem),
		Repr:  OptionReprNull,
		VTable: OptionVTable{
			IsSome: func(p ptr.Const) bool { return ptr.Read[bool](p.Field(validOff)) },
			Get: func(p ptr.Const) (ptr.Const, bool) {
				if !ptr.Read[bool](p.Field(validOff)) {
					return ptr.Const{}, false
				}
				return p.Field(vOff), true
			},
			AllocInner: func() ptr.Uninit { return ptr.Alloc(elem) },
			InitSome: func(dst ptr.Uninit, inner ptr.Mut) ptr.Mut {
				dst.Field(vOff).CopyFrom(inner.Const(), elem)
				ptr.Put(dst.Field(validOff), true)
				return dst.AssumeInit()
			},
			InitNone: func(dst ptr.Uninit) ptr.Mut { return dst.Zero(t) },
		},
	}
}

// pointeeOf returns T for the generic pointer types whose first field is
// the zero-size [0]*T type marker.
func pointeeOf(t reflect.Type) reflect.Type {
	return t.Field(0).Type.Elem().Elem()
}

func (r *Registry) atomicPointerDef(t reflect.Type) *PointerDef {
	elem := pointeeOf(t)
	// atomic.Pointer[T] has the same layout for every T
	cell := func(p unsafe.Pointer) *atomic.Pointer[byte] { return (*atomic.Pointer[byte])(p) }
	return &PointerDef{
		Pointee: r.lazy(elem),
		Known:   KnownPointerAtomic,
		Flags:   PointerAtomic,
		VTable: PointerVTable{
			Borrow: func(p ptr.Const) (ptr.Const, func(), bool) {
				target := cell(p.Raw()).Load()
				if target == nil {
					return ptr.Const{}, noRelease, false
				}
				return ptr.NewConst(unsafe.Pointer(target)), noRelease, true
			},
			AllocInner: func() ptr.Uninit { return ptr.Alloc(elem) },
			New: func(dst ptr.Uninit, inner ptr.Mut) ptr.Mut {
				cell(dst.Raw()).Store((*byte)(inner.Raw()))
				return dst.AssumeInit()
			},
		},
	}
}

func (r *Registry) weakPointerDef(t reflect.Type) *PointerDef {
	elem := pointeeOf(t)
	return &PointerDef{
		Pointee: r.lazy(elem),
		Known:   KnownPointerWeak,
		Flags:   PointerWeak,
		VTable: PointerVTable{
			Borrow: func(p ptr.Const) (ptr.Const, func(), bool) {
				strong := (*weak.Pointer[byte])(p.Raw()).Value()
				if strong == nil {
					return ptr.Const{}, noRelease, false
				}
				return ptr.NewConst(unsafe.Pointer(strong)), func() { runtime.KeepAlive(strong) }, true
			},
		},
	}
}

func (r *Registry) sharedPointerDef(t reflect.Type) *PointerDef {
	cellType := t.Field(0).Type.Elem()
	mu, _ := cellType.FieldByName("mu")
	val, _ := cellType.FieldByName("val")
	elem := val.Type
	muOff, valOff := mu.Offset, val.Offset
	return &PointerDef{
		Pointee: r.lazy(elem),
		Known:   KnownPointerShared,
		Flags:   PointerLock,
		VTable: PointerVTable{
			Borrow: func(p ptr.Const) (ptr.Const, func(), bool) {
				c := loadPointer(p)
				if c == nil {
					return ptr.Const{}, noRelease, false
				}
				lock := (*sync.RWMutex)(unsafe.Add(c, muOff))
				lock.RLock()
				return ptr.NewConst(unsafe.Add(c, valOff)), lock.RUnlock, true
			},
			AllocInner: func() ptr.Uninit { return ptr.Alloc(elem) },
			New: func(dst ptr.Uninit, inner ptr.Mut) ptr.Mut {
				c := reflect.New(cellType).UnsafePointer()
				ptr.NewUninit(unsafe.Add(c, valOff)).CopyFrom(inner.Const(), elem)
				*(*unsafe.Pointer)(dst.Raw()) = c
				return dst.AssumeInit()
			},
		},
	}
}

func noRelease() {}
