package shape

import (
	"iter"
	"reflect"
	"strconv"

	"github.com/wippyai/shape-runtime/ptr"
)

// Affinity narrows a scalar to the family of values it holds.
type Affinity uint8

const (
	AffinityBool Affinity = iota + 1
	AffinityInt
	AffinityUint
	AffinityFloat
	AffinityComplex
	AffinityString
	// AffinityText is a type with its own text form (encoding.TextMarshaler).
	AffinityText
	// AffinityOpaque values can be moved but not inspected.
	AffinityOpaque
)

type ScalarDef struct {
	Affinity Affinity
	Bits     int
}

// StructKind distinguishes named-field structs, tuples and unit structs.
type StructKind uint8

const (
	StructKindStruct StructKind = iota
	StructKindTuple
	StructKindUnit
)

type StructDef struct {
	Fields []Field
	Kind   StructKind
}

// FieldIndex returns the position of the field called name.
func (d *StructDef) FieldIndex(name string) (int, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// EnumRepr is how an enum value is stored in memory.
type EnumRepr uint8

const (
	// EnumReprInterface stores the active variant as the dynamic value of an interface.
	EnumReprInterface EnumRepr = iota
	// EnumReprInteger stores the discriminant of a fieldless enum as an integer.
	EnumReprInteger
)

type EnumDef struct {
	VTable   EnumVTable
	Variants []Variant
	Repr     EnumRepr
}

// VariantIndex returns the position of the variant called name.
func (d *EnumDef) VariantIndex(name string) (int, bool) {
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

type EnumVTable struct {
	// Active returns the index of the active variant.
	Active func(p ptr.Const) (int, bool)
	// Payload returns the base address of the active variant's fields.
	Payload func(p ptr.Const) ptr.Const
	// AllocPayload returns fresh storage for the fields of a variant.
	AllocPayload func(variant int) ptr.Uninit
	// Commit writes an enum value holding variant with the given payload.
	Commit func(dst ptr.Uninit, variant int, payload ptr.Mut) ptr.Mut
}

// UnionDef describes a struct whose pointer fields are mutually exclusive:
// exactly one of them is non-nil. Field shapes are the pointees.
type UnionDef struct {
	VTable UnionVTable
	Fields []Field
}

type UnionVTable struct {
	// Active returns the index of the non-nil field, or -1.
	Active func(p ptr.Const) int
	// Get returns the pointee of the field at index i.
	Get func(p ptr.Const, i int) ptr.Const
	// Commit stores value as the pointee of field i.
	Commit func(dst ptr.Mut, i int, value ptr.Mut)
}

type ArrayDef struct {
	Elem   func() *Shape
	VTable ArrayVTable
	Len    int
}

type ArrayVTable struct {
	AsPtr func(p ptr.Const) ptr.Const
}

// SliceDef is an unsized, read-only view of contiguous elements.
type SliceDef struct {
	Elem   func() *Shape
	VTable ListVTable
}

type ListDef struct {
	Elem   func() *Shape
	VTable ListVTable
	// Slice returns the unsized view shape over this list's elements.
	Slice func() *Shape
}

type ListVTable struct {
	Len func(p ptr.Const) int
	// Get returns element i; callers check bounds first.
	Get func(p ptr.Const, i int) ptr.Const
	// AsPtr returns the first element of contiguous storage; nil when the
	// storage is not contiguous and Iter must be used.
	AsPtr func(p ptr.Const) ptr.Const
	Iter  func(p ptr.Const) iter.Seq[ptr.Const]
	Init  func(dst ptr.Uninit, capacity int) ptr.Mut
	// PushSlot grows the list by one element and returns the new slot.
	PushSlot func(p ptr.Mut) ptr.Uninit
	// Truncate shrinks the list to n elements without dropping them.
	Truncate func(p ptr.Mut, n int)
}

type MapDef struct {
	Key    func() *Shape
	Value  func() *Shape
	VTable MapVTable
}

type MapVTable struct {
	Len      func(p ptr.Const) int
	Contains func(p, key ptr.Const) bool
	// Get returns a copy of the value stored under key.
	Get  func(p, key ptr.Const) (ptr.Const, bool)
	Init func(dst ptr.Uninit, capacity int) ptr.Mut
	// Insert moves key and value into the map. When an entry was replaced the
	// previous value is returned and the map holds a single copy of the equal
	// keys, so the caller drops both the previous value and its own key.
	Insert      func(p ptr.Mut, key, value ptr.Mut) (ptr.Mut, bool)
	IterInit    func(p ptr.Const) *MapIter
	IterNext    func(it *MapIter) (key, value ptr.Const, ok bool)
	IterDealloc func(it *MapIter)
}

type SetDef struct {
	Elem   func() *Shape
	VTable SetVTable
}

type SetVTable struct {
	Len      func(p ptr.Const) int
	Contains func(p, elem ptr.Const) bool
	Init     func(dst ptr.Uninit, capacity int) ptr.Mut
	// Insert moves elem into the set and reports whether it was new.
	Insert      func(p ptr.Mut, elem ptr.Mut) bool
	IterInit    func(p ptr.Const) *MapIter
	IterNext    func(it *MapIter) (elem ptr.Const, ok bool)
	IterDealloc func(it *MapIter)
}

// OptionRepr is how an optional value is stored.
type OptionRepr uint8

const (
	// OptionReprPointer is *T, nil meaning none.
	OptionReprPointer OptionRepr = iota
	// OptionReprNull is sql.Null[T].
	OptionReprNull
)

type OptionDef struct {
	Inner  func() *Shape
	VTable OptionVTable
	Repr   OptionRepr
}

type OptionVTable struct {
	IsSome func(p ptr.Const) bool
	Get    func(p ptr.Const) (ptr.Const, bool)
	// AllocInner returns storage a builder writes the some-value into.
	AllocInner func() ptr.Uninit
	// InitSome takes ownership of inner, which must come from AllocInner.
	InitSome func(dst ptr.Uninit, inner ptr.Mut) ptr.Mut
	InitNone func(dst ptr.Uninit) ptr.Mut
}

// PointerFlags describe a smart pointer.
type PointerFlags uint8

const (
	PointerAtomic PointerFlags = 1 << iota
	PointerWeak
	PointerLock
)

func (f PointerFlags) Has(flag PointerFlags) bool { return f&flag != 0 }

func (f PointerFlags) String() string {
	if f == 0 {
		return "none"
	}
	var out string
	add := func(s string) {
		if out != "" {
			out += "|"
		}
		out += s
	}
	if f.Has(PointerAtomic) {
		add("atomic")
	}
	if f.Has(PointerWeak) {
		add("weak")
	}
	if f.Has(PointerLock) {
		add("lock")
	}
	return out
}

// KnownPointer names the smart pointer implementations derivation recognises.
type KnownPointer uint8

const (
	KnownPointerCustom KnownPointer = iota
	KnownPointerAtomic
	KnownPointerWeak
	KnownPointerShared
)

type PointerDef struct {
	Pointee func() *Shape
	VTable  PointerVTable
	Known   KnownPointer
	Flags   PointerFlags
}

type PointerVTable struct {
	// Borrow returns the pointee and a release func that must be called when
	// done. ok is false for nil or collected pointers.
	Borrow     func(p ptr.Const) (inner ptr.Const, release func(), ok bool)
	AllocInner func() ptr.Uninit
	// New builds a pointer owning inner; nil when the pointer kind cannot be
	// constructed from a value (weak pointers).
	New func(dst ptr.Uninit, inner ptr.Mut) ptr.Mut
}

// MapIter is the iteration handle handed out by IterInit. It is pooled and
// must be returned with IterDealloc exactly once.
type MapIter struct {
	it    *reflect.MapIter
	key   reflect.Value
	value reflect.Value
	live  bool
}

// Live reports whether the handle is allocated.
func (it *MapIter) Live() bool { return it != nil && it.live }

// FieldFlags are per-field attributes.
type FieldFlags uint16

const (
	FieldFlatten FieldFlags = 1 << iota
	FieldSkip
	FieldSkipSerializing
	FieldSensitive
	FieldHasDefault
	FieldOmitEmpty
	FieldTransparent
)

var fieldFlagNames = []struct {
	flag FieldFlags
	name string
}{
	{FieldFlatten, "flatten"},
	{FieldSkip, "skip"},
	{FieldSkipSerializing, "skip_serializing"},
	{FieldSensitive, "sensitive"},
	{FieldHasDefault, "default"},
	{FieldOmitEmpty, "omitempty"},
	{FieldTransparent, "transparent"},
}

func (f FieldFlags) Has(flag FieldFlags) bool { return f&flag != 0 }

// Names lists the set flags in declaration order.
func (f FieldFlags) Names() []string {
	var out []string
	for _, n := range fieldFlagNames {
		if f.Has(n.flag) {
			out = append(out, n.name)
		}
	}
	return out
}

// Field is declared once per struct, tuple, union or variant.
type Field struct {
	// SkipIf, given the containing struct, reports that the field is skipped
	// by serialization reads.
	SkipIf func(p ptr.Const) bool
	shape  func() *Shape
	Name   string
	GoName string
	// DefaultText is parsed through the field shape's Parse slot when the
	// field is defaulted; empty means the shape's Default slot.
	DefaultText string
	Index       int
	Offset      uintptr
	Flags       FieldFlags
}

// NewField declares a field whose shape is resolved lazily.
func NewField(name string, index int, offset uintptr, flags FieldFlags, shape func() *Shape) Field {
	return Field{Name: name, GoName: name, Index: index, Offset: offset, Flags: flags, shape: shape}
}

// Shape returns the shape of the field's value.
func (f *Field) Shape() *Shape { return f.shape() }

func (f *Field) Has(flag FieldFlags) bool { return f.Flags.Has(flag) }

// Variant is one alternative of an enum.
type Variant struct {
	// GoType is the dynamic type stored for this variant (interface repr).
	GoType  reflect.Type
	payload func() *Shape
	Data    StructDef
	Name    string
	Index   int
	// Discriminant is the integer value of the variant (integer repr) or
	// its declaration index.
	Discriminant int64
	// Indirect is set when GoType is a pointer to the payload.
	Indirect bool
}

// Payload returns the shape of the variant's field storage, or nil for
// fieldless variants of integer enums.
func (v *Variant) Payload() *Shape {
	if v.payload == nil {
		return nil
	}
	return v.payload()
}

// IsUnit reports whether the variant has no fields.
func (v *Variant) IsUnit() bool { return len(v.Data.Fields) == 0 }

func positionalName(i int) string { return strconv.Itoa(i) }
