package ptr

import (
	"reflect"
	"unsafe"
)

// Const is a read-only view of an initialized value.
type Const struct {
	p unsafe.Pointer
}

// Mut is a mutable view of an initialized value.
type Mut struct {
	p unsafe.Pointer
}

// Uninit is a view of memory that does not hold a value yet.
// It is consumed by exactly one Put (or PutValue, CopyFrom, Zero).
type Uninit struct {
	p unsafe.Pointer
}

// NewConst wraps a raw address as a read-only view.
func NewConst(p unsafe.Pointer) Const { return Const{p: p} }

// NewMut wraps a raw address as a mutable view.
func NewMut(p unsafe.Pointer) Mut { return Mut{p: p} }

// NewUninit wraps a raw address as an uninitialized view.
func NewUninit(p unsafe.Pointer) Uninit { return Uninit{p: p} }

// ConstOf returns a read-only view of *v.
func ConstOf[T any](v *T) Const { return Const{p: unsafe.Pointer(v)} }

// MutOf returns a mutable view of *v.
func MutOf[T any](v *T) Mut { return Mut{p: unsafe.Pointer(v)} }

// Alloc allocates zeroed, GC-managed storage for one value of type t.
func Alloc(t reflect.Type) Uninit {
	return Uninit{p: reflect.New(t).UnsafePointer()}
}

func (c Const) Raw() unsafe.Pointer { return c.p }
func (c Const) IsNil() bool         { return c.p == nil }

// Field returns a view of the field at offset bytes from c.
func (c Const) Field(offset uintptr) Const { return Const{p: unsafe.Add(c.p, offset)} }

// Add advances the view by n bytes (element stride).
func (c Const) Add(n uintptr) Const { return Const{p: unsafe.Add(c.p, n)} }

// Value returns a reflect.Value of type t addressing c. Callers must not mutate it.
func (c Const) Value(t reflect.Type) reflect.Value {
	return reflect.NewAt(t, c.p).Elem()
}

func (m Mut) Raw() unsafe.Pointer { return m.p }
func (m Mut) IsNil() bool         { return m.p == nil }
func (m Mut) Const() Const        { return Const{p: m.p} }

func (m Mut) Field(offset uintptr) Mut { return Mut{p: unsafe.Add(m.p, offset)} }
func (m Mut) Add(n uintptr) Mut        { return Mut{p: unsafe.Add(m.p, n)} }

// Value returns an addressable reflect.Value of type t over m.
func (m Mut) Value(t reflect.Type) reflect.Value {
	return reflect.NewAt(t, m.p).Elem()
}

// Deinit zeroes the value of type t and hands the memory back as uninitialized.
// Destructor hooks are the caller's concern; see shape.VTable.Drop.
func (m Mut) Deinit(t reflect.Type) Uninit {
	m.Value(t).SetZero()
	return Uninit{p: m.p}
}

func (u Uninit) Raw() unsafe.Pointer { return u.p }
func (u Uninit) IsNil() bool         { return u.p == nil }

func (u Uninit) Field(offset uintptr) Uninit { return Uninit{p: unsafe.Add(u.p, offset)} }
func (u Uninit) Add(n uintptr) Uninit        { return Uninit{p: unsafe.Add(u.p, n)} }

// Put writes v into u and returns the now-initialized view.
func Put[T any](u Uninit, v T) Mut {
	*(*T)(u.p) = v
	return Mut{p: u.p}
}

// PutValue writes v into u, using v's dynamic type for the copy.
func (u Uninit) PutValue(v reflect.Value) Mut {
	reflect.NewAt(v.Type(), u.p).Elem().Set(v)
	return Mut{p: u.p}
}

// CopyFrom moves the value of type t at src into u.
// Ownership passes to u: the caller must not drop src afterwards.
func (u Uninit) CopyFrom(src Const, t reflect.Type) Mut {
	reflect.NewAt(t, u.p).Elem().Set(reflect.NewAt(t, src.p).Elem())
	return Mut{p: u.p}
}

// Zero writes the zero value of t into u.
func (u Uninit) Zero(t reflect.Type) Mut {
	reflect.NewAt(t, u.p).Elem().SetZero()
	return Mut{p: u.p}
}

// AssumeInit asserts that u already holds a valid value.
// Calling it on memory that was never written is undefined behaviour.
func (u Uninit) AssumeInit() Mut { return Mut{p: u.p} }

// Read returns a copy of the T at c.
func Read[T any](c Const) T { return *(*T)(c.p) }

// As returns a typed pointer for reading. Callers must not write through it.
func As[T any](c Const) *T { return (*T)(c.p) }

// AsMut returns a typed pointer for writing.
func AsMut[T any](m Mut) *T { return (*T)(m.p) }

// Write overwrites the initialized value at m. The previous value is not dropped.
func Write[T any](m Mut, v T) { *(*T)(m.p) = v }
