package shape

import (
	"hash/maphash"
	"reflect"
	"strings"

	"github.com/wippyai/shape-runtime/ptr"
)

// VTable holds the type-erased operations of a shape. A nil slot means the
// operation is not supported; check with Shape.Supports before calling.
type VTable struct {
	Debug   func(p ptr.Const, b *strings.Builder)
	Display func(p ptr.Const, b *strings.Builder)
	Parse   func(s string, dst ptr.Uninit) (ptr.Mut, error)
	Equal   func(a, b ptr.Const) bool
	// Compare returns -1, 0 or +1.
	Compare func(a, b ptr.Const) int
	Hash    func(p ptr.Const, h *maphash.Hash)
	Default func(dst ptr.Uninit) ptr.Mut
	Clone   func(src ptr.Const, dst ptr.Uninit) ptr.Mut
	// Drop runs destructor hooks and zeroes the value.
	Drop       func(p ptr.Mut)
	Invariants func(p ptr.Const) error
	// TryFrom moves a value of another shape into dst, converting it.
	TryFrom        func(src ptr.Const, srcShape *Shape, dst ptr.Uninit) (ptr.Mut, error)
	TryIntoInner   func(src ptr.Const, dst ptr.Uninit) (ptr.Mut, error)
	TryBorrowInner func(src ptr.Const) (ptr.Const, error)
}

func (v *VTable) has(op Op) bool {
	switch op {
	case OpDebug:
		return v.Debug != nil
	case OpDisplay:
		return v.Display != nil
	case OpParse:
		return v.Parse != nil
	case OpEqual:
		return v.Equal != nil
	case OpCompare:
		return v.Compare != nil
	case OpHash:
		return v.Hash != nil
	case OpDefault:
		return v.Default != nil
	case OpClone:
		return v.Clone != nil
	case OpDrop:
		return v.Drop != nil
	case OpInvariants:
		return v.Invariants != nil
	case OpTryFrom:
		return v.TryFrom != nil
	case OpTryIntoInner:
		return v.TryIntoInner != nil
	case OpTryBorrowInner:
		return v.TryBorrowInner != nil
	}
	return false
}

// deriveVTable fills the operation slots for s from its Def and Go type.
func deriveVTable(s *Shape) VTable {
	vt := VTable{
		Debug:   func(p ptr.Const, b *strings.Builder) { writeDebug(s, p, b) },
		Display: displayFunc(s),
		Parse:   parseFunc(s),
		Equal:   equalFunc(s),
		Compare: compareFunc(s),
		Hash:    hashFunc(s),
		Default: defaultFunc(s),
		Clone:   cloneFunc(s),
		Drop:    func(p ptr.Mut) { drop(s, p) },
		TryFrom: func(src ptr.Const, srcShape *Shape, dst ptr.Uninit) (ptr.Mut, error) {
			return tryFrom(s, src, srcShape, dst)
		},
		Invariants:     invariantsFunc(s),
		TryIntoInner:   tryIntoInnerFunc(s),
		TryBorrowInner: tryBorrowInnerFunc(s),
	}
	return vt
}

// Assemble creates a shape for t from an externally produced Def and derives
// its vtable. Field offsets and child shapes in def are trusted.
func Assemble(t reflect.Type, name, origin string, def Def) *Shape {
	if name == "" {
		name = typeName(t)
	}
	s := &Shape{
		ID:     TypeID{t: t, origin: origin},
		GoType: t,
		Name:   name,
		Def:    def,
		Layout: Layout{Size: t.Size(), Align: uintptr(t.Align())},
	}
	if def.Kind == KindStruct && len(def.Struct.Fields) == 1 && def.Struct.Fields[0].Has(FieldTransparent) {
		s.Inner = def.Struct.Fields[0].shape
	}
	s.dropHook = runsDropHook(t, s.Fields())
	s.VTable = deriveVTable(s)
	return s
}
