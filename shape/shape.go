package shape

import (
	"reflect"
	"sync/atomic"
)

// TypeID identifies a shape. Two shapes with equal IDs describe the same type
// the same way.
type TypeID struct {
	t      reflect.Type
	origin string
}

func (id TypeID) Type() reflect.Type { return id.t }
func (id TypeID) Origin() string     { return id.origin }

func (id TypeID) String() string {
	if id.t == nil {
		return "<nil>"
	}
	if id.origin == "" {
		return id.t.String()
	}
	return id.origin + ":" + id.t.String()
}

// Layout describes the memory footprint of a value.
type Layout struct {
	Size    uintptr
	Align   uintptr
	Unsized bool
}

// Kind is the semantic category of a shape.
type Kind uint8

const (
	KindScalar Kind = iota + 1
	KindStruct
	KindTuple
	KindEnum
	KindUnion
	KindArray
	KindSlice
	KindList
	KindMap
	KindSet
	KindOption
	KindPointer
)

var kindNames = [...]string{
	KindScalar:  "scalar",
	KindStruct:  "struct",
	KindTuple:   "tuple",
	KindEnum:    "enum",
	KindUnion:   "union",
	KindArray:   "array",
	KindSlice:   "slice",
	KindList:    "list",
	KindMap:     "map",
	KindSet:     "set",
	KindOption:  "option",
	KindPointer: "smart_pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "undefined"
}

// Def is the category of a shape plus its category-specific data.
// Exactly one pointer matching Kind is non-nil; tuples use Struct.
type Def struct {
	Scalar  *ScalarDef
	Struct  *StructDef
	Enum    *EnumDef
	Union   *UnionDef
	Array   *ArrayDef
	Slice   *SliceDef
	List    *ListDef
	Map     *MapDef
	Set     *SetDef
	Option  *OptionDef
	Pointer *PointerDef
	Kind    Kind
}

// Shape is the immutable runtime descriptor of a type.
// Shapes are created once and compared by pointer.
type Shape struct {
	GoType reflect.Type
	// Inner is set for transparent wrappers and returns the wrapped shape.
	Inner  func() *Shape
	ID     TypeID
	Name   string
	Def    Def
	VTable VTable
	Layout Layout

	dropState atomic.Uint32
	dropHook  bool
}

func (s *Shape) String() string { return s.Name }

// Kind is shorthand for s.Def.Kind.
func (s *Shape) Kind() Kind { return s.Def.Kind }

// IsTransparent reports whether s wraps a single inner value.
func (s *Shape) IsTransparent() bool { return s.Inner != nil }

// Is reports whether s describes the same Go type as other.
func (s *Shape) Is(other *Shape) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.ID == other.ID
}

// Fields returns the fields of a struct, tuple or union shape.
func (s *Shape) Fields() []Field {
	switch {
	case s.Def.Struct != nil:
		return s.Def.Struct.Fields
	case s.Def.Union != nil:
		return s.Def.Union.Fields
	}
	return nil
}

// Children returns the shapes directly reachable from s, in declaration order.
func (s *Shape) Children() []*Shape {
	var out []*Shape
	switch s.Def.Kind {
	case KindStruct, KindTuple:
		for i := range s.Def.Struct.Fields {
			out = append(out, s.Def.Struct.Fields[i].Shape())
		}
	case KindUnion:
		for i := range s.Def.Union.Fields {
			out = append(out, s.Def.Union.Fields[i].Shape())
		}
	case KindEnum:
		for i := range s.Def.Enum.Variants {
			v := &s.Def.Enum.Variants[i]
			if v.payload != nil {
				out = append(out, v.Payload())
				continue
			}
			for j := range v.Data.Fields {
				out = append(out, v.Data.Fields[j].Shape())
			}
		}
	case KindArray:
		out = append(out, s.Def.Array.Elem())
	case KindSlice:
		out = append(out, s.Def.Slice.Elem())
	case KindList:
		out = append(out, s.Def.List.Elem())
	case KindMap:
		out = append(out, s.Def.Map.Key(), s.Def.Map.Value())
	case KindSet:
		out = append(out, s.Def.Set.Elem())
	case KindOption:
		out = append(out, s.Def.Option.Inner())
	case KindPointer:
		out = append(out, s.Def.Pointer.Pointee())
	}
	return out
}

// Op names an optional vtable operation.
type Op uint8

const (
	OpDebug Op = iota + 1
	OpDisplay
	OpParse
	OpEqual
	OpCompare
	OpHash
	OpDefault
	OpClone
	OpDrop
	OpInvariants
	OpTryFrom
	OpTryIntoInner
	OpTryBorrowInner
)

var opNames = [...]string{
	OpDebug:          "debug",
	OpDisplay:        "display",
	OpParse:          "parse",
	OpEqual:          "equal",
	OpCompare:        "compare",
	OpHash:           "hash",
	OpDefault:        "default",
	OpClone:          "clone",
	OpDrop:           "drop",
	OpInvariants:     "invariants",
	OpTryFrom:        "try_from",
	OpTryIntoInner:   "try_into_inner",
	OpTryBorrowInner: "try_borrow_inner",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "unknown"
}

// Supports reports whether op can be used on values of s. For operations that
// recurse into children (debug, equal, compare, hash, clone) every reachable
// child must support it too.
func (s *Shape) Supports(op Op) bool {
	return s.supports(op, make(map[*Shape]bool))
}

func (s *Shape) supports(op Op, seen map[*Shape]bool) bool {
	if !s.VTable.has(op) {
		return false
	}
	switch op {
	case OpDebug, OpEqual, OpCompare, OpHash, OpClone:
	default:
		return true
	}
	if seen[s] {
		return true
	}
	seen[s] = true
	if s.Def.Kind == KindScalar || (op == OpClone && s.Def.Kind == KindPointer) {
		return true
	}
	for _, c := range s.Children() {
		if !c.supports(op, seen) {
			return false
		}
	}
	return true
}

const (
	dropUnknown uint32 = iota
	dropNone
	dropNeeded
)

// NeedsDrop reports whether dropping a value of s runs any hook beyond
// zeroing its memory.
func (s *Shape) NeedsDrop() bool {
	switch s.dropState.Load() {
	case dropNone:
		return false
	case dropNeeded:
		return true
	}
	needed := s.needsDrop(make(map[*Shape]bool))
	if needed {
		s.dropState.Store(dropNeeded)
	} else {
		s.dropState.Store(dropNone)
	}
	return needed
}

func (s *Shape) needsDrop(seen map[*Shape]bool) bool {
	if seen[s] {
		return false
	}
	seen[s] = true
	if s.dropHook {
		return true
	}
	// Smart pointers share their pointee; dropping one never drops the target.
	if s.Def.Kind == KindPointer {
		return false
	}
	for _, c := range s.Children() {
		if c.needsDrop(seen) {
			return true
		}
	}
	return false
}
