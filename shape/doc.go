// Package shape describes Go types at run time.
//
// A Shape is an immutable descriptor created once per type and compared by
// pointer. It carries the type's identity, memory layout, semantic category
// (Def) and a table of type-erased operations (VTable).
//
// # Categories
//
//	Go type                         Def kind
//	──────────────────────────────────────────────
//	bool, numbers, string           Scalar
//	TextMarshaler+Unmarshaler       Scalar (text)
//	func, chan, interface           Scalar (opaque)
//	struct                          Struct (unit when empty)
//	struct embedding TupleMarker    Tuple
//	struct embedding UnionMarker    Union
//	registered interface            Enum
//	registered integer type         Enum (fieldless)
//	[N]T                            Array
//	[]T                             List (SliceOf: Slice)
//	map[K]V                         Map
//	map[K]struct{}                  Set
//	*T, sql.Null[T]                 Option
//	atomic.Pointer, weak.Pointer,
//	Shared[T]                       SmartPointer
//
// # Deriving
//
// Shapes are derived by reflection on first use and cached in a Registry:
//
//	s := shape.Of[Config]()
//
// Child shapes (field types, element types) resolve lazily, so recursive
// types derive without recursion. Enums must be registered before the shape
// of the enum type is first used:
//
//	shape.RegisterEnum[Expr](Lit{}, &Add{})
//	shape.RegisterIntEnum(shape.EnumCase[Color]{"Red", 0}, shape.EnumCase[Color]{"Green", 1})
//
// Struct fields accept a `shape:"name,opts..."` tag. Options are flatten,
// skip, skip_serializing, sensitive, omitempty, transparent, default and
// default=TEXT; a tag of "-" excludes the field.
//
// # Operations
//
// A nil VTable slot means the operation is unsupported. Shape.Supports
// checks a slot and, for operations that recurse, every reachable child.
// Drop runs Dropper hooks before a value's children are dropped, children in
// reverse declaration order, and zeroes the memory.
//
// Descriptor sources other than reflection build shapes with NewStruct,
// NewEnum, NewList and the other constructors, or with Assemble.
package shape
