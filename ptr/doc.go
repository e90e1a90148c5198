// Package ptr provides the type-erased pointer views the engine is built on.
//
// There are three view kinds over an address:
//
//	Const   read-only view of an initialized value
//	Mut     mutable view of an initialized value
//	Uninit  memory that does not hold a value yet
//
// None of them carries a size: the caller already knows the shape of the
// target. Field navigation adds a byte offset and keeps the kind. The only
// state transition is Uninit -> Mut, performed by Put, PutValue, CopyFrom or
// Zero. Writes go through typed Go assignments or reflect, so the garbage
// collector's write barriers are always honoured.
//
// Preconditions are the caller's responsibility and are not checked: the
// address must be aligned and sized for the target type, and an Uninit view
// must be written at most once.
package ptr
