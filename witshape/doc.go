// Package witshape compiles shapes from WIT type descriptions.
//
// A Compiler checks that a Go type can hold values of a WIT type and returns
// a shape laid over the Go type whose field, case and type names are the WIT
// ones. Records map onto structs, lists onto slices, options onto pointers,
// tuples onto structs or arrays, enums onto integers, flags onto unsigned
// integers, and variants and results onto structs with one pointer field
// per case.
//
// GoTypeFor synthesizes a Go type for WIT types that have none, and
// ParseType reads anonymous type expressions such as
// "list<record point { x: s32, y: s32 }>".
package witshape
