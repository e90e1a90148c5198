// Package shaperuntime is a reflection runtime that reads and builds Go
// values through runtime type descriptors called shapes.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	shaperuntime/       Root package with generic shortcuts over the packages below
//	├── shape/          Shapes: layout, category definition and vtable per type
//	├── ptr/            Const, mutable and uninitialized pointer views
//	├── peek/           Type-erased readers over initialized values
//	├── partial/        Frame-based builder for values of any shape
//	├── region/         Borrow scopes as runtime regions with generation tokens
//	├── witshape/       Shapes compiled from WIT type descriptions
//	├── errors/         Structured error types for debugging
//	└── cmd/shapes/     CLI printing shape trees and zero values
//
// # Quick Start
//
// Read a value without naming its type:
//
//	v := shaperuntime.Peek(&cfg)
//	st, err := v.Struct()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for f, fv := range st.Fields() {
//	    fmt.Println(f.Name, fv.Debug())
//	}
//
// Build one field at a time:
//
//	cfg, err := shaperuntime.Construct(func(p *partial.Partial) error {
//	    if err := p.SetField("name", "api"); err != nil {
//	        return err
//	    }
//	    return p.SetField("port", 8080)
//	})
//
// # Shapes
//
// Shapes are derived once per Go type and cached by the shape registry.
// Structs, tuples, unions, enums, arrays, lists, maps, sets, options and
// smart pointers each have a category definition; scalars carry their
// affinity. Field behavior is declared with the shape struct tag:
//
//	type Settings struct {
//	    Host  string `shape:"host"`
//	    Port  int    `shape:"port,default=8080"`
//	    Token string `shape:"token,sensitive"`
//	}
//
// # Thread Safety
//
// Shapes and registries are safe for concurrent use. A Partial is NOT
// thread-safe and builds a single value from a single goroutine.
//
// # Memory Model
//
// Values under construction live in GC-managed storage. Abandoned builders
// must be discarded so destructor hooks (Drop methods) run exactly once for
// every slot that was initialized.
package shaperuntime
