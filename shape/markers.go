package shape

import (
	"reflect"
	"strings"
	"sync"
)

// TupleMarker, embedded in a struct, makes the struct a tuple: its fields
// are addressed by position ("0", "1", ...).
type TupleMarker struct{}

// UnionMarker, embedded in a struct, makes the struct a union of its pointer
// fields: exactly one of them is non-nil.
type UnionMarker struct{}

// Dropper is implemented by types that release something when dropped.
// The hook runs before the value's children are dropped.
type Dropper interface {
	Drop()
}

// Validator is the custom invariant predicate checked when a value is built.
type Validator interface {
	Validate() error
}

// Defaulter adjusts a zeroed value into its default.
type Defaulter interface {
	SetDefaults()
}

// Shared is a reference-counted-style smart pointer guarded by a lock.
// Copies share the same target.
type Shared[T any] struct {
	cell *sharedCell[T]
}

type sharedCell[T any] struct {
	mu  sync.RWMutex
	val T
}

func NewShared[T any](v T) Shared[T] {
	return Shared[T]{cell: &sharedCell[T]{val: v}}
}

// Lock returns the target for writing and its unlock func.
func (s Shared[T]) Lock() (*T, func()) {
	s.cell.mu.Lock()
	return &s.cell.val, s.cell.mu.Unlock
}

// RLock returns the target for reading and its unlock func.
func (s Shared[T]) RLock() (*T, func()) {
	s.cell.mu.RLock()
	return &s.cell.val, s.cell.mu.RUnlock
}

// Get returns a copy of the target.
func (s Shared[T]) Get() T {
	v, unlock := s.RLock()
	defer unlock()
	return *v
}

func (s Shared[T]) IsNil() bool { return s.cell == nil }

var (
	tupleMarkerType = reflect.TypeFor[TupleMarker]()
	unionMarkerType = reflect.TypeFor[UnionMarker]()
	dropperType     = reflect.TypeFor[Dropper]()
	validatorType   = reflect.TypeFor[Validator]()
	defaulterType   = reflect.TypeFor[Defaulter]()
	thisPkgPath     = tupleMarkerType.PkgPath()
)

func isSharedType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.PkgPath() == thisPkgPath && strings.HasPrefix(t.Name(), "Shared[")
}

func hasDropHook(t reflect.Type) bool {
	if t == nil || t.Kind() == reflect.Interface {
		return false
	}
	return reflect.PointerTo(t).Implements(dropperType)
}

// runsDropHook reports whether dropping a value of t calls its own Drop
// method. A Drop promoted from an embedded field that is itself part of the
// shape runs once, when that field is dropped.
func runsDropHook(t reflect.Type, fields []Field) bool {
	if !hasDropHook(t) {
		return false
	}
	if t.Kind() != reflect.Struct {
		return true
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous || !hasDropHook(sf.Type) {
			continue
		}
		for _, f := range fields {
			if f.GoName == sf.Name && f.Offset == sf.Offset {
				return false
			}
		}
	}
	return true
}
