package shape

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/shape-runtime/errors"
)

// Registry derives and caches shapes. Safe for concurrent use.
type Registry struct {
	shapes   sync.Map // reflect.Type -> *Shape
	slices   sync.Map // reflect.Type -> *Shape
	group    singleflight.Group
	enums    map[reflect.Type]*enumDecl
	intEnums map[reflect.Type]*intEnumDecl
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		enums:    make(map[reflect.Type]*enumDecl),
		intEnums: make(map[reflect.Type]*intEnumDecl),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by Of and OfType.
func Default() *Registry { return defaultRegistry }

// Of returns the shape of T from the default registry.
func Of[T any]() *Shape { return defaultRegistry.Of(reflect.TypeFor[T]()) }

// OfType returns the shape of t from the default registry.
func OfType(t reflect.Type) *Shape { return defaultRegistry.Of(t) }

// OfValue returns the shape of v's dynamic type.
func OfValue(v any) *Shape { return defaultRegistry.Of(reflect.TypeOf(v)) }

// SliceOf returns the unsized slice view shape over elements of type elem.
func SliceOf(elem reflect.Type) *Shape { return defaultRegistry.SliceOf(elem) }

// Of returns the shape of t, deriving it on first use.
func (r *Registry) Of(t reflect.Type) *Shape {
	if t == nil {
		return nil
	}
	if cached, ok := r.shapes.Load(t); ok {
		return cached.(*Shape)
	}

	// Derivation never recurses into children (they resolve lazily), so a
	// singleflight key per type cannot deadlock on recursive types.
	v, _, _ := r.group.Do(typeKey(t), func() (any, error) {
		if cached, ok := r.shapes.Load(t); ok {
			return cached, nil
		}
		s := r.derive(t)
		actual, _ := r.shapes.LoadOrStore(t, s)
		Logger().Debug("derived shape",
			zap.String("shape", s.Name),
			zap.Stringer("kind", s.Def.Kind),
			zap.Uintptr("size", s.Layout.Size))
		return actual, nil
	})
	return v.(*Shape)
}

// SliceOf returns the unsized slice view over elements of type elem.
func (r *Registry) SliceOf(elem reflect.Type) *Shape {
	if cached, ok := r.slices.Load(elem); ok {
		return cached.(*Shape)
	}
	s := r.deriveSlice(elem)
	actual, _ := r.slices.LoadOrStore(elem, s)
	return actual.(*Shape)
}

// Register installs an externally produced descriptor for its Go type.
// It fails when a shape for that type was already derived or registered.
func (r *Registry) Register(s *Shape) error {
	if s == nil || s.GoType == nil {
		return errors.New(errors.PhaseShape, errors.KindNilPointer).
			Detail("shape and its Go type must be non-nil").
			Build()
	}
	if _, loaded := r.shapes.LoadOrStore(s.GoType, s); loaded {
		return errors.New(errors.PhaseShape, errors.KindOperationFailed).
			Shape(s.Name).
			Operation("register").
			Detail("a shape for %s already exists", s.GoType).
			Build()
	}
	return nil
}

func (r *Registry) lazy(t reflect.Type) func() *Shape {
	return sync.OnceValue(func() *Shape { return r.Of(t) })
}

func (r *Registry) derived(t reflect.Type) bool {
	_, ok := r.shapes.Load(t)
	return ok
}

func typeKey(t reflect.Type) string {
	return fmt.Sprintf("%p", t)
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
