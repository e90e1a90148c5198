package peek

import (
	"iter"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

// Map reads a map value.
type Map struct {
	v   Value
	def *shape.MapDef
}

func (v Value) Map() (Map, error) {
	if err := v.want(shape.KindMap, "map"); err != nil {
		return Map{}, err
	}
	return Map{v: v, def: v.s.Def.Map}, nil
}

func (m Map) Value() Value       { return m.v }
func (m Map) Key() *shape.Shape  { return m.def.Key() }
func (m Map) Elem() *shape.Shape { return m.def.Value() }
func (m Map) Len() int           { return m.def.VTable.Len(m.v.p) }

func (m Map) checkKey(key Value) error {
	if !key.IsValid() {
		return errors.NilPointer(errors.PhasePeek, nil, m.def.Key().Name)
	}
	if !key.s.Is(m.def.Key()) {
		return errors.TypeMismatch(errors.PhasePeek, nil, key.s.Name, m.def.Key().Name)
	}
	return nil
}

// ContainsKey reports whether key is present.
func (m Map) ContainsKey(key Value) (bool, error) {
	if err := m.checkKey(key); err != nil {
		return false, err
	}
	return m.def.VTable.Contains(m.v.p, key.p), nil
}

// Get returns a copy of the value stored under key.
func (m Map) Get(key Value) (Value, bool, error) {
	if err := m.checkKey(key); err != nil {
		return Value{}, false, err
	}
	p, ok := m.def.VTable.Get(m.v.p, key.p)
	if !ok {
		return Value{}, false, nil
	}
	return Value{s: m.def.Value(), p: p}, true, nil
}

// Iter opens an iteration handle. The caller must Close it.
func (m Map) Iter() *MapIter {
	return &MapIter{m: m, it: m.def.VTable.IterInit(m.v.p)}
}

// All iterates the entries in unspecified order. The handle is released
// when the loop finishes or breaks. Keys and values are only valid during
// their iteration step.
func (m Map) All() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		it := m.Iter()
		defer it.Close()
		for {
			k, v, ok := it.Next()
			if !ok || !yield(k, v) {
				return
			}
		}
	}
}

// MapIter is an open map iteration. Close releases the handle exactly once;
// further calls are no-ops.
type MapIter struct {
	m      Map
	it     *shape.MapIter
	closed bool
}

// Next returns the next entry. It closes the iterator once exhausted.
func (it *MapIter) Next() (key, value Value, ok bool) {
	if it.closed {
		return Value{}, Value{}, false
	}
	k, v, ok := it.m.def.VTable.IterNext(it.it)
	if !ok {
		it.Close()
		return Value{}, Value{}, false
	}
	return Value{s: it.m.def.Key(), p: k}, Value{s: it.m.def.Value(), p: v}, true
}

// Closed reports whether the handle has been released.
func (it *MapIter) Closed() bool { return it.closed }

func (it *MapIter) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.m.def.VTable.IterDealloc(it.it)
	it.it = nil
}

// Set reads a set value.
type Set struct {
	v   Value
	def *shape.SetDef
}

func (v Value) Set() (Set, error) {
	if err := v.want(shape.KindSet, "set"); err != nil {
		return Set{}, err
	}
	return Set{v: v, def: v.s.Def.Set}, nil
}

func (s Set) Value() Value       { return s.v }
func (s Set) Elem() *shape.Shape { return s.def.Elem() }
func (s Set) Len() int           { return s.def.VTable.Len(s.v.p) }

// Contains reports whether elem is a member.
func (s Set) Contains(elem Value) (bool, error) {
	if !elem.IsValid() {
		return false, errors.NilPointer(errors.PhasePeek, nil, s.def.Elem().Name)
	}
	if !elem.s.Is(s.def.Elem()) {
		return false, errors.TypeMismatch(errors.PhasePeek, nil, elem.s.Name, s.def.Elem().Name)
	}
	return s.def.VTable.Contains(s.v.p, elem.p), nil
}

// All iterates the members in unspecified order.
func (s Set) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		it := s.def.VTable.IterInit(s.v.p)
		defer s.def.VTable.IterDealloc(it)
		elem := s.def.Elem()
		for {
			p, ok := s.def.VTable.IterNext(it)
			if !ok || !yield(Value{s: elem, p: p}) {
				return
			}
		}
	}
}
