package shape

import (
	"cmp"
	"encoding/binary"
	"hash/maphash"
	"math"
	"reflect"
	"strings"

	"github.com/wippyai/shape-runtime/ptr"
)

func equalOf(s *Shape, a, b ptr.Const) bool {
	if s.VTable.Equal == nil {
		return false
	}
	return s.VTable.Equal(a, b)
}

func compareOf(s *Shape, a, b ptr.Const) int {
	if s.VTable.Compare == nil {
		return 0
	}
	return s.VTable.Compare(a, b)
}

func hashOf(s *Shape, p ptr.Const, h *maphash.Hash) {
	if s.VTable.Hash != nil {
		s.VTable.Hash(p, h)
	}
}

// method returns the method name of t (through its pointer type) when its
// signature is func(T) R with R of kind out.
func method(t reflect.Type, name string, out reflect.Kind) (reflect.Method, bool) {
	m, ok := reflect.PointerTo(t).MethodByName(name)
	if !ok {
		return m, false
	}
	mt := m.Type
	if mt.NumIn() != 2 || mt.In(1) != t || mt.NumOut() != 1 || mt.Out(0).Kind() != out {
		return m, false
	}
	return m, true
}

func callMethod(m reflect.Method, t reflect.Type, a, b ptr.Const) reflect.Value {
	return m.Func.Call([]reflect.Value{reflect.NewAt(t, a.Raw()), b.Value(t)})[0]
}

func equalFunc(s *Shape) func(a, b ptr.Const) bool {
	t := s.GoType
	switch s.Def.Kind {
	case KindScalar:
		switch s.Def.Scalar.Affinity {
		case AffinityText:
			if m, ok := method(t, "Equal", reflect.Bool); ok {
				return func(a, b ptr.Const) bool { return callMethod(m, t, a, b).Bool() }
			}
			if t.Comparable() {
				return func(a, b ptr.Const) bool { return a.Value(t).Equal(b.Value(t)) }
			}
			return func(a, b ptr.Const) bool {
				ta, errA := marshalText(t, a)
				tb, errB := marshalText(t, b)
				return errA == nil && errB == nil && ta == tb
			}
		case AffinityOpaque:
			if t.Kind() == reflect.Interface || !t.Comparable() {
				return nil
			}
		}
		return func(a, b ptr.Const) bool { return a.Value(t).Equal(b.Value(t)) }
	case KindStruct, KindTuple:
		fields := s.Def.Struct.Fields
		return func(a, b ptr.Const) bool { return equalFields(fields, a, b) }
	case KindEnum:
		if s.Def.Enum.Repr == EnumReprInteger {
			return func(a, b ptr.Const) bool { return a.Value(t).Equal(b.Value(t)) }
		}
		return func(a, b ptr.Const) bool {
			va, pa, okA := ActiveVariant(s, a)
			vb, pb, okB := ActiveVariant(s, b)
			if !okA || !okB {
				return okA == okB
			}
			return va.Index == vb.Index && equalFields(va.Data.Fields, pa, pb)
		}
	case KindUnion:
		d := s.Def.Union
		return func(a, b ptr.Const) bool {
			ia, ib := d.VTable.Active(a), d.VTable.Active(b)
			if ia != ib {
				return false
			}
			if ia < 0 {
				return true
			}
			return equalOf(d.Fields[ia].Shape(), d.VTable.Get(a, ia), d.VTable.Get(b, ib))
		}
	case KindArray, KindList, KindSlice:
		return func(a, b ptr.Const) bool {
			n := SequenceLen(s, a)
			if n != SequenceLen(s, b) {
				return false
			}
			elem := elemShape(s)
			for i := 0; i < n; i++ {
				if !equalOf(elem, ElementAt(s, a, i), ElementAt(s, b, i)) {
					return false
				}
			}
			return true
		}
	case KindMap:
		d := s.Def.Map
		return func(a, b ptr.Const) bool {
			if d.VTable.Len(a) != d.VTable.Len(b) {
				return false
			}
			equal := true
			it := d.VTable.IterInit(a)
			defer d.VTable.IterDealloc(it)
			for equal {
				k, va, ok := d.VTable.IterNext(it)
				if !ok {
					break
				}
				vb, found := d.VTable.Get(b, k)
				equal = found && equalOf(d.Value(), va, vb)
			}
			return equal
		}
	case KindSet:
		d := s.Def.Set
		return func(a, b ptr.Const) bool {
			if d.VTable.Len(a) != d.VTable.Len(b) {
				return false
			}
			equal := true
			it := d.VTable.IterInit(a)
			defer d.VTable.IterDealloc(it)
			for equal {
				e, ok := d.VTable.IterNext(it)
				if !ok {
					break
				}
				equal = d.VTable.Contains(b, e)
			}
			return equal
		}
	case KindOption:
		d := s.Def.Option
		return func(a, b ptr.Const) bool {
			ia, okA := d.VTable.Get(a)
			ib, okB := d.VTable.Get(b)
			if !okA || !okB {
				return okA == okB
			}
			return equalOf(d.Inner(), ia, ib)
		}
	case KindPointer:
		d := s.Def.Pointer
		return func(a, b ptr.Const) bool {
			ia, releaseA, okA := d.VTable.Borrow(a)
			defer releaseA()
			if okA && d.Known != KnownPointerCustom && loadPointer(a) == loadPointer(b) {
				return true
			}
			ib, releaseB, okB := d.VTable.Borrow(b)
			defer releaseB()
			if !okA || !okB {
				return okA == okB
			}
			return equalOf(d.Pointee(), ia, ib)
		}
	}
	return nil
}

func equalFields(fields []Field, a, b ptr.Const) bool {
	for i := range fields {
		f := &fields[i]
		if !equalOf(f.Shape(), a.Field(f.Offset), b.Field(f.Offset)) {
			return false
		}
	}
	return true
}

func compareFunc(s *Shape) func(a, b ptr.Const) int {
	t := s.GoType
	switch s.Def.Kind {
	case KindScalar:
		switch s.Def.Scalar.Affinity {
		case AffinityBool:
			return func(a, b ptr.Const) int {
				x, y := a.Value(t).Bool(), b.Value(t).Bool()
				switch {
				case x == y:
					return 0
				case !x:
					return -1
				}
				return 1
			}
		case AffinityInt:
			return func(a, b ptr.Const) int { return cmp.Compare(a.Value(t).Int(), b.Value(t).Int()) }
		case AffinityUint:
			return func(a, b ptr.Const) int { return cmp.Compare(a.Value(t).Uint(), b.Value(t).Uint()) }
		case AffinityFloat:
			return func(a, b ptr.Const) int { return cmp.Compare(a.Value(t).Float(), b.Value(t).Float()) }
		case AffinityString:
			return func(a, b ptr.Const) int { return strings.Compare(a.Value(t).String(), b.Value(t).String()) }
		case AffinityText:
			if m, ok := method(t, "Compare", reflect.Int); ok {
				return func(a, b ptr.Const) int { return sign(callMethod(m, t, a, b).Int()) }
			}
		}
		return nil
	case KindStruct, KindTuple:
		fields := s.Def.Struct.Fields
		return func(a, b ptr.Const) int { return compareFields(fields, a, b) }
	case KindEnum:
		if s.Def.Enum.Repr == EnumReprInteger {
			return func(a, b ptr.Const) int {
				va, vb := a.Value(t), b.Value(t)
				if va.CanInt() {
					return cmp.Compare(va.Int(), vb.Int())
				}
				return cmp.Compare(va.Uint(), vb.Uint())
			}
		}
		return func(a, b ptr.Const) int {
			va, pa, okA := ActiveVariant(s, a)
			vb, pb, okB := ActiveVariant(s, b)
			switch {
			case !okA && !okB:
				return 0
			case !okA:
				return -1
			case !okB:
				return 1
			}
			if c := cmp.Compare(va.Index, vb.Index); c != 0 {
				return c
			}
			return compareFields(va.Data.Fields, pa, pb)
		}
	case KindArray, KindList, KindSlice:
		return func(a, b ptr.Const) int {
			na, nb := SequenceLen(s, a), SequenceLen(s, b)
			elem := elemShape(s)
			for i := 0; i < min(na, nb); i++ {
				if c := compareOf(elem, ElementAt(s, a, i), ElementAt(s, b, i)); c != 0 {
					return c
				}
			}
			return cmp.Compare(na, nb)
		}
	case KindOption:
		d := s.Def.Option
		return func(a, b ptr.Const) int {
			ia, okA := d.VTable.Get(a)
			ib, okB := d.VTable.Get(b)
			switch {
			case !okA && !okB:
				return 0
			case !okA:
				return -1
			case !okB:
				return 1
			}
			return compareOf(d.Inner(), ia, ib)
		}
	case KindPointer:
		d := s.Def.Pointer
		return func(a, b ptr.Const) int {
			ia, releaseA, okA := d.VTable.Borrow(a)
			defer releaseA()
			if okA && d.Known != KnownPointerCustom && loadPointer(a) == loadPointer(b) {
				return 0
			}
			ib, releaseB, okB := d.VTable.Borrow(b)
			defer releaseB()
			switch {
			case !okA && !okB:
				return 0
			case !okA:
				return -1
			case !okB:
				return 1
			}
			return compareOf(d.Pointee(), ia, ib)
		}
	}
	return nil
}

func compareFields(fields []Field, a, b ptr.Const) int {
	for i := range fields {
		f := &fields[i]
		if c := compareOf(f.Shape(), a.Field(f.Offset), b.Field(f.Offset)); c != 0 {
			return c
		}
	}
	return 0
}

func sign(n int64) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func writeUint64(h *maphash.Hash, n uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	_, _ = h.Write(buf[:])
}

func normFloat(f float64) uint64 {
	if f == 0 {
		return 0
	}
	return math.Float64bits(f)
}

func hashFunc(s *Shape) func(p ptr.Const, h *maphash.Hash) {
	t := s.GoType
	switch s.Def.Kind {
	case KindScalar:
		switch s.Def.Scalar.Affinity {
		case AffinityBool:
			return func(p ptr.Const, h *maphash.Hash) {
				if p.Value(t).Bool() {
					_ = h.WriteByte(1)
				} else {
					_ = h.WriteByte(0)
				}
			}
		case AffinityInt:
			return func(p ptr.Const, h *maphash.Hash) { writeUint64(h, uint64(p.Value(t).Int())) }
		case AffinityUint:
			return func(p ptr.Const, h *maphash.Hash) { writeUint64(h, p.Value(t).Uint()) }
		case AffinityFloat:
			return func(p ptr.Const, h *maphash.Hash) { writeUint64(h, normFloat(p.Value(t).Float())) }
		case AffinityComplex:
			return func(p ptr.Const, h *maphash.Hash) {
				c := p.Value(t).Complex()
				writeUint64(h, normFloat(real(c)))
				writeUint64(h, normFloat(imag(c)))
			}
		case AffinityString:
			return func(p ptr.Const, h *maphash.Hash) { _, _ = h.WriteString(p.Value(t).String()) }
		case AffinityText:
			return func(p ptr.Const, h *maphash.Hash) {
				text, _ := marshalText(t, p)
				_, _ = h.WriteString(text)
			}
		}
		return nil
	case KindStruct, KindTuple:
		fields := s.Def.Struct.Fields
		return func(p ptr.Const, h *maphash.Hash) { hashFields(fields, p, h) }
	case KindEnum:
		return func(p ptr.Const, h *maphash.Hash) {
			v, payload, ok := ActiveVariant(s, p)
			if !ok {
				writeUint64(h, math.MaxUint64)
				return
			}
			writeUint64(h, uint64(v.Discriminant))
			hashFields(v.Data.Fields, payload, h)
		}
	case KindUnion:
		d := s.Def.Union
		return func(p ptr.Const, h *maphash.Hash) {
			i := d.VTable.Active(p)
			writeUint64(h, uint64(i+1))
			if i >= 0 {
				hashOf(d.Fields[i].Shape(), d.VTable.Get(p, i), h)
			}
		}
	case KindArray, KindList, KindSlice:
		return func(p ptr.Const, h *maphash.Hash) {
			elem := elemShape(s)
			n := 0
			for e := range elements(s, p) {
				hashOf(elem, e, h)
				n++
			}
			writeUint64(h, uint64(n))
		}
	case KindMap:
		d := s.Def.Map
		return func(p ptr.Const, h *maphash.Hash) {
			// entries are hashed separately and summed so order does not matter
			var sum uint64
			it := d.VTable.IterInit(p)
			defer d.VTable.IterDealloc(it)
			for {
				k, v, ok := d.VTable.IterNext(it)
				if !ok {
					break
				}
				var eh maphash.Hash
				eh.SetSeed(h.Seed())
				hashOf(d.Key(), k, &eh)
				hashOf(d.Value(), v, &eh)
				sum += eh.Sum64()
			}
			writeUint64(h, uint64(d.VTable.Len(p)))
			writeUint64(h, sum)
		}
	case KindSet:
		d := s.Def.Set
		return func(p ptr.Const, h *maphash.Hash) {
			var sum uint64
			it := d.VTable.IterInit(p)
			defer d.VTable.IterDealloc(it)
			for {
				e, ok := d.VTable.IterNext(it)
				if !ok {
					break
				}
				var eh maphash.Hash
				eh.SetSeed(h.Seed())
				hashOf(d.Elem(), e, &eh)
				sum += eh.Sum64()
			}
			writeUint64(h, uint64(d.VTable.Len(p)))
			writeUint64(h, sum)
		}
	case KindOption:
		d := s.Def.Option
		return func(p ptr.Const, h *maphash.Hash) {
			inner, ok := d.VTable.Get(p)
			if !ok {
				_ = h.WriteByte(0)
				return
			}
			_ = h.WriteByte(1)
			hashOf(d.Inner(), inner, h)
		}
	case KindPointer:
		d := s.Def.Pointer
		return func(p ptr.Const, h *maphash.Hash) {
			inner, release, ok := d.VTable.Borrow(p)
			defer release()
			if !ok {
				_ = h.WriteByte(0)
				return
			}
			_ = h.WriteByte(1)
			hashOf(d.Pointee(), inner, h)
		}
	}
	return nil
}

func hashFields(fields []Field, p ptr.Const, h *maphash.Hash) {
	for i := range fields {
		f := &fields[i]
		hashOf(f.Shape(), p.Field(f.Offset), h)
	}
}
