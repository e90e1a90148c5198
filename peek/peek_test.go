package peek

import (
	"database/sql"
	"hash/maphash"
	"net/netip"
	"runtime"
	"sort"
	"sync/atomic"
	"testing"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

func TestStructFields(t *testing.T) {
	p := person{Name: "ann", Age: 3, Secret: "s", Internal: 1}
	st, err := Of(&p).Struct()
	require.NoError(t, err)
	require.Equal(t, 8, st.Len())

	var names []string
	for f := range st.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Name", "Age", "secret", "Internal", "Address", "Extra", "tags", "Pet"}, names)

	age, err := st.FieldByName("Age")
	require.NoError(t, err)
	n, err := Get[int](age)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	name, err := st.Field(0)
	require.NoError(t, err)
	assert.Equal(t, `"ann"`, name.Debug())

	_, err = st.Field(8)
	assert.Equal(t, errors.KindOutOfBounds, kindOf(err))
	_, err = st.FieldByName("nope")
	assert.Equal(t, errors.KindFieldUnknown, kindOf(err))
}

func TestFieldsForSerialize(t *testing.T) {
	collect := func(p person) ([]string, []bool) {
		st, err := Of(&p).Struct()
		require.NoError(t, err)
		var names []string
		var flat []bool
		for sf := range st.FieldsForSerialize() {
			names = append(names, sf.Name)
			flat = append(flat, sf.Flattened)
		}
		return names, flat
	}

	t.Run("skips and splices", func(t *testing.T) {
		names, flat := collect(person{
			Name:    "ann",
			Secret:  "s",
			Address: address{City: "Oslo"},
			Pet:     dog{Name: "rex"},
		})
		assert.Equal(t, []string{"Name", "Age", "City", "dog"}, names)
		assert.Equal(t, []bool{false, false, true, true}, flat)
	})

	t.Run("some option and non-empty list", func(t *testing.T) {
		names, _ := collect(person{
			Address: address{City: "Oslo", Zip: "0150"},
			Extra:   &address{City: "Bergen"},
			Tags:    []string{"a"},
			Pet:     &cat{Lives: 9},
		})
		assert.Equal(t, []string{"Name", "Age", "City", "zip", "City", "tags", "cat"}, names)
	})

	t.Run("nil enum is left out", func(t *testing.T) {
		names, _ := collect(person{})
		assert.Equal(t, []string{"Name", "Age", "City"}, names)
	})

	t.Run("flattened enum yields the payload", func(t *testing.T) {
		p := person{Pet: dog{Name: "rex"}}
		st, err := Of(&p).Struct()
		require.NoError(t, err)
		for sf, v := range st.FieldsForSerialize() {
			if sf.Name != "dog" {
				continue
			}
			assert.Equal(t, `dog { Name: "rex" }`, v.Debug())
		}
	})

	t.Run("early break", func(t *testing.T) {
		p := person{Name: "x"}
		st, err := Of(&p).Struct()
		require.NoError(t, err)
		count := 0
		for range st.FieldsForSerialize() {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})
}

func TestTuple(t *testing.T) {
	p := point{X: 1, Y: 2}
	tup, err := Of(&p).Tuple()
	require.NoError(t, err)
	assert.Equal(t, shape.StructKindTuple, tup.Kind())

	y, err := tup.Field(1)
	require.NoError(t, err)
	n, err := Get[int](y)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a := address{}
	_, err = Of(&a).Tuple()
	assert.Equal(t, errors.KindTypeMismatch, kindOf(err))
}

func TestEnum(t *testing.T) {
	t.Run("pointer variant", func(t *testing.T) {
		var a animal = &cat{Lives: 9}
		e, err := Of(&a).Enum()
		require.NoError(t, err)
		assert.Equal(t, "cat", e.VariantName())
		assert.Equal(t, 1, e.VariantIndex())
		assert.Equal(t, 1, e.Len())

		lives, err := e.FieldByName("Lives")
		require.NoError(t, err)
		n, err := Get[int](lives)
		require.NoError(t, err)
		assert.Equal(t, 9, n)

		_, err = e.Field(1)
		assert.Equal(t, errors.KindOutOfBounds, kindOf(err))
		_, err = e.FieldByName("Name")
		assert.Equal(t, errors.KindFieldUnknown, kindOf(err))
	})

	t.Run("value variant", func(t *testing.T) {
		var a animal = dog{Name: "rex"}
		e, err := Of(&a).Enum()
		require.NoError(t, err)
		assert.Equal(t, "dog", e.VariantName())
		assert.Equal(t, `dog { Name: "rex" }`, e.Payload().Debug())

		var names []string
		for f, v := range e.Fields() {
			names = append(names, f.Name+"="+v.Debug())
		}
		assert.Equal(t, []string{`Name="rex"`}, names)
	})

	t.Run("nil interface", func(t *testing.T) {
		var a animal
		_, err := Of(&a).Enum()
		assert.Equal(t, errors.KindUninitializedValue, kindOf(err))
	})

	t.Run("integer enum", func(t *testing.T) {
		m := mood(3)
		e, err := Of(&m).Enum()
		require.NoError(t, err)
		assert.Equal(t, "angry", e.VariantName())
		assert.Equal(t, int64(3), e.Discriminant())
		assert.True(t, e.IsUnit())
		assert.False(t, e.Payload().IsValid())

		m = 7
		_, err = Of(&m).Enum()
		assert.Equal(t, errors.KindUninitializedValue, kindOf(err))
	})
}

func TestUnion(t *testing.T) {
	text := "hi"
	c := choice{Text: &text}
	u, err := Of(&c).Union()
	require.NoError(t, err)

	f, v, ok := u.Active()
	require.True(t, ok)
	assert.Equal(t, "Text", f.Name)
	assert.Equal(t, `"hi"`, v.Debug())

	empty := choice{}
	u, err = Of(&empty).Union()
	require.NoError(t, err)
	_, _, ok = u.Active()
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	xs := []int{1, 2, 3}
	l, err := Of(&xs).List()
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())
	assert.False(t, l.IsArray())

	v, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, "2", v.Debug())
	_, ok = l.Get(3)
	assert.False(t, ok)
	_, err = l.At(-1)
	assert.Equal(t, errors.KindOutOfBounds, kindOf(err))

	var got []int
	for i, e := range l.All() {
		n, err := Get[int](e)
		require.NoError(t, err)
		assert.Equal(t, xs[i], n)
		got = append(got, n)
	}
	assert.Equal(t, xs, got)

	view := l.AsSlice()
	assert.Equal(t, shape.KindSlice, view.Kind())
	sl, err := view.List()
	require.NoError(t, err)
	assert.Equal(t, 3, sl.Len())

	arr := [2]string{"a", "b"}
	al, err := Of(&arr).List()
	require.NoError(t, err)
	assert.True(t, al.IsArray())
	last, err := al.At(1)
	require.NoError(t, err)
	assert.Equal(t, `"b"`, last.Debug())

	var empty []int
	el, err := Of(&empty).List()
	require.NoError(t, err)
	for range el.All() {
		t.Fatal("empty list yielded an element")
	}

	n := 1
	_, err = Of(&n).List()
	assert.Equal(t, errors.KindTypeMismatch, kindOf(err))
}

func TestMap(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2}
	mv, err := Of(&m).Map()
	require.NoError(t, err)
	assert.Equal(t, 2, mv.Len())

	ok, err := mv.ContainsKey(ValueOf("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	v, ok, err := mv.Get(ValueOf("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", v.Debug())

	_, ok, err = mv.Get(ValueOf("z"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = mv.ContainsKey(ValueOf(1))
	assert.Equal(t, errors.KindTypeMismatch, kindOf(err))

	got := map[string]int{}
	for k, v := range mv.All() {
		ks, err := Get[string](k)
		require.NoError(t, err)
		vs, err := Get[int](v)
		require.NoError(t, err)
		got[ks] = vs
	}
	assert.Equal(t, m, got)
}

// countingMap wraps the derived map vtable to count released iterators.
func countingMap(t *testing.T) (*shape.Shape, *int) {
	t.Helper()
	def := *shape.Of[map[string]int]().Def.Map
	deallocs := 0
	release := def.VTable.IterDealloc
	def.VTable.IterDealloc = func(it *shape.MapIter) {
		deallocs++
		release(it)
	}
	s := shape.Assemble(shape.Of[map[string]int]().GoType, "counted", "test", shape.Def{Kind: shape.KindMap, Map: &def})
	return s, &deallocs
}

func TestMapIterReleasedOnce(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2, "c": 3}

	t.Run("explicit close", func(t *testing.T) {
		s, deallocs := countingMap(t)
		mv, err := Unchecked(Of(&m).Ptr(), s).Map()
		require.NoError(t, err)

		it := mv.Iter()
		_, _, ok := it.Next()
		require.True(t, ok)
		it.Close()
		it.Close()
		assert.True(t, it.Closed())
		assert.Equal(t, 1, *deallocs)

		_, _, ok = it.Next()
		assert.False(t, ok)
	})

	t.Run("exhaustion", func(t *testing.T) {
		s, deallocs := countingMap(t)
		mv, err := Unchecked(Of(&m).Ptr(), s).Map()
		require.NoError(t, err)

		it := mv.Iter()
		n := 0
		for {
			_, _, ok := it.Next()
			if !ok {
				break
			}
			n++
		}
		it.Close()
		assert.Equal(t, 3, n)
		assert.Equal(t, 1, *deallocs)
	})

	t.Run("range with break", func(t *testing.T) {
		s, deallocs := countingMap(t)
		mv, err := Unchecked(Of(&m).Ptr(), s).Map()
		require.NoError(t, err)
		for range mv.All() {
			break
		}
		assert.Equal(t, 1, *deallocs)
	})

	t.Run("range to completion", func(t *testing.T) {
		s, deallocs := countingMap(t)
		mv, err := Unchecked(Of(&m).Ptr(), s).Map()
		require.NoError(t, err)
		for range mv.All() {
		}
		assert.Equal(t, 1, *deallocs)
	})
}

func TestSet(t *testing.T) {
	s := map[string]struct{}{"x": {}, "y": {}}
	sv, err := Of(&s).Set()
	require.NoError(t, err)
	assert.Equal(t, 2, sv.Len())

	ok, err := sv.Contains(ValueOf("x"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = sv.Contains(ValueOf("q"))
	require.NoError(t, err)
	assert.False(t, ok)

	var got []string
	for e := range sv.All() {
		str, err := Get[string](e)
		require.NoError(t, err)
		got = append(got, str)
	}
	sort.Strings(got)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestOption(t *testing.T) {
	var none *int
	o, err := Of(&none).Option()
	require.NoError(t, err)
	assert.True(t, o.IsNone())
	_, ok := o.Value()
	assert.False(t, ok)

	n := 4
	some := &n
	o, err = Of(&some).Option()
	require.NoError(t, err)
	assert.True(t, o.IsSome())
	v, ok := o.Value()
	require.True(t, ok)
	assert.Equal(t, "4", v.Debug())

	null := sql.Null[string]{V: "v", Valid: true}
	o, err = Of(&null).Option()
	require.NoError(t, err)
	v, ok = o.Value()
	require.True(t, ok)
	assert.Equal(t, `"v"`, v.Debug())
}

func TestSmartPointer(t *testing.T) {
	t.Run("shared", func(t *testing.T) {
		s := shape.NewShared(5)
		sp, err := Of(&s).SmartPointer()
		require.NoError(t, err)
		assert.Equal(t, shape.KnownPointerShared, sp.Known())
		assert.True(t, sp.Flags().Has(shape.PointerLock))

		v, release, err := sp.Borrow()
		require.NoError(t, err)
		n, err := Get[int](v)
		release()
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		// the read lock is released
		w, unlock := s.Lock()
		*w = 6
		unlock()
		assert.Equal(t, 6, s.Get())
	})

	t.Run("nil atomic", func(t *testing.T) {
		var a atomic.Pointer[int]
		sp, err := Of(&a).SmartPointer()
		require.NoError(t, err)
		assert.True(t, sp.Flags().Has(shape.PointerAtomic))
		_, release, err := sp.Borrow()
		release()
		assert.Equal(t, errors.KindNilPointer, kindOf(err))
	})

	t.Run("weak upgrade", func(t *testing.T) {
		target := new(int)
		*target = 11
		w := weak.Make(target)
		sp, err := Of(&w).SmartPointer()
		require.NoError(t, err)
		assert.True(t, sp.Flags().Has(shape.PointerWeak))

		v, release, err := sp.Borrow()
		require.NoError(t, err)
		assert.Equal(t, "11", v.Debug())
		release()
		runtime.KeepAlive(target)
	})
}

func TestScalar(t *testing.T) {
	i := int8(-3)
	sc, err := Of(&i).Scalar()
	require.NoError(t, err)
	assert.Equal(t, shape.AffinityInt, sc.Affinity())
	assert.Equal(t, 8, sc.Bits())
	n, err := sc.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(-3), n)
	_, err = sc.Uint()
	assert.Equal(t, errors.KindTypeMismatch, kindOf(err))

	u := uint16(9)
	sc, err = Of(&u).Scalar()
	require.NoError(t, err)
	un, err := sc.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), un)

	f := 2.5
	sc, err = Of(&f).Scalar()
	require.NoError(t, err)
	fv, err := sc.Float()
	require.NoError(t, err)
	assert.Equal(t, 2.5, fv)

	b := true
	sc, err = Of(&b).Scalar()
	require.NoError(t, err)
	bv, err := sc.Bool()
	require.NoError(t, err)
	assert.True(t, bv)

	c := complex(1, 2)
	sc, err = Of(&c).Scalar()
	require.NoError(t, err)
	cv, err := sc.Complex()
	require.NoError(t, err)
	assert.Equal(t, complex(1, 2), cv)

	s := "txt"
	sc, err = Of(&s).Scalar()
	require.NoError(t, err)
	text, err := sc.Text()
	require.NoError(t, err)
	assert.Equal(t, "txt", text)

	addr := netip.MustParseAddr("127.0.0.1")
	sc, err = Of(&addr).Scalar()
	require.NoError(t, err)
	assert.Equal(t, shape.AffinityText, sc.Affinity())
	text, err = sc.Text()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", text)

	p := point{}
	_, err = Of(&p).Scalar()
	assert.Equal(t, errors.KindTypeMismatch, kindOf(err))
}

func TestGet(t *testing.T) {
	n := 3
	_, err := Get[string](Of(&n))
	assert.Equal(t, errors.KindTypeMismatch, kindOf(err))

	_, err = Get[int](Value{})
	assert.Equal(t, errors.KindNilPointer, kindOf(err))

	assert.False(t, ValueOf(nil).IsValid())

	v := ValueOf(address{City: "Oslo"})
	a, err := Get[address](v)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", a.City)
	assert.Equal(t, address{City: "Oslo"}, v.Interface())
}

func TestInnermost(t *testing.T) {
	m := meters{V: 1.5}
	v := Of(&m)
	assert.Equal(t, shape.KindStruct, v.Kind())

	inner := v.Innermost()
	assert.Equal(t, shape.Of[float64](), inner.Shape())
	f, err := Get[float64](inner)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	n := 2
	assert.Equal(t, shape.Of[int](), Of(&n).Innermost().Shape())
}

func TestEqualCompareHash(t *testing.T) {
	a, b, c := 1, 1, 2
	eq, err := Of(&a).Equal(Of(&b))
	require.NoError(t, err)
	assert.True(t, eq)

	cmp, err := Of(&a).Compare(Of(&c))
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	seed := maphash.MakeSeed()
	ha, err := Of(&a).Hash64(seed)
	require.NoError(t, err)
	hb, err := Of(&b).Hash64(seed)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	s := "1"
	_, err = Of(&a).Equal(Of(&s))
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	_, err = Of(&a).Compare(Of(&s))
	assert.ErrorIs(t, err, errors.ErrUnsupported)

	fn := struct{ Fn func() }{}
	_, err = Of(&fn).Equal(Of(&fn))
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	_, err = Of(&fn).Hash64(seed)
	assert.ErrorIs(t, err, errors.ErrUnsupported)

	_, err = Value{}.Equal(Of(&a))
	assert.Equal(t, errors.KindNilPointer, kindOf(err))
}

func TestFormatting(t *testing.T) {
	n := 42
	v := Of(&n)
	assert.Equal(t, "42", v.Debug())
	d, err := v.Display()
	require.NoError(t, err)
	assert.Equal(t, "42", d)
	assert.Equal(t, "42", v.String())

	m := mood(0)
	assert.Equal(t, "calm", Of(&m).String())

	p := point{X: 1, Y: 2}
	_, err = Of(&p).Display()
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	assert.Equal(t, "point(1, 2)", Of(&p).String())

	assert.Equal(t, "<invalid>", Value{}.Debug())
}
