package shape

import (
	stderrors "errors"
	"hash/maphash"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
)

func kindOf(err error) errors.Kind {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func debugOf[T any](v T) string {
	return DebugString(Of[T](), ptr.ConstOf(&v))
}

func displayOf[T any](v T) string {
	s := Of[T]()
	if s.VTable.Display == nil {
		return "<no display>"
	}
	var b strings.Builder
	s.VTable.Display(ptr.ConstOf(&v), &b)
	return b.String()
}

func hashValue[T any](seed maphash.Seed, v T) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	Of[T]().VTable.Hash(ptr.ConstOf(&v), &h)
	return h.Sum64()
}

func TestDebug(t *testing.T) {
	five := 5
	label := "x"
	var nilExpr expr

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"struct", debugOf(outer{Name: "hi", Inner: inner{X: 1, B: 2}}), `outer { Name: "hi", Inner: inner { X: 1, B: 2 } }`},
		{"sensitive", debugOf(account{User: "u", Password: "p", Port: 1}),
			`account { User: "u", password: [REDACTED], Note: "", port: 1, Nick: None }`},
		{"tuple", debugOf(pair{A: 1, B: "x"}), `pair(1, "x")`},
		{"unit", debugOf(unit{}), "unit"},
		{"list", debugOf([]int{1, 2}), "[1, 2]"},
		{"array", debugOf([2]bool{true, false}), "[true, false]"},
		{"map", debugOf(map[string]int{"b": 2, "a": 1}), `{"a": 1, "b": 2}`},
		{"set", debugOf(map[string]struct{}{"b": {}, "a": {}}), `{"a", "b"}`},
		{"none", debugOf[*int](nil), "None"},
		{"some", debugOf(&five), "Some(5)"},
		{"enum struct variant", debugOf[expr](lit{V: 1}), "lit { V: 1 }"},
		{"enum pointer variant", debugOf[expr](&add{L: 1, R: 2}), "add { L: 1, R: 2 }"},
		{"enum newtype variant", debugOf[expr](neg(3)), "neg(3)"},
		{"enum nil", debugOf(nilExpr), "<nil>"},
		{"integer enum", debugOf(color(5)), "Blue"},
		{"integer enum unknown", debugOf(color(7)), "color(7)"},
		{"union", debugOf(shapeOrPoint{Label: &label}), `shapeOrPoint { Label: "x" }`},
		{"union empty", debugOf(shapeOrPoint{}), "shapeOrPoint {}"},
		{"shared", debugOf(NewShared(5)), "Shared(5)"},
		{"shared nil", debugOf(Shared[int]{}), "Shared(nil)"},
		{"text", debugOf(version{Major: 1, Minor: 2}), "1.2"},
		{"float", debugOf(1.5), "1.5"},
		{"opaque", debugOf(withFunc{Name: "f"}), `withFunc { Name: "f", Fn: <func()> }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "L2", displayOf(level(2)))
	assert.Equal(t, "Blue", displayOf(color(5)))
	assert.Equal(t, "9", displayOf(color(9)))
	assert.Equal(t, "bob", displayOf(userID{V: "bob"}))
	assert.Equal(t, "plain", displayOf("plain"))
	assert.Equal(t, "3.4", displayOf(version{Major: 3, Minor: 4}))
	assert.Equal(t, "<no display>", displayOf(outer{}))
	assert.Nil(t, Of[expr]().VTable.Display)
}

func TestParse(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		var n int16
		_, err := Of[int16]().VTable.Parse("-12", uninit(&n))
		require.NoError(t, err)
		assert.Equal(t, int16(-12), n)

		var b bool
		_, err = Of[bool]().VTable.Parse("true", uninit(&b))
		require.NoError(t, err)
		assert.True(t, b)

		var f float32
		_, err = Of[float32]().VTable.Parse("2.5", uninit(&f))
		require.NoError(t, err)
		assert.Equal(t, float32(2.5), f)
	})

	t.Run("overflow", func(t *testing.T) {
		var n int8
		_, err := Of[int8]().VTable.Parse("200", uninit(&n))
		assert.Equal(t, errors.KindOverflow, kindOf(err))
	})

	t.Run("invalid", func(t *testing.T) {
		var n uint
		_, err := Of[uint]().VTable.Parse("abc", uninit(&n))
		assert.Equal(t, errors.KindInvalidData, kindOf(err))
	})

	t.Run("text", func(t *testing.T) {
		var v version
		_, err := Of[version]().VTable.Parse("3.4", uninit(&v))
		require.NoError(t, err)
		assert.Equal(t, version{Major: 3, Minor: 4}, v)
	})

	t.Run("integer enum", func(t *testing.T) {
		var c color
		_, err := Of[color]().VTable.Parse("Blue", uninit(&c))
		require.NoError(t, err)
		assert.Equal(t, color(5), c)

		_, err = Of[color]().VTable.Parse("1", uninit(&c))
		require.NoError(t, err)
		assert.Equal(t, color(1), c)

		_, err = Of[color]().VTable.Parse("9", uninit(&c))
		assert.Equal(t, errors.KindVariantUnknown, kindOf(err))
	})

	t.Run("transparent with invariants", func(t *testing.T) {
		var u userID
		_, err := Of[userID]().VTable.Parse("alice", uninit(&u))
		require.NoError(t, err)
		assert.Equal(t, userID{V: "alice"}, u)

		var empty userID
		_, err = Of[userID]().VTable.Parse("", uninit(&empty))
		assert.ErrorIs(t, err, errors.ErrInvariant)
	})

	assert.Nil(t, Of[outer]().VTable.Parse)
}

func TestEqual(t *testing.T) {
	eq := func(s *Shape, a, b ptr.Const) bool { return s.VTable.Equal(a, b) }

	a := outer{Name: "x", Inner: inner{X: 1}}
	b := a
	c := outer{Name: "x", Inner: inner{X: 2}}
	assert.True(t, eq(Of[outer](), ptr.ConstOf(&a), ptr.ConstOf(&b)))
	assert.False(t, eq(Of[outer](), ptr.ConstOf(&a), ptr.ConstOf(&c)))

	m1 := map[string]int{"a": 1, "b": 2}
	m2 := map[string]int{"b": 2, "a": 1}
	m3 := map[string]int{"a": 1, "b": 3}
	assert.True(t, eq(Of[map[string]int](), ptr.ConstOf(&m1), ptr.ConstOf(&m2)))
	assert.False(t, eq(Of[map[string]int](), ptr.ConstOf(&m1), ptr.ConstOf(&m3)))

	var e1 expr = &add{L: 1, R: 2}
	var e2 expr = &add{L: 1, R: 2}
	var e3 expr = lit{V: 1}
	assert.True(t, eq(Of[expr](), ptr.ConstOf(&e1), ptr.ConstOf(&e2)))
	assert.False(t, eq(Of[expr](), ptr.ConstOf(&e1), ptr.ConstOf(&e3)))

	n1 := node{V: 1, Next: &node{V: 2}}
	n2 := node{V: 1, Next: &node{V: 2}}
	n3 := node{V: 1}
	assert.True(t, eq(Of[node](), ptr.ConstOf(&n1), ptr.ConstOf(&n2)))
	assert.False(t, eq(Of[node](), ptr.ConstOf(&n1), ptr.ConstOf(&n3)))

	zero, negZero := 0.0, math.Copysign(0, -1)
	assert.True(t, eq(Of[float64](), ptr.ConstOf(&zero), ptr.ConstOf(&negZero)))
}

func TestCompare(t *testing.T) {
	cmpOf := func(s *Shape, a, b ptr.Const) int { return s.VTable.Compare(a, b) }

	p1, p2 := pair{A: 1, B: "a"}, pair{A: 1, B: "b"}
	assert.Equal(t, -1, cmpOf(Of[pair](), ptr.ConstOf(&p1), ptr.ConstOf(&p2)))
	assert.Equal(t, 1, cmpOf(Of[pair](), ptr.ConstOf(&p2), ptr.ConstOf(&p1)))
	assert.Equal(t, 0, cmpOf(Of[pair](), ptr.ConstOf(&p1), ptr.ConstOf(&p1)))

	short, long := []int{1, 2}, []int{1, 2, 3}
	assert.Equal(t, -1, cmpOf(Of[[]int](), ptr.ConstOf(&short), ptr.ConstOf(&long)))

	one := 1
	var none *int
	some := &one
	assert.Equal(t, -1, cmpOf(Of[*int](), ptr.ConstOf(&none), ptr.ConstOf(&some)))

	v1, v2 := version{Major: 1, Minor: 2}, version{Major: 1, Minor: 9}
	assert.Equal(t, -1, cmpOf(Of[version](), ptr.ConstOf(&v1), ptr.ConstOf(&v2)))

	red, blue := color(0), color(5)
	assert.Equal(t, -1, cmpOf(Of[color](), ptr.ConstOf(&red), ptr.ConstOf(&blue)))

	assert.Nil(t, Of[map[string]int]().VTable.Compare)
	assert.Nil(t, Of[shapeOrPoint]().VTable.Compare)
}

func TestHash(t *testing.T) {
	seed := maphash.MakeSeed()

	m1 := map[string]int{}
	m2 := map[string]int{}
	for i, k := range []string{"a", "b", "c", "d"} {
		m1[k] = i
	}
	for i := 3; i >= 0; i-- {
		m2[string(rune('a'+i))] = i
	}
	assert.Equal(t, hashValue(seed, m1), hashValue(seed, m2))

	m2["d"] = 7
	assert.NotEqual(t, hashValue(seed, m1), hashValue(seed, m2))

	assert.Equal(t, hashValue(seed, 0.0), hashValue(seed, math.Copysign(0, -1)))
	assert.Equal(t,
		hashValue(seed, outer{Name: "a", Inner: inner{X: 1}}),
		hashValue(seed, outer{Name: "a", Inner: inner{X: 1}}))
	assert.NotEqual(t, hashValue(seed, []int{1, 2}), hashValue(seed, []int{2, 1}))

	set1 := map[string]struct{}{"x": {}, "y": {}}
	set2 := map[string]struct{}{"y": {}, "x": {}}
	assert.Equal(t, hashValue(seed, set1), hashValue(seed, set2))
}

func TestDefault(t *testing.T) {
	var acc account
	Of[account]().VTable.Default(uninit(&acc))
	assert.Equal(t, account{Port: 8080}, acc)

	var w withDefaults
	Of[withDefaults]().VTable.Default(uninit(&w))
	assert.Equal(t, withDefaults{Retries: 3, Mode: "fast"}, w)

	c := color(5)
	Of[color]().VTable.Default(uninit(&c))
	assert.Equal(t, color(0), c)

	arr := [2]withDefaults{}
	Of[[2]withDefaults]().VTable.Default(uninit(&arr))
	assert.Equal(t, "fast", arr[1].Mode)

	assert.False(t, Of[expr]().Supports(OpDefault))
	assert.False(t, Of[shapeOrPoint]().Supports(OpDefault))
	assert.False(t, SliceOf(Of[int]().GoType).Supports(OpDefault))
}

func TestDefaultField(t *testing.T) {
	s := Of[account]()
	i, _ := s.Def.Struct.FieldIndex("port")
	var port int
	require.NoError(t, DefaultField(&s.Def.Struct.Fields[i], uninit(&port)))
	assert.Equal(t, 8080, port)

	bad := NewField("n", 0, 0, FieldHasDefault, func() *Shape { return Of[int]() })
	bad.DefaultText = "not a number"
	assert.Error(t, DefaultField(&bad, uninit(&port)))

	unsupported := NewField("e", 0, 0, 0, func() *Shape { return Of[expr]() })
	var e expr
	assert.ErrorIs(t, DefaultField(&unsupported, uninit(&e)), errors.ErrUnsupported)
}

func TestClone(t *testing.T) {
	t.Run("list is deep", func(t *testing.T) {
		src := []int{1, 2, 3}
		var dst []int
		Of[[]int]().VTable.Clone(ptr.ConstOf(&src), uninit(&dst))
		src[0] = 9
		assert.Equal(t, []int{1, 2, 3}, dst)
	})

	t.Run("map is deep", func(t *testing.T) {
		src := map[string][]int{"a": {1}}
		var dst map[string][]int
		Of[map[string][]int]().VTable.Clone(ptr.ConstOf(&src), uninit(&dst))
		src["a"][0] = 9
		src["b"] = nil
		assert.Equal(t, map[string][]int{"a": {1}}, dst)
	})

	t.Run("option allocates", func(t *testing.T) {
		src := node{V: 1, Next: &node{V: 2}}
		var dst node
		Of[node]().VTable.Clone(ptr.ConstOf(&src), uninit(&dst))
		require.NotNil(t, dst.Next)
		assert.NotSame(t, src.Next, dst.Next)
		assert.Equal(t, src, dst)
	})

	t.Run("enum payload", func(t *testing.T) {
		var src expr = &add{L: 1, R: 2}
		var dst expr
		Of[expr]().VTable.Clone(ptr.ConstOf(&src), uninit(&dst))
		require.IsType(t, &add{}, dst)
		assert.NotSame(t, src.(*add), dst.(*add))
		assert.Equal(t, *src.(*add), *dst.(*add))
	})

	t.Run("union", func(t *testing.T) {
		r := 2.5
		src := shapeOrPoint{Circle: &r}
		var dst shapeOrPoint
		Of[shapeOrPoint]().VTable.Clone(ptr.ConstOf(&src), uninit(&dst))
		require.NotNil(t, dst.Circle)
		assert.NotSame(t, src.Circle, dst.Circle)
		assert.Equal(t, 2.5, *dst.Circle)
	})

	t.Run("shared pointer shares target", func(t *testing.T) {
		src := NewShared(5)
		var dst Shared[int]
		Of[Shared[int]]().VTable.Clone(ptr.ConstOf(&src), uninit(&dst))
		assert.Same(t, src.cell, dst.cell)
	})
}

func TestDropOrder(t *testing.T) {
	t.Run("own hook before children in reverse", func(t *testing.T) {
		var log dropLog
		h := trackerHolder{
			tracker: tracker{ID: 0, log: &log},
			A:       tracker{ID: 1, log: &log},
			B:       tracker{ID: 2, log: &log},
		}
		Of[trackerHolder]().VTable.Drop(ptr.MutOf(&h))
		assert.Equal(t, dropLog{0, 2, 1}, log)
		assert.Equal(t, trackerHolder{}, h)
	})

	t.Run("list elements in reverse", func(t *testing.T) {
		var log dropLog
		l := []tracker{{ID: 1, log: &log}, {ID: 2, log: &log}, {ID: 3, log: &log}}
		Of[[]tracker]().VTable.Drop(ptr.MutOf(&l))
		assert.Equal(t, dropLog{3, 2, 1}, log)
		assert.Nil(t, l)
	})

	t.Run("map values", func(t *testing.T) {
		var log dropLog
		m := map[string]tracker{"a": {ID: 1, log: &log}, "b": {ID: 2, log: &log}}
		Of[map[string]tracker]().VTable.Drop(ptr.MutOf(&m))
		assert.ElementsMatch(t, dropLog{1, 2}, log)
		assert.Nil(t, m)
	})

	t.Run("option inner", func(t *testing.T) {
		var log dropLog
		p := &tracker{ID: 4, log: &log}
		Of[*tracker]().VTable.Drop(ptr.MutOf(&p))
		assert.Equal(t, dropLog{4}, log)
		assert.Nil(t, p)
	})

	t.Run("smart pointer never drops target", func(t *testing.T) {
		var log dropLog
		sh := NewShared(tracker{ID: 5, log: &log})
		Of[Shared[tracker]]().VTable.Drop(ptr.MutOf(&sh))
		assert.Empty(t, log)
		assert.True(t, sh.IsNil())
	})

	t.Run("plain value is zeroed", func(t *testing.T) {
		v := outer{Name: "x"}
		DropValue(Of[outer](), ptr.MutOf(&v))
		assert.Equal(t, outer{}, v)
	})
}

func TestTryFrom(t *testing.T) {
	t.Run("narrowing integer", func(t *testing.T) {
		src := int64(100)
		var dst int8
		_, err := TryFrom(Of[int8](), ptr.ConstOf(&src), Of[int64](), uninit(&dst))
		require.NoError(t, err)
		assert.Equal(t, int8(100), dst)

		src = 300
		_, err = TryFrom(Of[int8](), ptr.ConstOf(&src), Of[int64](), uninit(&dst))
		assert.Equal(t, errors.KindOverflow, kindOf(err))
	})

	t.Run("float to int", func(t *testing.T) {
		whole, frac := 4.0, 2.5
		var dst int
		_, err := TryFrom(Of[int](), ptr.ConstOf(&whole), Of[float64](), uninit(&dst))
		require.NoError(t, err)
		assert.Equal(t, 4, dst)

		_, err = TryFrom(Of[int](), ptr.ConstOf(&frac), Of[float64](), uninit(&dst))
		assert.Error(t, err)
	})

	t.Run("negative to unsigned", func(t *testing.T) {
		src := -1
		var dst uint8
		_, err := TryFrom(Of[uint8](), ptr.ConstOf(&src), Of[int](), uninit(&dst))
		assert.Error(t, err)
	})

	t.Run("integer to enum", func(t *testing.T) {
		src := 5
		var dst color
		_, err := TryFrom(Of[color](), ptr.ConstOf(&src), Of[int](), uninit(&dst))
		require.NoError(t, err)
		assert.Equal(t, color(5), dst)

		src = 3
		_, err = TryFrom(Of[color](), ptr.ConstOf(&src), Of[int](), uninit(&dst))
		assert.Equal(t, errors.KindVariantUnknown, kindOf(err))
	})

	t.Run("value into option", func(t *testing.T) {
		src := 7
		var dst *int
		_, err := TryFrom(Of[*int](), ptr.ConstOf(&src), Of[int](), uninit(&dst))
		require.NoError(t, err)
		require.NotNil(t, dst)
		assert.Equal(t, 7, *dst)
	})

	t.Run("into transparent", func(t *testing.T) {
		src := "bob"
		var dst userID
		_, err := TryFrom(Of[userID](), ptr.ConstOf(&src), Of[string](), uninit(&dst))
		require.NoError(t, err)
		assert.Equal(t, userID{V: "bob"}, dst)

		src = ""
		_, err = TryFrom(Of[userID](), ptr.ConstOf(&src), Of[string](), uninit(&dst))
		assert.ErrorIs(t, err, errors.ErrInvariant)
	})

	t.Run("out of transparent", func(t *testing.T) {
		src := userID{V: "carol"}
		var dst string
		_, err := TryFrom(Of[string](), ptr.ConstOf(&src), Of[userID](), uninit(&dst))
		require.NoError(t, err)
		assert.Equal(t, "carol", dst)
	})

	t.Run("text from string", func(t *testing.T) {
		src := "2.7"
		var dst version
		_, err := TryFrom(Of[version](), ptr.ConstOf(&src), Of[string](), uninit(&dst))
		require.NoError(t, err)
		assert.Equal(t, version{Major: 2, Minor: 7}, dst)
	})

	t.Run("incompatible", func(t *testing.T) {
		src := outer{}
		var dst int
		_, err := TryFrom(Of[int](), ptr.ConstOf(&src), Of[outer](), uninit(&dst))
		assert.ErrorIs(t, err, errors.ErrConversion)
	})
}

func TestInnerAccess(t *testing.T) {
	u := userID{V: "dave"}
	var out string
	_, err := Of[userID]().VTable.TryIntoInner(ptr.ConstOf(&u), uninit(&out))
	require.NoError(t, err)
	assert.Equal(t, "dave", out)

	inner, err := Of[userID]().VTable.TryBorrowInner(ptr.ConstOf(&u))
	require.NoError(t, err)
	assert.Equal(t, "dave", *(*string)(inner.Raw()))

	var none *int
	_, err = Of[*int]().VTable.TryBorrowInner(ptr.ConstOf(&none))
	assert.Equal(t, errors.KindNilPointer, kindOf(err))

	assert.Nil(t, Of[outer]().VTable.TryIntoInner)
}

func TestCheckInvariants(t *testing.T) {
	ok := userID{V: "x"}
	assert.NoError(t, CheckInvariants(Of[userID](), ptr.ConstOf(&ok)))

	bad := userID{}
	err := CheckInvariants(Of[userID](), ptr.ConstOf(&bad))
	assert.ErrorIs(t, err, errors.ErrInvariant)
	assert.ErrorContains(t, err, "must not be empty")

	var o outer
	assert.NoError(t, CheckInvariants(Of[outer](), ptr.ConstOf(&o)))
}
