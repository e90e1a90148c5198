package iset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISet(t *testing.T) {
	var s ISet
	assert.True(t, s.All(0))
	assert.False(t, s.All(1))

	s.Set(0)
	s.Set(2)
	assert.True(t, s.Has(0))
	assert.False(t, s.Has(1))
	assert.True(t, s.Has(2))
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 1, s.FirstUnset(3))

	s.Set(1)
	assert.True(t, s.All(3))
	assert.Equal(t, -1, s.FirstUnset(3))

	s.Unset(1)
	assert.False(t, s.All(3))

	s.Clear()
	assert.Equal(t, 0, s.Count())
}

func TestISetFullWidth(t *testing.T) {
	var s ISet
	s.SetAll(Max)
	assert.True(t, s.All(Max))
	assert.True(t, s.Has(63))

	s.Unset(63)
	assert.False(t, s.All(Max))
	assert.True(t, s.All(63))
}

func TestISetPanicsPastCap(t *testing.T) {
	require.True(t, Fits(64))
	require.False(t, Fits(65))

	var s ISet
	assert.Panics(t, func() { s.Set(64) })
	assert.Panics(t, func() { s.Has(-1) })
}

func TestWide(t *testing.T) {
	w := NewWide(130)
	assert.Equal(t, 130, w.Len())
	assert.False(t, w.All())

	w.Set(0)
	w.Set(64)
	w.Set(129)
	assert.True(t, w.Has(64))
	assert.False(t, w.Has(65))
	assert.False(t, w.Has(130))
	assert.Equal(t, 3, w.Count())
	assert.Equal(t, 1, w.FirstUnset())

	w.SetAll()
	assert.True(t, w.All())
	assert.Equal(t, -1, w.FirstUnset())

	w.Unset(64)
	assert.Equal(t, 64, w.FirstUnset())

	w.Clear()
	assert.Equal(t, 0, w.Count())
}

func TestWideEmpty(t *testing.T) {
	w := NewWide(0)
	assert.True(t, w.All())
	assert.Equal(t, -1, w.FirstUnset())
}
