package iset

import (
	"math/bits"

	"fortio.org/safecast"
)

// Wide tracks an arbitrary number of slots. Arrays use it since their
// length is not bounded by the struct field cap.
type Wide struct {
	words []uint64
	n     int
}

func NewWide(n int) *Wide {
	return &Wide{words: make([]uint64, (n+63)/64), n: n}
}

func (w *Wide) Len() int { return w.n }

func (w *Wide) Set(i int)   { w.words[i/64] |= 1 << bitIndex(i) }
func (w *Wide) Unset(i int) { w.words[i/64] &^= 1 << bitIndex(i) }

func (w *Wide) Has(i int) bool {
	if i < 0 || i >= w.n {
		return false
	}
	return w.words[i/64]&(1<<bitIndex(i)) != 0
}

func (w *Wide) All() bool { return w.Count() == w.n }

func (w *Wide) Count() int {
	c := 0
	for _, word := range w.words {
		c += bits.OnesCount64(word)
	}
	return c
}

func (w *Wide) SetAll() {
	for i := 0; i < w.n; i++ {
		w.Set(i)
	}
}

func (w *Wide) Clear() { clear(w.words) }

// FirstUnset returns the lowest unset index, or -1.
func (w *Wide) FirstUnset() int {
	for i := 0; i < w.n; i++ {
		if !w.Has(i) {
			return i
		}
	}
	return -1
}

func bitIndex(i int) uint64 {
	b, err := safecast.Conv[uint64](i % 64)
	if err != nil {
		panic("iset: negative index")
	}
	return b
}
