// Package iset tracks which slots of a value under construction are initialized.
package iset

import "math/bits"

// Max is the number of slots an ISet can track.
const Max = 64

// ISet is a fixed-width set of initialized field indices.
// Set, Unset and Has panic for indices >= Max; callers must check Fits first.
type ISet uint64

// Fits reports whether n slots can be tracked by an ISet.
func Fits(n int) bool { return n <= Max }

func (s *ISet) Set(i int) {
	mustFit(i)
	*s |= 1 << uint(i)
}

func (s *ISet) Unset(i int) {
	mustFit(i)
	*s &^= 1 << uint(i)
}

func (s ISet) Has(i int) bool {
	mustFit(i)
	return s&(1<<uint(i)) != 0
}

// All reports whether slots [0, n) are all set.
func (s ISet) All(n int) bool {
	if n == 0 {
		return true
	}
	mustFit(n - 1)
	if n == Max {
		return s == ^ISet(0)
	}
	mask := ISet(1)<<uint(n) - 1
	return s&mask == mask
}

// SetAll marks slots [0, n).
func (s *ISet) SetAll(n int) {
	if n == 0 {
		return
	}
	mustFit(n - 1)
	if n == Max {
		*s = ^ISet(0)
		return
	}
	*s |= ISet(1)<<uint(n) - 1
}

func (s ISet) Count() int { return bits.OnesCount64(uint64(s)) }

func (s *ISet) Clear() { *s = 0 }

// FirstUnset returns the lowest unset index below n, or -1.
func (s ISet) FirstUnset(n int) int {
	for i := 0; i < n; i++ {
		if !s.Has(i) {
			return i
		}
	}
	return -1
}

func mustFit(i int) {
	if i < 0 || i >= Max {
		panic("iset: index out of range for 64-slot set")
	}
}
