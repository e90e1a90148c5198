package region

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/shape-runtime/errors"
)

// Region is a named scope that borrowed data lives in. Regions form a tree:
// a child never outlives its parent. Closing or resetting a region ends the
// lifetime of every token taken from it and closes its descendants.
type Region struct {
	parent   *Region
	name     string
	children []*Region
	gen      atomic.Uint64
	depth    int
	mu       sync.Mutex
	closed   atomic.Bool
	static   bool
}

var static = &Region{name: "static", static: true}

// Static returns the process-wide region that is never closed.
func Static() *Region { return static }

// Child creates a region nested in r. A child of a closed region is
// created closed.
func (r *Region) Child(name string) *Region {
	c := &Region{parent: r, name: name, depth: r.depth + 1}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		c.closed.Store(true)
		return c
	}
	r.children = append(r.children, c)
	return c
}

func (r *Region) Name() string { return r.name }

// Parent returns the enclosing region, nil for Static and for roots.
func (r *Region) Parent() *Region { return r.parent }

// Generation returns the current generation. It changes on Reset and Close.
func (r *Region) Generation() uint64 { return r.gen.Load() }

// Closed reports whether r or any ancestor has been closed.
func (r *Region) Closed() bool {
	for cur := r; cur != nil; cur = cur.parent {
		if cur.closed.Load() {
			return true
		}
	}
	return false
}

// Reset starts a new generation: tokens taken before the reset go stale and
// child regions are closed. The region itself stays usable.
func (r *Region) Reset() {
	if r.static {
		return
	}
	r.gen.Add(1)
	r.closeChildren()
}

// Close ends the region and its whole subtree. Closing Static is a no-op.
func (r *Region) Close() {
	if r.static || r.closed.Swap(true) {
		return
	}
	r.gen.Add(1)
	r.closeChildren()
	if p := r.parent; p != nil {
		p.mu.Lock()
		for i, c := range p.children {
			if c == r {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
	}
}

func (r *Region) closeChildren() {
	r.mu.Lock()
	children := r.children
	r.children = nil
	r.mu.Unlock()
	for _, c := range children {
		c.closeDetached()
	}
}

// closeDetached closes a region already removed from its parent.
func (r *Region) closeDetached() {
	if r.closed.Swap(true) {
		return
	}
	r.gen.Add(1)
	r.closeChildren()
}

// Outlives reports whether data in r stays valid for as long as other:
// r is other or one of its ancestors, or r is Static.
func (r *Region) Outlives(other *Region) bool {
	if r == nil || other == nil {
		return false
	}
	if r.static {
		return true
	}
	for cur := other; cur != nil; cur = cur.parent {
		if cur == r {
			return true
		}
	}
	return false
}

// Token captures r's current generation.
func (r *Region) Token() Token { return Token{r: r, gen: r.gen.Load()} }

func (r *Region) String() string {
	if r.parent == nil || r.parent.static {
		return r.name
	}
	return r.parent.String() + "/" + r.name
}

// Token witnesses that a borrow was taken from a region at a given
// generation. The zero Token belongs to no region and is never live.
type Token struct {
	r   *Region
	gen uint64
}

// Region returns the region the token was taken from.
func (t Token) Region() *Region { return t.r }

// Live reports whether the region is open and has not been reset since the
// token was taken.
func (t Token) Live() bool {
	return t.r != nil && !t.r.Closed() && t.r.gen.Load() == t.gen
}

// Check verifies that every borrowed input token is live and that its region
// outlives out, the region of the produced value.
func Check(out *Region, tokens []Token) error {
	if out == nil {
		out = static
	}
	if out.Closed() {
		return errors.BorrowScope("output region " + out.String() + " is closed")
	}
	for _, tok := range tokens {
		if tok.r == nil {
			return errors.BorrowScope("borrowed input carries no region")
		}
		if !tok.Live() {
			return errors.BorrowScope("borrowed input from region " + tok.r.String() + " is stale")
		}
		if !tok.r.Outlives(out) {
			return errors.BorrowScope("region " + tok.r.String() + " does not outlive output region " + out.String())
		}
	}
	return nil
}
