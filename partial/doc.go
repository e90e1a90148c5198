// Package partial builds values through their shapes, one slot at a time.
//
// A Partial holds a stack of frames. The root frame owns freshly allocated
// storage for the value being built; Begin* operations push a frame over a
// field, element, entry, option payload or pointer target, and End checks
// that frame and moves its value into the parent:
//
//	p, _ := partial.Alloc[Config]()
//	_ = p.BeginField("name")
//	_ = p.Set("api")
//	_ = p.End()
//	_ = p.SetField("port", 8080)
//	cfg, err := partial.Build[Config](p)
//
// End and Build refuse incomplete values. Unset struct fields are filled
// from their declared defaults, options default to None, and anything else
// left unset is reported as errors.KindUninitializedValue (or
// KindUninitializedEnumField for variant fields). Invariant predicates run
// on every finished frame.
//
// A builder that is not built must be discarded. Discard drops every
// initialized slot, newest first, so destructor hooks run exactly once.
//
// Values borrowed from a region are passed with SetBorrowed and the token of
// their region. Build fails when any such region has been closed or reset,
// or does not outlive the builder's output region.
package partial
