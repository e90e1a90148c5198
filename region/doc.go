// Package region tracks the lifetime of borrowed data at run time.
//
// A builder that copies borrowed input must not produce a value that
// outlives the input. Regions make that relationship explicit: every borrow
// carries a Token taken from the region its data lives in, and the value
// under construction is assigned an output region. Check accepts the borrow
// only when the token is still live and its region encloses the output
// region.
//
//	req := region.Static().Child("request")
//	defer req.Close()
//
//	tok := req.Token()
//	...
//	err := region.Check(req, []region.Token{tok}) // ok
//	err = region.Check(region.Static(), []region.Token{tok}) // borrow_scope
//
// Reset starts a new generation of a region, as an arena does when it is
// recycled; tokens from the previous generation fail Check afterwards.
package region
