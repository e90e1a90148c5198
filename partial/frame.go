package partial

import (
	"slices"
	"strconv"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/internal/iset"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/region"
	"github.com/wippyai/shape-runtime/shape"
)

// role is how a finished frame is handed to its parent on End.
type role uint8

const (
	roleRoot role = iota
	roleField
	roleElement
	roleListItem
	roleMapKey
	roleMapValue
	roleSetItem
	roleSome
	rolePointer
	roleUnion
)

// frame is one level of the construction cursor. Its storage is either
// inside the parent's storage (fields, elements, list slots) or a separate
// allocation the parent takes over on End.
type frame struct {
	s    *shape.Shape
	data ptr.Uninit
	name string
	role role
	// index is the field, element or union member this frame fills.
	index int

	// full is set once the whole value at data is initialized.
	full bool

	// struct and enum payload fields
	fields iset.ISet
	// array elements
	elems *iset.Wide
	next  int
	// order records initialized field or element indices, oldest first.
	order []int

	// enum and union selection
	variant int
	payload ptr.Uninit

	// pending map entry
	key     ptr.Uninit
	keySet  bool
	pending bool

	// borrowed input tokens: tokens covers the frame's value as a whole,
	// lent covers single fields or elements and goes away with them.
	tokens []region.Token
	lent   map[int][]region.Token
}

func newFrame(s *shape.Shape, data ptr.Uninit, r role, index int, name string) (*frame, error) {
	f := &frame{s: s, data: data, role: r, index: index, name: name, variant: -1}
	switch s.Kind() {
	case shape.KindStruct, shape.KindTuple:
		if n := len(s.Def.Struct.Fields); !iset.Fits(n) {
			return nil, tooManyFields(s, n)
		}
	case shape.KindArray:
		f.elems = iset.NewWide(s.Def.Array.Len)
	case shape.KindUnion:
		if n := len(s.Def.Union.Fields); !iset.Fits(n) {
			return nil, tooManyFields(s, n)
		}
		// members are committed one pointer at a time; the rest stay nil
		data.Zero(s.GoType)
	}
	return f, nil
}

func tooManyFields(s *shape.Shape, n int) error {
	return errors.New(errors.PhasePartial, errors.KindUnsupported).
		Shape(s.Name).
		Operation("track_fields").
		Detail("%d fields exceed the %d-field initialization set", n, iset.Max).
		Build()
}

func (f *frame) mut() ptr.Mut { return f.data.AssumeInit() }

func (f *frame) segment() string {
	switch f.role {
	case roleElement, roleListItem:
		return "[" + strconv.Itoa(f.index) + "]"
	case roleMapKey:
		return "<key>"
	case roleMapValue:
		return "<value>"
	case roleSetItem:
		return "<item>"
	case roleSome:
		return "<some>"
	case rolePointer:
		return "<target>"
	}
	return f.name
}

// structFields returns the field list BeginField addresses and the base
// they are laid out from.
func (f *frame) structFields() ([]shape.Field, ptr.Uninit, bool) {
	switch f.s.Kind() {
	case shape.KindStruct, shape.KindTuple:
		return f.s.Def.Struct.Fields, f.data, true
	case shape.KindEnum:
		if f.variant < 0 {
			return nil, ptr.Uninit{}, false
		}
		return f.s.Def.Enum.Variants[f.variant].Data.Fields, f.payload, true
	}
	return nil, ptr.Uninit{}, false
}

func (f *frame) isIntegerEnum() bool {
	return f.s.Kind() == shape.KindEnum && f.s.Def.Enum.Repr == shape.EnumReprInteger
}

// explode turns a fully written struct or array back into per-slot tracking
// so that a single slot can be rewritten.
func (f *frame) explode() {
	if !f.full {
		return
	}
	switch f.s.Kind() {
	case shape.KindStruct, shape.KindTuple:
		n := len(f.s.Def.Struct.Fields)
		f.fields.SetAll(n)
		f.order = f.order[:0]
		for i := range n {
			f.order = append(f.order, i)
		}
		f.full = false
	case shape.KindArray:
		f.elems.SetAll()
		f.order = f.order[:0]
		for i := range f.s.Def.Array.Len {
			f.order = append(f.order, i)
		}
		f.full = false
	}
}

func (f *frame) markSet(i int) {
	f.order = append(f.order, i)
}

func (f *frame) forget(i int) {
	if j := slices.Index(f.order, i); j >= 0 {
		f.order = slices.Delete(f.order, j, j+1)
	}
}

// dropField drops an initialized field of a struct or selected variant.
func (f *frame) dropField(i int) {
	fields, base, _ := f.structFields()
	fd := &fields[i]
	shape.DropValue(fd.Shape(), base.Field(fd.Offset).AssumeInit())
	f.fields.Unset(i)
	f.forget(i)
	delete(f.lent, i)
}

func (f *frame) elemAt(i int) ptr.Uninit {
	return f.data.Add(uintptr(i) * f.s.Def.Array.Elem().Layout.Size)
}

func (f *frame) dropElem(i int) {
	shape.DropValue(f.s.Def.Array.Elem(), f.elemAt(i).AssumeInit())
	f.elems.Unset(i)
	f.forget(i)
	delete(f.lent, i)
}

// lend records the tokens a finished child brought into slot i.
func (f *frame) lend(i int, toks []region.Token) {
	if len(toks) == 0 {
		return
	}
	if f.lent == nil {
		f.lent = make(map[int][]region.Token)
	}
	f.lent[i] = toks
}

// borrowed returns every token the frame's current value depends on.
func (f *frame) borrowed() []region.Token {
	out := slices.Clone(f.tokens)
	for _, toks := range f.lent {
		out = append(out, toks...)
	}
	return out
}

// deinit drops everything the frame initialized, newest first, and leaves
// its storage uninitialized. Child frames must be deinitialized first.
func (f *frame) deinit() {
	if f.pending {
		if f.keySet {
			shape.DropValue(f.s.Def.Map.Key(), f.key.AssumeInit())
		}
		f.pending, f.keySet = false, false
	}
	if f.full {
		shape.DropValue(f.s, f.mut())
		f.reset()
		return
	}
	switch f.s.Kind() {
	case shape.KindStruct, shape.KindTuple, shape.KindEnum:
		for j := len(f.order) - 1; j >= 0; j-- {
			f.dropField(f.order[j])
		}
	case shape.KindArray:
		for j := len(f.order) - 1; j >= 0; j-- {
			f.dropElem(f.order[j])
		}
	}
	f.reset()
}

func (f *frame) reset() {
	f.full = false
	f.fields.Clear()
	if f.elems != nil {
		f.elems.Clear()
	}
	f.order = f.order[:0]
	f.next = 0
	f.tokens = nil
	f.lent = nil
	f.variant = -1
	f.payload = ptr.Uninit{}
	if f.s.Kind() == shape.KindUnion {
		f.data.Zero(f.s.GoType)
	}
}

// canDefault reports whether an unset field is filled in when its frame is
// finished instead of failing the completeness check.
func canDefault(fd *shape.Field) bool {
	if fd.Has(shape.FieldHasDefault) || fd.Has(shape.FieldSkip) {
		return true
	}
	return fd.Shape().Kind() == shape.KindOption
}

func fillDefault(fd *shape.Field, dst ptr.Uninit) error {
	fs := fd.Shape()
	if !fd.Has(shape.FieldHasDefault) && !fd.Has(shape.FieldSkip) && fs.Kind() == shape.KindOption {
		fs.Def.Option.VTable.InitNone(dst)
		return nil
	}
	return shape.DefaultField(fd, dst)
}
