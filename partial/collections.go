package partial

import (
	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/internal/iset"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/shape"
)

// BeginList initializes an empty list in the current frame. Lists already
// holding elements keep them and further items are appended. On arrays it
// only checks the frame kind.
func (p *Partial) BeginList() error {
	f, err := p.check("begin_list")
	if err != nil {
		return err
	}
	switch f.s.Kind() {
	case shape.KindList:
		p.initList(f)
		return nil
	case shape.KindArray:
		return nil
	}
	return p.mismatch(f, "begin_list", "list or array")
}

func (p *Partial) initList(f *frame) {
	if !f.full {
		f.s.Def.List.VTable.Init(f.data, 0)
		f.full = true
	}
}

// BeginListItem appends an element to a list, or addresses the next
// element of an array in order.
func (p *Partial) BeginListItem() error {
	f, err := p.check("begin_list_item")
	if err != nil {
		return err
	}
	switch f.s.Kind() {
	case shape.KindList:
		p.initList(f)
		d := f.s.Def.List
		slot := d.VTable.PushSlot(f.mut())
		n := d.VTable.Len(f.mut().Const())
		child, err := newFrame(d.Elem(), slot, roleListItem, n-1, "")
		if err == nil {
			err = p.push(child)
		}
		if err != nil {
			d.VTable.Truncate(f.mut(), n-1)
			return err
		}
		return nil
	case shape.KindArray:
		if f.next >= f.s.Def.Array.Len {
			return errors.OutOfBounds(errors.PhasePartial, p.Path(), f.next, f.s.Def.Array.Len)
		}
		if err := p.beginElement(f, f.next); err != nil {
			return err
		}
		f.next++
		return nil
	}
	return p.mismatch(f, "begin_list_item", "list or array")
}

// BeginNthElement addresses element i of an array. Indices at or past the
// array length fail with an out-of-bounds error.
func (p *Partial) BeginNthElement(i int) error {
	f, err := p.check("begin_nth_element")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindArray {
		return p.mismatch(f, "begin_nth_element", "array")
	}
	if i < 0 || i >= f.s.Def.Array.Len {
		return errors.OutOfBounds(errors.PhasePartial, p.Path(), i, f.s.Def.Array.Len)
	}
	return p.beginElement(f, i)
}

// SetNthElement sets array element i in one step.
func (p *Partial) SetNthElement(i int, v any) error {
	if err := p.BeginNthElement(i); err != nil {
		return err
	}
	return p.setAndEnd(v)
}

func (p *Partial) beginElement(f *frame, i int) error {
	f.explode()
	if f.elems.Has(i) {
		f.dropElem(i)
	}
	child, err := newFrame(f.s.Def.Array.Elem(), f.elemAt(i), roleElement, i, "")
	if err != nil {
		return err
	}
	return p.push(child)
}

// BeginMap initializes an empty map or set in the current frame.
func (p *Partial) BeginMap() error {
	f, err := p.check("begin_map")
	if err != nil {
		return err
	}
	switch f.s.Kind() {
	case shape.KindMap, shape.KindSet:
		p.initMap(f)
		return nil
	}
	return p.mismatch(f, "begin_map", "map or set")
}

func (p *Partial) initMap(f *frame) {
	if f.full {
		return
	}
	if f.s.Kind() == shape.KindSet {
		f.s.Def.Set.VTable.Init(f.data, 0)
	} else {
		f.s.Def.Map.VTable.Init(f.data, 0)
	}
	f.full = true
}

// BeginMapInsert starts a map entry. The entry is inserted when the frame
// opened by BeginValue ends.
func (p *Partial) BeginMapInsert() error {
	f, err := p.check("begin_map_insert")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindMap {
		return p.mismatch(f, "begin_map_insert", "map")
	}
	if f.pending {
		return p.fail(f, "begin_map_insert", "previous entry is not finished")
	}
	p.initMap(f)
	f.key = ptr.Alloc(f.s.Def.Map.Key().GoType)
	f.pending = true
	return nil
}

// BeginKey addresses the key of the pending entry.
func (p *Partial) BeginKey() error {
	f, err := p.check("begin_key")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindMap {
		return p.mismatch(f, "begin_key", "map")
	}
	switch {
	case !f.pending:
		return p.fail(f, "begin_key", "call BeginMapInsert first")
	case f.keySet:
		return p.fail(f, "begin_key", "key of the pending entry is already set")
	}
	child, err := newFrame(f.s.Def.Map.Key(), f.key, roleMapKey, 0, "")
	if err != nil {
		return err
	}
	return p.push(child)
}

// BeginValue addresses the value of the pending entry; its key must be set.
func (p *Partial) BeginValue() error {
	f, err := p.check("begin_value")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindMap {
		return p.mismatch(f, "begin_value", "map")
	}
	if !f.pending || !f.keySet {
		return p.fail(f, "begin_value", "set the entry key first")
	}
	vs := f.s.Def.Map.Value()
	child, err := newFrame(vs, ptr.Alloc(vs.GoType), roleMapValue, 0, "")
	if err != nil {
		return err
	}
	return p.push(child)
}

// BeginSetItem addresses a new set member. A member equal to an existing one
// is dropped when its frame ends.
func (p *Partial) BeginSetItem() error {
	f, err := p.check("begin_set_item")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindSet {
		return p.mismatch(f, "begin_set_item", "set")
	}
	p.initMap(f)
	es := f.s.Def.Set.Elem()
	child, err := newFrame(es, ptr.Alloc(es.GoType), roleSetItem, 0, "")
	if err != nil {
		return err
	}
	return p.push(child)
}

// BeginSome addresses the value of an option, making it Some on End.
func (p *Partial) BeginSome() error {
	f, err := p.check("begin_some")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindOption {
		return p.mismatch(f, "begin_some", "option")
	}
	d := f.s.Def.Option
	child, err := newFrame(d.Inner(), d.VTable.AllocInner(), roleSome, 0, "")
	if err != nil {
		return err
	}
	if err := p.push(child); err != nil {
		return err
	}
	f.deinit()
	return nil
}

// SetNone makes the current option None.
func (p *Partial) SetNone() error {
	f, err := p.check("set_none")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindOption {
		return p.mismatch(f, "set_none", "option")
	}
	f.deinit()
	f.s.Def.Option.VTable.InitNone(f.data)
	f.full = true
	return nil
}

// BeginSmartPointer addresses the target of a new smart pointer. Pointer
// kinds that cannot own a value, such as weak pointers, are unsupported.
func (p *Partial) BeginSmartPointer() error {
	f, err := p.check("begin_smart_pointer")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindPointer {
		return p.mismatch(f, "begin_smart_pointer", "smart pointer")
	}
	d := f.s.Def.Pointer
	if d.VTable.New == nil || d.VTable.AllocInner == nil {
		return errors.New(errors.PhasePartial, errors.KindUnsupported).
			Path(p.Path()...).
			Shape(f.s.Name).
			Operation("begin_smart_pointer").
			Detail("%s pointers cannot be constructed from a value", d.Flags).
			Build()
	}
	child, err := newFrame(d.Pointee(), d.VTable.AllocInner(), rolePointer, 0, "")
	if err != nil {
		return err
	}
	if err := p.push(child); err != nil {
		return err
	}
	f.deinit()
	return nil
}

// SelectVariant commits the current enum frame to the named variant.
// Integer enums are complete once selected; other variants then take their
// fields through BeginField. A frame selects at most once.
func (p *Partial) SelectVariant(name string) error {
	f, err := p.check("select_variant")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindEnum {
		return p.mismatch(f, "select_variant", "enum")
	}
	i, ok := f.s.Def.Enum.VariantIndex(name)
	if !ok {
		return errors.VariantUnknown(errors.PhasePartial, p.Path(), f.s.Name, name)
	}
	return p.selectVariant(f, i)
}

// SelectNthVariant commits the current enum frame to variant i.
func (p *Partial) SelectNthVariant(i int) error {
	f, err := p.check("select_nth_variant")
	if err != nil {
		return err
	}
	if f.s.Kind() != shape.KindEnum {
		return p.mismatch(f, "select_nth_variant", "enum")
	}
	if n := len(f.s.Def.Enum.Variants); i < 0 || i >= n {
		return errors.OutOfBounds(errors.PhasePartial, p.Path(), i, n)
	}
	return p.selectVariant(f, i)
}

func (p *Partial) selectVariant(f *frame, i int) error {
	d := f.s.Def.Enum
	switch {
	case f.variant >= 0:
		return p.fail(f, "select_variant", "variant "+d.Variants[f.variant].Name+" is already selected")
	case f.full:
		return p.fail(f, "select_variant", "enum value is already set")
	}
	v := &d.Variants[i]
	if !iset.Fits(len(v.Data.Fields)) {
		return tooManyFields(f.s, len(v.Data.Fields))
	}
	f.variant = i
	if d.Repr == shape.EnumReprInteger {
		d.VTable.Commit(f.data, i, ptr.Mut{})
		f.full = true
		return nil
	}
	f.payload = d.VTable.AllocPayload(i)
	return nil
}
