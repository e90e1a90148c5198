package partial

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/region"
	"github.com/wippyai/shape-runtime/shape"
)

type state uint8

const (
	stateBuilding state = iota
	stateBuilt
	stateDiscarded
)

// Partial builds a value of one shape step by step. The top frame of its
// stack is the value currently addressed; Begin* operations push a frame and
// End pops it into its parent. A Partial is not safe for concurrent use.
type Partial struct {
	opts   Options
	log    *zap.Logger
	frames []*frame
	state  state
}

// Alloc starts building a value of type T.
func Alloc[T any]() (*Partial, error) {
	return AllocShape(shape.Of[T](), DefaultOptions())
}

// AllocShape starts building a value of shape s in fresh storage.
func AllocShape(s *shape.Shape, opts Options) (*Partial, error) {
	if s == nil {
		return nil, errors.NilPointer(errors.PhasePartial, nil, "")
	}
	if s.Layout.Unsized {
		return nil, errors.New(errors.PhasePartial, errors.KindUnsupported).
			Shape(s.Name).
			Operation("alloc").
			Detail("unsized shapes cannot be allocated").
			Build()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	root, err := newFrame(s, ptr.Alloc(s.GoType), roleRoot, 0, s.Name)
	if err != nil {
		return nil, err
	}
	p := &Partial{
		opts:   opts,
		log:    opts.logger(),
		frames: []*frame{root},
	}
	p.log.Debug("builder allocated", zap.String("shape", s.Name))
	return p, nil
}

// Shape returns the shape of the frame currently addressed.
func (p *Partial) Shape() *shape.Shape {
	if len(p.frames) == 0 {
		return nil
	}
	return p.top().s
}

// Depth returns the number of open frames, root included.
func (p *Partial) Depth() int { return len(p.frames) }

// Path returns the segments leading from the root to the current frame.
func (p *Partial) Path() []string {
	if len(p.frames) < 2 {
		return nil
	}
	out := make([]string, 0, len(p.frames)-1)
	for _, f := range p.frames[1:] {
		out = append(out, f.segment())
	}
	return out
}

// IsFieldSet reports whether field i of the current struct frame (or of
// the selected variant) is initialized.
func (p *Partial) IsFieldSet(i int) bool {
	if len(p.frames) == 0 {
		return false
	}
	f := p.top()
	fields, _, ok := f.structFields()
	if !ok || i < 0 || i >= len(fields) {
		return false
	}
	if f.full {
		return true
	}
	return f.fields.Has(i)
}

func (p *Partial) top() *frame { return p.frames[len(p.frames)-1] }

func (p *Partial) check(op string) (*frame, error) {
	switch p.state {
	case stateBuilt:
		return nil, errors.OperationFailed(errors.PhasePartial, "", op, "builder already produced its value")
	case stateDiscarded:
		return nil, errors.OperationFailed(errors.PhasePartial, "", op, "builder was discarded")
	}
	return p.top(), nil
}

func (p *Partial) fail(f *frame, op, detail string) error {
	return errors.New(errors.PhasePartial, errors.KindOperationFailed).
		Path(p.Path()...).
		Shape(f.s.Name).
		Operation(op).
		Detail("%s", detail).
		Build()
}

func (p *Partial) mismatch(f *frame, op, want string) error {
	return errors.New(errors.PhasePartial, errors.KindTypeMismatch).
		Path(p.Path()...).
		Shape(f.s.Name).
		Operation(op).
		Detail("frame is %s, operation needs %s", f.s.Kind(), want).
		Build()
}

func (p *Partial) push(f *frame) error {
	if len(p.frames) >= p.opts.MaxDepth {
		return errors.New(errors.PhasePartial, errors.KindOperationFailed).
			Path(p.Path()...).
			Shape(f.s.Name).
			Operation("push").
			Detail("frame depth limit %d reached", p.opts.MaxDepth).
			Build()
	}
	p.frames = append(p.frames, f)
	p.log.Debug("frame pushed",
		zap.String("shape", f.s.Name),
		zap.Strings("path", p.Path()))
	return nil
}

// BeginField addresses a field by name. On struct frames an already set
// field is dropped and rewritten. On enum frames the field belongs to the
// selected variant. On union frames the named member is selected.
func (p *Partial) BeginField(name string) error {
	f, err := p.check("begin_field")
	if err != nil {
		return err
	}
	if f.s.Kind() == shape.KindUnion {
		for i := range f.s.Def.Union.Fields {
			if f.s.Def.Union.Fields[i].Name == name {
				return p.beginUnionMember(f, i)
			}
		}
		return errors.FieldUnknown(errors.PhasePartial, p.Path(), f.s.Name, name)
	}
	if err := p.requireFields(f, "begin_field"); err != nil {
		return err
	}
	fields, _, _ := f.structFields()
	for i := range fields {
		if fields[i].Name == name {
			return p.beginField(f, i)
		}
	}
	return errors.FieldUnknown(errors.PhasePartial, p.Path(), f.s.Name, name)
}

// BeginNthField addresses field i.
func (p *Partial) BeginNthField(i int) error {
	f, err := p.check("begin_nth_field")
	if err != nil {
		return err
	}
	if f.s.Kind() == shape.KindUnion {
		if i < 0 || i >= len(f.s.Def.Union.Fields) {
			return errors.OutOfBounds(errors.PhasePartial, p.Path(), i, len(f.s.Def.Union.Fields))
		}
		return p.beginUnionMember(f, i)
	}
	if err := p.requireFields(f, "begin_nth_field"); err != nil {
		return err
	}
	fields, _, _ := f.structFields()
	if i < 0 || i >= len(fields) {
		return errors.OutOfBounds(errors.PhasePartial, p.Path(), i, len(fields))
	}
	return p.beginField(f, i)
}

func (p *Partial) requireFields(f *frame, op string) error {
	switch f.s.Kind() {
	case shape.KindStruct, shape.KindTuple:
		return nil
	case shape.KindEnum:
		if f.variant < 0 {
			return p.fail(f, op, "select a variant before addressing its fields")
		}
		if f.full {
			return p.fail(f, op, "variant "+f.s.Def.Enum.Variants[f.variant].Name+" is already complete")
		}
		return nil
	}
	return p.mismatch(f, op, "struct, tuple or enum")
}

func (p *Partial) beginField(f *frame, i int) error {
	f.explode()
	fields, base, _ := f.structFields()
	fd := &fields[i]
	if f.fields.Has(i) {
		f.dropField(i)
	}
	child, err := newFrame(fd.Shape(), base.Field(fd.Offset), roleField, i, fd.Name)
	if err != nil {
		return err
	}
	return p.push(child)
}

func (p *Partial) beginUnionMember(f *frame, i int) error {
	if f.variant >= 0 && f.variant != i {
		return p.fail(f, "select_member",
			"member "+f.s.Def.Union.Fields[f.variant].Name+" is already selected")
	}
	if f.full {
		f.deinit()
	}
	fd := &f.s.Def.Union.Fields[i]
	fs := fd.Shape()
	child, err := newFrame(fs, ptr.Alloc(fs.GoType), roleUnion, i, fd.Name)
	if err != nil {
		return err
	}
	if err := p.push(child); err != nil {
		return err
	}
	f.variant = i
	return nil
}

// End finishes the current frame and moves its value into the parent.
// On failure the frame stays current so the caller can complete it.
func (p *Partial) End() error {
	f, err := p.check("end")
	if err != nil {
		return err
	}
	if len(p.frames) == 1 {
		return p.fail(f, "end", "cannot end the root frame; use Build")
	}
	if err := p.finish(f); err != nil {
		return err
	}
	parent := p.frames[len(p.frames)-2]
	p.frames = p.frames[:len(p.frames)-1]
	p.transfer(parent, f)
	p.log.Debug("frame popped",
		zap.String("shape", f.s.Name),
		zap.Strings("path", p.Path()))
	return nil
}

// transfer hands a finished child to its parent according to its role.
func (p *Partial) transfer(parent, child *frame) {
	switch child.role {
	case roleField:
		parent.fields.Set(child.index)
		parent.markSet(child.index)
		parent.lend(child.index, child.borrowed())
		return
	case roleElement:
		parent.elems.Set(child.index)
		parent.markSet(child.index)
		parent.lend(child.index, child.borrowed())
		return
	case roleListItem:
	case roleMapKey:
		parent.keySet = true
	case roleMapValue:
		d := parent.s.Def.Map
		key := parent.key.AssumeInit()
		old, replaced := d.VTable.Insert(parent.mut(), key, child.mut())
		if replaced {
			// the map holds one copy of the key; the staged one is ours to drop
			shape.DropValue(d.Value(), old)
			shape.DropValue(d.Key(), key)
		}
		parent.pending, parent.keySet = false, false
		parent.key = ptr.Uninit{}
	case roleSetItem:
		d := parent.s.Def.Set
		if !d.VTable.Insert(parent.mut(), child.mut()) {
			shape.DropValue(d.Elem(), child.mut())
		}
	case roleSome:
		parent.s.Def.Option.VTable.InitSome(parent.data, child.mut())
		parent.full = true
	case rolePointer:
		parent.s.Def.Pointer.VTable.New(parent.data, child.mut())
		parent.full = true
	case roleUnion:
		parent.s.Def.Union.VTable.Commit(parent.mut(), child.index, child.mut())
		parent.full = true
	}
	parent.tokens = append(parent.tokens, child.borrowed()...)
}

// finish validates a frame, filling defaults for unset fields that have
// them, and runs the shape's invariant predicate.
func (p *Partial) finish(f *frame) error {
	if f.pending {
		return p.fail(f, "end", "map entry is not finished")
	}
	if !f.full {
		if err := p.complete(f); err != nil {
			return err
		}
	}
	if f.s.VTable.Invariants != nil {
		if err := f.s.VTable.Invariants(f.data.AssumeInit().Const()); err != nil {
			return errors.Invariant(p.Path(), f.s.Name, err)
		}
	}
	return nil
}

func (p *Partial) complete(f *frame) error {
	switch f.s.Kind() {
	case shape.KindStruct, shape.KindTuple:
		if err := p.fillFields(f, f.s.Def.Struct.Fields, f.data, ""); err != nil {
			return err
		}
		f.full = true
		f.fields.Clear()
		f.order = f.order[:0]
		return nil
	case shape.KindEnum:
		if f.variant < 0 {
			return errors.UninitializedValue(p.Path(), f.s.Name, "no variant selected")
		}
		v := &f.s.Def.Enum.Variants[f.variant]
		if err := p.fillFields(f, v.Data.Fields, f.payload, v.Name); err != nil {
			return err
		}
		f.s.Def.Enum.VTable.Commit(f.data, f.variant, f.payload.AssumeInit())
		f.full = true
		f.fields.Clear()
		f.order = f.order[:0]
		return nil
	case shape.KindArray:
		if i := f.elems.FirstUnset(); i >= 0 {
			return errors.UninitializedValue(p.Path(), f.s.Name, "element "+strconv.Itoa(i)+" is not initialized")
		}
		f.full = true
		f.elems.Clear()
		f.order = f.order[:0]
		return nil
	case shape.KindList:
		f.s.Def.List.VTable.Init(f.data, 0)
		f.full = true
		return nil
	case shape.KindMap:
		f.s.Def.Map.VTable.Init(f.data, 0)
		f.full = true
		return nil
	case shape.KindSet:
		f.s.Def.Set.VTable.Init(f.data, 0)
		f.full = true
		return nil
	case shape.KindUnion:
		return errors.UninitializedValue(p.Path(), f.s.Name, "no member selected")
	}
	return errors.UninitializedValue(p.Path(), f.s.Name, "value is not initialized")
}

// fillFields defaults unset fields that allow it and reports the first
// field that stays unset.
func (p *Partial) fillFields(f *frame, fields []shape.Field, base ptr.Uninit, variant string) error {
	for i := range fields {
		if f.fields.Has(i) {
			continue
		}
		fd := &fields[i]
		if !canDefault(fd) {
			if variant != "" {
				return errors.UninitializedEnumField(p.Path(), f.s.Name, variant, fd.Name)
			}
			return errors.UninitializedValue(p.Path(), f.s.Name, "field "+fd.Name+" is not initialized")
		}
	}
	for i := range fields {
		if f.fields.Has(i) {
			continue
		}
		fd := &fields[i]
		if err := fillDefault(fd, base.Field(fd.Offset)); err != nil {
			return errors.New(errors.PhasePartial, errors.KindUninitializedValue).
				Path(append(p.Path(), fd.Name)...).
				Shape(f.s.Name).
				Detail("default for field %s failed", fd.Name).
				Cause(err).
				Build()
		}
		f.fields.Set(i)
		f.markSet(i)
	}
	return nil
}

// Build validates the root value and hands it out. The builder is consumed
// on success; on failure it stays usable.
func (p *Partial) Build() (*HeapValue, error) {
	f, err := p.check("build")
	if err != nil {
		return nil, err
	}
	if len(p.frames) != 1 {
		return nil, p.fail(f, "build", strconv.Itoa(len(p.frames)-1)+" frames are still open")
	}
	if err := p.finish(f); err != nil {
		p.log.Debug("build failed", zap.String("shape", f.s.Name), zap.Error(err))
		return nil, err
	}
	out := p.opts.region()
	if err := region.Check(out, f.borrowed()); err != nil {
		p.log.Debug("build failed", zap.String("shape", f.s.Name), zap.Error(err))
		return nil, err
	}
	hv := &HeapValue{s: f.s, p: f.mut(), tok: out.Token()}
	p.frames = nil
	p.state = stateBuilt
	p.log.Debug("value built", zap.String("shape", f.s.Name), zap.Stringer("region", out))
	return hv, nil
}

// Discard abandons construction, dropping everything initialized so far in
// reverse order. It is a no-op after Build or a previous Discard.
func (p *Partial) Discard() {
	if p.state != stateBuilding {
		return
	}
	for len(p.frames) > 0 {
		p.popDiscard()
	}
	p.state = stateDiscarded
	p.log.Debug("builder discarded")
}

// popDiscard drops the top frame's contents and pops it.
func (p *Partial) popDiscard() {
	f := p.top()
	f.deinit()
	p.frames = p.frames[:len(p.frames)-1]
	if len(p.frames) == 0 {
		return
	}
	parent := p.top()
	switch f.role {
	case roleListItem:
		d := parent.s.Def.List
		d.VTable.Truncate(parent.mut(), d.VTable.Len(parent.mut().Const())-1)
	case roleUnion:
		if !parent.full {
			parent.variant = -1
		}
	}
}
