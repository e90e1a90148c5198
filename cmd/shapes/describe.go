package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/shape-runtime/shape"
	"github.com/wippyai/shape-runtime/witshape"
)

var allOps = []shape.Op{
	shape.OpDebug, shape.OpDisplay, shape.OpParse, shape.OpEqual, shape.OpCompare,
	shape.OpHash, shape.OpDefault, shape.OpClone, shape.OpDrop, shape.OpInvariants,
	shape.OpTryFrom, shape.OpTryIntoInner, shape.OpTryBorrowInner,
}

func newDescribeCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <wit-type>",
		Short: "Print the shape tree of a WIT type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadFor(cmd, gf)
			if err != nil {
				return err
			}
			s, header, err := compileArg(args[0])
			if err != nil {
				return err
			}
			return describe(cmd.OutOrStdout(), cfg, header, s)
		},
	}
}

// compileArg parses a WIT type expression and compiles it over a
// synthesized Go type.
func compileArg(src string) (*shape.Shape, string, error) {
	wt, err := witshape.ParseType(src)
	if err != nil {
		return nil, "", fmt.Errorf("parse %q: %w", src, err)
	}
	s, err := witshape.NewCompiler().CompileType(wt)
	if err != nil {
		return nil, "", fmt.Errorf("compile %s: %w", witTypeStr(wt), err)
	}
	return s, witTypeStr(wt), nil
}

func describe(w io.Writer, cfg Config, header string, s *shape.Shape) error {
	st := newRenderer(cfg, w)
	if _, err := fmt.Fprintf(w, "%s %s\n", st.title.Render(header), st.dim.Render(s.GoType.String())); err != nil {
		return err
	}
	d := &describer{cfg: cfg, st: st, onPath: make(map[*shape.Shape]bool)}
	d.walk(0, "", s, nil)
	return d.tab.write(w)
}

type describer struct {
	onPath map[*shape.Shape]bool
	st     styles
	tab    table
	cfg    Config
}

func (d *describer) row(depth int, label string, s *shape.Shape, field *shape.Field, note string) {
	label = strings.Repeat(" ", depth*d.cfg.Indent) + label
	cols := []column{
		{text: label, style: d.st.field},
		{text: s.Kind().String(), style: d.st.kind},
		{text: s.Name, style: d.st.typ},
	}
	if d.cfg.Offsets {
		off := ""
		if field != nil {
			off = "@" + strconv.FormatUint(uint64(field.Offset), 10)
		}
		layout := fmt.Sprintf("size=%d align=%d", s.Layout.Size, s.Layout.Align)
		if s.Layout.Unsized {
			layout = "unsized"
		}
		cols = append(cols, column{text: off, style: d.st.dim}, column{text: layout, style: d.st.dim})
	}
	var extra []string
	if field != nil {
		if names := field.Flags.Names(); len(names) > 0 {
			extra = append(extra, "["+strings.Join(names, ",")+"]")
		}
	}
	if d.cfg.Ops {
		extra = append(extra, "ops="+strings.Join(supported(s), ","))
	}
	if note != "" {
		extra = append(extra, note)
	}
	cols = append(cols, column{text: strings.Join(extra, " "), style: d.st.value})
	d.tab.add(cols...)
}

func supported(s *shape.Shape) []string {
	var out []string
	for _, op := range allOps {
		if s.Supports(op) {
			out = append(out, op.String())
		}
	}
	return out
}

func (d *describer) walk(depth int, label string, s *shape.Shape, field *shape.Field) {
	if label == "" {
		label = "."
	}
	if d.onPath[s] {
		d.row(depth, label, s, field, "(recursive)")
		return
	}
	d.onPath[s] = true
	defer delete(d.onPath, s)

	note := ""
	switch s.Kind() {
	case shape.KindArray:
		note = "len=" + strconv.Itoa(s.Def.Array.Len)
	case shape.KindPointer:
		note = "flags=" + s.Def.Pointer.Flags.String()
	}
	d.row(depth, label, s, field, note)

	switch s.Kind() {
	case shape.KindStruct, shape.KindTuple, shape.KindUnion:
		fields := s.Fields()
		for i := range fields {
			d.walk(depth+1, fields[i].Name, fields[i].Shape(), &fields[i])
		}
	case shape.KindEnum:
		for i := range s.Def.Enum.Variants {
			d.variant(depth+1, &s.Def.Enum.Variants[i])
		}
	case shape.KindMap:
		d.walk(depth+1, "[key]", s.Def.Map.Key(), nil)
		d.walk(depth+1, "[value]", s.Def.Map.Value(), nil)
	case shape.KindArray, shape.KindSlice, shape.KindList, shape.KindSet:
		d.walk(depth+1, "[elem]", s.Children()[0], nil)
	case shape.KindOption:
		d.walk(depth+1, "[some]", s.Def.Option.Inner(), nil)
	case shape.KindPointer:
		d.walk(depth+1, "[target]", s.Def.Pointer.Pointee(), nil)
	}
}

func (d *describer) variant(depth int, v *shape.Variant) {
	label := strings.Repeat(" ", depth*d.cfg.Indent) + v.Name
	cols := []column{
		{text: label, style: d.st.field},
		{text: "variant", style: d.st.kind},
		{text: "= " + strconv.FormatInt(v.Discriminant, 10), style: d.st.value},
	}
	d.tab.add(cols...)
	for i := range v.Data.Fields {
		f := &v.Data.Fields[i]
		d.walk(depth+1, f.Name, f.Shape(), f)
	}
}
